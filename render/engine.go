// Package render 维护掩码可视化的三个栅格图层（填充、边框、文字），
// 每次更新只重绘发生变化的掩码及其影响到的像素。
package render

import (
	"image"
	"image/color"

	"github.com/TIANLI0/reefmask/annotation"
	"go.uber.org/zap"
)

// Engine 掩码集合差分渲染引擎。
//
// 增量模式下，需要擦除或重绘的掩码的覆盖像素构成受损区域；受损区域先被清空，
// 再按输入顺序由所有可见掩码在区域内重绘，因此结果与完整重绘逐像素一致。
type Engine struct {
	width       int
	height      int
	incremental bool
	stale       bool
	highlight   func(*annotation.Mask) bool
	logger      *zap.Logger

	fill   *image.RGBA
	border *image.RGBA
	text   *image.RGBA

	geom   geometry
	badges map[int]*image.RGBA

	// 增量更新的受损区域，随尺寸分配并在每次更新后复用
	fillDamage   *region
	borderDamage *region
	textDamage   *region
	// 已报告过尺寸不符的掩码
	mismatched map[*annotation.Mask]struct{}
	stats      UpdateStats

	// 上一轮实际绘制的掩码及其在输入中的次序
	drawn map[*annotation.Mask]int
	// 图层内容每次变化时递增
	revision uint64
}

// UpdateStats 最近一次更新的工作量
type UpdateStats struct {
	Full      bool
	Damaged   int
	Repainted int
}

// Option 引擎配置项
type Option func(*Engine)

// WithIncremental false 时每次更新都完整重绘
func WithIncremental(on bool) Option {
	return func(e *Engine) { e.incremental = on }
}

// WithHighlighter 被选中的掩码以焦点颜色填充
func WithHighlighter(fn func(*annotation.Mask) bool) Option {
	return func(e *Engine) { e.highlight = fn }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New 创建 width×height 的渲染引擎
func New(width, height int, opts ...Option) *Engine {
	e := &Engine{incremental: true, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	e.Reset(width, height)
	return e
}

func (e *Engine) Width() int  { return e.width }
func (e *Engine) Height() int { return e.height }

func (e *Engine) Incremental() bool { return e.incremental }

func (e *Engine) SetIncremental(on bool) { e.incremental = on }

// SetHighlighter 替换高亮判定，下一次更新完整重绘
func (e *Engine) SetHighlighter(fn func(*annotation.Mask) bool) {
	e.highlight = fn
	e.stale = true
}

// Fill 填充图层
func (e *Engine) Fill() *image.RGBA { return e.fill }

// Border 边框图层
func (e *Engine) Border() *image.RGBA { return e.border }

// Text 文字图层
func (e *Engine) Text() *image.RGBA { return e.text }

// Revision 图层内容的版本号，内容变化时递增
func (e *Engine) Revision() uint64 { return e.revision }

// Stats 最近一次更新的受损像素数与重绘掩码数
func (e *Engine) Stats() UpdateStats { return e.stats }

// Layers 按合成顺序返回三个图层
func (e *Engine) Layers() []*image.RGBA {
	return []*image.RGBA{e.fill, e.border, e.text}
}

// Reset 切换到新尺寸的图像，清空图层与绘制记录
func (e *Engine) Reset(width, height int) {
	e.width, e.height = max(width, 0), max(height, 0)
	rect := image.Rect(0, 0, e.width, e.height)
	e.fill = image.NewRGBA(rect)
	e.border = image.NewRGBA(rect)
	e.text = image.NewRGBA(rect)
	e.geom = newGeometry(e.width, e.height)
	e.badges = make(map[int]*image.RGBA)
	e.fillDamage = newRegion(e.width, e.height)
	e.borderDamage = newRegion(e.width, e.height)
	e.textDamage = newRegion(e.width, e.height)
	e.mismatched = make(map[*annotation.Mask]struct{})
	e.drawn = make(map[*annotation.Mask]int)
	e.stale = false
	e.revision++
}

// Clear 清空图层并忘记上一轮绘制的掩码
func (e *Engine) Clear() {
	for _, layer := range e.Layers() {
		clear(layer.Pix)
	}
	e.drawn = make(map[*annotation.Mask]int)
	e.stale = false
	e.revision++
}

// Invalidate 下一次更新完整重绘
func (e *Engine) Invalidate() { e.stale = true }

// Update 使图层反映 incoming 的当前状态，并清除所有输入掩码的修改标记
func (e *Engine) Update(incoming []*annotation.Mask) {
	if !e.incremental || e.stale || e.reordered(incoming) {
		e.redrawAll(incoming)
	} else {
		e.updateIncremental(incoming)
	}

	e.drawn = make(map[*annotation.Mask]int, len(incoming))
	for i, m := range incoming {
		if e.displayable(m) {
			e.drawn[m] = i
		}
		m.ClearModified()
	}
	e.stale = false
}

// reordered 未变化且保留下来的掩码相对次序是否改变
func (e *Engine) reordered(incoming []*annotation.Mask) bool {
	last := -1
	for _, m := range incoming {
		idx, ok := e.drawn[m]
		if !ok || m.Modified() || !m.Visible() {
			continue
		}
		if idx < last {
			return true
		}
		last = idx
	}
	return false
}

func (e *Engine) displayable(m *annotation.Mask) bool {
	if !m.Visible() {
		return false
	}
	if m.Width() != e.width || m.Height() != e.height {
		if _, seen := e.mismatched[m]; seen {
			return false
		}
		e.mismatched[m] = struct{}{}
		e.logger.Warn("mask size does not match image",
			zap.Int("mask_id", m.ID()),
			zap.Int("mask_width", m.Width()),
			zap.Int("mask_height", m.Height()),
			zap.Int("width", e.width),
			zap.Int("height", e.height))
		return false
	}
	return true
}

func (e *Engine) redrawAll(incoming []*annotation.Mask) {
	for _, layer := range e.Layers() {
		clear(layer.Pix)
	}
	painted := 0
	for _, m := range incoming {
		if !e.displayable(m) {
			continue
		}
		e.paintFill(m, nil)
		e.paintBorder(m, nil)
		e.paintText(m, nil)
		painted++
	}
	e.stats = UpdateStats{Full: true, Damaged: e.width * e.height, Repainted: painted}
	e.revision++
	e.logger.Debug("layers redrawn", zap.Int("masks", len(incoming)))
}

func (e *Engine) updateIncremental(incoming []*annotation.Mask) {
	present := make(map[*annotation.Mask]struct{}, len(incoming))
	for _, m := range incoming {
		present[m] = struct{}{}
	}

	// 需要擦除：已绘制且被修改、被删除或被隐藏
	var outdated []*annotation.Mask
	for m := range e.drawn {
		_, kept := present[m]
		if !kept || m.Modified() || !m.Visible() {
			outdated = append(outdated, m)
		}
	}
	// 需要绘制：新增或被修改
	var render []*annotation.Mask
	for _, m := range incoming {
		if !m.Visible() {
			continue
		}
		if _, ok := e.drawn[m]; !ok || m.Modified() {
			render = append(render, m)
		}
	}
	if len(outdated) == 0 && len(render) == 0 {
		e.stats = UpdateStats{}
		return
	}

	fill, border, text := e.fillDamage, e.borderDamage, e.textDamage
	defer func() {
		fill.reset()
		border.reset()
		text.reset()
	}()
	for _, m := range outdated {
		e.markFootprint(m, fill, border, text)
	}
	for _, m := range render {
		e.markFootprint(m, fill, border, text)
	}

	e.revision++
	fill.clear(e.fill)
	border.clear(e.border)
	text.clear(e.text)
	repaired := 0
	for _, m := range incoming {
		if !e.displayable(m) {
			continue
		}
		n := 0
		if e.paintFill(m, fill) {
			n++
		}
		if e.paintBorder(m, border) {
			n++
		}
		if e.paintText(m, text) {
			n++
		}
		if n > 0 {
			repaired++
		}
	}
	e.stats = UpdateStats{
		Damaged:   fill.size() + border.size() + text.size(),
		Repainted: repaired,
	}
	e.logger.Debug("layers updated",
		zap.Int("outdated", len(outdated)),
		zap.Int("rendered", len(render)),
		zap.Int("repainted", repaired))
}

// markFootprint 将掩码在三个图层上的覆盖像素加入受损区域
func (e *Engine) markFootprint(m *annotation.Mask, fill, border, text *region) {
	buf := m.Pixels()
	if buf == nil || m.Width() != e.width || m.Height() != e.height {
		return
	}
	b := m.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if buf[y*e.width+x] == 1 {
				fill.add(x, y)
			}
		}
	}
	for _, i := range m.BorderPixels() {
		x, y := i%e.width, i/e.width
		for _, d := range e.geom.dot {
			border.add(x+d.X, y+d.Y)
		}
	}
	if c, ok := m.Centroid(); ok {
		o := c.Add(e.geom.badgeOffset)
		side := e.geom.badgeSide
		for k, inside := range e.geom.badgeDisk {
			if inside {
				text.add(o.X+k%side, o.Y+k/side)
			}
		}
	}
}

func (e *Engine) fillColor(m *annotation.Mask) color.RGBA {
	if e.highlight != nil && e.highlight(m) {
		return annotation.FocusColor
	}
	return m.Category().FillColor()
}

// paintFill 覆盖写入前景像素，clip 为 nil 时不裁剪；返回是否触及裁剪区域
func (e *Engine) paintFill(m *annotation.Mask, clip *region) bool {
	buf := m.Pixels()
	b := m.Bounds()
	if buf == nil || b.Empty() || !clip.overlaps(b) {
		return false
	}
	c := e.fillColor(m)
	b = clip.clip(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := y*e.width + x
			if buf[i] == 1 && clip.has(i) {
				setPixel(e.fill, i, c)
			}
		}
	}
	return true
}

// paintBorder 在每个边界像素处画实心圆点
func (e *Engine) paintBorder(m *annotation.Mask, clip *region) bool {
	r := e.geom.dotRadius
	if !clip.overlaps(m.Bounds().Inset(-r)) {
		return false
	}
	c := m.Category().BorderColor()
	var near image.Rectangle
	if clip != nil {
		near = clip.bounds.Inset(-r)
	}
	for _, i := range m.BorderPixels() {
		x, y := i%e.width, i/e.width
		if clip != nil && !image.Pt(x, y).In(near) {
			continue
		}
		for _, d := range e.geom.dot {
			px, py := x+d.X, y+d.Y
			if px < 0 || py < 0 || px >= e.width || py >= e.height {
				continue
			}
			j := py*e.width + px
			if clip.has(j) {
				setPixel(e.border, j, c)
			}
		}
	}
	return true
}

// paintText 在质心处盖上类别徽标，未定义类别和空掩码不绘制
func (e *Engine) paintText(m *annotation.Mask, clip *region) bool {
	cat := m.Category()
	if cat.IsUndefined() {
		return false
	}
	c, ok := m.Centroid()
	if !ok {
		return false
	}
	side := e.geom.badgeSide
	o := c.Add(e.geom.badgeOffset)
	if !clip.overlaps(image.Rect(o.X, o.Y, o.X+side, o.Y+side)) {
		return false
	}
	s := e.badge(cat)
	for k, inside := range e.geom.badgeDisk {
		if !inside || s.Pix[k*4+3] == 0 {
			continue
		}
		px, py := o.X+k%side, o.Y+k/side
		if px < 0 || py < 0 || px >= e.width || py >= e.height {
			continue
		}
		j := py*e.width + px
		if clip.has(j) {
			copy(e.text.Pix[j*4:j*4+4], s.Pix[k*4:k*4+4])
		}
	}
	return true
}
