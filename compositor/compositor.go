package compositor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/TIANLI0/reefmask/annotation"
	"github.com/TIANLI0/reefmask/model"
	"github.com/anthonynsimon/bild/clone"
	"github.com/gogpu/gg"
	"go.uber.org/zap"
)

// 默认透明度
const (
	DefaultMaskOpacity   = 0.4
	DefaultPromptOpacity = 0.7
)

var selectionColor = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

// LayerSource 提供按合成顺序排列的掩码图层（填充、边框、文字）
type LayerSource interface {
	Layers() []*image.RGBA
	Revision() uint64
}

// Poster 将绘制任务投递到事件循环
type Poster interface {
	Post(fn func()) bool
}

// Compositor 按帧将底图、掩码图层和提示预览合成到画布
type Compositor struct {
	view   *Viewport
	dc     *gg.Context
	logger *zap.Logger

	base *gg.ImageBuf

	layers     LayerSource
	layerBufs  []*gg.ImageBuf
	layerRev   uint64
	layerValid bool

	opacity       float64
	promptOpacity float64
	showMask      bool

	prompt    *gg.ImageBuf
	selection image.Rectangle
}

// New 创建与视口画布同尺寸的合成器
func New(view *Viewport, logger *zap.Logger) *Compositor {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, h := view.CanvasSize()
	return &Compositor{
		view:          view,
		dc:            gg.NewContext(max(w, 1), max(h, 1)),
		logger:        logger,
		opacity:       DefaultMaskOpacity,
		promptOpacity: DefaultPromptOpacity,
		showMask:      true,
	}
}

func (c *Compositor) Viewport() *Viewport { return c.view }

// SetImage 绑定底图并复位视口，nil 解除绑定
func (c *Compositor) SetImage(img image.Image) {
	c.prompt = nil
	c.selection = image.Rectangle{}
	if img == nil {
		c.base = nil
		return
	}
	rgba := clone.AsRGBA(img)
	c.base = gg.ImageBufFromImage(rgba)
	c.view.SetImageSize(rgba.Bounds().Dx(), rgba.Bounds().Dy())
}

// HasImage 是否已绑定底图
func (c *Compositor) HasImage() bool { return c.base != nil }

// SetLayers 设置掩码图层来源
func (c *Compositor) SetLayers(src LayerSource) {
	c.layers = src
	c.layerValid = false
}

// SetOpacity 填充图层的透明度，取值 [0, 1]
func (c *Compositor) SetOpacity(opacity float64) {
	c.opacity = math.Max(0, math.Min(1, opacity))
}

func (c *Compositor) Opacity() float64 { return c.opacity }

func (c *Compositor) SetPromptOpacity(opacity float64) {
	c.promptOpacity = math.Max(0, math.Min(1, opacity))
}

// SetShouldShowMask 切换掩码图层的显示
func (c *Compositor) SetShouldShowMask(show bool) { c.showMask = show }

func (c *Compositor) ShouldShowMask() bool { return c.showMask }

// SetSelectionRect 框选中的矩形（图像坐标），空矩形表示不显示
func (c *Compositor) SetSelectionRect(r image.Rectangle) { c.selection = r.Canon() }

// SetPrompt 显示候选掩码和提示点，candidate 为 nil 时清除预览
func (c *Compositor) SetPrompt(candidate *annotation.Mask, prompts []model.PromptPoint) {
	if candidate == nil {
		c.prompt = nil
		return
	}
	img, err := PromptPreview(candidate, prompts)
	if err != nil {
		c.logger.Warn("failed to draw prompt preview",
			zap.Int("prompts", len(prompts)), zap.Error(err))
		c.prompt = nil
		return
	}
	c.prompt = gg.ImageBufFromImage(img)
}

// PromptPreview 绘制候选掩码和提示点，正提示为绿色，负提示为红色
func PromptPreview(candidate *annotation.Mask, prompts []model.PromptPoint) (*image.RGBA, error) {
	w, h := candidate.Width(), candidate.Height()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill := candidate.Category().FillColor()
	for i, v := range candidate.Pixels() {
		if v == 1 {
			img.SetRGBA(i%w, i/w, fill)
		}
	}

	dc := gg.NewContextForImage(img)
	defer dc.Close()
	radius := float64(min(w, h)) * 0.01
	for i, p := range prompts {
		if p.Label == model.PromptPositive {
			dc.SetColor(annotation.PositivePointColor)
		} else {
			dc.SetColor(annotation.NegativePointColor)
		}
		dc.DrawCircle(float64(p.ImageX), float64(p.ImageY), radius)
		if err := dc.Fill(); err != nil {
			return nil, fmt.Errorf("prompt %d at (%d,%d): %w", i, p.ImageX, p.ImageY, err)
		}
	}
	out, ok := dc.Image().(*image.RGBA)
	if !ok {
		out = clone.AsRGBA(dc.Image())
	}
	return out, nil
}

func (c *Compositor) syncLayers() {
	if c.layers == nil {
		c.layerBufs = nil
		return
	}
	if c.layerValid && c.layers.Revision() == c.layerRev {
		return
	}
	layers := c.layers.Layers()
	c.layerBufs = make([]*gg.ImageBuf, len(layers))
	for i, l := range layers {
		c.layerBufs[i] = gg.ImageBufFromImage(l)
	}
	c.layerRev = c.layers.Revision()
	c.layerValid = true
}

func drawLayer(dc *gg.Context, buf *gg.ImageBuf, opacity float64) {
	// DrawImageEx treats a zero opacity as fully opaque
	if buf == nil || opacity <= 0 {
		return
	}
	dc.DrawImageEx(buf, gg.DrawImageOptions{
		Interpolation: gg.InterpNearest,
		Opacity:       opacity,
	})
}

// Frame 合成一帧：底图、填充图层（半透明）、边框、文字、提示预览、框选矩形。
// 未绑定底图时不做任何事。
func (c *Compositor) Frame() {
	if c.base == nil {
		return
	}
	dc := c.dc
	dc.Identity()
	dc.Clear()
	dc.SetTransform(c.view.Matrix())
	drawLayer(dc, c.base, 1)

	if c.showMask {
		c.syncLayers()
		for i, buf := range c.layerBufs {
			opacity := 1.0
			if i == 0 {
				opacity = c.opacity
			}
			drawLayer(dc, buf, opacity)
		}
	}
	drawLayer(dc, c.prompt, c.promptOpacity)

	if !c.selection.Empty() {
		r := c.selection
		dc.SetColor(selectionColor)
		dc.SetLineWidth(1 / c.view.Scale)
		dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
		if err := dc.Stroke(); err != nil {
			c.logger.Warn("failed to draw selection", zap.Error(err))
		}
	}
	dc.Identity()
}

// Snapshot 当前画布内容的副本
func (c *Compositor) Snapshot() *image.RGBA {
	return clone.AsRGBA(c.dc.Image())
}

// Resize 同时调整视口与画布尺寸
func (c *Compositor) Resize(width, height int) error {
	c.view.Resize(width, height)
	return c.dc.Resize(max(width, 1), max(height, 1))
}

// Run 以 fps 的频率向事件循环投递 Frame，直到 ctx 结束
func (c *Compositor) Run(ctx context.Context, loop Poster, fps int) {
	if fps <= 0 {
		fps = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !loop.Post(c.Frame) {
				return
			}
		}
	}
}

// Close 释放画布
func (c *Compositor) Close() error {
	return c.dc.Close()
}

// RenderAnnotated 以 1:1 比例将掩码图层叠加到底图上，用于导出
func RenderAnnotated(base image.Image, layers []*image.RGBA, opacity float64) *image.RGBA {
	rgba := clone.AsRGBA(base)
	b := rgba.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	defer dc.Close()
	drawLayer(dc, gg.ImageBufFromImage(rgba), 1)
	for i, l := range layers {
		o := 1.0
		if i == 0 {
			o = opacity
		}
		drawLayer(dc, gg.ImageBufFromImage(l), o)
	}
	out, ok := dc.Image().(*image.RGBA)
	if !ok {
		out = clone.AsRGBA(dc.Image())
	}
	return out
}
