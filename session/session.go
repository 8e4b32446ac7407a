// Package session 组织一次标注会话：数据、类别、渲染引擎、合成器、
// 选择与提示会话、历史记录，以及串行执行所有修改的事件循环。
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/TIANLI0/reefmask/annotation"
	"github.com/TIANLI0/reefmask/backend"
	"github.com/TIANLI0/reefmask/compositor"
	"github.com/TIANLI0/reefmask/config"
	"github.com/TIANLI0/reefmask/model"
	"github.com/TIANLI0/reefmask/render"
	"github.com/TIANLI0/reefmask/utils"
	"github.com/anthonynsimon/bild/clone"
	"go.uber.org/zap"
)

var (
	ErrNoData          = errors.New("session: no image loaded")
	ErrNoEncoder       = errors.New("session: no image encoder")
	ErrExportRunning   = errors.New("session: export already running")
	ErrUnknownMode     = errors.New("session: unknown mode")
	ErrUnknownLayer    = errors.New("session: unknown layer")
	ErrUnknownCategory = annotation.ErrUnknownCategory
)

// Mode 点击的含义
type Mode int

const (
	ModeSelect Mode = iota
	ModeCreate
)

func (m Mode) String() string {
	switch m {
	case ModeSelect:
		return "select"
	case ModeCreate:
		return "create"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "select":
		return ModeSelect, nil
	case "create":
		return ModeCreate, nil
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownMode)
}

// Button 鼠标按键，创建模式下左键为正提示，右键为负提示
type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
)

// ImageLoader 读取底图
type ImageLoader interface {
	Load(path string) (image.Image, error)
}

// Geometry 为缺少面积或边界框的掩码计算几何信息
type Geometry interface {
	Measure(m *annotation.Mask) (int, model.BBox, error)
}

// Encoder 将图像编码为 data URL
type Encoder interface {
	DataURL(img image.Image) (string, error)
}

type Option func(*Session)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

func WithImageLoader(l ImageLoader) Option {
	return func(s *Session) { s.images = l }
}

func WithGeometry(g Geometry) Option {
	return func(s *Session) { s.geometry = g }
}

func WithEncoder(e Encoder) Option {
	return func(s *Session) { s.encoder = e }
}

// Session 一次标注会话。公开方法可在任意协程调用，
// 对状态的访问都在会话自己的事件循环中进行。
type Session struct {
	id     string
	cfg    *config.Config
	client backend.Client
	logger *zap.Logger

	images   ImageLoader
	geometry Geometry
	encoder  Encoder

	ctx       context.Context
	cancel    context.CancelFunc
	loop      *Loop
	runDone   chan struct{}
	closeOnce sync.Once
	errs      chan error

	// 仅在事件循环中访问
	registry       *annotation.Registry
	data           *annotation.Data
	engine         *render.Engine
	compositor     *compositor.Compositor
	selection      *Selection
	prompts        *PromptSession
	history        *History
	mode           Mode
	promptCategory annotation.Category
	modified       bool

	exportMu     sync.Mutex
	export       model.ExportStatus
	exportCancel context.CancelFunc
	exportWG     sync.WaitGroup
}

// New 创建会话并启动其事件循环，使用完毕后须调用 Close
func New(cfg *config.Config, client backend.Client, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:             utils.NewSessionID(),
		cfg:            cfg,
		client:         client,
		ctx:            ctx,
		cancel:         cancel,
		runDone:        make(chan struct{}),
		errs:           make(chan error, 16),
		registry:       annotation.NewRegistry(nil),
		selection:      NewSelection(),
		history:        NewHistory(cfg.History.MaxRecords),
		promptCategory: annotation.Undefined(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.With(zap.String("session", s.id))

	s.loop = NewLoop(64, s.logger)
	s.engine = render.New(0, 0,
		render.WithIncremental(cfg.Render.Incremental),
		render.WithHighlighter(s.selection.Contains),
		render.WithLogger(s.logger))

	vp := cfg.Viewport
	s.compositor = compositor.New(
		compositor.NewViewport(vp.CanvasWidth, vp.CanvasHeight, vp.ZoomIntensity, vp.ZoomStep),
		s.logger)
	s.compositor.SetOpacity(cfg.Render.MaskOpacity)
	s.compositor.SetPromptOpacity(cfg.Render.PromptOpacity)
	s.compositor.SetLayers(s.engine)

	s.prompts = NewPromptSession(ctx, client, s.loop, s.logger)
	s.prompts.OnUpdate(func() {
		s.compositor.SetPrompt(s.prompts.Candidate(), s.prompts.Prompts())
	})
	s.prompts.OnError(s.report)

	go func() {
		defer close(s.runDone)
		if err := s.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("event loop stopped", zap.Error(err))
		}
	}()
	return s
}

func (s *Session) ID() string { return s.id }

// Errors 后端失败等异步错误，缓冲区满时丢弃
func (s *Session) Errors() <-chan error { return s.errs }

func (s *Session) report(err error) {
	select {
	case s.errs <- err:
	default:
		s.logger.Warn("error channel full, dropping error", zap.Error(err))
	}
}

// Close 停止事件循环、取消导出并等待后台请求结束
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.CancelExport()
		s.cancel()
		s.loop.Close()
		<-s.runDone
		s.prompts.Wait()
		s.exportWG.Wait()
		err = s.compositor.Close()
	})
	return err
}

func (s *Session) do(ctx context.Context, fn func() error) error {
	return s.loop.Do(ctx, fn)
}

// requireData 在事件循环中调用
func (s *Session) requireData() error {
	if s.data == nil {
		return ErrNoData
	}
	return nil
}

// LoadProject 打开项目并显示后端的当前图像，返回项目的数据列表
func (s *Session) LoadProject(ctx context.Context, path string) ([]model.DataPayload, error) {
	list, err := s.client.LoadProject(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", path, err)
	}
	payload, err := s.client.CurrentData(ctx)
	if errors.Is(err, backend.ErrNoData) {
		return list, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get current data: %w", err)
	}
	return list, s.Show(ctx, payload)
}

// Load 保存当前图像后切换到第 idx 张
func (s *Session) Load(ctx context.Context, idx int) error {
	return s.navigate(ctx, func(ctx context.Context) (model.DataPayload, error) {
		return s.client.DataByIdx(ctx, idx)
	})
}

func (s *Session) Next(ctx context.Context) error {
	return s.navigate(ctx, s.client.NextData)
}

func (s *Session) Prev(ctx context.Context) error {
	return s.navigate(ctx, s.client.PrevData)
}

func (s *Session) navigate(ctx context.Context, fetch func(context.Context) (model.DataPayload, error)) error {
	if err := s.save(ctx, false); err != nil {
		return err
	}
	payload, err := fetch(ctx)
	if err != nil {
		return fmt.Errorf("get data: %w", err)
	}
	return s.Show(ctx, payload)
}

// Show 显示后端返回的数据：替换类别与掩码，清空选择、提示点和历史记录
func (s *Session) Show(ctx context.Context, payload model.DataPayload) error {
	data, err := annotation.FromPayload(payload, s.logger)
	if err != nil {
		return err
	}
	img := s.loadImage(data)
	return s.do(ctx, func() error {
		if len(payload.CategoryInfo) > 0 {
			s.registry.Replace(payload.CategoryInfo)
		}
		s.data = data
		s.selection.Reset()
		s.prompts.SetImage(data.ImagePath, data.Width, data.Height)
		s.history = NewHistory(s.cfg.History.MaxRecords)
		s.modified = false
		s.engine.Reset(data.Width, data.Height)
		s.engine.Update(data.Masks())
		s.compositor.SetImage(img)
		s.logger.Info("data loaded",
			zap.String("image", data.ImageName),
			zap.Int("idx", data.Idx),
			zap.Int("masks", data.Len()))
		return nil
	})
}

// loadImage 读取失败时使用空白底图，掩码仍可编辑
func (s *Session) loadImage(data *annotation.Data) image.Image {
	blank := image.NewRGBA(image.Rect(0, 0, data.Width, data.Height))
	if s.images == nil {
		return blank
	}
	img, err := s.images.Load(data.ImagePath)
	if err != nil {
		s.logger.Warn("failed to load image", zap.String("path", data.ImagePath), zap.Error(err))
		s.report(fmt.Errorf("load image %s: %w", data.ImagePath, err))
		return blank
	}
	if b := img.Bounds(); b.Dx() != data.Width || b.Dy() != data.Height {
		s.logger.Warn("image size does not match annotations",
			zap.String("path", data.ImagePath),
			zap.Int("width", b.Dx()), zap.Int("height", b.Dy()),
			zap.Int("expected_width", data.Width), zap.Int("expected_height", data.Height))
	}
	return img
}

// Save 将当前图像的掩码与类别写回后端
func (s *Session) Save(ctx context.Context) error {
	return s.save(ctx, true)
}

func (s *Session) save(ctx context.Context, required bool) error {
	var (
		payload model.ProjectData
		loaded  bool
	)
	err := s.do(ctx, func() error {
		if s.data == nil {
			return nil
		}
		loaded = true
		payload = s.data.Payload(s.registry)
		return nil
	})
	if err != nil {
		return err
	}
	if !loaded {
		if required {
			return ErrNoData
		}
		return nil
	}
	if err := s.client.SaveData(ctx, payload); err != nil {
		return fmt.Errorf("save data: %w", err)
	}
	return s.do(ctx, func() error {
		s.modified = false
		return nil
	})
}

// SaveDataset 保存当前图像后让后端写出整个数据集
func (s *Session) SaveDataset(ctx context.Context, path string) error {
	if err := s.save(ctx, false); err != nil {
		return err
	}
	if err := s.client.SaveDataset(ctx, path); err != nil {
		return fmt.Errorf("save dataset %s: %w", path, err)
	}
	return nil
}

func (s *Session) ExportImages(ctx context.Context, outputDir string) error {
	if err := s.client.ExportImages(ctx, outputDir); err != nil {
		return fmt.Errorf("export images: %w", err)
	}
	return nil
}

func (s *Session) ExportCOCO(ctx context.Context, outputPath string) error {
	if err := s.save(ctx, false); err != nil {
		return err
	}
	if err := s.client.ExportCOCO(ctx, outputPath); err != nil {
		return fmt.Errorf("export coco: %w", err)
	}
	return nil
}

// DataIDsByCategory 包含该类别掩码的图像序号
func (s *Session) DataIDsByCategory(ctx context.Context, categoryID int) ([]int, error) {
	return s.client.DataIDsByCategory(ctx, categoryID)
}

func (s *Session) current() Record {
	return Record{Data: s.data, Categories: s.registry.Snapshot()}
}

func (s *Session) recordData() {
	if s.data != nil {
		s.history.Push(s.current())
	}
}

func (s *Session) loadRecord(rec Record) {
	s.selection.Reset()
	s.prompts.Clear()
	s.registry.Replace(rec.Categories)
	s.data = rec.Data
	s.modified = true
	s.refresh()
}

func (s *Session) refresh() {
	if s.data != nil {
		s.engine.Update(s.data.Masks())
	}
}

// RecordData 记录当前状态，供撤销
func (s *Session) RecordData(ctx context.Context) error {
	return s.do(ctx, func() error {
		if err := s.requireData(); err != nil {
			return err
		}
		s.recordData()
		return nil
	})
}

func (s *Session) Undo(ctx context.Context) error {
	return s.do(ctx, func() error {
		if err := s.requireData(); err != nil {
			return err
		}
		rec, err := s.history.Undo(s.current())
		if err != nil {
			return err
		}
		s.loadRecord(rec)
		return nil
	})
}

func (s *Session) Redo(ctx context.Context) error {
	return s.do(ctx, func() error {
		if err := s.requireData(); err != nil {
			return err
		}
		rec, err := s.history.Redo(s.current())
		if err != nil {
			return err
		}
		s.loadRecord(rec)
		return nil
	})
}

// Refresh 使图层与当前掩码一致
func (s *Session) Refresh(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.refresh()
		return nil
	})
}

// SetMode 切换模式，选择与提示点被清空
func (s *Session) SetMode(ctx context.Context, mode Mode) error {
	return s.do(ctx, func() error {
		if mode != ModeSelect && mode != ModeCreate {
			return fmt.Errorf("%v: %w", mode, ErrUnknownMode)
		}
		s.mode = mode
		s.selection.Clear()
		s.prompts.Clear()
		s.refresh()
		return nil
	})
}

// ClickPixel 以图像坐标处理点击，图像外的点击被忽略
func (s *Session) ClickPixel(ctx context.Context, x, y int, button Button) error {
	return s.do(ctx, func() error {
		return s.clickPixel(x, y, button)
	})
}

// ClickScreen 以画布坐标处理点击
func (s *Session) ClickScreen(ctx context.Context, sx, sy float64, button Button) error {
	return s.do(ctx, func() error {
		if err := s.requireData(); err != nil {
			return err
		}
		p, ok := s.compositor.Viewport().ScreenToPixel(sx, sy)
		if !ok {
			return nil
		}
		return s.clickPixel(p.X, p.Y, button)
	})
}

func (s *Session) clickPixel(x, y int, button Button) error {
	if err := s.requireData(); err != nil {
		return err
	}
	if x < 0 || y < 0 || x >= s.data.Width || y >= s.data.Height {
		return nil
	}
	switch s.mode {
	case ModeSelect:
		if button != ButtonLeft {
			return nil
		}
		s.selection.SelectPixel(s.visibleMasks(), x, y)
		s.refresh()
	case ModeCreate:
		label := model.PromptPositive
		if button == ButtonRight {
			label = model.PromptNegative
		}
		s.prompts.AddPrompt(x, y, label)
	}
	return nil
}

func (s *Session) visibleMasks() []*annotation.Mask {
	var out []*annotation.Mask
	for _, m := range s.data.Masks() {
		if m.Visible() {
			out = append(out, m)
		}
	}
	return out
}

// DragSelection 显示拖动中的框选矩形
func (s *Session) DragSelection(ctx context.Context, rect image.Rectangle) error {
	return s.do(ctx, func() error {
		s.compositor.SetSelectionRect(rect)
		return nil
	})
}

// SelectRect 结束框选，返回新选中的掩码数
func (s *Session) SelectRect(ctx context.Context, rect image.Rectangle) (int, error) {
	var n int
	err := s.do(ctx, func() error {
		if err := s.requireData(); err != nil {
			return err
		}
		s.compositor.SetSelectionRect(image.Rectangle{})
		n = s.selection.SelectRect(s.data.Masks(), rect)
		s.refresh()
		return nil
	})
	return n, err
}

// ClearSelection 取消全部选中
func (s *Session) ClearSelection(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.selection.Clear()
		s.refresh()
		return nil
	})
}

// DeleteSelected 删除选中的掩码，返回删除数量
func (s *Session) DeleteSelected(ctx context.Context) (int, error) {
	var n int
	err := s.do(ctx, func() error {
		if err := s.requireData(); err != nil {
			return err
		}
		selected := s.selection.Masks()
		if len(selected) == 0 {
			return nil
		}
		s.recordData()
		for _, m := range selected {
			if s.data.RemoveMask(m) {
				n++
			}
		}
		s.selection.Reset()
		s.modified = true
		s.refresh()
		return nil
	})
	return n, err
}

func (s *Session) category(id int) (annotation.Category, error) {
	if id == annotation.UndefinedID {
		return annotation.Undefined(), nil
	}
	if !s.registry.Contains(id) {
		return annotation.Category{}, fmt.Errorf("category %d: %w", id, ErrUnknownCategory)
	}
	return annotation.Category{ID: id}, nil
}

// SetSelectedCategory 为选中的掩码指定类别并取消选中，返回类别发生变化的数量
func (s *Session) SetSelectedCategory(ctx context.Context, id int) (int, error) {
	var n int
	err := s.do(ctx, func() error {
		if err := s.requireData(); err != nil {
			return err
		}
		c, err := s.category(id)
		if err != nil {
			return err
		}
		selected := s.selection.Masks()
		if len(selected) == 0 {
			return nil
		}
		s.recordData()
		for _, m := range selected {
			if m.SetCategory(c) {
				m.MarkModified()
				n++
			}
		}
		s.selection.Clear()
		s.modified = s.modified || n > 0
		s.refresh()
		return nil
	})
	return n, err
}

// SetSelectedVisible 显示或隐藏选中的掩码
func (s *Session) SetSelectedVisible(ctx context.Context, visible bool) error {
	return s.do(ctx, func() error {
		if err := s.requireData(); err != nil {
			return err
		}
		for _, m := range s.selection.Masks() {
			if m.SetVisible(visible) {
				m.MarkModified()
			}
		}
		s.refresh()
		return nil
	})
}

// SetCategoryVisible 显示或隐藏某一类别的全部掩码
func (s *Session) SetCategoryVisible(ctx context.Context, id int, visible bool) error {
	return s.do(ctx, func() error {
		if err := s.requireData(); err != nil {
			return err
		}
		for _, m := range s.data.Masks() {
			if m.Category().ID == id && m.SetVisible(visible) {
				m.MarkModified()
			}
		}
		s.refresh()
		return nil
	})
}

func (s *Session) Categories(ctx context.Context) ([]model.CategoryInfo, error) {
	var out []model.CategoryInfo
	err := s.do(ctx, func() error {
		out = s.registry.Snapshot()
		return nil
	})
	return out, err
}

func (s *Session) AddCategory(ctx context.Context, name string) (model.CategoryInfo, error) {
	var info model.CategoryInfo
	err := s.do(ctx, func() error {
		prev := s.current()
		c, err := s.registry.Add(name)
		if err != nil {
			return err
		}
		if s.data != nil {
			s.history.Push(prev)
		}
		info, _ = s.registry.Lookup(c.ID)
		s.modified = true
		return nil
	})
	return info, err
}

func (s *Session) RenameCategory(ctx context.Context, id int, name string) error {
	return s.do(ctx, func() error {
		if !s.registry.Contains(id) {
			return fmt.Errorf("category %d: %w", id, ErrUnknownCategory)
		}
		s.recordData()
		if err := s.registry.Rename(id, name); err != nil {
			return err
		}
		s.modified = true
		return nil
	})
}

// RemoveCategory 删除类别，该类别的掩码变为未定义
func (s *Session) RemoveCategory(ctx context.Context, id int) error {
	return s.do(ctx, func() error {
		if !s.registry.Contains(id) {
			return fmt.Errorf("category %d: %w", id, ErrUnknownCategory)
		}
		s.recordData()
		if err := s.registry.Remove(id); err != nil {
			return err
		}
		if s.promptCategory.ID == id {
			s.promptCategory = annotation.Undefined()
		}
		if s.data != nil {
			for _, m := range s.data.Masks() {
				if m.Category().ID == id && m.SetCategory(annotation.Undefined()) {
					m.MarkModified()
				}
			}
		}
		s.modified = true
		s.refresh()
		return nil
	})
}

// SetPromptCategory 确认候选掩码时使用的类别
func (s *Session) SetPromptCategory(ctx context.Context, id int) error {
	return s.do(ctx, func() error {
		c, err := s.category(id)
		if err != nil {
			return err
		}
		s.promptCategory = c
		return nil
	})
}

// AddPrompt 以图像坐标添加提示点，不受当前模式影响
func (s *Session) AddPrompt(ctx context.Context, x, y, label int) error {
	return s.do(ctx, func() error {
		if err := s.requireData(); err != nil {
			return err
		}
		if x < 0 || y < 0 || x >= s.data.Width || y >= s.data.Height {
			return nil
		}
		s.prompts.AddPrompt(x, y, label)
		return nil
	})
}

func (s *Session) UndoPrompt(ctx context.Context) (bool, error) {
	var ok bool
	err := s.do(ctx, func() error {
		ok = s.prompts.UndoPrompt()
		return nil
	})
	return ok, err
}

func (s *Session) ClearPrompts(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.prompts.Clear()
		return nil
	})
}

// ConfirmPrompt 将候选掩码加入数据，返回新掩码的 id
func (s *Session) ConfirmPrompt(ctx context.Context) (int, error) {
	id := -1
	err := s.do(ctx, func() error {
		if err := s.requireData(); err != nil {
			return err
		}
		if s.prompts.Pending() {
			return ErrBusy
		}
		candidate := s.prompts.Candidate()
		if candidate == nil {
			return ErrNoCandidate
		}
		if candidate.Width() != s.data.Width || candidate.Height() != s.data.Height {
			return fmt.Errorf("%w: got %dx%d, want %dx%d", ErrCandidateSize,
				candidate.Width(), candidate.Height(), s.data.Width, s.data.Height)
		}
		s.fillGeometry(candidate)
		s.recordData()
		m, err := s.prompts.Confirm(s.data, s.promptCategory)
		if err != nil {
			return err
		}
		id = m.ID()
		s.modified = true
		s.refresh()
		return nil
	})
	return id, err
}

func (s *Session) fillGeometry(m *annotation.Mask) {
	if s.geometry == nil || (m.Area() > 0 && !m.BBox().Empty()) {
		return
	}
	area, box, err := s.geometry.Measure(m)
	if err != nil {
		s.logger.Warn("failed to measure mask", zap.Error(err))
		return
	}
	m.SetGeometry(area, box)
}

// Masks 当前掩码的概要
func (s *Session) Masks(ctx context.Context) ([]model.MaskSummary, error) {
	var out []model.MaskSummary
	err := s.do(ctx, func() error {
		if err := s.requireData(); err != nil {
			return err
		}
		out = make([]model.MaskSummary, 0, s.data.Len())
		for _, m := range s.data.Masks() {
			c := m.Category()
			out = append(out, model.MaskSummary{
				ID:         m.ID(),
				CategoryID: c.ID,
				Category:   s.registry.Name(c.ID),
				Area:       m.Area(),
				BBox:       m.BBox(),
				Visible:    m.Visible(),
				Selected:   s.selection.Contains(m),
			})
		}
		return nil
	})
	return out, err
}

func (s *Session) Status(ctx context.Context) (model.SessionStatus, error) {
	st := model.SessionStatus{ID: s.id}
	err := s.do(ctx, func() error {
		st.Mode = s.mode.String()
		st.Selected = s.selection.Len()
		st.Prompts = len(s.prompts.prompts)
		st.Pending = s.prompts.Pending()
		st.CanUndo = s.history.CanUndo()
		st.CanRedo = s.history.CanRedo()
		st.Modified = s.modified
		st.Revision = s.engine.Revision()
		if s.data != nil {
			st.ImageName = s.data.ImageName
			st.Idx = s.data.Idx
			st.Width = s.data.Width
			st.Height = s.data.Height
			st.Masks = s.data.Len()
		}
		return nil
	})
	return st, err
}

// View 在事件循环中操作合成器（视口、透明度、显示开关）
func (s *Session) View(ctx context.Context, fn func(c *compositor.Compositor) error) error {
	return s.do(ctx, func() error {
		return fn(s.compositor)
	})
}

// Frame 合成一帧并返回画布副本
func (s *Session) Frame(ctx context.Context) (*image.RGBA, error) {
	var img *image.RGBA
	err := s.do(ctx, func() error {
		if !s.compositor.HasImage() {
			return ErrNoData
		}
		s.compositor.Frame()
		img = s.compositor.Snapshot()
		return nil
	})
	return img, err
}

// Layer 按名称返回掩码图层副本：fill、border 或 text
func (s *Session) Layer(ctx context.Context, name string) (*image.RGBA, error) {
	var img *image.RGBA
	err := s.do(ctx, func() error {
		if err := s.requireData(); err != nil {
			return err
		}
		var layer *image.RGBA
		switch name {
		case "fill":
			layer = s.engine.Fill()
		case "border":
			layer = s.engine.Border()
		case "text":
			layer = s.engine.Text()
		default:
			return fmt.Errorf("%q: %w", name, ErrUnknownLayer)
		}
		img = clone.AsRGBA(layer)
		return nil
	})
	return img, err
}
