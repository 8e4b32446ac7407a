package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/TIANLI0/reefmask/annotation"
	"github.com/TIANLI0/reefmask/backend"
	"github.com/TIANLI0/reefmask/model"
	"go.uber.org/zap"
)

var (
	ErrBusy        = errors.New("session: mask request in flight")
	ErrNoCandidate = errors.New("session: no candidate mask")
	// ErrCandidateSize 后端返回的掩码与当前图像尺寸不符
	ErrCandidateSize = errors.New("session: candidate mask size does not match image")
)

// PromptSession 交互式提示点及后端推理出的候选掩码。
// 除 Wait 外的方法只能在事件循环中调用。
type PromptSession struct {
	ctx    context.Context
	client backend.Client
	loop   *Loop
	logger *zap.Logger

	imageKey   string
	width      int
	height     int
	prompts    []model.PromptPoint
	candidate  *annotation.Mask
	generation uint64
	inflight   int
	wg         sync.WaitGroup

	onUpdate func()
	onError  func(error)
}

// NewPromptSession ctx 约束所有推理请求的生命周期
func NewPromptSession(ctx context.Context, client backend.Client, loop *Loop, logger *zap.Logger) *PromptSession {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptSession{
		ctx:      ctx,
		client:   client,
		loop:     loop,
		logger:   logger,
		onUpdate: func() {},
		onError:  func(error) {},
	}
}

// OnUpdate 候选掩码或提示点变化后在事件循环中调用
func (p *PromptSession) OnUpdate(fn func()) { p.onUpdate = fn }

// OnError 推理失败时在事件循环中调用
func (p *PromptSession) OnError(fn func(error)) { p.onError = fn }

// SetImage 切换到 width×height 的图像，已有提示点被清除
func (p *PromptSession) SetImage(key string, width, height int) {
	p.imageKey = key
	p.width, p.height = width, height
	p.Clear()
}

func (p *PromptSession) checkSize(ann *model.Annotation, width, height int) error {
	if ann.Width() != width || ann.Height() != height {
		return fmt.Errorf("%w: got %dx%d, want %dx%d",
			ErrCandidateSize, ann.Width(), ann.Height(), width, height)
	}
	return nil
}

func (p *PromptSession) Prompts() []model.PromptPoint {
	return append([]model.PromptPoint(nil), p.prompts...)
}

func (p *PromptSession) Candidate() *annotation.Mask { return p.candidate }

// Pending 是否有推理请求尚未返回
func (p *PromptSession) Pending() bool { return p.inflight > 0 }

// AddPrompt 追加提示点并重新推理
func (p *PromptSession) AddPrompt(x, y, label int) {
	p.prompts = append(p.prompts, model.PromptPoint{ImageX: x, ImageY: y, Label: label})
	p.request()
}

// UndoPrompt 撤销最后一个提示点，返回是否有可撤销的提示点
func (p *PromptSession) UndoPrompt() bool {
	if len(p.prompts) == 0 {
		return false
	}
	p.prompts = p.prompts[:len(p.prompts)-1]
	p.request()
	return true
}

// Clear 丢弃提示点和候选掩码，未返回的请求结果将被忽略
func (p *PromptSession) Clear() {
	p.generation++
	p.prompts = nil
	p.candidate = nil
	p.onUpdate()
}

// Confirm 将候选掩码以 category 加入 data，随后清空会话
func (p *PromptSession) Confirm(data *annotation.Data, category annotation.Category) (*annotation.Mask, error) {
	if p.Pending() {
		return nil, ErrBusy
	}
	if p.candidate == nil {
		return nil, ErrNoCandidate
	}
	m := p.candidate
	ann := m.Annotation()
	if err := p.checkSize(&ann, data.Width, data.Height); err != nil {
		return nil, err
	}
	m.SetCategory(category)
	data.AddMask(m)
	m.MarkModified()
	p.Clear()
	return m, nil
}

// Wait 等待所有推理请求的协程退出
func (p *PromptSession) Wait() { p.wg.Wait() }

func (p *PromptSession) request() {
	p.generation++
	gen := p.generation
	if len(p.prompts) == 0 {
		p.candidate = nil
		p.onUpdate()
		return
	}
	prompts := p.Prompts()
	key := p.imageKey
	p.inflight++
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ann, err := p.client.CreateMask(p.ctx, key, prompts)
		p.loop.Post(func() { p.resolve(gen, ann, err) })
	}()
}

func (p *PromptSession) resolve(gen uint64, ann model.Annotation, err error) {
	p.inflight--
	if gen != p.generation {
		p.logger.Debug("dropping stale mask response",
			zap.Uint64("generation", gen),
			zap.Uint64("current", p.generation))
		return
	}
	if err != nil {
		p.logger.Error("failed to create mask", zap.Error(err))
		p.onError(err)
		return
	}
	if err := p.checkSize(&ann, p.width, p.height); err != nil {
		p.logger.Warn("discarding mask of wrong size",
			zap.String("image", p.imageKey), zap.Error(err))
		p.candidate = nil
		p.onUpdate()
		p.onError(err)
		return
	}
	m := annotation.NewMask(ann)
	m.SetCategory(annotation.Category{ID: annotation.PromptID})
	p.candidate = m
	p.onUpdate()
}
