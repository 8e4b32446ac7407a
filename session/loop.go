package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var ErrLoopClosed = errors.New("session: event loop closed")

// Loop 单协程事件循环。所有对标注状态的修改都通过它串行执行，
// 后端调用在循环外进行，结果再投递回循环。
type Loop struct {
	tasks     chan func()
	done      chan struct{}
	closeOnce sync.Once
	logger    *zap.Logger
}

func NewLoop(buffer int, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		tasks:  make(chan func(), max(buffer, 0)),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Post 投递任务，循环已关闭时返回 false
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do 投递任务并等待其完成。不能在循环内部调用。
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	if !l.Post(func() { errc <- fn() }) {
		return ErrLoopClosed
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

// Run 执行任务直到 ctx 结束或 Close 被调用
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case fn := <-l.tasks:
			l.exec(fn)
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panicked", zap.String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}

func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}
