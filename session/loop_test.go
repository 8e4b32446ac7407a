package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := NewLoop(8, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		l.Close()
		<-done
	})
	return l
}

func TestLoopRunsInOrder(t *testing.T) {
	l := startLoop(t)
	var got []int
	for i := range 5 {
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	require.NoError(t, l.Do(context.Background(), func() error { return nil }))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoopDoReturnsError(t *testing.T) {
	l := startLoop(t)
	want := errors.New("boom")
	assert.ErrorIs(t, l.Do(context.Background(), func() error { return want }), want)
}

func TestLoopRecoversPanic(t *testing.T) {
	l := startLoop(t)
	l.Post(func() { panic("bad task") })
	ran := false
	require.NoError(t, l.Do(context.Background(), func() error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}

func TestLoopClosed(t *testing.T) {
	l := NewLoop(0, nil)
	l.Close()
	l.Close()
	assert.False(t, l.Post(func() {}))
	assert.ErrorIs(t, l.Do(context.Background(), func() error { return nil }), ErrLoopClosed)
	assert.NoError(t, l.Run(context.Background()))
}

func TestLoopDoHonoursContext(t *testing.T) {
	l := NewLoop(1, nil)
	defer l.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	// 没有运行 Run，任务永远不会执行
	assert.ErrorIs(t, l.Do(ctx, func() error { return nil }), context.DeadlineExceeded)
}
