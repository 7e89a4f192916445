package looper_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/illmade-knight/share-receiver/pkg/looper"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLooper(t *testing.T) *looper.Looper {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	l := looper.New(zerolog.Nop())
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l
}

func TestLooper_CallRunsInOrder(t *testing.T) {
	l := startLooper(t)
	ctx := context.Background()
	var order []int

	for i := 0; i < 5; i++ {
		i := i
		require.True(t, l.Post(func() { order = append(order, i) }))
	}
	require.NoError(t, l.Call(ctx, func() { order = append(order, 99) }))

	assert.Equal(t, []int{0, 1, 2, 3, 4, 99}, order)
}

func TestLooper_PostDelayed(t *testing.T) {
	l := startLooper(t)
	var fired atomic.Bool

	l.PostDelayed(20*time.Millisecond, func() { fired.Store(true) })

	assert.Eventually(t, fired.Load, time.Second, 5*time.Millisecond)
}

func TestLooper_CancelledCallbackNeverRuns(t *testing.T) {
	l := startLooper(t)
	var fired atomic.Bool

	cb := l.PostDelayed(30*time.Millisecond, func() { fired.Store(true) })
	assert.True(t, cb.Cancel())
	assert.False(t, cb.Cancel(), "second cancel reports nothing pending")

	assert.Never(t, fired.Load, 100*time.Millisecond, 10*time.Millisecond)
}

func TestLooper_CancelAfterTimerFiredButBeforeDispatch(t *testing.T) {
	l := startLooper(t)
	ctx := context.Background()
	var fired atomic.Bool
	release := make(chan struct{})

	// Block the looper so the fired timer can only queue its function.
	require.True(t, l.Post(func() { <-release }))
	cb := l.PostDelayed(time.Millisecond, func() { fired.Store(true) })
	time.Sleep(20 * time.Millisecond)

	assert.True(t, cb.Cancel())
	close(release)
	require.NoError(t, l.Call(ctx, func() {}))

	assert.False(t, fired.Load())
}

func TestLooper_Quit(t *testing.T) {
	l := startLooper(t)
	l.Quit()

	assert.False(t, l.Post(func() {}))
	assert.ErrorIs(t, l.Call(context.Background(), func() {}), looper.ErrQuit)
}

func TestLooper_RecoversFromPanic(t *testing.T) {
	l := startLooper(t)
	ctx := context.Background()

	l.Post(func() { panic("boom") })
	ran := false
	require.NoError(t, l.Call(ctx, func() { ran = true }))

	assert.True(t, ran)
}

func TestCallback_NilCancel(t *testing.T) {
	var cb *looper.Callback
	assert.False(t, cb.Cancel())
}
