// Package looper provides a single-goroutine cooperative event queue.
// Entry points keep their state on the looper so they never need locks:
// every lifecycle hook, bridge call and timer callback runs there in turn.
package looper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ErrQuit is returned by Call once the looper has stopped.
var ErrQuit = errors.New("looper: quit")

const defaultQueueSize = 64

// Looper runs posted functions one at a time on the goroutine that called Run.
type Looper struct {
	queue    chan func()
	quit     chan struct{}
	quitOnce sync.Once
	logger   zerolog.Logger
}

// New creates a looper. It does nothing until Run is called.
func New(logger zerolog.Logger) *Looper {
	return &Looper{
		queue:  make(chan func(), defaultQueueSize),
		quit:   make(chan struct{}),
		logger: logger.With().Str("component", "looper").Logger(),
	}
}

// Run processes the queue until ctx is done or Quit is called.
func (l *Looper) Run(ctx context.Context) {
	l.logger.Debug().Msg("Looper started")
	defer l.logger.Debug().Msg("Looper stopped")

	for {
		select {
		case <-ctx.Done():
			l.Quit()
			return
		case <-l.quit:
			return
		case fn := <-l.queue:
			l.dispatch(fn)
		}
	}
}

func (l *Looper) dispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Interface("panic", r).Msg("Recovered from panic in posted callback")
		}
	}()
	fn()
}

// Quit stops the looper. Queued and delayed callbacks are dropped.
func (l *Looper) Quit() {
	l.quitOnce.Do(func() { close(l.quit) })
}

// Post queues fn. It reports false if the looper has quit.
func (l *Looper) Post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// Call runs fn on the looper and waits for it to return.
// It must not be called from the looper goroutine itself.
func (l *Looper) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrQuit
	}
	select {
	case <-done:
		return nil
	case <-l.quit:
		return ErrQuit
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Callback is a handle to a delayed function.
type Callback struct {
	timer     *time.Timer
	cancelled atomic.Bool
}

// Cancel prevents the callback from running. It reports whether the callback
// was still pending. Cancelling from the looper is always effective, even when
// the timer has fired and the function is already queued.
func (c *Callback) Cancel() bool {
	if c == nil {
		return false
	}
	if !c.cancelled.CompareAndSwap(false, true) {
		return false
	}
	c.timer.Stop()
	return true
}

// PostDelayed queues fn on the looper after d has elapsed.
func (l *Looper) PostDelayed(d time.Duration, fn func()) *Callback {
	cb := &Callback{}
	cb.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if cb.cancelled.CompareAndSwap(false, true) {
				fn()
			}
		})
	})
	return cb
}
