// Package bridge implements a named request/response method channel between
// the native entry points and the embedded application runtime.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNotImplemented is returned for method names with no registered handler.
var ErrNotImplemented = errors.New("bridge: method not implemented")

// MethodCall is a single request from the application layer.
type MethodCall struct {
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Handler answers a method call. It runs on the channel's executor.
type Handler func(ctx context.Context, call MethodCall) (any, error)

// Executor runs a function on the owner's thread and waits for it.
type Executor interface {
	Call(ctx context.Context, fn func()) error
}

// Recorder observes completed calls.
type Recorder interface {
	BridgeCall(channel, method, outcome string)
}

// Call outcomes passed to a Recorder.
const (
	OutcomeSuccess        = "success"
	OutcomeError          = "error"
	OutcomeNotImplemented = "not_implemented"
)

// Channel dispatches calls by method name.
type Channel struct {
	name     string
	exec     Executor
	logger   zerolog.Logger
	recorder Recorder

	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewChannel creates a channel whose handlers run on exec.
func NewChannel(name string, exec Executor, logger zerolog.Logger) *Channel {
	return &Channel{
		name:     name,
		exec:     exec,
		logger:   logger.With().Str("component", "bridge").Str("channel", name).Logger(),
		handlers: make(map[string]Handler),
	}
}

// WithRecorder attaches a call recorder.
func (c *Channel) WithRecorder(r Recorder) *Channel {
	c.recorder = r
	return c
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return c.name
}

// Handle registers h for method, replacing any previous handler.
func (c *Channel) Handle(method string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[method] = h
}

// Methods lists the registered method names in sorted order.
func (c *Channel) Methods() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	methods := make([]string, 0, len(c.handlers))
	for m := range c.handlers {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

// Invoke runs the handler for call.Method on the executor and returns its result.
func (c *Channel) Invoke(ctx context.Context, call MethodCall) (any, error) {
	c.mu.RLock()
	h, ok := c.handlers[call.Method]
	c.mu.RUnlock()
	if !ok {
		c.logger.Debug().Str("method", call.Method).Msg("Unknown bridge method")
		c.record(call.Method, OutcomeNotImplemented)
		return nil, fmt.Errorf("%w: %s", ErrNotImplemented, call.Method)
	}

	var (
		result     any
		handlerErr error
	)
	if err := c.exec.Call(ctx, func() {
		defer func() {
			if r := recover(); r != nil {
				result = nil
				handlerErr = fmt.Errorf("bridge handler %s panicked: %v", call.Method, r)
			}
		}()
		result, handlerErr = h(ctx, call)
	}); err != nil {
		c.record(call.Method, OutcomeError)
		return nil, fmt.Errorf("failed to dispatch %s: %w", call.Method, err)
	}
	if handlerErr != nil {
		c.logger.Warn().Err(handlerErr).Str("method", call.Method).Msg("Bridge handler failed")
		c.record(call.Method, OutcomeError)
		return nil, handlerErr
	}

	c.record(call.Method, OutcomeSuccess)
	return result, nil
}

func (c *Channel) record(method, outcome string) {
	if c.recorder != nil {
		c.recorder.BridgeCall(c.name, method, outcome)
	}
}
