// Package app provides the central orchestrator for the share receiver. It
// plays the part of the native shell: it owns the looper, creates the entry
// points, and routes intents, lifecycle events and bridge calls to them.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/illmade-knight/share-receiver/pkg/activity"
	"github.com/illmade-knight/share-receiver/pkg/bridge"
	"github.com/illmade-knight/share-receiver/pkg/looper"
	"github.com/illmade-knight/share-receiver/pkg/sharing"
	"github.com/rs/zerolog"
)

var (
	// ErrNoPrimary is returned when an operation needs a live primary screen.
	ErrNoPrimary = errors.New("primary screen is not running")
	// ErrUnknownChannel is returned for bridge calls on a channel nobody serves.
	ErrUnknownChannel = errors.New("unknown bridge channel")
	// ErrUnknownVariant is returned for capture variants that do not exist.
	ErrUnknownVariant = errors.New("unknown capture variant")
)

// Options configures an App. Zero values select the defaults.
type Options struct {
	Primary        activity.PrimaryConfig
	DefaultVariant activity.Variant
	Notifier       activity.Notifier
	Observer       activity.Observer
	Recorder       bridge.Recorder
	// CaptureConfigs overrides the built-in capture configurations per variant.
	CaptureConfigs map[activity.Variant]activity.CaptureConfig
}

// PrimaryStatus is a point-in-time view of the primary screen.
type PrimaryStatus struct {
	Running          bool                    `json:"running"`
	ContentProcessed bool                    `json:"contentProcessed"`
	ReturnPending    bool                    `json:"returnPending"`
	Content          activity.InitialContent `json:"content"`
}

// CaptureResult describes what a capture screen did with its intent.
type CaptureResult struct {
	Variant activity.Variant `json:"variant"`
	Kind    string           `json:"kind"`
	State   string           `json:"state"`
	Message string           `json:"message"`
}

// App is the central application struct.
type App struct {
	Looper  *looper.Looper
	Store   activity.SharedStore
	Channel *bridge.Channel
	Logger  zerolog.Logger

	opts Options
	deps activity.Deps

	// Looper-owned.
	primary      *activity.Primary
	primaryAlive bool
}

// New creates a new, fully initialized App. Run must be called before any
// other method can make progress.
func New(store activity.SharedStore, opts Options, logger zerolog.Logger) *App {
	if opts.Primary.ReturnDelay <= 0 {
		opts.Primary.ReturnDelay = activity.DefaultReturnDelay
	}
	if opts.DefaultVariant == "" {
		opts.DefaultVariant = activity.VariantQuick
	}

	a := &App{
		Looper: looper.New(logger),
		Store:  store,
		Logger: logger.With().Str("component", "app").Logger(),
		opts:   opts,
	}
	a.deps = activity.Deps{
		Store:     store,
		Host:      &shellHost{app: a},
		Scheduler: a.Looper,
		Notifier:  opts.Notifier,
		Observer:  opts.Observer,
		Logger:    logger,
	}

	a.Channel = bridge.NewChannel(activity.ShareChannel, a.Looper, logger)
	if opts.Recorder != nil {
		a.Channel.WithRecorder(opts.Recorder)
	}
	activity.RegisterPrimaryMethods(a.Channel, func() *activity.Primary { return a.primary })
	return a
}

// Run processes entry point work until ctx is cancelled or Stop is called.
func (a *App) Run(ctx context.Context) {
	a.Looper.Run(ctx)
}

// Stop destroys the primary screen and stops the looper.
func (a *App) Stop(ctx context.Context) {
	err := a.Looper.Call(ctx, func() {
		if a.primaryAlive {
			a.primary.OnDestroy()
			a.primaryAlive = false
		}
	})
	if err != nil && !errors.Is(err, looper.ErrQuit) {
		a.Logger.Warn().Err(err).Msg("Failed to destroy primary screen on stop")
	}
	a.Looper.Quit()
}

// DeliverToPrimary sends intent to the primary screen, creating it when it is
// not running.
func (a *App) DeliverToPrimary(ctx context.Context, intent sharing.Intent) (PrimaryStatus, error) {
	var status PrimaryStatus
	work := entryPointContext(ctx)
	err := a.Looper.Call(ctx, func() {
		if a.primaryAlive {
			a.primary.OnNewIntent(work, intent)
		} else {
			a.createPrimary(work, intent)
		}
		status = a.primaryStatus()
	})
	if err != nil {
		return PrimaryStatus{}, fmt.Errorf("failed to deliver intent: %w", err)
	}
	return status, nil
}

// Resume resumes the running primary screen, which drains the shared store.
func (a *App) Resume(ctx context.Context) (PrimaryStatus, error) {
	var (
		status  PrimaryStatus
		running bool
	)
	work := entryPointContext(ctx)
	err := a.Looper.Call(ctx, func() {
		if running = a.primaryAlive; running {
			a.primary.OnResume(work)
			status = a.primaryStatus()
		}
	})
	if err != nil {
		return PrimaryStatus{}, fmt.Errorf("failed to resume: %w", err)
	}
	if !running {
		return PrimaryStatus{}, ErrNoPrimary
	}
	return status, nil
}

// Status reports the primary screen's current state.
func (a *App) Status(ctx context.Context) (PrimaryStatus, error) {
	var status PrimaryStatus
	if err := a.Looper.Call(ctx, func() { status = a.primaryStatus() }); err != nil {
		return PrimaryStatus{}, fmt.Errorf("failed to read status: %w", err)
	}
	return status, nil
}

// Capture runs a capture screen of the given variant over intent. An empty
// variant selects the configured default. The capture finishes by itself
// after its fixed delay.
func (a *App) Capture(ctx context.Context, variant activity.Variant, intent sharing.Intent) (CaptureResult, error) {
	if variant == "" {
		variant = a.opts.DefaultVariant
	}
	cfg, ok := a.opts.CaptureConfigs[variant]
	if !ok {
		var err error
		if cfg, err = activity.CaptureConfigFor(variant); err != nil {
			return CaptureResult{}, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
		}
	}

	var result CaptureResult
	work := entryPointContext(ctx)
	err := a.Looper.Call(ctx, func() {
		capture := activity.NewCapture(cfg, a.deps)
		capture.OnCreate(work, intent)
		result = CaptureResult{
			Variant: cfg.Variant,
			Kind:    capture.Payload().Kind.String(),
			State:   capture.State().String(),
			Message: cfg.Message,
		}
	})
	if err != nil {
		return CaptureResult{}, fmt.Errorf("failed to run capture: %w", err)
	}
	return result, nil
}

// Invoke dispatches a bridge call. Only the primary screen serves a channel.
func (a *App) Invoke(ctx context.Context, channel string, call bridge.MethodCall) (any, error) {
	if channel != a.Channel.Name() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}

	var created bool
	if err := a.Looper.Call(ctx, func() { created = a.primary != nil }); err != nil {
		return nil, fmt.Errorf("failed to invoke %s: %w", call.Method, err)
	}
	if !created {
		return nil, ErrNoPrimary
	}
	return a.Channel.Invoke(ctx, call)
}

// entryPointContext detaches entry point work from the caller's cancellation.
// Once queued, an intent is handled even if the caller stops waiting.
func entryPointContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func (a *App) createPrimary(ctx context.Context, intent sharing.Intent) {
	a.Logger.Debug().Msg("Creating primary screen")
	a.primary = activity.NewPrimary(a.opts.Primary, a.deps)
	a.primaryAlive = true
	a.primary.OnCreate(ctx, intent)
}

func (a *App) primaryStatus() PrimaryStatus {
	if a.primary == nil {
		return PrimaryStatus{}
	}
	return PrimaryStatus{
		Running:          a.primaryAlive,
		ContentProcessed: a.primary.ContentProcessed(),
		ReturnPending:    a.primary.ReturnPending(),
		Content:          a.primary.InitialSharedContent(),
	}
}

// shellHost implements activity.Host. Its methods are only ever called from
// entry points, so they already run on the looper.
type shellHost struct {
	app *App
}

func (h *shellHost) ShowToast(message string) {
	h.app.Logger.Info().Str("toast", message).Msg("Toast")
}

func (h *shellHost) Finish(name string) {
	h.app.Logger.Info().Str("entry_point", name).Msg("Entry point finished")
	if name == activity.PrimaryName && h.app.primaryAlive {
		h.app.primary.OnDestroy()
		h.app.primaryAlive = false
	}
}

// LaunchPrimary brings the primary screen up without a share intent. A running
// screen is resumed instead, which drains the shared store either way.
func (h *shellHost) LaunchPrimary() {
	ctx := context.Background()
	if h.app.primaryAlive {
		h.app.primary.OnResume(ctx)
		return
	}
	h.app.createPrimary(ctx, sharing.Intent{Action: sharing.ActionMain})
}
