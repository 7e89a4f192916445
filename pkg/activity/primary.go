package activity

import (
	"context"
	"time"

	"github.com/illmade-knight/share-receiver/pkg/looper"
	"github.com/illmade-knight/share-receiver/pkg/sharedstore"
	"github.com/illmade-knight/share-receiver/pkg/sharing"
	"github.com/rs/zerolog"
)

// DefaultReturnDelay is how long the primary screen stays up after a direct share.
const DefaultReturnDelay = 5 * time.Second

// PrimaryConfig controls the auto-return behaviour.
type PrimaryConfig struct {
	AutoReturn  bool
	ReturnDelay time.Duration
}

// DefaultPrimaryConfig enables auto-return with the default delay.
func DefaultPrimaryConfig() PrimaryConfig {
	return PrimaryConfig{AutoReturn: true, ReturnDelay: DefaultReturnDelay}
}

// InitialContent is the snapshot handed to the application layer at start-up.
type InitialContent struct {
	IsOpenedFromShare bool     `json:"isOpenedFromShare"`
	Text              *string  `json:"text,omitempty"`
	ImageURIs         []string `json:"imageUris,omitempty"`
}

// pendingReturn owns the auto-return timer.
type pendingReturn struct {
	armed bool
	cb    *looper.Callback
}

func (p *pendingReturn) arm(s Scheduler, d time.Duration, fire func()) {
	p.release()
	p.armed = true
	p.cb = s.PostDelayed(d, fire)
}

// release disarms the timer and reports whether it was armed.
func (p *pendingReturn) release() bool {
	wasArmed := p.armed
	p.armed = false
	p.cb.Cancel()
	p.cb = nil
	return wasArmed
}

// Primary is the main screen. It receives direct shares, drains the shared
// store for shares captured elsewhere, and answers the application bridge.
type Primary struct {
	cfg    PrimaryConfig
	deps   Deps
	logger zerolog.Logger

	sharedText       *string
	sharedImageURIs  []string
	contentProcessed bool
	openedFromShare  bool
	pending          pendingReturn
	finished         bool
	destroyed        bool
}

// NewPrimary creates the primary screen. Call OnCreate before anything else.
func NewPrimary(cfg PrimaryConfig, deps Deps) *Primary {
	deps = deps.withDefaults()
	if cfg.ReturnDelay <= 0 {
		cfg.ReturnDelay = DefaultReturnDelay
	}
	return &Primary{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With().Str("component", "primary").Logger(),
	}
}

// OnCreate handles the launching intent, then drains the shared store.
func (p *Primary) OnCreate(ctx context.Context, intent sharing.Intent) {
	p.logger.Debug().Msg("OnCreate called")
	p.processIntent(ctx, intent)
	p.drain(ctx)
}

// OnNewIntent handles an intent redelivered to the running screen.
func (p *Primary) OnNewIntent(ctx context.Context, intent sharing.Intent) {
	p.logger.Debug().Msg("OnNewIntent called")
	p.processIntent(ctx, intent)
}

// OnResume runs whenever the screen returns to the foreground.
func (p *Primary) OnResume(ctx context.Context) {
	p.drain(ctx)
}

// OnDestroy releases the auto-return timer.
func (p *Primary) OnDestroy() {
	p.pending.release()
	p.destroyed = true
}

func (p *Primary) processIntent(ctx context.Context, intent sharing.Intent) {
	payload := sharing.Classify(intent)
	p.logger.Debug().Str("action", intent.Action).Str("type", intent.Type).Str("kind", payload.Kind.String()).Msg("Processing intent")
	if !intent.IsShare() {
		// The user opened the screen directly; it must not close under them.
		p.openedFromShare = false
		if p.pending.release() {
			p.deps.Observer.ReturnCancelled()
			p.logger.Debug().Msg("Return cancelled by direct launch")
		}
		return
	}
	if payload.IsNone() {
		return
	}

	switch payload.Kind {
	case sharing.KindText:
		text := payload.Text
		p.sharedText = &text
		p.sharedImageURIs = nil
	case sharing.KindImages:
		p.sharedImageURIs = payload.ImageURIs
		p.sharedText = nil
	}
	p.contentProcessed = true
	p.openedFromShare = true

	p.deps.Observer.ShareAccepted(sharing.SourcePrimary, payload.Kind)
	if err := p.deps.Notifier.Notify(ctx, sharing.NewShareEvent(sharing.SourcePrimary, payload)); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to publish share event")
	}

	if p.cfg.AutoReturn && !p.destroyed {
		p.scheduleReturn()
	}
}

func (p *Primary) scheduleReturn() {
	p.logger.Debug().Dur("delay", p.cfg.ReturnDelay).Msg("Scheduling return")
	p.deps.Observer.ReturnArmed()
	p.pending.arm(p.deps.Scheduler, p.cfg.ReturnDelay, func() {
		if !p.pending.armed {
			p.logger.Debug().Msg("Return cancelled by user interaction")
			return
		}
		p.pending.armed = false
		p.pending.cb = nil
		p.finished = true
		p.deps.Observer.ReturnFired()
		p.logger.Info().Msg("Auto-finishing after delay")
		p.deps.Host.Finish(PrimaryName)
	})
}

// drain merges any pending shared-store entry into local state and reports
// whether an entry was pending.
func (p *Primary) drain(ctx context.Context) (sharedstore.Entry, bool) {
	entry, found, err := p.deps.Store.DrainIfPending(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to drain shared store")
		return sharedstore.Entry{}, false
	}
	p.deps.Observer.StoreDrained(found)
	if !found {
		return entry, false
	}

	if entry.Text != nil {
		text := *entry.Text
		p.sharedText = &text
	}
	if len(entry.ImageURIs) > 0 {
		p.sharedImageURIs = entry.ImageURIs
	}
	if !entry.IsEmpty() {
		p.contentProcessed = true
	}
	p.logger.Debug().Bool("has_text", entry.Text != nil).Int("images", len(entry.ImageURIs)).Msg("Merged drained content")
	return entry, true
}

// TakeSharedText returns the shared text and clears it.
func (p *Primary) TakeSharedText() *string {
	text := p.sharedText
	p.sharedText = nil
	return text
}

// TakeSharedImageURIs returns the shared image URIs and clears them.
func (p *Primary) TakeSharedImageURIs() []string {
	uris := p.sharedImageURIs
	p.sharedImageURIs = nil
	return uris
}

// HasSharedContent drains the store, then reports whether anything is held.
func (p *Primary) HasSharedContent(ctx context.Context) bool {
	p.drain(ctx)
	return p.sharedText != nil || len(p.sharedImageURIs) > 0
}

// CheckForNewContent drains the store and reports whether it yielded content.
func (p *Primary) CheckForNewContent(ctx context.Context) bool {
	entry, found := p.drain(ctx)
	return found && !entry.IsEmpty()
}

// CancelReturn disarms the auto-return timer. It always succeeds.
func (p *Primary) CancelReturn() bool {
	if p.pending.release() {
		p.deps.Observer.ReturnCancelled()
		p.logger.Debug().Msg("Return to previous app cancelled")
	}
	return true
}

// InitialSharedContent snapshots the current state without clearing it.
func (p *Primary) InitialSharedContent() InitialContent {
	content := InitialContent{IsOpenedFromShare: p.openedFromShare}
	if p.sharedText != nil {
		text := *p.sharedText
		content.Text = &text
	}
	if len(p.sharedImageURIs) > 0 {
		content.ImageURIs = append([]string(nil), p.sharedImageURIs...)
	}
	return content
}

// ReturnPending reports whether the auto-return timer is armed.
func (p *Primary) ReturnPending() bool {
	return p.pending.armed
}

// Finished reports whether the auto-return closed the screen.
func (p *Primary) Finished() bool {
	return p.finished
}

// ContentProcessed reports whether any share has reached local state.
func (p *Primary) ContentProcessed() bool {
	return p.contentProcessed
}
