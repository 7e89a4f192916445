package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/illmade-knight/share-receiver/pkg/looper"
	"github.com/illmade-knight/share-receiver/pkg/sharing"
	"github.com/rs/zerolog"
)

// Variant selects one of the capture screen flavours.
type Variant string

const (
	// VariantQuick saves the share and closes; the primary screen picks it up later.
	VariantQuick Variant = "quick"
	// VariantReceiver saves the share and wakes the primary screen in the background.
	VariantReceiver Variant = "receiver"
)

// CaptureConfig fixes the behaviour of a capture screen.
type CaptureConfig struct {
	Variant       Variant
	Message       string
	FinishDelay   time.Duration
	LaunchPrimary bool
}

// CaptureConfigFor returns the built-in configuration for v.
func CaptureConfigFor(v Variant) (CaptureConfig, error) {
	switch v {
	case VariantQuick:
		return CaptureConfig{
			Variant:     VariantQuick,
			Message:     "Content saved to Share Receiver",
			FinishDelay: 500 * time.Millisecond,
		}, nil
	case VariantReceiver:
		return CaptureConfig{
			Variant:       VariantReceiver,
			Message:       "Content received",
			FinishDelay:   300 * time.Millisecond,
			LaunchPrimary: true,
		}, nil
	default:
		return CaptureConfig{}, fmt.Errorf("unknown capture variant %q", v)
	}
}

// CaptureState tracks a capture screen through its short life.
type CaptureState int

const (
	CaptureCreated CaptureState = iota
	CaptureClassified
	CapturePersisted
	CaptureAcknowledged
	CaptureTerminated
)

func (s CaptureState) String() string {
	switch s {
	case CaptureCreated:
		return "created"
	case CaptureClassified:
		return "classified"
	case CapturePersisted:
		return "persisted"
	case CaptureAcknowledged:
		return "acknowledged"
	case CaptureTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("CaptureState(%d)", int(s))
	}
}

// Capture is the OS-invoked share target that writes to the shared store
// and closes itself after a fixed delay.
type Capture struct {
	cfg     CaptureConfig
	deps    Deps
	logger  zerolog.Logger
	state   CaptureState
	payload sharing.Payload
	finish  *looper.Callback
}

// NewCapture creates a capture screen in the Created state.
func NewCapture(cfg CaptureConfig, deps Deps) *Capture {
	deps = deps.withDefaults()
	return &Capture{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With().Str("component", "capture").Str("variant", string(cfg.Variant)).Logger(),
		state:  CaptureCreated,
	}
}

// OnCreate handles the intent that launched the screen.
func (c *Capture) OnCreate(ctx context.Context, intent sharing.Intent) {
	c.payload = sharing.Classify(intent)
	c.state = CaptureClassified
	c.logger.Debug().Str("action", intent.Action).Str("type", intent.Type).Str("kind", c.payload.Kind.String()).Msg("Classified intent")

	if !c.payload.IsNone() {
		if err := c.deps.Store.Write(ctx, c.payload); err != nil {
			c.logger.Error().Err(err).Msg("Failed to persist shared content")
		} else {
			c.state = CapturePersisted
			c.deps.Observer.ShareAccepted(sharing.SourceCapture, c.payload.Kind)
			if err := c.deps.Notifier.Notify(ctx, sharing.NewShareEvent(sharing.SourceCapture, c.payload)); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to publish share event")
			}
			if c.cfg.LaunchPrimary {
				c.deps.Host.LaunchPrimary()
			}
		}
	}

	c.deps.Host.ShowToast(c.cfg.Message)
	c.state = CaptureAcknowledged

	c.finish = c.deps.Scheduler.PostDelayed(c.cfg.FinishDelay, func() {
		c.state = CaptureTerminated
		c.logger.Debug().Msg("Capture screen finished")
		c.deps.Host.Finish(CaptureName)
	})
}

// State returns the current lifecycle state.
func (c *Capture) State() CaptureState {
	return c.state
}

// Payload returns what the launching intent was classified as.
func (c *Capture) Payload() sharing.Payload {
	return c.payload
}
