// Package activity contains the two share entry points: the short-lived
// capture screen and the primary screen that serves the application bridge.
//
// Entry points are not safe for concurrent use. Every method, including the
// bridge handlers, must run on the looper that owns the entry point.
package activity

import (
	"context"
	"time"

	"github.com/illmade-knight/share-receiver/pkg/looper"
	"github.com/illmade-knight/share-receiver/pkg/sharedstore"
	"github.com/illmade-knight/share-receiver/pkg/sharing"
	"github.com/rs/zerolog"
)

// Entry point names passed to Host.Finish.
const (
	PrimaryName = "primary"
	CaptureName = "capture"
)

// Host is implemented by the native shell that runs the entry points.
type Host interface {
	// ShowToast displays a short, non-blocking acknowledgement.
	ShowToast(message string)
	// Finish closes the named entry point, returning to the previous app.
	Finish(name string)
	// LaunchPrimary brings the primary entry point up in the background.
	LaunchPrimary()
}

// Scheduler posts delayed work onto the entry point's looper.
type Scheduler interface {
	PostDelayed(d time.Duration, fn func()) *looper.Callback
}

// SharedStore is the handoff channel between entry points.
type SharedStore interface {
	Write(ctx context.Context, payload sharing.Payload) error
	DrainIfPending(ctx context.Context) (sharedstore.Entry, bool, error)
}

// Notifier is told about every accepted share.
type Notifier interface {
	Notify(ctx context.Context, event sharing.ShareEvent) error
}

// Observer receives lifecycle signals for metrics.
type Observer interface {
	ShareAccepted(source sharing.Source, kind sharing.Kind)
	StoreDrained(found bool)
	ReturnArmed()
	ReturnFired()
	ReturnCancelled()
	ContentSaved(success bool)
}

// Deps groups the collaborators shared by both entry points.
// Notifier and Observer are optional.
type Deps struct {
	Store     SharedStore
	Host      Host
	Scheduler Scheduler
	Notifier  Notifier
	Observer  Observer
	Logger    zerolog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Observer == nil {
		d.Observer = NopObserver{}
	}
	return d
}

type nopNotifier struct{}

func (nopNotifier) Notify(ctx context.Context, event sharing.ShareEvent) error { return nil }

// NopObserver discards every signal.
type NopObserver struct{}

func (NopObserver) ShareAccepted(sharing.Source, sharing.Kind) {}
func (NopObserver) StoreDrained(bool)                          {}
func (NopObserver) ReturnArmed()                               {}
func (NopObserver) ReturnFired()                               {}
func (NopObserver) ReturnCancelled()                           {}
func (NopObserver) ContentSaved(bool)                          {}
