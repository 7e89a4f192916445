package activity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/illmade-knight/share-receiver/pkg/activity"
	"github.com/illmade-knight/share-receiver/pkg/sharedstore"
	"github.com/illmade-knight/share-receiver/pkg/sharing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastCapture(t *testing.T, v activity.Variant) activity.CaptureConfig {
	t.Helper()
	cfg, err := activity.CaptureConfigFor(v)
	require.NoError(t, err)
	cfg.FinishDelay = 20 * time.Millisecond
	return cfg
}

func TestCaptureConfigFor(t *testing.T) {
	quick, err := activity.CaptureConfigFor(activity.VariantQuick)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, quick.FinishDelay)
	assert.False(t, quick.LaunchPrimary)

	receiver, err := activity.CaptureConfigFor(activity.VariantReceiver)
	require.NoError(t, err)
	assert.Equal(t, 300*time.Millisecond, receiver.FinishDelay)
	assert.True(t, receiver.LaunchPrimary)

	_, err = activity.CaptureConfigFor("sideways")
	assert.Error(t, err)
}

func TestCapture_PersistsAndTerminates(t *testing.T) {
	f := newFixture(t)
	capture := activity.NewCapture(fastCapture(t, activity.VariantQuick), f.deps())

	// Act
	var stateAfterCreate activity.CaptureState
	f.onLooper(t, func() {
		capture.OnCreate(f.ctx, textIntent("hello"))
		stateAfterCreate = capture.State()
	})

	// Assert: persisted and acknowledged immediately
	assert.Equal(t, activity.CaptureAcknowledged, stateAfterCreate)
	assert.Equal(t, []string{"Content saved to Share Receiver"}, f.host.Toasts())
	entries, _ := f.prefs.Snapshot(f.ctx)
	assert.Equal(t, "hello", entries[sharedstore.KeySharedText])
	assert.Equal(t, "true", entries[sharedstore.KeyHasNewContent])
	require.Len(t, f.notifier.Events(), 1)
	assert.Equal(t, sharing.SourceCapture, f.notifier.Events()[0].Source)
	assert.Zero(t, f.host.Launches())

	// Assert: terminates after the fixed delay
	assert.Eventually(t, func() bool {
		return len(f.host.Finished()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{activity.CaptureName}, f.host.Finished())
	f.onLooper(t, func() {
		assert.Equal(t, activity.CaptureTerminated, capture.State())
	})
}

func TestCapture_UnsupportedIntentWritesNothing(t *testing.T) {
	f := newFixture(t)
	capture := activity.NewCapture(fastCapture(t, activity.VariantReceiver), f.deps())

	f.onLooper(t, func() {
		capture.OnCreate(f.ctx, sharing.Intent{Action: sharing.ActionSend, Type: "application/pdf"})
	})

	entries, _ := f.prefs.Snapshot(f.ctx)
	assert.Empty(t, entries)
	assert.Empty(t, f.notifier.Events())
	assert.Zero(t, f.host.Launches(), "nothing to hand off")
	assert.Len(t, f.host.Toasts(), 1, "the acknowledgement is unconditional")
	assert.Eventually(t, func() bool {
		return len(f.host.Finished()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestCapture_EmptyImageListWritesNothing(t *testing.T) {
	f := newFixture(t)
	capture := activity.NewCapture(fastCapture(t, activity.VariantReceiver), f.deps())

	f.onLooper(t, func() {
		capture.OnCreate(f.ctx, imagesIntent(""))
		assert.True(t, capture.Payload().IsNone())
	})

	entries, _ := f.prefs.Snapshot(f.ctx)
	assert.Empty(t, entries)
	assert.Empty(t, f.notifier.Events())
	assert.Zero(t, f.host.Launches())
	_, found, err := f.store.DrainIfPending(f.ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCapture_ReceiverLaunchesPrimary(t *testing.T) {
	f := newFixture(t)
	capture := activity.NewCapture(fastCapture(t, activity.VariantReceiver), f.deps())

	f.onLooper(t, func() {
		capture.OnCreate(f.ctx, imagesIntent("a", "b"))
	})

	assert.Equal(t, 1, f.host.Launches())
	assert.Equal(t, []string{"Content received"}, f.host.Toasts())
	entries, _ := f.prefs.Snapshot(f.ctx)
	assert.Equal(t, "a,b", entries[sharedstore.KeySharedImageURIs])
}

type brokenStore struct{}

func (brokenStore) Write(ctx context.Context, payload sharing.Payload) error {
	return errors.New("read-only filesystem")
}

func (brokenStore) DrainIfPending(ctx context.Context) (sharedstore.Entry, bool, error) {
	return sharedstore.Entry{}, false, errors.New("read-only filesystem")
}

func TestCapture_StoreFailureDegradesSilently(t *testing.T) {
	f := newFixture(t)
	deps := f.deps()
	deps.Store = brokenStore{}
	deps.Logger = zerolog.Nop()
	capture := activity.NewCapture(fastCapture(t, activity.VariantReceiver), deps)

	f.onLooper(t, func() {
		capture.OnCreate(f.ctx, textIntent("lost"))
		assert.Equal(t, activity.CaptureAcknowledged, capture.State())
	})

	assert.Zero(t, f.host.Launches())
	assert.Empty(t, f.notifier.Events())
	assert.Len(t, f.host.Toasts(), 1)
}

func TestCaptureState_String(t *testing.T) {
	assert.Equal(t, "persisted", activity.CapturePersisted.String())
	assert.Equal(t, "CaptureState(42)", activity.CaptureState(42).String())
}
