package app_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/illmade-knight/share-receiver/app"
	"github.com/illmade-knight/share-receiver/pkg/activity"
	"github.com/illmade-knight/share-receiver/pkg/bridge"
	"github.com/illmade-knight/share-receiver/pkg/preferences"
	"github.com/illmade-knight/share-receiver/pkg/sharedstore"
	"github.com/illmade-knight/share-receiver/pkg/sharing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testReturnDelay = 40 * time.Millisecond

// --- Mock Dependencies ---

type mockNotifier struct {
	events chan sharing.ShareEvent
}

func (m *mockNotifier) Notify(ctx context.Context, event sharing.ShareEvent) error {
	m.events <- event
	return nil
}

// --- Helpers ---

// cancelAwareStore fails writes made under a cancelled context, as the
// network-backed stores do.
type cancelAwareStore struct {
	*preferences.InMemoryStore
}

func (s cancelAwareStore) Apply(ctx context.Context, edit *preferences.Edit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.InMemoryStore.Apply(ctx, edit)
}

func setupApp(t *testing.T, autoReturn bool) (*app.App, *mockNotifier) {
	t.Helper()
	return setupAppWithPrefs(t, autoReturn, preferences.NewInMemoryStore())
}

func setupAppWithPrefs(t *testing.T, autoReturn bool, prefs preferences.Store) (*app.App, *mockNotifier) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	store := sharedstore.NewService(prefs, zerolog.Nop())
	notifier := &mockNotifier{events: make(chan sharing.ShareEvent, 16)}

	a := app.New(store, app.Options{
		Primary:  activity.PrimaryConfig{AutoReturn: autoReturn, ReturnDelay: testReturnDelay},
		Notifier: notifier,
		CaptureConfigs: map[activity.Variant]activity.CaptureConfig{
			activity.VariantQuick:    {Variant: activity.VariantQuick, Message: "saved", FinishDelay: 10 * time.Millisecond},
			activity.VariantReceiver: {Variant: activity.VariantReceiver, Message: "received", FinishDelay: 10 * time.Millisecond, LaunchPrimary: true},
		},
	}, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Run(ctx)
	}()
	t.Cleanup(func() {
		a.Stop(context.Background())
		cancel()
		<-done
	})
	return a, notifier
}

func textIntent(body string) sharing.Intent {
	return sharing.Intent{
		Action: sharing.ActionSend,
		Type:   "text/plain",
		Extras: map[string]any{sharing.ExtraText: body},
	}
}

func invoke(t *testing.T, a *app.App, method string) any {
	t.Helper()
	result, err := a.Invoke(context.Background(), activity.ShareChannel, bridge.MethodCall{Method: method})
	require.NoError(t, err)
	return result
}

// --- Test Suite ---

func TestApp_DeliverToPrimary(t *testing.T) {
	ctx := context.Background()
	a, notifier := setupApp(t, false)

	// Act
	status, err := a.DeliverToPrimary(ctx, textIntent("hello"))

	// Assert
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.True(t, status.ContentProcessed)
	assert.True(t, status.Content.IsOpenedFromShare)
	require.NotNil(t, status.Content.Text)
	assert.Equal(t, "hello", *status.Content.Text)

	event := <-notifier.events
	assert.Equal(t, sharing.SourcePrimary, event.Source)

	assert.Equal(t, "hello", invoke(t, a, activity.MethodGetSharedText))
	assert.Nil(t, invoke(t, a, activity.MethodGetSharedText))
}

func TestApp_QuickCaptureThenResume(t *testing.T) {
	ctx := context.Background()
	a, _ := setupApp(t, false)
	_, err := a.DeliverToPrimary(ctx, sharing.Intent{Action: sharing.ActionMain})
	require.NoError(t, err)

	// Act
	result, err := a.Capture(ctx, "", sharing.Intent{
		Action: sharing.ActionSendMultiple,
		Type:   "image/*",
		Extras: map[string]any{sharing.ExtraStream: []string{"content://a", "content://b"}},
	})
	require.NoError(t, err)
	status, err := a.Resume(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, activity.VariantQuick, result.Variant)
	assert.Equal(t, "images", result.Kind)
	assert.Equal(t, activity.CaptureAcknowledged.String(), result.State)
	assert.Equal(t, []string{"content://a", "content://b"}, status.Content.ImageURIs)
}

func TestApp_CaptureOutlivesCaller(t *testing.T) {
	prefs := cancelAwareStore{InMemoryStore: preferences.NewInMemoryStore()}
	a, notifier := setupAppWithPrefs(t, false, prefs)

	callerCtx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _ = a.Capture(callerCtx, activity.VariantQuick, textIntent("kept"))

	// The notifier fires after the write, so the capture has run once it is seen.
	select {
	case <-notifier.events:
	case <-time.After(time.Second):
		t.Fatal("capture did not run")
	}
	entries, err := prefs.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "kept", entries[sharedstore.KeySharedText])
}

func TestApp_ReceiverCaptureLaunchesPrimary(t *testing.T) {
	ctx := context.Background()
	a, _ := setupApp(t, false)

	_, err := a.Capture(ctx, activity.VariantReceiver, textIntent("from another app"))
	require.NoError(t, err)

	status, err := a.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.False(t, status.Content.IsOpenedFromShare)
	assert.Equal(t, "from another app", invoke(t, a, activity.MethodGetSharedText))
	assert.Equal(t, false, invoke(t, a, activity.MethodCheckForNewContent))
}

func TestApp_AutoReturnFinishesPrimary(t *testing.T) {
	ctx := context.Background()
	a, _ := setupApp(t, true)

	status, err := a.DeliverToPrimary(ctx, textIntent("bye"))
	require.NoError(t, err)
	assert.True(t, status.ReturnPending)

	assert.Eventually(t, func() bool {
		s, err := a.Status(ctx)
		return err == nil && !s.Running
	}, time.Second, 5*time.Millisecond)

	_, err = a.Resume(ctx)
	assert.ErrorIs(t, err, app.ErrNoPrimary)

	// A new share recreates the screen.
	status, err = a.DeliverToPrimary(ctx, textIntent("again"))
	require.NoError(t, err)
	assert.True(t, status.Running)
}

func TestApp_CancelReturnViaBridge(t *testing.T) {
	ctx := context.Background()
	a, _ := setupApp(t, true)
	_, err := a.DeliverToPrimary(ctx, textIntent("stay"))
	require.NoError(t, err)

	assert.Equal(t, true, invoke(t, a, activity.MethodCancelReturn))

	assert.Never(t, func() bool {
		s, err := a.Status(ctx)
		return err == nil && !s.Running
	}, 3*testReturnDelay, 10*time.Millisecond)
}

func TestApp_InvokeErrors(t *testing.T) {
	ctx := context.Background()
	a, _ := setupApp(t, false)

	t.Run("before the primary screen exists", func(t *testing.T) {
		_, err := a.Invoke(ctx, activity.ShareChannel, bridge.MethodCall{Method: activity.MethodGetSharedText})
		assert.ErrorIs(t, err, app.ErrNoPrimary)
	})

	_, err := a.DeliverToPrimary(ctx, sharing.Intent{Action: sharing.ActionMain})
	require.NoError(t, err)

	t.Run("unknown channel", func(t *testing.T) {
		_, err := a.Invoke(ctx, "other/channel", bridge.MethodCall{Method: "x"})
		assert.ErrorIs(t, err, app.ErrUnknownChannel)
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := a.Invoke(ctx, activity.ShareChannel, bridge.MethodCall{Method: "doSomething"})
		assert.ErrorIs(t, err, bridge.ErrNotImplemented)
	})

	t.Run("unknown variant", func(t *testing.T) {
		_, err := a.Capture(ctx, "slow", textIntent("x"))
		assert.ErrorIs(t, err, app.ErrUnknownVariant)
	})
}

func TestApp_InitialContentIsJSON(t *testing.T) {
	ctx := context.Background()
	a, _ := setupApp(t, false)
	_, err := a.DeliverToPrimary(ctx, sharing.Intent{
		Action: sharing.ActionSendMultiple,
		Type:   "image/png",
		Extras: map[string]any{sharing.ExtraStream: []any{"content://x"}},
	})
	require.NoError(t, err)

	result := invoke(t, a, activity.MethodGetInitialSharedContent)
	data, err := json.Marshal(result)

	require.NoError(t, err)
	assert.JSONEq(t, `{"isOpenedFromShare":true,"imageUris":["content://x"]}`, string(data))
}
