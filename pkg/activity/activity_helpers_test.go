package activity_test

import (
	"context"
	"sync"
	"testing"

	"github.com/illmade-knight/share-receiver/pkg/activity"
	"github.com/illmade-knight/share-receiver/pkg/looper"
	"github.com/illmade-knight/share-receiver/pkg/preferences"
	"github.com/illmade-knight/share-receiver/pkg/sharedstore"
	"github.com/illmade-knight/share-receiver/pkg/sharing"
	"github.com/rs/zerolog"
)

// --- Mock Dependencies ---

type fakeHost struct {
	mu       sync.Mutex
	toasts   []string
	finished []string
	launches int
}

func (h *fakeHost) ShowToast(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.toasts = append(h.toasts, message)
}

func (h *fakeHost) Finish(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finished = append(h.finished, name)
}

func (h *fakeHost) LaunchPrimary() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.launches++
}

func (h *fakeHost) Finished() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.finished...)
}

func (h *fakeHost) Toasts() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.toasts...)
}

func (h *fakeHost) Launches() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.launches
}

type mockNotifier struct {
	mu     sync.Mutex
	events []sharing.ShareEvent
}

func (n *mockNotifier) Notify(ctx context.Context, event sharing.ShareEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *mockNotifier) Events() []sharing.ShareEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sharing.ShareEvent(nil), n.events...)
}

// --- Fixture ---

type fixture struct {
	ctx      context.Context
	looper   *looper.Looper
	prefs    *preferences.InMemoryStore
	store    *sharedstore.Service
	host     *fakeHost
	notifier *mockNotifier
}

func newFixture(t *testing.T) *fixture {
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

	prefs := preferences.NewInMemoryStore()
	return &fixture{
		ctx:      context.Background(),
		looper:   l,
		prefs:    prefs,
		store:    sharedstore.NewService(prefs, zerolog.Nop()),
		host:     &fakeHost{},
		notifier: &mockNotifier{},
	}
}

func (f *fixture) deps() activity.Deps {
	return activity.Deps{
		Store:     f.store,
		Host:      f.host,
		Scheduler: f.looper,
		Notifier:  f.notifier,
		Logger:    zerolog.Nop(),
	}
}

// onLooper runs fn on the looper and waits for it.
func (f *fixture) onLooper(t *testing.T, fn func()) {
	t.Helper()
	if err := f.looper.Call(f.ctx, fn); err != nil {
		t.Fatalf("looper call failed: %v", err)
	}
}

func textIntent(body string) sharing.Intent {
	return sharing.Intent{
		Action: sharing.ActionSend,
		Type:   "text/plain",
		Extras: map[string]any{sharing.ExtraText: body},
	}
}

func imagesIntent(uris ...string) sharing.Intent {
	return sharing.Intent{
		Action: sharing.ActionSendMultiple,
		Type:   "image/jpeg",
		Extras: map[string]any{sharing.ExtraStream: uris},
	}
}

func launcherIntent() sharing.Intent {
	return sharing.Intent{Action: sharing.ActionMain}
}
