// Package sharedstore hands share payloads from one entry point to another
// through a preferences namespace.
package sharedstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/illmade-knight/share-receiver/pkg/preferences"
	"github.com/illmade-knight/share-receiver/pkg/sharing"
	"github.com/rs/zerolog"
)

// Namespace is the preferences namespace holding the pending entry.
const Namespace = "shared_content"

// Persisted keys.
const (
	KeySharedText      = "shared_text"
	KeySharedImageURI  = "shared_image_uri"
	KeySharedImageURIs = "shared_image_uris"
	KeyHasNewContent   = "has_new_content"
)

// uriSeparator joins multiple image URIs. A URI containing a comma does not
// survive the split; the joined layout is kept so existing entries stay readable.
const uriSeparator = ","

// ErrEmptyPayload is returned when asked to persist a None payload.
var ErrEmptyPayload = errors.New("sharedstore: nothing to write")

// Entry is a drained share. Either field may be absent.
type Entry struct {
	Text      *string
	ImageURIs []string
}

// IsEmpty reports whether the entry holds no content.
func (e Entry) IsEmpty() bool {
	return e.Text == nil && len(e.ImageURIs) == 0
}

// Payload collapses the entry into a single payload variant, preferring images.
func (e Entry) Payload() sharing.Payload {
	if len(e.ImageURIs) > 0 {
		return sharing.ImagesPayload(e.ImageURIs)
	}
	if e.Text != nil {
		return sharing.TextPayload(*e.Text)
	}
	return sharing.None
}

// Service provides the write and drain operations over a preferences store.
type Service struct {
	mu     sync.Mutex
	prefs  preferences.Store
	logger zerolog.Logger
}

// NewService is the constructor for the shared store.
func NewService(prefs preferences.Store, logger zerolog.Logger) *Service {
	return &Service{
		prefs:  prefs,
		logger: logger.With().Str("component", "shared-store").Logger(),
	}
}

// Write replaces any pending entry with payload and raises the pending flag.
func (s *Service) Write(ctx context.Context, payload sharing.Payload) error {
	if payload.Kind == sharing.KindImages {
		payload = sharing.ImagesPayload(payload.ImageURIs)
	}
	if payload.IsNone() {
		return ErrEmptyPayload
	}

	edit := preferences.NewEdit().ClearAll()
	switch payload.Kind {
	case sharing.KindText:
		edit.PutString(KeySharedText, payload.Text)
	case sharing.KindImages:
		if len(payload.ImageURIs) == 1 {
			edit.PutString(KeySharedImageURI, payload.ImageURIs[0])
		} else {
			edit.PutString(KeySharedImageURIs, strings.Join(payload.ImageURIs, uriSeparator))
		}
	}
	edit.PutBool(KeyHasNewContent, true)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.prefs.Apply(ctx, edit); err != nil {
		return fmt.Errorf("failed to write shared content: %w", err)
	}

	s.logger.Debug().Str("kind", payload.Kind.String()).Int("items", payload.ItemCount()).Msg("Saved shared content")
	return nil
}

// DrainIfPending returns the pending entry and clears it. The boolean is false
// when nothing was pending. A pending entry may still be empty if the writer
// raised the flag without content.
func (s *Service) DrainIfPending(ctx context.Context) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.prefs.Snapshot(ctx)
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read shared content: %w", err)
	}
	if !preferences.Bool(entries, KeyHasNewContent) {
		return Entry{}, false, nil
	}

	entry := decodeEntry(entries)

	if err := s.prefs.Apply(ctx, preferences.NewEdit().ClearAll()); err != nil {
		return Entry{}, false, fmt.Errorf("failed to clear shared content: %w", err)
	}

	s.logger.Debug().Bool("has_text", entry.Text != nil).Int("images", len(entry.ImageURIs)).Msg("Drained shared content")
	return entry, true, nil
}

func decodeEntry(entries map[string]string) Entry {
	var entry Entry
	if text, ok := preferences.String(entries, KeySharedText); ok {
		entry.Text = &text
	}
	if uri, ok := preferences.String(entries, KeySharedImageURI); ok && uri != "" {
		entry.ImageURIs = append(entry.ImageURIs, uri)
	}
	if joined, ok := preferences.String(entries, KeySharedImageURIs); ok {
		for _, uri := range strings.Split(joined, uriSeparator) {
			if uri != "" {
				entry.ImageURIs = append(entry.ImageURIs, uri)
			}
		}
	}
	return entry
}
