// Package firestore provides persistent storage implementations using Google Cloud Firestore.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/illmade-knight/share-receiver/pkg/preferences"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultCollection holds one document per preferences namespace.
const DefaultCollection = "preferences"

// preferencesDocument is the private struct that is actually stored in Firestore.
type preferencesDocument struct {
	Entries   map[string]string `firestore:"entries"`
	UpdatedAt time.Time         `firestore:"updatedAt"`
}

// PreferencesStore is a concrete implementation of the preferences.Store interface
// using a single Firestore document.
type PreferencesStore struct {
	client *firestore.Client
	doc    *firestore.DocumentRef
}

// NewPreferencesStore creates a Firestore-backed store for one namespace.
func NewPreferencesStore(client *firestore.Client, collection, namespace string) *PreferencesStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &PreferencesStore{
		client: client,
		doc:    client.Collection(collection).Doc(namespace),
	}
}

func decodeDocument(snap *firestore.DocumentSnapshot) (map[string]string, error) {
	var doc preferencesDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode preferences document: %w", err)
	}
	if doc.Entries == nil {
		doc.Entries = make(map[string]string)
	}
	return doc.Entries, nil
}

// Snapshot returns a copy of every entry in the namespace.
func (s *PreferencesStore) Snapshot(ctx context.Context) (map[string]string, error) {
	snap, err := s.doc.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to get preferences document: %w", err)
	}
	return decodeDocument(snap)
}

// Apply commits an edit inside a transaction so concurrent writers cannot interleave.
func (s *PreferencesStore) Apply(ctx context.Context, edit *preferences.Edit) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		entries := map[string]string{}
		snap, err := tx.Get(s.doc)
		switch {
		case err == nil:
			if entries, err = decodeDocument(snap); err != nil {
				return err
			}
		case status.Code(err) == codes.NotFound:
		default:
			return fmt.Errorf("failed to get preferences document: %w", err)
		}

		return tx.Set(s.doc, preferencesDocument{
			Entries:   edit.ApplyTo(entries),
			UpdatedAt: time.Now().UTC(),
		})
	})
}
