// Package filestore keeps each preferences namespace in its own JSON file.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/illmade-knight/share-receiver/pkg/preferences"
)

// Store implements preferences.Store as <dir>/<namespace>.json.
type Store struct {
	sync.Mutex
	path string
}

// New returns a store for namespace under dir. The directory is created on first write.
func New(dir, namespace string) *Store {
	return &Store{path: filepath.Join(dir, namespace+".json")}
}

// Path is the backing file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences file: %w", err)
	}

	entries := map[string]string{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode preferences file: %w", err)
	}
	return entries, nil
}

// Snapshot returns a copy of every entry in the namespace.
func (s *Store) Snapshot(ctx context.Context) (map[string]string, error) {
	s.Lock()
	defer s.Unlock()
	return s.load()
}

// Apply rewrites the file with the edit applied. The new content is written
// to a temporary file and renamed over the old one.
func (s *Store) Apply(ctx context.Context, edit *preferences.Edit) error {
	s.Lock()
	defer s.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(edit.ApplyTo(entries), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write preferences file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace preferences file: %w", err)
	}
	return nil
}

var _ preferences.Store = (*Store)(nil)
