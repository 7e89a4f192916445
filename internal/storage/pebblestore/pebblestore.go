// Package pebblestore keeps preferences in an embedded Pebble LSM database.
package pebblestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble"
	"github.com/illmade-knight/share-receiver/pkg/preferences"
	"github.com/rs/zerolog"
)

// Options configures a Store.
type Options struct {
	DataDir   string
	Namespace string
	Logger    zerolog.Logger
}

// Store implements preferences.Store on Pebble. Each namespace owns the key
// range "<namespace>/".
type Store struct {
	db     *pebble.DB
	lower  []byte
	upper  []byte
	logger zerolog.Logger
}

// Open creates or opens the database under DataDir/preferences.
func Open(opts Options) (*Store, error) {
	dbPath := filepath.Join(opts.DataDir, "preferences")
	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create preferences directory: %w", err)
	}

	logger := opts.Logger.With().Str("component", "pebble-store").Logger()
	db, err := pebble.Open(dbPath, &pebble.Options{
		Logger: &pebbleLogger{logger: logger},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db: %w", err)
	}

	lower := []byte(opts.Namespace + "/")
	logger.Info().Str("path", dbPath).Str("namespace", opts.Namespace).Msg("Pebble preferences store initialized")
	return &Store{
		db:     db,
		lower:  lower,
		upper:  prefixEnd(lower),
		logger: logger,
	}, nil
}

// prefixEnd returns the exclusive upper bound for a prefix scan.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func (s *Store) key(name string) []byte {
	return append(append([]byte{}, s.lower...), name...)
}

// Snapshot returns a copy of every entry in the namespace.
func (s *Store) Snapshot(ctx context.Context) (map[string]string, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: s.lower,
		UpperBound: s.upper,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close() //nolint:errcheck

	entries := make(map[string]string)
	for valid := iter.First(); valid; valid = iter.Next() {
		entries[string(iter.Key()[len(s.lower):])] = string(iter.Value())
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}
	return entries, nil
}

// Apply commits an edit as one synced batch. Operations inside a batch are
// sequenced, so puts land after the clear and removes.
func (s *Store) Apply(ctx context.Context, edit *preferences.Edit) error {
	batch := s.db.NewBatch()
	defer batch.Close() //nolint:errcheck

	if edit.Clear {
		if err := batch.DeleteRange(s.lower, s.upper, nil); err != nil {
			return fmt.Errorf("batch clear: %w", err)
		}
	}
	for _, name := range edit.Removes {
		if err := batch.Delete(s.key(name), nil); err != nil {
			return fmt.Errorf("batch delete %q: %w", name, err)
		}
	}
	for name, value := range edit.Puts {
		if err := batch.Set(s.key(name), []byte(value), nil); err != nil {
			return fmt.Errorf("batch set %q: %w", name, err)
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to apply preferences edit: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// pebbleLogger adapts zerolog to pebble's Logger interface.
type pebbleLogger struct {
	logger zerolog.Logger
}

func (l *pebbleLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf("[Pebble] "+format, args...)
}

func (l *pebbleLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf("[Pebble] "+format, args...)
}

func (l *pebbleLogger) Fatalf(format string, args ...interface{}) {
	l.logger.Fatal().Msgf("[Pebble] "+format, args...)
}

var _ preferences.Store = (*Store)(nil)
