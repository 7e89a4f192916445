// Package badgerstore keeps preferences in an embedded BadgerDB.
package badgerstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/illmade-knight/share-receiver/pkg/preferences"
	"github.com/rs/zerolog"
)

// Options configures a Store.
type Options struct {
	DataDir   string
	Namespace string
	Logger    zerolog.Logger
}

// Store implements preferences.Store with one key per entry, prefixed by namespace.
type Store struct {
	db     *badger.DB
	prefix []byte
	logger zerolog.Logger
}

// Open creates or opens the database under DataDir/preferences.
func Open(opts Options) (*Store, error) {
	dbPath := filepath.Join(opts.DataDir, "preferences")
	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create preferences directory: %w", err)
	}

	logger := opts.Logger.With().Str("component", "badger-store").Logger()
	badgerOpts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger{logger: logger}).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	logger.Info().Str("path", dbPath).Str("namespace", opts.Namespace).Msg("BadgerDB preferences store initialized")
	return &Store{
		db:     db,
		prefix: []byte(opts.Namespace + "/"),
		logger: logger,
	}, nil
}

func (s *Store) key(name string) []byte {
	return append(append([]byte{}, s.prefix...), name...)
}

// Snapshot returns a copy of every entry in the namespace.
func (s *Store) Snapshot(ctx context.Context) (map[string]string, error) {
	entries := make(map[string]string)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: s.prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			entries[string(item.Key()[len(s.prefix):])] = string(val)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}
	return entries, nil
}

// Apply commits an edit in a single read-write transaction.
func (s *Store) Apply(ctx context.Context, edit *preferences.Edit) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		var deletes [][]byte
		if edit.Clear {
			it := txn.NewIterator(badger.IteratorOptions{Prefix: s.prefix})
			for it.Rewind(); it.Valid(); it.Next() {
				deletes = append(deletes, it.Item().KeyCopy(nil))
			}
			it.Close()
		}
		for _, name := range edit.Removes {
			deletes = append(deletes, s.key(name))
		}

		for _, k := range deletes {
			if err := txn.Delete(k); err != nil && err != badger.ErrKeyNotFound {
				return fmt.Errorf("delete %q: %w", k, err)
			}
		}
		for name, value := range edit.Puts {
			if err := txn.Set(s.key(name), []byte(value)); err != nil {
				return fmt.Errorf("set %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply preferences edit: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// badgerLogger routes BadgerDB's internal logging through zerolog.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf("[Badger] "+format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf("[Badger] "+format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf("[Badger] "+format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf("[Badger] "+format, args...)
}

var _ preferences.Store = (*Store)(nil)
