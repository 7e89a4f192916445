// Package sqlitestore keeps preferences in a SQLite table.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/illmade-knight/share-receiver/pkg/preferences"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Store implements preferences.Store with one row per (namespace, key).
type Store struct {
	db        *sql.DB
	namespace string
	logger    zerolog.Logger
}

// Open opens DataDir/preferences.db and makes sure the schema exists.
func Open(dataDir, namespace string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "preferences.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:        db,
		namespace: namespace,
		logger:    logger.With().Str("component", "sqlite-store").Logger(),
	}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	store.logger.Info().Str("db_path", dbPath).Str("namespace", namespace).Msg("SQLite preferences store initialized")
	return store, nil
}

func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS preferences (
			namespace TEXT NOT NULL,
			key       TEXT NOT NULL,
			value     TEXT NOT NULL,
			PRIMARY KEY (namespace, key)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create preferences table: %w", err)
	}
	return nil
}

// Snapshot returns a copy of every entry in the namespace.
func (s *Store) Snapshot(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM preferences WHERE namespace = ?`, s.namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		entries[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}
	return entries, nil
}

// Apply commits an edit in one transaction.
func (s *Store) Apply(ctx context.Context, edit *preferences.Edit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if edit.Clear {
		if _, err := tx.ExecContext(ctx, `DELETE FROM preferences WHERE namespace = ?`, s.namespace); err != nil {
			return fmt.Errorf("failed to clear preferences: %w", err)
		}
	}
	for _, key := range edit.Removes {
		if _, err := tx.ExecContext(ctx, `DELETE FROM preferences WHERE namespace = ? AND key = ?`, s.namespace, key); err != nil {
			return fmt.Errorf("failed to remove preference %q: %w", key, err)
		}
	}
	for key, value := range edit.Puts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO preferences (namespace, key, value) VALUES (?, ?, ?)
			ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value
		`, s.namespace, key, value)
		if err != nil {
			return fmt.Errorf("failed to put preference %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit preferences edit: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ preferences.Store = (*Store)(nil)
