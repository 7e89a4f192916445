// Package preferencestest holds a behavioural test suite shared by every
// preferences.Store backend.
package preferencestest

import (
	"context"
	"testing"

	"github.com/illmade-knight/share-receiver/pkg/preferences"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreTests exercises a backend. newStore must return an empty store
// that is independent of any store returned earlier.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) preferences.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("Empty snapshot", func(t *testing.T) {
		store := newStore(t)

		entries, err := store.Snapshot(ctx)

		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("Puts are visible", func(t *testing.T) {
		store := newStore(t)

		err := store.Apply(ctx, preferences.NewEdit().
			PutString("shared_text", "hello, world").
			PutBool("has_new_content", true))
		require.NoError(t, err)

		entries, err := store.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"shared_text":     "hello, world",
			"has_new_content": "true",
		}, entries)
		assert.True(t, preferences.Bool(entries, "has_new_content"))
	})

	t.Run("Clear then set replaces everything", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Apply(ctx, preferences.NewEdit().
			PutString("shared_image_uri", "content://1").
			PutString("shared_text", "old")))

		err := store.Apply(ctx, preferences.NewEdit().ClearAll().PutString("shared_text", "new"))
		require.NoError(t, err)

		entries, err := store.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"shared_text": "new"}, entries)
	})

	t.Run("Remove deletes a single key", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Apply(ctx, preferences.NewEdit().
			PutString("a", "1").
			PutString("b", "2")))

		err := store.Apply(ctx, preferences.NewEdit().Remove("a").Remove("missing"))
		require.NoError(t, err)

		entries, err := store.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"b": "2"}, entries)
	})

	t.Run("Clear alone empties the namespace", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Apply(ctx, preferences.NewEdit().PutString("a", "1")))

		require.NoError(t, store.Apply(ctx, preferences.NewEdit().ClearAll()))

		entries, err := store.Snapshot(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
