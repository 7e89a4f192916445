// Package preferences defines a small durable string key-value map with
// atomic, batched edits, in the spirit of a platform preferences file.
package preferences

import (
	"context"
	"strconv"
)

// Store is the interface for a preferences namespace.
// This decouples the shared store from the persistence engine.
type Store interface {
	// Snapshot returns a copy of every entry in the namespace.
	Snapshot(ctx context.Context) (map[string]string, error)
	// Apply commits an edit atomically.
	Apply(ctx context.Context, edit *Edit) error
}

// Edit is a batch of changes applied in the order: clear, removals, puts.
type Edit struct {
	Clear   bool
	Removes []string
	Puts    map[string]string
}

// NewEdit starts an empty edit.
func NewEdit() *Edit {
	return &Edit{Puts: make(map[string]string)}
}

// ClearAll drops every existing entry before the rest of the edit applies.
func (e *Edit) ClearAll() *Edit {
	e.Clear = true
	return e
}

func (e *Edit) PutString(key, value string) *Edit {
	e.Puts[key] = value
	return e
}

func (e *Edit) PutBool(key string, value bool) *Edit {
	e.Puts[key] = strconv.FormatBool(value)
	return e
}

func (e *Edit) Remove(key string) *Edit {
	e.Removes = append(e.Removes, key)
	return e
}

// ApplyTo replays the edit onto an in-memory map. Backends that hold their
// namespace as a single document use it to compute the new state.
func (e *Edit) ApplyTo(entries map[string]string) map[string]string {
	if e.Clear || entries == nil {
		entries = make(map[string]string, len(e.Puts))
	}
	for _, key := range e.Removes {
		delete(entries, key)
	}
	for key, value := range e.Puts {
		entries[key] = value
	}
	return entries
}

// Bool reads a boolean written with PutBool. Missing or malformed values are false.
func Bool(entries map[string]string, key string) bool {
	b, err := strconv.ParseBool(entries[key])
	return err == nil && b
}

// String reads a string entry, reporting whether it was present.
func String(entries map[string]string, key string) (string, bool) {
	v, ok := entries[key]
	return v, ok
}
