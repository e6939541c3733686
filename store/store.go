// Package store provides the versioned durable store that holds catalog
// artifacts, deployment baselines, and environment locks. All three live in
// the same store so the read path used for conflict detection also observes
// lock state.
//
// The store contract centers on Create: an atomic create-if-absent. Two
// runs racing to create the same key must resolve to exactly one winner;
// the loser gets ErrKeyExists. The lock manager builds mutual exclusion
// on that guarantee alone, so any backend with conditional-create
// semantics can serve as the substrate.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("key not found")

// ErrKeyExists is returned by Create when the key already exists,
// including when a concurrent writer won the creation race.
var ErrKeyExists = errors.New("key already exists")

// Store is a versioned key/value store with atomic create-if-absent.
// Keys are slash-separated paths. The message parameter annotates the
// change for backends that record history; others ignore it.
type Store interface {
	// Read returns the value at key, or ErrNotFound.
	Read(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Write creates or replaces the value at key.
	Write(ctx context.Context, key string, data []byte, message string) error

	// Create writes the value at key only if the key is absent. A key that
	// already exists, or a lost creation race, yields ErrKeyExists.
	Create(ctx context.Context, key string, data []byte, message string) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string, message string) error
}
