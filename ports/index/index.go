// Package index defines the secondary-index port: an auxiliary key→id
// mapping (e.g. email → user id) with atomic set-if-absent semantics. The
// reservation operation is the sole serialization point for uniqueness
// constraints in an append-only, event-sourced world; implementations must
// make Reserve atomic with respect to concurrent attempts for the same key.
package index

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("index entry not found")
	ErrAlreadyExists = errors.New("index entry already exists")
)

type Index interface {
	// Reserve maps key to id within the named index iff the key is absent.
	// A present key fails with ErrAlreadyExists, regardless of its value.
	Reserve(ctx context.Context, index, key string, id int64) error
	// Lookup returns the id mapped to key, or ErrNotFound.
	Lookup(ctx context.Context, index, key string) (int64, error)
	// Remove deletes the mapping for key. Removing an absent key is not an
	// error.
	Remove(ctx context.Context, index, key string) error
}
