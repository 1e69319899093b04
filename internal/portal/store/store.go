// Package store defines the storage boundaries of the portal engine. Business
// logic never touches a concrete backend directly; it is handed these
// interfaces so every piece can be tested against an in-memory fake.
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("store: not found")

// KeyValue is a process-durable string-keyed store. It survives restarts and
// holds long-lived session state. Implementations are synchronous and
// non-transactional; callers that need all-or-nothing semantics across keys
// impose them on top (see the session service).
type KeyValue interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set writes key=value, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}

// Ephemeral is a string-keyed store scoped to the current interaction only:
// it models one principal's in-progress verification state and is cleared
// when the flow ends. It is in-process and never fails.
type Ephemeral interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
	Clear()
}
