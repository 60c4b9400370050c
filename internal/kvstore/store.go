// Package kvstore defines the durable key/value store contract the engine
// relies on for cooldown state, idempotency claims, and exposure records,
// plus a Redis-backed implementation and an in-memory fake for tests.
package kvstore

import (
	"context"
	"time"
)

// Store is the durable KV contract. Every method must be safe for
// concurrent use by multiple goroutines.
type Store interface {
	// Get returns the value stored at key, or domain.ErrNotFound if absent.
	Get(ctx context.Context, key string) (string, error)

	// SetIfAbsent atomically stores value at key only if key does not
	// already exist, applying ttl. Returns true if this call won the
	// claim, false if the key was already present.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// SetWithTTL unconditionally stores value at key with the given ttl.
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error

	// TTL returns the remaining time-to-live for key. A non-positive
	// duration means the key is absent or has no expiry.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// ScanPrefix returns every key currently stored under the given prefix.
	// Used once at startup to hydrate the cooldown registry.
	ScanPrefix(ctx context.Context, prefix string) ([]string, error)

	// Ping verifies connectivity to the store.
	Ping(ctx context.Context) error
}
