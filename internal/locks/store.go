package locks

import (
	"context"
	"time"
)

// LockStore is the shared key/value store behind the seat reservation
// pipeline. It exposes exactly the primitives the pipeline uses plus one
// atomic multi-seat operation; implementations must guarantee that
// TryLockSeats performs its read-check-then-write across all requested
// seats indivisibly. Inject it rather than reaching for a global client so
// tests can substitute an in-memory implementation with the same contract.
type LockStore interface {
	// TryLockSeats atomically locks every seat in req (tripID -> seat ids)
	// for token with the given TTL, or locks nothing and returns the full
	// conflict list. A seat already held by the same token is not a
	// conflict. On success it also maintains the trip locked sets, both
	// session reverse indexes, and (re)arms the session TTL marker.
	TryLockSeats(ctx context.Context, req map[int64][]int64, token string, ttl time.Duration) ([]Conflict, error)

	// Get returns the value at key, or "" if the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// SetWithTTL sets key to value with an expiry.
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error

	// Del removes keys; missing keys are not an error.
	Del(ctx context.Context, keys ...string) error

	// TTL returns the remaining time-to-live of key. Zero means the key
	// is absent or carries no expiry.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Set membership primitives.
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
