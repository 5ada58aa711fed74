package locks

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// DefaultHoldTTL is used when a caller passes a non-positive TTL.
const DefaultHoldTTL = 30 * time.Second

// Engine wraps a LockStore with request validation and the seat-status
// transitions the finalizer and admin paths need. All key derivation stays
// inside this package.
type Engine struct {
	store LockStore
}

// NewEngine creates a lock engine on top of a store.
func NewEngine(store LockStore) *Engine {
	return &Engine{store: store}
}

// Store exposes the underlying LockStore for components that enumerate
// session state (the expiry reconciler).
func (e *Engine) Store() LockStore {
	return e.store
}

// TryLockSeats locks every requested seat for token, all-or-nothing.
// Returns *ConflictError when any seat is booked or held by another
// session; any other error is an infrastructure failure.
func (e *Engine) TryLockSeats(ctx context.Context, req map[int64][]int64, token string, ttl time.Duration) error {
	if token == "" {
		return fmt.Errorf("holder token is required")
	}
	normalized, err := normalizeRequest(req)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}

	conflicts, err := e.store.TryLockSeats(ctx, normalized, token, ttl)
	if err != nil {
		return fmt.Errorf("seat lock store unavailable: %w", err)
	}
	if len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}
	return nil
}

// normalizeRequest validates and de-duplicates the seat request.
func normalizeRequest(req map[int64][]int64) (map[int64][]int64, error) {
	if len(req) == 0 {
		return nil, ErrEmptyRequest
	}
	normalized := make(map[int64][]int64, len(req))
	total := 0
	for tripID, seatIDs := range req {
		if tripID <= 0 {
			return nil, ErrInvalidSeatID
		}
		seen := make(map[int64]struct{}, len(seatIDs))
		var deduped []int64
		for _, seatID := range seatIDs {
			if seatID <= 0 {
				return nil, ErrInvalidSeatID
			}
			if _, dup := seen[seatID]; dup {
				continue
			}
			seen[seatID] = struct{}{}
			deduped = append(deduped, seatID)
		}
		if len(deduped) == 0 {
			continue
		}
		sort.Slice(deduped, func(i, j int) bool { return deduped[i] < deduped[j] })
		normalized[tripID] = deduped
		total += len(deduped)
	}
	if total == 0 {
		return nil, ErrEmptyRequest
	}
	return normalized, nil
}

// RemainingTTL reports how long a seat lock has left.
func (e *Engine) RemainingTTL(ctx context.Context, tripID, seatID int64) (time.Duration, error) {
	return e.store.TTL(ctx, SeatLockKey(tripID, seatID))
}

// HolderOf returns the token currently holding a seat, or "".
func (e *Engine) HolderOf(ctx context.Context, tripID, seatID int64) (string, error) {
	return e.store.Get(ctx, SeatLockKey(tripID, seatID))
}

// IsBooked reports whether a seat is in the trip's permanent booked set.
func (e *Engine) IsBooked(ctx context.Context, tripID, seatID int64) (bool, error) {
	return e.store.SIsMember(ctx, TripBookedSetKey(tripID), FormatID(seatID))
}

// MarkSeatsBooked moves seats from "locked" to "booked" after a booking
// commits, so a concurrent lock attempt immediately sees them as
// permanently taken. Session cleanup is a separate step (ClearSession).
func (e *Engine) MarkSeatsBooked(ctx context.Context, seatsByTrip map[int64][]int64) error {
	for tripID, seatIDs := range seatsByTrip {
		members := make([]string, 0, len(seatIDs))
		seatKeys := make([]string, 0, len(seatIDs))
		for _, seatID := range seatIDs {
			members = append(members, FormatID(seatID))
			seatKeys = append(seatKeys, SeatLockKey(tripID, seatID))
		}
		if err := e.store.SRem(ctx, TripLockedSetKey(tripID), members...); err != nil {
			return err
		}
		if err := e.store.SAdd(ctx, TripBookedSetKey(tripID), members...); err != nil {
			return err
		}
		if err := e.store.Del(ctx, seatKeys...); err != nil {
			return err
		}
	}
	return nil
}

// ClearSession drops the session TTL marker and both reverse indexes once
// a session's hold has been converted to a booking. Deleting the marker
// means no expiry event fires for this session; the reconciler stays
// idempotent either way, so racing it is harmless.
func (e *Engine) ClearSession(ctx context.Context, token string) error {
	tripMembers, err := e.store.SMembers(ctx, SessionTripsKey(token))
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(tripMembers)+2)
	for _, member := range tripMembers {
		tripID, err := ParseID(member)
		if err != nil {
			continue
		}
		keys = append(keys, SessionSeatsKey(token, tripID))
	}
	keys = append(keys, SessionTripsKey(token), SessionTTLKey(token))
	return e.store.Del(ctx, keys...)
}

// AdminBookSeat adds a single seat to the booked set (admin override path).
func (e *Engine) AdminBookSeat(ctx context.Context, tripID, seatID int64) error {
	return e.store.SAdd(ctx, TripBookedSetKey(tripID), FormatID(seatID))
}

// AdminReleaseSeat removes a single seat from the booked set and drops any
// stale lock key (admin override path).
func (e *Engine) AdminReleaseSeat(ctx context.Context, tripID, seatID int64) error {
	if err := e.store.SRem(ctx, TripBookedSetKey(tripID), FormatID(seatID)); err != nil {
		return err
	}
	return e.store.Del(ctx, SeatLockKey(tripID, seatID))
}
