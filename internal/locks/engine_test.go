package locks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() (*Engine, *MemoryStore) {
	store := NewMemoryStore()
	return NewEngine(store), store
}

func TestTryLockSeats_Success(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine()

	err := engine.TryLockSeats(ctx, map[int64][]int64{10: {1, 2}, 20: {3}}, "token-a", 30*time.Second)
	require.NoError(t, err)

	// Every seat key carries the holder token.
	holder, err := engine.HolderOf(ctx, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, "token-a", holder)

	// Locked sets and both reverse indexes are maintained.
	locked, err := store.SMembers(ctx, TripLockedSetKey(10))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, locked)

	sessionTrips, err := store.SMembers(ctx, SessionTripsKey("token-a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "20"}, sessionTrips)

	sessionSeats, err := store.SMembers(ctx, SessionSeatsKey("token-a", 20))
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, sessionSeats)

	// The session marker is armed with the hold TTL.
	ttl, err := store.TTL(ctx, SessionTTLKey("token-a"))
	require.NoError(t, err)
	assert.InDelta(t, 30, ttl.Seconds(), 1)
}

func TestTryLockSeats_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine()

	require.NoError(t, engine.TryLockSeats(ctx, map[int64][]int64{10: {2}}, "token-a", 30*time.Second))

	// token-b asks for a free seat and a held one: nothing may be written.
	err := engine.TryLockSeats(ctx, map[int64][]int64{10: {1, 2}}, "token-b", 30*time.Second)
	require.Error(t, err)

	conflictErr, ok := AsConflictError(err)
	require.True(t, ok)
	require.Len(t, conflictErr.Conflicts, 1)
	assert.Equal(t, Conflict{TripID: 10, SeatID: 2, Kind: ConflictLocked}, conflictErr.Conflicts[0])

	// The free seat was not locked for the loser.
	holder, err := engine.HolderOf(ctx, 10, 1)
	require.NoError(t, err)
	assert.Empty(t, holder)

	members, err := store.SMembers(ctx, SessionTripsKey("token-b"))
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestTryLockSeats_SameTokenRelock(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine()

	require.NoError(t, engine.TryLockSeats(ctx, map[int64][]int64{10: {1}}, "token-a", 30*time.Second))
	// Re-locking your own seat extends the hold instead of conflicting.
	require.NoError(t, engine.TryLockSeats(ctx, map[int64][]int64{10: {1, 2}}, "token-a", 30*time.Second))

	holder, err := engine.HolderOf(ctx, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, "token-a", holder)
}

func TestTryLockSeats_BookedConflict(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine()

	require.NoError(t, store.SAdd(ctx, TripBookedSetKey(10), "5"))

	err := engine.TryLockSeats(ctx, map[int64][]int64{10: {5}}, "token-a", 30*time.Second)
	conflictErr, ok := AsConflictError(err)
	require.True(t, ok)
	require.Len(t, conflictErr.Conflicts, 1)
	assert.Equal(t, ConflictBooked, conflictErr.Conflicts[0].Kind)
	assert.Contains(t, err.Error(), "already booked")
}

func TestTryLockSeats_ExpiredLockIsFree(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	engine := NewEngine(store)

	now := time.Now()
	store.SetClock(func() time.Time { return now })

	require.NoError(t, engine.TryLockSeats(ctx, map[int64][]int64{10: {1}}, "token-a", 30*time.Second))

	// After the TTL passes the seat is lockable by someone else.
	now = now.Add(31 * time.Second)
	require.NoError(t, engine.TryLockSeats(ctx, map[int64][]int64{10: {1}}, "token-b", 30*time.Second))

	holder, err := engine.HolderOf(ctx, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, "token-b", holder)
}

func TestTryLockSeats_Validation(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine()

	err := engine.TryLockSeats(ctx, nil, "token-a", time.Second)
	assert.ErrorIs(t, err, ErrEmptyRequest)

	err = engine.TryLockSeats(ctx, map[int64][]int64{10: {}}, "token-a", time.Second)
	assert.ErrorIs(t, err, ErrEmptyRequest)

	err = engine.TryLockSeats(ctx, map[int64][]int64{10: {-1}}, "token-a", time.Second)
	assert.ErrorIs(t, err, ErrInvalidSeatID)

	err = engine.TryLockSeats(ctx, map[int64][]int64{0: {1}}, "token-a", time.Second)
	assert.ErrorIs(t, err, ErrInvalidSeatID)

	err = engine.TryLockSeats(ctx, map[int64][]int64{10: {1}}, "", time.Second)
	assert.Error(t, err)
}

func TestTryLockSeats_DuplicateSeatsDeduped(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine()

	require.NoError(t, engine.TryLockSeats(ctx, map[int64][]int64{10: {1, 1, 1}}, "token-a", 30*time.Second))

	locked, err := store.SMembers(ctx, TripLockedSetKey(10))
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, locked)
}

func TestMarkSeatsBooked(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine()

	require.NoError(t, engine.TryLockSeats(ctx, map[int64][]int64{10: {1, 2}}, "token-a", 30*time.Second))
	require.NoError(t, engine.MarkSeatsBooked(ctx, map[int64][]int64{10: {1, 2}}))

	// Seats moved from locked to booked, seat keys dropped.
	booked, err := engine.IsBooked(ctx, 10, 1)
	require.NoError(t, err)
	assert.True(t, booked)

	locked, err := store.SMembers(ctx, TripLockedSetKey(10))
	require.NoError(t, err)
	assert.Empty(t, locked)

	holder, err := engine.HolderOf(ctx, 10, 1)
	require.NoError(t, err)
	assert.Empty(t, holder)

	// A new session sees the seats as permanently taken.
	err = engine.TryLockSeats(ctx, map[int64][]int64{10: {1}}, "token-b", 30*time.Second)
	conflictErr, ok := AsConflictError(err)
	require.True(t, ok)
	assert.Equal(t, ConflictBooked, conflictErr.Conflicts[0].Kind)
}

func TestClearSession(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine()

	require.NoError(t, engine.TryLockSeats(ctx, map[int64][]int64{10: {1}, 20: {2}}, "token-a", 30*time.Second))
	require.NoError(t, engine.ClearSession(ctx, "token-a"))

	for _, key := range []string{
		SessionTripsKey("token-a"),
		SessionSeatsKey("token-a", 10),
		SessionSeatsKey("token-a", 20),
	} {
		members, err := store.SMembers(ctx, key)
		require.NoError(t, err)
		assert.Empty(t, members, key)
	}

	marker, err := store.Get(ctx, SessionTTLKey("token-a"))
	require.NoError(t, err)
	assert.Empty(t, marker)
}

func TestAdminBookAndReleaseSeat(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine()

	require.NoError(t, engine.AdminBookSeat(ctx, 10, 5))
	booked, err := engine.IsBooked(ctx, 10, 5)
	require.NoError(t, err)
	assert.True(t, booked)

	require.NoError(t, engine.AdminReleaseSeat(ctx, 10, 5))
	booked, err = engine.IsBooked(ctx, 10, 5)
	require.NoError(t, err)
	assert.False(t, booked)
}
