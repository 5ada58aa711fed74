package expiry

import (
	"context"
	"testing"
	"time"

	"busly/internal/drafts"
	"busly/internal/locks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDraftsRepo struct {
	expiredSessions []string
	overdueTokens   []string
}

func (f *fakeDraftsRepo) CreateDraft(ctx context.Context, draft *drafts.DraftCheckout) error {
	return nil
}

func (f *fakeDraftsRepo) GetByID(ctx context.Context, id uuid.UUID) (*drafts.DraftCheckout, error) {
	return nil, drafts.ErrDraftNotFound
}

func (f *fakeDraftsRepo) CancelActiveForSession(ctx context.Context, sessionToken string, except *uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeDraftsRepo) ExpireSessionDrafts(ctx context.Context, sessionToken string) (int64, error) {
	f.expiredSessions = append(f.expiredSessions, sessionToken)
	return 1, nil
}

func (f *fakeDraftsRepo) SetPaying(ctx context.Context, id uuid.UUID, provider, intentID string) (*drafts.DraftCheckout, error) {
	return nil, drafts.ErrDraftNotFound
}

func (f *fakeDraftsRepo) ApplyCoupon(ctx context.Context, id uuid.UUID, code string, discount, total float64) (*drafts.DraftCheckout, error) {
	return nil, drafts.ErrDraftNotFound
}

func (f *fakeDraftsRepo) FindOverdue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	return f.overdueTokens, nil
}

type fakeBroadcaster struct {
	unlocked []map[int64][]int64
}

func (f *fakeBroadcaster) SeatsLocked(ctx context.Context, seatsByTrip map[int64][]int64) error {
	return nil
}

func (f *fakeBroadcaster) SeatsUnlocked(ctx context.Context, seatsByTrip map[int64][]int64) error {
	f.unlocked = append(f.unlocked, seatsByTrip)
	return nil
}

func (f *fakeBroadcaster) SeatBooked(ctx context.Context, bookingID string, seatsByTrip map[int64][]int64) error {
	return nil
}

func (f *fakeBroadcaster) Close() error { return nil }

func TestReleaseSession_FreesHeldSeats(t *testing.T) {
	ctx := context.Background()
	store := locks.NewMemoryStore()
	engine := locks.NewEngine(store)
	draftsRepo := &fakeDraftsRepo{}
	broadcaster := &fakeBroadcaster{}
	reconciler := NewReconciler(store, draftsRepo, broadcaster, nil)

	require.NoError(t, engine.TryLockSeats(ctx, map[int64][]int64{10: {1, 2}, 20: {3}}, "token-a", 30*time.Second))

	released, err := reconciler.ReleaseSession(ctx, "token-a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, released[10])
	assert.ElementsMatch(t, []int64{3}, released[20])

	// The seats are lockable again by another session.
	require.NoError(t, engine.TryLockSeats(ctx, map[int64][]int64{10: {1, 2}}, "token-b", 30*time.Second))

	// Reverse indexes are gone.
	members, err := store.SMembers(ctx, locks.SessionTripsKey("token-a"))
	require.NoError(t, err)
	assert.Empty(t, members)

	// Drafts were expired and one unlock event went out.
	assert.Equal(t, []string{"token-a"}, draftsRepo.expiredSessions)
	require.Len(t, broadcaster.unlocked, 1)
}

func TestReleaseSession_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := locks.NewMemoryStore()
	engine := locks.NewEngine(store)
	draftsRepo := &fakeDraftsRepo{}
	broadcaster := &fakeBroadcaster{}
	reconciler := NewReconciler(store, draftsRepo, broadcaster, nil)

	require.NoError(t, engine.TryLockSeats(ctx, map[int64][]int64{10: {1}}, "token-a", 30*time.Second))

	_, err := reconciler.ReleaseSession(ctx, "token-a")
	require.NoError(t, err)

	// Second pass (listener and sweeper racing) finds nothing to free and
	// broadcasts nothing new.
	released, err := reconciler.ReleaseSession(ctx, "token-a")
	require.NoError(t, err)
	assert.Empty(t, released)
	assert.Len(t, broadcaster.unlocked, 1)
}

func TestReleaseSession_UnknownTokenIsNoop(t *testing.T) {
	ctx := context.Background()
	store := locks.NewMemoryStore()
	draftsRepo := &fakeDraftsRepo{}
	broadcaster := &fakeBroadcaster{}
	reconciler := NewReconciler(store, draftsRepo, broadcaster, nil)

	released, err := reconciler.ReleaseSession(ctx, "never-seen")
	require.NoError(t, err)
	assert.Empty(t, released)
	assert.Empty(t, broadcaster.unlocked)
}

func TestReleaseSession_SkipsRelockedSeat(t *testing.T) {
	ctx := context.Background()
	store := locks.NewMemoryStore()
	engine := locks.NewEngine(store)
	draftsRepo := &fakeDraftsRepo{}
	broadcaster := &fakeBroadcaster{}
	reconciler := NewReconciler(store, draftsRepo, broadcaster, nil)

	now := time.Now()
	store.SetClock(func() time.Time { return now })

	require.NoError(t, engine.TryLockSeats(ctx, map[int64][]int64{10: {1}}, "token-a", 30*time.Second))

	// token-a's hold lapses and token-b grabs the seat before the
	// reconciler runs.
	now = now.Add(31 * time.Second)
	require.NoError(t, engine.TryLockSeats(ctx, map[int64][]int64{10: {1}}, "token-b", 30*time.Second))

	released, err := reconciler.ReleaseSession(ctx, "token-a")
	require.NoError(t, err)
	assert.Empty(t, released)

	// token-b still holds the seat.
	holder, err := engine.HolderOf(ctx, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, "token-b", holder)

	lockedSet, err := store.SIsMember(ctx, locks.TripLockedSetKey(10), "1")
	require.NoError(t, err)
	assert.True(t, lockedSet)
}

func TestParseSessionTTLKeyFiltering(t *testing.T) {
	// The listener must act only on session markers.
	token, ok := locks.ParseSessionTTLKey("session:token-a:ttl")
	require.True(t, ok)
	assert.Equal(t, "token-a", token)

	_, ok = locks.ParseSessionTTLKey("seat:10:1")
	assert.False(t, ok)
}
