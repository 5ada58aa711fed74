package expiry

import (
	"context"
	"testing"
	"time"

	"busly/internal/locks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_ReleasesOverdueSessions(t *testing.T) {
	ctx := context.Background()
	store := locks.NewMemoryStore()
	engine := locks.NewEngine(store)
	draftsRepo := &fakeDraftsRepo{overdueTokens: []string{"token-a"}}
	broadcaster := &fakeBroadcaster{}
	reconciler := NewReconciler(store, draftsRepo, broadcaster, nil)
	sweeper := NewSweeper(draftsRepo, reconciler, time.Minute, nil)

	require.NoError(t, engine.TryLockSeats(ctx, map[int64][]int64{10: {1, 2}}, "token-a", 30*time.Second))

	sweeper.sweep(ctx)

	// The overdue session's seats are lockable again.
	require.NoError(t, engine.TryLockSeats(ctx, map[int64][]int64{10: {1, 2}}, "token-b", 30*time.Second))

	assert.Equal(t, []string{"token-a"}, draftsRepo.expiredSessions)
	require.Len(t, broadcaster.unlocked, 1)
	assert.ElementsMatch(t, []int64{1, 2}, broadcaster.unlocked[0][10])
}

func TestSweep_NothingOverdueIsQuiet(t *testing.T) {
	ctx := context.Background()
	store := locks.NewMemoryStore()
	draftsRepo := &fakeDraftsRepo{}
	broadcaster := &fakeBroadcaster{}
	reconciler := NewReconciler(store, draftsRepo, broadcaster, nil)
	sweeper := NewSweeper(draftsRepo, reconciler, time.Minute, nil)

	sweeper.sweep(ctx)

	assert.Empty(t, draftsRepo.expiredSessions)
	assert.Empty(t, broadcaster.unlocked)
}
