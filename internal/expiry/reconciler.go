package expiry

import (
	"context"

	"busly/internal/drafts"
	"busly/internal/locks"
	"busly/internal/notifications"
	"busly/pkg/logger"
)

// Reconciler closes the loop when a session's hold lapses: every seat the
// session still holds is released, the reverse indexes are torn down and
// the session's open drafts are expired. It is driven by the keyspace
// listener and, as a safety net, by the sweeper; both may hand it the same
// token and the second pass is a no-op.
type Reconciler struct {
	store       locks.LockStore
	draftsRepo  drafts.Repository
	broadcaster notifications.Broadcaster
	log         *logger.Logger
}

func NewReconciler(store locks.LockStore, draftsRepo drafts.Repository, broadcaster notifications.Broadcaster, log *logger.Logger) *Reconciler {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Reconciler{
		store:       store,
		draftsRepo:  draftsRepo,
		broadcaster: broadcaster,
		log:         log,
	}
}

// ReleaseSession releases everything a session holds. Seats re-locked by
// another session in the meantime are left alone. Returns the seats that
// were actually freed, grouped by trip.
func (r *Reconciler) ReleaseSession(ctx context.Context, token string) (map[int64][]int64, error) {
	tripMembers, err := r.store.SMembers(ctx, locks.SessionTripsKey(token))
	if err != nil {
		return nil, err
	}

	released := make(map[int64][]int64)
	for _, tripMember := range tripMembers {
		tripID, err := locks.ParseID(tripMember)
		if err != nil {
			r.log.WarnContext(ctx, "skipping malformed trip member", "member", tripMember)
			continue
		}

		seatMembers, err := r.store.SMembers(ctx, locks.SessionSeatsKey(token, tripID))
		if err != nil {
			return released, err
		}
		for _, seatMember := range seatMembers {
			seatID, err := locks.ParseID(seatMember)
			if err != nil {
				continue
			}

			freed, err := r.releaseSeat(ctx, token, tripID, seatID)
			if err != nil {
				return released, err
			}
			if freed {
				released[tripID] = append(released[tripID], seatID)
			}
		}

		if err := r.store.Del(ctx, locks.SessionSeatsKey(token, tripID)); err != nil {
			return released, err
		}
	}

	err = r.store.Del(ctx, locks.SessionTripsKey(token), locks.SessionTTLKey(token))
	if err != nil {
		return released, err
	}

	expired, err := r.draftsRepo.ExpireSessionDrafts(ctx, token)
	if err != nil {
		return released, err
	}

	seatCount := 0
	for _, seats := range released {
		seatCount += len(seats)
	}
	if seatCount > 0 {
		if err := r.broadcaster.SeatsUnlocked(ctx, released); err != nil {
			r.log.WithError(err).WarnContext(ctx, "seat unlock broadcast failed")
		}
	}
	if seatCount > 0 || expired > 0 {
		r.log.LogSessionReleased(ctx, token, seatCount)
	}
	return released, nil
}

// releaseSeat frees one seat if this session still holds it. The seat key
// usually expired together with the session marker, in which case only the
// locked-set entry remains to clean up.
func (r *Reconciler) releaseSeat(ctx context.Context, token string, tripID, seatID int64) (bool, error) {
	holder, err := r.store.Get(ctx, locks.SeatLockKey(tripID, seatID))
	if err != nil {
		return false, err
	}
	if holder != "" && holder != token {
		// Re-locked by another session already; not ours to free.
		return false, nil
	}

	if holder == token {
		if err := r.store.Del(ctx, locks.SeatLockKey(tripID, seatID)); err != nil {
			return false, err
		}
	}

	member := locks.FormatID(seatID)
	wasLocked, err := r.store.SIsMember(ctx, locks.TripLockedSetKey(tripID), member)
	if err != nil {
		return false, err
	}
	if !wasLocked {
		return false, nil
	}
	if err := r.store.SRem(ctx, locks.TripLockedSetKey(tripID), member); err != nil {
		return false, err
	}
	return true, nil
}
