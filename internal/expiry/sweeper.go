package expiry

import (
	"context"
	"time"

	"busly/internal/drafts"
	"busly/pkg/logger"
)

const sweepBatchSize = 100

// Sweeper is the safety net behind the keyspace listener: on an interval
// it finds drafts whose expires_at passed while still open and releases
// their sessions through the same path. Keyspace notifications are
// fire-and-forget in Redis, so a missed event only delays cleanup by one
// sweep.
type Sweeper struct {
	draftsRepo drafts.Repository
	reconciler *Reconciler
	interval   time.Duration
	log        *logger.Logger
}

func NewSweeper(draftsRepo drafts.Repository, reconciler *Reconciler, interval time.Duration, log *logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &Sweeper{
		draftsRepo: draftsRepo,
		reconciler: reconciler,
		interval:   interval,
		log:        log,
	}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	tokens, err := s.draftsRepo.FindOverdue(ctx, time.Now().UTC(), sweepBatchSize)
	if err != nil {
		s.log.WithError(err).ErrorContext(ctx, "overdue draft scan failed")
		return
	}
	if len(tokens) == 0 {
		return
	}

	s.log.InfoContext(ctx, "sweeping overdue sessions", "count", len(tokens))
	for _, token := range tokens {
		if _, err := s.reconciler.ReleaseSession(ctx, token); err != nil {
			s.log.WithError(err).WithSession(token).ErrorContext(ctx, "sweep release failed")
		}
	}
}
