package expiry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"busly/internal/locks"
	"busly/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Listener subscribes to Redis keyspace expiry events and dispatches
// session releases to a bounded worker pool. Only the session TTL marker
// triggers work; seat lock keys expiring on their own are ignored.
//
// Requires notify-keyspace-events to include "Ex"; database init sets this
// at startup.
type Listener struct {
	client     *redis.Client
	db         int
	reconciler *Reconciler
	workers    int
	log        *logger.Logger
}

func NewListener(client *redis.Client, db int, reconciler *Reconciler, workers int, log *logger.Logger) *Listener {
	if workers <= 0 {
		workers = 4
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &Listener{
		client:     client,
		db:         db,
		reconciler: reconciler,
		workers:    workers,
		log:        log,
	}
}

// Run blocks until ctx is cancelled, reconnecting the subscription on
// failure.
func (l *Listener) Run(ctx context.Context) {
	tokens := make(chan string, l.workers*4)

	var wg sync.WaitGroup
	for i := 0; i < l.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for token := range tokens {
				if _, err := l.reconciler.ReleaseSession(ctx, token); err != nil {
					l.log.WithError(err).WithSession(token).ErrorContext(ctx, "session release failed")
				}
			}
		}()
	}

	pattern := fmt.Sprintf("__keyevent@%d__:expired", l.db)
	for {
		if err := l.subscribe(ctx, pattern, tokens); err != nil {
			l.log.WithError(err).WarnContext(ctx, "expiry subscription lost, reconnecting")
		}
		select {
		case <-ctx.Done():
			close(tokens)
			wg.Wait()
			return
		case <-time.After(time.Second):
		}
	}
}

func (l *Listener) subscribe(ctx context.Context, pattern string, tokens chan<- string) error {
	pubsub := l.client.PSubscribe(ctx, pattern)
	defer pubsub.Close()

	l.log.InfoContext(ctx, "expiry listener subscribed", "pattern", pattern)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription channel closed")
			}
			token, match := locks.ParseSessionTTLKey(msg.Payload)
			if !match {
				continue
			}
			select {
			case tokens <- token:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
