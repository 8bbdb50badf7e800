package queue

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/ports"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/pkg/metrics"
)

const (
	defaultInterval  = time.Minute
	defaultBatchSize = 100
)

// Replayer drains the audit dead-letter sink back into the primary audit
// store. Letters are replayed oldest first so the log keeps its order.
type Replayer struct {
	letters  ports.AuditDeadLetters
	audit    ports.AuditRepository
	interval time.Duration
	batch    int64
	log      zerolog.Logger
}

// NewReplayer creates a Replayer polling every interval. Non-positive
// values fall back to defaults.
func NewReplayer(letters ports.AuditDeadLetters, audit ports.AuditRepository, interval time.Duration, batch int, log zerolog.Logger) *Replayer {
	if interval <= 0 {
		interval = defaultInterval
	}
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Replayer{
		letters:  letters,
		audit:    audit,
		interval: interval,
		batch:    int64(batch),
		log:      log,
	}
}

// Start launches the worker goroutine. It stops when ctx is cancelled; the
// returned channel is closed once it has.
func (r *Replayer) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.run(ctx)
	}()
	return done
}

func (r *Replayer) run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Drain(ctx); err != nil {
				r.log.Warn().Err(err).Msg("audit replay pass stopped")
			}
		}
	}
}

// Drain replays one batch and returns how many letters were written back.
// It stops at the first event the primary store refuses for a transient
// reason. Events the store can never accept do not block the queue: one
// whose actor has since been erased is replayed without the actor, and
// anything still refused is parked.
func (r *Replayer) Drain(ctx context.Context) (int, error) {
	events, err := r.letters.Oldest(ctx, r.batch)
	if err != nil {
		return 0, err
	}

	replayed := 0
	for i := range events {
		e := &events[i]
		err := r.audit.Insert(ctx, e)
		if permanent(err) && e.ActorID != "" {
			orphan := *e
			orphan.ActorID = ""
			if err = r.audit.Insert(ctx, &orphan); err == nil {
				metrics.AuditFallbackTotal.WithLabelValues("orphaned").Inc()
			}
		}
		if permanent(err) {
			if err := r.letters.Park(ctx, e.ID, err); err != nil {
				return replayed, err
			}
			metrics.AuditFallbackTotal.WithLabelValues("parked").Inc()
			r.log.Warn().Err(err).Str("event_id", e.ID).Str("action", e.Action).Msg("audit dead letter parked")
			continue
		}
		// A conflict means an earlier attempt reached the store after all.
		if err != nil && !errors.Is(err, domain.ErrConflict) {
			return replayed, err
		}
		if err := r.letters.Remove(ctx, e.ID); err != nil {
			return replayed, err
		}
		metrics.AuditFallbackTotal.WithLabelValues("replayed").Inc()
		replayed++
	}
	if replayed > 0 {
		r.log.Info().Int("replayed", replayed).Msg("audit dead letters replayed")
	}
	return replayed, nil
}

// permanent reports whether retrying err can never succeed.
func permanent(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation)
}
