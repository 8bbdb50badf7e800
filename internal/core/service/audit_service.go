package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/ports"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/pkg/ids"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/pkg/metrics"
)

const auditWriteTimeout = 5 * time.Second

// AuditWriter records audit events. A failed write never reaches the caller:
// it is raised on the operational log and diverted to the fallback sink.
type AuditWriter struct {
	repo     ports.AuditRepository
	fallback ports.AuditFallback
	log      zerolog.Logger
	now      func() time.Time
}

var _ ports.AuditRecorder = (*AuditWriter)(nil)

// NewAuditWriter returns an AuditWriter. fallback may be nil.
func NewAuditWriter(repo ports.AuditRepository, fallback ports.AuditFallback, log zerolog.Logger) *AuditWriter {
	return &AuditWriter{repo: repo, fallback: fallback, log: log, now: time.Now}
}

// Record appends entry to the audit log.
func (w *AuditWriter) Record(ctx context.Context, entry domain.AuditEntry) {
	origin := entry.Origin
	if origin == "" {
		origin = domain.OriginFromContext(ctx)
	}
	event := &domain.AuditEvent{
		ID:           ids.New(),
		ActorID:      entry.ActorID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Detail:       entry.Detail,
		Origin:       origin,
		CreatedAt:    w.now().UTC(),
	}

	// The business operation has already happened; a caller disconnecting
	// must not drop its record.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	err := w.repo.Insert(writeCtx, event)
	if err == nil {
		metrics.AuditWritesTotal.WithLabelValues("ok").Inc()
		return
	}

	metrics.AuditWritesTotal.WithLabelValues("failed").Inc()
	w.log.Error().
		Err(err).
		Bool("alert", true).
		Str("audit_id", event.ID).
		Str("action", event.Action).
		Str("resource_type", event.ResourceType).
		Str("resource_id", event.ResourceID).
		Msg("audit write failed")

	if w.fallback == nil {
		metrics.AuditFallbackTotal.WithLabelValues("lost").Inc()
		return
	}
	if ferr := w.fallback.Store(writeCtx, event, err); ferr != nil {
		metrics.AuditFallbackTotal.WithLabelValues("lost").Inc()
		w.log.Error().
			Err(ferr).
			Bool("alert", true).
			Str("audit_id", event.ID).
			Str("action", event.Action).
			Msg("audit fallback write failed, event lost")
		return
	}
	metrics.AuditFallbackTotal.WithLabelValues("stored").Inc()
}
