package ports

import (
	"context"
	"time"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
)

// AuditRepository is the append-only audit_logs store.
type AuditRepository interface {
	Insert(ctx context.Context, event *domain.AuditEvent) error
	// ListByActor returns the newest events first.
	ListByActor(ctx context.Context, actorID string, limit int) ([]domain.AuditEvent, error)
	// CountTaggedSince counts events of resourceType performed by actorID
	// at or after since.
	CountTaggedSince(ctx context.Context, actorID, resourceType string, since time.Time) (int64, error)
}

// AuditFallback receives audit events that could not be written to the
// primary store.
type AuditFallback interface {
	Store(ctx context.Context, event *domain.AuditEvent, cause error) error
}

// AuditDeadLetters is the read side of the fallback sink, drained by the
// replay worker. Oldest skips parked letters.
type AuditDeadLetters interface {
	Oldest(ctx context.Context, limit int64) ([]domain.AuditEvent, error)
	Remove(ctx context.Context, id string) error
	// Park sets aside a letter the primary store will never accept.
	Park(ctx context.Context, id string, cause error) error
}

// DeadLetterEraser removes every dead letter an erased subject performed.
type DeadLetterEraser interface {
	RemoveByActor(ctx context.Context, actorID string) (int64, error)
}

// AuditRecorder is implemented by the audit log writer. Record never
// fails the caller.
type AuditRecorder interface {
	Record(ctx context.Context, entry domain.AuditEntry)
}
