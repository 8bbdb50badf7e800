package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/ports"
)

// AuditRepository stores audit events in the append-only audit_logs table.
// It exposes no update or delete; rows leave only through erasure or a
// retention purge.
type AuditRepository struct {
	repo
}

var _ ports.AuditRepository = (*AuditRepository)(nil)

// NewAuditRepository returns an AuditRepository.
func NewAuditRepository(db *sqlx.DB, timeout time.Duration) *AuditRepository {
	return &AuditRepository{repo: newRepo(db, timeout)}
}

type auditRow struct {
	ID           string         `db:"id"`
	UserID       sql.NullString `db:"user_id"`
	Action       string         `db:"action"`
	ResourceType string         `db:"resource_type"`
	ResourceID   sql.NullString `db:"resource_id"`
	Detail       []byte         `db:"detail"`
	Origin       sql.NullString `db:"origin"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r auditRow) toDomain() domain.AuditEvent {
	e := domain.AuditEvent{
		ID:           r.ID,
		ActorID:      r.UserID.String,
		Action:       r.Action,
		ResourceType: r.ResourceType,
		ResourceID:   r.ResourceID.String,
		Origin:       r.Origin.String,
		CreatedAt:    r.CreatedAt,
	}
	if len(r.Detail) > 0 {
		_ = json.Unmarshal(r.Detail, &e.Detail)
	}
	return e
}

// Insert appends e.
func (r *AuditRepository) Insert(ctx context.Context, e *domain.AuditEvent) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	detail := []byte("{}")
	if len(e.Detail) > 0 {
		b, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("encode audit detail: %w", err)
		}
		detail = b
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, user_id, action, resource_type, resource_id, detail, origin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, nullIfEmpty(e.ActorID), e.Action, e.ResourceType, nullIfEmpty(e.ResourceID), detail, nullIfEmpty(e.Origin), e.CreatedAt,
	)
	if err != nil {
		return storeErr("insert audit event", err)
	}
	return nil
}

// ListByActor returns up to limit events performed by actorID, newest first.
func (r *AuditRepository) ListByActor(ctx context.Context, actorID string, limit int) ([]domain.AuditEvent, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var rows []auditRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, action, resource_type, resource_id, detail, origin, created_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, actorID, limit)
	if err != nil {
		return nil, storeErr("list audit events", err)
	}
	events := make([]domain.AuditEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toDomain())
	}
	return events, nil
}

// CountTaggedSince counts events of resourceType by actorID at or after since.
func (r *AuditRepository) CountTaggedSince(ctx context.Context, actorID, resourceType string, since time.Time) (int64, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var n int64
	err := r.db.GetContext(ctx, &n, `
		SELECT count(*) FROM audit_logs
		WHERE user_id = $1 AND resource_type = $2 AND created_at >= $3`, actorID, resourceType, since)
	if err != nil {
		return 0, storeErr("count audit events", err)
	}
	return n, nil
}
