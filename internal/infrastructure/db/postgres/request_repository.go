package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/ports"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/pkg/ids"
)

// RequestRepository stores data-subject requests, one row per subject email
// and request type.
type RequestRepository struct {
	repo
}

var _ ports.DataRequestRepository = (*RequestRepository)(nil)

// NewRequestRepository returns a RequestRepository.
func NewRequestRepository(db *sqlx.DB, timeout time.Duration) *RequestRepository {
	return &RequestRepository{repo: newRepo(db, timeout)}
}

type requestRow struct {
	ID           string         `db:"id"`
	RequestType  string         `db:"request_type"`
	SubjectEmail string         `db:"subject_email"`
	RequestedBy  sql.NullString `db:"requested_by"`
	Status       string         `db:"status"`
	Reason       sql.NullString `db:"reason"`
	Payload      []byte         `db:"payload"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	CompletedAt  sql.NullTime   `db:"completed_at"`
}

func (r requestRow) toDomain() domain.DataSubjectRequest {
	req := domain.DataSubjectRequest{
		ID:           r.ID,
		Type:         domain.RequestType(r.RequestType),
		SubjectEmail: r.SubjectEmail,
		RequestedBy:  r.RequestedBy.String,
		Status:       domain.RequestStatus(r.Status),
		Reason:       r.Reason.String,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if len(r.Payload) > 0 {
		req.Payload = json.RawMessage(r.Payload)
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		req.CompletedAt = &t
	}
	return req
}

// The unique (subject_email, request_type) index makes a repeated request
// update the existing row instead of adding one.
const upsertRequestSQL = `
INSERT INTO gdpr_requests (id, request_type, subject_email, requested_by, status, reason, payload, completed_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
ON CONFLICT (subject_email, request_type) DO UPDATE SET
	requested_by = EXCLUDED.requested_by,
	status       = EXCLUDED.status,
	reason       = EXCLUDED.reason,
	payload      = EXCLUDED.payload,
	completed_at = EXCLUDED.completed_at,
	updated_at   = now()
RETURNING id, created_at, updated_at`

// Upsert writes the row for (req.SubjectEmail, req.Type).
func (r *RequestRepository) Upsert(ctx context.Context, req *domain.DataSubjectRequest) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()
	return upsertRequest(ctx, r.db, req)
}

func upsertRequest(ctx context.Context, q sqlx.QueryerContext, req *domain.DataSubjectRequest) error {
	var payload any
	if len(req.Payload) > 0 {
		payload = []byte(req.Payload)
	}
	var completed sql.NullTime
	if req.CompletedAt != nil {
		completed = sql.NullTime{Time: *req.CompletedAt, Valid: true}
	}

	err := q.QueryRowxContext(ctx, upsertRequestSQL,
		ids.New(),
		string(req.Type),
		domain.NormalizeEmail(req.SubjectEmail),
		nullIfEmpty(req.RequestedBy),
		string(req.Status),
		nullIfEmpty(req.Reason),
		payload,
		completed,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return storeErr("upsert data request", err)
	}
	return nil
}

// ListBySubject returns every request recorded for email.
func (r *RequestRepository) ListBySubject(ctx context.Context, email string) ([]domain.DataSubjectRequest, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var rows []requestRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, request_type, subject_email, requested_by, status, reason, payload, created_at, updated_at, completed_at
		FROM gdpr_requests WHERE subject_email = $1
		ORDER BY created_at`, domain.NormalizeEmail(email))
	if err != nil {
		return nil, storeErr("list data requests", err)
	}
	out := make([]domain.DataSubjectRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Rectify applies update and records req in one transaction.
func (r *RequestRepository) Rectify(ctx context.Context, accountID string, update domain.ProfileUpdate, req *domain.DataSubjectRequest) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	return r.inTx(ctx, nil, "rectification", func(tx *sqlx.Tx) error {
		if err := updateProfile(ctx, tx, accountID, update); err != nil {
			return err
		}
		return upsertRequest(ctx, tx, req)
	})
}
