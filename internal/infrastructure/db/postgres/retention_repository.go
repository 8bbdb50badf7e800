package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/ports"
)

// An account is past retention once it is not active and was created before
// the cutoff.
const accountExpired = `status <> 'active' AND created_at < $1`

// expiredWhere holds the retention predicate of each table. Keys double as
// the table whitelist; table names are never taken from input.
var expiredWhere = map[string]string{
	domain.TableAuditLogs:    `created_at < $1`,
	domain.TableGDPRRequests: `created_at < $1`,
	domain.TableDocuments:    `created_at < $1`,
	domain.TableAccounts:     accountExpired,
}

// purgeWhere narrows expiredWhere to rows a DELETE can remove. An expired
// account that still owns documents or audit rows is reported by the
// compliance check but kept until those rows age out.
var purgeWhere = map[string]string{
	domain.TableAuditLogs:    expiredWhere[domain.TableAuditLogs],
	domain.TableGDPRRequests: expiredWhere[domain.TableGDPRRequests],
	domain.TableDocuments:    expiredWhere[domain.TableDocuments],
	domain.TableAccounts: accountExpired + `
	AND NOT EXISTS (SELECT 1 FROM documents d WHERE d.uploaded_by = accounts.id)
	AND NOT EXISTS (SELECT 1 FROM audit_logs l WHERE l.user_id = accounts.id)`,
}

// RetentionRepository stores retention policies and applies them.
type RetentionRepository struct {
	repo
}

var _ ports.RetentionRepository = (*RetentionRepository)(nil)

// NewRetentionRepository returns a RetentionRepository.
func NewRetentionRepository(db *sqlx.DB, timeout time.Duration) *RetentionRepository {
	return &RetentionRepository{repo: newRepo(db, timeout)}
}

type policyRow struct {
	TableName      string    `db:"table_name"`
	RetentionDays  int       `db:"retention_days"`
	LegalBasis     string    `db:"legal_basis"`
	LastReviewedAt time.Time `db:"last_reviewed_at"`
}

// List returns all policies ordered by table name.
func (r *RetentionRepository) List(ctx context.Context) ([]domain.RetentionPolicy, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var rows []policyRow
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT table_name, retention_days, legal_basis, last_reviewed_at
		FROM retention_policies ORDER BY table_name`); err != nil {
		return nil, storeErr("list retention policies", err)
	}
	out := make([]domain.RetentionPolicy, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.RetentionPolicy(row))
	}
	return out, nil
}

// Get returns the policy for table.
func (r *RetentionRepository) Get(ctx context.Context, table string) (*domain.RetentionPolicy, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var row policyRow
	if err := r.db.GetContext(ctx, &row, `
		SELECT table_name, retention_days, legal_basis, last_reviewed_at
		FROM retention_policies WHERE table_name = $1`, table); err != nil {
		return nil, storeErr("get retention policy", err)
	}
	p := domain.RetentionPolicy(row)
	return &p, nil
}

// Update writes p, creating the row when missing.
func (r *RetentionRepository) Update(ctx context.Context, p *domain.RetentionPolicy) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO retention_policies (table_name, retention_days, legal_basis, last_reviewed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (table_name) DO UPDATE SET
			retention_days = EXCLUDED.retention_days,
			legal_basis = EXCLUDED.legal_basis,
			last_reviewed_at = EXCLUDED.last_reviewed_at`,
		p.TableName, p.RetentionDays, p.LegalBasis, p.LastReviewedAt)
	if err != nil {
		return storeErr("update retention policy", err)
	}
	return nil
}

// SeedDefaults inserts a policy for every retention table without one.
// Existing rows are left alone.
func (r *RetentionRepository) SeedDefaults(ctx context.Context, days int, legalBasis string) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	return r.inTx(ctx, nil, "seed retention policies", func(tx *sqlx.Tx) error {
		for _, table := range domain.RetentionTables() {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO retention_policies (table_name, retention_days, legal_basis, last_reviewed_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (table_name) DO NOTHING`, table, days, legalBasis); err != nil {
				return storeErr("seed retention policy "+table, err)
			}
		}
		return nil
	})
}

// CountExpired counts rows of table that are past retention at cutoff.
func (r *RetentionRepository) CountExpired(ctx context.Context, table string, cutoff time.Time) (int64, error) {
	where, ok := expiredWhere[table]
	if !ok {
		return 0, domain.NewValidationError(fmt.Sprintf("table %q has no retention rule", table))
	}

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT count(*) FROM `+table+` WHERE `+where, cutoff); err != nil {
		return 0, storeErr("count expired "+table, err)
	}
	return n, nil
}

// Purge deletes eligible rows in referential order, children before
// accounts, in a single transaction.
func (r *RetentionRepository) Purge(ctx context.Context, cutoffs map[string]time.Time) (map[string]int64, error) {
	for table := range cutoffs {
		if _, ok := purgeWhere[table]; !ok {
			return nil, domain.NewValidationError(fmt.Sprintf("table %q has no retention rule", table))
		}
	}

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	deleted := make(map[string]int64, len(cutoffs))
	err := r.inTx(ctx, nil, "retention purge", func(tx *sqlx.Tx) error {
		for _, table := range domain.RetentionTables() {
			cutoff, ok := cutoffs[table]
			if !ok {
				continue
			}
			res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE `+purgeWhere[table], cutoff)
			if err != nil {
				return storeErr("purge "+table, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return storeErr("purge "+table, err)
			}
			deleted[table] = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
