package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/ports"
)

// bootstrapLockKey serialises first-admin creation across instances.
const bootstrapLockKey = 0x61756469 // "audi"

const accountColumns = `id, email, password_hash, first_name, last_name, role, status,
	department, phone, last_login_at, created_by, created_at, updated_at`

// AccountRepository implements ports.AccountRepository against PostgreSQL.
type AccountRepository struct {
	repo
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository returns an AccountRepository.
func NewAccountRepository(db *sqlx.DB, timeout time.Duration) *AccountRepository {
	return &AccountRepository{repo: newRepo(db, timeout)}
}

type accountRow struct {
	ID           string         `db:"id"`
	Email        string         `db:"email"`
	PasswordHash string         `db:"password_hash"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	Role         string         `db:"role"`
	Status       string         `db:"status"`
	Department   sql.NullString `db:"department"`
	Phone        sql.NullString `db:"phone"`
	LastLoginAt  sql.NullTime   `db:"last_login_at"`
	CreatedBy    sql.NullString `db:"created_by"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func toAccountRow(a *domain.Account) accountRow {
	row := accountRow{
		ID:           a.ID,
		Email:        domain.NormalizeEmail(a.Email),
		PasswordHash: a.PasswordHash,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Role:         string(a.Role),
		Status:       string(a.Status),
		Department:   nullIfEmpty(a.Department),
		Phone:        nullIfEmpty(a.Phone),
		CreatedBy:    nullIfEmpty(a.CreatedBy),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	if a.LastLoginAt != nil {
		row.LastLoginAt = sql.NullTime{Time: *a.LastLoginAt, Valid: true}
	}
	return row
}

func (r accountRow) toDomain() *domain.Account {
	a := &domain.Account{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Role:         domain.Role(r.Role),
		Status:       domain.Status(r.Status),
		Department:   r.Department.String,
		Phone:        r.Phone.String,
		CreatedBy:    r.CreatedBy.String,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.LastLoginAt.Valid {
		t := r.LastLoginAt.Time
		a.LastLoginAt = &t
	}
	return a
}

const insertAccountSQL = `
INSERT INTO accounts (id, email, password_hash, first_name, last_name, role, status,
	department, phone, last_login_at, created_by, created_at, updated_at)
VALUES (:id, :email, :password_hash, :first_name, :last_name, :role, :status,
	:department, :phone, :last_login_at, :created_by, :created_at, :updated_at)`

// Create inserts a new account. A duplicate email yields domain.ErrConflict.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	if _, err := r.db.NamedExecContext(ctx, insertAccountSQL, toAccountRow(a)); err != nil {
		return storeErr("insert account", err)
	}
	return nil
}

// CreateFirstAdmin inserts the account only when the table is empty. The
// advisory lock makes concurrent cold starts queue behind each other; the
// unique email index catches anything that slips through.
func (r *AccountRepository) CreateFirstAdmin(ctx context.Context, a *domain.Account) (bool, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	created := false
	err := r.inTx(ctx, nil, "bootstrap admin", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockKey); err != nil {
			return storeErr("bootstrap admin: lock", err)
		}
		row := toAccountRow(a)
		res, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (id, email, password_hash, first_name, last_name, role, status, created_at, updated_at)
			SELECT $1, $2, $3, $4, $5, $6, $7, $8, $8
			WHERE NOT EXISTS (SELECT 1 FROM accounts)`,
			row.ID, row.Email, row.PasswordHash, row.FirstName, row.LastName, row.Role, row.Status, row.CreatedAt,
		)
		if err != nil {
			return storeErr("bootstrap admin: insert", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storeErr("bootstrap admin: insert", err)
		}
		created = n == 1
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	return created, nil
}

// FindByID returns the account with id.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var row accountRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id); err != nil {
		return nil, storeErr("find account", err)
	}
	return row.toDomain(), nil
}

// FindByEmail matches case-insensitively; the column is citext.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var row accountRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, domain.NormalizeEmail(email)); err != nil {
		return nil, storeErr("find account by email", err)
	}
	return row.toDomain(), nil
}

// List returns a page of accounts, newest first, with the unpaged total.
func (r *AccountRepository) List(ctx context.Context, f domain.AccountFilter) ([]*domain.Account, int64, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var (
		where []string
		args  []any
	)
	if f.Role != "" {
		args = append(args, string(f.Role))
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(email ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d)", n, n, n))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT count(*) FROM accounts`+clause, args...); err != nil {
		return nil, 0, storeErr("count accounts", err)
	}

	limit, page := f.Limit, f.Page
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	pageArgs := append(append([]any{}, args...), limit, (page-1)*limit)
	q := fmt.Sprintf(`SELECT %s FROM accounts%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		accountColumns, clause, len(args)+1, len(args)+2)

	var rows []accountRow
	if err := r.db.SelectContext(ctx, &rows, q, pageArgs...); err != nil {
		return nil, 0, storeErr("list accounts", err)
	}
	items := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, total, nil
}

// UpdateStatus sets the lifecycle status of id.
func (r *AccountRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return storeErr("update account status", err)
	}
	return expectAffected(res, "update account status")
}

// UpdateProfile writes the fields set on u.
func (r *AccountRepository) UpdateProfile(ctx context.Context, id string, u domain.ProfileUpdate) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()
	return updateProfile(ctx, r.db, id, u)
}

// updateProfile is shared with the rectification transaction.
func updateProfile(ctx context.Context, ex sqlx.ExecerContext, id string, u domain.ProfileUpdate) error {
	var (
		sets []string
		args = []any{id}
	)
	add := func(col string, v *string) {
		if v == nil {
			return
		}
		args = append(args, strings.TrimSpace(*v))
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("first_name", u.FirstName)
	add("last_name", u.LastName)
	add("department", u.Department)
	add("phone", u.Phone)
	if len(sets) == 0 {
		return domain.NewValidationError("no profile fields supplied")
	}

	q := `UPDATE accounts SET ` + strings.Join(sets, ", ") + `, updated_at = now() WHERE id = $1`
	res, err := ex.ExecContext(ctx, q, args...)
	if err != nil {
		return storeErr("update profile", err)
	}
	return expectAffected(res, "update profile")
}

// UpdatePassword replaces the stored hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return storeErr("update password", err)
	}
	return expectAffected(res, "update password")
}

// TouchLastLogin records a successful login.
func (r *AccountRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET last_login_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return storeErr("touch last login", err)
	}
	return expectAffected(res, "touch last login")
}

type statusCounts struct {
	Total           int64 `db:"total"`
	Active          int64 `db:"active"`
	Inactive        int64 `db:"inactive"`
	Suspended       int64 `db:"suspended"`
	PendingApproval int64 `db:"pending_approval"`
	Restricted      int64 `db:"restricted"`
}

type roleCount struct {
	Role  string `db:"role"`
	Count int64  `db:"count"`
}

// Statistics reads both aggregates from one repeatable-read snapshot.
func (r *AccountRepository) Statistics(ctx context.Context) (*domain.AccountStats, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var (
		counts statusCounts
		roles  []roleCount
	)
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	err := r.inTx(ctx, opts, "account statistics", func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &counts, `
			SELECT count(*) AS total,
				count(*) FILTER (WHERE status = 'active') AS active,
				count(*) FILTER (WHERE status = 'inactive') AS inactive,
				count(*) FILTER (WHERE status = 'suspended') AS suspended,
				count(*) FILTER (WHERE status = 'pending_approval') AS pending_approval,
				count(*) FILTER (WHERE status = 'restricted') AS restricted
			FROM accounts`); err != nil {
			return storeErr("account statistics: status", err)
		}
		if err := tx.SelectContext(ctx, &roles, `SELECT role, count(*) AS count FROM accounts GROUP BY role`); err != nil {
			return storeErr("account statistics: role", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stats := &domain.AccountStats{
		Total:           counts.Total,
		Active:          counts.Active,
		Inactive:        counts.Inactive,
		Suspended:       counts.Suspended,
		PendingApproval: counts.PendingApproval,
		Restricted:      counts.Restricted,
		ByRole:          make(map[domain.Role]int64, len(roles)),
	}
	for _, rc := range roles {
		stats.ByRole[domain.Role(rc.Role)] = rc.Count
	}
	return stats, nil
}

// DeleteCascade removes every row referencing the account, children first,
// then the account itself. Nothing is deleted if any step fails.
func (r *AccountRepository) DeleteCascade(ctx context.Context, id, email string) (domain.ErasureCounts, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var counts domain.ErasureCounts
	err := r.inTx(ctx, nil, "erase account", func(tx *sqlx.Tx) error {
		steps := []struct {
			q     string
			arg   any
			count *int64
		}{
			{`DELETE FROM audit_logs WHERE user_id = $1`, id, &counts.AuditLogs},
			{`DELETE FROM gdpr_requests WHERE subject_email = $1`, domain.NormalizeEmail(email), &counts.GDPRRequests},
			{`DELETE FROM documents WHERE uploaded_by = $1`, id, &counts.Documents},
			{`DELETE FROM accounts WHERE id = $1`, id, &counts.Accounts},
		}
		for _, s := range steps {
			res, err := tx.ExecContext(ctx, s.q, s.arg)
			if err != nil {
				return storeErr("erase account", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return storeErr("erase account", err)
			}
			*s.count = n
		}
		if counts.Accounts == 0 {
			return fmt.Errorf("erase account: %w", domain.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return domain.ErasureCounts{}, err
	}
	return counts, nil
}
