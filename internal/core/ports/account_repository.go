package ports

import (
	"context"
	"time"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
)

// AccountRepository defines persistence for accounts.
//
// Implementations return domain.ErrNotFound for missing rows,
// domain.ErrConflict for unique-key violations and wrap every other driver
// error with domain.ErrStore.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	// CreateFirstAdmin inserts account only when no account exists yet. The
	// check and the insert are a single atomic step. It reports whether a
	// row was written.
	CreateFirstAdmin(ctx context.Context, account *domain.Account) (bool, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	List(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, int64, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	// Statistics reads every count from one snapshot.
	Statistics(ctx context.Context) (*domain.AccountStats, error)
	// DeleteCascade removes the account and every row referencing it, in
	// referential order, as one transaction.
	DeleteCascade(ctx context.Context, id, email string) (domain.ErasureCounts, error)
}

// SessionRevocations records the instant before which an account's
// sessions are no longer honoured.
type SessionRevocations interface {
	Revoke(ctx context.Context, accountID string, at time.Time) error
	RevokedAt(ctx context.Context, accountID string) (time.Time, bool, error)
}
