package ports

import (
	"context"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
)

// CreateAccountInput carries the fields accepted at account creation.
type CreateAccountInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Role       domain.Role
	Department string
	Phone      string
}

// ListAccountsResult is a page of accounts.
type ListAccountsResult struct {
	Items      []*domain.Account
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// AuthService covers login and self-service credential changes.
type AuthService interface {
	Authenticate(ctx context.Context, email, password string) (*domain.AuthResult, error)
	ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error
}

// AccountService covers administrative account management.
type AccountService interface {
	CreateAccount(ctx context.Context, in CreateAccountInput, createdBy string) (*domain.Account, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context, filter domain.AccountFilter) (*ListAccountsResult, error)
	ChangeStatus(ctx context.Context, id string, status domain.Status, actorID string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate, actorID string) (*domain.Account, error)
	SoftDelete(ctx context.Context, id, actorID string) error
	Statistics(ctx context.Context) (*domain.AccountStats, error)
}

// HardDeleter irreversibly removes an account and everything referencing it.
type HardDeleter interface {
	HardDelete(ctx context.Context, account *domain.Account) (domain.ErasureCounts, error)
}

// GDPRService handles data-subject requests.
type GDPRService interface {
	HandleAccess(ctx context.Context, subjectEmail, requestedBy string) (*domain.AccessExport, error)
	HandleRectification(ctx context.Context, subjectEmail, requestedBy string, corrections domain.Rectification) (*domain.Account, error)
	HandleErasure(ctx context.Context, subjectEmail, requestedBy string) (*domain.ErasureResult, error)
	HandlePortability(ctx context.Context, subjectEmail, requestedBy string) (*domain.PortableExport, error)
	HandleRestriction(ctx context.Context, subjectEmail, requestedBy, reason string) (*domain.Account, error)
}

// ComplianceService reports on and enforces retention policies.
type ComplianceService interface {
	CheckCompliance(ctx context.Context, actorID string) (*domain.ComplianceReport, error)
	PurgeExpired(ctx context.Context, actorID string) (*domain.PurgeResult, error)
	ListPolicies(ctx context.Context) ([]domain.RetentionPolicy, error)
	UpdatePolicy(ctx context.Context, table string, days int, legalBasis, actorID string) (*domain.RetentionPolicy, error)
	ReportHistory(ctx context.Context, limit int) ([]domain.ComplianceReport, error)
}
