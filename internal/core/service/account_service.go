package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/ports"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/pkg/ids"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/pkg/metrics"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Credentials is the part of the credential store the account service needs.
type Credentials interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
	IssueSession(account *domain.Account) (string, time.Time, error)
}

// BootstrapAdmin is the identity created on first start.
type BootstrapAdmin struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AccountService is the user lifecycle manager.
type AccountService struct {
	repo        ports.AccountRepository
	creds       Credentials
	audit       ports.AuditRecorder
	revocations ports.SessionRevocations
	bootstrap   BootstrapAdmin
	validate    *validator.Validate
	log         zerolog.Logger
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

var (
	_ ports.AuthService    = (*AccountService)(nil)
	_ ports.AccountService = (*AccountService)(nil)
	_ ports.HardDeleter    = (*AccountService)(nil)
)

// NewAccountService returns an AccountService. revocations may be nil.
func NewAccountService(
	repo ports.AccountRepository,
	creds Credentials,
	audit ports.AuditRecorder,
	revocations ports.SessionRevocations,
	bootstrap BootstrapAdmin,
	log zerolog.Logger,
) *AccountService {
	return &AccountService{
		repo:        repo,
		creds:       creds,
		audit:       audit,
		revocations: revocations,
		bootstrap:   bootstrap,
		validate:    validator.New(),
		log:         log,
		now:         time.Now,
	}
}

// BootstrapDefaultAdmin creates the configured system administrator when the
// store holds no accounts. It is safe to call from concurrent cold starts.
func (s *AccountService) BootstrapDefaultAdmin(ctx context.Context) (bool, error) {
	email := domain.NormalizeEmail(s.bootstrap.Email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return false, domain.NewValidationError("bootstrap admin email is invalid")
	}

	hash, err := s.creds.Hash(s.bootstrap.Password)
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}

	now := s.now().UTC()
	admin := &domain.Account{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    s.bootstrap.FirstName,
		LastName:     s.bootstrap.LastName,
		Role:         domain.RoleSystemAdmin,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.CreateFirstAdmin(ctx, admin)
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	if !created {
		s.log.Debug().Msg("accounts already exist, skipping admin bootstrap")
		return false, nil
	}

	s.audit.Record(ctx, domain.AuditEntry{
		Action:       domain.ActionUserCreated,
		ResourceType: domain.ResourceUser,
		ResourceID:   admin.ID,
		Detail:       map[string]any{"role": string(admin.Role), "bootstrap": true},
	})
	s.log.Warn().Str("account_id", admin.ID).Msg("default administrator created, change its password")
	return true, nil
}

// CreateAccount validates in and persists a new account awaiting approval.
func (s *AccountService) CreateAccount(ctx context.Context, in ports.CreateAccountInput, createdBy string) (*domain.Account, error) {
	email := domain.NormalizeEmail(in.Email)

	var problems []string
	if err := s.validate.Var(email, "required,email"); err != nil {
		problems = append(problems, "email must be a valid email address")
	}
	if strings.TrimSpace(in.FirstName) == "" {
		problems = append(problems, "first name is required")
	}
	if strings.TrimSpace(in.LastName) == "" {
		problems = append(problems, "last name is required")
	}
	if !in.Role.Valid() {
		problems = append(problems, fmt.Sprintf("role %q is not recognised", in.Role))
	}
	problems = append(problems, PasswordViolations(in.Password)...)

	if len(problems) == 0 {
		_, err := s.repo.FindByEmail(ctx, email)
		switch {
		case err == nil:
			problems = append(problems, "email is already registered")
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("create account: %w", err)
		}
	}
	if err := domain.NewValidationError(problems...); err != nil {
		return nil, err
	}

	hash, err := s.creds.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	now := s.now().UTC()
	account := &domain.Account{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         in.Role,
		Status:       domain.StatusPendingApproval,
		Department:   strings.TrimSpace(in.Department),
		Phone:        strings.TrimSpace(in.Phone),
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("create account failed")
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.audit.Record(ctx, domain.AuditEntry{
		Action:       domain.ActionUserCreated,
		ResourceType: domain.ResourceUser,
		ResourceID:   account.ID,
		ActorID:      createdBy,
		Detail:       map[string]any{"role": string(account.Role), "status": string(account.Status)},
	})
	return account, nil
}

// Authenticate logs a user in.
//
// An unknown email and a wrong password both return ErrInvalidCredentials so
// that responses cannot be used to enumerate accounts. The password is
// checked before the account status for the same reason.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	account, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		s.burnVerify(password)
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	ok, err := s.creds.Verify(password, account.PasswordHash)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("stored credential is unreadable")
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !ok {
		s.audit.Record(ctx, domain.AuditEntry{
			Action:       domain.ActionLoginFailed,
			ResourceType: domain.ResourceUser,
			ResourceID:   account.ID,
			ActorID:      account.ID,
			Detail:       map[string]any{"reason": "password_mismatch"},
		})
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	if account.Status != domain.StatusActive {
		metrics.LoginAttemptsTotal.WithLabelValues("not_active").Inc()
		return nil, &domain.AccountNotActiveError{Status: account.Status}
	}

	now := s.now().UTC()
	if err := s.repo.TouchLastLogin(ctx, account.ID, now); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	account.LastLoginAt = &now

	token, expiresAt, err := s.creds.IssueSession(account)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	s.audit.Record(ctx, domain.AuditEntry{
		Action:       domain.ActionLoginSuccess,
		ResourceType: domain.ResourceUser,
		ResourceID:   account.ID,
		ActorID:      account.ID,
	})
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()

	return &domain.AuthResult{
		Account:     account,
		Token:       token,
		ExpiresAt:   expiresAt,
		Permissions: domain.PermissionsFor(account.Role),
	}, nil
}

// burnVerify runs a hash comparison for unknown emails so both failure paths
// cost the same.
func (s *AccountService) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.creds.Hash("Unused-Password-1!")
		if err == nil {
			s.dummyHash = hash
		}
	})
	if s.dummyHash != "" {
		_, _ = s.creds.Verify(password, s.dummyHash)
	}
}

// GetAccount returns one account.
func (s *AccountService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// ListAccounts returns a page of accounts. The limit defaults to 20 and is
// capped at 100.
func (s *AccountService) ListAccounts(ctx context.Context, filter domain.AccountFilter) (*ports.ListAccountsResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, domain.NewValidationError(fmt.Sprintf("role %q is not recognised", filter.Role))
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.NewValidationError(fmt.Sprintf("status %q is not recognised", filter.Status))
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	totalPages := int(total) / filter.Limit
	if int(total)%filter.Limit != 0 {
		totalPages++
	}
	return &ports.ListAccountsResult{
		Items:      items,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
	}, nil
}

// ChangeStatus moves an account to status. Every enumerated status is
// reachable from every other.
func (s *AccountService) ChangeStatus(ctx context.Context, id string, status domain.Status, actorID string) (*domain.Account, error) {
	if !status.Valid() {
		return nil, domain.NewValidationError(fmt.Sprintf("status %q is not recognised", status))
	}

	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("change status: %w", err)
	}
	previous := account.Status

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("change status: %w", err)
	}
	account.Status = status
	account.UpdatedAt = s.now().UTC()

	s.audit.Record(ctx, domain.AuditEntry{
		Action:       domain.ActionUserStatusChanged,
		ResourceType: domain.ResourceUser,
		ResourceID:   id,
		ActorID:      actorID,
		Detail: map[string]any{
			"old_status": string(previous),
			"new_status": string(status),
			"target_id":  id,
			"actor_id":   actorID,
		},
	})

	if status != domain.StatusActive {
		s.revokeSessions(ctx, id)
	}
	return account, nil
}

// UpdateProfile changes the name, department or phone of an account. The
// audit record lists the changed field names but not their values.
func (s *AccountService) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate, actorID string) (*domain.Account, error) {
	if update.Empty() {
		return nil, domain.NewValidationError("no profile fields supplied")
	}
	var problems []string
	if update.FirstName != nil && strings.TrimSpace(*update.FirstName) == "" {
		problems = append(problems, "first name cannot be blank")
	}
	if update.LastName != nil && strings.TrimSpace(*update.LastName) == "" {
		problems = append(problems, "last name cannot be blank")
	}
	if err := domain.NewValidationError(problems...); err != nil {
		return nil, err
	}

	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if err := s.repo.UpdateProfile(ctx, id, update); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	update.Apply(account)
	account.UpdatedAt = s.now().UTC()

	s.audit.Record(ctx, domain.AuditEntry{
		Action:       domain.ActionUserUpdated,
		ResourceType: domain.ResourceUser,
		ResourceID:   id,
		ActorID:      actorID,
		Detail:       map[string]any{"fields": update.Fields()},
	})
	return account, nil
}

// ChangePassword replaces the password after re-verifying the current one.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	ok, err := s.creds.Verify(currentPassword, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if !ok {
		return domain.ErrInvalidCredentials
	}

	if err := domain.NewValidationError(PasswordViolations(newPassword)...); err != nil {
		return err
	}

	hash, err := s.creds.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, accountID, hash); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.audit.Record(ctx, domain.AuditEntry{
		Action:       domain.ActionPasswordChanged,
		ResourceType: domain.ResourceUser,
		ResourceID:   accountID,
		ActorID:      accountID,
	})
	return nil
}

// SoftDelete deactivates an account. An account cannot deactivate itself.
func (s *AccountService) SoftDelete(ctx context.Context, id, actorID string) error {
	if id == actorID {
		return domain.ErrSelfDeletion
	}

	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("soft delete: %w", err)
	}
	if err := s.repo.UpdateStatus(ctx, id, domain.StatusInactive); err != nil {
		return fmt.Errorf("soft delete: %w", err)
	}

	s.audit.Record(ctx, domain.AuditEntry{
		Action:       domain.ActionUserDeactivated,
		ResourceType: domain.ResourceUser,
		ResourceID:   id,
		ActorID:      actorID,
		Detail:       map[string]any{"old_status": string(account.Status)},
	})
	s.revokeSessions(ctx, id)
	return nil
}

// HardDelete irreversibly removes the account and every row referencing it,
// then revokes its sessions. Only the GDPR erasure path calls it.
func (s *AccountService) HardDelete(ctx context.Context, account *domain.Account) (domain.ErasureCounts, error) {
	counts, err := s.repo.DeleteCascade(ctx, account.ID, account.Email)
	if err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("hard delete failed, rolled back")
		return domain.ErasureCounts{}, fmt.Errorf("hard delete: %w", err)
	}
	s.revokeSessions(ctx, account.ID)
	return counts, nil
}

// Statistics returns account counts by status and role.
func (s *AccountService) Statistics(ctx context.Context) (*domain.AccountStats, error) {
	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("statistics: %w", err)
	}
	return stats, nil
}

func (s *AccountService) revokeSessions(ctx context.Context, accountID string) {
	if s.revocations == nil {
		return
	}
	if err := s.revocations.Revoke(ctx, accountID, s.now().UTC()); err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID).Msg("failed to revoke sessions")
	}
}
