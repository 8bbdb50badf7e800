package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/api/middleware"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/ports"
)

// ---- request helpers ----

func newContext(method, path, body string, p *domain.Principal) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if p != nil {
		c.Set(middleware.PrincipalKey, p)
	}
	return c, rec
}

func adminPrincipal() *domain.Principal {
	return &domain.Principal{
		AccountID:   "acc_admin",
		Email:       "admin@council.gov.uk",
		Role:        domain.RoleSystemAdmin,
		Permissions: domain.PermissionsFor(domain.RoleSystemAdmin),
	}
}

// ---- service stubs ----

type stubAuthService struct {
	authenticateFn   func(ctx context.Context, email, password string) (*domain.AuthResult, error)
	changePasswordFn func(ctx context.Context, accountID, current, next string) error
}

func (s *stubAuthService) Authenticate(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	return s.authenticateFn(ctx, email, password)
}

func (s *stubAuthService) ChangePassword(ctx context.Context, accountID, current, next string) error {
	return s.changePasswordFn(ctx, accountID, current, next)
}

type stubAccountService struct {
	createFn        func(ctx context.Context, in ports.CreateAccountInput, createdBy string) (*domain.Account, error)
	getFn           func(ctx context.Context, id string) (*domain.Account, error)
	listFn          func(ctx context.Context, filter domain.AccountFilter) (*ports.ListAccountsResult, error)
	changeStatusFn  func(ctx context.Context, id string, status domain.Status, actorID string) (*domain.Account, error)
	updateProfileFn func(ctx context.Context, id string, update domain.ProfileUpdate, actorID string) (*domain.Account, error)
	softDeleteFn    func(ctx context.Context, id, actorID string) error
	statisticsFn    func(ctx context.Context) (*domain.AccountStats, error)
}

func (s *stubAccountService) CreateAccount(ctx context.Context, in ports.CreateAccountInput, createdBy string) (*domain.Account, error) {
	return s.createFn(ctx, in, createdBy)
}

func (s *stubAccountService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.getFn(ctx, id)
}

func (s *stubAccountService) ListAccounts(ctx context.Context, filter domain.AccountFilter) (*ports.ListAccountsResult, error) {
	return s.listFn(ctx, filter)
}

func (s *stubAccountService) ChangeStatus(ctx context.Context, id string, status domain.Status, actorID string) (*domain.Account, error) {
	return s.changeStatusFn(ctx, id, status, actorID)
}

func (s *stubAccountService) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate, actorID string) (*domain.Account, error) {
	return s.updateProfileFn(ctx, id, update, actorID)
}

func (s *stubAccountService) SoftDelete(ctx context.Context, id, actorID string) error {
	return s.softDeleteFn(ctx, id, actorID)
}

func (s *stubAccountService) Statistics(ctx context.Context) (*domain.AccountStats, error) {
	return s.statisticsFn(ctx)
}

type stubGDPRService struct {
	accessFn      func(ctx context.Context, email, by string) (*domain.AccessExport, error)
	rectifyFn     func(ctx context.Context, email, by string, corrections domain.Rectification) (*domain.Account, error)
	eraseFn       func(ctx context.Context, email, by string) (*domain.ErasureResult, error)
	portabilityFn func(ctx context.Context, email, by string) (*domain.PortableExport, error)
	restrictFn    func(ctx context.Context, email, by, reason string) (*domain.Account, error)
}

func (s *stubGDPRService) HandleAccess(ctx context.Context, email, by string) (*domain.AccessExport, error) {
	return s.accessFn(ctx, email, by)
}

func (s *stubGDPRService) HandleRectification(ctx context.Context, email, by string, corrections domain.Rectification) (*domain.Account, error) {
	return s.rectifyFn(ctx, email, by, corrections)
}

func (s *stubGDPRService) HandleErasure(ctx context.Context, email, by string) (*domain.ErasureResult, error) {
	return s.eraseFn(ctx, email, by)
}

func (s *stubGDPRService) HandlePortability(ctx context.Context, email, by string) (*domain.PortableExport, error) {
	return s.portabilityFn(ctx, email, by)
}

func (s *stubGDPRService) HandleRestriction(ctx context.Context, email, by, reason string) (*domain.Account, error) {
	return s.restrictFn(ctx, email, by, reason)
}

type stubComplianceService struct {
	checkFn   func(ctx context.Context, actorID string) (*domain.ComplianceReport, error)
	purgeFn   func(ctx context.Context, actorID string) (*domain.PurgeResult, error)
	listFn    func(ctx context.Context) ([]domain.RetentionPolicy, error)
	updateFn  func(ctx context.Context, table string, days int, basis, actorID string) (*domain.RetentionPolicy, error)
	historyFn func(ctx context.Context, limit int) ([]domain.ComplianceReport, error)
}

func (s *stubComplianceService) CheckCompliance(ctx context.Context, actorID string) (*domain.ComplianceReport, error) {
	return s.checkFn(ctx, actorID)
}

func (s *stubComplianceService) PurgeExpired(ctx context.Context, actorID string) (*domain.PurgeResult, error) {
	return s.purgeFn(ctx, actorID)
}

func (s *stubComplianceService) ListPolicies(ctx context.Context) ([]domain.RetentionPolicy, error) {
	return s.listFn(ctx)
}

func (s *stubComplianceService) UpdatePolicy(ctx context.Context, table string, days int, basis, actorID string) (*domain.RetentionPolicy, error) {
	return s.updateFn(ctx, table, days, basis, actorID)
}

func (s *stubComplianceService) ReportHistory(ctx context.Context, limit int) ([]domain.ComplianceReport, error) {
	return s.historyFn(ctx, limit)
}
