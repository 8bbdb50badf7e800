package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/ports"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/pkg/metrics"
)

const (
	portableFormatVersion   = "1.0"
	defaultRecentEventLimit = 100
	defaultAuditHoldWindow  = 365 * 24 * time.Hour
	defaultRetentionDays    = 7 * 365
)

// GDPRConfig carries the controller identity and legal-hold parameters.
type GDPRConfig struct {
	Controller domain.Controller
	LegalBasis string
	// DefaultRetentionDays applies to documents when no policy row exists.
	DefaultRetentionDays int
	// AuditHoldWindow is how far back audit-tagged activity blocks erasure.
	AuditHoldWindow  time.Duration
	RecentEventLimit int
}

// GDPRRepositories groups the stores the GDPR engine reads and writes.
// Erasure runs through HardDeleter. DeadLetters may be nil.
type GDPRRepositories struct {
	Accounts    ports.AccountRepository
	Audit       ports.AuditRepository
	Documents   ports.DocumentRepository
	Requests    ports.DataRequestRepository
	Retention   ports.RetentionRepository
	HardDeleter ports.HardDeleter
	DeadLetters ports.DeadLetterEraser
}

// GDPRService handles the five data-subject rights.
type GDPRService struct {
	accounts    ports.AccountRepository
	auditLog    ports.AuditRepository
	documents   ports.DocumentRepository
	requests    ports.DataRequestRepository
	retention   ports.RetentionRepository
	eraser      ports.HardDeleter
	deadLetters ports.DeadLetterEraser
	audit       ports.AuditRecorder
	revocations ports.SessionRevocations
	cfg         GDPRConfig
	log         zerolog.Logger
	now         func() time.Time
}

var _ ports.GDPRService = (*GDPRService)(nil)

// NewGDPRService returns a GDPRService. revocations may be nil.
func NewGDPRService(
	repos GDPRRepositories,
	audit ports.AuditRecorder,
	revocations ports.SessionRevocations,
	cfg GDPRConfig,
	log zerolog.Logger,
) *GDPRService {
	if cfg.DefaultRetentionDays <= 0 {
		cfg.DefaultRetentionDays = defaultRetentionDays
	}
	if cfg.AuditHoldWindow <= 0 {
		cfg.AuditHoldWindow = defaultAuditHoldWindow
	}
	if cfg.RecentEventLimit <= 0 {
		cfg.RecentEventLimit = defaultRecentEventLimit
	}
	return &GDPRService{
		accounts:    repos.Accounts,
		auditLog:    repos.Audit,
		documents:   repos.Documents,
		requests:    repos.Requests,
		retention:   repos.Retention,
		eraser:      repos.HardDeleter,
		deadLetters: repos.DeadLetters,
		audit:       audit,
		revocations: revocations,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

// HandleAccess assembles everything held about the subject and records the
// request as completed.
func (s *GDPRService) HandleAccess(ctx context.Context, subjectEmail, requestedBy string) (_ *domain.AccessExport, err error) {
	defer s.observe(domain.RequestAccess, time.Now(), &err)

	account, err := s.findSubject(ctx, subjectEmail)
	if err != nil {
		return nil, err
	}
	export, err := s.assemble(ctx, account)
	if err != nil {
		return nil, err
	}

	req := &domain.DataSubjectRequest{
		Type:         domain.RequestAccess,
		SubjectEmail: account.Email,
		RequestedBy:  requestedBy,
		Status:       domain.RequestCompleted,
	}
	if err := s.complete(ctx, req, export); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domain.AuditEntry{
		Action:       domain.ActionGDPRAccess,
		ResourceType: domain.ResourceGDPRRequest,
		ResourceID:   req.ID,
		ActorID:      requestedBy,
		Detail:       map[string]any{"subject_ref": subjectRef(account.Email)},
	})
	return export, nil
}

// HandlePortability returns the access bundle in a machine-readable layout.
func (s *GDPRService) HandlePortability(ctx context.Context, subjectEmail, requestedBy string) (_ *domain.PortableExport, err error) {
	defer s.observe(domain.RequestPortability, time.Now(), &err)

	account, err := s.findSubject(ctx, subjectEmail)
	if err != nil {
		return nil, err
	}
	access, err := s.assemble(ctx, account)
	if err != nil {
		return nil, err
	}

	a := access.Account
	export := &domain.PortableExport{
		FormatVersion: portableFormatVersion,
		ExportedAt:    access.GeneratedAt,
		Controller:    access.Controller,
		LegalBasis:    access.LegalBasis,
		DataSubject: domain.PortableSubject{
			Email:      a.Email,
			FirstName:  a.FirstName,
			LastName:   a.LastName,
			Department: a.Department,
			Phone:      a.Phone,
			Role:       a.Role,
			Status:     a.Status,
			CreatedAt:  a.CreatedAt,
			LastLogin:  a.LastLoginAt,
		},
		Records: domain.PortableRecordSets{
			Documents: access.Documents,
			Activity:  access.RecentActivity,
			Requests:  access.RequestHistory,
		},
	}

	req := &domain.DataSubjectRequest{
		Type:         domain.RequestPortability,
		SubjectEmail: account.Email,
		RequestedBy:  requestedBy,
		Status:       domain.RequestCompleted,
	}
	if err := s.complete(ctx, req, export); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domain.AuditEntry{
		Action:       domain.ActionGDPRPortability,
		ResourceType: domain.ResourceGDPRRequest,
		ResourceID:   req.ID,
		ActorID:      requestedBy,
		Detail:       map[string]any{"subject_ref": subjectRef(account.Email), "format_version": portableFormatVersion},
	})
	return export, nil
}

// HandleRectification corrects the subject's profile. Only name, department
// and phone can be rectified.
func (s *GDPRService) HandleRectification(ctx context.Context, subjectEmail, requestedBy string, corrections domain.Rectification) (_ *domain.Account, err error) {
	defer s.observe(domain.RequestRectification, time.Now(), &err)

	update := corrections.Profile()
	if update.Empty() {
		return nil, domain.ErrNoValidFields
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

	account, err := s.findSubject(ctx, subjectEmail)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	payload, err := json.Marshal(map[string]any{"fields": update.Fields()})
	if err != nil {
		return nil, fmt.Errorf("rectification: %w", err)
	}
	req := &domain.DataSubjectRequest{
		Type:         domain.RequestRectification,
		SubjectEmail: account.Email,
		RequestedBy:  requestedBy,
		Status:       domain.RequestCompleted,
		Payload:      payload,
		CompletedAt:  &now,
	}

	if err := s.requests.Rectify(ctx, account.ID, update, req); err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("rectification rolled back")
		rejected := &domain.DataSubjectRequest{
			Type:         domain.RequestRectification,
			SubjectEmail: account.Email,
			RequestedBy:  requestedBy,
			Status:       domain.RequestRejected,
			Reason:       err.Error(),
		}
		s.reject(ctx, rejected)
		s.audit.Record(ctx, domain.AuditEntry{
			Action:       domain.ActionGDPRRectificationRej,
			ResourceType: domain.ResourceGDPRRequest,
			ResourceID:   rejected.ID,
			ActorID:      requestedBy,
			Detail:       map[string]any{"subject_ref": subjectRef(account.Email), "reason": err.Error()},
		})
		return nil, fmt.Errorf("rectification: %w", err)
	}

	update.Apply(account)
	account.UpdatedAt = now

	s.audit.Record(ctx, domain.AuditEntry{
		Action:       domain.ActionGDPRRectification,
		ResourceType: domain.ResourceGDPRRequest,
		ResourceID:   req.ID,
		ActorID:      requestedBy,
		Detail:       map[string]any{"subject_ref": subjectRef(account.Email), "fields": update.Fields()},
	})
	return account, nil
}

// HandleErasure removes the subject and every row referencing them unless a
// legal hold applies. A held request returns both a result describing the
// hold and a *domain.LegalHoldError.
func (s *GDPRService) HandleErasure(ctx context.Context, subjectEmail, requestedBy string) (_ *domain.ErasureResult, err error) {
	defer s.observe(domain.RequestErasure, time.Now(), &err)

	account, err := s.findSubject(ctx, subjectEmail)
	if err != nil {
		return nil, err
	}
	ref := subjectRef(account.Email)

	reason, err := s.legalHold(ctx, account)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		req := &domain.DataSubjectRequest{
			Type:         domain.RequestErasure,
			SubjectEmail: account.Email,
			RequestedBy:  requestedBy,
			Status:       domain.RequestRejected,
			Reason:       reason,
		}
		s.reject(ctx, req)
		s.audit.Record(ctx, domain.AuditEntry{
			Action:       domain.ActionGDPRErasureRejected,
			ResourceType: domain.ResourceGDPRRequest,
			ResourceID:   req.ID,
			ActorID:      requestedBy,
			Detail:       map[string]any{"subject_ref": ref, "reason": reason},
		})
		return &domain.ErasureResult{Success: false, Reason: reason}, &domain.LegalHoldError{Reason: reason}
	}

	counts, err := s.eraser.HardDelete(ctx, account)
	if err != nil {
		s.log.Error().Err(err).Str("subject_ref", ref).Msg("erasure cascade rolled back")
		return nil, fmt.Errorf("erasure: %w", err)
	}
	letters := s.eraseDeadLetters(ctx, account.ID, ref)

	// The requester's own audit rows are gone when they erased themselves.
	actor := requestedBy
	if requestedBy == account.ID {
		actor = ""
	}
	s.audit.Record(ctx, domain.AuditEntry{
		Action:       domain.ActionGDPRErasure,
		ResourceType: domain.ResourceGDPRRequest,
		ActorID:      actor,
		Detail: map[string]any{
			"subject_ref":   ref,
			"audit_logs":    counts.AuditLogs,
			"gdpr_requests": counts.GDPRRequests,
			"documents":     counts.Documents,
			"accounts":      counts.Accounts,
			"dead_letters":  letters,
		},
	})

	return &domain.ErasureResult{Success: true, Deleted: counts}, nil
}

// eraseDeadLetters drops audit events of the subject still waiting for
// replay outside the relational store.
func (s *GDPRService) eraseDeadLetters(ctx context.Context, accountID, ref string) int64 {
	if s.deadLetters == nil {
		return 0
	}
	n, err := s.deadLetters.RemoveByActor(ctx, accountID)
	if err != nil {
		s.log.Error().Err(err).Bool("alert", true).Str("subject_ref", ref).Msg("erased subject still has audit dead letters")
		return 0
	}
	return n
}

// HandleRestriction stops processing of the subject's data by moving the
// account to the restricted status.
func (s *GDPRService) HandleRestriction(ctx context.Context, subjectEmail, requestedBy, reason string) (_ *domain.Account, err error) {
	defer s.observe(domain.RequestRestriction, time.Now(), &err)

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.NewValidationError("restriction reason is required")
	}

	account, err := s.findSubject(ctx, subjectEmail)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.UpdateStatus(ctx, account.ID, domain.StatusRestricted); err != nil {
		return nil, fmt.Errorf("restriction: %w", err)
	}
	previous := account.Status
	account.Status = domain.StatusRestricted
	account.UpdatedAt = s.now().UTC()

	req := &domain.DataSubjectRequest{
		Type:         domain.RequestRestriction,
		SubjectEmail: account.Email,
		RequestedBy:  requestedBy,
		Status:       domain.RequestCompleted,
		Reason:       reason,
	}
	if err := s.complete(ctx, req, nil); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domain.AuditEntry{
		Action:       domain.ActionGDPRRestriction,
		ResourceType: domain.ResourceGDPRRequest,
		ResourceID:   req.ID,
		ActorID:      requestedBy,
		Detail: map[string]any{
			"subject_ref": subjectRef(account.Email),
			"reason":      reason,
			"old_status":  string(previous),
		},
	})
	s.revokeSessions(ctx, account.ID)
	return account, nil
}

func (s *GDPRService) findSubject(ctx context.Context, email string) (*domain.Account, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.NewValidationError("subject email is required")
	}
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find data subject: %w", err)
	}
	return account, nil
}

func (s *GDPRService) assemble(ctx context.Context, account *domain.Account) (*domain.AccessExport, error) {
	docs, err := s.documents.ListByUploader(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("collect documents: %w", err)
	}
	activity, err := s.auditLog.ListByActor(ctx, account.ID, s.cfg.RecentEventLimit)
	if err != nil {
		return nil, fmt.Errorf("collect activity: %w", err)
	}
	history, err := s.requests.ListBySubject(ctx, account.Email)
	if err != nil {
		return nil, fmt.Errorf("collect request history: %w", err)
	}
	policies, err := s.retention.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect retention policies: %w", err)
	}

	return &domain.AccessExport{
		GeneratedAt:       s.now().UTC(),
		Controller:        s.cfg.Controller,
		LegalBasis:        s.cfg.LegalBasis,
		Account:           *account,
		Permissions:       domain.PermissionsFor(account.Role),
		Documents:         nonNil(docs),
		RecentActivity:    nonNil(activity),
		RequestHistory:    nonNil(history),
		RetentionPolicies: nonNil(policies),
	}, nil
}

// legalHold returns a non-empty reason when the account may not be erased.
func (s *GDPRService) legalHold(ctx context.Context, account *domain.Account) (string, error) {
	now := s.now().UTC()

	days := s.cfg.DefaultRetentionDays
	policy, err := s.retention.Get(ctx, domain.TableDocuments)
	switch {
	case err == nil:
		days = policy.RetentionDays
	case !errors.Is(err, domain.ErrNotFound):
		return "", fmt.Errorf("legal hold: %w", err)
	}

	docs, err := s.documents.CountUploadedSince(ctx, account.ID, now.AddDate(0, 0, -days))
	if err != nil {
		return "", fmt.Errorf("legal hold: %w", err)
	}
	if docs > 0 {
		return fmt.Sprintf("%d document(s) uploaded within the %d-day retention period", docs, days), nil
	}

	tagged, err := s.auditLog.CountTaggedSince(ctx, account.ID, domain.ResourceAudit, now.Add(-s.cfg.AuditHoldWindow))
	if err != nil {
		return "", fmt.Errorf("legal hold: %w", err)
	}
	if tagged > 0 {
		return fmt.Sprintf("%d audit action(s) within the legal hold window", tagged), nil
	}
	return "", nil
}

// complete upserts req with payload as its JSON body.
func (s *GDPRService) complete(ctx context.Context, req *domain.DataSubjectRequest, payload any) error {
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", req.Type, err)
		}
		req.Payload = raw
	}
	now := s.now().UTC()
	req.CompletedAt = &now
	if err := s.requests.Upsert(ctx, req); err != nil {
		return fmt.Errorf("record %s request: %w", req.Type, err)
	}
	return nil
}

// reject records a rejected request. The rejection itself is already the
// caller's result, so a store failure here is only logged.
func (s *GDPRService) reject(ctx context.Context, req *domain.DataSubjectRequest) {
	now := s.now().UTC()
	req.CompletedAt = &now
	if err := s.requests.Upsert(ctx, req); err != nil {
		s.log.Warn().Err(err).Str("type", string(req.Type)).Msg("failed to record rejected request")
	}
}

func (s *GDPRService) observe(t domain.RequestType, start time.Time, errp *error) {
	status := string(domain.RequestCompleted)
	switch {
	case *errp == nil:
	case errors.Is(*errp, domain.ErrLegalHold), errors.Is(*errp, domain.ErrValidation):
		status = string(domain.RequestRejected)
	default:
		status = "error"
	}
	metrics.GDPRRequestsTotal.WithLabelValues(string(t), status).Inc()
	metrics.GDPRRequestDuration.WithLabelValues(string(t)).Observe(time.Since(start).Seconds())
}

func (s *GDPRService) revokeSessions(ctx context.Context, accountID string) {
	if s.revocations == nil {
		return
	}
	if err := s.revocations.Revoke(ctx, accountID, s.now().UTC()); err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID).Msg("failed to revoke sessions")
	}
}

// subjectRef identifies an erased subject in audit records without keeping
// their email.
func subjectRef(email string) string {
	sum := sha256.Sum256([]byte(domain.NormalizeEmail(email)))
	return hex.EncodeToString(sum[:])
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
