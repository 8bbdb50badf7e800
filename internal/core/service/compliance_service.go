package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/ports"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/pkg/metrics"
)

// ComplianceService reports on retention policies and enforces them.
// Checking and purging are separate operations; a check never deletes.
type ComplianceService struct {
	retention ports.RetentionRepository
	archive   ports.ComplianceArchive
	audit     ports.AuditRecorder
	log       zerolog.Logger
	now       func() time.Time
}

var _ ports.ComplianceService = (*ComplianceService)(nil)

// NewComplianceService returns a ComplianceService. archive may be nil.
func NewComplianceService(retention ports.RetentionRepository, archive ports.ComplianceArchive, audit ports.AuditRecorder, log zerolog.Logger) *ComplianceService {
	return &ComplianceService{
		retention: retention,
		archive:   archive,
		audit:     audit,
		log:       log,
		now:       time.Now,
	}
}

// SeedPolicies creates a default policy for every retention table that has
// none.
func (s *ComplianceService) SeedPolicies(ctx context.Context, years int, legalBasis string) error {
	if years <= 0 {
		return domain.NewValidationError("default retention must be at least one year")
	}
	if err := s.retention.SeedDefaults(ctx, years*365, legalBasis); err != nil {
		return fmt.Errorf("seed retention policies: %w", err)
	}
	return nil
}

// CheckCompliance counts rows past their retention period for every policy.
func (s *ComplianceService) CheckCompliance(ctx context.Context, actorID string) (*domain.ComplianceReport, error) {
	policies, err := s.retention.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("compliance check: %w", err)
	}

	now := s.now().UTC()
	report := &domain.ComplianceReport{
		Status:    domain.ComplianceOK,
		CheckedAt: now,
		Tables:    make([]domain.TableCompliance, 0, len(policies)),
	}
	detail := make(map[string]any, len(policies)+1)

	for _, p := range policies {
		cutoff := p.Cutoff(now)
		n, err := s.retention.CountExpired(ctx, p.TableName, cutoff)
		if err != nil {
			return nil, fmt.Errorf("compliance check %s: %w", p.TableName, err)
		}
		if n > 0 {
			report.Status = domain.ComplianceRequired
		}
		report.Tables = append(report.Tables, domain.TableCompliance{
			TableName:     p.TableName,
			RetentionDays: p.RetentionDays,
			Cutoff:        cutoff,
			ExpiredRows:   n,
		})
		metrics.RetentionExpiredRows.WithLabelValues(p.TableName).Set(float64(n))
		detail[p.TableName] = n
	}
	detail["status"] = report.Status

	if s.archive != nil {
		if err := s.archive.Save(ctx, report); err != nil {
			s.log.Warn().Err(err).Msg("failed to archive compliance report")
		}
	}

	s.audit.Record(ctx, domain.AuditEntry{
		Action:       domain.ActionComplianceCheck,
		ResourceType: domain.ResourceSystem,
		ActorID:      actorID,
		Detail:       detail,
	})
	return report, nil
}

// PurgeExpired deletes every eligible row past its retention period in one
// transaction.
func (s *ComplianceService) PurgeExpired(ctx context.Context, actorID string) (*domain.PurgeResult, error) {
	policies, err := s.retention.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("retention purge: %w", err)
	}

	now := s.now().UTC()
	cutoffs := make(map[string]time.Time, len(policies))
	for _, p := range policies {
		cutoffs[p.TableName] = p.Cutoff(now)
	}

	deleted := map[string]int64{}
	if len(cutoffs) > 0 {
		deleted, err = s.retention.Purge(ctx, cutoffs)
		if err != nil {
			s.log.Error().Err(err).Msg("retention purge rolled back")
			return nil, fmt.Errorf("retention purge: %w", err)
		}
	}

	detail := make(map[string]any, len(deleted))
	for table, n := range deleted {
		metrics.RetentionPurgedRowsTotal.WithLabelValues(table).Add(float64(n))
		detail[table] = n
	}
	s.audit.Record(ctx, domain.AuditEntry{
		Action:       domain.ActionRetentionPurge,
		ResourceType: domain.ResourceSystem,
		ActorID:      actorID,
		Detail:       detail,
	})

	s.log.Info().Interface("deleted", deleted).Msg("retention purge completed")
	return &domain.PurgeResult{PurgedAt: now, Deleted: deleted}, nil
}

// ListPolicies returns every retention policy.
func (s *ComplianceService) ListPolicies(ctx context.Context) ([]domain.RetentionPolicy, error) {
	policies, err := s.retention.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list retention policies: %w", err)
	}
	return nonNil(policies), nil
}

// UpdatePolicy changes the retention period of table and marks it reviewed.
// An empty legalBasis keeps the current one.
func (s *ComplianceService) UpdatePolicy(ctx context.Context, table string, days int, legalBasis, actorID string) (*domain.RetentionPolicy, error) {
	var problems []string
	if !slices.Contains(domain.RetentionTables(), table) {
		problems = append(problems, fmt.Sprintf("table %q has no retention policy", table))
	}
	if days <= 0 {
		problems = append(problems, "retention days must be positive")
	}
	if err := domain.NewValidationError(problems...); err != nil {
		return nil, err
	}

	policy, err := s.retention.Get(ctx, table)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		policy = &domain.RetentionPolicy{TableName: table}
	case err != nil:
		return nil, fmt.Errorf("update retention policy: %w", err)
	}
	previous := policy.RetentionDays

	policy.RetentionDays = days
	if basis := strings.TrimSpace(legalBasis); basis != "" {
		policy.LegalBasis = basis
	}
	policy.LastReviewedAt = s.now().UTC()

	if err := s.retention.Update(ctx, policy); err != nil {
		return nil, fmt.Errorf("update retention policy: %w", err)
	}

	s.audit.Record(ctx, domain.AuditEntry{
		Action:       domain.ActionRetentionPolicySet,
		ResourceType: domain.ResourceRetentionPolicy,
		ResourceID:   table,
		ActorID:      actorID,
		Detail:       map[string]any{"old_days": previous, "new_days": days},
	})
	return policy, nil
}

// ReportHistory returns the most recent archived compliance reports, newest
// first. Without an archive the history is empty.
func (s *ComplianceService) ReportHistory(ctx context.Context, limit int) ([]domain.ComplianceReport, error) {
	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}
	if s.archive == nil {
		return []domain.ComplianceReport{}, nil
	}
	reports, err := s.archive.Recent(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("compliance history: %w", err)
	}
	return nonNil(reports), nil
}
