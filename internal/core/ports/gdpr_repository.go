package ports

import (
	"context"
	"time"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
)

// DataRequestRepository stores data-subject requests.
type DataRequestRepository interface {
	// Upsert writes the single row for (SubjectEmail, Type), creating it
	// on first use. ID, CreatedAt and UpdatedAt are filled in on return.
	Upsert(ctx context.Context, req *domain.DataSubjectRequest) error
	ListBySubject(ctx context.Context, email string) ([]domain.DataSubjectRequest, error)
	// Rectify applies update to the account and upserts req in one
	// transaction. Nothing is written if either step fails.
	Rectify(ctx context.Context, accountID string, update domain.ProfileUpdate, req *domain.DataSubjectRequest) error
}

// DocumentRepository reads metadata owned by the document collaborator.
type DocumentRepository interface {
	ListByUploader(ctx context.Context, accountID string) ([]domain.DocumentMetadata, error)
	CountUploadedSince(ctx context.Context, accountID string, since time.Time) (int64, error)
}

// RetentionRepository stores retention policies and applies them.
type RetentionRepository interface {
	List(ctx context.Context) ([]domain.RetentionPolicy, error)
	Get(ctx context.Context, table string) (*domain.RetentionPolicy, error)
	Update(ctx context.Context, policy *domain.RetentionPolicy) error
	// SeedDefaults inserts a policy for every retention table that has none.
	SeedDefaults(ctx context.Context, days int, legalBasis string) error
	// CountExpired counts rows of table past retention at cutoff, whether or
	// not a purge could remove them yet.
	CountExpired(ctx context.Context, table string, cutoff time.Time) (int64, error)
	// Purge deletes expired rows for every table in cutoffs in a single
	// transaction and returns per-table counts. Accounts still referenced
	// by other rows are kept.
	Purge(ctx context.Context, cutoffs map[string]time.Time) (map[string]int64, error)
}

// ComplianceArchive keeps a history of compliance reports.
type ComplianceArchive interface {
	Save(ctx context.Context, report *domain.ComplianceReport) error
	// Recent returns the newest reports first.
	Recent(ctx context.Context, limit int64) ([]domain.ComplianceReport, error)
}
