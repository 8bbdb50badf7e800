package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/ports"
)

// DocumentRepository reads document metadata. Uploads themselves belong to
// the document service; this side only lists and counts.
type DocumentRepository struct {
	repo
}

var _ ports.DocumentRepository = (*DocumentRepository)(nil)

func NewDocumentRepository(db *sqlx.DB, timeout time.Duration) *DocumentRepository {
	return &DocumentRepository{repo: newRepo(db, timeout)}
}

type documentRow struct {
	ID         string    `db:"id"`
	UploadedBy string    `db:"uploaded_by"`
	FileName   string    `db:"file_name"`
	SizeBytes  int64     `db:"size_bytes"`
	MimeType   string    `db:"mime_type"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r *DocumentRepository) ListByUploader(ctx context.Context, accountID string) ([]domain.DocumentMetadata, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var rows []documentRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, uploaded_by, file_name, size_bytes, mime_type, created_at
		FROM documents WHERE uploaded_by = $1
		ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, storeErr("list documents", err)
	}
	docs := make([]domain.DocumentMetadata, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, domain.DocumentMetadata(row))
	}
	return docs, nil
}

func (r *DocumentRepository) CountUploadedSince(ctx context.Context, accountID string, since time.Time) (int64, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT count(*) FROM documents WHERE uploaded_by = $1 AND created_at >= $2`, accountID, since)
	if err != nil {
		return 0, storeErr("count documents", err)
	}
	return n, nil
}
