package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
)

func TestRetentionRepository_CountExpired(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRetentionRepository(db, time.Second)
	cutoff := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM documents WHERE created_at < $1")).
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(4)))

	n, err := repo.CountExpired(context.Background(), domain.TableDocuments, cutoff)
	if err != nil {
		t.Fatalf("CountExpired: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4, got %d", n)
	}
	expectMet(t, mock)
}

func TestRetentionRepository_CountExpired_AccountsIgnoreReferences(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRetentionRepository(db, time.Second)
	cutoff := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)

	// Referencing audit rows must not hide an expired account from the check.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM accounts WHERE status <> 'active' AND created_at < $1") + "$").
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))

	n, err := repo.CountExpired(context.Background(), domain.TableAccounts, cutoff)
	if err != nil {
		t.Fatalf("CountExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1, got %d", n)
	}
	expectMet(t, mock)
}

func TestRetentionRepository_CountExpired_UnknownTable(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRetentionRepository(db, time.Second)

	_, err := repo.CountExpired(context.Background(), "accounts; DROP TABLE accounts", time.Now())
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	expectMet(t, mock)
}

func TestRetentionRepository_Purge_ChildrenBeforeAccounts(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRetentionRepository(db, time.Second)

	cut := time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC)
	cutoffs := map[string]time.Time{
		domain.TableAccounts:     cut,
		domain.TableDocuments:    cut,
		domain.TableGDPRRequests: cut,
		domain.TableAuditLogs:    cut,
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM audit_logs WHERE").WithArgs(cut).WillReturnResult(sqlmock.NewResult(0, 40))
	mock.ExpectExec("DELETE FROM gdpr_requests WHERE").WithArgs(cut).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM documents WHERE").WithArgs(cut).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM accounts WHERE status <> 'active' AND created_at < $1") + "\\s+AND NOT EXISTS").WithArgs(cut).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	deleted, err := repo.Purge(context.Background(), cutoffs)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if deleted[domain.TableAuditLogs] != 40 || deleted[domain.TableAccounts] != 2 || deleted[domain.TableDocuments] != 0 {
		t.Fatalf("unexpected counts: %v", deleted)
	}
	if len(deleted) != 4 {
		t.Fatalf("expected four tables reported, got %v", deleted)
	}
	expectMet(t, mock)
}

func TestRetentionRepository_Purge_SkipsTablesWithoutCutoff(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRetentionRepository(db, time.Second)
	cut := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM documents").WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	deleted, err := repo.Purge(context.Background(), map[string]time.Time{domain.TableDocuments: cut})
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if len(deleted) != 1 || deleted[domain.TableDocuments] != 5 {
		t.Fatalf("unexpected counts: %v", deleted)
	}
	expectMet(t, mock)
}

func TestRetentionRepository_Purge_RollsBackOnFailure(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRetentionRepository(db, time.Second)
	cut := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM audit_logs").WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec("DELETE FROM gdpr_requests").WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	deleted, err := repo.Purge(context.Background(), map[string]time.Time{
		domain.TableAuditLogs:    cut,
		domain.TableGDPRRequests: cut,
	})
	if !errors.Is(err, domain.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	if deleted != nil {
		t.Fatalf("expected no counts on failure, got %v", deleted)
	}
	expectMet(t, mock)
}

func TestRetentionRepository_Purge_RejectsUnknownTable(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRetentionRepository(db, time.Second)

	_, err := repo.Purge(context.Background(), map[string]time.Time{"sessions": time.Now()})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	expectMet(t, mock)
}

func TestRetentionRepository_SeedDefaults(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRetentionRepository(db, time.Second)

	mock.ExpectBegin()
	for _, table := range domain.RetentionTables() {
		mock.ExpectExec("ON CONFLICT \\(table_name\\) DO NOTHING").
			WithArgs(table, 2555, "Local Government Act 1972").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	if err := repo.SeedDefaults(context.Background(), 2555, "Local Government Act 1972"); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	expectMet(t, mock)
}

func TestRetentionRepository_Get_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRetentionRepository(db, time.Second)

	mock.ExpectQuery("FROM retention_policies WHERE table_name").
		WithArgs("documents").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "retention_days", "legal_basis", "last_reviewed_at"}))

	if _, err := repo.Get(context.Background(), "documents"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectMet(t, mock)
}
