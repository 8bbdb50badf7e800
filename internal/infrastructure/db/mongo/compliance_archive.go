package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/domain"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/core/ports"
	"github.com/chrislovescoding/AuditSuite-sub000/internal/pkg/ids"
)

const collectionReports = "compliance_reports"

type tableDoc struct {
	TableName     string    `bson:"table"`
	RetentionDays int       `bson:"retention_days"`
	Cutoff        time.Time `bson:"cutoff"`
	ExpiredRows   int64     `bson:"expired_rows"`
}

type reportDoc struct {
	ID        string     `bson:"_id"`
	Status    string     `bson:"status"`
	CheckedAt time.Time  `bson:"checked_at"`
	Tables    []tableDoc `bson:"tables"`
}

// ComplianceArchive keeps every compliance report so regulators can see the
// history of checks, not just the latest verdict.
type ComplianceArchive struct {
	col *mongo.Collection
}

var _ ports.ComplianceArchive = (*ComplianceArchive)(nil)

func NewComplianceArchive(db *mongo.Database) *ComplianceArchive {
	return &ComplianceArchive{col: db.Collection(collectionReports)}
}

// Save appends report.
func (a *ComplianceArchive) Save(ctx context.Context, report *domain.ComplianceReport) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := reportDoc{
		ID:        ids.New(),
		Status:    report.Status,
		CheckedAt: report.CheckedAt.UTC(),
		Tables:    make([]tableDoc, 0, len(report.Tables)),
	}
	for _, t := range report.Tables {
		doc.Tables = append(doc.Tables, tableDoc(t))
	}
	if _, err := a.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("archive compliance report: %w", err)
	}
	return nil
}

// Recent returns up to limit reports, newest first.
func (a *ComplianceArchive) Recent(ctx context.Context, limit int64) ([]domain.ComplianceReport, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "checked_at", Value: -1}}).SetLimit(limit)
	cur, err := a.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list compliance reports: %w", err)
	}
	defer cur.Close(ctx)

	var docs []reportDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode compliance reports: %w", err)
	}
	out := make([]domain.ComplianceReport, 0, len(docs))
	for _, d := range docs {
		r := domain.ComplianceReport{Status: d.Status, CheckedAt: d.CheckedAt}
		for _, t := range d.Tables {
			r.Tables = append(r.Tables, domain.TableCompliance(t))
		}
		out = append(out, r)
	}
	return out, nil
}
