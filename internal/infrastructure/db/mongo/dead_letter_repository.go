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
)

const collectionDeadLetters = "audit_dead_letters"

type deadLetter struct {
	ID           string         `bson:"_id"`
	ActorID      string         `bson:"actor_id,omitempty"`
	Action       string         `bson:"action"`
	ResourceType string         `bson:"resource_type"`
	ResourceID   string         `bson:"resource_id,omitempty"`
	Detail       map[string]any `bson:"detail,omitempty"`
	Origin       string         `bson:"origin,omitempty"`
	CreatedAt    time.Time      `bson:"created_at"`
	Cause        string         `bson:"cause"`
	FailedAt     time.Time      `bson:"failed_at"`
	Parked       bool           `bson:"parked,omitempty"`
	ParkedAt     *time.Time     `bson:"parked_at,omitempty"`
}

// DeadLetterRepository keeps audit events the primary store rejected so they
// can be replayed. It implements ports.AuditFallback.
type DeadLetterRepository struct {
	col *mongo.Collection
	now func() time.Time
}

var (
	_ ports.AuditFallback    = (*DeadLetterRepository)(nil)
	_ ports.AuditDeadLetters = (*DeadLetterRepository)(nil)
	_ ports.DeadLetterEraser = (*DeadLetterRepository)(nil)
)

func NewDeadLetterRepository(db *mongo.Database) *DeadLetterRepository {
	return &DeadLetterRepository{col: db.Collection(collectionDeadLetters), now: time.Now}
}

// Store upserts by event id so a retried write never duplicates the letter.
func (r *DeadLetterRepository) Store(ctx context.Context, e *domain.AuditEvent, cause error) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := deadLetter{
		ID:           e.ID,
		ActorID:      e.ActorID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Detail:       e.Detail,
		Origin:       e.Origin,
		CreatedAt:    e.CreatedAt.UTC(),
		FailedAt:     r.now().UTC(),
	}
	if cause != nil {
		doc.Cause = cause.Error()
	}

	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store dead letter: %w", err)
	}
	return nil
}

// Oldest returns up to limit unparked letters in the order they were created.
func (r *DeadLetterRepository) Oldest(ctx context.Context, limit int64) ([]domain.AuditEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}).SetLimit(limit)
	cur, err := r.col.Find(ctx, bson.M{"parked": bson.M{"$ne": true}}, opts)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer cur.Close(ctx)

	var docs []deadLetter
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode dead letters: %w", err)
	}
	events := make([]domain.AuditEvent, 0, len(docs))
	for _, d := range docs {
		events = append(events, domain.AuditEvent{
			ID:           d.ID,
			ActorID:      d.ActorID,
			Action:       d.Action,
			ResourceType: d.ResourceType,
			ResourceID:   d.ResourceID,
			Detail:       d.Detail,
			Origin:       d.Origin,
			CreatedAt:    d.CreatedAt,
		})
	}
	return events, nil
}

// Remove drops the letter for id once it has been replayed.
func (r *DeadLetterRepository) Remove(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("remove dead letter: %w", err)
	}
	return nil
}

// Park keeps the letter for inspection but takes it out of replay.
func (r *DeadLetterRepository) Park(ctx context.Context, id string, cause error) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"parked": true, "parked_at": r.now().UTC()}
	if cause != nil {
		set["cause"] = cause.Error()
	}
	if _, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}); err != nil {
		return fmt.Errorf("park dead letter: %w", err)
	}
	return nil
}

// RemoveByActor deletes every letter performed by actorID, parked or not.
func (r *DeadLetterRepository) RemoveByActor(ctx context.Context, actorID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteMany(ctx, bson.M{"actor_id": actorID})
	if err != nil {
		return 0, fmt.Errorf("remove dead letters by actor: %w", err)
	}
	return res.DeletedCount, nil
}
