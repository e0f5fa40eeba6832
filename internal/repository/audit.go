package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/afrydman/AuditTrail/internal/models"
	"github.com/afrydman/AuditTrail/internal/pkg"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// auditRepository only ever inserts into the audit collection. There is
// no update or delete path here; compliance requires the trail to be
// append-only.
type auditRepository struct {
	collection *mongo.Collection
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(mongodb *MongoDB) AuditRepository {
	return &auditRepository{collection: mongodb.Collection(colAuditTrail)}
}

// Create inserts an immutable audit entry
func (r *auditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return pkg.ErrAuditWriteFailed.WithCause(err)
	}
	return nil
}

// Search retrieves entries matching the filter, newest first. Nil
// filter fields widen the result set.
func (r *auditRepository) Search(ctx context.Context, filter AuditFilter, params *pkg.PaginationParams) ([]*models.AuditEntry, int64, error) {
	query := bson.M{}

	if filter.StartDate != nil || filter.EndDate != nil {
		ts := bson.M{}
		if filter.StartDate != nil {
			ts["$gte"] = *filter.StartDate
		}
		if filter.EndDate != nil {
			ts["$lte"] = *filter.EndDate
		}
		query["timestamp"] = ts
	}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.EventType != "" {
		query["event_type"] = filter.EventType
	}
	if filter.EntityType != "" {
		query["entity_type"] = filter.EntityType
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	opts := options.Find().
		SetSkip(int64(params.GetOffset())).
		SetLimit(int64(params.Limit)).
		SetSort(bson.D{{Key: "timestamp", Value: -1}})

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search audit trail: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*models.AuditEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, 0, fmt.Errorf("failed to decode audit entries: %w", err)
	}

	return entries, total, nil
}

// GetByUser retrieves a user's entries since the given time, newest
// first
func (r *auditRepository) GetByUser(ctx context.Context, userID string, since time.Time) ([]*models.AuditEntry, error) {
	filter := bson.M{"user_id": userID, "timestamp": bson.M{"$gte": since}}
	return r.find(ctx, filter)
}

// GetByEntity retrieves all entries referencing an entity, newest first
func (r *auditRepository) GetByEntity(ctx context.Context, entityID string) ([]*models.AuditEntry, error) {
	return r.find(ctx, bson.M{"entity_id": entityID})
}

func (r *auditRepository) find(ctx context.Context, filter bson.M) ([]*models.AuditEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*models.AuditEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}
	return entries, nil
}

type loginAttemptRepository struct {
	collection *mongo.Collection
}

// NewLoginAttemptRepository creates a new login attempt repository
func NewLoginAttemptRepository(mongodb *MongoDB) LoginAttemptRepository {
	return &loginAttemptRepository{collection: mongodb.Collection(colLoginAttempts)}
}

// Create records a login attempt
func (r *loginAttemptRepository) Create(ctx context.Context, attempt *models.LoginAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.AttemptDate.IsZero() {
		attempt.AttemptDate = time.Now().UTC()
	}

	if _, err := r.collection.InsertOne(ctx, attempt); err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	return nil
}

// CountRecentFailures counts failed attempts for a username since the
// given time
func (r *loginAttemptRepository) CountRecentFailures(ctx context.Context, username string, since time.Time) (int64, error) {
	filter := bson.M{
		"username":      username,
		"is_successful": false,
		"attempt_date":  bson.M{"$gte": since},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count login failures: %w", err)
	}
	return count, nil
}
