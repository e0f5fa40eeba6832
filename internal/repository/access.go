package repository

import (
	"context"
	"fmt"

	"github.com/afrydman/AuditTrail/internal/models"
	"github.com/afrydman/AuditTrail/internal/pkg"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type accessRepository struct {
	collection *mongo.Collection
	mongodb    *MongoDB
}

// NewAccessRepository creates a new ACL entry repository
func NewAccessRepository(mongodb *MongoDB) AccessRepository {
	return &accessRepository{collection: mongodb.Collection(colFolderAccess), mongodb: mongodb}
}

// Create inserts a new access entry with a sequence-allocated id
func (r *accessRepository) Create(ctx context.Context, entry *models.FolderAccess) error {
	if entry.ID == 0 {
		id, err := r.mongodb.NextSequence(ctx, "folder_access")
		if err != nil {
			return err
		}
		entry.ID = id
	}

	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to create access entry: %w", err)
	}
	return nil
}

// GetActiveByFolderAndRole retrieves the single authoritative active
// entry for a (folder, role) pair
func (r *accessRepository) GetActiveByFolderAndRole(ctx context.Context, folderID, roleID int64) (*models.FolderAccess, error) {
	var entry models.FolderAccess
	filter := bson.M{"folder_id": folderID, "role_id": roleID, "is_active": true}

	err := r.collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrAccessEntryNotFound
		}
		return nil, fmt.Errorf("failed to get access entry: %w", err)
	}
	return &entry, nil
}

// ListActiveByFolder retrieves active entries for a folder ordered by
// role id
func (r *accessRepository) ListActiveByFolder(ctx context.Context, folderID int64) ([]*models.FolderAccess, error) {
	filter := bson.M{"folder_id": folderID, "is_active": true}
	opts := options.Find().SetSort(bson.D{{Key: "role_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list access entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*models.FolderAccess
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode access entries: %w", err)
	}
	return entries, nil
}

// Update applies field updates to an access entry
func (r *accessRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	if err != nil {
		return fmt.Errorf("failed to update access entry: %w", err)
	}
	if result.MatchedCount == 0 {
		return pkg.ErrAccessEntryNotFound
	}
	return nil
}
