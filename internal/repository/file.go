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

type fileRepository struct {
	collection *mongo.Collection
}

// NewFileRepository creates a new file repository
func NewFileRepository(mongodb *MongoDB) FileRepository {
	return &fileRepository{collection: mongodb.Collection(colFiles)}
}

// Create inserts a new file version
func (r *fileRepository) Create(ctx context.Context, file *models.File) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	file.CreatedAt = time.Now().UTC()

	if _, err := r.collection.InsertOne(ctx, file); err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

// GetByID retrieves a file version by id
func (r *fileRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	var file models.File
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&file)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return &file, nil
}

// GetCurrentByName retrieves the current version of a logical file
// within a folder
func (r *fileRepository) GetCurrentByName(ctx context.Context, folderID int64, name string) (*models.File, error) {
	var file models.File
	filter := bson.M{
		"folder_id":          folderID,
		"name":               name,
		"is_current_version": true,
		"is_deleted":         false,
	}
	err := r.collection.FindOne(ctx, filter).Decode(&file)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get current file version: %w", err)
	}
	return &file, nil
}

// ListCurrentByFolder retrieves the current, non-deleted version of
// every logical file in a folder
func (r *fileRepository) ListCurrentByFolder(ctx context.Context, folderID int64) ([]*models.File, error) {
	filter := bson.M{
		"folder_id":          folderID,
		"is_current_version": true,
		"is_deleted":         false,
	}
	return r.find(ctx, filter, bson.D{{Key: "name", Value: 1}})
}

// ListVersions retrieves the full version chain of a logical file,
// newest first
func (r *fileRepository) ListVersions(ctx context.Context, folderID int64, name string) ([]*models.File, error) {
	filter := bson.M{"folder_id": folderID, "name": name}
	return r.find(ctx, filter, bson.D{{Key: "version", Value: -1}})
}

func (r *fileRepository) find(ctx context.Context, filter bson.M, sort bson.D) ([]*models.File, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("failed to find files: %w", err)
	}
	defer cursor.Close(ctx)

	var files []*models.File
	if err := cursor.All(ctx, &files); err != nil {
		return nil, fmt.Errorf("failed to decode files: %w", err)
	}
	return files, nil
}

// Update applies field updates to a file version
func (r *fileRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	updates["modified_at"] = time.Now().UTC()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}
	if result.MatchedCount == 0 {
		return pkg.ErrFileNotFound
	}
	return nil
}
