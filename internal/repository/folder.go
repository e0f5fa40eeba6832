package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/afrydman/AuditTrail/internal/models"
	"github.com/afrydman/AuditTrail/internal/pkg"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type folderRepository struct {
	collection *mongo.Collection
	mongodb    *MongoDB
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(mongodb *MongoDB) FolderRepository {
	return &folderRepository{collection: mongodb.Collection(colFolders), mongodb: mongodb}
}

// Create inserts a new folder with a sequence-allocated id
func (r *folderRepository) Create(ctx context.Context, folder *models.Folder) error {
	if folder.ID == 0 {
		id, err := r.mongodb.NextSequence(ctx, "folders")
		if err != nil {
			return err
		}
		folder.ID = id
	}
	folder.CreatedAt = time.Now().UTC()

	_, err := r.collection.InsertOne(ctx, folder)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return pkg.ErrDuplicateFolderPath
		}
		return fmt.Errorf("failed to create folder: %w", err)
	}
	return nil
}

// GetByID retrieves an active folder by id. Soft-deleted folders do
// not resolve, so nothing under them stays reachable.
func (r *folderRepository) GetByID(ctx context.Context, id int64) (*models.Folder, error) {
	var folder models.Folder
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "is_active": true}).Decode(&folder)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrFolderNotFound
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return &folder, nil
}

// GetByPath retrieves an active folder by its materialized path
func (r *folderRepository) GetByPath(ctx context.Context, path string) (*models.Folder, error) {
	var folder models.Folder
	err := r.collection.FindOne(ctx, bson.M{"path": path, "is_active": true}).Decode(&folder)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrFolderNotFound
		}
		return nil, fmt.Errorf("failed to get folder by path: %w", err)
	}
	return &folder, nil
}

// GetChildren retrieves active child folders of a parent
func (r *folderRepository) GetChildren(ctx context.Context, parentID int64) ([]*models.Folder, error) {
	return r.find(ctx, bson.M{"parent_id": parentID, "is_active": true})
}

// GetRoots retrieves active folders without a parent
func (r *folderRepository) GetRoots(ctx context.Context) ([]*models.Folder, error) {
	return r.find(ctx, bson.M{"parent_id": nil, "is_active": true})
}

func (r *folderRepository) find(ctx context.Context, filter bson.M) ([]*models.Folder, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find folders: %w", err)
	}
	defer cursor.Close(ctx)

	var folders []*models.Folder
	if err := cursor.All(ctx, &folders); err != nil {
		return nil, fmt.Errorf("failed to decode folders: %w", err)
	}
	return folders, nil
}

// Update applies field updates to a folder
func (r *folderRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	updates["modified_at"] = time.Now().UTC()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	if err != nil {
		return fmt.Errorf("failed to update folder: %w", err)
	}
	if result.MatchedCount == 0 {
		return pkg.ErrFolderNotFound
	}
	return nil
}
