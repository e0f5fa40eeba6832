package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/afrydman/AuditTrail/internal/models"
	"github.com/afrydman/AuditTrail/internal/pkg"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type roleRepository struct {
	collection *mongo.Collection
	mongodb    *MongoDB
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(mongodb *MongoDB) RoleRepository {
	return &roleRepository{collection: mongodb.Collection(colRoles), mongodb: mongodb}
}

// Create inserts a new role with a sequence-allocated id
func (r *roleRepository) Create(ctx context.Context, role *models.Role) error {
	if role.ID == 0 {
		id, err := r.mongodb.NextSequence(ctx, "roles")
		if err != nil {
			return err
		}
		role.ID = id
	}
	role.CreatedAt = time.Now().UTC()

	_, err := r.collection.InsertOne(ctx, role)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return pkg.NewAppError("DUPLICATE_ROLE", "Role name already exists", 409)
		}
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

// GetByID retrieves a role by id
func (r *roleRepository) GetByID(ctx context.Context, id int64) (*models.Role, error) {
	var role models.Role
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&role)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &role, nil
}

// GetByName retrieves a role by its unique name
func (r *roleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	err := r.collection.FindOne(ctx, bson.M{"role_name": name}).Decode(&role)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role by name: %w", err)
	}
	return &role, nil
}

// List retrieves all roles
func (r *roleRepository) List(ctx context.Context) ([]*models.Role, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer cursor.Close(ctx)

	var roles []*models.Role
	if err := cursor.All(ctx, &roles); err != nil {
		return nil, fmt.Errorf("failed to decode roles: %w", err)
	}
	return roles, nil
}
