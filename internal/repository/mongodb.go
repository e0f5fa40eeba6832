package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	colUsers         = "users"
	colRoles         = "roles"
	colFolders       = "folders"
	colFiles         = "files"
	colFolderAccess  = "folder_access"
	colAuditTrail    = "audit_trail"
	colLoginAttempts = "login_attempts"
	colCounters      = "counters"
)

// MongoDB client wrapper
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
}

// Connect establishes connection to MongoDB
func Connect(uri, dbName string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	m := &MongoDB{
		client:   client,
		database: client.Database(dbName),
	}

	if err := m.createIndexes(); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return m, nil
}

// Disconnect closes the MongoDB connection
func (m *MongoDB) Disconnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// Collection returns a collection instance
func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// NextSequence allocates the next value of a named int64 sequence using
// an atomic findOneAndUpdate on the counters collection. Used for
// folder, role and access-entry ids.
func (m *MongoDB) NextSequence(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}

	err := m.Collection(colCounters).FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate sequence %q: %w", name, err)
	}

	return counter.Seq, nil
}

func (m *MongoDB) createIndexes() error {
	ctx := context.Background()

	userIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role_id", Value: 1}}},
		{Keys: bson.D{{Key: "is_active", Value: 1}}},
	}
	if _, err := m.Collection(colUsers).Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	roleIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "role_name", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := m.Collection(colRoles).Indexes().CreateMany(ctx, roleIndexes); err != nil {
		return fmt.Errorf("failed to create role indexes: %w", err)
	}

	// Path uniqueness holds among active folders only; soft-deleted
	// folders keep their path out of the partial index.
	folderIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "path", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"is_active": true}),
		},
		{Keys: bson.D{{Key: "parent_id", Value: 1}}},
	}
	if _, err := m.Collection(colFolders).Indexes().CreateMany(ctx, folderIndexes); err != nil {
		return fmt.Errorf("failed to create folder indexes: %w", err)
	}

	fileIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "folder_id", Value: 1}, {Key: "name", Value: 1}, {Key: "is_current_version", Value: 1}}},
		{Keys: bson.D{{Key: "checksum", Value: 1}}},
		{Keys: bson.D{{Key: "uploaded_date", Value: -1}}},
	}
	if _, err := m.Collection(colFiles).Indexes().CreateMany(ctx, fileIndexes); err != nil {
		return fmt.Errorf("failed to create file indexes: %w", err)
	}

	accessIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "folder_id", Value: 1}, {Key: "role_id", Value: 1}, {Key: "is_active", Value: 1}}},
		{Keys: bson.D{{Key: "role_id", Value: 1}}},
	}
	if _, err := m.Collection(colFolderAccess).Indexes().CreateMany(ctx, accessIndexes); err != nil {
		return fmt.Errorf("failed to create access indexes: %w", err)
	}

	auditIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "entity_id", Value: 1}}},
	}
	if _, err := m.Collection(colAuditTrail).Indexes().CreateMany(ctx, auditIndexes); err != nil {
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}

	attemptIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}, {Key: "attempt_date", Value: -1}}},
	}
	if _, err := m.Collection(colLoginAttempts).Indexes().CreateMany(ctx, attemptIndexes); err != nil {
		return fmt.Errorf("failed to create login attempt indexes: %w", err)
	}

	return nil
}

// NewRepositories creates all repository instances
func NewRepositories(mongodb *MongoDB) *Repository {
	return &Repository{
		User:         NewUserRepository(mongodb),
		Role:         NewRoleRepository(mongodb),
		Folder:       NewFolderRepository(mongodb),
		File:         NewFileRepository(mongodb),
		Access:       NewAccessRepository(mongodb),
		Audit:        NewAuditRepository(mongodb),
		LoginAttempt: NewLoginAttemptRepository(mongodb),
	}
}
