package repository

import (
	"context"
	"time"

	"github.com/afrydman/AuditTrail/internal/models"
	"github.com/afrydman/AuditTrail/internal/pkg"
)

// UserRepository defines user persistence operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	List(ctx context.Context, params *pkg.PaginationParams) ([]*models.User, int64, error)
}

// RoleRepository defines role persistence operations
type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	GetByID(ctx context.Context, id int64) (*models.Role, error)
	GetByName(ctx context.Context, name string) (*models.Role, error)
	List(ctx context.Context) ([]*models.Role, error)
}

// FolderRepository defines folder persistence operations
type FolderRepository interface {
	Create(ctx context.Context, folder *models.Folder) error
	GetByID(ctx context.Context, id int64) (*models.Folder, error)
	GetByPath(ctx context.Context, path string) (*models.Folder, error)
	GetChildren(ctx context.Context, parentID int64) ([]*models.Folder, error)
	GetRoots(ctx context.Context) ([]*models.Folder, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
}

// FileRepository defines file persistence operations
type FileRepository interface {
	Create(ctx context.Context, file *models.File) error
	GetByID(ctx context.Context, id string) (*models.File, error)
	GetCurrentByName(ctx context.Context, folderID int64, name string) (*models.File, error)
	ListCurrentByFolder(ctx context.Context, folderID int64) ([]*models.File, error)
	ListVersions(ctx context.Context, folderID int64, name string) ([]*models.File, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
}

// AccessRepository defines ACL entry persistence operations
type AccessRepository interface {
	Create(ctx context.Context, entry *models.FolderAccess) error
	GetActiveByFolderAndRole(ctx context.Context, folderID, roleID int64) (*models.FolderAccess, error)
	ListActiveByFolder(ctx context.Context, folderID int64) ([]*models.FolderAccess, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
}

// AuditRepository persists immutable audit entries. Insert is the only
// mutation: the interface has no update or delete on purpose, which is
// what makes the trail tamper-evident at the application level.
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditEntry) error
	Search(ctx context.Context, filter AuditFilter, params *pkg.PaginationParams) ([]*models.AuditEntry, int64, error)
	GetByUser(ctx context.Context, userID string, since time.Time) ([]*models.AuditEntry, error)
	GetByEntity(ctx context.Context, entityID string) ([]*models.AuditEntry, error)
}

// AuditFilter holds optional audit search criteria; nil fields widen
// the result set.
type AuditFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	UserID     string
	EventType  string
	EntityType string
}

// LoginAttemptRepository records authentication attempts
type LoginAttemptRepository interface {
	Create(ctx context.Context, attempt *models.LoginAttempt) error
	CountRecentFailures(ctx context.Context, username string, since time.Time) (int64, error)
}

// Repository aggregates all repositories
type Repository struct {
	User         UserRepository
	Role         RoleRepository
	Folder       FolderRepository
	File         FileRepository
	Access       AccessRepository
	Audit        AuditRepository
	LoginAttempt LoginAttemptRepository
}
