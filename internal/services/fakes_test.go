package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/afrydman/AuditTrail/internal/models"
	"github.com/afrydman/AuditTrail/internal/pkg"
	"github.com/afrydman/AuditTrail/internal/repository"

	"github.com/google/uuid"
)

// In-memory repositories backing the service tests. Update applies the
// same field-key maps the Mongo repositories receive, so the services
// are exercised with their real update payloads.

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*models.User)}
}

func (r *memUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return pkg.ErrDuplicateUsername
		}
		if u.Email == user.Email {
			return pkg.ErrDuplicateEmail
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, pkg.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, pkg.ErrUserNotFound
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, pkg.ErrUserNotFound
}

func (r *memUserRepo) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return pkg.ErrUserNotFound
	}
	for key, value := range updates {
		switch key {
		case "failed_login_attempts":
			u.FailedLoginAttempts = value.(int)
		case "is_locked":
			u.IsLocked = value.(bool)
		case "lockout_end":
			if value == nil {
				u.LockoutEnd = nil
			} else {
				t := value.(time.Time)
				u.LockoutEnd = &t
			}
		case "last_login_date":
			t := value.(time.Time)
			u.LastLoginDate = &t
		case "last_login_ip":
			u.LastLoginIP = value.(string)
		case "password_hash":
			u.PasswordHash = value.(string)
		case "last_password_change_date":
			t := value.(time.Time)
			u.LastPasswordChangeDate = &t
		case "must_change_password":
			u.MustChangePassword = value.(bool)
		case "is_active":
			u.IsActive = value.(bool)
		case "role_id":
			u.RoleID = value.(int64)
		case "modified_at":
			t := value.(time.Time)
			u.ModifiedAt = &t
		case "modified_by":
			u.ModifiedBy = value.(string)
		}
	}
	return nil
}

func (r *memUserRepo) List(ctx context.Context, params *pkg.PaginationParams) ([]*models.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, u := range r.users {
		clone := *u
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, int64(len(out)), nil
}

type memRoleRepo struct {
	mu     sync.Mutex
	nextID int64
	roles  map[int64]*models.Role
}

func newMemRoleRepo() *memRoleRepo {
	return &memRoleRepo{roles: make(map[int64]*models.Role)}
}

func (r *memRoleRepo) Create(ctx context.Context, role *models.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role.ID == 0 {
		r.nextID++
		role.ID = r.nextID
	}
	clone := *role
	r.roles[role.ID] = &clone
	return nil
}

func (r *memRoleRepo) GetByID(ctx context.Context, id int64) (*models.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok {
		return nil, pkg.ErrRoleNotFound
	}
	clone := *role
	return &clone, nil
}

func (r *memRoleRepo) GetByName(ctx context.Context, name string) (*models.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, role := range r.roles {
		if strings.EqualFold(role.RoleName, name) {
			clone := *role
			return &clone, nil
		}
	}
	return nil, pkg.ErrRoleNotFound
}

func (r *memRoleRepo) List(ctx context.Context) ([]*models.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Role
	for _, role := range r.roles {
		clone := *role
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memFolderRepo struct {
	mu      sync.Mutex
	nextID  int64
	folders map[int64]*models.Folder
}

func newMemFolderRepo() *memFolderRepo {
	return &memFolderRepo{folders: make(map[int64]*models.Folder)}
}

func (r *memFolderRepo) Create(ctx context.Context, folder *models.Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.folders {
		if f.IsActive && f.Path == folder.Path {
			return pkg.ErrDuplicateFolderPath
		}
	}
	if folder.ID == 0 {
		r.nextID++
		folder.ID = r.nextID
	}
	clone := *folder
	r.folders[folder.ID] = &clone
	return nil
}

func (r *memFolderRepo) GetByID(ctx context.Context, id int64) (*models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[id]
	if !ok || !f.IsActive {
		return nil, pkg.ErrFolderNotFound
	}
	clone := *f
	return &clone, nil
}

func (r *memFolderRepo) GetByPath(ctx context.Context, path string) (*models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.folders {
		if f.IsActive && f.Path == path {
			clone := *f
			return &clone, nil
		}
	}
	return nil, pkg.ErrFolderNotFound
}

func (r *memFolderRepo) GetChildren(ctx context.Context, parentID int64) ([]*models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Folder
	for _, f := range r.folders {
		if f.IsActive && f.ParentID != nil && *f.ParentID == parentID {
			clone := *f
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memFolderRepo) GetRoots(ctx context.Context) ([]*models.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Folder
	for _, f := range r.folders {
		if f.IsActive && f.ParentID == nil {
			clone := *f
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memFolderRepo) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[id]
	if !ok {
		return pkg.ErrFolderNotFound
	}
	for key, value := range updates {
		switch key {
		case "is_active":
			f.IsActive = value.(bool)
		case "description":
			f.Description = value.(string)
		case "inherit_parent_permissions":
			f.InheritParentPermissions = value.(bool)
		case "require_explicit_access":
			f.RequireExplicitAccess = value.(bool)
		case "modified_at":
			t := value.(time.Time)
			f.ModifiedAt = &t
		case "modified_by":
			f.ModifiedBy = value.(string)
		}
	}
	return nil
}

type memFileRepo struct {
	mu    sync.Mutex
	files map[string]*models.File
}

func newMemFileRepo() *memFileRepo {
	return &memFileRepo{files: make(map[string]*models.File)}
}

func (r *memFileRepo) Create(ctx context.Context, file *models.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	clone := *file
	r.files[file.ID] = &clone
	return nil
}

func (r *memFileRepo) GetByID(ctx context.Context, id string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, pkg.ErrFileNotFound
	}
	clone := *f
	return &clone, nil
}

func (r *memFileRepo) GetCurrentByName(ctx context.Context, folderID int64, name string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.files {
		if f.FolderID != nil && *f.FolderID == folderID && f.Name == name && f.IsCurrentVersion && !f.IsDeleted {
			clone := *f
			return &clone, nil
		}
	}
	return nil, pkg.ErrFileNotFound
}

func (r *memFileRepo) ListCurrentByFolder(ctx context.Context, folderID int64) ([]*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.File
	for _, f := range r.files {
		if f.FolderID != nil && *f.FolderID == folderID && f.IsCurrentVersion && !f.IsDeleted {
			clone := *f
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memFileRepo) ListVersions(ctx context.Context, folderID int64, name string) ([]*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.File
	for _, f := range r.files {
		if f.FolderID != nil && *f.FolderID == folderID && f.Name == name {
			clone := *f
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (r *memFileRepo) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return pkg.ErrFileNotFound
	}
	for key, value := range updates {
		switch key {
		case "is_current_version":
			f.IsCurrentVersion = value.(bool)
		case "description":
			f.Description = value.(string)
		case "is_deleted":
			f.IsDeleted = value.(bool)
		case "deleted_date":
			t := value.(time.Time)
			f.DeletedDate = &t
		case "deleted_by":
			f.DeletedBy = value.(string)
		case "delete_reason":
			f.DeleteReason = value.(string)
		case "modified_at":
			t := value.(time.Time)
			f.ModifiedAt = &t
		case "modified_by":
			f.ModifiedBy = value.(string)
		}
	}
	return nil
}

type memAccessRepo struct {
	mu      sync.Mutex
	nextID  int64
	entries map[int64]*models.FolderAccess
}

func newMemAccessRepo() *memAccessRepo {
	return &memAccessRepo{entries: make(map[int64]*models.FolderAccess)}
}

func (r *memAccessRepo) Create(ctx context.Context, entry *models.FolderAccess) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == 0 {
		r.nextID++
		entry.ID = r.nextID
	}
	clone := *entry
	r.entries[entry.ID] = &clone
	return nil
}

func (r *memAccessRepo) GetActiveByFolderAndRole(ctx context.Context, folderID, roleID int64) (*models.FolderAccess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.IsActive && e.FolderID == folderID && e.RoleID != nil && *e.RoleID == roleID {
			clone := *e
			return &clone, nil
		}
	}
	return nil, pkg.ErrAccessEntryNotFound
}

func (r *memAccessRepo) ListActiveByFolder(ctx context.Context, folderID int64) ([]*models.FolderAccess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.FolderAccess
	for _, e := range r.entries {
		if e.IsActive && e.FolderID == folderID {
			clone := *e
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memAccessRepo) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return pkg.ErrAccessEntryNotFound
	}
	for key, value := range updates {
		switch key {
		case "permissions":
			e.Mask = value.(models.Permission)
		case "granted_by":
			e.GrantedBy = value.(string)
		case "granted_date":
			e.GrantedDate = value.(time.Time)
		case "is_active":
			e.IsActive = value.(bool)
		case "revoked_by":
			e.RevokedBy = value.(string)
		case "revoked_date":
			t := value.(time.Time)
			e.RevokedDate = &t
		case "revoke_reason":
			e.RevokeReason = value.(string)
		}
	}
	return nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AuditEntry
	failing bool
}

func newMemAuditRepo() *memAuditRepo {
	return &memAuditRepo{}
}

func (r *memAuditRepo) Create(ctx context.Context, entry *models.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return pkg.ErrAuditWriteFailed
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	clone := *entry
	r.entries = append(r.entries, &clone)
	return nil
}

func (r *memAuditRepo) Search(ctx context.Context, filter repository.AuditFilter, params *pkg.PaginationParams) ([]*models.AuditEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditEntry
	for _, e := range r.entries {
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		if filter.EventType != "" && e.EventType != filter.EventType {
			continue
		}
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		if filter.StartDate != nil && e.Timestamp.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && e.Timestamp.After(*filter.EndDate) {
			continue
		}
		clone := *e
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

func (r *memAuditRepo) GetByUser(ctx context.Context, userID string, since time.Time) ([]*models.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditEntry
	for _, e := range r.entries {
		if e.UserID == userID && !e.Timestamp.Before(since) {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memAuditRepo) GetByEntity(ctx context.Context, entityID string) ([]*models.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditEntry
	for _, e := range r.entries {
		if e.EntityID == entityID {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memAuditRepo) byEventType(eventType string) []*models.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditEntry
	for _, e := range r.entries {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (r *memAuditRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type memAttemptRepo struct {
	mu       sync.Mutex
	attempts []*models.LoginAttempt
}

func newMemAttemptRepo() *memAttemptRepo {
	return &memAttemptRepo{}
}

func (r *memAttemptRepo) Create(ctx context.Context, attempt *models.LoginAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.AttemptDate.IsZero() {
		attempt.AttemptDate = time.Now().UTC()
	}
	clone := *attempt
	r.attempts = append(r.attempts, &clone)
	return nil
}

func (r *memAttemptRepo) CountRecentFailures(ctx context.Context, username string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, a := range r.attempts {
		if a.Username == username && !a.IsSuccessful && !a.AttemptDate.Before(since) {
			count++
		}
	}
	return count, nil
}

// fixture wires the services against the in-memory repositories
type fixture struct {
	users    *memUserRepo
	roles    *memRoleRepo
	folders  *memFolderRepo
	files    *memFileRepo
	access   *memAccessRepo
	audits   *memAuditRepo
	attempts *memAttemptRepo

	audit       *AuditService
	changes     *ChangeRecorder
	permissions *PermissionService
}

func newFixture() *fixture {
	f := &fixture{
		users:    newMemUserRepo(),
		roles:    newMemRoleRepo(),
		folders:  newMemFolderRepo(),
		files:    newMemFileRepo(),
		access:   newMemAccessRepo(),
		audits:   newMemAuditRepo(),
		attempts: newMemAttemptRepo(),
	}

	logger := pkg.NewNopLogger()
	f.audit = NewAuditService(f.audits, logger)
	f.changes = NewChangeRecorder(f.audit, logger, false)
	f.permissions = NewPermissionService(f.users, f.roles, f.folders, f.files, f.access, f.changes, logger)
	return f
}

func (f *fixture) addRole(name string) *models.Role {
	role := &models.Role{RoleName: name, IsActive: true}
	f.roles.Create(context.Background(), role)
	return role
}

func (f *fixture) addUser(username string, roleID int64) *models.User {
	user := &models.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    username + "@example.com",
		RoleID:   roleID,
		IsActive: true,
	}
	f.users.Create(context.Background(), user)
	return user
}

func (f *fixture) addFolder(name string, parent *models.Folder, inherit bool) *models.Folder {
	folder := &models.Folder{
		Name:                     name,
		IsActive:                 true,
		InheritParentPermissions: inherit,
	}
	if parent == nil {
		folder.Path = "/" + name
	} else {
		folder.Path = parent.Path + "/" + name
		folder.ParentID = &parent.ID
	}
	f.folders.Create(context.Background(), folder)
	return folder
}

func (f *fixture) grant(folder *models.Folder, role *models.Role, mask models.Permission, inheritDown bool) *models.FolderAccess {
	entry := &models.FolderAccess{
		FolderID:            folder.ID,
		RoleID:              &role.ID,
		Mask:                mask,
		InheritToSubfolders: inheritDown,
		InheritToFiles:      true,
		GrantedBy:           "seed",
		GrantedDate:         time.Now().UTC(),
		IsActive:            true,
	}
	f.access.Create(context.Background(), entry)
	return entry
}

var testActor = models.Actor{
	UserID:   "actor-1",
	Username: "admin",
	RoleName: models.RoleAdministrator,
}
