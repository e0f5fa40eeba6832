package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/afrydman/AuditTrail/internal/models"
	"github.com/afrydman/AuditTrail/internal/pkg"
	"github.com/afrydman/AuditTrail/internal/repository"

	"go.uber.org/zap"
)

// FolderService manages the folder tree. Folders are soft-deleted only;
// their rows remain for the audit record.
type FolderService struct {
	folderRepo  repository.FolderRepository
	fileRepo    repository.FileRepository
	permissions *PermissionService
	changes     *ChangeRecorder
	logger      *zap.Logger
}

// NewFolderService creates a new folder service
func NewFolderService(
	folderRepo repository.FolderRepository,
	fileRepo repository.FileRepository,
	permissions *PermissionService,
	changes *ChangeRecorder,
	logger *zap.Logger,
) *FolderService {
	return &FolderService{
		folderRepo:  folderRepo,
		fileRepo:    fileRepo,
		permissions: permissions,
		changes:     changes,
		logger:      logger,
	}
}

// CreateFolderInput carries the fields for a new folder
type CreateFolderInput struct {
	Name                     string `json:"name" validate:"required,min=1,max=255"`
	ParentID                 *int64 `json:"parentId"`
	Description              string `json:"description"`
	InheritParentPermissions *bool  `json:"inheritParentPermissions"`
	RequireExplicitAccess    bool   `json:"requireExplicitAccess"`
}

// Create adds a folder to the tree. Root folders may only be created by
// an administrator; subfolders require the Upload bit on the parent.
// The parent must exist first, which keeps the tree acyclic.
func (s *FolderService) Create(ctx context.Context, input CreateFolderInput, actor models.Actor) (*models.Folder, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || strings.Contains(name, "/") {
		return nil, pkg.ErrInvalidInput.WithDetails(map[string]interface{}{
			"name": "folder name must be non-empty and must not contain '/'",
		})
	}

	var path string
	if input.ParentID == nil {
		if !strings.EqualFold(actor.RoleName, models.RoleAdministrator) {
			return nil, pkg.ErrAdminRequired
		}
		path = "/" + name
	} else {
		parent, err := s.folderRepo.GetByID(ctx, *input.ParentID)
		if err != nil {
			return nil, err
		}
		if !s.permissions.HasFolderPermission(ctx, parent.ID, actor.UserID, models.PermissionUpload) {
			return nil, pkg.ErrAccessDenied
		}
		path = parent.Path + "/" + name
	}

	if _, err := s.folderRepo.GetByPath(ctx, path); err == nil {
		return nil, pkg.ErrDuplicateFolderPath
	} else if !isNotFound(err, pkg.ErrFolderNotFound) {
		return nil, err
	}

	inherit := true
	if input.InheritParentPermissions != nil {
		inherit = *input.InheritParentPermissions
	}

	now := time.Now().UTC()
	folder := &models.Folder{
		Name:                     name,
		Path:                     path,
		ParentID:                 input.ParentID,
		Description:              input.Description,
		IsActive:                 true,
		InheritParentPermissions: inherit,
		RequireExplicitAccess:    input.RequireExplicitAccess,
	}
	folder.CreatedAt = now
	folder.CreatedBy = actor.UserID

	if err := s.folderRepo.Create(ctx, folder); err != nil {
		return nil, err
	}

	s.logger.Info("folder created",
		zap.Int64("folder_id", folder.ID),
		zap.String("path", folder.Path),
		zap.String("created_by", actor.UserID))

	cs := s.changes.NewChangeSet()
	cs.RecordCreated("Folder", []string{formatFolderID(folder.ID)}, Snapshot(folder))
	if err := cs.Commit(ctx, actor); err != nil {
		return nil, err
	}

	return folder, nil
}

// Get retrieves a folder the actor can at least view
func (s *FolderService) Get(ctx context.Context, folderID int64, actor models.Actor) (*models.Folder, error) {
	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if !s.permissions.HasFolderPermission(ctx, folderID, actor.UserID, models.PermissionView) {
		return nil, pkg.ErrAccessDenied
	}
	return folder, nil
}

// Children lists the active subfolders the actor can view. Folders the
// actor holds no View bit on are filtered out rather than erroring, so
// partial visibility of a tree works.
func (s *FolderService) Children(ctx context.Context, parentID int64, actor models.Actor) ([]*models.Folder, error) {
	if !s.permissions.HasFolderPermission(ctx, parentID, actor.UserID, models.PermissionView) {
		return nil, pkg.ErrAccessDenied
	}

	children, err := s.folderRepo.GetChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}

	visible := make([]*models.Folder, 0, len(children))
	for _, child := range children {
		if s.permissions.HasFolderPermission(ctx, child.ID, actor.UserID, models.PermissionView) {
			visible = append(visible, child)
		}
	}
	return visible, nil
}

// Roots lists the active root folders the actor can view
func (s *FolderService) Roots(ctx context.Context, actor models.Actor) ([]*models.Folder, error) {
	roots, err := s.folderRepo.GetRoots(ctx)
	if err != nil {
		return nil, err
	}

	visible := make([]*models.Folder, 0, len(roots))
	for _, root := range roots {
		if s.permissions.HasFolderPermission(ctx, root.ID, actor.UserID, models.PermissionView) {
			visible = append(visible, root)
		}
	}
	return visible, nil
}

// UpdateFolderInput carries the mutable folder settings. Name and path
// are immutable after creation; versioned documents reference paths.
type UpdateFolderInput struct {
	Description              *string `json:"description"`
	InheritParentPermissions *bool   `json:"inheritParentPermissions"`
	RequireExplicitAccess    *bool   `json:"requireExplicitAccess"`
}

// Update modifies folder settings. Requires the ModifyMetadata bit.
// Toggling InheritParentPermissions takes effect on the next permission
// resolution; nothing is precomputed.
func (s *FolderService) Update(ctx context.Context, folderID int64, input UpdateFolderInput, actor models.Actor) (*models.Folder, error) {
	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if !s.permissions.HasFolderPermission(ctx, folderID, actor.UserID, models.PermissionModifyMetadata) {
		return nil, pkg.ErrAccessDenied
	}

	before := Snapshot(folder)
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"modified_at": now,
		"modified_by": actor.UserID,
	}

	after := *folder
	if input.Description != nil {
		updates["description"] = *input.Description
		after.Description = *input.Description
	}
	if input.InheritParentPermissions != nil {
		updates["inherit_parent_permissions"] = *input.InheritParentPermissions
		after.InheritParentPermissions = *input.InheritParentPermissions
	}
	if input.RequireExplicitAccess != nil {
		updates["require_explicit_access"] = *input.RequireExplicitAccess
		after.RequireExplicitAccess = *input.RequireExplicitAccess
	}
	after.ModifiedAt = &now
	after.ModifiedBy = actor.UserID

	if err := s.folderRepo.Update(ctx, folderID, updates); err != nil {
		return nil, err
	}

	cs := s.changes.NewChangeSet()
	cs.RecordModified("Folder", []string{formatFolderID(folderID)}, before, Snapshot(&after))
	if err := cs.Commit(ctx, actor); err != nil {
		return nil, err
	}

	return &after, nil
}

// Delete soft-deletes a folder. System folders are never removable;
// root folders require the Administrator role name rather than any
// permission bit; other folders require the Delete bit.
func (s *FolderService) Delete(ctx context.Context, folderID int64, actor models.Actor) error {
	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return err
	}
	if folder.IsSystem {
		return pkg.ErrSystemFolder
	}
	if !s.permissions.CanDeleteFolder(ctx, folderID, actor.UserID) {
		return pkg.ErrAccessDenied
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"is_active":   false,
		"modified_at": now,
		"modified_by": actor.UserID,
	}
	if err := s.folderRepo.Update(ctx, folderID, updates); err != nil {
		return err
	}

	s.logger.Info("folder deleted",
		zap.Int64("folder_id", folderID),
		zap.String("path", folder.Path),
		zap.String("deleted_by", actor.UserID))

	cs := s.changes.NewChangeSet()
	cs.RecordDeleted("Folder", []string{formatFolderID(folderID)}, Snapshot(folder))
	return cs.Commit(ctx, actor)
}

func formatFolderID(id int64) string {
	return strconv.FormatInt(id, 10)
}
