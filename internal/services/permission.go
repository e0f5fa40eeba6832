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

// PermissionService resolves effective permissions for users on folders
// and files, and manages role-based ACL entries. Resolution fails
// closed: any lookup error yields PermissionNone and is logged, never
// surfaced to the authorization decision.
type PermissionService struct {
	userRepo   repository.UserRepository
	roleRepo   repository.RoleRepository
	folderRepo repository.FolderRepository
	fileRepo   repository.FileRepository
	accessRepo repository.AccessRepository
	changes    *ChangeRecorder
	logger     *zap.Logger
}

// NewPermissionService creates a new permission service
func NewPermissionService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	folderRepo repository.FolderRepository,
	fileRepo repository.FileRepository,
	accessRepo repository.AccessRepository,
	changes *ChangeRecorder,
	logger *zap.Logger,
) *PermissionService {
	return &PermissionService{
		userRepo:   userRepo,
		roleRepo:   roleRepo,
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		accessRepo: accessRepo,
		changes:    changes,
		logger:     logger,
	}
}

// EffectiveFolderPermissions resolves the combined permission mask a
// user holds on a folder: the direct grant for the user's role OR-ed
// with grants inherited from ancestor folders.
func (s *PermissionService) EffectiveFolderPermissions(ctx context.Context, folderID int64, userID string) models.Permission {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("permission lookup: user not found, denying",
			zap.String("user_id", userID), zap.Int64("folder_id", folderID), zap.Error(err))
		return models.PermissionNone
	}
	if !user.IsActive {
		return models.PermissionNone
	}

	effective := s.directPermissions(ctx, folderID, user.RoleID)
	effective |= s.inheritedPermissions(ctx, folderID, user.RoleID)

	return effective
}

// EffectiveFilePermissions resolves permissions for a file. Files carry
// no ACL of their own; they always inherit their owning folder's
// effective permissions.
func (s *PermissionService) EffectiveFilePermissions(ctx context.Context, fileID, userID string) models.Permission {
	file, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		s.logger.Warn("permission lookup: file not found, denying",
			zap.String("file_id", fileID), zap.String("user_id", userID), zap.Error(err))
		return models.PermissionNone
	}
	if file.FolderID == nil {
		// Orphan files are invisible to everyone but their uploader's
		// administrators; no folder means no grants to resolve.
		return models.PermissionNone
	}

	return s.EffectiveFolderPermissions(ctx, *file.FolderID, userID)
}

// HasFolderPermission reports whether the user holds the given bit on
// the folder
func (s *PermissionService) HasFolderPermission(ctx context.Context, folderID int64, userID string, bit models.Permission) bool {
	return s.EffectiveFolderPermissions(ctx, folderID, userID)&bit != 0
}

// HasFilePermission reports whether the user holds the given bit on the
// file
func (s *PermissionService) HasFilePermission(ctx context.Context, fileID, userID string, bit models.Permission) bool {
	return s.EffectiveFilePermissions(ctx, fileID, userID)&bit != 0
}

// directPermissions returns the mask from the active, non-expired entry
// for (folder, role), or None
func (s *PermissionService) directPermissions(ctx context.Context, folderID, roleID int64) models.Permission {
	entry, err := s.accessRepo.GetActiveByFolderAndRole(ctx, folderID, roleID)
	if err != nil {
		if appErr, ok := pkg.IsAppError(err); !ok || appErr != pkg.ErrAccessEntryNotFound {
			s.logger.Error("permission lookup failed, denying",
				zap.Int64("folder_id", folderID), zap.Int64("role_id", roleID), zap.Error(err))
		}
		return models.PermissionNone
	}
	if entry.Expired(time.Now().UTC()) {
		// Expired grants count as revoked no matter the active flag.
		return models.PermissionNone
	}
	return entry.Mask
}

// inheritedPermissions walks the ancestor chain, OR-combining grants
// whose inherit_to_subfolders flag is set. The walk stops at the first
// folder that has no parent or disables parent inheritance. Cycles are
// impossible because a parent must exist before its children.
func (s *PermissionService) inheritedPermissions(ctx context.Context, folderID, roleID int64) models.Permission {
	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		s.logger.Warn("inheritance walk: folder not found, denying",
			zap.Int64("folder_id", folderID), zap.Error(err))
		return models.PermissionNone
	}
	if folder.ParentID == nil || !folder.InheritParentPermissions {
		return models.PermissionNone
	}

	var inherited models.Permission
	currentID := folder.ParentID
	now := time.Now().UTC()

	for currentID != nil {
		entry, err := s.accessRepo.GetActiveByFolderAndRole(ctx, *currentID, roleID)
		if err == nil && entry.InheritToSubfolders && !entry.Expired(now) {
			inherited |= entry.Mask
		}

		parent, err := s.folderRepo.GetByID(ctx, *currentID)
		if err != nil {
			s.logger.Warn("inheritance walk: ancestor lookup failed, stopping",
				zap.Int64("folder_id", *currentID), zap.Error(err))
			break
		}
		if parent.ParentID == nil || !parent.InheritParentPermissions {
			break
		}
		currentID = parent.ParentID
	}

	return inherited
}

// GrantOrUpdate grants a permission mask to a role on a folder. An
// existing active entry for the pair is overwritten in place rather
// than duplicated; granting an empty mask is equivalent to a revoke.
func (s *PermissionService) GrantOrUpdate(ctx context.Context, folderID, roleID int64, mask models.Permission, actor models.Actor) error {
	if !mask.Valid() {
		return pkg.ErrInvalidPermissionMask
	}
	if mask == models.PermissionNone {
		return s.Revoke(ctx, folderID, roleID, actor, "Granted empty permission mask")
	}

	if _, err := s.folderRepo.GetByID(ctx, folderID); err != nil {
		return err
	}

	now := time.Now().UTC()
	cs := s.changes.NewChangeSet()

	existing, err := s.accessRepo.GetActiveByFolderAndRole(ctx, folderID, roleID)
	switch {
	case err == nil:
		before := Snapshot(existing)
		updates := map[string]interface{}{
			"permissions":  mask,
			"granted_by":   actor.UserID,
			"granted_date": now,
		}
		if err := s.accessRepo.Update(ctx, existing.ID, updates); err != nil {
			return err
		}

		after := *existing
		after.Mask = mask
		after.GrantedBy = actor.UserID
		after.GrantedDate = now
		cs.RecordModified("FolderAccess", []string{formatAccessID(existing.ID)}, before, Snapshot(&after))

	case isNotFound(err, pkg.ErrAccessEntryNotFound):
		entry := &models.FolderAccess{
			FolderID:            folderID,
			RoleID:              &roleID,
			Mask:                mask,
			InheritToSubfolders: true,
			InheritToFiles:      true,
			GrantedBy:           actor.UserID,
			GrantedDate:         now,
			IsActive:            true,
		}
		if err := s.accessRepo.Create(ctx, entry); err != nil {
			return err
		}
		cs.RecordCreated("FolderAccess", []string{formatAccessID(entry.ID)}, Snapshot(entry))

	default:
		return err
	}

	s.logger.Info("permissions granted",
		zap.Int64("folder_id", folderID),
		zap.Int64("role_id", roleID),
		zap.Int("mask", int(mask)),
		zap.String("granted_by", actor.UserID))

	return cs.Commit(ctx, actor)
}

// Revoke deactivates the active entry for (folder, role) and stamps the
// revoke metadata. The row is retained for the audit record.
func (s *PermissionService) Revoke(ctx context.Context, folderID, roleID int64, actor models.Actor, reason string) error {
	entry, err := s.accessRepo.GetActiveByFolderAndRole(ctx, folderID, roleID)
	if err != nil {
		if isNotFound(err, pkg.ErrAccessEntryNotFound) {
			return nil
		}
		return err
	}

	now := time.Now().UTC()
	before := Snapshot(entry)

	updates := map[string]interface{}{
		"is_active":     false,
		"revoked_by":    actor.UserID,
		"revoked_date":  now,
		"revoke_reason": reason,
	}
	if err := s.accessRepo.Update(ctx, entry.ID, updates); err != nil {
		return err
	}

	after := *entry
	after.IsActive = false
	after.RevokedBy = actor.UserID
	after.RevokedDate = &now
	after.RevokeReason = reason

	cs := s.changes.NewChangeSet()
	cs.RecordModified("FolderAccess", []string{formatAccessID(entry.ID)}, before, Snapshot(&after))

	s.logger.Info("permissions revoked",
		zap.Int64("folder_id", folderID),
		zap.Int64("role_id", roleID),
		zap.String("revoked_by", actor.UserID))

	return cs.Commit(ctx, actor)
}

// ListFolderAccess returns the active entries for a folder ordered by
// role id
func (s *PermissionService) ListFolderAccess(ctx context.Context, folderID int64) ([]*models.FolderAccess, error) {
	return s.accessRepo.ListActiveByFolder(ctx, folderID)
}

// CanDeleteFolder decides folder removal. Root folders may only be
// removed by a user whose role is named Administrator, regardless of
// any permission bits including Admin; non-root folders use the Delete
// bit. Fails closed on any lookup error.
func (s *PermissionService) CanDeleteFolder(ctx context.Context, folderID int64, userID string) bool {
	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		s.logger.Warn("delete check: folder not found, denying",
			zap.Int64("folder_id", folderID), zap.Error(err))
		return false
	}

	if folder.ParentID == nil {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			s.logger.Warn("delete check: user not found, denying",
				zap.String("user_id", userID), zap.Error(err))
			return false
		}
		role, err := s.roleRepo.GetByID(ctx, user.RoleID)
		if err != nil {
			s.logger.Warn("delete check: role not found, denying",
				zap.Int64("role_id", user.RoleID), zap.Error(err))
			return false
		}
		return strings.EqualFold(role.RoleName, models.RoleAdministrator)
	}

	return s.HasFolderPermission(ctx, folderID, userID, models.PermissionDelete)
}

func formatAccessID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func isNotFound(err error, sentinel *pkg.AppError) bool {
	appErr, ok := pkg.IsAppError(err)
	return ok && appErr.Code == sentinel.Code
}
