package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/afrydman/AuditTrail/internal/models"
	"github.com/afrydman/AuditTrail/internal/pkg"
	"github.com/afrydman/AuditTrail/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FileService manages document versions. Re-uploading a name into the
// same folder produces a new version linked to the previous one; old
// versions stay retrievable and nothing is ever physically removed.
type FileService struct {
	fileRepo    repository.FileRepository
	folderRepo  repository.FolderRepository
	storage     StorageProvider
	permissions *PermissionService
	changes     *ChangeRecorder
	audit       *AuditService
	logger      *zap.Logger
	maxFileSize int64
}

// NewFileService creates a new file service
func NewFileService(
	fileRepo repository.FileRepository,
	folderRepo repository.FolderRepository,
	storage StorageProvider,
	permissions *PermissionService,
	changes *ChangeRecorder,
	audit *AuditService,
	logger *zap.Logger,
	maxFileSize int64,
) *FileService {
	return &FileService{
		fileRepo:    fileRepo,
		folderRepo:  folderRepo,
		storage:     storage,
		permissions: permissions,
		changes:     changes,
		audit:       audit,
		logger:      logger,
		maxFileSize: maxFileSize,
	}
}

// UploadInput carries an incoming document body and its metadata
type UploadInput struct {
	FolderID    int64
	Name        string
	ContentType string
	Size        int64
	Description string
	Body        io.Reader
}

// Upload stores a document in a folder. If a current version with the
// same name already exists it is demoted and the new upload becomes
// version N+1 linked to it; otherwise this is version 1.
func (s *FileService) Upload(ctx context.Context, input UploadInput, actor models.Actor) (*models.File, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkg.ErrInvalidInput.WithDetails(map[string]interface{}{
			"name": "file name must not be empty",
		})
	}
	if s.maxFileSize > 0 && input.Size > s.maxFileSize {
		return nil, pkg.ErrFileTooLarge
	}

	folder, err := s.folderRepo.GetByID(ctx, input.FolderID)
	if err != nil {
		return nil, err
	}
	if !s.permissions.HasFolderPermission(ctx, folder.ID, actor.UserID, models.PermissionUpload) {
		return nil, pkg.ErrAccessDenied
	}

	// The body is read once for hashing and re-streamed to storage.
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, pkg.ErrFileUploadFailed.WithCause(err)
	}
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return nil, pkg.ErrFileTooLarge
	}

	version := 1
	var parentVersionID *string

	previous, err := s.fileRepo.GetCurrentByName(ctx, folder.ID, name)
	switch {
	case err == nil:
		version = previous.Version + 1
		parentVersionID = &previous.ID
	case isNotFound(err, pkg.ErrFileNotFound):
		// first version
	default:
		return nil, err
	}

	checksum, err := pkg.ChecksumSHA256(bytes.NewReader(data))
	if err != nil {
		return nil, pkg.ErrFileUploadFailed.WithCause(err)
	}

	now := time.Now().UTC()
	file := &models.File{
		ID:               uuid.NewString(),
		Name:             name,
		Extension:        strings.ToLower(filepath.Ext(name)),
		Description:      input.Description,
		Size:             int64(len(data)),
		ContentType:      input.ContentType,
		Checksum:         checksum,
		FolderID:         &folder.ID,
		Version:          version,
		IsCurrentVersion: true,
		ParentVersionID:  parentVersionID,
		UploadedBy:       actor.UserID,
		UploadedDate:     now,
	}
	file.CreatedAt = now
	file.CreatedBy = actor.UserID
	file.StorageLocator = storageKey(folder.ID, file.ID, file.Extension)

	if err := s.storage.Upload(ctx, file.StorageLocator, bytes.NewReader(data), file.Size, file.ContentType); err != nil {
		return nil, err
	}

	// Demote the previous current version before inserting the new one
	// so at most one version is ever current.
	if previous != nil && parentVersionID != nil {
		updates := map[string]interface{}{
			"is_current_version": false,
			"modified_at":        now,
			"modified_by":        actor.UserID,
		}
		if err := s.fileRepo.Update(ctx, previous.ID, updates); err != nil {
			s.storage.Delete(ctx, file.StorageLocator)
			return nil, err
		}
	}

	if err := s.fileRepo.Create(ctx, file); err != nil {
		s.storage.Delete(ctx, file.StorageLocator)
		return nil, err
	}

	s.logger.Info("file uploaded",
		zap.String("file_id", file.ID),
		zap.String("name", file.Name),
		zap.Int("version", file.Version),
		zap.Int64("folder_id", folder.ID),
		zap.String("uploaded_by", actor.UserID))

	cs := s.changes.NewChangeSet()
	cs.RecordCreated("File", []string{file.ID}, Snapshot(file))
	if err := cs.Commit(ctx, actor); err != nil {
		return nil, err
	}

	return file, nil
}

// Get retrieves file metadata the actor can view
func (s *FileService) Get(ctx context.Context, fileID string, actor models.Actor) (*models.File, error) {
	file, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !s.permissions.HasFilePermission(ctx, fileID, actor.UserID, models.PermissionView) {
		return nil, pkg.ErrAccessDenied
	}
	return file, nil
}

// Download opens a document body for reading. Requires the Download
// bit; every download is an audited event.
func (s *FileService) Download(ctx context.Context, fileID string, actor models.Actor) (*models.File, io.ReadCloser, error) {
	file, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	if file.IsDeleted {
		return nil, nil, pkg.ErrFileNotFound
	}
	if !s.permissions.HasFilePermission(ctx, fileID, actor.UserID, models.PermissionDownload) {
		return nil, nil, pkg.ErrAccessDenied
	}

	body, err := s.storage.Download(ctx, file.StorageLocator)
	if err != nil {
		return nil, nil, err
	}

	s.audit.LogForActor(ctx, actor, AuditEvent{
		EventType:  "FileDownloaded",
		Action:     "Download",
		EntityType: "File",
		EntityID:   file.ID,
		EntityName: file.Name,
	})

	return file, body, nil
}

// FolderContents lists the current, non-deleted versions in a folder
func (s *FileService) FolderContents(ctx context.Context, folderID int64, actor models.Actor) ([]*models.File, error) {
	if !s.permissions.HasFolderPermission(ctx, folderID, actor.UserID, models.PermissionView) {
		return nil, pkg.ErrAccessDenied
	}
	return s.fileRepo.ListCurrentByFolder(ctx, folderID)
}

// Versions lists all versions of a logical file, newest first
func (s *FileService) Versions(ctx context.Context, fileID string, actor models.Actor) ([]*models.File, error) {
	file, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !s.permissions.HasFilePermission(ctx, fileID, actor.UserID, models.PermissionView) {
		return nil, pkg.ErrAccessDenied
	}
	if file.FolderID == nil {
		return []*models.File{file}, nil
	}
	return s.fileRepo.ListVersions(ctx, *file.FolderID, file.Name)
}

// UpdateMetadataInput carries the mutable file metadata
type UpdateMetadataInput struct {
	Description *string `json:"description"`
}

// UpdateMetadata modifies file metadata. Requires the ModifyMetadata
// bit. The document body and version chain are untouched.
func (s *FileService) UpdateMetadata(ctx context.Context, fileID string, input UpdateMetadataInput, actor models.Actor) (*models.File, error) {
	file, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !s.permissions.HasFilePermission(ctx, fileID, actor.UserID, models.PermissionModifyMetadata) {
		return nil, pkg.ErrAccessDenied
	}

	before := Snapshot(file)
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"modified_at": now,
		"modified_by": actor.UserID,
	}

	after := *file
	if input.Description != nil {
		updates["description"] = *input.Description
		after.Description = *input.Description
	}
	after.ModifiedAt = &now
	after.ModifiedBy = actor.UserID

	if err := s.fileRepo.Update(ctx, fileID, updates); err != nil {
		return nil, err
	}

	cs := s.changes.NewChangeSet()
	cs.RecordModified("File", []string{fileID}, before, Snapshot(&after))
	if err := cs.Commit(ctx, actor); err != nil {
		return nil, err
	}

	return &after, nil
}

// Delete soft-deletes a file version with a reason. The row and the
// stored body are retained; the version simply stops being served.
func (s *FileService) Delete(ctx context.Context, fileID, reason string, actor models.Actor) error {
	file, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if file.IsDeleted {
		return nil
	}
	if !s.permissions.HasFilePermission(ctx, fileID, actor.UserID, models.PermissionDelete) {
		return pkg.ErrAccessDenied
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"is_deleted":         true,
		"is_current_version": false,
		"deleted_date":       now,
		"deleted_by":         actor.UserID,
		"delete_reason":      reason,
		"modified_at":        now,
		"modified_by":        actor.UserID,
	}
	if err := s.fileRepo.Update(ctx, fileID, updates); err != nil {
		return err
	}

	s.logger.Info("file deleted",
		zap.String("file_id", fileID),
		zap.String("name", file.Name),
		zap.String("deleted_by", actor.UserID),
		zap.String("reason", reason))

	cs := s.changes.NewChangeSet()
	cs.RecordDeleted("File", []string{fileID}, Snapshot(file))
	return cs.Commit(ctx, actor)
}

func storageKey(folderID int64, fileID, extension string) string {
	return fmt.Sprintf("%d/%s%s", folderID, fileID, extension)
}
