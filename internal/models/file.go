package models

import "time"

// File represents one stored version of a document. Versions of the
// same logical file (same name within a folder) form a linear chain
// through ParentVersionID; exactly one version per logical file carries
// IsCurrentVersion.
type File struct {
	ID               string  `bson:"_id" json:"id"`
	Name             string  `bson:"name" json:"name" validate:"required,min=1,max=255"`
	Extension        string  `bson:"extension" json:"extension"`
	Description      string  `bson:"description,omitempty" json:"description,omitempty"`
	Size             int64   `bson:"size" json:"size"`
	ContentType      string  `bson:"content_type" json:"contentType"`
	Checksum         string  `bson:"checksum" json:"checksum"`
	StorageLocator   string  `bson:"storage_locator" json:"-"`
	FolderID         *int64  `bson:"folder_id,omitempty" json:"folderId,omitempty"`
	Version          int     `bson:"version" json:"version"`
	IsCurrentVersion bool    `bson:"is_current_version" json:"isCurrentVersion"`
	ParentVersionID  *string `bson:"parent_version_id,omitempty" json:"parentVersionId,omitempty"`

	UploadedBy   string    `bson:"uploaded_by" json:"uploadedBy"`
	UploadedDate time.Time `bson:"uploaded_date" json:"uploadedDate"`

	IsDeleted    bool       `bson:"is_deleted" json:"isDeleted"`
	DeletedDate  *time.Time `bson:"deleted_date,omitempty" json:"deletedDate,omitempty"`
	DeletedBy    string     `bson:"deleted_by,omitempty" json:"deletedBy,omitempty"`
	DeleteReason string     `bson:"delete_reason,omitempty" json:"deleteReason,omitempty"`

	AuditMetadata `bson:",inline"`
}
