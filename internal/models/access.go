package models

import "time"

// Permission is a bitmask of independent capabilities on folders and
// the files they contain.
type Permission int

const (
	PermissionNone           Permission = 0
	PermissionView           Permission = 1
	PermissionDownload       Permission = 2
	PermissionUpload         Permission = 4
	PermissionDelete         Permission = 8
	PermissionModifyMetadata Permission = 16
	PermissionAdmin          Permission = 32
)

// Named permission combinations. Convenience unions only, never stored
// as distinct values.
const (
	PermissionViewOnly    = PermissionView
	PermissionReadOnly    = PermissionView | PermissionDownload
	PermissionReadWrite   = PermissionView | PermissionDownload | PermissionUpload
	PermissionEditor      = PermissionView | PermissionDownload | PermissionUpload | PermissionDelete | PermissionModifyMetadata
	PermissionFullControl = PermissionEditor | PermissionAdmin
)

// Has reports whether all bits in p are present in the mask
func (p Permission) Has(bit Permission) bool {
	return p&bit == bit
}

// Valid reports whether the mask fits the defined 6 bits
func (p Permission) Valid() bool {
	return p >= 0 && p <= PermissionFullControl
}

// FolderAccess is an ACL entry granting a permission mask to a role on
// a folder. At most one active entry exists per (folder, role) pair;
// a new grant for an already-granted role updates the entry in place.
// Revoked entries are deactivated, never deleted.
type FolderAccess struct {
	ID       int64      `bson:"_id" json:"id"`
	FolderID int64      `bson:"folder_id" json:"folderId"`
	RoleID   *int64     `bson:"role_id,omitempty" json:"roleId,omitempty"`
	UserID   *string    `bson:"user_id,omitempty" json:"userId,omitempty"`
	Mask     Permission `bson:"permissions" json:"permissions"`

	InheritToSubfolders bool `bson:"inherit_to_subfolders" json:"inheritToSubfolders"`
	InheritToFiles      bool `bson:"inherit_to_files" json:"inheritToFiles"`

	GrantedBy   string     `bson:"granted_by" json:"grantedBy"`
	GrantedDate time.Time  `bson:"granted_date" json:"grantedDate"`
	ExpiryDate  *time.Time `bson:"expiry_date,omitempty" json:"expiryDate,omitempty"`

	IsActive     bool       `bson:"is_active" json:"isActive"`
	RevokedBy    string     `bson:"revoked_by,omitempty" json:"revokedBy,omitempty"`
	RevokedDate  *time.Time `bson:"revoked_date,omitempty" json:"revokedDate,omitempty"`
	RevokeReason string     `bson:"revoke_reason,omitempty" json:"revokeReason,omitempty"`
}

// Expired reports whether the entry has an expiry date in the past.
// Expired entries are treated as implicitly revoked regardless of the
// active flag.
func (a *FolderAccess) Expired(now time.Time) bool {
	return a.ExpiryDate != nil && !a.ExpiryDate.After(now)
}
