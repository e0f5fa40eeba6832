package models

// Folder is a document category. Folders form a tree through ParentID;
// a parent must exist before a child can be created, so the tree is
// acyclic by construction. Path is the /-delimited concatenation of
// ancestor names and is unique among active folders.
type Folder struct {
	ID          int64  `bson:"_id" json:"id"`
	Name        string `bson:"name" json:"name" validate:"required,min=1,max=255"`
	Path        string `bson:"path" json:"path"`
	ParentID    *int64 `bson:"parent_id,omitempty" json:"parentId,omitempty"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	IsActive    bool   `bson:"is_active" json:"isActive"`

	InheritParentPermissions bool `bson:"inherit_parent_permissions" json:"inheritParentPermissions"`
	RequireExplicitAccess    bool `bson:"require_explicit_access" json:"requireExplicitAccess"`
	IsSystem                 bool `bson:"is_system" json:"isSystem"`

	AuditMetadata `bson:",inline"`
}

// IsRoot reports whether the folder has no parent
func (f *Folder) IsRoot() bool {
	return f.ParentID == nil
}
