package models

import "time"

// AuditMetadata is embedded by every mutable entity. Plain value,
// no behavior.
type AuditMetadata struct {
	CreatedAt  time.Time  `bson:"created_at" json:"createdAt"`
	CreatedBy  string     `bson:"created_by,omitempty" json:"createdBy,omitempty"`
	ModifiedAt *time.Time `bson:"modified_at,omitempty" json:"modifiedAt,omitempty"`
	ModifiedBy string     `bson:"modified_by,omitempty" json:"modifiedBy,omitempty"`
}

// Actor identifies who is performing an operation. It is built by the
// auth middleware from token claims and passed explicitly into every
// service call that mutates or checks state; there is no ambient
// current-user global.
type Actor struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	RoleName  string `json:"roleName"`
	IPAddress string `json:"ipAddress"`
	UserAgent string `json:"userAgent"`
	SessionID string `json:"sessionId"`
}

// System is the actor recorded for mutations not driven by a user request
var System = Actor{Username: "system"}
