package models

import "time"

// AuditEntry is an immutable compliance record. Entries are created by
// the audit recorder and never updated or deleted afterwards; the
// repository deliberately exposes no mutation beyond insert.
type AuditEntry struct {
	ID            string    `bson:"_id" json:"auditId"`
	EventType     string    `bson:"event_type" json:"eventType"`
	EventCategory string    `bson:"event_category" json:"eventCategory"`
	Timestamp     time.Time `bson:"timestamp" json:"timestamp"`

	UserID    string `bson:"user_id,omitempty" json:"userId,omitempty"`
	Username  string `bson:"username,omitempty" json:"username,omitempty"`
	RoleName  string `bson:"role_name,omitempty" json:"roleName,omitempty"`
	IPAddress string `bson:"ip_address,omitempty" json:"ipAddress,omitempty"`
	UserAgent string `bson:"user_agent,omitempty" json:"userAgent,omitempty"`
	SessionID string `bson:"session_id,omitempty" json:"sessionId,omitempty"`

	EntityType string `bson:"entity_type,omitempty" json:"entityType,omitempty"`
	EntityID   string `bson:"entity_id,omitempty" json:"entityId,omitempty"`
	EntityName string `bson:"entity_name,omitempty" json:"entityName,omitempty"`

	Action   string `bson:"action" json:"action"`
	OldValue string `bson:"old_value,omitempty" json:"oldValue,omitempty"`
	NewValue string `bson:"new_value,omitempty" json:"newValue,omitempty"`

	Result       string `bson:"result" json:"result"`
	ErrorMessage string `bson:"error_message,omitempty" json:"errorMessage,omitempty"`
	DurationMS   int64  `bson:"duration_ms,omitempty" json:"durationMs,omitempty"`
}

// Audit results
const (
	AuditResultSuccess = "Success"
	AuditResultFailed  = "Failed"
	AuditResultWarning = "Warning"
)

// Audit event categories, derived from the event type prefix
const (
	AuditCategoryUser     = "User"
	AuditCategoryDocument = "Document"
	AuditCategorySystem   = "System"
	AuditCategoryGeneral  = "General"
)

// Login-related event types written by the authentication service
const (
	EventUserLogin       = "UserLogin"
	EventUserLoginFailed = "UserLoginFailed"
	EventUserLogout      = "UserLogout"
)

// LoginAttempt is a per-attempt row kept alongside the audit trail for
// lockout bookkeeping and security review.
type LoginAttempt struct {
	ID            string    `bson:"_id" json:"id"`
	Username      string    `bson:"username" json:"username"`
	UserID        string    `bson:"user_id,omitempty" json:"userId,omitempty"`
	IPAddress     string    `bson:"ip_address" json:"ipAddress"`
	UserAgent     string    `bson:"user_agent,omitempty" json:"userAgent,omitempty"`
	IsSuccessful  bool      `bson:"is_successful" json:"isSuccessful"`
	FailureReason string    `bson:"failure_reason,omitempty" json:"failureReason,omitempty"`
	AttemptDate   time.Time `bson:"attempt_date" json:"attemptDate"`
}
