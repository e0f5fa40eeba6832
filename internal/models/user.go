package models

import "time"

// User represents an account in the identity store. Users are never
// hard-deleted; deactivation clears IsActive only.
type User struct {
	ID           string `bson:"_id" json:"id"`
	Username     string `bson:"username" json:"username" validate:"required,min=3,max=50"`
	Email        string `bson:"email" json:"email" validate:"required,email"`
	PasswordHash string `bson:"password_hash" json:"-"`
	// PasswordSalt is retained for schema fidelity with legacy rows;
	// bcrypt embeds the salt in PasswordHash and ignores this field.
	PasswordSalt string `bson:"password_salt,omitempty" json:"-"`
	FirstName    string `bson:"first_name" json:"firstName"`
	LastName     string `bson:"last_name" json:"lastName"`
	RoleID       int64  `bson:"role_id" json:"roleId"`
	IsActive     bool   `bson:"is_active" json:"isActive"`

	FailedLoginAttempts int        `bson:"failed_login_attempts" json:"-"`
	IsLocked            bool       `bson:"is_locked" json:"isLocked"`
	LockoutEnd          *time.Time `bson:"lockout_end,omitempty" json:"lockoutEnd,omitempty"`

	MustChangePassword     bool       `bson:"must_change_password" json:"mustChangePassword"`
	LastPasswordChangeDate *time.Time `bson:"last_password_change_date,omitempty" json:"-"`
	LastLoginDate          *time.Time `bson:"last_login_date,omitempty" json:"lastLoginDate,omitempty"`
	LastLoginIP            string     `bson:"last_login_ip,omitempty" json:"-"`

	AuditMetadata `bson:",inline"`
}

// FullName returns the user's display name
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Role is an immutable reference target for users and access entries
type Role struct {
	ID       int64  `bson:"_id" json:"id"`
	RoleName string `bson:"role_name" json:"roleName" validate:"required,min=2,max=50"`
	IsActive bool   `bson:"is_active" json:"isActive"`

	AuditMetadata `bson:",inline"`
}

// RoleAdministrator is the distinguished role allowed to remove root
// folders, matched by name rather than by permission bits.
const RoleAdministrator = "Administrator"

// LockoutThreshold is the number of consecutive failed logins that
// locks an account.
const LockoutThreshold = 5

// LockoutDuration is effectively permanent; only an administrator
// unlock clears it.
const LockoutDuration = 100 * 365 * 24 * time.Hour
