package models

import "time"

// Role is the closed set of account roles.
type Role string

const (
	RoleRegular  Role = "regular"
	RoleElevated Role = "elevated"
)

// ParseRole maps a stored or user supplied role to a Role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleRegular, RoleElevated:
		return Role(s), true
	}
	return "", false
}

// User is an account that can sign in. Elevated users manage other users'
// data and must pass the second factor before writing.
type User struct {
	ID        uint      `gorm:"primaryKey"                         json:"id"`
	Username  string    `gorm:"size:150;uniqueIndex;not null"      json:"username"`
	Password  string    `gorm:"size:255;not null"                  json:"-"`
	Role      Role      `gorm:"size:20;not null;default:regular"   json:"role"`
	Profile   *Profile  `gorm:"constraint:OnDelete:CASCADE"        json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u User) IsElevated() bool { return u.Role == RoleElevated }

// Profile carries per-user second factor state. TOTPSecret is sealed with
// the application key; empty means not enrolled.
type Profile struct {
	ID         uint      `gorm:"primaryKey"            json:"id"`
	UserID     uint      `gorm:"uniqueIndex;not null"  json:"user_id"`
	TOTPSecret string    `gorm:"size:255"              json:"-"`
	RoleTag    string    `gorm:"size:20"               json:"role_tag,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (p Profile) Enrolled() bool { return p.TOTPSecret != "" }

// RoleTagFor is the display tag stored on new profiles.
func RoleTagFor(r Role) string {
	if r == RoleElevated {
		return "ADMIN"
	}
	return "USER"
}
