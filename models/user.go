package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles recognized by the authorization layer.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a board account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"size:64;not null" json:"name"`
	Email        string `gorm:"size:255;uniqueIndex" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"`
	Role         string `gorm:"size:16;default:'user'" json:"role"`
	IsBanned     bool   `gorm:"default:false;index" json:"is_banned"`
	// Bumped whenever the account is banned or force-logged-out; tokens carry
	// the version they were issued with and become invalid on mismatch.
	TokenVersion int       `gorm:"default:0" json:"-"`
	Notes        string    `gorm:"size:2000" json:"-"` // admin-only notes
	RegisterIP   string    `gorm:"size:45" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
