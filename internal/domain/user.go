package domain

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleOwner   UserRole = "owner"
	RoleWorker  UserRole = "worker"
	RoleManager UserRole = "manager"
)

// ParseRole accepts the role segment of a websocket path or a token claim.
// "maintenance" is the legacy name of the worker channel.
func ParseRole(s string) (UserRole, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "owner":
		return RoleOwner, true
	case "worker", "maintenance":
		return RoleWorker, true
	case "manager":
		return RoleManager, true
	default:
		return "", false
	}
}

func (r UserRole) Valid() bool {
	switch r {
	case RoleOwner, RoleWorker, RoleManager:
		return true
	}
	return false
}

type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Role         UserRole  `json:"role" gorm:"index;not null"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	FailedLoginAttempts int        `json:"-" gorm:"not null;default:0"`
	LockedUntil         *time.Time `json:"-"`
}

func (User) TableName() string { return "users" }

// Identity returns the addressing key of the user.
func (u *User) Identity() Identity {
	return Identity{Role: u.Role, UserID: u.ID}
}
