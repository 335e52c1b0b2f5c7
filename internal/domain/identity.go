package domain

import "fmt"

// Identity addresses a notification target. It is never persisted by the hub.
type Identity struct {
	Role   UserRole `json:"role"`
	UserID int64    `json:"user_id"`
}

func NewIdentity(role UserRole, userID int64) Identity {
	return Identity{Role: role, UserID: userID}
}

func (i Identity) IsZero() bool {
	return i.Role == "" && i.UserID == 0
}

func (i Identity) String() string {
	return fmt.Sprintf("%s/%d", i.Role, i.UserID)
}
