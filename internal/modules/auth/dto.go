package auth

import "propertyhub/internal/domain"

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

type UserPublic struct {
	ID       int64           `json:"id"`
	Username string          `json:"username"`
	Name     string          `json:"name"`
	Phone    string          `json:"phone,omitempty"`
	Role     domain.UserRole `json:"role"`
}

func toPublic(u *domain.User) UserPublic {
	return UserPublic{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Phone:    u.Phone,
		Role:     u.Role,
	}
}
