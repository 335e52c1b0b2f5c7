package auth

import (
	"context"
	"time"

	"propertyhub/internal/domain"
)

// UserRepositoryInterface lists only the methods the auth service uses.
type UserRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	SetLoginFailures(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error
}

type jwtService interface {
	GenerateToken(userID int64, role string) (string, error)
}
