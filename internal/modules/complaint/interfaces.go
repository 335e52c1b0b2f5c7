package complaint

import (
	"context"

	"propertyhub/internal/domain"
	"propertyhub/internal/modules/notification"
)

type Repository interface {
	Create(ctx context.Context, c *domain.Complaint) error
	GetByID(ctx context.Context, id int64) (*domain.Complaint, error)
	Update(ctx context.Context, c *domain.Complaint, from domain.ComplaintStatus) error
	Rate(ctx context.Context, id int64, rating int) error
	Delete(ctx context.Context, id int64) error
}

type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, ev notification.Event) int
}
