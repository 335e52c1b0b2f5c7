package workorder

import (
	"context"

	"propertyhub/internal/domain"
	"propertyhub/internal/modules/notification"
)

// Repository persists work orders. Update must only succeed while the stored
// status still equals from.
type Repository interface {
	Create(ctx context.Context, o *domain.WorkOrder) error
	GetByID(ctx context.Context, id int64) (*domain.WorkOrder, error)
	Update(ctx context.Context, o *domain.WorkOrder, from domain.WorkOrderStatus) error
}

// UserDirectory is a read-only view of user accounts.
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetActive(ctx context.Context, id int64, role domain.UserRole) (*domain.User, error)
}

// Notifier is satisfied by *notification.Dispatcher.
type Notifier interface {
	Dispatch(ctx context.Context, ev notification.Event) int
}
