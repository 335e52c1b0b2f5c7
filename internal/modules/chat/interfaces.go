package chat

import (
	"context"

	"propertyhub/internal/domain"
	"propertyhub/internal/modules/notification"
)

// MessageRepository stores the append-only message log of each order.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *domain.ChatMessage) error
	ListByOrder(ctx context.Context, orderID int64, limit int) ([]domain.ChatMessage, error)
}

type OrderReader interface {
	GetByID(ctx context.Context, id int64) (*domain.WorkOrder, error)
}

type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, ev notification.Event) int
}
