package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"propertyhub/internal/domain"
	"propertyhub/internal/modules/notification"
)

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 500
	MaxMessageLength    = 2000
)

// Service is the chat room of every work order. Only the owner and the
// currently assigned worker take part in a room.
type Service struct {
	messages     MessageRepository
	orders       OrderReader
	users        UserDirectory
	notifier     Notifier
	historyLimit int
	logger       *zap.Logger
	now          func() time.Time
}

func NewService(messages MessageRepository, orders OrderReader, users UserDirectory, notifier Notifier, historyLimit int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if historyLimit <= 0 || historyLimit > MaxHistoryLimit {
		historyLimit = DefaultHistoryLimit
	}
	return &Service{
		messages:     messages,
		orders:       orders,
		users:        users,
		notifier:     notifier,
		historyLimit: historyLimit,
		logger:       logger.Named("chat"),
		now:          time.Now,
	}
}

// Authorize returns the order when id is one of its room participants.
func (s *Service) Authorize(ctx context.Context, id domain.Identity, orderID int64) (*domain.WorkOrder, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(id, o) {
		return nil, fmt.Errorf("%s is not a participant of order %d: %w", id, orderID, domain.ErrForbidden)
	}
	return o, nil
}

// Post appends a message to the order's room and pushes it to every online
// participant, the sender's other connections included.
func (s *Service) Post(ctx context.Context, sender domain.Identity, orderID int64, text string) (*domain.ChatMessage, error) {
	o, err := s.Authorize(ctx, sender, orderID)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("message is empty: %w", domain.ErrValidation)
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, fmt.Errorf("message exceeds %d characters: %w", MaxMessageLength, domain.ErrValidation)
	}

	msg := &domain.ChatMessage{
		OrderID:   orderID,
		SenderID:  sender.UserID,
		IsOwner:   sender.Role == domain.RoleOwner,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("store chat message: %w", err)
	}
	msg.SenderName = s.userName(ctx, sender.UserID)

	if s.notifier != nil {
		s.notifier.Dispatch(ctx, notification.ChatMessage(orderID, participants(o), msg))
	}
	return msg, nil
}

// History returns up to limit messages of the order, oldest first.
// A non-positive limit falls back to the configured default.
func (s *Service) History(ctx context.Context, orderID int64, limit int) ([]domain.ChatMessage, error) {
	switch {
	case limit <= 0:
		limit = s.historyLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	msgs, err := s.messages.ListByOrder(ctx, orderID, limit)
	if err != nil {
		return nil, err
	}

	names := map[int64]string{}
	for i := range msgs {
		id := msgs[i].SenderID
		name, ok := names[id]
		if !ok {
			name = s.userName(ctx, id)
			names[id] = name
		}
		msgs[i].SenderName = name
	}
	return msgs, nil
}

// HistoryFor is History for a room participant or a manager.
func (s *Service) HistoryFor(ctx context.Context, viewer domain.Identity, orderID int64, limit int) ([]domain.ChatMessage, error) {
	if viewer.Role == domain.RoleManager {
		if _, err := s.orders.GetByID(ctx, orderID); err != nil {
			return nil, err
		}
	} else if _, err := s.Authorize(ctx, viewer, orderID); err != nil {
		return nil, err
	}
	return s.History(ctx, orderID, limit)
}

func isParticipant(id domain.Identity, o *domain.WorkOrder) bool {
	switch id.Role {
	case domain.RoleOwner:
		return o.OwnerID == id.UserID
	case domain.RoleWorker:
		return o.IsAssignedTo(id.UserID)
	}
	return false
}

func participants(o *domain.WorkOrder) []domain.Identity {
	out := []domain.Identity{o.OwnerIdentity()}
	if w, ok := o.WorkerIdentity(); ok {
		out = append(out, w)
	}
	return out
}

func (s *Service) userName(ctx context.Context, id int64) string {
	if s.users == nil {
		return ""
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("lookup sender name", zap.Int64("user_id", id), zap.Error(err))
		}
		return ""
	}
	return u.Name
}
