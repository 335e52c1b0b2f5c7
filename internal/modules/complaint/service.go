package complaint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"propertyhub/internal/domain"
	"propertyhub/internal/modules/notification"
)

type Service struct {
	complaints Repository
	users      UserDirectory
	notifier   Notifier
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(complaints Repository, users UserDirectory, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		complaints: complaints,
		users:      users,
		notifier:   notifier,
		logger:     logger.Named("complaint"),
		now:        time.Now,
	}
}

func (s *Service) Create(ctx context.Context, owner domain.Identity, req CreateRequest) (*domain.Complaint, error) {
	if owner.Role != domain.RoleOwner {
		return nil, fmt.Errorf("only owners can file complaints: %w", domain.ErrForbidden)
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("content is required: %w", domain.ErrValidation)
	}
	category := req.Category
	if category == "" {
		category = domain.ComplaintOther
	}

	c := &domain.Complaint{
		OwnerID:  owner.UserID,
		Category: category,
		Content:  content,
		Status:   domain.ComplaintPending,
	}
	if err := s.complaints.Create(ctx, c); err != nil {
		return nil, err
	}

	s.notify(ctx, notification.NewComplaint(s.payload(ctx, c, "New complaint")))
	return c, nil
}

// Process takes a pending complaint into work.
func (s *Service) Process(ctx context.Context, manager domain.Identity, id int64) (*domain.Complaint, error) {
	c, err := s.managed(ctx, manager, id)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.ComplaintPending {
		return nil, transitionError(c.Status, domain.ComplaintProcessing)
	}

	handlerID := manager.UserID
	c.HandlerID = &handlerID
	c.Status = domain.ComplaintProcessing
	if err := s.complaints.Update(ctx, c, domain.ComplaintPending); err != nil {
		return nil, err
	}

	s.notify(ctx, notification.ComplaintUpdate(c.OwnerIdentity(), s.payload(ctx, c, "Your complaint is being handled")))
	return c, nil
}

func (s *Service) Complete(ctx context.Context, manager domain.Identity, id int64, req CompleteRequest) (*domain.Complaint, error) {
	reply := strings.TrimSpace(req.Reply)
	if reply == "" {
		return nil, fmt.Errorf("reply is required: %w", domain.ErrValidation)
	}
	c, err := s.managed(ctx, manager, id)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.ComplaintProcessing {
		return nil, transitionError(c.Status, domain.ComplaintCompleted)
	}

	now := s.now()
	c.Reply = reply
	c.CompletedAt = &now
	c.Status = domain.ComplaintCompleted
	if err := s.complaints.Update(ctx, c, domain.ComplaintProcessing); err != nil {
		return nil, err
	}

	s.notify(ctx, notification.ComplaintUpdate(c.OwnerIdentity(), s.payload(ctx, c, "Your complaint has been resolved")))
	return c, nil
}

// Cancel lets the owner withdraw a complaint nobody has picked up yet.
func (s *Service) Cancel(ctx context.Context, owner domain.Identity, id int64) (*domain.Complaint, error) {
	c, err := s.owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.ComplaintPending {
		return nil, transitionError(c.Status, domain.ComplaintCancelled)
	}

	c.Status = domain.ComplaintCancelled
	if err := s.complaints.Update(ctx, c, domain.ComplaintPending); err != nil {
		return nil, err
	}
	return c, nil
}

// Rate records the owner's one-time rating of a completed complaint.
func (s *Service) Rate(ctx context.Context, owner domain.Identity, id int64, rating int) (*domain.Complaint, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5: %w", domain.ErrValidation)
	}
	c, err := s.owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if c.Rating != nil {
		return nil, fmt.Errorf("complaint %d: %w", id, domain.ErrAlreadyRated)
	}
	if c.Status != domain.ComplaintCompleted {
		return nil, &domain.InvalidTransitionError{Entity: "complaint", From: string(c.Status), To: "rated"}
	}

	if err := s.complaints.Rate(ctx, id, rating); err != nil {
		return nil, err
	}
	c.Rating = &rating

	p := s.payload(ctx, c, fmt.Sprintf("Complaint rated %d/5", rating))
	p["rating"] = rating
	s.notify(ctx, notification.ComplaintRated(p))
	return c, nil
}

// Delete removes a complaint and tells its owner.
func (s *Service) Delete(ctx context.Context, manager domain.Identity, id int64) error {
	c, err := s.managed(ctx, manager, id)
	if err != nil {
		return err
	}
	if err := s.complaints.Delete(ctx, id); err != nil {
		return err
	}

	p := s.payload(ctx, c, "Your complaint was removed by the property manager")
	p["status"] = "deleted"
	s.notify(ctx, notification.ComplaintUpdate(c.OwnerIdentity(), p))
	return nil
}

func (s *Service) managed(ctx context.Context, manager domain.Identity, id int64) (*domain.Complaint, error) {
	if manager.Role != domain.RoleManager {
		return nil, fmt.Errorf("only managers handle complaints: %w", domain.ErrForbidden)
	}
	return s.complaints.GetByID(ctx, id)
}

func (s *Service) owned(ctx context.Context, owner domain.Identity, id int64) (*domain.Complaint, error) {
	c, err := s.complaints.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if owner.Role != domain.RoleOwner || c.OwnerID != owner.UserID {
		return nil, fmt.Errorf("complaint %d does not belong to %s: %w", id, owner, domain.ErrForbidden)
	}
	return c, nil
}

func transitionError(from, to domain.ComplaintStatus) error {
	return &domain.InvalidTransitionError{Entity: "complaint", From: string(from), To: string(to)}
}

func (s *Service) notify(ctx context.Context, ev notification.Event) {
	if s.notifier != nil {
		s.notifier.Dispatch(ctx, ev)
	}
}

func (s *Service) payload(ctx context.Context, c *domain.Complaint, message string) map[string]any {
	p := map[string]any{
		"id":         c.ID,
		"category":   c.Category,
		"content":    c.Content,
		"status":     c.Status,
		"reply":      c.Reply,
		"owner_id":   c.OwnerID,
		"message":    message,
		"created_at": c.CreatedAt.UTC().Format(time.RFC3339),
	}
	if c.CompletedAt != nil {
		p["completed_at"] = c.CompletedAt.UTC().Format(time.RFC3339)
	}
	if c.Rating != nil {
		p["rating"] = *c.Rating
	}
	if name := s.userName(ctx, c.OwnerID); name != "" {
		p["owner_name"] = name
	}
	if c.HandlerID != nil {
		if name := s.userName(ctx, *c.HandlerID); name != "" {
			p["handler_name"] = name
		}
	}
	return p
}

func (s *Service) userName(ctx context.Context, id int64) string {
	if s.users == nil {
		return ""
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("lookup user name", zap.Int64("user_id", id), zap.Error(err))
		}
		return ""
	}
	return u.Name
}
