package workorder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"propertyhub/internal/domain"
	"propertyhub/internal/modules/notification"
)

// Service drives the work order state machine and emits notifications after
// each committed transition.
type Service struct {
	orders   Repository
	users    UserDirectory
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(orders Repository, users UserDirectory, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		orders:   orders,
		users:    users,
		notifier: notifier,
		logger:   logger.Named("workorder"),
		now:      time.Now,
	}
}

// Create opens a pending order for the owner and alerts every manager.
func (s *Service) Create(ctx context.Context, owner domain.Identity, req CreateRequest) (*domain.WorkOrder, error) {
	if owner.Role != domain.RoleOwner {
		return nil, forbidden("only owners can report repairs")
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return nil, validationError("description is required")
	}
	urgency := req.Urgency
	switch urgency {
	case "":
		urgency = domain.UrgencyMedium
	case domain.UrgencyLow, domain.UrgencyMedium, domain.UrgencyHigh, domain.UrgencyUrgent:
	default:
		return nil, validationError("unknown urgency %q", urgency)
	}

	o := &domain.WorkOrder{
		OwnerID:      owner.UserID,
		PropertyInfo: strings.TrimSpace(req.PropertyInfo),
		Description:  desc,
		Urgency:      urgency,
		Status:       domain.WorkOrderPending,
	}

	var err error
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		o.ID = 0
		o.OrderNumber = generateOrderNumber(s.now())
		err = s.orders.Create(ctx, o)
		if !errors.Is(err, domain.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notification.NewRepair(s.payload(ctx, o, "New repair request")))
	return o, nil
}

// Get returns an order visible to the viewer: managers see all, owners their own,
// workers the orders assigned to them.
func (s *Service) Get(ctx context.Context, viewer domain.Identity, id int64) (*domain.WorkOrder, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(viewer, o) {
		return nil, forbidden("order %d", id)
	}
	return o, nil
}

func canView(viewer domain.Identity, o *domain.WorkOrder) bool {
	switch viewer.Role {
	case domain.RoleManager:
		return true
	case domain.RoleOwner:
		return o.OwnerID == viewer.UserID
	case domain.RoleWorker:
		return o.IsAssignedTo(viewer.UserID)
	}
	return false
}

// Assign moves a pending order to a worker.
func (s *Service) Assign(ctx context.Context, manager domain.Identity, orderID, workerID int64) (*domain.WorkOrder, error) {
	if manager.Role != domain.RoleManager {
		return nil, forbidden("only managers can assign work orders")
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != domain.WorkOrderPending {
		return nil, transitionError(o.Status, domain.WorkOrderAssigned)
	}

	worker, err := s.users.GetActive(ctx, workerID, domain.RoleWorker)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, validationError("worker %d is not an active worker", workerID)
		}
		return nil, err
	}

	now := s.now()
	from := o.Status
	o.Status = domain.WorkOrderAssigned
	o.WorkerID = &worker.ID
	o.AssignedAt = &now
	if err := s.orders.Update(ctx, o, from); err != nil {
		return nil, err
	}

	p := s.payload(ctx, o, "A new work order has been assigned to you")
	s.notify(ctx, notification.WorkOrderAssigned(worker.Identity(), o.ID, p))
	return o, nil
}

// Start is triggered by the assigned worker.
func (s *Service) Start(ctx context.Context, worker domain.Identity, orderID int64) (*domain.WorkOrder, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != domain.WorkOrderAssigned && o.Status != domain.WorkOrderPending {
		return nil, transitionError(o.Status, domain.WorkOrderInProgress)
	}
	if o.WorkerID == nil {
		return nil, transitionError(o.Status, domain.WorkOrderInProgress)
	}
	if worker.Role != domain.RoleWorker || !o.IsAssignedTo(worker.UserID) {
		return nil, forbidden("order %d is not assigned to %s", orderID, worker)
	}

	now := s.now()
	from := o.Status
	o.Status = domain.WorkOrderInProgress
	o.StartedAt = &now
	if err := s.orders.Update(ctx, o, from); err != nil {
		return nil, err
	}

	s.notifyStatus(ctx, o, "The worker has started the repair")
	return o, nil
}

// Complete closes the repair and derives whether payment is still due.
// A missing or zero cost skips payment.
func (s *Service) Complete(ctx context.Context, worker domain.Identity, orderID int64, req CompleteRequest) (*domain.WorkOrder, error) {
	if err := validateCost(req.Cost); err != nil {
		return nil, err
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != domain.WorkOrderInProgress {
		return nil, transitionError(o.Status, domain.WorkOrderCompleted)
	}
	if worker.Role != domain.RoleWorker || !o.IsAssignedTo(worker.UserID) {
		return nil, forbidden("order %d is not assigned to %s", orderID, worker)
	}

	now := s.now()
	o.CompletedAt = &now
	o.Cost = req.Cost
	// completed is transient: the stored status is the one derived from the cost
	o.Status = afterCompletion(o)
	if err := s.orders.Update(ctx, o, domain.WorkOrderInProgress); err != nil {
		return nil, err
	}

	msg := "The repair is finished, please evaluate it"
	if o.Status == domain.WorkOrderPendingPayment {
		msg = fmt.Sprintf("The repair is finished, %s is due", o.Cost.StringFixed(2))
	}
	s.notifyStatus(ctx, o, msg)
	return o, nil
}

// maxCost is the first value that no longer fits decimal(10,2).
var maxCost = decimal.New(1, 8)

func validateCost(cost *decimal.Decimal) error {
	if cost == nil {
		return nil
	}
	if cost.IsNegative() {
		return validationError("cost must not be negative")
	}
	if !cost.Equal(cost.Round(2)) {
		return validationError("cost must have at most 2 decimal places")
	}
	if cost.GreaterThanOrEqual(maxCost) {
		return validationError("cost must be below %s", maxCost.String())
	}
	return nil
}

func afterCompletion(o *domain.WorkOrder) domain.WorkOrderStatus {
	if o.HasOutstandingCost() {
		return domain.WorkOrderPendingPayment
	}
	return domain.WorkOrderPendingEvaluation
}

// Pay settles the outstanding cost on behalf of the owner.
func (s *Service) Pay(ctx context.Context, owner domain.Identity, orderID int64) (*domain.WorkOrder, error) {
	o, err := s.ownedOrder(ctx, owner, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != domain.WorkOrderPendingPayment || !o.HasOutstandingCost() {
		return nil, transitionError(o.Status, domain.WorkOrderPendingEvaluation)
	}

	now := s.now()
	o.CostPaid = true
	o.PaidAt = &now
	o.Status = domain.WorkOrderPendingEvaluation
	if err := s.orders.Update(ctx, o, domain.WorkOrderPendingPayment); err != nil {
		return nil, err
	}

	p := s.payload(ctx, o, "The owner has paid for the repair")
	if w, ok := o.WorkerIdentity(); ok {
		s.notify(ctx, notification.WorkerStatusUpdate(w, o.ID, notification.UpdatePayment, p))
	}
	s.notify(ctx, notification.ManagerStatusUpdate(o.ID, p))
	return o, nil
}

// Evaluate stores the owner's one-time rating and finishes the order.
func (s *Service) Evaluate(ctx context.Context, owner domain.Identity, orderID int64, req EvaluateRequest) (*domain.WorkOrder, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, validationError("rating must be between 1 and 5")
	}
	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		return nil, validationError("comment is required")
	}
	o, err := s.ownedOrder(ctx, owner, orderID)
	if err != nil {
		return nil, err
	}
	if o.Rating != nil {
		return nil, fmt.Errorf("order %d: %w", orderID, domain.ErrAlreadyRated)
	}
	if o.Status != domain.WorkOrderPendingEvaluation {
		return nil, transitionError(o.Status, domain.WorkOrderFinished)
	}

	rating := req.Rating
	o.Rating = &rating
	o.Comment = comment
	o.Status = domain.WorkOrderFinished
	if err := s.orders.Update(ctx, o, domain.WorkOrderPendingEvaluation); err != nil {
		return nil, err
	}

	p := s.payload(ctx, o, fmt.Sprintf("The owner rated the repair %d/5", rating))
	p["rating"] = rating
	p["comment"] = comment
	w, _ := o.WorkerIdentity()
	s.notify(ctx, notification.EvaluationSubmitted(w, o.ID, p))
	return o, nil
}

// Cancel is allowed to managers on any open order and to the owner while the order is pending.
func (s *Service) Cancel(ctx context.Context, actor domain.Identity, orderID int64) (*domain.WorkOrder, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case domain.RoleManager:
	case domain.RoleOwner:
		if o.OwnerID != actor.UserID {
			return nil, forbidden("order %d", orderID)
		}
		if o.Status != domain.WorkOrderPending {
			return nil, transitionError(o.Status, domain.WorkOrderCancelled)
		}
	default:
		return nil, forbidden("%s cannot cancel orders", actor.Role)
	}
	if o.Status.IsTerminal() {
		return nil, transitionError(o.Status, domain.WorkOrderCancelled)
	}

	worker, hadWorker := o.WorkerIdentity()
	now := s.now()
	from := o.Status
	o.Status = domain.WorkOrderCancelled
	o.CancelledAt = &now
	o.WorkerID = nil
	if err := s.orders.Update(ctx, o, from); err != nil {
		return nil, err
	}

	p := s.payload(ctx, o, "The work order has been cancelled")
	if hadWorker {
		s.notify(ctx, notification.WorkOrderWithdrawn(worker, o.ID, p))
	}
	if actor.Role != domain.RoleOwner {
		s.notify(ctx, notification.OwnerStatusUpdate(o.OwnerIdentity(), o.ID, p))
	}
	s.notify(ctx, notification.ManagerStatusUpdate(o.ID, p))
	return o, nil
}

func (s *Service) ownedOrder(ctx context.Context, owner domain.Identity, orderID int64) (*domain.WorkOrder, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if owner.Role != domain.RoleOwner || o.OwnerID != owner.UserID {
		return nil, forbidden("order %d does not belong to %s", orderID, owner)
	}
	return o, nil
}

func (s *Service) notifyStatus(ctx context.Context, o *domain.WorkOrder, message string) {
	p := s.payload(ctx, o, message)
	s.notify(ctx, notification.OwnerStatusUpdate(o.OwnerIdentity(), o.ID, p))
	s.notify(ctx, notification.ManagerStatusUpdate(o.ID, p))
}

func (s *Service) notify(ctx context.Context, ev notification.Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.Dispatch(ctx, ev)
}

// payload is the data object of every work order frame.
func (s *Service) payload(ctx context.Context, o *domain.WorkOrder, message string) map[string]any {
	p := map[string]any{
		"id":            o.ID,
		"order_number":  o.OrderNumber,
		"status":        o.Status,
		"urgency_level": o.Urgency,
		"property_info": o.PropertyInfo,
		"description":   o.Description,
		"message":       message,
	}
	if o.Cost != nil {
		p["cost"] = o.Cost.StringFixed(2)
		p["cost_paid"] = o.CostPaid
	}
	for key, ts := range map[string]*time.Time{
		"assigned_at":  o.AssignedAt,
		"started_at":   o.StartedAt,
		"completed_at": o.CompletedAt,
		"paid_at":      o.PaidAt,
		"cancelled_at": o.CancelledAt,
	} {
		if ts != nil {
			p[key] = ts.UTC().Format(time.RFC3339)
		}
	}
	if o.WorkerID != nil {
		p["worker_id"] = *o.WorkerID
		if name := s.userName(ctx, *o.WorkerID); name != "" {
			p["worker_name"] = name
		}
	}
	if name := s.userName(ctx, o.OwnerID); name != "" {
		p["owner_name"] = name
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

// generateOrderNumber yields WO + timestamp + 6 random hex digits.
func generateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "WO" + now.Format("20060102150405") + suffix
}
