package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type WorkOrderStatus string

const (
	WorkOrderPending           WorkOrderStatus = "pending"
	WorkOrderAssigned          WorkOrderStatus = "assigned"
	WorkOrderInProgress        WorkOrderStatus = "in_progress"
	WorkOrderCompleted         WorkOrderStatus = "completed"
	WorkOrderPendingPayment    WorkOrderStatus = "pending_payment"
	WorkOrderPendingEvaluation WorkOrderStatus = "pending_evaluation"
	WorkOrderFinished          WorkOrderStatus = "finished"
	WorkOrderCancelled         WorkOrderStatus = "cancelled"
)

func (s WorkOrderStatus) IsTerminal() bool {
	return s == WorkOrderFinished || s == WorkOrderCancelled
}

// HasWorker reports whether an order in this status must carry a worker.
func (s WorkOrderStatus) HasWorker() bool {
	switch s {
	case WorkOrderAssigned, WorkOrderInProgress, WorkOrderCompleted,
		WorkOrderPendingPayment, WorkOrderPendingEvaluation, WorkOrderFinished:
		return true
	}
	return false
}

type UrgencyLevel string

const (
	UrgencyLow    UrgencyLevel = "low"
	UrgencyMedium UrgencyLevel = "medium"
	UrgencyHigh   UrgencyLevel = "high"
	UrgencyUrgent UrgencyLevel = "urgent"
)

type WorkOrder struct {
	ID           int64            `json:"id" gorm:"primaryKey"`
	OrderNumber  string           `json:"order_number" gorm:"uniqueIndex;not null"`
	OwnerID      int64            `json:"owner_id" gorm:"index;not null"`
	WorkerID     *int64           `json:"worker_id,omitempty" gorm:"index"`
	PropertyInfo string           `json:"property_info,omitempty"`
	Description  string           `json:"description" gorm:"type:text"`
	Urgency      UrgencyLevel     `json:"urgency_level" gorm:"default:'medium'"`
	Status       WorkOrderStatus  `json:"status" gorm:"index;not null"`
	Cost         *decimal.Decimal `json:"cost,omitempty" gorm:"type:decimal(10,2)"`
	CostPaid     bool             `json:"cost_paid"`
	Rating       *int             `json:"rating,omitempty"`
	Comment      string           `json:"comment,omitempty" gorm:"type:text"`
	AssignedAt   *time.Time       `json:"assigned_at,omitempty"`
	StartedAt    *time.Time       `json:"started_at,omitempty"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	PaidAt       *time.Time       `json:"paid_at,omitempty"`
	CancelledAt  *time.Time       `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func (WorkOrder) TableName() string { return "work_orders" }

func (o *WorkOrder) OwnerIdentity() Identity {
	return Identity{Role: RoleOwner, UserID: o.OwnerID}
}

// WorkerIdentity returns false when nobody is assigned.
func (o *WorkOrder) WorkerIdentity() (Identity, bool) {
	if o.WorkerID == nil {
		return Identity{}, false
	}
	return Identity{Role: RoleWorker, UserID: *o.WorkerID}, true
}

func (o *WorkOrder) IsAssignedTo(workerID int64) bool {
	return o.WorkerID != nil && *o.WorkerID == workerID
}

// HasOutstandingCost is true when a positive cost has not been paid yet.
func (o *WorkOrder) HasOutstandingCost() bool {
	return o.Cost != nil && o.Cost.IsPositive() && !o.CostPaid
}
