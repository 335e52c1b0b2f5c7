package domain

import "time"

type ComplaintStatus string

const (
	ComplaintPending    ComplaintStatus = "pending"
	ComplaintProcessing ComplaintStatus = "processing"
	ComplaintCompleted  ComplaintStatus = "completed"
	ComplaintCancelled  ComplaintStatus = "cancelled"
)

type ComplaintCategory string

const (
	ComplaintEnvironment ComplaintCategory = "environment"
	ComplaintService     ComplaintCategory = "service"
	ComplaintFacility    ComplaintCategory = "facility"
	ComplaintNoise       ComplaintCategory = "noise"
	ComplaintOther       ComplaintCategory = "other"
)

type Complaint struct {
	ID          int64             `json:"id" gorm:"primaryKey"`
	OwnerID     int64             `json:"owner_id" gorm:"index;not null"`
	HandlerID   *int64            `json:"handler_id,omitempty"`
	Category    ComplaintCategory `json:"category" gorm:"default:'other'"`
	Content     string            `json:"content" gorm:"type:text;not null"`
	Reply       string            `json:"reply,omitempty" gorm:"type:text"`
	Status      ComplaintStatus   `json:"status" gorm:"index;not null"`
	Rating      *int              `json:"rating,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (Complaint) TableName() string { return "complaints" }

func (c *Complaint) OwnerIdentity() Identity {
	return Identity{Role: RoleOwner, UserID: c.OwnerID}
}
