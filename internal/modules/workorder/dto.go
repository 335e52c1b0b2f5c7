package workorder

import (
	"github.com/shopspring/decimal"

	"propertyhub/internal/domain"
)

type CreateRequest struct {
	PropertyInfo string              `json:"property_info" validate:"max=255"`
	Description  string              `json:"description" validate:"required,max=2000"`
	Urgency      domain.UrgencyLevel `json:"urgency_level" validate:"omitempty,oneof=low medium high urgent"`
}

type AssignRequest struct {
	WorkerID int64 `json:"worker_id" validate:"required,gt=0"`
}

// CompleteRequest carries the optional repair cost. A missing cost means free of charge.
type CompleteRequest struct {
	Cost *decimal.Decimal `json:"cost"`
}

type EvaluateRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required,max=1000"`
}
