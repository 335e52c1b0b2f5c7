package complaint

import "propertyhub/internal/domain"

type CreateRequest struct {
	Category domain.ComplaintCategory `json:"category" validate:"omitempty,oneof=environment service facility noise other"`
	Content  string                   `json:"content" validate:"required,max=2000"`
}

type CompleteRequest struct {
	Reply string `json:"reply" validate:"required,max=2000"`
}

type RateRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}
