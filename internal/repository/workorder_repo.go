package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"propertyhub/internal/domain"
)

type WorkOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

func (r *WorkOrderRepository) Create(ctx context.Context, o *domain.WorkOrder) error {
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("work order %s: %w", o.OrderNumber, domain.ErrDuplicate)
		}
		return err
	}
	return nil
}

func (r *WorkOrderRepository) GetByID(ctx context.Context, id int64) (*domain.WorkOrder, error) {
	var o domain.WorkOrder
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

// Update writes every column of o, but only while the stored status still equals from.
// A concurrent transition makes the guard miss and the write is rejected.
func (r *WorkOrderRepository) Update(ctx context.Context, o *domain.WorkOrder, from domain.WorkOrderStatus) error {
	res := r.db.WithContext(ctx).
		Model(o).
		Where("status = ?", from).
		Select("*").
		Omit("id", "created_at").
		Updates(o)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &domain.InvalidTransitionError{Entity: "work order", From: string(from), To: string(o.Status)}
	}
	return nil
}
