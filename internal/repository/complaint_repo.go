package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"propertyhub/internal/domain"
)

type ComplaintRepository struct {
	db *gorm.DB
}

func NewComplaintRepository(db *gorm.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

func (r *ComplaintRepository) Create(ctx context.Context, c *domain.Complaint) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *ComplaintRepository) GetByID(ctx context.Context, id int64) (*domain.Complaint, error) {
	var c domain.Complaint
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// Update is guarded by the previous status, see WorkOrderRepository.Update.
func (r *ComplaintRepository) Update(ctx context.Context, c *domain.Complaint, from domain.ComplaintStatus) error {
	res := r.db.WithContext(ctx).
		Model(c).
		Where("status = ?", from).
		Select("*").
		Omit("id", "created_at").
		Updates(c)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &domain.InvalidTransitionError{Entity: "complaint", From: string(from), To: string(c.Status)}
	}
	return nil
}

// Rate stores the rating of a completed complaint. A complaint that already
// carries a rating is left unchanged.
func (r *ComplaintRepository) Rate(ctx context.Context, id int64, rating int) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Complaint{}).
		Where("id = ? AND status = ? AND rating IS NULL", id, domain.ComplaintCompleted).
		Updates(map[string]any{"rating": rating, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("complaint %d: %w", id, domain.ErrAlreadyRated)
	}
	return nil
}

func (r *ComplaintRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&domain.Complaint{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
