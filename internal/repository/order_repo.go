package repository

import (
	"context"
	"errors"

	"order-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderListFilter struct {
	BuyerID *uuid.UUID
	Status  *models.OrderStatus
	Limit   int
	Offset  int
}

type OrderRepo interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, f OrderListFilter) ([]*models.Order, int64, error)
	// UpdateStatusIf: условный переход: пишет только если текущий статус входит в from.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, to models.OrderStatus, from ...models.OrderStatus) (bool, error)
	// ListShippedCandidates: заказы не в shipped, у которых все позиции shipped.
	ListShippedCandidates(ctx context.Context, limit int) ([]uuid.UUID, error)
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) OrderRepo { return &orderRepo{db: db} }

func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	// позиции пишутся отдельно через OrderItemRepo.BulkCreate
	return r.db.WithContext(ctx).Omit("Items").Create(o).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var ord models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		First(&ord, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &ord, err
}

func (r *orderRepo) List(ctx context.Context, f OrderListFilter) ([]*models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})

	if f.BuyerID != nil {
		q = q.Where("buyer_id = ?", *f.BuyerID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}

	if f.Offset < 0 {
		f.Offset = 0
	}

	var list []*models.Order
	err := q.Order("order_date DESC").Limit(f.Limit).Offset(f.Offset).Preload("Items").Find(&list).Error
	return list, total, err
}

func (r *orderRepo) UpdateStatusIf(ctx context.Context, id uuid.UUID, to models.OrderStatus, from ...models.OrderStatus) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id)
	if len(from) > 0 {
		q = q.Where("status IN ?", from)
	} else {
		q = q.Where("status <> ?", to)
	}
	tx := q.Update("status", to)
	return tx.RowsAffected > 0, tx.Error
}

func (r *orderRepo) ListShippedCandidates(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 500
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Raw(`
SELECT o.id
FROM orders o
WHERE o.status <> 'shipped'
  AND EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id)
  AND NOT EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id AND i.status <> 'shipped')
ORDER BY o.order_date
LIMIT ?
`, limit).Scan(&ids).Error
	return ids, err
}
