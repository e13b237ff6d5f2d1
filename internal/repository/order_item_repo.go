package repository

import (
	"context"
	"errors"

	"order-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderItemRepo interface {
	BulkCreate(ctx context.Context, items []models.OrderItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.OrderItem, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, status *models.ItemStatus, limit, offset int) ([]models.OrderItem, int64, error)
	// UpdateStatusIf: условный переход одной позиции (пустой from = любой статус, кроме to)
	UpdateStatusIf(ctx context.Context, id uuid.UUID, to models.ItemStatus, from ...models.ItemStatus) (bool, error)
	// TransitionByOrder переводит все позиции заказа из from в to, sellerID != nil: только позиции продавца.
	TransitionByOrder(ctx context.Context, orderID uuid.UUID, sellerID *uuid.UUID, from, to models.ItemStatus) (int64, error)
}

type orderItemRepo struct{ db *gorm.DB }

func NewOrderItemRepo(db *gorm.DB) OrderItemRepo { return &orderItemRepo{db: db} }

func (r *orderItemRepo) BulkCreate(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *orderItemRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.OrderItem, error) {
	var it models.OrderItem
	err := r.db.WithContext(ctx).First(&it, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &it, err
}

func (r *orderItemRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var list []models.OrderItem
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC, id ASC").Find(&list).Error
	return list, err
}

func (r *orderItemRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, status *models.ItemStatus, limit, offset int) ([]models.OrderItem, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.OrderItem{}).Where("seller_id = ?", sellerID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var list []models.OrderItem
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}

func (r *orderItemRepo) UpdateStatusIf(ctx context.Context, id uuid.UUID, to models.ItemStatus, from ...models.ItemStatus) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.OrderItem{}).Where("id = ?", id)
	if len(from) > 0 {
		q = q.Where("status IN ?", from)
	} else {
		q = q.Where("status <> ?", to)
	}
	tx := q.Update("status", to)
	return tx.RowsAffected > 0, tx.Error
}

func (r *orderItemRepo) TransitionByOrder(ctx context.Context, orderID uuid.UUID, sellerID *uuid.UUID, from, to models.ItemStatus) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.OrderItem{}).Where("order_id = ? AND status = ?", orderID, from)
	if sellerID != nil {
		q = q.Where("seller_id = ?", *sellerID)
	}
	tx := q.Update("status", to)
	return tx.RowsAffected, tx.Error
}
