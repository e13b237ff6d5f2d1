package repository

import (
	"context"
	"errors"

	"order-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ShipmentRepo interface {
	// Create не перезаписывает уже выданный трек-номер позиции
	Create(ctx context.Context, s *models.ShippingInfo) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ShippingInfo, error)
	GetByOrderItem(ctx context.Context, orderItemID uuid.UUID) (*models.ShippingInfo, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ItemStatus) error
}

type shipmentRepo struct{ db *gorm.DB }

func NewShipmentRepo(db *gorm.DB) ShipmentRepo { return &shipmentRepo{db: db} }

func (r *shipmentRepo) Create(ctx context.Context, s *models.ShippingInfo) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "order_item_id"}}, DoNothing: true}).
		Create(s).Error
}

func (r *shipmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ShippingInfo, error) {
	var s models.ShippingInfo
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &s, err
}

func (r *shipmentRepo) GetByOrderItem(ctx context.Context, orderItemID uuid.UUID) (*models.ShippingInfo, error) {
	var s models.ShippingInfo
	err := r.db.WithContext(ctx).First(&s, "order_item_id = ?", orderItemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &s, err
}

func (r *shipmentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ItemStatus) error {
	return r.db.WithContext(ctx).Model(&models.ShippingInfo{}).Where("id = ?", id).Update("status", status).Error
}
