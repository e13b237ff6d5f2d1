package repository

import (
	"context"
	"errors"
	"time"

	"order-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepo interface {
	Get(ctx context.Context, productID uuid.UUID) (*models.Inventory, error)
	// Ensure: fetch-or-create строки с quantity = 0, идемпотентно
	Ensure(ctx context.Context, productID uuid.UUID) (*models.Inventory, error)
	// TryReserve атомарно: if quantity >= qty then quantity -= qty; reserved += qty
	TryReserve(ctx context.Context, productID uuid.UUID, qty int32) (bool, error)
	// SetQuantity: upsert остатка продавцом
	SetQuantity(ctx context.Context, productID uuid.UUID, qty int32) (*models.Inventory, error)
	ListByProducts(ctx context.Context, productIDs []uuid.UUID) ([]models.Inventory, error)
}

type inventoryRepo struct{ db *gorm.DB }

func NewInventoryRepo(db *gorm.DB) InventoryRepo { return &inventoryRepo{db: db} }

func (r *inventoryRepo) Get(ctx context.Context, productID uuid.UUID) (*models.Inventory, error) {
	var inv models.Inventory
	err := r.db.WithContext(ctx).First(&inv, "product_id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &inv, err
}

func (r *inventoryRepo) Ensure(ctx context.Context, productID uuid.UUID) (*models.Inventory, error) {
	row := models.Inventory{ProductID: productID, Quantity: 0, LastUpdated: time.Now().UTC()}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error; err != nil {
		return nil, err
	}
	return r.Get(ctx, productID)
}

func (r *inventoryRepo) TryReserve(ctx context.Context, productID uuid.UUID, qty int32) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE inventories
SET quantity = quantity - @q,
    reserved = reserved + @q,
    last_updated = now()
WHERE product_id = @pid
  AND quantity >= @q
`, map[string]any{
		"pid": productID,
		"q":   qty,
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *inventoryRepo) SetQuantity(ctx context.Context, productID uuid.UUID, qty int32) (*models.Inventory, error) {
	row := models.Inventory{ProductID: productID, Quantity: qty, LastUpdated: time.Now().UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "last_updated"}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, productID)
}

func (r *inventoryRepo) ListByProducts(ctx context.Context, productIDs []uuid.UUID) ([]models.Inventory, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var list []models.Inventory
	err := r.db.WithContext(ctx).Where("product_id IN ?", productIDs).Find(&list).Error
	return list, err
}
