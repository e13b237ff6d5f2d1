package repository

import (
	"context"
	"errors"
	"time"

	"order-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VoucherRepo interface {
	Create(ctx context.Context, v *models.Voucher) error
	Save(ctx context.Context, v *models.Voucher) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error)
	GetByCode(ctx context.Context, code string) (*models.Voucher, error)
	List(ctx context.Context, limit, offset int) ([]models.Voucher, int64, error)
	// Redeem атомарно: used_count += 1, только пока лимит не выбран и срок не истёк
	Redeem(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}

type voucherRepo struct{ db *gorm.DB }

func NewVoucherRepo(db *gorm.DB) VoucherRepo { return &voucherRepo{db: db} }

func (r *voucherRepo) Create(ctx context.Context, v *models.Voucher) error {
	return r.db.WithContext(ctx).Create(v).Error
}

// Save: полный апдейт через BeforeSave, чтобы is_active пересчитался.
func (r *voucherRepo) Save(ctx context.Context, v *models.Voucher) error {
	return r.db.WithContext(ctx).Save(v).Error
}

func (r *voucherRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Delete(&models.Voucher{}, "id = ?", id)
	return tx.RowsAffected > 0, tx.Error
}

func (r *voucherRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	var v models.Voucher
	err := r.db.WithContext(ctx).First(&v, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &v, err
}

func (r *voucherRepo) GetByCode(ctx context.Context, code string) (*models.Voucher, error) {
	var v models.Voucher
	err := r.db.WithContext(ctx).First(&v, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &v, err
}

func (r *voucherRepo) List(ctx context.Context, limit, offset int) ([]models.Voucher, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Voucher{})

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

	var list []models.Voucher
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}

func (r *voucherRepo) Redeem(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	// в SET правые части видят старые значения строки
	tx := r.db.WithContext(ctx).Exec(`
UPDATE vouchers
SET used_count = used_count + 1,
    is_active  = (used_count + 1 < usage_limit AND expiration_date > @now)
WHERE id = @id
  AND used_count < usage_limit
  AND expiration_date > @now
`, map[string]any{
		"id":  id,
		"now": now,
	})
	return tx.RowsAffected > 0, tx.Error
}
