package repository

import (
	"context"
	"errors"
	"time"

	"order-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepo interface {
	Create(ctx context.Context, p *models.Payment) error
	// DeleteUnpaid удаляет платёж, только пока он не paid; false: уже оплачен или удалён
	DeleteUnpaid(ctx context.Context, id uuid.UUID) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	GetByTransactionID(ctx context.Context, txID string) (*models.Payment, error)
	SetTransactionID(ctx context.Context, id uuid.UUID, txID string) error
	// MarkPaid: pending -> paid одним условным UPDATE; false: статус уже не pending
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, txID *string) (bool, error)
	// MarkFailed: pending -> failed
	MarkFailed(ctx context.Context, id uuid.UUID) (bool, error)
	// ListPending: страница pending-платежей по (created_at, id), after == nil: с начала окна
	ListPending(ctx context.Context, since time.Time, methods []models.PaymentMethod, after *PendingCursor, limit int) ([]models.Payment, error)
}

// PendingCursor: последний платёж предыдущей страницы.
type PendingCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// CursorOf возвращает курсор для продолжения после p.
func CursorOf(p models.Payment) *PendingCursor {
	return &PendingCursor{CreatedAt: p.CreatedAt, ID: p.ID}
}

type paymentRepo struct{ db *gorm.DB }

func NewPaymentRepo(db *gorm.DB) PaymentRepo { return &paymentRepo{db: db} }

func (r *paymentRepo) Create(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *paymentRepo) DeleteUnpaid(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).
		Where("id = ? AND status <> ?", id, models.PaymentStatusPaid).
		Delete(&models.Payment{})
	return tx.RowsAffected > 0, tx.Error
}

func (r *paymentRepo) first(ctx context.Context, query string, args ...any) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).Where(query, args...).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &p, err
}

func (r *paymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *paymentRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	return r.first(ctx, "order_id = ?", orderID)
}

func (r *paymentRepo) GetByTransactionID(ctx context.Context, txID string) (*models.Payment, error) {
	return r.first(ctx, "transaction_id = ?", txID)
}

func (r *paymentRepo) SetTransactionID(ctx context.Context, id uuid.UUID, txID string) error {
	return r.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).Update("transaction_id", txID).Error
}

func (r *paymentRepo) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, txID *string) (bool, error) {
	upd := map[string]any{
		"status":  models.PaymentStatusPaid,
		"paid_at": paidAt,
	}
	if txID != nil && *txID != "" {
		upd["transaction_id"] = *txID
	}
	tx := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentStatusPending).
		Updates(upd)
	return tx.RowsAffected > 0, tx.Error
}

func (r *paymentRepo) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentStatusPending).
		Update("status", models.PaymentStatusFailed)
	return tx.RowsAffected > 0, tx.Error
}

func (r *paymentRepo) ListPending(ctx context.Context, since time.Time, methods []models.PaymentMethod, after *PendingCursor, limit int) ([]models.Payment, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND created_at >= ?", models.PaymentStatusPending, since)
	if len(methods) > 0 {
		q = q.Where("method IN ?", methods)
	}
	if after != nil {
		q = q.Where("(created_at, id) > (?, ?)", after.CreatedAt, after.ID)
	}
	if limit <= 0 {
		limit = 200
	}
	var list []models.Payment
	err := q.Order("created_at ASC, id ASC").Limit(limit).Find(&list).Error
	return list, err
}
