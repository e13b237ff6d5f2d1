package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"order-service/internal/models"
	"order-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

type VoucherQuote struct {
	Discount int64
	Voucher  *models.Voucher
}

type VoucherInput struct {
	Code           string
	Discount       int64
	DiscountType   models.DiscountType
	MaxDiscount    int64
	MinOrderValue  int64
	ExpirationDate time.Time
	UsageLimit     int32
}

type VoucherService struct {
	store repository.Store
	log   *zap.Logger
	now   func() time.Time
}

func NewVoucherService(store repository.Store, log *zap.Logger) *VoucherService {
	return &VoucherService{store: store, log: log, now: time.Now}
}

// ComputeDiscount: fixed: номинал; percentage: subtotal*rate/100 с округлением
// до целого VND, ограниченный MaxDiscount, если он > 0.
func ComputeDiscount(v *models.Voucher, subtotal int64) int64 {
	switch v.DiscountType {
	case models.DiscountFixed:
		return v.Discount
	case models.DiscountPercentage:
		d := decimal.NewFromInt(subtotal).
			Mul(decimal.NewFromInt(v.Discount)).
			Div(hundred).
			Round(0)
		if v.MaxDiscount > 0 {
			d = decimal.Min(d, decimal.NewFromInt(v.MaxDiscount))
		}
		return d.IntPart()
	}
	return 0
}

// Evaluate проверяет код и считает скидку без изменения счётчика.
func (s *VoucherService) Evaluate(ctx context.Context, code string, subtotal int64) (*VoucherQuote, error) {
	v, err := s.store.Vouchers().GetByCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrVoucherNotFound
	}
	v.RefreshActive(s.now())
	if !v.IsActive {
		return nil, ErrVoucherInactive
	}
	if subtotal < v.MinOrderValue {
		return nil, ErrMinOrderNotMet
	}
	return &VoucherQuote{Discount: ComputeDiscount(v, subtotal), Voucher: v}, nil
}

// Apply = Evaluate + атомарное погашение (usedCount += 1).
func (s *VoucherService) Apply(ctx context.Context, code string, subtotal int64) (*VoucherQuote, error) {
	q, err := s.Evaluate(ctx, code, subtotal)
	if err != nil {
		return nil, err
	}
	if err := s.redeem(ctx, s.store.Vouchers(), q.Voucher); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *VoucherService) redeem(ctx context.Context, repo repository.VoucherRepo, v *models.Voucher) error {
	now := s.now()
	ok, err := repo.Redeem(ctx, v.ID, now)
	if err != nil {
		return err
	}
	if !ok {
		// лимит выбран параллельным заказом или срок истёк между чтением и записью
		return ErrVoucherInactive
	}
	v.UsedCount++
	v.RefreshActive(now)
	return nil
}

// GetUsable: проверка кода покупателем до оформления.
func (s *VoucherService) GetUsable(ctx context.Context, code string) (*models.Voucher, error) {
	if _, _, err := requireAuth(ctx); err != nil {
		return nil, err
	}
	v, err := s.store.Vouchers().GetByCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrVoucherNotFound
	}
	v.RefreshActive(s.now())
	if !v.IsActive {
		return nil, ErrVoucherInactive
	}
	return v, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validateVoucher(in VoucherInput) error {
	if normalizeCode(in.Code) == "" || in.Discount <= 0 || in.UsageLimit < 1 ||
		in.MaxDiscount < 0 || in.MinOrderValue < 0 || in.ExpirationDate.IsZero() {
		return ErrInvalidVoucher
	}
	switch in.DiscountType {
	case models.DiscountFixed:
	case models.DiscountPercentage:
		if in.Discount > 100 {
			return ErrInvalidVoucher
		}
	default:
		return ErrInvalidVoucher
	}
	return nil
}

func (s *VoucherService) Create(ctx context.Context, in VoucherInput) (*models.Voucher, error) {
	if _, _, err := requireRole(ctx, RoleAdmin); err != nil {
		return nil, err
	}
	if err := validateVoucher(in); err != nil {
		return nil, err
	}

	code := normalizeCode(in.Code)
	existing, err := s.store.Vouchers().GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrVoucherCodeTaken
	}

	v := &models.Voucher{
		Code:           code,
		Discount:       in.Discount,
		DiscountType:   in.DiscountType,
		MaxDiscount:    in.MaxDiscount,
		MinOrderValue:  in.MinOrderValue,
		ExpirationDate: in.ExpirationDate,
		UsageLimit:     in.UsageLimit,
	}
	if err := s.store.Vouchers().Create(ctx, v); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrVoucherCodeTaken
		}
		return nil, err
	}
	s.log.Info("voucher created", zap.String("code", v.Code), zap.Bool("active", v.IsActive))
	return v, nil
}

// Update меняет параметры; повторная активация возможна только
// увеличением лимита или продлением срока: флаг пересчитывается при сохранении.
func (s *VoucherService) Update(ctx context.Context, id uuid.UUID, in VoucherInput) (*models.Voucher, error) {
	if _, _, err := requireRole(ctx, RoleAdmin); err != nil {
		return nil, err
	}
	if err := validateVoucher(in); err != nil {
		return nil, err
	}

	v, err := s.store.Vouchers().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrVoucherNotFound
	}

	code := normalizeCode(in.Code)
	if code != v.Code {
		other, err := s.store.Vouchers().GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if other != nil {
			return nil, ErrVoucherCodeTaken
		}
	}

	v.Code = code
	v.Discount = in.Discount
	v.DiscountType = in.DiscountType
	v.MaxDiscount = in.MaxDiscount
	v.MinOrderValue = in.MinOrderValue
	v.ExpirationDate = in.ExpirationDate
	v.UsageLimit = in.UsageLimit

	if err := s.store.Vouchers().Save(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *VoucherService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, _, err := requireRole(ctx, RoleAdmin); err != nil {
		return err
	}
	ok, err := s.store.Vouchers().Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrVoucherNotFound
	}
	return nil
}

func (s *VoucherService) Get(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	if _, _, err := requireRole(ctx, RoleAdmin); err != nil {
		return nil, err
	}
	v, err := s.store.Vouchers().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrVoucherNotFound
	}
	return v, nil
}

func (s *VoucherService) List(ctx context.Context, limit, offset int) ([]models.Voucher, int64, error) {
	if _, _, err := requireRole(ctx, RoleAdmin); err != nil {
		return nil, 0, err
	}
	return s.store.Vouchers().List(ctx, limit, offset)
}
