package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"order-service/internal/gateway"
	"order-service/internal/models"
	"order-service/internal/repository"

	"github.com/google/uuid"
	"github.com/nanorand/nanorand"
	"go.uber.org/zap"
)

const (
	VietQRCallbackPath = "/api/v1/payments/vietqr/callback"
	PayOSReturnPath    = "/api/v1/payments/payos/callback"
	PayOSCancelPath    = "/api/v1/payments/payos/cancel"
)

type paymentService struct {
	store    repository.Store
	qr       QRGateway
	checkout CheckoutGateway
	recon    *Reconciler
	baseURL  string
	log      *zap.Logger
	now      func() time.Time
	suffix   func() (int64, error)
}

type PaymentServiceDeps struct {
	Store      repository.Store
	QR         QRGateway
	Checkout   CheckoutGateway
	Reconciler *Reconciler
	BaseURL    string
	Log        *zap.Logger
}

func NewPaymentService(d PaymentServiceDeps) PaymentService {
	return &paymentService{
		store:    d.Store,
		qr:       d.QR,
		checkout: d.Checkout,
		recon:    d.Reconciler,
		baseURL:  d.BaseURL,
		log:      d.Log,
		now:      time.Now,
		suffix:   orderCodeSuffix,
	}
}

// orderCodeAttempts: сколько раз пробуем новый orderCode при совпадении с существующим.
const orderCodeAttempts = 5

// orderCodeSuffix: три случайные цифры, чтобы checkout в одну миллисекунду не совпадали.
func orderCodeSuffix() (int64, error) {
	rng, err := nanorand.Gen(3)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(rng, 10, 64)
}

// newOrderCode: unix millis * 1000 + суффикс. Остаётся в пределах 2^53, как требует PayOS.
func (s *paymentService) newOrderCode(ctx context.Context) (int64, error) {
	for i := 0; i < orderCodeAttempts; i++ {
		n, err := s.suffix()
		if err != nil {
			return 0, err
		}
		code := s.now().UnixMilli()*1000 + n%1000
		taken, err := s.store.Payments().GetByTransactionID(ctx, strconv.FormatInt(code, 10))
		if err != nil {
			return 0, err
		}
		if taken == nil {
			return code, nil
		}
	}
	return 0, fmt.Errorf("%w: no free PayOS order code", ErrGateway)
}

func (s *paymentService) CreatePayment(ctx context.Context, in CreatePaymentInput) (*PaymentResult, error) {
	uid, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if !in.Method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	if (in.Method == models.PaymentMethodVietQR && s.qr == nil) ||
		(in.Method == models.PaymentMethodPayOS && s.checkout == nil) {
		return nil, ErrMethodUnavailable
	}

	order, err := s.store.Orders().GetByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.BuyerID != uid {
		return nil, ErrForbidden
	}
	if order.Status != models.OrderStatusPending {
		return nil, ErrOrderNotPending
	}

	p := &models.Payment{
		OrderID: order.ID,
		UserID:  uid,
		Amount:  order.TotalPrice,
		Method:  in.Method,
		Status:  models.PaymentStatusPending,
	}
	var orderCode int64
	switch in.Method {
	case models.PaymentMethodVietQR:
		// до ответа шлюза ключом корреляции служит id заказа
		txID := order.ID.String()
		p.TransactionID = &txID
	case models.PaymentMethodPayOS:
		orderCode, err = s.newOrderCode(ctx)
		if err != nil {
			return nil, err
		}
		txID := strconv.FormatInt(orderCode, 10)
		p.TransactionID = &txID
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Payments().GetByOrderID(ctx, order.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Status == models.PaymentStatusPaid {
				return ErrPaymentAlreadyPaid
			}
			if !in.ReplaceExisting {
				return ErrPaymentExists
			}
			// статус мог смениться на paid после чтения: удаление условное
			deleted, err := tx.Payments().DeleteUnpaid(ctx, existing.ID)
			if err != nil {
				return err
			}
			if !deleted {
				return ErrPaymentAlreadyPaid
			}
			s.log.Info("payment replaced",
				zap.String("order_id", order.ID.String()),
				zap.String("old_payment_id", existing.ID.String()),
				zap.String("old_status", string(existing.Status)),
			)
		}
		return tx.Payments().Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	res := &PaymentResult{Payment: p}
	switch in.Method {
	case models.PaymentMethodCOD:
		s.log.Info("cod payment created", zap.String("order_id", order.ID.String()))

	case models.PaymentMethodVietQR:
		qr, err := s.qr.GenerateQR(ctx, gateway.QRRequest{
			Amount:      p.Amount,
			AddInfo:     order.ID.String(),
			CallbackURL: s.baseURL + VietQRCallbackPath,
		})
		if err != nil {
			return nil, s.failPayment(ctx, p, err)
		}
		res.QRData = qr.QRData

	case models.PaymentMethodPayOS:
		co, err := s.checkout.CreateCheckout(ctx, gateway.CheckoutRequest{
			OrderCode:   orderCode,
			Amount:      p.Amount,
			Description: fmt.Sprintf("Thanh toán #%d", orderCode%10000),
			ReturnURL:   s.baseURL + PayOSReturnPath,
			CancelURL:   s.baseURL + PayOSCancelPath,
		})
		if err != nil {
			return nil, s.failPayment(ctx, p, err)
		}
		res.PaymentURL = co.CheckoutURL
	}

	return res, nil
}

// failPayment: ошибка шлюза: платёж остаётся в базе со статусом failed.
func (s *paymentService) failPayment(ctx context.Context, p *models.Payment, cause error) error {
	s.log.Error("payment gateway call failed",
		zap.String("order_id", p.OrderID.String()),
		zap.String("payment_id", p.ID.String()),
		zap.String("method", string(p.Method)),
		zap.Error(cause),
	)
	if _, err := s.store.Payments().MarkFailed(ctx, p.ID); err != nil {
		s.log.Error("mark payment failed", zap.String("payment_id", p.ID.String()), zap.Error(err))
	}
	p.Status = models.PaymentStatusFailed
	return fmt.Errorf("%w: %v", ErrGateway, cause)
}

func (s *paymentService) GetPaymentStatus(ctx context.Context, orderID uuid.UUID) (*PaymentSnapshot, error) {
	uid, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.store.Payments().GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}
	if role != RoleAdmin && p.UserID != uid {
		return nil, ErrForbidden
	}

	o, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return &PaymentSnapshot{Payment: p, OrderStatus: o.Status, TotalPrice: o.TotalPrice}, nil
}

func (s *paymentService) sellerPayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	uid, _, err := requireRole(ctx, RoleVendor)
	if err != nil {
		return nil, err
	}
	o, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	owns := false
	for _, it := range o.Items {
		if it.SellerID == uid {
			owns = true
			break
		}
	}
	if !owns {
		return nil, ErrForbidden
	}

	p, err := s.store.Payments().GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}

func (s *paymentService) GetOrderPayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	return s.sellerPayment(ctx, orderID)
}

// UpdatePaymentStatus: ручное подтверждение продавцом (типично COD); проходит через Reconcile.
func (s *paymentService) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status models.PaymentStatus) (*models.Payment, error) {
	var outcome Outcome
	switch status {
	case models.PaymentStatusPaid:
		outcome = OutcomeSuccess
	case models.PaymentStatusFailed:
		outcome = OutcomeFailure
	default:
		return nil, ErrInvalidStatus
	}

	p, err := s.sellerPayment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case models.PaymentStatusPaid:
		return nil, ErrPaymentAlreadyPaid
	case models.PaymentStatusFailed:
		return nil, ErrPaymentFinalized
	}
	return s.recon.Reconcile(ctx, p, outcome, "")
}
