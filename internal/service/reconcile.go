package service

import (
	"context"
	"strings"
	"time"

	"order-service/internal/gateway"
	"order-service/internal/models"
	"order-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Outcome int

const (
	// OutcomePending: у шлюза ещё нет окончательного ответа, платёж не трогаем.
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	}
	return "pending"
}

// Reconciler сводит статус платежа с ответом шлюза. Callback и поллер
// приходят в один и тот же Reconcile.
type Reconciler struct {
	store    repository.Store
	sync     *Synchronizer
	qr       QRGateway
	checkout CheckoutGateway
	events   publisher
	log      *zap.Logger
	now      func() time.Time
	window   time.Duration
	pageSize int
}

type ReconcilerDeps struct {
	Store        repository.Store
	Synchronizer *Synchronizer
	QR           QRGateway
	Checkout     CheckoutGateway
	Events       EventPublisher
	Log          *zap.Logger
	Window       time.Duration // окно поллера, по умолчанию 24h
}

func NewReconciler(d ReconcilerDeps) *Reconciler {
	if d.Window <= 0 {
		d.Window = 24 * time.Hour
	}
	return &Reconciler{
		store:    d.Store,
		sync:     d.Synchronizer,
		qr:       d.QR,
		checkout: d.Checkout,
		events:   publisher{bus: d.Events, log: d.Log, now: time.Now},
		log:      d.Log,
		now:      time.Now,
		window:   d.Window,
		pageSize: pollPageSize,
	}
}

// VietQRCallbackOutcome: успех только SUCCESS, всё прочее: отказ.
func VietQRCallbackOutcome(status string) Outcome {
	if strings.EqualFold(strings.TrimSpace(status), "SUCCESS") {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// PayOSCallbackOutcome: PAID | SUCCESS | 00: успех, всё прочее: отказ.
func PayOSCallbackOutcome(status string) Outcome {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "PAID", "SUCCESS", "00":
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// pollOutcome: ответ status-check эндпоинта. Промежуточные состояния не трогают платёж,
// неизвестные трактуются как отказ.
func pollOutcome(status string, success string) Outcome {
	switch st := strings.ToUpper(strings.TrimSpace(status)); st {
	case success:
		return OutcomeSuccess
	case "", "PENDING", "PROCESSING", "UNDERPAID":
		return OutcomePending
	default:
		return OutcomeFailure
	}
}

// Reconcile: единая функция перехода. Повторный успех ничего не меняет,
// но перепроверяет эскалацию заказа.
func (r *Reconciler) Reconcile(ctx context.Context, p *models.Payment, outcome Outcome, txID string) (*models.Payment, error) {
	log := r.log.With(
		zap.String("payment_id", p.ID.String()),
		zap.String("order_id", p.OrderID.String()),
		zap.String("outcome", outcome.String()),
	)

	switch p.Status {
	case models.PaymentStatusPaid:
		if outcome == OutcomeSuccess {
			log.Info("payment already paid, verifying order escalation")
			if err := r.sync.EscalatePaid(ctx, p.OrderID); err != nil {
				return nil, err
			}
		}
		return p, nil
	case models.PaymentStatusFailed:
		if outcome == OutcomeSuccess {
			log.Warn("success reported for failed payment, left unchanged")
		}
		return p, nil
	}

	switch outcome {
	case OutcomeSuccess:
		var fresh *string
		if txID != "" {
			fresh = &txID
		}
		moved, err := r.store.Payments().MarkPaid(ctx, p.ID, r.now(), fresh)
		if err != nil {
			return nil, err
		}
		cur, err := r.reload(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if !moved && cur.Status != models.PaymentStatusPaid {
			log.Warn("payment changed concurrently", zap.String("status", string(cur.Status)))
			return cur, nil
		}
		if moved {
			log.Info("payment marked paid")
			r.events.publish(ctx, cur.OrderID, EventPaymentSettled, paymentEvent(cur))
		}
		if err := r.sync.EscalatePaid(ctx, cur.OrderID); err != nil {
			return nil, err
		}
		return cur, nil

	case OutcomeFailure:
		moved, err := r.store.Payments().MarkFailed(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		cur, err := r.reload(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if moved {
			log.Info("payment marked failed")
			r.events.publish(ctx, cur.OrderID, EventPaymentRejected, paymentEvent(cur))
		}
		return cur, nil
	}

	return p, nil
}

func (r *Reconciler) reload(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	cur, err := r.store.Payments().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, ErrPaymentNotFound
	}
	return cur, nil
}

func paymentEvent(p *models.Payment) PaymentEvent {
	ev := PaymentEvent{PaymentID: p.ID, OrderID: p.OrderID, Method: p.Method, Amount: p.Amount}
	if p.TransactionID != nil {
		ev.TransactionID = *p.TransactionID
	}
	return ev
}

// lookup: сначала по orderId, затем по transactionId.
func (r *Reconciler) lookup(ctx context.Context, orderKey, txKey string) (*models.Payment, error) {
	if id, err := uuid.Parse(strings.TrimSpace(orderKey)); err == nil {
		p, err := r.store.Payments().GetByOrderID(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}
	if txKey = strings.TrimSpace(txKey); txKey != "" {
		p, err := r.store.Payments().GetByTransactionID(ctx, txKey)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}
	return nil, ErrPaymentNotFound
}

type VietQRCallback struct {
	OrderID       string
	Status        string
	TransactionID string
}

func (r *Reconciler) HandleVietQRCallback(ctx context.Context, cb VietQRCallback) (*models.Payment, error) {
	p, err := r.lookup(ctx, cb.OrderID, cb.TransactionID)
	if err != nil {
		r.log.Warn("vietqr callback for unknown payment", zap.String("order_id", cb.OrderID), zap.String("transaction_id", cb.TransactionID))
		return nil, err
	}
	return r.Reconcile(ctx, p, VietQRCallbackOutcome(cb.Status), cb.TransactionID)
}

type PayOSCallback struct {
	OrderCode string
	Status    string
}

func (r *Reconciler) HandlePayOSCallback(ctx context.Context, cb PayOSCallback) (*models.Payment, error) {
	p, err := r.lookup(ctx, cb.OrderCode, cb.OrderCode)
	if err != nil {
		r.log.Warn("payos callback for unknown payment", zap.String("order_code", cb.OrderCode))
		return nil, err
	}
	return r.Reconcile(ctx, p, PayOSCallbackOutcome(cb.Status), "")
}

type PollStats struct {
	Checked int
	Paid    int
	Failed  int
	Pending int
	Errors  int
}

var polledMethods = []models.PaymentMethod{models.PaymentMethodVietQR, models.PaymentMethodPayOS}

const pollPageSize = 200

// PollPending опрашивает шлюзы по pending-платежам за окно (24h).
// Ошибки отдельных платежей не прерывают проход: повтор на следующем тике.
func (r *Reconciler) PollPending(ctx context.Context) (PollStats, error) {
	var st PollStats
	since := r.now().Add(-r.window)

	// keyset по (created_at, id): платежи, которые остаются pending, не закрывают собой более новые
	var after *repository.PendingCursor
	for {
		list, err := r.store.Payments().ListPending(ctx, since, polledMethods, after, r.pageSize)
		if err != nil {
			return st, err
		}
		for i := range list {
			if ctx.Err() != nil {
				return st, ctx.Err()
			}
			r.pollOne(ctx, &list[i], &st)
		}
		if len(list) < r.pageSize {
			break
		}
		after = repository.CursorOf(list[len(list)-1])
	}

	r.log.Info("pending payments polled",
		zap.Int("checked", st.Checked),
		zap.Int("paid", st.Paid),
		zap.Int("failed", st.Failed),
		zap.Int("pending", st.Pending),
		zap.Int("errors", st.Errors),
	)
	return st, nil
}

func (r *Reconciler) pollOne(ctx context.Context, p *models.Payment, st *PollStats) {
	st.Checked++

	outcome, txID, err := r.remoteOutcome(ctx, p)
	if err != nil {
		st.Errors++
		r.log.Warn("payment status check failed",
			zap.String("payment_id", p.ID.String()),
			zap.String("method", string(p.Method)),
			zap.Error(err),
		)
		return
	}
	if outcome == OutcomePending {
		st.Pending++
		return
	}

	cur, err := r.Reconcile(ctx, p, outcome, txID)
	if err != nil {
		st.Errors++
		r.log.Error("payment reconcile failed", zap.String("payment_id", p.ID.String()), zap.Error(err))
		return
	}
	switch cur.Status {
	case models.PaymentStatusPaid:
		st.Paid++
	case models.PaymentStatusFailed:
		st.Failed++
	}
}

func (r *Reconciler) remoteOutcome(ctx context.Context, p *models.Payment) (Outcome, string, error) {
	switch p.Method {
	case models.PaymentMethodVietQR:
		if r.qr == nil {
			return OutcomePending, "", ErrMethodUnavailable
		}
		rs, err := r.qr.TransactionStatus(ctx, p.OrderID.String())
		if err != nil {
			return OutcomePending, "", err
		}
		if rs.Code != gateway.CodeOK {
			return OutcomePending, "", nil
		}
		return pollOutcome(rs.Status, "SUCCESS"), rs.TransactionID, nil

	case models.PaymentMethodPayOS:
		if r.checkout == nil {
			return OutcomePending, "", ErrMethodUnavailable
		}
		if p.TransactionID == nil || *p.TransactionID == "" {
			return OutcomePending, "", ErrPaymentNotFound
		}
		rs, err := r.checkout.CheckoutStatus(ctx, *p.TransactionID)
		if err != nil {
			return OutcomePending, "", err
		}
		if rs.Code != gateway.CodeOK {
			return OutcomePending, "", nil
		}
		return pollOutcome(rs.Status, "PAID"), "", nil
	}
	return OutcomePending, "", nil
}
