package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"order-service/internal/gateway"
	"order-service/internal/models"

	"github.com/google/uuid"
)

func TestCallbackOutcomes(t *testing.T) {
	vietqr := map[string]Outcome{
		"SUCCESS":   OutcomeSuccess,
		" success ": OutcomeSuccess,
		"FAILED":    OutcomeFailure,
		"PENDING":   OutcomeFailure,
		"":          OutcomeFailure,
	}
	for in, want := range vietqr {
		if got := VietQRCallbackOutcome(in); got != want {
			t.Fatalf("VietQRCallbackOutcome(%q) = %s, want %s", in, got, want)
		}
	}

	payos := map[string]Outcome{
		"PAID":      OutcomeSuccess,
		"paid":      OutcomeSuccess,
		"SUCCESS":   OutcomeSuccess,
		"00":        OutcomeSuccess,
		"CANCELLED": OutcomeFailure,
		"":          OutcomeFailure,
	}
	for in, want := range payos {
		if got := PayOSCallbackOutcome(in); got != want {
			t.Fatalf("PayOSCallbackOutcome(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestPollOutcome(t *testing.T) {
	cases := []struct {
		status, success string
		want            Outcome
	}{
		{"SUCCESS", "SUCCESS", OutcomeSuccess},
		{"PAID", "PAID", OutcomeSuccess},
		{"PAID", "SUCCESS", OutcomeFailure},
		{"", "PAID", OutcomePending},
		{"PENDING", "PAID", OutcomePending},
		{"processing", "PAID", OutcomePending},
		{"UNDERPAID", "PAID", OutcomePending},
		{"CANCELLED", "PAID", OutcomeFailure},
		{"EXPIRED", "PAID", OutcomeFailure},
	}
	for _, c := range cases {
		if got := pollOutcome(c.status, c.success); got != c.want {
			t.Fatalf("pollOutcome(%q, %q) = %s, want %s", c.status, c.success, got, c.want)
		}
	}
}

// pendingPayment: заказ покупателя плюс pending-платёж выбранным методом.
func pendingPayment(t *testing.T, e *env, method models.PaymentMethod) (uuid.UUID, *models.Payment) {
	t.Helper()
	buyer := uuid.New()
	orderID, _ := e.placeSimple(t, buyer, 500, 1)
	res, err := e.payments.CreatePayment(asUser(buyer, RoleCustomer), CreatePaymentInput{OrderID: orderID, Method: method})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	return orderID, res.Payment
}

func TestVietQRCallbackIsIdempotent(t *testing.T) {
	e := newEnv(t)
	orderID, _ := pendingPayment(t, e, models.PaymentMethodVietQR)
	ctx := context.Background()
	cb := VietQRCallback{OrderID: orderID.String(), Status: "SUCCESS", TransactionID: "FT2401"}

	p, err := e.recon.HandleVietQRCallback(ctx, cb)
	if err != nil {
		t.Fatalf("first callback: %v", err)
	}
	if p.Status != models.PaymentStatusPaid || p.TransactionID == nil || *p.TransactionID != "FT2401" {
		t.Fatalf("payment = %+v", p)
	}
	paidAt := *p.PaidAt

	p, err = e.recon.HandleVietQRCallback(ctx, cb)
	if err != nil {
		t.Fatalf("duplicate callback: %v", err)
	}
	if p.Status != models.PaymentStatusPaid || !p.PaidAt.Equal(paidAt) {
		t.Fatalf("duplicate changed payment: %+v", p)
	}
	if e.bus.count(EventPaymentSettled) != 1 {
		t.Fatalf("payment.settled events = %d, want 1", e.bus.count(EventPaymentSettled))
	}

	o := orderOf(t, e, orderID)
	if o.Status != models.OrderStatusProcessing || o.Items[0].Status != models.ItemStatusShipping {
		t.Fatalf("order = %s item = %s, want processing/shipping", o.Status, o.Items[0].Status)
	}

	// поздний отказ уже оплаченный платёж не трогает
	p, err = e.recon.HandleVietQRCallback(ctx, VietQRCallback{OrderID: orderID.String(), Status: "FAILED"})
	if err != nil || p.Status != models.PaymentStatusPaid {
		t.Fatalf("late failure = %+v, %v", p, err)
	}
}

func TestFailedPaymentStaysFailed(t *testing.T) {
	e := newEnv(t)
	orderID, _ := pendingPayment(t, e, models.PaymentMethodVietQR)
	ctx := context.Background()

	p, err := e.recon.HandleVietQRCallback(ctx, VietQRCallback{OrderID: orderID.String(), Status: "FAILED"})
	if err != nil || p.Status != models.PaymentStatusFailed {
		t.Fatalf("failure callback = %+v, %v", p, err)
	}
	if e.bus.count(EventPaymentRejected) != 1 {
		t.Fatalf("payment.failed events = %d, want 1", e.bus.count(EventPaymentRejected))
	}

	p, err = e.recon.HandleVietQRCallback(ctx, VietQRCallback{OrderID: orderID.String(), Status: "SUCCESS"})
	if err != nil || p.Status != models.PaymentStatusFailed {
		t.Fatalf("late success = %+v, %v", p, err)
	}
	if got := orderOf(t, e, orderID).Status; got != models.OrderStatusPending {
		t.Fatalf("order = %s, want pending", got)
	}
}

func TestCallbackForUnknownPayment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if _, err := e.recon.HandleVietQRCallback(ctx, VietQRCallback{OrderID: uuid.NewString(), Status: "SUCCESS"}); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("vietqr err = %v, want ErrPaymentNotFound", err)
	}
	if _, err := e.recon.HandlePayOSCallback(ctx, PayOSCallback{OrderCode: "123", Status: "PAID"}); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("payos err = %v, want ErrPaymentNotFound", err)
	}
}

func TestPayOSCallbackByOrderCode(t *testing.T) {
	e := newEnv(t)
	orderID, p := pendingPayment(t, e, models.PaymentMethodPayOS)
	code := *p.TransactionID

	got, err := e.recon.HandlePayOSCallback(context.Background(), PayOSCallback{OrderCode: code, Status: "PAID"})
	if err != nil {
		t.Fatalf("HandlePayOSCallback: %v", err)
	}
	if got.ID != p.ID || got.Status != models.PaymentStatusPaid {
		t.Fatalf("payment = %+v", got)
	}
	if o := orderOf(t, e, orderID); o.Status != models.OrderStatusProcessing {
		t.Fatalf("order = %s, want processing", o.Status)
	}
}

func TestPayOSCancel(t *testing.T) {
	e := newEnv(t)
	_, p := pendingPayment(t, e, models.PaymentMethodPayOS)

	got, err := e.recon.HandlePayOSCallback(context.Background(), PayOSCallback{OrderCode: *p.TransactionID, Status: "CANCELLED"})
	if err != nil || got.Status != models.PaymentStatusFailed {
		t.Fatalf("cancel = %+v, %v", got, err)
	}
}

func TestReconcileStoreErrorLeavesPaymentPending(t *testing.T) {
	e := newEnv(t)
	orderID, p := pendingPayment(t, e, models.PaymentMethodVietQR)
	e.store.failMarkPaid = errors.New("connection refused")

	if _, err := e.recon.Reconcile(context.Background(), p, OutcomeSuccess, ""); err == nil {
		t.Fatal("expected store error")
	}
	if got := paymentOf(t, e, orderID).Status; got != models.PaymentStatusPending {
		t.Fatalf("payment = %s, want pending", got)
	}
	if got := orderOf(t, e, orderID).Status; got != models.OrderStatusPending {
		t.Fatalf("order = %s, want pending", got)
	}
}

func TestPollPending(t *testing.T) {
	e := newEnv(t)

	paidOrder, _ := pendingPayment(t, e, models.PaymentMethodVietQR)
	waitingOrder, _ := pendingPayment(t, e, models.PaymentMethodVietQR)
	brokenOrder, _ := pendingPayment(t, e, models.PaymentMethodVietQR)
	staleOrder, stale := pendingPayment(t, e, models.PaymentMethodVietQR)
	cancelledOrder, cancelled := pendingPayment(t, e, models.PaymentMethodPayOS)
	codOrder, _ := pendingPayment(t, e, models.PaymentMethodCOD)

	e.qr.statuses[paidOrder.String()] = &gateway.RemoteStatus{Code: gateway.CodeOK, Status: "SUCCESS", TransactionID: "FT99"}
	e.qr.statuses[waitingOrder.String()] = &gateway.RemoteStatus{Code: "01", Status: "SUCCESS"}
	e.qr.statusErr[brokenOrder.String()] = errors.New("timeout")
	e.qr.statuses[staleOrder.String()] = &gateway.RemoteStatus{Code: gateway.CodeOK, Status: "SUCCESS"}
	e.checkout.statuses[*cancelled.TransactionID] = &gateway.RemoteStatus{Code: gateway.CodeOK, Status: "CANCELLED"}

	// за пределами окна поллер платёж не видит
	e.store.mu.Lock()
	sp := e.store.st.payments[stale.ID]
	sp.CreatedAt = time.Now().Add(-25 * time.Hour)
	e.store.st.payments[stale.ID] = sp
	e.store.mu.Unlock()

	st, err := e.recon.PollPending(context.Background())
	if err != nil {
		t.Fatalf("PollPending: %v", err)
	}
	want := PollStats{Checked: 4, Paid: 1, Failed: 1, Pending: 1, Errors: 1}
	if st != want {
		t.Fatalf("stats = %+v, want %+v", st, want)
	}

	paid := paymentOf(t, e, paidOrder)
	if paid.Status != models.PaymentStatusPaid || *paid.TransactionID != "FT99" {
		t.Fatalf("paid payment = %+v", paid)
	}
	if got := orderOf(t, e, paidOrder).Status; got != models.OrderStatusProcessing {
		t.Fatalf("paid order = %s, want processing", got)
	}
	for _, id := range []uuid.UUID{waitingOrder, brokenOrder, staleOrder, codOrder} {
		if got := paymentOf(t, e, id).Status; got != models.PaymentStatusPending {
			t.Fatalf("order %s payment = %s, want pending", id, got)
		}
	}
	if got := paymentOf(t, e, cancelledOrder).Status; got != models.PaymentStatusFailed {
		t.Fatalf("cancelled payment = %s, want failed", got)
	}

	// второй проход видит только оставшиеся pending
	st, err = e.recon.PollPending(context.Background())
	if err != nil {
		t.Fatalf("second PollPending: %v", err)
	}
	if st.Checked != 2 || st.Paid != 0 {
		t.Fatalf("second stats = %+v", st)
	}
}

func TestPollPendingWithoutGateway(t *testing.T) {
	e := newEnv(t)
	pendingPayment(t, e, models.PaymentMethodVietQR)

	r := NewReconciler(ReconcilerDeps{Store: e.store, Synchronizer: e.sync, Log: e.recon.log})
	st, err := r.PollPending(context.Background())
	if err != nil {
		t.Fatalf("PollPending: %v", err)
	}
	if st.Checked != 1 || st.Errors != 1 {
		t.Fatalf("stats = %+v, want one error", st)
	}
}

func TestPollPendingWalksAllPages(t *testing.T) {
	e := newEnv(t)
	e.recon.pageSize = 2

	var orders []uuid.UUID
	for i := 0; i < 5; i++ {
		id, _ := pendingPayment(t, e, models.PaymentMethodVietQR)
		orders = append(orders, id)
	}
	// успех только у самого нового, старые висят в PENDING
	newest := orders[len(orders)-1]
	e.qr.statuses[newest.String()] = &gateway.RemoteStatus{Code: gateway.CodeOK, Status: "SUCCESS", TransactionID: "FT5"}

	st, err := e.recon.PollPending(context.Background())
	if err != nil {
		t.Fatalf("PollPending: %v", err)
	}
	want := PollStats{Checked: 5, Paid: 1, Pending: 4}
	if st != want {
		t.Fatalf("stats = %+v, want %+v", st, want)
	}
	if got := paymentOf(t, e, newest).Status; got != models.PaymentStatusPaid {
		t.Fatalf("newest payment = %s, want paid", got)
	}
}
