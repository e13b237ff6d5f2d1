package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"order-service/internal/gateway"
	"order-service/internal/producer"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func asUser(id uuid.UUID, role Role) context.Context {
	return WithRole(WithUserID(context.Background(), id), role)
}

type fakeQR struct {
	genErr    error
	qrData    string
	statuses  map[string]*gateway.RemoteStatus // по orderID
	statusErr map[string]error

	generated []gateway.QRRequest
}

func (f *fakeQR) GenerateQR(ctx context.Context, in gateway.QRRequest) (*gateway.QRResult, error) {
	f.generated = append(f.generated, in)
	if f.genErr != nil {
		return nil, f.genErr
	}
	return &gateway.QRResult{QRData: f.qrData}, nil
}

func (f *fakeQR) TransactionStatus(ctx context.Context, orderID string) (*gateway.RemoteStatus, error) {
	if err := f.statusErr[orderID]; err != nil {
		return nil, err
	}
	if rs, ok := f.statuses[orderID]; ok {
		return rs, nil
	}
	return &gateway.RemoteStatus{Code: gateway.CodeOK, Status: "PENDING"}, nil
}

type fakeCheckout struct {
	createErr error
	url       string
	statuses  map[string]*gateway.RemoteStatus // по transactionID

	created []gateway.CheckoutRequest
}

func (f *fakeCheckout) CreateCheckout(ctx context.Context, in gateway.CheckoutRequest) (*gateway.CheckoutResult, error) {
	f.created = append(f.created, in)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &gateway.CheckoutResult{CheckoutURL: f.url}, nil
}

func (f *fakeCheckout) CheckoutStatus(ctx context.Context, txID string) (*gateway.RemoteStatus, error) {
	if rs, ok := f.statuses[txID]; ok {
		return rs, nil
	}
	return &gateway.RemoteStatus{Code: gateway.CodeOK, Status: "PENDING"}, nil
}

type fakeBus struct {
	mu     sync.Mutex
	events []producer.Event
}

func (b *fakeBus) Publish(ctx context.Context, key string, ev producer.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func (b *fakeBus) count(typ string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

type fakeMailer struct {
	sent []producer.EmailMessage
}

func (m *fakeMailer) SendEmail(ctx context.Context, key string, msg producer.EmailMessage) error {
	m.sent = append(m.sent, msg)
	return nil
}

// env: полностью собранный сервисный слой поверх memStore.
type env struct {
	store    *memStore
	bus      *fakeBus
	mail     *fakeMailer
	qr       *fakeQR
	checkout *fakeCheckout

	ledger   *InventoryLedger
	vouchers *VoucherService
	sync     *Synchronizer
	recon    *Reconciler
	orders   OrderService
	payments PaymentService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := zap.NewNop()
	e := &env{
		store:    newMemStore(),
		bus:      &fakeBus{},
		mail:     &fakeMailer{},
		qr:       &fakeQR{qrData: "000201010212", statuses: map[string]*gateway.RemoteStatus{}, statusErr: map[string]error{}},
		checkout: &fakeCheckout{url: "https://pay.payos.vn/web/abc", statuses: map[string]*gateway.RemoteStatus{}},
	}
	e.ledger = NewInventoryLedger(e.store, log)
	e.vouchers = NewVoucherService(e.store, log)
	e.sync = NewSynchronizer(e.store, e.bus, log)
	e.recon = NewReconciler(ReconcilerDeps{
		Store:        e.store,
		Synchronizer: e.sync,
		QR:           e.qr,
		Checkout:     e.checkout,
		Events:       e.bus,
		Log:          log,
	})
	e.orders = NewOrderService(e.store, e.ledger, e.vouchers, e.sync, e.mail, e.bus, log)
	e.payments = NewPaymentService(PaymentServiceDeps{
		Store:      e.store,
		QR:         e.qr,
		Checkout:   e.checkout,
		Reconciler: e.recon,
		BaseURL:    "https://shop.example.com",
		Log:        log,
	})
	return e
}

// placeSimple: заказ на один товар без ваучера.
func (e *env) placeSimple(t *testing.T, buyer uuid.UUID, price int64, qty int32) (orderID uuid.UUID, sellerID uuid.UUID) {
	t.Helper()
	sellerID = uuid.New()
	p := e.store.addProduct(sellerID, "Item", price, 100)
	o, err := e.orders.PlaceOrder(asUser(buyer, RoleCustomer), PlaceOrderInput{
		AddressID: uuid.New(),
		Items:     []PlaceOrderItem{{ProductID: p.ID, Quantity: qty}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	return o.ID, sellerID
}

func future() time.Time { return time.Now().Add(24 * time.Hour) }
