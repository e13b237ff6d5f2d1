package service

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"order-service/internal/models"
	"order-service/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memState: содержимое таблиц; WithTx откатывает его к снимку при ошибке.
type memState struct {
	products    map[uuid.UUID]models.Product
	inventories map[uuid.UUID]models.Inventory
	vouchers    map[uuid.UUID]models.Voucher
	orders      map[uuid.UUID]models.Order
	items       map[uuid.UUID]models.OrderItem
	payments    map[uuid.UUID]models.Payment
	shipments   map[uuid.UUID]models.ShippingInfo
	seq         map[uuid.UUID]int // порядок вставки позиций
	nextSeq     int
}

func newMemState() *memState {
	return &memState{
		products:    map[uuid.UUID]models.Product{},
		inventories: map[uuid.UUID]models.Inventory{},
		vouchers:    map[uuid.UUID]models.Voucher{},
		orders:      map[uuid.UUID]models.Order{},
		items:       map[uuid.UUID]models.OrderItem{},
		payments:    map[uuid.UUID]models.Payment{},
		shipments:   map[uuid.UUID]models.ShippingInfo{},
		seq:         map[uuid.UUID]int{},
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memState) clone() *memState {
	return &memState{
		products:    copyMap(s.products),
		inventories: copyMap(s.inventories),
		vouchers:    copyMap(s.vouchers),
		orders:      copyMap(s.orders),
		items:       copyMap(s.items),
		payments:    copyMap(s.payments),
		shipments:   copyMap(s.shipments),
		seq:         copyMap(s.seq),
		nextSeq:     s.nextSeq,
	}
}

type memStore struct {
	mu  sync.Mutex
	st  *memState
	now func() time.Time

	// хуки для сценариев гонок
	beforeReserve    func(productID uuid.UUID)
	failMarkPaid     error
	afterPaymentRead func(p models.Payment)
	afterItemUpdate  func(itemID uuid.UUID)
}

var _ repository.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{st: newMemState(), now: time.Now}
}

func (m *memStore) Products() repository.ProductRepo { return memProducts{m} }
func (m *memStore) Inventories() repository.InventoryRepo { return memInventories{m} }
func (m *memStore) Vouchers() repository.VoucherRepo { return memVouchers{m} }
func (m *memStore) Orders() repository.OrderRepo { return memOrders{m} }
func (m *memStore) OrderItems() repository.OrderItemRepo { return memItems{m} }
func (m *memStore) Payments() repository.PaymentRepo { return memPayments{m} }
func (m *memStore) Shipments() repository.ShipmentRepo { return memShipments{m} }

func (m *memStore) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	m.mu.Lock()
	snap := m.st.clone()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.st = snap
		m.mu.Unlock()
		return err
	}
	return nil
}

// ---- seed helpers ----

func (m *memStore) addProduct(seller uuid.UUID, title string, price int64, qty int32) models.Product {
	p := models.Product{ID: uuid.New(), SellerID: seller, Title: title, Price: price}
	m.st.products[p.ID] = p
	if qty >= 0 {
		m.st.inventories[p.ID] = models.Inventory{ProductID: p.ID, Quantity: qty, LastUpdated: m.now()}
	}
	return p
}

func (m *memStore) addVoucher(v models.Voucher) models.Voucher {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.RefreshActive(m.now())
	m.st.vouchers[v.ID] = v
	return v
}

func (m *memStore) inventory(id uuid.UUID) models.Inventory { return m.st.inventories[id] }
func (m *memStore) voucher(id uuid.UUID) models.Voucher { return m.st.vouchers[id] }
func (m *memStore) orderCount() int { return len(m.st.orders) }

// ---- products ----

type memProducts struct{ m *memStore }

func (r memProducts) Create(ctx context.Context, p *models.Product) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.m.st.products[p.ID] = *p
	return nil
}

func (r memProducts) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.st.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r memProducts) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.Product
	for _, p := range r.m.st.products {
		if p.SellerID == sellerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// ---- inventories ----

type memInventories struct{ m *memStore }

func (r memInventories) Get(ctx context.Context, productID uuid.UUID) (*models.Inventory, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	inv, ok := r.m.st.inventories[productID]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r memInventories) Ensure(ctx context.Context, productID uuid.UUID) (*models.Inventory, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	inv, ok := r.m.st.inventories[productID]
	if !ok {
		inv = models.Inventory{ProductID: productID, LastUpdated: r.m.now()}
		r.m.st.inventories[productID] = inv
	}
	return &inv, nil
}

func (r memInventories) TryReserve(ctx context.Context, productID uuid.UUID, qty int32) (bool, error) {
	if r.m.beforeReserve != nil {
		r.m.beforeReserve(productID)
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	inv, ok := r.m.st.inventories[productID]
	if !ok || inv.Quantity < qty {
		return false, nil
	}
	inv.Quantity -= qty
	inv.Reserved += qty
	inv.LastUpdated = r.m.now()
	r.m.st.inventories[productID] = inv
	return true, nil
}

func (r memInventories) SetQuantity(ctx context.Context, productID uuid.UUID, qty int32) (*models.Inventory, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	inv := r.m.st.inventories[productID]
	inv.ProductID = productID
	inv.Quantity = qty
	inv.LastUpdated = r.m.now()
	r.m.st.inventories[productID] = inv
	return &inv, nil
}

func (r memInventories) ListByProducts(ctx context.Context, ids []uuid.UUID) ([]models.Inventory, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.Inventory
	for _, id := range ids {
		if inv, ok := r.m.st.inventories[id]; ok {
			out = append(out, inv)
		}
	}
	return out, nil
}

// ---- vouchers ----

type memVouchers struct{ m *memStore }

func (r memVouchers) Create(ctx context.Context, v *models.Voucher) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, other := range r.m.st.vouchers {
		if other.Code == v.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.RefreshActive(r.m.now())
	r.m.st.vouchers[v.ID] = *v
	return nil
}

func (r memVouchers) Save(ctx context.Context, v *models.Voucher) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	v.RefreshActive(r.m.now())
	r.m.st.vouchers[v.ID] = *v
	return nil
}

func (r memVouchers) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.st.vouchers[id]; !ok {
		return false, nil
	}
	delete(r.m.st.vouchers, id)
	return true, nil
}

func (r memVouchers) GetByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	v, ok := r.m.st.vouchers[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r memVouchers) GetByCode(ctx context.Context, code string) (*models.Voucher, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, v := range r.m.st.vouchers {
		if v.Code == code {
			return &v, nil
		}
	}
	return nil, nil
}

func (r memVouchers) List(ctx context.Context, limit, offset int) ([]models.Voucher, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	all := make([]models.Voucher, 0, len(r.m.st.vouchers))
	for _, v := range r.m.st.vouchers {
		all = append(all, v)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	return page(all, limit, offset), int64(len(all)), nil
}

func (r memVouchers) Redeem(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	v, ok := r.m.st.vouchers[id]
	if !ok || v.UsedCount >= v.UsageLimit || !v.ExpirationDate.After(now) {
		return false, nil
	}
	v.UsedCount++
	v.RefreshActive(now)
	r.m.st.vouchers[id] = v
	return true, nil
}

// ---- orders ----

type memOrders struct{ m *memStore }

func (r memOrders) Create(ctx context.Context, o *models.Order) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	cp := *o
	cp.Items = nil
	r.m.st.orders[o.ID] = cp
	return nil
}

func (r memOrders) itemsOf(id uuid.UUID) []models.OrderItem {
	var out []models.OrderItem
	for _, it := range r.m.st.items {
		if it.OrderID == id {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.m.st.seq[out[i].ID] < r.m.st.seq[out[j].ID] })
	return out
}

func (r memOrders) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o, ok := r.m.st.orders[id]
	if !ok {
		return nil, nil
	}
	o.Items = r.itemsOf(id)
	return &o, nil
}

func (r memOrders) List(ctx context.Context, f repository.OrderListFilter) ([]*models.Order, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var all []*models.Order
	for _, o := range r.m.st.orders {
		if f.BuyerID != nil && o.BuyerID != *f.BuyerID {
			continue
		}
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		cp := o
		cp.Items = r.itemsOf(o.ID)
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].OrderDate.After(all[j].OrderDate) })
	return page(all, f.Limit, f.Offset), int64(len(all)), nil
}

func (r memOrders) UpdateStatusIf(ctx context.Context, id uuid.UUID, to models.OrderStatus, from ...models.OrderStatus) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o, ok := r.m.st.orders[id]
	if !ok {
		return false, nil
	}
	if len(from) == 0 {
		if o.Status == to {
			return false, nil
		}
	} else if !containsStatus(from, o.Status) {
		return false, nil
	}
	o.Status = to
	r.m.st.orders[id] = o
	return true, nil
}

func (r memOrders) ListShippedCandidates(ctx context.Context, limit int) ([]uuid.UUID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []uuid.UUID
	for id, o := range r.m.st.orders {
		if o.Status == models.OrderStatusShipped {
			continue
		}
		items := r.itemsOf(id)
		if len(items) == 0 {
			continue
		}
		all := true
		for _, it := range items {
			if it.Status != models.ItemStatusShipped {
				all = false
				break
			}
		}
		if all {
			out = append(out, id)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ---- order items ----

type memItems struct{ m *memStore }

func (r memItems) BulkCreate(ctx context.Context, items []models.OrderItem) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := range items {
		for _, other := range r.m.st.items {
			if other.OrderID == items[i].OrderID && other.ProductID == items[i].ProductID {
				return gorm.ErrDuplicatedKey
			}
		}
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		r.m.st.items[items[i].ID] = items[i]
		r.m.st.nextSeq++
		r.m.st.seq[items[i].ID] = r.m.st.nextSeq
	}
	return nil
}

func (r memItems) GetByID(ctx context.Context, id uuid.UUID) (*models.OrderItem, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	it, ok := r.m.st.items[id]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (r memItems) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return memOrders(r).itemsOf(orderID), nil
}

func (r memItems) ListBySeller(ctx context.Context, sellerID uuid.UUID, status *models.ItemStatus, limit, offset int) ([]models.OrderItem, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var all []models.OrderItem
	for _, it := range r.m.st.items {
		if it.SellerID != sellerID || (status != nil && it.Status != *status) {
			continue
		}
		all = append(all, it)
	}
	sort.Slice(all, func(i, j int) bool { return r.m.st.seq[all[i].ID] < r.m.st.seq[all[j].ID] })
	return page(all, limit, offset), int64(len(all)), nil
}

func (r memItems) UpdateStatusIf(ctx context.Context, id uuid.UUID, to models.ItemStatus, from ...models.ItemStatus) (bool, error) {
	moved := r.updateStatusIf(id, to, from)
	if moved && r.m.afterItemUpdate != nil {
		r.m.afterItemUpdate(id)
	}
	return moved, nil
}

func (r memItems) updateStatusIf(id uuid.UUID, to models.ItemStatus, from []models.ItemStatus) bool {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	it, ok := r.m.st.items[id]
	if !ok {
		return false
	}
	if len(from) == 0 {
		if it.Status == to {
			return false
		}
	} else if !containsItemStatus(from, it.Status) {
		return false
	}
	it.Status = to
	r.m.st.items[id] = it
	return true
}

func (r memItems) TransitionByOrder(ctx context.Context, orderID uuid.UUID, sellerID *uuid.UUID, from, to models.ItemStatus) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for id, it := range r.m.st.items {
		if it.OrderID != orderID || it.Status != from {
			continue
		}
		if sellerID != nil && it.SellerID != *sellerID {
			continue
		}
		it.Status = to
		r.m.st.items[id] = it
		n++
	}
	return n, nil
}

// ---- payments ----

type memPayments struct{ m *memStore }

func (r memPayments) Create(ctx context.Context, p *models.Payment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, other := range r.m.st.payments {
		if other.OrderID == p.OrderID {
			return gorm.ErrDuplicatedKey
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.m.now()
	}
	r.m.st.payments[p.ID] = *p
	return nil
}

func (r memPayments) DeleteUnpaid(ctx context.Context, id uuid.UUID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.st.payments[id]
	if !ok || p.Status == models.PaymentStatusPaid {
		return false, nil
	}
	delete(r.m.st.payments, id)
	return true, nil
}

func (r memPayments) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.st.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r memPayments) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	p := r.byOrder(orderID)
	if p != nil && r.m.afterPaymentRead != nil {
		r.m.afterPaymentRead(*p)
	}
	return p, nil
}

func (r memPayments) byOrder(orderID uuid.UUID) *models.Payment {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.st.payments {
		if p.OrderID == orderID {
			return &p
		}
	}
	return nil
}

func (r memPayments) GetByTransactionID(ctx context.Context, txID string) (*models.Payment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.st.payments {
		if p.TransactionID != nil && *p.TransactionID == txID {
			return &p, nil
		}
	}
	return nil, nil
}

func (r memPayments) SetTransactionID(ctx context.Context, id uuid.UUID, txID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.st.payments[id]
	if !ok {
		return errors.New("payment not found")
	}
	p.TransactionID = &txID
	r.m.st.payments[id] = p
	return nil
}

func (r memPayments) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, txID *string) (bool, error) {
	if r.m.failMarkPaid != nil {
		return false, r.m.failMarkPaid
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.st.payments[id]
	if !ok || p.Status != models.PaymentStatusPending {
		return false, nil
	}
	p.Status = models.PaymentStatusPaid
	p.PaidAt = &paidAt
	if txID != nil {
		v := *txID
		p.TransactionID = &v
	}
	r.m.st.payments[id] = p
	return true, nil
}

func (r memPayments) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.st.payments[id]
	if !ok || p.Status != models.PaymentStatusPending {
		return false, nil
	}
	p.Status = models.PaymentStatusFailed
	r.m.st.payments[id] = p
	return true, nil
}

func (r memPayments) ListPending(ctx context.Context, since time.Time, methods []models.PaymentMethod, after *repository.PendingCursor, limit int) ([]models.Payment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.Payment
	for _, p := range r.m.st.payments {
		if p.Status != models.PaymentStatusPending || p.CreatedAt.Before(since) {
			continue
		}
		match := false
		for _, m := range methods {
			if p.Method == m {
				match = true
			}
		}
		if match {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return pendingLess(out[i], out[j]) })
	if after != nil {
		cut := sort.Search(len(out), func(i int) bool {
			return pendingLess(models.Payment{CreatedAt: after.CreatedAt, ID: after.ID}, out[i])
		})
		out = out[cut:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// порядок (created_at, id), как у Postgres
func pendingLess(a, b models.Payment) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// ---- shipments ----

type memShipments struct{ m *memStore }

func (r memShipments) Create(ctx context.Context, s *models.ShippingInfo) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, other := range r.m.st.shipments {
		if other.OrderItemID == s.OrderItemID {
			return nil
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.m.st.shipments[s.ID] = *s
	return nil
}

func (r memShipments) GetByID(ctx context.Context, id uuid.UUID) (*models.ShippingInfo, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.st.shipments[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r memShipments) GetByOrderItem(ctx context.Context, itemID uuid.UUID) (*models.ShippingInfo, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.st.shipments {
		if s.OrderItemID == itemID {
			return &s, nil
		}
	}
	return nil, nil
}

func (r memShipments) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ItemStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.st.shipments[id]
	if !ok {
		return nil
	}
	s.Status = status
	r.m.st.shipments[id] = s
	return nil
}

// ---- helpers ----

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

func containsStatus(list []models.OrderStatus, s models.OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsItemStatus(list []models.ItemStatus, s models.ItemStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
