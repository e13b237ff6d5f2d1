package service

import (
	"context"
	"fmt"
	"time"

	"order-service/internal/models"
	"order-service/internal/producer"
	"order-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	orderConfirmationTemplate = "order_confirmation"
	orderConfirmationSubject  = "Payment Successful and Order Confirmation"
)

type orderService struct {
	store    repository.Store
	ledger   *InventoryLedger
	vouchers *VoucherService
	sync     *Synchronizer
	emails   EmailProducer
	events   publisher
	log      *zap.Logger
	now      func() time.Time
}

func NewOrderService(
	store repository.Store,
	ledger *InventoryLedger,
	vouchers *VoucherService,
	sync *Synchronizer,
	emails EmailProducer,
	events EventPublisher,
	log *zap.Logger,
) OrderService {
	return &orderService{
		store:    store,
		ledger:   ledger,
		vouchers: vouchers,
		sync:     sync,
		emails:   emails,
		events:   publisher{bus: events, log: log, now: time.Now},
		log:      log,
		now:      time.Now,
	}
}

// mergeLines сворачивает повторы одного товара в одну строку, порядок сохраняется.
func mergeLines(items []PlaceOrderItem) ([]PlaceOrderItem, error) {
	idx := make(map[uuid.UUID]int, len(items))
	out := make([]PlaceOrderItem, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrQuantityInvalid
		}
		if i, ok := idx[it.ProductID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		idx[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out, nil
}

func (s *orderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	buyerID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if in.AddressID == uuid.Nil {
		return nil, ErrAddressRequired
	}
	if len(in.Items) == 0 {
		return nil, ErrEmptyItems
	}
	lines, err := mergeLines(in.Items)
	if err != nil {
		return nil, err
	}

	// 1. товары, остатки, снимок цен: без записи, кроме ленивого создания строк остатка
	var (
		subtotal int64
		itemsDB  = make([]models.OrderItem, 0, len(lines))
	)
	for _, ln := range lines {
		p, err := s.store.Products().GetByID(ctx, ln.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, ln.ProductID)
		}

		inv, err := s.ledger.Ensure(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if inv.Quantity < ln.Quantity {
			return nil, fmt.Errorf("%w: product %s", ErrInsufficientStock, p.ID)
		}

		subtotal += p.Price * int64(ln.Quantity)
		itemsDB = append(itemsDB, models.OrderItem{
			ProductID:    p.ID,
			SellerID:     p.SellerID,
			ProductTitle: p.Title,
			Quantity:     ln.Quantity,
			UnitPrice:    p.Price,
			Status:       models.ItemStatusPending,
		})
	}

	// 2. ваучер
	var quote *VoucherQuote
	if in.VoucherCode != "" {
		quote, err = s.vouchers.Evaluate(ctx, in.VoucherCode, subtotal)
		if err != nil {
			return nil, err
		}
	}

	// 3. итог
	var discount int64
	if quote != nil {
		discount = quote.Discount
	}
	total := subtotal - discount
	if total < 0 {
		total = 0
	}

	// 4-5. заказ, позиции, резерв и погашение ваучера: одна транзакция
	now := s.now()
	order := &models.Order{
		BuyerID:    buyerID,
		AddressID:  in.AddressID,
		Subtotal:   subtotal,
		Discount:   discount,
		TotalPrice: total,
		Status:     models.OrderStatusPending,
		OrderDate:  now,
	}
	if quote != nil {
		code := quote.Voucher.Code
		order.VoucherCode = &code
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if quote != nil {
			if err := s.vouchers.redeem(ctx, tx.Vouchers(), quote.Voucher); err != nil {
				return err
			}
		}

		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}

		for i := range itemsDB {
			itemsDB[i].OrderID = order.ID
		}
		if err := tx.OrderItems().BulkCreate(ctx, itemsDB); err != nil {
			return err
		}

		for _, it := range itemsDB {
			if err := reserve(ctx, tx.Inventories(), it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Warn("order placement rolled back", zap.String("buyer_id", buyerID.String()), zap.Error(err))
		return nil, err
	}

	// 6. для свежего заказа обычно no-op
	if _, err := s.sync.Sync(ctx, order.ID); err != nil {
		s.log.Error("order sync after placement failed", zap.String("order_id", order.ID.String()), zap.Error(err))
	}

	saved, err := s.store.Orders().GetByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, ErrOrderNotFound
	}

	s.log.Info("order placed",
		zap.String("order_id", saved.ID.String()),
		zap.String("buyer_id", buyerID.String()),
		zap.Int64("subtotal", subtotal),
		zap.Int64("discount", discount),
		zap.Int64("total", total),
	)

	// 7. уведомления: best effort
	s.notifyPlaced(ctx, saved)

	evItems := make([]OrderItemEvent, 0, len(saved.Items))
	for _, it := range saved.Items {
		evItems = append(evItems, OrderItemEvent{
			ProductID: it.ProductID,
			SellerID:  it.SellerID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	s.events.publish(ctx, saved.ID, EventOrderPlaced, OrderPlacedEvent{
		OrderID:    saved.ID,
		BuyerID:    saved.BuyerID,
		Items:      evItems,
		Subtotal:   saved.Subtotal,
		Discount:   saved.Discount,
		TotalPrice: saved.TotalPrice,
	})

	return saved, nil
}

func (s *orderService) notifyPlaced(ctx context.Context, o *models.Order) {
	if s.emails == nil {
		return
	}
	to, ok := EmailFromContext(ctx)
	if !ok {
		s.log.Info("buyer email unknown, confirmation skipped", zap.String("order_id", o.ID.String()))
		return
	}

	lines := make([]map[string]any, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, map[string]any{
			"title":      it.ProductTitle,
			"quantity":   it.Quantity,
			"unit_price": it.UnitPrice,
		})
	}
	err := s.emails.SendEmail(ctx, o.ID.String(), producer.EmailMessage{
		To:       to,
		Subject:  orderConfirmationSubject,
		Template: orderConfirmationTemplate,
		Data: map[string]any{
			"order_id":    o.ID.String(),
			"subtotal":    o.Subtotal,
			"discount":    o.Discount,
			"total_price": o.TotalPrice,
			"items":       lines,
		},
	})
	if err != nil {
		s.log.Error("order confirmation email failed", zap.String("order_id", o.ID.String()), zap.Error(err))
	}
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	uid, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	o, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	if role != RoleAdmin && o.BuyerID != uid {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *orderService) ListOrders(ctx context.Context, f ListFilter) ([]*models.Order, int64, error) {
	uid, role, err := requireAuth(ctx)
	if err != nil {
		return nil, 0, err
	}

	rf := repository.OrderListFilter{Status: f.Status, Limit: f.Limit, Offset: f.Offset}
	if role != RoleAdmin {
		rf.BuyerID = &uid
	}
	return s.store.Orders().List(ctx, rf)
}

func (s *orderService) ListSellerItems(ctx context.Context, f SellerItemFilter) ([]models.OrderItem, int64, error) {
	uid, _, err := requireRole(ctx, RoleVendor)
	if err != nil {
		return nil, 0, err
	}
	return s.store.OrderItems().ListBySeller(ctx, uid, f.Status, f.Limit, f.Offset)
}

// ConfirmSellerItems: pending-позиции продавца в заказе -> shipping, каждой выдаётся трек-номер.
func (s *orderService) ConfirmSellerItems(ctx context.Context, orderID uuid.UUID) ([]models.ShippingInfo, error) {
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

	var own []models.OrderItem
	for _, it := range o.Items {
		if it.SellerID == uid {
			own = append(own, it)
		}
	}
	if len(own) == 0 {
		return nil, ErrForbidden
	}

	var shipments []models.ShippingInfo
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		for _, it := range own {
			if it.Status != models.ItemStatusPending {
				continue
			}
			moved, err := tx.OrderItems().UpdateStatusIf(ctx, it.ID, models.ItemStatusShipping, models.ItemStatusPending)
			if err != nil {
				return err
			}
			if !moved {
				continue
			}
			si, err := s.ensureShipment(ctx, tx, it.ID)
			if err != nil {
				return err
			}
			shipments = append(shipments, *si)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.sync.Sync(ctx, orderID); err != nil {
		s.log.Error("order sync failed", zap.String("order_id", orderID.String()), zap.Error(err))
	}
	s.log.Info("seller confirmed order items", zap.String("order_id", orderID.String()), zap.Int("items", len(shipments)))
	return shipments, nil
}

func (s *orderService) ensureShipment(ctx context.Context, tx repository.Store, itemID uuid.UUID) (*models.ShippingInfo, error) {
	if si, err := tx.Shipments().GetByOrderItem(ctx, itemID); err != nil || si != nil {
		return si, err
	}
	trk, err := TrackingNumber(s.now())
	if err != nil {
		return nil, err
	}
	si := &models.ShippingInfo{OrderItemID: itemID, TrackingNumber: trk, Status: models.ItemStatusShipping}
	if err := tx.Shipments().Create(ctx, si); err != nil {
		return nil, err
	}
	return tx.Shipments().GetByOrderItem(ctx, itemID)
}

var (
	sellerItemStatuses     = map[models.ItemStatus]bool{models.ItemStatusShipping: true, models.ItemStatusRejected: true}
	sellerShippingStatuses = map[models.ItemStatus]bool{models.ItemStatusShipping: true, models.ItemStatusShipped: true, models.ItemStatusFailedToShip: true}
	notShipped             = []models.ItemStatus{models.ItemStatusPending, models.ItemStatusShipping, models.ItemStatusFailedToShip, models.ItemStatusRejected}
)

// UpdateItemStatus: продавец: shipping|rejected для своих позиций, пока позиция не shipped;
// администратор: любой допустимый статус.
func (s *orderService) UpdateItemStatus(ctx context.Context, itemID uuid.UUID, status models.ItemStatus) (*models.OrderItem, error) {
	uid, role, err := requireRole(ctx, RoleVendor, RoleAdmin)
	if err != nil {
		return nil, err
	}
	if !status.Valid() || (role == RoleVendor && !sellerItemStatuses[status]) {
		return nil, ErrInvalidStatus
	}

	it, err := s.store.OrderItems().GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, ErrOrderItemNotFound
	}
	if role == RoleVendor {
		if it.SellerID != uid {
			return nil, ErrForbidden
		}
		if it.Status == models.ItemStatusShipped {
			return nil, ErrItemAlreadyShipped
		}
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		var from []models.ItemStatus
		if role == RoleVendor {
			from = notShipped
		}
		if _, err := tx.OrderItems().UpdateStatusIf(ctx, itemID, status, from...); err != nil {
			return err
		}
		if status == models.ItemStatusShipping {
			_, err := s.ensureShipment(ctx, tx, itemID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.sync.Sync(ctx, it.OrderID); err != nil {
		s.log.Error("order sync failed", zap.String("order_id", it.OrderID.String()), zap.Error(err))
	}

	updated, err := s.store.OrderItems().GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if updated.Status != status {
		if updated.Status == models.ItemStatusShipped {
			return nil, ErrItemAlreadyShipped
		}
		// параллельная запись перебила наш статус
		return nil, ErrItemStatusConflict
	}
	s.log.Info("order item status updated",
		zap.String("item_id", itemID.String()),
		zap.String("status", string(status)),
		zap.String("role", string(role)),
	)
	return updated, nil
}

func (s *orderService) UpdateShippingStatus(ctx context.Context, shippingID uuid.UUID, status models.ItemStatus) (*models.ShippingInfo, error) {
	uid, _, err := requireRole(ctx, RoleVendor)
	if err != nil {
		return nil, err
	}
	if !sellerShippingStatuses[status] {
		return nil, ErrInvalidStatus
	}

	si, err := s.store.Shipments().GetByID(ctx, shippingID)
	if err != nil {
		return nil, err
	}
	if si == nil {
		return nil, ErrShipmentNotFound
	}
	it, err := s.store.OrderItems().GetByID(ctx, si.OrderItemID)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, ErrOrderItemNotFound
	}
	if it.SellerID != uid {
		return nil, ErrForbidden
	}
	if it.Status == models.ItemStatusShipped && status != models.ItemStatusShipped {
		return nil, ErrItemAlreadyShipped
	}

	var moved bool
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		ok, err := tx.OrderItems().UpdateStatusIf(ctx, it.ID, status, notShipped...)
		if err != nil {
			return err
		}
		moved = ok || it.Status == status
		if !moved {
			return nil
		}
		return tx.Shipments().UpdateStatus(ctx, si.ID, status)
	})
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, ErrItemAlreadyShipped
	}

	if _, err := s.sync.Sync(ctx, it.OrderID); err != nil {
		s.log.Error("order sync failed", zap.String("order_id", it.OrderID.String()), zap.Error(err))
	}
	return s.store.Shipments().GetByID(ctx, si.ID)
}
