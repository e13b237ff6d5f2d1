package service

import (
	"context"
	"time"

	"order-service/internal/models"
	"order-service/internal/producer"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventOrderPlaced     = "order.placed"
	EventOrderShipped    = "order.shipped"
	EventPaymentSettled  = "payment.settled"
	EventPaymentRejected = "payment.failed"
)

type OrderItemEvent struct {
	ProductID uuid.UUID `json:"product_id"`
	SellerID  uuid.UUID `json:"seller_id"`
	Quantity  int32     `json:"quantity"`
	UnitPrice int64     `json:"unit_price"`
}

type OrderPlacedEvent struct {
	OrderID    uuid.UUID        `json:"order_id"`
	BuyerID    uuid.UUID        `json:"buyer_id"`
	Items      []OrderItemEvent `json:"items"`
	Subtotal   int64            `json:"subtotal"`
	Discount   int64            `json:"discount"`
	TotalPrice int64            `json:"total_price"`
}

type OrderStatusEvent struct {
	OrderID uuid.UUID          `json:"order_id"`
	Status  models.OrderStatus `json:"status"`
}

type PaymentEvent struct {
	PaymentID     uuid.UUID            `json:"payment_id"`
	OrderID       uuid.UUID            `json:"order_id"`
	Method        models.PaymentMethod `json:"method"`
	Amount        int64                `json:"amount"`
	TransactionID string               `json:"transaction_id,omitempty"`
}

// publisher: обёртка над опциональной шиной (nil отключает публикацию).
type publisher struct {
	bus EventPublisher
	log *zap.Logger
	now func() time.Time
}

func (p publisher) publish(ctx context.Context, key uuid.UUID, typ string, payload any) {
	if p.bus == nil {
		return
	}
	err := p.bus.Publish(ctx, key.String(), producer.Event{Type: typ, OccurredAt: p.now(), Payload: payload})
	if err != nil {
		p.log.Warn("event publish failed", zap.String("type", typ), zap.String("key", key.String()), zap.Error(err))
	}
}
