package service

import (
	"context"

	"order-service/internal/models"

	"github.com/google/uuid"
)

type PlaceOrderItem struct {
	ProductID uuid.UUID
	Quantity  int32
}

type PlaceOrderInput struct {
	AddressID   uuid.UUID
	Items       []PlaceOrderItem
	VoucherCode string
}

type ListFilter struct {
	Status *models.OrderStatus
	Limit  int
	Offset int
}

type SellerItemFilter struct {
	Status *models.ItemStatus
	Limit  int
	Offset int
}

type OrderService interface {
	PlaceOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, f ListFilter) ([]*models.Order, int64, error)

	ListSellerItems(ctx context.Context, f SellerItemFilter) ([]models.OrderItem, int64, error)
	ConfirmSellerItems(ctx context.Context, orderID uuid.UUID) ([]models.ShippingInfo, error)
	UpdateItemStatus(ctx context.Context, itemID uuid.UUID, status models.ItemStatus) (*models.OrderItem, error)
	UpdateShippingStatus(ctx context.Context, shippingID uuid.UUID, status models.ItemStatus) (*models.ShippingInfo, error)
}
