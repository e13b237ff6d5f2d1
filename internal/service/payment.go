package service

import (
	"context"

	"order-service/internal/models"

	"github.com/google/uuid"
)

type CreatePaymentInput struct {
	OrderID         uuid.UUID
	Method          models.PaymentMethod
	ReplaceExisting bool
}

// PaymentResult: платёж плюс данные конкретного метода.
type PaymentResult struct {
	Payment    *models.Payment
	QRData     string
	PaymentURL string
}

type PaymentSnapshot struct {
	Payment     *models.Payment
	OrderStatus models.OrderStatus
	TotalPrice  int64
}

type PaymentService interface {
	CreatePayment(ctx context.Context, in CreatePaymentInput) (*PaymentResult, error)
	GetPaymentStatus(ctx context.Context, orderID uuid.UUID) (*PaymentSnapshot, error)

	// продавец: оплата заказа, в котором есть его позиции
	GetOrderPayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status models.PaymentStatus) (*models.Payment, error)
}
