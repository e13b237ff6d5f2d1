package service

import (
	"context"

	"order-service/internal/gateway"
	"order-service/internal/producer"
)

// QRGateway: банковский перевод по QR (VietQR).
type QRGateway interface {
	GenerateQR(ctx context.Context, in gateway.QRRequest) (*gateway.QRResult, error)
	TransactionStatus(ctx context.Context, orderID string) (*gateway.RemoteStatus, error)
}

// CheckoutGateway: hosted checkout с редиректом (PayOS).
type CheckoutGateway interface {
	CreateCheckout(ctx context.Context, in gateway.CheckoutRequest) (*gateway.CheckoutResult, error)
	CheckoutStatus(ctx context.Context, transactionID string) (*gateway.RemoteStatus, error)
}

type EmailProducer interface {
	SendEmail(ctx context.Context, key string, msg producer.EmailMessage) error
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, ev producer.Event) error
}
