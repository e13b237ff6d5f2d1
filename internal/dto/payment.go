package dto

import (
	"time"

	"order-service/internal/models"
)

type CreatePaymentRequest struct {
	OrderID         string `json:"orderId" binding:"required,uuid"`
	Method          string `json:"method" binding:"required,oneof=COD VietQR PayOS"`
	ReplaceExisting bool   `json:"replaceExisting"`
}

type PaymentResponse struct {
	ID            string     `json:"id"`
	OrderID       string     `json:"orderId"`
	Amount        int64      `json:"amount"`
	Method        string     `json:"method"`
	Status        string     `json:"status"`
	TransactionID string     `json:"transactionId,omitempty"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type CreatePaymentResponse struct {
	Payment    PaymentResponse `json:"payment"`
	QRData     string          `json:"qrData,omitempty"`
	PaymentURL string          `json:"paymentUrl,omitempty"`
}

type PaymentStatusResponse struct {
	Payment     PaymentResponse `json:"payment"`
	OrderStatus string          `json:"orderStatus"`
	TotalPrice  int64           `json:"totalPrice"`
}

type UpdatePaymentStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=paid failed"`
}

// VietQRCallbackRequest: тело вебхука VietQR.
type VietQRCallbackRequest struct {
	OrderID       string `json:"orderId" binding:"required"`
	Status        string `json:"status" binding:"required"`
	TransactionID string `json:"transactionId"`
}

// PayOSCallbackQuery: параметры редиректа PayOS (returnUrl / cancelUrl).
type PayOSCallbackQuery struct {
	OrderCode string `form:"orderCode" binding:"required"`
	Status    string `form:"status"`
	Cancel    bool   `form:"cancel"`
}

type CallbackResponse struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

func FromPayment(p *models.Payment) PaymentResponse {
	r := PaymentResponse{
		ID:        p.ID.String(),
		OrderID:   p.OrderID.String(),
		Amount:    p.Amount,
		Method:    string(p.Method),
		Status:    string(p.Status),
		PaidAt:    p.PaidAt,
		CreatedAt: p.CreatedAt,
	}
	if p.TransactionID != nil {
		r.TransactionID = *p.TransactionID
	}
	return r
}
