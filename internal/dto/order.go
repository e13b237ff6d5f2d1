package dto

import (
	"time"

	"order-service/internal/models"
)

type PlaceOrderItemRequest struct {
	ProductID string `json:"productId" binding:"required,uuid"`
	Quantity  int32  `json:"quantity" binding:"required,gt=0"`
}

type PlaceOrderRequest struct {
	AddressID   string                  `json:"addressId" binding:"required,uuid"`
	Items       []PlaceOrderItemRequest `json:"items" binding:"required,min=1,dive"`
	VoucherCode string                  `json:"voucherCode,omitempty" binding:"omitempty,max=64"`
}

type PlaceOrderResponse struct {
	OrderID    string `json:"orderId"`
	TotalPrice int64  `json:"totalPrice"`
	Status     string `json:"status"`
}

type ListOrdersQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=pending processing shipping shipped 'failed to ship' rejected"`
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type OrderItemResponse struct {
	ID           string `json:"id"`
	OrderID      string `json:"orderId"`
	ProductID    string `json:"productId"`
	SellerID     string `json:"sellerId"`
	ProductTitle string `json:"productTitle"`
	Quantity     int32  `json:"quantity"`
	UnitPrice    int64  `json:"unitPrice"`
	Status       string `json:"status"`
}

type OrderResponse struct {
	ID          string              `json:"id"`
	BuyerID     string              `json:"buyerId"`
	AddressID   string              `json:"addressId"`
	Subtotal    int64               `json:"subtotal"`
	Discount    int64               `json:"discount"`
	VoucherCode string              `json:"voucherCode,omitempty"`
	TotalPrice  int64               `json:"totalPrice"`
	Status      string              `json:"status"`
	OrderDate   time.Time           `json:"orderDate"`
	Items       []OrderItemResponse `json:"items"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int64           `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}

type OrderItemListResponse struct {
	Items []OrderItemResponse `json:"items"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

type UpdateItemStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ShippingInfoResponse struct {
	ID             string `json:"id"`
	OrderItemID    string `json:"orderItemId"`
	TrackingNumber string `json:"trackingNumber"`
	Status         string `json:"status"`
}

type ConfirmOrderResponse struct {
	Shipments []ShippingInfoResponse `json:"shipments"`
}

func FromOrderItem(it models.OrderItem) OrderItemResponse {
	return OrderItemResponse{
		ID:           it.ID.String(),
		OrderID:      it.OrderID.String(),
		ProductID:    it.ProductID.String(),
		SellerID:     it.SellerID.String(),
		ProductTitle: it.ProductTitle,
		Quantity:     it.Quantity,
		UnitPrice:    it.UnitPrice,
		Status:       string(it.Status),
	}
}

func FromOrderItems(items []models.OrderItem) []OrderItemResponse {
	out := make([]OrderItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, FromOrderItem(it))
	}
	return out
}

func FromOrder(o *models.Order) OrderResponse {
	r := OrderResponse{
		ID:         o.ID.String(),
		BuyerID:    o.BuyerID.String(),
		AddressID:  o.AddressID.String(),
		Subtotal:   o.Subtotal,
		Discount:   o.Discount,
		TotalPrice: o.TotalPrice,
		Status:     string(o.Status),
		OrderDate:  o.OrderDate,
		Items:      FromOrderItems(o.Items),
	}
	if o.VoucherCode != nil {
		r.VoucherCode = *o.VoucherCode
	}
	return r
}

func FromShippingInfo(s models.ShippingInfo) ShippingInfoResponse {
	return ShippingInfoResponse{
		ID:             s.ID.String(),
		OrderItemID:    s.OrderItemID.String(),
		TrackingNumber: s.TrackingNumber,
		Status:         string(s.Status),
	}
}
