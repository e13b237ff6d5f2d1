package dto

import (
	"time"

	"order-service/internal/models"
)

type VoucherRequest struct {
	Code           string    `json:"code" binding:"required,max=64"`
	Discount       int64     `json:"discount" binding:"required,gt=0"`
	DiscountType   string    `json:"discountType" binding:"required,oneof=percentage fixed"`
	MaxDiscount    int64     `json:"maxDiscount" binding:"gte=0"`
	MinOrderValue  int64     `json:"minOrderValue" binding:"gte=0"`
	ExpirationDate time.Time `json:"expirationDate" binding:"required"`
	UsageLimit     int32     `json:"usageLimit" binding:"required,gt=0"`
}

type VoucherResponse struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	Discount       int64     `json:"discount"`
	DiscountType   string    `json:"discountType"`
	MaxDiscount    int64     `json:"maxDiscount"`
	MinOrderValue  int64     `json:"minOrderValue"`
	ExpirationDate time.Time `json:"expirationDate"`
	UsageLimit     int32     `json:"usageLimit"`
	UsedCount      int32     `json:"usedCount"`
	IsActive       bool      `json:"isActive"`
}

type VoucherListResponse struct {
	Vouchers []VoucherResponse `json:"vouchers"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

type PageQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Norm: страница по умолчанию 1, лимит 20.
func (q PageQuery) Norm() (page, limit, offset int) {
	page, limit = q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return page, limit, (page - 1) * limit
}

func FromVoucher(v *models.Voucher) VoucherResponse {
	return VoucherResponse{
		ID:             v.ID.String(),
		Code:           v.Code,
		Discount:       v.Discount,
		DiscountType:   string(v.DiscountType),
		MaxDiscount:    v.MaxDiscount,
		MinOrderValue:  v.MinOrderValue,
		ExpirationDate: v.ExpirationDate,
		UsageLimit:     v.UsageLimit,
		UsedCount:      v.UsedCount,
		IsActive:       v.IsActive,
	}
}
