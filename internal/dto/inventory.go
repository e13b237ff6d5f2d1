package dto

import "time"

type SetStockRequest struct {
	Quantity *int32 `json:"quantity" binding:"required,gte=0"`
}

type InventoryResponse struct {
	ProductID   string    `json:"productId"`
	Title       string    `json:"title"`
	Price       int64     `json:"price"`
	Quantity    int32     `json:"quantity"`
	Reserved    int32     `json:"reserved"`
	LastUpdated time.Time `json:"lastUpdated"`
}
