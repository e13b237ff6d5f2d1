package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Статусы хранятся как TEXT, набор значений закреплён CHECK-ограничениями в миграции.
type OrderStatus string

const (
	OrderStatusPending      OrderStatus = "pending"
	OrderStatusProcessing   OrderStatus = "processing"
	OrderStatusShipping     OrderStatus = "shipping"
	OrderStatusShipped      OrderStatus = "shipped"
	OrderStatusFailedToShip OrderStatus = "failed to ship"
	OrderStatusRejected     OrderStatus = "rejected"
)

type ItemStatus string

const (
	ItemStatusPending      ItemStatus = "pending"
	ItemStatusShipping     ItemStatus = "shipping"
	ItemStatusShipped      ItemStatus = "shipped"
	ItemStatusFailedToShip ItemStatus = "failed to ship"
	ItemStatusRejected     ItemStatus = "rejected"
)

func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusPending, ItemStatusShipping, ItemStatusShipped, ItemStatusFailedToShip, ItemStatusRejected:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "COD"
	PaymentMethodVietQR PaymentMethod = "VietQR"
	PaymentMethodPayOS  PaymentMethod = "PayOS"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodVietQR || m == PaymentMethodPayOS
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Суммы во всех таблицах: целые VND.

// Product: read-модель каталога; этот сервис её не изменяет.
type Product struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID uuid.UUID `gorm:"type:uuid;not null;index"`
	Title    string    `gorm:"type:text;not null"`
	Price    int64     `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Product) TableName() string { return "products" }

type Inventory struct {
	ProductID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Quantity    int32     `gorm:"not null;default:0"` // CHECK >= 0 в миграции
	Reserved    int32     `gorm:"not null;default:0"`
	LastUpdated time.Time `gorm:"not null;default:now()"`
}

func (Inventory) TableName() string { return "inventories" }

type Voucher struct {
	ID             uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Code           string       `gorm:"type:text;not null;uniqueIndex:ux_vouchers_code"`
	Discount       int64        `gorm:"not null"`
	DiscountType   DiscountType `gorm:"type:text;not null"`
	MaxDiscount    int64        `gorm:"not null;default:0"`
	MinOrderValue  int64        `gorm:"not null;default:0"`
	ExpirationDate time.Time    `gorm:"not null"`
	UsageLimit     int32        `gorm:"not null;default:1"`
	UsedCount      int32        `gorm:"not null;default:0"`
	IsActive       bool         `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Voucher) TableName() string { return "vouchers" }

// RefreshActive пересчитывает производный флаг IsActive.
func (v *Voucher) RefreshActive(now time.Time) {
	v.IsActive = v.UsedCount < v.UsageLimit && now.Before(v.ExpirationDate)
}

// BeforeSave: IsActive никогда не выставляется вручную.
func (v *Voucher) BeforeSave(tx *gorm.DB) error {
	now := time.Now()
	if tx != nil && tx.Config != nil && tx.Config.NowFunc != nil {
		now = tx.Config.NowFunc()
	}
	v.RefreshActive(now)
	return nil
}

type Order struct {
	ID          uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID     uuid.UUID   `gorm:"type:uuid;not null;index"`
	AddressID   uuid.UUID   `gorm:"type:uuid;not null"`
	Subtotal    int64       `gorm:"not null;default:0"`
	Discount    int64       `gorm:"not null;default:0"`
	VoucherCode *string     `gorm:"type:text"`
	TotalPrice  int64       `gorm:"not null;default:0"`
	Status      OrderStatus `gorm:"type:text;not null;default:'pending';index"`
	OrderDate   time.Time   `gorm:"not null;default:now();index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:ux_order_items_order_product"`
	ProductID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_order_items_order_product"`
	SellerID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProductTitle string     `gorm:"type:text;not null"`
	Quantity     int32      `gorm:"not null"`
	UnitPrice    int64      `gorm:"not null"` // снимок цены на момент заказа
	Status       ItemStatus `gorm:"type:text;not null;default:'pending';index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (OrderItem) TableName() string { return "order_items" }

type Payment struct {
	ID            uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:ux_payments_order"`
	UserID        uuid.UUID     `gorm:"type:uuid;not null;index"`
	Amount        int64         `gorm:"not null"`
	Method        PaymentMethod `gorm:"type:text;not null"`
	Status        PaymentStatus `gorm:"type:text;not null;default:'pending';index"`
	TransactionID *string       `gorm:"type:text;index"`
	PaidAt        *time.Time

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Payment) TableName() string { return "payments" }

type ShippingInfo struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderItemID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_shipping_infos_item"`
	TrackingNumber string     `gorm:"type:text;not null"`
	Status         ItemStatus `gorm:"type:text;not null;default:'shipping'"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (ShippingInfo) TableName() string { return "shipping_infos" }
