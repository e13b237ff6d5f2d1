package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store: агрегат репозиториев. WithTx отдаёт в fn экземпляр,
// все репозитории которого работают в одной транзакции.
type Store interface {
	Products() ProductRepo
	Inventories() InventoryRepo
	Vouchers() VoucherRepo
	Orders() OrderRepo
	OrderItems() OrderItemRepo
	Payments() PaymentRepo
	Shipments() ShipmentRepo

	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type Repository struct {
	DB          *gorm.DB
	products    ProductRepo
	inventories InventoryRepo
	vouchers    VoucherRepo
	orders      OrderRepo
	orderItems  OrderItemRepo
	payments    PaymentRepo
	shipments   ShipmentRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:          db,
		products:    NewProductRepo(db),
		inventories: NewInventoryRepo(db),
		vouchers:    NewVoucherRepo(db),
		orders:      NewOrderRepo(db),
		orderItems:  NewOrderItemRepo(db),
		payments:    NewPaymentRepo(db),
		shipments:   NewShipmentRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

// UseProductCache оборачивает чтение каталога кэшем (вне транзакций).
func (r *Repository) UseProductCache(c ProductCache, opts CacheOptions) {
	r.products = NewCachedProductRepo(r.products, c, opts)
}

func (r *Repository) Products() ProductRepo { return r.products }
func (r *Repository) Inventories() InventoryRepo { return r.inventories }
func (r *Repository) Vouchers() VoucherRepo { return r.vouchers }
func (r *Repository) Orders() OrderRepo { return r.orders }
func (r *Repository) OrderItems() OrderItemRepo { return r.orderItems }
func (r *Repository) Payments() PaymentRepo { return r.payments }
func (r *Repository) Shipments() ShipmentRepo { return r.shipments }

func (r *Repository) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}
