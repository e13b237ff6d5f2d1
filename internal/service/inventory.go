package service

import (
	"context"
	"fmt"

	"order-service/internal/models"
	"order-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InventoryLedger: остатки по товарам. Остаток никогда не уходит в минус:
// списание: один условный UPDATE на стороне БД.
type InventoryLedger struct {
	store repository.Store
	log   *zap.Logger
}

func NewInventoryLedger(store repository.Store, log *zap.Logger) *InventoryLedger {
	return &InventoryLedger{store: store, log: log}
}

func (l *InventoryLedger) Ensure(ctx context.Context, productID uuid.UUID) (*models.Inventory, error) {
	return l.store.Inventories().Ensure(ctx, productID)
}

func (l *InventoryLedger) Reserve(ctx context.Context, productID uuid.UUID, qty int32) error {
	return reserve(ctx, l.store.Inventories(), productID, qty)
}

func reserve(ctx context.Context, inv repository.InventoryRepo, productID uuid.UUID, qty int32) error {
	if qty <= 0 {
		return ErrQuantityInvalid
	}
	ok, err := inv.TryReserve(ctx, productID, qty)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: product %s", ErrInsufficientStock, productID)
	}
	return nil
}

type InventoryView struct {
	Product   models.Product
	Inventory models.Inventory
}

// SetStock: продавец выставляет остаток своего товара (upsert).
func (l *InventoryLedger) SetStock(ctx context.Context, productID uuid.UUID, qty int32) (*InventoryView, error) {
	uid, role, err := requireRole(ctx, RoleVendor, RoleAdmin)
	if err != nil {
		return nil, err
	}
	if qty < 0 {
		return nil, ErrQuantityInvalid
	}

	p, err := l.store.Products().GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	if role == RoleVendor && p.SellerID != uid {
		return nil, ErrForbidden
	}

	inv, err := l.store.Inventories().SetQuantity(ctx, productID, qty)
	if err != nil {
		return nil, err
	}
	l.log.Info("inventory updated", zap.String("product_id", productID.String()), zap.Int32("quantity", qty))
	return &InventoryView{Product: *p, Inventory: *inv}, nil
}

// ListSellerInventory: остатки по всем товарам продавца; товар без строки показывается с нулём.
func (l *InventoryLedger) ListSellerInventory(ctx context.Context) ([]InventoryView, error) {
	uid, _, err := requireRole(ctx, RoleVendor)
	if err != nil {
		return nil, err
	}

	products, err := l.store.Products().ListBySeller(ctx, uid)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	rows, err := l.store.Inventories().ListByProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	byProduct := make(map[uuid.UUID]models.Inventory, len(rows))
	for _, r := range rows {
		byProduct[r.ProductID] = r
	}

	out := make([]InventoryView, 0, len(products))
	for _, p := range products {
		inv, ok := byProduct[p.ID]
		if !ok {
			inv = models.Inventory{ProductID: p.ID}
		}
		out = append(out, InventoryView{Product: p, Inventory: inv})
	}
	return out, nil
}
