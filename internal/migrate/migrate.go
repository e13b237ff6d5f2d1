package migrate

import (
	"context"
	"fmt"

	"order-service/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions       bool // pgcrypto
	CreateChecks           bool // CHECK-constraint для целостности
	CreateIndexes          bool // индексы и UNIQUE
	CreateFKsViaSQL        bool // FK через SQL (поверх GORM-constraint)
	CreateUpdatedAtTrigger bool // триггер обновления updated_at
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateFKsViaSQL:        true,
		CreateUpdatedAtTrigger: true,
	}
}

type step struct {
	name string
	sql  string
}

func run(db *gorm.DB, log *zap.Logger, steps []step) error {
	for _, s := range steps {
		if err := db.Exec(s.sql).Error; err != nil {
			log.Error("Не удалось выполнить шаг миграции", zap.String("step", s.name), zap.Error(err))
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

var updatedAtTables = []string{"products", "vouchers", "orders", "order_items", "payments", "shipping_infos"}

var checkSteps = []step{
	{"chk_inventories_quantity_non_negative", `
ALTER TABLE inventories DROP CONSTRAINT IF EXISTS chk_inventories_quantity_non_negative;
ALTER TABLE inventories ADD CONSTRAINT chk_inventories_quantity_non_negative
  CHECK (quantity >= 0 AND reserved >= 0);`},
	{"chk_vouchers_values", `
ALTER TABLE vouchers DROP CONSTRAINT IF EXISTS chk_vouchers_values;
ALTER TABLE vouchers ADD CONSTRAINT chk_vouchers_values
  CHECK (discount >= 0 AND max_discount >= 0 AND min_order_value >= 0 AND usage_limit >= 1 AND used_count >= 0);`},
	{"chk_vouchers_discount_type", `
ALTER TABLE vouchers DROP CONSTRAINT IF EXISTS chk_vouchers_discount_type;
ALTER TABLE vouchers ADD CONSTRAINT chk_vouchers_discount_type
  CHECK (discount_type IN ('percentage','fixed'));`},
	{"chk_orders_status_allowed", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_status_allowed;
ALTER TABLE orders ADD CONSTRAINT chk_orders_status_allowed
  CHECK (status IN ('pending','processing','shipping','shipped','failed to ship','rejected'));`},
	{"chk_orders_amounts_non_negative", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_amounts_non_negative;
ALTER TABLE orders ADD CONSTRAINT chk_orders_amounts_non_negative
  CHECK (subtotal >= 0 AND discount >= 0 AND total_price >= 0);`},
	{"chk_order_items_status_allowed", `
ALTER TABLE order_items DROP CONSTRAINT IF EXISTS chk_order_items_status_allowed;
ALTER TABLE order_items ADD CONSTRAINT chk_order_items_status_allowed
  CHECK (status IN ('pending','shipping','shipped','failed to ship','rejected'));`},
	{"chk_order_items_quantity_price", `
ALTER TABLE order_items DROP CONSTRAINT IF EXISTS chk_order_items_quantity_price;
ALTER TABLE order_items ADD CONSTRAINT chk_order_items_quantity_price
  CHECK (quantity > 0 AND unit_price >= 0);`},
	{"chk_payments_status_allowed", `
ALTER TABLE payments DROP CONSTRAINT IF EXISTS chk_payments_status_allowed;
ALTER TABLE payments ADD CONSTRAINT chk_payments_status_allowed
  CHECK (status IN ('pending','paid','failed'));`},
	{"chk_payments_method_allowed", `
ALTER TABLE payments DROP CONSTRAINT IF EXISTS chk_payments_method_allowed;
ALTER TABLE payments ADD CONSTRAINT chk_payments_method_allowed
  CHECK (method IN ('COD','VietQR','PayOS'));`},
	{"chk_shipping_infos_status_allowed", `
ALTER TABLE shipping_infos DROP CONSTRAINT IF EXISTS chk_shipping_infos_status_allowed;
ALTER TABLE shipping_infos ADD CONSTRAINT chk_shipping_infos_status_allowed
  CHECK (status IN ('shipping','shipped','failed to ship'));`},
}

var indexSteps = []step{
	// один платёж на заказ; замена: только delete-then-create
	{"ux_payments_order", `CREATE UNIQUE INDEX IF NOT EXISTS ux_payments_order ON payments (order_id);`},
	{"ux_vouchers_code", `CREATE UNIQUE INDEX IF NOT EXISTS ux_vouchers_code ON vouchers (code);`},
	{"ux_order_items_order_product", `CREATE UNIQUE INDEX IF NOT EXISTS ux_order_items_order_product ON order_items (order_id, product_id);`},
	{"ix_orders_buyer_date", `CREATE INDEX IF NOT EXISTS ix_orders_buyer_date ON orders (buyer_id, order_date DESC);`},
	{"ix_orders_status_date", `CREATE INDEX IF NOT EXISTS ix_orders_status_date ON orders (status, order_date DESC);`},
	// выборка поллера: pending за последние 24 часа
	{"ix_payments_pending_created", `CREATE INDEX IF NOT EXISTS ix_payments_pending_created ON payments (created_at) WHERE status = 'pending';`},
	{"ix_order_items_seller_status", `CREATE INDEX IF NOT EXISTS ix_order_items_seller_status ON order_items (seller_id, status);`},
}

var fkSteps = []step{
	{"fk_order_items_order", `
ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS fk_order_items_order,
  ADD CONSTRAINT fk_order_items_order
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE;`},
	{"fk_payments_order", `
ALTER TABLE payments
  DROP CONSTRAINT IF EXISTS fk_payments_order,
  ADD CONSTRAINT fk_payments_order
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE;`},
	{"fk_shipping_infos_item", `
ALTER TABLE shipping_infos
  DROP CONSTRAINT IF EXISTS fk_shipping_infos_item,
  ADD CONSTRAINT fk_shipping_infos_item
    FOREIGN KEY (order_item_id) REFERENCES order_items(id) ON DELETE CASCADE;`},
	{"fk_inventories_product", `
ALTER TABLE inventories
  DROP CONSTRAINT IF EXISTS fk_inventories_product,
  ADD CONSTRAINT fk_inventories_product
    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE;`},
}

func MigrateOrderDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("Начало миграции базы данных заказов")
	db = db.WithContext(ctx)

	if opt.CreateExtensions {
		log.Info("Создание расширений PostgreSQL")
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
			log.Error("Не удалось включить расширение pgcrypto", zap.Error(err))
			return err
		}
		log.Info("Расширения PostgreSQL успешно созданы")
	}

	log.Info("Создание таблиц")
	if err := db.AutoMigrate(
		&models.Product{},
		&models.Inventory{},
		&models.Voucher{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.ShippingInfo{},
	); err != nil {
		log.Error("Не удалось создать таблицы", zap.Error(err))
		return err
	}
	log.Info("Таблицы успешно созданы")

	if opt.CreateUpdatedAtTrigger {
		log.Info("Создание триггеров updated_at")
		steps := []step{{"set_updated_at", `
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;`}}
		for _, t := range updatedAtTables {
			steps = append(steps, step{"trg_" + t + "_updated", fmt.Sprintf(`
DROP TRIGGER IF EXISTS trg_%[1]s_updated ON %[1]s;
CREATE TRIGGER trg_%[1]s_updated
BEFORE UPDATE ON %[1]s
FOR EACH ROW EXECUTE FUNCTION set_updated_at();`, t)})
		}
		if err := run(db, log, steps); err != nil {
			return err
		}
		log.Info("Триггеры updated_at успешно созданы")
	}

	if opt.CreateChecks {
		log.Info("Создание CHECK-ограничений")
		if err := run(db, log, checkSteps); err != nil {
			return err
		}
		log.Info("CHECK-ограничения успешно созданы")
	}

	if opt.CreateIndexes {
		log.Info("Создание индексов")
		if err := run(db, log, indexSteps); err != nil {
			return err
		}
		log.Info("Индексы успешно созданы")
	}

	if opt.CreateFKsViaSQL {
		log.Info("Создание внешних ключей")
		if err := run(db, log, fkSteps); err != nil {
			return err
		}
		log.Info("Внешние ключи успешно созданы")
	}

	log.Info("Миграция базы данных заказов успешно завершена")
	return nil
}
