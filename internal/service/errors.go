package service

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// валидация входа
	ErrEmptyItems           = errors.New("empty items")
	ErrQuantityInvalid      = errors.New("quantity must be > 0")
	ErrAddressRequired      = errors.New("address is required")
	ErrInvalidStatus        = errors.New("status not allowed")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidVoucher       = errors.New("invalid voucher data")

	// не найдено
	ErrProductNotFound   = errors.New("product not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderItemNotFound = errors.New("order item not found")
	ErrShipmentNotFound  = errors.New("shipping info not found")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrVoucherNotFound   = errors.New("voucher not found")

	// склад и ваучеры: клиент может поправить корзину
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrVoucherInactive   = errors.New("voucher is inactive or expired")
	ErrMinOrderNotMet    = errors.New("order total is below voucher minimum")

	// недопустимое состояние
	ErrOrderNotPending    = errors.New("order is not pending")
	ErrItemAlreadyShipped = errors.New("order item already shipped")
	ErrItemStatusConflict = errors.New("order item status changed concurrently")
	ErrPaymentExists      = errors.New("payment already exists for order")
	ErrPaymentAlreadyPaid = errors.New("payment already paid")
	ErrPaymentFinalized   = errors.New("payment already failed")
	ErrVoucherCodeTaken   = errors.New("voucher code already exists")

	// внешний шлюз
	ErrGateway           = errors.New("payment gateway error")
	ErrMethodUnavailable = errors.New("payment method unavailable")
)
