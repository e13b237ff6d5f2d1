package handlers

import (
	"context"
	"net/http"

	"order-service/internal/dto"
	"order-service/internal/models"
	"order-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockKeeper: service.InventoryLedger со стороны продавца.
type StockKeeper interface {
	ListSellerInventory(ctx context.Context) ([]service.InventoryView, error)
	SetStock(ctx context.Context, productID uuid.UUID, qty int32) (*service.InventoryView, error)
}

type SellerHandler struct {
	orders   service.OrderService
	payments service.PaymentService
	stock    StockKeeper
	log      *zap.Logger
}

func NewSellerHandler(orders service.OrderService, payments service.PaymentService, stock StockKeeper, log *zap.Logger) *SellerHandler {
	return &SellerHandler{orders: orders, payments: payments, stock: stock, log: log}
}

func inventoryResponse(v service.InventoryView) dto.InventoryResponse {
	return dto.InventoryResponse{
		ProductID:   v.Product.ID.String(),
		Title:       v.Product.Title,
		Price:       v.Product.Price,
		Quantity:    v.Inventory.Quantity,
		Reserved:    v.Inventory.Reserved,
		LastUpdated: v.Inventory.LastUpdated,
	}
}

// ListInventory godoc
// @Summary Остатки товаров продавца
// @Security BearerAuth
// @Tags seller
// @Produce json
// @Success 200 {array} dto.InventoryResponse
// @Failure 401 {object} dto.UnauthorizedErrorResponse "Неавторизован"
// @Failure 403 {object} dto.ForbiddenErrorResponse "Не продавец"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/seller/inventory [get]
func (h *SellerHandler) ListInventory(c *gin.Context) {
	views, err := h.stock.ListSellerInventory(c.Request.Context())
	if err != nil {
		writeServiceError(c, h.log, "list inventory", err)
		return
	}
	out := make([]dto.InventoryResponse, 0, len(views))
	for _, v := range views {
		out = append(out, inventoryResponse(v))
	}
	c.JSON(http.StatusOK, out)
}

// SetStock godoc
// @Summary Установить остаток товара
// @Security BearerAuth
// @Tags seller
// @Accept json
// @Produce json
// @Param productId path string true "ID товара"
// @Param stock body dto.SetStockRequest true "Новый остаток"
// @Success 200 {object} dto.InventoryResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 403 {object} dto.ForbiddenErrorResponse "Чужой товар"
// @Failure 404 {object} dto.NotFoundErrorResponse "Товар не найден"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/seller/inventory/{productId} [put]
func (h *SellerHandler) SetStock(c *gin.Context) {
	productID, ok := parseUUIDParam(c, "productId")
	if !ok {
		return
	}
	var req dto.SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, "set stock", err)
		return
	}
	v, err := h.stock.SetStock(c.Request.Context(), productID, *req.Quantity)
	if err != nil {
		writeServiceError(c, h.log, "set stock", err)
		return
	}
	c.JSON(http.StatusOK, inventoryResponse(*v))
}

// ListItems godoc
// @Summary Позиции заказов продавца
// @Security BearerAuth
// @Tags seller
// @Produce json
// @Param status query string false "pending, shipping, shipped, failed to ship, rejected"
// @Param page query int false "Страница (с 1)"
// @Param limit query int false "Размер страницы (до 100)"
// @Success 200 {object} dto.OrderItemListResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверный фильтр"
// @Failure 403 {object} dto.ForbiddenErrorResponse "Не продавец"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/seller/orders/items [get]
func (h *SellerHandler) ListItems(c *gin.Context) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, h.log, "list seller items", err)
		return
	}
	page, limit, offset := q.Norm()

	f := service.SellerItemFilter{Limit: limit, Offset: offset}
	if s := c.Query("status"); s != "" {
		st := models.ItemStatus(s)
		if !st.Valid() {
			writeServiceError(c, h.log, "list seller items", service.ErrInvalidStatus)
			return
		}
		f.Status = &st
	}

	items, total, err := h.orders.ListSellerItems(c.Request.Context(), f)
	if err != nil {
		writeServiceError(c, h.log, "list seller items", err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderItemListResponse{Items: dto.FromOrderItems(items), Total: total, Page: page, Limit: limit})
}

// ConfirmOrder godoc
// @Summary Подтвердить свои позиции заказа
// @Description pending позиции продавца переходят в shipping, создаётся трек-номер
// @Security BearerAuth
// @Tags seller
// @Produce json
// @Param id path string true "ID заказа"
// @Success 200 {object} dto.ConfirmOrderResponse
// @Failure 403 {object} dto.ForbiddenErrorResponse "Нет позиций продавца"
// @Failure 404 {object} dto.NotFoundErrorResponse "Заказ не найден"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/seller/orders/{id}/confirm [put]
func (h *SellerHandler) ConfirmOrder(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	shipments, err := h.orders.ConfirmSellerItems(c.Request.Context(), orderID)
	if err != nil {
		writeServiceError(c, h.log, "confirm order", err)
		return
	}
	resp := dto.ConfirmOrderResponse{Shipments: make([]dto.ShippingInfoResponse, 0, len(shipments))}
	for _, s := range shipments {
		resp.Shipments = append(resp.Shipments, dto.FromShippingInfo(s))
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateItemStatus godoc
// @Summary Статус позиции заказа (продавец)
// @Description Допустимо shipping или rejected; отгруженную позицию менять нельзя
// @Security BearerAuth
// @Tags seller
// @Accept json
// @Produce json
// @Param id path string true "ID позиции"
// @Param status body dto.UpdateItemStatusRequest true "Новый статус"
// @Success 200 {object} dto.OrderItemResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Недопустимый статус"
// @Failure 403 {object} dto.ForbiddenErrorResponse "Чужая позиция"
// @Failure 404 {object} dto.NotFoundErrorResponse "Позиция не найдена"
// @Failure 409 {object} dto.ConflictErrorResponse "Позиция уже отгружена"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/seller/orders/items/{id}/status [put]
func (h *SellerHandler) UpdateItemStatus(c *gin.Context) {
	updateItemStatus(c, h.orders, h.log)
}

// UpdateShippingStatus godoc
// @Summary Статус доставки
// @Description shipping, shipped или failed to ship
// @Security BearerAuth
// @Tags seller
// @Accept json
// @Produce json
// @Param id path string true "ID доставки"
// @Param status body dto.UpdateItemStatusRequest true "Новый статус"
// @Success 200 {object} dto.ShippingInfoResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Недопустимый статус"
// @Failure 403 {object} dto.ForbiddenErrorResponse "Чужая доставка"
// @Failure 404 {object} dto.NotFoundErrorResponse "Доставка не найдена"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/seller/shipping/{id}/status [put]
func (h *SellerHandler) UpdateShippingStatus(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateItemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, "update shipping status", err)
		return
	}
	s, err := h.orders.UpdateShippingStatus(c.Request.Context(), id, models.ItemStatus(req.Status))
	if err != nil {
		writeServiceError(c, h.log, "update shipping status", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromShippingInfo(*s))
}

// GetOrderPayment godoc
// @Summary Оплата заказа (продавец)
// @Security BearerAuth
// @Tags seller
// @Produce json
// @Param id path string true "ID заказа"
// @Success 200 {object} dto.PaymentResponse
// @Failure 403 {object} dto.ForbiddenErrorResponse "Нет позиций продавца"
// @Failure 404 {object} dto.NotFoundErrorResponse "Платёж не найден"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/seller/orders/{id}/payment [get]
func (h *SellerHandler) GetOrderPayment(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	p, err := h.payments.GetOrderPayment(c.Request.Context(), orderID)
	if err != nil {
		writeServiceError(c, h.log, "get order payment", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPayment(p))
}

// UpdateOrderPayment godoc
// @Summary Подтвердить оплату (COD)
// @Description paid окончателен; paid проходит ту же сверку, что и вебхуки
// @Security BearerAuth
// @Tags seller
// @Accept json
// @Produce json
// @Param id path string true "ID заказа"
// @Param status body dto.UpdatePaymentStatusRequest true "paid или failed"
// @Success 200 {object} dto.PaymentResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Недопустимый статус"
// @Failure 403 {object} dto.ForbiddenErrorResponse "Нет позиций продавца"
// @Failure 404 {object} dto.NotFoundErrorResponse "Платёж не найден"
// @Failure 409 {object} dto.ConflictErrorResponse "Платёж уже завершён"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/seller/orders/{id}/payment [put]
func (h *SellerHandler) UpdateOrderPayment(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, "update order payment", err)
		return
	}
	p, err := h.payments.UpdatePaymentStatus(c.Request.Context(), orderID, models.PaymentStatus(req.Status))
	if err != nil {
		writeServiceError(c, h.log, "update order payment", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPayment(p))
}

// общий для продавца и админа, права проверяет сервис
func updateItemStatus(c *gin.Context, orders service.OrderService, log *zap.Logger) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateItemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, log, "update item status", err)
		return
	}
	it, err := orders.UpdateItemStatus(c.Request.Context(), id, models.ItemStatus(req.Status))
	if err != nil {
		writeServiceError(c, log, "update item status", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromOrderItem(*it))
}
