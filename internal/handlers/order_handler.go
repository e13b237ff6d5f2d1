package handlers

import (
	"net/http"

	"order-service/internal/dto"
	"order-service/internal/models"
	"order-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orders service.OrderService
	log    *zap.Logger
}

func NewOrderHandler(orders service.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

// PlaceOrder godoc
// @Summary Оформление заказа
// @Description Резервирует товар, применяет ваучер и создаёт заказ в статусе pending
// @Security BearerAuth
// @Tags orders
// @Accept json
// @Produce json
// @Param order body dto.PlaceOrderRequest true "Адрес, позиции и ваучер"
// @Success 201 {object} dto.PlaceOrderResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные, нет товара, ваучер не применим"
// @Failure 401 {object} dto.UnauthorizedErrorResponse "Неавторизован"
// @Failure 404 {object} dto.NotFoundErrorResponse "Товар или ваучер не найден"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/orders [post]
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req dto.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, "place order", err)
		return
	}

	in := service.PlaceOrderInput{
		AddressID:   uuid.MustParse(req.AddressID),
		VoucherCode: req.VoucherCode,
		Items:       make([]service.PlaceOrderItem, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.PlaceOrderItem{ProductID: uuid.MustParse(it.ProductID), Quantity: it.Quantity})
	}

	order, err := h.orders.PlaceOrder(c.Request.Context(), in)
	if err != nil {
		writeServiceError(c, h.log, "place order", err)
		return
	}

	c.JSON(http.StatusCreated, dto.PlaceOrderResponse{
		OrderID:    order.ID.String(),
		TotalPrice: order.TotalPrice,
		Status:     string(order.Status),
	})
}

// ListOrders godoc
// @Summary Список заказов покупателя
// @Security BearerAuth
// @Tags orders
// @Produce json
// @Param status query string false "pending, processing, shipping, shipped, failed to ship, rejected"
// @Param page query int false "Страница (с 1)"
// @Param limit query int false "Размер страницы (до 100)"
// @Success 200 {object} dto.OrderListResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверный фильтр"
// @Failure 401 {object} dto.UnauthorizedErrorResponse "Неавторизован"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var q dto.ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, h.log, "list orders", err)
		return
	}
	page, limit, offset := dto.PageQuery{Page: q.Page, Limit: q.Limit}.Norm()

	f := service.ListFilter{Limit: limit, Offset: offset}
	if q.Status != "" {
		st := models.OrderStatus(q.Status)
		f.Status = &st
	}

	orders, total, err := h.orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		writeServiceError(c, h.log, "list orders", err)
		return
	}

	resp := dto.OrderListResponse{Orders: make([]dto.OrderResponse, 0, len(orders)), Total: total, Page: page, Limit: limit}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, dto.FromOrder(o))
	}
	c.JSON(http.StatusOK, resp)
}

// GetOrder godoc
// @Summary Заказ по id
// @Security BearerAuth
// @Tags orders
// @Produce json
// @Param id path string true "ID заказа"
// @Success 200 {object} dto.OrderResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверный id"
// @Failure 403 {object} dto.ForbiddenErrorResponse "Чужой заказ"
// @Failure 404 {object} dto.NotFoundErrorResponse "Заказ не найден"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, h.log, "get order", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromOrder(order))
}
