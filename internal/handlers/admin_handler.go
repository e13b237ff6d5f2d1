package handlers

import (
	"order-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AdminHandler struct {
	orders service.OrderService
	log    *zap.Logger
}

func NewAdminHandler(orders service.OrderService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{orders: orders, log: log}
}

// UpdateItemStatus godoc
// @Summary Статус позиции заказа (администратор)
// @Description Любой допустимый статус позиции
// @Security BearerAuth
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "ID позиции"
// @Param status body dto.UpdateItemStatusRequest true "Новый статус"
// @Success 200 {object} dto.OrderItemResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Недопустимый статус"
// @Failure 404 {object} dto.NotFoundErrorResponse "Позиция не найдена"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/admin/orders/items/{id}/status [put]
func (h *AdminHandler) UpdateItemStatus(c *gin.Context) {
	updateItemStatus(c, h.orders, h.log)
}
