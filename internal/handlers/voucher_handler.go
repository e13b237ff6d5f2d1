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

// VoucherManager: service.VoucherService.
type VoucherManager interface {
	GetUsable(ctx context.Context, code string) (*models.Voucher, error)
	Create(ctx context.Context, in service.VoucherInput) (*models.Voucher, error)
	Update(ctx context.Context, id uuid.UUID, in service.VoucherInput) (*models.Voucher, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.Voucher, error)
	List(ctx context.Context, limit, offset int) ([]models.Voucher, int64, error)
}

type VoucherHandler struct {
	vouchers VoucherManager
	log      *zap.Logger
}

func NewVoucherHandler(vouchers VoucherManager, log *zap.Logger) *VoucherHandler {
	return &VoucherHandler{vouchers: vouchers, log: log}
}

// GetByCode godoc
// @Summary Проверить ваучер
// @Description Возвращает ваучер, если он активен и не истёк
// @Security BearerAuth
// @Tags vouchers
// @Produce json
// @Param code path string true "Код ваучера"
// @Success 200 {object} dto.VoucherResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Ваучер неактивен"
// @Failure 404 {object} dto.NotFoundErrorResponse "Ваучер не найден"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/vouchers/{code} [get]
func (h *VoucherHandler) GetByCode(c *gin.Context) {
	v, err := h.vouchers.GetUsable(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeServiceError(c, h.log, "get voucher", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromVoucher(v))
}

func voucherInput(req dto.VoucherRequest) service.VoucherInput {
	return service.VoucherInput{
		Code:           req.Code,
		Discount:       req.Discount,
		DiscountType:   models.DiscountType(req.DiscountType),
		MaxDiscount:    req.MaxDiscount,
		MinOrderValue:  req.MinOrderValue,
		ExpirationDate: req.ExpirationDate,
		UsageLimit:     req.UsageLimit,
	}
}

// Create godoc
// @Summary Создать ваучер
// @Security BearerAuth
// @Tags admin
// @Accept json
// @Produce json
// @Param voucher body dto.VoucherRequest true "Ваучер"
// @Success 201 {object} dto.VoucherResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 403 {object} dto.ForbiddenErrorResponse "Не администратор"
// @Failure 409 {object} dto.ConflictErrorResponse "Код уже занят"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/admin/vouchers [post]
func (h *VoucherHandler) Create(c *gin.Context) {
	var req dto.VoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, "create voucher", err)
		return
	}
	v, err := h.vouchers.Create(c.Request.Context(), voucherInput(req))
	if err != nil {
		writeServiceError(c, h.log, "create voucher", err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromVoucher(v))
}

// Update godoc
// @Summary Изменить ваучер
// @Security BearerAuth
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "ID ваучера"
// @Param voucher body dto.VoucherRequest true "Ваучер"
// @Success 200 {object} dto.VoucherResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 404 {object} dto.NotFoundErrorResponse "Ваучер не найден"
// @Failure 409 {object} dto.ConflictErrorResponse "Код уже занят"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/admin/vouchers/{id} [put]
func (h *VoucherHandler) Update(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.VoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, "update voucher", err)
		return
	}
	v, err := h.vouchers.Update(c.Request.Context(), id, voucherInput(req))
	if err != nil {
		writeServiceError(c, h.log, "update voucher", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromVoucher(v))
}

// Delete godoc
// @Summary Удалить ваучер
// @Security BearerAuth
// @Tags admin
// @Produce json
// @Param id path string true "ID ваучера"
// @Success 200 {object} dto.SuccessResponse
// @Failure 404 {object} dto.NotFoundErrorResponse "Ваучер не найден"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/admin/vouchers/{id} [delete]
func (h *VoucherHandler) Delete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.vouchers.Delete(c.Request.Context(), id); err != nil {
		writeServiceError(c, h.log, "delete voucher", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse("voucher deleted"))
}

// Get godoc
// @Summary Ваучер по id
// @Security BearerAuth
// @Tags admin
// @Produce json
// @Param id path string true "ID ваучера"
// @Success 200 {object} dto.VoucherResponse
// @Failure 404 {object} dto.NotFoundErrorResponse "Ваучер не найден"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/admin/vouchers/{id} [get]
func (h *VoucherHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	v, err := h.vouchers.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, h.log, "get voucher", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromVoucher(v))
}

// List godoc
// @Summary Список ваучеров
// @Security BearerAuth
// @Tags admin
// @Produce json
// @Param page query int false "Страница (с 1)"
// @Param limit query int false "Размер страницы (до 100)"
// @Success 200 {object} dto.VoucherListResponse
// @Failure 403 {object} dto.ForbiddenErrorResponse "Не администратор"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/admin/vouchers [get]
func (h *VoucherHandler) List(c *gin.Context) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, h.log, "list vouchers", err)
		return
	}
	page, limit, offset := q.Norm()
	vs, total, err := h.vouchers.List(c.Request.Context(), limit, offset)
	if err != nil {
		writeServiceError(c, h.log, "list vouchers", err)
		return
	}
	resp := dto.VoucherListResponse{Vouchers: make([]dto.VoucherResponse, 0, len(vs)), Total: total, Page: page, Limit: limit}
	for i := range vs {
		resp.Vouchers = append(resp.Vouchers, dto.FromVoucher(&vs[i]))
	}
	c.JSON(http.StatusOK, resp)
}
