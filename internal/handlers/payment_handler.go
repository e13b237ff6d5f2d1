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

// CallbackReconciler: service.Reconciler со стороны вебхуков.
type CallbackReconciler interface {
	HandleVietQRCallback(ctx context.Context, cb service.VietQRCallback) (*models.Payment, error)
	HandlePayOSCallback(ctx context.Context, cb service.PayOSCallback) (*models.Payment, error)
}

type PaymentHandler struct {
	payments   service.PaymentService
	reconciler CallbackReconciler
	log        *zap.Logger
}

func NewPaymentHandler(payments service.PaymentService, reconciler CallbackReconciler, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, reconciler: reconciler, log: log}
}

// CreatePayment godoc
// @Summary Создание платежа по заказу
// @Description COD, VietQR (возвращает qrData) или PayOS (возвращает paymentUrl)
// @Security BearerAuth
// @Tags payments
// @Accept json
// @Produce json
// @Param payment body dto.CreatePaymentRequest true "Заказ и метод оплаты"
// @Success 201 {object} dto.CreatePaymentResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 403 {object} dto.ForbiddenErrorResponse "Чужой заказ"
// @Failure 404 {object} dto.NotFoundErrorResponse "Заказ не найден"
// @Failure 409 {object} dto.ConflictErrorResponse "Заказ не pending или платёж уже есть"
// @Failure 502 {object} dto.GatewayErrorResponse "Ошибка платёжного шлюза"
// @Failure 503 {object} dto.UnavailableErrorResponse "Метод оплаты не настроен"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/payments [post]
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, "create payment", err)
		return
	}

	res, err := h.payments.CreatePayment(c.Request.Context(), service.CreatePaymentInput{
		OrderID:         uuid.MustParse(req.OrderID),
		Method:          models.PaymentMethod(req.Method),
		ReplaceExisting: req.ReplaceExisting,
	})
	if err != nil {
		writeServiceError(c, h.log, "create payment", err)
		return
	}

	c.JSON(http.StatusCreated, dto.CreatePaymentResponse{
		Payment:    dto.FromPayment(res.Payment),
		QRData:     res.QRData,
		PaymentURL: res.PaymentURL,
	})
}

// GetPaymentStatus godoc
// @Summary Статус оплаты заказа
// @Security BearerAuth
// @Tags payments
// @Produce json
// @Param orderId path string true "ID заказа"
// @Success 200 {object} dto.PaymentStatusResponse
// @Failure 403 {object} dto.ForbiddenErrorResponse "Чужой заказ"
// @Failure 404 {object} dto.NotFoundErrorResponse "Платёж не найден"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/payments/status/{orderId} [get]
func (h *PaymentHandler) GetPaymentStatus(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "orderId")
	if !ok {
		return
	}
	snap, err := h.payments.GetPaymentStatus(c.Request.Context(), orderID)
	if err != nil {
		writeServiceError(c, h.log, "payment status", err)
		return
	}
	c.JSON(http.StatusOK, dto.PaymentStatusResponse{
		Payment:     dto.FromPayment(snap.Payment),
		OrderStatus: string(snap.OrderStatus),
		TotalPrice:  snap.TotalPrice,
	})
}

// VietQRCallback godoc
// @Summary Вебхук VietQR
// @Description Повторная доставка безопасна: оплаченный платёж не меняется
// @Tags payments
// @Accept json
// @Produce json
// @Param callback body dto.VietQRCallbackRequest true "Уведомление VietQR"
// @Success 200 {object} dto.CallbackResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 404 {object} dto.NotFoundErrorResponse "Платёж не найден"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/payments/vietqr/callback [post]
func (h *PaymentHandler) VietQRCallback(c *gin.Context) {
	var req dto.VietQRCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, "vietqr callback", err)
		return
	}
	p, err := h.reconciler.HandleVietQRCallback(c.Request.Context(), service.VietQRCallback{
		OrderID:       req.OrderID,
		Status:        req.Status,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		writeServiceError(c, h.log, "vietqr callback", err)
		return
	}
	c.JSON(http.StatusOK, dto.CallbackResponse{OrderID: p.OrderID.String(), Status: string(p.Status)})
}

// PayOSCallback godoc
// @Summary Возврат с PayOS
// @Tags payments
// @Produce json
// @Param orderCode query string true "orderCode платежа"
// @Param status query string false "PAID / CANCELLED / ..."
// @Success 200 {object} dto.CallbackResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 404 {object} dto.NotFoundErrorResponse "Платёж не найден"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/payments/payos/callback [get]
func (h *PaymentHandler) PayOSCallback(c *gin.Context) {
	h.payOS(c, false)
}

// PayOSCancel godoc
// @Summary Отмена оплаты на PayOS
// @Description Покупатель ушёл со страницы оплаты, платёж помечается failed
// @Tags payments
// @Produce json
// @Param orderCode query string true "orderCode платежа"
// @Success 200 {object} dto.CallbackResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 404 {object} dto.NotFoundErrorResponse "Платёж не найден"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/payments/payos/cancel [get]
func (h *PaymentHandler) PayOSCancel(c *gin.Context) {
	h.payOS(c, true)
}

func (h *PaymentHandler) payOS(c *gin.Context, cancelled bool) {
	var q dto.PayOSCallbackQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, h.log, "payos callback", err)
		return
	}
	status := q.Status
	if cancelled || q.Cancel {
		status = "CANCELLED"
	}
	p, err := h.reconciler.HandlePayOSCallback(c.Request.Context(), service.PayOSCallback{
		OrderCode: q.OrderCode,
		Status:    status,
	})
	if err != nil {
		writeServiceError(c, h.log, "payos callback", err)
		return
	}
	c.JSON(http.StatusOK, dto.CallbackResponse{OrderID: p.OrderID.String(), Status: string(p.Status)})
}
