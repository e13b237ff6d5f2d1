package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"order-service/internal/dto"
	"order-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	badRequestErrs = []error{
		service.ErrEmptyItems,
		service.ErrQuantityInvalid,
		service.ErrAddressRequired,
		service.ErrInvalidStatus,
		service.ErrInvalidPaymentMethod,
		service.ErrInvalidVoucher,
		service.ErrInsufficientStock,
		service.ErrVoucherInactive,
		service.ErrMinOrderNotMet,
	}
	notFoundErrs = []error{
		service.ErrProductNotFound,
		service.ErrOrderNotFound,
		service.ErrOrderItemNotFound,
		service.ErrShipmentNotFound,
		service.ErrPaymentNotFound,
		service.ErrVoucherNotFound,
	}
	conflictErrs = []error{
		service.ErrOrderNotPending,
		service.ErrItemAlreadyShipped,
		service.ErrItemStatusConflict,
		service.ErrPaymentExists,
		service.ErrPaymentAlreadyPaid,
		service.ErrPaymentFinalized,
		service.ErrVoucherCodeTaken,
	}
)

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// writeServiceError: единственное место, где ошибки сервиса превращаются в HTTP.
// Текст внутренних ошибок клиенту не отдаётся.
func writeServiceError(c *gin.Context, log *zap.Logger, op string, err error) {
	switch {
	case isAny(err, badRequestErrs):
		log.Warn(op+" rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError(err.Error(), nil))
	case isAny(err, notFoundErrs):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError(err.Error()))
	case isAny(err, conflictErrs):
		log.Warn(op+" conflict", zap.Error(err))
		c.JSON(http.StatusConflict, dto.NewConflictError(err.Error()))
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError(err.Error()))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.NewForbiddenError(err.Error()))
	case errors.Is(err, service.ErrGateway):
		log.Error(op+" gateway failure", zap.Error(err))
		c.JSON(http.StatusBadGateway, dto.NewGatewayError(service.ErrGateway.Error()))
	case errors.Is(err, service.ErrMethodUnavailable):
		c.JSON(http.StatusServiceUnavailable, dto.NewUnavailableError(err.Error()))
	default:
		log.Error(op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
	}
}

// writeBindError раскладывает ошибки validator по полям.
func writeBindError(c *gin.Context, log *zap.Logger, op string, err error) {
	log.Warn("invalid "+op+" request", zap.Error(err))
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{}))
		return
	}
	fields := make([]dto.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, dto.FieldError{
			Field:   fieldPath(fe),
			Message: fieldMessage(fe),
			Tag:     fe.Tag(),
		})
	}
	c.JSON(http.StatusBadRequest, dto.NewValidationError("validation failed", fields))
}

// "PlaceOrderRequest.Items[0].Quantity" -> "Items[0].Quantity"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gt", "gte", "min":
		return fmt.Sprintf("must be at least %s", minParam(fe))
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	}
	return "invalid value"
}

func minParam(fe validator.FieldError) string {
	if fe.Tag() == "gt" {
		return fe.Param() + " (exclusive)"
	}
	return fe.Param()
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid "+name, []dto.FieldError{{Field: name, Message: "must be a valid UUID", Tag: "uuid"}}))
		return uuid.Nil, false
	}
	return id, true
}
