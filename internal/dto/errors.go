package dto

// BaseError универсальный корневой формат ошибки
// Code: машинно-ориентированный код (snake_case)
// Message: краткое человеко-читаемое описание
// Fields: для валидационных ошибок (имя поля + текст)
type BaseError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError отдельная ошибка по конкретному полю
// Tag: исходный тег валидатора (required/min/oneof)
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag,omitempty"`
}

// Семантические обёртки для swagger @Failure, по JSON совпадают с BaseError.

// ValidationErrorResponse 400
// Пример: пустая корзина, недостаточно товара, ваучер не применим
type ValidationErrorResponse BaseError

// UnauthorizedErrorResponse 401
type UnauthorizedErrorResponse BaseError

// ForbiddenErrorResponse 403
// Пример: чужой заказ или товар
type ForbiddenErrorResponse BaseError

// NotFoundErrorResponse 404
type NotFoundErrorResponse BaseError

// ConflictErrorResponse 409
// Пример: заказ уже не pending, платёж уже оплачен
type ConflictErrorResponse BaseError

// GatewayErrorResponse 502
// Пример: VietQR или PayOS недоступен
type GatewayErrorResponse BaseError

// UnavailableErrorResponse 503
// Пример: метод оплаты не настроен
type UnavailableErrorResponse BaseError

// InternalErrorResponse 500
type InternalErrorResponse BaseError

func NewValidationError(msg string, fields []FieldError) ValidationErrorResponse {
	return ValidationErrorResponse(BaseError{Code: "validation_error", Message: msg, Fields: fields})
}
func NewUnauthorizedError(msg string) UnauthorizedErrorResponse {
	return UnauthorizedErrorResponse(BaseError{Code: "unauthorized", Message: msg})
}
func NewForbiddenError(msg string) ForbiddenErrorResponse {
	return ForbiddenErrorResponse(BaseError{Code: "forbidden", Message: msg})
}
func NewNotFoundError(msg string) NotFoundErrorResponse {
	return NotFoundErrorResponse(BaseError{Code: "not_found", Message: msg})
}
func NewConflictError(msg string) ConflictErrorResponse {
	return ConflictErrorResponse(BaseError{Code: "conflict", Message: msg})
}
func NewGatewayError(msg string) GatewayErrorResponse {
	return GatewayErrorResponse(BaseError{Code: "gateway_error", Message: msg})
}
func NewUnavailableError(msg string) UnavailableErrorResponse {
	return UnavailableErrorResponse(BaseError{Code: "unavailable", Message: msg})
}
func NewInternalError(details string) InternalErrorResponse {
	return InternalErrorResponse(BaseError{Code: "internal_error", Message: "internal server error", Details: details})
}

type SuccessResponse struct {
	Message string `json:"message"`
}

func NewSuccessResponse(msg string) SuccessResponse { return SuccessResponse{Message: msg} }
