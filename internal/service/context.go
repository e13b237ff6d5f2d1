package service

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	ctxUserIDKey ctxKey = "userID"
	ctxRoleKey   ctxKey = "role"
	ctxEmailKey  ctxKey = "email"
)

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, id)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ctxUserIDKey).(uuid.UUID)
	return v, ok
}

type Role string

const (
	RoleCustomer Role = "ROLE_CUSTOMER"
	RoleVendor   Role = "ROLE_VENDOR"
	RoleAdmin    Role = "ROLE_ADMIN"
)

func WithRole(ctx context.Context, r Role) context.Context {
	return context.WithValue(ctx, ctxRoleKey, r)
}
func RoleFromContext(ctx context.Context) (Role, bool) {
	v, ok := ctx.Value(ctxRoleKey).(Role)
	return v, ok
}

// WithEmail: адрес покупателя из access-токена, нужен для письма-подтверждения.
func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ctxEmailKey, email)
}

func EmailFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxEmailKey).(string)
	return v, ok && v != ""
}

func requireAuth(ctx context.Context) (uuid.UUID, Role, error) {
	uid, ok := UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, "", ErrUnauthorized
	}
	role, ok := RoleFromContext(ctx)
	if !ok {
		role = RoleCustomer // если нет, считаем customer по умолчанию
	}
	return uid, role, nil
}

func requireRole(ctx context.Context, allowed ...Role) (uuid.UUID, Role, error) {
	uid, role, err := requireAuth(ctx)
	if err != nil {
		return uuid.Nil, "", err
	}
	for _, r := range allowed {
		if r == role {
			return uid, role, nil
		}
	}
	return uuid.Nil, "", ErrForbidden
}
