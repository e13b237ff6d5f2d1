package middleware

import (
	"context"
	"net/http"
	"strings"

	"order-service/internal/dto"
	"order-service/internal/service"
	"order-service/internal/token"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys for user info
const (
	CtxUserID   = "user_id"
	CtxUserRole = "user_role"
)

// TokenVerifier: token.HSProvider.
type TokenVerifier interface {
	ParseAndValidateAccess(ctx context.Context, token string) (*token.Claims, error)
}

// AuthRequired validates Bearer token and injects user info into gin and request context.
func AuthRequired(verifier TokenVerifier, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("missing Authorization header"))
			return
		}
		tok, ok := ExtractBearerToken(authz)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid Authorization header"))
			return
		}
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("empty token"))
			return
		}

		claims, err := verifier.ParseAndValidateAccess(c.Request.Context(), tok)
		if err != nil {
			log.Warn("access token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid token"))
			return
		}

		c.Set(CtxUserID, claims.UserID.String())
		c.Set(CtxUserRole, claims.Role)

		// сервисный слой читает пользователя из context.Context
		ctx := service.WithUserID(c.Request.Context(), claims.UserID)
		ctx = service.WithRole(ctx, service.Role(claims.Role))
		if claims.Email != "" {
			ctx = service.WithEmail(ctx, claims.Email)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole пропускает только перечисленные роли. Ставится после AuthRequired.
func RequireRole(roles ...service.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := service.Role(c.GetString(CtxUserRole))
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewForbiddenError("role is not allowed"))
	}
}

// ExtractBearerToken извлекает токен из заголовка Authorization, устойчиво к лишним символам
// Примеры допустимых значений:
// - "Bearer abc.def.ghi"
// - "Bearer \"abc.def.ghi\""
// - "Bearer abc.def.ghi, extra"
func ExtractBearerToken(authz string) (string, bool) {
	if authz == "" {
		return "", false
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	t := strings.Trim(strings.TrimSpace(parts[1]), " \"'")
	// всё после запятой: мусор
	if i := strings.IndexRune(t, ','); i >= 0 {
		t = strings.Trim(strings.TrimSpace(t[:i]), " \"'")
	}
	if i := strings.IndexByte(t, ' '); i >= 0 {
		t = strings.Trim(strings.TrimSpace(t[:i]), " \"'")
	}
	return t, true
}
