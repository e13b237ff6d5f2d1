package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims: то, что middleware кладёт в контекст запроса.
type Claims struct {
	UserID uuid.UUID
	Role   string
	Email  string
	Exp    time.Time
}

// HSProvider проверяет access-токены, выпущенные auth-сервисом (общий HS256 секрет).
type HSProvider struct {
	accessSecret []byte
	issuer       string
	audience     string
	now          func() time.Time
}

func NewHSProvider(accessSecret, issuer, audience string) *HSProvider {
	return &HSProvider{
		accessSecret: []byte(accessSecret),
		issuer:       issuer,
		audience:     audience,
		now:          time.Now,
	}
}

type customClaims struct {
	Sub   string `json:"sub"`
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// SignAccess нужен тестам и opsctl; боевые токены выдаёт auth-сервис.
func (p *HSProvider) SignAccess(ctx context.Context, sub uuid.UUID, role, email string, ttl time.Duration) (string, time.Time, error) {
	now := p.now()
	exp := now.Add(ttl)

	claims := customClaims{
		Sub:   sub.String(),
		Role:  role,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Subject:   sub.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if p.audience != "" {
		claims.Audience = []string{p.audience}
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(p.accessSecret)
	return signed, exp, err
}

func (p *HSProvider) ParseAndValidateAccess(ctx context.Context, token string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired()}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}
	if p.audience != "" {
		opts = append(opts, jwt.WithAudience(p.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, &customClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return p.accessSecret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	cc, ok := parsed.Claims.(*customClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	uid, err := uuid.Parse(cc.Sub)
	if err != nil {
		return nil, err
	}
	return &Claims{UserID: uid, Role: cc.Role, Email: cc.Email, Exp: cc.ExpiresAt.Time}, nil
}
