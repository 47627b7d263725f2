package impl

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"expense-auth/internal/domain"
	"expense-auth/internal/observability/metrics"
	"expense-auth/internal/observability/middleware"
	"expense-auth/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// ====== Config ======

type TokenConfig struct {
	Issuer     string        // e.g. "expense-auth"
	Audience   string        // e.g. "expense-web"
	AccessTTL  time.Duration // e.g. 1 * time.Hour
	SigningKey []byte        // HS256 secret
}

// ====== Claims ======

type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ====== Service ======

type TokenServiceImpl struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokenServiceHS256(cfg TokenConfig) *TokenServiceImpl {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	return &TokenServiceImpl{cfg: cfg, now: time.Now}
}

// Issue mints one bearer token for a completed authentication event.
func (t *TokenServiceImpl) Issue(ctx context.Context, user *domain.User) (string, error) {
	result := "success"
	defer func() {
		metrics.TokensIssuedTotal.WithLabelValues(result).Inc()
	}()
	now := t.now().UTC()
	claims := AccessClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   user.ID.String(),
			Audience:  jwt.ClaimStrings{t.cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.cfg.SigningKey)
	if err != nil {
		result = "failure"
		return "", err
	}

	slog.Info("issued token",
		"user_id", user.ID,
		"role", user.Role,
		"jti", claims.ID,
		"request_id", middleware.RequestIDFromContext(ctx),
		"trace_id", middleware.TraceIDFromContext(ctx),
	)
	return signed, nil
}

func (t *TokenServiceImpl) Parse(tokenStr string) (*service.Principal, error) {
	claims := &AccessClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.cfg.Issuer),
		jwt.WithAudience(t.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	tok, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.cfg.SigningKey, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &service.Principal{
		UserID:  userID,
		Role:    domain.Role(claims.Role),
		TokenID: claims.ID,
	}, nil
}
