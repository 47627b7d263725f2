package service

import (
	"context"

	"expense-auth/internal/domain"
)

// Principal is the identity carried by a verified bearer token.
type Principal struct {
	UserID  domain.UserID
	Role    domain.Role
	TokenID string
}

type TokenService interface {
	Issue(ctx context.Context, user *domain.User) (string, error)
	Parse(token string) (*Principal, error)
}
