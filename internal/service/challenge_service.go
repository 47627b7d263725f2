package service

import (
	"context"

	"expense-auth/internal/domain"
	"expense-auth/internal/store"
)

// ChallengeService manages the per-user flow challenge.
type ChallengeService interface {
	Issue(ctx context.Context, userID domain.UserID) (string, error)
	Resolve(ctx context.Context, token string) (*domain.User, error)
	// Consume clears the challenge only if it still equals token.
	Consume(ctx context.Context, userID domain.UserID, token string) error
	// WithStore binds the manager to a transaction.
	WithStore(tx *store.Store) ChallengeService
}
