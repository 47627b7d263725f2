package impl

import (
	"context"
	"errors"
	"strings"

	"expense-auth/internal/domain"
	"expense-auth/internal/service"
	"expense-auth/internal/store"
)

const challengeBytes = 24

type ChallengeServiceImpl struct {
	store *store.Store
}

func NewChallengeService(st *store.Store) *ChallengeServiceImpl {
	return &ChallengeServiceImpl{store: st}
}

func (c *ChallengeServiceImpl) WithStore(tx *store.Store) service.ChallengeService {
	return &ChallengeServiceImpl{store: tx}
}

// Issue replaces whatever challenge the user held.
func (c *ChallengeServiceImpl) Issue(ctx context.Context, userID domain.UserID) (string, error) {
	token, err := randomHex(challengeBytes)
	if err != nil {
		return "", err
	}
	if err := c.store.Users().SetChallenge(ctx, userID, token); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return "", domain.ErrUserNotFound
		}
		return "", err
	}
	return token, nil
}

func (c *ChallengeServiceImpl) Resolve(ctx context.Context, token string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.Invalid("challenge id is required")
	}
	user, err := c.store.Users().GetByChallenge(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrChallengeInvalid
		}
		return nil, err
	}
	return user, nil
}

func (c *ChallengeServiceImpl) Consume(ctx context.Context, userID domain.UserID, token string) error {
	if err := c.store.Users().ConsumeChallenge(ctx, userID, token); err != nil {
		if errors.Is(err, store.ErrStale) {
			return domain.ErrChallengeInvalid
		}
		return err
	}
	return nil
}
