package impl

import (
	"context"
	"errors"
	"sync"
	"testing"

	"expense-auth/internal/domain"
	"expense-auth/internal/store"

	"github.com/google/uuid"
)

func TestChallengeIssueResolveConsume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "a@example.com", domain.RoleUser)

	first, err := f.challenges.Issue(ctx, u.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(first) != 2*challengeBytes {
		t.Fatalf("challenge should be %d hex chars, got %q", 2*challengeBytes, first)
	}
	second, err := f.challenges.Issue(ctx, u.ID)
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}

	_, err = f.challenges.Resolve(ctx, first)
	expectErr(t, err, domain.ErrChallengeInvalid)
	got, err := f.challenges.Resolve(ctx, second)
	if err != nil || got.ID != u.ID {
		t.Fatalf("resolve: %v", err)
	}
	_, err = f.challenges.Resolve(ctx, "  ")
	expectErr(t, err, domain.ErrValidation)

	if err := f.challenges.Consume(ctx, u.ID, second); err != nil {
		t.Fatalf("consume: %v", err)
	}
	expectErr(t, f.challenges.Consume(ctx, u.ID, second), domain.ErrChallengeInvalid)

	_, err = f.challenges.Issue(ctx, uuid.New())
	expectErr(t, err, domain.ErrUserNotFound)
}

func TestChallengeConcurrentConsumeHasOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "a@example.com", domain.RoleUser)
	token, err := f.challenges.Issue(ctx, u.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	const racers = 10
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		losses int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.store.WithTx(ctx, func(tx *store.Store) error {
				return f.challenges.WithStore(tx).Consume(ctx, u.ID, token)
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrChallengeInvalid):
				losses++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if wins != 1 || losses != racers-1 {
		t.Fatalf("wins=%d losses=%d", wins, losses)
	}
}
