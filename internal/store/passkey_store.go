package store

import (
	"context"
	"time"

	"expense-auth/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PasskeyStore struct{ db *gorm.DB }

func (s *Store) Passkeys() *PasskeyStore { return &PasskeyStore{db: s.DB} }

func (p *PasskeyStore) Append(ctx context.Context, c *domain.PasskeyCredential) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return translate(p.db.WithContext(ctx).Create(c).Error)
}

func (p *PasskeyStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.PasskeyCredential, error) {
	var out []domain.PasskeyCredential
	err := p.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&out).Error
	return out, err
}

// AdvanceCounter moves sign_count from prev to next, failing with ErrStale if
// another request already moved it.
func (p *PasskeyStore) AdvanceCounter(ctx context.Context, id uuid.UUID, prev, next uint32, usedAt time.Time) error {
	tx := p.db.WithContext(ctx).Model(&domain.PasskeyCredential{}).
		Where("id = ? AND sign_count = ?", id, prev).
		Updates(map[string]any{"sign_count": next, "last_used_at": usedAt})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected != 1 {
		return ErrStale
	}
	return nil
}
