package store

import (
	"context"
	"time"

	"expense-auth/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditStore struct{ db *gorm.DB }

func (s *Store) Audit() *AuditStore { return &AuditStore{db: s.DB} }

func (a *AuditStore) Append(ctx context.Context, entry *domain.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return a.db.WithContext(ctx).Create(entry).Error
}

// ListByUser returns the newest entries first.
func (a *AuditStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.AuditLog, error) {
	var out []domain.AuditLog
	q := a.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
