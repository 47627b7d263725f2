package store

import (
	"context"
	"time"

	"expense-auth/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserStore struct{ db *gorm.DB }

func (s *Store) Users() *UserStore { return &UserStore{db: s.DB} }

func (u *UserStore) Create(ctx context.Context, usr *domain.User) error {
	if usr.ID == uuid.Nil {
		usr.ID = uuid.New()
	}
	now := time.Now().UTC()
	if usr.CreatedAt.IsZero() {
		usr.CreatedAt = now
	}
	usr.UpdatedAt = now
	return translate(u.db.WithContext(ctx).Omit("Passkeys").Create(usr).Error)
}

// Save writes every column of the record back, nulls included.
func (u *UserStore) Save(ctx context.Context, usr *domain.User) error {
	usr.UpdatedAt = time.Now().UTC()
	return u.db.WithContext(ctx).Omit("Passkeys").Save(usr).Error
}

func (u *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return u.first(ctx, "id = ?", id)
}

func (u *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return u.first(ctx, "email = ?", email)
}

func (u *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return u.first(ctx, "username = ?", username)
}

// GetByInviteToken only matches invitations whose expiry is after now.
func (u *UserStore) GetByInviteToken(ctx context.Context, token string, now time.Time) (*domain.User, error) {
	return u.first(ctx, "invite_token = ? AND invite_token_expiry > ?", token, now)
}

func (u *UserStore) GetByChallenge(ctx context.Context, challengeID string) (*domain.User, error) {
	return u.first(ctx, "challenge_id = ?", challengeID)
}

func (u *UserStore) SetChallenge(ctx context.Context, userID uuid.UUID, challengeID string) error {
	return u.Update(ctx, userID, map[string]any{"challenge_id": challengeID})
}

// ConsumeChallenge clears the flow challenge only if it still holds the given
// value. Concurrent consumers of one token observe exactly one success.
func (u *UserStore) ConsumeChallenge(ctx context.Context, userID uuid.UUID, challengeID string) error {
	tx := u.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND challenge_id = ?", userID, challengeID).
		Updates(map[string]any{"challenge_id": nil, "updated_at": time.Now().UTC()})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected != 1 {
		return ErrStale
	}
	return nil
}

// ConsumeInviteToken clears the invitation token only if it still holds the
// given value, so one token sets one password.
func (u *UserStore) ConsumeInviteToken(ctx context.Context, userID uuid.UUID, token string) error {
	tx := u.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND invite_token = ?", userID, token).
		Updates(map[string]any{"invite_token": nil, "invite_token_expiry": nil, "updated_at": time.Now().UTC()})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected != 1 {
		return ErrStale
	}
	return nil
}

func (u *UserStore) SetWebAuthnSession(ctx context.Context, userID uuid.UUID, sessionJSON string) error {
	return u.Update(ctx, userID, map[string]any{"webauthn_session": sessionJSON})
}

func (u *UserStore) ClearWebAuthnSession(ctx context.Context, userID uuid.UUID) error {
	return u.Update(ctx, userID, map[string]any{"webauthn_session": nil})
}

func (u *UserStore) ListPendingByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	var users []domain.User
	err := u.db.WithContext(ctx).
		Where("role = ? AND invitation = ?", role, domain.InvitationPending).
		Order("created_at DESC").
		Find(&users).Error
	return users, err
}

func (u *UserStore) ExistsActiveWithRole(ctx context.Context, role domain.Role) (bool, error) {
	var n int64
	err := u.db.WithContext(ctx).Model(&domain.User{}).
		Where("role = ? AND status = ?", role, domain.StatusActive).
		Count(&n).Error
	return n > 0, err
}

func (u *UserStore) first(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var user domain.User
	if err := u.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// Update writes only the given columns.
func (u *UserStore) Update(ctx context.Context, userID uuid.UUID, cols map[string]any) error {
	cols["updated_at"] = time.Now().UTC()
	tx := u.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).Updates(cols)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
