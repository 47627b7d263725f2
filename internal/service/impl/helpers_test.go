package impl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"expense-auth/internal/domain"
	"expense-auth/internal/passkey"
	"expense-auth/internal/service"
	"expense-auth/internal/store"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testRPID     = "app.example.com"
	testOrigin   = "https://app.example.com"
	testPassword = "correct horse battery"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One connection keeps the in-memory database shared by every query.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	st := store.New(db)
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

// fastPasswords keeps argon2 cheap in tests.
func fastPasswords() *PasswordServiceImpl {
	return NewPasswordServiceWithParams(Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
}

type stubEmailService struct {
	mu    sync.Mutex
	err   error
	calls []service.Invitation
}

func (s *stubEmailService) SendInvitation(_ context.Context, inv service.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, inv)
	return s.err
}

func (s *stubEmailService) last(t *testing.T) service.Invitation {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		t.Fatalf("no invitation was sent")
	}
	return s.calls[len(s.calls)-1]
}

type fixture struct {
	store      *store.Store
	passwords  *PasswordServiceImpl
	challenges *ChallengeServiceImpl
	totp       *TOTPServiceImpl
	passkeys   *PasskeyServiceImpl
	tokens     *TokenServiceImpl
	email      *stubEmailService
	auth       *AuthServiceImpl
	admin      *AdminServiceImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := setupStore(t)

	pk, err := NewPasskeyService(st, passkey.NewConfig("Expense Tracker", testRPID, testOrigin, nil))
	if err != nil {
		t.Fatalf("passkey service: %v", err)
	}
	f := &fixture{
		store:      st,
		passwords:  fastPasswords(),
		challenges: NewChallengeService(st),
		totp:       NewTOTPService(TOTPConfig{}),
		passkeys:   pk,
		tokens:     NewTokenServiceHS256(TokenConfig{Issuer: "expense-auth", Audience: "expense-web", SigningKey: []byte("test-signing-key")}),
		email:      &stubEmailService{},
	}
	invites := InviteConfig{FrontendURL: testOrigin, TTL: 24 * time.Hour}
	f.auth = NewAuthServiceImpl(AuthDeps{
		Store:      st,
		Passwords:  f.passwords,
		Challenges: f.challenges,
		TOTP:       f.totp,
		Passkeys:   f.passkeys,
		Tokens:     f.tokens,
		Email:      f.email,
		Invites:    invites,
	})
	f.admin = NewAdminServiceImpl(AdminDeps{
		Store:      st,
		Passwords:  f.passwords,
		Challenges: f.challenges,
		Email:      f.email,
		Invites:    invites,
	})
	return f
}

// seedUser stores a user who already accepted an invitation and set
// testPassword.
func (f *fixture) seedUser(t *testing.T, email string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := f.passwords.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	accepted := domain.InvitationAccepted
	u := &domain.User{
		Email:        email,
		Username:     email,
		Name:         "Seeded",
		PasswordHash: &hash,
		Role:         role,
		Status:       domain.StatusPending,
		Invitation:   &accepted,
		MFAMethod:    domain.MFAMethodNone,
	}
	if err := f.store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func (f *fixture) reload(t *testing.T, id domain.UserID) *domain.User {
	t.Helper()
	u, err := f.store.Users().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return u
}

func expectErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
