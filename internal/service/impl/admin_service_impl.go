package impl

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"expense-auth/internal/domain"
	"expense-auth/internal/dto"
	"expense-auth/internal/events"
	"expense-auth/internal/observability/middleware"
	"expense-auth/internal/service"
	"expense-auth/internal/store"
)

type AdminDeps struct {
	Store      *store.Store
	Passwords  service.PasswordService
	Challenges service.ChallengeService
	Email      service.EmailService
	Invites    InviteConfig
	// BootstrapSecret, when set, must accompany every bootstrap request.
	BootstrapSecret string
}

type AdminServiceImpl struct {
	store      *store.Store
	passwords  service.PasswordService
	challenges service.ChallengeService
	invites    *inviter
	audit      auditor
	secret     string
	now        func() time.Time
}

func NewAdminServiceImpl(d AdminDeps) *AdminServiceImpl {
	return &AdminServiceImpl{
		store:      d.Store,
		passwords:  d.Passwords,
		challenges: d.Challenges,
		invites:    newInviter(d.Store, d.Email, d.Invites),
		audit:      auditor{store: d.Store},
		secret:     d.BootstrapSecret,
		now:        time.Now,
	}
}

func (s *AdminServiceImpl) BootstrapStatus(ctx context.Context) (*dto.BootstrapStatusResponse, error) {
	exists, err := s.store.Users().ExistsActiveWithRole(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return nil, err
	}
	msg := "No super admin found. Bootstrap endpoint available."
	if exists {
		msg = "Super admin already exists"
	}
	return &dto.BootstrapStatusResponse{Exists: exists, RequiresBootstrap: !exists, Message: msg}, nil
}

// BootstrapSuperAdmin creates an active super admin. Without a configured
// secret only the first one can be created this way.
func (s *AdminServiceImpl) BootstrapSuperAdmin(ctx context.Context, r dto.BootstrapRequest) (*dto.BootstrapResponse, error) {
	email := normalizeEmail(r.Email)
	name := strings.TrimSpace(r.Name)
	username := strings.TrimSpace(r.Username)
	if name == "" || username == "" || email == "" || r.Password == "" {
		return nil, domain.Invalid("name, username, email, and password are required")
	}
	if err := checkPassword(r.Password); err != nil {
		return nil, err
	}
	if s.secret != "" && subtle.ConstantTimeCompare([]byte(r.SecretKey), []byte(s.secret)) != 1 {
		return nil, domain.ErrBootstrapForbidden
	}
	hash, err := s.passwords.Hash(r.Password)
	if err != nil {
		return nil, err
	}

	accepted := domain.InvitationAccepted
	user := &domain.User{
		Email:        email,
		Username:     username,
		Name:         name,
		PasswordHash: &hash,
		Role:         domain.RoleSuperAdmin,
		Status:       domain.StatusActive,
		Invitation:   &accepted,
		MFAMethod:    domain.MFAMethodNone,
	}
	var challenge string
	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		if s.secret == "" {
			exists, err := tx.Users().ExistsActiveWithRole(ctx, domain.RoleSuperAdmin)
			if err != nil {
				return err
			}
			if exists {
				return domain.ErrBootstrapForbidden
			}
		}
		if err := ensureUnique(ctx, tx, email, username); err != nil {
			return err
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return domain.ErrEmailTaken
			}
			return err
		}
		challenge, err = s.challenges.WithStore(tx).Issue(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.record(ctx, &user.ID, events.SuperAdminBootstrapped{Email: user.Email, WithSecret: s.secret != "", At: s.now().UTC()})
	slog.Info("super admin bootstrapped",
		"user_id", user.ID,
		"request_id", middleware.RequestIDFromContext(ctx),
	)
	return &dto.BootstrapResponse{
		Message:     "First super admin created successfully. Please setup MFA.",
		ChallengeID: challenge,
		User:        toSummary(user),
	}, nil
}

func (s *AdminServiceImpl) InviteAdmin(ctx context.Context, inviterID domain.UserID, r dto.InviteAdminRequest) (*dto.MessageResponse, error) {
	res, err := s.invites.invite(ctx, inviteInput{
		InviterID: &inviterID,
		Email:     r.Email,
		Name:      r.Name,
		Username:  r.Username,
		Role:      domain.RoleAdmin,
	})
	if err != nil {
		return nil, err
	}
	msg := "Admin invitation sent successfully"
	if res.Resent {
		msg = "Admin invitation resent successfully"
	}
	return &dto.MessageResponse{Message: msg}, nil
}

func (s *AdminServiceImpl) ListPendingAdmins(ctx context.Context) (*dto.PendingAdminsResponse, error) {
	users, err := s.store.Users().ListPendingByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	out := &dto.PendingAdminsResponse{Invitations: make([]dto.PendingAdmin, 0, len(users))}
	for i := range users {
		out.Invitations = append(out.Invitations, *toPendingAdmin(&users[i], s.inviterOf(ctx, &users[i])))
	}
	out.Count = len(out.Invitations)
	return out, nil
}

func (s *AdminServiceImpl) GetPendingAdmin(ctx context.Context, id domain.UserID) (*dto.PendingAdmin, error) {
	user, err := s.pendingAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Invitation == nil || *user.Invitation != domain.InvitationPending {
		return nil, domain.ErrPendingAdminNotFound
	}
	return toPendingAdmin(user, s.inviterOf(ctx, user)), nil
}

// AcceptPendingAdmin activates an invited admin. One who has not set a
// password yet still needs a live invitation token.
func (s *AdminServiceImpl) AcceptPendingAdmin(ctx context.Context, id domain.UserID) (*dto.PendingAdminResponse, error) {
	user, err := s.pendingAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Status != domain.StatusPending || user.Invitation == nil {
		return nil, domain.ErrPendingAdminNotFound
	}
	switch *user.Invitation {
	case domain.InvitationPending:
		if !user.InviteLive(s.now().UTC()) {
			return nil, domain.ErrTokenInvalidOrExpired
		}
	case domain.InvitationAccepted:
	default:
		return nil, domain.ErrPendingAdminNotFound
	}
	if err := s.store.Users().Update(ctx, user.ID, map[string]any{"status": domain.StatusActive}); err != nil {
		return nil, err
	}
	user.Status = domain.StatusActive
	s.audit.record(ctx, &user.ID, events.AdminDecision{Approved: true, Email: user.Email, At: s.now().UTC()})
	return &dto.PendingAdminResponse{
		Message: "Admin invitation approved successfully",
		Admin:   toPendingAdmin(user, nil),
	}, nil
}

func (s *AdminServiceImpl) RejectPendingAdmin(ctx context.Context, id domain.UserID) (*dto.PendingAdminResponse, error) {
	user, err := s.pendingAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Invitation == nil || *user.Invitation != domain.InvitationPending {
		return nil, domain.ErrPendingAdminNotFound
	}
	rejected := domain.InvitationRejected
	if err := s.store.Users().Update(ctx, user.ID, map[string]any{
		"invitation":          rejected,
		"status":              domain.StatusInactive,
		"invite_token":        nil,
		"invite_token_expiry": nil,
	}); err != nil {
		return nil, err
	}
	user.Invitation = &rejected
	user.Status = domain.StatusInactive
	user.InviteToken = nil
	user.InviteTokenExpiry = nil
	s.audit.record(ctx, &user.ID, events.AdminDecision{Approved: false, Email: user.Email, At: s.now().UTC()})
	return &dto.PendingAdminResponse{
		Message: "Admin invitation rejected successfully",
		Admin:   toPendingAdmin(user, nil),
	}, nil
}

func (s *AdminServiceImpl) pendingAdmin(ctx context.Context, id domain.UserID) (*domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrPendingAdminNotFound
		}
		return nil, err
	}
	if user.Role != domain.RoleAdmin {
		return nil, domain.ErrPendingAdminNotFound
	}
	return user, nil
}

func (s *AdminServiceImpl) inviterOf(ctx context.Context, u *domain.User) *domain.User {
	if u.InvitedBy == nil {
		return nil
	}
	inviter, err := s.store.Users().GetByID(ctx, *u.InvitedBy)
	if err != nil {
		return nil
	}
	return inviter
}

func ensureUnique(ctx context.Context, tx *store.Store, email, username string) error {
	if _, err := tx.Users().GetByEmail(ctx, email); err == nil {
		return domain.ErrEmailTaken
	} else if !errors.Is(err, store.ErrRecordNotFound) {
		return err
	}
	if _, err := tx.Users().GetByUsername(ctx, username); err == nil {
		return domain.ErrUsernameTaken
	} else if !errors.Is(err, store.ErrRecordNotFound) {
		return err
	}
	return nil
}
