package impl

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"expense-auth/internal/domain"
	"expense-auth/internal/dto"
	"expense-auth/internal/events"
	"expense-auth/internal/observability/metrics"
	"expense-auth/internal/observability/middleware"
	"expense-auth/internal/service"
	"expense-auth/internal/store"
)

const passkeyLoginNote = "For PASSKEY MFA, use /api/v1/users/passkey-auth-options and /api/v1/users/passkey-auth-verify endpoints instead of verify-login-mfa"

type AuthDeps struct {
	Store      *store.Store
	Passwords  service.PasswordService
	Challenges service.ChallengeService
	TOTP       service.TOTPService
	Passkeys   service.PasskeyService
	Tokens     service.TokenService
	Email      service.EmailService
	Invites    InviteConfig
}

type AuthServiceImpl struct {
	store      *store.Store
	passwords  service.PasswordService
	challenges service.ChallengeService
	totp       service.TOTPService
	passkeys   service.PasskeyService
	tokens     service.TokenService
	invites    *inviter
	audit      auditor
	now        func() time.Time
}

func NewAuthServiceImpl(d AuthDeps) *AuthServiceImpl {
	return &AuthServiceImpl{
		store:      d.Store,
		passwords:  d.Passwords,
		challenges: d.Challenges,
		totp:       d.TOTP,
		passkeys:   d.Passkeys,
		tokens:     d.Tokens,
		invites:    newInviter(d.Store, d.Email, d.Invites),
		audit:      auditor{store: d.Store},
		now:        time.Now,
	}
}

func (a *AuthServiceImpl) Invite(ctx context.Context, inviterID domain.UserID, r dto.InviteRequest) (*dto.MessageResponse, error) {
	role := domain.Role(strings.ToLower(strings.TrimSpace(r.Role)))
	if role == domain.RoleSuperAdmin {
		return nil, domain.Invalid("super_admin cannot be invited")
	}
	res, err := a.invites.invite(ctx, inviteInput{
		InviterID: &inviterID,
		Email:     r.Email,
		Name:      r.Name,
		Username:  r.Username,
		Role:      role,
	})
	if err != nil {
		return nil, err
	}
	msg := "Invitation sent successfully"
	if res.Resent {
		msg = "Invitation resent successfully"
	}
	return &dto.MessageResponse{Message: msg}, nil
}

// SetupPassword redeems an invitation token. A token sets a password at most
// once.
func (a *AuthServiceImpl) SetupPassword(ctx context.Context, r dto.SetupPasswordRequest) (*dto.ChallengeResponse, error) {
	token := strings.TrimSpace(r.Token)
	if token == "" {
		return nil, domain.Invalid("token is required")
	}
	if err := checkPassword(r.Password); err != nil {
		return nil, err
	}
	hash, err := a.passwords.Hash(r.Password)
	if err != nil {
		return nil, err
	}

	var (
		challenge string
		userID    domain.UserID
	)
	err = a.store.WithTx(ctx, func(tx *store.Store) error {
		user, err := tx.Users().GetByInviteToken(ctx, token, a.now().UTC())
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrTokenInvalidOrExpired
			}
			return err
		}
		userID = user.ID
		if err := tx.Users().ConsumeInviteToken(ctx, user.ID, token); err != nil {
			if errors.Is(err, store.ErrStale) {
				return domain.ErrTokenInvalidOrExpired
			}
			return err
		}
		if err := tx.Users().Update(ctx, user.ID, map[string]any{
			"password_hash": hash,
			"invitation":    domain.InvitationAccepted,
		}); err != nil {
			return err
		}
		challenge, err = a.challenges.WithStore(tx).Issue(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	a.audit.record(ctx, &userID, events.PasswordSet{At: a.now().UTC()})
	return &dto.ChallengeResponse{
		Message:     "Password set successfully. Please select an MFA method.",
		ChallengeID: challenge,
	}, nil
}

func (a *AuthServiceImpl) Login(ctx context.Context, r dto.LoginRequest) (resp *dto.LoginResponse, err error) {
	defer func() {
		metrics.AuthLoginsTotal.WithLabelValues(metrics.Result(err)).Inc()
	}()
	if strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return nil, domain.Invalid("email and password are required")
	}
	user, err := a.verifyPassword(ctx, r.Email, r.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			a.audit.record(ctx, nil, events.LoginFailed{Email: normalizeEmail(r.Email), Reason: "invalid_credentials", At: a.now().UTC()})
		}
		return nil, err
	}
	if user.Status == domain.StatusInactive {
		a.audit.record(ctx, &user.ID, events.LoginFailed{Email: user.Email, Reason: "inactive", At: a.now().UTC()})
		return nil, domain.ErrAccountInactive
	}

	if !user.MFAEnabled {
		if !user.Role.Privileged() {
			return nil, domain.ErrMfaSetupRequired
		}
		if user.Status == domain.StatusPending {
			if err := a.store.Users().Update(ctx, user.ID, map[string]any{"status": domain.StatusActive}); err != nil {
				return nil, err
			}
			user.Status = domain.StatusActive
		}
		token, err := a.tokens.Issue(ctx, user)
		if err != nil {
			return nil, err
		}
		a.audit.record(ctx, &user.ID, events.LoginSucceeded{Method: "PASSWORD", At: a.now().UTC()})
		slog.Info("privileged login without mfa",
			"user_id", user.ID,
			"role", user.Role,
			"request_id", middleware.RequestIDFromContext(ctx),
		)
		return &dto.LoginResponse{Message: "Login successful", Token: token, User: toSummary(user)}, nil
	}

	challenge, err := a.challenges.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	resp = &dto.LoginResponse{
		Message:     "Password is correct. Please verify MFA.",
		ChallengeID: challenge,
		MFAMethod:   string(user.MFAMethod),
	}
	if user.MFAMethod == domain.MFAMethodPasskey {
		resp.Note = passkeyLoginNote
	}
	return resp, nil
}

func (a *AuthServiceImpl) SelectMFAMethod(ctx context.Context, r dto.SelectMFARequest) (*dto.SelectMFAResponse, error) {
	if strings.TrimSpace(r.ChallengeID) == "" {
		return nil, domain.Invalid("challenge id is required")
	}
	if strings.TrimSpace(r.MFAMethod) == "" {
		return nil, domain.Invalid("MFA method is required")
	}
	method, err := domain.ParseMFAMethod(r.MFAMethod)
	if err != nil {
		return nil, err
	}
	user, err := a.challenges.Resolve(ctx, r.ChallengeID)
	if err != nil {
		return nil, err
	}
	if user.MFAEnabled {
		return nil, domain.ErrMfaAlreadyEnabled
	}

	switch method {
	case domain.MFAMethodTOTP:
		enrollment, err := a.totp.Generate(user.Email)
		if err != nil {
			return nil, err
		}
		var next string
		err = a.store.WithTx(ctx, func(tx *store.Store) error {
			ch := a.challenges.WithStore(tx)
			if err := ch.Consume(ctx, user.ID, r.ChallengeID); err != nil {
				return err
			}
			if err := tx.Users().Update(ctx, user.ID, map[string]any{
				"mfa_method": domain.MFAMethodTOTP,
				"mfa_secret": enrollment.Secret,
			}); err != nil {
				return err
			}
			next, err = ch.Issue(ctx, user.ID)
			return err
		})
		if err != nil {
			return nil, err
		}
		return &dto.SelectMFAResponse{
			Message:     "TOTP MFA setup initiated",
			ChallengeID: next,
			Secret:      enrollment.Secret,
			QRCode:      enrollment.QRCode,
			OTPAuthURL:  enrollment.OTPAuthURL,
		}, nil

	default:
		if err := a.store.Users().Update(ctx, user.ID, map[string]any{
			"mfa_method": domain.MFAMethodPasskey,
			"mfa_secret": nil,
		}); err != nil {
			return nil, err
		}
		user.MFAMethod = domain.MFAMethodPasskey
		user.MFASecret = nil
		options, err := a.passkeys.BeginRegistration(ctx, user)
		if err != nil {
			return nil, err
		}
		return &dto.SelectMFAResponse{
			Message:     "PASSKEY MFA setup initiated",
			ChallengeID: r.ChallengeID,
			Options:     options,
		}, nil
	}
}

// VerifyMFASetup proves the newly enrolled factor, enables MFA and activates
// the account.
func (a *AuthServiceImpl) VerifyMFASetup(ctx context.Context, r dto.VerifyMFASetupRequest) (resp *dto.AuthResponse, err error) {
	method := "unknown"
	defer func() {
		metrics.MFAVerificationsTotal.WithLabelValues(method, "setup", metrics.Result(err)).Inc()
	}()

	if err := service.RequireProof(r.Code, r.Credential); err != nil {
		return nil, err
	}
	user, err := a.challenges.Resolve(ctx, r.ChallengeID)
	if err != nil {
		return nil, err
	}
	if user.MFAEnabled {
		return nil, domain.ErrMfaAlreadyEnabled
	}
	proof, err := service.NewFactorProof(user.MFAMethod, r.Code, r.Credential)
	if err != nil {
		return nil, err
	}
	method = string(proof.Method)

	enable := func(tx *store.Store) error {
		if err := a.challenges.WithStore(tx).Consume(ctx, user.ID, r.ChallengeID); err != nil {
			return err
		}
		return tx.Users().Update(ctx, user.ID, map[string]any{
			"mfa_enabled": true,
			"status":      domain.StatusActive,
		})
	}

	switch proof.Method {
	case domain.MFAMethodTOTP:
		if err := a.checkTOTP(user, proof.Code); err != nil {
			return nil, err
		}
		if err := a.store.WithTx(ctx, enable); err != nil {
			return nil, err
		}
	case domain.MFAMethodPasskey:
		if err := a.passkeys.CompleteRegistration(ctx, user, proof.Credential, enable); err != nil {
			return nil, err
		}
	}
	user.MFAEnabled = true
	user.Status = domain.StatusActive
	user.ChallengeID = nil

	token, err := a.tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}
	a.audit.record(ctx, &user.ID, events.MFAEnabled{Method: method, At: a.now().UTC()})
	return &dto.AuthResponse{Message: "MFA setup completed successfully", Token: token, User: toSummary(user)}, nil
}

func (a *AuthServiceImpl) VerifyLoginMFA(ctx context.Context, r dto.VerifyLoginMFARequest) (resp *dto.AuthResponse, err error) {
	method := "unknown"
	defer func() {
		metrics.MFAVerificationsTotal.WithLabelValues(method, "login", metrics.Result(err)).Inc()
	}()

	if err := service.RequireProof(r.TOTPCode, r.Credential); err != nil {
		return nil, err
	}
	user, err := a.challenges.Resolve(ctx, r.ChallengeID)
	if err != nil {
		return nil, err
	}
	if !user.MFAEnabled {
		return nil, domain.ErrMfaNotEnabled
	}
	proof, err := service.NewFactorProof(user.MFAMethod, r.TOTPCode, r.Credential)
	if err != nil {
		return nil, err
	}
	method = string(proof.Method)

	consume := func(tx *store.Store) error {
		return a.challenges.WithStore(tx).Consume(ctx, user.ID, r.ChallengeID)
	}

	switch proof.Method {
	case domain.MFAMethodTOTP:
		if err := a.checkTOTP(user, proof.Code); err != nil {
			return nil, err
		}
		if err := a.store.WithTx(ctx, consume); err != nil {
			return nil, err
		}
	case domain.MFAMethodPasskey:
		if err := a.passkeys.CompleteAssertion(ctx, user, proof.Credential, consume); err != nil {
			return nil, err
		}
	}
	user.ChallengeID = nil

	token, err := a.tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}
	a.audit.record(ctx, &user.ID, events.LoginSucceeded{Method: method, At: a.now().UTC()})
	return &dto.AuthResponse{Message: "Login successful", Token: token, User: toSummary(user)}, nil
}

func (a *AuthServiceImpl) PasskeyAuthOptions(ctx context.Context, r dto.PasskeyOptionsRequest) (*dto.PasskeyOptionsResponse, error) {
	options, err := a.passkeys.BeginAssertion(ctx, r.Email)
	if err != nil {
		return nil, err
	}
	return &dto.PasskeyOptionsResponse{
		Message: "Passkey authentication options generated",
		Options: options,
	}, nil
}

// PasskeyLogin authenticates with a passkey alone.
func (a *AuthServiceImpl) PasskeyLogin(ctx context.Context, r dto.PasskeyVerifyRequest) (resp *dto.AuthResponse, err error) {
	defer func() {
		metrics.MFAVerificationsTotal.WithLabelValues(string(domain.MFAMethodPasskey), "passwordless", metrics.Result(err)).Inc()
	}()
	email := normalizeEmail(r.Email)
	if email == "" || len(r.Credential) == 0 {
		return nil, domain.Invalid("email and credential are required")
	}
	user, err := a.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrNoCredentials
		}
		return nil, err
	}
	if user.Status == domain.StatusInactive {
		return nil, domain.ErrAccountInactive
	}
	if !user.MFAEnabled || user.MFAMethod != domain.MFAMethodPasskey {
		return nil, domain.ErrNoCredentials
	}
	if err := a.passkeys.CompleteAssertion(ctx, user, r.Credential, nil); err != nil {
		return nil, err
	}
	token, err := a.tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}
	a.audit.record(ctx, &user.ID, events.LoginSucceeded{Method: string(domain.MFAMethodPasskey), Passwordless: true, At: a.now().UTC()})
	return &dto.AuthResponse{Message: "Authentication successful", Token: token, User: toSummary(user)}, nil
}

func (a *AuthServiceImpl) Profile(ctx context.Context, userID domain.UserID) (*dto.UserProfile, error) {
	user, err := a.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	p := &dto.UserProfile{
		UserSummary: *toSummary(user),
		Status:      string(user.Status),
		CreatedAt:   user.CreatedAt,
	}
	if user.Invitation != nil {
		p.Invitation = string(*user.Invitation)
	}
	return p, nil
}

const activityLimit = 50

// Activity lists the caller's most recent audit entries.
func (a *AuthServiceImpl) Activity(ctx context.Context, userID domain.UserID) (*dto.ActivityResponse, error) {
	logs, err := a.store.Audit().ListByUser(ctx, userID, activityLimit)
	if err != nil {
		return nil, err
	}
	out := &dto.ActivityResponse{Events: make([]dto.ActivityEntry, 0, len(logs))}
	for _, l := range logs {
		out.Events = append(out.Events, dto.ActivityEntry{
			Action:    string(l.Action),
			IP:        l.IP,
			UserAgent: l.UserAgent,
			Details:   json.RawMessage(l.Metadata),
			At:        l.CreatedAt,
		})
	}
	out.Count = len(out.Events)
	return out, nil
}

// verifyPassword fails the same way for unknown accounts, unset passwords and
// wrong passwords.
func (a *AuthServiceImpl) verifyPassword(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := a.store.Users().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.HasPassword() {
		return nil, domain.ErrInvalidCredentials
	}
	rehashNeeded, ok := a.passwords.Verify(password, *user.PasswordHash)
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	// transparent rehash (policy upgrade)
	if rehashNeeded {
		if hash, err := a.passwords.Hash(password); err == nil {
			if err := a.store.Users().Update(ctx, user.ID, map[string]any{"password_hash": hash}); err != nil {
				slog.Warn("password rehash failed", "user_id", user.ID, "error", err)
			} else {
				user.PasswordHash = &hash
			}
		}
	}
	return user, nil
}

func (a *AuthServiceImpl) checkTOTP(user *domain.User, code string) error {
	if user.MFASecret == nil || *user.MFASecret == "" {
		return domain.ErrMethodNotSelected
	}
	if !a.totp.Validate(*user.MFASecret, code, a.now()) {
		return domain.ErrInvalidOTP
	}
	return nil
}

func checkPassword(password string) error {
	if password == "" {
		return domain.Invalid("password is required")
	}
	if len(password) < MinPasswordLength {
		return domain.Invalid("password must be at least 8 characters")
	}
	return nil
}
