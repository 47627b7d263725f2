package impl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"expense-auth/internal/domain"
	"expense-auth/internal/events"
	"expense-auth/internal/observability/metrics"
	"expense-auth/internal/observability/middleware"
	"expense-auth/internal/service"
	"expense-auth/internal/store"
)

const inviteTokenBytes = 32

type InviteConfig struct {
	FrontendURL string
	TTL         time.Duration
}

// inviter creates or refreshes an invitation and notifies the invitee once the
// state change is committed.
type inviter struct {
	store *store.Store
	email service.EmailService
	cfg   InviteConfig
	audit auditor
	now   func() time.Time
}

type inviteInput struct {
	InviterID *domain.UserID
	Email     string
	Name      string
	Username  string
	// Role is applied to new users, and to existing ones when set.
	Role domain.Role
}

type inviteResult struct {
	User   *domain.User
	Resent bool
}

func newInviter(st *store.Store, email service.EmailService, cfg InviteConfig) *inviter {
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	return &inviter{store: st, email: email, cfg: cfg, audit: auditor{store: st}, now: time.Now}
}

func (i *inviter) invite(ctx context.Context, in inviteInput) (*inviteResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, domain.Invalid("email is required")
	}
	if !strings.Contains(email, "@") {
		return nil, domain.Invalid("email is malformed")
	}
	if in.Role != "" && !in.Role.Valid() {
		return nil, domain.Invalid("unknown role")
	}

	token, err := randomHex(inviteTokenBytes)
	if err != nil {
		return nil, err
	}
	expiry := i.now().UTC().Add(i.cfg.TTL)
	pending := domain.InvitationPending

	var res inviteResult
	err = i.store.WithTx(ctx, func(tx *store.Store) error {
		existing, err := tx.Users().GetByEmail(ctx, email)
		switch {
		case err == nil:
			if existing.InvitationAccepted() {
				return domain.ErrAlreadyAccepted
			}
			existing.InviteToken = &token
			existing.InviteTokenExpiry = &expiry
			existing.Invitation = &pending
			existing.Status = domain.StatusPending
			if in.Role != "" {
				existing.Role = in.Role
			}
			if name := strings.TrimSpace(in.Name); name != "" {
				existing.Name = name
			}
			if in.InviterID != nil {
				existing.InvitedBy = in.InviterID
			}
			if err := tx.Users().Save(ctx, existing); err != nil {
				return err
			}
			res = inviteResult{User: existing, Resent: true}
			return nil

		case errors.Is(err, store.ErrRecordNotFound):
			local := strings.SplitN(email, "@", 2)[0]
			username := strings.TrimSpace(in.Username)
			if username == "" {
				username = local
			}
			if _, err := tx.Users().GetByUsername(ctx, username); err == nil {
				return domain.ErrUsernameTaken
			} else if !errors.Is(err, store.ErrRecordNotFound) {
				return err
			}
			name := strings.TrimSpace(in.Name)
			if name == "" {
				name = local
			}
			role := in.Role
			if role == "" {
				role = domain.RoleUser
			}
			u := &domain.User{
				Email:             email,
				Username:          username,
				Name:              name,
				Role:              role,
				Status:            domain.StatusPending,
				Invitation:        &pending,
				InviteToken:       &token,
				InviteTokenExpiry: &expiry,
				InvitedBy:         in.InviterID,
				MFAMethod:         domain.MFAMethodNone,
			}
			if err := tx.Users().Create(ctx, u); err != nil {
				if errors.Is(err, store.ErrDuplicate) {
					return domain.ErrEmailTaken
				}
				return err
			}
			res = inviteResult{User: u}
			return nil

		default:
			return err
		}
	})
	if err != nil {
		metrics.AuthInvitationsTotal.WithLabelValues(string(in.Role), "failure").Inc()
		return nil, err
	}

	outcome := "invited"
	if res.Resent {
		outcome = "resent"
	}
	metrics.AuthInvitationsTotal.WithLabelValues(string(res.User.Role), outcome).Inc()

	inv := service.Invitation{
		To:        res.User.Email,
		Name:      res.User.Name,
		Role:      string(res.User.Role),
		Link:      i.link(token),
		ExpiresAt: expiry,
		Resent:    res.Resent,
	}
	sendErr := i.email.SendInvitation(ctx, inv)
	ev := events.InvitationSent{
		Email:     inv.To,
		Role:      inv.Role,
		Resent:    res.Resent,
		Delivered: sendErr == nil,
		ExpiresAt: expiry,
	}
	if in.InviterID != nil {
		ev.InvitedBy = in.InviterID.String()
	}
	i.audit.record(ctx, &res.User.ID, ev)

	if err := sendErr; err != nil {
		slog.Error("invitation stored but notification failed",
			"user_id", res.User.ID,
			"error", err,
			"request_id", middleware.RequestIDFromContext(ctx),
			"trace_id", middleware.TraceIDFromContext(ctx),
		)
		return &res, fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
	}
	return &res, nil
}

func (i *inviter) link(token string) string {
	return strings.TrimRight(i.cfg.FrontendURL, "/") + "/set-password?token=" + url.QueryEscape(token)
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
