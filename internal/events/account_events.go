// Package events defines the payloads recorded in the audit trail.
package events

import (
	"time"

	"expense-auth/internal/domain"
)

// Event is an audit payload; its JSON form becomes the log's metadata.
type Event interface {
	Action() domain.AuditAction
}

type InvitationSent struct {
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	InvitedBy string    `json:"invitedBy,omitempty"`
	Resent    bool      `json:"resent"`
	Delivered bool      `json:"delivered"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (InvitationSent) Action() domain.AuditAction { return domain.AuditInvitationSent }

type PasswordSet struct {
	At time.Time `json:"at"`
}

func (PasswordSet) Action() domain.AuditAction { return domain.AuditPasswordSet }

type MFAEnabled struct {
	Method string    `json:"method"`
	At     time.Time `json:"at"`
}

func (MFAEnabled) Action() domain.AuditAction { return domain.AuditMFAEnabled }
