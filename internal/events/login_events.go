package events

import (
	"time"

	"expense-auth/internal/domain"
)

// LoginSucceeded is recorded when a bearer token is issued. Method names the
// last factor checked: PASSWORD for the privileged bypass, TOTP or PASSKEY
// otherwise.
type LoginSucceeded struct {
	Method       string    `json:"method"`
	Passwordless bool      `json:"passwordless,omitempty"`
	At           time.Time `json:"at"`
}

func (LoginSucceeded) Action() domain.AuditAction { return domain.AuditLoginSucceeded }

type LoginFailed struct {
	Email  string    `json:"email"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

func (LoginFailed) Action() domain.AuditAction { return domain.AuditLoginFailed }
