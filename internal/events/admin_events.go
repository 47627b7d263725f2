package events

import (
	"time"

	"expense-auth/internal/domain"
)

type SuperAdminBootstrapped struct {
	Email      string    `json:"email"`
	WithSecret bool      `json:"withSecret"`
	At         time.Time `json:"at"`
}

func (SuperAdminBootstrapped) Action() domain.AuditAction {
	return domain.AuditSuperAdminBootstrapped
}

type AdminDecision struct {
	Approved bool      `json:"approved"`
	Email    string    `json:"email"`
	At       time.Time `json:"at"`
}

func (e AdminDecision) Action() domain.AuditAction {
	if e.Approved {
		return domain.AuditAdminApproved
	}
	return domain.AuditAdminRejected
}
