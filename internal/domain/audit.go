package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditInvitationSent         AuditAction = "invitation.sent"
	AuditPasswordSet            AuditAction = "password.set"
	AuditMFAEnabled             AuditAction = "mfa.enabled"
	AuditLoginSucceeded         AuditAction = "login.succeeded"
	AuditLoginFailed            AuditAction = "login.failed"
	AuditSuperAdminBootstrapped AuditAction = "super_admin.bootstrapped"
	AuditAdminApproved          AuditAction = "admin.approved"
	AuditAdminRejected          AuditAction = "admin.rejected"
)

// AuditLog is one authentication event. UserID is nil when the attempt could
// not be tied to an account.
type AuditLog struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" db:"id"`
	UserID    *UserID     `gorm:"type:uuid;index" db:"user_id"`
	Action    AuditAction `gorm:"type:text;not null" db:"action"`
	Metadata  []byte      `gorm:"type:jsonb" db:"metadata"`
	IP        string      `gorm:"type:text" db:"ip"`
	UserAgent string      `gorm:"type:text" db:"user_agent"`
	CreatedAt time.Time   `gorm:"not null;index" db:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
