package domain

import "github.com/google/uuid"

type UserID = uuid.UUID
type CredentialID = uuid.UUID

type Role string

const (
	RoleUser       Role = "user"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Privileged roles may log in without a second factor until they enroll one.
func (r Role) Privileged() bool { return r == RoleAdmin || r == RoleSuperAdmin }

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

type AccountStatus string

const (
	StatusPending  AccountStatus = "pending"
	StatusActive   AccountStatus = "active"
	StatusInactive AccountStatus = "inactive"
)

type InvitationState string

const (
	InvitationPending  InvitationState = "pending"
	InvitationAccepted InvitationState = "accepted"
	InvitationRejected InvitationState = "rejected"
)
