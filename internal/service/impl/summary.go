package impl

import (
	"expense-auth/internal/domain"
	"expense-auth/internal/dto"
)

func toSummary(u *domain.User) *dto.UserSummary {
	s := &dto.UserSummary{
		ID:         u.ID.String(),
		Email:      u.Email,
		Name:       u.Name,
		Username:   u.Username,
		Role:       string(u.Role),
		MFAEnabled: u.MFAEnabled,
	}
	if u.MFAMethod != domain.MFAMethodNone {
		s.MFAMethod = string(u.MFAMethod)
	}
	return s
}

func toPendingAdmin(u *domain.User, inviter *domain.User) *dto.PendingAdmin {
	p := &dto.PendingAdmin{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		Username:  u.Username,
		Status:    string(u.Status),
		ExpiresAt: u.InviteTokenExpiry,
		CreatedAt: u.CreatedAt,
	}
	if u.Invitation != nil {
		p.Invitation = string(*u.Invitation)
	}
	if inviter != nil {
		p.InvitedBy = toSummary(inviter)
	}
	return p
}
