package service

import (
	"context"

	"expense-auth/internal/domain"
	"expense-auth/internal/dto"
)

type AdminService interface {
	BootstrapStatus(ctx context.Context) (*dto.BootstrapStatusResponse, error)
	BootstrapSuperAdmin(ctx context.Context, r dto.BootstrapRequest) (*dto.BootstrapResponse, error)
	InviteAdmin(ctx context.Context, inviterID domain.UserID, r dto.InviteAdminRequest) (*dto.MessageResponse, error)
	ListPendingAdmins(ctx context.Context) (*dto.PendingAdminsResponse, error)
	GetPendingAdmin(ctx context.Context, id domain.UserID) (*dto.PendingAdmin, error)
	AcceptPendingAdmin(ctx context.Context, id domain.UserID) (*dto.PendingAdminResponse, error)
	RejectPendingAdmin(ctx context.Context, id domain.UserID) (*dto.PendingAdminResponse, error)
}
