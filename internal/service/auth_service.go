package service

import (
	"context"

	"expense-auth/internal/domain"
	"expense-auth/internal/dto"
)

// AuthService drives an invited user from first password through MFA
// enrollment and every later login.
type AuthService interface {
	Invite(ctx context.Context, inviterID domain.UserID, r dto.InviteRequest) (*dto.MessageResponse, error)
	SetupPassword(ctx context.Context, r dto.SetupPasswordRequest) (*dto.ChallengeResponse, error)
	Login(ctx context.Context, r dto.LoginRequest) (*dto.LoginResponse, error)
	SelectMFAMethod(ctx context.Context, r dto.SelectMFARequest) (*dto.SelectMFAResponse, error)
	VerifyMFASetup(ctx context.Context, r dto.VerifyMFASetupRequest) (*dto.AuthResponse, error)
	VerifyLoginMFA(ctx context.Context, r dto.VerifyLoginMFARequest) (*dto.AuthResponse, error)
	PasskeyAuthOptions(ctx context.Context, r dto.PasskeyOptionsRequest) (*dto.PasskeyOptionsResponse, error)
	PasskeyLogin(ctx context.Context, r dto.PasskeyVerifyRequest) (*dto.AuthResponse, error)
	Profile(ctx context.Context, userID domain.UserID) (*dto.UserProfile, error)
	Activity(ctx context.Context, userID domain.UserID) (*dto.ActivityResponse, error)
}
