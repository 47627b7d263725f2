package dto

import "time"

type BootstrapStatusResponse struct {
	Exists            bool   `json:"exists"`
	RequiresBootstrap bool   `json:"requiresBootstrap"`
	Message           string `json:"message"`
}

type BootstrapRequest struct {
	Name      string `json:"name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	SecretKey string `json:"secretKey,omitempty"`
}

type BootstrapResponse struct {
	Message     string       `json:"message"`
	ChallengeID string       `json:"challengeId"`
	User        *UserSummary `json:"user"`
}

type InviteAdminRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
}

type PendingAdmin struct {
	ID         string       `json:"id"`
	Email      string       `json:"email"`
	Name       string       `json:"name"`
	Username   string       `json:"username"`
	Status     string       `json:"status"`
	Invitation string       `json:"invitation"`
	ExpiresAt  *time.Time   `json:"inviteTokenExpiry,omitempty"`
	InvitedBy  *UserSummary `json:"invitedBy,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}

type PendingAdminsResponse struct {
	Count       int            `json:"count"`
	Invitations []PendingAdmin `json:"invitations"`
}

type PendingAdminResponse struct {
	Message string        `json:"message"`
	Admin   *PendingAdmin `json:"admin"`
}
