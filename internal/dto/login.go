package dto

import "encoding/json"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries either a bearer token or, when a second factor is
// required, the flow challenge for it.
type LoginResponse struct {
	Message     string       `json:"message"`
	Token       string       `json:"token,omitempty"`
	User        *UserSummary `json:"user,omitempty"`
	ChallengeID string       `json:"challengeId,omitempty"`
	MFAMethod   string       `json:"mfa_method,omitempty"`
	Note        string       `json:"note,omitempty"`
}

type VerifyLoginMFARequest struct {
	ChallengeID string          `json:"challengeId"`
	TOTPCode    string          `json:"totpCode,omitempty"`
	Credential  json.RawMessage `json:"credential,omitempty"`
}

type PasskeyOptionsRequest struct {
	Email string `json:"email"`
}

type PasskeyOptionsResponse struct {
	Message string `json:"message"`
	Options any    `json:"options"`
}

type PasskeyVerifyRequest struct {
	Email      string          `json:"email"`
	Credential json.RawMessage `json:"credential"`
}
