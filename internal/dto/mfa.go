package dto

import "encoding/json"

type SelectMFARequest struct {
	ChallengeID string `json:"challengeId"`
	MFAMethod   string `json:"mfaMethod"`
}

// SelectMFAResponse holds the TOTP provisioning fields or the passkey
// registration options, depending on the method chosen.
type SelectMFAResponse struct {
	Message     string `json:"message"`
	ChallengeID string `json:"challengeId"`
	Secret      string `json:"secret,omitempty"`
	QRCode      string `json:"qrCode,omitempty"`
	OTPAuthURL  string `json:"otpAuthUrl,omitempty"`
	Options     any    `json:"options,omitempty"`
}

type VerifyMFASetupRequest struct {
	ChallengeID string          `json:"challengeId"`
	Code        string          `json:"code,omitempty"`
	Credential  json.RawMessage `json:"credential,omitempty"`
}
