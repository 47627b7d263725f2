package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrChallengeInvalid   = errors.New("invalid or expired challenge")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrMfaSetupRequired   = errors.New("mfa is not enabled, complete mfa setup")
	ErrMfaNotEnabled      = errors.New("mfa is not enabled for this user")
	ErrMfaAlreadyEnabled  = errors.New("mfa is already enabled for this user")
	ErrMethodNotSelected  = errors.New("mfa method not selected")
	ErrInvalidMFAMethod   = errors.New("invalid mfa method, use TOTP or PASSKEY")
	ErrProofMismatch      = errors.New("proof does not match the configured mfa method")
	ErrInvalidOTP         = fmt.Errorf("%w: invalid TOTP code, please try again", ErrInvalidCredentials)

	ErrTokenInvalidOrExpired = errors.New("invalid or expired token")
	ErrAlreadyAccepted       = errors.New("user has already accepted the invitation")
	ErrUsernameTaken         = errors.New("username is already taken")
	ErrEmailTaken            = errors.New("user with this email already exists")
	ErrNotificationFailed    = errors.New("notification delivery failed")
	ErrUserNotFound          = errors.New("user not found")
	ErrBootstrapForbidden    = errors.New("bootstrap not permitted")
	ErrPendingAdminNotFound  = errors.New("pending admin invitation not found or already processed")

	ErrCeremonyMismatch     = errors.New("passkey ceremony mismatch")
	ErrChallengeMismatch    = fmt.Errorf("%w: challenge", ErrCeremonyMismatch)
	ErrOriginMismatch       = fmt.Errorf("%w: origin", ErrCeremonyMismatch)
	ErrRPIDMismatch         = fmt.Errorf("%w: relying party id", ErrCeremonyMismatch)
	ErrCeremonyMissing      = errors.New("no passkey ceremony in progress, restart it")
	ErrCeremonyFailed       = errors.New("passkey verification failed")
	ErrIncompleteCredential = errors.New("incomplete credential data received")
	ErrCredentialExists     = errors.New("passkey already registered")
	ErrNoCredentials        = errors.New("no passkey credentials found for this user")
	ErrCredentialNotFound   = errors.New("credential not found")
	ErrCounterReplay        = errors.New("signature counter did not increase")
)

// Invalid wraps ErrValidation with a caller-facing reason.
func Invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}
