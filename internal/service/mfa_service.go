package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"expense-auth/internal/domain"
	"expense-auth/internal/store"

	"github.com/go-webauthn/webauthn/protocol"
)

type TOTPEnrollment struct {
	Secret     string
	OTPAuthURL string
	// QRCode is a data:image/png;base64 URL of OTPAuthURL.
	QRCode string
}

type TOTPService interface {
	Generate(accountName string) (*TOTPEnrollment, error)
	Validate(secret, code string, at time.Time) bool
}

// TxHook runs inside the transaction that persists a successful ceremony.
type TxHook func(tx *store.Store) error

type PasskeyService interface {
	BeginRegistration(ctx context.Context, user *domain.User) (*protocol.CredentialCreation, error)
	CompleteRegistration(ctx context.Context, user *domain.User, credential json.RawMessage, then TxHook) error
	BeginAssertion(ctx context.Context, email string) (*protocol.CredentialAssertion, error)
	CompleteAssertion(ctx context.Context, user *domain.User, credential json.RawMessage, then TxHook) error
}

// FactorProof is the second-factor evidence for one verification. Exactly one
// of Code and Credential is set, matching Method.
type FactorProof struct {
	Method     domain.MFAMethod
	Code       string
	Credential json.RawMessage
}

// RequireProof rejects a verification request that carries neither a code
// nor a passkey credential.
func RequireProof(code string, credential json.RawMessage) error {
	if strings.TrimSpace(code) == "" && !present(credential) {
		return domain.Invalid("a code or passkey credential is required")
	}
	return nil
}

func present(credential json.RawMessage) bool {
	return len(credential) > 0 && string(credential) != "null"
}

func NewFactorProof(method domain.MFAMethod, code string, credential json.RawMessage) (FactorProof, error) {
	code = strings.TrimSpace(code)
	hasCredential := present(credential)
	switch method {
	case domain.MFAMethodTOTP:
		if hasCredential {
			return FactorProof{}, fmt.Errorf("%w: passkey credential sent for TOTP", domain.ErrProofMismatch)
		}
		if code == "" {
			return FactorProof{}, domain.Invalid("TOTP code is required")
		}
		return FactorProof{Method: method, Code: code}, nil
	case domain.MFAMethodPasskey:
		if code != "" {
			return FactorProof{}, fmt.Errorf("%w: code sent for PASSKEY", domain.ErrProofMismatch)
		}
		if !hasCredential {
			return FactorProof{}, domain.Invalid("passkey credential is required")
		}
		return FactorProof{Method: method, Credential: credential}, nil
	default:
		return FactorProof{}, domain.ErrMethodNotSelected
	}
}
