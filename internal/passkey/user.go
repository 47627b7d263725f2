package passkey

import (
	"strings"

	"expense-auth/internal/domain"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// User adapts an identity record and its stored passkeys to webauthn.User.
type User struct {
	user        *domain.User
	credentials []webauthn.Credential
	records     []domain.PasskeyCredential
}

// NewUser skips stored rows whose id or key cannot be decoded.
func NewUser(u *domain.User, records []domain.PasskeyCredential) *User {
	out := &User{user: u}
	for _, rec := range records {
		cred, ok := toCredential(rec)
		if !ok {
			continue
		}
		out.credentials = append(out.credentials, cred)
		out.records = append(out.records, rec)
	}
	return out
}

func (u *User) WebAuthnID() []byte { return []byte(u.user.ID.String()) }

func (u *User) WebAuthnName() string { return u.user.Email }

func (u *User) WebAuthnDisplayName() string {
	if u.user.Name != "" {
		return u.user.Name
	}
	return u.user.Email
}

func (u *User) WebAuthnCredentials() []webauthn.Credential { return u.credentials }

// Descriptors lists the usable credentials with the given transports.
func (u *User) Descriptors(transports ...protocol.AuthenticatorTransport) []protocol.CredentialDescriptor {
	out := make([]protocol.CredentialDescriptor, 0, len(u.credentials))
	for _, c := range u.credentials {
		d := c.Descriptor()
		if len(transports) > 0 {
			d.Transport = transports
		}
		out = append(out, d)
	}
	return out
}

// Record returns the stored row whose decoded id equals id.
func (u *User) Record(id []byte) (*domain.PasskeyCredential, bool) {
	for i, c := range u.credentials {
		if string(c.ID) == string(id) {
			return &u.records[i], true
		}
	}
	return nil, false
}

func toCredential(rec domain.PasskeyCredential) (webauthn.Credential, bool) {
	id, err := DecodeStored(rec.CredentialID)
	if err != nil || len(id) == 0 {
		return webauthn.Credential{}, false
	}
	key, err := DecodeStored(rec.PublicKey)
	if err != nil || len(key) == 0 {
		return webauthn.Credential{}, false
	}
	var transports []protocol.AuthenticatorTransport
	for _, t := range strings.Split(rec.Transports, ",") {
		if t = strings.TrimSpace(t); t != "" {
			transports = append(transports, protocol.AuthenticatorTransport(t))
		}
	}
	return webauthn.Credential{
		ID:              id,
		PublicKey:       key,
		AttestationType: rec.AttestationType,
		Transport:       transports,
		Flags: webauthn.CredentialFlags{
			UserPresent:    true,
			BackupEligible: rec.BackupEligible,
			BackupState:    rec.BackupState,
		},
		Authenticator: webauthn.Authenticator{
			AAGUID:    rec.AAGUID,
			SignCount: rec.SignCount,
		},
	}, true
}

// ToRecord converts a freshly verified credential into its stored form.
func ToRecord(userID domain.UserID, c *webauthn.Credential) domain.PasskeyCredential {
	transports := make([]string, 0, len(c.Transport))
	for _, t := range c.Transport {
		transports = append(transports, string(t))
	}
	return domain.PasskeyCredential{
		UserID:          userID,
		CredentialID:    EncodeStored(c.ID),
		PublicKey:       EncodeStored(c.PublicKey),
		SignCount:       c.Authenticator.SignCount,
		AAGUID:          c.Authenticator.AAGUID,
		AttestationType: c.AttestationType,
		Transports:      strings.Join(transports, ","),
		BackupEligible:  c.Flags.BackupEligible,
		BackupState:     c.Flags.BackupState,
	}
}
