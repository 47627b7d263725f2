package impl

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"expense-auth/internal/domain"
	"expense-auth/internal/observability/metrics"
	"expense-auth/internal/observability/middleware"
	"expense-auth/internal/passkey"
	"expense-auth/internal/service"
	"expense-auth/internal/store"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

type passkeyProvider interface {
	BeginRegistration(user webauthn.User, opts ...webauthn.RegistrationOption) (*protocol.CredentialCreation, *webauthn.SessionData, error)
	CreateCredential(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialCreationData) (*webauthn.Credential, error)
	BeginLogin(user webauthn.User, opts ...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error)
	ValidateLogin(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialAssertionData) (*webauthn.Credential, error)
}

type passkeyParser interface {
	ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error)
	ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error)
}

type defaultPasskeyParser struct{}

func (defaultPasskeyParser) ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error) {
	return protocol.ParseCredentialCreationResponseBytes(data)
}

func (defaultPasskeyParser) ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error) {
	return protocol.ParseCredentialRequestResponseBytes(data)
}

type PasskeyServiceImpl struct {
	store    *store.Store
	cfg      passkey.Config
	provider passkeyProvider
	parser   passkeyParser
	now      func() time.Time
}

func NewPasskeyService(st *store.Store, cfg passkey.Config) (*PasskeyServiceImpl, error) {
	wa, err := cfg.WebAuthn()
	if err != nil {
		return nil, fmt.Errorf("configure webauthn: %w", err)
	}
	return &PasskeyServiceImpl{
		store:    st,
		cfg:      cfg,
		provider: wa,
		parser:   defaultPasskeyParser{},
		now:      time.Now,
	}, nil
}

func (p *PasskeyServiceImpl) BeginRegistration(ctx context.Context, user *domain.User) (*protocol.CredentialCreation, error) {
	records, err := p.store.Passkeys().ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	pu := passkey.NewUser(user, records)

	opts := []webauthn.RegistrationOption{
		webauthn.WithConveyancePreference(protocol.PreferNoAttestation),
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.Platform,
			ResidentKey:             protocol.ResidentKeyRequirementPreferred,
			UserVerification:        protocol.VerificationPreferred,
		}),
	}
	if existing := pu.Descriptors(); len(existing) > 0 {
		opts = append(opts, webauthn.WithExclusions(existing))
	}

	creation, session, err := p.provider.BeginRegistration(pu, opts...)
	if err != nil {
		return nil, fmt.Errorf("begin passkey registration: %w", err)
	}
	if err := p.saveSession(ctx, p.store, user, session); err != nil {
		return nil, err
	}
	return creation, nil
}

// CompleteRegistration verifies the attestation against the stored ceremony
// and appends the new credential. then runs in the same transaction.
func (p *PasskeyServiceImpl) CompleteRegistration(ctx context.Context, user *domain.User, raw json.RawMessage, then service.TxHook) (err error) {
	defer func() {
		metrics.PasskeyCeremoniesTotal.WithLabelValues("registration", metrics.Result(err)).Inc()
	}()

	session, err := loadSession(user)
	if err != nil {
		return err
	}
	normalized, credID, err := normalizeCredential(raw)
	if err != nil {
		return err
	}
	parsed, err := p.parser.ParseCredentialCreationResponseBytes(normalized)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIncompleteCredential, err)
	}
	if err := p.checkCeremony(session, parsed.Response.CollectedClientData, parsed.Response.AttestationObject.AuthData.RPIDHash); err != nil {
		p.abandon(ctx, user, err)
		return err
	}

	records, err := p.store.Passkeys().ListByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	pu := passkey.NewUser(user, records)
	if _, exists := pu.Record(credID); exists {
		return domain.ErrCredentialExists
	}

	cred, err := p.provider.CreateCredential(pu, *session, parsed)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCeremonyFailed, err)
	}
	if len(cred.ID) == 0 || len(cred.PublicKey) == 0 {
		return domain.ErrIncompleteCredential
	}

	rec := passkey.ToRecord(user.ID, cred)
	err = p.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Passkeys().Append(ctx, &rec); err != nil {
			return err
		}
		if err := tx.Users().ClearWebAuthnSession(ctx, user.ID); err != nil {
			return err
		}
		if then != nil {
			return then(tx)
		}
		return nil
	})
	if errors.Is(err, store.ErrDuplicate) {
		return domain.ErrCredentialExists
	}
	if err != nil {
		return err
	}
	user.WebAuthnSession = nil

	slog.Info("passkey registered",
		"user_id", user.ID,
		"credential", rec.ID,
		"request_id", middleware.RequestIDFromContext(ctx),
	)
	return nil
}

// BeginAssertion answers ErrNoCredentials for unknown emails as well, so the
// endpoint does not reveal which accounts exist.
func (p *PasskeyServiceImpl) BeginAssertion(ctx context.Context, email string) (*protocol.CredentialAssertion, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domain.Invalid("email is required")
	}
	user, err := p.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrNoCredentials
		}
		return nil, err
	}
	if !user.MFAEnabled || user.MFAMethod != domain.MFAMethodPasskey {
		return nil, domain.ErrNoCredentials
	}
	records, err := p.store.Passkeys().ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	pu := passkey.NewUser(user, records)
	if len(pu.WebAuthnCredentials()) == 0 {
		return nil, domain.ErrNoCredentials
	}

	assertion, session, err := p.provider.BeginLogin(pu,
		webauthn.WithAllowedCredentials(pu.Descriptors(protocol.Internal, protocol.Hybrid)),
		webauthn.WithUserVerification(protocol.VerificationPreferred),
	)
	if err != nil {
		return nil, fmt.Errorf("begin passkey login: %w", err)
	}
	if err := p.saveSession(ctx, p.store, user, session); err != nil {
		return nil, err
	}
	return assertion, nil
}

// CompleteAssertion verifies a signed assertion and advances the stored
// counter. The counter must strictly increase.
func (p *PasskeyServiceImpl) CompleteAssertion(ctx context.Context, user *domain.User, raw json.RawMessage, then service.TxHook) (err error) {
	defer func() {
		metrics.PasskeyCeremoniesTotal.WithLabelValues("assertion", metrics.Result(err)).Inc()
	}()

	session, err := loadSession(user)
	if err != nil {
		return err
	}
	normalized, credID, err := normalizeCredential(raw)
	if err != nil {
		return err
	}

	records, err := p.store.Passkeys().ListByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	pu := passkey.NewUser(user, records)
	rec, ok := pu.Record(credID)
	if !ok {
		return domain.ErrCredentialNotFound
	}

	parsed, err := p.parser.ParseCredentialRequestResponseBytes(normalized)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIncompleteCredential, err)
	}
	if err := p.checkCeremony(session, parsed.Response.CollectedClientData, parsed.Response.AuthenticatorData.RPIDHash); err != nil {
		p.abandon(ctx, user, err)
		return err
	}
	counter := parsed.Response.AuthenticatorData.Counter
	if counter <= rec.SignCount {
		return domain.ErrCounterReplay
	}
	if _, err := p.provider.ValidateLogin(pu, *session, parsed); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCeremonyFailed, err)
	}

	err = p.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Passkeys().AdvanceCounter(ctx, rec.ID, rec.SignCount, counter, p.now().UTC()); err != nil {
			if errors.Is(err, store.ErrStale) {
				return domain.ErrCounterReplay
			}
			return err
		}
		if err := tx.Users().ClearWebAuthnSession(ctx, user.ID); err != nil {
			return err
		}
		if then != nil {
			return then(tx)
		}
		return nil
	})
	if err != nil {
		return err
	}
	user.WebAuthnSession = nil
	return nil
}

func (p *PasskeyServiceImpl) checkCeremony(session *webauthn.SessionData, client protocol.CollectedClientData, rpIDHash []byte) error {
	got, err := passkey.Decode(client.Challenge)
	if err != nil {
		return domain.ErrChallengeMismatch
	}
	want, err := passkey.Decode(session.Challenge)
	if err != nil || !bytes.Equal(got, want) {
		return domain.ErrChallengeMismatch
	}
	if !p.cfg.AllowsOrigin(client.Origin) {
		return domain.ErrOriginMismatch
	}
	rpHash := sha256.Sum256([]byte(p.cfg.RPID))
	if !bytes.Equal(rpIDHash, rpHash[:]) {
		return domain.ErrRPIDMismatch
	}
	return nil
}

// abandon drops a ceremony that failed a terminal check; the client has to
// start over for a fresh challenge.
func (p *PasskeyServiceImpl) abandon(ctx context.Context, user *domain.User, cause error) {
	if err := p.store.Users().ClearWebAuthnSession(ctx, user.ID); err != nil {
		slog.Warn("clear passkey session", "user_id", user.ID, "error", err)
	}
	user.WebAuthnSession = nil
	slog.Warn("passkey ceremony rejected",
		"user_id", user.ID,
		"reason", cause,
		"request_id", middleware.RequestIDFromContext(ctx),
	)
}

func (p *PasskeyServiceImpl) saveSession(ctx context.Context, st *store.Store, user *domain.User, session *webauthn.SessionData) error {
	blob, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := st.Users().SetWebAuthnSession(ctx, user.ID, string(blob)); err != nil {
		return err
	}
	s := string(blob)
	user.WebAuthnSession = &s
	return nil
}

func loadSession(user *domain.User) (*webauthn.SessionData, error) {
	if user.WebAuthnSession == nil || *user.WebAuthnSession == "" {
		return nil, domain.ErrCeremonyMissing
	}
	var session webauthn.SessionData
	if err := json.Unmarshal([]byte(*user.WebAuthnSession), &session); err != nil {
		return nil, domain.ErrCeremonyMissing
	}
	return &session, nil
}

func normalizeCredential(raw json.RawMessage) (json.RawMessage, []byte, error) {
	if len(raw) == 0 {
		return nil, nil, domain.ErrIncompleteCredential
	}
	normalized, err := passkey.Normalize(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrIncompleteCredential, err)
	}
	id, err := passkey.CredentialID(normalized)
	if err != nil || len(id) == 0 {
		return nil, nil, domain.ErrIncompleteCredential
	}
	return normalized, id, nil
}
