package impl

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"expense-auth/internal/domain"
	"expense-auth/internal/dto"
)

// enrollPasskey takes a fresh user through passkey selection and setup
// verification.
func enrollPasskey(t *testing.T, f *fixture, email string) (*domain.User, *softAuthenticator) {
	t.Helper()
	ctx := context.Background()
	u := f.seedUser(t, email, domain.RoleUser)
	ch, err := f.challenges.Issue(ctx, u.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	sel, err := f.auth.SelectMFAMethod(ctx, dto.SelectMFARequest{ChallengeID: ch, MFAMethod: "PASSKEY"})
	if err != nil {
		t.Fatalf("select passkey: %v", err)
	}
	if sel.ChallengeID != ch {
		t.Fatalf("passkey selection should keep the flow challenge")
	}
	auth := newSoftAuthenticator(t)
	resp, err := f.auth.VerifyMFASetup(ctx, dto.VerifyMFASetupRequest{
		ChallengeID: ch,
		Credential:  auth.attest(creationChallenge(t, sel.Options)),
	})
	if err != nil {
		t.Fatalf("verify passkey setup: %v", err)
	}
	if resp.Token == "" || resp.User.MFAMethod != "PASSKEY" {
		t.Fatalf("unexpected setup response: %+v", resp)
	}
	return f.reload(t, u.ID), auth
}

func (f *fixture) assertionOptions(t *testing.T, email string) string {
	t.Helper()
	opts, err := f.auth.PasskeyAuthOptions(context.Background(), dto.PasskeyOptionsRequest{Email: email})
	if err != nil {
		t.Fatalf("passkey options: %v", err)
	}
	return assertionChallenge(t, opts.Options)
}

func TestPasskeyEnrollmentStoresCredential(t *testing.T) {
	f := newFixture(t)
	u, auth := enrollPasskey(t, f, "p@example.com")

	if !u.MFAEnabled || u.Status != domain.StatusActive || u.ChallengeID != nil || u.WebAuthnSession != nil {
		t.Fatalf("unexpected user after enrollment: %+v", u)
	}
	creds, err := f.store.Passkeys().ListByUser(context.Background(), u.ID)
	if err != nil || len(creds) != 1 {
		t.Fatalf("expected one credential: %v %d", err, len(creds))
	}
	if creds[0].CredentialID != base64.StdEncoding.EncodeToString(auth.id) {
		t.Fatalf("credential id stored as %q", creds[0].CredentialID)
	}
	if creds[0].SignCount != 0 || creds[0].PublicKey == "" {
		t.Fatalf("unexpected credential: %+v", creds[0])
	}
}

func TestPasskeyLoginAfterPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, auth := enrollPasskey(t, f, "p@example.com")

	login, err := f.auth.Login(ctx, dto.LoginRequest{Email: "p@example.com", Password: testPassword})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.MFAMethod != "PASSKEY" || login.Note == "" || login.ChallengeID == "" {
		t.Fatalf("unexpected login response: %+v", login)
	}

	_, err = f.auth.VerifyLoginMFA(ctx, dto.VerifyLoginMFARequest{ChallengeID: login.ChallengeID, TOTPCode: "123456"})
	expectErr(t, err, domain.ErrProofMismatch)

	challenge := f.assertionOptions(t, "p@example.com")
	resp, err := f.auth.VerifyLoginMFA(ctx, dto.VerifyLoginMFARequest{
		ChallengeID: login.ChallengeID,
		Credential:  auth.assert(challenge, 1),
	})
	if err != nil {
		t.Fatalf("verify login: %v", err)
	}
	if p, err := f.tokens.Parse(resp.Token); err != nil || p.UserID != u.ID {
		t.Fatalf("bad token: %v", err)
	}

	creds, _ := f.store.Passkeys().ListByUser(ctx, u.ID)
	if creds[0].SignCount != 1 || creds[0].LastUsedAt == nil {
		t.Fatalf("counter not advanced: %+v", creds[0])
	}
	if got := f.reload(t, u.ID); got.ChallengeID != nil || got.WebAuthnSession != nil {
		t.Fatalf("challenge and ceremony should both be consumed")
	}
}

func TestPasskeyLoginRejectsReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, auth := enrollPasskey(t, f, "p@example.com")

	pkg := auth.assert(f.assertionOptions(t, "p@example.com"), 1)
	if _, err := f.auth.PasskeyLogin(ctx, dto.PasskeyVerifyRequest{Email: "p@example.com", Credential: pkg}); err != nil {
		t.Fatalf("passkey login: %v", err)
	}

	_, err := f.auth.PasskeyLogin(ctx, dto.PasskeyVerifyRequest{Email: "p@example.com", Credential: pkg})
	expectErr(t, err, domain.ErrCeremonyMissing)

	challenge := f.assertionOptions(t, "p@example.com")
	_, err = f.auth.PasskeyLogin(ctx, dto.PasskeyVerifyRequest{Email: "p@example.com", Credential: auth.assert(challenge, 1)})
	expectErr(t, err, domain.ErrCounterReplay)

	if _, err := f.auth.PasskeyLogin(ctx, dto.PasskeyVerifyRequest{Email: "p@example.com", Credential: auth.assert(challenge, 2)}); err != nil {
		t.Fatalf("fresh counter should verify: %v", err)
	}
}

func TestPasskeyLoginCeremonyMismatches(t *testing.T) {
	wrongChallenge := base64.RawURLEncoding.EncodeToString([]byte("not the issued challenge value!!"))
	cases := []struct {
		name string
		pkg  func(a *softAuthenticator, challenge string) []byte
		want error
	}{
		{"challenge", func(a *softAuthenticator, _ string) []byte { return a.assert(wrongChallenge, 5) }, domain.ErrChallengeMismatch},
		{"origin", func(a *softAuthenticator, c string) []byte { return a.with("", "https://evil.example.com").assert(c, 5) }, domain.ErrOriginMismatch},
		{"rp id", func(a *softAuthenticator, c string) []byte { return a.with("evil.example.com", "").assert(c, 5) }, domain.ErrRPIDMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			u, auth := enrollPasskey(t, f, "p@example.com")

			challenge := f.assertionOptions(t, "p@example.com")
			_, err := f.auth.PasskeyLogin(ctx, dto.PasskeyVerifyRequest{Email: "p@example.com", Credential: tc.pkg(auth, challenge)})
			expectErr(t, err, tc.want)
			if !errors.Is(err, domain.ErrCeremonyMismatch) {
				t.Fatalf("%v should be a ceremony mismatch", err)
			}

			// The ceremony is abandoned, so even a correct answer needs new options.
			if got := f.reload(t, u.ID); got.WebAuthnSession != nil {
				t.Fatalf("ceremony should be cleared")
			}
			_, err = f.auth.PasskeyLogin(ctx, dto.PasskeyVerifyRequest{Email: "p@example.com", Credential: auth.assert(challenge, 5)})
			expectErr(t, err, domain.ErrCeremonyMissing)
		})
	}
}

func TestPasskeyLoginUnknownCredential(t *testing.T) {
	f := newFixture(t)
	enrollPasskey(t, f, "p@example.com")

	stranger := newSoftAuthenticator(t)
	challenge := f.assertionOptions(t, "p@example.com")
	_, err := f.auth.PasskeyLogin(context.Background(), dto.PasskeyVerifyRequest{Email: "p@example.com", Credential: stranger.assert(challenge, 1)})
	expectErr(t, err, domain.ErrCredentialNotFound)
}

func TestPasskeyOptionsWithoutCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "plain@example.com", domain.RoleUser)

	for _, email := range []string{"ghost@example.com", "plain@example.com"} {
		_, err := f.auth.PasskeyAuthOptions(ctx, dto.PasskeyOptionsRequest{Email: email})
		expectErr(t, err, domain.ErrNoCredentials)
	}
	_, err := f.auth.PasskeyAuthOptions(ctx, dto.PasskeyOptionsRequest{})
	expectErr(t, err, domain.ErrValidation)

	_, err = f.auth.PasskeyLogin(ctx, dto.PasskeyVerifyRequest{Email: "ghost@example.com", Credential: []byte(`{"id":"AQID"}`)})
	expectErr(t, err, domain.ErrNoCredentials)
}

func TestPasskeySetupRejectsWrongChallenge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "p@example.com", domain.RoleUser)
	ch, _ := f.challenges.Issue(ctx, u.ID)
	sel, err := f.auth.SelectMFAMethod(ctx, dto.SelectMFARequest{ChallengeID: ch, MFAMethod: "passkey"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	auth := newSoftAuthenticator(t)

	_, err = f.auth.VerifyMFASetup(ctx, dto.VerifyMFASetupRequest{
		ChallengeID: ch,
		Credential:  auth.attest(strings.Repeat("A", 43)),
	})
	expectErr(t, err, domain.ErrChallengeMismatch)

	_, err = f.auth.VerifyMFASetup(ctx, dto.VerifyMFASetupRequest{
		ChallengeID: ch,
		Credential:  auth.attest(creationChallenge(t, sel.Options)),
	})
	expectErr(t, err, domain.ErrCeremonyMissing)

	got := f.reload(t, u.ID)
	if got.MFAEnabled || got.ChallengeID == nil || *got.ChallengeID != ch {
		t.Fatalf("failed setup must not enable mfa or burn the challenge: %+v", got)
	}
}

func TestPasskeyRegistrationRejectsDuplicateCredential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, auth := enrollPasskey(t, f, "p@example.com")

	creation, err := f.passkeys.BeginRegistration(ctx, u)
	if err != nil {
		t.Fatalf("begin registration: %v", err)
	}
	err = f.passkeys.CompleteRegistration(ctx, u, auth.attest(creationChallenge(t, creation)), nil)
	expectErr(t, err, domain.ErrCredentialExists)

	creds, _ := f.store.Passkeys().ListByUser(ctx, u.ID)
	if len(creds) != 1 {
		t.Fatalf("duplicate credential stored")
	}
}
