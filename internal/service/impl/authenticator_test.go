package impl

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-webauthn/webauthn/protocol"
)

const (
	flagUserPresent  = 0x01
	flagUserVerified = 0x04
	flagAttested     = 0x40
)

// softAuthenticator is a software ES256 platform authenticator producing
// "none" attestations and signed assertions.
type softAuthenticator struct {
	t      *testing.T
	key    *ecdsa.PrivateKey
	id     []byte
	rpID   string
	origin string
}

func newSoftAuthenticator(t *testing.T) *softAuthenticator {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	id := make([]byte, 32)
	if _, err := rand.Read(id); err != nil {
		t.Fatalf("credential id: %v", err)
	}
	return &softAuthenticator{t: t, key: key, id: id, rpID: testRPID, origin: testOrigin}
}

func (a *softAuthenticator) coseKey() []byte {
	pub, err := a.key.PublicKey.ECDH()
	if err != nil {
		a.t.Fatalf("ecdh: %v", err)
	}
	raw := pub.Bytes() // 0x04 || X || Y
	b, err := cbor.Marshal(map[int]any{1: 2, 3: -7, -1: 1, -2: raw[1:33], -3: raw[33:65]})
	if err != nil {
		a.t.Fatalf("cose key: %v", err)
	}
	return b
}

func (a *softAuthenticator) authData(flags byte, counter uint32) []byte {
	rp := sha256.Sum256([]byte(a.rpID))
	out := append([]byte{}, rp[:]...)
	out = append(out, flags)
	return binary.BigEndian.AppendUint32(out, counter)
}

func (a *softAuthenticator) clientData(typ, challenge string) []byte {
	b, err := json.Marshal(map[string]any{"type": typ, "challenge": challenge, "origin": a.origin})
	if err != nil {
		a.t.Fatalf("client data: %v", err)
	}
	return b
}

func (a *softAuthenticator) pkg(response map[string]any) json.RawMessage {
	// Browsers differ in alphabet; send the id padded and standard.
	b, err := json.Marshal(map[string]any{
		"id":       base64.RawURLEncoding.EncodeToString(a.id),
		"rawId":    base64.StdEncoding.EncodeToString(a.id),
		"type":     "public-key",
		"response": response,
	})
	if err != nil {
		a.t.Fatalf("credential package: %v", err)
	}
	return b
}

// attest answers a registration ceremony.
func (a *softAuthenticator) attest(challenge string) json.RawMessage {
	data := a.authData(flagUserPresent|flagUserVerified|flagAttested, 0)
	data = append(data, make([]byte, 16)...)
	data = binary.BigEndian.AppendUint16(data, uint16(len(a.id)))
	data = append(data, a.id...)
	data = append(data, a.coseKey()...)

	att, err := cbor.Marshal(map[string]any{"fmt": "none", "attStmt": map[string]any{}, "authData": data})
	if err != nil {
		a.t.Fatalf("attestation object: %v", err)
	}
	return a.pkg(map[string]any{
		"clientDataJSON":    base64.StdEncoding.EncodeToString(a.clientData("webauthn.create", challenge)),
		"attestationObject": base64.URLEncoding.EncodeToString(att),
	})
}

// assert answers an authentication ceremony with the given counter.
func (a *softAuthenticator) assert(challenge string, counter uint32) json.RawMessage {
	data := a.authData(flagUserPresent|flagUserVerified, counter)
	cdj := a.clientData("webauthn.get", challenge)
	cdh := sha256.Sum256(cdj)
	digest := sha256.Sum256(append(append([]byte{}, data...), cdh[:]...))
	sig, err := ecdsa.SignASN1(rand.Reader, a.key, digest[:])
	if err != nil {
		a.t.Fatalf("sign: %v", err)
	}
	return a.pkg(map[string]any{
		"clientDataJSON":    base64.RawURLEncoding.EncodeToString(cdj),
		"authenticatorData": base64.RawStdEncoding.EncodeToString(data),
		"signature":         base64.StdEncoding.EncodeToString(sig),
	})
}

func (a *softAuthenticator) with(rpID, origin string) *softAuthenticator {
	c := *a
	if rpID != "" {
		c.rpID = rpID
	}
	if origin != "" {
		c.origin = origin
	}
	return &c
}

func creationChallenge(t *testing.T, options any) string {
	t.Helper()
	c, ok := options.(*protocol.CredentialCreation)
	if !ok || c == nil {
		t.Fatalf("expected creation options, got %T", options)
	}
	return base64.RawURLEncoding.EncodeToString(c.Response.Challenge)
}

func assertionChallenge(t *testing.T, options any) string {
	t.Helper()
	c, ok := options.(*protocol.CredentialAssertion)
	if !ok || c == nil {
		t.Fatalf("expected assertion options, got %T", options)
	}
	return base64.RawURLEncoding.EncodeToString(c.Response.Challenge)
}
