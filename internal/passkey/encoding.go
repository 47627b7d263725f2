// Package passkey holds the WebAuthn relying-party settings and the binary
// encoding rules shared by registration and assertion ceremonies.
package passkey

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

var ErrEncoding = errors.New("passkey: undecodable binary field")

var decoders = []*base64.Encoding{
	base64.RawURLEncoding,
	base64.URLEncoding,
	base64.StdEncoding,
	base64.RawStdEncoding,
}

// Decode accepts any of the four base64 alphabets/paddings clients are known
// to send.
func Decode(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEncoding
	}
	for _, enc := range decoders {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, ErrEncoding
}

// EncodeStored is the text form used for credential ids and keys at rest.
func EncodeStored(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// DecodeStored reads values written by EncodeStored, and older rows written
// in a url-safe alphabet.
func DecodeStored(s string) ([]byte, error) { return Decode(s) }

// EncodeWire is the form expected by the ceremony parser.
func EncodeWire(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

var responseFields = []string{
	"clientDataJSON",
	"attestationObject",
	"authenticatorData",
	"signature",
	"userHandle",
}

// Normalize rewrites every binary member of a credential package as unpadded
// base64url. Unknown members pass through untouched. A missing id is filled
// from rawId and the other way round.
func Normalize(raw json.RawMessage) (json.RawMessage, error) {
	var pkg map[string]any
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, ErrEncoding
	}

	id, _ := pkg["id"].(string)
	rawID, _ := pkg["rawId"].(string)
	if id == "" {
		id = rawID
	}
	if rawID == "" {
		rawID = id
	}
	if id != "" {
		idBytes, err := Decode(id)
		if err != nil {
			return nil, err
		}
		pkg["id"] = EncodeWire(idBytes)
		rawBytes, err := Decode(rawID)
		if err != nil {
			return nil, err
		}
		pkg["rawId"] = EncodeWire(rawBytes)
	}
	if _, ok := pkg["type"]; !ok {
		pkg["type"] = "public-key"
	}

	if resp, ok := pkg["response"].(map[string]any); ok {
		for _, field := range responseFields {
			v, ok := resp[field].(string)
			if !ok || v == "" {
				continue
			}
			b, err := Decode(v)
			if err != nil {
				return nil, err
			}
			resp[field] = EncodeWire(b)
		}
	}
	return json.Marshal(pkg)
}

// CredentialID extracts the decoded credential identifier from a normalized
// package.
func CredentialID(normalized json.RawMessage) ([]byte, error) {
	var head struct {
		RawID string `json:"rawId"`
		ID    string `json:"id"`
	}
	if err := json.Unmarshal(normalized, &head); err != nil {
		return nil, err
	}
	if head.RawID == "" {
		head.RawID = head.ID
	}
	return Decode(head.RawID)
}
