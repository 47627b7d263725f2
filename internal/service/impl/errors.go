package impl

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

var (
	ErrEmptyPassword  = errors.New("empty password")
	ErrMalformedHash  = errors.New("malformed password hash")
	ErrUnsupportedAlg = errors.New("unsupported password hash algorithm")
)

const MinPasswordLength = 8

// randomHex returns n random bytes, hex encoded.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
