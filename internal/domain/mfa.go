package domain

import "strings"

type MFAMethod string

const (
	MFAMethodNone    MFAMethod = "NONE"
	MFAMethodTOTP    MFAMethod = "TOTP"
	MFAMethodPasskey MFAMethod = "PASSKEY"
)

// ParseMFAMethod accepts the wire names case-insensitively. NONE is not selectable.
func ParseMFAMethod(s string) (MFAMethod, error) {
	switch MFAMethod(strings.ToUpper(strings.TrimSpace(s))) {
	case MFAMethodTOTP:
		return MFAMethodTOTP, nil
	case MFAMethodPasskey:
		return MFAMethodPasskey, nil
	}
	return MFAMethodNone, ErrInvalidMFAMethod
}
