package impl

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestTOTPGenerateEnrollment(t *testing.T) {
	svc := NewTOTPService(TOTPConfig{Issuer: "Expense Tracker", QRSize: 64})
	enr, err := svc.Generate("alice@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if enr.Secret == "" {
		t.Fatalf("empty secret")
	}
	if !strings.HasPrefix(enr.OTPAuthURL, "otpauth://totp/") || !strings.Contains(enr.OTPAuthURL, "secret="+enr.Secret) {
		t.Fatalf("unexpected otpauth url: %q", enr.OTPAuthURL)
	}
	if !strings.HasPrefix(enr.QRCode, "data:image/png;base64,") {
		t.Fatalf("qr code is not a png data url")
	}
}

func TestTOTPValidateWindow(t *testing.T) {
	svc := NewTOTPService(TOTPConfig{})
	enr, err := svc.Generate("alice@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	// Start of a 30s step so offsets land on step boundaries.
	now := time.Unix(1_700_000_010, 0).Truncate(30 * time.Second)

	cases := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{"current step", 0, true},
		{"one step behind", -30 * time.Second, true},
		{"two steps behind", -60 * time.Second, true},
		{"two steps ahead", 60 * time.Second, true},
		{"four steps behind", -120 * time.Second, false},
		{"four steps ahead", 120 * time.Second, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, err := totp.GenerateCode(enr.Secret, now.Add(tc.offset))
			if err != nil {
				t.Fatalf("generate code: %v", err)
			}
			if got := svc.Validate(enr.Secret, code, now); got != tc.want {
				t.Fatalf("validate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTOTPValidateRejectsGarbage(t *testing.T) {
	svc := NewTOTPService(TOTPConfig{})
	enr, _ := svc.Generate("alice@example.com")
	now := time.Now()
	for _, code := range []string{"", "12345", "abcdef", "1234567"} {
		if svc.Validate(enr.Secret, code, now) {
			t.Fatalf("code %q accepted", code)
		}
	}
	if svc.Validate("", "123456", now) {
		t.Fatalf("empty secret accepted")
	}
}
