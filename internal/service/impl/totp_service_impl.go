package impl

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"time"

	"expense-auth/internal/service"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

type TOTPConfig struct {
	Issuer string
	// Skew is the number of 30s steps accepted on either side of now.
	Skew   uint
	QRSize int
}

type TOTPServiceImpl struct {
	cfg TOTPConfig
}

func NewTOTPService(cfg TOTPConfig) *TOTPServiceImpl {
	if cfg.Issuer == "" {
		cfg.Issuer = "Expense Tracker"
	}
	if cfg.Skew == 0 {
		cfg.Skew = 2
	}
	if cfg.QRSize <= 0 {
		cfg.QRSize = 256
	}
	return &TOTPServiceImpl{cfg: cfg}
}

func (t *TOTPServiceImpl) Generate(accountName string) (*service.TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      t.cfg.Issuer,
		AccountName: accountName,
		Period:      30,
		SecretSize:  20,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}
	img, err := key.Image(t.cfg.QRSize, t.cfg.QRSize)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return &service.TOTPEnrollment{
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
		QRCode:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// Validate never errors: malformed codes and secrets simply do not verify.
func (t *TOTPServiceImpl) Validate(secret, code string, at time.Time) bool {
	if secret == "" || code == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, at.UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      t.cfg.Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
