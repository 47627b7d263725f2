package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadRequiresSigningKey(t *testing.T) {
	t.Setenv("SIGNING_KEY", "")
	if _, err := Load(); !errors.Is(err, ErrMissingSigningKey) {
		t.Fatalf("expected ErrMissingSigningKey, got %v", err)
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("SIGNING_KEY", "k")
	t.Setenv("ACCESS_TTL", "")
	t.Setenv("INVITE_TTL", "48h")
	t.Setenv("RP_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("SMTP_PORT", "not-a-port")
	t.Setenv("DB_DRIVER", "SQLite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AccessTTL != time.Hour {
		t.Fatalf("access ttl: got %v", cfg.AccessTTL)
	}
	if cfg.InviteTTL != 48*time.Hour {
		t.Fatalf("invite ttl: got %v", cfg.InviteTTL)
	}
	if len(cfg.RPOrigins) != 2 || cfg.RPOrigins[1] != "https://b.example" {
		t.Fatalf("rp origins: got %v", cfg.RPOrigins)
	}
	if cfg.SMTP.Port != 587 {
		t.Fatalf("smtp port fallback: got %d", cfg.SMTP.Port)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("db driver: got %q", cfg.DBDriver)
	}
	if cfg.SMTP.Enabled() {
		t.Fatalf("smtp should be disabled without host")
	}
}
