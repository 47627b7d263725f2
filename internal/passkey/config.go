package passkey

import (
	"net/url"
	"strings"

	"github.com/go-webauthn/webauthn/webauthn"
)

type Config struct {
	RPDisplayName string
	RPID          string
	RPOrigins     []string
}

// NewConfig derives the relying-party origins from the frontend URL when no
// explicit list is given.
func NewConfig(displayName, rpID, frontendURL string, origins []string) Config {
	cfg := Config{RPDisplayName: displayName, RPID: rpID}
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			cfg.RPOrigins = append(cfg.RPOrigins, o)
		}
	}
	if len(cfg.RPOrigins) == 0 && frontendURL != "" {
		cfg.RPOrigins = []string{strings.TrimRight(frontendURL, "/")}
	}
	if cfg.RPID == "" && len(cfg.RPOrigins) > 0 {
		if u, err := url.Parse(cfg.RPOrigins[0]); err == nil {
			cfg.RPID = u.Hostname()
		}
	}
	return cfg
}

func (c Config) AllowsOrigin(origin string) bool {
	origin = strings.TrimRight(origin, "/")
	for _, o := range c.RPOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

func (c Config) WebAuthn() (*webauthn.WebAuthn, error) {
	return webauthn.New(&webauthn.Config{
		RPDisplayName: c.RPDisplayName,
		RPID:          c.RPID,
		RPOrigins:     c.RPOrigins,
	})
}
