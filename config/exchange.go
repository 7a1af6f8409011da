package config

import "time"

// ExchangeConfig contains On-Behalf-Of exchange configuration.
type ExchangeConfig struct {
	// TokenURL overrides the token endpoint. Empty means use the endpoint
	// discovered from the OIDC issuer metadata.
	TokenURL string `env:"TOKEN_URL"`

	// ClientID and ClientSecret identify this service to the token endpoint.
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`

	// Scopes requested for the delegated credential (space-separated in env).
	Scopes []string `env:"SCOPES" envSeparator:" "`

	// Timeout bounds each exchange call.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"8s"`

	// TTLBuffer is subtracted from the delegated credential's remaining
	// lifetime when computing its cache TTL, so a cached credential is never
	// handed out right at its expiry edge.
	TTLBuffer time.Duration `env:"TTL_BUFFER" envDefault:"5m"`

	// MaxTTL caps how long a delegated credential may be cached regardless of
	// its own lifetime.
	MaxTTL time.Duration `env:"MAX_TTL" envDefault:"50m"`
}

// Sanitize applies guardrails to exchange configuration values.
func (e *ExchangeConfig) Sanitize() {
	// The exchange sits on the request path; it gets seconds, not minutes.
	if e.Timeout < time.Second {
		e.Timeout = time.Second
	}
	if e.Timeout > 10*time.Second {
		e.Timeout = 10 * time.Second
	}
	if e.TTLBuffer < 0 {
		e.TTLBuffer = 5 * time.Minute
	}
	if e.MaxTTL <= 0 {
		e.MaxTTL = 50 * time.Minute
	}
}
