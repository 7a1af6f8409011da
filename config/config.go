package config

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: inbound credential verification
//   - exchange.go: delegated credential (On-Behalf-Of) exchange
//   - database.go: Postgres, Redis, and cache configuration
//   - authz.go: group rights directory
//   - storage.go: downstream document store
//   - http.go: HTTP server configuration
//   - observability.go: metrics emission
type AppConfig struct {
	// IsDev loosens guardrails meant for production (set DEV=true locally).
	IsDev bool `env:"DEV" envDefault:"false"`

	// Authentication configuration
	Auth AuthConfig

	// Credential exchange configuration
	Exchange ExchangeConfig `envPrefix:"EXCHANGE_"`

	// Database and cache configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Cache    CacheConfig `envPrefix:"CACHE_"`

	// Authorization configuration
	Authz AuthzConfig

	// Downstream document store configuration
	Storage StorageConfig `envPrefix:"STORAGE_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Exchange.Sanitize()
	c.Postgres.Sanitize()
	c.Cache.Sanitize()
	c.Storage.Sanitize()
	c.Observability.Sanitize()
}
