package config

import "time"

// StorageConfig contains downstream document store configuration.
type StorageConfig struct {
	// BaseURL is the document store's API root, e.g.
	// "https://store.internal.example.com/api".
	BaseURL string `env:"BASE_URL"`

	// Timeout bounds each metadata/delete call. Downloads stream and are
	// governed by request cancellation instead.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// Sanitize applies guardrails to storage configuration values.
func (s *StorageConfig) Sanitize() {
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
}
