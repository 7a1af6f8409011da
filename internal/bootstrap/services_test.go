package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/spaarke-dev/spaarke-sub016/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func staticAuthComponents(t *testing.T) AuthComponents {
	t.Helper()
	components, err := BuildAuth(context.Background(), AuthBuildConfig{
		Auth: config.AuthConfig{
			Mode:   config.AuthModeStatic,
			Static: config.StaticAuthConfig{Tokens: "tok-reader:caller-1:finance-team"},
		},
		Exchange: config.ExchangeConfig{
			TokenURL:     "https://login.example.com/oauth2/token",
			ClientID:     "spaarke-api",
			ClientSecret: "s3cret",
		},
		Logger: discardLogger(),
	})
	if err != nil {
		t.Fatalf("BuildAuth() error = %v", err)
	}
	return components
}

func TestNewServicesWithMemoryCache(t *testing.T) {
	cfg := &config.AppConfig{
		Cache: config.CacheConfig{
			Backend:        config.CacheBackendMemory,
			SnapshotTTL:    2 * time.Minute,
			SchemaVersion:  "1",
			MemoryCapacity: 64,
		},
		Exchange: config.ExchangeConfig{
			TTLBuffer: 5 * time.Minute,
			MaxTTL:    50 * time.Minute,
		},
		Authz:   config.AuthzConfig{GroupRights: "finance-team:read|write"},
		Storage: config.StorageConfig{BaseURL: "http://store.local", Timeout: 5 * time.Second},
	}

	container, err := NewServices(context.Background(), NewServicesOptions{
		Deps: &ServiceDeps{Config: cfg, Logger: discardLogger()},
		Auth: staticAuthComponents(t),
	})
	if err != nil {
		t.Fatalf("NewServices() error = %v", err)
	}

	if container.Authz == nil {
		t.Error("expected an authorization service")
	}
	if container.Creds == nil {
		t.Error("expected a credential service")
	}
	if container.Storage == nil {
		t.Error("expected a storage gateway")
	}
	if container.Verifier == nil {
		t.Error("expected a token verifier")
	}
	// No database handle means no dependencies to probe.
	if len(container.Readiness) != 0 {
		t.Errorf("expected no readiness checks without a database, got %d", len(container.Readiness))
	}
}

func TestNewServicesRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.AppConfig)
		wantErr string
	}{
		{
			name: "redis backend without client",
			mutate: func(cfg *config.AppConfig) {
				cfg.Cache.Backend = config.CacheBackendRedis
			},
			wantErr: "no redis client",
		},
		{
			name: "unknown cache backend",
			mutate: func(cfg *config.AppConfig) {
				cfg.Cache.Backend = "memcached"
			},
			wantErr: "unsupported cache backend",
		},
		{
			name: "malformed group rights",
			mutate: func(cfg *config.AppConfig) {
				cfg.Authz.GroupRights = "finance-team"
			},
			wantErr: "parse group rights",
		},
		{
			name: "missing storage base URL",
			mutate: func(cfg *config.AppConfig) {
				cfg.Storage.BaseURL = ""
			},
			wantErr: "storage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.AppConfig{
				Cache: config.CacheConfig{
					Backend:        config.CacheBackendMemory,
					MemoryCapacity: 64,
				},
				Storage: config.StorageConfig{BaseURL: "http://store.local"},
			}
			tt.mutate(cfg)

			_, err := NewServices(context.Background(), NewServicesOptions{
				Deps: &ServiceDeps{Config: cfg, Logger: discardLogger()},
				Auth: staticAuthComponents(t),
			})
			if err == nil {
				t.Fatal("NewServices() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("NewServices() error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
