package testutil

import (
	"os"
	"testing"
)

// clearEnv unsets the given variables for the duration of the test, restoring
// their prior values afterwards.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, os.Getenv(k))
		os.Unsetenv(k)
	}
}

func TestDefaultTestDBConfig(t *testing.T) {
	vars := []string{"TEST_DB_HOST", "TEST_DB_PORT", "TEST_DB_USER", "TEST_DB_PASSWORD", "TEST_DB_NAME"}

	t.Run("defaults to the local compose database", func(t *testing.T) {
		clearEnv(t, vars...)

		cfg := DefaultTestDBConfig()
		want := TestDBConfig{
			Host:     "localhost",
			Port:     "55432",
			User:     "spaarke",
			Password: "spaarke",
			DBName:   "spaarke",
		}
		if cfg != want {
			t.Errorf("DefaultTestDBConfig() = %+v, want %+v", cfg, want)
		}
	})

	t.Run("environment overrides win", func(t *testing.T) {
		clearEnv(t, vars...)
		t.Setenv("TEST_DB_HOST", "postgres")
		t.Setenv("TEST_DB_PORT", "5432")

		cfg := DefaultTestDBConfig()
		if cfg.Host != "postgres" {
			t.Errorf("expected Host=postgres, got %s", cfg.Host)
		}
		if cfg.Port != "5432" {
			t.Errorf("expected Port=5432, got %s", cfg.Port)
		}
		if cfg.User != "spaarke" || cfg.Password != "spaarke" || cfg.DBName != "spaarke" {
			t.Errorf("expected credential defaults to hold, got %+v", cfg)
		}
	})
}
