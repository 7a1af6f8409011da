package core

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// SchemaVersionKey is the persistent marker holding the snapshot-key schema
// version. Stored without a TTL so an admin bump survives restarts.
const SchemaVersionKey = "authz:snapshot:schema-version"

// ResolveSchemaVersion returns the effective snapshot schema version. The
// configured fallback seeds the marker on first contact; after that the
// stored value wins, so a bump outlives the config default. Resolution
// happens once at startup, which means a bump reaches running processes on
// their next restart. Backend failures fall back to the configured version
// with a warning.
func ResolveSchemaVersion(ctx context.Context, cache CacheRepository, fallback string, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := cache.SetIfNotExists(ctx, SchemaVersionKey, []byte(fallback), 0); err != nil {
		logger.WarnContext(ctx, "schema version marker unavailable, using configured version",
			"version", fallback, "error", err)
		return fallback
	}
	data, err := cache.Get(ctx, SchemaVersionKey)
	if err != nil || len(data) == 0 {
		logger.WarnContext(ctx, "schema version marker unreadable, using configured version",
			"version", fallback, "error", err)
		return fallback
	}
	return string(data)
}

// BumpSchemaVersion increments the stored schema version and returns the
// previous and new values. Every snapshot cached under the old version is
// orphaned and ages out through its TTL; no scan-and-delete pass is needed.
// Requires a numeric version.
func BumpSchemaVersion(ctx context.Context, cache CacheRepository) (string, string, error) {
	if _, err := cache.SetIfNotExists(ctx, SchemaVersionKey, []byte("1"), 0); err != nil {
		return "", "", fmt.Errorf("init schema version marker: %w", err)
	}
	data, err := cache.Get(ctx, SchemaVersionKey)
	if err != nil {
		return "", "", fmt.Errorf("read schema version marker: %w", err)
	}
	current := string(data)
	n, err := strconv.Atoi(current)
	if err != nil {
		return "", "", fmt.Errorf("schema version %q is not numeric: %w", current, err)
	}
	next := strconv.Itoa(n + 1)
	if err := cache.Set(ctx, SchemaVersionKey, []byte(next), 0); err != nil {
		return "", "", fmt.Errorf("store schema version marker: %w", err)
	}
	return current, next, nil
}
