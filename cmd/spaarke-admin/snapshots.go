package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spaarke-dev/spaarke-sub016/internal/core"
	"github.com/spaarke-dev/spaarke-sub016/internal/data"
)

// snapshotKeyPattern matches every cached permission snapshot plus the schema
// version marker. Keeping the marker in the listing is intentional; its
// "no expiry" TTL confirms the marker is persistent.
const snapshotKeyPattern = "authz:snapshot:*"

func runBumpVersion(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("bump-version", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	yes := fs.Bool("yes", false, "Skip confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}

	prompt := "About to bump the snapshot schema version. Every cached snapshot becomes " +
		"unreachable and repopulates from the source on next access."
	if err := confirmAction(*yes, prompt); err != nil {
		return err
	}

	return withSharedCache(cmdCtx, defaultCommandTimeout, func(ctx context.Context, client redis.UniversalClient) error {
		oldVersion, newVersion, err := core.BumpSchemaVersion(ctx, data.NewRedisCacheRepo(client))
		if err != nil {
			return fmt.Errorf("bump schema version: %w", err)
		}
		cmdCtx.Logger.Info("snapshot schema version bumped", "old", oldVersion, "new", newVersion)
		return writef(os.Stdout, "Snapshot schema version bumped: %s -> %s\n", oldVersion, newVersion)
	})
}

func runListSnapshots(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("list-snapshots", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withSharedCache(cmdCtx, defaultCommandTimeout, func(ctx context.Context, client redis.UniversalClient) error {
		cmdCtx.Logger.Info("scanning redis", "pattern", snapshotKeyPattern)

		if headerErr := writef(os.Stdout, "\nCached snapshots\n\n"); headerErr != nil {
			return fmt.Errorf("print snapshot listing header: %w", headerErr)
		}

		iter := client.Scan(ctx, 0, snapshotKeyPattern, 100).Iterator()
		total, scanErr := writeSnapshotRows(ctx, cmdCtx, client, iter)
		if scanErr != nil {
			return scanErr
		}

		if total == 0 {
			return writeln(os.Stdout, "(no cached snapshots)")
		}
		return writef(os.Stdout, "\nTotal keys: %d\n", total)
	})
}

func writeSnapshotRows(
	ctx context.Context,
	cmdCtx *commandContext,
	client redis.UniversalClient,
	iter *redis.ScanIterator,
) (int, error) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(w, "KEY\tTTL"); err != nil {
		return 0, fmt.Errorf("print snapshot table header: %w", err)
	}

	total := 0
	for iter.Next(ctx) {
		key := iter.Val()
		total++

		ttl, ttlErr := client.TTL(ctx, key).Result()
		if ttlErr != nil {
			cmdCtx.Logger.ErrorContext(ctx, "failed to fetch TTL", "key", key, "error", ttlErr)
			if printErr := writef(w, "%s\terror: %v\n", key, ttlErr); printErr != nil {
				return 0, fmt.Errorf("print snapshot key ttl error: %w", printErr)
			}
			continue
		}
		if printErr := writef(w, "%s\t%s\n", key, renderTTL(ttl)); printErr != nil {
			return 0, fmt.Errorf("print snapshot key: %w", printErr)
		}
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}

	if err := w.Flush(); err != nil {
		return 0, fmt.Errorf("flush snapshot table: %w", err)
	}
	return total, nil
}

func renderTTL(d time.Duration) string {
	switch {
	case d == -1*time.Second:
		return "no expiry"
	case d == -2*time.Second:
		return "key missing"
	default:
		return d.String()
	}
}
