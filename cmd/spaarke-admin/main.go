package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spaarke-dev/spaarke-sub016/config"
	"github.com/spaarke-dev/spaarke-sub016/internal/adapters/groups"
	"github.com/spaarke-dev/spaarke-sub016/internal/bootstrap"
	"github.com/spaarke-dev/spaarke-sub016/internal/data"
	"github.com/spaarke-dev/spaarke-sub016/internal/devseed"
	"github.com/spaarke-dev/spaarke-sub016/internal/domain/access"
	"github.com/spaarke-dev/spaarke-sub016/internal/migrate"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = 2 * time.Minute
)

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"db-seed": {
			name:        "db-seed",
			description: "Run migrations and load development grant fixtures (destructive)",
			run:         runDBSeed,
		},
		"grant": {
			name:        "grant",
			description: "Add rights to a caller on a resource",
			run:         runGrant,
		},
		"revoke": {
			name:        "revoke",
			description: "Remove rights from a caller on a resource",
			run:         runRevoke,
		},
		"set-deny": {
			name:        "set-deny",
			description: "Place an explicit deny on a caller/resource pair",
			run:         runSetDeny,
		},
		"clear-deny": {
			name:        "clear-deny",
			description: "Remove an explicit deny from a caller/resource pair",
			run:         runClearDeny,
		},
		"add-member": {
			name:        "add-member",
			description: "Add a caller to a group",
			run:         runAddMember,
		},
		"remove-member": {
			name:        "remove-member",
			description: "Remove a caller from a group",
			run:         runRemoveMember,
		},
		"check": {
			name:        "check",
			description: "Evaluate a caller's access to a resource, showing per-rule verdicts",
			run:         runCheck,
		},
		"bump-version": {
			name:        "bump-version",
			description: "Bump the snapshot schema version, invalidating every cached snapshot",
			run:         runBumpVersion,
		},
		"list-snapshots": {
			name:        "list-snapshots",
			description: "Inspect cached permission snapshots and their TTLs in Redis",
			run:         runListSnapshots,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: spaarke-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	for _, c := range commands() {
		if err := writef(os.Stdout, "  %-16s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	timeout := fs.Duration("timeout", defaultMigrationTimeout, "Maximum time to wait for migrations")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withDatabase(cmdCtx, *timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.Info("running database migrations")
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return fmt.Errorf("run migrations: %w", migrateErr)
		}
		versions, err := migrate.Applied(ctx, db)
		if err != nil {
			return fmt.Errorf("list applied migrations: %w", err)
		}
		if err := writef(os.Stdout, "Applied migrations:\n"); err != nil {
			return err
		}
		for _, v := range versions {
			if err := writef(os.Stdout, "  %s\n", v); err != nil {
				return err
			}
		}
		return nil
	})
}

func runDBSeed(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("db-seed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	timeout := fs.Duration("timeout", defaultMigrationTimeout, "Maximum time to wait for seeding")
	yes := fs.Bool("yes", false, "Skip confirmation prompt")
	allowRemote := fs.Bool("allow-remote", false, "Allow running against a non-local database host")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := guardRemoteHost(cmdCtx, *allowRemote, "replace all grant data with development fixtures"); err != nil {
		return err
	}
	target := fmt.Sprintf(
		"database %q on %s:%d",
		cmdCtx.Config.Postgres.Name,
		cmdCtx.Config.Postgres.Host,
		cmdCtx.Config.Postgres.Port,
	)
	if err := confirmAction(*yes, "About to wipe grant tables and seed development data on "+target+"."); err != nil {
		return err
	}

	return withDatabase(cmdCtx, *timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.Info("ensuring database migrations are current")
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return fmt.Errorf("run migrations: %w", migrateErr)
		}
		return devseed.Seed(ctx, db, cmdCtx.Logger)
	})
}

type accessTargetOptions struct {
	CallerID   string
	ResourceID string
	Rights     access.Rights
}

func parseAccessTargetFlags(name string, args []string, wantRights bool) (accessTargetOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts accessTargetOptions
	var rightsSpec string
	fs.StringVar(&opts.CallerID, "caller", "", "Caller ID (required)")
	fs.StringVar(&opts.ResourceID, "resource", "", "Resource ID (required)")
	if wantRights {
		fs.StringVar(&rightsSpec, "rights", "", `Pipe-separated rights, e.g. "read|write" (required)`)
	}

	if err := fs.Parse(args); err != nil {
		return accessTargetOptions{}, err
	}
	if opts.CallerID == "" || opts.ResourceID == "" {
		return accessTargetOptions{}, errors.New("--caller and --resource are required")
	}
	if wantRights {
		rights, err := access.ParseRights(strings.Split(rightsSpec, "|"))
		if err != nil {
			return accessTargetOptions{}, fmt.Errorf("parse --rights: %w", err)
		}
		if rights.IsEmpty() {
			return accessTargetOptions{}, errors.New("--rights must name at least one right")
		}
		opts.Rights = rights
	}
	return opts, nil
}

// stalenessHint reminds operators that cached snapshots serve until expiry.
func stalenessHint(cmdCtx *commandContext) {
	cmdCtx.Logger.Info("change takes effect as cached snapshots expire",
		"snapshot_ttl", cmdCtx.Config.Cache.SnapshotTTL,
		"hint", "run bump-version to invalidate immediately",
	)
}

func runGrant(cmdCtx *commandContext, args []string) error {
	opts, err := parseAccessTargetFlags("grant", args, true)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewAccessRepo(db)
		if grantErr := repo.Grant(ctx, opts.CallerID, opts.ResourceID, opts.Rights); grantErr != nil {
			return fmt.Errorf("grant rights: %w", grantErr)
		}
		cmdCtx.Logger.Info("rights granted",
			"caller_id", opts.CallerID,
			"resource_id", opts.ResourceID,
			"rights", opts.Rights.String(),
		)
		stalenessHint(cmdCtx)
		return nil
	})
}

func runRevoke(cmdCtx *commandContext, args []string) error {
	opts, err := parseAccessTargetFlags("revoke", args, true)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewAccessRepo(db)
		changed, revokeErr := repo.Revoke(ctx, opts.CallerID, opts.ResourceID, opts.Rights)
		if revokeErr != nil {
			return fmt.Errorf("revoke rights: %w", revokeErr)
		}
		if !changed {
			cmdCtx.Logger.Info("nothing to revoke",
				"caller_id", opts.CallerID,
				"resource_id", opts.ResourceID,
			)
			return nil
		}
		cmdCtx.Logger.Info("rights revoked",
			"caller_id", opts.CallerID,
			"resource_id", opts.ResourceID,
			"rights", opts.Rights.String(),
		)
		stalenessHint(cmdCtx)
		return nil
	})
}

func runSetDeny(cmdCtx *commandContext, args []string) error {
	return runDenyChange(cmdCtx, "set-deny", args, true)
}

func runClearDeny(cmdCtx *commandContext, args []string) error {
	return runDenyChange(cmdCtx, "clear-deny", args, false)
}

func runDenyChange(cmdCtx *commandContext, name string, args []string, deny bool) error {
	opts, err := parseAccessTargetFlags(name, args, false)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewAccessRepo(db)
		if denyErr := repo.SetDeny(ctx, opts.CallerID, opts.ResourceID, deny); denyErr != nil {
			return fmt.Errorf("update deny marker: %w", denyErr)
		}
		cmdCtx.Logger.Info("deny marker updated",
			"caller_id", opts.CallerID,
			"resource_id", opts.ResourceID,
			"deny", deny,
		)
		stalenessHint(cmdCtx)
		return nil
	})
}

type membershipOptions struct {
	CallerID string
	GroupID  string
}

func parseMembershipFlags(name string, args []string) (membershipOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts membershipOptions
	fs.StringVar(&opts.CallerID, "caller", "", "Caller ID (required)")
	fs.StringVar(&opts.GroupID, "group", "", "Group ID (required)")

	if err := fs.Parse(args); err != nil {
		return membershipOptions{}, err
	}
	if opts.CallerID == "" || opts.GroupID == "" {
		return membershipOptions{}, errors.New("--caller and --group are required")
	}
	return opts, nil
}

func runAddMember(cmdCtx *commandContext, args []string) error {
	opts, err := parseMembershipFlags("add-member", args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewAccessRepo(db)
		added, addErr := repo.AddMember(ctx, opts.CallerID, opts.GroupID)
		if addErr != nil {
			return fmt.Errorf("add member: %w", addErr)
		}
		if !added {
			cmdCtx.Logger.Info("caller already in group", "caller_id", opts.CallerID, "group_id", opts.GroupID)
			return nil
		}
		cmdCtx.Logger.Info("member added", "caller_id", opts.CallerID, "group_id", opts.GroupID)
		stalenessHint(cmdCtx)
		return nil
	})
}

func runRemoveMember(cmdCtx *commandContext, args []string) error {
	opts, err := parseMembershipFlags("remove-member", args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewAccessRepo(db)
		removed, removeErr := repo.RemoveMember(ctx, opts.CallerID, opts.GroupID)
		if removeErr != nil {
			return fmt.Errorf("remove member: %w", removeErr)
		}
		if !removed {
			cmdCtx.Logger.Info("caller was not in group", "caller_id", opts.CallerID, "group_id", opts.GroupID)
			return nil
		}
		cmdCtx.Logger.Info("member removed", "caller_id", opts.CallerID, "group_id", opts.GroupID)
		stalenessHint(cmdCtx)
		return nil
	})
}

type checkOptions struct {
	CallerID   string
	ResourceID string
	Right      access.Right
}

func parseCheckFlags(args []string) (checkOptions, error) {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts checkOptions
	var rightName string
	fs.StringVar(&opts.CallerID, "caller", "", "Caller ID (required)")
	fs.StringVar(&opts.ResourceID, "resource", "", "Resource ID (required)")
	fs.StringVar(&rightName, "right", "", "Required right: read, write, delete, or share (required)")

	if err := fs.Parse(args); err != nil {
		return checkOptions{}, err
	}
	if opts.CallerID == "" || opts.ResourceID == "" {
		return checkOptions{}, errors.New("--caller and --resource are required")
	}
	right, err := access.ParseRight(rightName)
	if err != nil {
		return checkOptions{}, fmt.Errorf("parse --right: %w", err)
	}
	opts.Right = right
	return opts, nil
}

func runCheck(cmdCtx *commandContext, args []string) error {
	opts, err := parseCheckFlags(args)
	if err != nil {
		return err
	}

	directory, err := groups.ParseDirectory(cmdCtx.Config.Authz.GroupRights)
	if err != nil {
		return fmt.Errorf("parse group rights: %w", err)
	}
	evaluator := access.NewEvaluator(access.DefaultRules(directory)...)

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewAccessRepo(db)
		snapshot, loadErr := repo.LoadSnapshot(ctx, opts.CallerID, opts.ResourceID)
		if loadErr != nil {
			return fmt.Errorf("load snapshot: %w", loadErr)
		}

		verdicts, decision := evaluator.Explain(snapshot, opts.Right)
		return printCheckResult(&checkResult{
			Options:  opts,
			Snapshot: snapshot,
			Verdicts: verdicts,
			Decision: decision,
		})
	})
}

type checkResult struct {
	Options  checkOptions
	Snapshot access.Snapshot
	Verdicts []access.RuleVerdict
	Decision access.Decision
}

func printCheckResult(result *checkResult) error {
	opts := result.Options
	if err := writef(os.Stdout, "\nAccess check: caller %q, resource %q, right %q\n\n",
		opts.CallerID, opts.ResourceID, opts.Right); err != nil {
		return fmt.Errorf("print check header: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(w, "SNAPSHOT\t"); err != nil {
		return fmt.Errorf("print snapshot header: %w", err)
	}
	if err := writef(w, "  Rights\t%s\n", result.Snapshot.Rights.String()); err != nil {
		return fmt.Errorf("print snapshot rights: %w", err)
	}
	if err := writef(w, "  Explicit deny\t%t\n", result.Snapshot.ExplicitDeny); err != nil {
		return fmt.Errorf("print snapshot deny: %w", err)
	}
	memberships := "-"
	if len(result.Snapshot.GroupMemberships) > 0 {
		memberships = strings.Join(result.Snapshot.GroupMemberships, ", ")
	}
	if err := writef(w, "  Groups\t%s\n", memberships); err != nil {
		return fmt.Errorf("print snapshot groups: %w", err)
	}

	if err := writeln(w, "\nRULE\tVERDICT"); err != nil {
		return fmt.Errorf("print verdict header: %w", err)
	}
	for _, v := range result.Verdicts {
		if err := writef(w, "%s\t%s\n", v.Rule, v.Verdict); err != nil {
			return fmt.Errorf("print verdict row %q: %w", v.Rule, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush check table: %w", err)
	}

	if result.Decision.Allowed {
		return writef(os.Stdout, "\nDecision: allowed\n")
	}
	return writef(os.Stdout, "\nDecision: denied (%s)\n", result.Decision.Reason)
}
