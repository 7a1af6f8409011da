// Package devseed loads a small fixed set of grants, denials, and group
// memberships for local development. The fixtures line up with the callers a
// static AUTH_STATIC_TOKENS table typically names, so a dev stack works out of
// the box.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spaarke-dev/spaarke-sub016/internal/data"
	"github.com/spaarke-dev/spaarke-sub016/internal/domain/access"
)

// Seed wipes the grant tables and loads the development fixtures. Destructive;
// callers are expected to have confirmed the target database first.
func Seed(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	repo := data.NewAccessRepo(db)

	grants := []data.GrantSeed{
		// caller-1 is the everyday reader.
		{CallerID: "caller-1", ResourceID: "doc-quarterly-report", Rights: access.NewRights(access.RightRead)},
		{CallerID: "caller-1", ResourceID: "doc-budget", Rights: access.NewRights(access.RightRead, access.RightWrite)},

		// caller-2 owns doc-budget outright.
		{
			CallerID:   "caller-2",
			ResourceID: "doc-budget",
			Rights:     access.NewRights(access.RightRead, access.RightWrite, access.RightDelete, access.RightShare),
		},

		// caller-3 holds rights but is explicitly denied; deny must win.
		{
			CallerID:     "caller-3",
			ResourceID:   "doc-quarterly-report",
			Rights:       access.NewRights(access.RightRead, access.RightWrite),
			ExplicitDeny: true,
		},
	}

	members := []data.GroupMember{
		// caller-4 has no direct grants; access comes from group rights only.
		{CallerID: "caller-4", GroupID: "finance-team"},
		{CallerID: "caller-2", GroupID: "finance-team"},
		{CallerID: "caller-5", GroupID: "auditors"},
	}

	if err := repo.ResetAndSeed(ctx, grants, members); err != nil {
		return fmt.Errorf("seed access data: %w", err)
	}

	if logger != nil {
		logger.InfoContext(ctx, "development data seeded",
			"grants", len(grants),
			"members", len(members),
		)
	}
	return nil
}
