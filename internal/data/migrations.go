package data

import (
	"context"
	"database/sql"

	"github.com/spaarke-dev/spaarke-sub016/internal/migrate"
)

// RunMigrations applies the embedded schema migrations for the grant and
// group membership tables by delegating to the migrate package.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db)
}
