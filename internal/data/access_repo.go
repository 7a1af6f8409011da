package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spaarke-dev/spaarke-sub016/internal/apperrors"
	"github.com/spaarke-dev/spaarke-sub016/internal/data/pgxutil"
	"github.com/spaarke-dev/spaarke-sub016/internal/domain/access"
)

// AccessRepo persists explicit grants, denials, and group memberships, and
// assembles the point-in-time snapshots the evaluator consumes. An absent
// grants row is a valid state (no rights, no deny), not an error.
type AccessRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewAccessRepo creates a new AccessRepo instance with the given database connection.
func NewAccessRepo(db *sql.DB) *AccessRepo {
	return &AccessRepo{
		DB:           db,
		timeProvider: &RealTimeProvider{},
	}
}

// NewAccessRepoWithTimeProvider creates an AccessRepo with a custom TimeProvider (useful for testing).
func NewAccessRepoWithTimeProvider(db *sql.DB, timeProvider TimeProvider) *AccessRepo {
	return &AccessRepo{
		DB:           db,
		timeProvider: timeProvider,
	}
}

// GrantSeed is one access_grants fixture row for seeding.
type GrantSeed struct {
	CallerID     string
	ResourceID   string
	Rights       access.Rights
	ExplicitDeny bool
}

// GroupMember is one group_members row.
type GroupMember struct {
	CallerID string
	GroupID  string
}

// LoadSnapshot reads the grants row and membership list for one
// caller/resource pair inside a read-only transaction, so both reads see the
// same committed state.
func (r *AccessRepo) LoadSnapshot(ctx context.Context, callerID, resourceID string) (access.Snapshot, error) {
	if err := requirePair(callerID, resourceID); err != nil {
		return access.Snapshot{}, err
	}

	capturedAt := r.timeProvider.Now()
	var (
		rights access.Rights
		deny   bool
		groups []string
	)
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Opts: &sql.TxOptions{ReadOnly: true},
		Fn: func(tx *sql.Tx) error {
			var encoded []byte
			err := tx.QueryRowContext(ctx, grantGetQuery, callerID, resourceID).Scan(&encoded, &deny)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				// No explicit grant. The caller may still reach the resource
				// through a group.
			case err != nil:
				return fmt.Errorf("load grants: %w", err)
			default:
				if uerr := json.Unmarshal(encoded, &rights); uerr != nil {
					return fmt.Errorf("decode rights for %s/%s: %w", callerID, resourceID, uerr)
				}
			}

			groups, err = r.listMembershipsTx(ctx, tx, callerID)
			return err
		},
	})
	if err != nil {
		return access.Snapshot{}, apperrors.MapDBError(err)
	}

	return access.NewSnapshot(callerID, resourceID, rights, deny, groups, capturedAt), nil
}

// Grant adds rights to the caller/resource pair, merging with any existing
// grant. The explicit deny flag is left untouched.
func (r *AccessRepo) Grant(ctx context.Context, callerID, resourceID string, add access.Rights) error {
	if err := requirePair(callerID, resourceID); err != nil {
		return err
	}
	if add.IsEmpty() {
		return apperrors.Validation("at least one right is required")
	}

	now := r.timeProvider.Now()
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			// Materialize the row first so the FOR UPDATE lock below
			// serializes concurrent merges on the same pair.
			if err := r.ensureGrantRowTx(ctx, tx, callerID, resourceID, now); err != nil {
				return err
			}
			current, deny, _, err := r.grantForUpdateTx(ctx, tx, callerID, resourceID)
			if err != nil {
				return err
			}
			return r.updateGrantTx(ctx, tx, callerID, resourceID, current.Union(add), deny, now)
		},
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// Revoke removes the given rights from the pair, or every right when remove
// is empty. Reports whether a grant row existed. A row left with no rights
// and no deny flag is deleted.
func (r *AccessRepo) Revoke(ctx context.Context, callerID, resourceID string, remove access.Rights) (bool, error) {
	if err := requirePair(callerID, resourceID); err != nil {
		return false, err
	}

	now := r.timeProvider.Now()
	existed := false
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			current, deny, found, err := r.grantForUpdateTx(ctx, tx, callerID, resourceID)
			if err != nil || !found {
				return err
			}
			existed = true

			trimmed := access.Rights(0)
			if !remove.IsEmpty() {
				trimmed = current.Remove(remove)
			}
			if trimmed.IsEmpty() && !deny {
				return r.deleteGrantRowTx(ctx, tx, callerID, resourceID)
			}
			return r.updateGrantTx(ctx, tx, callerID, resourceID, trimmed, deny, now)
		},
	})
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return existed, nil
}

// SetDeny sets or clears the explicit deny flag. Setting it creates the
// grant row if needed; clearing it on a row with no rights deletes the row.
func (r *AccessRepo) SetDeny(ctx context.Context, callerID, resourceID string, deny bool) error {
	if err := requirePair(callerID, resourceID); err != nil {
		return err
	}

	now := r.timeProvider.Now()
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			if deny {
				if err := r.ensureGrantRowTx(ctx, tx, callerID, resourceID, now); err != nil {
					return err
				}
				current, _, _, err := r.grantForUpdateTx(ctx, tx, callerID, resourceID)
				if err != nil {
					return err
				}
				return r.updateGrantTx(ctx, tx, callerID, resourceID, current, true, now)
			}

			current, _, found, err := r.grantForUpdateTx(ctx, tx, callerID, resourceID)
			if err != nil || !found {
				return err
			}
			if current.IsEmpty() {
				return r.deleteGrantRowTx(ctx, tx, callerID, resourceID)
			}
			return r.updateGrantTx(ctx, tx, callerID, resourceID, current, false, now)
		},
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// AddMember records the caller's membership in a group. Reports whether the
// membership was new.
func (r *AccessRepo) AddMember(ctx context.Context, callerID, groupID string) (bool, error) {
	if callerID == "" || groupID == "" {
		return false, apperrors.Validation("caller and group are required")
	}

	result, err := r.DB.ExecContext(ctx, memberInsertQuery, callerID, groupID, r.timeProvider.Now())
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("add member: %w", err))
	}
	added, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add member rows affected: %w", err)
	}
	return added > 0, nil
}

// RemoveMember drops the caller's membership in a group. Reports whether the
// membership existed.
func (r *AccessRepo) RemoveMember(ctx context.Context, callerID, groupID string) (bool, error) {
	if callerID == "" || groupID == "" {
		return false, apperrors.Validation("caller and group are required")
	}

	result, err := r.DB.ExecContext(ctx, memberDeleteQuery, callerID, groupID)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("remove member: %w", err))
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove member rows affected: %w", err)
	}
	return removed > 0, nil
}

// ResetAndSeed replaces all grants and memberships with the given fixtures in
// one transaction. Development tooling only; it truncates both tables first.
func (r *AccessRepo) ResetAndSeed(ctx context.Context, grants []GrantSeed, members []GroupMember) error {
	now := r.timeProvider.Now()
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `TRUNCATE access_grants, group_members`); err != nil {
				return fmt.Errorf("reset tables: %w", err)
			}

			for _, g := range grants {
				encoded, err := json.Marshal(g.Rights)
				if err != nil {
					return fmt.Errorf("encode rights for %s/%s: %w", g.CallerID, g.ResourceID, err)
				}
				if _, err := tx.Exec(ctx, grantInsertSeedQuery,
					g.CallerID, g.ResourceID, encoded, g.ExplicitDeny, now); err != nil {
					return fmt.Errorf("seed grant %s/%s: %w", g.CallerID, g.ResourceID, err)
				}
			}

			if len(members) == 0 {
				return nil
			}
			rows := make([][]any, len(members))
			for i, m := range members {
				rows[i] = []any{m.CallerID, m.GroupID, now}
			}
			if _, err := tx.CopyFrom(ctx,
				pgx.Identifier{"group_members"},
				[]string{"caller_id", "group_id", "added_at"},
				pgx.CopyFromRows(rows)); err != nil {
				return fmt.Errorf("seed memberships: %w", err)
			}
			return nil
		},
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// --- tx helpers ---

func (r *AccessRepo) listMembershipsTx(ctx context.Context, tx *sql.Tx, callerID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, memberListQuery, callerID)
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}
	return groups, nil
}

func (r *AccessRepo) ensureGrantRowTx(ctx context.Context, tx *sql.Tx, callerID, resourceID string, now time.Time) error {
	if _, err := tx.ExecContext(ctx, grantEnsureRowQuery, callerID, resourceID, now); err != nil {
		return fmt.Errorf("ensure grant row: %w", err)
	}
	return nil
}

func (r *AccessRepo) grantForUpdateTx(ctx context.Context, tx *sql.Tx, callerID, resourceID string) (access.Rights, bool, bool, error) {
	var (
		encoded []byte
		deny    bool
	)
	err := tx.QueryRowContext(ctx, grantForUpdateQuery, callerID, resourceID).Scan(&encoded, &deny)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, fmt.Errorf("lock grant row: %w", err)
	}

	var rights access.Rights
	if err := json.Unmarshal(encoded, &rights); err != nil {
		return 0, false, false, fmt.Errorf("decode rights for %s/%s: %w", callerID, resourceID, err)
	}
	return rights, deny, true, nil
}

func (r *AccessRepo) updateGrantTx(ctx context.Context, tx *sql.Tx, callerID, resourceID string, rights access.Rights, deny bool, now time.Time) error {
	encoded, err := json.Marshal(rights)
	if err != nil {
		return fmt.Errorf("encode rights: %w", err)
	}
	if _, err := tx.ExecContext(ctx, grantUpdateQuery, callerID, resourceID, encoded, deny, now); err != nil {
		return fmt.Errorf("update grant: %w", err)
	}
	return nil
}

func (r *AccessRepo) deleteGrantRowTx(ctx context.Context, tx *sql.Tx, callerID, resourceID string) error {
	if _, err := tx.ExecContext(ctx, grantDeleteQuery, callerID, resourceID); err != nil {
		return fmt.Errorf("delete grant row: %w", err)
	}
	return nil
}

func requirePair(callerID, resourceID string) error {
	if callerID == "" || resourceID == "" {
		return apperrors.Validation("caller and resource are required")
	}
	return nil
}

// SQL for the fixed access queries. Memberships are ordered so snapshots are
// deterministic.
const (
	grantGetQuery = `
		SELECT rights, explicit_deny
		FROM access_grants
		WHERE caller_id = $1 AND resource_id = $2`

	grantForUpdateQuery = `
		SELECT rights, explicit_deny
		FROM access_grants
		WHERE caller_id = $1 AND resource_id = $2
		FOR UPDATE`

	grantEnsureRowQuery = `
		INSERT INTO access_grants (caller_id, resource_id, rights, explicit_deny, updated_at)
		VALUES ($1, $2, '[]'::jsonb, FALSE, $3)
		ON CONFLICT (caller_id, resource_id) DO NOTHING`

	grantUpdateQuery = `
		UPDATE access_grants
		SET rights = $3, explicit_deny = $4, updated_at = $5
		WHERE caller_id = $1 AND resource_id = $2`

	grantDeleteQuery = `
		DELETE FROM access_grants
		WHERE caller_id = $1 AND resource_id = $2`

	grantInsertSeedQuery = `
		INSERT INTO access_grants (caller_id, resource_id, rights, explicit_deny, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	memberListQuery = `
		SELECT group_id
		FROM group_members
		WHERE caller_id = $1
		ORDER BY group_id`

	memberInsertQuery = `
		INSERT INTO group_members (caller_id, group_id, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (caller_id, group_id) DO NOTHING`

	memberDeleteQuery = `
		DELETE FROM group_members
		WHERE caller_id = $1 AND group_id = $2`
)
