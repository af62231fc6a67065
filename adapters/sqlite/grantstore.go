package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/artpar/apphost/core/capability"
	"github.com/artpar/apphost/ports"
)

// GrantStore implements ports.GrantStore using SQLite.
type GrantStore struct {
	db  *DB
	now func() time.Time
}

// NewGrantStore creates a new grant store.
func NewGrantStore(db *DB) *GrantStore {
	return &GrantStore{db: db, now: time.Now}
}

// GrantedPermissions returns the app's grants. Unknown apps have none.
// Stored values that are no longer known permissions are skipped.
func (s *GrantStore) GrantedPermissions(ctx context.Context, appID string) ([]capability.Permission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT permission FROM app_permissions WHERE app_id = ? ORDER BY permission`,
		appID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []capability.Permission
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		if p := capability.Permission(v); p.IsValid() {
			perms = append(perms, p)
		}
	}
	return perms, rows.Err()
}

// SetGrants replaces the app's grants in one transaction.
func (s *GrantStore) SetGrants(ctx context.Context, appID string, perms []capability.Permission) error {
	return s.db.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO apps (id, updated_at) VALUES (?, ?)
			 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
			appID, formatTime(s.now()),
		)
		if err != nil {
			return fmt.Errorf("upsert app: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM app_permissions WHERE app_id = ?`, appID); err != nil {
			return fmt.Errorf("clear grants: %w", err)
		}

		for _, p := range perms {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO app_permissions (app_id, permission) VALUES (?, ?)`,
				appID, string(p),
			); err != nil {
				return fmt.Errorf("insert grant %s: %w", p, err)
			}
		}
		return nil
	})
}

// Revoke removes the app and all its grants.
func (s *GrantStore) Revoke(ctx context.Context, appID string) error {
	return s.db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM app_permissions WHERE app_id = ?`, appID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM apps WHERE id = ?`, appID)
		return err
	})
}

// ListApps returns all apps sorted by id.
func (s *GrantStore) ListApps(ctx context.Context) ([]ports.App, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.updated_at, COALESCE(p.permission, '')
		FROM apps a
		LEFT JOIN app_permissions p ON p.app_id = a.id
		ORDER BY a.id, p.permission
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []ports.App
	for rows.Next() {
		var id, updatedAt, perm string
		if err := rows.Scan(&id, &updatedAt, &perm); err != nil {
			return nil, err
		}
		if len(apps) == 0 || apps[len(apps)-1].ID != id {
			apps = append(apps, ports.App{ID: id, UpdatedAt: parseTime(updatedAt)})
		}
		if p := capability.Permission(perm); p.IsValid() {
			last := &apps[len(apps)-1]
			last.Permissions = append(last.Permissions, p)
		}
	}
	return apps, rows.Err()
}

// Ensure interface compliance.
var _ ports.GrantStore = (*GrantStore)(nil)
