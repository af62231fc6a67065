package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/apphost/domain/transition"
	"github.com/artpar/apphost/ports"
)

// TransitionStore implements ports.TransitionStore using SQLite.
type TransitionStore struct {
	db *DB
}

// NewTransitionStore creates a new transition store.
func NewTransitionStore(db *DB) *TransitionStore {
	return &TransitionStore{db: db}
}

const transitionColumns = `id, kind, name, app_id, locked, settings, created_at, updated_at`

// Create stores a new transition.
func (s *TransitionStore) Create(ctx context.Context, r transition.Record) error {
	settings, err := encodeSettings(r.Settings)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transitions (`+transitionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Kind), r.Name, r.AppID, r.Locked, settings,
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: transitions.name") {
		return ports.ErrDuplicateName
	}
	return err
}

// Get retrieves a transition by ID.
func (s *TransitionStore) Get(ctx context.Context, id string) (transition.Record, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT `+transitionColumns+` FROM transitions WHERE id = ?`, id))
}

// GetByName retrieves a transition by name.
func (s *TransitionStore) GetByName(ctx context.Context, name string) (transition.Record, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT `+transitionColumns+` FROM transitions WHERE name = ?`, name))
}

// Update replaces the mutable columns of a transition.
func (s *TransitionStore) Update(ctx context.Context, r transition.Record) error {
	settings, err := encodeSettings(r.Settings)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE transitions SET locked = ?, settings = ?, updated_at = ? WHERE id = ?`,
		r.Locked, settings, formatTime(r.UpdatedAt), r.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ports.ErrTransitionAbsent
	}
	return nil
}

// List returns transitions ordered by creation time, optionally for one app.
func (s *TransitionStore) List(ctx context.Context, appID string) ([]transition.Record, error) {
	query := `SELECT ` + transitionColumns + ` FROM transitions`
	var args []any
	if appID != "" {
		query += ` WHERE app_id = ?`
		args = append(args, appID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []transition.Record
	for rows.Next() {
		r, err := scanTransition(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *TransitionStore) scanOne(row *sql.Row) (transition.Record, error) {
	r, err := scanTransition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return transition.Record{}, ports.ErrTransitionAbsent
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransition(sc scanner) (transition.Record, error) {
	var (
		r                    transition.Record
		kind, settings       string
		createdAt, updatedAt string
	)
	if err := sc.Scan(&r.ID, &kind, &r.Name, &r.AppID, &r.Locked, &settings, &createdAt, &updatedAt); err != nil {
		return transition.Record{}, err
	}

	r.Kind = transition.EngineKind(kind)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)

	dec := json.NewDecoder(strings.NewReader(settings))
	dec.UseNumber()
	if err := dec.Decode(&r.Settings); err != nil {
		return transition.Record{}, fmt.Errorf("decode settings of %s: %w", r.ID, err)
	}
	return r, nil
}

func encodeSettings(settings map[string]any) (string, error) {
	if settings == nil {
		return "{}", nil
	}
	b, err := json.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("encode settings: %w", err)
	}
	return string(b), nil
}

// Ensure interface compliance.
var _ ports.TransitionStore = (*TransitionStore)(nil)
