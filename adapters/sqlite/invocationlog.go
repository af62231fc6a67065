package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/artpar/apphost/domain/invocation"
	"github.com/artpar/apphost/ports"
)

// InvocationLog implements ports.InvocationLog using SQLite.
type InvocationLog struct {
	db *DB
}

// NewInvocationLog creates a new invocation log.
func NewInvocationLog(db *DB) *InvocationLog {
	return &InvocationLog{db: db}
}

// Append records a finished invocation.
func (l *InvocationLog) Append(ctx context.Context, r invocation.Record) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO invocations
			(id, app_id, module, method, stage, outcome, error_kind, message, started_at, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.AppID, r.Module, r.Method, r.Stage, string(r.Outcome),
		r.ErrorKind, r.Message, formatTime(r.StartedAt), int64(r.Duration),
	)
	return err
}

// List returns matching records, newest first.
func (l *InvocationLog) List(ctx context.Context, f invocation.Filter) ([]invocation.Record, error) {
	var (
		where []string
		args  []any
	)
	if f.AppID != "" {
		where = append(where, "app_id = ?")
		args = append(args, f.AppID)
	}
	if f.Module != "" {
		where = append(where, "module = ?")
		args = append(args, f.Module)
	}
	if f.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, string(f.Outcome))
	}
	if f.ErrorKind != "" {
		where = append(where, "error_kind = ?")
		args = append(args, f.ErrorKind)
	}
	if !f.Since.IsZero() {
		where = append(where, "started_at >= ?")
		args = append(args, formatTime(f.Since))
	}

	query := `SELECT id, app_id, module, method, stage, outcome, error_kind, message, started_at, duration_ns
		FROM invocations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC LIMIT ?"
	args = append(args, f.EffectiveLimit())

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []invocation.Record
	for rows.Next() {
		var (
			r         invocation.Record
			outcome   string
			startedAt string
			duration  int64
		)
		if err := rows.Scan(&r.ID, &r.AppID, &r.Module, &r.Method, &r.Stage, &outcome,
			&r.ErrorKind, &r.Message, &startedAt, &duration); err != nil {
			return nil, err
		}
		r.Outcome = invocation.Outcome(outcome)
		r.StartedAt = parseTime(startedAt)
		r.Duration = time.Duration(duration)
		result = append(result, r)
	}
	return result, rows.Err()
}

// Ensure interface compliance.
var _ ports.InvocationLog = (*InvocationLog)(nil)
