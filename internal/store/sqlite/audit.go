package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/twocards/backoffice/internal/model/audit"
)

const defaultAuditLimit = 500

type auditRepo struct {
	db *sql.DB
}

// NewAuditRepo returns the append-only audit log repository.
func NewAuditRepo(d *DB) audit.Repository {
	return &auditRepo{db: d.sql}
}

func (r *auditRepo) Append(ctx context.Context, entry audit.Log) (int64, error) {
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return 0, fmt.Errorf("failed to encode audit details: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (event_id, user_id, action, details, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.EventID, nullInt(entry.UserID), entry.Action, string(raw), unixNano(entry.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to append audit log: %w", err)
	}
	return res.LastInsertId()
}

func (r *auditRepo) List(ctx context.Context, filter audit.Filter) ([]audit.Log, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != nil {
		where = append(where, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.Action != "" {
		where = append(where, "action = ?")
		args = append(args, filter.Action)
	}
	if !filter.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, unixNano(filter.Since))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	query := `SELECT id, event_id, user_id, action, details, created_at FROM audit_logs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var out []audit.Log
	for rows.Next() {
		var (
			l         audit.Log
			userID    sql.NullInt64
			details   sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&l.ID, &l.EventID, &userID, &l.Action, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		l.UserID = intPtr(userID)
		l.CreatedAt = fromUnixNano(createdAt)
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &l.Details); err != nil {
				return nil, fmt.Errorf("failed to decode audit details for %d: %w", l.ID, err)
			}
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
