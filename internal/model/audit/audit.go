package audit

import (
	"context"
	"time"
)

// Log is an immutable audit entry.
type Log struct {
	ID        int64          `json:"id"`
	EventID   string         `json:"event_id"`
	UserID    *int64         `json:"user_id"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details"`
	CreatedAt time.Time      `json:"created_at"`
}

// Filter narrows a log listing. Zero values do not filter.
type Filter struct {
	UserID *int64
	Action string
	Since  time.Time
	Limit  int
}

// Repository appends and lists audit entries.
type Repository interface {
	Append(ctx context.Context, entry Log) (int64, error)
	// List returns matching entries, newest first.
	List(ctx context.Context, filter Filter) ([]Log, error)
}
