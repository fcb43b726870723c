// Package audit records who did what. Recording is best effort: a failed
// write is logged and never surfaces to the caller.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditlog "github.com/twocards/backoffice/internal/model/audit"
)

// Entry is one action to record.
type Entry struct {
	Action  string
	UserID  *int64
	Details map[string]any

	// EventID and At are filled in when left empty.
	EventID string
	At      time.Time
}

func (e Entry) stamped() Entry {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	return e
}

// Sink receives audit entries.
type Sink interface {
	Record(ctx context.Context, e Entry)
}

// NoopSink drops entries.
type NoopSink struct{}

func (NoopSink) Record(context.Context, Entry) {}

// Recorder persists entries through the audit repository.
type Recorder struct {
	repo   auditlog.Repository
	logger *slog.Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(repo auditlog.Repository, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{repo: repo, logger: logger}
}

// Record appends e. Errors are logged.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	e = e.stamped()
	_, err := r.repo.Append(ctx, auditlog.Log{
		EventID:   e.EventID,
		UserID:    e.UserID,
		Action:    e.Action,
		Details:   e.Details,
		CreatedAt: e.At,
	})
	if err != nil {
		r.logger.Error("failed to record audit entry", "action", e.Action, "event_id", e.EventID, "error", err)
	}
}

// List returns entries matching filter, newest first.
func (r *Recorder) List(ctx context.Context, filter auditlog.Filter) ([]auditlog.Log, error) {
	return r.repo.List(ctx, filter)
}

// UserID is a convenience for building Entry.UserID from a plain id.
func UserID(id int64) *int64 {
	return &id
}
