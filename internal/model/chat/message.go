package chat

import (
	"context"
	"strings"
	"time"
)

// Message is a persisted chat line. Exactly one of its origin variants is set.
type Message struct {
	ID        int64
	Origin    Origin
	Content   string
	IsCommand bool
	CreatedAt time.Time
}

// NewMessage builds an unsaved message from origin and content.
func NewMessage(origin Origin, content string, now time.Time) Message {
	return Message{
		Origin:    origin,
		Content:   content,
		IsCommand: strings.HasPrefix(content, "/"),
		CreatedAt: now.UTC(),
	}
}

// SenderID returns the staff user id, or nil for visitor messages.
func (m Message) SenderID() *int64 {
	if s, ok := m.Origin.(StaffOrigin); ok {
		id := s.UserID
		return &id
	}
	return nil
}

// VisitorName returns the visitor display name, or nil for staff messages.
func (m Message) VisitorName() *string {
	if v, ok := m.Origin.(VisitorOrigin); ok {
		name := v.Name
		return &name
	}
	return nil
}

// Record is the JSON shape returned by the history endpoint.
type Record struct {
	ID          int64     `json:"id"`
	SenderID    *int64    `json:"sender_id"`
	VisitorName *string   `json:"visitor_name"`
	Content     string    `json:"content"`
	IsCommand   bool      `json:"is_command"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record projects m to its history shape.
func (m Message) Record() Record {
	return Record{
		ID:          m.ID,
		SenderID:    m.SenderID(),
		VisitorName: m.VisitorName(),
		Content:     m.Content,
		IsCommand:   m.IsCommand,
		CreatedAt:   m.CreatedAt,
	}
}

// Repository persists chat messages.
type Repository interface {
	// Insert stores m and returns the assigned id.
	Insert(ctx context.Context, m Message) (int64, error)
	// Recent returns up to limit messages, newest first.
	Recent(ctx context.Context, limit int) ([]Message, error)
}
