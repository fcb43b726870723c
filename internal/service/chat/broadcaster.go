package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/twocards/backoffice/internal/model/chat"
	"github.com/twocards/backoffice/internal/service/audit"
)

const maxVisitorNameRunes = 64

// Broadcaster persists inbound chat lines and fans them out to the
// connected audience.
type Broadcaster struct {
	registry *Registry
	repo     chat.Repository
	audit    audit.Sink
	logger   *slog.Logger
	now      func() time.Time
}

// NewBroadcaster wires the broadcaster. A nil sink disables auditing.
func NewBroadcaster(registry *Registry, repo chat.Repository, sink audit.Sink, logger *slog.Logger) *Broadcaster {
	if sink == nil {
		sink = audit.NoopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		registry: registry,
		repo:     repo,
		audit:    sink,
		logger:   logger,
		now:      time.Now,
	}
}

// FromStaff handles a line typed by a staff member. It reaches every staff
// connection and every visitor connection. Blank content is ignored and
// returns (nil, nil).
func (b *Broadcaster) FromStaff(ctx context.Context, origin chat.StaffOrigin, content string) (*chat.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	msg, err := b.persist(ctx, origin, content)
	if err != nil {
		return nil, err
	}

	frame := chat.OutboundFor(*msg)
	b.deliver(ctx, frame, b.registry.Staff())
	b.deliver(ctx, frame, b.registry.Visitors())

	b.audit.Record(ctx, audit.Entry{
		Action: "chat.staff_message",
		UserID: audit.UserID(origin.UserID),
		Details: map[string]any{
			"message_id": msg.ID,
			"is_command": msg.IsCommand,
		},
	})
	return msg, nil
}

// FromVisitor handles a line typed by a visitor. It reaches every staff
// connection and the visitor's own connection, never other visitors.
func (b *Broadcaster) FromVisitor(ctx context.Context, origin chat.VisitorOrigin, content string) (*chat.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	origin.Name = NormalizeVisitorName(origin.Name)

	msg, err := b.persist(ctx, origin, content)
	if err != nil {
		return nil, err
	}

	targets := b.registry.Staff()
	if ch, ok := b.registry.Visitor(origin.SessionID); ok {
		targets = append(targets, ch)
	}
	b.deliver(ctx, chat.OutboundFor(*msg), targets)

	b.audit.Record(ctx, audit.Entry{
		Action: "chat.visitor_message",
		Details: map[string]any{
			"message_id":   msg.ID,
			"is_command":   msg.IsCommand,
			"visitor_name": origin.Name,
			"session_id":   origin.SessionID,
		},
	})
	return msg, nil
}

func (b *Broadcaster) persist(ctx context.Context, origin chat.Origin, content string) (*chat.Message, error) {
	msg := chat.NewMessage(origin, content, b.now())
	id, err := b.repo.Insert(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to persist chat message: %w", err)
	}
	msg.ID = id
	return &msg, nil
}

func (b *Broadcaster) deliver(ctx context.Context, frame chat.Outbound, targets []Channel) {
	for _, ch := range targets {
		if err := ch.Send(ctx, frame); err != nil {
			b.logger.Warn("chat delivery failed, skipping channel", "message_id", frame.ID, "error", err)
		}
	}
}

// NormalizeVisitorName trims name, caps it at 64 runes and falls back to
// the default visitor label when blank.
func NormalizeVisitorName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return chat.DefaultVisitorName
	}
	if utf8.RuneCountInString(name) > maxVisitorNameRunes {
		name = strings.TrimSpace(string([]rune(name)[:maxVisitorNameRunes]))
	}
	return name
}
