package chat

import "time"

// Kind partitions realtime connections.
type Kind string

const (
	KindStaff   Kind = "staff"
	KindVisitor Kind = "visitor"
)

// DefaultVisitorName is used when a visitor connects without a name.
const DefaultVisitorName = "زائر"

// Origin identifies who sent a message: StaffOrigin or VisitorOrigin.
type Origin interface {
	Kind() Kind
}

// StaffOrigin is an authenticated staff sender.
type StaffOrigin struct {
	UserID   int64
	Username string
}

func (StaffOrigin) Kind() Kind { return KindStaff }

// VisitorOrigin is an anonymous site visitor. SessionID is the registry id of
// the connection the message arrived on and is never persisted.
type VisitorOrigin struct {
	Name      string
	SessionID string
}

func (VisitorOrigin) Kind() Kind { return KindVisitor }

// Inbound is the frame a client sends.
type Inbound struct {
	Message string `json:"message"`
}

// Outbound is the frame fanned out to connected clients.
type Outbound struct {
	Type        string    `json:"type"`
	ID          int64     `json:"id,omitempty"`
	Sender      string    `json:"sender,omitempty"`
	SenderType  Kind      `json:"sender_type,omitempty"`
	VisitorName *string   `json:"visitor_name"`
	Message     string    `json:"message,omitempty"`
	IsCommand   bool      `json:"is_command"`
	SessionID   string    `json:"session_id,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// OutboundFor projects a persisted message to its wire frame.
func OutboundFor(m Message) Outbound {
	out := Outbound{
		Type:        "message",
		ID:          m.ID,
		SenderType:  m.Origin.Kind(),
		VisitorName: m.VisitorName(),
		Message:     m.Content,
		IsCommand:   m.IsCommand,
		CreatedAt:   m.CreatedAt,
	}
	switch o := m.Origin.(type) {
	case StaffOrigin:
		out.Sender = o.Username
	case VisitorOrigin:
		out.Sender = o.Name
	}
	return out
}

// SessionHello tells a visitor its registry session id.
func SessionHello(sessionID string) Outbound {
	return Outbound{Type: "session", SessionID: sessionID}
}
