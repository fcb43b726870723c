package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/twocards/backoffice/internal/model/chat"
)

type chatRepo struct {
	db *sql.DB
}

// NewChatRepo returns the chat message repository.
func NewChatRepo(d *DB) chat.Repository {
	return &chatRepo{db: d.sql}
}

// Insert stores the message; the origin becomes the nullable column pair.
func (r *chatRepo) Insert(ctx context.Context, m chat.Message) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO chat_messages (sender_id, visitor_name, content, is_command, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, nullInt(m.SenderID()), nullString(m.VisitorName()), m.Content, m.IsCommand, unixNano(m.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to insert chat message: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns the newest limit messages, newest first.
func (r *chatRepo) Recent(ctx context.Context, limit int) ([]chat.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.sender_id, COALESCE(u.username, ''), m.visitor_name, m.content, m.is_command, m.created_at
		FROM chat_messages m
		LEFT JOIN users u ON u.id = m.sender_id
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	var out []chat.Message
	for rows.Next() {
		var (
			m           chat.Message
			senderID    sql.NullInt64
			username    string
			visitorName sql.NullString
			createdAt   int64
		)
		if err := rows.Scan(&m.ID, &senderID, &username, &visitorName, &m.Content, &m.IsCommand, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		if senderID.Valid {
			m.Origin = chat.StaffOrigin{UserID: senderID.Int64, Username: username}
		} else {
			m.Origin = chat.VisitorOrigin{Name: visitorName.String}
		}
		m.CreatedAt = fromUnixNano(createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}
