package chat

import (
	"context"
	"fmt"
	"slices"

	"github.com/twocards/backoffice/internal/model/chat"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// History serves the recent-messages view.
type History struct {
	repo chat.Repository
}

// NewHistory creates a History over repo.
func NewHistory(repo chat.Repository) *History {
	return &History{repo: repo}
}

// Recent returns up to limit of the newest messages in chronological
// order. limit <= 0 means the default; larger values are capped.
func (h *History) Recent(ctx context.Context, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)

	msgs, err := h.repo.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	slices.Reverse(msgs)
	return msgs, nil
}
