package repository

import (
	"context"

	"github.com/and161185/vidgraph/internal/model"
)

// MessageRepository stores direct messages.
type MessageRepository interface {
	// Create persists m and fills ID and CreatedAt.
	Create(ctx context.Context, m *model.Message) error
	// ListInvolving returns every message sent or received by user, most recent first.
	ListInvolving(ctx context.Context, user model.ExternalID) ([]model.Message, error)
	// ListThread returns one page of the a<->b thread, most recent first.
	ListThread(ctx context.Context, a, b model.ExternalID, offset, limit int) ([]model.Message, error)
	// CountThread counts the a<->b thread.
	CountThread(ctx context.Context, a, b model.ExternalID) (int, error)
	// MarkRead flags unread messages from -> to as read and reports how many changed.
	MarkRead(ctx context.Context, from, to model.ExternalID) (int64, error)
}
