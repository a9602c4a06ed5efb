package repository

import (
	"context"

	"github.com/and161185/vidgraph/internal/model"
)

// NotificationRepository stores notifications. An empty type means every type.
type NotificationRepository interface {
	// Create persists n and fills ID, IsRead and CreatedAt.
	Create(ctx context.Context, n *model.Notification) error
	// List returns one page of receiver's notifications, most recent first.
	List(ctx context.Context, receiver model.ExternalID, typ model.NotificationType, offset, limit int) ([]model.Notification, error)
	// Count counts receiver's notifications.
	Count(ctx context.Context, receiver model.ExternalID, typ model.NotificationType) (int, error)
	// CountUnreadByType counts receiver's unread notifications grouped by type.
	CountUnreadByType(ctx context.Context, receiver model.ExternalID) (map[model.NotificationType]int, error)
	// MarkRead flags notification id as read if it belongs to receiver and reports how many rows changed.
	MarkRead(ctx context.Context, id int64, receiver model.ExternalID) (int64, error)
	// MarkAllRead flags receiver's unread notifications as read and reports how many changed.
	MarkAllRead(ctx context.Context, receiver model.ExternalID, typ model.NotificationType) (int64, error)
}
