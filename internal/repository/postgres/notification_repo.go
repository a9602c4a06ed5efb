package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/vidgraph/internal/model"
)

// NotificationRepo implements NotificationRepository using PostgreSQL.
// Nullable columns read back as zero values.
type NotificationRepo struct{ db *DB }

// NewNotificationRepo constructs a notification repository.
func NewNotificationRepo(db *DB) *NotificationRepo { return &NotificationRepo{db: db} }

const notificationColumns = `id, receiver_id, coalesce(sender_id, 0), type, content, coalesce(related_id, 0), coalesce(related_type, ''), is_read, created_at`

// Create inserts n. Zero sender and related fields are stored as NULL.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	const q = `
INSERT INTO notifications (receiver_id, sender_id, type, content, related_id, related_type)
VALUES ($1, NULLIF($2::bigint, 0), $3, $4, NULLIF($5::bigint, 0), NULLIF($6, ''))
RETURNING id, is_read, created_at`
	err := r.db.Pool.QueryRow(ctx, q,
		int64(n.Receiver), int64(n.Sender), string(n.Type), n.Content, n.RelatedID, n.RelatedType,
	).Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// List returns a page of receiver's notifications, newest first.
func (r *NotificationRepo) List(ctx context.Context, receiver model.ExternalID, typ model.NotificationType, offset, limit int) ([]model.Notification, error) {
	const q = `SELECT ` + notificationColumns + `
FROM notifications
WHERE receiver_id = $1 AND ($2 = '' OR type = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4`
	rows, err := r.db.Pool.Query(ctx, q, int64(receiver), string(typ), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Count counts receiver's notifications of typ, or of every type.
func (r *NotificationRepo) Count(ctx context.Context, receiver model.ExternalID, typ model.NotificationType) (int, error) {
	const q = `
SELECT count(*) FROM notifications
WHERE receiver_id = $1 AND ($2 = '' OR type = $2)`
	var n int64
	if err := r.db.Pool.QueryRow(ctx, q, int64(receiver), string(typ)).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}

// CountUnreadByType groups receiver's unread notifications by type in one query.
func (r *NotificationRepo) CountUnreadByType(ctx context.Context, receiver model.ExternalID) (map[model.NotificationType]int, error) {
	const q = `
SELECT type, count(*) FROM notifications
WHERE receiver_id = $1 AND is_read = false
GROUP BY type`
	rows, err := r.db.Pool.Query(ctx, q, int64(receiver))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[model.NotificationType]int{}
	for rows.Next() {
		var (
			typ string
			n   int64
		)
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		out[model.NotificationType(typ)] = int(n)
	}
	return out, rows.Err()
}

// MarkRead flips one unread notification owned by receiver. Someone else's
// id changes nothing.
func (r *NotificationRepo) MarkRead(ctx context.Context, id int64, receiver model.ExternalID) (int64, error) {
	const q = `
UPDATE notifications SET is_read = true
WHERE id = $1 AND receiver_id = $2 AND is_read = false`
	tag, err := r.db.Pool.Exec(ctx, q, id, int64(receiver))
	if err != nil {
		return 0, fmt.Errorf("mark notification read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkAllRead flips receiver's unread notifications of typ, or of every type.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, receiver model.ExternalID, typ model.NotificationType) (int64, error) {
	const q = `
UPDATE notifications SET is_read = true
WHERE receiver_id = $1 AND is_read = false AND ($2 = '' OR type = $2)`
	tag, err := r.db.Pool.Exec(ctx, q, int64(receiver), string(typ))
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanNotification(row pgx.Row) (model.Notification, error) {
	var (
		n            model.Notification
		to, from     int64
		typ, relType string
	)
	if err := row.Scan(&n.ID, &to, &from, &typ, &n.Content, &n.RelatedID, &relType, &n.IsRead, &n.CreatedAt); err != nil {
		return model.Notification{}, err
	}
	n.Receiver, n.Sender = model.ExternalID(to), model.ExternalID(from)
	n.Type, n.RelatedType = model.NotificationType(typ), relType
	return n, nil
}
