package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/vidgraph/internal/model"
)

// MessageRepo implements MessageRepository using PostgreSQL.
type MessageRepo struct{ db *DB }

// NewMessageRepo constructs a message repository.
func NewMessageRepo(db *DB) *MessageRepo { return &MessageRepo{db: db} }

const messageColumns = `id, sender_id, receiver_id, content, message_type, is_read, created_at`

// Create inserts m and fills the generated columns.
func (r *MessageRepo) Create(ctx context.Context, m *model.Message) error {
	const q = `
INSERT INTO messages (sender_id, receiver_id, content, message_type)
VALUES ($1, $2, $3, $4)
RETURNING id, is_read, created_at`
	err := r.db.Pool.QueryRow(ctx, q, int64(m.Sender), int64(m.Receiver), m.Content, m.MessageType).
		Scan(&m.ID, &m.IsRead, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// ListInvolving returns all messages where user is sender or receiver, newest first.
func (r *MessageRepo) ListInvolving(ctx context.Context, user model.ExternalID) ([]model.Message, error) {
	const q = `SELECT ` + messageColumns + `
FROM messages
WHERE sender_id = $1 OR receiver_id = $1
ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, int64(user))
}

// ListThread returns a page of the a<->b thread, newest first.
func (r *MessageRepo) ListThread(ctx context.Context, a, b model.ExternalID, offset, limit int) ([]model.Message, error) {
	const q = `SELECT ` + messageColumns + `
FROM messages
WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4`
	return r.list(ctx, q, int64(a), int64(b), limit, offset)
}

// CountThread counts messages in the a<->b thread.
func (r *MessageRepo) CountThread(ctx context.Context, a, b model.ExternalID) (int, error) {
	const q = `
SELECT count(*) FROM messages
WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)`
	var n int64
	if err := r.db.Pool.QueryRow(ctx, q, int64(a), int64(b)).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}

// MarkRead flips unread from -> to messages to read. Already-read rows are untouched.
func (r *MessageRepo) MarkRead(ctx context.Context, from, to model.ExternalID) (int64, error) {
	const q = `
UPDATE messages SET is_read = true
WHERE sender_id = $1 AND receiver_id = $2 AND is_read = false`
	tag, err := r.db.Pool.Exec(ctx, q, int64(from), int64(to))
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *MessageRepo) list(ctx context.Context, q string, args ...any) ([]model.Message, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMessage(row pgx.Row) (model.Message, error) {
	var (
		m        model.Message
		from, to int64
		ts       time.Time
	)
	if err := row.Scan(&m.ID, &from, &to, &m.Content, &m.MessageType, &m.IsRead, &ts); err != nil {
		return model.Message{}, err
	}
	m.Sender, m.Receiver, m.CreatedAt = model.ExternalID(from), model.ExternalID(to), ts
	return m, nil
}
