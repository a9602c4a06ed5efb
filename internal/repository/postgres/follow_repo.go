package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/model"
)

// FollowRepo implements FollowRepository using PostgreSQL.
// Uniqueness of (follower_id, following_id) is enforced by the primary key.
type FollowRepo struct{ db *DB }

// NewFollowRepo constructs a follow repository.
func NewFollowRepo(db *DB) *FollowRepo { return &FollowRepo{db: db} }

// Create inserts the edge; an existing edge yields errs.ErrAlreadyExists.
func (r *FollowRepo) Create(ctx context.Context, follower, following model.ExternalID) error {
	const q = `
INSERT INTO follows (follower_id, following_id)
VALUES ($1, $2)
ON CONFLICT (follower_id, following_id) DO NOTHING`
	tag, err := r.db.Pool.Exec(ctx, q, int64(follower), int64(following))
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create follow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrAlreadyExists
	}
	return nil
}

// Delete removes the edge if present.
func (r *FollowRepo) Delete(ctx context.Context, follower, following model.ExternalID) (bool, error) {
	const q = `DELETE FROM follows WHERE follower_id = $1 AND following_id = $2`
	tag, err := r.db.Pool.Exec(ctx, q, int64(follower), int64(following))
	if err != nil {
		return false, fmt.Errorf("delete follow: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Exists reports whether follower follows following.
func (r *FollowRepo) Exists(ctx context.Context, follower, following model.ExternalID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND following_id = $2)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, int64(follower), int64(following)).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// Targets returns all users follower follows.
func (r *FollowRepo) Targets(ctx context.Context, follower model.ExternalID) ([]model.ExternalID, error) {
	const q = `SELECT following_id FROM follows WHERE follower_id = $1`
	rows, err := r.db.Pool.Query(ctx, q, int64(follower))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ExternalID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, model.ExternalID(id))
	}
	return out, rows.Err()
}

// Count counts edges matching f.
func (r *FollowRepo) Count(ctx context.Context, f model.EdgeFilter) (int, error) {
	where, args := edgeWhere(f)
	var n int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM follows`+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}

// List returns edges matching f ordered by creation time, newest first.
func (r *FollowRepo) List(ctx context.Context, f model.EdgeFilter, offset, limit int) ([]model.Edge, error) {
	where, args := edgeWhere(f)
	args = append(args, limit, offset)
	q := `SELECT follower_id, following_id, created_at FROM follows` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, follower_id, following_id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Edge
	for rows.Next() {
		var (
			from, to int64
			ts       time.Time
		)
		if err := rows.Scan(&from, &to, &ts); err != nil {
			return nil, err
		}
		out = append(out, model.Edge{Follower: model.ExternalID(from), Following: model.ExternalID(to), CreatedAt: ts})
	}
	return out, rows.Err()
}

// edgeWhere renders f as a WHERE clause with positional arguments.
func edgeWhere(f model.EdgeFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Follower != 0 {
		args = append(args, int64(f.Follower))
		conds = append(conds, fmt.Sprintf("follower_id = $%d", len(args)))
	}
	if f.Following != 0 {
		args = append(args, int64(f.Following))
		conds = append(conds, fmt.Sprintf("following_id = $%d", len(args)))
	}
	if f.FollowerIn != nil {
		args = append(args, int64s(f.FollowerIn))
		conds = append(conds, fmt.Sprintf("follower_id = ANY($%d)", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
