package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, telegram_id, handle, COALESCE(username, ''), first_name,
COALESCE(last_name, ''), COALESCE(avatar_url, ''), is_vip, is_creator, privacy_allow_msg, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		id, ext int64
		ts      time.Time
		u       model.User
	)
	err := row.Scan(&id, &ext, &u.Handle, &u.Username, &u.FirstName,
		&u.LastName, &u.AvatarURL, &u.IsVIP, &u.IsCreator, &u.AllowMessages, &ts)
	if err != nil {
		return nil, err
	}
	u.ID, u.ExternalID, u.CreatedAt = model.InternalID(id), model.ExternalID(ext), ts
	return &u, nil
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg int64) (*model.User, error) {
	u, err := scanUser(r.db.Pool.QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// GetByID selects a user by internal ID.
func (r *UserRepo) GetByID(ctx context.Context, id model.InternalID) (*model.User, error) {
	const q = `SELECT ` + userColumns + `
FROM users WHERE id = $1`
	return r.getOne(ctx, q, int64(id))
}

// GetByExternalID selects a user by platform ID.
func (r *UserRepo) GetByExternalID(ctx context.Context, id model.ExternalID) (*model.User, error) {
	const q = `SELECT ` + userColumns + `
FROM users WHERE telegram_id = $1`
	return r.getOne(ctx, q, int64(id))
}

// ListByExternalIDs selects the users present among ids.
func (r *UserRepo) ListByExternalIDs(ctx context.Context, ids []model.ExternalID) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const q = `SELECT ` + userColumns + `
FROM users WHERE telegram_id = ANY($1)`
	return r.list(ctx, q, int64s(ids))
}

// SyncProfile writes through the login profile. Empty optional fields keep the stored value.
func (r *UserRepo) SyncProfile(ctx context.Context, id model.InternalID, p model.ProfileSync) (*model.User, error) {
	const q = `
UPDATE users
SET first_name = $2,
    username = COALESCE(NULLIF($3, ''), username),
    last_name = COALESCE(NULLIF($4, ''), last_name),
    avatar_url = COALESCE(NULLIF($5, ''), avatar_url),
    updated_at = now()
WHERE id = $1
RETURNING ` + userColumns
	u, err := scanUser(r.db.Pool.QueryRow(ctx, q, int64(id), p.FirstName, p.Username, p.LastName, p.AvatarURL))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("sync profile: %w", err)
	}
	return u, nil
}

// Search matches keyword as a case-insensitive substring of username, first name or handle.
func (r *UserRepo) Search(ctx context.Context, keyword string, offset, limit int) ([]model.User, error) {
	const q = `SELECT ` + userColumns + `
FROM users
WHERE username ILIKE $1 ESCAPE '\' OR first_name ILIKE $1 ESCAPE '\' OR handle ILIKE $1 ESCAPE '\'
ORDER BY id
LIMIT $2 OFFSET $3`
	return r.list(ctx, q, "%"+escapeLike(keyword)+"%", limit, offset)
}

func (r *UserRepo) list(ctx context.Context, q string, args ...any) ([]model.User, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string { return likeEscaper.Replace(s) }
