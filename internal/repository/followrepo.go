package repository

import (
	"context"

	"github.com/and161185/vidgraph/internal/model"
)

// FollowRepository stores directed follow edges, unique per ordered pair.
type FollowRepository interface {
	// Create inserts an edge. A duplicate reports errs.ErrAlreadyExists or nil, never a second row.
	Create(ctx context.Context, follower, following model.ExternalID) error
	// Delete removes an edge; a missing edge is not an error.
	Delete(ctx context.Context, follower, following model.ExternalID) (removed bool, err error)
	// Exists reports whether the edge follower -> following exists.
	Exists(ctx context.Context, follower, following model.ExternalID) (bool, error)
	// Targets returns everyone follower follows.
	Targets(ctx context.Context, follower model.ExternalID) ([]model.ExternalID, error)
	// Count counts edges matching f.
	Count(ctx context.Context, f model.EdgeFilter) (int, error)
	// List returns edges matching f, most recent first.
	List(ctx context.Context, f model.EdgeFilter, offset, limit int) ([]model.Edge, error)
}
