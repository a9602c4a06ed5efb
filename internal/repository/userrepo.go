// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/vidgraph/internal/model"
)

// UserRepository provides access to provisioned accounts.
// Accounts are created out of band; this layer only reads and syncs them.
type UserRepository interface {
	// GetByID loads a user by internal ID.
	GetByID(ctx context.Context, id model.InternalID) (*model.User, error)
	// GetByExternalID loads a user by platform ID.
	GetByExternalID(ctx context.Context, id model.ExternalID) (*model.User, error)
	// ListByExternalIDs loads the users that exist among ids, in no particular order.
	ListByExternalIDs(ctx context.Context, ids []model.ExternalID) ([]model.User, error)
	// SyncProfile overwrites the mutable profile fields and returns the updated row.
	SyncProfile(ctx context.Context, id model.InternalID, p model.ProfileSync) (*model.User, error)
	// Search returns users whose username, first name or handle contains keyword (case-insensitive).
	Search(ctx context.Context, keyword string, offset, limit int) ([]model.User, error)
}
