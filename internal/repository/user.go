package repository

import (
	"context"

	"docvault/internal/model"
)

// UserRepository defines data access for the user/quota directory.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// AdjustStorage applies an unconditional atomic delta to the quota
	// ledger (used for releases and purges).
	AdjustStorage(ctx context.Context, id string, delta int64) error

	// ReserveStorage atomically adds bytes to the ledger only if the result
	// stays within the user's limit; returns false when it would not.
	ReserveStorage(ctx context.Context, id string, bytes int64) (bool, error)
}
