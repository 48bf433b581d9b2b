package repository

import (
	"context"
	"time"

	"docvault/internal/model"
)

// ShareRepository defines data access for direct grants and public links.
type ShareRepository interface {
	// CreateGrant inserts a new grant row and returns the stored record.
	CreateGrant(ctx context.Context, g *model.ShareGrant) (*model.ShareGrant, error)

	// GrantExists reports whether a grant already exists for the
	// (item, grantee) pair.
	GrantExists(ctx context.Context, itemType model.ItemType, itemID, granteeID string) (bool, error)

	// FindGrant returns a grant by id, or sql.ErrNoRows.
	FindGrant(ctx context.Context, id string) (*model.ShareGrant, error)

	DeleteGrant(ctx context.Context, id string) error

	ListGrantsForGrantee(ctx context.Context, granteeID string, itemType model.ItemType, pq PageQuery) (*PageResult[model.ShareGrant], error)
	ListGrantsByOwner(ctx context.Context, ownerID string, itemType model.ItemType, pq PageQuery) (*PageResult[model.ShareGrant], error)

	// BestGrantPermission returns the highest non-expired permission granted
	// to granteeID on the item; ok is false when no live grant applies.
	BestGrantPermission(ctx context.Context, itemType model.ItemType, itemID, granteeID string, now time.Time) (model.Permission, bool, error)

	// CreateLink inserts a new share link and returns the stored record.
	CreateLink(ctx context.Context, l *model.ShareLink) (*model.ShareLink, error)

	// FindLink returns a link by id, or sql.ErrNoRows.
	FindLink(ctx context.Context, id string) (*model.ShareLink, error)

	// FindLinkByToken returns a link by its opaque token, or sql.ErrNoRows.
	FindLinkByToken(ctx context.Context, token string) (*model.ShareLink, error)

	// ConsumeAccess atomically increments the access counter if and only if
	// the link is still valid at now. It returns false when the link was
	// inactive, expired, or exhausted. The conditional update is the single
	// serialization point for the max-access-count limit.
	ConsumeAccess(ctx context.Context, id string, now time.Time) (bool, error)

	SetLinkActive(ctx context.Context, id string, active bool) error

	ListLinksByCreator(ctx context.Context, userID string, pq PageQuery) (*PageResult[model.ShareLink], error)

	// DeactivateExpired flips is_active off for every active link whose
	// expiry has passed; returns the number of links deactivated.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}
