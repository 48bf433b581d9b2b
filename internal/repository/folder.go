package repository

import (
	"context"
	"time"

	"docvault/internal/model"
)

// FolderRepository defines data access for the namespace tree.
type FolderRepository interface {
	// Create inserts a new folder row and returns the stored record.
	Create(ctx context.Context, f *model.Folder) (*model.Folder, error)

	// FindLive returns a non-deleted folder owned by userID, or sql.ErrNoRows.
	FindLive(ctx context.Context, id, userID string) (*model.Folder, error)

	// FindAny returns the folder regardless of its deletion flag, still
	// scoped to the owner.
	FindAny(ctx context.Context, id, userID string) (*model.Folder, error)

	// FindRoot returns the user's materialized root folder, or sql.ErrNoRows.
	FindRoot(ctx context.Context, userID string) (*model.Folder, error)

	// ExistsLiveSibling reports whether a live folder named name already
	// exists under parentID (nil = root level) for the user.
	ExistsLiveSibling(ctx context.Context, userID string, parentID *string, name string) (bool, error)

	// Update persists name, parent, path, color, and description changes.
	Update(ctx context.Context, f *model.Folder) error

	// UpdatePath rewrites only the path column; used by cascade recomputation.
	UpdatePath(ctx context.Context, id, path string) error

	// SetDeleted flips the soft-delete flag for all ids at once.
	// A nil deletedAt restores the folders.
	SetDeleted(ctx context.Context, ids []string, deletedAt *time.Time) error

	// ListChildren returns the live child folders under parentID
	// (nil = root level) ordered by name.
	ListChildren(ctx context.Context, userID string, parentID *string) ([]model.Folder, error)

	// SearchByName returns live folders whose name matches query, paginated.
	SearchByName(ctx context.Context, userID, query string, pq PageQuery) (*PageResult[model.Folder], error)

	// CountLiveDocuments counts the non-deleted documents directly in a folder.
	CountLiveDocuments(ctx context.Context, folderID string) (int, error)

	// HardDelete removes folder rows permanently.
	HardDelete(ctx context.Context, ids []string) error
}
