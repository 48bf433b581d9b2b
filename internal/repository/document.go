package repository

import (
	"context"
	"time"

	"docvault/internal/model"
)

// DocumentRepository defines data access for documents using SQL queries only.
// No business logic here, strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored document.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindLive returns a non-deleted document owned by userID, or sql.ErrNoRows.
	FindLive(ctx context.Context, id, userID string) (*model.Document, error)

	// FindAny returns the document regardless of its deletion flag, still
	// scoped to the owner.
	FindAny(ctx context.Context, id, userID string) (*model.Document, error)

	// ExistsLiveInFolder reports whether a live document named name already
	// exists in folderID (nil = unfiled) for the user.
	ExistsLiveInFolder(ctx context.Context, userID string, folderID *string, name string) (bool, error)

	Rename(ctx context.Context, id, name string) error
	Move(ctx context.Context, id string, folderID *string) error
	SetFavorite(ctx context.Context, id string, favorite bool) error

	// UpdateContent swaps in a new blob: storage key, size, checksum, version.
	UpdateContent(ctx context.Context, id, storageKey string, size int64, checksum string, version int) error

	// TouchAccess bumps the download counter and last-accessed timestamp.
	TouchAccess(ctx context.Context, id string) error

	// SetDeleted flips the soft-delete flag for all ids at once.
	// A nil deletedAt restores the documents.
	SetDeleted(ctx context.Context, ids []string, deletedAt *time.Time) error

	// ListLiveByFolder returns every live document in a folder, unpaged;
	// used by delete cascades and share-link folder listings.
	ListLiveByFolder(ctx context.Context, userID string, folderID *string) ([]model.Document, error)

	ListByFolder(ctx context.Context, userID string, folderID *string, pq PageQuery) (*PageResult[model.Document], error)
	ListByCategory(ctx context.Context, userID string, category model.Category, pq PageQuery) (*PageResult[model.Document], error)
	ListRecent(ctx context.Context, userID string, pq PageQuery) (*PageResult[model.Document], error)
	ListFavorites(ctx context.Context, userID string, pq PageQuery) (*PageResult[model.Document], error)
	SearchByName(ctx context.Context, userID, query string, pq PageQuery) (*PageResult[model.Document], error)

	// AddTag inserts a tag; adding a duplicate is a no-op.
	AddTag(ctx context.Context, documentID, name string) error
	RemoveTag(ctx context.Context, documentID, name string) error
	ListTags(ctx context.Context, documentID string) ([]string, error)
	ListUserTags(ctx context.Context, userID string) ([]string, error)

	// FindMetadata returns the metadata sidecar row, or sql.ErrNoRows when
	// the document has none.
	FindMetadata(ctx context.Context, documentID string) (*model.DocumentMetadata, error)

	// UpsertMetadata inserts or replaces the sidecar row for m.DocumentID.
	UpsertMetadata(ctx context.Context, m *model.DocumentMetadata) (*model.DocumentMetadata, error)

	// HardDelete removes the document row permanently (tags and metadata
	// cascade in SQL).
	HardDelete(ctx context.Context, id string) error
}

// VersionRepository defines data access for immutable document version
// snapshots.
type VersionRepository interface {
	Create(ctx context.Context, v *model.DocumentVersion) (*model.DocumentVersion, error)
	ListByDocument(ctx context.Context, documentID string) ([]model.DocumentVersion, error)
	FindByNumber(ctx context.Context, documentID string, number int) (*model.DocumentVersion, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}
