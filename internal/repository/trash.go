package repository

import (
	"context"
	"time"

	"docvault/internal/model"
)

// TrashRepository defines data access for trash records.
type TrashRepository interface {
	// CreateBatch inserts all records of one cascade in a single statement.
	CreateBatch(ctx context.Context, records []model.TrashRecord) error

	// FindForUser returns a trash record owned by userID, or sql.ErrNoRows.
	FindForUser(ctx context.Context, id, userID string) (*model.TrashRecord, error)

	// FindByItem returns the record holding one soft-deleted item, scoped to
	// its owner, or sql.ErrNoRows.
	FindByItem(ctx context.Context, itemType model.ItemType, itemID, userID string) (*model.TrashRecord, error)

	// List returns a user's trash, newest deletions first.
	List(ctx context.Context, userID string, pq PageQuery) (*PageResult[model.TrashRecord], error)

	// ListByCascade returns every record created by one cascading delete.
	ListByCascade(ctx context.Context, cascadeID string) ([]model.TrashRecord, error)

	// ListExpired returns records past their retention deadline.
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]model.TrashRecord, error)

	// Delete removes one record and reports the rows affected. A zero return
	// means another operation (restore or sweep) already claimed the record.
	Delete(ctx context.Context, id string) (int64, error)

	// DeleteByCascade removes every record of a cascade.
	DeleteByCascade(ctx context.Context, cascadeID string) error

	// DeleteByUser removes all of a user's records (empty trash).
	DeleteByUser(ctx context.Context, userID string) error
}
