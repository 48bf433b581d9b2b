package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

const trashColumns = `id, user_id, item_type, item_id, item_name, original_path, file_size, cascade_id, deleted_at, expires_at`

// TrashPostgres is a PostgreSQL implementation of repository.TrashRepository.
type TrashPostgres struct {
	db *sql.DB
}

// NewTrashPostgres creates a new TrashPostgres repository.
func NewTrashPostgres(db *sql.DB) *TrashPostgres {
	return &TrashPostgres{db: db}
}

var _ repository.TrashRepository = (*TrashPostgres)(nil)

func scanTrashRecord(row rowScanner) (*model.TrashRecord, error) {
	var t model.TrashRecord
	if err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.ItemType,
		&t.ItemID,
		&t.ItemName,
		&t.OriginalPath,
		&t.FileSize,
		&t.CascadeID,
		&t.DeletedAt,
		&t.ExpiresAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateBatch inserts all records of one cascade in a single statement.
func (r *TrashPostgres) CreateBatch(ctx context.Context, records []model.TrashRecord) error {
	if len(records) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO trash_items (id, user_id, item_type, item_id, item_name, original_path, file_size, cascade_id, deleted_at, expires_at) VALUES `)
	args := make([]any, 0, len(records)*10)
	for i, rec := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 10
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10)
		args = append(args,
			rec.ID, rec.UserID, rec.ItemType, rec.ItemID, rec.ItemName,
			rec.OriginalPath, rec.FileSize, rec.CascadeID, rec.DeletedAt, rec.ExpiresAt)
	}

	_, err := queryerFrom(ctx, r.db).ExecContext(ctx, sb.String(), args...)
	return err
}

// FindForUser returns a trash record scoped to its owner, or sql.ErrNoRows.
func (r *TrashPostgres) FindForUser(ctx context.Context, id, userID string) (*model.TrashRecord, error) {
	const q = `
		SELECT ` + trashColumns + `
		FROM trash_items
		WHERE id = $1 AND user_id = $2
	`
	return scanTrashRecord(queryerFrom(ctx, r.db).QueryRowContext(ctx, q, id, userID))
}

// FindByItem returns the record holding one soft-deleted item, or sql.ErrNoRows.
func (r *TrashPostgres) FindByItem(ctx context.Context, itemType model.ItemType, itemID, userID string) (*model.TrashRecord, error) {
	const q = `
		SELECT ` + trashColumns + `
		FROM trash_items
		WHERE item_type = $1 AND item_id = $2 AND user_id = $3
	`
	return scanTrashRecord(queryerFrom(ctx, r.db).QueryRowContext(ctx, q, itemType, itemID, userID))
}

// List returns a user's trash, newest deletions first.
func (r *TrashPostgres) List(ctx context.Context, userID string, pq repository.PageQuery) (*repository.PageResult[model.TrashRecord], error) {
	const qCount = `SELECT COUNT(*) FROM trash_items WHERE user_id = $1`
	var total int
	if err := queryerFrom(ctx, r.db).QueryRowContext(ctx, qCount, userID).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + trashColumns + `
		FROM trash_items
		WHERE user_id = $1
		ORDER BY deleted_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := queryerFrom(ctx, r.db).QueryContext(ctx, qList, userID, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	items, err := collectTrashRecords(rows)
	if err != nil {
		return nil, err
	}
	return &repository.PageResult[model.TrashRecord]{Items: items, Total: total}, nil
}

// ListByCascade returns every record created by one cascading delete.
func (r *TrashPostgres) ListByCascade(ctx context.Context, cascadeID string) ([]model.TrashRecord, error) {
	const q = `
		SELECT ` + trashColumns + `
		FROM trash_items
		WHERE cascade_id = $1
	`
	rows, err := queryerFrom(ctx, r.db).QueryContext(ctx, q, cascadeID)
	if err != nil {
		return nil, err
	}
	return collectTrashRecords(rows)
}

// ListExpired returns records past their retention deadline, oldest first.
func (r *TrashPostgres) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]model.TrashRecord, error) {
	const q = `
		SELECT ` + trashColumns + `
		FROM trash_items
		WHERE expires_at <= $1
		ORDER BY expires_at ASC
		LIMIT $2
	`
	rows, err := queryerFrom(ctx, r.db).QueryContext(ctx, q, cutoff, limit)
	if err != nil {
		return nil, err
	}
	return collectTrashRecords(rows)
}

// Delete removes one record and reports the rows affected. Zero means a
// concurrent restore or sweep already claimed it.
func (r *TrashPostgres) Delete(ctx context.Context, id string) (int64, error) {
	const q = `DELETE FROM trash_items WHERE id = $1`
	res, err := queryerFrom(ctx, r.db).ExecContext(ctx, q, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteByCascade removes every record of a cascade.
func (r *TrashPostgres) DeleteByCascade(ctx context.Context, cascadeID string) error {
	const q = `DELETE FROM trash_items WHERE cascade_id = $1`
	_, err := queryerFrom(ctx, r.db).ExecContext(ctx, q, cascadeID)
	return err
}

// DeleteByUser removes all of a user's records.
func (r *TrashPostgres) DeleteByUser(ctx context.Context, userID string) error {
	const q = `DELETE FROM trash_items WHERE user_id = $1`
	_, err := queryerFrom(ctx, r.db).ExecContext(ctx, q, userID)
	return err
}

func collectTrashRecords(rows *sql.Rows) ([]model.TrashRecord, error) {
	defer rows.Close()
	records := make([]model.TrashRecord, 0)
	for rows.Next() {
		t, err := scanTrashRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *t)
	}
	return records, rows.Err()
}
