package postgres

import (
	"context"
	"database/sql"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

const folderColumns = `id, user_id, parent_id, name, path, color, description, is_root, is_deleted, deleted_at, created_at, updated_at`

// FolderPostgres is a PostgreSQL implementation of repository.FolderRepository.
type FolderPostgres struct {
	db *sql.DB
}

// NewFolderPostgres creates a new FolderPostgres repository.
func NewFolderPostgres(db *sql.DB) *FolderPostgres {
	return &FolderPostgres{db: db}
}

var _ repository.FolderRepository = (*FolderPostgres)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFolder(row rowScanner) (*model.Folder, error) {
	var f model.Folder
	if err := row.Scan(
		&f.ID,
		&f.UserID,
		&f.ParentID,
		&f.Name,
		&f.Path,
		&f.Color,
		&f.Description,
		&f.IsRoot,
		&f.IsDeleted,
		&f.DeletedAt,
		&f.CreatedAt,
		&f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &f, nil
}

// Create inserts a new folder row and returns the stored record.
func (r *FolderPostgres) Create(ctx context.Context, f *model.Folder) (*model.Folder, error) {
	const q = `
		INSERT INTO folders (id, user_id, parent_id, name, path, color, description, is_root, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + folderColumns
	row := queryerFrom(ctx, r.db).QueryRowContext(ctx, q,
		f.ID,
		f.UserID,
		f.ParentID,
		f.Name,
		f.Path,
		f.Color,
		f.Description,
		f.IsRoot,
		f.CreatedAt,
		f.UpdatedAt,
	)
	return scanFolder(row)
}

// FindLive fetches a non-deleted folder scoped to its owner.
func (r *FolderPostgres) FindLive(ctx context.Context, id, userID string) (*model.Folder, error) {
	const q = `
		SELECT ` + folderColumns + `
		FROM folders
		WHERE id = $1 AND user_id = $2 AND NOT is_deleted
	`
	return scanFolder(queryerFrom(ctx, r.db).QueryRowContext(ctx, q, id, userID))
}

// FindAny fetches a folder scoped to its owner regardless of deletion state.
func (r *FolderPostgres) FindAny(ctx context.Context, id, userID string) (*model.Folder, error) {
	const q = `
		SELECT ` + folderColumns + `
		FROM folders
		WHERE id = $1 AND user_id = $2
	`
	return scanFolder(queryerFrom(ctx, r.db).QueryRowContext(ctx, q, id, userID))
}

// FindRoot fetches the user's materialized root folder.
func (r *FolderPostgres) FindRoot(ctx context.Context, userID string) (*model.Folder, error) {
	const q = `
		SELECT ` + folderColumns + `
		FROM folders
		WHERE user_id = $1 AND is_root AND NOT is_deleted
	`
	return scanFolder(queryerFrom(ctx, r.db).QueryRowContext(ctx, q, userID))
}

// ExistsLiveSibling checks for a live name collision under one parent.
func (r *FolderPostgres) ExistsLiveSibling(ctx context.Context, userID string, parentID *string, name string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM folders
			WHERE user_id = $1 AND parent_id IS NOT DISTINCT FROM $2 AND name = $3 AND NOT is_deleted
		)
	`
	var exists bool
	err := queryerFrom(ctx, r.db).QueryRowContext(ctx, q, userID, parentID, name).Scan(&exists)
	return exists, err
}

// Update persists name, parent, path, and cosmetic changes.
func (r *FolderPostgres) Update(ctx context.Context, f *model.Folder) error {
	const q = `
		UPDATE folders
		SET parent_id = $1, name = $2, path = $3, color = $4, description = $5, updated_at = $6
		WHERE id = $7
	`
	res, err := queryerFrom(ctx, r.db).ExecContext(ctx, q,
		f.ParentID, f.Name, f.Path, f.Color, f.Description, time.Now().UTC(), f.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdatePath rewrites only the path column; used by cascade recomputation.
func (r *FolderPostgres) UpdatePath(ctx context.Context, id, path string) error {
	const q = `UPDATE folders SET path = $1, updated_at = $2 WHERE id = $3`
	_, err := queryerFrom(ctx, r.db).ExecContext(ctx, q, path, time.Now().UTC(), id)
	return err
}

// SetDeleted flips the soft-delete flag for all ids in one statement.
func (r *FolderPostgres) SetDeleted(ctx context.Context, ids []string, deletedAt *time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `
		UPDATE folders
		SET is_deleted = $1, deleted_at = $2, updated_at = $3
		WHERE id = ANY($4)
	`
	_, err := queryerFrom(ctx, r.db).ExecContext(ctx, q, deletedAt != nil, deletedAt, time.Now().UTC(), ids)
	return err
}

// ListChildren returns the live child folders under parentID, ordered by name.
func (r *FolderPostgres) ListChildren(ctx context.Context, userID string, parentID *string) ([]model.Folder, error) {
	const q = `
		SELECT ` + folderColumns + `
		FROM folders
		WHERE user_id = $1 AND parent_id IS NOT DISTINCT FROM $2 AND NOT is_deleted
		ORDER BY name ASC
	`
	rows, err := queryerFrom(ctx, r.db).QueryContext(ctx, q, userID, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	folders := make([]model.Folder, 0)
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, *f)
	}
	return folders, rows.Err()
}

// SearchByName returns live folders matching query by name, paginated.
func (r *FolderPostgres) SearchByName(ctx context.Context, userID, query string, pq repository.PageQuery) (*repository.PageResult[model.Folder], error) {
	pattern := "%" + query + "%"

	const qCount = `
		SELECT COUNT(*) FROM folders
		WHERE user_id = $1 AND name ILIKE $2 AND NOT is_deleted
	`
	var total int
	if err := queryerFrom(ctx, r.db).QueryRowContext(ctx, qCount, userID, pattern).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + folderColumns + `
		FROM folders
		WHERE user_id = $1 AND name ILIKE $2 AND NOT is_deleted
		ORDER BY name ASC
		LIMIT $3 OFFSET $4
	`
	rows, err := queryerFrom(ctx, r.db).QueryContext(ctx, qList, userID, pattern, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Folder, 0)
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.Folder]{Items: items, Total: total}, nil
}

// CountLiveDocuments counts the non-deleted documents directly in a folder.
func (r *FolderPostgres) CountLiveDocuments(ctx context.Context, folderID string) (int, error) {
	const q = `SELECT COUNT(*) FROM documents WHERE folder_id = $1 AND NOT is_deleted`
	var n int
	err := queryerFrom(ctx, r.db).QueryRowContext(ctx, q, folderID).Scan(&n)
	return n, err
}

// HardDelete removes folder rows permanently.
func (r *FolderPostgres) HardDelete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `DELETE FROM folders WHERE id = ANY($1)`
	_, err := queryerFrom(ctx, r.db).ExecContext(ctx, q, ids)
	return err
}
