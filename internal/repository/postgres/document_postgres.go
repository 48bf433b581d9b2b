package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

const documentColumns = `id, user_id, folder_id, name, original_name, file_size, file_type, mime_type, category, storage_key, checksum, version, is_favorite, download_count, is_deleted, deleted_at, last_accessed_at, created_at, updated_at`

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

func scanDocument(row rowScanner) (*model.Document, error) {
	var d model.Document
	if err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.FolderID,
		&d.Name,
		&d.OriginalName,
		&d.FileSize,
		&d.FileType,
		&d.MimeType,
		&d.Category,
		&d.StorageKey,
		&d.Checksum,
		&d.Version,
		&d.IsFavorite,
		&d.DownloadCount,
		&d.IsDeleted,
		&d.DeletedAt,
		&d.LastAccessedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

func collectDocuments(rows *sql.Rows) ([]model.Document, error) {
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, user_id, folder_id, name, original_name, file_size, file_type, mime_type, category, storage_key, checksum, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + documentColumns
	row := queryerFrom(ctx, r.db).QueryRowContext(ctx, q,
		doc.ID,
		doc.UserID,
		doc.FolderID,
		doc.Name,
		doc.OriginalName,
		doc.FileSize,
		doc.FileType,
		doc.MimeType,
		doc.Category,
		doc.StorageKey,
		doc.Checksum,
		doc.Version,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return scanDocument(row)
}

// FindLive fetches a non-deleted document scoped to its owner.
func (r *DocumentPostgres) FindLive(ctx context.Context, id, userID string) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE id = $1 AND user_id = $2 AND NOT is_deleted
	`
	return scanDocument(queryerFrom(ctx, r.db).QueryRowContext(ctx, q, id, userID))
}

// FindAny fetches a document scoped to its owner regardless of deletion state.
func (r *DocumentPostgres) FindAny(ctx context.Context, id, userID string) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE id = $1 AND user_id = $2
	`
	return scanDocument(queryerFrom(ctx, r.db).QueryRowContext(ctx, q, id, userID))
}

// ExistsLiveInFolder checks for a live name collision inside one folder.
func (r *DocumentPostgres) ExistsLiveInFolder(ctx context.Context, userID string, folderID *string, name string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM documents
			WHERE user_id = $1 AND folder_id IS NOT DISTINCT FROM $2 AND name = $3 AND NOT is_deleted
		)
	`
	var exists bool
	err := queryerFrom(ctx, r.db).QueryRowContext(ctx, q, userID, folderID, name).Scan(&exists)
	return exists, err
}

// Rename updates the display name.
func (r *DocumentPostgres) Rename(ctx context.Context, id, name string) error {
	const q = `UPDATE documents SET name = $1, updated_at = $2 WHERE id = $3`
	return r.execOne(ctx, q, name, time.Now().UTC(), id)
}

// Move reassigns the document to another folder (nil = unfiled).
func (r *DocumentPostgres) Move(ctx context.Context, id string, folderID *string) error {
	const q = `UPDATE documents SET folder_id = $1, updated_at = $2 WHERE id = $3`
	return r.execOne(ctx, q, folderID, time.Now().UTC(), id)
}

// SetFavorite flips the favorite flag.
func (r *DocumentPostgres) SetFavorite(ctx context.Context, id string, favorite bool) error {
	const q = `UPDATE documents SET is_favorite = $1, updated_at = $2 WHERE id = $3`
	return r.execOne(ctx, q, favorite, time.Now().UTC(), id)
}

// UpdateContent swaps the blob pointer, size, checksum, and version in place.
func (r *DocumentPostgres) UpdateContent(ctx context.Context, id, storageKey string, size int64, checksum string, version int) error {
	const q = `
		UPDATE documents
		SET storage_key = $1, file_size = $2, checksum = $3, version = $4, updated_at = $5
		WHERE id = $6
	`
	return r.execOne(ctx, q, storageKey, size, checksum, version, time.Now().UTC(), id)
}

// TouchAccess bumps the download counter and last-accessed timestamp.
func (r *DocumentPostgres) TouchAccess(ctx context.Context, id string) error {
	const q = `
		UPDATE documents
		SET download_count = download_count + 1, last_accessed_at = $1
		WHERE id = $2
	`
	_, err := queryerFrom(ctx, r.db).ExecContext(ctx, q, time.Now().UTC(), id)
	return err
}

// SetDeleted flips the soft-delete flag for all ids in one statement.
func (r *DocumentPostgres) SetDeleted(ctx context.Context, ids []string, deletedAt *time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `
		UPDATE documents
		SET is_deleted = $1, deleted_at = $2, updated_at = $3
		WHERE id = ANY($4)
	`
	_, err := queryerFrom(ctx, r.db).ExecContext(ctx, q, deletedAt != nil, deletedAt, time.Now().UTC(), ids)
	return err
}

// ListLiveByFolder returns every live document in a folder, unpaged.
func (r *DocumentPostgres) ListLiveByFolder(ctx context.Context, userID string, folderID *string) ([]model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE user_id = $1 AND folder_id IS NOT DISTINCT FROM $2 AND NOT is_deleted
		ORDER BY name ASC
	`
	rows, err := queryerFrom(ctx, r.db).QueryContext(ctx, q, userID, folderID)
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows)
}

// ListByFolder returns the live documents in a folder, paginated.
func (r *DocumentPostgres) ListByFolder(ctx context.Context, userID string, folderID *string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `
		SELECT COUNT(*) FROM documents
		WHERE user_id = $1 AND folder_id IS NOT DISTINCT FROM $2 AND NOT is_deleted
	`
	const qList = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE user_id = $1 AND folder_id IS NOT DISTINCT FROM $2 AND NOT is_deleted
		ORDER BY name ASC
		LIMIT $3 OFFSET $4
	`
	return r.page(ctx, qCount, qList, pq, userID, folderID)
}

// ListByCategory returns the user's live documents in one category.
func (r *DocumentPostgres) ListByCategory(ctx context.Context, userID string, category model.Category, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `
		SELECT COUNT(*) FROM documents
		WHERE user_id = $1 AND category = $2 AND NOT is_deleted
	`
	const qList = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE user_id = $1 AND category = $2 AND NOT is_deleted
		ORDER BY name ASC
		LIMIT $3 OFFSET $4
	`
	return r.page(ctx, qCount, qList, pq, userID, category)
}

// ListRecent returns live documents ordered by most recent access, falling
// back to update time for never-accessed documents.
func (r *DocumentPostgres) ListRecent(ctx context.Context, userID string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `
		SELECT COUNT(*) FROM documents
		WHERE user_id = $1 AND NOT is_deleted
	`
	const qList = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE user_id = $1 AND NOT is_deleted
		ORDER BY COALESCE(last_accessed_at, updated_at) DESC
		LIMIT $2 OFFSET $3
	`
	return r.page(ctx, qCount, qList, pq, userID)
}

// ListFavorites returns the user's live favorite documents.
func (r *DocumentPostgres) ListFavorites(ctx context.Context, userID string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `
		SELECT COUNT(*) FROM documents
		WHERE user_id = $1 AND is_favorite AND NOT is_deleted
	`
	const qList = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE user_id = $1 AND is_favorite AND NOT is_deleted
		ORDER BY name ASC
		LIMIT $2 OFFSET $3
	`
	return r.page(ctx, qCount, qList, pq, userID)
}

// SearchByName returns live documents whose name matches query, paginated.
func (r *DocumentPostgres) SearchByName(ctx context.Context, userID, query string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	pattern := "%" + query + "%"
	const qCount = `
		SELECT COUNT(*) FROM documents
		WHERE user_id = $1 AND name ILIKE $2 AND NOT is_deleted
	`
	const qList = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE user_id = $1 AND name ILIKE $2 AND NOT is_deleted
		ORDER BY name ASC
		LIMIT $3 OFFSET $4
	`
	return r.page(ctx, qCount, qList, pq, userID, pattern)
}

// AddTag attaches a tag; duplicates are absorbed by the primary key.
func (r *DocumentPostgres) AddTag(ctx context.Context, documentID, name string) error {
	const q = `
		INSERT INTO document_tags (document_id, name)
		VALUES ($1, $2)
		ON CONFLICT (document_id, name) DO NOTHING
	`
	_, err := queryerFrom(ctx, r.db).ExecContext(ctx, q, documentID, name)
	return err
}

// RemoveTag detaches a tag.
func (r *DocumentPostgres) RemoveTag(ctx context.Context, documentID, name string) error {
	const q = `DELETE FROM document_tags WHERE document_id = $1 AND name = $2`
	return r.execOne(ctx, q, documentID, name)
}

// ListTags returns a document's tags sorted by name.
func (r *DocumentPostgres) ListTags(ctx context.Context, documentID string) ([]string, error) {
	const q = `SELECT name FROM document_tags WHERE document_id = $1 ORDER BY name ASC`
	return r.listStrings(ctx, q, documentID)
}

// ListUserTags returns the distinct tags across a user's live documents.
func (r *DocumentPostgres) ListUserTags(ctx context.Context, userID string) ([]string, error) {
	const q = `
		SELECT DISTINCT t.name
		FROM document_tags t
		JOIN documents d ON d.id = t.document_id
		WHERE d.user_id = $1 AND NOT d.is_deleted
		ORDER BY t.name ASC
	`
	return r.listStrings(ctx, q, userID)
}

const metadataColumns = `document_id, attributes, extracted_text, page_count, width, height, duration_seconds, author, title, created_at, updated_at`

func scanMetadata(row rowScanner) (*model.DocumentMetadata, error) {
	var m model.DocumentMetadata
	var attrs []byte
	if err := row.Scan(
		&m.DocumentID,
		&attrs,
		&m.ExtractedText,
		&m.PageCount,
		&m.Width,
		&m.Height,
		&m.DurationSeconds,
		&m.Author,
		&m.Title,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(attrs, &m.Attributes); err != nil {
		return nil, err
	}
	return &m, nil
}

// FindMetadata returns the sidecar row for one document.
func (r *DocumentPostgres) FindMetadata(ctx context.Context, documentID string) (*model.DocumentMetadata, error) {
	const q = `
		SELECT ` + metadataColumns + `
		FROM document_metadata
		WHERE document_id = $1
	`
	return scanMetadata(queryerFrom(ctx, r.db).QueryRowContext(ctx, q, documentID))
}

// UpsertMetadata inserts or replaces the sidecar row for m.DocumentID.
func (r *DocumentPostgres) UpsertMetadata(ctx context.Context, m *model.DocumentMetadata) (*model.DocumentMetadata, error) {
	attrs, err := json.Marshal(m.Attributes)
	if err != nil {
		return nil, err
	}
	const q = `
		INSERT INTO document_metadata (document_id, attributes, extracted_text, page_count, width, height, duration_seconds, author, title, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (document_id) DO UPDATE SET
			attributes = EXCLUDED.attributes,
			extracted_text = EXCLUDED.extracted_text,
			page_count = EXCLUDED.page_count,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			duration_seconds = EXCLUDED.duration_seconds,
			author = EXCLUDED.author,
			title = EXCLUDED.title,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + metadataColumns
	row := queryerFrom(ctx, r.db).QueryRowContext(ctx, q,
		m.DocumentID, attrs, m.ExtractedText, m.PageCount, m.Width, m.Height,
		m.DurationSeconds, m.Author, m.Title, time.Now().UTC())
	return scanMetadata(row)
}

// HardDelete removes the document row permanently; tags and metadata cascade
// in SQL.
func (r *DocumentPostgres) HardDelete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	_, err := queryerFrom(ctx, r.db).ExecContext(ctx, q, id)
	return err
}

func (r *DocumentPostgres) execOne(ctx context.Context, q string, args ...any) error {
	res, err := queryerFrom(ctx, r.db).ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *DocumentPostgres) page(ctx context.Context, qCount, qList string, pq repository.PageQuery, args ...any) (*repository.PageResult[model.Document], error) {
	var total int
	if err := queryerFrom(ctx, r.db).QueryRowContext(ctx, qCount, args...).Scan(&total); err != nil {
		return nil, err
	}
	rows, err := queryerFrom(ctx, r.db).QueryContext(ctx, qList, append(args, pq.Limit, pq.Offset)...)
	if err != nil {
		return nil, err
	}
	items, err := collectDocuments(rows)
	if err != nil {
		return nil, err
	}
	return &repository.PageResult[model.Document]{Items: items, Total: total}, nil
}

func (r *DocumentPostgres) listStrings(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := queryerFrom(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
