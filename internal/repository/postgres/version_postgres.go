package postgres

import (
	"context"
	"database/sql"

	"docvault/internal/model"
	"docvault/internal/repository"
)

const versionColumns = `id, document_id, version_number, storage_key, file_size, checksum, change_note, created_at`

// VersionPostgres is a PostgreSQL implementation of repository.VersionRepository.
type VersionPostgres struct {
	db *sql.DB
}

// NewVersionPostgres creates a new VersionPostgres repository.
func NewVersionPostgres(db *sql.DB) *VersionPostgres {
	return &VersionPostgres{db: db}
}

var _ repository.VersionRepository = (*VersionPostgres)(nil)

func scanVersion(row rowScanner) (*model.DocumentVersion, error) {
	var v model.DocumentVersion
	if err := row.Scan(
		&v.ID,
		&v.DocumentID,
		&v.VersionNumber,
		&v.StorageKey,
		&v.FileSize,
		&v.Checksum,
		&v.ChangeNote,
		&v.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &v, nil
}

// Create inserts a new version snapshot and returns the stored record.
func (r *VersionPostgres) Create(ctx context.Context, v *model.DocumentVersion) (*model.DocumentVersion, error) {
	const q = `
		INSERT INTO document_versions (id, document_id, version_number, storage_key, file_size, checksum, change_note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + versionColumns
	row := queryerFrom(ctx, r.db).QueryRowContext(ctx, q,
		v.ID,
		v.DocumentID,
		v.VersionNumber,
		v.StorageKey,
		v.FileSize,
		v.Checksum,
		v.ChangeNote,
		v.CreatedAt,
	)
	return scanVersion(row)
}

// ListByDocument returns a document's snapshots, newest first.
func (r *VersionPostgres) ListByDocument(ctx context.Context, documentID string) ([]model.DocumentVersion, error) {
	const q = `
		SELECT ` + versionColumns + `
		FROM document_versions
		WHERE document_id = $1
		ORDER BY version_number DESC
	`
	rows, err := queryerFrom(ctx, r.db).QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := make([]model.DocumentVersion, 0)
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}
	return versions, rows.Err()
}

// FindByNumber returns one snapshot by its version number, or sql.ErrNoRows.
func (r *VersionPostgres) FindByNumber(ctx context.Context, documentID string, number int) (*model.DocumentVersion, error) {
	const q = `
		SELECT ` + versionColumns + `
		FROM document_versions
		WHERE document_id = $1 AND version_number = $2
	`
	return scanVersion(queryerFrom(ctx, r.db).QueryRowContext(ctx, q, documentID, number))
}

// DeleteByDocument removes every snapshot of a document.
func (r *VersionPostgres) DeleteByDocument(ctx context.Context, documentID string) error {
	const q = `DELETE FROM document_versions WHERE document_id = $1`
	_, err := queryerFrom(ctx, r.db).ExecContext(ctx, q, documentID)
	return err
}
