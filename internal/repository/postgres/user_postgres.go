package postgres

import (
	"context"
	"database/sql"

	"docvault/internal/model"
	"docvault/internal/repository"
)

const userColumns = `id, email, name, storage_used_bytes, storage_limit_bytes, created_at`

// UserPostgres is a PostgreSQL implementation of repository.UserRepository.
type UserPostgres struct {
	db *sql.DB
}

// NewUserPostgres creates a new UserPostgres repository.
func NewUserPostgres(db *sql.DB) *UserPostgres {
	return &UserPostgres{db: db}
}

var _ repository.UserRepository = (*UserPostgres)(nil)

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.StorageUsedBytes,
		&u.StorageLimitBytes,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user row and returns the stored record.
func (r *UserPostgres) Create(ctx context.Context, u *model.User) (*model.User, error) {
	const q = `
		INSERT INTO users (id, email, name, storage_used_bytes, storage_limit_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns
	row := queryerFrom(ctx, r.db).QueryRowContext(ctx, q,
		u.ID,
		u.Email,
		u.Name,
		u.StorageUsedBytes,
		u.StorageLimitBytes,
		u.CreatedAt,
	)
	return scanUser(row)
}

// FindByID fetches a user by id, or sql.ErrNoRows.
func (r *UserPostgres) FindByID(ctx context.Context, id string) (*model.User, error) {
	const q = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`
	return scanUser(queryerFrom(ctx, r.db).QueryRowContext(ctx, q, id))
}

// FindByEmail fetches a user by email, or sql.ErrNoRows.
func (r *UserPostgres) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1
	`
	return scanUser(queryerFrom(ctx, r.db).QueryRowContext(ctx, q, email))
}

// AdjustStorage applies an unconditional delta to the quota ledger.
func (r *UserPostgres) AdjustStorage(ctx context.Context, id string, delta int64) error {
	const q = `
		UPDATE users
		SET storage_used_bytes = GREATEST(storage_used_bytes + $1, 0)
		WHERE id = $2
	`
	res, err := queryerFrom(ctx, r.db).ExecContext(ctx, q, delta, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReserveStorage atomically adds bytes to the ledger only when the result
// stays within the user's limit; returns false when it would not.
func (r *UserPostgres) ReserveStorage(ctx context.Context, id string, bytes int64) (bool, error) {
	const q = `
		UPDATE users
		SET storage_used_bytes = storage_used_bytes + $1
		WHERE id = $2 AND storage_used_bytes + $1 <= storage_limit_bytes
	`
	res, err := queryerFrom(ctx, r.db).ExecContext(ctx, q, bytes, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
