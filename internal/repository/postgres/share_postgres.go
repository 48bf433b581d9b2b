package postgres

import (
	"context"
	"database/sql"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

const grantColumns = `id, item_type, item_id, owner_id, grantee_id, permission, expires_at, message, created_at`
const linkColumns = `id, token, item_type, item_id, created_by, permission, expires_at, password_hash, access_count, max_access_count, is_active, created_at`

// SharePostgres is a PostgreSQL implementation of repository.ShareRepository.
type SharePostgres struct {
	db *sql.DB
}

// NewSharePostgres creates a new SharePostgres repository.
func NewSharePostgres(db *sql.DB) *SharePostgres {
	return &SharePostgres{db: db}
}

var _ repository.ShareRepository = (*SharePostgres)(nil)

func scanGrant(row rowScanner) (*model.ShareGrant, error) {
	var g model.ShareGrant
	if err := row.Scan(
		&g.ID,
		&g.ItemType,
		&g.ItemID,
		&g.OwnerID,
		&g.GranteeID,
		&g.Permission,
		&g.ExpiresAt,
		&g.Message,
		&g.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &g, nil
}

func scanLink(row rowScanner) (*model.ShareLink, error) {
	var l model.ShareLink
	if err := row.Scan(
		&l.ID,
		&l.Token,
		&l.ItemType,
		&l.ItemID,
		&l.CreatedBy,
		&l.Permission,
		&l.ExpiresAt,
		&l.PasswordHash,
		&l.AccessCount,
		&l.MaxAccessCount,
		&l.IsActive,
		&l.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateGrant inserts a new grant row and returns the stored record.
func (r *SharePostgres) CreateGrant(ctx context.Context, g *model.ShareGrant) (*model.ShareGrant, error) {
	const q = `
		INSERT INTO share_grants (id, item_type, item_id, owner_id, grantee_id, permission, expires_at, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + grantColumns
	row := queryerFrom(ctx, r.db).QueryRowContext(ctx, q,
		g.ID,
		g.ItemType,
		g.ItemID,
		g.OwnerID,
		g.GranteeID,
		g.Permission,
		g.ExpiresAt,
		g.Message,
		g.CreatedAt,
	)
	return scanGrant(row)
}

// GrantExists reports whether a grant exists for the (item, grantee) pair.
func (r *SharePostgres) GrantExists(ctx context.Context, itemType model.ItemType, itemID, granteeID string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM share_grants
			WHERE item_type = $1 AND item_id = $2 AND grantee_id = $3
		)
	`
	var exists bool
	err := queryerFrom(ctx, r.db).QueryRowContext(ctx, q, itemType, itemID, granteeID).Scan(&exists)
	return exists, err
}

// FindGrant returns a grant by id, or sql.ErrNoRows.
func (r *SharePostgres) FindGrant(ctx context.Context, id string) (*model.ShareGrant, error) {
	const q = `
		SELECT ` + grantColumns + `
		FROM share_grants
		WHERE id = $1
	`
	return scanGrant(queryerFrom(ctx, r.db).QueryRowContext(ctx, q, id))
}

// DeleteGrant removes a grant row.
func (r *SharePostgres) DeleteGrant(ctx context.Context, id string) error {
	const q = `DELETE FROM share_grants WHERE id = $1`
	res, err := queryerFrom(ctx, r.db).ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListGrantsForGrantee returns the non-expired grants held by granteeID for
// one item type, enriched with the item name and owner email.
func (r *SharePostgres) ListGrantsForGrantee(ctx context.Context, granteeID string, itemType model.ItemType, pq repository.PageQuery) (*repository.PageResult[model.ShareGrant], error) {
	const qCount = `
		SELECT COUNT(*) FROM share_grants
		WHERE grantee_id = $1 AND item_type = $2 AND (expires_at IS NULL OR expires_at > now())
	`
	const qList = `
		SELECT ` + grantColumns + `
		FROM share_grants
		WHERE grantee_id = $1 AND item_type = $2 AND (expires_at IS NULL OR expires_at > now())
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`
	return r.pageGrants(ctx, qCount, qList, pq, granteeID, itemType)
}

// ListGrantsByOwner returns the grants an owner has issued for one item type.
func (r *SharePostgres) ListGrantsByOwner(ctx context.Context, ownerID string, itemType model.ItemType, pq repository.PageQuery) (*repository.PageResult[model.ShareGrant], error) {
	const qCount = `
		SELECT COUNT(*) FROM share_grants
		WHERE owner_id = $1 AND item_type = $2
	`
	const qList = `
		SELECT ` + grantColumns + `
		FROM share_grants
		WHERE owner_id = $1 AND item_type = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`
	return r.pageGrants(ctx, qCount, qList, pq, ownerID, itemType)
}

// BestGrantPermission returns the highest non-expired permission granted to
// granteeID on the item. The rank is computed in SQL so a single row comes
// back regardless of how many grants overlap.
func (r *SharePostgres) BestGrantPermission(ctx context.Context, itemType model.ItemType, itemID, granteeID string, now time.Time) (model.Permission, bool, error) {
	const q = `
		SELECT permission
		FROM share_grants
		WHERE item_type = $1 AND item_id = $2 AND grantee_id = $3
		  AND (expires_at IS NULL OR expires_at > $4)
		ORDER BY CASE permission WHEN 'EDIT' THEN 3 WHEN 'DOWNLOAD' THEN 2 ELSE 1 END DESC
		LIMIT 1
	`
	var p model.Permission
	err := queryerFrom(ctx, r.db).QueryRowContext(ctx, q, itemType, itemID, granteeID, now).Scan(&p)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return p, true, nil
}

// CreateLink inserts a new share link and returns the stored record.
func (r *SharePostgres) CreateLink(ctx context.Context, l *model.ShareLink) (*model.ShareLink, error) {
	const q = `
		INSERT INTO share_links (id, token, item_type, item_id, created_by, permission, expires_at, password_hash, max_access_count, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + linkColumns
	row := queryerFrom(ctx, r.db).QueryRowContext(ctx, q,
		l.ID,
		l.Token,
		l.ItemType,
		l.ItemID,
		l.CreatedBy,
		l.Permission,
		l.ExpiresAt,
		l.PasswordHash,
		l.MaxAccessCount,
		l.IsActive,
		l.CreatedAt,
	)
	return scanLink(row)
}

// FindLink returns a link by id, or sql.ErrNoRows.
func (r *SharePostgres) FindLink(ctx context.Context, id string) (*model.ShareLink, error) {
	const q = `
		SELECT ` + linkColumns + `
		FROM share_links
		WHERE id = $1
	`
	return scanLink(queryerFrom(ctx, r.db).QueryRowContext(ctx, q, id))
}

// FindLinkByToken returns a link by its opaque token, or sql.ErrNoRows.
func (r *SharePostgres) FindLinkByToken(ctx context.Context, token string) (*model.ShareLink, error) {
	const q = `
		SELECT ` + linkColumns + `
		FROM share_links
		WHERE token = $1
	`
	return scanLink(queryerFrom(ctx, r.db).QueryRowContext(ctx, q, token))
}

// ConsumeAccess atomically increments the access counter if and only if the
// link is still active, unexpired, and under its access limit at now. The
// conditional update serializes concurrent accesses against the limit.
func (r *SharePostgres) ConsumeAccess(ctx context.Context, id string, now time.Time) (bool, error) {
	const q = `
		UPDATE share_links
		SET access_count = access_count + 1
		WHERE id = $1
		  AND is_active
		  AND (expires_at IS NULL OR expires_at > $2)
		  AND (max_access_count IS NULL OR access_count < max_access_count)
	`
	res, err := queryerFrom(ctx, r.db).ExecContext(ctx, q, id, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetLinkActive flips the active flag.
func (r *SharePostgres) SetLinkActive(ctx context.Context, id string, active bool) error {
	const q = `UPDATE share_links SET is_active = $1 WHERE id = $2`
	res, err := queryerFrom(ctx, r.db).ExecContext(ctx, q, active, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListLinksByCreator returns the links a user has created, newest first.
func (r *SharePostgres) ListLinksByCreator(ctx context.Context, userID string, pq repository.PageQuery) (*repository.PageResult[model.ShareLink], error) {
	const qCount = `SELECT COUNT(*) FROM share_links WHERE created_by = $1`
	var total int
	if err := queryerFrom(ctx, r.db).QueryRowContext(ctx, qCount, userID).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + linkColumns + `
		FROM share_links
		WHERE created_by = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := queryerFrom(ctx, r.db).QueryContext(ctx, qList, userID, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.ShareLink, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.ShareLink]{Items: items, Total: total}, nil
}

// DeactivateExpired flips is_active off for every active link whose expiry
// has passed; returns the number of links deactivated.
func (r *SharePostgres) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `
		UPDATE share_links
		SET is_active = FALSE
		WHERE is_active AND expires_at IS NOT NULL AND expires_at <= $1
	`
	res, err := queryerFrom(ctx, r.db).ExecContext(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SharePostgres) pageGrants(ctx context.Context, qCount, qList string, pq repository.PageQuery, args ...any) (*repository.PageResult[model.ShareGrant], error) {
	var total int
	if err := queryerFrom(ctx, r.db).QueryRowContext(ctx, qCount, args...).Scan(&total); err != nil {
		return nil, err
	}
	rows, err := queryerFrom(ctx, r.db).QueryContext(ctx, qList, append(args, pq.Limit, pq.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.ShareGrant, 0)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.ShareGrant]{Items: items, Total: total}, nil
}
