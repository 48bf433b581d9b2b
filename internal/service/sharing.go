package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"docvault/internal/apperr"
	"docvault/internal/config"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// ShareGrantParams carries the inputs for a direct user-to-user share.
type ShareGrantParams struct {
	ItemType     model.ItemType
	ItemID       string
	GranteeEmail string
	Permission   model.Permission
	ExpiresAt    *time.Time
	Message      string
}

// ShareLinkParams carries the inputs for a public share link.
type ShareLinkParams struct {
	ItemType       model.ItemType
	ItemID         string
	Permission     model.Permission
	ExpiresAt      *time.Time
	Password       *string
	MaxAccessCount *int64
}

// LinkFolderContent is the listing a folder link exposes anonymously.
type LinkFolderContent struct {
	Folder    *model.Folder    `json:"folder"`
	Folders   []model.Folder   `json:"folders"`
	Documents []model.Document `json:"documents"`
}

// SharingService defines the use cases for direct shares and public links.
type SharingService interface {
	// ShareWithUser grants a user access by email, rejecting self-shares and
	// duplicate grants, and emits a notification event on success.
	ShareWithUser(ctx context.Context, ownerID string, p ShareGrantParams) (*model.ShareGrant, error)

	// RevokeShare removes a grant; only the original sharer may revoke.
	RevokeShare(ctx context.Context, requesterID, shareID string) error

	ListSharedWithMe(ctx context.Context, userID string, itemType model.ItemType, limit, offset int) (*ListResult[model.ShareGrant], error)
	ListSharedByMe(ctx context.Context, userID string, itemType model.ItemType, limit, offset int) (*ListResult[model.ShareGrant], error)

	CreateShareLink(ctx context.Context, ownerID string, p ShareLinkParams) (*model.ShareLink, error)
	DeactivateLink(ctx context.Context, requesterID, linkID string) error
	ListMyLinks(ctx context.Context, userID string, limit, offset int) (*ListResult[model.ShareLink], error)

	// ResolveLink is the single choke point of all anonymous access: it
	// verifies the password, re-checks the target's liveness, and consumes
	// exactly one access atomically. Every public endpoint goes through it.
	ResolveLink(ctx context.Context, token string, password *string) (*model.ShareLink, error)

	// LinkDocument returns the metadata behind a document link.
	LinkDocument(ctx context.Context, token string, password *string) (*model.Document, error)

	// LinkDownload streams a document link's content; requires DOWNLOAD.
	LinkDownload(ctx context.Context, token string, password *string) (io.ReadCloser, *model.Document, error)

	// LinkFolderContents returns the live listing behind a folder link.
	LinkFolderContents(ctx context.Context, token string, password *string) (*LinkFolderContent, error)

	// EffectivePermission computes an authenticated user's permission on an
	// item: owner gets full control, otherwise the highest live grant. Links
	// never contribute here; they are anonymous-only.
	EffectivePermission(ctx context.Context, userID string, itemType model.ItemType, itemID string) (model.Permission, bool, error)

	// DeactivateExpiredLinks turns off expired active links (background).
	DeactivateExpiredLinks(ctx context.Context) (int64, error)
}

type sharingService struct {
	shares   repository.ShareRepository
	folders  repository.FolderRepository
	docs     repository.DocumentRepository
	users    repository.UserRepository
	store    storage.Storage
	notifier Notifier
	cfg      config.VaultConfig
}

// NewSharingService constructs a new SharingService.
func NewSharingService(
	shares repository.ShareRepository,
	folders repository.FolderRepository,
	docs repository.DocumentRepository,
	users repository.UserRepository,
	store storage.Storage,
	notifier Notifier,
	cfg config.VaultConfig,
) SharingService {
	return &sharingService{
		shares:   shares,
		folders:  folders,
		docs:     docs,
		users:    users,
		store:    store,
		notifier: notifier,
		cfg:      cfg,
	}
}

func (s *sharingService) ShareWithUser(ctx context.Context, ownerID string, p ShareGrantParams) (*model.ShareGrant, error) {
	if !p.Permission.Valid() {
		return nil, fmt.Errorf("unknown permission %q: %w", p.Permission, apperr.ErrValidation)
	}
	itemName, err := s.ownedItemName(ctx, ownerID, p.ItemType, p.ItemID)
	if err != nil {
		return nil, err
	}

	grantee, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(p.GranteeEmail)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("grantee: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	if grantee.ID == ownerID {
		return nil, fmt.Errorf("cannot share with yourself: %w", apperr.ErrValidation)
	}

	exists, err := s.shares.GrantExists(ctx, p.ItemType, p.ItemID, grantee.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("already shared with %s: %w", grantee.Email, apperr.ErrConflict)
	}

	grant, err := s.shares.CreateGrant(ctx, &model.ShareGrant{
		ID:         newID(),
		ItemType:   p.ItemType,
		ItemID:     p.ItemID,
		OwnerID:    ownerID,
		GranteeID:  grantee.ID,
		Permission: p.Permission,
		ExpiresAt:  p.ExpiresAt,
		Message:    p.Message,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	grant.ItemName = itemName
	grant.GranteeEmail = grantee.Email

	s.notifier.ShareCreated(ctx, ShareEvent{
		ShareID:      grant.ID,
		ItemType:     grant.ItemType,
		ItemID:       grant.ItemID,
		ItemName:     itemName,
		OwnerID:      ownerID,
		GranteeID:    grantee.ID,
		GranteeEmail: grantee.Email,
		Permission:   grant.Permission,
		Message:      grant.Message,
		CreatedAt:    grant.CreatedAt,
	})
	return grant, nil
}

func (s *sharingService) RevokeShare(ctx context.Context, requesterID, shareID string) error {
	grant, err := s.shares.FindGrant(ctx, shareID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("share: %w", apperr.ErrNotFound)
		}
		return err
	}
	if grant.OwnerID != requesterID {
		return fmt.Errorf("only the sharer can revoke: %w", apperr.ErrForbidden)
	}
	return s.shares.DeleteGrant(ctx, shareID)
}

func (s *sharingService) ListSharedWithMe(ctx context.Context, userID string, itemType model.ItemType, limit, offset int) (*ListResult[model.ShareGrant], error) {
	res, err := s.shares.ListGrantsForGrantee(ctx, userID, itemType, clampPage(limit, offset))
	if err != nil {
		return nil, err
	}
	return pageOf(res), nil
}

func (s *sharingService) ListSharedByMe(ctx context.Context, userID string, itemType model.ItemType, limit, offset int) (*ListResult[model.ShareGrant], error) {
	res, err := s.shares.ListGrantsByOwner(ctx, userID, itemType, clampPage(limit, offset))
	if err != nil {
		return nil, err
	}
	return pageOf(res), nil
}

func (s *sharingService) CreateShareLink(ctx context.Context, ownerID string, p ShareLinkParams) (*model.ShareLink, error) {
	if !p.Permission.Valid() {
		return nil, fmt.Errorf("unknown permission %q: %w", p.Permission, apperr.ErrValidation)
	}
	if p.MaxAccessCount != nil && *p.MaxAccessCount <= 0 {
		return nil, fmt.Errorf("max access count must be positive: %w", apperr.ErrValidation)
	}
	if _, err := s.ownedItemName(ctx, ownerID, p.ItemType, p.ItemID); err != nil {
		return nil, err
	}

	var passwordHash *string
	if p.Password != nil && *p.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*p.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		h := string(hash)
		passwordHash = &h
	}

	return s.shares.CreateLink(ctx, &model.ShareLink{
		ID:             newID(),
		Token:          newLinkToken(),
		ItemType:       p.ItemType,
		ItemID:         p.ItemID,
		CreatedBy:      ownerID,
		Permission:     p.Permission,
		ExpiresAt:      p.ExpiresAt,
		PasswordHash:   passwordHash,
		MaxAccessCount: p.MaxAccessCount,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	})
}

func (s *sharingService) DeactivateLink(ctx context.Context, requesterID, linkID string) error {
	link, err := s.shares.FindLink(ctx, linkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("share link: %w", apperr.ErrNotFound)
		}
		return err
	}
	if link.CreatedBy != requesterID {
		return fmt.Errorf("only the creator can deactivate: %w", apperr.ErrForbidden)
	}
	return s.shares.SetLinkActive(ctx, linkID, false)
}

func (s *sharingService) ListMyLinks(ctx context.Context, userID string, limit, offset int) (*ListResult[model.ShareLink], error) {
	res, err := s.shares.ListLinksByCreator(ctx, userID, clampPage(limit, offset))
	if err != nil {
		return nil, err
	}
	return pageOf(res), nil
}

func (s *sharingService) ResolveLink(ctx context.Context, token string, password *string) (*model.ShareLink, error) {
	link, _, _, err := s.resolve(ctx, token, password)
	return link, err
}

func (s *sharingService) LinkDocument(ctx context.Context, token string, password *string) (*model.Document, error) {
	link, doc, _, err := s.resolve(ctx, token, password)
	if err != nil {
		return nil, err
	}
	if link.ItemType != model.ItemDocument {
		return nil, fmt.Errorf("link does not point at a document: %w", apperr.ErrValidation)
	}
	return doc, nil
}

func (s *sharingService) LinkDownload(ctx context.Context, token string, password *string) (io.ReadCloser, *model.Document, error) {
	link, doc, _, err := s.resolve(ctx, token, password)
	if err != nil {
		return nil, nil, err
	}
	if link.ItemType != model.ItemDocument {
		return nil, nil, fmt.Errorf("link does not point at a document: %w", apperr.ErrValidation)
	}
	if !link.Permission.AtLeast(model.PermissionDownload) {
		return nil, nil, fmt.Errorf("link permits viewing only: %w", apperr.ErrForbidden)
	}

	getCtx, cancel := context.WithTimeout(ctx, s.cfg.DownloadTimeout)
	rc, _, err := s.store.Get(getCtx, doc.StorageKey)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("read content: %v: %w", err, apperr.ErrFileOperation)
	}
	return &cancelReadCloser{ReadCloser: rc, cancel: cancel}, doc, nil
}

func (s *sharingService) LinkFolderContents(ctx context.Context, token string, password *string) (*LinkFolderContent, error) {
	link, _, folder, err := s.resolve(ctx, token, password)
	if err != nil {
		return nil, err
	}
	if link.ItemType != model.ItemFolder {
		return nil, fmt.Errorf("link does not point at a folder: %w", apperr.ErrValidation)
	}

	folderID := folder.ID
	subfolders, err := s.folders.ListChildren(ctx, folder.UserID, &folderID)
	if err != nil {
		return nil, err
	}
	documents, err := s.docs.ListLiveByFolder(ctx, folder.UserID, &folderID)
	if err != nil {
		return nil, err
	}
	return &LinkFolderContent{Folder: folder, Folders: subfolders, Documents: documents}, nil
}

func (s *sharingService) EffectivePermission(ctx context.Context, userID string, itemType model.ItemType, itemID string) (model.Permission, bool, error) {
	owned := false
	var err error
	if itemType == model.ItemFolder {
		_, err = s.folders.FindLive(ctx, itemID, userID)
	} else {
		_, err = s.docs.FindLive(ctx, itemID, userID)
	}
	switch {
	case err == nil:
		owned = true
	case !errors.Is(err, sql.ErrNoRows):
		return "", false, err
	}
	if owned {
		return model.PermissionEdit, true, nil
	}
	return s.shares.BestGrantPermission(ctx, itemType, itemID, userID, time.Now().UTC())
}

func (s *sharingService) DeactivateExpiredLinks(ctx context.Context) (int64, error) {
	n, err := s.shares.DeactivateExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logJSON(map[string]any{
			"component":   "sharing",
			"event":       "links_expired",
			"deactivated": n,
		})
	}
	return n, nil
}

// resolve validates the link and consumes exactly one access. The target is
// checked before the counter moves, so accesses to dead targets never count.
func (s *sharingService) resolve(ctx context.Context, token string, password *string) (*model.ShareLink, *model.Document, *model.Folder, error) {
	link, err := s.shares.FindLinkByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, fmt.Errorf("share link: %w", apperr.ErrNotFound)
		}
		return nil, nil, nil, err
	}

	now := time.Now().UTC()
	if !link.Valid(now) {
		return nil, nil, nil, fmt.Errorf("share link is no longer valid: %w", apperr.ErrUnauthorized)
	}
	if link.HasPassword() {
		if password == nil ||
			bcrypt.CompareHashAndPassword([]byte(*link.PasswordHash), []byte(*password)) != nil {
			return nil, nil, nil, fmt.Errorf("share link password mismatch: %w", apperr.ErrUnauthorized)
		}
	}

	var doc *model.Document
	var folder *model.Folder
	if link.ItemType == model.ItemFolder {
		folder, err = s.folders.FindLive(ctx, link.ItemID, link.CreatedBy)
	} else {
		doc, err = s.docs.FindLive(ctx, link.ItemID, link.CreatedBy)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, fmt.Errorf("shared item is gone: %w", apperr.ErrNotFound)
		}
		return nil, nil, nil, err
	}

	ok, err := s.shares.ConsumeAccess(ctx, link.ID, now)
	if err != nil {
		return nil, nil, nil, err
	}
	if !ok {
		// Lost a race to the last permitted access or to expiry.
		return nil, nil, nil, fmt.Errorf("share link is no longer valid: %w", apperr.ErrUnauthorized)
	}
	link.AccessCount++

	return link, doc, folder, nil
}

func (s *sharingService) ownedItemName(ctx context.Context, ownerID string, itemType model.ItemType, itemID string) (string, error) {
	var name string
	var err error
	if itemType == model.ItemFolder {
		var f *model.Folder
		f, err = s.folders.FindLive(ctx, itemID, ownerID)
		if err == nil {
			name = f.Name
		}
	} else {
		var d *model.Document
		d, err = s.docs.FindLive(ctx, itemID, ownerID)
		if err == nil {
			name = d.Name
		}
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("shared item: %w", apperr.ErrNotFound)
		}
		return "", err
	}
	return name, nil
}

// newLinkToken builds an opaque 64-hex-char token from two random UUIDs.
func newLinkToken() string {
	return strings.ReplaceAll(uuid.New().String()+uuid.New().String(), "-", "")
}
