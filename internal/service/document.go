package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"docvault/internal/apperr"
	"docvault/internal/config"
	"docvault/internal/filetype"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// UploadParams carries the inputs for a document upload.
type UploadParams struct {
	FolderID     *string
	OriginalName string
	MimeType     string
	Size         int64
}

// ReplaceContentParams carries the inputs for a content replacement.
type ReplaceContentParams struct {
	OriginalName string
	MimeType     string
	Size         int64
	ChangeNote   string
}

// MetadataParams carries the replacement state for a document's metadata
// sidecar.
type MetadataParams struct {
	Attributes      map[string]any
	ExtractedText   *string
	PageCount       *int
	Width           *int
	Height          *int
	DurationSeconds *int64
	Author          *string
	Title           *string
}

// DocumentService defines the use cases for the document lifecycle.
type DocumentService interface {
	// Upload verifies folder and quota, streams the content into the store
	// while hashing it, then commits the row and the quota reservation in one
	// transaction. A failed commit deletes the uploaded blob.
	Upload(ctx context.Context, userID string, r io.Reader, p UploadParams) (*model.Document, error)

	Get(ctx context.Context, userID, id string) (*model.Document, error)

	// Download streams the content. Access bookkeeping (download counter,
	// last-accessed) is best-effort and never fails the read.
	Download(ctx context.Context, userID, id string) (io.ReadCloser, *model.Document, error)

	// PreviewURL returns a time-limited presigned GET URL for the content.
	PreviewURL(ctx context.Context, userID, id string) (string, error)

	Rename(ctx context.Context, userID, id, newName string) (*model.Document, error)
	Move(ctx context.Context, userID, id string, folderID *string) (*model.Document, error)

	// Copy duplicates the document under a new content-store key, reserving
	// quota for the original's size. The copy starts at version 1.
	Copy(ctx context.Context, userID, id string) (*model.Document, error)

	Delete(ctx context.Context, userID, id string) error
	Restore(ctx context.Context, userID, id string) error

	ToggleFavorite(ctx context.Context, userID, id string) (*model.Document, error)

	// AddTag normalizes the tag; adding a duplicate is a no-op.
	AddTag(ctx context.Context, userID, id, tag string) error
	RemoveTag(ctx context.Context, userID, id, tag string) error
	ListUserTags(ctx context.Context, userID string) ([]string, error)

	ListByFolder(ctx context.Context, userID string, folderID *string, limit, offset int) (*ListResult[model.Document], error)
	ListByCategory(ctx context.Context, userID string, category model.Category, limit, offset int) (*ListResult[model.Document], error)
	ListRecent(ctx context.Context, userID string, limit, offset int) (*ListResult[model.Document], error)
	ListFavorites(ctx context.Context, userID string, limit, offset int) (*ListResult[model.Document], error)
	Search(ctx context.Context, userID, query string, limit, offset int) (*ListResult[model.Document], error)

	// ReplaceContent snapshots the current blob as a DocumentVersion, then
	// swaps in the new content and increments the version counter.
	ReplaceContent(ctx context.Context, userID, id string, r io.Reader, p ReplaceContentParams) (*model.Document, error)
	ListVersions(ctx context.Context, userID, id string) ([]model.DocumentVersion, error)

	// RestoreVersion copies version n's blob back as a new implicit version.
	// History is never mutated.
	RestoreVersion(ctx context.Context, userID, id string, number int) (*model.Document, error)

	// GetMetadata returns the metadata sidecar; a document without one reads
	// as an empty sidecar.
	GetMetadata(ctx context.Context, userID, id string) (*model.DocumentMetadata, error)

	// SetMetadata replaces the sidecar wholesale.
	SetMetadata(ctx context.Context, userID, id string, p MetadataParams) (*model.DocumentMetadata, error)
}

type documentService struct {
	cascadeOps
	cfg config.VaultConfig
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(
	txr repository.TxRunner,
	folders repository.FolderRepository,
	docs repository.DocumentRepository,
	versions repository.VersionRepository,
	trash repository.TrashRepository,
	users repository.UserRepository,
	store storage.Storage,
	cfg config.VaultConfig,
) DocumentService {
	return &documentService{
		cascadeOps: cascadeOps{
			txr: txr, folders: folders, docs: docs,
			versions: versions, trash: trash, users: users, store: store,
		},
		cfg: cfg,
	}
}

func (s *documentService) Upload(ctx context.Context, userID string, r io.Reader, p UploadParams) (*model.Document, error) {
	if r == nil {
		return nil, fmt.Errorf("content reader is nil: %w", apperr.ErrValidation)
	}
	if p.Size < 0 {
		return nil, fmt.Errorf("size must be non-negative: %w", apperr.ErrValidation)
	}

	if p.FolderID != nil {
		if _, err := s.folders.FindLive(ctx, *p.FolderID, userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("folder: %w", apperr.ErrNotFound)
			}
			return nil, err
		}
	}

	// Fast availability check before any content-store write. The binding
	// reservation happens atomically in the commit transaction below.
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	if p.Size > user.AvailableStorage() {
		return nil, apperr.QuotaExceeded(user.AvailableStorage(), p.Size)
	}

	docID := newID()
	key := storageKey(userID, docID, filetype.Extension(p.OriginalName))

	checksum, err := s.putHashed(ctx, key, r, p.Size, p.MimeType, p.OriginalName)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &model.Document{
		ID:           docID,
		UserID:       userID,
		FolderID:     p.FolderID,
		Name:         p.OriginalName,
		OriginalName: p.OriginalName,
		FileSize:     p.Size,
		FileType:     filetype.Extension(p.OriginalName),
		MimeType:     p.MimeType,
		Category:     filetype.Categorize(p.OriginalName, p.MimeType),
		StorageKey:   key,
		Checksum:     checksum,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	stored, err := s.commitNewDocument(ctx, userID, doc)
	if err != nil {
		// Rollback: delete the uploaded blob.
		s.deleteBlobs(ctx, []string{key})
		return nil, err
	}
	return stored, nil
}

func (s *documentService) Get(ctx context.Context, userID, id string) (*model.Document, error) {
	doc, err := s.findLive(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	tags, err := s.docs.ListTags(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Tags = tags
	return doc, nil
}

func (s *documentService) Download(ctx context.Context, userID, id string) (io.ReadCloser, *model.Document, error) {
	doc, err := s.findLive(ctx, id, userID)
	if err != nil {
		return nil, nil, err
	}

	getCtx, cancel := context.WithTimeout(ctx, s.cfg.DownloadTimeout)
	rc, _, err := s.store.Get(getCtx, doc.StorageKey)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("read content: %v: %w", err, apperr.ErrFileOperation)
	}

	// Bookkeeping is best-effort; the content is returned regardless.
	if err := s.docs.TouchAccess(ctx, id); err != nil {
		logJSON(map[string]any{
			"component":     "document",
			"event":         "access_bookkeeping_failed",
			"level":         "error",
			"document_id":   id,
			"error_message": err.Error(),
		})
	}

	return &cancelReadCloser{ReadCloser: rc, cancel: cancel}, doc, nil
}

func (s *documentService) PreviewURL(ctx context.Context, userID, id string) (string, error) {
	doc, err := s.findLive(ctx, id, userID)
	if err != nil {
		return "", err
	}
	url, err := s.store.PresignGet(ctx, doc.StorageKey, s.cfg.PresignExpiry)
	if err != nil {
		return "", fmt.Errorf("presign content: %v: %w", err, apperr.ErrFileOperation)
	}
	return url, nil
}

func (s *documentService) Rename(ctx context.Context, userID, id, newName string) (*model.Document, error) {
	doc, err := s.findLive(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if newName == doc.Name {
		return doc, nil
	}
	exists, err := s.docs.ExistsLiveInFolder(ctx, userID, doc.FolderID, newName)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("document %q already exists here: %w", newName, apperr.ErrConflict)
	}
	if err := s.docs.Rename(ctx, id, newName); err != nil {
		return nil, err
	}
	doc.Name = newName
	return doc, nil
}

func (s *documentService) Move(ctx context.Context, userID, id string, folderID *string) (*model.Document, error) {
	doc, err := s.findLive(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if folderID != nil {
		if _, err := s.folders.FindLive(ctx, *folderID, userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("target folder: %w", apperr.ErrNotFound)
			}
			return nil, err
		}
	}
	exists, err := s.docs.ExistsLiveInFolder(ctx, userID, folderID, doc.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("document %q already exists at destination: %w", doc.Name, apperr.ErrConflict)
	}
	if err := s.docs.Move(ctx, id, folderID); err != nil {
		return nil, err
	}
	doc.FolderID = folderID
	return doc, nil
}

func (s *documentService) Copy(ctx context.Context, userID, id string) (*model.Document, error) {
	src, err := s.findLive(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if src.FileSize > user.AvailableStorage() {
		return nil, apperr.QuotaExceeded(user.AvailableStorage(), src.FileSize)
	}

	copyID := newID()
	key := storageKey(userID, copyID, src.FileType)
	if err := s.store.Copy(ctx, src.StorageKey, key); err != nil {
		return nil, fmt.Errorf("copy content: %v: %w", err, apperr.ErrFileOperation)
	}

	now := time.Now().UTC()
	dup := &model.Document{
		ID:           copyID,
		UserID:       userID,
		FolderID:     src.FolderID,
		Name:         copyName(src.Name),
		OriginalName: src.OriginalName,
		FileSize:     src.FileSize,
		FileType:     src.FileType,
		MimeType:     src.MimeType,
		Category:     src.Category,
		StorageKey:   key,
		Checksum:     src.Checksum,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	stored, err := s.commitNewDocument(ctx, userID, dup)
	if err != nil {
		s.deleteBlobs(ctx, []string{key})
		return nil, err
	}
	return stored, nil
}

func (s *documentService) Delete(ctx context.Context, userID, id string) error {
	doc, err := s.findLive(ctx, id, userID)
	if err != nil {
		return err
	}
	return s.softDeleteDocument(ctx, userID, doc, s.containingPath(ctx, userID, doc), s.retention())
}

func (s *documentService) Restore(ctx context.Context, userID, id string) error {
	rec, err := s.trash.FindByItem(ctx, model.ItemDocument, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("document is not in trash: %w", apperr.ErrNotFound)
		}
		return err
	}
	return s.restoreRecord(ctx, rec)
}

func (s *documentService) ToggleFavorite(ctx context.Context, userID, id string) (*model.Document, error) {
	doc, err := s.findLive(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	doc.IsFavorite = !doc.IsFavorite
	if err := s.docs.SetFavorite(ctx, id, doc.IsFavorite); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *documentService) AddTag(ctx context.Context, userID, id, tag string) error {
	if _, err := s.findLive(ctx, id, userID); err != nil {
		return err
	}
	name := normalizeTag(tag)
	if name == "" {
		return fmt.Errorf("tag name is empty: %w", apperr.ErrValidation)
	}
	return s.docs.AddTag(ctx, id, name)
}

func (s *documentService) RemoveTag(ctx context.Context, userID, id, tag string) error {
	if _, err := s.findLive(ctx, id, userID); err != nil {
		return err
	}
	if err := s.docs.RemoveTag(ctx, id, normalizeTag(tag)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("tag: %w", apperr.ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *documentService) ListUserTags(ctx context.Context, userID string) ([]string, error) {
	return s.docs.ListUserTags(ctx, userID)
}

func (s *documentService) ListByFolder(ctx context.Context, userID string, folderID *string, limit, offset int) (*ListResult[model.Document], error) {
	if folderID != nil {
		if _, err := s.folders.FindLive(ctx, *folderID, userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("folder: %w", apperr.ErrNotFound)
			}
			return nil, err
		}
	}
	res, err := s.docs.ListByFolder(ctx, userID, folderID, clampPage(limit, offset))
	if err != nil {
		return nil, err
	}
	return pageOf(res), nil
}

func (s *documentService) ListByCategory(ctx context.Context, userID string, category model.Category, limit, offset int) (*ListResult[model.Document], error) {
	res, err := s.docs.ListByCategory(ctx, userID, category, clampPage(limit, offset))
	if err != nil {
		return nil, err
	}
	return pageOf(res), nil
}

func (s *documentService) ListRecent(ctx context.Context, userID string, limit, offset int) (*ListResult[model.Document], error) {
	res, err := s.docs.ListRecent(ctx, userID, clampPage(limit, offset))
	if err != nil {
		return nil, err
	}
	return pageOf(res), nil
}

func (s *documentService) ListFavorites(ctx context.Context, userID string, limit, offset int) (*ListResult[model.Document], error) {
	res, err := s.docs.ListFavorites(ctx, userID, clampPage(limit, offset))
	if err != nil {
		return nil, err
	}
	return pageOf(res), nil
}

func (s *documentService) Search(ctx context.Context, userID, query string, limit, offset int) (*ListResult[model.Document], error) {
	res, err := s.docs.SearchByName(ctx, userID, query, clampPage(limit, offset))
	if err != nil {
		return nil, err
	}
	return pageOf(res), nil
}

func (s *documentService) ReplaceContent(ctx context.Context, userID, id string, r io.Reader, p ReplaceContentParams) (*model.Document, error) {
	if r == nil {
		return nil, fmt.Errorf("content reader is nil: %w", apperr.ErrValidation)
	}
	doc, err := s.findLive(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	delta := p.Size - doc.FileSize
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if delta > user.AvailableStorage() {
		return nil, apperr.QuotaExceeded(user.AvailableStorage(), delta)
	}

	key := storageKey(userID, newID(), filetype.Extension(p.OriginalName))
	checksum, err := s.putHashed(ctx, key, r, p.Size, p.MimeType, p.OriginalName)
	if err != nil {
		return nil, err
	}

	newVersion := doc.Version + 1
	err = s.txr.WithinTx(ctx, func(ctx context.Context) error {
		if delta > 0 {
			ok, err := s.users.ReserveStorage(ctx, userID, delta)
			if err != nil {
				return err
			}
			if !ok {
				fresh, err := s.users.FindByID(ctx, userID)
				if err != nil {
					return err
				}
				return apperr.QuotaExceeded(fresh.AvailableStorage(), delta)
			}
		} else if delta < 0 {
			if err := s.users.AdjustStorage(ctx, userID, delta); err != nil {
				return err
			}
		}

		// Snapshot the outgoing content before the swap.
		if _, err := s.versions.Create(ctx, &model.DocumentVersion{
			ID:            newID(),
			DocumentID:    doc.ID,
			VersionNumber: doc.Version,
			StorageKey:    doc.StorageKey,
			FileSize:      doc.FileSize,
			Checksum:      doc.Checksum,
			ChangeNote:    p.ChangeNote,
			CreatedAt:     time.Now().UTC(),
		}); err != nil {
			return err
		}
		return s.docs.UpdateContent(ctx, doc.ID, key, p.Size, checksum, newVersion)
	})
	if err != nil {
		s.deleteBlobs(ctx, []string{key})
		return nil, err
	}

	doc.StorageKey = key
	doc.FileSize = p.Size
	doc.Checksum = checksum
	doc.Version = newVersion
	return doc, nil
}

func (s *documentService) ListVersions(ctx context.Context, userID, id string) ([]model.DocumentVersion, error) {
	if _, err := s.findLive(ctx, id, userID); err != nil {
		return nil, err
	}
	return s.versions.ListByDocument(ctx, id)
}

func (s *documentService) RestoreVersion(ctx context.Context, userID, id string, number int) (*model.Document, error) {
	doc, err := s.findLive(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	snap, err := s.versions.FindByNumber(ctx, id, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("version %d: %w", number, apperr.ErrNotFound)
		}
		return nil, err
	}

	delta := snap.FileSize - doc.FileSize
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if delta > user.AvailableStorage() {
		return nil, apperr.QuotaExceeded(user.AvailableStorage(), delta)
	}

	// The snapshot blob stays immutable; restoring copies it to a fresh key.
	key := storageKey(userID, newID(), doc.FileType)
	if err := s.store.Copy(ctx, snap.StorageKey, key); err != nil {
		return nil, fmt.Errorf("copy version content: %v: %w", err, apperr.ErrFileOperation)
	}

	newVersion := doc.Version + 1
	err = s.txr.WithinTx(ctx, func(ctx context.Context) error {
		if delta > 0 {
			ok, err := s.users.ReserveStorage(ctx, userID, delta)
			if err != nil {
				return err
			}
			if !ok {
				fresh, err := s.users.FindByID(ctx, userID)
				if err != nil {
					return err
				}
				return apperr.QuotaExceeded(fresh.AvailableStorage(), delta)
			}
		} else if delta < 0 {
			if err := s.users.AdjustStorage(ctx, userID, delta); err != nil {
				return err
			}
		}

		if _, err := s.versions.Create(ctx, &model.DocumentVersion{
			ID:            newID(),
			DocumentID:    doc.ID,
			VersionNumber: doc.Version,
			StorageKey:    doc.StorageKey,
			FileSize:      doc.FileSize,
			Checksum:      doc.Checksum,
			ChangeNote:    fmt.Sprintf("restored version %d", number),
			CreatedAt:     time.Now().UTC(),
		}); err != nil {
			return err
		}
		return s.docs.UpdateContent(ctx, doc.ID, key, snap.FileSize, snap.Checksum, newVersion)
	})
	if err != nil {
		s.deleteBlobs(ctx, []string{key})
		return nil, err
	}

	doc.StorageKey = key
	doc.FileSize = snap.FileSize
	doc.Checksum = snap.Checksum
	doc.Version = newVersion
	return doc, nil
}

// putHashed streams content into the store under a timeout while computing
// its sha256.
func (s *documentService) GetMetadata(ctx context.Context, userID, id string) (*model.DocumentMetadata, error) {
	doc, err := s.findLive(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	meta, err := s.docs.FindMetadata(ctx, doc.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &model.DocumentMetadata{DocumentID: doc.ID, Attributes: map[string]any{}}, nil
		}
		return nil, err
	}
	return meta, nil
}

func (s *documentService) SetMetadata(ctx context.Context, userID, id string, p MetadataParams) (*model.DocumentMetadata, error) {
	doc, err := s.findLive(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	attrs := p.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	return s.docs.UpsertMetadata(ctx, &model.DocumentMetadata{
		DocumentID:      doc.ID,
		Attributes:      attrs,
		ExtractedText:   p.ExtractedText,
		PageCount:       p.PageCount,
		Width:           p.Width,
		Height:          p.Height,
		DurationSeconds: p.DurationSeconds,
		Author:          p.Author,
		Title:           p.Title,
	})
}

func (s *documentService) putHashed(ctx context.Context, key string, r io.Reader, size int64, mimeType, originalName string) (string, error) {
	putCtx, cancel := context.WithTimeout(ctx, s.cfg.UploadTimeout)
	defer cancel()

	hasher := sha256.New()
	_, err := s.store.Put(putCtx, key, io.TeeReader(r, hasher), storage.PutObjectOptions{
		Size:        size,
		ContentType: mimeType,
		Metadata: map[string]string{
			"original-filename": originalName,
		},
	})
	if err != nil {
		return "", fmt.Errorf("write content: %v: %w", err, apperr.ErrFileOperation)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// commitNewDocument reserves quota and inserts the row in one transaction.
// The conditional reservation closes the race the fast pre-check leaves open.
func (s *documentService) commitNewDocument(ctx context.Context, userID string, doc *model.Document) (*model.Document, error) {
	var stored *model.Document
	err := s.txr.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.users.ReserveStorage(ctx, userID, doc.FileSize)
		if err != nil {
			return err
		}
		if !ok {
			fresh, err := s.users.FindByID(ctx, userID)
			if err != nil {
				return err
			}
			return apperr.QuotaExceeded(fresh.AvailableStorage(), doc.FileSize)
		}
		stored, err = s.docs.Create(ctx, doc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *documentService) containingPath(ctx context.Context, userID string, doc *model.Document) string {
	if doc.FolderID == nil {
		return "/"
	}
	f, err := s.folders.FindAny(ctx, *doc.FolderID, userID)
	if err != nil {
		return "/"
	}
	return f.Path
}

func (s *documentService) findLive(ctx context.Context, id, userID string) (*model.Document, error) {
	doc, err := s.docs.FindLive(ctx, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) retention() time.Duration {
	return time.Duration(s.cfg.TrashRetentionDays) * 24 * time.Hour
}

// cancelReadCloser releases the download timeout when the stream is closed.
type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	c.cancel()
	return c.ReadCloser.Close()
}

func storageKey(userID, docID, ext string) string {
	if ext == "" {
		return fmt.Sprintf("users/%s/documents/%s", userID, docID)
	}
	return fmt.Sprintf("users/%s/documents/%s.%s", userID, docID, ext)
}

func copyName(name string) string {
	base := filetype.BaseName(name)
	ext := filetype.Extension(name)
	if ext == "" {
		return base + " - Copy"
	}
	return base + " - Copy." + ext
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
