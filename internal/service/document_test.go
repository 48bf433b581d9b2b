package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"

	"docvault/internal/apperr"
	"docvault/internal/model"
	"docvault/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const helloWorldSHA256 = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

func liveDocument() *model.Document {
	return &model.Document{
		ID:         "doc-1",
		UserID:     "user-1",
		Name:       "report.pdf",
		FileSize:   2048,
		FileType:   "pdf",
		MimeType:   "application/pdf",
		Category:   model.CategoryDocuments,
		StorageKey: "users/user-1/documents/doc-1.pdf",
		Checksum:   "abc123",
		Version:    3,
	}
}

func userWithQuota(used, limit int64) *model.User {
	return &model.User{
		ID:                "user-1",
		Email:             "owner@example.com",
		StorageUsedBytes:  used,
		StorageLimitBytes: limit,
	}
}

func TestDocumentService_Upload(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		params     UploadParams
		setupMocks func(f *fixture) io.Reader
		check      func(t *testing.T, doc *model.Document, err error)
	}{
		{
			name: "happy path",
			params: UploadParams{
				OriginalName: "notes.txt",
				MimeType:     "text/plain",
				Size:         11,
			},
			setupMocks: func(f *fixture) io.Reader {
				f.users.On("FindByID", ctx, "user-1").Return(userWithQuota(0, 1<<20), nil)
				f.store.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, "users/user-1/documents/") && strings.HasSuffix(key, ".txt")
				}), mock.Anything, storage.PutObjectOptions{
					Size:        11,
					ContentType: "text/plain",
					Metadata:    map[string]string{"original-filename": "notes.txt"},
				}).Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
					// The service hashes through a tee; the store has to drain it.
					_, _ = io.Copy(io.Discard, r)
					return storage.ObjectInfo{Key: key, Size: 11}
				}, nil)
				f.users.On("ReserveStorage", ctx, "user-1", int64(11)).Return(true, nil)
				f.docs.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
					return doc.Name == "notes.txt" &&
						doc.Checksum == helloWorldSHA256 &&
						doc.Version == 1 &&
						doc.Category == model.CategoryDocuments
				})).Return(&model.Document{ID: "gen-id", Name: "notes.txt"}, nil)
				return strings.NewReader("hello world")
			},
			check: func(t *testing.T, doc *model.Document, err error) {
				assert.NoError(t, err)
				assert.Equal(t, "gen-id", doc.ID)
			},
		},
		{
			name: "nil reader",
			params: UploadParams{
				OriginalName: "notes.txt",
				Size:         11,
			},
			setupMocks: func(f *fixture) io.Reader { return nil },
			check: func(t *testing.T, doc *model.Document, err error) {
				assert.ErrorIs(t, err, apperr.ErrValidation)
				assert.Nil(t, doc)
			},
		},
		{
			name: "target folder not found",
			params: UploadParams{
				FolderID:     strPtr("missing-folder"),
				OriginalName: "notes.txt",
				Size:         11,
			},
			setupMocks: func(f *fixture) io.Reader {
				f.folders.On("FindLive", ctx, "missing-folder", "user-1").Return(nil, sql.ErrNoRows)
				return strings.NewReader("hello world")
			},
			check: func(t *testing.T, doc *model.Document, err error) {
				assert.ErrorIs(t, err, apperr.ErrNotFound)
			},
		},
		{
			name: "quota exceeded before any write",
			params: UploadParams{
				OriginalName: "big.bin",
				Size:         500,
			},
			setupMocks: func(f *fixture) io.Reader {
				// 100 bytes left; no Put expectation, so the store must stay untouched.
				f.users.On("FindByID", ctx, "user-1").Return(userWithQuota(900, 1000), nil)
				return strings.NewReader("x")
			},
			check: func(t *testing.T, doc *model.Document, err error) {
				assert.ErrorIs(t, err, apperr.ErrQuotaExceeded)
				var qe *apperr.QuotaExceededError
				assert.ErrorAs(t, err, &qe)
				assert.Equal(t, int64(100), qe.Available)
				assert.Equal(t, int64(500), qe.Required)
			},
		},
		{
			name: "reservation lost to concurrent upload",
			params: UploadParams{
				OriginalName: "notes.txt",
				Size:         11,
			},
			setupMocks: func(f *fixture) io.Reader {
				f.users.On("FindByID", ctx, "user-1").Return(userWithQuota(0, 1<<20), nil)
				f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						_, _ = io.Copy(io.Discard, r)
						return storage.ObjectInfo{Key: key}
					}, nil)
				f.users.On("ReserveStorage", ctx, "user-1", int64(11)).Return(false, nil)
				// The orphaned blob must be cleaned up.
				f.store.On("Delete", ctx, mock.Anything).Return(nil)
				return strings.NewReader("hello world")
			},
			check: func(t *testing.T, doc *model.Document, err error) {
				assert.ErrorIs(t, err, apperr.ErrQuotaExceeded)
			},
		},
		{
			name: "content store failure",
			params: UploadParams{
				OriginalName: "notes.txt",
				Size:         11,
			},
			setupMocks: func(f *fixture) io.Reader {
				f.users.On("FindByID", ctx, "user-1").Return(userWithQuota(0, 1<<20), nil)
				f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("connection reset"))
				return strings.NewReader("hello world")
			},
			check: func(t *testing.T, doc *model.Document, err error) {
				assert.ErrorIs(t, err, apperr.ErrFileOperation)
				assert.Contains(t, err.Error(), "connection reset")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			r := tt.setupMocks(f)

			doc, err := f.documentService().Upload(ctx, "user-1", r, tt.params)
			tt.check(t, doc, err)
			f.assertAll(t)
		})
	}
}

func TestDocumentService_Download_BookkeepingNeverFailsRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	doc := liveDocument()

	f.docs.On("FindLive", ctx, "doc-1", "user-1").Return(doc, nil)
	f.store.On("Get", mock.Anything, doc.StorageKey).
		Return(io.NopCloser(strings.NewReader("content")), storage.ObjectInfo{Size: 7}, nil)
	f.docs.On("TouchAccess", ctx, "doc-1").Return(errors.New("deadlock detected"))

	rc, got, err := f.documentService().Download(ctx, "user-1", "doc-1")
	assert.NoError(t, err)
	assert.Equal(t, doc, got)

	data, err := io.ReadAll(rc)
	assert.NoError(t, err)
	assert.Equal(t, "content", string(data))
	assert.NoError(t, rc.Close())
	f.assertAll(t)
}

func TestDocumentService_Rename(t *testing.T) {
	ctx := context.Background()

	t.Run("name taken in folder", func(t *testing.T) {
		f := newFixture()
		f.docs.On("FindLive", ctx, "doc-1", "user-1").Return(liveDocument(), nil)
		f.docs.On("ExistsLiveInFolder", ctx, "user-1", (*string)(nil), "taken.pdf").Return(true, nil)

		_, err := f.documentService().Rename(ctx, "user-1", "doc-1", "taken.pdf")
		assert.ErrorIs(t, err, apperr.ErrConflict)
		f.assertAll(t)
	})

	t.Run("same name is a no-op", func(t *testing.T) {
		f := newFixture()
		f.docs.On("FindLive", ctx, "doc-1", "user-1").Return(liveDocument(), nil)

		doc, err := f.documentService().Rename(ctx, "user-1", "doc-1", "report.pdf")
		assert.NoError(t, err)
		assert.Equal(t, "report.pdf", doc.Name)
		f.assertAll(t)
	})

	t.Run("renamed", func(t *testing.T) {
		f := newFixture()
		f.docs.On("FindLive", ctx, "doc-1", "user-1").Return(liveDocument(), nil)
		f.docs.On("ExistsLiveInFolder", ctx, "user-1", (*string)(nil), "q3.pdf").Return(false, nil)
		f.docs.On("Rename", ctx, "doc-1", "q3.pdf").Return(nil)

		doc, err := f.documentService().Rename(ctx, "user-1", "doc-1", "q3.pdf")
		assert.NoError(t, err)
		assert.Equal(t, "q3.pdf", doc.Name)
		f.assertAll(t)
	})
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	doc := liveDocument()

	f.docs.On("FindLive", ctx, "doc-1", "user-1").Return(doc, nil)
	f.docs.On("SetDeleted", ctx, []string{"doc-1"}, mock.Anything).Return(nil)
	f.trash.On("CreateBatch", ctx, mock.MatchedBy(func(records []model.TrashRecord) bool {
		if len(records) != 1 {
			return false
		}
		rec := records[0]
		return rec.ItemType == model.ItemDocument &&
			rec.ItemID == "doc-1" &&
			rec.CascadeID == rec.ID &&
			rec.OriginalPath == "/" &&
			rec.FileSize != nil && *rec.FileSize == doc.FileSize
	})).Return(nil)

	err := f.documentService().Delete(ctx, "user-1", "doc-1")
	assert.NoError(t, err)
	f.assertAll(t)
}

func TestDocumentService_Restore_NotInTrash(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.trash.On("FindByItem", ctx, model.ItemDocument, "doc-1", "user-1").Return(nil, sql.ErrNoRows)

	err := f.documentService().Restore(ctx, "user-1", "doc-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	f.assertAll(t)
}

func TestDocumentService_Copy(t *testing.T) {
	ctx := context.Background()

	t.Run("quota exceeded", func(t *testing.T) {
		f := newFixture()
		f.docs.On("FindLive", ctx, "doc-1", "user-1").Return(liveDocument(), nil)
		f.users.On("FindByID", ctx, "user-1").Return(userWithQuota(999, 1000), nil)

		_, err := f.documentService().Copy(ctx, "user-1", "doc-1")
		assert.ErrorIs(t, err, apperr.ErrQuotaExceeded)
		f.assertAll(t)
	})

	t.Run("copied under new key", func(t *testing.T) {
		f := newFixture()
		src := liveDocument()
		f.docs.On("FindLive", ctx, "doc-1", "user-1").Return(src, nil)
		f.users.On("FindByID", ctx, "user-1").Return(userWithQuota(0, 1<<20), nil)
		f.store.On("Copy", ctx, src.StorageKey, mock.MatchedBy(func(dst string) bool {
			return dst != src.StorageKey && strings.HasSuffix(dst, ".pdf")
		})).Return(nil)
		f.users.On("ReserveStorage", ctx, "user-1", src.FileSize).Return(true, nil)
		f.docs.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
			return doc.Name == "report - Copy.pdf" &&
				doc.Version == 1 &&
				doc.Checksum == src.Checksum
		})).Return(&model.Document{ID: "copy-id", Name: "report - Copy.pdf"}, nil)

		dup, err := f.documentService().Copy(ctx, "user-1", "doc-1")
		assert.NoError(t, err)
		assert.Equal(t, "copy-id", dup.ID)
		f.assertAll(t)
	})
}

func TestDocumentService_Tags(t *testing.T) {
	ctx := context.Background()

	t.Run("tag is normalized", func(t *testing.T) {
		f := newFixture()
		f.docs.On("FindLive", ctx, "doc-1", "user-1").Return(liveDocument(), nil)
		f.docs.On("AddTag", ctx, "doc-1", "tax").Return(nil)

		assert.NoError(t, f.documentService().AddTag(ctx, "user-1", "doc-1", "  Tax "))
		f.assertAll(t)
	})

	t.Run("blank tag rejected", func(t *testing.T) {
		f := newFixture()
		f.docs.On("FindLive", ctx, "doc-1", "user-1").Return(liveDocument(), nil)

		err := f.documentService().AddTag(ctx, "user-1", "doc-1", "   ")
		assert.ErrorIs(t, err, apperr.ErrValidation)
		f.assertAll(t)
	})

	t.Run("removing an absent tag", func(t *testing.T) {
		f := newFixture()
		f.docs.On("FindLive", ctx, "doc-1", "user-1").Return(liveDocument(), nil)
		f.docs.On("RemoveTag", ctx, "doc-1", "missing").Return(sql.ErrNoRows)

		err := f.documentService().RemoveTag(ctx, "user-1", "doc-1", "missing")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		f.assertAll(t)
	})
}

func TestDocumentService_ReplaceContent(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshots old content and bumps version", func(t *testing.T) {
		f := newFixture()
		doc := liveDocument()
		oldKey, oldSize, oldChecksum := doc.StorageKey, doc.FileSize, doc.Checksum

		f.docs.On("FindLive", ctx, "doc-1", "user-1").Return(doc, nil)
		f.users.On("FindByID", ctx, "user-1").Return(userWithQuota(2048, 1<<20), nil)
		f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
				_, _ = io.Copy(io.Discard, r)
				return storage.ObjectInfo{Key: key}
			}, nil)
		f.users.On("ReserveStorage", ctx, "user-1", int64(1024)).Return(true, nil)
		f.versions.On("Create", ctx, mock.MatchedBy(func(v *model.DocumentVersion) bool {
			return v.DocumentID == "doc-1" &&
				v.VersionNumber == 3 &&
				v.StorageKey == oldKey &&
				v.FileSize == oldSize &&
				v.Checksum == oldChecksum &&
				v.ChangeNote == "fixed totals"
		})).Return(&model.DocumentVersion{}, nil)
		f.docs.On("UpdateContent", ctx, "doc-1", mock.Anything, int64(3072), mock.Anything, 4).Return(nil)

		got, err := f.documentService().ReplaceContent(ctx, "user-1", "doc-1", strings.NewReader("new content"), ReplaceContentParams{
			OriginalName: "report.pdf",
			MimeType:     "application/pdf",
			Size:         3072,
			ChangeNote:   "fixed totals",
		})
		assert.NoError(t, err)
		assert.Equal(t, 4, got.Version)
		assert.Equal(t, int64(3072), got.FileSize)
		f.assertAll(t)
	})

	t.Run("failed commit deletes the new blob", func(t *testing.T) {
		f := newFixture()
		f.docs.On("FindLive", ctx, "doc-1", "user-1").Return(liveDocument(), nil)
		f.users.On("FindByID", ctx, "user-1").Return(userWithQuota(2048, 1<<20), nil)
		f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
				_, _ = io.Copy(io.Discard, r)
				return storage.ObjectInfo{Key: key}
			}, nil)
		f.users.On("ReserveStorage", ctx, "user-1", int64(1024)).Return(false, errors.New("connection closed"))
		f.store.On("Delete", ctx, mock.Anything).Return(nil)

		_, err := f.documentService().ReplaceContent(ctx, "user-1", "doc-1", strings.NewReader("new content"), ReplaceContentParams{
			OriginalName: "report.pdf",
			Size:         3072,
		})
		assert.Error(t, err)
		f.assertAll(t)
	})
}

func TestDocumentService_RestoreVersion_UnknownNumber(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.docs.On("FindLive", ctx, "doc-1", "user-1").Return(liveDocument(), nil)
	f.versions.On("FindByNumber", ctx, "doc-1", 9).Return(nil, sql.ErrNoRows)

	_, err := f.documentService().RestoreVersion(ctx, "user-1", "doc-1", 9)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	f.assertAll(t)
}

func TestDocumentService_Metadata(t *testing.T) {
	ctx := context.Background()

	t.Run("absent sidecar reads as empty", func(t *testing.T) {
		f := newFixture()
		f.docs.On("FindLive", ctx, "doc-1", "user-1").Return(liveDocument(), nil)
		f.docs.On("FindMetadata", ctx, "doc-1").Return(nil, sql.ErrNoRows)

		meta, err := f.documentService().GetMetadata(ctx, "user-1", "doc-1")
		assert.NoError(t, err)
		assert.Equal(t, "doc-1", meta.DocumentID)
		assert.Empty(t, meta.Attributes)
		f.assertAll(t)
	})

	t.Run("unknown document", func(t *testing.T) {
		f := newFixture()
		f.docs.On("FindLive", ctx, "missing", "user-1").Return(nil, sql.ErrNoRows)

		_, err := f.documentService().GetMetadata(ctx, "user-1", "missing")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		f.assertAll(t)
	})

	t.Run("set replaces the sidecar wholesale", func(t *testing.T) {
		f := newFixture()
		f.docs.On("FindLive", ctx, "doc-1", "user-1").Return(liveDocument(), nil)
		f.docs.On("UpsertMetadata", ctx, mock.MatchedBy(func(m *model.DocumentMetadata) bool {
			return m.DocumentID == "doc-1" &&
				m.Attributes["project"] == "alpha" &&
				m.PageCount != nil && *m.PageCount == 12 &&
				*m.Author == "Jo"
		})).Return(&model.DocumentMetadata{DocumentID: "doc-1"}, nil)

		pages := 12
		_, err := f.documentService().SetMetadata(ctx, "user-1", "doc-1", MetadataParams{
			Attributes: map[string]any{"project": "alpha"},
			PageCount:  &pages,
			Author:     strPtr("Jo"),
		})
		assert.NoError(t, err)
		f.assertAll(t)
	})

	t.Run("nil attributes normalize to an empty map", func(t *testing.T) {
		f := newFixture()
		f.docs.On("FindLive", ctx, "doc-1", "user-1").Return(liveDocument(), nil)
		f.docs.On("UpsertMetadata", ctx, mock.MatchedBy(func(m *model.DocumentMetadata) bool {
			return m.Attributes != nil && len(m.Attributes) == 0
		})).Return(&model.DocumentMetadata{DocumentID: "doc-1", Attributes: map[string]any{}}, nil)

		meta, err := f.documentService().SetMetadata(ctx, "user-1", "doc-1", MetadataParams{})
		assert.NoError(t, err)
		assert.NotNil(t, meta.Attributes)
		f.assertAll(t)
	})
}

func strPtr(s string) *string { return &s }
