package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"docvault/internal/apperr"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// cascadeOps bundles the repositories every cascading operation touches.
// Soft-delete, restore, and purge all run through here so the folder,
// document, and trash services share one implementation of the atomicity
// rules.
//
// Trash records created by one delete share a CascadeID equal to the id of
// the record for the item the user deleted. Restoring that record restores
// the whole cascade; restoring any other record restores only its own item.
type cascadeOps struct {
	txr      repository.TxRunner
	folders  repository.FolderRepository
	docs     repository.DocumentRepository
	versions repository.VersionRepository
	trash    repository.TrashRepository
	users    repository.UserRepository
	store    storage.Storage
}

// softDeleteFolderCascade soft-deletes f and every live descendant folder and
// document in one transaction, writing one trash record per item. The subtree
// is walked with an explicit stack; the batch updates cover arbitrary depth.
func (c *cascadeOps) softDeleteFolderCascade(ctx context.Context, userID string, f *model.Folder, retention time.Duration) error {
	now := time.Now().UTC()
	expires := now.Add(retention)

	return c.txr.WithinTx(ctx, func(ctx context.Context) error {
		rootRecordID := newID()

		folderIDs := make([]string, 0, 1)
		docIDs := make([]string, 0)
		records := make([]model.TrashRecord, 0, 1)

		stack := []model.Folder{*f}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			recID := newID()
			if cur.ID == f.ID {
				recID = rootRecordID
			}
			folderIDs = append(folderIDs, cur.ID)
			records = append(records, model.TrashRecord{
				ID:           recID,
				UserID:       userID,
				ItemType:     model.ItemFolder,
				ItemID:       cur.ID,
				ItemName:     cur.Name,
				OriginalPath: cur.Path,
				CascadeID:    rootRecordID,
				DeletedAt:    now,
				ExpiresAt:    expires,
			})

			curID := cur.ID
			docs, err := c.docs.ListLiveByFolder(ctx, userID, &curID)
			if err != nil {
				return err
			}
			for _, d := range docs {
				size := d.FileSize
				docIDs = append(docIDs, d.ID)
				records = append(records, model.TrashRecord{
					ID:           newID(),
					UserID:       userID,
					ItemType:     model.ItemDocument,
					ItemID:       d.ID,
					ItemName:     d.Name,
					OriginalPath: cur.Path,
					FileSize:     &size,
					CascadeID:    rootRecordID,
					DeletedAt:    now,
					ExpiresAt:    expires,
				})
			}

			children, err := c.folders.ListChildren(ctx, userID, &curID)
			if err != nil {
				return err
			}
			stack = append(stack, children...)
		}

		if err := c.folders.SetDeleted(ctx, folderIDs, &now); err != nil {
			return err
		}
		if len(docIDs) > 0 {
			if err := c.docs.SetDeleted(ctx, docIDs, &now); err != nil {
				return err
			}
		}
		return c.trash.CreateBatch(ctx, records)
	})
}

// softDeleteDocument soft-deletes a single document with its trash record.
func (c *cascadeOps) softDeleteDocument(ctx context.Context, userID string, doc *model.Document, originalPath string, retention time.Duration) error {
	now := time.Now().UTC()
	size := doc.FileSize
	recID := newID()

	return c.txr.WithinTx(ctx, func(ctx context.Context) error {
		if err := c.docs.SetDeleted(ctx, []string{doc.ID}, &now); err != nil {
			return err
		}
		return c.trash.CreateBatch(ctx, []model.TrashRecord{{
			ID:           recID,
			UserID:       userID,
			ItemType:     model.ItemDocument,
			ItemID:       doc.ID,
			ItemName:     doc.Name,
			OriginalPath: originalPath,
			FileSize:     &size,
			CascadeID:    recID,
			DeletedAt:    now,
			ExpiresAt:    now.Add(retention),
		}})
	})
}

// restoreRecord brings the record's item back and removes the record. The
// record delete runs first with a rows-affected guard, so a restore racing
// the expiry sweep resolves to exactly one winner.
func (c *cascadeOps) restoreRecord(ctx context.Context, rec *model.TrashRecord) error {
	return c.txr.WithinTx(ctx, func(ctx context.Context) error {
		n, err := c.trash.Delete(ctx, rec.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.ErrNotFound
		}

		folderIDs := make([]string, 0, 1)
		docIDs := make([]string, 0, 1)
		switch rec.ItemType {
		case model.ItemFolder:
			folderIDs = append(folderIDs, rec.ItemID)
		default:
			docIDs = append(docIDs, rec.ItemID)
		}

		if rec.ItemType == model.ItemFolder && rec.ID == rec.CascadeID {
			rest, err := c.trash.ListByCascade(ctx, rec.CascadeID)
			if err != nil {
				return err
			}
			for _, r := range rest {
				if r.ItemType == model.ItemFolder {
					folderIDs = append(folderIDs, r.ItemID)
				} else {
					docIDs = append(docIDs, r.ItemID)
				}
			}
			if err := c.trash.DeleteByCascade(ctx, rec.CascadeID); err != nil {
				return err
			}
		}

		if len(folderIDs) > 0 {
			if err := c.folders.SetDeleted(ctx, folderIDs, nil); err != nil {
				return err
			}
		}
		if len(docIDs) > 0 {
			return c.docs.SetDeleted(ctx, docIDs, nil)
		}
		return nil
	})
}

// purgeRecord hard-deletes the record's item (and, for the record that
// initiated a cascade, the whole cascade), reclaims quota, and removes the
// content blobs. Blob deletion is best-effort after the metadata commit.
func (c *cascadeOps) purgeRecord(ctx context.Context, rec *model.TrashRecord) error {
	targets := []model.TrashRecord{*rec}
	if rec.ItemType == model.ItemFolder {
		cascade, err := c.trash.ListByCascade(ctx, rec.CascadeID)
		if err != nil {
			return err
		}
		targets = cascadeSubtree(cascade, rec)
	}

	folderIDs := make([]string, 0)
	type docTarget struct {
		id       string
		size     int64
		blobKeys []string
	}
	docTargets := make([]docTarget, 0)

	for _, t := range targets {
		if t.ItemType == model.ItemFolder {
			folderIDs = append(folderIDs, t.ItemID)
			continue
		}
		doc, err := c.docs.FindAny(ctx, t.ItemID, t.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return err
		}
		keys := []string{doc.StorageKey}
		versions, err := c.versions.ListByDocument(ctx, doc.ID)
		if err != nil {
			return err
		}
		for _, v := range versions {
			keys = append(keys, v.StorageKey)
		}
		docTargets = append(docTargets, docTarget{id: doc.ID, size: doc.FileSize, blobKeys: keys})
	}

	var reclaimed int64
	claimed := false
	err := c.txr.WithinTx(ctx, func(ctx context.Context) error {
		n, err := c.trash.Delete(ctx, rec.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			// A concurrent restore or sweep claimed the record.
			return nil
		}
		claimed = true
		for _, t := range targets {
			if t.ID != rec.ID {
				if _, err := c.trash.Delete(ctx, t.ID); err != nil {
					return err
				}
			}
		}
		for _, d := range docTargets {
			if err := c.versions.DeleteByDocument(ctx, d.id); err != nil {
				return err
			}
			if err := c.docs.HardDelete(ctx, d.id); err != nil {
				return err
			}
			reclaimed += d.size
		}
		if len(folderIDs) > 0 {
			if err := c.folders.HardDelete(ctx, folderIDs); err != nil {
				return err
			}
		}
		if reclaimed > 0 {
			return c.users.AdjustStorage(ctx, rec.UserID, -reclaimed)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if claimed {
		for _, d := range docTargets {
			c.deleteBlobs(ctx, d.blobKeys)
		}
	}
	return nil
}

// deleteBlobs removes content-store objects, logging failures and continuing.
func (c *cascadeOps) deleteBlobs(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := c.store.Delete(ctx, key); err != nil {
			logJSON(map[string]any{
				"component":     "trash",
				"event":         "blob_delete_failed",
				"level":         "error",
				"storage_key":   key,
				"error_message": err.Error(),
			})
		}
	}
}

// cascadeSubtree filters the cascade's records down to rec's own subtree by
// path prefix, so purging a descendant folder record leaves its siblings in
// the trash.
func cascadeSubtree(cascade []model.TrashRecord, rec *model.TrashRecord) []model.TrashRecord {
	if rec.ID == rec.CascadeID {
		return cascade
	}
	prefix := rec.OriginalPath + "/"
	out := make([]model.TrashRecord, 0, 1)
	for _, r := range cascade {
		if r.ID == rec.ID || r.OriginalPath == rec.OriginalPath && r.ItemType == model.ItemDocument ||
			strings.HasPrefix(r.OriginalPath, prefix) {
			out = append(out, r)
		}
	}
	return out
}
