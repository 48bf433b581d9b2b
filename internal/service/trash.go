package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docvault/internal/apperr"
	"docvault/internal/config"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// TrashItemView is a trash record enriched with the remaining retention days.
type TrashItemView struct {
	model.TrashRecord
	DaysUntilPurge int `json:"days_until_purge"`
}

// TrashService defines the use cases for the trash.
type TrashService interface {
	List(ctx context.Context, userID string, limit, offset int) (*ListResult[TrashItemView], error)

	// Restore dispatches on item type and removes the trash record; the
	// record created by a cascading folder delete restores the whole cascade.
	Restore(ctx context.Context, userID, trashID string) error

	// PermanentlyDelete hard-deletes the item, reclaims quota, and removes
	// its blobs best-effort.
	PermanentlyDelete(ctx context.Context, userID, trashID string) error

	EmptyTrash(ctx context.Context, userID string) error

	// Sweep purges every record past its retention deadline. One failing
	// item never aborts the batch; the summary is logged and the purge count
	// returned.
	Sweep(ctx context.Context) (int, error)
}

type trashService struct {
	cascadeOps
	cfg config.VaultConfig
}

// NewTrashService constructs a new TrashService.
func NewTrashService(
	txr repository.TxRunner,
	folders repository.FolderRepository,
	docs repository.DocumentRepository,
	versions repository.VersionRepository,
	trash repository.TrashRepository,
	users repository.UserRepository,
	store storage.Storage,
	cfg config.VaultConfig,
) TrashService {
	return &trashService{
		cascadeOps: cascadeOps{
			txr: txr, folders: folders, docs: docs,
			versions: versions, trash: trash, users: users, store: store,
		},
		cfg: cfg,
	}
}

const sweepBatchSize = 500

func (s *trashService) List(ctx context.Context, userID string, limit, offset int) (*ListResult[TrashItemView], error) {
	res, err := s.trash.List(ctx, userID, clampPage(limit, offset))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	items := make([]TrashItemView, 0, len(res.Items))
	for _, rec := range res.Items {
		items = append(items, TrashItemView{
			TrashRecord:    rec,
			DaysUntilPurge: rec.DaysUntilPurge(now),
		})
	}
	return &ListResult[TrashItemView]{Items: items, Total: res.Total}, nil
}

func (s *trashService) Restore(ctx context.Context, userID, trashID string) error {
	rec, err := s.findForUser(ctx, trashID, userID)
	if err != nil {
		return err
	}
	return s.restoreRecord(ctx, rec)
}

func (s *trashService) PermanentlyDelete(ctx context.Context, userID, trashID string) error {
	rec, err := s.findForUser(ctx, trashID, userID)
	if err != nil {
		return err
	}
	return s.purgeRecord(ctx, rec)
}

func (s *trashService) EmptyTrash(ctx context.Context, userID string) error {
	for {
		res, err := s.trash.List(ctx, userID, repository.PageQuery{Limit: sweepBatchSize})
		if err != nil {
			return err
		}
		if len(res.Items) == 0 {
			return nil
		}
		for i := range res.Items {
			rec := res.Items[i]
			if err := s.purgeRecord(ctx, &rec); err != nil {
				return err
			}
		}
	}
}

func (s *trashService) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	now := start.UTC()

	purged, failed := 0, 0
	for {
		expired, err := s.trash.ListExpired(ctx, now, sweepBatchSize)
		if err != nil {
			return purged, err
		}
		if len(expired) == 0 {
			break
		}

		progressed := false
		for i := range expired {
			rec := expired[i]
			if err := s.purgeRecord(ctx, &rec); err != nil {
				failed++
				logJSON(map[string]any{
					"component":     "trash",
					"event":         "sweep_item_failed",
					"level":         "error",
					"trash_id":      rec.ID,
					"item_type":     rec.ItemType,
					"item_id":       rec.ItemID,
					"error_message": err.Error(),
				})
				continue
			}
			purged++
			progressed = true
		}
		// A batch where nothing purged means every remaining record is
		// failing; stop instead of spinning on it.
		if !progressed {
			break
		}
	}

	logJSON(map[string]any{
		"component":   "trash",
		"event":       "sweep_complete",
		"purged":      purged,
		"failed":      failed,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return purged, nil
}

func (s *trashService) findForUser(ctx context.Context, trashID, userID string) (*model.TrashRecord, error) {
	rec, err := s.trash.FindForUser(ctx, trashID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("trash item: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	return rec, nil
}
