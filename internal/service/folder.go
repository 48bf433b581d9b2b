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

// CreateFolderParams carries the inputs for folder creation.
type CreateFolderParams struct {
	Name        string
	ParentID    *string
	Color       string
	Description string
}

// UpdateFolderParams carries partial folder updates. A non-nil Name triggers
// the rename path cascade.
type UpdateFolderParams struct {
	Name        *string
	Color       *string
	Description *string
}

// FolderService defines the use cases for the namespace tree.
type FolderService interface {
	Create(ctx context.Context, userID string, p CreateFolderParams) (*model.Folder, error)
	Get(ctx context.Context, userID, folderID string) (*model.Folder, error)

	// GetOrCreateRoot materializes the user's root folder on demand.
	GetOrCreateRoot(ctx context.Context, userID string) (*model.Folder, error)

	// Update applies name/color/description changes. A rename recomputes the
	// folder's path and every live descendant's path in one transaction.
	Update(ctx context.Context, userID, folderID string, p UpdateFolderParams) (*model.Folder, error)

	// Move reparents the folder, rejecting root moves, cycles, and name
	// collisions, then recomputes descendant paths like Update.
	Move(ctx context.Context, userID, folderID string, newParentID *string) (*model.Folder, error)

	// Delete soft-deletes the folder and every live descendant, each with a
	// trash record, as one cascade.
	Delete(ctx context.Context, userID, folderID string) error

	// Restore brings a soft-deleted folder back through its trash record.
	Restore(ctx context.Context, userID, folderID string) error

	ListChildren(ctx context.Context, userID string, parentID *string) ([]model.Folder, error)
	Tree(ctx context.Context, userID string) (*model.FolderTree, error)
	Search(ctx context.Context, userID, query string, limit, offset int) (*ListResult[model.Folder], error)
}

type folderService struct {
	cascadeOps
	cfg config.VaultConfig
}

// NewFolderService constructs a new FolderService.
func NewFolderService(
	txr repository.TxRunner,
	folders repository.FolderRepository,
	docs repository.DocumentRepository,
	versions repository.VersionRepository,
	trash repository.TrashRepository,
	users repository.UserRepository,
	store storage.Storage,
	cfg config.VaultConfig,
) FolderService {
	return &folderService{
		cascadeOps: cascadeOps{
			txr: txr, folders: folders, docs: docs,
			versions: versions, trash: trash, users: users, store: store,
		},
		cfg: cfg,
	}
}

func (s *folderService) Create(ctx context.Context, userID string, p CreateFolderParams) (*model.Folder, error) {
	parentPath := ""
	if p.ParentID != nil {
		parent, err := s.folders.FindLive(ctx, *p.ParentID, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("parent folder: %w", apperr.ErrNotFound)
			}
			return nil, err
		}
		parentPath = parent.Path
	}

	exists, err := s.folders.ExistsLiveSibling(ctx, userID, p.ParentID, p.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("folder %q already exists here: %w", p.Name, apperr.ErrConflict)
	}

	now := time.Now().UTC()
	return s.folders.Create(ctx, &model.Folder{
		ID:          newID(),
		UserID:      userID,
		ParentID:    p.ParentID,
		Name:        p.Name,
		Path:        parentPath + "/" + p.Name,
		Color:       p.Color,
		Description: p.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (s *folderService) Get(ctx context.Context, userID, folderID string) (*model.Folder, error) {
	return s.findLive(ctx, folderID, userID)
}

func (s *folderService) GetOrCreateRoot(ctx context.Context, userID string) (*model.Folder, error) {
	root, err := s.folders.FindRoot(ctx, userID)
	if err == nil {
		return root, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	now := time.Now().UTC()
	return s.folders.Create(ctx, &model.Folder{
		ID:        newID(),
		UserID:    userID,
		Name:      "My Documents",
		Path:      "/My Documents",
		IsRoot:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (s *folderService) Update(ctx context.Context, userID, folderID string, p UpdateFolderParams) (*model.Folder, error) {
	f, err := s.findLive(ctx, folderID, userID)
	if err != nil {
		return nil, err
	}

	renamed := p.Name != nil && *p.Name != f.Name
	if renamed {
		exists, err := s.folders.ExistsLiveSibling(ctx, userID, f.ParentID, *p.Name)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("folder %q already exists here: %w", *p.Name, apperr.ErrConflict)
		}
		f.Name = *p.Name
	}
	if p.Color != nil {
		f.Color = *p.Color
	}
	if p.Description != nil {
		f.Description = *p.Description
	}

	if !renamed {
		if err := s.folders.Update(ctx, f); err != nil {
			return nil, err
		}
		return f, nil
	}

	f.Path = s.childPathUnder(ctx, userID, f.ParentID, f.Name)
	if err := s.txr.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.folders.Update(ctx, f); err != nil {
			return err
		}
		return s.recomputeDescendantPaths(ctx, userID, f)
	}); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *folderService) Move(ctx context.Context, userID, folderID string, newParentID *string) (*model.Folder, error) {
	f, err := s.findLive(ctx, folderID, userID)
	if err != nil {
		return nil, err
	}
	if f.IsRoot {
		return nil, fmt.Errorf("root folder cannot be moved: %w", apperr.ErrForbidden)
	}

	if newParentID != nil {
		if *newParentID == folderID {
			return nil, fmt.Errorf("folder cannot be moved into itself: %w", apperr.ErrValidation)
		}
		// Walk the target's ancestor chain; hitting folderID means the target
		// sits inside the folder being moved.
		ancestor := newParentID
		for ancestor != nil {
			parent, err := s.folders.FindLive(ctx, *ancestor, userID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, fmt.Errorf("target folder: %w", apperr.ErrNotFound)
				}
				return nil, err
			}
			if parent.ID == folderID {
				return nil, fmt.Errorf("folder cannot be moved into its own descendant: %w", apperr.ErrValidation)
			}
			ancestor = parent.ParentID
		}
	}

	exists, err := s.folders.ExistsLiveSibling(ctx, userID, newParentID, f.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("folder %q already exists at destination: %w", f.Name, apperr.ErrConflict)
	}

	f.ParentID = newParentID
	f.Path = s.childPathUnder(ctx, userID, newParentID, f.Name)
	if err := s.txr.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.folders.Update(ctx, f); err != nil {
			return err
		}
		return s.recomputeDescendantPaths(ctx, userID, f)
	}); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *folderService) Delete(ctx context.Context, userID, folderID string) error {
	f, err := s.findLive(ctx, folderID, userID)
	if err != nil {
		return err
	}
	if f.IsRoot {
		return fmt.Errorf("root folder cannot be deleted: %w", apperr.ErrForbidden)
	}
	return s.softDeleteFolderCascade(ctx, userID, f, s.retention())
}

func (s *folderService) Restore(ctx context.Context, userID, folderID string) error {
	rec, err := s.trash.FindByItem(ctx, model.ItemFolder, folderID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("folder is not in trash: %w", apperr.ErrNotFound)
		}
		return err
	}
	return s.restoreRecord(ctx, rec)
}

func (s *folderService) ListChildren(ctx context.Context, userID string, parentID *string) ([]model.Folder, error) {
	if parentID != nil {
		if _, err := s.findLive(ctx, *parentID, userID); err != nil {
			return nil, err
		}
	}
	return s.folders.ListChildren(ctx, userID, parentID)
}

// Tree builds the live tree read model. A materialized root, when present,
// is always the tree root; any other parentless folders hang under it.
// Users without a materialized root get a virtual root node with a nil id
// holding their top-level folders.
func (s *folderService) Tree(ctx context.Context, userID string) (*model.FolderTree, error) {
	topLevel, err := s.folders.ListChildren(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	var root *model.FolderTree
	rest := topLevel
	for i := range topLevel {
		if topLevel[i].IsRoot {
			root, err = s.buildTree(ctx, userID, &topLevel[i])
			if err != nil {
				return nil, err
			}
			rest = append(append([]model.Folder{}, topLevel[:i]...), topLevel[i+1:]...)
			break
		}
	}
	if root == nil {
		root = &model.FolderTree{
			Name:     "My Documents",
			Path:     "/",
			IsRoot:   true,
			Children: make([]*model.FolderTree, 0, len(topLevel)),
		}
	}

	for i := range rest {
		node, err := s.buildTree(ctx, userID, &rest[i])
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, node)
	}
	return root, nil
}

func (s *folderService) Search(ctx context.Context, userID, query string, limit, offset int) (*ListResult[model.Folder], error) {
	res, err := s.folders.SearchByName(ctx, userID, query, clampPage(limit, offset))
	if err != nil {
		return nil, err
	}
	return pageOf(res), nil
}

// buildTree assembles the subtree rooted at f iteratively.
func (s *folderService) buildTree(ctx context.Context, userID string, f *model.Folder) (*model.FolderTree, error) {
	id := f.ID
	count, err := s.folders.CountLiveDocuments(ctx, id)
	if err != nil {
		return nil, err
	}
	root := &model.FolderTree{
		ID:            &id,
		Name:          f.Name,
		Path:          f.Path,
		Color:         f.Color,
		IsRoot:        f.IsRoot,
		DocumentCount: count,
		Children:      make([]*model.FolderTree, 0),
	}

	stack := []*model.FolderTree{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := s.folders.ListChildren(ctx, userID, node.ID)
		if err != nil {
			return nil, err
		}
		for i := range children {
			child := children[i]
			childID := child.ID
			count, err := s.folders.CountLiveDocuments(ctx, childID)
			if err != nil {
				return nil, err
			}
			childNode := &model.FolderTree{
				ID:            &childID,
				Name:          child.Name,
				Path:          child.Path,
				Color:         child.Color,
				DocumentCount: count,
				Children:      make([]*model.FolderTree, 0),
			}
			node.Children = append(node.Children, childNode)
			stack = append(stack, childNode)
		}
	}
	return root, nil
}

// recomputeDescendantPaths rewrites the path of every live descendant after a
// rename or move, walking the subtree with an explicit stack.
func (s *folderService) recomputeDescendantPaths(ctx context.Context, userID string, f *model.Folder) error {
	type frame struct {
		id   string
		path string
	}
	stack := []frame{{id: f.ID, path: f.Path}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		curID := cur.id
		children, err := s.folders.ListChildren(ctx, userID, &curID)
		if err != nil {
			return err
		}
		for _, child := range children {
			childPath := cur.path + "/" + child.Name
			if err := s.folders.UpdatePath(ctx, child.ID, childPath); err != nil {
				return err
			}
			stack = append(stack, frame{id: child.ID, path: childPath})
		}
	}
	return nil
}

func (s *folderService) childPathUnder(ctx context.Context, userID string, parentID *string, name string) string {
	if parentID == nil {
		return "/" + name
	}
	parent, err := s.folders.FindLive(ctx, *parentID, userID)
	if err != nil {
		return "/" + name
	}
	return parent.ChildPath(name)
}

func (s *folderService) findLive(ctx context.Context, folderID, userID string) (*model.Folder, error) {
	f, err := s.folders.FindLive(ctx, folderID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("folder: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	return f, nil
}

func (s *folderService) retention() time.Duration {
	return time.Duration(s.cfg.TrashRetentionDays) * 24 * time.Hour
}
