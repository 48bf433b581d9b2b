package mocks

import (
	"context"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockFolderRepository struct {
	mock.Mock
}

func (m *MockFolderRepository) Create(ctx context.Context, f *model.Folder) (*model.Folder, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Folder), args.Error(1)
}

func (m *MockFolderRepository) FindLive(ctx context.Context, id, userID string) (*model.Folder, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Folder), args.Error(1)
}

func (m *MockFolderRepository) FindAny(ctx context.Context, id, userID string) (*model.Folder, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Folder), args.Error(1)
}

func (m *MockFolderRepository) FindRoot(ctx context.Context, userID string) (*model.Folder, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Folder), args.Error(1)
}

func (m *MockFolderRepository) ExistsLiveSibling(ctx context.Context, userID string, parentID *string, name string) (bool, error) {
	args := m.Called(ctx, userID, parentID, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockFolderRepository) Update(ctx context.Context, f *model.Folder) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFolderRepository) UpdatePath(ctx context.Context, id, path string) error {
	args := m.Called(ctx, id, path)
	return args.Error(0)
}

func (m *MockFolderRepository) SetDeleted(ctx context.Context, ids []string, deletedAt *time.Time) error {
	args := m.Called(ctx, ids, deletedAt)
	return args.Error(0)
}

func (m *MockFolderRepository) ListChildren(ctx context.Context, userID string, parentID *string) ([]model.Folder, error) {
	args := m.Called(ctx, userID, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Folder), args.Error(1)
}

func (m *MockFolderRepository) SearchByName(ctx context.Context, userID, query string, pq repository.PageQuery) (*repository.PageResult[model.Folder], error) {
	args := m.Called(ctx, userID, query, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Folder]), args.Error(1)
}

func (m *MockFolderRepository) CountLiveDocuments(ctx context.Context, folderID string) (int, error) {
	args := m.Called(ctx, folderID)
	return args.Int(0), args.Error(1)
}

func (m *MockFolderRepository) HardDelete(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}
