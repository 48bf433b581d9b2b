package mocks

import (
	"context"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockTrashRepository struct {
	mock.Mock
}

func (m *MockTrashRepository) CreateBatch(ctx context.Context, records []model.TrashRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockTrashRepository) FindForUser(ctx context.Context, id, userID string) (*model.TrashRecord, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TrashRecord), args.Error(1)
}

func (m *MockTrashRepository) FindByItem(ctx context.Context, itemType model.ItemType, itemID, userID string) (*model.TrashRecord, error) {
	args := m.Called(ctx, itemType, itemID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TrashRecord), args.Error(1)
}

func (m *MockTrashRepository) List(ctx context.Context, userID string, pq repository.PageQuery) (*repository.PageResult[model.TrashRecord], error) {
	args := m.Called(ctx, userID, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.TrashRecord]), args.Error(1)
}

func (m *MockTrashRepository) ListByCascade(ctx context.Context, cascadeID string) ([]model.TrashRecord, error) {
	args := m.Called(ctx, cascadeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TrashRecord), args.Error(1)
}

func (m *MockTrashRepository) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]model.TrashRecord, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TrashRecord), args.Error(1)
}

func (m *MockTrashRepository) Delete(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTrashRepository) DeleteByCascade(ctx context.Context, cascadeID string) error {
	args := m.Called(ctx, cascadeID)
	return args.Error(0)
}

func (m *MockTrashRepository) DeleteByUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
