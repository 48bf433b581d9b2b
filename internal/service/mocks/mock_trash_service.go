package mocks

import (
	"context"

	"docvault/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockTrashService struct {
	mock.Mock
}

func (m *MockTrashService) List(ctx context.Context, userID string, limit, offset int) (*service.ListResult[service.TrashItemView], error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[service.TrashItemView]), args.Error(1)
}

func (m *MockTrashService) Restore(ctx context.Context, userID, trashID string) error {
	args := m.Called(ctx, userID, trashID)
	return args.Error(0)
}

func (m *MockTrashService) PermanentlyDelete(ctx context.Context, userID, trashID string) error {
	args := m.Called(ctx, userID, trashID)
	return args.Error(0)
}

func (m *MockTrashService) EmptyTrash(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockTrashService) Sweep(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
