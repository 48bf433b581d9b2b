package mocks

import (
	"context"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockShareRepository struct {
	mock.Mock
}

func (m *MockShareRepository) CreateGrant(ctx context.Context, g *model.ShareGrant) (*model.ShareGrant, error) {
	args := m.Called(ctx, g)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShareGrant), args.Error(1)
}

func (m *MockShareRepository) GrantExists(ctx context.Context, itemType model.ItemType, itemID, granteeID string) (bool, error) {
	args := m.Called(ctx, itemType, itemID, granteeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockShareRepository) FindGrant(ctx context.Context, id string) (*model.ShareGrant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShareGrant), args.Error(1)
}

func (m *MockShareRepository) DeleteGrant(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockShareRepository) ListGrantsForGrantee(ctx context.Context, granteeID string, itemType model.ItemType, pq repository.PageQuery) (*repository.PageResult[model.ShareGrant], error) {
	args := m.Called(ctx, granteeID, itemType, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.ShareGrant]), args.Error(1)
}

func (m *MockShareRepository) ListGrantsByOwner(ctx context.Context, ownerID string, itemType model.ItemType, pq repository.PageQuery) (*repository.PageResult[model.ShareGrant], error) {
	args := m.Called(ctx, ownerID, itemType, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.ShareGrant]), args.Error(1)
}

func (m *MockShareRepository) BestGrantPermission(ctx context.Context, itemType model.ItemType, itemID, granteeID string, now time.Time) (model.Permission, bool, error) {
	args := m.Called(ctx, itemType, itemID, granteeID, now)
	return args.Get(0).(model.Permission), args.Bool(1), args.Error(2)
}

func (m *MockShareRepository) CreateLink(ctx context.Context, l *model.ShareLink) (*model.ShareLink, error) {
	args := m.Called(ctx, l)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShareLink), args.Error(1)
}

func (m *MockShareRepository) FindLink(ctx context.Context, id string) (*model.ShareLink, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShareLink), args.Error(1)
}

func (m *MockShareRepository) FindLinkByToken(ctx context.Context, token string) (*model.ShareLink, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShareLink), args.Error(1)
}

func (m *MockShareRepository) ConsumeAccess(ctx context.Context, id string, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockShareRepository) SetLinkActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockShareRepository) ListLinksByCreator(ctx context.Context, userID string, pq repository.PageQuery) (*repository.PageResult[model.ShareLink], error) {
	args := m.Called(ctx, userID, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.ShareLink]), args.Error(1)
}

func (m *MockShareRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}
