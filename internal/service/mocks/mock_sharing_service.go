package mocks

import (
	"context"
	"io"

	"docvault/internal/model"
	"docvault/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockSharingService struct {
	mock.Mock
}

func (m *MockSharingService) ShareWithUser(ctx context.Context, ownerID string, p service.ShareGrantParams) (*model.ShareGrant, error) {
	args := m.Called(ctx, ownerID, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShareGrant), args.Error(1)
}

func (m *MockSharingService) RevokeShare(ctx context.Context, requesterID, shareID string) error {
	args := m.Called(ctx, requesterID, shareID)
	return args.Error(0)
}

func (m *MockSharingService) ListSharedWithMe(ctx context.Context, userID string, itemType model.ItemType, limit, offset int) (*service.ListResult[model.ShareGrant], error) {
	args := m.Called(ctx, userID, itemType, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[model.ShareGrant]), args.Error(1)
}

func (m *MockSharingService) ListSharedByMe(ctx context.Context, userID string, itemType model.ItemType, limit, offset int) (*service.ListResult[model.ShareGrant], error) {
	args := m.Called(ctx, userID, itemType, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[model.ShareGrant]), args.Error(1)
}

func (m *MockSharingService) CreateShareLink(ctx context.Context, ownerID string, p service.ShareLinkParams) (*model.ShareLink, error) {
	args := m.Called(ctx, ownerID, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShareLink), args.Error(1)
}

func (m *MockSharingService) DeactivateLink(ctx context.Context, requesterID, linkID string) error {
	args := m.Called(ctx, requesterID, linkID)
	return args.Error(0)
}

func (m *MockSharingService) ListMyLinks(ctx context.Context, userID string, limit, offset int) (*service.ListResult[model.ShareLink], error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[model.ShareLink]), args.Error(1)
}

func (m *MockSharingService) ResolveLink(ctx context.Context, token string, password *string) (*model.ShareLink, error) {
	args := m.Called(ctx, token, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShareLink), args.Error(1)
}

func (m *MockSharingService) LinkDocument(ctx context.Context, token string, password *string) (*model.Document, error) {
	args := m.Called(ctx, token, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockSharingService) LinkDownload(ctx context.Context, token string, password *string) (io.ReadCloser, *model.Document, error) {
	args := m.Called(ctx, token, password)
	rc, _ := args.Get(0).(io.ReadCloser)
	doc, _ := args.Get(1).(*model.Document)
	return rc, doc, args.Error(2)
}

func (m *MockSharingService) LinkFolderContents(ctx context.Context, token string, password *string) (*service.LinkFolderContent, error) {
	args := m.Called(ctx, token, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LinkFolderContent), args.Error(1)
}

func (m *MockSharingService) EffectivePermission(ctx context.Context, userID string, itemType model.ItemType, itemID string) (model.Permission, bool, error) {
	args := m.Called(ctx, userID, itemType, itemID)
	return args.Get(0).(model.Permission), args.Bool(1), args.Error(2)
}

func (m *MockSharingService) DeactivateExpiredLinks(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
