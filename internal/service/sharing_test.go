package service

import (
	"context"
	"database/sql"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"docvault/internal/apperr"
	"docvault/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type captureNotifier struct {
	events []ShareEvent
}

func (c *captureNotifier) ShareCreated(ctx context.Context, ev ShareEvent) {
	c.events = append(c.events, ev)
}

func activeLink() *model.ShareLink {
	return &model.ShareLink{
		ID:         "link-1",
		Token:      "tok-1",
		ItemType:   model.ItemDocument,
		ItemID:     "doc-1",
		CreatedBy:  "owner-1",
		Permission: model.PermissionDownload,
		IsActive:   true,
	}
}

func TestSharingService_ShareWithUser(t *testing.T) {
	ctx := context.Background()
	params := ShareGrantParams{
		ItemType:     model.ItemDocument,
		ItemID:       "doc-1",
		GranteeEmail: "Friend@Example.com ",
		Permission:   model.PermissionView,
		Message:      "take a look",
	}

	tests := []struct {
		name       string
		params     ShareGrantParams
		setupMocks func(f *fixture)
		wantErr    error
	}{
		{
			name: "unknown permission",
			params: ShareGrantParams{
				ItemType: model.ItemDocument, ItemID: "doc-1",
				GranteeEmail: "friend@example.com", Permission: "OWNER",
			},
			setupMocks: func(f *fixture) {},
			wantErr:    apperr.ErrValidation,
		},
		{
			name:   "item not owned by sharer",
			params: params,
			setupMocks: func(f *fixture) {
				f.docs.On("FindLive", ctx, "doc-1", "owner-1").Return(nil, sql.ErrNoRows)
			},
			wantErr: apperr.ErrNotFound,
		},
		{
			name:   "grantee email unknown",
			params: params,
			setupMocks: func(f *fixture) {
				f.docs.On("FindLive", ctx, "doc-1", "owner-1").Return(liveDocument(), nil)
				f.users.On("FindByEmail", ctx, "friend@example.com").Return(nil, sql.ErrNoRows)
			},
			wantErr: apperr.ErrNotFound,
		},
		{
			name:   "sharing with yourself",
			params: params,
			setupMocks: func(f *fixture) {
				f.docs.On("FindLive", ctx, "doc-1", "owner-1").Return(liveDocument(), nil)
				f.users.On("FindByEmail", ctx, "friend@example.com").
					Return(&model.User{ID: "owner-1", Email: "friend@example.com"}, nil)
			},
			wantErr: apperr.ErrValidation,
		},
		{
			name:   "duplicate grant",
			params: params,
			setupMocks: func(f *fixture) {
				f.docs.On("FindLive", ctx, "doc-1", "owner-1").Return(liveDocument(), nil)
				f.users.On("FindByEmail", ctx, "friend@example.com").
					Return(&model.User{ID: "friend-1", Email: "friend@example.com"}, nil)
				f.shares.On("GrantExists", ctx, model.ItemDocument, "doc-1", "friend-1").Return(true, nil)
			},
			wantErr: apperr.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setupMocks(f)

			_, err := f.sharingService(nil).ShareWithUser(ctx, "owner-1", tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
			f.assertAll(t)
		})
	}

	t.Run("granted and notified", func(t *testing.T) {
		f := newFixture()
		notifier := &captureNotifier{}

		f.docs.On("FindLive", ctx, "doc-1", "owner-1").Return(liveDocument(), nil)
		f.users.On("FindByEmail", ctx, "friend@example.com").
			Return(&model.User{ID: "friend-1", Email: "friend@example.com"}, nil)
		f.shares.On("GrantExists", ctx, model.ItemDocument, "doc-1", "friend-1").Return(false, nil)
		f.shares.On("CreateGrant", ctx, mock.MatchedBy(func(g *model.ShareGrant) bool {
			return g.OwnerID == "owner-1" && g.GranteeID == "friend-1" &&
				g.Permission == model.PermissionView && g.Message == "take a look"
		})).Return(&model.ShareGrant{
			ID: "grant-1", ItemType: model.ItemDocument, ItemID: "doc-1",
			OwnerID: "owner-1", GranteeID: "friend-1", Permission: model.PermissionView,
		}, nil)

		grant, err := f.sharingService(notifier).ShareWithUser(ctx, "owner-1", params)
		assert.NoError(t, err)
		assert.Equal(t, "report.pdf", grant.ItemName)
		assert.Equal(t, "friend@example.com", grant.GranteeEmail)
		assert.Len(t, notifier.events, 1)
		assert.Equal(t, "grant-1", notifier.events[0].ShareID)
		f.assertAll(t)
	})
}

func TestSharingService_RevokeShare_OnlySharer(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.shares.On("FindGrant", ctx, "grant-1").
		Return(&model.ShareGrant{ID: "grant-1", OwnerID: "owner-1"}, nil)

	err := f.sharingService(nil).RevokeShare(ctx, "someone-else", "grant-1")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	f.assertAll(t)
}

func TestSharingService_CreateShareLink(t *testing.T) {
	ctx := context.Background()

	t.Run("non-positive access limit", func(t *testing.T) {
		f := newFixture()
		limit := int64(0)

		_, err := f.sharingService(nil).CreateShareLink(ctx, "owner-1", ShareLinkParams{
			ItemType: model.ItemDocument, ItemID: "doc-1",
			Permission: model.PermissionView, MaxAccessCount: &limit,
		})
		assert.ErrorIs(t, err, apperr.ErrValidation)
		f.assertAll(t)
	})

	t.Run("password stored as bcrypt hash", func(t *testing.T) {
		f := newFixture()
		password := "hunter2"

		f.docs.On("FindLive", ctx, "doc-1", "owner-1").Return(liveDocument(), nil)
		f.shares.On("CreateLink", ctx, mock.MatchedBy(func(l *model.ShareLink) bool {
			return len(l.Token) == 64 &&
				l.IsActive &&
				l.PasswordHash != nil &&
				bcrypt.CompareHashAndPassword([]byte(*l.PasswordHash), []byte(password)) == nil
		})).Return(activeLink(), nil)

		link, err := f.sharingService(nil).CreateShareLink(ctx, "owner-1", ShareLinkParams{
			ItemType: model.ItemDocument, ItemID: "doc-1",
			Permission: model.PermissionDownload, Password: &password,
		})
		assert.NoError(t, err)
		assert.Equal(t, "link-1", link.ID)
		f.assertAll(t)
	})
}

func TestSharingService_ResolveLink(t *testing.T) {
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	hashStr := string(hash)

	tests := []struct {
		name       string
		password   *string
		setupMocks func(f *fixture)
		wantErr    error
	}{
		{
			name: "unknown token",
			setupMocks: func(f *fixture) {
				f.shares.On("FindLinkByToken", ctx, "tok-1").Return(nil, sql.ErrNoRows)
			},
			wantErr: apperr.ErrNotFound,
		},
		{
			name: "deactivated link",
			setupMocks: func(f *fixture) {
				link := activeLink()
				link.IsActive = false
				f.shares.On("FindLinkByToken", ctx, "tok-1").Return(link, nil)
			},
			wantErr: apperr.ErrUnauthorized,
		},
		{
			name: "exhausted link",
			setupMocks: func(f *fixture) {
				limit := int64(5)
				link := activeLink()
				link.MaxAccessCount = &limit
				link.AccessCount = 5
				f.shares.On("FindLinkByToken", ctx, "tok-1").Return(link, nil)
			},
			wantErr: apperr.ErrUnauthorized,
		},
		{
			name:     "wrong password",
			password: strPtr("letmein"),
			setupMocks: func(f *fixture) {
				link := activeLink()
				link.PasswordHash = &hashStr
				f.shares.On("FindLinkByToken", ctx, "tok-1").Return(link, nil)
			},
			wantErr: apperr.ErrUnauthorized,
		},
		{
			name: "missing password",
			setupMocks: func(f *fixture) {
				link := activeLink()
				link.PasswordHash = &hashStr
				f.shares.On("FindLinkByToken", ctx, "tok-1").Return(link, nil)
			},
			wantErr: apperr.ErrUnauthorized,
		},
		{
			name: "target trashed after link creation",
			setupMocks: func(f *fixture) {
				// No ConsumeAccess expectation: a dead target must not consume.
				f.shares.On("FindLinkByToken", ctx, "tok-1").Return(activeLink(), nil)
				f.docs.On("FindLive", ctx, "doc-1", "owner-1").Return(nil, sql.ErrNoRows)
			},
			wantErr: apperr.ErrNotFound,
		},
		{
			name: "lost the last permitted access",
			setupMocks: func(f *fixture) {
				f.shares.On("FindLinkByToken", ctx, "tok-1").Return(activeLink(), nil)
				f.docs.On("FindLive", ctx, "doc-1", "owner-1").Return(liveDocument(), nil)
				f.shares.On("ConsumeAccess", ctx, "link-1", mock.Anything).Return(false, nil)
			},
			wantErr: apperr.ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setupMocks(f)

			_, err := f.sharingService(nil).ResolveLink(ctx, "tok-1", tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
			f.assertAll(t)
		})
	}

	t.Run("valid password counts one access", func(t *testing.T) {
		f := newFixture()
		link := activeLink()
		link.PasswordHash = &hashStr

		f.shares.On("FindLinkByToken", ctx, "tok-1").Return(link, nil)
		f.docs.On("FindLive", ctx, "doc-1", "owner-1").Return(liveDocument(), nil)
		f.shares.On("ConsumeAccess", ctx, "link-1", mock.Anything).Return(true, nil)

		got, err := f.sharingService(nil).ResolveLink(ctx, "tok-1", strPtr("hunter2"))
		assert.NoError(t, err)
		assert.Equal(t, int64(1), got.AccessCount)
		f.assertAll(t)
	})
}

func TestSharingService_LinkDownload_ViewOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	link := activeLink()
	link.Permission = model.PermissionView

	f.shares.On("FindLinkByToken", ctx, "tok-1").Return(link, nil)
	f.docs.On("FindLive", ctx, "doc-1", "owner-1").Return(liveDocument(), nil)
	f.shares.On("ConsumeAccess", ctx, "link-1", mock.Anything).Return(true, nil)

	_, _, err := f.sharingService(nil).LinkDownload(ctx, "tok-1", nil)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	f.assertAll(t)
}

func TestSharingService_LinkFolderContents(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	link := activeLink()
	link.ItemType = model.ItemFolder
	link.ItemID = "f-1"

	folder := &model.Folder{ID: "f-1", UserID: "owner-1", Name: "Shared", Path: "/Shared"}
	f.shares.On("FindLinkByToken", ctx, "tok-1").Return(link, nil)
	f.folders.On("FindLive", ctx, "f-1", "owner-1").Return(folder, nil)
	f.shares.On("ConsumeAccess", ctx, "link-1", mock.Anything).Return(true, nil)
	f.folders.On("ListChildren", ctx, "owner-1", strPtr("f-1")).
		Return([]model.Folder{{ID: "f-1-sub"}}, nil)
	f.docs.On("ListLiveByFolder", ctx, "owner-1", strPtr("f-1")).
		Return([]model.Document{{ID: "d-1"}}, nil)

	content, err := f.sharingService(nil).LinkFolderContents(ctx, "tok-1", nil)
	assert.NoError(t, err)
	assert.Equal(t, folder, content.Folder)
	assert.Len(t, content.Folders, 1)
	assert.Len(t, content.Documents, 1)
	f.assertAll(t)
}

func TestSharingService_EffectivePermission(t *testing.T) {
	ctx := context.Background()

	t.Run("owner has full control", func(t *testing.T) {
		f := newFixture()
		f.docs.On("FindLive", ctx, "doc-1", "owner-1").Return(liveDocument(), nil)

		perm, ok, err := f.sharingService(nil).EffectivePermission(ctx, "owner-1", model.ItemDocument, "doc-1")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, model.PermissionEdit, perm)
		f.assertAll(t)
	})

	t.Run("grantee gets the highest grant", func(t *testing.T) {
		f := newFixture()
		f.docs.On("FindLive", ctx, "doc-1", "friend-1").Return(nil, sql.ErrNoRows)
		f.shares.On("BestGrantPermission", ctx, model.ItemDocument, "doc-1", "friend-1", mock.Anything).
			Return(model.PermissionDownload, true, nil)

		perm, ok, err := f.sharingService(nil).EffectivePermission(ctx, "friend-1", model.ItemDocument, "doc-1")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, model.PermissionDownload, perm)
		f.assertAll(t)
	})

	t.Run("no access at all", func(t *testing.T) {
		f := newFixture()
		f.docs.On("FindLive", ctx, "doc-1", "stranger-1").Return(nil, sql.ErrNoRows)
		f.shares.On("BestGrantPermission", ctx, model.ItemDocument, "doc-1", "stranger-1", mock.Anything).
			Return(model.Permission(""), false, nil)

		_, ok, err := f.sharingService(nil).EffectivePermission(ctx, "stranger-1", model.ItemDocument, "doc-1")
		assert.NoError(t, err)
		assert.False(t, ok)
		f.assertAll(t)
	})
}

func TestSharingService_DeactivateExpiredLinks(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.shares.On("DeactivateExpired", ctx, mock.AnythingOfType("time.Time")).Return(int64(3), nil)

	n, err := f.sharingService(nil).DeactivateExpiredLinks(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	f.assertAll(t)
}
