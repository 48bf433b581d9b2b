package service

import (
	"testing"
	"time"

	"docvault/internal/config"
	"docvault/internal/repository"
	repoMocks "docvault/internal/repository/mocks"
	storeMocks "docvault/internal/storage/mocks"
)

func pageResult[T any](items []T, total int) *repository.PageResult[T] {
	return &repository.PageResult[T]{Items: items, Total: total}
}

var testVaultConfig = config.VaultConfig{
	TrashRetentionDays: 30,
	TrashSweepInterval: 24 * time.Hour,
	LinkSweepInterval:  time.Hour,
	UploadTimeout:      time.Minute,
	DownloadTimeout:    time.Minute,
	DefaultQuotaBytes:  5 << 30,
	PresignExpiry:      time.Hour,
}

// fixture wires every repository mock once so each test picks the service it
// needs. The tx runner executes transaction bodies inline.
type fixture struct {
	txr      *repoMocks.MockTxRunner
	folders  *repoMocks.MockFolderRepository
	docs     *repoMocks.MockDocumentRepository
	versions *repoMocks.MockVersionRepository
	trash    *repoMocks.MockTrashRepository
	users    *repoMocks.MockUserRepository
	shares   *repoMocks.MockShareRepository
	store    *storeMocks.MockStorage
}

func newFixture() *fixture {
	return &fixture{
		txr:      &repoMocks.MockTxRunner{},
		folders:  new(repoMocks.MockFolderRepository),
		docs:     new(repoMocks.MockDocumentRepository),
		versions: new(repoMocks.MockVersionRepository),
		trash:    new(repoMocks.MockTrashRepository),
		users:    new(repoMocks.MockUserRepository),
		shares:   new(repoMocks.MockShareRepository),
		store:    new(storeMocks.MockStorage),
	}
}

func (f *fixture) documentService() DocumentService {
	return NewDocumentService(f.txr, f.folders, f.docs, f.versions, f.trash, f.users, f.store, testVaultConfig)
}

func (f *fixture) folderService() FolderService {
	return NewFolderService(f.txr, f.folders, f.docs, f.versions, f.trash, f.users, f.store, testVaultConfig)
}

func (f *fixture) trashService() TrashService {
	return NewTrashService(f.txr, f.folders, f.docs, f.versions, f.trash, f.users, f.store, testVaultConfig)
}

func (f *fixture) sharingService(n Notifier) SharingService {
	if n == nil {
		n = NewLogNotifier()
	}
	return NewSharingService(f.shares, f.folders, f.docs, f.users, f.store, n, testVaultConfig)
}

func (f *fixture) assertAll(t *testing.T) {
	t.Helper()
	f.folders.AssertExpectations(t)
	f.docs.AssertExpectations(t)
	f.versions.AssertExpectations(t)
	f.trash.AssertExpectations(t)
	f.users.AssertExpectations(t)
	f.shares.AssertExpectations(t)
	f.store.AssertExpectations(t)
}
