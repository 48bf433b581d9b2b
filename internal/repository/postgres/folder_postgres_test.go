package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"docvault/internal/model"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

var folderColumnList = []string{
	"id", "user_id", "parent_id", "name", "path", "color", "description",
	"is_root", "is_deleted", "deleted_at", "created_at", "updated_at",
}

func folderRow(f *model.Folder) *sqlmock.Rows {
	return sqlmock.NewRows(folderColumnList).
		AddRow(f.ID, f.UserID, f.ParentID, f.Name, f.Path, f.Color, f.Description,
			f.IsRoot, f.IsDeleted, f.DeletedAt, f.CreatedAt, f.UpdatedAt)
}

func sampleFolder(now time.Time) *model.Folder {
	return &model.Folder{
		ID:        "folder-uuid",
		UserID:    "user-uuid",
		Name:      "Invoices",
		Path:      "/Invoices",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestFolderPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewFolderPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	folder := sampleFolder(now)

	mock.ExpectQuery("INSERT INTO folders").
		WithArgs(folder.ID, folder.UserID, folder.ParentID, folder.Name, folder.Path,
			folder.Color, folder.Description, folder.IsRoot, folder.CreatedAt, folder.UpdatedAt).
		WillReturnRows(folderRow(folder))

	result, err := repo.Create(ctx, folder)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, folder.ID, result.ID)
	assert.Equal(t, folder.Path, result.Path)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderPostgres_FindLive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewFolderPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		folder := sampleFolder(time.Now().UTC())

		mock.ExpectQuery("SELECT (.+) FROM folders WHERE id = (.+) AND user_id = (.+) AND NOT is_deleted").
			WithArgs(folder.ID, folder.UserID).
			WillReturnRows(folderRow(folder))

		got, err := repo.FindLive(ctx, folder.ID, folder.UserID)

		assert.NoError(t, err)
		assert.NotNil(t, got)
		assert.Equal(t, folder.ID, got.ID)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM folders WHERE id = (.+) AND user_id = (.+) AND NOT is_deleted").
			WithArgs("missing", "user-uuid").
			WillReturnError(sql.ErrNoRows)

		got, err := repo.FindLive(ctx, "missing", "user-uuid")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, got)
	})
}

func TestFolderPostgres_ExistsLiveSibling(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewFolderPostgres(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("user-uuid", nil, "Invoices").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsLiveSibling(ctx, "user-uuid", nil, "Invoices")

	assert.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderPostgres_SetDeleted(t *testing.T) {
	db, mock := newBatchMock(t)
	defer db.Close()

	repo := NewFolderPostgres(db)
	ctx := context.Background()

	t.Run("delete batch", func(t *testing.T) {
		now := time.Now().UTC()

		mock.ExpectExec("UPDATE folders").
			WithArgs(true, &now, sqlmock.AnyArg(), []string{"f-1", "f-2"}).
			WillReturnResult(sqlmock.NewResult(0, 2))

		assert.NoError(t, repo.SetDeleted(ctx, []string{"f-1", "f-2"}, &now))
	})

	t.Run("restore", func(t *testing.T) {
		mock.ExpectExec("UPDATE folders").
			WithArgs(false, (*time.Time)(nil), sqlmock.AnyArg(), []string{"f-1", "f-2"}).
			WillReturnResult(sqlmock.NewResult(0, 2))

		assert.NoError(t, repo.SetDeleted(ctx, []string{"f-1", "f-2"}, nil))
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.SetDeleted(ctx, nil, nil))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderPostgres_HardDelete(t *testing.T) {
	db, mock := newBatchMock(t)
	defer db.Close()

	repo := NewFolderPostgres(db)
	ctx := context.Background()

	t.Run("batch", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM folders").
			WithArgs([]string{"f-1", "f-2"}).
			WillReturnResult(sqlmock.NewResult(0, 2))

		assert.NoError(t, repo.HardDelete(ctx, []string{"f-1", "f-2"}))
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.HardDelete(ctx, nil))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderPostgres_UpdatePath(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewFolderPostgres(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE folders SET path").
		WithArgs("/Archive/Invoices", sqlmock.AnyArg(), "folder-uuid").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.UpdatePath(ctx, "folder-uuid", "/Archive/Invoices"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
