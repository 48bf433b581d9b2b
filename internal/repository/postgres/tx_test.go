package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestTxRunner_WithinTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	runner := NewTxRunner(db)

	t.Run("commits on success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := runner.WithinTx(context.Background(), func(ctx context.Context) error {
			_, err := queryerFrom(ctx, db).ExecContext(ctx, "UPDATE users SET name = $1", "x")
			return err
		})

		assert.NoError(t, err)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := runner.WithinTx(context.Background(), func(ctx context.Context) error {
			return boom
		})

		assert.ErrorIs(t, err, boom)
	})

	t.Run("nested call joins the outer transaction", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectCommit()

		err := runner.WithinTx(context.Background(), func(outer context.Context) error {
			return runner.WithinTx(outer, func(inner context.Context) error {
				return nil
			})
		})

		assert.NoError(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
