package postgres_test

import (
	"context"
	"errors"
	"roombook/infras/postgres"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConnection(t *testing.T) (*postgres.Connection, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")

	return &postgres.Connection{Read: sqlxDB, Write: sqlxDB}, mock
}

func TestWithTx(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		conn, mock := newConnection(t)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE rooms").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := conn.WithTx(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
			_, err := tx.ExecContext(ctx, "UPDATE rooms SET capacity = 30")

			return err
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back and returns the callback error", func(t *testing.T) {
		conn, mock := newConnection(t)
		boom := errors.New("overlap")

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := conn.WithTx(context.Background(), func(_ context.Context, _ *sqlx.Tx) error {
			return boom
		})

		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		conn, mock := newConnection(t)

		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		called := false
		err := conn.WithTx(context.Background(), func(_ context.Context, _ *sqlx.Tx) error {
			called = true

			return nil
		})

		assert.Error(t, err)
		assert.False(t, called)
	})
}
