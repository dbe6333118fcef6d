package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conn, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestRunMigrations_Idempotent(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	require.NoError(t, RunMigrations(ctx, conn))
	require.NoError(t, RunMigrations(ctx, conn))

	var applied int
	require.NoError(t, conn.GetContext(ctx, &applied, `SELECT COUNT(*) FROM schema_migrations`))
	assert.Equal(t, 1, applied)

	_, err := conn.ExecContext(ctx, `INSERT INTO kv_entries (name, value, updated_at) VALUES ('k', 'v', 1)`)
	assert.NoError(t, err)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	require.NoError(t, RunMigrations(ctx, conn))

	boom := errors.New("boom")
	err := WithTransaction(ctx, conn, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO kv_entries (name, value, updated_at) VALUES ('k', 'v', 1)`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, conn.GetContext(ctx, &count, `SELECT COUNT(*) FROM kv_entries`))
	assert.Zero(t, count)
}

func TestWithTransaction_RollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	require.NoError(t, RunMigrations(ctx, conn))

	assert.Panics(t, func() {
		_ = WithTransaction(ctx, conn, func(tx *sqlx.Tx) error {
			_, _ = tx.ExecContext(ctx, `INSERT INTO kv_entries (name, value, updated_at) VALUES ('k', 'v', 1)`)
			panic("boom")
		})
	})

	var count int
	require.NoError(t, conn.GetContext(ctx, &count, `SELECT COUNT(*) FROM kv_entries`))
	assert.Zero(t, count)
}
