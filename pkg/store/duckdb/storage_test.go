package duckdb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB_BootsSchema(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "duckdb-test-*")
	require.NoError(t, err)

	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			t.Errorf("failed to cleanup test directory: %v", err)
		}
	}()

	db, err := NewDB(Settings{DbPath: filepath.Join(tmpDir, "test.db")})
	require.NoError(t, err)
	require.NotNil(t, db)

	defer func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close database connection: %v", err)
		}
	}()

	_, err = db.Exec(
		`INSERT INTO report_records (dataset, seq, fields) VALUES (?, ?, ?)`,
		"traffic", 0, `{"region":"east"}`,
	)
	require.NoError(t, err)

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM report_records WHERE dataset = ?", "traffic").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInTransaction(t *testing.T) {
	db, err := NewDB(Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	insert := func(ctx context.Context, seq int) error {
		_, err := Conn(ctx, db).ExecContext(ctx,
			`INSERT INTO report_records (dataset, seq, fields) VALUES (?, ?, ?)`, "traffic", seq, `{}`)
		return err
	}
	count := func() int {
		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM report_records`).Scan(&n))
		return n
	}

	t.Run("commit", func(t *testing.T) {
		err := InTransaction(ctx, db, func(ctx context.Context) error {
			assert.NotNil(t, GetTransaction(ctx))
			return insert(ctx, 0)
		})
		require.NoError(t, err)
		assert.Equal(t, 1, count())
	})

	t.Run("rollback", func(t *testing.T) {
		failure := errors.New("abort")
		err := InTransaction(ctx, db, func(ctx context.Context) error {
			require.NoError(t, insert(ctx, 1))
			return failure
		})
		assert.ErrorIs(t, err, failure)
		assert.Equal(t, 1, count())
	})
}
