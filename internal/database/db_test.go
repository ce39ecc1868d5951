package database

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openMigrated(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, RunMigrationsWithDB(db))
	return db
}

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()
	db := openMigrated(t)

	// running up again against an up-to-date schema is a no-op
	require.NoError(t, RunMigrationsWithDB(db))

	for _, table := range []string{
		"tokens", "categories", "rules", "vendor_mappings",
		"transactions", "transaction_splits", "settings",
	} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s missing", table)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	t.Parallel()
	db := openMigrated(t)

	_, err := db.Exec(`
	INSERT INTO transaction_splits(id, transaction_id, category_id, amount, memo)
	VALUES('s1', 'nonexistent', 'also-nonexistent', '-1.00', NULL)`)
	require.Error(t, err, "orphan splits are rejected")
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()
	db := openMigrated(t)
	boom := errors.New("boom")

	err := WithTx(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO settings(key, value) VALUES('k', 'v')`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM settings`).Scan(&n))
	require.Zero(t, n)

	require.NoError(t, WithTx(db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO settings(key, value) VALUES('k', 'v')`)
		return err
	}))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM settings`).Scan(&n))
	require.Equal(t, 1, n)
}

func TestNowIsSecondPrecisionUTC(t *testing.T) {
	t.Parallel()
	now := Now()
	require.Equal(t, time.UTC, now.Location())
	require.Zero(t, now.Nanosecond())
}
