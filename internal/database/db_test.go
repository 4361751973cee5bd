package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T, profile Profile) *DB {
	t.Helper()

	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "test.db"),
		Profile: profile,
		Name:    "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewAndMigrate(t *testing.T) {
	db := setupDB(t, ProfileLedger)
	require.NoError(t, db.Migrate())

	// Migrate is re-runnable on every start.
	require.NoError(t, db.Migrate())

	var count int
	err := db.Conn().QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'transactions'",
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBuildConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		want    string
	}{
		{"ledger fsyncs fully", ProfileLedger, "_pragma=synchronous(FULL)"},
		{"cache trades safety for speed", ProfileCache, "_pragma=synchronous(OFF)"},
		{"standard balances", ProfileStandard, "_pragma=synchronous(NORMAL)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildConnectionString("/tmp/x.db", tt.profile)
			assert.Contains(t, got, "_pragma=journal_mode(WAL)")
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestCacheProfileOpens(t *testing.T) {
	db := setupDB(t, ProfileCache)

	var mode string
	require.NoError(t, db.Conn().QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestWithTransactionCommits(t *testing.T) {
	db := setupDB(t, ProfileStandard)
	_, err := db.Conn().Exec("CREATE TABLE t (v TEXT)")
	require.NoError(t, err)

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO t (v) VALUES ('kept')")
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM t").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db := setupDB(t, ProfileStandard)
	_, err := db.Conn().Exec("CREATE TABLE t (v TEXT)")
	require.NoError(t, err)

	boom := errors.New("row rejected")
	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO t (v) VALUES ('discarded')"); err != nil {
			return err
		}
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM t").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestWithTransactionRecoversPanic(t *testing.T) {
	db := setupDB(t, ProfileStandard)
	_, err := db.Conn().Exec("CREATE TABLE t (v TEXT)")
	require.NoError(t, err)

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO t (v) VALUES ('discarded')"); err != nil {
			return err
		}
		panic("unexpected")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in transaction")

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM t").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestHealthCheck(t *testing.T) {
	db := setupDB(t, ProfileLedger)
	require.NoError(t, db.Migrate())
	require.NoError(t, db.HealthCheck(context.Background()))
}

func TestWALCheckpointAndStats(t *testing.T) {
	db := setupDB(t, ProfileLedger)
	require.NoError(t, db.Migrate())
	_, err := db.Conn().Exec(
		"INSERT INTO accounts (account_id, institution, broker) VALUES ('A1', 'Test', 'SCHWAB')")
	require.NoError(t, err)

	require.NoError(t, db.WALCheckpoint(""))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.SizeBytes, int64(0))
	assert.Greater(t, stats.PageCount, int64(0))
	assert.Greater(t, stats.PageSize, int64(0))
}
