package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), Config{
		Driver: DriverSQLite,
		DSN:    SQLiteDSN(filepath.Join(t.TempDir(), "warranty.db")),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, MigrateUp(db, DriverSQLite))

	for _, table := range []string{"certificate_counter", "certificates", "certificate_owners", "warranty_outbox", "registry_instance", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s was not created", table)
	}

	var next int64
	require.NoError(t, db.QueryRow("SELECT next_id FROM certificate_counter WHERE id = 1").Scan(&next))
	assert.Zero(t, next)
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, MigrateUp(db, DriverSQLite))
	require.NoError(t, MigrateUp(db, DriverSQLite))
}

func TestCheckMigrationStatus(t *testing.T) {
	db := openSQLite(t)

	err := CheckMigrationStatus(db, DriverSQLite)
	require.Error(t, err)
	assert.Equal(t, "database has no schema version (needs migration)", err.Error())

	require.NoError(t, MigrateUp(db, DriverSQLite))
	assert.NoError(t, CheckMigrationStatus(db, DriverSQLite))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestSQLiteDSN(t *testing.T) {
	dsn := SQLiteDSN("/tmp/w.db")
	assert.Contains(t, dsn, "file:/tmp/w.db?")
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.Contains(t, dsn, "_busy_timeout=5000")
}

func TestSQLiteReadDSN_ReadsWithoutWriteLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warranty.db")
	ctx := context.Background()
	writer, err := Open(ctx, Config{Driver: DriverSQLite, DSN: SQLiteDSN(path)})
	require.NoError(t, err)
	defer writer.Close()
	require.NoError(t, MigrateUp(writer, DriverSQLite))

	reader, err := Open(ctx, Config{Driver: DriverSQLite, DSN: SQLiteReadDSN(path)})
	require.NoError(t, err)
	defer reader.Close()

	wtx, err := writer.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer wtx.Rollback()
	_, err = wtx.Exec(`UPDATE certificate_counter SET next_id = 5 WHERE id = 1`)
	require.NoError(t, err)

	var next int64
	require.NoError(t, reader.QueryRowContext(ctx, "SELECT next_id FROM certificate_counter WHERE id = 1").Scan(&next))
	assert.Zero(t, next)

	_, err = reader.ExecContext(ctx, `UPDATE certificate_counter SET next_id = 1 WHERE id = 1`)
	assert.Error(t, err, "reader pool must refuse writes")
}
