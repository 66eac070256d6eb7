package sqlstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"warranty/internal/platform/database"
	"warranty/internal/warranty/models"
	"warranty/internal/warranty/store/storetest"
	"warranty/pkg/platform/tx"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.Config{
		Driver: database.DriverSQLite,
		DSN:    database.SQLiteDSN(filepath.Join(t.TempDir(), "warranty.db")),
	})
	require.NoError(t, err)
	require.NoError(t, database.MigrateUp(db, database.DriverSQLite))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteBackend(t *testing.T) {
	s := &storetest.Suite{}
	s.New = func() storetest.Backend {
		return newBackend(openSQLite(s.T()), SQLite, tx.WithReadOptions(nil))
	}
	suite.Run(t, s)
}

func newBackend(db *sql.DB, dialect Dialect, opts ...tx.SQLOption) storetest.Backend {
	return storetest.Backend{
		Certificates: NewCertificateStore(db, dialect),
		Ledger:       NewOwnershipLedger(db, dialect),
		Tx:           tx.NewSQLRunner(db, opts...),
		Outbox:       NewOutbox(db, dialect),
	}
}

func TestRebind(t *testing.T) {
	q := `SELECT a FROM t WHERE x = $1 OR y = $1 AND z = $12`
	assert.Equal(t, q, Postgres.rebind(q))
	assert.Equal(t, `SELECT a FROM t WHERE x = ?1 OR y = ?1 AND z = ?12`, SQLite.rebind(q))
}

func TestForUpdate(t *testing.T) {
	assert.Equal(t, " FOR UPDATE", Postgres.forUpdate())
	assert.Empty(t, SQLite.forUpdate())
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("postgres")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)

	d, err = DialectFor("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d)

	_, err = DialectFor("mysql")
	assert.Error(t, err)
}

func TestAppendRequiresTransaction(t *testing.T) {
	db := openSQLite(t)
	store := NewCertificateStore(db, SQLite)

	_, err := store.Append(context.Background(), &models.Certificate{})
	assert.ErrorContains(t, err, "requires a transaction")
}

func TestDuplicateInitializeIsConflict(t *testing.T) {
	db := openSQLite(t)
	b := newBackend(db, SQLite, tx.WithReadOptions(nil))
	ctx := context.Background()

	err := b.Tx.RunInTx(ctx, func(ctx context.Context) error {
		id, err := b.Certificates.Append(ctx, &models.Certificate{
			BrandName: "Sony", Product: "TV", Category: "Electronics",
			Price: 1, WarrantyPeriod: 1,
			SellerAddress: storetest.Seller, BuyerAddress: storetest.Buyer,
		})
		if err != nil {
			return err
		}
		if err := b.Ledger.Initialize(ctx, id, storetest.Seller); err != nil {
			return err
		}
		return b.Ledger.Initialize(ctx, id, storetest.Other)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already set")
}

func TestSchemaRejectsInvalidRows(t *testing.T) {
	db := openSQLite(t)
	_, err := db.Exec(`INSERT INTO certificates (id, brand_name, product, category, price, warranty_period, creation_time, seller_address, buyer_address)
		VALUES (0, '', 'p', 'c', 1, 1, 0, 's', 'b')`)
	assert.Error(t, err)
}

func TestInstanceIDIsStablePerDatabase(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	first, err := InstanceID(ctx, db, SQLite)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	again, err := InstanceID(ctx, db, SQLite)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	fresh, err := InstanceID(ctx, openSQLite(t), SQLite)
	require.NoError(t, err)
	assert.NotEqual(t, first, fresh, "a new database must not share cache keys with an old one")
}
