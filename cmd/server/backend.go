package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"warranty/internal/platform/config"
	"warranty/internal/platform/database"
	"warranty/internal/warranty/events"
	"warranty/internal/warranty/service"
	"warranty/internal/warranty/store/memory"
	"warranty/internal/warranty/store/sqlstore"
	"warranty/pkg/platform/tx"
)

// outboxStore is both ends of the transactional event log.
type outboxStore interface {
	service.EventEmitter
	events.Outbox
}

// backend is one consistent set of stores sharing a transaction boundary.
type backend struct {
	certificates service.CertificateStore
	ledger       service.OwnershipLedger
	tx           service.StoreTx
	outbox       outboxStore
	db           *sql.DB
	readDB       *sql.DB
	// instance identifies the database; it namespaces cache keys.
	instance string
}

func (b *backend) Close() error {
	var errs []error
	for _, db := range []*sql.DB{b.readDB, b.db} {
		if db != nil {
			errs = append(errs, db.Close())
		}
	}
	return errors.Join(errs...)
}

// Ping reports whether the backing database is reachable.
func (b *backend) Ping(ctx context.Context) error {
	if b.db == nil {
		return nil
	}
	return b.db.PingContext(ctx)
}

func openBackend(ctx context.Context, cfg config.Config, log *slog.Logger) (*backend, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("using in-memory storage; certificates are lost on restart")
		certificates := memory.NewCertificateStore()
		return &backend{
			certificates: certificates,
			ledger:       memory.NewOwnershipLedger(),
			tx:           memory.NewRunner(),
			outbox:       memory.NewOutbox(),
			instance:     certificates.InstanceID(),
		}, nil
	case config.StorageSQLite:
		return openSQLite(ctx, cfg, log)
	case config.StoragePostgres:
		return openSQL(ctx, cfg, log, database.Config{
			Driver:       database.DriverPostgres,
			DSN:          cfg.Database.URL,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
		}, sqlstore.Postgres)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

// openSQLite opens the writer pool, whose transactions take the database
// lock up front, and a separate reader pool with deferred locking so View
// transactions run concurrently with each other and with a writer.
func openSQLite(ctx context.Context, cfg config.Config, log *slog.Logger) (*backend, error) {
	b, err := openSQL(ctx, cfg, log, database.Config{
		Driver:       database.DriverSQLite,
		DSN:          database.SQLiteDSN(cfg.Database.SQLitePath),
		MaxOpenConns: cfg.Database.MaxOpenConns,
	}, sqlstore.SQLite)
	if err != nil {
		return nil, err
	}
	readDB, err := database.Open(ctx, database.Config{
		Driver:       database.DriverSQLite,
		DSN:          database.SQLiteReadDSN(cfg.Database.SQLitePath),
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		b.Close()
		return nil, err
	}
	b.readDB = readDB
	b.tx = tx.NewSQLRunner(b.db, tx.WithReadOptions(nil), tx.WithReadDB(readDB))
	return b, nil
}

func openSQL(ctx context.Context, cfg config.Config, log *slog.Logger, dbCfg database.Config, dialect sqlstore.Dialect) (*backend, error) {
	db, err := database.Open(ctx, dbCfg)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateUp(db, dbCfg.Driver); err != nil {
		db.Close()
		return nil, err
	}
	instance, err := sqlstore.InstanceID(ctx, db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Info("database ready", "storage", cfg.Storage, "instance_id", instance)
	return &backend{
		certificates: sqlstore.NewCertificateStore(db, dialect),
		ledger:       sqlstore.NewOwnershipLedger(db, dialect),
		tx:           tx.NewSQLRunner(db),
		outbox:       sqlstore.NewOutbox(db, dialect),
		db:           db,
		instance:     instance,
	}, nil
}
