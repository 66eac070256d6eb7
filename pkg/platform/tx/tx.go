package tx

import (
	"context"
	"database/sql"
	"time"

	dErrors "warranty/pkg/domain-errors"
)

type ctxKey struct{}

var txKey = ctxKey{}

// DefaultTimeout bounds a transaction when the caller's context has no deadline.
const DefaultTimeout = 5 * time.Second

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

type writeKey struct{}

// WithWrite marks ctx as running inside a read-write transaction.
func WithWrite(ctx context.Context) context.Context {
	return context.WithValue(ctx, writeKey{}, true)
}

// InWrite reports whether ctx runs inside a read-write transaction, whose
// reads may observe rows that are later rolled back.
func InWrite(ctx context.Context) bool {
	write, _ := ctx.Value(writeKey{}).(bool)
	return write
}

// Executor is the subset of *sql.DB and *sql.Tx the stores use.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ExecutorFrom returns the transaction in ctx, or db when there is none.
func ExecutorFrom(ctx context.Context, db *sql.DB) Executor {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}

// SQLRunner runs callbacks inside database transactions. Stores called with
// the callback's context pick the transaction up through ExecutorFrom.
type SQLRunner struct {
	db       *sql.DB
	readDB   *sql.DB
	timeout  time.Duration
	readOpts *sql.TxOptions
}

// SQLOption configures a SQLRunner.
type SQLOption func(*SQLRunner)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) SQLOption {
	return func(r *SQLRunner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithReadOptions sets the options used for View transactions.
func WithReadOptions(opts *sql.TxOptions) SQLOption {
	return func(r *SQLRunner) {
		r.readOpts = opts
	}
}

// WithReadDB runs View transactions on a separate pool, for drivers whose
// write pool locks eagerly on BEGIN.
func WithReadDB(db *sql.DB) SQLOption {
	return func(r *SQLRunner) {
		if db != nil {
			r.readDB = db
		}
	}
}

// NewSQLRunner constructs a SQLRunner. View transactions default to
// read-only REPEATABLE READ so a read sees one consistent snapshot.
func NewSQLRunner(db *sql.DB, opts ...SQLOption) *SQLRunner {
	r := &SQLRunner{
		db:       db,
		readDB:   db,
		timeout:  DefaultTimeout,
		readOpts: &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunInTx runs fn in a read-write transaction, committing on nil error.
func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.run(ctx, r.db, nil, func(ctx context.Context) error {
		return fn(WithWrite(ctx))
	})
}

// View runs fn in a read-only transaction.
func (r *SQLRunner) View(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.run(ctx, r.readDB, r.readOpts, fn)
}

func (r *SQLRunner) run(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context) error) error {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	sqlTx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to begin transaction")
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit transaction")
	}
	return nil
}
