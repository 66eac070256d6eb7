package memory

import (
	"context"
	"sync"
	"time"

	dErrors "warranty/pkg/domain-errors"
	"warranty/pkg/platform/tx"
)

// defaultTxTimeout is the maximum duration for a transaction.
const defaultTxTimeout = 5 * time.Second

// journal collects undo steps for the in-flight write transaction.
type journal struct {
	undo []func()
}

type journalKey struct{}

type viewKey struct{}

// onRollback registers fn to run if the surrounding write transaction fails.
// Outside a transaction it does nothing.
func onRollback(ctx context.Context, fn func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, fn)
	}
}

// Runner is the coarse-lock transaction boundary for the in-memory stores:
// writers hold the lock exclusively, readers share it. A failed write is
// rolled back by replaying the stores' undo steps in reverse.
type Runner struct {
	mu      sync.RWMutex
	timeout time.Duration
}

func NewRunner() *Runner {
	return &Runner{timeout: defaultTxTimeout}
}

func (r *Runner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}
	ctx, cancel, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	j := &journal{}
	if err := fn(tx.WithWrite(context.WithValue(ctx, journalKey{}, j))); err != nil {
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		return err
	}
	return nil
}

func (r *Runner) View(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(viewKey{}) != nil || ctx.Value(journalKey{}) != nil {
		return fn(ctx)
	}
	ctx, cancel, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(context.WithValue(ctx, viewKey{}, struct{}{}))
}

func (r *Runner) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return ctx, func() {}, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	return ctx, cancel, nil
}
