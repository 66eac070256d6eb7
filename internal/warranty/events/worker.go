// Package events delivers registry notifications recorded in the outbox to
// external observers. Delivery is at-least-once: an event is marked published
// only after the sink accepted it, so consumers deduplicate on the event id.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"warranty/internal/warranty/metrics"
	"warranty/internal/warranty/models"
)

// Sink publishes a batch of events in order.
type Sink interface {
	Publish(ctx context.Context, events []models.Event) error
}

// Outbox is the read side of the transactional event log.
type Outbox interface {
	Pending(ctx context.Context, limit int) ([]models.Event, error)
	MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Pruner is implemented by outboxes that can drop delivered events.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int, error)
}

const (
	defaultInterval  = time.Second
	defaultBatchSize = 100
)

// Worker polls the outbox and hands pending events to the sink.
type Worker struct {
	outbox    Outbox
	sink      Sink
	interval  time.Duration
	batchSize int
	retention time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

type Option func(*Worker)

func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithRetention prunes delivered events older than d when the outbox supports it.
func WithRetention(d time.Duration) Option {
	return func(w *Worker) {
		w.retention = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

func NewWorker(outbox Outbox, sink Sink, opts ...Option) *Worker {
	w := &Worker{
		outbox:    outbox,
		sink:      sink,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains the outbox every interval until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				n, err := w.Drain(ctx)
				if err != nil {
					w.logger.ErrorContext(ctx, "outbox delivery failed", "error", err)
					break
				}
				if n < w.batchSize {
					break
				}
			}
			w.prune(ctx)
		}
	}
}

// Drain delivers one batch and returns how many events were published.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	pending, err := w.outbox.Pending(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	if err := w.sink.Publish(ctx, pending); err != nil {
		if w.metrics != nil {
			w.metrics.IncrementOutboxFailure()
		}
		return 0, err
	}

	at := w.now()
	for i, event := range pending {
		if err := w.outbox.MarkPublished(ctx, event.ID, at); err != nil {
			w.count(i)
			return i, err
		}
	}
	w.count(len(pending))
	return len(pending), nil
}

func (w *Worker) count(n int) {
	if w.metrics != nil && n > 0 {
		w.metrics.IncrementOutboxPublished(n)
	}
}

func (w *Worker) prune(ctx context.Context) {
	pruner, ok := w.outbox.(Pruner)
	if !ok || w.retention <= 0 {
		return
	}
	n, err := pruner.Prune(ctx, w.now().Add(-w.retention))
	if err != nil {
		w.logger.WarnContext(ctx, "outbox prune failed", "error", err)
		return
	}
	if n > 0 {
		w.logger.DebugContext(ctx, "outbox pruned", "removed", n)
	}
}
