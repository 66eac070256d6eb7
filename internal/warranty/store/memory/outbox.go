package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"warranty/internal/warranty/models"
	"warranty/pkg/platform/sentinel"
)

type outboxEntry struct {
	event       models.Event
	publishedAt *time.Time
}

// Outbox holds emitted events until the outbox worker delivers them.
type Outbox struct {
	mu      sync.Mutex
	entries []outboxEntry
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

// Emit appends event; inside a write transaction it is discarded on rollback.
func (o *Outbox) Emit(ctx context.Context, event models.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.entries = append(o.entries, outboxEntry{event: event})
	onRollback(ctx, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i := range o.entries {
			if o.entries[i].event.ID == event.ID {
				o.entries = append(o.entries[:i], o.entries[i+1:]...)
				return
			}
		}
	})
	return nil
}

// Pending returns up to limit undelivered events in emission order.
func (o *Outbox) Pending(_ context.Context, limit int) ([]models.Event, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []models.Event
	for _, e := range o.entries {
		if e.publishedAt != nil {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, e.event)
	}
	return out, nil
}

func (o *Outbox) MarkPublished(_ context.Context, id uuid.UUID, at time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := range o.entries {
		if o.entries[i].event.ID == id {
			o.entries[i].publishedAt = &at
			return nil
		}
	}
	return fmt.Errorf("outbox event %s: %w", id, sentinel.ErrNotFound)
}

// Prune drops delivered events older than before and returns how many it removed.
func (o *Outbox) Prune(_ context.Context, before time.Time) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	kept := o.entries[:0]
	removed := 0
	for _, e := range o.entries {
		if e.publishedAt != nil && e.publishedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	o.entries = kept
	return removed, nil
}
