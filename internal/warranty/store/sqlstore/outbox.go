package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"warranty/internal/warranty/models"
	"warranty/pkg/domain"
	"warranty/pkg/platform/sentinel"
	"warranty/pkg/platform/tx"
)

// Outbox stores emitted events in warranty_outbox. Emit joins the caller's
// transaction, so an event exists only if the change it describes committed.
type Outbox struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewOutbox(db *sql.DB, dialect Dialect) *Outbox {
	return &Outbox{db: db, dialect: dialect, now: time.Now}
}

func (o *Outbox) Emit(ctx context.Context, event models.Event) error {
	_, err := tx.ExecutorFrom(ctx, o.db).ExecContext(ctx, o.dialect.rebind(`
		INSERT INTO warranty_outbox (id, event_type, certificate_id, occurred_at, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`),
		event.ID,
		string(event.Type),
		int64(event.CertificateID),
		event.OccurredAt.Unix(),
		string(event.Payload),
		o.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// Pending returns up to limit undelivered events in emission order.
func (o *Outbox) Pending(ctx context.Context, limit int) ([]models.Event, error) {
	rows, err := tx.ExecutorFrom(ctx, o.db).QueryContext(ctx, o.dialect.rebind(`
		SELECT id, event_type, certificate_id, occurred_at, payload
		FROM warranty_outbox
		WHERE published_at IS NULL
		ORDER BY seq
		LIMIT $1`),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending events: %w", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var (
			event         models.Event
			eventType     string
			certificateID int64
			occurredAt    int64
			payload       []byte
		)
		if err := rows.Scan(&event.ID, &eventType, &certificateID, &occurredAt, &payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		event.Type = models.EventType(eventType)
		event.CertificateID = domain.CertificateID(certificateID)
		event.OccurredAt = time.Unix(occurredAt, 0).UTC()
		event.Payload = payload
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query pending events: %w", err)
	}
	return out, nil
}

func (o *Outbox) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := tx.ExecutorFrom(ctx, o.db).ExecContext(ctx, o.dialect.rebind(
		`UPDATE warranty_outbox SET published_at = $2 WHERE id = $1`),
		id, at.Unix(),
	)
	if err != nil {
		return fmt.Errorf("mark event published: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark event published: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("outbox event %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

// Prune deletes delivered events older than before.
func (o *Outbox) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := tx.ExecutorFrom(ctx, o.db).ExecContext(ctx, o.dialect.rebind(
		`DELETE FROM warranty_outbox WHERE published_at IS NOT NULL AND published_at < $1`),
		before.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("prune outbox: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune outbox: %w", err)
	}
	return int(n), nil
}
