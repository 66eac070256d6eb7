package events

import (
	"context"
	"log/slog"

	"warranty/internal/warranty/models"
)

// LogSink writes events to the structured log. It is the sink used when no
// broker is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(ctx context.Context, events []models.Event) error {
	for _, event := range events {
		s.logger.InfoContext(ctx, string(event.Type),
			"event_id", event.ID,
			"certificate_id", event.CertificateID,
			"occurred_at", event.OccurredAt,
			"payload", string(event.Payload),
			"log_type", "event",
		)
	}
	return nil
}
