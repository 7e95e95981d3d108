package support

import (
	"context"
	"log/slog"

	"campusmarket/internal/app/outbox"
	"campusmarket/internal/domain/shared/events"
)

// RecordEvents drains the pending events of every source into the outbox.
// The aggregate is already stored, so a failure is logged and swallowed.
func RecordEvents(ctx context.Context, box outbox.Outbox, encoder outbox.EventEncoder, logger *slog.Logger, sources ...events.Source) {
	pending := events.Drain(sources...)
	if box == nil || len(pending) == 0 {
		return
	}
	if err := outbox.RecordDomainEvents(ctx, box, encoder, pending); err != nil && logger != nil {
		logger.Warn("domain events not recorded", "count", len(pending), "error", err)
	}
}
