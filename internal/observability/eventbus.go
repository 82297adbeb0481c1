package observability

import (
	"context"
	"log/slog"
)

// EventBus is the audit-event sink for ledger mutations (deposits, debits,
// transfers, conversions): a record of what happened to a balance, kept
// separate from the operational zap logging the rest of the gateway uses.
type EventBus struct {
	logger *slog.Logger
}

// NewEventBus creates a new event bus.
func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		logger: logger,
	}
}

// NewDefaultEventBus wires an EventBus to slog's default handler.
func NewDefaultEventBus() *EventBus {
	return NewEventBus(slog.Default())
}

// Publish publishes an event with the given type and data.
func (e *EventBus) Publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if e.logger == nil {
		return
	}

	// Convert map to slog attributes.
	attrs := make([]interface{}, 0, len(data)*2)
	for k, v := range data {
		attrs = append(attrs, k, v)
	}

	e.logger.InfoContext(ctx, eventType, attrs...)
}
