package fruits

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cornjacket/fruit-storage/internal/services/outbox"
)

// AuditHandler logs every delivered fruit event.
type AuditHandler struct {
	logger *slog.Logger
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(logger *slog.Logger) *AuditHandler {
	return &AuditHandler{logger: logger.With("handler", "fruit-audit")}
}

// Handle decodes the fruit snapshot and logs it. A payload that does not
// decode fails the delivery.
func (h *AuditHandler) Handle(ctx context.Context, payload json.RawMessage) error {
	var event struct {
		Fruit            Snapshot `json:"fruit"`
		DateTimeOccurred string   `json:"dateTimeOccurred"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("decode fruit event: %w", err)
	}

	attrs := []any{
		"fruit_id", event.Fruit.FruitID,
		"name", event.Fruit.Name,
		"current_amount", event.Fruit.CurrentAmount,
		"limit", event.Fruit.LimitOfFruitToBeStored,
		"occurred_at", event.DateTimeOccurred,
	}
	if record, ok := outbox.RecordFromContext(ctx); ok {
		attrs = append(attrs, "event_id", record.ID, "event_type", record.EventType)
	}

	h.logger.InfoContext(ctx, "fruit event delivered", attrs...)
	return nil
}

// Subscribe registers the audit handler for every fruit event type.
func (h *AuditHandler) Subscribe(dispatcher *outbox.Dispatcher) error {
	for _, eventType := range EventTypes() {
		if err := dispatcher.Register(eventType, h); err != nil {
			return fmt.Errorf("subscribe %q: %w", eventType, err)
		}
	}
	return nil
}

var _ outbox.Handler = (*AuditHandler)(nil)
