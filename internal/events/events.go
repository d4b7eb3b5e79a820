package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Routing keys of the published domain events.
const (
	LoanApplied        = "loan.applied"
	LoanApproved       = "loan.approved"
	LoanRejected       = "loan.rejected"
	LoanClosed         = "loan.closed"
	RepaymentCompleted = "repayment.completed"
)

// Event is the envelope written to the broker.
type Event struct {
	ID         uuid.UUID   `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// Publisher delivers domain events after the transaction that produced them
// has committed. Delivery failures never undo a committed operation.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
	Close()
}

// NewEvent wraps a payload in an envelope.
func NewEvent(eventType string, payload interface{}) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Fallback is a no-op publisher used when no broker is configured.
type Fallback struct {
	logger *slog.Logger
}

func NewFallback(logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{logger: logger}
}

func (p *Fallback) Publish(ctx context.Context, eventType string, payload interface{}) error {
	p.logger.DebugContext(ctx, "event publish skipped", "component", "events", "mode", "fallback", "type", eventType)
	return nil
}

func (p *Fallback) Close() {}
