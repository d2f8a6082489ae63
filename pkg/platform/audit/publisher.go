package audit

import (
	"context"
	"time"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit records an event, deriving its category from the action and stamping
// the time if the caller left it zero.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = AuditEvent(event.Action).Category()
	}
	return p.store.Append(ctx, event)
}

// List returns the audit trail for a proposal, newest first.
func (p *Publisher) List(ctx context.Context, proposalID string) ([]Event, error) {
	return p.store.ListByProposal(ctx, proposalID)
}
