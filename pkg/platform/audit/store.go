package audit

import "context"

// Store persists audit events. Implementations must be append-only; there is
// deliberately no update or delete in this interface.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByProposal(ctx context.Context, proposalID string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
