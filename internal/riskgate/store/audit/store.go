// Package audit persists risk audit records. The store is strictly
// append-only: there is no update or delete, and corrections are made by
// inserting a new record so history is never rewritten.
package audit

import (
	"context"

	"riskgate/internal/riskgate"
)

// Store persists RiskAuditRecords. Record assigns ID and CreatedAt and
// returns the stored row. Latest orders by (created_at, id) descending.
type Store interface {
	Record(ctx context.Context, rec riskgate.RiskAuditRecord) (riskgate.RiskAuditRecord, error)
	Latest(ctx context.Context, proposalID string) (riskgate.RiskAuditRecord, error)
	GetByID(ctx context.Context, runID int64) (riskgate.RiskAuditRecord, error)
	ListByProposal(ctx context.Context, proposalID string) ([]riskgate.RiskAuditRecord, error)
}
