package audit

import (
	"context"
	"sync"
	"time"

	"riskgate/internal/riskgate"
	dErrors "riskgate/pkg/domain-errors"
)

// InMemoryStore is an append-only in-memory record log for unit tests and
// single-process deployments.
type InMemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	records []riskgate.RiskAuditRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1}
}

func (s *InMemoryStore) Record(_ context.Context, rec riskgate.RiskAuditRecord) (riskgate.RiskAuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.nextID
	s.nextID++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *InMemoryStore) Latest(_ context.Context, proposalID string) (riskgate.RiskAuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		found  bool
		latest riskgate.RiskAuditRecord
	)
	for _, rec := range s.records {
		if rec.ProposalID != proposalID {
			continue
		}
		if !found || isNewer(rec, latest) {
			latest = rec
			found = true
		}
	}
	if !found {
		return riskgate.RiskAuditRecord{}, dErrors.New(dErrors.CodeNotFound, "no audit record for proposal")
	}
	return latest, nil
}

func (s *InMemoryStore) GetByID(_ context.Context, runID int64) (riskgate.RiskAuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.ID == runID {
			return rec, nil
		}
	}
	return riskgate.RiskAuditRecord{}, dErrors.New(dErrors.CodeNotFound, "audit record not found")
}

func (s *InMemoryStore) ListByProposal(_ context.Context, proposalID string) ([]riskgate.RiskAuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []riskgate.RiskAuditRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].ProposalID == proposalID {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

// Len reports the number of stored records. Test helper.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// All returns a copy of every record in insert order. Test helper for
// verifying prior rows are never mutated.
func (s *InMemoryStore) All() []riskgate.RiskAuditRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]riskgate.RiskAuditRecord{}, s.records...)
}

// isNewer implements the (created_at, id) recency ordering.
func isNewer(a, b riskgate.RiskAuditRecord) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}
