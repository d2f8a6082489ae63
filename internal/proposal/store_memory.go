package proposal

import (
	"context"
	"sync"
	"time"

	dErrors "riskgate/pkg/domain-errors"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	proposals map[string]Proposal
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{proposals: make(map[string]Proposal)}
}

func (s *InMemoryStore) Save(_ context.Context, p Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[p.ID] = p
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.proposals[id]
	if !ok {
		return Proposal{}, dErrors.New(dErrors.CodeNotFound, "proposal not found")
	}
	return p, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "proposal not found")
	}
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	s.proposals[id] = p
	return nil
}
