package proposal

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"riskgate/pkg/platform/audit"
	"riskgate/pkg/requestcontext"
)

// AuditPublisher is the slice of the audit publisher the service needs.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages proposal documents. The risk gate reads proposals through
// this service so status normalization happens in one place.
type Service struct {
	store  Store
	audit  AuditPublisher
	logger *slog.Logger
}

func NewService(store Store, auditPub AuditPublisher, logger *slog.Logger) *Service {
	return &Service{store: store, audit: auditPub, logger: logger}
}

// CreateInput carries the fields a caller may set when creating a proposal.
type CreateInput struct {
	Title      string
	ClientName string
	Status     string
	Sections   map[string]string
}

// Create persists a new proposal. Status defaults to draft when empty and is
// normalized to lowercase.
func (s *Service) Create(ctx context.Context, in CreateInput) (Proposal, error) {
	now := requestcontext.Now(ctx).UTC()
	status := NormalizeStatus(in.Status)
	if status == "" {
		status = StatusDraft
	}

	p := Proposal{
		ID:         uuid.NewString(),
		Title:      in.Title,
		ClientName: in.ClientName,
		Status:     status,
		Sections:   in.Sections,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := p.Validate(); err != nil {
		return Proposal{}, err
	}
	if err := s.store.Save(ctx, p); err != nil {
		return Proposal{}, err
	}

	if err := s.audit.Emit(ctx, audit.Event{
		ProposalID: p.ID,
		Actor:      requestcontext.Actor(ctx),
		Action:     string(audit.EventProposalCreated),
		IP:         requestcontext.ClientIP(ctx),
		UserAgent:  requestcontext.UserAgent(ctx),
		RequestID:  requestcontext.RequestID(ctx),
	}); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", audit.EventProposalCreated,
			"proposal_id", p.ID,
			"error", err,
		)
	}

	return p, nil
}

// Get returns a proposal by ID.
func (s *Service) Get(ctx context.Context, id string) (Proposal, error) {
	return s.store.Get(ctx, id)
}

// SetStatus moves a proposal to the given lifecycle state. Used by the risk
// gate to mark proposals released or blocked.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) error {
	return s.store.UpdateStatus(ctx, id, status)
}
