// Package service orchestrates the release risk gate: precheck, external
// assessment, combination, audit persistence, and the override path.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"riskgate/internal/proposal"
	"riskgate/internal/riskgate"
	"riskgate/internal/riskgate/assessor"
	"riskgate/internal/riskgate/cache"
	"riskgate/internal/riskgate/combine"
	gatemetrics "riskgate/internal/riskgate/metrics"
	"riskgate/internal/riskgate/precheck"
	auditstore "riskgate/internal/riskgate/store/audit"
	dErrors "riskgate/pkg/domain-errors"
	"riskgate/pkg/platform/audit"
	pstrings "riskgate/pkg/platform/strings"
	"riskgate/pkg/requestcontext"
)

// ProposalStore is the slice of the proposal store the gate needs.
type ProposalStore interface {
	Get(ctx context.Context, id string) (proposal.Proposal, error)
	UpdateStatus(ctx context.Context, id string, status proposal.Status) error
}

// EventPublisher emits operational audit events (who did what). The
// evaluation evidence itself lives in the risk audit records.
type EventPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// DefaultOverrideRoles may bypass a blocking gate decision.
var DefaultOverrideRoles = []string{"admin", "ceo", "manager", "approver", "finance"}

// Config is the gate policy surface.
type Config struct {
	Policy         combine.Policy
	OverrideRoles  []string
	ForbiddenTerms []string
}

// Service runs the release gate pipeline.
type Service struct {
	proposals ProposalStore
	records   auditstore.Store
	assessor  assessor.Assessor
	events    EventPublisher
	status    *cache.StatusCache
	metrics   *gatemetrics.Metrics
	logger    *slog.Logger
	cfg       Config
}

func New(
	proposals ProposalStore,
	records auditstore.Store,
	riskAssessor assessor.Assessor,
	events EventPublisher,
	status *cache.StatusCache,
	metrics *gatemetrics.Metrics,
	logger *slog.Logger,
	cfg Config,
) *Service {
	cfg.OverrideRoles = pstrings.DedupeAndTrimLower(cfg.OverrideRoles)
	if len(cfg.OverrideRoles) == 0 {
		cfg.OverrideRoles = DefaultOverrideRoles
	}
	cfg.ForbiddenTerms = pstrings.DedupeAndTrimLower(cfg.ForbiddenTerms)
	cfg.Policy = cfg.Policy.Normalize()
	return &Service{
		proposals: proposals,
		records:   records,
		assessor:  riskAssessor,
		events:    events,
		status:    status,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// AnalyzeResult is the outcome of one analyze run. HardBlocked distinguishes
// a precheck safety block (HTTP 400) from an ordinary blocking decision
// (HTTP 200 with can_release=false).
type AnalyzeResult struct {
	Record       riskgate.RiskAuditRecord
	HardBlocked  bool
	BlockReasons []string
}

// Analyze runs the full gate pipeline for a proposal and appends exactly one
// audit record on success. Upstream assessor failures append nothing: a
// partial audit entry would be ambiguous evidence.
func (s *Service) Analyze(ctx context.Context, proposalID string) (AnalyzeResult, error) {
	if strings.TrimSpace(proposalID) == "" {
		return AnalyzeResult{}, dErrors.New(dErrors.CodeValidation, "proposal_id is required")
	}

	// Gather the proposal and the prior gate outcome concurrently; the prior
	// record is context for logging re-evaluations and may be absent.
	var (
		p     proposal.Proposal
		prior *riskgate.RiskAuditRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p, err = s.proposals.Get(gctx, proposalID)
		return err
	})
	g.Go(func() error {
		rec, err := s.records.Latest(gctx, proposalID)
		if err != nil {
			if dErrors.Is(err, dErrors.CodeNotFound) {
				return nil
			}
			return err
		}
		prior = &rec
		return nil
	})
	if err := g.Wait(); err != nil {
		return AnalyzeResult{}, err
	}
	if prior != nil {
		s.logger.InfoContext(ctx, "re-evaluating proposal",
			"proposal_id", proposalID,
			"prior_run_id", prior.ID,
			"prior_decision", prior.DecisionAction,
		)
	}

	run := newRun()
	pre := precheck.Run(p, precheck.Options{ForbiddenTerms: s.cfg.ForbiddenTerms})
	if err := run.transition(StatePrechecked); err != nil {
		return AnalyzeResult{}, err
	}

	var ai *riskgate.AISummary
	if pre.HardBlock {
		if err := run.transition(StateBlockedByPrecheck); err != nil {
			return AnalyzeResult{}, err
		}
		s.metrics.ObservePrecheckBlock()
	} else {
		start := time.Now()
		summary, err := s.assessor.Assess(ctx, p)
		s.metrics.ObserveAssessor(start, err != nil)
		if err != nil {
			s.logger.ErrorContext(ctx, "risk assessor failed",
				"proposal_id", proposalID,
				"error", err,
			)
			return AnalyzeResult{}, err
		}
		ai = &summary
		if err := run.transition(StateAIAssessed); err != nil {
			return AnalyzeResult{}, err
		}
	}

	combined := combine.Combine(pre, ai, s.cfg.Policy)
	if err := run.transition(StateCombined); err != nil {
		return AnalyzeResult{}, err
	}

	action := riskgate.ActionBlocked
	finalState := StateBlocked
	if combined.CanRelease {
		action = riskgate.ActionReleased
		finalState = StateReleased
	}
	if err := run.transition(finalState); err != nil {
		return AnalyzeResult{}, err
	}

	rec := riskgate.RiskAuditRecord{
		ProposalID:       proposalID,
		TriggeredBy:      triggeredBy(ctx),
		PrecheckSummary:  pre,
		AISummary:        ai,
		CombinedSummary:  combined,
		OverallRiskLevel: combined.OverallRiskLevel,
		RiskScore:        combined.RiskScore,
		CanRelease:       combined.CanRelease,
		DecisionAction:   action,
	}
	if ai != nil {
		rec.ModelUsed = ai.ModelUsed
	}

	stored, err := s.records.Record(ctx, rec)
	if err != nil {
		return AnalyzeResult{}, err
	}

	s.finishDecision(ctx, stored, pre)
	s.metrics.ObserveAnalyze(string(action))

	return AnalyzeResult{
		Record:       stored,
		HardBlocked:  pre.HardBlock,
		BlockReasons: pre.BlockReasons,
	}, nil
}

// Override appends a new audit record releasing a previously blocked run.
// The blocked record itself is never modified.
func (s *Service) Override(ctx context.Context, runID int64, reason string) (riskgate.RiskAuditRecord, error) {
	actor := requestcontext.Actor(ctx)
	role := requestcontext.Role(ctx)

	if runID <= 0 {
		return riskgate.RiskAuditRecord{}, dErrors.New(dErrors.CodeValidation, "run_id is required")
	}
	if strings.TrimSpace(reason) == "" {
		return riskgate.RiskAuditRecord{}, dErrors.New(dErrors.CodeValidation, "override_reason is required")
	}

	if !s.roleAllowed(role) {
		s.metrics.ObserveOverride("forbidden")
		s.emitEvent(ctx, audit.Event{
			RunID:     runID,
			Actor:     actor,
			Action:    string(audit.EventOverrideRejected),
			Reason:    "role_not_permitted",
			IP:        requestcontext.ClientIP(ctx),
			UserAgent: requestcontext.UserAgent(ctx),
			RequestID: requestcontext.RequestID(ctx),
		})
		return riskgate.RiskAuditRecord{}, dErrors.New(dErrors.CodeForbidden, "role is not permitted to override")
	}

	prior, err := s.records.GetByID(ctx, runID)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			s.metrics.ObserveOverride("not_found")
		}
		return riskgate.RiskAuditRecord{}, err
	}
	if prior.DecisionAction == riskgate.ActionOverridden {
		return riskgate.RiskAuditRecord{}, dErrors.New(dErrors.CodeConflict, "run has already been overridden")
	}
	if prior.CanRelease {
		return riskgate.RiskAuditRecord{}, dErrors.New(dErrors.CodeConflict, "run is not blocked")
	}

	run := &run{state: StateBlocked}
	if err := run.transition(StateOverriddenReleased); err != nil {
		return riskgate.RiskAuditRecord{}, err
	}

	rec := riskgate.RiskAuditRecord{
		ProposalID:       prior.ProposalID,
		TriggeredBy:      actor,
		ModelUsed:        prior.ModelUsed,
		PrecheckSummary:  prior.PrecheckSummary,
		AISummary:        prior.AISummary,
		CombinedSummary:  prior.CombinedSummary,
		OverallRiskLevel: prior.OverallRiskLevel,
		RiskScore:        prior.RiskScore,
		CanRelease:       true,
		DecisionAction:   riskgate.ActionOverridden,
		OverrideApplied:  true,
		OverrideReason:   reason,
		OverrideBy:       actor,
	}

	stored, err := s.records.Record(ctx, rec)
	if err != nil {
		return riskgate.RiskAuditRecord{}, err
	}

	if err := s.proposals.UpdateStatus(ctx, stored.ProposalID, proposal.StatusReleased); err != nil {
		s.logger.WarnContext(ctx, "proposal status update failed after override",
			"proposal_id", stored.ProposalID,
			"error", err,
		)
	}
	s.refreshStatus(ctx, stored)
	s.emitEvent(ctx, audit.Event{
		ProposalID: stored.ProposalID,
		RunID:      stored.ID,
		Actor:      actor,
		Action:     string(audit.EventGateOverridden),
		Decision:   string(riskgate.ActionOverridden),
		Reason:     "override_applied",
		IP:         requestcontext.ClientIP(ctx),
		UserAgent:  requestcontext.UserAgent(ctx),
		RequestID:  requestcontext.RequestID(ctx),
	})
	s.metrics.ObserveOverride("applied")

	return stored, nil
}

// Latest returns the most recent audit record for a proposal.
func (s *Service) Latest(ctx context.Context, proposalID string) (riskgate.RiskAuditRecord, error) {
	return s.records.Latest(ctx, proposalID)
}

// Status returns the latest gate status, read through the cache.
func (s *Service) Status(ctx context.Context, proposalID string) (cache.GateStatus, error) {
	if status, ok := s.status.Get(ctx, proposalID); ok {
		s.metrics.ObserveCache(true)
		return status, nil
	}
	s.metrics.ObserveCache(false)

	rec, err := s.records.Latest(ctx, proposalID)
	if err != nil {
		return cache.GateStatus{}, err
	}
	status := cache.FromRecord(rec)
	if err := s.status.Set(ctx, status); err != nil {
		s.logger.WarnContext(ctx, "gate status cache set failed",
			"proposal_id", proposalID,
			"error", err,
		)
	}
	return status, nil
}

// finishDecision applies the post-record side effects of an analyze run:
// proposal status, cache refresh, audit events.
func (s *Service) finishDecision(ctx context.Context, rec riskgate.RiskAuditRecord, pre riskgate.PrecheckSummary) {
	newStatus := proposal.StatusBlocked
	if rec.CanRelease {
		newStatus = proposal.StatusReleased
	}
	if err := s.proposals.UpdateStatus(ctx, rec.ProposalID, newStatus); err != nil {
		s.logger.WarnContext(ctx, "proposal status update failed after analyze",
			"proposal_id", rec.ProposalID,
			"error", err,
		)
	}
	s.refreshStatus(ctx, rec)

	base := audit.Event{
		ProposalID: rec.ProposalID,
		RunID:      rec.ID,
		Actor:      triggeredBy(ctx),
		Decision:   string(rec.DecisionAction),
		IP:         requestcontext.ClientIP(ctx),
		UserAgent:  requestcontext.UserAgent(ctx),
		RequestID:  requestcontext.RequestID(ctx),
	}

	analyzed := base
	analyzed.Action = string(audit.EventGateAnalyzed)
	s.emitEvent(ctx, analyzed)

	if pre.HardBlock {
		blocked := base
		blocked.Action = string(audit.EventPrecheckHardBlocked)
		blocked.Reason = strings.Join(pre.BlockReasons, ",")
		s.emitEvent(ctx, blocked)
		return
	}

	decision := base
	if rec.CanRelease {
		decision.Action = string(audit.EventGateReleased)
	} else {
		decision.Action = string(audit.EventGateBlocked)
	}
	s.emitEvent(ctx, decision)
}

func (s *Service) refreshStatus(ctx context.Context, rec riskgate.RiskAuditRecord) {
	if err := s.status.Set(ctx, cache.FromRecord(rec)); err != nil {
		s.logger.WarnContext(ctx, "gate status cache refresh failed",
			"proposal_id", rec.ProposalID,
			"error", err,
		)
	}
}

func (s *Service) emitEvent(ctx context.Context, event audit.Event) {
	if err := s.events.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit event emit failed",
			"action", event.Action,
			"proposal_id", event.ProposalID,
			"error", err,
		)
	}
}

func (s *Service) roleAllowed(role string) bool {
	normalized := strings.ToLower(strings.TrimSpace(role))
	if normalized == "" {
		return false
	}
	// OverrideRoles are lowercased at construction.
	for _, allowed := range s.cfg.OverrideRoles {
		if normalized == allowed {
			return true
		}
	}
	return false
}

// triggeredBy resolves the requesting identity, defaulting to "system" for
// non-interactive triggers.
func triggeredBy(ctx context.Context) string {
	if actor := requestcontext.Actor(ctx); actor != "" {
		return actor
	}
	return "system"
}
