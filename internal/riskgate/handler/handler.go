// Package handler exposes the risk gate over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"riskgate/internal/riskgate"
	"riskgate/internal/riskgate/cache"
	"riskgate/internal/riskgate/service"
	"riskgate/pkg/platform/httputil"
	"riskgate/pkg/requestcontext"
)

// Service defines the gate operations the handler needs.
type Service interface {
	Analyze(ctx context.Context, proposalID string) (service.AnalyzeResult, error)
	Override(ctx context.Context, runID int64, reason string) (riskgate.RiskAuditRecord, error)
	Status(ctx context.Context, proposalID string) (cache.GateStatus, error)
}

// Handler handles the risk gate endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the gate routes. Auth and the shared middleware chain are
// applied by the parent router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/risk-gate/analyze", h.handleAnalyze)
	r.Post("/api/risk-gate/override", h.handleOverride)
	r.Get("/api/risk-gate/proposals/{id}/latest", h.handleLatest)
}

type analyzeRequest struct {
	ProposalID string `json:"proposal_id"`
}

type analyzeResponse struct {
	RunID            int64                   `json:"run_id"`
	OverallRiskLevel riskgate.RiskLevel      `json:"overall_risk_level"`
	RiskScore        int                     `json:"risk_score"`
	CanRelease       bool                    `json:"can_release"`
	DecisionAction   riskgate.DecisionAction `json:"decision_action"`
	Blocked          bool                    `json:"blocked,omitempty"`
	Reasons          []string                `json:"reasons,omitempty"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[analyzeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Analyze(ctx, req.ProposalID)
	if err != nil {
		h.logger.WarnContext(ctx, "analyze failed",
			"request_id", requestID,
			"proposal_id", req.ProposalID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	resp := analyzeResponse{
		RunID:            result.Record.ID,
		OverallRiskLevel: result.Record.OverallRiskLevel,
		RiskScore:        result.Record.RiskScore,
		CanRelease:       result.Record.CanRelease,
		DecisionAction:   result.Record.DecisionAction,
	}

	// A precheck safety block is a client error: the proposal content itself
	// must change before another attempt makes sense. The run is still
	// persisted for the audit trail, so the body carries its run_id.
	if result.HardBlocked {
		resp.Blocked = true
		resp.Reasons = result.BlockReasons
		httputil.WriteJSON(w, http.StatusBadRequest, resp)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

type overrideRequest struct {
	RunID          int64  `json:"run_id"`
	OverrideReason string `json:"override_reason"`
}

type overrideResponse struct {
	RunID          int64                   `json:"run_id"`
	ProposalID     string                  `json:"proposal_id"`
	DecisionAction riskgate.DecisionAction `json:"decision_action"`
	CanRelease     bool                    `json:"can_release"`
	OverrideBy     string                  `json:"override_by"`
	OverrideReason string                  `json:"override_reason"`
	CreatedAt      time.Time               `json:"created_at"`
}

func (h *Handler) handleOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[overrideRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.Override(ctx, req.RunID, req.OverrideReason)
	if err != nil {
		h.logger.WarnContext(ctx, "override failed",
			"request_id", requestID,
			"run_id", req.RunID,
			"actor", requestcontext.Actor(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, overrideResponse{
		RunID:          rec.ID,
		ProposalID:     rec.ProposalID,
		DecisionAction: rec.DecisionAction,
		CanRelease:     rec.CanRelease,
		OverrideBy:     rec.OverrideBy,
		OverrideReason: rec.OverrideReason,
		CreatedAt:      rec.CreatedAt,
	})
}

type statusResponse struct {
	RunID            int64                   `json:"run_id"`
	ProposalID       string                  `json:"proposal_id"`
	OverallRiskLevel riskgate.RiskLevel      `json:"overall_risk_level"`
	RiskScore        int                     `json:"risk_score"`
	CanRelease       bool                    `json:"can_release"`
	DecisionAction   riskgate.DecisionAction `json:"decision_action"`
	CreatedAt        time.Time               `json:"created_at"`
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	proposalID := chi.URLParam(r, "id")

	status, err := h.service.Status(ctx, proposalID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, statusResponse{
		RunID:            status.RunID,
		ProposalID:       status.ProposalID,
		OverallRiskLevel: status.OverallRiskLevel,
		RiskScore:        status.RiskScore,
		CanRelease:       status.CanRelease,
		DecisionAction:   status.DecisionAction,
		CreatedAt:        status.CreatedAt,
	})
}
