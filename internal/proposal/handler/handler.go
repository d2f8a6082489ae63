// Package handler exposes proposal CRUD over HTTP. Deliberately minimal: the
// interesting surface is the risk gate, proposals exist so the gate has
// something to evaluate.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"riskgate/internal/proposal"
	"riskgate/pkg/platform/httputil"
	"riskgate/pkg/requestcontext"
)

// Service defines the proposal operations the handler needs.
type Service interface {
	Create(ctx context.Context, in proposal.CreateInput) (proposal.Proposal, error)
	Get(ctx context.Context, id string) (proposal.Proposal, error)
}

// Handler handles proposal endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the proposal routes. Auth and the shared middleware chain
// are applied by the parent router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/proposals", h.handleCreate)
	r.Get("/api/proposals/{id}", h.handleGet)
}

type createRequest struct {
	Title      string            `json:"title"`
	ClientName string            `json:"client_name"`
	Status     string            `json:"status,omitempty"`
	Sections   map[string]string `json:"sections"`
}

type proposalResponse struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	ClientName string            `json:"client_name"`
	Status     string            `json:"status"`
	Sections   map[string]string `json:"sections"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func toResponse(p proposal.Proposal) proposalResponse {
	return proposalResponse{
		ID:         p.ID,
		Title:      p.Title,
		ClientName: p.ClientName,
		Status:     string(p.Status),
		Sections:   p.Sections,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[createRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	p, err := h.service.Create(ctx, proposal.CreateInput{
		Title:      req.Title,
		ClientName: req.ClientName,
		Status:     req.Status,
		Sections:   req.Sections,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create proposal failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toResponse(p))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	p, err := h.service.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(p))
}
