// Package httpapi assembles the root router: shared middleware chain,
// authenticated API routes, and the operational endpoints.
package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"riskgate/internal/platform/metrics"
	"riskgate/internal/platform/middleware"
	platformredis "riskgate/internal/platform/redis"
	proposalhandler "riskgate/internal/proposal/handler"
	gatehandler "riskgate/internal/riskgate/handler"
)

// Deps carries everything the router mounts.
type Deps struct {
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	TokenAuth    middleware.TokenValidator
	GateHandler  *gatehandler.Handler
	ProposalAPI  *proposalhandler.Handler
	DB           *sql.DB               // nil in memory-only deployments
	Redis        *platformredis.Client // nil when Redis is not configured
	RouteTimeout time.Duration
}

// NewRouter wires the middleware chain and all endpoints.
func NewRouter(d Deps) http.Handler {
	timeout := d.RouteTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	root := chi.NewRouter()
	root.Use(middleware.Recovery(d.Logger))
	root.Use(middleware.RequestID)
	root.Use(middleware.ClientMetadata)
	root.Use(middleware.Logger(d.Logger))
	root.Use(middleware.Latency(d.Metrics))

	// Operational endpoints stay outside auth.
	root.Handle("/metrics", promhttp.Handler())
	root.Get("/healthz", healthHandler(d))

	root.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(timeout))
		api.Use(middleware.ContentTypeJSON)
		api.Use(middleware.RequireAuth(d.TokenAuth, d.Logger))
		d.GateHandler.Register(api)
		d.ProposalAPI.Register(api)
	})

	return root
}

func healthHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if d.DB != nil {
			if err := d.DB.PingContext(ctx); err != nil {
				d.Logger.WarnContext(ctx, "health check: postgres unreachable", "error", err)
				writeHealth(w, http.StatusServiceUnavailable, "degraded")
				return
			}
		}
		if d.Redis != nil {
			if err := d.Redis.Health(ctx); err != nil {
				d.Logger.WarnContext(ctx, "health check: redis unreachable", "error", err)
				writeHealth(w, http.StatusServiceUnavailable, "degraded")
				return
			}
		}
		writeHealth(w, http.StatusOK, "ok")
	}
}

func writeHealth(w http.ResponseWriter, status int, state string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"status":"` + state + `"}`))
}
