package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	httpapi "riskgate/internal/http"
	"riskgate/internal/jwtauth"
	"riskgate/internal/platform/config"
	"riskgate/internal/platform/httpserver"
	"riskgate/internal/platform/logger"
	platformmetrics "riskgate/internal/platform/metrics"
	platformredis "riskgate/internal/platform/redis"
	"riskgate/internal/proposal"
	proposalhandler "riskgate/internal/proposal/handler"
	"riskgate/internal/riskgate"
	"riskgate/internal/riskgate/assessor"
	"riskgate/internal/riskgate/cache"
	"riskgate/internal/riskgate/combine"
	gatehandler "riskgate/internal/riskgate/handler"
	gatemetrics "riskgate/internal/riskgate/metrics"
	"riskgate/internal/riskgate/service"
	auditstore "riskgate/internal/riskgate/store/audit"
	"riskgate/pkg/platform/audit"
	auditkafka "riskgate/pkg/platform/audit/kafka"
	auditmem "riskgate/pkg/platform/audit/store/memory"
	auditpg "riskgate/pkg/platform/audit/store/postgres"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal services packages; nothing here makes decisions.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres is optional in development; without it the service runs on
	// in-memory stores and loses state on restart.
	var db *sql.DB
	if cfg.Postgres.URL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		log.Info("connected to postgres")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	var redisClient *platformredis.Client
	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = platformredis.New(cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		log.Info("connected to redis")
	}

	var (
		proposals  proposal.Store
		records    auditstore.Store
		eventStore audit.Store
	)
	if db != nil {
		proposals = proposal.NewPostgresStore(db)
		records = auditstore.NewPostgresStore(db)
		eventStore = auditpg.New(db)
	} else {
		proposals = proposal.NewInMemoryStore()
		records = auditstore.NewInMemoryStore()
		eventStore = auditmem.New()
	}
	events := audit.NewPublisher(eventStore)

	// The outbox publisher needs both Postgres and Kafka; with either
	// missing, audit events stay local.
	if db != nil && len(cfg.Kafka.Brokers) > 0 {
		outbox, err := auditkafka.New(db, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return err
		}
		defer outbox.Close()
		go func() {
			if err := outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit outbox publisher stopped", "error", err)
			}
		}()
		log.Info("audit outbox publisher started", "topic", cfg.Kafka.Topic)
	}

	riskAssessor := assessor.New(assessor.Config{
		Provider: cfg.Assessor.Provider,
		BaseURL:  cfg.Assessor.BaseURL,
		APIKey:   cfg.Assessor.APIKey,
		Model:    cfg.Assessor.Model,
		Timeout:  cfg.Assessor.Timeout,
	}, log)

	statusCache := cache.New(redisClient, cfg.Gate.StatusCacheTTL)

	gateService := service.New(
		proposals,
		records,
		riskAssessor,
		events,
		statusCache,
		gatemetrics.New(),
		log,
		service.Config{
			Policy: combine.Policy{
				BlockingLevel: riskgate.RiskLevel(cfg.Gate.BlockingLevel),
				BlockingScore: cfg.Gate.BlockingScore,
			},
			OverrideRoles:  cfg.Gate.OverrideRoles,
			ForbiddenTerms: cfg.Gate.ForbiddenTerms,
		},
	)
	proposalService := proposal.NewService(proposals, events, log)

	jwtService := jwtauth.NewService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:      log,
		Metrics:     platformmetrics.New(),
		TokenAuth:   jwtauth.NewAdapter(jwtService),
		GateHandler: gatehandler.New(gateService, log),
		ProposalAPI: proposalhandler.New(proposalService, log),
		DB:          db,
		Redis:       redisClient,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting riskgate", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
