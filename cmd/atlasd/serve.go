package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/atlasd/internal/capability"
	"github.com/fyrsmithlabs/atlasd/internal/config"
	"github.com/fyrsmithlabs/atlasd/internal/httpapi"
	"github.com/fyrsmithlabs/atlasd/internal/logging"
	"github.com/fyrsmithlabs/atlasd/internal/orchestrator"
	"github.com/fyrsmithlabs/atlasd/internal/retrieval"
	"github.com/fyrsmithlabs/atlasd/internal/router"
	"github.com/fyrsmithlabs/atlasd/internal/store"
	"github.com/fyrsmithlabs/atlasd/internal/telemetry"
	"github.com/fyrsmithlabs/atlasd/internal/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the atlasd HTTP server",
	Long: `Start the atlasd HTTP server.

Endpoints:
  POST /api/v1/ask     answer a question
  GET  /api/v1/tools   list the registered tools
  GET  /health         liveness check
  GET  /metrics        Prometheus metrics`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	srv, err := httpapi.NewServer(app.orch, app.registry, app.logger.Named("http"), app.cfg.Server)
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Warn("http shutdown incomplete", zap.Error(err))
	}
	return nil
}

// app holds the wired process-scoped components. Everything is constructed
// once at startup and reused read-only for the process lifetime.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *store.Store
	vectors   retrieval.Store
	orch      *orchestrator.Orchestrator
	registry  *tools.Registry
	telemetry *telemetry.Provider
}

// bootstrap loads config and wires every component the orchestrator needs.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.Setup(ctx, cfg.Telemetry, logger.Named("telemetry"))
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.Store, logger.Named("store"))
	if err != nil {
		return nil, err
	}

	embedder, err := retrieval.NewEmbedder(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	vectors, err := retrieval.NewStore(cfg.Retrieval, embedder, logger.Named("retrieval"))
	if err != nil {
		return nil, err
	}
	svc, err := retrieval.NewService(vectors, cfg.Retrieval, logger.Named("retrieval"))
	if err != nil {
		return nil, err
	}

	registry := tools.NewRegistry(db, logger.Named("tools"))

	client, err := capability.New(cfg.LLM, logger.Named("capability"))
	if err != nil {
		return nil, err
	}

	orch := orchestrator.New(
		router.New(cfg.Store.MaxRows),
		registry,
		db,
		svc,
		client,
		logger.Named("orchestrator"),
	)

	logger.Info("atlasd ready",
		zap.String("store", cfg.Store.Path),
		zap.String("retrieval", cfg.Retrieval.Provider),
		zap.String("llm", cfg.LLM.Provider),
	)
	return &app{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		vectors:   vectors,
		orch:      orch,
		registry:  registry,
		telemetry: tel,
	}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.vectors.Close(); err != nil {
		a.logger.Warn("closing vector store", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("closing occupancy store", zap.Error(err))
	}
	_ = a.telemetry.Shutdown(ctx)
	_ = a.logger.Sync()
}
