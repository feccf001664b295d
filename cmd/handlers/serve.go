package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"appscout/internal/config"
	"appscout/internal/logger"
	"appscout/internal/pipeline"
	"appscout/internal/server"
	"appscout/internal/store"

	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	var (
		port     int
		host     string
		noEnrich bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API that exposes clustering, cluster edits, gap analysis,
recommendations and saved sessions.

Endpoints:
  GET  /health                                   Health check
  GET  /metrics                                  Prometheus metrics
  POST /api/clusters                             Cluster keywords
  POST /api/clusters/{merge,split,rename,remove} Edit clusters
  POST /api/gap-analyses                         Analyze clusters
  POST /api/recommendations                      Write recommendations
  GET  /api/sessions                             List sessions
  POST /api/sessions                             Run a session
  GET  /api/sessions/{id}                        Get a session
  GET  /api/sessions/{id}/report                 Session report (HTML)
  POST /api/sessions/{id}/clusters/{cid}/reanalyze Re-run one cluster

Examples:
  appscout serve
  appscout serve --port 9090 --host 0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host, noEnrich)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Server port (overrides config)")
	cmd.Flags().StringVar(&host, "host", "", "Server host (overrides config)")
	cmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "Skip enrichment")

	return cmd
}

func runServe(ctx context.Context, port int, host string, noEnrich bool) error {
	cfg := config.Get()

	serverCfg := cfg.Server
	if port > 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	sessions, err := store.NewStore(cfg.Store.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer sessions.Close()

	builder := pipeline.NewBuilder(cfg).WithSaver(sessions)
	if noEnrich {
		builder = builder.WithoutEnrichment()
	}
	runner, engines, err := builder.Build(ctx)
	if err != nil {
		return err
	}

	srv := server.New(server.Deps{
		Clusterer:   engines.Clustering,
		Analyzer:    engines.Gap,
		Recommender: engines.Recommend,
		Runner:      runner,
		Sessions:    sessions,
		Country:     engines.Country,
		TopN:        engines.TopN,
	}, serverCfg)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on http://%s:%d", serverCfg.Host, serverCfg.Port))
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("Server shutdown initiated", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", err)
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		logger.Info("Server stopped successfully")
	}

	return nil
}
