package handlers

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"appscout/internal/config"
	"appscout/internal/core"
	"appscout/internal/logger"
	"appscout/internal/pipeline"
	"appscout/internal/render"
	"appscout/internal/store"

	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	var (
		keywordsFile string
		scoresFile   string
		country      string
		topN         int
		noEnrich     bool
		reportPath   string
	)

	cmd := &cobra.Command{
		Use:   "run [keyword...]",
		Short: "Run a full research session",
		Long: `Cluster the keywords, score the clusters from --scores, analyze the top
clusters and write recommendations. The session is saved after every
stage and can be inspected with "appscout sessions".

--scores is a JSON array of {name, competitionGap, marketDemand,
revenuePotential, trendMomentum, executionFeasibility, opportunityScore}
matched to clusters by name. Clusters without a score are dropped.

Examples:
  appscout run -f keywords.txt --scores scores.json
  appscout run -f keywords.json --scores scores.json --report reports/session.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()

			keywords, err := readKeywords(keywordsFile, args)
			if err != nil {
				return err
			}
			scorer, err := pipeline.LoadScores(scoresFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

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
			if country == "" {
				country = engines.Country
			}
			if topN <= 0 {
				topN = engines.TopN
			}

			session := core.NewSession(country, keywords)
			logger.Info("Starting research session", "session_id", session.ID, "keywords", len(keywords), "country", country)

			stats, err := runner.Run(ctx, session, scorer, topN)
			if err != nil {
				return fmt.Errorf("session %s failed: %w", session.ID, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, render.NewTerminal(0).Recommendations(session.Recommendations))
			fmt.Fprintf(out, "Session %s: %d clusters, %d analyzed (%d degraded), %d recommendations (%d fallback) in %s\n",
				session.ID, stats.Clusters, stats.Analyzed, stats.DegradedGaps,
				stats.Recommendations, stats.Fallbacks, stats.ProcessingTime.Round(time.Millisecond))

			if reportPath != "" {
				path, err := render.WriteReportToFile(render.SessionReport(session), filepath.Dir(reportPath), filepath.Base(reportPath))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Report written to %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&keywordsFile, "file", "f", "", "Keywords file (.txt one per line, or .json)")
	cmd.Flags().StringVarP(&scoresFile, "scores", "s", "", "JSON score table keyed by cluster name (required)")
	cmd.Flags().StringVar(&country, "country", "", "Storefront country code (default from config)")
	cmd.Flags().IntVarP(&topN, "top", "n", 0, "Number of top clusters to analyze (default from config)")
	cmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "Skip enrichment")
	cmd.Flags().StringVar(&reportPath, "report", "", "Also write a markdown report to this path")
	_ = cmd.MarkFlagRequired("scores")

	return cmd
}
