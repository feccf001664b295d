package handlers

import (
	"fmt"

	"appscout/internal/config"
	"appscout/internal/core"
	"appscout/internal/pipeline"
	"appscout/internal/render"

	"github.com/spf13/cobra"
)

// NewAnalyzeCmd creates the analyze command
func NewAnalyzeCmd() *cobra.Command {
	var (
		scoresFile string
		clusterID  string
		country    string
		topN       int
		noEnrich   bool
		output     string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze the competitive gaps of scored clusters",
		Long: `Fetch the leading App Store apps for each cluster and ask the model what
they do, what users complain about and what nobody offers yet.

--scores is a JSON array of scored clusters. By default the highest
scoring clusters are analyzed; --cluster analyzes a single one.

Examples:
  appscout analyze --scores scores.json --top 3 -o gaps.json
  appscout analyze --scores scores.json --cluster 2f6c... --country gb`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			var scores []core.ClusterScore
			if err := readJSONFile(scoresFile, &scores); err != nil {
				return err
			}

			ctx := cmd.Context()
			builder := pipeline.NewBuilder(config.Get())
			if noEnrich {
				builder = builder.WithoutEnrichment()
			}
			engines, err := builder.Engines(ctx)
			if err != nil {
				return err
			}
			if country == "" {
				country = engines.Country
			}
			if topN <= 0 {
				topN = engines.TopN
			}

			var analyses []core.GapAnalysis
			if clusterID != "" {
				score, ok := findScore(scores, clusterID)
				if !ok {
					return fmt.Errorf("cluster %s not found in %s", clusterID, scoresFile)
				}
				analyses = []core.GapAnalysis{engines.Gap.AnalyzeClusterGap(ctx, score, country)}
			} else {
				analyses, err = engines.Gap.AnalyzeTopClusters(ctx, scores, country, topN)
				if err != nil {
					return err
				}
			}

			if output != "" || format == formatJSON {
				return writeJSONFile(cmd.OutOrStdout(), output, analyses)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.NewTerminal(0).GapAnalyses(analyses))
			return nil
		},
	}

	cmd.Flags().StringVarP(&scoresFile, "scores", "s", "", "JSON file of scored clusters (required)")
	cmd.Flags().StringVar(&clusterID, "cluster", "", "Analyze only this cluster id")
	cmd.Flags().StringVar(&country, "country", "", "Storefront country code (default from config)")
	cmd.Flags().IntVarP(&topN, "top", "n", 0, "Number of top clusters to analyze (default from config)")
	cmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "Skip review and forum enrichment")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write analyses as JSON to this file")
	cmd.Flags().StringVar(&format, "format", formatText, "Output format: text or json")
	_ = cmd.MarkFlagRequired("scores")

	return cmd
}

func findScore(scores []core.ClusterScore, id string) (core.ClusterScore, bool) {
	for _, s := range scores {
		if s.ID == id {
			return s, true
		}
	}
	return core.ClusterScore{}, false
}
