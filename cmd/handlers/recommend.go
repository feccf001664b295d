package handlers

import (
	"fmt"

	"appscout/internal/config"
	"appscout/internal/core"
	"appscout/internal/pipeline"
	"appscout/internal/render"

	"github.com/spf13/cobra"
)

// NewRecommendCmd creates the recommend command
func NewRecommendCmd() *cobra.Command {
	var (
		scoresFile   string
		analysesFile string
		country      string
		noEnrich     bool
		output       string
		format       string
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Write build recommendations from gap analyses",
		Long: `Turn gap analyses into one recommendation per cluster, sorted by
opportunity score. Clusters without an analysis are skipped.

Examples:
  appscout recommend --scores scores.json --analyses gaps.json
  appscout recommend -s scores.json -a gaps.json --format json
  appscout recommend -s scores.json -a gaps.json --country gb`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			var scores []core.ClusterScore
			if err := readJSONFile(scoresFile, &scores); err != nil {
				return err
			}
			var analyses []core.GapAnalysis
			if err := readJSONFile(analysesFile, &analyses); err != nil {
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

			recs, err := engines.Recommend.GenerateRecommendations(ctx, scores, analyses, country)
			if err != nil {
				return err
			}

			if output != "" || format == formatJSON {
				return writeJSONFile(cmd.OutOrStdout(), output, recs)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.NewTerminal(0).Recommendations(recs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&scoresFile, "scores", "s", "", "JSON file of scored clusters (required)")
	cmd.Flags().StringVarP(&analysesFile, "analyses", "a", "", "JSON file of gap analyses (required)")
	cmd.Flags().StringVar(&country, "country", "", "Storefront country for enrichment (default from config)")
	cmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "Skip review, forum and website enrichment")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write recommendations as JSON to this file")
	cmd.Flags().StringVar(&format, "format", formatText, "Output format: text or json")
	_ = cmd.MarkFlagRequired("scores")
	_ = cmd.MarkFlagRequired("analyses")

	return cmd
}
