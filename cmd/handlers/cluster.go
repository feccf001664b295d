package handlers

import (
	"fmt"

	"appscout/internal/config"
	"appscout/internal/pipeline"
	"appscout/internal/render"

	"github.com/spf13/cobra"
)

// NewClusterCmd creates the cluster command
func NewClusterCmd() *cobra.Command {
	var (
		keywordsFile string
		output       string
		format       string
	)

	cmd := &cobra.Command{
		Use:   "cluster [keyword...]",
		Short: "Group keywords into app concepts",
		Long: `Group discovered keywords into 5-8 clusters, each representing one app
concept. Keywords come from --file (one per line, or a JSON array of
discovered keywords) and from the arguments.

Examples:
  appscout cluster "habit tracker" "daily habits" "budget app"
  appscout cluster -f keywords.txt -o clusters.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			keywords, err := readKeywords(keywordsFile, args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			engines, err := pipeline.NewBuilder(config.Get()).WithoutEnrichment().Engines(ctx)
			if err != nil {
				return err
			}

			clusters, err := engines.Clustering.ClusterKeywords(ctx, keywords)
			if err != nil {
				return err
			}

			if output != "" || format == formatJSON {
				return writeJSONFile(cmd.OutOrStdout(), output, clusters)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.NewTerminal(0).Clusters(clusters))
			return nil
		},
	}

	cmd.Flags().StringVarP(&keywordsFile, "file", "f", "", "Keywords file (.txt one per line, or .json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write clusters as JSON to this file")
	cmd.Flags().StringVar(&format, "format", formatText, "Output format: text or json")

	return cmd
}
