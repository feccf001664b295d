package handlers

import (
	"fmt"
	"strings"

	"appscout/internal/clustering"
	"appscout/internal/core"

	"github.com/spf13/cobra"
)

// NewEditCmd creates the edit command group. Each subcommand rewrites a
// clusters JSON file in place unless --output is given.
func NewEditCmd() *cobra.Command {
	var (
		clustersFile string
		output       string
	)

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Merge, split, rename or remove clusters in a clusters file",
	}
	cmd.PersistentFlags().StringVarP(&clustersFile, "file", "f", "clusters.json", "Clusters JSON file")
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Write the result here instead of updating --file")

	// edit loads the clusters, applies fn and writes them back.
	edit := func(cmd *cobra.Command, fn func([]core.Cluster) ([]core.Cluster, error)) error {
		var clusters []core.Cluster
		if err := readJSONFile(clustersFile, &clusters); err != nil {
			return err
		}
		updated, err := fn(clusters)
		if err != nil {
			return err
		}
		dest := output
		if dest == "" {
			dest = clustersFile
		}
		if err := writeJSONFile(cmd.OutOrStdout(), dest, updated); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d clusters written to %s\n", len(updated), dest)
		return nil
	}

	var mergeName string
	merge := &cobra.Command{
		Use:   "merge <cluster-id> <cluster-id>",
		Short: "Merge two clusters into a new one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return edit(cmd, func(clusters []core.Cluster) ([]core.Cluster, error) {
				a, err := lookup(clusters, args[0])
				if err != nil {
					return nil, err
				}
				b, err := lookup(clusters, args[1])
				if err != nil {
					return nil, err
				}
				name := mergeName
				if name == "" {
					name = a.Name + " + " + b.Name
				}
				merged := clustering.Merge(a, b, name)
				clusters = clustering.Remove(clustering.Remove(clusters, a.ID), b.ID)
				return append(clusters, merged), nil
			})
		},
	}
	merge.Flags().StringVar(&mergeName, "name", "", "Name of the merged cluster (default joins both names)")

	var (
		splitName     string
		splitKeywords []string
	)
	split := &cobra.Command{
		Use:   "split <cluster-id>",
		Short: "Move some keywords of a cluster into a new cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(splitKeywords) == 0 {
				return fmt.Errorf("--keywords is required")
			}
			return edit(cmd, func(clusters []core.Cluster) ([]core.Cluster, error) {
				c, err := lookup(clusters, args[0])
				if err != nil {
					return nil, err
				}
				original, extracted := clustering.Split(c, splitKeywords, splitName)
				out := make([]core.Cluster, 0, len(clusters)+1)
				for _, existing := range clusters {
					if existing.ID == original.ID {
						existing = original
					}
					out = append(out, existing)
				}
				return append(out, extracted), nil
			})
		},
	}
	split.Flags().StringVar(&splitName, "name", "", "Name of the new cluster (required)")
	split.Flags().StringSliceVar(&splitKeywords, "keywords", nil, "Comma-separated keywords to move")
	_ = split.MarkFlagRequired("name")

	rename := &cobra.Command{
		Use:   "rename <cluster-id> <name...>",
		Short: "Rename a cluster",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args[1:], " ")
			return edit(cmd, func(clusters []core.Cluster) ([]core.Cluster, error) {
				if _, err := lookup(clusters, args[0]); err != nil {
					return nil, err
				}
				for i := range clusters {
					if clusters[i].ID == args[0] {
						clusters[i] = clustering.Rename(clusters[i], name)
					}
				}
				return clusters, nil
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <cluster-id>",
		Short: "Remove a cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return edit(cmd, func(clusters []core.Cluster) ([]core.Cluster, error) {
				if _, err := lookup(clusters, args[0]); err != nil {
					return nil, err
				}
				return clustering.Remove(clusters, args[0]), nil
			})
		},
	}

	cmd.AddCommand(merge, split, rename, remove)
	return cmd
}

func lookup(clusters []core.Cluster, id string) (core.Cluster, error) {
	c, ok := clustering.Find(clusters, id)
	if !ok {
		return core.Cluster{}, fmt.Errorf("cluster %s not found", id)
	}
	return c, nil
}
