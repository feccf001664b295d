package handlers

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"appscout/internal/config"
	"appscout/internal/render"
	"appscout/internal/store"

	"github.com/spf13/cobra"
)

// NewSessionsCmd creates the sessions command group
func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect saved research sessions",
	}

	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsShowCmd())
	cmd.AddCommand(newSessionsReportCmd())
	cmd.AddCommand(newSessionsDeleteCmd())
	cmd.AddCommand(newSessionsCleanupCmd())

	return cmd
}

func openStore() (*store.Store, error) {
	s, err := store.NewStore(config.Get().Store.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	return s, nil
}

func newSessionsListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			summaries, err := s.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions found")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tCOUNTRY\tKEYWORDS\tCLUSTERS\tRECS\tUPDATED")
			for _, sum := range summaries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					sum.ID, sum.Status, sum.Country, sum.KeywordCount, sum.ClusterCount,
					sum.Recommendations, sum.UpdatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of sessions to list")
	return cmd
}

func newSessionsShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's analyses and recommendations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			session, err := s.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), session)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session %s (%s, %s)\n", session.ID, session.Status, session.Country)
			if session.Error != "" {
				fmt.Fprintf(out, "Error: %s\n", session.Error)
			}
			term := render.NewTerminal(0)
			fmt.Fprintln(out, term.Clusters(session.Clusters))
			fmt.Fprintln(out, term.GapAnalyses(session.GapAnalyses))
			fmt.Fprintln(out, term.Recommendations(session.Recommendations))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", formatText, "Output format: text or json")
	return cmd
}

func newSessionsReportCmd() *cobra.Command {
	var (
		output string
		html   bool
	)

	cmd := &cobra.Command{
		Use:   "report <session-id>",
		Short: "Write a session report as markdown or HTML",
		Long: `Render a saved session as a markdown report, or as a standalone HTML page
with --html. Without --output the report is printed.

Examples:
  appscout sessions report 2f6c... > report.md
  appscout sessions report 2f6c... --html -o reports/2f6c.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			session, err := s.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			content := render.SessionReport(session)
			if html {
				content, err = render.HTMLPage("appscout session "+session.ID, content)
				if err != nil {
					return err
				}
			}

			if output == "" {
				fmt.Fprint(cmd.OutOrStdout(), content)
				return nil
			}
			path, err := render.WriteReportToFile(content, filepath.Dir(output), filepath.Base(output))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the report to this path")
	cmd.Flags().BoolVar(&html, "html", false, "Render HTML instead of markdown")
	return cmd
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
			return nil
		},
	}
}

func newSessionsCleanupCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete sessions not updated within --older-than",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.CleanupOld(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d sessions\n", n)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age threshold")
	return cmd
}
