package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the 'history' command group.
func NewHistoryCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or prune recorded searches",
		Long: `Searches are recorded in SQLite when storage.enabled is true. Only a
SHA-256 hash of each query is kept, with its strategy, result count and
duration.`,
	}

	cmd.AddCommand(newHistoryListCmd(opts))
	cmd.AddCommand(newHistoryPruneCmd(opts))

	return cmd
}

func newHistoryListCmd(opts *Options) *cobra.Command {
	var since time.Duration
	var limit int

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent searches",
		Example: `  tripsense history list --since 2h
  tripsense history list --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.OpenAnalyzerApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			w := cmd.OutOrStdout()
			if !a.StorageEnabled() {
				fmt.Fprintln(w, "Search history is disabled. Set storage.enabled: true to record searches.")
				return nil
			}

			records, err := a.History(time.Now().Add(-since), limit)
			if err != nil {
				return err
			}
			if opts.JSON {
				return printJSON(w, records)
			}

			if len(records) == 0 {
				fmt.Fprintln(w, "No searches recorded in that window.")
				return nil
			}
			for _, r := range records {
				fmt.Fprintf(w, "%s  %-8s %4d/%-4d %6dms  %s\n",
					r.Timestamp.Local().Format(time.DateTime), r.Strategy, r.ResultsCount, r.Limit, r.DurationMs, shortHash(r.QueryHash))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "How far back to look")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum rows (0 = all)")

	return cmd
}

func newHistoryPruneCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete searches older than storage.retention",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.OpenAnalyzerApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.StorageEnabled() {
				fmt.Fprintln(cmd.OutOrStdout(), "Search history is disabled; nothing to prune.")
				return nil
			}
			if err := a.Prune(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned searches older than %s\n", a.Config.Storage.Retention)
			return nil
		},
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
