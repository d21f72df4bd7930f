package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/tripsense/internal/app"
	"github.com/khanglvm/tripsense/internal/search"
)

// NewSearchCmd creates the 'search' command.
func NewSearchCmd(opts *Options) *cobra.Command {
	var limit int
	var retry bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search destinations by meaning",
		Long: `Rank every destination in the snapshot against a free-text query.

Queries of one or two words boost city, country and name matches and drop
results scoring below search.short_query_min_score. Longer queries are scored
on similarity alone. Results are cached per (query, limit); --retry skips the
cache entry.

The limit is clamped to 5-200.`,
		Example: `  tripsense search "quiet beach in spain" --data destinations.json
  tripsense search paris --limit 50 --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			a, err := opts.OpenApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			limit := app.ClampLimit(limit)
			results, err := a.Search(cmd.Context(), query, limit, retry)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			if opts.JSON {
				return printJSON(cmd.OutOrStdout(), results)
			}
			printResults(cmd.OutOrStdout(), query, results)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", app.DefaultLimit, "Number of results")
	cmd.Flags().BoolVar(&retry, "retry", false, "Ignore cached results")

	return cmd
}

func printResults(w io.Writer, query string, results []search.Result) {
	if len(results) == 0 {
		fmt.Fprintf(w, "No destinations match %q.\n", query)
		return
	}

	fmt.Fprintf(w, "Results for %q (%d):\n\n", query, len(results))
	for i, r := range results {
		d := r.Destination
		place := strings.Trim(d.City+", "+d.Country, ", ")
		fmt.Fprintf(w, "%3d. %-40s %6.3f  %s\n", i+1, truncateText(d.Name, 40), r.Score, place)
	}
}
