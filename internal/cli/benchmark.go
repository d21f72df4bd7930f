package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/tripsense/internal/app"
	"github.com/khanglvm/tripsense/internal/benchmark"
)

// NewBenchmarkCmd creates the 'benchmark' command for search latency testing.
func NewBenchmarkCmd(opts *Options) *cobra.Command {
	var iterations int
	var limit int
	var queryFile string

	cmd := &cobra.Command{
		Use:     "benchmark",
		Aliases: []string{"bench"},
		Short:   "Measure cold vs cached search latency",
		Long: `Run each query once against an empty result cache, then repeat it
against the warm cache, and report both latencies.

Cold latency is dominated by similarity scoring over the whole snapshot and
grows with its size and with the embedding backend in use. Warm latency is a
cache lookup.`,
		Example: `  tripsense benchmark --data destinations.json
  tripsense benchmark --queries queries.txt --iterations 20 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			queries, err := readQueries(queryFile)
			if err != nil {
				return err
			}

			a, err := opts.OpenApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := benchmark.Run(cmd.Context(), a.Engine, a.Catalog.All(), queries, app.ClampLimit(limit), iterations)
			if err != nil {
				return err
			}

			if opts.JSON {
				return printJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Similarity backend: %s\n\n", a.Engine.Backend().Name())
			fmt.Fprint(cmd.OutOrStdout(), benchmark.FormatResult(result))
			return nil
		},
	}

	cmd.Flags().IntVarP(&iterations, "iterations", "i", benchmark.DefaultIterations, "Warm repetitions per query")
	cmd.Flags().IntVarP(&limit, "limit", "n", app.DefaultLimit, "Results per search")
	cmd.Flags().StringVarP(&queryFile, "queries", "q", "", "File with one query per line (default: built-in set)")

	return cmd
}

// readQueries returns the non-blank lines of path, or nil for an empty path.
func readQueries(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open queries: %w", err)
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if q := strings.TrimSpace(scanner.Text()); q != "" {
			queries = append(queries, q)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read queries: %w", err)
	}
	return queries, nil
}
