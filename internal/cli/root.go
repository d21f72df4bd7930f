package cli

import (
	"github.com/spf13/cobra"

	"github.com/khanglvm/tripsense/internal/version"
)

// NewRootCmd assembles the tripsense command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tripsense",
		Short: "Semantic destination search and recommendations",
		Long: `tripsense ranks travel destinations against free-text queries, extracts
sentiment and keywords from reviews, and blends a user's likes, reviews and
tags into recommendations.

Destinations come from a JSON snapshot or a TripAdvisor CSV export (--data).
User likes and reviews come from an activity file (--activity).

Optional NLP backends (an embedding service, a sentiment model, a dependency
parser) are configured in tripsense.yaml; without them tripsense falls back
to lexical similarity and a sentiment lexicon.`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	opts := BindGlobalFlags(rootCmd)

	rootCmd.AddCommand(NewSearchCmd(opts))
	rootCmd.AddCommand(NewAnalyzeCmd(opts))
	rootCmd.AddCommand(NewRecommendCmd(opts))
	rootCmd.AddCommand(NewPopularCmd(opts))
	rootCmd.AddCommand(NewNearbyCmd(opts))
	rootCmd.AddCommand(NewTagCmd(opts))
	rootCmd.AddCommand(NewServeCmd(opts))
	rootCmd.AddCommand(NewBenchmarkCmd(opts))
	rootCmd.AddCommand(NewExportCmd(opts))
	rootCmd.AddCommand(NewHistoryCmd(opts))
	rootCmd.AddCommand(NewConfigCmd(opts))
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}
