package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/tripsense/internal/review"
)

// NewAnalyzeCmd creates the 'analyze' command for review keyword extraction.
func NewAnalyzeCmd(opts *Options) *cobra.Command {
	var rating float64
	var file string

	cmd := &cobra.Command{
		Use:   "analyze [review text]",
		Short: "Extract sentiment and keywords from a review",
		Long: `Classify a review and split its keywords into positive and negative.

Words inside a negation window ("not clean", "wasn't friendly") are always
negative. A rating of 4-5 forces POSITIVE and 1-2 forces NEGATIVE; the
reported confidence is the classifier's either way.

Does not need a destination snapshot.`,
		Example: `  tripsense analyze "The room was not clean but the view was lovely"
  tripsense analyze --rating 2 --file review.txt --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.Join(args, " ")
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read review: %w", err)
				}
				content = string(data)
			}

			var ratingPtr *float64
			if cmd.Flags().Changed("rating") {
				if rating < 1 || rating > 5 {
					return fmt.Errorf("rating must be between 1 and 5, got %v", rating)
				}
				ratingPtr = &rating
			}

			a, err := opts.OpenAnalyzerApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			analysis, err := a.Analyze(cmd.Context(), content, ratingPtr)
			if err != nil {
				return err
			}

			if opts.JSON {
				return printJSON(cmd.OutOrStdout(), analysis)
			}
			printAnalysis(cmd, analysis)
			return nil
		},
	}

	cmd.Flags().Float64VarP(&rating, "rating", "r", 0, "Star rating (1-5)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the review from a file")

	return cmd
}

func printAnalysis(cmd *cobra.Command, analysis review.Analysis) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Sentiment: %s (%.2f)\n", analysis.Sentiment, analysis.Confidence)
	fmt.Fprintf(w, "Positive:  %s\n", joinOrDash(analysis.PositiveKeywords))
	fmt.Fprintf(w, "Negative:  %s\n", joinOrDash(analysis.NegativeKeywords))

	units := analysis.MeaningUnits
	if len(units.Phrases) > 0 {
		fmt.Fprintf(w, "Phrases:   %s\n", strings.Join(units.Phrases, ", "))
	}
	if len(units.AdjNounPairs) > 0 {
		fmt.Fprintf(w, "Pairs:     %s\n", strings.Join(units.AdjNounPairs, ", "))
	}
	if len(units.Entities) > 0 {
		names := make([]string, len(units.Entities))
		for i, e := range units.Entities {
			names[i] = e.Text + " (" + e.Label + ")"
		}
		fmt.Fprintf(w, "Entities:  %s\n", strings.Join(names, ", "))
	}
}

func joinOrDash(words []string) string {
	if len(words) == 0 {
		return "-"
	}
	return strings.Join(words, ", ")
}
