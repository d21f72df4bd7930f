package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/khanglvm/tripsense/internal/app"
	"github.com/khanglvm/tripsense/internal/recommend"
)

// NewRecommendCmd creates the 'recommend' command.
func NewRecommendCmd(opts *Options) *cobra.Command {
	var userID int64
	var limit int
	var recent string

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend destinations for a user",
		Long: `Blend a user's likes, reviews and selected tags into recommendations.

Users with no likes or reviews get destinations matching their selected tags.
Otherwise results combine review-driven search, liked subcategories, subtypes
and countries, then fall back to the most liked destinations. Destinations
the user already liked are never recommended.

User activity comes from --activity or data.activity; --user 0 is an
anonymous visitor.`,
		Example: `  tripsense recommend --data destinations.json --activity users.json --user 12
  tripsense recommend --user 12 --recent 31,7 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("limit must be positive, got %d", limit)
			}
			recentIDs, err := app.ParseIDs(recent)
			if err != nil {
				return err
			}

			a, err := opts.OpenApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			bundle, err := a.Recommend(cmd.Context(), userID, limit, a.Catalog.Viewed(recentIDs))
			if err != nil {
				return err
			}

			if opts.JSON {
				return printJSON(cmd.OutOrStdout(), bundle)
			}
			printBundle(cmd.OutOrStdout(), bundle)
			return nil
		},
	}

	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "User ID (0 = anonymous)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Items per list")
	cmd.Flags().StringVar(&recent, "recent", "", "Recently viewed destination IDs, comma-separated")

	return cmd
}

func printBundle(w io.Writer, b *recommend.Bundle) {
	fmt.Fprintf(w, "Activity weight: %.2f  Tag weight: %.2f\n", b.ActivityWeight, b.TagWeight)

	printItems(w, "Recommended", b.Results)
	printItems(w, "From your reviews", b.Keyword)
	printItems(w, "Same subcategory", b.Subcategory)
	printItems(w, "Same subtype", b.Subtype)
	printItems(w, "Same country", b.Country)
	for _, g := range b.TagGroups {
		printItems(w, "Tag: "+g.Tag, g.Items)
	}
	printItems(w, "Recently viewed", b.RecentlyViewed)
}

func printItems(w io.Writer, title string, items []recommend.Item) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(w, "  %-40s %5.2f  %s\n", truncateText(it.Destination.Name, 40), it.Score, it.Type)
	}
}
