package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/tripsense/internal/catalog"
)

// NewPopularCmd creates the 'popular' command.
func NewPopularCmd(opts *Options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "popular",
		Aliases: []string{"loved"},
		Short:   "List the most liked destinations",
		Example: `  tripsense popular --data destinations.json --activity users.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.OpenApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			loved := a.Catalog.MostLoved(limit)
			if opts.JSON {
				return printJSON(cmd.OutOrStdout(), loved)
			}

			w := cmd.OutOrStdout()
			for i, l := range loved {
				rating := "-"
				if l.AverageRating != nil {
					rating = fmt.Sprintf("%.1f (%d)", *l.AverageRating, l.ReviewCount)
				}
				fmt.Fprintf(w, "%3d. %-40s %5d likes  rating %s\n", i+1, truncateText(l.Destination.Name, 40), l.Destination.LikeCount, rating)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of destinations")

	return cmd
}

// NewNearbyCmd creates the 'nearby' command.
func NewNearbyCmd(opts *Options) *cobra.Command {
	var lat, lon, radius float64
	var limit int

	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "List destinations near a coordinate",
		Long: `List destinations within --radius kilometres of --lat/--lon, closest first.
Destinations without coordinates are skipped.`,
		Example: `  tripsense nearby --lat 48.8566 --lon 2.3522 --radius 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
				return fmt.Errorf("coordinates out of range: %v, %v", lat, lon)
			}

			a, err := opts.OpenApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			results := a.Catalog.Nearby(lat, lon, radius, limit)
			if opts.JSON {
				return printJSON(cmd.OutOrStdout(), results)
			}

			w := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(w, "No destinations in range.")
				return nil
			}
			for _, r := range results {
				fmt.Fprintf(w, "%8.2f km  %s\n", r.DistanceKm, r.Destination.Name)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude")
	cmd.Flags().Float64VarP(&radius, "radius", "r", catalog.DefaultRadiusKm, "Radius in km")
	cmd.Flags().IntVarP(&limit, "limit", "n", catalog.DefaultNearbyLimit, "Number of destinations")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")

	return cmd
}

// NewTagCmd creates the 'tag' command.
func NewTagCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag [tag]",
		Short: "List destinations by tag, or all tags",
		Long: `A destination's tag is its first subcategory. Tags match exactly, then
case-insensitively, then with '&' and 'and' treated alike, then partially.`,
		Example: `  tripsense tag
  tripsense tag "parks and nature"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.OpenApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			w := cmd.OutOrStdout()
			if len(args) == 0 {
				tags := a.Catalog.Tags()
				if opts.JSON {
					return printJSON(w, tags)
				}
				fmt.Fprintln(w, strings.Join(tags, "\n"))
				return nil
			}

			dests, tag, err := a.Catalog.ByTag(args[0])
			if errors.Is(err, catalog.ErrTagNotFound) {
				return fmt.Errorf("no tag matches %q (run 'tripsense tag' to list tags)", args[0])
			}
			if err != nil {
				return err
			}

			if opts.JSON {
				return printJSON(w, map[string]any{"tag": tag, "destinations": dests})
			}
			fmt.Fprintf(w, "%s (%d):\n", tag, len(dests))
			for _, d := range dests {
				fmt.Fprintf(w, "  %s\n", d.Name)
			}
			return nil
		},
	}

	return cmd
}
