package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanglvm/tripsense/internal/version"
)

// NewVersionCmd creates the 'version' command
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the current version, commit hash, and build date.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Version:  %s\n", version.Version)
			fmt.Fprintf(w, "Commit:   %s\n", version.Commit)
			fmt.Fprintf(w, "Built:    %s\n", version.Date)
			return nil
		},
	}

	return cmd
}
