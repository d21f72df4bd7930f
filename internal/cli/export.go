package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/khanglvm/tripsense/internal/catalog"
)

// NewExportCmd creates the 'export' command.
func NewExportCmd(opts *Options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <input>",
		Short: "Convert a destination export to a JSON snapshot",
		Long: `Read a TripAdvisor CSV export (addressObj/city, subcategories/N, subtype/N
columns) or a JSON snapshot and write a normalized JSON snapshot.

User activity from --activity is embedded in the output when given.
The output file is locked while it is written.`,
		Example: `  tripsense export attractions.csv --output destinations.json
  tripsense export attractions.csv --activity users.json -o snapshot.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := catalog.LoadSnapshot(args[0])
			if err != nil {
				return err
			}
			if opts.ActivityPath != "" {
				users, err := catalog.LoadUsers(opts.ActivityPath)
				if err != nil {
					return err
				}
				snap.Users = users
			}

			if output == "" {
				return catalog.WriteSnapshot(cmd.OutOrStdout(), snap)
			}
			if err := writeSnapshotFile(output, snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %d destinations, %d users to %s\n", len(snap.Destinations), len(snap.Users), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default: stdout)")

	return cmd
}

// writeSnapshotFile writes snap to path under an exclusive lock.
func writeSnapshotFile(path string, snap *catalog.Snapshot) error {
	lockFile, err := acquireFileLock(path)
	if err != nil {
		return fmt.Errorf("failed to acquire file lock: %w", err)
	}
	defer releaseFileLock(lockFile)

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	if err := catalog.WriteSnapshot(file, snap); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// acquireFileLock acquires an exclusive lock on path + ".lock".
func acquireFileLock(path string) (*os.File, error) {
	lockPath := path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	// Non-blocking: a second export to the same file fails fast.
	err = unix.Flock(int(lockFile.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("failed to acquire lock (another export in progress?): %w", err)
	}

	return lockFile, nil
}

// releaseFileLock releases the file lock and removes the lock file.
func releaseFileLock(lockFile *os.File) error {
	if lockFile == nil {
		return nil
	}

	lockPath := lockFile.Name()
	unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)
	lockFile.Close()

	return os.Remove(lockPath)
}
