package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/plantcare/internal/client/connectivity"
	"github.com/dmitrijs2005/plantcare/internal/client/services"
)

func newSyncCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push local changes and pull server changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.monitor.Mode() != connectivity.ModeOnline {
				return fmt.Errorf("server unreachable, local changes stay pending: %w", services.ErrOffline)
			}
			report, err := a.sync.Sync(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return writeJSON(a.out, report)
			}
			printReport(a, report)
			return nil
		},
	}
}

func printReport(a *App, r *services.SyncReport) {
	if r.Skipped {
		fmt.Fprintln(a.out, "A sync is already running.")
		return
	}
	fmt.Fprintf(a.out, "Pushed %d, pulled %d", r.Pushed, r.Pulled)
	if r.Failed > 0 {
		fmt.Fprintf(a.out, ", %d rejected (kept locally)", r.Failed)
	}
	if r.Conflicts > 0 {
		fmt.Fprintf(a.out, ", %d conflict(s) resolved in favour of the server", r.Conflicts)
	}
	fmt.Fprintln(a.out, ".")
}
