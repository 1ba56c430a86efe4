package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pinky-hr/attendance-engine/internal/domain/synclog"
)

func syncCommand(deps Deps) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile stored punches for the last N days",
		Long: `Run a sync locally against the punches already stored, without an agent.
Refuses to start while another sync is running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), deps, func(svc *Services) error {
				resp, err := svc.Sync.RunLocal(cmd.Context(), days, synclog.TriggerCommand)
				if errors.Is(err, synclog.ErrSyncInProgress) {
					return fmt.Errorf("another sync is running, try again later")
				}
				if err != nil && resp.ID == "" {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Sync %s %s (%s to %s)\n", resp.ID, resp.Status, resp.FromDate, resp.ToDate)
				fmt.Fprintf(out, "  fetched:   %d\n", resp.RecordsFetched)
				fmt.Fprintf(out, "  processed: %d\n", resp.RecordsProcessed)
				fmt.Fprintf(out, "  created:   %d\n", resp.RecordsCreated)
				fmt.Fprintf(out, "  failed:    %d\n", resp.RecordsFailed)
				printErrorEntries(cmd, resp.Errors)

				if resp.Status == string(synclog.StatusFailed) {
					return fmt.Errorf("sync %s failed", resp.ID)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Number of days to reconcile, 1 to 90")
	return cmd
}

const maxPrintedErrors = 10

func printErrorEntries(cmd *cobra.Command, entries []synclog.ErrorEntry) {
	if len(entries) == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Errors (%d):\n", len(entries))
	for i, e := range entries {
		if i == maxPrintedErrors {
			fmt.Fprintf(out, "  ... %d more\n", len(entries)-maxPrintedErrors)
			break
		}
		fmt.Fprintf(out, "  [%s] %s %s %s\n", e.Kind, e.EmployeeID, e.WorkDate, e.Message)
	}
}
