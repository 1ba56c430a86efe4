package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func cleanupCommand(deps Deps) *cobra.Command {
	var minutes int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Fail sync runs stuck in running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if minutes < 1 {
				return fmt.Errorf("--minutes must be at least 1")
			}
			return withServices(cmd.Context(), deps, func(svc *Services) error {
				ids, err := svc.Sync.Sweep(cmd.Context(), time.Duration(minutes)*time.Minute)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					fmt.Fprintln(out, "No stuck sync runs")
					return nil
				}
				fmt.Fprintf(out, "Marked %d sync runs failed:\n", len(ids))
				for _, id := range ids {
					fmt.Fprintf(out, "  %s\n", id)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&minutes, "minutes", 30, "Age in minutes after which a running sync counts as stuck")
	return cmd
}
