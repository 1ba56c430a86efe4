package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pinky-hr/attendance-engine/internal/domain/attendance"
)

func recalculateCommand(deps Deps) *cobra.Command {
	var (
		from      string
		to        string
		employee  string
		reprocess bool
	)

	cmd := &cobra.Command{
		Use:   "recalculate",
		Short: "Recompute stored attendance records over a date range",
		Long: `Recompute stored attendance records over a date range.

Examples:
  # Recompute March from the stored punch lists
  attendancectl recalculate --from 2024-03-01 --to 2024-03-31

  # Re-run deduplication on the raw punches of one employee
  attendancectl recalculate --from 2024-03-01 --to 2024-03-31 --employee <id> --reprocess`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := attendance.RecalculateRequest{From: from, To: to, Reprocess: reprocess}
			if employee != "" {
				req.EmployeeID = &employee
			}

			return withServices(cmd.Context(), deps, func(svc *Services) error {
				out := cmd.OutOrStdout()
				resp, err := svc.Attendance.Recalculate(cmd.Context(), req, func(done, total int) {
					fmt.Fprintf(out, "Processed %d/%d\n", done, total)
				})
				if err != nil {
					return err
				}

				r := resp.Report
				fmt.Fprintf(out, "Recalculated %s to %s: %d records, %d created, %d updated, %d unchanged, %d removed, %d skipped, %d failed, %d anomalies\n",
					resp.From, resp.To, r.Total, r.Created, r.Updated, r.Unchanged, r.Removed, r.Skipped, r.Failed, r.Anomalies)
				for i, e := range r.Errors {
					if i == maxPrintedErrors {
						fmt.Fprintf(out, "  ... %d more\n", len(r.Errors)-maxPrintedErrors)
						break
					}
					fmt.Fprintf(out, "  %s\n", e.Error())
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First work date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "Last work date, YYYY-MM-DD")
	cmd.Flags().StringVar(&employee, "employee", "", "Limit to one employee id")
	cmd.Flags().BoolVar(&reprocess, "reprocess", false, "Re-run deduplication on stored punches")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
