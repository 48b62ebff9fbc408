package cli

import (
	"fmt"
	"io"

	"mission-progression-system/services"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// ReconcileCmd compares every profile's ledger with its XP total.
func ReconcileCmd() *cobra.Command {
	var upload bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check that ledger sums match profile XP",
		Long: `Sum each profile's reward ledger and compare it with the stored XP.
Drift is reported, never corrected. Exits non-zero when any profile drifted.

Examples:
  missions reconcile           # print the report
  missions reconcile --upload  # also store it in R2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.reconcile.Run(cmd.Context(), upload)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			if !report.OK() {
				return fmt.Errorf("%d profile(s) drifted", len(report.Drifts))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&upload, "upload", false, "upload the report to R2")
	return cmd
}

func printReport(w io.Writer, report *services.ReconcileReport) {
	fmt.Fprintf(w, "Checked %d profile(s) at %s\n", report.ProfilesChecked, report.GeneratedAt.Format("2006-01-02 15:04:05Z"))
	if report.OK() {
		fmt.Fprintf(w, "%s ledger and progression agree\n", color.New(color.FgGreen).Sprint("✓"))
	} else {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Profile                               Ledger   Stored    Delta")
		fmt.Fprintln(w, "──────────────────────────────────────────────────────────────")
		for _, d := range report.Drifts {
			fmt.Fprintf(w, "%-36s %8d %8d %s\n", d.ProfileID, d.LedgerXP, d.ProgressionXP,
				color.New(color.FgRed).Sprintf("%+8d", d.Delta))
		}
	}
	if report.ReportURL != "" {
		fmt.Fprintf(w, "\nReport: %s\n", report.ReportURL)
	}
}
