package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single sweep and print its report",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		report, err := rt.sweeper.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "window %s .. %s: scanned %d, notified %d, skipped %d, failed %d\n",
			report.Start.Format("2006-01-02 15:04"), report.End.Format("2006-01-02 15:04"),
			report.Scanned, report.Notified, report.Skipped, report.Failed)
		return nil
	},
}
