package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jakechorley/keyworker-allocation/pkg/core/services"
)

const defaultNextRuns = 5

// NextRunsCmd creates the nextRuns command
func NextRunsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "nextRuns [count]",
		Short: "Show upcoming scheduled batch runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count := defaultNextRuns
			if len(args) > 0 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("count must be a positive integer, got: %s", args[0])
				}
				count = n
			}

			if app.Cfg.BatchSchedule == "" {
				return fmt.Errorf("batchSchedule is not configured")
			}

			now := time.Now()
			rule, err := services.ParseSchedule(app.Cfg.BatchSchedule, now)
			if err != nil {
				return err
			}

			runs := services.NextRuns(rule, now, count)
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No upcoming runs - the schedule has ended.")
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nUpcoming runs:\n")
			for i, run := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "  %2d. %s\n", i+1, run.Local().Format("2006-01-02 15:04 (Monday)"))
			}
			fmt.Fprintln(cmd.OutOrStdout())

			return nil
		},
	}
}
