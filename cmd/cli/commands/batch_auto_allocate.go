package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jakechorley/keyworker-allocation/pkg/core/allocator"
	"github.com/jakechorley/keyworker-allocation/pkg/core/services"
)

// BatchAutoAllocateCmd creates the batchAutoAllocate command
func BatchAutoAllocateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "batchAutoAllocate [prison_id...]",
		Short: "Run auto-allocation for several prisons (defaults to all enabled prisons)",
		RunE: func(cmd *cobra.Command, args []string) error {
			prisonIDs := args
			if len(prisonIDs) == 0 {
				prisonIDs = app.Cfg.AutoAllocationPrisons()
			}
			if len(prisonIDs) == 0 {
				return fmt.Errorf("no prisons have autoAllocation enabled")
			}

			results := services.BatchAutoAllocate(app.Ctx, app.runner(), app.Locks, prisonIDs, app.Cfg.BatchConcurrency, app.Logger)
			return printBatchResults(cmd.OutOrStdout(), results)
		},
	}
}

// printBatchResults prints one line per prison and returns an error if any prison failed.
// Capacity exhaustion is reported but does not count as a failure.
func printBatchResults(w io.Writer, results []services.PrisonResult) error {
	fmt.Fprintf(w, "\nAuto-allocation results:\n\n")

	failed := 0
	total := 0
	for _, result := range results {
		total += result.Allocated

		var exhausted *allocator.CapacityExhaustedError
		switch {
		case result.Err == nil:
			fmt.Fprintf(w, "  ✓ %-6s %d allocated\n", result.PrisonID, result.Allocated)
		case errors.As(result.Err, &exhausted):
			fmt.Fprintf(w, "  ⚠️  %-6s %d allocated, capacity exhausted\n", result.PrisonID, result.Allocated)
		default:
			failed++
			fmt.Fprintf(w, "  ✗ %-6s %d allocated, %v\n", result.PrisonID, result.Allocated, result.Err)
		}
	}

	fmt.Fprintf(w, "\nTotal allocated: %d\n\n", total)

	if failed > 0 {
		return fmt.Errorf("auto-allocation failed for %d of %d prisons", failed, len(results))
	}
	return nil
}
