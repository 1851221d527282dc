package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jakechorley/keyworker-allocation/pkg/core/allocator"
)

// AutoAllocateCmd creates the autoAllocate command
func AutoAllocateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "autoAllocate <prison_id>",
		Short: "Allocate a keyworker to every unallocated offender in a prison",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prisonID := args[0]

			unlock := app.Locks.Lock(prisonID)
			defer unlock()

			allocated, err := app.runner().AutoAllocate(app.Ctx, prisonID)
			return printAutoAllocateResult(cmd.OutOrStdout(), prisonID, allocated, err)
		},
	}
}

// printAutoAllocateResult reports a single run. Capacity exhaustion is a partial success, not a failure.
func printAutoAllocateResult(w io.Writer, prisonID string, allocated int, err error) error {
	var exhausted *allocator.CapacityExhaustedError
	switch {
	case err == nil:
		fmt.Fprintf(w, "\n✓ Auto-allocation complete for %s\n\n", prisonID)
		fmt.Fprintf(w, "Allocated: %d\n\n", allocated)
		return nil
	case errors.As(err, &exhausted):
		fmt.Fprintf(w, "\n⚠️  Keyworker capacity exhausted in %s\n\n", prisonID)
		fmt.Fprintf(w, "Allocated: %d\n", allocated)
		fmt.Fprintf(w, "Remaining offenders need manual allocation or more keyworker capacity.\n\n")
		return nil
	default:
		if allocated > 0 {
			fmt.Fprintf(w, "\n%d offenders were allocated before the run stopped.\n", allocated)
		}
		return err
	}
}
