package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jakechorley/keyworker-allocation/pkg/core/model"
	"github.com/jakechorley/keyworker-allocation/pkg/core/services"
)

// KeyworkerCmd creates the keyworker command
func KeyworkerCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "keyworker <prison_id> <staff_id>",
		Short: "Show a keyworker's capacity and current allocations",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prisonID := args[0]
			staffID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("staff_id must be a number: %w", err)
			}

			summary, err := services.DescribeKeyworker(app.Ctx, app.Directory, app.Logger, prisonID, staffID)
			if err != nil {
				return err
			}

			printKeyworkerSummary(cmd.OutOrStdout(), prisonID, summary)
			return nil
		},
	}
}

func printKeyworkerSummary(w io.Writer, prisonID string, summary *services.KeyworkerSummary) {
	k := summary.Keyworker

	fmt.Fprintf(w, "\n%s (%d) at %s\n\n", k.FullName(), k.StaffID, prisonID)
	fmt.Fprintf(w, "Status:          %s\n", k.Status)
	fmt.Fprintf(w, "Auto-allocation: %t\n", k.AutoAllocationAllowed)
	fmt.Fprintf(w, "Allocated:       %d of %d\n\n", k.NumberAllocated, k.Capacity)

	fmt.Fprintf(w, "Allocations by type:\n")
	for _, allocationType := range []model.AllocationType{
		model.AllocationTypeAuto,
		model.AllocationTypeManual,
		model.AllocationTypeProvisional,
	} {
		fmt.Fprintf(w, "  %-12s %d\n", allocationTypeName(allocationType), summary.AllocationsByType[allocationType])
	}

	if summary.LastAutoAllocation != nil {
		fmt.Fprintf(w, "\nLast auto-allocation: %s\n\n", summary.LastAutoAllocation.Local().Format("2006-01-02 15:04"))
	} else {
		fmt.Fprintf(w, "\nLast auto-allocation: never\n\n")
	}
}

func allocationTypeName(t model.AllocationType) string {
	switch t {
	case model.AllocationTypeAuto:
		return "Auto"
	case model.AllocationTypeManual:
		return "Manual"
	case model.AllocationTypeProvisional:
		return "Provisional"
	default:
		return string(t)
	}
}
