package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/keyworker-allocation/pkg/core/services"
	"github.com/jakechorley/keyworker-allocation/pkg/metrics"
)

// RunScheduleCmd creates the runSchedule command
func RunScheduleCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "runSchedule",
		Short: "Run batch auto-allocation on the configured schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Cfg.BatchSchedule == "" {
				return fmt.Errorf("batchSchedule is not configured")
			}

			rule, err := services.ParseSchedule(app.Cfg.BatchSchedule, time.Now())
			if err != nil {
				return err
			}

			scheduleCtx, cancel := context.WithCancel(app.Ctx)
			defer cancel()
			g, ctx := errgroup.WithContext(scheduleCtx)

			if addr := app.Cfg.Metrics.ListenAddr; addr != "" {
				g.Go(func() error {
					return metrics.Serve(ctx, addr, app.Registry, app.Logger)
				})
			}

			g.Go(func() error {
				// Stops the metrics server once the schedule has no more runs
				defer cancel()
				err := services.RunSchedule(ctx, rule, func(ctx context.Context) {
					prisonIDs := app.Cfg.AutoAllocationPrisons()
					results := services.BatchAutoAllocate(ctx, app.runner(), app.Locks, prisonIDs, app.Cfg.BatchConcurrency, app.Logger)
					if err := printBatchResults(cmd.OutOrStdout(), results); err != nil {
						app.Logger.Error("Scheduled run had failures", zap.Error(err))
					}
				}, app.Logger)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})

			return g.Wait()
		},
	}
}
