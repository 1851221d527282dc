package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/keyworker-allocation/cmd/cli/commands"
	"github.com/jakechorley/keyworker-allocation/internal/config"
	"github.com/jakechorley/keyworker-allocation/pkg/clients/prisonapi"
	"github.com/jakechorley/keyworker-allocation/pkg/core/services"
	"github.com/jakechorley/keyworker-allocation/pkg/metrics"
	"github.com/jakechorley/keyworker-allocation/pkg/postgres"
	"github.com/jakechorley/keyworker-allocation/pkg/utils/logging"
)

var env string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &commands.AppContext{Ctx: ctx}

	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Keyworker CLI - Automatically allocate keyworkers to offenders",
		Long:  `A CLI tool for allocating keyworkers to unallocated offenders, on demand or on a schedule.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(app)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Database != nil {
				app.Database.Close()
			}
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.AutoAllocateCmd(app))
	rootCmd.AddCommand(commands.BatchAutoAllocateCmd(app))
	rootCmd.AddCommand(commands.RunScheduleCmd(app))
	rootCmd.AddCommand(commands.NextRunsCmd(app))
	rootCmd.AddCommand(commands.KeyworkerCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, database, staff source and metrics
func initApp(app *commands.AppContext) error {
	var err error

	app.Logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully",
		zap.String("keyworker_source", app.Cfg.KeyworkerSource),
		zap.Int("prisons", len(app.Cfg.Prisons)))

	app.Logger.Info("Connecting to database")
	database, err := postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.Database = database
	app.Logger.Debug("Database connected successfully")

	var staff services.StaffSource = database
	if app.Cfg.KeyworkerSource == config.KeyworkerSourcePrisonAPI {
		app.Logger.Info("Using prison API for keyworkers", zap.String("base_url", app.Cfg.PrisonAPI.BaseURL))
		staff = prisonapi.NewClient(app.Ctx, app.Cfg.PrisonAPI, app.Logger)
	}
	app.Directory = services.NewDirectory(staff, database)

	// Metrics are only collected when something can scrape them
	app.Metrics = metrics.NewNop()
	if app.Cfg.Metrics.ListenAddr != "" {
		app.Registry = prometheus.NewRegistry()
		app.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		app.Metrics = metrics.NewPrometheus(app.Registry, app.Cfg.Metrics.Namespace)
	}

	app.AutoAllocator = services.NewAutoAllocator(
		app.Directory,
		database,
		config.NewPrisonPolicy(app.Cfg),
		app.Metrics,
		app.Logger,
	)
	app.Locks = services.NewPrisonLocks()

	app.Logger.Info("Application initialized successfully")

	return nil
}
