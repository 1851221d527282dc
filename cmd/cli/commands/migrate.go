package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// MigrateCmd creates the migrate command
func MigrateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Info("Running database migrations")
			if err := app.Database.RunMigrations(app.Ctx); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Database migrations applied\n\n")
			return nil
		},
	}
}
