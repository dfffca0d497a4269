package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/rulebuilder/internal/core/db"
	"github.com/solatis/rulebuilder/internal/render"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|status]",
	Short:     "Apply or inspect database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "status"},
	RunE:      runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	database, _, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if len(args) == 1 && args[0] == "status" {
		statuses, err := db.MigrateStatus(database)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), render.Migrations(statuses))
		return nil
	}

	if err := db.MigrateUp(database); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Info("migrations applied", "database", database.DriverName())
	return nil
}
