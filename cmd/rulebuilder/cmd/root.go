package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/solatis/rulebuilder/internal/core/config"
	"github.com/solatis/rulebuilder/internal/core/db"
	"github.com/solatis/rulebuilder/internal/core/logging"
)

// Version is the CLI and server version.
const Version = "0.1.0"

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:          "rulebuilder",
	Short:        "Condition-tree builder service",
	Long:         `rulebuilder edits nested AND/OR/NOT condition trees against a field catalog and serves editing sessions over gRPC.`,
	Version:      Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger() (*slog.Logger, error) {
	return logging.New(os.Stderr, logLevel, logFormat)
}

// loadConfig reads configuration with flags of cmd bound over file and environment.
func loadConfig(cmd *cobra.Command, bindings map[string]string) (*config.BuilderAPIConfig, error) {
	v := viper.New()
	if err := v.BindPFlag("database.url", cmd.Flag("db-url")); err != nil {
		return nil, err
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, cmd.Flag(flag)); err != nil {
			return nil, err
		}
	}
	cfg, err := config.LoadConfigWith(v, configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openDatabase opens the configured database without migrating it.
func openDatabase(cfg *config.BuilderAPIConfig) (*sqlx.DB, *db.Queries, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("--db-url required")
	}
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return database, queries, nil
}

// requireMigrated fails when any embedded migration is not applied.
func requireMigrated(database *sqlx.DB) error {
	statuses, err := db.MigrateStatus(database)
	if err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			return fmt.Errorf("migration %s not applied - run 'rulebuilder migrate up' first", s.ID)
		}
	}
	return nil
}
