package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solatis/rulebuilder/internal/catalog"
	"github.com/solatis/rulebuilder/internal/core/api"
	"github.com/solatis/rulebuilder/internal/core/auth"
	"github.com/solatis/rulebuilder/internal/core/config"
	"github.com/solatis/rulebuilder/internal/core/db"
	"github.com/solatis/rulebuilder/internal/core/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC builder API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50061, "gRPC server port")
	serveCmd.Flags().String("catalog-file", "", "serve this catalog file instead of the stored catalog")
	serveCmd.Flags().Bool("require-auth", true, "require an API key on every request")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"builder_api.host":         "host",
		"builder_api.port":         "port",
		"builder_api.catalog_file": "catalog-file",
		"builder_api.require_auth": "require-auth",
	})
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		queries *db.Queries
		source  api.CatalogSource
	)
	if cfg.DatabaseURL != "" {
		database, q, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := requireMigrated(database); err != nil {
			return err
		}
		queries = q
		source = db.NewCatalogStore(q)
	}

	if cfg.CatalogFile != "" {
		cat, err := catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			return fmt.Errorf("failed to load catalog file: %w", err)
		}
		log.Info("serving catalog file", "path", cfg.CatalogFile, "fields", cat.Len())
		source = api.StaticCatalog{Catalog: cat}
	}

	authenticator, err := newAuthenticator(cfg, queries, log)
	if err != nil {
		return err
	}
	if authenticator == nil {
		log.Warn("authentication disabled")
	}

	service, err := api.NewBuilderAPIService(cfg, source, log)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(cfg, service, authenticator, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.Info("starting rulebuilder", "version", Version, "addr", cfg.Addr())
	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		log.Info("shutting down gracefully")
		return grpcServer.Shutdown(context.Background())
	}
}

func newAuthenticator(cfg *config.BuilderAPIConfig, queries *db.Queries, log *slog.Logger) (*auth.Authenticator, error) {
	if !cfg.RequireAuth {
		return nil, nil
	}
	if queries == nil {
		return nil, fmt.Errorf("require_auth needs a database for API keys (set --db-url)")
	}
	secrets, err := config.HMACSecrets()
	if err != nil {
		return nil, fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return nil, fmt.Errorf("no HMAC secrets configured (set RB_HMAC_SECRET environment variable)")
	}
	return auth.NewAuthenticator(secrets, queries, log), nil
}
