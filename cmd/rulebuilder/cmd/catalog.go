package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/rulebuilder/internal/catalog"
	"github.com/solatis/rulebuilder/internal/core/db"
	"github.com/solatis/rulebuilder/internal/render"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the stored field catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the stored catalog with a YAML or JSON catalog document",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogImport,
}

var catalogShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored catalog, or a catalog file with --file",
	Args:  cobra.NoArgs,
	RunE:  runCatalogShow,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogImportCmd, catalogShowCmd)
	catalogShowCmd.Flags().String("file", "", "catalog document to print instead of the stored catalog")
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}

	doc, err := catalog.ReadFile(args[0])
	if err != nil {
		return err
	}

	database, queries, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := requireMigrated(database); err != nil {
		return err
	}

	store := db.NewCatalogStore(queries)
	if err := store.Import(context.Background(), doc); err != nil {
		return fmt.Errorf("failed to import catalog: %w", err)
	}
	n, err := store.FieldCount()
	if err != nil {
		return err
	}
	log.Info("catalog imported", "path", args[0], "fields", n)
	return nil
}

func runCatalogShow(cmd *cobra.Command, args []string) error {
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		cat, err := catalog.LoadFile(path)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), render.Catalog(cat))
		return nil
	}

	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	database, queries, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	cat, err := db.NewCatalogStore(queries).Load(context.Background())
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), render.Catalog(cat))
	return nil
}
