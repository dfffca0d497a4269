package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/solatis/rulebuilder/internal/builder"
	"github.com/solatis/rulebuilder/internal/catalog"
	"github.com/solatis/rulebuilder/internal/core/db"
	"github.com/solatis/rulebuilder/internal/render"
	"github.com/solatis/rulebuilder/internal/rules"
	"github.com/solatis/rulebuilder/internal/types"
)

var renderCmd = &cobra.Command{
	Use:   "render <tree.json>",
	Short: "Materialize a serialized condition tree and print it as an outline",
	Long: `render reads a serialized condition tree ("-" for stdin), materializes it
against the catalog and prints the resulting presentation tree. With --collect
the tree is collected back and printed as JSON; validation issues go to stderr.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().String("catalog-file", "", "catalog document to use instead of the stored catalog")
	renderCmd.Flags().Bool("collect", false, "print the collected tree as JSON")
}

func runRender(cmd *cobra.Command, args []string) error {
	data, err := readInput(args[0])
	if err != nil {
		return err
	}
	nodes, err := types.ParseNodes(data)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, map[string]string{"builder_api.catalog_file": "catalog-file"})
	if err != nil {
		return err
	}

	var cat *catalog.Catalog
	if cfg.CatalogFile != "" {
		cat, err = catalog.LoadFile(cfg.CatalogFile)
	} else {
		cat, err = loadStoredCatalog(cfg.DatabaseURL)
	}
	if err != nil {
		return err
	}

	b := builder.New(cat, nodes)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, render.Tree(builder.Snapshot(b.Tree(), builder.EnglishLabels)))

	if collect, _ := cmd.Flags().GetBool("collect"); !collect {
		return nil
	}
	result := b.Collect()
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(encoded))

	var layouts []string
	if cfg.DateFormat != "" {
		layouts = append(layouts, cfg.DateFormat)
	}
	for _, issue := range rules.NewValidator(cat, layouts...).Validate(result.Data) {
		fmt.Fprintln(cmd.ErrOrStderr(), issue.Error())
	}
	return nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func loadStoredCatalog(url string) (*catalog.Catalog, error) {
	database, err := db.Open(url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()
	queries, err := db.LoadQueries(database)
	if err != nil {
		return nil, err
	}
	return db.NewCatalogStore(queries).Load(context.Background())
}
