// Package migrations embeds the schema migrations of the catalog store.
package migrations

import "embed"

// SQL files are applied in file name order, one directory per driver.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
