package postgres

import "embed"

// migrationsFS embeds the schema migrations shipped with the binary, used by
// the `migrate` CLI subcommand.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS
