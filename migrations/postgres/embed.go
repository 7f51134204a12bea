// Package migrations embeds SQL migration files.
package migrations

import "embed"

// FS contains the Postgres schema migrations, applied in lexical order.
//
//go:embed schema/*.sql
var FS embed.FS

// Dir is the directory within FS where migrations live.
const Dir = "schema"
