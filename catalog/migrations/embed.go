// Package migrations embeds the SQL migrations of the catalog store.
package migrations

import "embed"

// FS contains all SQL migration files.
//
//go:embed *.sql
var FS embed.FS
