// Package migrations embeds the goose schema migrations of the SQL state store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
