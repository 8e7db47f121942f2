// Package migrations embeds the goose SQL migrations of the contacts schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
