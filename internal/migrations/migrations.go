// Package migrations embeds the goose SQL migrations of the files schema.
package migrations

import "embed"

// FS holds every *.sql migration at its root, as db.Migrate expects.
//
//go:embed *.sql
var FS embed.FS
