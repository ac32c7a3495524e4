// Package migrations embeds the goose SQL files so every binary carries its schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
