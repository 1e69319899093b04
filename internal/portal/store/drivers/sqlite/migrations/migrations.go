// Package migrations embeds the schema migration files for the sqlite
// key/value driver so they compile into the binary.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
