// Package migrations embeds the schema migration files so they compile
// into the binary and apply via golang-migrate's iofs source.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
