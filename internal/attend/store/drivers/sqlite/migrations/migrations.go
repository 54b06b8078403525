package migrations

import "embed"

// Migrations holds the SQL migration files, embedded so the binary is
// self-contained.
//
//go:embed *.sql
var Migrations embed.FS
