// Package db carries the SQL schema migrations compiled into the binary.
package db

import "embed"

// Migrations holds migrations/*.sql; only *.up.sql files are applied.
//
//go:embed migrations/*.sql
var Migrations embed.FS
