package pgstore

import "embed"

// Migrations holds the goose SQL files for the loans and audit_events tables
// and the index keeping one active loan per item.
// Pass it to pg.Migrate together with MigrationsDir.
//
//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"
