package outbox

import "embed"

// Migrations holds the event_records schema, applied with goose.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsTable is the goose version table for this schema.
const MigrationsTable = "goose_outbox"
