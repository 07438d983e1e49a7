package store

import "embed"

// migrationsFS embeds the SQL migrations applied on open.
//
//go:embed migrations
var migrationsFS embed.FS
