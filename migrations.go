package crazegpt

import "embed"

// MigrationsFS holds the SQL migrations for the PostgreSQL storage driver.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
