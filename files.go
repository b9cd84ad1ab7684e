package auth

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the SQL migrations that create the users table.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
