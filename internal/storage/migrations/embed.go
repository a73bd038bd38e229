// Package migrations embeds the SQL migration files for both storage
// backends. Each backend applies the files from its own subdirectory.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
