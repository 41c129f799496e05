// Package migrations embeds the SQL schema so binaries need no files on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
