// Package migrations embeds the versioned SQL schema so the migrate CLI and
// the integration tests run the same files without a path on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
