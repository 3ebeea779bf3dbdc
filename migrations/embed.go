// Package migrations holds the versioned SQL schema for the payables
// database. The files are embedded so the binary can migrate without a
// checkout of this directory.
package migrations

import "embed"

// FS contains every *.sql migration in this directory
//
//go:embed *.sql
var FS embed.FS
