// Package migrations carries the collection schema as numbered
// up/down SQL scripts.
package migrations

import "embed"

// FS holds every *.sql script, applied in file name order.
//
//go:embed *.sql
var FS embed.FS
