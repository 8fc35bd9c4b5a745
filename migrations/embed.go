// Package migrations holds the PostgreSQL schema for checklist snapshots and recency
// confirmations. The SQL files are compiled into every binary.
package migrations

import "embed"

// FS contains the numbered up and down migrations.
//
//go:embed *.sql
var FS embed.FS
