// Package db embeds the orderdesk schema and the demo product catalog.
package db

import _ "embed"

// Schema creates every orderdesk table. Statements are idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedProducts is the demo catalog loaded by seed-db when no file is given.
//
//go:embed seed/products.json
var SeedProducts []byte
