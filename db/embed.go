// Package db provides embedded database schema and seed files.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedRules is the canonical demo rule set in rule-file format.
//
//go:embed seed/rules.yaml
var SeedRules []byte
