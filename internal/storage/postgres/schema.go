package postgres

import _ "embed"

// Schema is the DDL for all pipeline tables. Integration tests apply it to a
// fresh database; deployments run it through their migration tooling.
//
//go:embed schema.sql
var Schema string
