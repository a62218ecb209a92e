// Package store persists notification records in PostgreSQL.
//
// The relay never deletes rows; catch-up delivery flips is_sent and nothing
// reverts it.
package store
