// Package database provides the PostgreSQL connection pool for the
// notifications store.
package database
