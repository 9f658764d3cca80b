// Package sqldb provides the database/sql implementations of the storage
// interfaces defined in the internal/store package. The same queries and
// migrations serve PostgreSQL (through the pgx stdlib driver) and SQLite
// (through go-sqlite3); placeholders are rebound per dialect.
package sqldb
