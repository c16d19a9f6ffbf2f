// Package sqlite persists occupancy snapshots to a local SQLite database.
//
// The schema is managed by golang-migrate from migrations embedded in the
// binary, so a fresh database file is usable straight after OpenDB.
package sqlite
