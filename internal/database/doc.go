// Package database provides SQLite-based run history for prayertimes.
//
// This package implements the HistoryDB, which stores:
//   - One row per scraping run with its timing and destinations
//   - The per-district outcomes of every run
//   - The exact document bytes written by every run
//
// The history backs the history and diff commands. SQLite is used via
// modernc.org/sqlite, so the database is a single CGO-free file under the
// XDG data directory.
package database
