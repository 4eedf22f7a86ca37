// Package storage keeps an optional history of job runs.
//
// Drivers:
//   - "file": JSON Lines, dependency-free
//   - "sqlite": SQLite database file (build tag sqlite)
//
// History is diagnostic only; schedule state is never restored from it.
package storage
