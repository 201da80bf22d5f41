// Package journal records build runs and per-job outcomes in a SQLite
// database so past runs can be inspected after the terminal output is gone.
//
// The journal is optional and write-only from the build's point of view: a
// failed write is reported to the caller but never changes a run's result.
package journal
