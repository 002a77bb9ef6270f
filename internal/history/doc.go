// Package history records generation runs in a SQLite database so a project
// can answer which images were used, when, and for which post.
//
// The store is append-mostly: StartRun opens a run, RecordSelection adds one
// row per rendered slot, and FinishRun stores the outcome.
package history
