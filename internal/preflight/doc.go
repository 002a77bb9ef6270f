// Package preflight checks that the filesystem paths a slidemill command
// depends on exist with the right permissions before any work starts.
//
// The generate command calls RunAll and refuses to start when a check fails,
// so a run never aborts halfway through for want of a writable output folder.
// The validate command prints the same results as a table.
package preflight
