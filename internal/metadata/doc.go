// Package metadata owns the project metadata file (metadata.json): the set of
// content types, the products declared per content type, the folder
// structure, one record per image, the untagged list, and the settings
// hierarchy.
//
// Store loads, generates, and persists the document. Validate checks every
// structural and cross-referential invariant and reports all issues at once.
// Editor is the only sanctioned way to mutate a loaded document; each
// mutation is applied in memory and then persisted as a whole-file rewrite.
//
// The package assumes a single writer. Store.Lock takes an advisory file lock
// so two CLI invocations cannot interleave mutations.
package metadata
