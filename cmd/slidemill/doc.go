// Package main hosts the slidemill CLI.
//
// The cobra command tree loads the project configuration, opens the metadata
// document of the configured base folder, and exposes validation, tagging,
// settings editing, generation, and run history. Commands that change the
// metadata file hold the project lock for their whole duration.
package main
