// Package logs reads slidemill's daily log files.
//
// Last reads the final lines of a file with bounded memory; Follow polls a
// file from an offset and hands every new line to a callback until the
// context ends.
package logs
