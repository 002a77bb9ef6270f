// Package resolve maps an image to the one settings blob used to render it.
//
// Resolution is a single hop: the image's settings_source names exactly one
// level of the hierarchy and a missing blob at that level is an error. There
// is no fallback to a broader level.
package resolve
