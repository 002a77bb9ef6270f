// Package textutil holds the Unicode case folding used to compare image,
// folder and product names case-insensitively.
package textutil
