// Package render defines the contract between generation and the component
// that produces an output image for one slot.
//
// CopyRenderer places the chosen source image in the output tree and writes a
// JSON sidecar describing the caption and resolved settings beside it. Text
// layout and drawing happen downstream of the sidecar.
package render
