// Package outputs inspects and prunes generated variation folders.
//
// Generation writes output/variation<N>/post<M>/ trees and never removes
// anything, so folders from aborted or superseded runs accumulate until they
// are cleaned here.
package outputs
