// Package selection chooses the image used for each slot of a generated post.
//
// An Engine holds the read-only candidate rules derived from the metadata.
// Every post gets its own Post value that tracks the images already consumed
// by duplicate-guarded products, so the exclusion state never leaks across
// posts or variations and posts can be generated concurrently.
package selection
