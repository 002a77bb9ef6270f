// Package settings defines the rendering settings blob shared by every level of
// the settings hierarchy (default template, content type, product group, and
// per-image custom settings) together with the structural validator used to
// vet a blob before it is persisted or handed to a renderer.
//
// The validator only inspects a single blob. Deciding which blob applies to an
// image is the job of the resolve package.
package settings
