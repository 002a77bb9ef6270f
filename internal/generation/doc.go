// Package generation turns a validated project into posts.
//
// Every caption row is one post and every variation repeats all posts with
// fresh random choices. For each non-empty slot the generator selects an
// image, resolves its settings, picks a colour, and hands the request to a
// render.Renderer. Posts are independent: each owns its selection state and
// its own random source seeded from the run seed, variation, and post number,
// so a run with a fixed seed is reproducible regardless of scheduling.
package generation
