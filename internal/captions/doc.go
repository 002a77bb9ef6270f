// Package captions reads the delimited captions table that drives a project.
//
// The header row is a sequence of "product_<type>", "<type>" column pairs; a
// content type may appear in more than one pair. Every following row is one
// post. The table defines the content types, the products declared per
// content type, the minimum number of images each product needs, and the
// slots of every post.
package captions
