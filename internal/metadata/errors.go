package metadata

import "errors"

var (
	// ErrKeyOrder is returned when a metadata document's top-level keys are not in KeyOrder.
	ErrKeyOrder = errors.New("metadata keys are not in the required order")
	// ErrImageNotFound is returned when an operation names an unknown image.
	ErrImageNotFound = errors.New("image not found")
	// ErrNotUntagged is returned when moving an image that is not in the untagged list.
	ErrNotUntagged = errors.New("image is not untagged")
	// ErrInvalidContentType is returned for content types absent from the document.
	ErrInvalidContentType = errors.New("invalid content type")
	// ErrInvalidProduct is returned for products not declared for a content type.
	ErrInvalidProduct = errors.New("invalid product")
	// ErrInvalidSettings is returned when a settings blob fails validation.
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrInvalidLevel is returned for an unknown or read-only settings level.
	ErrInvalidLevel = errors.New("invalid settings level")
	// ErrLocked is returned when another process holds the metadata lock.
	ErrLocked = errors.New("metadata is locked by another process")
)
