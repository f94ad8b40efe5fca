package material

import "errors"

var (
	// ErrNoTextures indicates a builder was called without a texture resolver or sink.
	ErrNoTextures = errors.New("material: texture resolver and sink are required")

	// ErrDetailOutOfRange indicates a background detail id beyond the shared arrays.
	ErrDetailOutOfRange = errors.New("material: detail id out of range")
)
