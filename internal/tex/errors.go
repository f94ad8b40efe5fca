package tex

import "errors"

var (
	// ErrUnsupportedFormat indicates a pixel format without a decoder.
	ErrUnsupportedFormat = errors.New("tex: unsupported format")

	// ErrMalformed indicates a truncated or inconsistent texture file.
	ErrMalformed = errors.New("tex: malformed texture")

	// ErrOutOfRange indicates a mip level or slice the texture does not have.
	ErrOutOfRange = errors.New("tex: mip or slice out of range")
)
