package binreader

import "errors"

var (
	// ErrOutOfBounds indicates a read past the end of the buffer.
	ErrOutOfBounds = errors.New("binreader: out of bounds")

	// ErrUnterminated indicates a string without a zero byte before the end of its blob.
	ErrUnterminated = errors.New("binreader: unterminated string")
)
