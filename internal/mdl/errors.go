package mdl

import "errors"

var (
	// ErrUnsupportedVersion indicates a file version this package cannot decode.
	ErrUnsupportedVersion = errors.New("mdl: unsupported version")

	// ErrMalformed indicates a structurally invalid file.
	ErrMalformed = errors.New("mdl: malformed model")
)
