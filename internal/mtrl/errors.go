package mtrl

import "errors"

var (
	// ErrMalformed indicates a structurally invalid material file.
	ErrMalformed = errors.New("mtrl: malformed material")

	// ErrMissingTexture indicates a texture usage a shader variant requires is absent.
	ErrMissingTexture = errors.New("mtrl: missing texture")

	// ErrMissingConstant indicates a required shader constant is absent or too short.
	ErrMissingConstant = errors.New("mtrl: missing constant")

	// ErrMissingKey indicates a required shader key is absent.
	ErrMissingKey = errors.New("mtrl: missing shader key")

	// ErrMissingColorTable indicates a color-table-driven material without a table.
	ErrMissingColorTable = errors.New("mtrl: missing color table")
)
