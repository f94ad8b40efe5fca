package pbd

import "errors"

var (
	// ErrMalformed indicates a structurally invalid deformer file.
	ErrMalformed = errors.New("pbd: malformed file")

	// ErrNoDeformer is returned when a race code has no deformer data.
	ErrNoDeformer = errors.New("pbd: no deformer for race")

	// ErrNoParent is returned when a chain runs out of parent links before
	// reaching the source race.
	ErrNoParent = errors.New("pbd: no parent link")
)
