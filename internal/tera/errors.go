package tera

import "errors"

// ErrMalformed indicates a structurally invalid terrain file.
var ErrMalformed = errors.New("tera: malformed file")
