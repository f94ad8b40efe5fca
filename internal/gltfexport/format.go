// Package gltfexport writes a composed scene as glTF 2.0, either as a single
// binary GLB or as a JSON document with its textures beside it.
package gltfexport

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingTexture is returned when a material references a texture the
// blob source does not hold.
var ErrMissingTexture = errors.New("gltfexport: texture not found")

// Format selects the container.
type Format int

const (
	FormatGLB Format = iota
	FormatGLTF
)

// ParseFormat accepts "glb" and "gltf".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "glb":
		return FormatGLB, nil
	case "gltf":
		return FormatGLTF, nil
	}
	return FormatGLB, fmt.Errorf("gltfexport: unknown format %q", s)
}

func (f Format) String() string {
	if f == FormatGLTF {
		return "gltf"
	}
	return "glb"
}

// Ext returns the file extension, dot included.
func (f Format) Ext() string { return "." + f.String() }

// Blobs serves encoded texture bytes by sink reference.
type Blobs interface {
	Blob(ref string) ([]byte, bool)
}

// Options controls document generation.
type Options struct {
	Format    Format
	Generator string
}
