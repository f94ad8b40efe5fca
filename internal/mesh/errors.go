package mesh

import "errors"

var (
	// ErrBoneOutOfRange is returned when a weighted influence names a bone
	// that the bone table or the caller's bone map cannot resolve.
	ErrBoneOutOfRange = errors.New("mesh: bone out of range")

	// ErrIndexOutOfRange is returned when an index or submesh range falls
	// outside the mesh.
	ErrIndexOutOfRange = errors.New("mesh: index out of range")

	// ErrUnsupportedElement is returned for vertex element types that cannot
	// carry the requested usage.
	ErrUnsupportedElement = errors.New("mesh: unsupported vertex element")

	// ErrNoPosition is returned for a declaration without positions.
	ErrNoPosition = errors.New("mesh: no position element")
)
