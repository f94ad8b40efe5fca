package skeleton

import "errors"

var (
	// ErrMultipleRoots is returned when a second parentless bone is declared.
	ErrMultipleRoots = errors.New("skeleton: multiple root bones")

	// ErrConnectedBoneRedeclared is returned when a partial skeleton's
	// connected bone was not declared by an earlier partial.
	ErrConnectedBoneRedeclared = errors.New("skeleton: connected bone declared as a new bone")

	// ErrInvalidArmature is returned when bones do not form a single tree.
	ErrInvalidArmature = errors.New("skeleton: invalid armature")

	// ErrAttachBoneNotFound is returned when an attach point cannot be resolved.
	ErrAttachBoneNotFound = errors.New("skeleton: attach bone not found")

	// ErrUnsupportedAttach is returned for unknown attach execute types.
	ErrUnsupportedAttach = errors.New("skeleton: unsupported attach type")
)
