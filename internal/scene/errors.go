package scene

import "errors"

var (
	// ErrNoArmature indicates a character without an assembled armature.
	ErrNoArmature = errors.New("scene: character has no armature")

	// ErrNoModel indicates a model entry without a parsed file.
	ErrNoModel = errors.New("scene: model has no file")

	// ErrFrameOutOfRange indicates a timeline frame index that was never added.
	ErrFrameOutOfRange = errors.New("scene: timeline frame out of range")

	// ErrTimeOrder indicates a timeline frame earlier than the previous one.
	ErrTimeOrder = errors.New("scene: timeline frames out of order")
)
