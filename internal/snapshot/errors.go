package snapshot

import "errors"

var (
	// ErrVersion is returned for snapshots written by a newer format.
	ErrVersion = errors.New("snapshot: unsupported version")

	// ErrDuplicateID is returned when two characters or two instances share
	// an id.
	ErrDuplicateID = errors.New("snapshot: duplicate id")

	// ErrUnknownID is returned for attach parents, layout roots or layout
	// children that name no record.
	ErrUnknownID = errors.New("snapshot: unknown id")

	// ErrAttachCycle is returned when attach links form a cycle.
	ErrAttachCycle = errors.New("snapshot: attach cycle")

	// ErrLightType is returned for layout lights of an unknown type.
	ErrLightType = errors.New("snapshot: unknown light type")
)
