package skeleton

import (
	"fmt"
	"strings"
)

// PoseMode selects how pose data is attached to bones.
type PoseMode int

const (
	PoseNone PoseMode = iota
	PoseLocalScaleOnly
	PoseLocal
)

func (m PoseMode) String() string {
	switch m {
	case PoseNone:
		return "none"
	case PoseLocalScaleOnly:
		return "scale"
	case PoseLocal:
		return "local"
	}
	return fmt.Sprintf("PoseMode(%d)", int(m))
}

// ParsePoseMode parses the String form of a PoseMode.
func ParsePoseMode(s string) (PoseMode, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return PoseNone, nil
	case "scale":
		return PoseLocalScaleOnly, nil
	case "local":
		return PoseLocal, nil
	}
	return PoseNone, fmt.Errorf("skeleton: unknown pose mode %q", s)
}

// Options controls assembly.
type Options struct {
	Pose PoseMode
}

// Assemble builds a single bone tree from the skeleton's partial skeletons.
// Bones repeated across partials (compared case-insensitively) are merged.
func Assemble(sk *Skeleton, opts Options) (*Armature, error) {
	a := &Armature{slots: make([][]*BoneNode, len(sk.PartialSkeletons))}
	byName := make(map[string]*BoneNode)

	for pi := range sk.PartialSkeletons {
		partial := &sk.PartialSkeletons[pi]
		hk := partial.HkSkeleton
		if hk == nil {
			continue
		}
		if len(hk.ParentIndices) != len(hk.BoneNames) || len(hk.ReferencePose) != len(hk.BoneNames) {
			return nil, fmt.Errorf("%w: partial %d has %d names, %d parents, %d reference transforms",
				ErrInvalidArmature, pi, len(hk.BoneNames), len(hk.ParentIndices), len(hk.ReferencePose))
		}
		for _, pose := range partial.Poses {
			if len(pose.Transforms) != len(hk.BoneNames) {
				return nil, fmt.Errorf("%w: partial %d pose has %d transforms for %d bones",
					ErrInvalidArmature, pi, len(pose.Transforms), len(hk.BoneNames))
			}
		}

		slots := make([]*BoneNode, len(hk.BoneNames))
		a.slots[pi] = slots
		for i, name := range hk.BoneNames {
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if existing, ok := byName[key]; ok {
				slots[i] = existing
				continue
			}
			if partial.ConnectedBoneIndex == i {
				return nil, fmt.Errorf("%w: %q at partial %d bone %d", ErrConnectedBoneRedeclared, name, pi, i)
			}

			bone := &BoneNode{
				Name:         name,
				PartialIndex: pi,
				BoneIndex:    i,
				Local:        hk.ReferencePose[i],
			}
			parent := int(hk.ParentIndices[i])
			switch {
			case parent == -1:
				if a.Root != nil {
					return nil, fmt.Errorf("%w: %q and %q", ErrMultipleRoots, a.Root.Name, name)
				}
				a.Root = bone
			case parent < 0 || parent >= len(slots) || slots[parent] == nil:
				return nil, fmt.Errorf("%w: %q has undeclared parent %d", ErrInvalidArmature, name, parent)
			default:
				slots[parent].AddChild(bone)
			}
			slots[i] = bone
			byName[key] = bone
			a.Bones = append(a.Bones, bone)
		}
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	if opts.Pose != PoseNone {
		for _, b := range a.Bones {
			applyPose(b, sk, opts.Pose)
		}
	}
	return a, nil
}

func applyPose(b *BoneNode, sk *Skeleton, mode PoseMode) {
	partial := sk.PartialSkeletons[b.PartialIndex]
	if len(partial.Poses) == 0 {
		return
	}
	b.TrackMode = mode
	b.Track = b.Track[:0]
	for _, pose := range partial.Poses {
		t := pose.Transforms[b.BoneIndex]
		if b.Parent == nil {
			t = t.WithScale(sk.Transform.Scale)
		}
		b.Track = append(b.Track, Keyframe{Time: pose.Time, Transform: t})
	}
}
