package skeleton

import (
	"fmt"

	"scene-exporter/internal/mathutil"
)

// AttachOptions controls attach resolution.
type AttachOptions struct {
	// Lenient grafts unresolvable attachments under the owner root instead
	// of failing.
	Lenient bool
}

// ResolveAttach grafts target's root under the owner bone named by a.
// Type 0 attaches are no-ops and return a nil bone. Only the first
// attachment is resolved; the rest are ignored. Resolving the same attach
// again does not duplicate the graft.
func ResolveAttach(owner, target *Armature, a Attach, opts AttachOptions) (*BoneNode, error) {
	if a.ExecuteType == AttachRoot {
		return nil, nil
	}
	if owner == nil || owner.Root == nil || target == nil || target.Root == nil {
		return nil, fmt.Errorf("%w: attach needs both armatures", ErrInvalidArmature)
	}

	var (
		parent *BoneNode
		offset = mathutil.Identity()
	)
	switch a.ExecuteType {
	case AttachAccessory, AttachWeapon:
		if len(a.Attachments) == 0 {
			parent = owner.Lookup(0, 0)
			break
		}
		att := a.Attachments[0]
		b, err := attachBone(owner, a, att.Mask)
		if err != nil {
			if !opts.Lenient {
				return nil, err
			}
			b = owner.Root
		}
		parent = b
		offset = att.Offset
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedAttach, a.ExecuteType)
	}
	if parent == nil {
		if !opts.Lenient {
			return nil, fmt.Errorf("%w: no owner bone at 0:0", ErrAttachBoneNotFound)
		}
		parent = owner.Root
	}

	Graft(parent, target.Root, offset)
	return parent, nil
}

// attachBone performs the owner-side lookup. Type 3 masks carry a raw bone
// index that is first matched against the owner's attach bone list; the
// position found selects the real mask from the parallel mask list.
func attachBone(owner *Armature, a Attach, mask BoneIndexMask) (*BoneNode, error) {
	if a.ExecuteType == AttachAccessory {
		sk := a.OwnerSkeleton
		if sk == nil {
			return nil, fmt.Errorf("%w: no owner skeleton", ErrAttachBoneNotFound)
		}
		idx := -1
		for i, bone := range sk.AttachBones {
			if int(bone) == mask.Bone() {
				idx = i
				break
			}
		}
		if idx < 0 || idx >= len(sk.BoneMasks) {
			return nil, fmt.Errorf("%w: attach bone %d", ErrAttachBoneNotFound, mask.Bone())
		}
		mask = sk.BoneMasks[idx]
	}
	b := owner.Lookup(mask.Partial(), mask.Bone())
	if b == nil {
		return nil, fmt.Errorf("%w: %d:%d", ErrAttachBoneNotFound, mask.Partial(), mask.Bone())
	}
	return b, nil
}

// Graft parents root under parent with offset as its local transform. A root
// with a pose track has its first keyframe replaced by the offset too.
func Graft(parent, root *BoneNode, offset mathutil.Transform) {
	root.Local = offset
	if len(root.Track) > 0 {
		root.Track[0].Transform = offset
	}
	parent.AddChild(root)
}
