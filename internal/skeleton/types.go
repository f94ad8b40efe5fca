// Package skeleton assembles bone trees from partial skeleton records and
// resolves attachments between skeletons.
package skeleton

import "scene-exporter/internal/mathutil"

// HkSkeleton is the bone layout of one partial skeleton.
type HkSkeleton struct {
	BoneNames     []string             `json:"bone_names"`
	ParentIndices []int16              `json:"parent_indices"`
	ReferencePose []mathutil.Transform `json:"reference_pose"`
}

// Pose is one sampled set of local transforms, one per bone.
type Pose struct {
	Time       float32              `json:"time"`
	Transforms []mathutil.Transform `json:"transforms"`
}

// PartialSkeleton is one chainable segment of a skeleton.
type PartialSkeleton struct {
	HandlePath         string      `json:"handle_path"`
	HkSkeleton         *HkSkeleton `json:"hk_skeleton,omitempty"`
	ConnectedBoneIndex int         `json:"connected_bone_index"`
	Poses              []Pose      `json:"poses,omitempty"`
}

// BoneIndexMask packs a partial skeleton index (bits 16-23) and a bone
// index (bits 0-15).
type BoneIndexMask uint32

// PackMask builds a BoneIndexMask.
func PackMask(partial uint8, bone uint16) BoneIndexMask {
	return BoneIndexMask(uint32(partial)<<16 | uint32(bone))
}

// Partial returns the partial skeleton index.
func (m BoneIndexMask) Partial() int { return int(m >> 16 & 0xFF) }

// Bone returns the bone index inside the partial skeleton.
func (m BoneIndexMask) Bone() int { return int(m & 0xFFFF) }

// Skeleton is a full skeleton record with its owner-side attach tables.
// AttachBones holds raw bone indices; BoneMasks is parallel to it.
type Skeleton struct {
	Transform        mathutil.Transform `json:"transform"`
	PartialSkeletons []PartialSkeleton  `json:"partial_skeletons"`
	AttachBones      []uint16           `json:"attach_bones,omitempty"`
	BoneMasks        []BoneIndexMask    `json:"bone_masks,omitempty"`
}

// Attach execute types.
const (
	AttachRoot      = 0
	AttachAccessory = 3
	AttachWeapon    = 4
)

// Attachment is one bone attachment of an Attach record.
type Attachment struct {
	Mask   BoneIndexMask      `json:"mask"`
	Offset mathutil.Transform `json:"offset"`
}

// Attach links a target skeleton to a bone of its owner.
type Attach struct {
	ExecuteType    int          `json:"execute_type"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	OwnerSkeleton  *Skeleton    `json:"-"`
	TargetSkeleton *Skeleton    `json:"-"`
}
