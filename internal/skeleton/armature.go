package skeleton

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"scene-exporter/internal/mathutil"
)

// Keyframe is one sample of a bone's pose track.
type Keyframe struct {
	Time      float32
	Transform mathutil.Transform
}

// BoneNode is one bone of an assembled armature.
type BoneNode struct {
	Name         string
	Suffix       string
	PartialIndex int
	BoneIndex    int
	Local        mathutil.Transform
	Parent       *BoneNode
	Children     []*BoneNode

	// Track holds pose keyframes; TrackMode says which components apply.
	Track     []Keyframe
	TrackMode PoseMode
}

// DisplayName is the bone name with its instance suffix, if any.
func (b *BoneNode) DisplayName() string {
	if b.Suffix == "" {
		return b.Name
	}
	return b.Name + "_" + b.Suffix
}

// AddChild parents c under b. Adding an existing child is a no-op.
func (b *BoneNode) AddChild(c *BoneNode) {
	if c.Parent != nil && c.Parent != b {
		c.Parent.removeChild(c)
	}
	c.Parent = b
	for _, existing := range b.Children {
		if existing == c {
			return
		}
	}
	b.Children = append(b.Children, c)
}

func (b *BoneNode) removeChild(c *BoneNode) {
	for i, existing := range b.Children {
		if existing == c {
			b.Children = append(b.Children[:i], b.Children[i+1:]...)
			return
		}
	}
}

// World returns the bone's model-space matrix.
func (b *BoneNode) World() mgl32.Mat4 {
	m := b.Local.Matrix()
	for p := b.Parent; p != nil; p = p.Parent {
		m = p.Local.Matrix().Mul4(m)
	}
	return m
}

// Walk visits b and its descendants depth first. It stops descending into
// nodes already seen.
func (b *BoneNode) Walk(fn func(*BoneNode)) {
	seen := make(map[*BoneNode]bool)
	stack := []*BoneNode{b}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		fn(n)
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// Armature is an assembled bone tree.
type Armature struct {
	Root  *BoneNode
	Bones []*BoneNode // deduplicated, in declaration order

	// slots maps (partial, bone index) to nodes, aliases included.
	slots [][]*BoneNode
}

// Lookup returns the node declared at (partial, bone), aliases included.
func (a *Armature) Lookup(partial, bone int) *BoneNode {
	if partial < 0 || partial >= len(a.slots) || bone < 0 || bone >= len(a.slots[partial]) {
		return nil
	}
	return a.slots[partial][bone]
}

// FindByName returns the bone with the given name, ignoring case.
func (a *Armature) FindByName(name string) *BoneNode {
	for _, b := range a.Bones {
		if strings.EqualFold(b.Name, name) {
			return b
		}
	}
	return nil
}

// Count returns the number of nodes reachable from the root, grafted
// skeletons included.
func (a *Armature) Count() int {
	if a.Root == nil {
		return 0
	}
	n := 0
	a.Root.Walk(func(*BoneNode) { n++ })
	return n
}

// WorldMatrices returns the model-space matrix of every bone, indexed like Bones.
func (a *Armature) WorldMatrices() []mgl32.Mat4 {
	index := make(map[*BoneNode]int, len(a.Bones))
	for i, b := range a.Bones {
		index[b] = i
	}
	worlds := make([]mgl32.Mat4, len(a.Bones))
	done := make([]bool, len(a.Bones))
	var resolve func(i int) mgl32.Mat4
	resolve = func(i int) mgl32.Mat4 {
		if done[i] {
			return worlds[i]
		}
		b := a.Bones[i]
		local := b.Local.Matrix()
		if pi, ok := index[b.Parent]; ok && b.Parent != nil {
			worlds[i] = resolve(pi).Mul4(local)
		} else if b.Parent != nil {
			worlds[i] = b.Parent.World().Mul4(local)
		} else {
			worlds[i] = local
		}
		done[i] = true
		return worlds[i]
	}
	for i := range a.Bones {
		resolve(i)
	}
	return worlds
}

// SetSuffix renames the armature's whole tree with a numeric instance suffix,
// used when the same skeleton is attached more than once.
func (a *Armature) SetSuffix(n int) {
	if a.Root == nil {
		return
	}
	s := fmt.Sprint(n)
	a.Root.Walk(func(b *BoneNode) { b.Suffix = s })
}

// ClearSuffix removes instance suffixes from the whole tree.
func (a *Armature) ClearSuffix() {
	if a.Root == nil {
		return
	}
	a.Root.Walk(func(b *BoneNode) { b.Suffix = "" })
}

// Validate checks that the bones form one connected acyclic tree.
func (a *Armature) Validate() error {
	if a.Root == nil {
		return fmt.Errorf("%w: no root", ErrInvalidArmature)
	}
	if a.Root.Parent != nil {
		return fmt.Errorf("%w: root %q has a parent", ErrInvalidArmature, a.Root.Name)
	}
	seen := make(map[*BoneNode]bool, len(a.Bones))
	stack := []*BoneNode{a.Root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			return fmt.Errorf("%w: cycle at %q", ErrInvalidArmature, n.Name)
		}
		seen[n] = true
		for _, c := range n.Children {
			if c.Parent != n {
				return fmt.Errorf("%w: %q lists %q as child but its parent differs", ErrInvalidArmature, n.Name, c.Name)
			}
			stack = append(stack, c)
		}
	}
	for _, b := range a.Bones {
		if !seen[b] {
			return fmt.Errorf("%w: %q is not reachable from root %q", ErrInvalidArmature, b.Name, a.Root.Name)
		}
	}
	return nil
}
