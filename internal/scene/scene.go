// Package scene composes armatures, meshes and materials into a
// format-agnostic node graph for the exporters.
package scene

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"scene-exporter/internal/material"
	"scene-exporter/internal/mathutil"
	"scene-exporter/internal/mesh"
)

// None marks an absent node, mesh, skin or material reference.
const None = -1

// Node is one scene node. Parent is None for roots.
type Node struct {
	Name     string
	Parent   int
	Children []int
	Local    mathutil.Transform
	Mesh     int
	Skin     int
	Light    int
	Extras   map[string]any
}

// Target is one morph target of a primitive. Deltas are indexed like the
// primitive's vertices.
type Target struct {
	Name      string
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
}

// Primitive is one submesh with its own compacted vertex list.
type Primitive struct {
	Kind       mesh.VertexKind
	Vertices   []mesh.Vertex
	Indices    []uint32
	Material   int
	Attributes []string
	Targets    []Target
}

// Mesh groups primitives. Every primitive carries one target per entry of
// TargetNames, in the same order.
type Mesh struct {
	Name        string
	Primitives  []Primitive
	TargetNames []string
}

// Skin binds joints to a mesh. InverseBinds is parallel to Joints.
type Skin struct {
	Name         string
	Skeleton     int
	Joints       []int
	InverseBinds []mgl32.Mat4
}

// Channel animates one node. Keys are sorted by time.
type Channel struct {
	Node int
	Keys []Key
}

// Key is one sampled transform.
type Key struct {
	Time      float32
	Transform mathutil.Transform
}

// Animation is a named set of channels.
type Animation struct {
	Name     string
	Channels []Channel
}

// Light kinds.
const (
	LightPoint       = "point"
	LightSpot        = "spot"
	LightDirectional = "directional"
)

// Light is a punctual light. Range 0 is unbounded. The cone angles are in
// radians and only apply to spot lights.
type Light struct {
	Name      string
	Type      string
	Color     mgl32.Vec3
	Intensity float32
	Range     float32
	InnerCone float32
	OuterCone float32
}

// Scene is the composed graph.
type Scene struct {
	Nodes      []*Node
	Meshes     []*Mesh
	Skins      []*Skin
	Materials  []*material.Material
	Animations []*Animation
	Lights     []*Light
}

// AddNode appends a node under parent and returns its index.
func (s *Scene) AddNode(name string, parent int, local mathutil.Transform) int {
	i := len(s.Nodes)
	s.Nodes = append(s.Nodes, &Node{Name: name, Parent: parent, Local: local, Mesh: None, Skin: None, Light: None})
	if parent != None {
		s.Nodes[parent].Children = append(s.Nodes[parent].Children, i)
	}
	return i
}

// Roots returns the indices of parentless nodes.
func (s *Scene) Roots() []int {
	var out []int
	for i, n := range s.Nodes {
		if n.Parent == None {
			out = append(out, i)
		}
	}
	return out
}

// WorldFrom returns the matrix of node relative to ancestor. Pass None for
// the scene root.
func (s *Scene) WorldFrom(node, ancestor int) mgl32.Mat4 {
	m := mgl32.Ident4()
	for i := node; i != None && i != ancestor; i = s.Nodes[i].Parent {
		m = s.Nodes[i].Local.Matrix().Mul4(m)
	}
	return m
}

// Textures returns every texture referenced by the scene's materials,
// ordered by reference.
func (s *Scene) Textures() []material.TextureRef {
	seen := make(map[string]material.TextureRef)
	for _, m := range s.Materials {
		for _, ref := range m.Channels {
			seen[ref.Ref] = ref
		}
	}
	out := make([]material.TextureRef, 0, len(seen))
	for _, ref := range seen {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out
}
