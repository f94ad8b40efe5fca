package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"scene-exporter/internal/mdl"
	"scene-exporter/internal/mesh"
)

// buildMesh splits a decoded mesh into one primitive per non-empty submesh.
// Each primitive gets its own compacted vertex list and the morph targets
// of its submesh, expressed as deltas from the base vertices.
func buildMesh(name string, f *mdl.File, m *mesh.Mesh, lod, mat int) (*Mesh, error) {
	out := &Mesh{Name: name}
	known := make(map[string]bool)
	var perPrim []map[string]Target

	for si, sub := range m.Submeshes {
		idx := m.SubmeshIndices(si)
		if len(idx) == 0 {
			continue
		}
		p := Primitive{
			Kind:       m.Kind,
			Material:   mat,
			Attributes: sub.Attributes,
			Indices:    make([]uint32, len(idx)),
		}
		remap := make(map[uint16]uint32, len(idx))
		for i, vi := range idx {
			j, ok := remap[vi]
			if !ok {
				j = uint32(len(p.Vertices))
				remap[vi] = j
				p.Vertices = append(p.Vertices, m.Vertices[vi])
			}
			p.Indices[i] = j
		}

		shapes, err := mesh.BuildShapes(f, m, si, lod)
		if err != nil {
			return nil, err
		}
		targets := make(map[string]Target, len(shapes))
		for _, sh := range shapes {
			t := emptyTarget(sh.Name, len(p.Vertices))
			for _, mv := range sh.Vertices {
				j := p.Indices[mv.Index()]
				base := p.Vertices[j]
				t.Positions[j] = mv.Geometry.Position.Sub(base.Position)
				t.Normals[j] = mv.Geometry.Normal.Sub(base.Normal)
			}
			targets[sh.Name] = t
			if !known[sh.Name] {
				known[sh.Name] = true
				out.TargetNames = append(out.TargetNames, sh.Name)
			}
		}
		perPrim = append(perPrim, targets)
		out.Primitives = append(out.Primitives, p)
	}

	for i := range out.Primitives {
		p := &out.Primitives[i]
		for _, name := range out.TargetNames {
			t, ok := perPrim[i][name]
			if !ok {
				t = emptyTarget(name, len(p.Vertices))
			}
			p.Targets = append(p.Targets, t)
		}
	}
	return out, nil
}

func emptyTarget(name string, n int) Target {
	return Target{Name: name, Positions: make([]mgl32.Vec3, n), Normals: make([]mgl32.Vec3, n)}
}

// Skinned reports whether any primitive carries joint weights.
func (m *Mesh) Skinned() bool {
	for _, p := range m.Primitives {
		if p.Kind.Skinned() {
			return true
		}
	}
	return false
}
