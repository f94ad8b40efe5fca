package mesh

import (
	"fmt"

	"scene-exporter/internal/mdl"
)

// MorphVertex replaces the vertex at corner Slot of triangle Triangle,
// counted from the start of the submesh.
type MorphVertex struct {
	Triangle int
	Slot     int
	Geometry Vertex
}

// MorphTarget is one named shape of a submesh.
type MorphTarget struct {
	Name     string
	Vertices []MorphVertex
}

// Index returns the submesh-relative index buffer position of mv.
func (mv MorphVertex) Index() int { return mv.Triangle*3 + mv.Slot }

// BuildShapes collects the morph targets of submesh sub of m at lod. Shapes
// without entries inside the submesh are omitted. Replacement indices address
// m's own vertices; one at or past len(m.Vertices) fails with
// ErrIndexOutOfRange.
func BuildShapes(f *mdl.File, m *Mesh, sub, lod int) ([]MorphTarget, error) {
	if sub < 0 || sub >= len(m.Submeshes) {
		return nil, fmt.Errorf("%w: submesh %d of %d", ErrIndexOutOfRange, sub, len(m.Submeshes))
	}
	if len(f.Shapes) == 0 {
		return nil, nil
	}
	names, err := f.ShapeNames()
	if err != nil {
		return nil, err
	}
	s := m.Submeshes[sub]
	start, end := int(s.Offset), int(s.Offset+s.Count)

	var targets []MorphTarget
	for si, shape := range f.Shapes {
		var verts []MorphVertex
		for _, sm := range f.ShapeMeshesFor(shape, lod, m.Index) {
			values, err := f.Values(sm)
			if err != nil {
				return nil, err
			}
			for _, v := range values {
				base := int(v.BaseIndicesIndex)
				if base < start || base >= end {
					continue
				}
				if int(v.ReplacingVertexIndex) >= len(m.Vertices) {
					return nil, fmt.Errorf("%w: shape %q replaces vertex %d of %d",
						ErrIndexOutOfRange, names[si], v.ReplacingVertexIndex, len(m.Vertices))
				}
				rel := base - start
				verts = append(verts, MorphVertex{
					Triangle: rel / 3,
					Slot:     rel % 3,
					Geometry: m.Vertices[v.ReplacingVertexIndex],
				})
			}
		}
		if len(verts) == 0 {
			continue
		}
		targets = append(targets, MorphTarget{Name: names[si], Vertices: verts})
	}
	return targets, nil
}
