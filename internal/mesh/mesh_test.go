package mesh_test

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"scene-exporter/internal/mathutil"
	"scene-exporter/internal/mdl"
	"scene-exporter/internal/mdl/mdltest"
	"scene-exporter/internal/mesh"
	"scene-exporter/internal/pbd"
)

const vertexCount = 128

// stripModel has one skinned mesh of 128 vertices along X and 34 triangles.
func stripModel() mdltest.Model {
	m := mdltest.Mesh{BoneTable: 0}
	for i := 0; i < vertexCount; i++ {
		m.Positions = append(m.Positions, [3]float32{float32(i), 0, 0})
		m.Normals = append(m.Normals, [3]float32{0, 0, 2})
		m.Tangents = append(m.Tangents, [4]float32{1, 0, 0, 1})
		m.UVs = append(m.UVs, [2]float32{float32(i) / vertexCount, 0})
		m.BlendIndices = append(m.BlendIndices, [4]uint8{0, 1, 0, 0})
		m.BlendWeights = append(m.BlendWeights, [4]float32{0.5, 0.5, 0, 0})
	}
	for i := 0; i < 102; i++ {
		m.Indices = append(m.Indices, uint16(i))
	}
	m.Submeshes = []mdltest.Submesh{{Offset: 0, Count: 102, Attributes: 1}}
	return mdltest.Model{
		Bones:      []string{"n_root", "j_kosi"},
		BoneTables: [][]uint16{{0, 1}},
		Materials:  []string{"/mt_c0101e0001_top_a.mtrl"},
		Attributes: []string{"atr_tv_a"},
		Meshes:     []mdltest.Mesh{m},
		Shapes: []mdltest.Shape{
			{Name: "shp_brw_a", Meshes: []mdltest.ShapeMesh{{Mesh: 0, Values: []mdl.ShapeValue{{BaseIndicesIndex: 40, ReplacingVertexIndex: 120}}}}},
			{Name: "shp_none"},
		},
	}
}

func parse(t *testing.T, m mdltest.Model) *mdl.File {
	t.Helper()
	f, err := mdl.Parse(mdltest.Encode(m))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return f
}

func boneMap(known map[string]int) mesh.BoneMapFunc {
	return func(name string) (int, bool) {
		j, ok := known[name]
		return j, ok
	}
}

func TestBuildSkinned(t *testing.T) {
	f := parse(t, stripModel())
	m, err := mesh.Build(f, 0, mesh.BuildOptions{Bones: boneMap(map[string]int{"n_root": 0, "j_kosi": 5})})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if want := mesh.MakeKind(mesh.GeometryPNT, mesh.SurfaceUV, true); m.Kind != want {
		t.Errorf("Kind = %v, want %v", m.Kind, want)
	}
	if len(m.Vertices) != vertexCount || len(m.Indices) != 102 {
		t.Fatalf("got %d vertices %d indices", len(m.Vertices), len(m.Indices))
	}
	if len(m.Submeshes) != 1 || m.Submeshes[0].Offset != 0 || m.Submeshes[0].Count != 102 {
		t.Errorf("Submeshes = %+v", m.Submeshes)
	}
	if got := m.Submeshes[0].Attributes; len(got) != 1 || got[0] != "atr_tv_a" {
		t.Errorf("Attributes = %v", got)
	}

	v := m.Vertices[7]
	if v.Position != (mgl32.Vec3{7, 0, 0}) {
		t.Errorf("Position = %v", v.Position)
	}
	if !v.Normal.ApproxEqual(mgl32.Vec3{0, 0, 1}) {
		t.Errorf("Normal = %v, want unit Z", v.Normal)
	}
	if !v.Tangent.ApproxEqualThreshold(mgl32.Vec4{1, 0, 0, 1}, 1e-2) || v.Tangent[3] != 1 {
		t.Errorf("Tangent = %v", v.Tangent)
	}
	if v.Joints[0] != 0 || v.Joints[1] != 5 {
		t.Errorf("Joints = %v", v.Joints)
	}
	if !mgl32.FloatEqual(v.Weights[0]+v.Weights[1], 1) || !mgl32.FloatEqual(v.Weights[0], 0.5) {
		t.Errorf("Weights = %v", v.Weights)
	}
}

func TestBuildShapes(t *testing.T) {
	f := parse(t, stripModel())
	m, err := mesh.Build(f, 0, mesh.BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	targets, err := mesh.BuildShapes(f, m, 0, 0)
	if err != nil {
		t.Fatalf("BuildShapes: %v", err)
	}
	if len(targets) != 1 || targets[0].Name != "shp_brw_a" {
		t.Fatalf("targets = %+v", targets)
	}
	mv := targets[0].Vertices[0]
	if mv.Triangle != 13 || mv.Slot != 1 || mv.Index() != 40 {
		t.Errorf("morph vertex at triangle %d slot %d", mv.Triangle, mv.Slot)
	}
	if mv.Geometry.Position != (mgl32.Vec3{120, 0, 0}) {
		t.Errorf("replacement position = %v", mv.Geometry.Position)
	}
	if _, err := mesh.BuildShapes(f, m, 3, 0); !errors.Is(err, mesh.ErrIndexOutOfRange) {
		t.Errorf("bad submesh err = %v", err)
	}
}

// twoMeshModel has meshes of first and 50 vertices sharing the bone table
// [0,1,2], and one shape replacing base index 40 of mesh 0 with vertex 120.
func twoMeshModel(first int) mdltest.Model {
	line := func(n, indices int, y float32) mdltest.Mesh {
		m := mdltest.Mesh{BoneTable: 0}
		for i := 0; i < n; i++ {
			m.Positions = append(m.Positions, [3]float32{float32(i), y, 0})
			m.Normals = append(m.Normals, [3]float32{0, 0, 1})
			m.UVs = append(m.UVs, [2]float32{0, 0})
			m.BlendIndices = append(m.BlendIndices, [4]uint8{0, 1, 2, 0})
			m.BlendWeights = append(m.BlendWeights, [4]float32{0.5, 0.25, 0.25, 0})
		}
		for i := 0; i < indices; i++ {
			m.Indices = append(m.Indices, uint16(i%n))
		}
		m.Submeshes = []mdltest.Submesh{{Offset: 0, Count: uint32(indices)}}
		return m
	}
	return mdltest.Model{
		Bones:      []string{"n_root", "j_kosi", "j_sebo_a"},
		BoneTables: [][]uint16{{0, 1, 2}},
		Materials:  []string{"/mt_c0101e0001_top_a.mtrl"},
		Meshes:     []mdltest.Mesh{line(first, 102, 0), line(50, 48, 1)},
		Shapes: []mdltest.Shape{
			{Name: "shp_kos_a", Meshes: []mdltest.ShapeMesh{{Mesh: 0, Values: []mdl.ShapeValue{{BaseIndicesIndex: 40, ReplacingVertexIndex: 120}}}}},
		},
	}
}

func TestBuildShapesTwoMeshes(t *testing.T) {
	t.Run("replacement past vertex count", func(t *testing.T) {
		f := parse(t, twoMeshModel(100))
		m, err := mesh.Build(f, 0, mesh.BuildOptions{})
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if _, err := mesh.BuildShapes(f, m, 0, 0); !errors.Is(err, mesh.ErrIndexOutOfRange) {
			t.Errorf("err = %v, want ErrIndexOutOfRange for vertex 120 of 100", err)
		}
	})

	t.Run("replacement in range", func(t *testing.T) {
		f := parse(t, twoMeshModel(121))
		m, err := mesh.Build(f, 0, mesh.BuildOptions{})
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		targets, err := mesh.BuildShapes(f, m, 0, 0)
		if err != nil {
			t.Fatalf("BuildShapes: %v", err)
		}
		if len(targets) != 1 || len(targets[0].Vertices) != 1 {
			t.Fatalf("targets = %+v, want one morph vertex", targets)
		}
		mv := targets[0].Vertices[0]
		if mv.Triangle != 13 || mv.Slot != 1 {
			t.Errorf("morph vertex at triangle %d slot %d, want 13 slot 1", mv.Triangle, mv.Slot)
		}
		if mv.Geometry.Position != (mgl32.Vec3{120, 0, 0}) {
			t.Errorf("replacement position = %v, want vertex 120", mv.Geometry.Position)
		}

		second, err := mesh.Build(f, 1, mesh.BuildOptions{})
		if err != nil {
			t.Fatalf("Build mesh 1: %v", err)
		}
		if len(second.Vertices) != 50 {
			t.Errorf("mesh 1 vertices = %d, want 50", len(second.Vertices))
		}
		if targets, err := mesh.BuildShapes(f, second, 0, 0); err != nil || len(targets) != 0 {
			t.Errorf("mesh 1 targets = %v, %v, want none", targets, err)
		}
	})
}

func TestBuildShapesOutsideSubmesh(t *testing.T) {
	model := stripModel()
	model.Meshes[0].Submeshes = []mdltest.Submesh{{Offset: 0, Count: 39}, {Offset: 39, Count: 63}}
	f := parse(t, model)
	m, err := mesh.Build(f, 0, mesh.BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	first, err := mesh.BuildShapes(f, m, 0, 0)
	if err != nil || len(first) != 0 {
		t.Errorf("submesh 0 targets = %v, %v", first, err)
	}
	second, err := mesh.BuildShapes(f, m, 1, 0)
	if err != nil || len(second) != 1 {
		t.Fatalf("submesh 1 targets = %v, %v", second, err)
	}
	if mv := second[0].Vertices[0]; mv.Triangle != 0 || mv.Slot != 1 {
		t.Errorf("relative position = triangle %d slot %d", mv.Triangle, mv.Slot)
	}
}

func TestBuildStatic(t *testing.T) {
	model := stripModel()
	model.Meshes[0].Normals = nil
	model.Meshes[0].Tangents = nil
	model.Meshes[0].UVs = nil
	f := parse(t, model)
	m, err := mesh.Build(f, 0, mesh.BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.Kind != mesh.MakeKind(mesh.GeometryP, mesh.SurfaceColor, false) {
		t.Errorf("Kind = %v", m.Kind)
	}
	if m.Kind.String() != "P/Color/Static" {
		t.Errorf("String = %q", m.Kind.String())
	}
	if c := m.Vertices[0].Color; c != (mgl32.Vec4{1, 1, 1, 1}) {
		t.Errorf("default color = %v", c)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*mdltest.Model)
		bones  map[string]int
		want   error
	}{
		{"weighted unknown bone", nil, map[string]int{"n_root": 0}, mesh.ErrBoneOutOfRange},
		{"submesh past end", func(m *mdltest.Model) {
			m.Meshes[0].Submeshes = []mdltest.Submesh{{Offset: 60, Count: 60}}
		}, nil, mesh.ErrIndexOutOfRange},
		{"index past vertices", func(m *mdltest.Model) {
			m.Meshes[0].Indices[5] = vertexCount
		}, nil, mesh.ErrIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := stripModel()
			if tt.mutate != nil {
				tt.mutate(&model)
			}
			opts := mesh.BuildOptions{}
			if tt.bones != nil {
				opts.Bones = boneMap(tt.bones)
			}
			if _, err := mesh.Build(parse(t, model), 0, opts); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBuildSkipsZeroWeightUnknownBone(t *testing.T) {
	model := stripModel()
	for i := range model.Meshes[0].BlendWeights {
		model.Meshes[0].BlendWeights[i] = [4]float32{1, 0, 0, 0}
	}
	m, err := mesh.Build(parse(t, model), 0, mesh.BuildOptions{Bones: boneMap(map[string]int{"n_root": 3})})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if v := m.Vertices[0]; v.Joints[0] != 3 || v.Weights[0] != 1 || v.Weights[1] != 0 {
		t.Errorf("joints %v weights %v", v.Joints, v.Weights)
	}
}

func TestBuildDeform(t *testing.T) {
	shift := mathutil.AffineIdentity()
	shift[7] = 2
	chain := []*pbd.Deformer{{BoneNames: []string{"j_kosi"}, Matrices: []mathutil.Affine{shift}}}
	f := parse(t, stripModel())
	m, err := mesh.Build(f, 0, mesh.BuildOptions{
		Bones:  boneMap(map[string]int{"n_root": 0, "j_kosi": 1}),
		Deform: chain,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// Half the weight follows j_kosi up by 2, half stays on n_root.
	if got := m.Vertices[10].Position; !got.ApproxEqual(mgl32.Vec3{10, 1, 0}) {
		t.Errorf("deformed position = %v", got)
	}
}

func TestVertexKinds(t *testing.T) {
	seen := make(map[mesh.VertexKind]bool)
	for g := mesh.GeometryP; g <= mesh.GeometryPNT; g++ {
		for s := mesh.SurfaceColor; s <= mesh.SurfaceColorUV; s++ {
			for _, skinned := range []bool{false, true} {
				k := mesh.MakeKind(g, s, skinned)
				if k.Geometry() != g || k.Surface() != s || k.Skinned() != skinned {
					t.Errorf("MakeKind(%d, %d, %v) round trip = %v", g, s, skinned, k)
				}
				seen[k] = true
			}
		}
	}
	if len(seen) != mesh.KindCount {
		t.Errorf("distinct kinds = %d, want %d", len(seen), mesh.KindCount)
	}
}
