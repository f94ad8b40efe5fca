package mdl_test

import (
	"errors"
	"testing"

	"scene-exporter/internal/mdl"
	"scene-exporter/internal/mdl/mdltest"
)

func triangleModel(version uint32) mdltest.Model {
	return mdltest.Model{
		Version:    version,
		Bones:      []string{"n_root", "j_kosi", "j_sebo_a"},
		BoneTables: [][]uint16{{0, 1, 2}},
		Materials:  []string{"/mt_c0101e0001_top_a.mtrl"},
		Attributes: []string{"atr_tv_a", "atr_tv_b"},
		Meshes: []mdltest.Mesh{{
			Positions:    [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}},
			Normals:      [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
			UVs:          [][2]float32{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
			BlendIndices: [][4]uint8{{0, 0, 0, 0}, {1, 0, 0, 0}, {2, 0, 0, 0}, {1, 2, 0, 0}},
			BlendWeights: [][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}, {0.5, 0.5, 0, 0}},
			Indices:      []uint16{0, 1, 2, 2, 1, 3},
			Submeshes:    []mdltest.Submesh{{Offset: 0, Count: 3, Attributes: 1}, {Offset: 3, Count: 3, Attributes: 2}},
			BoneTable:    0,
		}},
		Shapes: []mdltest.Shape{{
			Name:   "shp_open",
			Meshes: []mdltest.ShapeMesh{{Mesh: 0, Values: []mdl.ShapeValue{{BaseIndicesIndex: 1, ReplacingVertexIndex: 3}}}},
		}},
	}
}

func TestParseVersions(t *testing.T) {
	for _, version := range []uint32{mdl.Version5, mdl.Version6} {
		data := mdltest.Encode(triangleModel(version))
		f, err := mdl.Parse(data)
		if err != nil {
			t.Fatalf("version %#x: %v", version, err)
		}
		if f.Model.MeshCount != 1 || f.Model.SubmeshCount != 2 {
			t.Fatalf("version %#x: counts = %d meshes %d submeshes", version, f.Model.MeshCount, f.Model.SubmeshCount)
		}
		if got := f.BoneTables[0].BoneIndex; len(got) != 3 || got[2] != 2 {
			t.Fatalf("version %#x: bone table = %v", version, got)
		}
		bones, err := f.BoneNames()
		if err != nil {
			t.Fatal(err)
		}
		if bones[1] != "j_kosi" {
			t.Fatalf("bones = %v", bones)
		}
		shapes, err := f.ShapeNames()
		if err != nil || shapes[0] != "shp_open" {
			t.Fatalf("shapes = %v, %v", shapes, err)
		}
		if err := f.Validate(0); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}
}

func TestParseBuffers(t *testing.T) {
	f, err := mdl.Parse(mdltest.Encode(triangleModel(0)))
	if err != nil {
		t.Fatal(err)
	}
	idx, err := f.IndexBuffer(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(idx) != 6 || idx[5] != 3 {
		t.Fatalf("indices = %v", idx)
	}
	streams, err := f.VertexStreams(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(streams[0]) != 4*20 {
		t.Fatalf("stream 0 length = %d", len(streams[0]))
	}
	decl, err := f.Declaration(0)
	if err != nil {
		t.Fatal(err)
	}
	if !decl.Has(mdl.UsageNormal, 0) || !decl.Has(mdl.UsageTexCoord, 0) || decl.Has(mdl.UsageColor, 0) {
		t.Fatalf("unexpected declaration %+v", decl)
	}
	attrs, err := f.SubmeshAttributes(f.Submeshes[1])
	if err != nil || len(attrs) != 1 || attrs[0] != "atr_tv_b" {
		t.Fatalf("attributes = %v, %v", attrs, err)
	}
}

func TestValidateRejectsBadIndex(t *testing.T) {
	m := triangleModel(0)
	m.Meshes[0].Indices[4] = 9
	f, err := mdl.Parse(mdltest.Encode(m))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Validate(0); !errors.Is(err, mdl.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestValidateRejectsSubmeshOutsideMesh(t *testing.T) {
	m := triangleModel(0)
	m.Meshes[0].Submeshes[1].Count = 6
	f, err := mdl.Parse(mdltest.Encode(m))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Validate(0); !errors.Is(err, mdl.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestParseRejectsVersion(t *testing.T) {
	data := mdltest.Encode(triangleModel(0))
	data[0] = 0x07
	if _, err := mdl.Parse(data); !errors.Is(err, mdl.ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestParseTruncated(t *testing.T) {
	data := mdltest.Encode(triangleModel(0))
	if _, err := mdl.Parse(data[:120]); err == nil {
		t.Fatal("expected error for truncated file")
	}
}
