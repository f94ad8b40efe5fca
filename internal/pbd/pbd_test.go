package pbd

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"scene-exporter/internal/mathutil"
)

type race struct {
	id     uint16
	parent int // index into races, -1 for none
	bones  []string
	mats   []mathutil.Affine
}

// encode lays out headers, links, then one deformer block per race that has bones.
func encode(races []race) []byte {
	n := len(races)
	tables := 4 + n*12 + n*8
	var blocks []byte
	offsets := make([]int32, n)
	for i, r := range races {
		if len(r.bones) == 0 {
			continue
		}
		start := tables + len(blocks)
		offsets[i] = int32(start)
		fixed := 4 + len(r.bones)*2 + len(r.bones)*2%4 + len(r.bones)*48
		block := binary.LittleEndian.AppendUint32(nil, uint32(len(r.bones)))
		var names []byte
		for _, name := range r.bones {
			block = binary.LittleEndian.AppendUint16(block, uint16(fixed+len(names)))
			names = append(append(names, name...), 0)
		}
		block = append(block, make([]byte, len(r.bones)*2%4)...)
		for _, m := range r.mats {
			for _, v := range m {
				block = binary.LittleEndian.AppendUint32(block, math.Float32bits(v))
			}
		}
		block = append(block, names...)
		for len(block)%4 != 0 {
			block = append(block, 0)
		}
		blocks = append(blocks, block...)
	}

	out := binary.LittleEndian.AppendUint32(nil, uint32(n))
	for i, r := range races {
		out = binary.LittleEndian.AppendUint16(out, r.id)
		out = binary.LittleEndian.AppendUint16(out, uint16(i))
		out = binary.LittleEndian.AppendUint32(out, uint32(offsets[i]))
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(1))
	}
	for i, r := range races {
		parent := uint16(NoLink)
		if r.parent >= 0 {
			parent = uint16(r.parent)
		}
		out = binary.LittleEndian.AppendUint16(out, parent)
		out = binary.LittleEndian.AppendUint16(out, NoLink)
		out = binary.LittleEndian.AppendUint16(out, NoLink)
		out = binary.LittleEndian.AppendUint16(out, uint16(i))
	}
	return append(out, blocks...)
}

func translate(x float32) mathutil.Affine {
	m := mathutil.AffineIdentity()
	m[3] = x
	return m
}

func scale(s float32) mathutil.Affine {
	m := mathutil.AffineIdentity()
	m[0], m[5], m[10] = s, s, s
	return m
}

func sample(t *testing.T) *File {
	t.Helper()
	f, err := Parse(encode([]race{
		{id: 101, parent: -1, bones: []string{"n_root"}, mats: []mathutil.Affine{mathutil.AffineIdentity()}},
		{id: 201, parent: 0, bones: []string{"j_kosi", "j_sebo_a", "j_sebo_b"}, mats: []mathutil.Affine{translate(1), translate(2), translate(3)}},
		{id: 301, parent: 1, bones: []string{"j_kosi"}, mats: []mathutil.Affine{scale(2)}},
		{id: 401, parent: 0},
	}))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return f
}

func TestParse(t *testing.T) {
	f := sample(t)
	if len(f.Headers) != 4 || len(f.Links) != 4 {
		t.Fatalf("headers %d links %d", len(f.Headers), len(f.Links))
	}
	if len(f.Deformers) != 3 {
		t.Errorf("len(Deformers) = %d, want 3", len(f.Deformers))
	}
	d := f.Deformers[f.Headers[1].Offset]
	if got := d.BoneNames; len(got) != 3 || got[0] != "j_kosi" || got[2] != "j_sebo_b" {
		t.Errorf("BoneNames = %q", got)
	}
	if m, ok := d.Matrix("j_sebo_a"); !ok || m[3] != 2 {
		t.Errorf("Matrix(j_sebo_a) = %v, %v", m, ok)
	}
	if _, ok := d.Matrix("J_KOSI"); ok {
		t.Error("Matrix matched case-insensitively")
	}
}

func TestParseMalformed(t *testing.T) {
	data := encode([]race{{id: 101, parent: -1, bones: []string{"a"}, mats: []mathutil.Affine{translate(1)}}})
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"huge count", []byte{0xFF, 0xFF, 0, 0}},
		{"truncated deformer", data[:len(data)-20]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.data); err == nil {
				t.Error("Parse succeeded")
			}
		})
	}
}

func TestChain(t *testing.T) {
	f := sample(t)
	chain, err := f.Chain(101, 301)
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if len(chain) != 2 || chain[0] != f.Deformers[f.Headers[1].Offset] || chain[1] != f.Deformers[f.Headers[2].Offset] {
		t.Errorf("Chain(101, 301) has wrong order: %v", chain)
	}
	if chain, err := f.Chain(201, 201); err != nil || len(chain) != 0 {
		t.Errorf("Chain(201, 201) = %v, %v", chain, err)
	}
	if _, err := f.Chain(201, 101); !errors.Is(err, ErrNoParent) {
		t.Errorf("Chain(201, 101) err = %v, want ErrNoParent", err)
	}
	if _, err := f.Chain(101, 401); !errors.Is(err, ErrNoDeformer) {
		t.Errorf("Chain(101, 401) err = %v, want ErrNoDeformer", err)
	}
	if _, err := f.Chain(101, 999); !errors.Is(err, ErrNoDeformer) {
		t.Errorf("Chain(101, 999) err = %v, want ErrNoDeformer", err)
	}
}

func TestDeform(t *testing.T) {
	f := sample(t)
	chain, err := f.Chain(101, 301)
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	parents := map[string]string{"j_kosi_child": "j_kosi"}
	parent := func(b string) (string, bool) { p, ok := parents[b]; return p, ok }

	tests := []struct {
		name  string
		chain []*Deformer
		in    []Influence
		want  mgl32.Vec3
	}{
		{"chain order", chain, []Influence{{"j_kosi", 1}}, mgl32.Vec3{4, 0, 0}},
		{"parent fallback", chain, []Influence{{"j_kosi_child", 1}}, mgl32.Vec3{4, 0, 0}},
		{"identity fallback", chain[:1], []Influence{{"j_kosi", 0.5}, {"n_hara", 0.5}}, mgl32.Vec3{1.5, 0, 0}},
		{"zero weight skipped", chain[:1], []Influence{{"j_sebo_b", 1}, {"j_sebo_a", 0}}, mgl32.Vec3{4, 0, 0}},
		{"empty chain", nil, []Influence{{"j_kosi", 1}}, mgl32.Vec3{1, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Deform(tt.chain, mgl32.Vec3{1, 0, 0}, tt.in, parent)
			if !got.ApproxEqual(tt.want) {
				t.Errorf("Deform = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveIdentity(t *testing.T) {
	d := &Deformer{}
	if m := Resolve(d, "j_kosi", nil); !m.IsIdentity() {
		t.Errorf("Resolve = %v, want identity", m)
	}
	loop := func(b string) (string, bool) { return b, true }
	if m := Resolve(d, "j_kosi", loop); !m.IsIdentity() {
		t.Errorf("Resolve with parent loop = %v, want identity", m)
	}
}

func TestRaceCode(t *testing.T) {
	tests := []struct {
		path string
		want uint16
		ok   bool
	}{
		{"chara/human/c0101/obj/body/b0001/model/c0101b0001_top.mdl", 101, true},
		{"chara/equipment/e0001/model/c1401e0001_met.mdl", 1401, true},
		{"chara/weapon/w0101/obj/body/b0001/model/w0101b0001.mdl", 0, false},
		{"bgcommon/abc1234.mdl", 0, false},
		{"x/c12.mdl", 0, false},
		{"mt_c0801_a.mtrl", 801, true},
	}
	for _, tt := range tests {
		got, ok := RaceCode(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("RaceCode(%q) = %d, %v, want %d, %v", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}
