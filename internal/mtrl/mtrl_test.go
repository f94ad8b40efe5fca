package mtrl_test

import (
	"errors"
	"testing"

	"scene-exporter/internal/mtrl"
	"scene-exporter/internal/mtrl/mtrltest"
)

func characterMaterial() mtrltest.Material {
	rows := make([]mtrl.ColorTableRow, mtrl.StandardRows)
	for i := range rows {
		v := float32(i) / 32
		rows[i] = mtrl.ColorTableRow{
			Diffuse:   [3]float32{v, v, v},
			Specular:  [3]float32{1, 0.5, 0.25},
			Emissive:  [3]float32{0, 0, v},
			Roughness: 0.5,
			TileIndex: uint16(i % 4),
			TileAlpha: 1,
			ShaderID:  uint16(i),
		}
	}
	return mtrltest.Material{
		ShaderPackage: "character.shpk",
		Textures: []mtrltest.Texture{
			{Path: "chara/equipment/e0001/texture/v01_c0101e0001_top_n.tex", Usage: mtrl.SamplerNormal},
			{Path: "chara/equipment/e0001/texture/v01_c0101e0001_top_m.tex", Usage: mtrl.SamplerMask},
			{Path: "chara/equipment/e0001/texture/v01_c0101e0001_top_id.tex", Usage: mtrl.SamplerIndex},
			{Path: "chara/equipment/e0001/texture/duplicate_n.tex", Usage: mtrl.SamplerNormal},
		},
		Keys: map[uint32]uint32{mtrl.CategoryTextureType: mtrl.TextureCompat},
		Constants: map[uint32][]float32{
			mtrl.ConstAlphaThreshold: {0.5},
			mtrl.ConstDiffuseColor:   {1, 0.5, 0.25},
		},
		Flags: mtrl.FlagEnableTranslucency,
		Table: &mtrltest.Table{Rows: rows, Dye: []uint32{1<<16 | 1<<27 | 0x5}},
	}
}

func TestParseMaterial(t *testing.T) {
	f, err := mtrl.Parse(mtrltest.Encode(characterMaterial()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	shpk, err := f.ShaderPackage()
	if err != nil || shpk != "character.shpk" {
		t.Fatalf("ShaderPackage = %q, %v", shpk, err)
	}
	if len(f.Samplers) != 4 || len(f.ShaderKeys) != 1 || len(f.Constants) != 2 {
		t.Fatalf("tables: samplers %d keys %d constants %d", len(f.Samplers), len(f.ShaderKeys), len(f.Constants))
	}
	if f.ColorTable == nil || f.ColorTable.Legacy || len(f.ColorTable.Rows) != mtrl.StandardRows {
		t.Fatalf("color table = %+v", f.ColorTable)
	}
	row := f.ColorTable.Rows[8]
	if row.Diffuse[0] != 0.25 || row.TileIndex != 0 || row.ShaderID != 8 || row.Roughness != 0.5 {
		t.Errorf("row 8 = %+v", row)
	}
	if got := f.ColorTable.Rows[7].TileIndex; got != 3 {
		t.Errorf("row 7 tile index = %d, want 3", got)
	}
	dye := f.ColorTable.Dye[0]
	if dye.Template != 1 || dye.Channel != 1 || !dye.Dyes(mtrl.DyeDiffuse) || dye.Dyes(mtrl.DyeSpecular) || !dye.Dyes(mtrl.DyeEmissive) {
		t.Errorf("dye row = %+v", dye)
	}
}

func TestParseLegacyTable(t *testing.T) {
	m := characterMaterial()
	m.ShaderPackage = "characterlegacy.shpk"
	m.Table = &mtrltest.Table{
		Legacy: true,
		Rows: []mtrl.ColorTableRow{
			{Diffuse: [3]float32{1, 0, 0}, GlossStrength: 20, TileIndex: 5, TileMatrix: [4]float32{16, 0, 0, 16}},
		},
		Dye: []uint32{3<<5 | 0x3},
	}
	f, err := mtrl.Parse(mtrltest.Encode(m))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ct := f.ColorTable
	if !ct.Legacy || len(ct.Rows) != mtrl.LegacyRows {
		t.Fatalf("legacy = %v rows = %d", ct.Legacy, len(ct.Rows))
	}
	r := ct.Rows[0]
	if r.Diffuse != [3]float32{1, 0, 0} || r.GlossStrength != 20 || r.TileIndex != 5 || r.TileMatrix[3] != 16 {
		t.Errorf("row = %+v", r)
	}
	if r.TileAlpha != 1 {
		t.Errorf("legacy tile alpha default = %v", r.TileAlpha)
	}
	if ct.Dye[0].Template != 3 || ct.Dye[0].Flags != 3 {
		t.Errorf("dye = %+v", ct.Dye[0])
	}
}

func TestParseRejectsShortColorTable(t *testing.T) {
	data := mtrltest.Encode(characterMaterial())
	// Claim a large table and a dye table in the additional data while the
	// data set only holds a legacy-sized table.
	m := characterMaterial()
	m.Table.Legacy = true
	legacy := mtrltest.Encode(m)
	hdr := 4 + 2 + 2 + 2 + 2 + 4
	strSize := int(legacy[8]) | int(legacy[9])<<8
	addOff := hdr + len(m.Textures)*4 + strSize
	legacy[addOff] |= 0x30
	legacy[addOff+1] = 0x05

	if _, err := mtrl.Parse(legacy); !errors.Is(err, mtrl.ErrMalformed) {
		t.Fatalf("Parse = %v, want ErrMalformed", err)
	}
	if _, err := mtrl.Parse(data[:40]); err == nil {
		t.Fatal("truncated file parsed")
	}
}

func TestMaterialSet(t *testing.T) {
	f, err := mtrl.Parse(mtrltest.Encode(characterMaterial()))
	if err != nil {
		t.Fatal(err)
	}
	set, err := mtrl.NewMaterialSet("chara/equipment/e0001/material/v0001/mt_c0101e0001_top_a.mtrl", f, nil)
	if err != nil {
		t.Fatal(err)
	}

	if p, _ := set.Texture(mtrl.SamplerNormal); p != "chara/equipment/e0001/texture/v01_c0101e0001_top_n.tex" {
		t.Errorf("normal = %q, first binding should win", p)
	}
	if len(set.Textures) != 3 {
		t.Errorf("textures = %d, want 3", len(set.Textures))
	}
	if _, err := set.RequireTexture(mtrl.SamplerDiffuse); !errors.Is(err, mtrl.ErrMissingTexture) {
		t.Errorf("RequireTexture(diffuse) = %v", err)
	}
	if v := set.ShaderKeyOr(mtrl.CategoryTextureType, mtrl.TextureDefault); v != mtrl.TextureCompat {
		t.Errorf("texture mode = %#x", v)
	}
	if v := set.ConstantOr(mtrl.ConstAlphaThreshold, 0); v != 0.5 {
		t.Errorf("alpha threshold = %v", v)
	}
	if v := set.Vec3Or(mtrl.ConstDiffuseColor, [3]float32{}); v != [3]float32{1, 0.5, 0.25} {
		t.Errorf("diffuse color = %v", v)
	}
	if _, err := set.RequireConstant(mtrl.ConstGlassIOR, 1); !errors.Is(err, mtrl.ErrMissingConstant) {
		t.Errorf("RequireConstant = %v", err)
	}
	if !set.RenderBackfaces() || !set.IsTransparent() {
		t.Errorf("flags = %#x", set.Flags)
	}

	again, _ := mtrl.NewMaterialSet(set.Path, f, nil)
	if set.Hash() != again.Hash() {
		t.Error("hash is not deterministic")
	}
	if set.Hash() == set.Hash("skin") {
		t.Error("salt does not change hash")
	}
	name := set.ComputedTextureName("diffuse")
	want := "mt_c0101e0001_top_a_character_diffuse_" + set.Hash()
	if name != want {
		t.Errorf("ComputedTextureName = %q, want %q", name, want)
	}
}

func TestMaterialSetOverrides(t *testing.T) {
	f, err := mtrl.Parse(mtrltest.Encode(characterMaterial()))
	if err != nil {
		t.Fatal(err)
	}
	set, err := mtrl.NewMaterialSet("a.mtrl", f, []string{"", "C:/mods/mask.png"})
	if err != nil {
		t.Fatal(err)
	}
	if p, _ := set.Texture(mtrl.SamplerMask); p != "C:/mods/mask.png" {
		t.Errorf("mask = %q", p)
	}
	if p, _ := set.Texture(mtrl.SamplerNormal); p == "" {
		t.Error("empty override replaced path")
	}
}

func TestMissingColorTable(t *testing.T) {
	m := characterMaterial()
	m.Table = nil
	f, err := mtrl.Parse(mtrltest.Encode(m))
	if err != nil {
		t.Fatal(err)
	}
	set, err := mtrl.NewMaterialSet("a.mtrl", f, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := set.RequireColorTable(); !errors.Is(err, mtrl.ErrMissingColorTable) {
		t.Fatalf("RequireColorTable = %v", err)
	}
}
