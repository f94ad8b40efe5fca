package mtrl

import (
	"fmt"
	"math"

	"scene-exporter/internal/binreader"
)

// Table dimensions.
const (
	StandardRows   = 32
	StandardHalves = 32
	LegacyRows     = 16
	LegacyHalves   = 16

	standardTableSize = StandardRows * StandardHalves * 2
	legacyTableSize   = LegacyRows * LegacyHalves * 2
	standardDyeSize   = StandardRows * 4
	legacyDyeSize     = LegacyRows * 2
)

// ColorTableRow is one decoded row. Legacy rows fill the fields they carry
// and leave the rest at legacyDefaults.
type ColorTableRow struct {
	Diffuse          [3]float32
	Specular         [3]float32
	Emissive         [3]float32
	SpecularStrength float32
	GlossStrength    float32
	SheenRate        float32
	SheenTint        float32
	SheenAperture    float32
	Roughness        float32
	Metalness        float32
	Anisotropy       float32
	SphereMask       float32
	TileAlpha        float32
	TileMatrix       [4]float32 // UU, UV, VU, VV
	ShaderID         uint16
	TileIndex        uint16
	SphereIndex      uint16
}

// DyeRow describes which row fields a dye template overrides.
type DyeRow struct {
	Template uint16
	Channel  uint8
	Flags    uint16
}

// Dye flag bits shared by both table layouts.
const (
	DyeDiffuse uint16 = 1 << iota
	DyeSpecular
	DyeEmissive
)

// Dyes reports whether the row's dye entry overrides the given fields.
func (d DyeRow) Dyes(flag uint16) bool { return d.Flags&flag != 0 }

// ColorTableSet is a decoded color table with its optional dye table.
type ColorTableSet struct {
	Legacy bool
	Rows   []ColorTableRow
	Dye    []DyeRow
}

func parseColorTable(additional, dataSet []byte) (*ColorTableSet, error) {
	if len(dataSet) == 0 || len(additional) == 0 || additional[0]&0x4 == 0 {
		return nil, nil
	}
	large := len(additional) > 1 && additional[1] == 0x05 && additional[0]&0x30 == 0x30
	hasDye := additional[0]&0x8 != 0

	tableSize, dyeSize := legacyTableSize, legacyDyeSize
	if large {
		tableSize, dyeSize = standardTableSize, standardDyeSize
	}
	need := tableSize
	if hasDye {
		need += dyeSize
	}
	if len(dataSet) < need {
		return nil, fmt.Errorf("%w: color table needs %d bytes, data set has %d", ErrMalformed, need, len(dataSet))
	}

	r := binreader.New(dataSet)
	set := &ColorTableSet{Legacy: !large}
	if large {
		set.Rows = make([]ColorTableRow, StandardRows)
		for i := range set.Rows {
			set.Rows[i] = standardRow(r.U16s(StandardHalves))
		}
		if hasDye {
			set.Dye = make([]DyeRow, StandardRows)
			for i := range set.Dye {
				v := r.U32()
				set.Dye[i] = DyeRow{
					Template: uint16(v>>16) & 0x7FF,
					Channel:  uint8(v>>27) & 0x3,
					Flags:    uint16(v & 0xFFF),
				}
			}
		}
	} else {
		set.Rows = make([]ColorTableRow, LegacyRows)
		for i := range set.Rows {
			set.Rows[i] = legacyRow(r.U16s(LegacyHalves))
		}
		if hasDye {
			set.Dye = make([]DyeRow, LegacyRows)
			for i := range set.Dye {
				v := r.U16()
				set.Dye[i] = DyeRow{Template: v >> 5, Flags: v & 0x1F}
			}
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("mtrl: color table: %w", err)
	}
	return set, nil
}

func halfVec3(h []uint16, at int) [3]float32 {
	return [3]float32{binreader.Half(h[at]), binreader.Half(h[at+1]), binreader.Half(h[at+2])}
}

func standardRow(h []uint16) ColorTableRow {
	f := func(i int) float32 { return binreader.Half(h[i]) }
	return ColorTableRow{
		Diffuse:          halfVec3(h, 0),
		SpecularStrength: f(3),
		Specular:         halfVec3(h, 4),
		GlossStrength:    f(7),
		Emissive:         halfVec3(h, 8),
		SheenRate:        f(12),
		SheenTint:        f(13),
		SheenAperture:    f(14),
		Roughness:        f(16),
		Metalness:        f(18),
		Anisotropy:       f(19),
		SphereMask:       f(21),
		ShaderID:         h[24],
		TileIndex:        uint16(f(25) * 64),
		TileAlpha:        f(26),
		SphereIndex:      h[27],
		TileMatrix:       [4]float32{f(28), f(29), f(30), f(31)},
	}
}

func legacyRow(h []uint16) ColorTableRow {
	f := func(i int) float32 { return binreader.Half(h[i]) }
	return ColorTableRow{
		Diffuse:          halfVec3(h, 0),
		SpecularStrength: f(3),
		Specular:         halfVec3(h, 4),
		GlossStrength:    f(7),
		Emissive:         halfVec3(h, 8),
		TileIndex:        uint16(f(11) * 64),
		// repeat.x, skew.x, skew.y, repeat.y
		TileMatrix: [4]float32{f(12), f(13), f(14), f(15)},
		Roughness:  0.5,
		TileAlpha:  1,
	}
}

// Lookup selects and interpolates rows for a packed [0,1] coordinate.
func (s *ColorTableSet) Lookup(input float32) (prev, next ColorTableRow, row TableRow) {
	row = RowLookup(input, len(s.Rows))
	return s.Rows[row.Previous], s.Rows[row.Next], row
}

// Sample returns the interpolated row for a packed coordinate.
func (s *ColorTableSet) Sample(input float32) ColorTableRow {
	prev, next, row := s.Lookup(input)
	return LerpRow(prev, next, row.Weight)
}

// BlendedPair selects a row pair from an index texture pixel. Red picks the
// pair (steps of 17), green blends from the pair's second row (0) to its
// first row (255).
func (s *ColorTableSet) BlendedPair(red, green uint8) ColorTableRow {
	pairs := len(s.Rows) / 2
	pair := int(math.Round(float64(red) / 17))
	if pair >= pairs {
		pair = pairs - 1
	}
	first, second := s.Rows[pair*2], s.Rows[pair*2+1]
	return LerpRow(second, first, float32(green)/255)
}

// LerpRow interpolates the continuous fields of two rows. Discrete fields
// are taken from whichever row is nearer.
func LerpRow(a, b ColorTableRow, t float32) ColorTableRow {
	lerp := func(x, y float32) float32 { return x + (y-x)*t }
	lerp3 := func(x, y [3]float32) [3]float32 {
		return [3]float32{lerp(x[0], y[0]), lerp(x[1], y[1]), lerp(x[2], y[2])}
	}
	out := a
	if t >= 0.5 {
		out = b
	}
	out.Diffuse = lerp3(a.Diffuse, b.Diffuse)
	out.Specular = lerp3(a.Specular, b.Specular)
	out.Emissive = lerp3(a.Emissive, b.Emissive)
	out.SpecularStrength = lerp(a.SpecularStrength, b.SpecularStrength)
	out.GlossStrength = lerp(a.GlossStrength, b.GlossStrength)
	out.SheenRate = lerp(a.SheenRate, b.SheenRate)
	out.SheenTint = lerp(a.SheenTint, b.SheenTint)
	out.SheenAperture = lerp(a.SheenAperture, b.SheenAperture)
	out.Roughness = lerp(a.Roughness, b.Roughness)
	out.Metalness = lerp(a.Metalness, b.Metalness)
	out.Anisotropy = lerp(a.Anisotropy, b.Anisotropy)
	out.SphereMask = lerp(a.SphereMask, b.SphereMask)
	out.TileAlpha = lerp(a.TileAlpha, b.TileAlpha)
	return out
}
