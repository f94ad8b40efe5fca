package mtrl

import (
	"fmt"

	"scene-exporter/internal/binreader"
)

// Header is the fixed material file header.
type Header struct {
	Version             uint32
	FileSize            uint16
	DataSetSize         uint16
	StringTableSize     uint16
	ShaderPackageOffset uint16
	TextureCount        uint8
	UvSetCount          uint8
	ColorSetCount       uint8
	AdditionalDataSize  uint8
}

// TextureOffset points at a texture path in the string table.
type TextureOffset struct {
	Offset uint16
	Flags  uint16
}

// NamedSet is a uv or color set name reference.
type NamedSet struct {
	NameOffset uint16
	Index      uint8
}

// ShaderKey selects a shader variant.
type ShaderKey struct {
	Category uint32
	Value    uint32
}

// Constant references a byte range of the shader value list.
type Constant struct {
	ID          uint32
	ValueOffset uint16
	ValueSize   uint16
}

// Sampler binds a texture slot to a sampler id.
type Sampler struct {
	SamplerID    uint32
	Flags        uint32
	TextureIndex uint8
}

// File is a decoded material.
type File struct {
	Header         Header
	TextureOffsets []TextureOffset
	UvSets         []NamedSet
	ColorSets      []NamedSet
	Strings        binreader.StringTable
	AdditionalData []byte
	DataSet        []byte
	ShaderFlags    uint32
	ShaderKeys     []ShaderKey
	Constants      []Constant
	Samplers       []Sampler
	ShaderValues   []float32
	ColorTable     *ColorTableSet
}

// Parse decodes a material file.
func Parse(data []byte) (*File, error) {
	r := binreader.New(data)
	f := &File{}

	h := &f.Header
	h.Version = r.U32()
	h.FileSize = r.U16()
	h.DataSetSize = r.U16()
	h.StringTableSize = r.U16()
	h.ShaderPackageOffset = r.U16()
	h.TextureCount = r.U8()
	h.UvSetCount = r.U8()
	h.ColorSetCount = r.U8()
	h.AdditionalDataSize = r.U8()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("mtrl: header: %w", err)
	}

	f.TextureOffsets = make([]TextureOffset, h.TextureCount)
	for i := range f.TextureOffsets {
		f.TextureOffsets[i] = TextureOffset{Offset: r.U16(), Flags: r.U16()}
	}
	f.UvSets = readSets(r, int(h.UvSetCount))
	f.ColorSets = readSets(r, int(h.ColorSetCount))
	f.Strings = binreader.NewStringTable(r.Span(int(h.StringTableSize)))
	f.AdditionalData = r.Span(int(h.AdditionalDataSize))
	f.DataSet = r.Span(int(h.DataSetSize))
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("mtrl: tables: %w", err)
	}

	valueListSize := r.U16()
	keyCount := r.U16()
	constantCount := r.U16()
	samplerCount := r.U16()
	f.ShaderFlags = r.U32()

	f.ShaderKeys = make([]ShaderKey, keyCount)
	for i := range f.ShaderKeys {
		f.ShaderKeys[i] = ShaderKey{Category: r.U32(), Value: r.U32()}
	}
	f.Constants = make([]Constant, constantCount)
	for i := range f.Constants {
		f.Constants[i] = Constant{ID: r.U32(), ValueOffset: r.U16(), ValueSize: r.U16()}
	}
	f.Samplers = make([]Sampler, samplerCount)
	for i := range f.Samplers {
		f.Samplers[i] = Sampler{SamplerID: r.U32(), Flags: r.U32(), TextureIndex: r.U8()}
		r.Skip(3)
	}
	f.ShaderValues = r.F32s(int(valueListSize) / 4)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("mtrl: shader parameters: %w", err)
	}

	table, err := parseColorTable(f.AdditionalData, f.DataSet)
	if err != nil {
		return nil, err
	}
	f.ColorTable = table
	return f, nil
}

func readSets(r *binreader.Reader, n int) []NamedSet {
	out := make([]NamedSet, n)
	for i := range out {
		out[i] = NamedSet{NameOffset: r.U16(), Index: r.U8()}
		r.Skip(1)
	}
	return out
}

// ShaderPackage returns the shader package name, e.g. "character.shpk".
func (f *File) ShaderPackage() (string, error) {
	s, err := f.Strings.At(uint32(f.Header.ShaderPackageOffset))
	if err != nil {
		return "", fmt.Errorf("mtrl: shader package name: %w", err)
	}
	return s, nil
}

// TexturePaths resolves every texture slot's path.
func (f *File) TexturePaths() ([]string, error) {
	out := make([]string, len(f.TextureOffsets))
	for i, t := range f.TextureOffsets {
		s, err := f.Strings.At(uint32(t.Offset))
		if err != nil {
			return nil, fmt.Errorf("mtrl: texture %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// ConstantValues returns the float values a constant refers to.
func (f *File) ConstantValues(c Constant) ([]float32, error) {
	if c.ValueOffset%4 != 0 || c.ValueSize%4 != 0 {
		return nil, fmt.Errorf("%w: constant %#08x unaligned range %d+%d", ErrMalformed, c.ID, c.ValueOffset, c.ValueSize)
	}
	start := int(c.ValueOffset) / 4
	end := start + int(c.ValueSize)/4
	if end > len(f.ShaderValues) {
		return nil, fmt.Errorf("%w: constant %#08x range %d..%d exceeds %d values", ErrMalformed, c.ID, start, end, len(f.ShaderValues))
	}
	return f.ShaderValues[start:end], nil
}
