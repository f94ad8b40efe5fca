// Package tex decodes texture containers into NRGBA images.
package tex

import (
	"fmt"
	"image"

	"scene-exporter/internal/binreader"
)

// HeaderSize is the fixed size of the texture header.
const HeaderSize = 80

// Format is the packed pixel format code.
type Format uint32

const (
	FormatL8            Format = 0x1130
	FormatA8            Format = 0x1131
	FormatB4G4R4A4      Format = 0x1440
	FormatB5G5R5A1      Format = 0x1441
	FormatB8G8R8A8      Format = 0x1450
	FormatB8G8R8X8      Format = 0x1451
	FormatR32F          Format = 0x2150
	FormatR16G16F       Format = 0x2250
	FormatR32G32F       Format = 0x2260
	FormatR16G16B16A16F Format = 0x2460
	FormatR32G32B32A32F Format = 0x2470
	FormatBC1           Format = 0x3420
	FormatBC2           Format = 0x3430
	FormatBC3           Format = 0x3431
	FormatBC5           Format = 0x6230
	FormatBC7           Format = 0x6432
)

var formatNames = map[Format]string{
	FormatL8: "L8", FormatA8: "A8", FormatB4G4R4A4: "B4G4R4A4", FormatB5G5R5A1: "B5G5R5A1",
	FormatB8G8R8A8: "B8G8R8A8", FormatB8G8R8X8: "B8G8R8X8", FormatR32F: "R32F",
	FormatR16G16F: "R16G16F", FormatR32G32F: "R32G32F", FormatR16G16B16A16F: "R16G16B16A16F",
	FormatR32G32B32A32F: "R32G32B32A32F", FormatBC1: "BC1", FormatBC2: "BC2", FormatBC3: "BC3",
	FormatBC5: "BC5", FormatBC7: "BC7",
}

func (f Format) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("0x%04X", uint32(f))
}

func (f Format) typ() uint32 { return (uint32(f) & 0xF000) >> 12 }

// bits per pixel.
func (f Format) bpp() int { return 1 << ((uint32(f) & 0xF0) >> 4) }

// Block reports whether the format is block compressed.
func (f Format) Block() bool { return f.typ() == 0x3 || f.typ() == 0x6 }

// Attribute bits describing the texture shape.
const (
	AttrType1D      uint32 = 0x400000
	AttrType2D      uint32 = 0x800000
	AttrType3D      uint32 = 0x1000000
	AttrTypeCube    uint32 = 0x2000000
	AttrTypeMask    uint32 = 0x3C00000
	AttrType2DArray uint32 = 0x10000000
)

// Header is the texture file header.
type Header struct {
	Attribute       uint32
	Format          Format
	Width           uint16
	Height          uint16
	Depth           uint16
	MipLevels       uint8
	ArraySize       uint8
	LodOffsets      [3]uint32
	OffsetToSurface [13]uint32
}

// File is a parsed texture.
type File struct {
	Header Header
	Data   []byte
}

// Parse reads the header and keeps a view of the surface data.
func Parse(data []byte) (*File, error) {
	r := binreader.New(data)
	var h Header
	h.Attribute = r.U32()
	h.Format = Format(r.U32())
	h.Width = r.U16()
	h.Height = r.U16()
	h.Depth = r.U16()
	h.MipLevels = r.U8()
	h.ArraySize = r.U8()
	copy(h.LodOffsets[:], r.U32s(3))
	copy(h.OffsetToSurface[:], r.U32s(13))
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("tex: header: %w", err)
	}
	if h.Width == 0 || h.Height == 0 {
		return nil, fmt.Errorf("%w: zero size %dx%d", ErrMalformed, h.Width, h.Height)
	}
	return &File{Header: h, Data: data[HeaderSize:]}, nil
}

// Mips returns the number of mip levels, at least one.
func (f *File) Mips() int {
	if f.Header.MipLevels == 0 {
		return 1
	}
	return int(f.Header.MipLevels)
}

// Slices returns the number of addressable slices.
func (f *File) Slices() int {
	switch {
	case f.Header.Attribute&AttrType2DArray != 0:
		return max(int(f.Header.ArraySize), 1)
	case f.Header.Attribute&AttrTypeMask == AttrTypeCube:
		return 6
	case f.Header.Attribute&AttrTypeMask == AttrType3D:
		return max(int(f.Header.Depth), 1)
	}
	return 1
}

// MipSize returns the dimensions of a mip level.
func (f *File) MipSize(mip int) (w, h int) {
	return max(1, int(f.Header.Width)>>mip), max(1, int(f.Header.Height)>>mip)
}

// SliceSize returns the byte size of one slice at a mip level.
func (f *File) SliceSize(mip int) int {
	w, h := f.MipSize(mip)
	fmtc := f.Header.Format
	if fmtc.Block() {
		nbw := max(1, (w+3)/4)
		nbh := max(1, (h+3)/4)
		return nbw * nbh * fmtc.bpp() * 2
	}
	return w * h * fmtc.bpp() / 8
}

// Surface returns the raw bytes of one mip level of one slice.
func (f *File) Surface(mip, slice int) ([]byte, error) {
	if mip < 0 || mip >= f.Mips() || slice < 0 || slice >= f.Slices() {
		return nil, fmt.Errorf("%w: mip %d slice %d (have %d, %d)", ErrOutOfRange, mip, slice, f.Mips(), f.Slices())
	}
	size := f.SliceSize(mip)
	off := slice*size + int(f.Header.OffsetToSurface[mip]) - int(f.Header.OffsetToSurface[0])
	if off < 0 || off+size > len(f.Data) {
		return nil, fmt.Errorf("%w: surface %d+%d exceeds %d bytes", ErrMalformed, off, size, len(f.Data))
	}
	return f.Data[off : off+size], nil
}

// Image decodes one mip level of one slice.
func (f *File) Image(mip, slice int) (*image.NRGBA, error) {
	data, err := f.Surface(mip, slice)
	if err != nil {
		return nil, err
	}
	w, h := f.MipSize(mip)
	return decode(f.Header.Format, data, w, h)
}

// Decode parses a texture file and decodes its top mip level.
func Decode(data []byte) (*image.NRGBA, error) {
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return f.Image(0, 0)
}
