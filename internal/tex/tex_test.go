package tex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"
)

// buildTex encodes a texture whose mip levels are laid out back to back.
func buildTex(attr uint32, f Format, w, h, arraySize int, mips ...[]byte) []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian
	_ = binary.Write(&buf, le, attr)
	_ = binary.Write(&buf, le, uint32(f))
	_ = binary.Write(&buf, le, uint16(w))
	_ = binary.Write(&buf, le, uint16(h))
	_ = binary.Write(&buf, le, uint16(1))
	buf.WriteByte(uint8(len(mips)))
	buf.WriteByte(uint8(arraySize))
	_ = binary.Write(&buf, le, [3]uint32{})
	var offsets [13]uint32
	off := uint32(HeaderSize)
	for i, m := range mips {
		offsets[i] = off
		off += uint32(len(m))
	}
	_ = binary.Write(&buf, le, offsets)
	for _, m := range mips {
		buf.Write(m)
	}
	return buf.Bytes()
}

func TestDecodeBGRA(t *testing.T) {
	data := buildTex(AttrType2D, FormatB8G8R8A8, 2, 1, 0, []byte{
		10, 20, 30, 40,
		1, 2, 3, 4,
	})
	img, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := img.NRGBAAt(0, 0); got != (color.NRGBA{30, 20, 10, 40}) {
		t.Errorf("pixel 0 = %v", got)
	}
	if got := img.NRGBAAt(1, 0); got != (color.NRGBA{3, 2, 1, 4}) {
		t.Errorf("pixel 1 = %v", got)
	}
}

func TestDecodePackedFormats(t *testing.T) {
	tests := []struct {
		name string
		f    Format
		data []byte
		want color.NRGBA
	}{
		{"L8", FormatL8, []byte{99}, color.NRGBA{99, 99, 99, 255}},
		{"A8", FormatA8, []byte{77}, color.NRGBA{0, 0, 0, 77}},
		// a=0xF r=0x8 g=0x4 b=0x1
		{"B4G4R4A4", FormatB4G4R4A4, []byte{0x41, 0xF8}, color.NRGBA{0x88, 0x44, 0x11, 0xFF}},
		// a=1 r=31 g=0 b=0
		{"B5G5R5A1", FormatB5G5R5A1, []byte{0x00, 0xFC}, color.NRGBA{255, 0, 0, 255}},
		{"B8G8R8X8", FormatB8G8R8X8, []byte{1, 2, 3, 0}, color.NRGBA{3, 2, 1, 255}},
		// half 1.0 = 0x3C00, half 0.5 = 0x3800
		{"RGBA16F", FormatR16G16B16A16F, []byte{0x00, 0x3C, 0x00, 0x38, 0x00, 0x00, 0x00, 0x3C}, color.NRGBA{255, 128, 0, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Decode(buildTex(AttrType2D, tt.f, 1, 1, 0, tt.data))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got := img.NRGBAAt(0, 0); got != tt.want {
				t.Errorf("pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeBC1(t *testing.T) {
	// c0 = pure red, c1 = pure blue, indices select 0,1,2,3 across the first row.
	block := []byte{0x00, 0xF8, 0x1F, 0x00, 0xE4, 0, 0, 0}
	img, err := Decode(buildTex(AttrType2D, FormatBC1, 4, 4, 0, block))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []color.NRGBA{
		{255, 0, 0, 255},
		{0, 0, 255, 255},
		{170, 0, 85, 255},
		{85, 0, 170, 255},
	}
	for x, w := range want {
		if got := img.NRGBAAt(x, 0); got != w {
			t.Errorf("pixel %d = %v, want %v", x, got, w)
		}
	}
	if got := img.NRGBAAt(0, 3); got != want[0] {
		t.Errorf("pixel (0,3) = %v", got)
	}
}

func TestDecodeBC3Alpha(t *testing.T) {
	block := make([]byte, 16)
	block[0], block[1] = 255, 0 // alpha endpoints
	// first texel index 1 (alpha 0), rest index 0 (alpha 255)
	block[2] = 0x01
	copy(block[8:], []byte{0xFF, 0xFF, 0xFF, 0xFF, 0, 0, 0, 0})
	img, err := Decode(buildTex(AttrType2D, FormatBC3, 4, 4, 0, block))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := img.NRGBAAt(0, 0); got.A != 0 || got.R != 255 {
		t.Errorf("texel 0 = %v", got)
	}
	if got := img.NRGBAAt(1, 0); got.A != 255 {
		t.Errorf("texel 1 = %v", got)
	}
}

func TestDecodeBC5(t *testing.T) {
	block := make([]byte, 16)
	block[0], block[1] = 200, 200
	block[8], block[9] = 50, 50
	img, err := Decode(buildTex(AttrType2D, FormatBC5, 4, 4, 0, block))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := img.NRGBAAt(2, 2); got != (color.NRGBA{200, 50, 0, 255}) {
		t.Errorf("texel = %v", got)
	}
}

func TestArraySlicesAndMips(t *testing.T) {
	// Two slices of 2x2 L8 at mip 0, followed by two 1x1 slices at mip 1.
	mip0 := []byte{1, 1, 1, 1, 2, 2, 2, 2}
	mip1 := []byte{3, 4}
	f, err := Parse(buildTex(AttrType2DArray, FormatL8, 2, 2, 2, mip0, mip1))
	if err != nil {
		t.Fatal(err)
	}
	if f.Slices() != 2 || f.Mips() != 2 {
		t.Fatalf("slices %d mips %d", f.Slices(), f.Mips())
	}
	tests := []struct{ mip, slice, want int }{
		{0, 0, 1}, {0, 1, 2}, {1, 0, 3}, {1, 1, 4},
	}
	for _, tt := range tests {
		img, err := f.Image(tt.mip, tt.slice)
		if err != nil {
			t.Fatalf("Image(%d,%d): %v", tt.mip, tt.slice, err)
		}
		if got := int(img.Pix[0]); got != tt.want {
			t.Errorf("Image(%d,%d) = %d, want %d", tt.mip, tt.slice, got, tt.want)
		}
	}
	if _, err := f.Image(0, 2); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("slice 2: %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode(buildTex(AttrType2D, FormatBC7, 4, 4, 0, make([]byte, 16))); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("BC7: %v", err)
	}
	if _, err := Decode(buildTex(AttrType2D, FormatB8G8R8A8, 4, 4, 0, make([]byte, 8))); !errors.Is(err, ErrMalformed) {
		t.Errorf("truncated: %v", err)
	}
	if _, err := Decode(make([]byte, 10)); err == nil {
		t.Error("short header decoded")
	}
}

func TestDecodeLoose(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(1, 1, color.NRGBA{10, 20, 30, 255})

	var pngBuf, bmpBuf bytes.Buffer
	if err := png.Encode(&pngBuf, src); err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(&bmpBuf, src); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		data []byte
	}{
		{"override/Skin_N.PNG", pngBuf.Bytes()},
		{"C:\\mods\\mask.bmp", bmpBuf.Bytes()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !IsLoose(tt.name) {
				t.Fatal("not recognised as loose")
			}
			img, err := DecodeLoose(tt.name, tt.data)
			if err != nil {
				t.Fatal(err)
			}
			if got := img.NRGBAAt(1, 1); got.R != 10 || got.G != 20 || got.B != 30 {
				t.Errorf("pixel = %v", got)
			}
		})
	}
	if _, err := DecodeLoose("a.xyz", nil); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("unknown extension: %v", err)
	}
}
