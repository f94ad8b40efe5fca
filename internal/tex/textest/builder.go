// Package textest encodes uncompressed textures for tests.
package textest

import (
	"bytes"
	"encoding/binary"
	"image"

	"scene-exporter/internal/tex"
)

// Encode writes img as a single-mip B8G8R8A8 2D texture.
func Encode(img *image.NRGBA) []byte {
	return Array(img)
}

// Array writes same-sized layers as a B8G8R8A8 2D array texture. A single
// layer is written as a plain 2D texture.
func Array(layers ...*image.NRGBA) []byte {
	w, h := layers[0].Rect.Dx(), layers[0].Rect.Dy()
	attr := tex.AttrType2D
	if len(layers) > 1 {
		attr |= tex.AttrType2DArray
	}

	var buf bytes.Buffer
	le := binary.LittleEndian
	_ = binary.Write(&buf, le, attr)
	_ = binary.Write(&buf, le, uint32(tex.FormatB8G8R8A8))
	_ = binary.Write(&buf, le, uint16(w))
	_ = binary.Write(&buf, le, uint16(h))
	_ = binary.Write(&buf, le, uint16(1))
	buf.WriteByte(1)
	buf.WriteByte(uint8(len(layers)))
	_ = binary.Write(&buf, le, [3]uint32{})
	var offsets [13]uint32
	offsets[0] = tex.HeaderSize
	_ = binary.Write(&buf, le, offsets)
	for _, img := range layers {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := img.PixOffset(x, y)
				p := img.Pix[i : i+4]
				buf.Write([]byte{p[2], p[1], p[0], p[3]})
			}
		}
	}
	return buf.Bytes()
}

// Solid returns a w×h image filled with one color.
func Solid(w, h int, r, g, b, a uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, a
	}
	return img
}
