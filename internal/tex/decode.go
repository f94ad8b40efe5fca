package tex

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"

	"scene-exporter/internal/binreader"
)

func decode(f Format, data []byte, w, h int) (*image.NRGBA, error) {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	pix := img.Pix
	n := w * h
	le := binary.LittleEndian

	switch f {
	case FormatL8:
		for i := 0; i < n; i++ {
			v := data[i]
			pix[i*4], pix[i*4+1], pix[i*4+2], pix[i*4+3] = v, v, v, 255
		}
	case FormatA8:
		for i := 0; i < n; i++ {
			pix[i*4+3] = data[i]
		}
	case FormatB4G4R4A4:
		for i := 0; i < n; i++ {
			v := le.Uint16(data[i*2:])
			pix[i*4] = uint8(v>>8&0xF) * 17
			pix[i*4+1] = uint8(v>>4&0xF) * 17
			pix[i*4+2] = uint8(v&0xF) * 17
			pix[i*4+3] = uint8(v>>12&0xF) * 17
		}
	case FormatB5G5R5A1:
		for i := 0; i < n; i++ {
			v := le.Uint16(data[i*2:])
			pix[i*4] = expand5(v >> 10)
			pix[i*4+1] = expand5(v >> 5)
			pix[i*4+2] = expand5(v)
			pix[i*4+3] = uint8(v>>15) * 255
		}
	case FormatB8G8R8A8, FormatB8G8R8X8:
		for i := 0; i < n; i++ {
			pix[i*4] = data[i*4+2]
			pix[i*4+1] = data[i*4+1]
			pix[i*4+2] = data[i*4]
			pix[i*4+3] = data[i*4+3]
			if f == FormatB8G8R8X8 {
				pix[i*4+3] = 255
			}
		}
	case FormatR32F:
		for i := 0; i < n; i++ {
			v := unorm(math.Float32frombits(le.Uint32(data[i*4:])))
			pix[i*4], pix[i*4+1], pix[i*4+2], pix[i*4+3] = v, v, v, 255
		}
	case FormatR16G16F:
		for i := 0; i < n; i++ {
			pix[i*4] = unorm(binreader.Half(le.Uint16(data[i*4:])))
			pix[i*4+1] = unorm(binreader.Half(le.Uint16(data[i*4+2:])))
			pix[i*4+3] = 255
		}
	case FormatR32G32F:
		for i := 0; i < n; i++ {
			pix[i*4] = unorm(math.Float32frombits(le.Uint32(data[i*8:])))
			pix[i*4+1] = unorm(math.Float32frombits(le.Uint32(data[i*8+4:])))
			pix[i*4+3] = 255
		}
	case FormatR16G16B16A16F:
		for i := 0; i < n*4; i++ {
			pix[i] = unorm(binreader.Half(le.Uint16(data[i*2:])))
		}
	case FormatR32G32B32A32F:
		for i := 0; i < n*4; i++ {
			pix[i] = unorm(math.Float32frombits(le.Uint32(data[i*4:])))
		}
	case FormatBC1, FormatBC2, FormatBC3, FormatBC5:
		decodeBlocks(f, data, img)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	return img, nil
}

func expand5(v uint16) uint8 {
	v &= 0x1F
	return uint8(v<<3 | v>>2)
}

func unorm(v float32) uint8 {
	if v != v || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// decodeBlocks expands 4x4 blocks into img. The surface length was checked
// against the format's block count by the caller.
func decodeBlocks(f Format, data []byte, img *image.NRGBA) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	blockSize := 16
	if f == FormatBC1 {
		blockSize = 8
	}
	bw := (w + 3) / 4
	bh := (h + 3) / 4

	var texels [16][4]uint8
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			block := data[(by*bw+bx)*blockSize:]
			switch f {
			case FormatBC1:
				colorBlock(block, &texels, true)
			case FormatBC2:
				colorBlock(block[8:], &texels, false)
				for i := 0; i < 16; i++ {
					a := block[i/2] >> (4 * (i % 2)) & 0xF
					texels[i][3] = a * 17
				}
			case FormatBC3:
				colorBlock(block[8:], &texels, false)
				alphaBlock(block, &texels, 3)
			case FormatBC5:
				alphaBlock(block, &texels, 0)
				alphaBlock(block[8:], &texels, 1)
				for i := range texels {
					texels[i][2] = 0
					texels[i][3] = 255
				}
			}

			for py := 0; py < 4; py++ {
				y := by*4 + py
				if y >= h {
					break
				}
				for px := 0; px < 4; px++ {
					x := bx*4 + px
					if x >= w {
						break
					}
					o := img.PixOffset(x, y)
					t := texels[py*4+px]
					copy(img.Pix[o:o+4], t[:])
				}
			}
		}
	}
}

func rgb565(c uint16) [3]int {
	r := int(c>>11) & 0x1F
	g := int(c>>5) & 0x3F
	b := int(c) & 0x1F
	return [3]int{r<<3 | r>>2, g<<2 | g>>4, b<<3 | b>>2}
}

// colorBlock decodes the 8-byte color half of a BC1/2/3 block. Punch-through
// alpha only applies to BC1.
func colorBlock(b []byte, out *[16][4]uint8, punch bool) {
	c0 := binary.LittleEndian.Uint16(b)
	c1 := binary.LittleEndian.Uint16(b[2:])
	e0, e1 := rgb565(c0), rgb565(c1)

	var palette [4][4]uint8
	for ch := 0; ch < 3; ch++ {
		palette[0][ch] = uint8(e0[ch])
		palette[1][ch] = uint8(e1[ch])
		if c0 > c1 || !punch {
			palette[2][ch] = uint8((2*e0[ch] + e1[ch]) / 3)
			palette[3][ch] = uint8((e0[ch] + 2*e1[ch]) / 3)
		} else {
			palette[2][ch] = uint8((e0[ch] + e1[ch]) / 2)
		}
	}
	palette[0][3], palette[1][3], palette[2][3], palette[3][3] = 255, 255, 255, 255
	if punch && c0 <= c1 {
		palette[3][3] = 0
	}

	idx := binary.LittleEndian.Uint32(b[4:])
	for i := 0; i < 16; i++ {
		out[i] = palette[idx>>(2*i)&3]
	}
}

// alphaBlock decodes an 8-byte interpolated channel block into channel ch.
func alphaBlock(b []byte, out *[16][4]uint8, ch int) {
	a0, a1 := int(b[0]), int(b[1])
	var palette [8]uint8
	palette[0], palette[1] = uint8(a0), uint8(a1)
	if a0 > a1 {
		for i := 2; i < 8; i++ {
			palette[i] = uint8((a0*(8-i) + a1*(i-1)) / 7)
		}
	} else {
		for i := 2; i < 6; i++ {
			palette[i] = uint8((a0*(6-i) + a1*(i-1)) / 5)
		}
		palette[6], palette[7] = 0, 255
	}

	var bits uint64
	for i := 0; i < 6; i++ {
		bits |= uint64(b[2+i]) << (8 * i)
	}
	for i := 0; i < 16; i++ {
		out[i][ch] = palette[bits>>(3*i)&7]
	}
}
