package tex

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path"
	"strings"

	"github.com/chai2010/tiff"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
)

// IsLoose reports whether name is a loose image rather than a game texture.
func IsLoose(name string) bool {
	switch ext(name) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tga", ".tif", ".tiff":
		return true
	}
	return false
}

// DecodeLoose decodes a loose override image or a game texture, picking the
// decoder from the name's extension.
func DecodeLoose(name string, data []byte) (*image.NRGBA, error) {
	if ext(name) == ".tex" {
		img, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("tex: %s: %w", name, err)
		}
		return img, nil
	}
	img, err := readImage(bytes.NewReader(data), ext(name))
	if err != nil {
		return nil, fmt.Errorf("tex: decode %s: %w", name, err)
	}
	return ToNRGBA(img), nil
}

func readImage(rd io.Reader, ext string) (image.Image, error) {
	switch ext {
	case ".jpeg", ".jpg":
		return jpeg.Decode(rd)
	case ".png":
		return png.Decode(rd)
	case ".gif":
		return gif.Decode(rd)
	case ".bmp":
		return bmp.Decode(rd)
	case ".tga":
		return tga.Decode(rd)
	case ".tif", ".tiff":
		return tiff.Decode(rd)
	}
	return nil, fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
}

// ToNRGBA converts any image to a zero-origin NRGBA image.
func ToNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, src, b.Min, draw.Src)
	return dst
}

func ext(name string) string {
	return strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
}
