package tera

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"scene-exporter/internal/binreader"
)

func encode(size uint32, plates []Plate) []byte {
	out := binary.LittleEndian.AppendUint32(nil, 1)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(plates)))
	out = binary.LittleEndian.AppendUint32(out, size)
	out = binary.LittleEndian.AppendUint32(out, math.Float32bits(1000))
	out = binary.LittleEndian.AppendUint32(out, 0)
	out = append(out, make([]byte, 32)...)
	for _, p := range plates {
		out = binary.LittleEndian.AppendUint16(out, uint16(p.X))
		out = binary.LittleEndian.AppendUint16(out, uint16(p.Y))
	}
	return out
}

func TestParse(t *testing.T) {
	data := encode(32, []Plate{{0, 0}, {-2, 3}})
	if len(data) != headerSize+8 {
		t.Fatalf("fixture is %d bytes", len(data))
	}
	f, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Version != 1 || f.PlateSize != 32 || f.ClipDistance != 1000 || len(f.Plates) != 2 {
		t.Fatalf("file = %+v", f)
	}
	if got := f.Position(0); got != (mgl32.Vec3{16, 0, 16}) {
		t.Errorf("plate 0 at %v", got)
	}
	if got := f.Position(1); got != (mgl32.Vec3{-48, 0, 112}) {
		t.Errorf("plate 1 at %v", got)
	}
}

func TestParseRejects(t *testing.T) {
	full := encode(32, []Plate{{0, 0}, {1, 0}})
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", full[:20], binreader.ErrOutOfBounds},
		{"short plates", full[:len(full)-2], ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	dir := "bg/ex1/01_roc_r2/dun/r2d1"
	if got := Path(dir); got != dir+"/bgplate/terrain.tera" {
		t.Errorf("Path = %q", got)
	}
	if got := PlatePath(dir, 7); got != dir+"/bgplate/0007.mdl" {
		t.Errorf("PlatePath = %q", got)
	}
	if got := PlateName(12); got != "Plate0012" {
		t.Errorf("PlateName = %q", got)
	}
}
