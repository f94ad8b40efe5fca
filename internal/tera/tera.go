// Package tera decodes terrain plate tables. A terrain directory holds
// bgplate/terrain.tera and one model per plate, bgplate/NNNN.mdl.
package tera

import (
	"fmt"
	"path"

	"github.com/go-gl/mathgl/mgl32"

	"scene-exporter/internal/binreader"
)

const headerSize = 52

// maxPlates bounds the plate table.
const maxPlates = 1 << 16

// File is a decoded terrain file.
type File struct {
	Version      uint32
	PlateSize    uint32
	ClipDistance float32
	// Plates holds each plate's grid cell.
	Plates []Plate
}

// Plate is one grid cell in units of PlateSize.
type Plate struct {
	X, Y int16
}

// Parse decodes a terrain file.
func Parse(data []byte) (*File, error) {
	r := binreader.New(data)
	f := &File{Version: r.U32()}
	count := r.U32()
	f.PlateSize = r.U32()
	f.ClipDistance = r.F32()
	r.Skip(4 + 32)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("tera: header: %w", err)
	}
	if count > maxPlates || int(count)*4 > r.Remaining() {
		return nil, fmt.Errorf("%w: %d plates in %d bytes", ErrMalformed, count, len(data))
	}
	f.Plates = make([]Plate, count)
	for i := range f.Plates {
		f.Plates[i] = Plate{X: r.I16(), Y: r.I16()}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("tera: plates: %w", err)
	}
	return f, nil
}

// Position returns the centre of plate i on the ground plane.
func (f *File) Position(i int) mgl32.Vec3 {
	p := f.Plates[i]
	size := float32(f.PlateSize)
	return mgl32.Vec3{size * (float32(p.X) + 0.5), 0, size * (float32(p.Y) + 0.5)}
}

// Path returns the terrain file of a terrain directory.
func Path(dir string) string {
	return path.Join(dir, "bgplate", "terrain.tera")
}

// PlatePath returns the model of plate i in a terrain directory.
func PlatePath(dir string, i int) string {
	return path.Join(dir, "bgplate", fmt.Sprintf("%04d.mdl", i))
}

// PlateName names the node of plate i.
func PlateName(i int) string {
	return fmt.Sprintf("Plate%04d", i)
}
