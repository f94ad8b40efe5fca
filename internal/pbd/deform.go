package pbd

import (
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/go-gl/mathgl/mgl32"

	"scene-exporter/internal/mathutil"
)

// ParentFunc returns the parent bone name of bone.
type ParentFunc func(bone string) (string, bool)

// Resolve returns the deform matrix for bone, falling back to the nearest
// ancestor that has one and finally to identity.
func Resolve(d *Deformer, bone string, parent ParentFunc) mathutil.Affine {
	for depth := 0; depth < 256; depth++ {
		if m, ok := d.Matrix(bone); ok {
			return m
		}
		if parent == nil {
			break
		}
		p, ok := parent(bone)
		if !ok {
			break
		}
		bone = p
	}
	return mathutil.AffineIdentity()
}

// Influence is one skinning weight of a vertex.
type Influence struct {
	Bone   string
	Weight float32
}

// Deform applies each deformer of chain in order. Every step replaces the
// position with the weighted sum of the influences' deformed positions.
func Deform(chain []*Deformer, pos mgl32.Vec3, influences []Influence, parent ParentFunc) mgl32.Vec3 {
	for _, d := range chain {
		var sum mgl32.Vec3
		for _, in := range influences {
			if in.Weight == 0 {
				continue
			}
			sum = sum.Add(Resolve(d, in.Bone, parent).Apply(pos).Mul(in.Weight))
		}
		pos = sum
	}
	return pos
}

// RaceCode extracts the first cNNNN race code from a game path. The c must
// not follow a letter.
func RaceCode(path string) (uint16, bool) {
	prev := rune(0)
	for i := 0; i < len(path); {
		r, size := utf8.DecodeRuneInString(path[i:])
		if r == 'c' && !unicode.IsLetter(prev) && i+5 <= len(path) && digits(path[i+1:i+5]) {
			n, err := strconv.ParseUint(path[i+1:i+5], 10, 16)
			if err == nil {
				return uint16(n), true
			}
		}
		prev = r
		i += size
	}
	return 0, false
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
