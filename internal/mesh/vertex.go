package mesh

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"scene-exporter/internal/binreader"
	"scene-exporter/internal/mdl"
)

// MaxInfluences is the number of joint slots a vertex can carry.
const MaxInfluences = 8

// Vertex is one decoded vertex. Which fields are meaningful is decided by
// the mesh's VertexKind.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Tangent  mgl32.Vec4 // W is the handedness, always ±1
	Color    mgl32.Vec4
	UV0      mgl32.Vec2
	UV1      mgl32.Vec2

	Joints  [MaxInfluences]uint16 // global joint indices
	Weights [MaxInfluences]float32
}

// element reads up to 8 components of one element. Unorm types are scaled
// to [0, 1]; UInt and UByte8 keep raw byte values.
func element(b []byte, t mdl.VertexType) ([8]float32, int, error) {
	var out [8]float32
	if len(b) < t.Size() || t.Size() == 0 {
		return out, 0, fmt.Errorf("%w: type %d", ErrUnsupportedElement, t)
	}
	switch t {
	case mdl.Single1, mdl.Single2, mdl.Single3, mdl.Single4:
		n := t.Size() / 4
		for i := 0; i < n; i++ {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		}
		return out, n, nil
	case mdl.Half2, mdl.Half4:
		n := t.Size() / 2
		for i := 0; i < n; i++ {
			out[i] = binreader.Half(binary.LittleEndian.Uint16(b[i*2:]))
		}
		return out, n, nil
	case mdl.ByteFloat4:
		for i := 0; i < 4; i++ {
			out[i] = float32(b[i]) / 255
		}
		return out, 4, nil
	case mdl.UInt:
		for i := 0; i < 4; i++ {
			out[i] = float32(b[i])
		}
		return out, 4, nil
	case mdl.UByte8:
		for i := 0; i < 8; i++ {
			out[i] = float32(b[i])
		}
		return out, 8, nil
	}
	return out, 0, fmt.Errorf("%w: type %d", ErrUnsupportedElement, t)
}

// rawBytes returns the element's bytes for integer usages.
func rawBytes(b []byte, t mdl.VertexType) ([]byte, error) {
	switch t {
	case mdl.UInt, mdl.ByteFloat4:
		return b[:4], nil
	case mdl.UByte8:
		return b[:8], nil
	}
	return nil, fmt.Errorf("%w: blend type %d", ErrUnsupportedElement, t)
}

func sanitizeNormal(n mgl32.Vec3) mgl32.Vec3 {
	l := n.Len()
	if l == 0 || math.IsNaN(float64(l)) || math.IsInf(float64(l), 0) {
		return mgl32.Vec3{0, 0, 1}
	}
	return n.Mul(1 / l)
}

func sanitizeTangent(t mgl32.Vec4) mgl32.Vec4 {
	xyz := t.Vec3()
	l := xyz.Len()
	if l == 0 || math.IsNaN(float64(l)) || math.IsInf(float64(l), 0) {
		xyz = mgl32.Vec3{1, 0, 0}
	} else {
		xyz = xyz.Mul(1 / l)
	}
	w := float32(-1)
	if t[3] == 1 {
		w = 1
	}
	return xyz.Vec4(w)
}
