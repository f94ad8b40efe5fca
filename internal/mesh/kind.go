package mesh

import "fmt"

// Geometry selects the geometric attributes a vertex carries.
type Geometry uint8

const (
	GeometryP Geometry = iota
	GeometryPN
	GeometryPNT
)

// Surface selects the material attributes a vertex carries.
type Surface uint8

const (
	SurfaceColor Surface = iota
	SurfaceUV
	SurfaceColorUV
)

// VertexKind is the combination of geometry, surface and skinning shared by
// every vertex of a mesh. There are 18 kinds.
type VertexKind uint8

// KindCount is the number of distinct vertex kinds.
const KindCount = 3 * 3 * 2

// MakeKind combines the three vertex properties.
func MakeKind(g Geometry, s Surface, skinned bool) VertexKind {
	k := VertexKind(g)*6 + VertexKind(s)*2
	if skinned {
		k++
	}
	return k
}

func (k VertexKind) Geometry() Geometry { return Geometry(k / 6) }
func (k VertexKind) Surface() Surface   { return Surface(k % 6 / 2) }
func (k VertexKind) Skinned() bool      { return k%2 == 1 }

func (k VertexKind) HasNormal() bool  { return k.Geometry() >= GeometryPN }
func (k VertexKind) HasTangent() bool { return k.Geometry() == GeometryPNT }
func (k VertexKind) HasColor() bool   { return k.Surface() != SurfaceUV }
func (k VertexKind) HasUV() bool      { return k.Surface() != SurfaceColor }

func (k VertexKind) String() string {
	if k >= KindCount {
		return fmt.Sprintf("VertexKind(%d)", uint8(k))
	}
	geom := [...]string{"P", "PN", "PNT"}[k.Geometry()]
	surf := [...]string{"Color", "UV", "ColorUV"}[k.Surface()]
	skin := "Static"
	if k.Skinned() {
		skin = "Skinned"
	}
	return geom + "/" + surf + "/" + skin
}
