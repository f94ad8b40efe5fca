package mdl

// Supported file versions.
const (
	Version5 uint32 = 0x01000005
	Version6 uint32 = 0x01000006
)

const (
	// LodCount is the fixed number of LOD slots in every file.
	LodCount = 3
	// MaxStreams is the number of vertex streams a mesh can reference.
	MaxStreams = 3
	// MaxVertexElements is the inline size of a vertex declaration.
	MaxVertexElements = 17
	// MaxBoneTableEntries is the inline size of a v5 bone table.
	MaxBoneTableEntries = 64
	// NoBoneTable marks a mesh without skinning.
	NoBoneTable = 255
	// streamEnd terminates a vertex declaration.
	streamEnd = 255
)

// VertexType is the storage format of a vertex element.
type VertexType uint8

const (
	Single1    VertexType = 0
	Single2    VertexType = 1
	Single3    VertexType = 2
	Single4    VertexType = 3
	UInt       VertexType = 5
	ByteFloat4 VertexType = 8
	Half2      VertexType = 13
	Half4      VertexType = 14
	UByte8     VertexType = 17
)

// Size returns the element size in bytes, or 0 for unknown types.
func (t VertexType) Size() int {
	switch t {
	case Single1, UInt, ByteFloat4, Half2:
		return 4
	case Single2, Half4, UByte8:
		return 8
	case Single3:
		return 12
	case Single4:
		return 16
	}
	return 0
}

// VertexUsage is the semantic of a vertex element.
type VertexUsage uint8

const (
	UsagePosition     VertexUsage = 0
	UsageBlendWeights VertexUsage = 1
	UsageBlendIndices VertexUsage = 2
	UsageNormal       VertexUsage = 3
	UsageTexCoord     VertexUsage = 4
	UsageTangent      VertexUsage = 5
	UsageBinormal     VertexUsage = 6
	UsageColor        VertexUsage = 7
)

func (u VertexUsage) String() string {
	switch u {
	case UsagePosition:
		return "position"
	case UsageBlendWeights:
		return "blend_weights"
	case UsageBlendIndices:
		return "blend_indices"
	case UsageNormal:
		return "normal"
	case UsageTexCoord:
		return "texcoord"
	case UsageTangent:
		return "tangent"
	case UsageBinormal:
		return "binormal"
	case UsageColor:
		return "color"
	}
	return "unknown"
}

// FileHeader is the 68-byte header at the start of the file.
type FileHeader struct {
	Version                    uint32
	StackSize                  uint32
	RuntimeSize                uint32
	VertexDeclarationCount     uint16
	MaterialCount              uint16
	VertexOffset               [LodCount]uint32
	IndexOffset                [LodCount]uint32
	VertexBufferSize           [LodCount]uint32
	IndexBufferSize            [LodCount]uint32
	LodCount                   uint8
	EnableIndexBufferStreaming bool
	EnableEdgeGeometry         bool
}

// VertexElement describes one attribute inside a vertex stream.
type VertexElement struct {
	Stream     uint8
	Offset     uint8
	Type       VertexType
	Usage      VertexUsage
	UsageIndex uint8
}

// VertexDeclaration lists the elements of one mesh's vertex format.
type VertexDeclaration struct {
	Elements []VertexElement
}

// Has reports whether the declaration carries usage at the given index.
func (d VertexDeclaration) Has(usage VertexUsage, index uint8) bool {
	_, ok := d.Find(usage, index)
	return ok
}

// Find returns the element with the given usage and usage index.
func (d VertexDeclaration) Find(usage VertexUsage, index uint8) (VertexElement, bool) {
	for _, e := range d.Elements {
		if e.Usage == usage && e.UsageIndex == index {
			return e, true
		}
	}
	return VertexElement{}, false
}

// ModelHeader counts every table that follows it.
type ModelHeader struct {
	Radius                     float32
	MeshCount                  uint16
	AttributeCount             uint16
	SubmeshCount               uint16
	MaterialCount              uint16
	BoneCount                  uint16
	BoneTableCount             uint16
	ShapeCount                 uint16
	ShapeMeshCount             uint16
	ShapeValueCount            uint16
	LodCount                   uint8
	Flags1                     uint8
	ElementIDCount             uint16
	TerrainShadowMeshCount     uint8
	Flags2                     uint8
	ModelClipOutDistance       float32
	ShadowClipOutDistance      float32
	TerrainShadowSubmeshCount  uint16
	BGChangeMaterialIndex      uint8
	BGCrestChangeMaterialIndex uint8
	BoneTableArrayCountTotal   uint16
}

// ExtraLodEnabled reports whether the extra LOD block is present.
func (h ModelHeader) ExtraLodEnabled() bool { return h.Flags2&0x10 != 0 }

// ElementID is an attach point definition.
type ElementID struct {
	ElementID      uint32
	ParentBoneName uint32
	Translate      [3]float32
	Rotate         [3]float32
}

// Lod is one level-of-detail record.
type Lod struct {
	MeshIndex              uint16
	MeshCount              uint16
	ModelLodRange          float32
	TextureLodRange        float32
	WaterMeshIndex         uint16
	WaterMeshCount         uint16
	ShadowMeshIndex        uint16
	ShadowMeshCount        uint16
	TerrainShadowMeshIndex uint16
	TerrainShadowMeshCount uint16
	VerticalFogMeshIndex   uint16
	VerticalFogMeshCount   uint16
	EdgeGeometrySize       uint32
	EdgeGeometryDataOffset uint32
	PolygonCount           uint32
	VertexBufferSize       uint32
	IndexBufferSize        uint32
	VertexDataOffset       uint32
	IndexDataOffset        uint32
}

// Mesh is a raw mesh record.
type Mesh struct {
	VertexCount        uint16
	IndexCount         uint32
	MaterialIndex      uint16
	SubmeshIndex       uint16
	SubmeshCount       uint16
	BoneTableIndex     uint16
	StartIndex         uint32
	VertexBufferOffset [MaxStreams]uint32
	VertexBufferStride [MaxStreams]uint8
	VertexStreamCount  uint8
}

// Skinned reports whether the mesh references a bone table.
func (m Mesh) Skinned() bool { return m.BoneTableIndex != NoBoneTable }

// Submesh is a contiguous index range inside a mesh.
type Submesh struct {
	IndexOffset        uint32
	IndexCount         uint32
	AttributeIndexMask uint32
	BoneStartIndex     uint16
	BoneCount          uint16
}

// BoneTable maps mesh-local bone indices to model bone indices.
type BoneTable struct {
	BoneIndex []uint16
}

// Shape is a named morph definition with per-LOD shape mesh ranges.
type Shape struct {
	StringOffset        uint32
	ShapeMeshStartIndex [LodCount]uint16
	ShapeMeshCount      [LodCount]uint16
}

// ShapeMesh links a shape to the mesh whose start index equals MeshIndexOffset.
type ShapeMesh struct {
	MeshIndexOffset  uint32
	ShapeValueCount  uint32
	ShapeValueOffset uint32
}

// ShapeValue maps an index-buffer slot to a replacement vertex.
type ShapeValue struct {
	BaseIndicesIndex     uint16
	ReplacingVertexIndex uint16
}

// BoundingBox is an axis-aligned box stored as min/max vec4.
type BoundingBox struct {
	Min [4]float32
	Max [4]float32
}
