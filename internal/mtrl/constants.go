package mtrl

import "fmt"

// TextureUsage is the sampler id a texture is bound to.
type TextureUsage uint32

const (
	SamplerNormal       TextureUsage = 0x0C5EC1F1
	SamplerMask         TextureUsage = 0x8A4E82B6
	SamplerIndex        TextureUsage = 0x565F8FD8
	SamplerDiffuse      TextureUsage = 0x115306BE
	SamplerFlow         TextureUsage = 0xA7E197F6
	SamplerSpecular     TextureUsage = 0x2B99E025
	SamplerColorMap0    TextureUsage = 0x1E6FEF9C
	SamplerNormalMap0   TextureUsage = 0xAAB4D9E9
	SamplerSpecularMap0 TextureUsage = 0x1BBC2F12
	SamplerColorMap1    TextureUsage = 0x6968DF0A
	SamplerNormalMap1   TextureUsage = 0xDDB3E97F
	SamplerSpecularMap1 TextureUsage = 0x6CBB1F84
	SamplerColorMap     TextureUsage = 0x6E1DF4A2
	SamplerNormalMap    TextureUsage = 0xBE95B65E
	SamplerSpecularMap  TextureUsage = 0xBD8A6965
	SamplerCatchlight   TextureUsage = 0xFEA0F3D2
	SamplerWrinklesMask TextureUsage = 0xB3F13975
	SamplerNormal2      TextureUsage = 0x0261CDCB
	SamplerGradationMap TextureUsage = 0x5F726C11
	SamplerEnvMap       TextureUsage = 0xF8D7957A
	Sampler0            TextureUsage = 0x213CB439
	Sampler1            TextureUsage = 0x563B84AF
)

var usageNames = map[TextureUsage]string{
	SamplerNormal:       "g_SamplerNormal",
	SamplerMask:         "g_SamplerMask",
	SamplerIndex:        "g_SamplerIndex",
	SamplerDiffuse:      "g_SamplerDiffuse",
	SamplerFlow:         "g_SamplerFlow",
	SamplerSpecular:     "g_SamplerSpecular",
	SamplerColorMap0:    "g_SamplerColorMap0",
	SamplerNormalMap0:   "g_SamplerNormalMap0",
	SamplerSpecularMap0: "g_SamplerSpecularMap0",
	SamplerColorMap1:    "g_SamplerColorMap1",
	SamplerNormalMap1:   "g_SamplerNormalMap1",
	SamplerSpecularMap1: "g_SamplerSpecularMap1",
	SamplerColorMap:     "g_SamplerColorMap",
	SamplerNormalMap:    "g_SamplerNormalMap",
	SamplerSpecularMap:  "g_SamplerSpecularMap",
	SamplerCatchlight:   "g_SamplerCatchlight",
	SamplerWrinklesMask: "g_SamplerWrinklesMask",
	SamplerNormal2:      "g_SamplerNormal2",
	SamplerGradationMap: "g_SamplerGradationMap",
	SamplerEnvMap:       "g_SamplerEnvMap",
	Sampler0:            "g_Sampler0",
	Sampler1:            "g_Sampler1",
}

func (u TextureUsage) String() string {
	if n, ok := usageNames[u]; ok {
		return n
	}
	return fmt.Sprintf("sampler_%08X", uint32(u))
}

// Constant ids of shader parameters.
const (
	ConstAlphaThreshold      uint32 = 0x29AC0223
	ConstShaderID            uint32 = 0x59BDA0B1
	ConstDiffuseColor        uint32 = 0x2C2A34DD
	ConstSpecularColor       uint32 = 0x141722D5
	ConstSpecularColorMask   uint32 = 0xCB0338DC
	ConstEmissiveColor       uint32 = 0x38A64362
	ConstNormalScale         uint32 = 0xB5545FBB
	ConstSheenRate           uint32 = 0x800EE35F
	ConstGlassIOR            uint32 = 0x7801E004
	ConstDetailID            uint32 = 0x8981D4D9
	ConstDetailColor         uint32 = 0xDD93D839
	ConstDetailColorUvScale  uint32 = 0xC63D9716
	ConstDetailNormalScale   uint32 = 0x9F42EDA2
	ConstDetailNormalUvScale uint32 = 0x025A9BEE
	ConstTileIndex           uint32 = 0x4255F2F4
	ConstTileScale           uint32 = 0x2E60B071
	ConstTileAlpha           uint32 = 0x12C6AC9F
	ConstScatteringLevel     uint32 = 0xB500BB24
	ConstWhiteEyeColor       uint32 = 0x11C90091
	ConstSphereMapIndex      uint32 = 0x074953E9
	ConstIrisRingColor       uint32 = 0x50E36D56
	ConstLipRoughnessScale   uint32 = 0x3632401A
	ConstSSAOMask            uint32 = 0xB7FA33E2
	ConstMultiDiffuseColor   uint32 = 0x3F8AC211
	ConstIrisThickness       uint32 = 0x66C93D3E
	ConstIrisOptionColorRate uint32 = 0x29253809
	ConstColor               uint32 = 0xD27C58B9
)

// Shader key categories and their values.
const (
	CategorySkinType uint32 = 0x380CAED0
	SkinBody         uint32 = 0x2BDB45F1
	SkinFace         uint32 = 0xF5673524
	SkinHrothgar     uint32 = 0x57FF3B64

	CategoryHairType uint32 = 0x24826489
	HairFace         uint32 = 0x6E5B8F10
	HairHair         uint32 = 0xF7B8956E

	CategoryTextureType uint32 = 0xB616DC5A
	TextureDefault      uint32 = 0x5CC605B5
	TextureCompat       uint32 = 0x600EF9DF
	TextureSimple       uint32 = 0x22A4AABF

	CategorySpecularType uint32 = 0xC8BD1DEF
	SpecularMask         uint32 = 0xA02F4828
	SpecularDefault      uint32 = 0x198D11CD

	CategoryFlowMap uint32 = 0x40D1481E

	CategoryDiffuseAlpha uint32 = 0xA9A3EE25
	DiffuseAlphaUse      uint32 = 0x72AAA9AE

	CategoryBgVertexPaint uint32 = 0x4F4F0636
	BgVertexPaintOff      uint32 = 0x7C6FA05B
	BgVertexPaintOn       uint32 = 0xBD94649A
)

// Shader flag bits.
const (
	FlagHideBackfaces      uint32 = 0x1
	FlagEnableTranslucency uint32 = 0x10
)
