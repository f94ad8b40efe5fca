// Package material turns decoded material sets into exporter materials,
// either by emulating the game shaders into baked textures or by passing
// the original textures through.
package material

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"scene-exporter/internal/texture"
)

// Mode selects how textures are produced.
type Mode int

const (
	ModeBake Mode = iota
	ModeRaw
)

// ParseMode accepts "bake" and "raw".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "bake":
		return ModeBake, nil
	case "raw":
		return ModeRaw, nil
	}
	return ModeBake, fmt.Errorf("material: unknown texture mode %q", s)
}

func (m Mode) String() string {
	if m == ModeRaw {
		return "raw"
	}
	return "bake"
}

// Channel is a texture slot of an exported material.
type Channel int

const (
	ChannelBaseColor Channel = iota
	ChannelNormal
	ChannelMetallicRoughness
	ChannelEmissive
	ChannelThickness
	ChannelSpecularFactor
	ChannelSpecularColor
	ChannelOcclusion
)

var channelNames = [...]string{
	ChannelBaseColor:         "baseColor",
	ChannelNormal:            "normal",
	ChannelMetallicRoughness: "metallicRoughness",
	ChannelEmissive:          "emissive",
	ChannelThickness:         "thickness",
	ChannelSpecularFactor:    "specular",
	ChannelSpecularColor:     "specularColor",
	ChannelOcclusion:         "occlusion",
}

func (c Channel) String() string {
	if c >= 0 && int(c) < len(channelNames) {
		return channelNames[c]
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// AlphaMode mirrors the glTF alpha modes.
type AlphaMode int

const (
	AlphaOpaque AlphaMode = iota
	AlphaMask
	AlphaBlend
)

func (a AlphaMode) String() string {
	switch a {
	case AlphaMask:
		return "MASK"
	case AlphaBlend:
		return "BLEND"
	}
	return "OPAQUE"
}

// TextureRef points at a texture stored in a sink.
type TextureRef struct {
	Name string // suggested name the texture was stored under
	Ref  string // reference returned by the sink
}

// Material is the exporter-facing result of a build.
type Material struct {
	Name          string
	ShaderPackage string

	Channels map[Channel]TextureRef

	BaseColorFactor mgl32.Vec4
	EmissiveFactor  mgl32.Vec3
	MetallicFactor  float32
	RoughnessFactor float32
	SpecularFactor  float32
	ThicknessFactor float32
	NormalScale     float32
	AlphaMode       AlphaMode
	AlphaCutoff     float32
	DoubleSided     bool
	IOR             float32
	VertexPaint     bool
	Extras          map[string]any
}

func newMaterial(name, shpk string) *Material {
	return &Material{
		Name:            name,
		ShaderPackage:   shpk,
		Channels:        make(map[Channel]TextureRef),
		BaseColorFactor: mgl32.Vec4{1, 1, 1, 1},
		MetallicFactor:  0,
		RoughnessFactor: 1,
		SpecularFactor:  1,
		NormalScale:     1,
		AlphaCutoff:     0.5,
		IOR:             1.5,
		Extras:          make(map[string]any),
	}
}

// CustomizeParams are the per-character colours the game feeds the skin,
// hair, iris and tattoo shaders.
type CustomizeParams struct {
	SkinColor   mgl32.Vec3 `json:"skin_color"`
	LipColor    mgl32.Vec4 `json:"lip_color"`
	MainColor   mgl32.Vec3 `json:"main_color"`
	MeshColor   mgl32.Vec3 `json:"mesh_color"`
	OptionColor mgl32.Vec3 `json:"option_color"`
	LeftColor   mgl32.Vec4 `json:"left_color"`
	RightColor  mgl32.Vec4 `json:"right_color"`
}

// DefaultCustomize is used when a character carries no parameters.
func DefaultCustomize() CustomizeParams {
	return CustomizeParams{
		SkinColor:   mgl32.Vec3{1, 1, 1},
		LipColor:    mgl32.Vec4{1, 1, 1, 0},
		MainColor:   mgl32.Vec3{1, 1, 1},
		MeshColor:   mgl32.Vec3{1, 1, 1},
		OptionColor: mgl32.Vec3{1, 1, 1},
		LeftColor:   mgl32.Vec4{1, 1, 1, 1},
		RightColor:  mgl32.Vec4{1, 1, 1, 1},
	}
}

// CustomizeData holds the customize toggles that change shader output.
type CustomizeData struct {
	Highlights bool `json:"highlights"`
	LipStick   bool `json:"lip_stick"`
}

// Params is the per-instance input of Build.
type Params struct {
	Mode      Mode
	Customize *CustomizeParams
	Data      CustomizeData
	// Stain overrides the diffuse colour of colour-change background
	// materials when set.
	Stain *mgl32.Vec3
}

func (p Params) customize() CustomizeParams {
	if p.Customize != nil {
		return *p.Customize
	}
	return DefaultCustomize()
}

// salt renders the parameters that change baked pixels so the texture names
// differ per character.
func (p Params) salt() string {
	c := p.customize()
	return fmt.Sprintf("%v|%v|%v|%v|%v|%v|%v|%t|%t", c.SkinColor, c.LipColor, c.MainColor,
		c.MeshColor, c.OptionColor, c.LeftColor, c.RightColor, p.Data.Highlights, p.Data.LipStick)
}

// Deps are the shared services a build draws on.
type Deps struct {
	Textures texture.Resolver
	Sink     texture.Sink
	Detail   *texture.DetailContext
	Logger   *slog.Logger
	// Workers bounds the goroutines of one pixel loop; zero uses every CPU.
	Workers int
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
