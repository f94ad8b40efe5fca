package material

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path"
	"strings"

	"scene-exporter/internal/mtrl"
	"scene-exporter/internal/texture"
)

// Kind is the shader family a material is emulated as.
type Kind int

const (
	KindGeneric Kind = iota
	KindCharacter
	KindTattoo
	KindOcclusion
	KindSkin
	KindHair
	KindIris
	KindBackground
	KindLightshaft
)

var kindNames = [...]string{
	KindGeneric:    "generic",
	KindCharacter:  "character",
	KindTattoo:     "tattoo",
	KindOcclusion:  "occlusion",
	KindSkin:       "skin",
	KindHair:       "hair",
	KindIris:       "iris",
	KindBackground: "background",
	KindLightshaft: "lightshaft",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// customized reports whether baked output depends on customize parameters.
func (k Kind) customized() bool {
	switch k {
	case KindSkin, KindHair, KindIris, KindTattoo:
		return true
	}
	return false
}

// Classify maps a shader package name, with or without extension, to the
// builder that emulates it.
func Classify(shaderPackage string) Kind {
	stem := strings.ToLower(strings.TrimSuffix(shaderPackage, ".shpk"))
	switch stem {
	case "character", "characterlegacy", "characterglass":
		return KindCharacter
	case "charactertattoo":
		return KindTattoo
	case "characterocclusion":
		return KindOcclusion
	case "skin":
		return KindSkin
	case "hair":
		return KindHair
	case "iris":
		return KindIris
	case "bg", "bgcolorchange", "bguvscroll":
		return KindBackground
	case "lightshaft":
		return KindLightshaft
	}
	return KindGeneric
}

type builderFunc func(b *build) error

var builders = map[Kind]builderFunc{
	KindCharacter:  buildCharacter,
	KindTattoo:     buildTattoo,
	KindOcclusion:  buildOcclusion,
	KindSkin:       buildSkin,
	KindHair:       buildHair,
	KindIris:       buildIris,
	KindBackground: buildBackground,
	KindLightshaft: buildLightshaft,
	KindGeneric:    buildRaw,
}

// build is the state shared by the builders of one material.
type build struct {
	ctx    context.Context
	set    *mtrl.MaterialSet
	params Params
	deps   Deps
	kind   Kind
	salt   []string
	m      *Material
}

// Build produces the exporter material for set. In ModeBake the shader
// family's builder bakes up to five textures into deps.Sink; in ModeRaw the
// bound textures are stored unchanged under their mapped channels. Any
// failure is fatal for this material only.
func Build(ctx context.Context, set *mtrl.MaterialSet, params Params, deps Deps) (*Material, error) {
	if deps.Textures == nil || deps.Sink == nil {
		return nil, ErrNoTextures
	}
	kind := Classify(set.ShaderPackageStem())

	salt := []string{params.Mode.String()}
	if kind.customized() {
		salt = append(salt, params.salt())
	}
	if kind == KindBackground && params.Stain != nil {
		salt = append(salt, fmt.Sprint(*params.Stain))
	}

	b := &build{
		ctx:    ctx,
		set:    set,
		params: params,
		deps:   deps,
		kind:   kind,
		salt:   salt,
		m:      newMaterial(set.Name(salt...), set.ShaderPackage),
	}
	b.m.DoubleSided = set.RenderBackfaces()
	b.m.Extras = set.Extras()
	b.m.Extras["TextureMode"] = params.Mode.String()
	b.m.Extras["Kind"] = kind.String()

	fn := builders[kind]
	if params.Mode == ModeRaw {
		fn = buildRaw
	}
	if err := fn(b); err != nil {
		return nil, fmt.Errorf("material: %s (%s): %w", set.Path, set.ShaderPackage, err)
	}
	deps.logger().Debug("material built", "material", set.Path, "kind", kind.String(),
		"mode", params.Mode.String(), "textures", len(b.m.Channels))
	return b.m, nil
}

// load resolves a texture the variant cannot do without.
func (b *build) load(usage mtrl.TextureUsage) (*image.NRGBA, error) {
	p, err := b.set.RequireTexture(usage)
	if err != nil {
		return nil, err
	}
	img, err := b.deps.Textures.Resolve(b.ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", usage, p, err)
	}
	return img, nil
}

// loadOptional resolves a texture the variant can do without. An unbound
// usage returns nil; a bound texture that fails to load is still an error.
func (b *build) loadOptional(usage mtrl.TextureUsage) (*image.NRGBA, error) {
	if _, ok := b.set.Texture(usage); !ok {
		return nil, nil
	}
	return b.load(usage)
}

// bake runs fn over a w×h canvas and stores its outputs. A cancelled or
// failed loop stores nothing.
func (b *build) bake(c *canvas, fn func(x, y int)) error {
	if err := forPixels(b.ctx, c.w, c.h, b.deps.Workers, fn); err != nil {
		return err
	}
	return c.commit(b.set, b.deps.Sink, b.m, b.salt...)
}

// alphaThreshold applies the common g_AlphaThreshold handling.
func (b *build) alphaThreshold() float32 {
	t := b.set.ConstantOr(mtrl.ConstAlphaThreshold, 0)
	if t > 0 {
		b.m.AlphaMode = AlphaMask
		b.m.AlphaCutoff = t
	}
	return t
}

// fit resamples data textures to the canvas size.
func fit(img *image.NRGBA, w, h int) *image.NRGBA {
	if img == nil || (img.Rect.Dx() == w && img.Rect.Dy() == h) {
		return img
	}
	return texture.ResizeOpaque(img, w, h)
}

// fitColor resamples colour textures to the canvas size, weighting colour
// by alpha.
func fitColor(img *image.NRGBA, w, h int) *image.NRGBA {
	if img == nil {
		return nil
	}
	return texture.Resize(img, w, h)
}

// nearest returns the raw bytes of the texel covering canvas pixel (x, y).
// Index textures must not be filtered.
func nearest(img *image.NRGBA, x, y, w, h int) []uint8 {
	sx := x * img.Rect.Dx() / w
	sy := y * img.Rect.Dy() / h
	i := img.PixOffset(img.Rect.Min.X+sx, img.Rect.Min.Y+sy)
	return img.Pix[i : i+4 : i+4]
}

var rawChannels = map[mtrl.TextureUsage]Channel{
	mtrl.SamplerDiffuse:      ChannelBaseColor,
	mtrl.SamplerColorMap0:    ChannelBaseColor,
	mtrl.SamplerColorMap1:    ChannelBaseColor,
	mtrl.SamplerColorMap:     ChannelBaseColor,
	mtrl.SamplerNormal:       ChannelNormal,
	mtrl.SamplerNormalMap0:   ChannelNormal,
	mtrl.SamplerNormalMap1:   ChannelNormal,
	mtrl.SamplerNormalMap:    ChannelNormal,
	mtrl.SamplerNormal2:      ChannelNormal,
	mtrl.SamplerMask:         ChannelSpecularFactor,
	mtrl.SamplerSpecular:     ChannelSpecularColor,
	mtrl.SamplerSpecularMap0: ChannelSpecularColor,
	mtrl.SamplerSpecularMap1: ChannelSpecularColor,
	mtrl.SamplerSpecularMap:  ChannelSpecularColor,
	mtrl.SamplerCatchlight:   ChannelEmissive,
}

// RawChannel reports the channel a texture usage is passed through as.
func RawChannel(u mtrl.TextureUsage) (Channel, bool) {
	ch, ok := rawChannels[u]
	return ch, ok
}

// buildRaw stores the bound textures unchanged. Unmapped usages are skipped
// and the first texture of a channel wins; a texture that fails to load is
// logged and left out.
func buildRaw(b *build) error {
	log := b.deps.logger()
	for _, slot := range b.set.Textures {
		if err := b.ctx.Err(); err != nil {
			return err
		}
		ch, ok := rawChannels[slot.Usage]
		if !ok {
			continue
		}
		if _, done := b.m.Channels[ch]; done {
			continue
		}
		img, err := b.deps.Textures.Resolve(b.ctx, slot.Path)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			log.Warn("texture unavailable", "material", b.set.Path, "usage", slot.Usage.String(), "path", slot.Path, "err", err)
			continue
		}
		name := b.set.ComputedTextureName(textureStem(slot.Path), b.salt...)
		ref, err := b.deps.Sink.CacheTexture(img, name)
		if err != nil {
			return fmt.Errorf("store %s: %w", name, err)
		}
		b.m.Channels[ch] = TextureRef{Name: name, Ref: ref}
	}
	b.m.VertexPaint = true
	b.alphaThreshold()
	return nil
}

func textureStem(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}
