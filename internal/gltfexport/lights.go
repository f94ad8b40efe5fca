package gltfexport

import (
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/ext/lightspuntual"

	"scene-exporter/internal/scene"
)

// lights writes the scene lights as KHR_lights_punctual and links them from
// their nodes. Nodes must already be built.
func (b *builder) lights(s *scene.Scene) {
	if len(s.Lights) == 0 {
		return
	}
	out := make(lightspuntual.Lights, 0, len(s.Lights))
	for _, l := range s.Lights {
		out = append(out, punctual(l))
	}
	if b.doc.Extensions == nil {
		b.doc.Extensions = gltf.Extensions{}
	}
	b.doc.Extensions[lightspuntual.ExtensionName] = map[string]any{"lights": out}
	for i, n := range s.Nodes {
		if n.Light == scene.None {
			continue
		}
		b.doc.Nodes[i].Extensions = gltf.Extensions{
			lightspuntual.ExtensionName: map[string]any{"light": lightspuntual.LightIndex(n.Light)},
		}
	}
	b.use(lightspuntual.ExtensionName)
}

func punctual(l *scene.Light) *lightspuntual.Light {
	color := [3]float32(l.Color)
	out := &lightspuntual.Light{
		Type:      l.Type,
		Name:      l.Name,
		Color:     &color,
		Intensity: gltf.Float(l.Intensity),
	}
	if l.Type != scene.LightDirectional && l.Range > 0 {
		out.Range = gltf.Float(l.Range)
	}
	if l.Type == scene.LightSpot {
		out.Spot = &lightspuntual.Spot{InnerConeAngle: l.InnerCone, OuterConeAngle: gltf.Float(l.OuterCone)}
	}
	return out
}
