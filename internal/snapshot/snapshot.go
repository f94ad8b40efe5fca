// Package snapshot holds an export request as plain records: the characters
// to export with their skeletons, models, materials and customization, the
// attach links between them, an optional timeline, and a background layout.
// Snapshots are JSON, optionally zstd compressed.
package snapshot

import (
	"github.com/go-gl/mathgl/mgl32"

	"scene-exporter/internal/material"
	"scene-exporter/internal/mathutil"
	"scene-exporter/internal/skeleton"
)

// Version is the snapshot format version written by Save.
const Version = 1

// DefaultDeformer is the race deformer file used when a snapshot names none.
const DefaultDeformer = "chara/xls/bonedeformer/human.pbd"

// Snapshot is one export request.
type Snapshot struct {
	Version    int         `json:"version"`
	Name       string      `json:"name,omitempty"`
	Deformer   string      `json:"deformer,omitempty"`
	Characters []Character `json:"characters,omitempty"`
	Timeline   []Frame     `json:"timeline,omitempty"`
	Layout     *Layout     `json:"layout,omitempty"`
}

// Character is one skeleton with the models skinned to it.
type Character struct {
	ID        string                    `json:"id"`
	Name      string                    `json:"name,omitempty"`
	Transform *mathutil.Transform       `json:"transform,omitempty"`
	Skeleton  skeleton.Skeleton         `json:"skeleton"`
	Pose      string                    `json:"pose,omitempty"`
	Race      uint16                    `json:"race,omitempty"`
	Models    []Model                   `json:"models,omitempty"`
	Customize *material.CustomizeParams `json:"customize,omitempty"`
	Data      material.CustomizeData    `json:"customize_data"`
	Attach    *Attach                   `json:"attach,omitempty"`
}

// Attach links a character's skeleton under a bone of its parent character.
type Attach struct {
	Parent      string                `json:"parent"`
	ExecuteType int                   `json:"execute_type"`
	Attachments []skeleton.Attachment `json:"attachments,omitempty"`
}

// Model is one model file and the materials applied to it, indexed like the
// model's material names.
type Model struct {
	Path      string     `json:"path"`
	LOD       int        `json:"lod,omitempty"`
	Materials []Material `json:"materials,omitempty"`
}

// Material is a material file with optional per-slot texture overrides.
// Empty override entries keep the file's texture.
type Material struct {
	Path     string      `json:"path"`
	Textures []string    `json:"textures,omitempty"`
	Stain    *mgl32.Vec3 `json:"stain,omitempty"`
}

// Frame is one timeline sample. Bones is keyed by character id, then bone
// name.
type Frame struct {
	Time  float32                                  `json:"time"`
	Bones map[string]map[string]mathutil.Transform `json:"bones"`
}

// Layout is a background instance graph. Groups reference their children by
// id, so a group may be shared by several parents.
type Layout struct {
	Roots     []uint64   `json:"roots"`
	Instances []Instance `json:"instances"`
}

// Instance is one layout entry. Entries without a model, light or terrain
// are groups.
type Instance struct {
	ID        uint64              `json:"id"`
	Name      string              `json:"name,omitempty"`
	Transform *mathutil.Transform `json:"transform,omitempty"`
	Model     *Model              `json:"model,omitempty"`
	Light     *Light              `json:"light,omitempty"`
	// Terrain is a terrain directory holding bgplate/terrain.tera and its
	// plate models.
	Terrain  string   `json:"terrain,omitempty"`
	Children []uint64 `json:"children,omitempty"`
}

// Light types.
const (
	LightPoint       = "point"
	LightSpot        = "spot"
	LightDirectional = "directional"
)

// Light is a punctual light. Zero values take the defaults: a white point
// light of intensity 1 with unbounded range.
type Light struct {
	Type      string      `json:"type,omitempty"`
	Color     *mgl32.Vec3 `json:"color,omitempty"`
	Intensity float32     `json:"intensity,omitempty"`
	Range     float32     `json:"range,omitempty"`
	InnerCone float32     `json:"inner_cone,omitempty"`
	OuterCone float32     `json:"outer_cone,omitempty"`
}

// Local returns the instance transform, identity when unset.
func (i Instance) Local() mathutil.Transform {
	if i.Transform == nil {
		return mathutil.Identity()
	}
	return *i.Transform
}

// Local returns the character transform, identity when unset.
func (c Character) Local() mathutil.Transform {
	if c.Transform == nil {
		return mathutil.Identity()
	}
	return *c.Transform
}

// DisplayName returns Name, falling back to ID.
func (c Character) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// DeformerPath returns the race deformer file to use.
func (s *Snapshot) DeformerPath() string {
	if s.Deformer != "" {
		return s.Deformer
	}
	return DefaultDeformer
}
