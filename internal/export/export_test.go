package export_test

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/ext/lightspuntual"

	"scene-exporter/internal/assetstore"
	"scene-exporter/internal/export"
	"scene-exporter/internal/gltfexport"
	"scene-exporter/internal/material"
	"scene-exporter/internal/mathutil"
	"scene-exporter/internal/mdl/mdltest"
	"scene-exporter/internal/mtrl"
	"scene-exporter/internal/mtrl/mtrltest"
	"scene-exporter/internal/skeleton"
	"scene-exporter/internal/snapshot"
	"scene-exporter/internal/tera"
	"scene-exporter/internal/tex/textest"
)

const (
	topPath    = "chara/equipment/e0001/model/c0101e0001_top.mdl"
	topMtrl    = "chara/equipment/e0001/material/v0001/mt_c0101e0001_top_a.mtrl"
	weaponPath = "chara/weapon/w0101/obj/body/b0001/model/w0101b0001.mdl"
	normalPath = "chara/equipment/e0001/texture/v01_c0101e0001_top_n.tex"
	maskPath   = "chara/equipment/e0001/texture/v01_c0101e0001_top_m.tex"
)

func modelBytes(bones ...string) []byte {
	m := mdltest.Mesh{
		Positions:    [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Normals:      [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		UVs:          [][2]float32{{0, 0}, {1, 0}, {0, 1}},
		BlendIndices: [][4]uint8{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}},
		BlendWeights: [][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}},
		Indices:      []uint16{0, 1, 2},
		Submeshes:    []mdltest.Submesh{{Offset: 0, Count: 3}},
		BoneTable:    0,
	}
	table := make([]uint16, len(bones))
	for i := range table {
		table[i] = uint16(i)
	}
	return mdltest.Encode(mdltest.Model{
		Bones:      bones,
		BoneTables: [][]uint16{table},
		Materials:  []string{"/mt_c0101e0001_top_a.mtrl"},
		Meshes:     []mdltest.Mesh{m},
	})
}

func newStore() *assetstore.Mem {
	s := assetstore.NewMem()
	s.Put(topPath, modelBytes("n_root", "j_kosi"))
	s.Put(weaponPath, modelBytes("n_root"))
	s.Put(normalPath, textest.Encode(textest.Solid(4, 4, 128, 128, 255, 255)))
	s.Put(maskPath, textest.Encode(textest.Solid(4, 4, 255, 0, 0, 255)))
	s.Put(topMtrl, mtrltest.Encode(mtrltest.Material{
		ShaderPackage: "character.shpk",
		Textures: []mtrltest.Texture{
			{Path: normalPath, Usage: mtrl.SamplerNormal},
			{Path: maskPath, Usage: mtrl.SamplerMask},
		},
	}))
	return s
}

func skel(names []string, parents []int16) skeleton.Skeleton {
	ref := make([]mathutil.Transform, len(names))
	for i := range ref {
		ref[i] = mathutil.Identity()
		ref[i].Translation[1] = float32(i)
	}
	return skeleton.Skeleton{
		Transform: mathutil.Identity(),
		PartialSkeletons: []skeleton.PartialSkeleton{{
			HandlePath:         "chara/human/c0101/skeleton/base/b0001/skl_c0101b0001.sklb",
			HkSkeleton:         &skeleton.HkSkeleton{BoneNames: names, ParentIndices: parents, ReferencePose: ref},
			ConnectedBoneIndex: -1,
		}},
	}
}

func request() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Name: "gpose",
		Characters: []snapshot.Character{
			{
				ID:       "player",
				Race:     101,
				Skeleton: skel([]string{"n_root", "j_kosi"}, []int16{-1, 0}),
				Models: []snapshot.Model{{
					Path:      topPath,
					Materials: []snapshot.Material{{Path: topMtrl}},
				}},
			},
			{
				ID:       "weapon",
				Skeleton: skel([]string{"n_root"}, []int16{-1}),
				Attach:   &snapshot.Attach{Parent: "player", ExecuteType: skeleton.AttachWeapon},
				Models:   []snapshot.Model{{Path: weaponPath}},
			},
		},
		Timeline: []snapshot.Frame{
			{Time: 0, Bones: map[string]map[string]mathutil.Transform{"player": {"J_Kosi": mathutil.Identity()}}},
			{Time: 1, Bones: map[string]map[string]mathutil.Transform{}},
		},
		Layout: &snapshot.Layout{
			Roots: []uint64{1},
			Instances: []snapshot.Instance{
				{ID: 1, Name: "props", Children: []uint64{2}},
				{ID: 2, Name: "rock", Model: &snapshot.Model{Path: topPath, Materials: []snapshot.Material{{Path: topMtrl}}}},
			},
		},
	}
}

func config(dir string, store assetstore.Store) export.Config {
	return export.Config{
		Store:       store,
		OutputDir:   dir,
		Format:      gltfexport.FormatGLB,
		TextureMode: material.ModeRaw,
		Workers:     2,
		MaxInFlight: 2,
		Logger:      slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	cfg := config(dir, newStore())
	results := export.Run(context.Background(), cfg, []export.Job{{Name: "gpose", Snapshot: request()}})
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("results = %+v", results)
	}
	out := filepath.Join(dir, "gpose.glb")
	if results[0].Output != out {
		t.Errorf("output = %q", results[0].Output)
	}

	doc, err := gltf.Open(out)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	names := make(map[string]bool)
	for _, n := range doc.Nodes {
		names[n.Name] = true
	}
	for _, want := range []string{"player", "n_root", "j_kosi", "n_root_1", "props", "rock"} {
		if !names[want] {
			t.Errorf("node %q missing", want)
		}
	}
	if len(doc.Skins) != 2 {
		t.Errorf("skins = %d, want player and weapon", len(doc.Skins))
	}
	if len(doc.Animations) != 1 || doc.Animations[0].Name != "gpose_timeline" {
		t.Errorf("animations = %+v", doc.Animations)
	}
	// the shared material is baked once for the player and once for the layout
	if len(doc.Materials) != 1 || len(doc.Images) != 2 {
		t.Errorf("materials = %d, images = %d", len(doc.Materials), len(doc.Images))
	}

	manifest := filepath.Join(dir, "manifest.json")
	if err := export.WriteManifest(manifest, cfg, results); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(manifest)
	if err != nil {
		t.Fatal(err)
	}
	var m export.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m.Succeeded != 1 || m.Failed != 0 || m.Results[0].Output != "gpose.glb" || m.Format != "glb" {
		t.Errorf("manifest = %+v", m)
	}
}

func TestFailedAssetIsSkipped(t *testing.T) {
	const missingMtrl = "chara/equipment/e0001/material/v0001/mt_missing.mtrl"
	dir := t.TempDir()
	store := newStore()
	store.Put(weaponPath, []byte("not a model"))
	snap := request()
	snap.Characters[0].Models[0].Materials[0].Path = missingMtrl

	results := export.Run(context.Background(), config(dir, store), []export.Job{{Name: "partial", Snapshot: snap}})
	r := results[0]
	if !r.Success || r.Error != "" {
		t.Fatalf("result = %+v, want success", r)
	}
	if len(r.Failures) != 2 {
		t.Fatalf("failures = %+v, want the material and the weapon model", r.Failures)
	}
	if r.Failures[0].Path != missingMtrl || !strings.Contains(r.Failures[0].Error, "not found") {
		t.Errorf("failure[0] = %+v", r.Failures[0])
	}
	if r.Failures[1].Path != weaponPath {
		t.Errorf("failure[1] = %+v", r.Failures[1])
	}

	doc, err := gltf.Open(filepath.Join(dir, "partial.glb"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	names := make(map[string]bool)
	for _, n := range doc.Nodes {
		names[n.Name] = true
	}
	// the weapon skeleton is still grafted, only its model is gone
	for _, want := range []string{"player", "j_kosi", "n_root_1", "rock"} {
		if !names[want] {
			t.Errorf("node %q missing", want)
		}
	}
	if len(doc.Skins) != 1 {
		t.Errorf("skins = %d, want the player only", len(doc.Skins))
	}
	// the layout still finds the material the player's copy lacked
	if len(doc.Materials) != 1 {
		t.Errorf("materials = %d, want 1", len(doc.Materials))
	}
	var bare int
	for _, m := range doc.Meshes {
		for _, p := range m.Primitives {
			if p.Material == nil {
				bare++
			}
		}
	}
	if bare != 1 {
		t.Errorf("primitives without material = %d, want 1", bare)
	}
}

func TestFailedJobWritesNothing(t *testing.T) {
	dir := t.TempDir()
	snap := request()
	snap.Characters[1].Attach.Parent = "nobody"

	results := export.Run(context.Background(), config(dir, newStore()), []export.Job{
		{Name: "broken", Snapshot: snap},
		{Name: "good", Snapshot: request()},
	})
	if results[0].Success || !strings.Contains(results[0].Error, "unknown id") {
		t.Errorf("broken result = %+v", results[0])
	}
	if !results[1].Success {
		t.Errorf("good result = %+v", results[1])
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "broken") {
			t.Errorf("failed job wrote %s", e.Name())
		}
	}
}

func TestCancelled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := export.Run(ctx, config(dir, newStore()), []export.Job{{Name: "a", Snapshot: request()}, {Name: "b", Snapshot: request()}})
	for _, r := range results {
		if r.Success || r.Error != context.Canceled.Error() {
			t.Errorf("result = %+v", r)
		}
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("cancelled run wrote %d files", len(entries))
	}
}

func TestAttachNotFound(t *testing.T) {
	snap := request()
	snap.Characters[1].Attach.Attachments = []skeleton.Attachment{{Mask: skeleton.PackMask(0, 9), Offset: mathutil.Identity()}}

	dir := t.TempDir()
	cfg := config(dir, newStore())
	res := export.Run(context.Background(), cfg, []export.Job{{Name: "strict", Snapshot: snap}})
	if res[0].Success || !strings.Contains(res[0].Error, "attach bone not found") {
		t.Errorf("strict = %+v", res[0])
	}

	cfg.Lenient = true
	res = export.Run(context.Background(), cfg, []export.Job{{Name: "lenient", Snapshot: snap}})
	if !res[0].Success {
		t.Errorf("lenient = %+v", res[0])
	}
}

func TestMissingDeformerKeepsRace(t *testing.T) {
	snap := request()
	snap.Characters[0].Race = 201
	res := export.Run(context.Background(), config(t.TempDir(), newStore()), []export.Job{{Name: "npc", Snapshot: snap}})
	if !res[0].Success {
		t.Fatalf("result = %+v", res[0])
	}
}

func TestNoStore(t *testing.T) {
	cfg := config(t.TempDir(), nil)
	res := export.Run(context.Background(), cfg, []export.Job{{Name: "x", Snapshot: request()}})
	if res[0].Success || res[0].Error != export.ErrNoStore.Error() {
		t.Errorf("result = %+v", res[0])
	}
}

func TestAssetError(t *testing.T) {
	err := &export.AssetError{Path: topPath, Err: assetstore.ErrNotFound}
	if !errors.Is(err, assetstore.ErrNotFound) {
		t.Error("AssetError does not unwrap")
	}
	if !strings.Contains(err.Error(), topPath) {
		t.Errorf("message = %q", err.Error())
	}
}

func teraBytes(size uint32, cells ...[2]int16) []byte {
	out := binary.LittleEndian.AppendUint32(nil, 1)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(cells)))
	out = binary.LittleEndian.AppendUint32(out, size)
	out = append(out, make([]byte, 4+4+32)...)
	for _, c := range cells {
		out = binary.LittleEndian.AppendUint16(out, uint16(c[0]))
		out = binary.LittleEndian.AppendUint16(out, uint16(c[1]))
	}
	return out
}

func TestTerrainAndLights(t *testing.T) {
	const terrainDir = "bg/ex1/01_roc_r2/dun/r2d1"
	dir := t.TempDir()
	store := newStore()
	store.Put(tera.Path(terrainDir), teraBytes(32, [2]int16{1, 0}, [2]int16{0, 1}))
	store.Put(tera.PlatePath(terrainDir, 0), mdltest.Encode(mdltest.Model{
		Bones:      []string{"n_root"},
		BoneTables: [][]uint16{{0}},
		Materials:  []string{topMtrl},
		Meshes: []mdltest.Mesh{{
			Positions:    [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}},
			Normals:      [][3]float32{{0, 1, 0}, {0, 1, 0}, {0, 1, 0}},
			UVs:          [][2]float32{{0, 0}, {1, 0}, {0, 1}},
			BlendIndices: [][4]uint8{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}},
			BlendWeights: [][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}},
			Indices:      []uint16{0, 1, 2},
			Submeshes:    []mdltest.Submesh{{Offset: 0, Count: 3}},
		}},
	}))
	snap := &snapshot.Snapshot{Layout: &snapshot.Layout{
		Roots: []uint64{1, 2},
		Instances: []snapshot.Instance{
			{ID: 1, Light: &snapshot.Light{Type: snapshot.LightPoint, Intensity: 3}},
			{ID: 2, Name: "ground", Terrain: terrainDir},
		},
	}}

	results := export.Run(context.Background(), config(dir, store), []export.Job{{Name: "zone", Snapshot: snap}})
	r := results[0]
	if !r.Success {
		t.Fatalf("result = %+v", r)
	}
	if len(r.Failures) != 1 || r.Failures[0].Path != tera.PlatePath(terrainDir, 1) {
		t.Fatalf("failures = %+v, want the missing second plate", r.Failures)
	}

	doc, err := gltf.Open(filepath.Join(dir, "zone.glb"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	byName := make(map[string]*gltf.Node)
	for _, n := range doc.Nodes {
		byName[n.Name] = n
	}
	plate := byName["Plate0000"]
	if plate == nil {
		t.Fatal("Plate0000 missing")
	}
	if plate.Translation != [3]float32{48, 0, 16} {
		t.Errorf("plate at %v", plate.Translation)
	}
	if byName["Plate0001"] != nil {
		t.Error("missing plate still placed")
	}
	if len(doc.Materials) != 1 || doc.Materials[0].Name == "" {
		t.Errorf("plate materials = %d", len(doc.Materials))
	}

	lamp := byName["instance_1"]
	if lamp == nil {
		t.Fatal("light node missing")
	}
	if _, ok := lamp.Extensions[lightspuntual.ExtensionName].(lightspuntual.LightIndex); !ok {
		t.Errorf("light node extensions = %v", lamp.Extensions)
	}
	lights, ok := doc.Extensions[lightspuntual.ExtensionName].(lightspuntual.Lights)
	if !ok || len(lights) != 1 || lights[0].Name != "Light_1" || lights[0].IntensityOrDefault() != 3 {
		t.Errorf("lights = %#v", doc.Extensions[lightspuntual.ExtensionName])
	}
}
