package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"scene-exporter/internal/assetstore"
	"scene-exporter/internal/mdl"
	"scene-exporter/internal/mtrl"
	"scene-exporter/internal/pbd"
	"scene-exporter/internal/snapshot"
	"scene-exporter/internal/tera"
	"scene-exporter/internal/tex"
)

func main() {
	gameDir := flag.String("game", "", "Read game paths from this extracted tree instead of the local filesystem")
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: inspect [-game dir] file...")
		os.Exit(2)
	}

	failed := 0
	for _, p := range flag.Args() {
		if err := inspect(*gameDir, p); err != nil {
			fmt.Fprintf(os.Stderr, "ERR %s: %v\n", p, err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func inspect(gameDir, p string) error {
	var data []byte
	var err error
	if gameDir != "" {
		data, err = assetstore.Dir{Root: gameDir}.ReadFile(context.Background(), p)
	} else {
		data, err = os.ReadFile(p)
	}
	if err != nil {
		return err
	}

	fmt.Printf("== %s (%d bytes)\n", p, len(data))
	name := strings.ToLower(p)
	switch {
	case strings.HasSuffix(name, ".mdl"):
		return inspectModel(data)
	case strings.HasSuffix(name, ".mtrl"):
		return inspectMaterial(p, data)
	case strings.HasSuffix(name, ".tex"):
		return inspectTexture(data)
	case strings.HasSuffix(name, ".pbd"):
		return inspectDeformer(data)
	case strings.HasSuffix(name, ".tera"):
		return inspectTerrain(data)
	case strings.HasSuffix(name, ".json"), strings.HasSuffix(name, ".json.zst"):
		return inspectSnapshot(p)
	}
	return fmt.Errorf("unknown file type %q", path.Ext(name))
}

func inspectModel(data []byte) error {
	f, err := mdl.Parse(data)
	if err != nil {
		return err
	}
	fmt.Printf("Version: %#x, LODs: %d, Meshes: %d, Submeshes: %d\n",
		f.Header.Version, f.Header.LodCount, len(f.Meshes), len(f.Submeshes))

	bones, err := f.BoneNames()
	if err != nil {
		return err
	}
	materials, err := f.MaterialNames()
	if err != nil {
		return err
	}
	shapes, err := f.ShapeNames()
	if err != nil {
		return err
	}
	fmt.Printf("Bones: %d, Bone tables: %d, Shapes: %d\n", len(bones), len(f.BoneTables), len(shapes))
	for i, m := range materials {
		fmt.Printf("  Material[%d]: %s\n", i, m)
	}

	start, count, err := f.LodMeshes(0)
	if err != nil {
		return err
	}
	for i := start; i < start+count; i++ {
		m := f.Meshes[i]
		decl, err := f.Declaration(i)
		if err != nil {
			return err
		}
		var usages []string
		for _, e := range decl.Elements {
			usages = append(usages, fmt.Sprintf("%s%d", e.Usage, e.UsageIndex))
		}
		fmt.Printf("  Mesh[%d]: verts=%d, indices=%d, material=%d, skinned=%v, elements=[%s]\n",
			i, m.VertexCount, m.IndexCount, m.MaterialIndex, m.Skinned(), strings.Join(usages, " "))
	}
	for _, s := range shapes {
		fmt.Printf("  Shape: %s\n", s)
	}
	return nil
}

func inspectMaterial(p string, data []byte) error {
	f, err := mtrl.Parse(data)
	if err != nil {
		return err
	}
	m, err := mtrl.NewMaterialSet(p, f, nil)
	if err != nil {
		return err
	}
	fmt.Printf("Shader: %s, Flags: %#x, Color table: %v\n", m.ShaderPackage, m.Flags, m.ColorTable != nil)
	for _, t := range m.Textures {
		fmt.Printf("  Texture %-12s %s\n", t.Usage, t.Path)
	}

	keys := make([]uint32, 0, len(m.Keys))
	for k := range m.Keys {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		fmt.Printf("  Key %#08x = %#08x\n", k, m.Keys[k])
	}

	ids := make([]uint32, 0, len(m.Constants))
	for id := range m.Constants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fmt.Printf("  Constant %#08x = %v\n", id, m.Constants[id])
	}
	return nil
}

func inspectTexture(data []byte) error {
	f, err := tex.Parse(data)
	if err != nil {
		return err
	}
	h := f.Header
	fmt.Printf("Format: %s, Size: %dx%d, Depth: %d, Mips: %d, Slices: %d\n",
		h.Format, h.Width, h.Height, h.Depth, f.Mips(), f.Slices())
	return nil
}

func inspectDeformer(data []byte) error {
	f, err := pbd.Parse(data)
	if err != nil {
		return err
	}
	fmt.Printf("Races: %d, Links: %d, Deformers: %d\n", len(f.Headers), len(f.Links), len(f.Deformers))
	for _, h := range f.Headers {
		bones := 0
		if d, ok := f.Deformers[h.Offset]; ok {
			bones = len(d.BoneNames)
		}
		fmt.Printf("  Race %04d: deformer=%d, bones=%d\n", h.ID, h.DeformerID, bones)
	}
	return nil
}

func inspectTerrain(data []byte) error {
	f, err := tera.Parse(data)
	if err != nil {
		return err
	}
	fmt.Printf("Version: %d, Plates: %d, Plate size: %d, Clip: %g\n", f.Version, len(f.Plates), f.PlateSize, f.ClipDistance)
	for i, p := range f.Plates {
		pos := f.Position(i)
		fmt.Printf("  %s: cell=(%d,%d), at=(%g, %g)\n", tera.PlateName(i), p.X, p.Y, pos[0], pos[2])
	}
	return nil
}

func inspectSnapshot(p string) error {
	s, err := snapshot.Load(p)
	if err != nil {
		return err
	}
	order, err := s.AttachOrder()
	if err != nil {
		return err
	}
	fmt.Printf("Name: %s, Characters: %d, Frames: %d\n", s.Name, len(s.Characters), len(s.Timeline))
	for _, i := range order {
		c := s.Characters[i]
		parent := "-"
		if c.Attach != nil {
			parent = c.Attach.Parent
		}
		bones := 0
		for _, ps := range c.Skeleton.PartialSkeletons {
			if ps.HkSkeleton != nil {
				bones += len(ps.HkSkeleton.BoneNames)
			}
		}
		fmt.Printf("  %s (%s): race=%04d, models=%d, partials=%d, bones=%d, parent=%s\n",
			c.ID, c.DisplayName(), c.Race, len(c.Models), len(c.Skeleton.PartialSkeletons), bones, parent)
	}
	if s.Layout != nil {
		fmt.Printf("Layout: %d roots, %d instances\n", len(s.Layout.Roots), len(s.Layout.Instances))
	}
	return nil
}
