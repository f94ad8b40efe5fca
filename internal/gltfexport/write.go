package gltfexport

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/qmuntal/gltf"

	"scene-exporter/internal/scene"
)

// Write builds and encodes s to path. Nothing is written unless the whole
// document encodes; each file goes through a temporary name and a rename.
// JSON documents embed their buffer and place textures relative to path.
func Write(path string, s *scene.Scene, blobs Blobs, opts Options) error {
	b, err := build(s, blobs, opts)
	if err != nil {
		return err
	}
	data, err := Encode(b.doc, opts.Format)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("gltfexport: %w", err)
	}
	refs := make([]string, 0, len(b.files))
	for ref := range b.files {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	for _, ref := range refs {
		if err := writeFile(filepath.Join(dir, filepath.FromSlash(ref)), b.files[ref]); err != nil {
			return err
		}
	}
	return writeFile(path, data)
}

// Encode serializes doc in the given container.
func Encode(doc *gltf.Document, f Format) ([]byte, error) {
	if f == FormatGLTF {
		for _, buf := range doc.Buffers {
			if buf.URI == "" && len(buf.Data) > 0 {
				buf.EmbeddedResource()
			}
		}
	}
	var out bytes.Buffer
	enc := gltf.NewEncoder(&out)
	enc.AsBinary = f == FormatGLB
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("gltfexport: encode: %w", err)
	}
	return out.Bytes(), nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("gltfexport: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("gltfexport: write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("gltfexport: write %s: %w", path, err)
	}
	return nil
}
