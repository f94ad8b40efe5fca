package texture

import (
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"scene-exporter/internal/tex"
)

// Index maps lowercase texture stems to loose override files on disk.
// Formats with an alpha channel win over those without for the same stem.
type Index struct {
	entries map[string]string // stem → full path
}

// BuildIndex scans dir recursively for loose images. A missing dir yields
// an empty index.
func BuildIndex(dir string) *Index {
	idx := &Index{entries: make(map[string]string)}
	if dir == "" {
		return idx
	}
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !tex.IsLoose(p) {
			return nil
		}
		s := stem(p)
		existing, ok := idx.entries[s]
		if !ok || (hasAlpha(p) && !hasAlpha(existing)) {
			idx.entries[s] = p
		}
		return nil
	})
	return idx
}

// ResolvePath returns the override file for a game path, or ("", false).
func (idx *Index) ResolvePath(gamePath string) (string, bool) {
	if idx == nil {
		return "", false
	}
	p, ok := idx.entries[stem(gamePath)]
	return p, ok
}

// Len returns the number of indexed overrides.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

func stem(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.ToLower(strings.TrimSuffix(base, path.Ext(base)))
}

func hasAlpha(p string) bool {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".png", ".tga", ".tif", ".tiff":
		return true
	}
	return false
}
