package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Manifest summarizes a run.
type Manifest struct {
	Format    string   `json:"format"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Results   []Result `json:"results"`
}

// WriteManifest writes the results of a run as JSON. Output paths are made
// relative to the manifest's directory.
func WriteManifest(path string, cfg Config, results []Result) error {
	m := Manifest{Format: cfg.Format.String(), Results: make([]Result, len(results))}
	dir := filepath.Dir(path)
	for i, r := range results {
		if r.Output != "" {
			if rel, err := filepath.Rel(dir, r.Output); err == nil {
				r.Output = filepath.ToSlash(rel)
			}
		}
		if r.Success {
			m.Succeeded++
		} else {
			m.Failed++
		}
		m.Results[i] = r
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("export: manifest: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("export: manifest: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
