package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/DataDog/zstd"
)

// Load reads a snapshot file. Files ending in ".zst" are decompressed first.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	if strings.HasSuffix(strings.ToLower(path), ".zst") {
		data, err = zstd.Decompress(nil, data)
		if err != nil {
			return nil, fmt.Errorf("snapshot: decompress %s: %w", path, err)
		}
	}
	s, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return s, nil
}

// Decode reads and validates a JSON snapshot.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("snapshot: parse: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes s as indented JSON, zstd compressed when path ends in ".zst".
// The file is written through a temporary name and renamed into place.
func Save(path string, s *Snapshot) error {
	if s.Version == 0 {
		s.Version = Version
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	if strings.HasSuffix(strings.ToLower(path), ".zst") {
		data, err = zstd.CompressLevel(nil, data, zstd.DefaultCompression)
		if err != nil {
			return fmt.Errorf("snapshot: compress: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	return nil
}
