// Package assetstore reads game files by their game-relative path.
package assetstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/DataDog/zstd"
)

// ErrNotFound is returned when no store holds the requested path.
var ErrNotFound = errors.New("assetstore: not found")

// Store returns the raw bytes of a game path. Implementations never write.
type Store interface {
	ReadFile(ctx context.Context, gamePath string) ([]byte, error)
}

// Normalize lower-cases a game path, uses forward slashes and drops a
// leading slash.
func Normalize(gamePath string) string {
	p := strings.ReplaceAll(gamePath, "\\", "/")
	return strings.ToLower(strings.TrimLeft(p, "/"))
}

// Dir serves files from an extracted directory tree. A file stored with a
// ".zst" suffix is decompressed transparently.
type Dir struct {
	Root string
}

func (d Dir) ReadFile(ctx context.Context, gamePath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := Normalize(gamePath)
	if !fs.ValidPath(p) {
		return nil, fmt.Errorf("assetstore: invalid path %q", gamePath)
	}
	full := filepath.Join(d.Root, filepath.FromSlash(p))
	data, err := os.ReadFile(full)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("assetstore: read %s: %w", gamePath, err)
	}
	packed, err := os.ReadFile(full + ".zst")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, gamePath)
	}
	if err != nil {
		return nil, fmt.Errorf("assetstore: read %s.zst: %w", gamePath, err)
	}
	data, err = zstd.Decompress(nil, packed)
	if err != nil {
		return nil, fmt.Errorf("assetstore: decompress %s: %w", gamePath, err)
	}
	return data, nil
}

// Mem is an in-memory store keyed by normalized game path.
type Mem struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMem returns an empty memory store.
func NewMem() *Mem {
	return &Mem{files: make(map[string][]byte)}
}

// Put stores data under gamePath.
func (m *Mem) Put(gamePath string, data []byte) {
	m.mu.Lock()
	m.files[Normalize(gamePath)] = data
	m.mu.Unlock()
}

func (m *Mem) ReadFile(ctx context.Context, gamePath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	data, ok := m.files[Normalize(gamePath)]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, gamePath)
	}
	return data, nil
}

// Layered tries each store in order; the first hit wins. Override
// directories go first.
type Layered []Store

func (l Layered) ReadFile(ctx context.Context, gamePath string) ([]byte, error) {
	for _, s := range l {
		data, err := s.ReadFile(ctx, gamePath)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, gamePath)
}

// Compress packs data for storage under a ".zst" name.
func Compress(data []byte) ([]byte, error) {
	return zstd.CompressLevel(nil, data, zstd.DefaultCompression)
}
