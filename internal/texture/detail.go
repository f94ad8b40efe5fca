package texture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"scene-exporter/internal/assetstore"
	"scene-exporter/internal/tex"
)

// ArrayKind names one of the shared texture arrays.
type ArrayKind int

const (
	ArrayDetailDiffuse ArrayKind = iota
	ArrayDetailNormal
	ArraySphere
	arrayCount
)

var arrayPaths = [arrayCount]string{
	ArrayDetailDiffuse: "bgcommon/nature/detail/texture/detail_d_array.tex",
	ArrayDetailNormal:  "bgcommon/nature/detail/texture/detail_n_array.tex",
	ArraySphere:        "chara/common/texture/sphere_d_array.tex",
}

// Path returns the game path of the array.
func (k ArrayKind) Path() string {
	if k < 0 || k >= arrayCount {
		return ""
	}
	return arrayPaths[k]
}

// ErrLayerOutOfRange is returned for a layer id the array does not hold.
var ErrLayerOutOfRange = errors.New("texture: array layer out of range")

// DetailContext holds the shared texture arrays. Each array is loaded once
// on first use and is read-only afterwards. One context is shared by every
// material build of a process.
type DetailContext struct {
	store assetstore.Store

	mu     sync.Mutex
	arrays [arrayCount]atomic.Pointer[tex.File]

	layerMu sync.RWMutex
	layers  map[layerKey]*image.NRGBA
}

type layerKey struct {
	kind ArrayKind
	id   int
}

// NewDetailContext returns a context that loads arrays from store.
func NewDetailContext(store assetstore.Store) *DetailContext {
	return &DetailContext{store: store, layers: make(map[layerKey]*image.NRGBA)}
}

// Array returns the parsed array, loading it on first use.
func (d *DetailContext) Array(ctx context.Context, kind ArrayKind) (*tex.File, error) {
	if kind < 0 || kind >= arrayCount {
		return nil, fmt.Errorf("texture: unknown array %d", kind)
	}
	if f := d.arrays[kind].Load(); f != nil {
		return f, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if f := d.arrays[kind].Load(); f != nil {
		return f, nil
	}
	raw, err := d.store.ReadFile(ctx, kind.Path())
	if err != nil {
		return nil, fmt.Errorf("texture: load %s: %w", kind.Path(), err)
	}
	f, err := tex.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("texture: load %s: %w", kind.Path(), err)
	}
	d.arrays[kind].Store(f)
	return f, nil
}

// Layer returns layer id of an array resampled to w×h.
func (d *DetailContext) Layer(ctx context.Context, kind ArrayKind, id, w, h int) (*image.NRGBA, error) {
	key := layerKey{kind, id}
	d.layerMu.RLock()
	img, ok := d.layers[key]
	d.layerMu.RUnlock()
	if !ok {
		f, err := d.Array(ctx, kind)
		if err != nil {
			return nil, err
		}
		if id < 0 || id >= f.Slices() {
			return nil, fmt.Errorf("%w: %s layer %d of %d", ErrLayerOutOfRange, kind.Path(), id, f.Slices())
		}
		decoded, err := f.Image(0, id)
		if err != nil {
			return nil, fmt.Errorf("texture: %s layer %d: %w", kind.Path(), id, err)
		}
		d.layerMu.Lock()
		if img, ok = d.layers[key]; !ok {
			img = decoded
			d.layers[key] = img
		}
		d.layerMu.Unlock()
	}
	if w <= 0 || h <= 0 {
		return img, nil
	}
	return ResizeOpaque(img, w, h), nil
}
