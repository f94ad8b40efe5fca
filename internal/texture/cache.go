// Package texture loads, resamples, samples and stores the images used by
// material baking.
package texture

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"scene-exporter/internal/assetstore"
	"scene-exporter/internal/tex"
)

// Resolver resolves a game texture path to a decoded image.
type Resolver interface {
	Resolve(ctx context.Context, gamePath string) (*image.NRGBA, error)
}

// Cache is a concurrency-safe read-through texture cache. Failed loads are
// cached too; the store is never asked twice for the same path.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*cacheEntry
	store assetstore.Store
	index *Index
}

type cacheEntry struct {
	img *image.NRGBA
	err error
}

// NewCache creates a cache reading through store. Overrides in index, which
// may be nil, take priority over the store.
func NewCache(store assetstore.Store, index *Index) *Cache {
	return &Cache{
		items: make(map[string]*cacheEntry),
		store: store,
		index: index,
	}
}

// Resolve loads and caches a texture by game path.
func (c *Cache) Resolve(ctx context.Context, gamePath string) (*image.NRGBA, error) {
	key := assetstore.Normalize(gamePath)

	c.mu.RLock()
	if entry, ok := c.items[key]; ok {
		c.mu.RUnlock()
		return entry.img, entry.err
	}
	c.mu.RUnlock()

	img, err := c.load(ctx, gamePath)
	if ctx.Err() != nil {
		// cancelled loads are not cached
		return nil, err
	}

	c.mu.Lock()
	if entry, ok := c.items[key]; ok {
		c.mu.Unlock()
		return entry.img, entry.err
	}
	c.items[key] = &cacheEntry{img: img, err: err}
	c.mu.Unlock()
	return img, err
}

// Len returns the number of cached paths.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache) load(ctx context.Context, gamePath string) (*image.NRGBA, error) {
	if p, ok := c.index.ResolvePath(gamePath); ok {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("texture: read override %s: %w", p, err)
		}
		return tex.DecodeLoose(p, raw)
	}
	raw, err := c.store.ReadFile(ctx, gamePath)
	if err != nil {
		return nil, fmt.Errorf("texture: %w", err)
	}
	return tex.DecodeLoose(gamePath, raw)
}
