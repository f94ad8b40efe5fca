package texture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"scene-exporter/internal/assetstore"
	"scene-exporter/internal/tex/textest"
)

// countingStore counts reads per path.
type countingStore struct {
	inner assetstore.Store
	reads atomic.Int32
}

func (s *countingStore) ReadFile(ctx context.Context, p string) ([]byte, error) {
	s.reads.Add(1)
	return s.inner.ReadFile(ctx, p)
}

func TestCacheReadThrough(t *testing.T) {
	mem := assetstore.NewMem()
	mem.Put("chara/a_n.tex", textest.Encode(textest.Solid(4, 4, 10, 20, 30, 255)))
	store := &countingStore{inner: mem}
	c := NewCache(store, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			img, err := c.Resolve(ctx, "Chara/A_N.tex")
			if err != nil || img.Pix[0] != 10 {
				t.Errorf("Resolve = %v, %v", img, err)
			}
		}()
	}
	wg.Wait()
	if _, err := c.Resolve(ctx, "chara/a_n.tex"); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	before := store.reads.Load()
	if _, err := c.Resolve(ctx, "chara/a_n.tex"); err != nil {
		t.Fatal(err)
	}
	if store.reads.Load() != before {
		t.Error("cached texture read from the store again")
	}

	if _, err := c.Resolve(ctx, "chara/missing.tex"); !errors.Is(err, assetstore.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
	reads := store.reads.Load()
	_, _ = c.Resolve(ctx, "chara/missing.tex")
	if store.reads.Load() != reads {
		t.Error("failed load was not cached")
	}
}

func TestCacheOverrides(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	if err := png.Encode(&buf, textest.Solid(2, 2, 200, 0, 0, 255)); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a_n.png"), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a_n.jpg"), []byte("not used"), 0o644); err != nil {
		t.Fatal(err)
	}
	idx := BuildIndex(dir)
	if idx.Len() != 1 {
		t.Fatalf("index Len = %d, want 1", idx.Len())
	}

	mem := assetstore.NewMem()
	mem.Put("chara/a_n.tex", textest.Encode(textest.Solid(4, 4, 10, 20, 30, 255)))
	img, err := NewCache(mem, idx).Resolve(context.Background(), "chara/a_n.tex")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if img.Rect.Dx() != 2 || img.Pix[0] != 200 {
		t.Errorf("override not used: %v %v", img.Rect, img.Pix[:4])
	}
}

func TestResize(t *testing.T) {
	src := textest.Solid(8, 8, 100, 150, 200, 255)
	dst := Resize(src, 4, 2)
	if dst.Rect != image.Rect(0, 0, 4, 2) {
		t.Fatalf("Rect = %v", dst.Rect)
	}
	if p := dst.Pix[:4]; p[0] != 100 || p[1] != 150 || p[2] != 200 || p[3] != 255 {
		t.Errorf("pixel = %v", p)
	}
	if Resize(src, 8, 8) != src {
		t.Error("same-size Resize copied")
	}

	clear := textest.Solid(4, 4, 255, 0, 0, 0)
	if p := Resize(clear, 2, 2).Pix[:4]; p[3] != 0 || p[0] != 0 {
		t.Errorf("transparent pixel = %v", p)
	}
	if p := ResizeOpaque(clear, 2, 2).Pix[:4]; p[0] != 255 {
		t.Errorf("opaque resize lost color: %v", p)
	}
}

func TestSample(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	copy(img.Pix, []byte{0, 0, 0, 255, 255, 255, 255, 255})
	tests := []struct {
		u    float32
		want float32
	}{
		{0, 0},
		{1, 0},
		{0.5, 0.5},
		{1.5, 0.5},
		{-0.5, 0.5},
	}
	for _, tt := range tests {
		got := Sample(img, tt.u, 0)
		if d := got[0] - tt.want; d > 0.01 || d < -0.01 {
			t.Errorf("Sample(%v) = %v, want %v", tt.u, got[0], tt.want)
		}
	}
	if got := At(img, 1, 0); got != [4]float32{1, 1, 1, 1} {
		t.Errorf("At = %v", got)
	}
}

func TestSinks(t *testing.T) {
	img := textest.Solid(2, 2, 1, 2, 3, 255)
	mem := NewMemSink(EncodingPNG)
	a, err := mem.CacheTexture(img, "mt_c0101_a_base")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := mem.CacheTexture(textest.Solid(2, 2, 9, 9, 9, 255), "mt_c0101_a_base")
	if a != b || mem.Len() != 1 {
		t.Errorf("refs %q %q, Len %d", a, b, mem.Len())
	}
	if a != "textures/mt_c0101_a_base.png" {
		t.Errorf("ref = %q", a)
	}
	blob, ok := mem.Blob(a)
	if !ok {
		t.Fatal("Blob missing")
	}
	decoded, err := png.Decode(bytes.NewReader(blob))
	if err != nil {
		t.Fatal(err)
	}
	if r, _, _, _ := decoded.At(0, 0).RGBA(); r>>8 != 1 {
		t.Errorf("first write not kept, r = %d", r>>8)
	}

	dir := t.TempDir()
	sink := NewDirSink(dir, EncodingWebP)
	ref, err := sink.CacheTexture(img, "../escape/name")
	if err != nil {
		t.Fatal(err)
	}
	if ref != "textures/escape_name.webp" {
		t.Errorf("ref = %q", ref)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(ref))); err != nil {
		t.Errorf("file not written: %v", err)
	}
}

func TestParseEncoding(t *testing.T) {
	for _, s := range []string{"png", "WEBP", ""} {
		if _, err := ParseEncoding(s); err != nil {
			t.Errorf("ParseEncoding(%q): %v", s, err)
		}
	}
	if _, err := ParseEncoding("gif"); err == nil {
		t.Error("ParseEncoding accepted gif")
	}
}

func TestDetailContextLoadsOnce(t *testing.T) {
	mem := assetstore.NewMem()
	mem.Put(ArrayDetailDiffuse.Path(), textest.Array(
		textest.Solid(4, 4, 10, 10, 10, 255),
		textest.Solid(4, 4, 90, 90, 90, 255),
	))
	store := &countingStore{inner: mem}
	d := NewDetailContext(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			img, err := d.Layer(ctx, ArrayDetailDiffuse, id%2, 2, 2)
			if err != nil {
				t.Errorf("Layer: %v", err)
				return
			}
			if want := []uint8{10, 90}[id%2]; img.Pix[0] != want {
				t.Errorf("layer %d pixel = %d, want %d", id%2, img.Pix[0], want)
			}
		}(i)
	}
	wg.Wait()
	if n := store.reads.Load(); n != 1 {
		t.Errorf("array read %d times, want 1", n)
	}
	if _, err := d.Layer(ctx, ArrayDetailDiffuse, 5, 0, 0); !errors.Is(err, ErrLayerOutOfRange) {
		t.Errorf("err = %v, want ErrLayerOutOfRange", err)
	}
	if _, err := d.Layer(ctx, ArrayDetailNormal, 0, 0, 0); !errors.Is(err, assetstore.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
