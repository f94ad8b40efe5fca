package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/HugoSmits86/nativewebp"
)

// Encoding is the on-disk format of stored textures.
type Encoding int

const (
	EncodingPNG Encoding = iota
	EncodingWebP
)

// ParseEncoding accepts "png" and "webp".
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "", "png":
		return EncodingPNG, nil
	case "webp":
		return EncodingWebP, nil
	}
	return EncodingPNG, fmt.Errorf("texture: unknown encoding %q", s)
}

func (e Encoding) String() string {
	if e == EncodingWebP {
		return "webp"
	}
	return "png"
}

// MIMEType returns the media type of the encoding.
func (e Encoding) MIMEType() string {
	if e == EncodingWebP {
		return "image/webp"
	}
	return "image/png"
}

// Encode writes img in the given encoding.
func Encode(w io.Writer, img image.Image, enc Encoding) error {
	switch enc {
	case EncodingWebP:
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("texture: webp encode: %w", err)
		}
	default:
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("texture: png encode: %w", err)
		}
	}
	return nil
}

// Sink stores baked or passed-through textures and returns a stable
// reference. Storing the same name twice returns the first reference.
type Sink interface {
	CacheTexture(img *image.NRGBA, suggestedName string) (string, error)
}

// BlobSource is implemented by sinks that keep encoded bytes in memory.
type BlobSource interface {
	Blob(ref string) ([]byte, bool)
	Encoding() Encoding
}

func refName(suggested string, enc Encoding) string {
	name := strings.ReplaceAll(suggested, "\\", "/")
	name = strings.Trim(path.Clean("/"+name), "/")
	name = strings.ReplaceAll(name, "/", "_")
	if name == "" || name == "." {
		name = "texture"
	}
	return path.Join("textures", name+"."+enc.String())
}

// DirSink writes textures below a directory.
type DirSink struct {
	dir string
	enc Encoding

	mu   sync.Mutex
	refs map[string]string
}

// NewDirSink returns a sink writing into dir.
func NewDirSink(dir string, enc Encoding) *DirSink {
	return &DirSink{dir: dir, enc: enc, refs: make(map[string]string)}
}

func (s *DirSink) CacheTexture(img *image.NRGBA, suggestedName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref, ok := s.refs[suggestedName]; ok {
		return ref, nil
	}
	ref := refName(suggestedName, s.enc)
	full := filepath.Join(s.dir, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("texture: %w", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, img, s.enc); err != nil {
		return "", err
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("texture: write %s: %w", ref, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		return "", fmt.Errorf("texture: write %s: %w", ref, err)
	}
	s.refs[suggestedName] = ref
	return ref, nil
}

// MemSink keeps encoded textures in memory, for embedding into GLB files.
type MemSink struct {
	enc Encoding

	mu    sync.RWMutex
	refs  map[string]string
	blobs map[string][]byte
}

// NewMemSink returns an empty in-memory sink.
func NewMemSink(enc Encoding) *MemSink {
	return &MemSink{enc: enc, refs: make(map[string]string), blobs: make(map[string][]byte)}
}

func (s *MemSink) CacheTexture(img *image.NRGBA, suggestedName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref, ok := s.refs[suggestedName]; ok {
		return ref, nil
	}
	var buf bytes.Buffer
	if err := Encode(&buf, img, s.enc); err != nil {
		return "", err
	}
	ref := refName(suggestedName, s.enc)
	s.refs[suggestedName] = ref
	s.blobs[ref] = buf.Bytes()
	return ref, nil
}

// Blob returns the encoded bytes stored under ref.
func (s *MemSink) Blob(ref string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[ref]
	return b, ok
}

// Encoding returns the sink's encoding.
func (s *MemSink) Encoding() Encoding { return s.enc }

// Len returns the number of stored textures.
func (s *MemSink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
