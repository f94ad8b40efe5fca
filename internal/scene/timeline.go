package scene

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"scene-exporter/internal/mathutil"
)

// Timeline collects per-frame bone transforms for attached skeletons. Each
// attach id keeps its own bone map. A frame without data for an id holds
// that id's bones at zero scale, so every track has a key on every frame.
type Timeline struct {
	times  []float32
	frames []map[string]map[string]mathutil.Transform
	bones  map[string]map[string]bool
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{bones: make(map[string]map[string]bool)}
}

// AddFrame appends a frame at time and returns its index. Frames must be
// added in time order.
func (t *Timeline) AddFrame(time float32) (int, error) {
	if n := len(t.times); n > 0 && time < t.times[n-1] {
		return None, fmt.Errorf("%w: %v after %v", ErrTimeOrder, time, t.times[n-1])
	}
	t.times = append(t.times, time)
	t.frames = append(t.frames, make(map[string]map[string]mathutil.Transform))
	return len(t.times) - 1, nil
}

// Set records the bone transforms of attach id at frame. Bone names are
// matched without case.
func (t *Timeline) Set(frame int, id string, bones map[string]mathutil.Transform) error {
	if frame < 0 || frame >= len(t.frames) {
		return fmt.Errorf("%w: %d of %d", ErrFrameOutOfRange, frame, len(t.frames))
	}
	known := t.bones[id]
	if known == nil {
		known = make(map[string]bool)
		t.bones[id] = known
	}
	dst := make(map[string]mathutil.Transform, len(bones))
	for name, xf := range bones {
		key := strings.ToLower(name)
		dst[key] = xf
		known[key] = true
	}
	t.frames[frame][id] = dst
	return nil
}

// Len returns the number of frames.
func (t *Timeline) Len() int { return len(t.times) }

// IDs returns the attach ids seen, sorted.
func (t *Timeline) IDs() []string {
	ids := make([]string, 0, len(t.bones))
	for id := range t.bones {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Track is the keyed transform of one bone of one attach id.
type Track struct {
	ID   string
	Bone string
	Keys []Key
}

// Tracks returns one track per (id, bone), sorted by id then bone. Each
// track has one key per frame.
func (t *Timeline) Tracks() []Track {
	var out []Track
	for _, id := range t.IDs() {
		names := make([]string, 0, len(t.bones[id]))
		for name := range t.bones[id] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, Track{ID: id, Bone: name, Keys: t.keys(id, name)})
		}
	}
	return out
}

func (t *Timeline) keys(id, bone string) []Key {
	keys := make([]Key, len(t.times))
	have := make([]bool, len(t.times))
	for i, f := range t.frames {
		if xf, ok := f[id][bone]; ok {
			keys[i] = Key{Time: t.times[i], Transform: xf}
			have[i] = true
		}
	}
	// hidden frames hold the nearest earlier pose, or the first later one
	var last *mathutil.Transform
	for i := range keys {
		if have[i] {
			last = &keys[i].Transform
			continue
		}
		if last == nil {
			for j := i + 1; j < len(keys); j++ {
				if have[j] {
					last = &keys[j].Transform
					break
				}
			}
		}
		hold := mathutil.Identity()
		if last != nil {
			hold = *last
		}
		hold.Scale = mgl32.Vec3{}
		keys[i] = Key{Time: t.times[i], Transform: hold}
	}
	return keys
}

// AddTimeline turns a timeline into an animation. Tracks whose id or bone
// was never placed are skipped.
func (c *Composer) AddTimeline(name string, t *Timeline) *Animation {
	anim := &Animation{Name: name}
	for _, tr := range t.Tracks() {
		bones, ok := c.attach[tr.ID]
		if !ok {
			c.log.Debug("timeline id not placed", "id", tr.ID)
			continue
		}
		node, ok := bones[tr.Bone]
		if !ok {
			c.log.Debug("timeline bone not placed", "id", tr.ID, "bone", tr.Bone)
			continue
		}
		anim.Channels = append(anim.Channels, Channel{Node: node, Keys: tr.Keys})
	}
	if len(anim.Channels) > 0 {
		c.scene.Animations = append(c.scene.Animations, anim)
	}
	return anim
}
