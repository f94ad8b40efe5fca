package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"scene-exporter/internal/assetstore"
	"scene-exporter/internal/gltfexport"
	"scene-exporter/internal/material"
	"scene-exporter/internal/mdl"
	"scene-exporter/internal/mtrl"
	"scene-exporter/internal/pbd"
	"scene-exporter/internal/scene"
	"scene-exporter/internal/skeleton"
	"scene-exporter/internal/snapshot"
	"scene-exporter/internal/tera"
	"scene-exporter/internal/texture"
)

// generator is written into every exported document.
const generator = "scene-exporter"

// request holds the decoded assets of one job. Baked textures go to a
// job-local sink so a failed job leaves nothing on disk.
type request struct {
	cfg  Config
	sem  *semaphore.Weighted
	snap *snapshot.Snapshot
	sink *texture.MemSink
	log  *slog.Logger

	mu        sync.Mutex
	models    map[string]*mdl.File
	materials map[string]*material.Material
	deformer  *pbd.File
	terrains  map[string]*terrain
	failures  []AssetFailure
	failed    map[string]bool
}

// exportSnapshot writes one job's file. Models and materials that fail to
// load are left out and returned as failures; the error is reserved for
// failures of the job as a whole.
func exportSnapshot(ctx context.Context, cfg Config, sem *semaphore.Weighted, job Job, out string) ([]AssetFailure, error) {
	if cfg.Store == nil {
		return nil, ErrNoStore
	}
	if job.Snapshot == nil {
		return nil, fmt.Errorf("export: %s: no snapshot", job.Name)
	}
	r := &request{
		cfg:       cfg,
		sem:       sem,
		snap:      job.Snapshot,
		sink:      texture.NewMemSink(cfg.TextureFormat),
		log:       cfg.Logger.With("job", job.Name),
		models:    make(map[string]*mdl.File),
		materials: make(map[string]*material.Material),
		terrains:  make(map[string]*terrain),
		failed:    make(map[string]bool),
	}

	// Every model and material decodes before any skeleton is assembled.
	if err := r.decode(ctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sc, err := r.compose()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := gltfexport.Write(out, sc, r.sink, gltfexport.Options{Format: cfg.Format, Generator: generator}); err != nil {
		return nil, err
	}
	sort.Slice(r.failures, func(i, j int) bool { return r.failures[i].Path < r.failures[j].Path })
	return r.failures, nil
}

// skip records a failed asset and drops the error unless the job itself was
// cancelled. Each path is recorded once.
func (r *request) skip(ctx context.Context, path string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	r.log.Warn("asset skipped", "path", path, "err", err)
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.failed[path] {
		r.failed[path] = true
		r.failures = append(r.failures, AssetFailure{Path: path, Error: err.Error()})
	}
	return nil
}

// terrain is a decoded terrain directory. Models is parallel to the plate
// table.
type terrain struct {
	file   *tera.File
	models []snapshot.Model
}

// loader runs asset loads on an errgroup, each load once per key and each
// holding one slot of the shared semaphore.
type loader struct {
	r       *request
	g       *errgroup.Group
	ctx     context.Context
	started map[string]bool
}

func (r *request) loader(ctx context.Context) *loader {
	g, gctx := errgroup.WithContext(ctx)
	return &loader{r: r, g: g, ctx: gctx, started: make(map[string]bool)}
}

func (l *loader) spawn(key string, fn func(context.Context) error) {
	if l.started[key] {
		return
	}
	l.started[key] = true
	l.g.Go(func() error {
		if err := l.r.sem.Acquire(l.ctx, 1); err != nil {
			return err
		}
		defer l.r.sem.Release(1)
		return fn(l.ctx)
	})
}

func (l *loader) model(owner string, params material.Params, m snapshot.Model) {
	l.spawn("mdl:"+m.Path, func(ctx context.Context) error { return l.r.loadModel(ctx, m.Path) })
	l.materials(owner, params, m)
}

func (l *loader) materials(owner string, params material.Params, m snapshot.Model) {
	for _, mat := range m.Materials {
		if mat.Path == "" {
			continue
		}
		key := materialKey(owner, mat)
		p := params
		p.Stain = mat.Stain
		l.spawn("mtrl:"+key, func(ctx context.Context) error { return l.r.loadMaterial(ctx, key, mat, p) })
	}
}

// decode loads every distinct model, material and the race deformer
// concurrently. Terrain plates load in two more rounds since their
// materials are named by the plate models.
func (r *request) decode(ctx context.Context) error {
	ld := r.loader(ctx)
	needDeformer := false
	for i := range r.snap.Characters {
		c := &r.snap.Characters[i]
		params := material.Params{Mode: r.cfg.TextureMode, Customize: c.Customize, Data: c.Data}
		for _, m := range c.Models {
			ld.model(c.ID, params, m)
			if from, ok := pbd.RaceCode(m.Path); ok && c.Race != 0 && from != c.Race {
				needDeformer = true
			}
		}
	}
	var dirs []string
	if l := r.snap.Layout; l != nil {
		params := material.Params{Mode: r.cfg.TextureMode}
		for _, inst := range l.Instances {
			if inst.Model != nil {
				ld.model("", params, *inst.Model)
			}
			if dir := inst.Terrain; dir != "" && !ld.started["tera:"+dir] {
				dirs = append(dirs, dir)
				ld.spawn("tera:"+dir, func(ctx context.Context) error { return r.loadTerrain(ctx, dir) })
			}
		}
	}
	if needDeformer {
		ld.spawn("pbd", r.loadDeformer)
	}
	if err := ld.g.Wait(); err != nil {
		return err
	}
	if len(r.terrains) == 0 {
		return nil
	}

	ld = r.loader(ctx)
	for _, dir := range dirs {
		if t := r.terrains[dir]; t != nil {
			for _, m := range t.models {
				ld.spawn("mdl:"+m.Path, func(ctx context.Context) error { return r.loadModel(ctx, m.Path) })
			}
		}
	}
	if err := ld.g.Wait(); err != nil {
		return err
	}

	ld = r.loader(ctx)
	params := material.Params{Mode: r.cfg.TextureMode}
	for _, dir := range dirs {
		t := r.terrains[dir]
		if t == nil {
			continue
		}
		for i := range t.models {
			m := &t.models[i]
			f := r.models[m.Path]
			if f == nil {
				continue
			}
			names, err := f.MaterialNames()
			if err != nil {
				if err := r.skip(ctx, m.Path, err); err != nil {
					return err
				}
				delete(r.models, m.Path)
				continue
			}
			for _, name := range names {
				m.Materials = append(m.Materials, snapshot.Material{Path: name})
			}
			ld.materials("", params, *m)
		}
	}
	return ld.g.Wait()
}

// loadTerrain reads a terrain plate table. The plate models load later.
func (r *request) loadTerrain(ctx context.Context, dir string) error {
	path := tera.Path(dir)
	data, err := r.cfg.Store.ReadFile(ctx, path)
	if err != nil {
		return r.skip(ctx, path, err)
	}
	f, err := tera.Parse(data)
	if err != nil {
		return r.skip(ctx, path, err)
	}
	t := &terrain{file: f, models: make([]snapshot.Model, len(f.Plates))}
	for i := range t.models {
		t.models[i].Path = tera.PlatePath(dir, i)
	}
	r.mu.Lock()
	r.terrains[dir] = t
	r.mu.Unlock()
	r.log.Debug("terrain decoded", "path", path, "plates", len(f.Plates))
	return nil
}

func (r *request) loadModel(ctx context.Context, path string) error {
	data, err := r.cfg.Store.ReadFile(ctx, path)
	if err != nil {
		return r.skip(ctx, path, err)
	}
	f, err := mdl.Parse(data)
	if err != nil {
		return r.skip(ctx, path, err)
	}
	r.mu.Lock()
	r.models[path] = f
	r.mu.Unlock()
	r.log.Debug("model decoded", "path", path)
	return nil
}

func (r *request) loadMaterial(ctx context.Context, key string, m snapshot.Material, params material.Params) error {
	data, err := r.cfg.Store.ReadFile(ctx, m.Path)
	if err != nil {
		return r.skip(ctx, m.Path, err)
	}
	f, err := mtrl.Parse(data)
	if err != nil {
		return r.skip(ctx, m.Path, err)
	}
	set, err := mtrl.NewMaterialSet(m.Path, f, m.Textures)
	if err != nil {
		return r.skip(ctx, m.Path, err)
	}
	built, err := material.Build(ctx, set, params, material.Deps{
		Textures: r.cfg.Textures,
		Sink:     r.sink,
		Detail:   r.cfg.Detail,
		Logger:   r.log,
	})
	if err != nil {
		return r.skip(ctx, m.Path, err)
	}
	r.mu.Lock()
	r.materials[key] = built
	r.mu.Unlock()
	return nil
}

// loadDeformer reads the race deformer file. A missing file disables race
// deformation with a warning.
func (r *request) loadDeformer(ctx context.Context) error {
	path := r.snap.DeformerPath()
	data, err := r.cfg.Store.ReadFile(ctx, path)
	if errors.Is(err, assetstore.ErrNotFound) {
		r.log.Warn("race deformer missing, models keep their own race", "path", path)
		return nil
	}
	if err != nil {
		return assetErr(path, err)
	}
	f, err := pbd.Parse(data)
	if err != nil {
		return assetErr(path, err)
	}
	r.mu.Lock()
	r.deformer = f
	r.mu.Unlock()
	return nil
}

// compose assembles skeletons, resolves attaches and builds the scene.
func (r *request) compose() (*scene.Scene, error) {
	order, err := r.snap.AttachOrder()
	if err != nil {
		return nil, err
	}
	chars := r.snap.Characters
	arms := make([]*skeleton.Armature, len(chars))
	for _, i := range order {
		c := &chars[i]
		mode := r.cfg.Pose
		if c.Pose != "" {
			if mode, err = skeleton.ParsePoseMode(c.Pose); err != nil {
				return nil, fmt.Errorf("export: character %s: %w", c.ID, err)
			}
		}
		arm, err := skeleton.Assemble(&c.Skeleton, skeleton.Options{Pose: mode})
		if err != nil {
			return nil, assetErr(skeletonPath(c), err)
		}
		arms[i] = arm
	}

	index := make(map[string]int, len(chars))
	for i, c := range chars {
		index[c.ID] = i
	}
	attached := make(map[int][]int)
	var roots []int
	suffix := 0
	for _, i := range order {
		c := &chars[i]
		if c.Attach == nil {
			roots = append(roots, i)
			continue
		}
		p := index[c.Attach.Parent]
		a := skeleton.Attach{
			ExecuteType:    c.Attach.ExecuteType,
			Attachments:    c.Attach.Attachments,
			OwnerSkeleton:  &chars[p].Skeleton,
			TargetSkeleton: &c.Skeleton,
		}
		bone, err := skeleton.ResolveAttach(arms[p], arms[i], a, skeleton.AttachOptions{Lenient: r.cfg.Lenient})
		if err != nil {
			return nil, fmt.Errorf("export: attach %s to %s: %w", c.ID, chars[p].ID, err)
		}
		if bone == nil {
			roots = append(roots, i)
			continue
		}
		suffix++
		arms[i].SetSuffix(suffix)
		attached[p] = append(attached[p], i)
		r.log.Debug("attached", "character", c.ID, "parent", chars[p].ID, "bone", bone.DisplayName())
	}

	var character func(i int) (scene.Character, error)
	character = func(i int) (scene.Character, error) {
		c := &chars[i]
		out := scene.Character{
			Name:      c.DisplayName(),
			Transform: c.Local(),
			Armature:  arms[i],
			AttachID:  c.ID,
		}
		for _, m := range c.Models {
			if r.models[m.Path] == nil {
				continue
			}
			sm, err := r.model(c, m)
			if err != nil {
				return out, err
			}
			out.Models = append(out.Models, sm)
		}
		for _, j := range attached[i] {
			sub, err := character(j)
			if err != nil {
				return out, err
			}
			out.Attached = append(out.Attached, sub)
		}
		return out, nil
	}

	comp := scene.NewComposer(r.log)
	for _, i := range roots {
		ch, err := character(i)
		if err != nil {
			return nil, err
		}
		if _, err := comp.AddCharacter(ch); err != nil {
			return nil, fmt.Errorf("export: character %s: %w", chars[i].ID, err)
		}
	}

	if len(r.snap.Timeline) > 0 {
		tl, err := timeline(r.snap.Timeline)
		if err != nil {
			return nil, err
		}
		comp.AddTimeline(timelineName(r.snap), tl)
	}

	if l := r.snap.Layout; l != nil {
		insts, err := r.instances(l)
		if err != nil {
			return nil, err
		}
		for _, f := range comp.AddInstances(insts) {
			r.failures = append(r.failures, AssetFailure{Path: f.Path, Error: f.Err.Error()})
		}
	}
	return comp.Scene(), nil
}

// model resolves a snapshot model against the decoded assets. c is nil for
// layout instances.
func (r *request) model(c *snapshot.Character, m snapshot.Model) (scene.Model, error) {
	owner := ""
	if c != nil {
		owner = c.ID
	}
	out := scene.Model{Path: m.Path, File: r.models[m.Path], LOD: m.LOD}
	for _, mat := range m.Materials {
		var built *material.Material
		if mat.Path != "" {
			built = r.materials[materialKey(owner, mat)]
		}
		out.Materials = append(out.Materials, built)
	}
	if c == nil || c.Race == 0 || r.deformer == nil {
		return out, nil
	}
	from, ok := pbd.RaceCode(m.Path)
	if !ok || from == c.Race {
		return out, nil
	}
	chain, err := r.deformer.Chain(from, c.Race)
	if err != nil {
		r.log.Warn("no race deformer path", "model", m.Path, "from", from, "to", c.Race, "err", err)
		return out, nil
	}
	out.Deform = chain
	return out, nil
}

// instances links the layout records into an instance graph. Shared
// groups become shared pointers.
func (r *request) instances(l *snapshot.Layout) ([]*scene.Instance, error) {
	byID := make(map[uint64]*scene.Instance, len(l.Instances))
	for _, in := range l.Instances {
		name := in.Name
		if name == "" {
			name = fmt.Sprintf("instance_%d", in.ID)
		}
		inst := &scene.Instance{ID: in.ID, Name: name, Transform: in.Local()}
		if in.Model != nil && r.models[in.Model.Path] != nil {
			m, err := r.model(nil, *in.Model)
			if err != nil {
				return nil, err
			}
			inst.Model = &m
		}
		if in.Light != nil {
			inst.Light = light(in.ID, in.Light)
		}
		if t := r.terrains[in.Terrain]; in.Terrain != "" && t != nil {
			for i, pm := range t.models {
				pl := scene.Plate{Name: tera.PlateName(i), Offset: t.file.Position(i)}
				if r.models[pm.Path] != nil {
					m, err := r.model(nil, pm)
					if err != nil {
						return nil, err
					}
					pl.Model = &m
				}
				inst.Plates = append(inst.Plates, pl)
			}
		}
		byID[in.ID] = inst
	}
	for _, in := range l.Instances {
		for _, c := range in.Children {
			child, ok := byID[c]
			if !ok {
				return nil, fmt.Errorf("%w: instance %d child %d", snapshot.ErrUnknownID, in.ID, c)
			}
			byID[in.ID].Children = append(byID[in.ID].Children, child)
		}
	}
	roots := make([]*scene.Instance, 0, len(l.Roots))
	for _, id := range l.Roots {
		inst, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: layout root %d", snapshot.ErrUnknownID, id)
		}
		roots = append(roots, inst)
	}
	return roots, nil
}

// light converts a layout light. Unset fields keep the scene defaults.
func light(id uint64, l *snapshot.Light) *scene.Light {
	out := &scene.Light{
		Name:      fmt.Sprintf("Light_%d", id),
		Type:      l.Type,
		Intensity: l.Intensity,
		Range:     l.Range,
		InnerCone: l.InnerCone,
		OuterCone: l.OuterCone,
	}
	if l.Color != nil {
		out.Color = *l.Color
	}
	return out
}

func timeline(frames []snapshot.Frame) (*scene.Timeline, error) {
	tl := scene.NewTimeline()
	for _, f := range frames {
		idx, err := tl.AddFrame(f.Time)
		if err != nil {
			return nil, fmt.Errorf("export: timeline: %w", err)
		}
		for id, bones := range f.Bones {
			if err := tl.Set(idx, id, bones); err != nil {
				return nil, fmt.Errorf("export: timeline: %w", err)
			}
		}
	}
	return tl, nil
}

func timelineName(s *snapshot.Snapshot) string {
	if s.Name != "" {
		return s.Name + "_timeline"
	}
	return "timeline"
}

func materialKey(owner string, m snapshot.Material) string {
	var sb strings.Builder
	sb.WriteString(owner)
	sb.WriteByte('|')
	sb.WriteString(strings.ToLower(m.Path))
	sb.WriteByte('|')
	sb.WriteString(strings.Join(m.Textures, ","))
	if m.Stain != nil {
		fmt.Fprintf(&sb, "|%v", *m.Stain)
	}
	return sb.String()
}

func skeletonPath(c *snapshot.Character) string {
	for _, p := range c.Skeleton.PartialSkeletons {
		if p.HandlePath != "" {
			return p.HandlePath
		}
	}
	return c.ID
}
