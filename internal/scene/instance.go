package scene

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"scene-exporter/internal/mathutil"
)

// Instance is one placed object of a layout. Groups have no model and
// carry children; a shared group may appear under several parents.
type Instance struct {
	ID        uint64
	Name      string
	Transform mathutil.Transform
	Model     *Model
	Light     *Light
	// Plates are terrain tiles placed under the instance node.
	Plates   []Plate
	Children []*Instance
}

// Plate is one terrain tile. A nil Model is a tile that failed to load and
// is left out.
type Plate struct {
	Name   string
	Offset mgl32.Vec3
	Model  *Model
}

// Placement is one visited instance. Parent indexes the placement list,
// None for roots.
type Placement struct {
	Instance *Instance
	Parent   int
}

// Flatten walks the instance graph depth first with an explicit stack.
// Parents precede their children and each instance ID is visited once, so
// cyclic group references terminate.
func Flatten(roots []*Instance) []Placement {
	type item struct {
		inst   *Instance
		parent int
	}
	var out []Placement
	seen := make(map[uint64]bool)
	stack := make([]item, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, item{roots[i], None})
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.inst == nil || seen[it.inst.ID] {
			continue
		}
		seen[it.inst.ID] = true
		idx := len(out)
		out = append(out, Placement{Instance: it.inst, Parent: it.parent})
		for i := len(it.inst.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{it.inst.Children[i], idx})
		}
	}
	return out
}

// Failure is a model that could not be placed.
type Failure struct {
	Path string
	Err  error
}

// AddInstances places a flattened instance graph. An instance whose model
// fails keeps an empty node so its children still resolve, and the failure
// is returned.
func (c *Composer) AddInstances(roots []*Instance) []Failure {
	placed := Flatten(roots)
	nodes := make([]int, len(placed))
	var failed []Failure
	for i, p := range placed {
		parent := None
		if p.Parent != None {
			parent = nodes[p.Parent]
		}
		inst := p.Instance
		n := None
		if inst.Model != nil {
			var err error
			n, err = c.AddStatic(inst.Name, parent, inst.Transform, *inst.Model)
			if err != nil {
				c.log.Warn("instance skipped", "instance", inst.Name, "id", inst.ID, "err", err)
				failed = append(failed, Failure{Path: inst.Model.Path, Err: err})
				n = None
			}
		}
		if n == None {
			n = c.scene.AddNode(inst.Name, parent, inst.Transform)
		}
		if inst.Light != nil {
			c.AddLight(n, *inst.Light)
		}
		for _, pl := range inst.Plates {
			if pl.Model == nil {
				continue
			}
			local := mathutil.Identity()
			local.Translation = pl.Offset
			if _, err := c.AddStatic(pl.Name, n, local, *pl.Model); err != nil {
				c.log.Warn("plate skipped", "plate", pl.Name, "instance", inst.Name, "err", err)
				failed = append(failed, Failure{Path: pl.Model.Path, Err: err})
			}
		}
		nodes[i] = n
	}
	return failed
}

// AddLight attaches l to node, filling defaults: a white point light of
// intensity 1 named after the node. It returns the light index.
func (c *Composer) AddLight(node int, l Light) int {
	if l.Type == "" {
		l.Type = LightPoint
	}
	if l.Color == (mgl32.Vec3{}) {
		l.Color = mgl32.Vec3{1, 1, 1}
	}
	if l.Intensity == 0 {
		l.Intensity = 1
	}
	if l.Type == LightSpot && l.OuterCone == 0 {
		l.OuterCone = math.Pi / 4
	}
	if l.Name == "" {
		l.Name = fmt.Sprintf("Light_%s", c.scene.Nodes[node].Name)
	}
	i := len(c.scene.Lights)
	c.scene.Lights = append(c.scene.Lights, &l)
	c.scene.Nodes[node].Light = i
	return i
}
