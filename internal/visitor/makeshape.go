package visitor

import (
	"github.com/Faultbox/abcproc/internal/attr"
	"github.com/Faultbox/abcproc/internal/cache"
	"github.com/Faultbox/abcproc/internal/config"
	"github.com/Faultbox/abcproc/internal/logger"
	"github.com/Faultbox/abcproc/internal/render"
	"github.com/Faultbox/abcproc/internal/scene"
	"go.uber.org/zap"
)

// ShapeEnv is what a shape is built into.
type ShapeEnv struct {
	Registry  *render.Registry
	Parent    *render.Node
	Name      string // base name of the built node
	Overrides config.NodeOverrides
	Reference *Reference
}

// MakeShape builds the renderer node of the first shape it reaches and
// stops. Shapes that cannot be built are skipped.
type MakeShape struct {
	// Node is the built node, nil when no shape could be built.
	Node *render.Node
	// Path is the path of the built shape through instances.
	Path string

	cfg   *config.Config
	times Times
	env   ShapeEnv
	stack *matrixStack
}

// NewMakeShape returns a shape builder.
func NewMakeShape(cfg *config.Config, times Times, env ShapeEnv) *MakeShape {
	return &MakeShape{
		cfg:   cfg,
		times: times,
		env:   env,
		stack: newMatrixStack(len(times.Transform)),
	}
}

// Enter implements scene.Visitor.
func (v *MakeShape) Enter(s *cache.Scene, n *cache.Node, inst *cache.Node) scene.VisitReturn {
	if scene.IsRedirected(n, inst) && v.cfg.Filters.IgnoreInstances {
		return scene.Prune
	}
	if !visible(s, n, inst, v.times.Render, v.cfg.Filters) {
		return scene.Prune
	}
	if n.Kind == cache.KindXform {
		if v.cfg.Filters.IgnoreTransforms || n.IsLocator() {
			v.stack.skip()
		} else {
			v.stack.push(n, v.times.Transform)
		}
		return scene.Continue
	}
	if !counted(n, v.cfg.Filters) {
		return scene.Continue
	}

	var node *render.Node
	switch {
	case v.cfg.Shape.StepSize > 0:
		node = v.volume(n)
	case n.Mesh != nil:
		node = v.mesh(n)
	case n.Points != nil:
		node = v.points(n)
	case n.Curves != nil:
		node = v.curves(n)
	}
	if node == nil {
		return scene.Prune
	}
	v.Node = node
	v.Path = scene.Path(s, n, inst)
	return scene.Stop
}

// Leave implements scene.Visitor.
func (v *MakeShape) Leave(_ *cache.Scene, n *cache.Node, _ *cache.Node) {
	if n.Kind == cache.KindXform {
		v.stack.pop()
	}
}

// create adds the output node to the registry.
func (v *MakeShape) create(typ string, n *cache.Node) *render.Node {
	node, err := v.env.Registry.CreateNode(typ, v.env.Name, v.env.Parent)
	if err != nil {
		logger.Log.Warn("cannot create shape node", zap.String("node", n.Path), zap.Error(err))
		return nil
	}
	return node
}

// collect reads the user attributes of n. Point attributes are always read
// so motion and rest pose channels can be found among them, and dropped
// afterwards by setAttributes when not requested.
func (v *MakeShape) collect(n *cache.Node, t float64) *attr.Set {
	cfg := *v.cfg
	cfg.Attribs.ReadPoint = true
	set := attr.NewSet()
	attr.Collect(n, t, &cfg, set)
	return set
}

// finish sets the parameters shared by every shape kind.
func (v *MakeShape) finish(node *render.Node, n *cache.Node, keys int) {
	warn := func(param string, err error) {
		if err != nil {
			logger.Log.Warn("cannot set parameter",
				zap.String("node", node.Name()), zap.String("param", param), zap.Error(err))
		}
	}

	if !v.cfg.Filters.IgnoreTransforms {
		warn("matrix", node.SetArray("matrix", render.MatrixArray(v.stack.top()...)))
	}
	if keys > 1 || (!v.cfg.Filters.IgnoreTransforms && len(v.times.Transform) > 1) {
		times := v.times.Deform
		if keys <= 1 {
			times = v.times.Transform
		}
		fps := v.cfg.Time.FPS
		warn("motion_start", node.SetFloat("motion_start", float32((times[0]-v.times.Render)*fps)))
		warn("motion_end", node.SetFloat("motion_end", float32((times[len(times)-1]-v.times.Render)*fps)))
	}
	if v.env.Overrides.DispMap != "" {
		warn("disp_map", node.SetString("disp_map", v.env.Overrides.DispMap))
	}
	logger.Log.Debug("built shape",
		zap.String("node", node.Name()), zap.String("type", node.Type()),
		zap.String("path", n.Path), zap.Int("keys", keys))
}

// setAttributes resolves collisions and sets every collection of set.
func (v *MakeShape) setAttributes(node *render.Node, set *attr.Set, nprims, npoints, nverts int, remap []uint32) {
	if !v.cfg.Attribs.ReadPoint {
		clear(set.Point)
	}
	set.RemoveConflicting(node)
	attr.SetAll(node, set.Object, 0, nil)
	attr.SetAll(node, set.Primitive, nprims, nil)
	attr.SetAll(node, set.Point, npoints, nil)
	if nverts > 0 {
		attr.SetAll(node, set.Vertex, nverts, remap)
	} else if len(set.Vertex) > 0 {
		logger.Log.Info("dropping vertex attributes",
			zap.String("node", node.Name()), zap.Strings("names", set.Vertex.Names()))
	}
}

// volume emits a box bounding the shape over the deformation keys.
func (v *MakeShape) volume(n *cache.Node) *render.Node {
	b := Bounds(n, v.times.Deform)
	if b.IsEmpty() {
		logger.Log.Warn("no bounds for volume", zap.String("node", n.Path))
		return nil
	}
	b = b.Pad(float32(v.cfg.Shape.BoundsPadding + v.cfg.Shape.StepSize))

	node := v.create(render.TypeBox, n)
	if node == nil {
		return nil
	}
	_ = node.SetVec("min", b.Min)
	_ = node.SetVec("max", b.Max)
	_ = node.SetFloat("step_size", float32(v.cfg.Shape.StepSize))

	set := attr.NewSet()
	attr.Collect(n, v.times.Attribs, v.cfg, set)
	set.RemoveConflicting(node)
	attr.SetAll(node, set.Object, 0, nil)
	v.finish(node, n, 1)
	return node
}
