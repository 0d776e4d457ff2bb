package visitor

import (
	"strings"

	"github.com/Faultbox/abcproc/internal/cache"
	"github.com/Faultbox/abcproc/internal/config"
	"github.com/Faultbox/abcproc/internal/logger"
	"github.com/Faultbox/abcproc/internal/render"
	"github.com/Faultbox/abcproc/internal/scene"
	"github.com/Faultbox/abcproc/pkg/math"
	"go.uber.org/zap"
)

// Parameters every generated procedural inherits from its parent.
var inheritedParams = []string{"dso", "subdiv_type", "subdiv_iterations", "smoothing", "disp_map"}

// Generated is one procedural created for a shape.
type Generated struct {
	Node *render.Node
	// Path is the shape path through instances.
	Path string
	// ObjectPath is the path of the shape geometry the procedural expands.
	ObjectPath string
}

// MakeProcedurals creates one deferred procedural per shape, carrying the
// shape world matrices and bounds.
type MakeProcedurals struct {
	Nodes []Generated

	cfg    *config.Config
	times  Times
	reg    *render.Registry
	parent *render.Node
	runID  string
	stack  *matrixStack
}

// NewMakeProcedurals returns a generator creating nodes under parent.
func NewMakeProcedurals(cfg *config.Config, times Times, reg *render.Registry, parent *render.Node, runID string) *MakeProcedurals {
	return &MakeProcedurals{
		cfg:    cfg,
		times:  times,
		reg:    reg,
		parent: parent,
		runID:  runID,
		stack:  newMatrixStack(len(times.Transform)),
	}
}

// Enter implements scene.Visitor.
func (v *MakeProcedurals) Enter(s *cache.Scene, n *cache.Node, inst *cache.Node) scene.VisitReturn {
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

	node, err := v.generate(s, n, inst)
	if err != nil {
		logger.Log.Warn("cannot generate procedural", zap.String("path", n.Path), zap.Error(err))
		return scene.Prune
	}
	v.Nodes = append(v.Nodes, Generated{Node: node, Path: scene.Path(s, n, inst), ObjectPath: n.Path})
	return scene.Continue
}

// Leave implements scene.Visitor.
func (v *MakeProcedurals) Leave(_ *cache.Scene, n *cache.Node, _ *cache.Node) {
	if n.Kind == cache.KindXform {
		v.stack.pop()
	}
}

func (v *MakeProcedurals) generate(s *cache.Scene, n, inst *cache.Node) (*render.Node, error) {
	shapeCfg, err := v.cfg.ForShape(n.Path)
	if err != nil {
		return nil, err
	}
	data, err := shapeCfg.Marshal(config.FormatYAML)
	if err != nil {
		return nil, err
	}

	node, err := v.reg.CreateNode(render.TypeProcedural, ProceduralName(s, n, inst, v.cfg.NamePrefix), v.parent)
	if err != nil {
		return nil, err
	}
	if err := node.SetString("data", string(data)); err != nil {
		return nil, err
	}
	_ = node.SetString("filename", v.cfg.Filename)
	_ = node.SetString("objectpath", n.Path)
	_ = node.SetFloat("frame", float32(v.cfg.Time.Frame))

	if !v.cfg.Filters.IgnoreTransforms {
		_ = node.SetArray("matrix", render.MatrixArray(v.stack.top()...))
	}
	if b := Bounds(n, v.times.Deform); !b.IsEmpty() {
		b = b.Pad(float32(v.cfg.Shape.BoundsPadding))
		_ = node.SetVec("min", b.Min)
		_ = node.SetVec("max", b.Max)
	} else {
		_ = node.SetBool("load_at_init", true)
	}

	if v.parent != nil {
		for _, p := range inheritedParams {
			if _, err := node.CopyParam(v.parent, p); err != nil {
				logger.Log.Warn("cannot copy parameter", zap.String("node", node.Name()), zap.String("param", p), zap.Error(err))
			}
		}
		for _, p := range v.cfg.OverrideAttributes {
			ok, err := node.CopyParam(v.parent, p)
			switch {
			case err != nil:
				logger.Log.Warn("cannot override attribute", zap.String("node", node.Name()), zap.String("param", p), zap.Error(err))
			case !ok:
				logger.Log.Debug("override attribute not set", zap.String("node", node.Name()), zap.String("param", p))
			}
		}
	}

	if inst != nil {
		if err := node.Declare("instance_num", "constant INT"); err == nil {
			_ = node.SetInt("instance_num", int32(inst.InstanceNumber))
		}
	}
	if v.runID != "" {
		if err := node.Declare("abcproc_run", "constant STRING"); err == nil {
			_ = node.SetString("abcproc_run", v.runID)
		}
	}
	return node, nil
}

// ProceduralName returns the base name of the procedural generated for n:
// its partial path, or its full path through instances, with every element
// prefixed and joined by "|".
func ProceduralName(s *cache.Scene, n, inst *cache.Node, prefix string) string {
	if inst == nil {
		return s.FormatPartialPath(n, prefix, "|")
	}
	elems := strings.Split(strings.Trim(scene.Path(s, n, inst), "/"), "/")
	for i, e := range elems {
		elems[i] = prefix + e
	}
	return strings.Join(elems, "|")
}

// AnnotateReference sets the rest pose world matrix of every generated
// procedural found in matrices.
func AnnotateReference(nodes []Generated, matrices map[string][]math.Mat4) int {
	count := 0
	for _, g := range nodes {
		m, ok := matrices[g.Path]
		if !ok || len(m) == 0 {
			logger.Log.Debug("no reference transform", zap.String("path", g.Path))
			continue
		}
		if _, declared := g.Node.Declaration(RefMatrixName); !declared {
			if err := g.Node.Declare(RefMatrixName, "constant MATRIX"); err != nil {
				logger.Log.Warn("cannot declare reference matrix", zap.String("node", g.Node.Name()), zap.Error(err))
				continue
			}
		}
		if err := g.Node.SetMatrix(RefMatrixName, m[0]); err != nil {
			logger.Log.Warn("cannot set reference matrix", zap.String("node", g.Node.Name()), zap.Error(err))
			continue
		}
		count++
	}
	return count
}
