package visitor

import (
	"github.com/Faultbox/abcproc/internal/attr"
	"github.com/Faultbox/abcproc/internal/cache"
	"github.com/Faultbox/abcproc/internal/logger"
	"github.com/Faultbox/abcproc/internal/render"
	"github.com/Faultbox/abcproc/internal/sample"
	"github.com/Faultbox/abcproc/pkg/math"
	"go.uber.org/zap"
)

// Renderer curve bases.
const (
	BasisLinear     = "linear"
	BasisBezier     = "bezier"
	BasisBSpline    = "b-spline"
	BasisCatmullRom = "catmull-rom"
)

func curvePositions(s cache.CurvesSample) []math.Vec3 { return s.Positions }

// curveBasis maps the cache basis to a renderer basis. Bases the renderer
// does not have fall back to linear.
func curveBasis(s cache.CurvesSample) string {
	if s.Type == cache.CurveLinear {
		return BasisLinear
	}
	switch s.Basis {
	case cache.BezierBasis:
		return BasisBezier
	case cache.BSplineBasis:
		return BasisBSpline
	case cache.CatmullRomBasis:
		return BasisCatmullRom
	default:
		return BasisLinear
	}
}

// radiusCount returns the number of radii of a curve of n points.
func radiusCount(basis string, n int) int {
	switch basis {
	case BasisBezier:
		return (n-1)/3 + 1
	case BasisBSpline, BasisCatmullRom:
		return max(n-2, 0)
	default:
		return n
	}
}

// radiusVertex returns the curve vertex radius r is taken from.
func radiusVertex(basis string, r int) int {
	switch basis {
	case BasisBezier:
		return 3 * r
	case BasisBSpline, BasisCatmullRom:
		return r + 1
	default:
		return r
	}
}

// isNurbs reports whether a curve set carries per curve orders or knots.
func isNurbs(s cache.CurvesSample) bool {
	return s.Type == cache.CurveVariableOrder || len(s.Knots) > 0 || len(s.Orders) > 0
}

// curvesInfo is the working state of one curve set.
type curvesInfo struct {
	node   *cache.Node
	topo   cache.CurvesSample
	basis  string
	nurbs  bool
	counts []uint32 // output points per curve
	src    []int    // source point of every output point, nil for nurbs
	keys   [][]math.Vec3
}

func (c *curvesInfo) numPoints() int {
	return len(c.keys[0])
}

func (v *MakeShape) curves(n *cache.Node) *render.Node {
	cd := n.Curves
	var l sample.TimeSampleList[cache.CurvesSample]
	if err := readSamples(&l, cd.Samples, v.times.Deform, v.times.Render); err != nil {
		logger.Log.Warn("skipping curves", zap.String("node", n.Path), zap.Error(err))
		return nil
	}
	base, err := l.Nearest(v.times.Render)
	if err != nil {
		logger.Log.Warn("skipping curves", zap.String("node", n.Path), zap.Error(err))
		return nil
	}
	topo := base.Data
	total := 0
	for _, c := range topo.NumVertices {
		total += int(c)
	}
	if total == 0 || total != len(topo.Positions) {
		logger.Log.Warn("skipping curves with inconsistent vertex counts",
			zap.String("node", n.Path), zap.Int("vertices", total), zap.Int("points", len(topo.Positions)))
		return nil
	}

	set := v.collect(n, v.times.Attribs)
	varying := v.cfg.Velocity.ForceVelocityBlur
	for i := 1; i < l.Len(); i++ {
		if len(l.At(i).Data.Positions) != len(l.At(i-1).Data.Positions) {
			varying = true
		}
	}

	var keys [][]math.Vec3
	if varying {
		keys = v.velocityKeys(n, set, base.Time, topo.Positions, topo.Velocities)
	} else {
		keys, err = blendKeys(n, &l, curvePositions, v.times.Deform)
		if err != nil || !sameCounts(keys) || len(keys[0]) != total {
			keys = [][]math.Vec3{topo.Positions}
		}
	}

	c := &curvesInfo{node: n, topo: topo}
	if isNurbs(topo) {
		if err := v.tessellate(c, keys); err != nil {
			logger.Log.Warn("skipping nurbs curves", zap.String("node", n.Path), zap.Error(err))
			return nil
		}
	} else {
		c.basis = curveBasis(topo)
		if topo.Type != cache.CurveLinear && c.basis == BasisLinear && topo.Basis != cache.NoBasis {
			logger.Log.Info("unsupported curve basis, using linear", zap.String("node", n.Path))
		}
		c.wrap(keys)
	}

	node := v.create(render.TypeCurves, n)
	if node == nil {
		return nil
	}
	_ = node.SetArray("num_points", render.UIntArray(c.counts...))
	if err := node.SetArray("points", render.Vec3Array(c.keys...)); err != nil {
		logger.Log.Warn("cannot set positions", zap.String("node", n.Path), zap.Error(err))
	}
	_ = node.SetString("basis", c.basis)
	if err := node.SetArray("radius", render.FloatArray(render.TypeFloat, 1, v.curveRadius(c))); err != nil {
		logger.Log.Warn("cannot set radius", zap.String("node", n.Path), zap.Error(err))
	}

	mode := "ribbon"
	if o := v.orientations(c); o != nil {
		_ = node.SetArray("orientations", render.Vec3Array(o))
		mode = "oriented"
	}
	_ = node.SetString("mode", mode)
	if uvs := v.curveUVs(c); uvs != nil {
		_ = node.SetArray("uvs", render.Vec2Array(uvs))
	}

	if v.cfg.Ref.OutputReference {
		v.curveReference(node, c, set, total)
	}

	np := c.numPoints()
	if !v.cfg.Attribs.ReadPoint {
		clear(set.Point)
	}
	for _, name := range set.Point.Names() {
		a := set.Point[name]
		switch {
		case c.src != nil && a.Count == total:
			set.Point[name] = gather(a, c.src)
		case a.Count != np:
			logger.Log.Warn("dropping point attribute", zap.String("node", n.Path), zap.String("name", name))
			delete(set.Point, name)
		}
	}
	v.setAttributes(node, set, len(c.counts), np, 0, nil)
	v.finish(node, n, len(c.keys))
	return node
}

// wrap closes periodic curves by repeating their first points and records
// the source point of every output point.
func (c *curvesInfo) wrap(keys [][]math.Vec3) {
	extra := 0
	if c.topo.Wrap == cache.Periodic {
		extra = 1
		if c.basis == BasisBSpline || c.basis == BasisCatmullRom {
			extra = 3
		}
	}

	o := 0
	for _, nv := range c.topo.NumVertices {
		n := int(nv)
		for i := 0; i < n+extra; i++ {
			c.src = append(c.src, o+i%n)
		}
		c.counts = append(c.counts, uint32(n+extra))
		o += n
	}
	if extra == 0 {
		c.keys = keys
		return
	}
	c.keys = make([][]math.Vec3, len(keys))
	for k, p := range keys {
		out := make([]math.Vec3, len(c.src))
		for i, j := range c.src {
			out[i] = p[j]
		}
		c.keys[k] = out
	}
}

// tessellate converts every curve to evaluated catmull-rom points.
func (v *MakeShape) tessellate(c *curvesInfo, keys [][]math.Vec3) error {
	topo := c.topo
	c.basis = BasisCatmullRom
	c.nurbs = true
	c.keys = make([][]math.Vec3, len(keys))

	total := len(topo.Positions)
	weights := topo.Weights
	if len(weights) != total {
		weights = nil
	}

	o, ko := 0, 0
	for ci, nv := range topo.NumVertices {
		n := int(nv)
		order := 2
		if topo.Type != cache.CurveLinear {
			order = 4
		}
		if ci < len(topo.Orders) {
			order = int(topo.Orders[ci])
		}
		knots := openUniformKnots(n, order)
		if len(topo.Knots) > 0 {
			if ko+n+order > len(topo.Knots) {
				return ErrNurbs
			}
			knots = topo.Knots[ko : ko+n+order]
			ko += n + order
		}

		for k, p := range keys {
			curve := NurbsCurve{CVs: p[o : o+n], Knots: knots, Order: order}
			if weights != nil {
				curve.Weights = weights[o : o+n]
			}
			pts, err := curve.Tessellate(v.cfg.Shape.NurbsSampleRate, true)
			if err != nil {
				return err
			}
			if k == 0 {
				c.counts = append(c.counts, uint32(len(pts)))
			}
			c.keys[k] = append(c.keys[k], pts...)
		}
		o += n
	}
	return nil
}

// curveRadius returns the radii of every curve from the cached widths.
func (v *MakeShape) curveRadius(c *curvesInfo) []float32 {
	total := len(c.topo.Positions)
	ncurves := len(c.counts)
	var w []float32
	if g := c.node.Curves.Widths; g != nil {
		w = readFloats(g, v.times.Render)
	}

	var out []float32
	radius := func(x float32) float32 { return 0.5 * v.cfg.AdjustWidth(x) }
	switch {
	case len(w) == 1:
		return []float32{radius(w[0])}
	case len(w) == total && len(w) > 0:
		o := 0
		for ci, nv := range c.topo.NumVertices {
			n := int(nv)
			nr := radiusCount(c.basis, int(c.counts[ci]))
			if c.nurbs {
				// widths of control vertices do not map to evaluated points
				var sum float32
				for _, x := range w[o : o+n] {
					sum += x
				}
				for range nr {
					out = append(out, radius(sum/float32(n)))
				}
			} else {
				start := 0
				for i := 0; i < ci; i++ {
					start += int(c.counts[i])
				}
				for r := range nr {
					out = append(out, radius(w[c.src[start+radiusVertex(c.basis, r)]]))
				}
			}
			o += n
		}
		return out
	case len(w) == ncurves && ncurves > 0:
		for ci := range c.counts {
			for range radiusCount(c.basis, int(c.counts[ci])) {
				out = append(out, radius(w[ci]))
			}
		}
		return out
	case len(w) > 0:
		logger.Log.Warn("ignoring widths", zap.String("node", c.node.Path), zap.Int("widths", len(w)))
	}
	return []float32{radius(float32(v.cfg.Shape.WidthMin))}
}

// orientations returns one normal per output point, nil without usable
// normals.
func (v *MakeShape) orientations(c *curvesInfo) []math.Vec3 {
	g := c.node.Curves.Normals
	if g == nil {
		return nil
	}
	if c.nurbs {
		logger.Log.Info("ignoring normals of nurbs curves", zap.String("node", c.node.Path))
		return nil
	}
	a, err := attr.ReadGeomParam(g, v.times.Render, true)
	if err != nil || a.Type != render.TypeVector || a.Elements() != len(c.topo.Positions) {
		logger.Log.Warn("ignoring curve normals", zap.String("node", c.node.Path))
		return nil
	}
	normals := vec3s(a)
	out := make([]math.Vec3, len(c.src))
	for i, j := range c.src {
		out[i] = normals[j]
	}
	return out
}

// curveUVs returns one UV per curve.
func (v *MakeShape) curveUVs(c *curvesInfo) []math.Vec2 {
	g := c.node.Curves.UVs
	if g == nil {
		return nil
	}
	a, err := attr.ReadGeomParam(g, v.times.Render, true)
	if err != nil || a.Type != render.TypeVector2 {
		logger.Log.Warn("ignoring curve uvs", zap.String("node", c.node.Path))
		return nil
	}
	at := func(i int) math.Vec2 { return math.Vec2{X: a.Floats[2*i], Y: a.Floats[2*i+1]} }
	ncurves := len(c.topo.NumVertices)
	out := make([]math.Vec2, ncurves)
	switch a.Elements() {
	case 1:
		for i := range out {
			out[i] = at(0)
		}
	case ncurves:
		for i := range out {
			out[i] = at(i)
		}
	case len(c.topo.Positions):
		o := 0
		for i, nv := range c.topo.NumVertices {
			out[i] = at(o)
			o += int(nv)
		}
	default:
		logger.Log.Warn("ignoring curve uvs", zap.String("node", c.node.Path), zap.Int("uvs", a.Elements()))
		return nil
	}
	return out
}

// curveReference sets the rest positions, following the output points.
func (v *MakeShape) curveReference(node *render.Node, c *curvesInfo, set *attr.Set, total int) {
	rp, err := resolveRest(v.cfg, v.env.Reference, set, c.node.Path, total)
	if err == nil && c.src == nil {
		err = ErrNoReference
	}
	if err == nil {
		rp.P = gatherVec3(rp.P, c.src)
		if rp.N != nil {
			rp.N = gatherVec3(rp.N, c.src)
		}
		err = setRest(node, rp)
	}
	if err != nil {
		logger.Log.Warn("no reference pose", zap.String("node", c.node.Path), zap.Error(err))
	}
}

func gatherVec3(p []math.Vec3, idx []int) []math.Vec3 {
	out := make([]math.Vec3, len(idx))
	for i, j := range idx {
		out[i] = p[j]
	}
	return out
}

// gather returns the elements of a at idx.
func gather(a *attr.Attribute, idx []int) *attr.Attribute {
	out := attr.New(a.Class, a.Type, len(idx))
	for i, j := range idx {
		_ = out.Copy(a, j, 1, i)
	}
	return out
}
