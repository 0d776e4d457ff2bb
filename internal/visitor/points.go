package visitor

import (
	"slices"

	"github.com/Faultbox/abcproc/internal/attr"
	"github.com/Faultbox/abcproc/internal/cache"
	"github.com/Faultbox/abcproc/internal/logger"
	"github.com/Faultbox/abcproc/internal/render"
	"github.com/Faultbox/abcproc/internal/sample"
	"github.com/Faultbox/abcproc/pkg/math"
	"go.uber.org/zap"
)

func pointPositions(s cache.PointsSample) []math.Vec3 { return s.Positions }

// idUnion matches the points of two samples by id. Points of the first
// sample keep their order, points born in the second are appended.
type idUnion struct {
	n0, n1 int
	shared []int // index in the second sample of every first sample point, -1 when gone
	added  []int // indices in the second sample of the appended points
}

func newIDUnion(ids0, ids1 []uint64) *idUnion {
	index := make(map[uint64]int, len(ids1))
	for j, id := range ids1 {
		index[id] = j
	}
	u := &idUnion{n0: len(ids0), n1: len(ids1), shared: make([]int, len(ids0))}
	seen := make(map[uint64]struct{}, len(ids0))
	for i, id := range ids0 {
		seen[id] = struct{}{}
		j, ok := index[id]
		if !ok {
			j = -1
		}
		u.shared[i] = j
	}
	for j, id := range ids1 {
		if _, ok := seen[id]; !ok {
			u.added = append(u.added, j)
		}
	}
	return u
}

// Len returns the number of points of the union.
func (u *idUnion) Len() int {
	return u.n0 + len(u.added)
}

// positions interpolates shared points with weight w. Other points keep
// the position of the only sample they exist in.
func (u *idUnion) positions(p0, p1 []math.Vec3, w float64) []math.Vec3 {
	out := make([]math.Vec3, 0, u.Len())
	for i, j := range u.shared {
		if j < 0 {
			out = append(out, p0[i])
			continue
		}
		out = append(out, p0[i].Blend(p1[j], 1-w, w))
	}
	for _, j := range u.added {
		out = append(out, p1[j])
	}
	return out
}

// floats merges one value per point.
func (u *idUnion) floats(f0, f1 []float32) []float32 {
	out := slices.Clone(f0)
	for _, j := range u.added {
		out = append(out, f1[j])
	}
	return out
}

// attribute merges a per point attribute read at both samples.
func (u *idUnion) attribute(a0, a1 *attr.Attribute) (*attr.Attribute, error) {
	if a0.Count != u.n0 || a1.Count != u.n1 || a1.Type != a0.Type {
		return nil, attr.ErrCount
	}
	out := a0.Clone()
	if err := out.Resize(u.Len()); err != nil {
		return nil, err
	}
	for k, j := range u.added {
		if err := out.Copy(a1, j, 1, u.n0+k); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// changes reports whether the point set differs between the samples of l.
func changes(l *sample.TimeSampleList[cache.PointsSample]) bool {
	for i := 1; i < l.Len(); i++ {
		a, b := l.At(i-1).Data, l.At(i).Data
		if len(a.Positions) != len(b.Positions) || !slices.Equal(a.IDs, b.IDs) {
			return true
		}
	}
	return false
}

func (v *MakeShape) points(n *cache.Node) *render.Node {
	pd := n.Points
	var l sample.TimeSampleList[cache.PointsSample]
	if err := readSamples(&l, pd.Samples, v.times.Deform, v.times.Render); err != nil {
		logger.Log.Warn("skipping points", zap.String("node", n.Path), zap.Error(err))
		return nil
	}
	base, err := l.Nearest(v.times.Render)
	if err != nil || len(base.Data.Positions) == 0 {
		logger.Log.Warn("skipping points without positions", zap.String("node", n.Path))
		return nil
	}

	set := v.collect(n, v.times.Attribs)
	np := len(base.Data.Positions)
	var keys [][]math.Vec3
	var union *idUnion
	s0, s1, w, _ := l.GetSamples(v.times.Render)

	varying := changes(&l) || v.cfg.Velocity.ForceVelocityBlur
	var vel, acc []math.Vec3
	if varying {
		vel, acc = motionChannels(n, v.cfg, set, base.Time, np, base.Data.Velocities)
	}
	d0, d1 := s0.Data, s1.Data

	switch {
	case vel != nil:
		keys = extrapolateKeys(base.Data.Positions, base.Time, vel, acc, v.times.Deform, v.cfg.Velocity.Scale)
	case varying && w > 0 && len(d0.IDs) == len(d0.Positions) && len(d1.IDs) == len(d1.Positions):
		union = newIDUnion(d0.IDs, d1.IDs)
		for _, t := range v.times.Deform {
			kw := math.Clamp((t-s0.Time)/(s1.Time-s0.Time), 0, 1)
			keys = append(keys, union.positions(d0.Positions, d1.Positions, kw))
		}
		np = union.Len()
		v.mergePointAttributes(n, set, union, s0.Time, s1.Time)
	case varying:
		keys = [][]math.Vec3{base.Data.Positions}
	default:
		keys, err = blendKeys(n, &l, pointPositions, v.times.Deform)
		if err != nil || !sameCounts(keys) || len(keys[0]) != np {
			keys = [][]math.Vec3{base.Data.Positions}
		}
	}

	node := v.create(render.TypePoints, n)
	if node == nil {
		return nil
	}
	if err := node.SetArray("points", render.Vec3Array(keys...)); err != nil {
		logger.Log.Warn("cannot set positions", zap.String("node", n.Path), zap.Error(err))
	}
	radius := v.pointRadius(n, set, np, union, s0.Time, s1.Time)
	if err := node.SetArray("radius", render.FloatArray(render.TypeFloat, 1, radius)); err != nil {
		logger.Log.Warn("cannot set radius", zap.String("node", n.Path), zap.Error(err))
	}

	if v.cfg.Ref.OutputReference {
		rp, err := resolveRest(v.cfg, v.env.Reference, set, n.Path, np)
		if err == nil {
			err = setRest(node, rp)
		}
		if err != nil {
			logger.Log.Warn("no reference pose", zap.String("node", n.Path), zap.Error(err))
		}
	}

	// uniform values of a point cloud are per point
	v.setAttributes(node, set, np, np, 0, nil)
	v.finish(node, n, len(keys))
	return node
}

// mergePointAttributes replaces the point attributes of set by the union of
// their values at both samples.
func (v *MakeShape) mergePointAttributes(n *cache.Node, set *attr.Set, u *idUnion, t0, t1 float64) {
	at0 := v.collect(n, t0)
	at1 := v.collect(n, t1)
	for _, c := range []struct {
		dst        attr.Collection
		src0, src1 attr.Collection
	}{
		{set.Point, at0.Point, at1.Point},
		{set.Primitive, at0.Primitive, at1.Primitive},
	} {
		for _, name := range c.dst.Names() {
			a0, ok0 := c.src0[name]
			a1, ok1 := c.src1[name]
			if !ok0 || !ok1 {
				delete(c.dst, name)
				continue
			}
			merged, err := u.attribute(a0, a1)
			if err != nil {
				logger.Log.Warn("dropping point attribute of changing point set",
					zap.String("node", n.Path), zap.String("name", name), zap.Error(err))
				delete(c.dst, name)
				continue
			}
			c.dst[name] = merged
		}
	}
}

// pointRadius returns one radius per point, or a single radius for all.
// The radius attribute wins over widths.
func (v *MakeShape) pointRadius(n *cache.Node, set *attr.Set, np int, u *idUnion, t0, t1 float64) []float32 {
	if name := v.cfg.Shape.RadiusName; name != "" {
		if a, ok := set.Point[name]; ok && a.Type == render.TypeFloat && a.Count == np {
			delete(set.Point, name)
			out := make([]float32, np)
			for i, r := range a.Floats {
				out[i] = v.cfg.AdjustRadius(r)
			}
			return out
		}
	}

	if g := n.Points.Widths; g != nil {
		var w []float32
		if u != nil {
			w0, w1 := readFloats(g, t0), readFloats(g, t1)
			switch {
			case len(w0) == u.n0 && len(w1) == u.n1:
				w = u.floats(w0, w1)
			case len(w0) == 1:
				w = w0
			}
		} else {
			w = readFloats(g, v.times.Render)
		}
		if len(w) == np || len(w) == 1 {
			out := make([]float32, len(w))
			for i, x := range w {
				out[i] = v.cfg.AdjustRadius(0.5 * x)
			}
			return out
		}
		logger.Log.Warn("ignoring widths", zap.String("node", n.Path), zap.Int("widths", len(w)), zap.Int("points", np))
	}
	return []float32{v.cfg.AdjustRadius(float32(v.cfg.Shape.RadiusMin))}
}

// readFloats reads a FLOAT geometry parameter at t, nil on failure.
func readFloats(g *cache.GeomParam, t float64) []float32 {
	a, err := attr.ReadGeomParam(g, t, true)
	if err != nil || a.Type != render.TypeFloat {
		return nil
	}
	return a.Floats[:a.Elements()]
}
