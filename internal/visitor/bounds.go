package visitor

import (
	"github.com/Faultbox/abcproc/internal/cache"
	"github.com/Faultbox/abcproc/internal/sample"
	"github.com/Faultbox/abcproc/pkg/math"
)

// Bounds returns the local bounds of a shape over times: the stored self
// bounds when present, else the bounds of the nearest positions.
func Bounds(n *cache.Node, times []float64) math.Box3 {
	out := math.EmptyBox()
	for _, t := range times {
		out = out.Union(boundsAt(n, t))
	}
	return out
}

func boundsAt(n *cache.Node, t float64) math.Box3 {
	if n.SelfBounds.NumSamples() > 0 {
		var l sample.TimeSampleList[math.Box3]
		if err := l.Update(n.SelfBounds, t, t, false); err == nil {
			s0, s1, w, _ := l.GetSamples(t)
			return s0.Data.Blend(s1.Data, 1-w, w)
		}
	}
	if p := positionsAt(n, t); p != nil {
		return math.BoundPoints(p)
	}
	return math.EmptyBox()
}

// positionsAt returns the positions of the sample nearest t.
func positionsAt(n *cache.Node, t float64) []math.Vec3 {
	switch {
	case n.Mesh != nil:
		return nearest(n.Mesh.Samples, t, func(s cache.MeshSample) []math.Vec3 { return s.Positions })
	case n.Points != nil:
		return nearest(n.Points.Samples, t, func(s cache.PointsSample) []math.Vec3 { return s.Positions })
	case n.Curves != nil:
		return nearest(n.Curves.Samples, t, func(s cache.CurvesSample) []math.Vec3 { return s.Positions })
	}
	return nil
}

func nearest[T any](p *cache.Property[T], t float64, get func(T) []math.Vec3) []math.Vec3 {
	n := p.NumSamples()
	if n == 0 {
		return nil
	}
	i, _ := p.Sampling.NearIndex(t, n)
	return get(p.At(i))
}
