package visitor

import (
	gomath "math"

	"github.com/Faultbox/abcproc/internal/cache"
	"github.com/Faultbox/abcproc/internal/scene"
)

// TimeRange collects the time span covered by every animated schema.
type TimeRange struct {
	start, end float64
}

// NewTimeRange returns an empty range collector.
func NewTimeRange() *TimeRange {
	return &TimeRange{start: gomath.MaxFloat64, end: -gomath.MaxFloat64}
}

func extend[T any](r *TimeRange, p *cache.Property[T]) {
	n := p.NumSamples()
	if n <= 1 {
		return
	}
	s, e := p.Sampling.Range(n)
	r.start = min(r.start, s)
	r.end = max(r.end, e)
}

// Enter implements scene.Visitor.
func (r *TimeRange) Enter(_ *cache.Scene, n *cache.Node, _ *cache.Node) scene.VisitReturn {
	switch {
	case n.Xform != nil:
		extend(r, n.Xform.Samples)
	case n.Mesh != nil:
		extend(r, n.Mesh.Samples)
	case n.Points != nil:
		extend(r, n.Points.Samples)
	case n.Curves != nil:
		extend(r, n.Curves.Samples)
	}
	return scene.Continue
}

// Leave implements scene.Visitor.
func (r *TimeRange) Leave(*cache.Scene, *cache.Node, *cache.Node) {}

// Range returns the collected span in seconds. ok is false when nothing
// is animated.
func (r *TimeRange) Range() (start, end float64, ok bool) {
	return r.start, r.end, r.start <= r.end
}
