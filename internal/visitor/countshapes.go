package visitor

import (
	"github.com/Faultbox/abcproc/internal/cache"
	"github.com/Faultbox/abcproc/internal/config"
	"github.com/Faultbox/abcproc/internal/scene"
)

// CountShapes counts the shapes a multi mode expansion generates a
// procedural for. NURBS patches are never counted and curves are skipped
// with ignore_nurbs.
type CountShapes struct {
	NumShapes int

	renderTime float64
	filters    config.FilterConfig
}

// NewCountShapes returns a counter evaluating visibility at renderTime.
func NewCountShapes(renderTime float64, filters config.FilterConfig) *CountShapes {
	return &CountShapes{renderTime: renderTime, filters: filters}
}

// Enter implements scene.Visitor.
func (v *CountShapes) Enter(s *cache.Scene, n *cache.Node, inst *cache.Node) scene.VisitReturn {
	if scene.IsRedirected(n, inst) && v.filters.IgnoreInstances {
		return scene.Prune
	}
	if !visible(s, n, inst, v.renderTime, v.filters) {
		return scene.Prune
	}
	if counted(n, v.filters) {
		v.NumShapes++
	}
	return scene.Continue
}

// Leave implements scene.Visitor.
func (v *CountShapes) Leave(*cache.Scene, *cache.Node, *cache.Node) {}

// counted reports whether a procedural is generated for n.
func counted(n *cache.Node, filters config.FilterConfig) bool {
	switch n.Kind {
	case cache.KindMesh, cache.KindSubD, cache.KindPoints:
		return true
	case cache.KindCurves:
		return !filters.IgnoreNurbs
	}
	return false
}

// visible evaluates the visibility of n, or of the instance proxy that
// redirected to it.
func visible(s *cache.Scene, n, inst *cache.Node, t float64, filters config.FilterConfig) bool {
	if filters.IgnoreVisibility {
		return true
	}
	if scene.IsRedirected(n, inst) && !s.Visible(inst, t) {
		return false
	}
	return s.Visible(n, t)
}
