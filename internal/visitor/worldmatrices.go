package visitor

import (
	"github.com/Faultbox/abcproc/internal/cache"
	"github.com/Faultbox/abcproc/internal/config"
	"github.com/Faultbox/abcproc/internal/scene"
	"github.com/Faultbox/abcproc/pkg/math"
)

// CollectWorldMatrices records the world matrices of every shape, one per
// transform key, keyed by the shape path as seen through instances.
type CollectWorldMatrices struct {
	Matrices map[string][]math.Mat4

	filters config.FilterConfig
	times   []float64
	stack   *matrixStack
}

// NewCollectWorldMatrices returns a collector sampling transforms at times.
func NewCollectWorldMatrices(filters config.FilterConfig, times []float64) *CollectWorldMatrices {
	return &CollectWorldMatrices{
		Matrices: map[string][]math.Mat4{},
		filters:  filters,
		times:    times,
		stack:    newMatrixStack(len(times)),
	}
}

// Enter implements scene.Visitor.
func (v *CollectWorldMatrices) Enter(s *cache.Scene, n *cache.Node, inst *cache.Node) scene.VisitReturn {
	if scene.IsRedirected(n, inst) && v.filters.IgnoreInstances {
		return scene.Prune
	}
	switch {
	case n.Kind == cache.KindXform:
		if v.filters.IgnoreTransforms || n.IsLocator() {
			v.stack.skip()
		} else {
			v.stack.push(n, v.times)
		}
	case n.Kind.IsShape():
		v.Matrices[scene.Path(s, n, inst)] = v.stack.top()
	}
	return scene.Continue
}

// Leave implements scene.Visitor.
func (v *CollectWorldMatrices) Leave(_ *cache.Scene, n *cache.Node, _ *cache.Node) {
	if n.Kind == cache.KindXform {
		v.stack.pop()
	}
}
