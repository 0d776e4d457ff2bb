package visitor

import (
	"github.com/Faultbox/abcproc/internal/cache"
	"github.com/Faultbox/abcproc/internal/logger"
	"github.com/Faultbox/abcproc/internal/sample"
	"github.com/Faultbox/abcproc/pkg/math"
)

// LocalMatrices samples the local transform of an xform node at each time.
// Nodes without transform samples are identity and inherit.
func LocalMatrices(n *cache.Node, times []float64) ([]math.Mat4, bool) {
	out := make([]math.Mat4, len(times))
	inherits := true
	if n.Xform == nil || n.Xform.Samples.NumSamples() == 0 {
		for i := range out {
			out[i] = math.Identity()
		}
		return out, inherits
	}

	var l sample.TimeSampleList[cache.XformSample]
	for i, t := range times {
		if err := l.Update(n.Xform.Samples, t, t, false); err != nil {
			out[i] = math.Identity()
			continue
		}
		s0, s1, w, _ := l.GetSamples(t)
		out[i] = sample.BlendMatrix(s0.Data.Matrix, s1.Data.Matrix, w)
		if i == 0 {
			inherits = s0.Data.Inherits
		}
	}
	return out, inherits
}

// matrixStack accumulates world matrices, one per transform key.
type matrixStack struct {
	keys   int
	stack  [][]math.Mat4
	pushed []bool
}

func newMatrixStack(keys int) *matrixStack {
	return &matrixStack{keys: keys}
}

func (m *matrixStack) top() []math.Mat4 {
	if len(m.stack) == 0 {
		id := make([]math.Mat4, m.keys)
		for i := range id {
			id[i] = math.Identity()
		}
		return id
	}
	return m.stack[len(m.stack)-1]
}

// push composes the local transform of n with the current top.
func (m *matrixStack) push(n *cache.Node, times []float64) {
	local, inherits := LocalMatrices(n, times)
	if inherits {
		parent := m.top()
		for i := range local {
			local[i] = parent[i].Mul(local[i])
		}
	}
	m.stack = append(m.stack, local)
	m.pushed = append(m.pushed, true)
}

// skip records an entered xform that did not push.
func (m *matrixStack) skip() {
	m.pushed = append(m.pushed, false)
}

// pop undoes the matching push or skip.
func (m *matrixStack) pop() {
	if len(m.pushed) == 0 {
		logger.Log.Warn("popping an empty transform stack")
		return
	}
	pushed := m.pushed[len(m.pushed)-1]
	m.pushed = m.pushed[:len(m.pushed)-1]
	if pushed {
		m.stack = m.stack[:len(m.stack)-1]
	}
}

// WorldMatrix composes the transforms of the ancestors of n at t. Locators
// and non inheriting transforms are honored as in a traversal.
func WorldMatrix(s *cache.Scene, n *cache.Node, t float64) math.Mat4 {
	var chain []*cache.Node
	for id := n.Parent; id != cache.NoNode; {
		p := s.Node(id)
		if p == nil {
			break
		}
		chain = append(chain, p)
		id = p.Parent
	}

	world := math.Identity()
	for i := len(chain) - 1; i >= 0; i-- {
		x := chain[i]
		if x.Kind != cache.KindXform || x.IsLocator() {
			continue
		}
		local, inherits := LocalMatrices(x, []float64{t})
		if inherits {
			world = world.Mul(local[0])
		} else {
			world = local[0]
		}
	}
	return world
}
