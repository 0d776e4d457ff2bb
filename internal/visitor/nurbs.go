package visitor

import (
	"errors"
	"fmt"

	"github.com/Faultbox/abcproc/pkg/math"
)

// ErrNurbs is returned for curves whose knots, weights or order do not
// describe a valid NURBS curve.
var ErrNurbs = errors.New("invalid nurbs curve")

// NurbsCurve is one rational B-spline curve.
type NurbsCurve struct {
	CVs     []math.Vec3
	Weights []float32 // nil for a non rational curve
	Knots   []float32
	Order   int
}

// openUniformKnots returns a clamped knot vector with unit spans.
func openUniformKnots(ncvs, order int) []float32 {
	knots := make([]float32, ncvs+order)
	for i := range knots {
		switch {
		case i < order:
			knots[i] = 0
		case i >= ncvs:
			knots[i] = float32(ncvs - order + 1)
		default:
			knots[i] = float32(i - order + 1)
		}
	}
	return knots
}

// Validate checks the sizes of the curve arrays.
func (c NurbsCurve) Validate() error {
	n := len(c.CVs)
	switch {
	case c.Order < 2:
		return fmt.Errorf("order %d: %w", c.Order, ErrNurbs)
	case n < c.Order:
		return fmt.Errorf("%d cvs for order %d: %w", n, c.Order, ErrNurbs)
	case len(c.Knots) != n+c.Order:
		return fmt.Errorf("%d knots for %d cvs of order %d: %w", len(c.Knots), n, c.Order, ErrNurbs)
	case c.Weights != nil && len(c.Weights) != n:
		return fmt.Errorf("%d weights for %d cvs: %w", len(c.Weights), n, ErrNurbs)
	}
	for i := 1; i < len(c.Knots); i++ {
		if c.Knots[i] < c.Knots[i-1] {
			return fmt.Errorf("decreasing knots: %w", ErrNurbs)
		}
	}
	return nil
}

// Domain returns the valid parameter interval.
func (c NurbsCurve) Domain() (float32, float32) {
	return c.Knots[c.Order-1], c.Knots[len(c.CVs)]
}

// Spans returns the indices of the knot intervals of positive length inside
// the domain.
func (c NurbsCurve) Spans() []int {
	var out []int
	for k := c.Order - 1; k < len(c.CVs); k++ {
		if c.Knots[k+1] > c.Knots[k] {
			out = append(out, k)
		}
	}
	return out
}

// Eval evaluates the curve at u inside knot interval k with de Boor's
// algorithm in homogeneous coordinates.
func (c NurbsCurve) Eval(u float32, k int) math.Vec3 {
	p := c.Order - 1
	type hpoint struct {
		v math.Vec3
		w float32
	}
	d := make([]hpoint, p+1)
	for j := 0; j <= p; j++ {
		i := j + k - p
		w := float32(1)
		if c.Weights != nil {
			w = c.Weights[i]
		}
		d[j] = hpoint{v: c.CVs[i].Scale(w), w: w}
	}
	for r := 1; r <= p; r++ {
		for j := p; j >= r; j-- {
			lo := c.Knots[j+k-p]
			hi := c.Knots[j+1+k-r]
			alpha := float32(0)
			if hi > lo {
				alpha = (u - lo) / (hi - lo)
			}
			d[j] = hpoint{
				v: d[j-1].v.Scale(1 - alpha).Add(d[j].v.Scale(alpha)),
				w: (1-alpha)*d[j-1].w + alpha*d[j].w,
			}
		}
	}
	if d[p].w == 0 {
		return d[p].v
	}
	return d[p].v.Scale(1 / d[p].w)
}

// Tessellate evaluates rate points per span plus the end point, giving
// 1+spans*rate points. pad duplicates both end points for bases that need
// phantom end points.
func (c NurbsCurve) Tessellate(rate int, pad bool) ([]math.Vec3, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if rate < 1 {
		rate = 1
	}
	spans := c.Spans()
	if len(spans) == 0 {
		return nil, fmt.Errorf("empty domain: %w", ErrNurbs)
	}

	out := make([]math.Vec3, 0, 1+len(spans)*rate+2)
	for _, k := range spans {
		lo, hi := c.Knots[k], c.Knots[k+1]
		for i := 0; i < rate; i++ {
			u := lo + (hi-lo)*float32(i)/float32(rate)
			out = append(out, c.Eval(u, k))
		}
	}
	last := spans[len(spans)-1]
	_, end := c.Domain()
	out = append(out, c.Eval(end, last))

	if pad {
		out = append([]math.Vec3{out[0]}, out...)
		out = append(out, out[len(out)-1])
	}
	return out, nil
}
