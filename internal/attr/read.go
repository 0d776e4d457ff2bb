package attr

import (
	"fmt"
	"strings"

	"github.com/Faultbox/abcproc/internal/cache"
	"github.com/Faultbox/abcproc/internal/logger"
	"github.com/Faultbox/abcproc/internal/render"
	"github.com/Faultbox/abcproc/internal/sample"
	"github.com/Faultbox/abcproc/pkg/math"
	"go.uber.org/zap"
)

// TypeOf maps a cache data type to a renderer type.
func TypeOf(pod cache.POD, extent int, interpretation string) (render.ParamType, error) {
	unsupported := fmt.Errorf("%d x pod %d (%q): %w", extent, pod, interpretation, ErrUnsupported)
	switch {
	case pod == cache.PODBool:
		if extent == 1 {
			return render.TypeBool, nil
		}
	case pod == cache.PODInt8:
		if extent == 1 {
			return render.TypeByte, nil
		}
	case pod.IsUnsigned():
		if extent == 1 {
			return render.TypeUInt, nil
		}
	case pod.IsInteger():
		if extent == 1 {
			return render.TypeInt, nil
		}
	case pod == cache.PODString:
		if extent == 1 {
			return render.TypeString, nil
		}
	case pod.IsFloat():
		switch extent {
		case 1:
			return render.TypeFloat, nil
		case 2:
			if pod != cache.PODFloat16 {
				return render.TypeVector2, nil
			}
		case 3:
			if strings.Contains(interpretation, "rgb") {
				return render.TypeRGB, nil
			}
			if pod != cache.PODFloat16 {
				return render.TypeVector, nil
			}
		case 4:
			if strings.Contains(interpretation, "rgba") {
				return render.TypeRGBA, nil
			}
		case 16:
			if pod != cache.PODFloat16 {
				return render.TypeMatrix, nil
			}
		}
	}
	return 0, unsupported
}

// ClassOf maps a geometry parameter scope to an attribute class.
func ClassOf(s cache.Scope) Class {
	switch s {
	case cache.ScopeUniform:
		return Uniform
	case cache.ScopeVarying, cache.ScopeVertex:
		return Varying
	case cache.ScopeFaceVarying:
		return Indexed
	default:
		return Constant
	}
}

// LevelOf maps a geometry parameter scope to a collection.
func LevelOf(s cache.Scope) Level {
	return Level(ClassOf(s))
}

// ReadUserProp reads an object user property at t.
func ReadUserProp(p *cache.UserProp, t float64, interpolate bool) (*Attribute, error) {
	a, _, err := readValues(p.Values, t, interpolate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name, err)
	}
	a.Class = Constant
	if !p.IsArray {
		if a.Count != 1 {
			return nil, fmt.Errorf("%s: scalar property with %d elements: %w", p.Name, a.Count, ErrCount)
		}
		a.Count = 0
	}
	return a, nil
}

// ReadGeomParam reads a geometry parameter at t. Constant parameters with
// a single element become scalars.
func ReadGeomParam(g *cache.GeomParam, t float64, interpolate bool) (*Attribute, error) {
	a, vt, err := readValues(g.Values, t, interpolate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.Name, err)
	}
	a.Class = ClassOf(g.Scope)
	if a.Class == Constant && a.Count == 1 {
		a.Count = 0
	}
	if !g.IsIndexed() {
		return a, nil
	}

	// indices follow the value sample
	i, _ := g.Indices.Sampling.NearIndex(vt, g.Indices.NumSamples())
	idx := g.Indices.At(i)
	for _, k := range idx {
		if int(k) >= a.Elements() {
			return nil, fmt.Errorf("%s: index %d of %d elements: %w", g.Name, k, a.Elements(), ErrCount)
		}
	}
	a.Indices = append([]uint32(nil), idx...)
	if a.Class != Indexed {
		return expand(a), nil
	}
	return a, nil
}

// expand dereferences the indices of a non face varying attribute.
func expand(a *Attribute) *Attribute {
	out := New(a.Class, a.Type, len(a.Indices))
	for i, k := range a.Indices {
		_ = out.Copy(a, int(k), 1, i)
	}
	return out
}

// readValues resolves the samples of p around t and converts them. It also
// returns the time of the sample that was read, or the first of the two
// blended samples.
func readValues(p *cache.Property[cache.Array], t float64, interpolate bool) (*Attribute, float64, error) {
	var l sample.TimeSampleList[cache.Array]
	if err := l.Update(p, t, t, false); err != nil {
		return nil, 0, err
	}
	s0, s1, blend, err := l.GetSamples(t)
	if err != nil {
		return nil, 0, err
	}
	v0 := s0.Data
	typ, err := TypeOf(v0.POD, v0.Extent, v0.Interpretation)
	if err != nil {
		return nil, 0, err
	}

	n := v0.Len()
	if n == 0 {
		return nil, 0, fmt.Errorf("no elements: %w", ErrCount)
	}
	a := New(Constant, typ, n)

	w := 0.0
	if interpolate && blend > 0 {
		if s1.Data.Len() == n {
			w = blend
		} else {
			logger.Log.Warn("sample sizes differ, using the first sample",
				zap.String("name", p.Name), zap.Float64("time", t),
				zap.Int("size0", n), zap.Int("size1", s1.Data.Len()))
		}
	}
	v1 := s1.Data
	fill(a, v0, v1, w)
	return a, s0.Time, nil
}

func fill(a *Attribute, v0, v1 cache.Array, w float64) {
	x, y := 1-w, w
	switch {
	case a.Type == render.TypeBool:
		for i := range a.Bools {
			// the nearer sample wins
			if w > 0.5 {
				a.Bools[i] = v1.Bools[i]
			} else {
				a.Bools[i] = v0.Bools[i]
			}
		}
	case a.Type == render.TypeString:
		src := v0.Strings
		if w > 0.5 {
			src = v1.Strings
		}
		copy(a.Strings, src)
	case a.Type == render.TypeByte:
		for i := range a.Bytes {
			a.Bytes[i] = uint8(int8(math.Lerp(v0.Ints[i], pick(v1.Ints, v0.Ints, w)[i], x, y)))
		}
	case a.Type == render.TypeInt:
		for i := range a.Ints {
			a.Ints[i] = int32(math.Lerp(v0.Ints[i], pick(v1.Ints, v0.Ints, w)[i], x, y))
		}
	case a.Type == render.TypeUInt:
		for i := range a.UInts {
			a.UInts[i] = uint32(math.Lerp(v0.Ints[i], pick(v1.Ints, v0.Ints, w)[i], x, y))
		}
	default:
		for i := range a.Floats {
			a.Floats[i] = float32(math.Lerp(v0.Floats[i], pick(v1.Floats, v0.Floats, w)[i], x, y))
		}
	}
}

// pick returns b when no blending happens so that a second sample of
// another size is never indexed.
func pick[T any](b, a []T, w float64) []T {
	if w == 0 {
		return a
	}
	return b
}
