package cache

import "github.com/Faultbox/abcproc/pkg/math"

// Property is a time sampled value of type T.
type Property[T any] struct {
	Name     string
	Sampling TimeSampling
	Values   []T
}

// NewProperty returns a property holding values sampled by ts.
func NewProperty[T any](name string, ts TimeSampling, values ...T) *Property[T] {
	return &Property[T]{Name: name, Sampling: ts, Values: values}
}

// ConstantProperty returns a single sample property.
func ConstantProperty[T any](name string, v T) *Property[T] {
	return NewProperty(name, UniformSampling(0, 1), v)
}

// NumSamples returns the number of stored samples. A nil property has none.
func (p *Property[T]) NumSamples() int {
	if p == nil {
		return 0
	}
	return len(p.Values)
}

// IsConstant reports whether the property never changes over time.
func (p *Property[T]) IsConstant() bool {
	return p.NumSamples() <= 1
}

// Time returns the time of sample i.
func (p *Property[T]) Time(i int) float64 {
	return p.Sampling.SampleTime(i)
}

// At returns sample i.
func (p *Property[T]) At(i int) T {
	return p.Values[i]
}

// POD is the plain data type of an attribute component.
type POD int

const (
	PODBool POD = iota
	PODInt8
	PODUint8
	PODInt16
	PODUint16
	PODInt32
	PODUint32
	PODInt64
	PODUint64
	PODFloat16
	PODFloat32
	PODFloat64
	PODString
)

// IsFloat reports whether the type is a floating point type.
func (p POD) IsFloat() bool {
	return p == PODFloat16 || p == PODFloat32 || p == PODFloat64
}

// IsInteger reports whether the type is an integer type.
func (p POD) IsInteger() bool {
	return p >= PODInt8 && p <= PODUint64
}

// IsUnsigned reports whether the type is an unsigned integer type.
func (p POD) IsUnsigned() bool {
	return p == PODUint8 || p == PODUint16 || p == PODUint32 || p == PODUint64
}

// Array is one sample of an arbitrary attribute: Len() tuples of Extent
// components, stored flat in the slice matching the POD category.
type Array struct {
	POD            POD
	Extent         int
	Interpretation string

	Bools   []bool
	Ints    []int64
	Floats  []float64
	Strings []string
}

// Len returns the number of tuples.
func (a Array) Len() int {
	ext := a.Extent
	if ext < 1 {
		ext = 1
	}
	switch {
	case a.POD == PODBool:
		return len(a.Bools) / ext
	case a.POD == PODString:
		return len(a.Strings) / ext
	case a.POD.IsFloat():
		return len(a.Floats) / ext
	default:
		return len(a.Ints) / ext
	}
}

// Vec3 reads tuple i of a 3 component float array.
func (a Array) Vec3(i int) math.Vec3 {
	return math.Vec3{X: float32(a.Floats[3*i]), Y: float32(a.Floats[3*i+1]), Z: float32(a.Floats[3*i+2])}
}

// Vec2 reads tuple i of a 2 component float array.
func (a Array) Vec2(i int) math.Vec2 {
	return math.Vec2{X: float32(a.Floats[2*i]), Y: float32(a.Floats[2*i+1])}
}

// Float reads component i of a float array.
func (a Array) Float(i int) float32 {
	return float32(a.Floats[i])
}

// FloatArray builds a float32 array of the given extent.
func FloatArray(extent int, interpretation string, values ...float64) Array {
	return Array{POD: PODFloat32, Extent: extent, Interpretation: interpretation, Floats: values}
}

// Vec3Array builds a 3 component float array.
func Vec3Array(interpretation string, vs ...math.Vec3) Array {
	a := Array{POD: PODFloat32, Extent: 3, Interpretation: interpretation, Floats: make([]float64, 0, 3*len(vs))}
	for _, v := range vs {
		a.Floats = append(a.Floats, float64(v.X), float64(v.Y), float64(v.Z))
	}
	return a
}

// Vec2Array builds a 2 component float array.
func Vec2Array(vs ...math.Vec2) Array {
	a := Array{POD: PODFloat32, Extent: 2, Floats: make([]float64, 0, 2*len(vs))}
	for _, v := range vs {
		a.Floats = append(a.Floats, float64(v.X), float64(v.Y))
	}
	return a
}

// IntArray builds a scalar integer array.
func IntArray(pod POD, values ...int64) Array {
	return Array{POD: pod, Extent: 1, Ints: values}
}

// StringArray builds a scalar string array.
func StringArray(values ...string) Array {
	return Array{POD: PODString, Extent: 1, Strings: values}
}

// BoolArray builds a scalar bool array.
func BoolArray(values ...bool) Array {
	return Array{POD: PODBool, Extent: 1, Bools: values}
}

// Scope is the interpolation scope of a geometry parameter.
type Scope int

const (
	ScopeConstant Scope = iota
	ScopeUniform
	ScopeVarying
	ScopeVertex
	ScopeFaceVarying
	ScopeUnknown
)

// String returns the scope name used in scene descriptions.
func (s Scope) String() string {
	switch s {
	case ScopeConstant:
		return "constant"
	case ScopeUniform:
		return "uniform"
	case ScopeVarying:
		return "varying"
	case ScopeVertex:
		return "vertex"
	case ScopeFaceVarying:
		return "facevarying"
	default:
		return "unknown"
	}
}

// ParseScope converts a scope name. Unknown names map to ScopeUnknown.
func ParseScope(s string) Scope {
	switch s {
	case "constant", "":
		return ScopeConstant
	case "uniform":
		return ScopeUniform
	case "varying":
		return ScopeVarying
	case "vertex":
		return ScopeVertex
	case "facevarying":
		return ScopeFaceVarying
	default:
		return ScopeUnknown
	}
}

// GeomParam is an arbitrary geometry parameter, optionally indexed. Index
// samples share the value sampling.
type GeomParam struct {
	Name    string
	Scope   Scope
	NotUV   bool
	Values  *Property[Array]
	Indices *Property[[]uint32]
}

// IsIndexed reports whether values are addressed through an index array.
func (g *GeomParam) IsIndexed() bool {
	return g != nil && g.Indices.NumSamples() > 0
}

// NumSamples returns the number of value samples.
func (g *GeomParam) NumSamples() int {
	if g == nil {
		return 0
	}
	return g.Values.NumSamples()
}

// Sample returns the values and indices (nil when not indexed) of sample i.
func (g *GeomParam) Sample(i int) (Array, []uint32) {
	vals := g.Values.At(i)
	if !g.IsIndexed() {
		return vals, nil
	}
	j := i
	if j >= g.Indices.NumSamples() {
		j = g.Indices.NumSamples() - 1
	}
	return vals, g.Indices.At(j)
}

// UserProp is an object level user property. IsArray distinguishes array
// properties from scalar ones holding a single tuple.
type UserProp struct {
	Name    string
	IsArray bool
	Values  *Property[Array]
}
