// Package attr holds user attributes read from the cache: typed, optionally
// indexed data channels sorted into object, primitive, point and vertex
// collections before they are declared on renderer nodes.
package attr

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/Faultbox/abcproc/internal/render"
)

var (
	// ErrNotUniform is returned when promoting an attribute whose
	// elements differ.
	ErrNotUniform = errors.New("attribute values are not uniform")
	// ErrUnsupported is returned for attribute types the renderer cannot
	// represent.
	ErrUnsupported = errors.New("unsupported attribute type")
	// ErrCount is returned when an attribute does not have the element
	// count expected by its target.
	ErrCount = errors.New("attribute count mismatch")
)

// Class is the interpolation class of an attribute on a shape.
type Class int

const (
	Constant Class = iota
	Uniform
	Varying
	Indexed
)

// Scope returns the renderer declaration scope of the class.
func (c Class) Scope() render.Scope {
	switch c {
	case Uniform:
		return render.ScopeUniform
	case Varying:
		return render.ScopeVarying
	case Indexed:
		return render.ScopeIndexed
	default:
		return render.ScopeConstant
	}
}

// Level selects one of the four collections of a shape.
type Level int

const (
	ObjectLevel Level = iota
	PrimitiveLevel
	PointLevel
	VertexLevel
)

func (l Level) String() string {
	switch l {
	case ObjectLevel:
		return "object"
	case PrimitiveLevel:
		return "primitive"
	case PointLevel:
		return "point"
	default:
		return "vertex"
	}
}

// Class returns the class attributes of the level are declared with.
func (l Level) Class() Class {
	return Class(l)
}

// Attribute is one named data channel. Count is the number of elements, 0
// for a scalar. Values live in the slice matching Type, Dim values per
// element.
type Attribute struct {
	Class Class
	Type  render.ParamType
	Dim   int
	Count int

	Bools   []bool
	Bytes   []uint8
	Ints    []int32
	UInts   []uint32
	Floats  []float32
	Strings []string

	// Indices address elements per vertex. Only indexed attributes use them.
	Indices []uint32
}

// New returns a zeroed attribute of count elements.
func New(class Class, typ render.ParamType, count int) *Attribute {
	a := &Attribute{Class: class, Type: typ, Dim: typ.Components()}
	a.resize(max(count, 1))
	a.Count = count
	return a
}

// Elements returns the number of stored elements, 1 for scalars.
func (a *Attribute) Elements() int {
	if a.Count == 0 {
		return 1
	}
	return a.Count
}

// IsScalar reports whether the attribute holds a single non array value.
func (a *Attribute) IsScalar() bool {
	return a.Count == 0
}

// Clone returns a deep copy.
func (a *Attribute) Clone() *Attribute {
	c := *a
	c.Bools = slices.Clone(a.Bools)
	c.Bytes = slices.Clone(a.Bytes)
	c.Ints = slices.Clone(a.Ints)
	c.UInts = slices.Clone(a.UInts)
	c.Floats = slices.Clone(a.Floats)
	c.Strings = slices.Clone(a.Strings)
	c.Indices = slices.Clone(a.Indices)
	return &c
}

func resizeSlice[T any](s []T, n int) []T {
	if n <= len(s) {
		return s[:n]
	}
	out := make([]T, n)
	copy(out, s)
	return out
}

func (a *Attribute) resize(n int) {
	switch {
	case a.Type == render.TypeBool:
		a.Bools = resizeSlice(a.Bools, n)
	case a.Type == render.TypeByte:
		a.Bytes = resizeSlice(a.Bytes, n)
	case a.Type == render.TypeInt:
		a.Ints = resizeSlice(a.Ints, n)
	case a.Type == render.TypeUInt:
		a.UInts = resizeSlice(a.UInts, n)
	case a.Type == render.TypeString:
		a.Strings = resizeSlice(a.Strings, n)
	case a.Type.IsFloat():
		a.Floats = resizeSlice(a.Floats, n*a.Dim)
	}
}

// Resize grows or shrinks an array attribute to n elements. New elements
// are zero.
func (a *Attribute) Resize(n int) error {
	if n < 1 {
		return fmt.Errorf("resizing to %d: %w", n, ErrCount)
	}
	if a.IsScalar() {
		return fmt.Errorf("resizing a scalar: %w", ErrCount)
	}
	a.resize(n)
	a.Count = n
	return nil
}

// Copy copies count elements of src starting at srcIdx into a starting at
// dstIdx. Both attributes must have the same type.
func (a *Attribute) Copy(src *Attribute, srcIdx, count, dstIdx int) error {
	if src.Type != a.Type || src.Dim != a.Dim {
		return fmt.Errorf("copying %s into %s: %w", src.Type, a.Type, ErrUnsupported)
	}
	if srcIdx < 0 || dstIdx < 0 || srcIdx+count > src.Elements() || dstIdx+count > a.Elements() {
		return fmt.Errorf("copying %d elements from %d to %d: %w", count, srcIdx, dstIdx, ErrCount)
	}
	switch {
	case a.Type == render.TypeBool:
		copy(a.Bools[dstIdx:dstIdx+count], src.Bools[srcIdx:])
	case a.Type == render.TypeByte:
		copy(a.Bytes[dstIdx:dstIdx+count], src.Bytes[srcIdx:])
	case a.Type == render.TypeInt:
		copy(a.Ints[dstIdx:dstIdx+count], src.Ints[srcIdx:])
	case a.Type == render.TypeUInt:
		copy(a.UInts[dstIdx:dstIdx+count], src.UInts[srcIdx:])
	case a.Type == render.TypeString:
		copy(a.Strings[dstIdx:dstIdx+count], src.Strings[srcIdx:])
	case a.Type.IsFloat():
		d := a.Dim
		copy(a.Floats[dstIdx*d:(dstIdx+count)*d], src.Floats[srcIdx*d:])
	}
	return nil
}

func (a *Attribute) deref(i int) int {
	if a.Indices != nil {
		return int(a.Indices[i])
	}
	return i
}

// numRefs returns the number of addressed elements: the index count of
// indexed attributes, the element count otherwise.
func (a *Attribute) numRefs() int {
	if a.Indices != nil {
		return len(a.Indices)
	}
	return a.Elements()
}

func (a *Attribute) equalElements(i, j int) bool {
	switch {
	case a.Type == render.TypeBool:
		return a.Bools[i] == a.Bools[j]
	case a.Type == render.TypeByte:
		return a.Bytes[i] == a.Bytes[j]
	case a.Type == render.TypeInt:
		return a.Ints[i] == a.Ints[j]
	case a.Type == render.TypeUInt:
		return a.UInts[i] == a.UInts[j]
	case a.Type == render.TypeString:
		return a.Strings[i] == a.Strings[j]
	default:
		d := a.Dim
		return slices.Equal(a.Floats[i*d:(i+1)*d], a.Floats[j*d:(j+1)*d])
	}
}

// Promote collapses an attribute whose addressed elements are all equal to
// a constant scalar holding that value.
func (a *Attribute) Promote() (*Attribute, error) {
	n := a.numRefs()
	if n == 0 {
		return nil, fmt.Errorf("promoting an empty attribute: %w", ErrCount)
	}
	first := a.deref(0)
	for i := 1; i < n; i++ {
		if !a.equalElements(first, a.deref(i)) {
			return nil, ErrNotUniform
		}
	}
	out := New(Constant, a.Type, 0)
	if err := out.Copy(a, first, 1, 0); err != nil {
		return nil, err
	}
	return out, nil
}

// Collection maps attribute names to attributes of one level.
type Collection map[string]*Attribute

// Names returns the attribute names in sorted order.
func (c Collection) Names() []string {
	return slices.Sorted(maps.Keys(c))
}

// Take removes and returns the attribute called name.
func (c Collection) Take(name string) (*Attribute, bool) {
	a, ok := c[name]
	if ok {
		delete(c, name)
	}
	return a, ok
}

// Set holds the four collections of a shape and its UV sets.
type Set struct {
	Object    Collection
	Primitive Collection
	Point     Collection
	Vertex    Collection

	// UVs holds face varying 2D channels by name, kept out of Vertex.
	UVs Collection
}

// NewSet returns empty collections.
func NewSet() *Set {
	return &Set{
		Object:    Collection{},
		Primitive: Collection{},
		Point:     Collection{},
		Vertex:    Collection{},
		UVs:       Collection{},
	}
}

// Level returns the collection of a level.
func (s *Set) Level(l Level) Collection {
	switch l {
	case ObjectLevel:
		return s.Object
	case PrimitiveLevel:
		return s.Primitive
	case PointLevel:
		return s.Point
	default:
		return s.Vertex
	}
}
