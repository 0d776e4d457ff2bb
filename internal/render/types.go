// Package render is the in-process renderer scene the procedural writes to:
// typed nodes and parameters, a node table and the mutex guarded registry
// used for unique names and instance masters.
package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/abcproc/pkg/math"
)

// ParamType is the type of a parameter or array element.
type ParamType int

const (
	TypeByte ParamType = iota
	TypeInt
	TypeUInt
	TypeBool
	TypeFloat
	TypeRGB
	TypeRGBA
	TypeVector
	TypeVector2
	TypeString
	TypeMatrix
	TypeNode
)

var typeNames = [...]string{"BYTE", "INT", "UINT", "BOOL", "FLOAT", "RGB", "RGBA", "VECTOR", "VECTOR2", "STRING", "MATRIX", "NODE"}

func (t ParamType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "UNKNOWN"
	}
	return typeNames[t]
}

// ParseType converts a type name as used in declarations.
func ParseType(s string) (ParamType, error) {
	for i, n := range typeNames {
		if n == s {
			return ParamType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown parameter type %q", s)
}

// Components returns the number of floats of a float based type.
func (t ParamType) Components() int {
	switch t {
	case TypeVector2:
		return 2
	case TypeRGB, TypeVector:
		return 3
	case TypeRGBA:
		return 4
	case TypeMatrix:
		return 16
	default:
		return 1
	}
}

// IsFloat reports whether values of the type are stored as floats.
func (t ParamType) IsFloat() bool {
	switch t {
	case TypeFloat, TypeRGB, TypeRGBA, TypeVector, TypeVector2, TypeMatrix:
		return true
	}
	return false
}

// Array is a parameter array with NumKeys motion keys of NumElements
// elements each. Values are stored flat in the slice matching Type.
type Array struct {
	Type        ParamType
	NumElements int
	NumKeys     int

	Bytes   []uint8
	Ints    []int32
	UInts   []uint32
	Bools   []bool
	Floats  []float32
	Strings []string
}

// ErrArraySize is returned when array data does not match its shape.
var ErrArraySize = errors.New("array size mismatch")

// Len returns the number of stored elements over all keys.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	switch {
	case a.Type == TypeByte:
		return len(a.Bytes)
	case a.Type == TypeInt:
		return len(a.Ints)
	case a.Type == TypeUInt:
		return len(a.UInts)
	case a.Type == TypeBool:
		return len(a.Bools)
	case a.Type == TypeString:
		return len(a.Strings)
	case a.Type.IsFloat():
		return len(a.Floats) / a.Type.Components()
	}
	return 0
}

// Check verifies that the stored data holds NumElements*NumKeys elements.
func (a *Array) Check() error {
	if a.NumKeys < 1 {
		return fmt.Errorf("%w: %d keys", ErrArraySize, a.NumKeys)
	}
	if got := a.Len(); got != a.NumElements*a.NumKeys {
		return fmt.Errorf("%w: %d elements for %d keys of %d", ErrArraySize, got, a.NumKeys, a.NumElements)
	}
	return nil
}

// FloatKey returns the floats of key k.
func (a *Array) FloatKey(k int) []float32 {
	n := a.NumElements * a.Type.Components()
	return a.Floats[k*n : (k+1)*n]
}

// Vec3 returns element i of key k of a VECTOR or RGB array.
func (a *Array) Vec3(k, i int) math.Vec3 {
	off := (k*a.NumElements + i) * 3
	return math.Vec3{X: a.Floats[off], Y: a.Floats[off+1], Z: a.Floats[off+2]}
}

// Matrix returns key k of a MATRIX array.
func (a *Array) Matrix(k int) math.Mat4 {
	var m math.Mat4
	for i := range m {
		m[i] = float64(a.Floats[k*16+i])
	}
	return m
}

// IntArray returns a single key INT array.
func IntArray(values ...int32) *Array {
	return &Array{Type: TypeInt, NumElements: len(values), NumKeys: 1, Ints: values}
}

// UIntArray returns a single key UINT array.
func UIntArray(values ...uint32) *Array {
	return &Array{Type: TypeUInt, NumElements: len(values), NumKeys: 1, UInts: values}
}

// ByteArray returns a single key BYTE array.
func ByteArray(values ...uint8) *Array {
	return &Array{Type: TypeByte, NumElements: len(values), NumKeys: 1, Bytes: values}
}

// BoolArray returns a single key BOOL array.
func BoolArray(values ...bool) *Array {
	return &Array{Type: TypeBool, NumElements: len(values), NumKeys: 1, Bools: values}
}

// StringArray returns a single key STRING array.
func StringArray(values ...string) *Array {
	return &Array{Type: TypeString, NumElements: len(values), NumKeys: 1, Strings: values}
}

// FloatArray returns an array of float based type t whose keys are
// concatenated in values.
func FloatArray(t ParamType, keys int, values []float32) *Array {
	if keys < 1 {
		keys = 1
	}
	return &Array{Type: t, NumElements: len(values) / t.Components() / keys, NumKeys: keys, Floats: values}
}

// Vec3Array returns a VECTOR array with one key per slice.
func Vec3Array(keys ...[]math.Vec3) *Array {
	a := &Array{Type: TypeVector, NumKeys: len(keys)}
	if len(keys) > 0 {
		a.NumElements = len(keys[0])
	}
	for _, k := range keys {
		a.Floats = append(a.Floats, math.FlattenVec3(k)...)
	}
	return a
}

// Vec2Array returns a single key VECTOR2 array.
func Vec2Array(values []math.Vec2) *Array {
	a := &Array{Type: TypeVector2, NumElements: len(values), NumKeys: 1, Floats: make([]float32, 0, 2*len(values))}
	for _, v := range values {
		a.Floats = append(a.Floats, v.X, v.Y)
	}
	return a
}

// MatrixArray returns a MATRIX array with one key per matrix.
func MatrixArray(ms ...math.Mat4) *Array {
	a := &Array{Type: TypeMatrix, NumElements: 1, NumKeys: len(ms), Floats: make([]float32, 0, 16*len(ms))}
	for _, m := range ms {
		f := m.Float32()
		a.Floats = append(a.Floats, f[:]...)
	}
	return a
}

// Value is a parameter value. Array is set for array parameters, else the
// field matching Type holds the scalar. BYTE scalars use UInt.
type Value struct {
	Type  ParamType
	Array *Array

	Int    int32
	UInt   uint32
	Bool   bool
	Floats []float32
	String string
	Node   *Node
}

// Float returns the first float component.
func (v Value) Float() float32 {
	if len(v.Floats) == 0 {
		return 0
	}
	return v.Floats[0]
}

// Scope is the interpolation scope of a declared user parameter.
type Scope string

const (
	ScopeConstant Scope = "constant"
	ScopeUniform  Scope = "uniform"
	ScopeVarying  Scope = "varying"
	ScopeIndexed  Scope = "indexed"
)

// Declaration describes a user parameter: "constant ARRAY INT",
// "varying VECTOR" or "indexed FLOAT".
type Declaration struct {
	Scope Scope
	Array bool
	Type  ParamType
}

func (d Declaration) String() string {
	if d.Array {
		return fmt.Sprintf("%s ARRAY %s", d.Scope, d.Type)
	}
	return fmt.Sprintf("%s %s", d.Scope, d.Type)
}

// ParseDeclaration parses a declaration string.
func ParseDeclaration(s string) (Declaration, error) {
	f := strings.Fields(s)
	var d Declaration
	switch {
	case len(f) == 2:
	case len(f) == 3 && f[1] == "ARRAY":
		d.Array = true
	default:
		return d, fmt.Errorf("invalid declaration %q", s)
	}
	d.Scope = Scope(f[0])
	switch d.Scope {
	case ScopeConstant, ScopeUniform, ScopeVarying, ScopeIndexed:
	default:
		return d, fmt.Errorf("invalid declaration scope %q", f[0])
	}
	if d.Array && d.Scope != ScopeConstant {
		return d, fmt.Errorf("invalid declaration %q: only constant parameters can be arrays", s)
	}
	t, err := ParseType(f[len(f)-1])
	if err != nil {
		return d, err
	}
	d.Type = t
	return d, nil
}
