package render

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Faultbox/abcproc/pkg/math"
)

var (
	// ErrBuiltin is returned when declaring a parameter that the node type
	// already has.
	ErrBuiltin = errors.New("builtin parameter")
	// ErrDeclared is returned when declaring a user parameter twice.
	ErrDeclared = errors.New("parameter already declared")
	// ErrUndeclared is returned when setting an unknown parameter.
	ErrUndeclared = errors.New("parameter not declared")
	// ErrTypeMismatch is returned when a value does not match its declaration.
	ErrTypeMismatch = errors.New("parameter type mismatch")
)

// Node is a renderer node. Nodes are built by one goroutine; the sink only
// guards their names.
type Node struct {
	typ    string
	name   string
	parent *Node

	params map[string]Value
	decls  map[string]Declaration
}

func newNode(typ, name string, parent *Node) *Node {
	return &Node{
		typ:    typ,
		name:   name,
		parent: parent,
		params: map[string]Value{},
		decls:  map[string]Declaration{},
	}
}

// Type returns the node type.
func (n *Node) Type() string { return n.typ }

// Name returns the unique node name.
func (n *Node) Name() string { return n.name }

// Parent returns the node this one was created under, if any.
func (n *Node) Parent() *Node { return n.parent }

// IsBuiltin reports whether the node type defines the parameter.
func (n *Node) IsBuiltin(param string) bool {
	return IsBuiltin(n.typ, param)
}

// Declare adds a user parameter with a declaration string such as
// "constant ARRAY INT".
func (n *Node) Declare(param, decl string) error {
	if n.IsBuiltin(param) {
		return fmt.Errorf("%s.%s: %w", n.name, param, ErrBuiltin)
	}
	if _, ok := n.decls[param]; ok {
		return fmt.Errorf("%s.%s: %w", n.name, param, ErrDeclared)
	}
	d, err := ParseDeclaration(decl)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", n.name, param, err)
	}
	n.decls[param] = d
	return nil
}

// lookupDecl resolves a user parameter. The "<name>idxs" index array of an
// indexed parameter is implicitly declared.
func (n *Node) lookupDecl(param string) (Declaration, bool) {
	if d, ok := n.decls[param]; ok {
		return d, true
	}
	if base, ok := strings.CutSuffix(param, "idxs"); ok {
		if d, ok := n.decls[base]; ok && d.Scope == ScopeIndexed {
			return Declaration{Scope: ScopeIndexed, Type: TypeUInt}, true
		}
	}
	return Declaration{}, false
}

// Declaration returns the declaration of a user parameter.
func (n *Node) Declaration(param string) (Declaration, bool) {
	d, ok := n.decls[param]
	return d, ok
}

func (n *Node) set(param string, v Value) error {
	if !n.IsBuiltin(param) {
		d, ok := n.lookupDecl(param)
		if !ok {
			return fmt.Errorf("%s.%s: %w", n.name, param, ErrUndeclared)
		}
		if d.Type != v.Type || ((d.Array || d.Scope != ScopeConstant) && v.Array == nil) {
			return fmt.Errorf("%s.%s: %w: declared %s, got %s", n.name, param, ErrTypeMismatch, d, v.Type)
		}
	}
	if v.Array != nil {
		if err := v.Array.Check(); err != nil {
			return fmt.Errorf("%s.%s: %w", n.name, param, err)
		}
	}
	n.params[param] = v
	return nil
}

// SetInt sets an INT parameter.
func (n *Node) SetInt(param string, v int32) error {
	return n.set(param, Value{Type: TypeInt, Int: v})
}

// SetUInt sets a UINT parameter.
func (n *Node) SetUInt(param string, v uint32) error {
	return n.set(param, Value{Type: TypeUInt, UInt: v})
}

// SetByte sets a BYTE parameter.
func (n *Node) SetByte(param string, v uint8) error {
	return n.set(param, Value{Type: TypeByte, UInt: uint32(v)})
}

// SetBool sets a BOOL parameter.
func (n *Node) SetBool(param string, v bool) error {
	return n.set(param, Value{Type: TypeBool, Bool: v})
}

// SetFloat sets a FLOAT parameter.
func (n *Node) SetFloat(param string, v float32) error {
	return n.set(param, Value{Type: TypeFloat, Floats: []float32{v}})
}

// SetString sets a STRING parameter.
func (n *Node) SetString(param string, v string) error {
	return n.set(param, Value{Type: TypeString, String: v})
}

// SetVec sets a VECTOR parameter.
func (n *Node) SetVec(param string, v math.Vec3) error {
	return n.set(param, Value{Type: TypeVector, Floats: []float32{v.X, v.Y, v.Z}})
}

// SetFloats sets a float based tuple parameter such as VECTOR2 or RGB.
func (n *Node) SetFloats(param string, t ParamType, v []float32) error {
	if len(v) != t.Components() {
		return fmt.Errorf("%s.%s: %w: %d components for %s", n.name, param, ErrTypeMismatch, len(v), t)
	}
	return n.set(param, Value{Type: t, Floats: v})
}

// SetMatrix sets a MATRIX parameter.
func (n *Node) SetMatrix(param string, m math.Mat4) error {
	f := m.Float32()
	return n.set(param, Value{Type: TypeMatrix, Floats: f[:]})
}

// SetNode sets a NODE parameter.
func (n *Node) SetNode(param string, target *Node) error {
	return n.set(param, Value{Type: TypeNode, Node: target})
}

// SetArray sets an array parameter. The node takes ownership of a.
func (n *Node) SetArray(param string, a *Array) error {
	return n.set(param, Value{Type: a.Type, Array: a})
}

// Param returns a parameter value.
func (n *Node) Param(param string) (Value, bool) {
	v, ok := n.params[param]
	return v, ok
}

// Array returns an array parameter or nil.
func (n *Node) Array(param string) *Array {
	return n.params[param].Array
}

// Params returns the names of every set parameter in sorted order.
func (n *Node) Params() []string {
	return slices.Sorted(maps.Keys(n.params))
}

// Declared returns the names of every user parameter in sorted order.
func (n *Node) Declared() []string {
	return slices.Sorted(maps.Keys(n.decls))
}

// Disabled reports whether the node was disabled.
func (n *Node) Disabled() bool {
	return n.params["disable"].Bool
}

// CopyParam copies a set parameter from src, declaring it on n first when
// it is a user parameter of src. It reports whether anything was copied.
func (n *Node) CopyParam(src *Node, param string) (bool, error) {
	v, ok := src.params[param]
	if !ok {
		return false, nil
	}
	if d, ok := src.decls[param]; ok && !n.IsBuiltin(param) {
		if _, exists := n.decls[param]; !exists {
			if err := n.Declare(param, d.String()); err != nil {
				return false, err
			}
		}
	}
	if err := n.set(param, v); err != nil {
		return false, err
	}
	return true, nil
}
