package attr

import (
	"fmt"

	"github.com/Faultbox/abcproc/internal/logger"
	"github.com/Faultbox/abcproc/internal/render"
	"go.uber.org/zap"
)

// Declaration returns the renderer declaration string of the attribute.
func (a *Attribute) Declaration() string {
	d := render.Declaration{Scope: a.Class.Scope(), Type: a.Type}
	d.Array = a.Class == Constant && !a.IsScalar()
	return d.String()
}

// Array converts the values to a single key renderer array.
func (a *Attribute) Array() *render.Array {
	switch {
	case a.Type == render.TypeBool:
		return render.BoolArray(a.Bools...)
	case a.Type == render.TypeByte:
		return render.ByteArray(a.Bytes...)
	case a.Type == render.TypeInt:
		return render.IntArray(a.Ints...)
	case a.Type == render.TypeUInt:
		return render.UIntArray(a.UInts...)
	case a.Type == render.TypeString:
		return render.StringArray(a.Strings...)
	default:
		return render.FloatArray(a.Type, 1, a.Floats)
	}
}

func (a *Attribute) setScalar(node *render.Node, name string) error {
	switch {
	case a.Type == render.TypeBool:
		return node.SetBool(name, a.Bools[0])
	case a.Type == render.TypeByte:
		return node.SetByte(name, a.Bytes[0])
	case a.Type == render.TypeInt:
		return node.SetInt(name, a.Ints[0])
	case a.Type == render.TypeUInt:
		return node.SetUInt(name, a.UInts[0])
	case a.Type == render.TypeString:
		return node.SetString(name, a.Strings[0])
	case a.Type == render.TypeFloat:
		return node.SetFloat(name, a.Floats[0])
	default:
		return node.SetFloats(name, a.Type, a.Floats[:a.Dim])
	}
}

// Set declares the attribute on node and sets its values. count is the
// number of primitives, points or vertices the class requires and is
// ignored for constants. remap, when set, gives the output vertex of every
// source vertex of an indexed attribute.
func (a *Attribute) Set(node *render.Node, name string, count int, remap []uint32) error {
	var indices []uint32
	switch a.Class {
	case Uniform, Varying:
		if a.Count != count {
			return fmt.Errorf("%s: %d elements for %d: %w", name, a.Count, count, ErrCount)
		}
	case Indexed:
		indices = a.Indices
		if indices == nil {
			indices = make([]uint32, a.Elements())
			for i := range indices {
				indices[i] = uint32(i)
			}
		}
		if len(indices) != count {
			return fmt.Errorf("%s: %d indices for %d vertices: %w", name, len(indices), count, ErrCount)
		}
		if remap != nil {
			if len(remap) != count {
				return fmt.Errorf("%s: remap of %d for %d vertices: %w", name, len(remap), count, ErrCount)
			}
			out := make([]uint32, count)
			for i, k := range indices {
				out[remap[i]] = k
			}
			indices = out
		}
	}

	if err := node.Declare(name, a.Declaration()); err != nil {
		return err
	}
	if a.Class == Constant && a.IsScalar() {
		return a.setScalar(node, name)
	}
	if err := node.SetArray(name, a.Array()); err != nil {
		return err
	}
	if indices != nil {
		return node.SetArray(name+"idxs", render.UIntArray(indices...))
	}
	return nil
}

// SetAll sets every attribute of c on node in name order. Attributes that
// fail are skipped with a warning.
func SetAll(node *render.Node, c Collection, count int, remap []uint32) {
	for _, name := range c.Names() {
		if err := c[name].Set(node, name, count, remap); err != nil {
			logger.Log.Warn("skipping attribute",
				zap.String("node", node.Name()), zap.String("name", name), zap.Error(err))
		}
	}
}
