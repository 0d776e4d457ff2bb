package math

import "github.com/chewxy/math32"

// Box3 is an axis aligned bounding box. The zero value is not empty; use
// EmptyBox.
type Box3 struct {
	Min, Max Vec3
}

// EmptyBox returns a box that any point extends.
func EmptyBox() Box3 {
	return Box3{
		Min: Vec3{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32},
		Max: Vec3{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32},
	}
}

// IsEmpty reports whether the box contains no point.
func (b Box3) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// ExtendBy grows the box to contain p.
func (b Box3) ExtendBy(p Vec3) Box3 {
	b.Min = Vec3{math32.Min(b.Min.X, p.X), math32.Min(b.Min.Y, p.Y), math32.Min(b.Min.Z, p.Z)}
	b.Max = Vec3{math32.Max(b.Max.X, p.X), math32.Max(b.Max.Y, p.Y), math32.Max(b.Max.Z, p.Z)}
	return b
}

// Union returns the smallest box containing both boxes.
func (b Box3) Union(other Box3) Box3 {
	if other.IsEmpty() {
		return b
	}
	return b.ExtendBy(other.Min).ExtendBy(other.Max)
}

// Pad grows the box by d on every side.
func (b Box3) Pad(d float32) Box3 {
	if b.IsEmpty() {
		return b
	}
	b.Min = b.Min.Sub(Vec3{d, d, d})
	b.Max = b.Max.Add(Vec3{d, d, d})
	return b
}

// Blend interpolates both corners.
func (b Box3) Blend(other Box3, a, w float64) Box3 {
	return Box3{Min: b.Min.Blend(other.Min, a, w), Max: b.Max.Blend(other.Max, a, w)}
}

// Transform returns the bounds of the eight transformed corners.
func (b Box3) Transform(m Mat4) Box3 {
	if b.IsEmpty() {
		return b
	}
	out := EmptyBox()
	for i := 0; i < 8; i++ {
		c := b.Min
		if i&1 != 0 {
			c.X = b.Max.X
		}
		if i&2 != 0 {
			c.Y = b.Max.Y
		}
		if i&4 != 0 {
			c.Z = b.Max.Z
		}
		out = out.ExtendBy(m.TransformPoint(c))
	}
	return out
}

// BoundPoints returns the bounds of a point set.
func BoundPoints(points []Vec3) Box3 {
	b := EmptyBox()
	for _, p := range points {
		b = b.ExtendBy(p)
	}
	return b
}
