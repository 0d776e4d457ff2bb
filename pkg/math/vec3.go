// Package math provides the vector, matrix and bounds types shared by the
// cache reader and the shape builders.
package math

import "github.com/chewxy/math32"

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float32
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Scale returns v * scalar.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product.
func (v Vec3) Dot(other Vec3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the cross product.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

// Length returns the magnitude.
func (v Vec3) Length() float32 {
	return math32.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize returns a unit vector.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

// Distance returns the distance to another point.
func (v Vec3) Distance(other Vec3) float32 {
	return v.Sub(other).Length()
}

// Blend returns a*v + b*other.
func (v Vec3) Blend(other Vec3, a, b float64) Vec3 {
	return Vec3{
		float32(a*float64(v.X) + b*float64(other.X)),
		float32(a*float64(v.Y) + b*float64(other.Y)),
		float32(a*float64(v.Z) + b*float64(other.Z)),
	}
}

// Extrapolate returns v + dt*(vel + 0.5*dt*acc).
func (v Vec3) Extrapolate(vel, acc Vec3, dt float32) Vec3 {
	return v.Add(vel.Add(acc.Scale(0.5 * dt)).Scale(dt))
}

// Array returns the components as a fixed-size array.
func (v Vec3) Array() [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

// Vec3FromSlice reads the i-th tuple of a flat xyz slice.
func Vec3FromSlice(s []float32, i int) Vec3 {
	return Vec3{s[3*i], s[3*i+1], s[3*i+2]}
}

// FlattenVec3 packs a vector slice into a flat xyz slice.
func FlattenVec3(vs []Vec3) []float32 {
	out := make([]float32, 0, 3*len(vs))
	for _, v := range vs {
		out = append(out, v.X, v.Y, v.Z)
	}
	return out
}
