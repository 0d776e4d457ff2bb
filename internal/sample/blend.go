package sample

import (
	"fmt"

	"github.com/Faultbox/abcproc/pkg/math"
)

// BlendVec3 interpolates two point arrays of the same size.
func BlendVec3(a, b []math.Vec3, w float64) ([]math.Vec3, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%d and %d points: %w", len(a), len(b), ErrSizeMismatch)
	}
	out := make([]math.Vec3, len(a))
	if w <= 0 {
		copy(out, a)
		return out, nil
	}
	for i := range a {
		out[i] = a[i].Blend(b[i], 1-w, w)
	}
	return out, nil
}

// BlendFloats interpolates two float arrays of the same size.
func BlendFloats[T float32 | float64](a, b []T, w float64) ([]T, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%d and %d values: %w", len(a), len(b), ErrSizeMismatch)
	}
	out := make([]T, len(a))
	for i := range a {
		out[i] = math.Lerp(a[i], b[i], 1-w, w)
	}
	return out, nil
}

// BlendMatrix interpolates two matrices componentwise.
func BlendMatrix(a, b math.Mat4, w float64) math.Mat4 {
	if w <= 0 {
		return a
	}
	return a.Blend(b, 1-w, w)
}
