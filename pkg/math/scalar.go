package math

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp returns a*x + b*y computed in double precision.
func Lerp[T constraints.Float | constraints.Integer](x, y T, a, b float64) T {
	return T(a*float64(x) + b*float64(y))
}
