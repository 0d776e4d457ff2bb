package math

import "math"

// Quat is a rotation quaternion. W is the scalar part.
type Quat struct {
	X, Y, Z, W float64
}

// QuatIdentity returns an identity quaternion (no rotation).
func QuatIdentity() Quat {
	return Quat{W: 1}
}

// QuatFromAxisAngle creates a quaternion from an axis and an angle in radians.
func QuatFromAxisAngle(axis Vec3, angle float64) Quat {
	a := axis.Normalize()
	s := math.Sin(angle / 2)
	return Quat{
		X: float64(a.X) * s,
		Y: float64(a.Y) * s,
		Z: float64(a.Z) * s,
		W: math.Cos(angle / 2),
	}
}

// QuatFromEuler builds the XYZ-ordered rotation for angles in degrees.
func QuatFromEuler(rx, ry, rz float64) Quat {
	qx := QuatFromAxisAngle(Vec3{X: 1}, rx*math.Pi/180)
	qy := QuatFromAxisAngle(Vec3{Y: 1}, ry*math.Pi/180)
	qz := QuatFromAxisAngle(Vec3{Z: 1}, rz*math.Pi/180)
	return qz.Mul(qy).Mul(qx)
}

// Normalize returns a unit quaternion.
func (q Quat) Normalize() Quat {
	l := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if l == 0 {
		return QuatIdentity()
	}
	return Quat{X: q.X / l, Y: q.Y / l, Z: q.Z / l, W: q.W / l}
}

// Mul multiplies two quaternions (combines rotations, other applied first).
func (q Quat) Mul(other Quat) Quat {
	return Quat{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

// ToMat4 converts the quaternion to a rotation matrix.
func (q Quat) ToMat4() Mat4 {
	q = q.Normalize()

	xx := q.X * q.X
	xy := q.X * q.Y
	xz := q.X * q.Z
	xw := q.X * q.W
	yy := q.Y * q.Y
	yz := q.Y * q.Z
	yw := q.Y * q.W
	zz := q.Z * q.Z
	zw := q.Z * q.W

	return Mat4{
		1 - 2*(yy+zz), 2 * (xy + zw), 2 * (xz - yw), 0,
		2 * (xy - zw), 1 - 2*(xx+zz), 2 * (yz + xw), 0,
		2 * (xz + yw), 2 * (yz - xw), 1 - 2*(xx+yy), 0,
		0, 0, 0, 1,
	}
}

// Compose builds translate * rotate * scale.
func Compose(t Vec3, r Quat, s Vec3) Mat4 {
	return Translate(float64(t.X), float64(t.Y), float64(t.Z)).
		Mul(r.ToMat4()).
		Mul(Scale(float64(s.X), float64(s.Y), float64(s.Z)))
}
