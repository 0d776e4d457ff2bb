package math

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	// Diagonal should be 1
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	// Off-diagonal should be 0
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	result := m.Mul(Identity())

	for i := 0; i < 16; i++ {
		if result[i] != m[i] {
			t.Errorf("M * I should equal M, element %d: got %f, want %f", i, result[i], m[i])
		}
	}
}

func TestTranslate(t *testing.T) {
	m := Translate(5, 10, 15)

	// Translation should be in column 4 (indices 12, 13, 14)
	if m[12] != 5 || m[13] != 10 || m[14] != 15 {
		t.Errorf("Translate: got (%f, %f, %f), want (5, 10, 15)", m[12], m[13], m[14])
	}
}

func TestTransformPoint(t *testing.T) {
	m := Translate(10, 20, 30)
	result := m.TransformPoint(Vec3{1, 2, 3})

	expected := Vec3{11, 22, 33}
	if result != expected {
		t.Errorf("TransformPoint: got %v, want %v", result, expected)
	}
}

func TestTransformDirectionIgnoresTranslation(t *testing.T) {
	m := Translate(10, 20, 30).Mul(Scale(2, 2, 2))
	result := m.TransformDirection(Vec3{1, 0, 0})

	if result != (Vec3{2, 0, 0}) {
		t.Errorf("TransformDirection: got %v, want (2, 0, 0)", result)
	}
}

func TestRotateY90(t *testing.T) {
	m := RotateY(math.Pi / 2)
	result := m.TransformPoint(Vec3{1, 0, 0})

	// After 90 degree Y rotation, (1,0,0) should become approximately (0,0,-1)
	if abs(result.X) > 0.001 || abs(result.Y) > 0.001 || abs(result.Z+1) > 0.001 {
		t.Errorf("RotateY 90: got %v, want (0, 0, -1)", result)
	}
}

func TestParentMulLocal(t *testing.T) {
	// local scales, parent translates: the point is scaled first.
	parent := Translate(1, 0, 0)
	local := Scale(2, 2, 2)
	world := parent.Mul(local)

	result := world.TransformPoint(Vec3{1, 1, 1})
	if result != (Vec3{3, 2, 2}) {
		t.Errorf("parent.Mul(local): got %v, want (3, 2, 2)", result)
	}
}

func TestBlend(t *testing.T) {
	m0 := Translate(0, 0, 0)
	m1 := Translate(4, 0, 0)
	m := m0.Blend(m1, 0.75, 0.25)
	if m[12] != 1 || m[15] != 1 {
		t.Errorf("Blend: translation %f, w %f", m[12], m[15])
	}
}

func TestInverse(t *testing.T) {
	m := Translate(1, 2, 3).Mul(Scale(2, 4, 8))
	result := m.Mul(m.Inverse())

	id := Identity()
	for i := 0; i < 16; i++ {
		if math.Abs(result[i]-id[i]) > 1e-9 {
			t.Errorf("M * M^-1 element %d: got %f, want %f", i, result[i], id[i])
		}
	}
}

func TestQuatToMat4(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{0, 1, 0}, math.Pi/2)
	m := q.ToMat4()
	r := RotateY(math.Pi / 2)

	for i := 0; i < 16; i++ {
		if math.Abs(m[i]-r[i]) > 1e-9 {
			t.Errorf("quaternion matrix element %d: got %f, want %f", i, m[i], r[i])
		}
	}
}

func TestCompose(t *testing.T) {
	m := Compose(Vec3{1, 2, 3}, QuatFromEuler(0, 0, 90), Vec3{2, 2, 2})
	result := m.TransformPoint(Vec3{1, 0, 0})

	// scale to (2,0,0), rotate about Z to (0,2,0), translate
	if abs(result.X-1) > 0.001 || abs(result.Y-4) > 0.001 || abs(result.Z-3) > 0.001 {
		t.Errorf("Compose: got %v, want (1, 4, 3)", result)
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
