// 指示: miu200521358
package mmath

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestVecRollToMat3AlongYIsIdentity(t *testing.T) {
	mat := VecRollToMat3(UnitY, 0)
	if !mat.ApproxEqualThreshold(mgl64.Ident3(), 1e-9) {
		t.Fatalf("matrix mismatch: %v", mat)
	}
}

func TestMat3ToRollRoundTrip(t *testing.T) {
	vec := r3.Vec{X: 0.3, Y: 1.0, Z: -0.2}
	for _, roll := range []float64{0, 0.5, -1.2, 2.8} {
		mat := VecRollToMat3(vec, roll)
		got := Mat3ToRoll(vec, mat)
		if math.Abs(got-roll) > 1e-6 {
			t.Fatalf("roll mismatch: got=%f want=%f", got, roll)
		}
	}
}

func TestAlignRollPointsZAxis(t *testing.T) {
	roll := AlignRoll(UnitY, UnitX)
	if math.Abs(roll-math.Pi/2) > 1e-9 {
		t.Fatalf("roll mismatch: got=%f want=%f", roll, math.Pi/2)
	}
	z := BoneAxis(r3.Vec{}, UnitY, roll, 2)
	if !NearlyEqual(z, UnitX, 1e-9) {
		t.Fatalf("z axis mismatch: %v", z)
	}
}

func TestPolePositionUsesBendDirection(t *testing.T) {
	pole := PolePosition(r3.Vec{}, r3.Vec{Y: 1, Z: 0.5}, r3.Vec{Y: 2}, 0, 2)
	want := r3.Vec{Y: 1, Z: 2.5}
	if !NearlyEqual(pole, want, 1e-9) {
		t.Fatalf("pole mismatch: got=%v want=%v", pole, want)
	}
}

func TestPolePositionStraightChainFallsBackToZAxis(t *testing.T) {
	pole := PolePosition(r3.Vec{}, r3.Vec{Y: 1}, r3.Vec{Y: 2}, 0, 1)
	want := r3.Vec{Y: 1, Z: 1}
	if !NearlyEqual(pole, want, 1e-9) {
		t.Fatalf("pole mismatch: got=%v want=%v", pole, want)
	}
}

func TestBoneMatrixCarriesHead(t *testing.T) {
	m := BoneMatrix(r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{X: 1, Y: 3, Z: 3}, 0)
	if m.At(0, 3) != 1 || m.At(1, 3) != 2 || m.At(2, 3) != 3 {
		t.Fatalf("translation mismatch: %v", m)
	}
}
