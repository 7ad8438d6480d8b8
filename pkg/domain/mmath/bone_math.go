// 指示: miu200521358
// Package mmath はボーン姿勢計算の補助関数を提供する。
package mmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// Epsilon はベクトル長の判定閾値。
	Epsilon = 1e-9
)

var (
	// UnitX はX軸単位ベクトル。
	UnitX = r3.Vec{X: 1}
	// UnitY はY軸単位ベクトル。
	UnitY = r3.Vec{Y: 1}
	// UnitZ はZ軸単位ベクトル。
	UnitZ = r3.Vec{Z: 1}
)

// ToMgl は r3.Vec を mgl64.Vec3 に変換する。
func ToMgl(v r3.Vec) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// FromMgl は mgl64.Vec3 を r3.Vec に変換する。
func FromMgl(v mgl64.Vec3) r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// IsZero は長さがほぼゼロか判定する。
func IsZero(v r3.Vec) bool {
	return r3.Norm(v) <= Epsilon
}

// Lerp は2点間を線形補間する。
func Lerp(a r3.Vec, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// NearlyEqual は2点がほぼ等しいか判定する。
func NearlyEqual(a r3.Vec, b r3.Vec, tolerance float64) bool {
	return r3.Norm(r3.Sub(a, b)) <= tolerance
}

// VecRollToMat3 はボーン方向とロールから回転行列を求める。
// ボーンのY軸が方向ベクトル、ロールはY軸周りの回転となる。
func VecRollToMat3(vec r3.Vec, roll float64) mgl64.Mat3 {
	nor := ToMgl(vec)
	if nor.Len() <= Epsilon {
		return mgl64.Ident3()
	}
	nor = nor.Normalize()
	target := mgl64.Vec3{0, 1, 0}

	var bMatrix mgl64.Mat3
	axis := target.Cross(nor)
	if axis.Dot(axis) > Epsilon {
		theta := math.Acos(clamp(target.Dot(nor), -1, 1))
		bMatrix = mgl64.QuatRotate(theta, axis.Normalize()).Mat4().Mat3()
	} else if target.Dot(nor) > 0 {
		bMatrix = mgl64.Ident3()
	} else {
		bMatrix = mgl64.Diag3(mgl64.Vec3{-1, -1, 1})
	}

	rMatrix := mgl64.QuatRotate(roll, nor).Mat4().Mat3()
	return rMatrix.Mul3(bMatrix)
}

// Mat3ToRoll は回転行列とボーン方向からロールを逆算する。
func Mat3ToRoll(vec r3.Vec, mat mgl64.Mat3) float64 {
	vecMat := VecRollToMat3(vec, 0)
	rollMat := vecMat.Inv().Mul3(mat)
	return math.Atan2(rollMat.At(0, 2), rollMat.At(2, 2))
}

// BoneMatrix はヘッド位置を含むボーンの4x4行列を求める。
func BoneMatrix(head r3.Vec, tail r3.Vec, roll float64) mgl64.Mat4 {
	rot := VecRollToMat3(r3.Sub(tail, head), roll)
	m := rot.Mat4()
	m.SetCol(3, mgl64.Vec4{head.X, head.Y, head.Z, 1})
	return m
}

// BoneAxis はボーン行列の指定軸(0:X, 1:Y, 2:Z)を返す。
func BoneAxis(head r3.Vec, tail r3.Vec, roll float64, axis int) r3.Vec {
	rot := VecRollToMat3(r3.Sub(tail, head), roll)
	return FromMgl(rot.Col(axis))
}

// AlignRoll はボーンのZ軸が指定ベクトルへ最も近づくロールを返す。
func AlignRoll(vec r3.Vec, zAxis r3.Vec) float64 {
	if IsZero(vec) || IsZero(zAxis) {
		return 0
	}
	dir := r3.Unit(vec)
	projected := r3.Sub(zAxis, r3.Scale(r3.Dot(zAxis, dir), dir))
	if IsZero(projected) {
		return 0
	}
	projected = r3.Unit(projected)
	z0 := FromMgl(VecRollToMat3(vec, 0).Col(2))
	angle := math.Acos(clamp(r3.Dot(z0, projected), -1, 1))
	if r3.Dot(r3.Cross(z0, projected), dir) < 0 {
		angle = -angle
	}
	return angle
}

// PolePosition は2ボーンチェーンの曲がり方向にポール位置を求める。
// チェーンが一直線の場合は上側ボーンのZ軸を使う。
func PolePosition(root r3.Vec, joint r3.Vec, end r3.Vec, roll float64, distance float64) r3.Vec {
	chain := r3.Sub(end, root)
	toJoint := r3.Sub(joint, root)
	var dir r3.Vec
	if !IsZero(chain) {
		unitChain := r3.Unit(chain)
		dir = r3.Sub(toJoint, r3.Scale(r3.Dot(toJoint, unitChain), unitChain))
	}
	if IsZero(dir) {
		dir = BoneAxis(root, joint, roll, 2)
	}
	return r3.Add(joint, r3.Scale(distance, r3.Unit(dir)))
}

func clamp(value float64, min float64, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
