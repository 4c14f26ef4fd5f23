package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/setanarut/vec"
)

// CrossVS returns v × s, the vector (s*v.Y, -s*v.X).
func CrossVS(v vec.Vec2, s float64) vec.Vec2 {
	return vec.Vec2{X: s * v.Y, Y: -s * v.X}
}

// CrossSV returns s × v, the vector (-s*v.Y, s*v.X).
func CrossSV(s float64, v vec.Vec2) vec.Vec2 {
	return vec.Vec2{X: -s * v.Y, Y: s * v.X}
}

// Normalize returns the unit vector and the original length. Vectors shorter
// than Epsilon come back unchanged with a zero length.
func Normalize(v vec.Vec2) (vec.Vec2, float64) {
	length := math.Sqrt(v.Dot(v))
	if length < Epsilon {
		return v, 0
	}
	return v.Scale(1 / length), length
}

// IsValid reports whether x is a finite number.
func IsValid(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// ToMgl converts to a mathgl vector.
func ToMgl(v vec.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{v.X, v.Y}
}

// FromMgl converts from a mathgl vector.
func FromMgl(v mgl64.Vec2) vec.Vec2 {
	return vec.Vec2{X: v[0], Y: v[1]}
}

// Solve22 solves K x = b for a 2x2 matrix. A singular K yields zero.
func Solve22(k mgl64.Mat2, b vec.Vec2) vec.Vec2 {
	return FromMgl(k.Inv().Mul2x1(ToMgl(b)))
}

// Solve33 solves K x = b for a 3x3 matrix. A singular K yields zero.
func Solve33(k mgl64.Mat3, b mgl64.Vec3) mgl64.Vec3 {
	return k.Inv().Mul3x1(b)
}

// Solve22Of33 solves the upper 2x2 block of K against b.
func Solve22Of33(k mgl64.Mat3, b vec.Vec2) vec.Vec2 {
	return Solve22(k.Mat2(), b)
}
