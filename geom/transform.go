package geom

import (
	"math"

	"github.com/setanarut/vec"
)

// Rot is a rotation stored as its sine and cosine.
type Rot struct {
	S, C float64
}

// NewRot returns the rotation for angle in radians.
func NewRot(angle float64) Rot {
	return Rot{S: math.Sin(angle), C: math.Cos(angle)}
}

// NewRotIdentity returns the zero rotation.
func NewRotIdentity() Rot {
	return Rot{S: 0, C: 1}
}

// Angle returns the rotation angle in radians.
func (q Rot) Angle() float64 {
	return math.Atan2(q.S, q.C)
}

// XAxis returns the rotated x axis.
func (q Rot) XAxis() vec.Vec2 {
	return vec.Vec2{X: q.C, Y: q.S}
}

// YAxis returns the rotated y axis.
func (q Rot) YAxis() vec.Vec2 {
	return vec.Vec2{X: -q.S, Y: q.C}
}

// Apply rotates v.
func (q Rot) Apply(v vec.Vec2) vec.Vec2 {
	return vec.Vec2{X: q.C*v.X - q.S*v.Y, Y: q.S*v.X + q.C*v.Y}
}

// ApplyInv rotates v by the inverse rotation.
func (q Rot) ApplyInv(v vec.Vec2) vec.Vec2 {
	return vec.Vec2{X: q.C*v.X + q.S*v.Y, Y: -q.S*v.X + q.C*v.Y}
}

// Mult composes q and r, applying r first.
func (q Rot) Mult(r Rot) Rot {
	return Rot{
		S: q.S*r.C + q.C*r.S,
		C: q.C*r.C - q.S*r.S,
	}
}

// MultT composes the inverse of q with r.
func (q Rot) MultT(r Rot) Rot {
	return Rot{
		S: q.C*r.S - q.S*r.C,
		C: q.C*r.C + q.S*r.S,
	}
}

// Transform is a rigid transformation: a rotation Q followed by a
// translation P.
//
//	| c  -s  px |   -> X' = c * X - s * Y + px
//	| s   c  py |   -> Y' = s * X + c * Y + py
//
// Unlike a general affine matrix it has no scale or shear, so its inverse is
// the transposed rotation and the negated rotated translation.
type Transform struct {
	P vec.Vec2
	Q Rot
}

// NewTransformIdentity returns the identity transformation.
func NewTransformIdentity() Transform {
	return Transform{Q: NewRotIdentity()}
}

// NewTransform returns the transform for a position and an angle.
func NewTransform(position vec.Vec2, angle float64) Transform {
	return Transform{P: position, Q: NewRot(angle)}
}

// Apply transforms the point p.
func (t Transform) Apply(p vec.Vec2) vec.Vec2 {
	return t.Q.Apply(p).Add(t.P)
}

// ApplyInv maps the world point p into the local frame of t.
func (t Transform) ApplyInv(p vec.Vec2) vec.Vec2 {
	return t.Q.ApplyInv(p.Sub(t.P))
}

// ApplyVector rotates the vector v without translating it.
func (t Transform) ApplyVector(v vec.Vec2) vec.Vec2 {
	return t.Q.Apply(v)
}

// ApplyVectorInv rotates v into the local frame of t.
func (t Transform) ApplyVectorInv(v vec.Vec2) vec.Vec2 {
	return t.Q.ApplyInv(v)
}

// Mult returns t * t2, the transform that applies t2 and then t.
func (t Transform) Mult(t2 Transform) Transform {
	return Transform{
		Q: t.Q.Mult(t2.Q),
		P: t.Q.Apply(t2.P).Add(t.P),
	}
}

// MultT returns inverse(t) * t2, which expresses t2 in the frame of t.
func (t Transform) MultT(t2 Transform) Transform {
	return Transform{
		Q: t.Q.MultT(t2.Q),
		P: t.Q.ApplyInv(t2.P.Sub(t.P)),
	}
}

// Inverse returns the inverse transformation.
func (t Transform) Inverse() Transform {
	return Transform{
		Q: Rot{S: -t.Q.S, C: t.Q.C},
		P: t.Q.ApplyInv(t.P).Neg(),
	}
}

// Sweep describes the motion of a body over one time step for continuous
// collision. The shapes are defined relative to the body origin, which may
// not coincide with the center of mass; LocalCenter bridges the two.
type Sweep struct {
	// Center of mass in body coordinates.
	LocalCenter vec.Vec2
	// World center positions at Alpha0 and at the end of the step.
	C0, C vec.Vec2
	// World angles at Alpha0 and at the end of the step.
	A0, A float64
	// Fraction of the current step already covered by C0 and A0.
	Alpha0 float64
}

// Transform returns the body transform interpolated at beta in [0,1], where
// 0 is C0/A0 and 1 is C/A.
func (s *Sweep) Transform(beta float64) Transform {
	p := s.C0.Scale(1.0 - beta).Add(s.C.Scale(beta))
	angle := (1.0-beta)*s.A0 + beta*s.A
	q := NewRot(angle)
	return Transform{P: p.Sub(q.Apply(s.LocalCenter)), Q: q}
}

// Advance moves the start of the sweep forward to alpha, which must be
// greater than Alpha0 and below 1.
func (s *Sweep) Advance(alpha float64) {
	beta := (alpha - s.Alpha0) / (1.0 - s.Alpha0)
	s.C0 = s.C0.Add(s.C.Sub(s.C0).Scale(beta))
	s.A0 += beta * (s.A - s.A0)
	s.Alpha0 = alpha
}

// Normalize wraps the angles into [0, 2π) while keeping their difference.
func (s *Sweep) Normalize() {
	const twoPi = 2.0 * math.Pi
	d := twoPi * math.Floor(s.A0/twoPi)
	s.A0 -= d
	s.A -= d
}
