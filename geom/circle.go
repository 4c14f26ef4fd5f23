package geom

import (
	"math"

	"github.com/setanarut/vec"
)

// Circle is a solid disc centered at a point in body coordinates.
type Circle struct {
	center vec.Vec2
	radius float64
	verts  [1]vec.Vec2
}

// NewCircle returns a circle of radius r centered at offset.
func NewCircle(offset vec.Vec2, r float64) *Circle {
	c := &Circle{center: offset, radius: r}
	c.verts[0] = offset
	return c
}

func (c *Circle) sealed() {}

func (c *Circle) Kind() ShapeKind {
	return KindCircle
}

func (c *Circle) Radius() float64 {
	return c.radius
}

// Center returns the circle center in body coordinates.
func (c *Circle) Center() vec.Vec2 {
	return c.center
}

func (c *Circle) ComputeBB(xf Transform) BB {
	return NewBBForCircle(xf.Apply(c.center), c.radius)
}

func (c *Circle) ComputeMass(density float64) MassData {
	mass := density * AreaForCircle(0, c.radius)
	return MassData{
		Mass:   mass,
		Center: c.center,
		// about the center, then shifted to the body origin
		I: MomentForCircle(mass, 0, c.radius, c.center),
	}
}

func (c *Circle) TestPoint(xf Transform, p vec.Vec2) bool {
	d := p.Sub(xf.Apply(c.center))
	return d.Dot(d) <= c.radius*c.radius
}

// RayCast solves |s + t*d|² = r² for the smallest t in range.
func (c *Circle) RayCast(input RayCastInput, xf Transform) (RayCastOutput, bool) {
	position := xf.Apply(c.center)
	s := input.P1.Sub(position)
	b := s.Dot(s) - c.radius*c.radius

	r := input.P2.Sub(input.P1)
	cc := s.Dot(r)
	rr := r.Dot(r)
	sigma := cc*cc - rr*b

	if sigma < 0 || rr < Epsilon {
		return RayCastOutput{}, false
	}

	a := -(cc + math.Sqrt(sigma))
	if 0 <= a && a <= input.MaxFraction*rr {
		a /= rr
		n, _ := Normalize(s.Add(r.Scale(a)))
		return RayCastOutput{Normal: n, Fraction: a}, true
	}
	return RayCastOutput{}, false
}

func (c *Circle) Proxy() Proxy {
	return Proxy{Vertices: c.verts[:], Radius: c.radius}
}
