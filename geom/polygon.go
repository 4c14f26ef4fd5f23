package geom

import (
	"fmt"
	"log"
	"math"

	"github.com/setanarut/vec"
)

// Polygon is a solid convex polygon with counter-clockwise winding and a
// PolygonRadius skin.
type Polygon struct {
	centroid vec.Vec2
	vertices []vec.Vec2
	normals  []vec.Vec2
	radius   float64
}

// NewPolygon builds the convex hull of points. Points closer than half a
// LinearSlop are welded. Input that does not span an area (fewer than three
// distinct, non-collinear points) falls back to the smallest box holding the
// points, at least LinearSlop on each side.
//
// Passing more than MaxPolygonVertices points panics.
func NewPolygon(points []vec.Vec2) *Polygon {
	if len(points) > MaxPolygonVertices {
		panic(fmt.Sprintf("geom: polygon has %d vertices, max is %d", len(points), MaxPolygonVertices))
	}

	welded := make([]vec.Vec2, 0, len(points))
	const weldDistSq = (0.5 * LinearSlop) * (0.5 * LinearSlop)
	for _, p := range points {
		unique := true
		for _, q := range welded {
			d := p.Sub(q)
			if d.Dot(d) < weldDistSq {
				unique = false
				break
			}
		}
		if unique {
			welded = append(welded, p)
		}
	}

	hull := ConvexHull(welded, 0)
	if len(hull) < 3 {
		log.Printf("geom: degenerate polygon with %d hull points, using bounding box", len(hull))
		return degenerateBox(points)
	}
	return newPolygonRaw(hull)
}

func degenerateBox(points []vec.Vec2) *Polygon {
	if len(points) == 0 {
		return NewBox(LinearSlop, LinearSlop)
	}
	bb := NewBBForCircle(points[0], 0)
	for _, p := range points[1:] {
		bb = bb.Expand(p)
	}
	e := bb.Extents()
	return NewOrientedBox(math.Max(e.X, LinearSlop), math.Max(e.Y, LinearSlop), bb.Center(), 0)
}

// NewBox returns an axis-aligned box centered on the body origin with half
// widths hx and hy.
func NewBox(hx, hy float64) *Polygon {
	return newPolygonRaw([]vec.Vec2{
		{X: -hx, Y: -hy},
		{X: hx, Y: -hy},
		{X: hx, Y: hy},
		{X: -hx, Y: hy},
	})
}

// NewOrientedBox returns a box with half widths hx and hy, centered at
// center and rotated by angle, all in body coordinates.
func NewOrientedBox(hx, hy float64, center vec.Vec2, angle float64) *Polygon {
	xf := NewTransform(center, angle)
	verts := []vec.Vec2{
		xf.Apply(vec.Vec2{X: -hx, Y: -hy}),
		xf.Apply(vec.Vec2{X: hx, Y: -hy}),
		xf.Apply(vec.Vec2{X: hx, Y: hy}),
		xf.Apply(vec.Vec2{X: -hx, Y: hy}),
	}
	p := newPolygonRaw(verts)
	p.centroid = center
	return p
}

// newPolygonRaw trusts verts to be convex and counter-clockwise.
func newPolygonRaw(verts []vec.Vec2) *Polygon {
	count := len(verts)
	p := &Polygon{
		vertices: verts,
		normals:  make([]vec.Vec2, count),
		radius:   PolygonRadius,
	}
	for i := range count {
		edge := verts[(i+1)%count].Sub(verts[i])
		p.normals[i], _ = Normalize(CrossVS(edge, 1))
	}
	p.centroid = CentroidForPoly(verts)
	return p
}

func (p *Polygon) sealed() {}

func (p *Polygon) Kind() ShapeKind {
	return KindPolygon
}

func (p *Polygon) Radius() float64 {
	return p.radius
}

// Count returns the number of vertices.
func (p *Polygon) Count() int {
	return len(p.vertices)
}

// Vertex returns vertex i in body coordinates.
func (p *Polygon) Vertex(i int) vec.Vec2 {
	return p.vertices[i]
}

// Normal returns the outward unit normal of edge i, which runs from vertex i
// to vertex i+1.
func (p *Polygon) Normal(i int) vec.Vec2 {
	return p.normals[i]
}

// Vertices returns the vertex slice. It must not be modified.
func (p *Polygon) Vertices() []vec.Vec2 {
	return p.vertices
}

// Normals returns the edge normal slice. It must not be modified.
func (p *Polygon) Normals() []vec.Vec2 {
	return p.normals
}

// Centroid returns the area centroid in body coordinates.
func (p *Polygon) Centroid() vec.Vec2 {
	return p.centroid
}

func (p *Polygon) ComputeBB(xf Transform) BB {
	v := xf.Apply(p.vertices[0])
	bb := NewBBForCircle(v, 0)
	for _, lv := range p.vertices[1:] {
		bb = bb.Expand(xf.Apply(lv))
	}
	return bb.Grow(p.radius)
}

func (p *Polygon) ComputeMass(density float64) MassData {
	area := AreaForPoly(p.vertices)
	mass := density * area
	center := p.centroid
	inertia := MomentForPoly(mass, p.vertices, center.Neg())
	return MassData{
		Mass:   mass,
		Center: center,
		I:      inertia + mass*center.Dot(center),
	}
}

func (p *Polygon) TestPoint(xf Transform, point vec.Vec2) bool {
	local := xf.ApplyInv(point)
	for i, n := range p.normals {
		if n.Dot(local.Sub(p.vertices[i])) > 0 {
			return false
		}
	}
	return true
}

// RayCast clips the ray against every edge half plane in the polygon frame.
func (p *Polygon) RayCast(input RayCastInput, xf Transform) (RayCastOutput, bool) {
	p1 := xf.ApplyInv(input.P1)
	p2 := xf.ApplyInv(input.P2)
	d := p2.Sub(p1)

	lower := 0.0
	upper := input.MaxFraction
	index := -1

	for i, n := range p.normals {
		numerator := n.Dot(p.vertices[i].Sub(p1))
		denominator := n.Dot(d)

		if denominator == 0 {
			if numerator < 0 {
				return RayCastOutput{}, false
			}
		} else if denominator < 0 && numerator < lower*denominator {
			// entering this half plane
			lower = numerator / denominator
			index = i
		} else if denominator > 0 && numerator < upper*denominator {
			upper = numerator / denominator
		}

		if upper < lower {
			return RayCastOutput{}, false
		}
	}

	if index >= 0 {
		return RayCastOutput{Normal: xf.ApplyVector(p.normals[index]), Fraction: lower}, true
	}
	return RayCastOutput{}, false
}

func (p *Polygon) Proxy() Proxy {
	return Proxy{Vertices: p.vertices, Radius: p.radius}
}

// InnerRadius returns the distance from a shape's centroid to its closest
// boundary, skin included. Motion shorter than this within one step cannot
// tunnel through the shape.
func InnerRadius(s Shape) float64 {
	switch s := s.(type) {
	case *Circle:
		return s.radius
	case *Polygon:
		r := math.Inf(1)
		for i, n := range s.normals {
			r = math.Min(r, n.Dot(s.vertices[i].Sub(s.centroid)))
		}
		return r + s.radius
	}
	panic("geom: unknown shape")
}

// OuterRadius returns the distance from center to the farthest point of s.
func OuterRadius(s Shape, center vec.Vec2) float64 {
	var r float64
	for _, v := range s.Proxy().Vertices {
		r = math.Max(r, v.Sub(center).Mag())
	}
	return r + s.Radius()
}
