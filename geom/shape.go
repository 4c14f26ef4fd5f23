package geom

import "github.com/setanarut/vec"

// ShapeKind tags the closed set of collision shapes.
type ShapeKind int

const (
	KindCircle ShapeKind = iota
	KindPolygon
	// NumShapeKinds sizes per-kind dispatch tables.
	NumShapeKinds
)

func (k ShapeKind) String() string {
	switch k {
	case KindCircle:
		return "circle"
	case KindPolygon:
		return "polygon"
	}
	return "unknown"
}

// Shape is convex collision geometry in body-local coordinates. Shapes are
// immutable once built and may be shared between fixtures. The set of
// implementations is closed: *Circle and *Polygon.
type Shape interface {
	Kind() ShapeKind
	// Radius is the rounding skin. Polygons carry PolygonRadius.
	Radius() float64
	// ComputeBB returns the bounding box of the shape under xf.
	ComputeBB(xf Transform) BB
	// ComputeMass returns mass properties for the given density.
	ComputeMass(density float64) MassData
	// TestPoint reports whether the world point p lies inside the shape.
	TestPoint(xf Transform, p vec.Vec2) bool
	// RayCast intersects a world-space ray with the shape.
	RayCast(input RayCastInput, xf Transform) (RayCastOutput, bool)
	// Proxy returns the support-function view used by GJK.
	Proxy() Proxy

	sealed()
}

// MassData holds mass properties of a shape or body.
type MassData struct {
	// Mass in kilograms.
	Mass float64
	// Center of mass relative to the body origin.
	Center vec.Vec2
	// Rotational inertia about the body origin.
	I float64
}

// RayCastInput is a segment from P1 towards P2, clipped at
// P1 + MaxFraction*(P2-P1).
type RayCastInput struct {
	P1, P2      vec.Vec2
	MaxFraction float64
}

// RayCastOutput is the hit normal and the fraction along the input segment.
type RayCastOutput struct {
	Normal   vec.Vec2
	Fraction float64
}

// Proxy is a convex point cloud with a skin radius. GJK only touches shapes
// through their proxies.
type Proxy struct {
	Vertices []vec.Vec2
	Radius   float64
}

// Count returns the number of vertices.
func (p Proxy) Count() int {
	return len(p.Vertices)
}

// Vertex returns vertex i.
func (p Proxy) Vertex(i int) vec.Vec2 {
	return p.Vertices[i]
}

// Support returns the index of the vertex farthest along d.
func (p Proxy) Support(d vec.Vec2) int {
	best := 0
	bestValue := p.Vertices[0].Dot(d)
	for i := 1; i < len(p.Vertices); i++ {
		value := p.Vertices[i].Dot(d)
		if value > bestValue {
			best = i
			bestValue = value
		}
	}
	return best
}

// SupportVertex returns the vertex farthest along d.
func (p Proxy) SupportVertex(d vec.Vec2) vec.Vec2 {
	return p.Vertices[p.Support(d)]
}
