package geom

import (
	"math"

	"github.com/setanarut/vec"
)

// MomentForCircle calculates the moment of inertia for a hollow circle.
//
// r1 and r2 are the inner and outer radii. A solid circle has an inner
// radius of 0. offset is the displacement of the circle's center from the
// axis of rotation.
func MomentForCircle(mass, r1, r2 float64, offset vec.Vec2) float64 {
	return mass * (0.5*(r1*r1+r2*r2) + offset.Dot(offset))
}

// MomentForBox calculates the moment of inertia for a solid box about its
// center.
func MomentForBox(mass, width, height float64) float64 {
	return mass * (width*width + height*height) / 12.0
}

// MomentForPoly calculates the moment of inertia for a solid polygon about
// the origin after offset is added to each vertex. Vertices must wind
// counter-clockwise.
func MomentForPoly(mass float64, verts []vec.Vec2, offset vec.Vec2) float64 {
	count := len(verts)
	var sum1 float64
	var sum2 float64
	for i := 0; i < count; i++ {
		v1 := verts[i].Add(offset)
		v2 := verts[(i+1)%count].Add(offset)

		a := v2.Cross(v1)
		b := v1.Dot(v1) + v1.Dot(v2) + v2.Dot(v2)

		sum1 += a * b
		sum2 += a
	}

	if sum2 == 0 {
		return 0
	}
	return (mass * sum1) / (6.0 * sum2)
}

// AreaForCircle returns area of a hollow circle.
//
// r1 and r2 are the inner and outer radii. A solid circle has an inner radius of 0.
func AreaForCircle(r1, r2 float64) float64 {
	return math.Pi * math.Abs(r1*r1-r2*r2)
}

// AreaForPoly calculates the signed area of a polygon. Counter-clockwise
// winding gives a positive area.
func AreaForPoly(verts []vec.Vec2) float64 {
	count := len(verts)
	var area float64
	for i := 0; i < count; i++ {
		v1 := verts[i]
		v2 := verts[(i+1)%count]
		area += v1.Cross(v2)
	}
	return area / 2.0
}

// CentroidForPoly calculates the natural centroid of a polygon.
func CentroidForPoly(verts []vec.Vec2) vec.Vec2 {
	count := len(verts)
	var sum float64
	vsum := vec.Vec2{}

	for i := 0; i < count; i++ {
		v1 := verts[i]
		v2 := verts[(i+1)%count]
		cross := v1.Cross(v2)

		sum += cross
		vsum = vsum.Add(v1.Add(v2).Scale(cross))
	}

	if sum == 0 {
		// degenerate, fall back to the vertex average
		for _, v := range verts {
			vsum = vsum.Add(v)
		}
		return vsum.Scale(1.0 / float64(count))
	}
	return vsum.Scale(1.0 / (3.0 * sum))
}
