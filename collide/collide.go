package collide

import (
	"math"

	"github.com/setanarut/kinetic/geom"
)

// CollideCircles computes the manifold between two circles.
func CollideCircles(circleA *geom.Circle, xfA geom.Transform, circleB *geom.Circle, xfB geom.Transform) Manifold {
	var m Manifold

	pA := xfA.Apply(circleA.Center())
	pB := xfB.Apply(circleB.Center())
	d := pB.Sub(pA)
	radius := circleA.Radius() + circleB.Radius()
	if d.Dot(d) > radius*radius {
		return m
	}

	m.Type = ManifoldCircles
	m.LocalPoint = circleA.Center()
	m.PointCount = 1
	m.Points[0].LocalPoint = circleB.Center()
	return m
}

// CollidePolygonAndCircle computes the manifold between a polygon and a
// circle. The normal is a face normal of the polygon or the direction from
// the nearest polygon vertex to the circle center.
func CollidePolygonAndCircle(polyA *geom.Polygon, xfA geom.Transform, circleB *geom.Circle, xfB geom.Transform) Manifold {
	var m Manifold

	// Circle center in the polygon frame.
	c := xfB.Apply(circleB.Center())
	cLocal := xfA.ApplyInv(c)

	normalIndex := 0
	separation := math.Inf(-1)
	radius := polyA.Radius() + circleB.Radius()
	count := polyA.Count()
	vertices := polyA.Vertices()
	normals := polyA.Normals()

	for i := 0; i < count; i++ {
		s := normals[i].Dot(cLocal.Sub(vertices[i]))
		if s > radius {
			return m
		}
		if s > separation {
			separation = s
			normalIndex = i
		}
	}

	// Vertices of the reference face.
	i1 := normalIndex
	i2 := 0
	if i1+1 < count {
		i2 = i1 + 1
	}
	v1 := vertices[i1]
	v2 := vertices[i2]

	m.Type = ManifoldFaceA
	m.PointCount = 1
	m.Points[0].LocalPoint = circleB.Center()

	// Center inside the polygon.
	if separation < geom.Epsilon {
		m.LocalNormal = normals[normalIndex]
		m.LocalPoint = v1.Add(v2).Scale(0.5)
		return m
	}

	u1 := cLocal.Sub(v1).Dot(v2.Sub(v1))
	u2 := cLocal.Sub(v2).Dot(v1.Sub(v2))
	switch {
	case u1 <= 0:
		if cLocal.Sub(v1).LengthSq() > radius*radius {
			return Manifold{}
		}
		m.LocalNormal, _ = geom.Normalize(cLocal.Sub(v1))
		m.LocalPoint = v1
	case u2 <= 0:
		if cLocal.Sub(v2).LengthSq() > radius*radius {
			return Manifold{}
		}
		m.LocalNormal, _ = geom.Normalize(cLocal.Sub(v2))
		m.LocalPoint = v2
	default:
		faceCenter := v1.Add(v2).Scale(0.5)
		if cLocal.Sub(faceCenter).Dot(normals[i1]) > radius {
			return Manifold{}
		}
		m.LocalNormal = normals[i1]
		m.LocalPoint = faceCenter
	}
	return m
}

// findMaxSeparation returns the edge of poly1 with the largest separation
// from poly2.
func findMaxSeparation(poly1 *geom.Polygon, xf1 geom.Transform, poly2 *geom.Polygon, xf2 geom.Transform) (int, float64) {
	n1s := poly1.Normals()
	v1s := poly1.Vertices()
	v2s := poly2.Vertices()
	xf := xf2.MultT(xf1)

	bestIndex := 0
	maxSeparation := math.Inf(-1)
	for i := range v1s {
		// poly1 normal and vertex in frame2
		n := xf.Q.Apply(n1s[i])
		v1 := xf.Apply(v1s[i])

		si := math.Inf(1)
		for _, v2 := range v2s {
			si = math.Min(si, n.Dot(v2.Sub(v1)))
		}
		if si > maxSeparation {
			maxSeparation = si
			bestIndex = i
		}
	}
	return bestIndex, maxSeparation
}

func findIncidentEdge(poly1 *geom.Polygon, xf1 geom.Transform, edge1 int, poly2 *geom.Polygon, xf2 geom.Transform) [2]ClipVertex {
	normals2 := poly2.Normals()
	vertices2 := poly2.Vertices()

	// Reference normal in poly2's frame.
	normal1 := xf2.Q.ApplyInv(xf1.Q.Apply(poly1.Normal(edge1)))

	index := 0
	minDot := math.Inf(1)
	for i, n := range normals2 {
		if dot := normal1.Dot(n); dot < minDot {
			minDot = dot
			index = i
		}
	}

	i1 := index
	i2 := 0
	if i1+1 < len(vertices2) {
		i2 = i1 + 1
	}

	return [2]ClipVertex{
		{
			V:  xf2.Apply(vertices2[i1]),
			ID: ContactID{IndexA: uint8(edge1), IndexB: uint8(i1), TypeA: FeatureFace, TypeB: FeatureVertex},
		},
		{
			V:  xf2.Apply(vertices2[i2]),
			ID: ContactID{IndexA: uint8(edge1), IndexB: uint8(i2), TypeA: FeatureFace, TypeB: FeatureVertex},
		},
	}
}

// CollidePolygons computes the manifold between two polygons. The reference
// face is the one with the larger separation, preferring A within a small
// tolerance so the choice does not flicker. The incident edge of the other
// polygon is clipped against the side planes of the reference face.
func CollidePolygons(polyA *geom.Polygon, xfA geom.Transform, polyB *geom.Polygon, xfB geom.Transform) Manifold {
	var m Manifold
	totalRadius := polyA.Radius() + polyB.Radius()

	edgeA, separationA := findMaxSeparation(polyA, xfA, polyB, xfB)
	if separationA > totalRadius {
		return m
	}
	edgeB, separationB := findMaxSeparation(polyB, xfB, polyA, xfA)
	if separationB > totalRadius {
		return m
	}

	var (
		poly1, poly2 *geom.Polygon
		xf1, xf2     geom.Transform
		edge1        int
		flip         bool
	)

	const tol = 0.1 * geom.LinearSlop
	if separationB > separationA+tol {
		poly1, poly2 = polyB, polyA
		xf1, xf2 = xfB, xfA
		edge1 = edgeB
		m.Type = ManifoldFaceB
		flip = true
	} else {
		poly1, poly2 = polyA, polyB
		xf1, xf2 = xfA, xfB
		edge1 = edgeA
		m.Type = ManifoldFaceA
	}

	incidentEdge := findIncidentEdge(poly1, xf1, edge1, poly2, xf2)

	count1 := poly1.Count()
	iv1 := edge1
	iv2 := 0
	if edge1+1 < count1 {
		iv2 = edge1 + 1
	}
	v11 := poly1.Vertex(iv1)
	v12 := poly1.Vertex(iv2)

	localTangent, _ := geom.Normalize(v12.Sub(v11))
	localNormal := geom.CrossVS(localTangent, 1)
	planePoint := v11.Add(v12).Scale(0.5)

	tangent := xf1.Q.Apply(localTangent)
	normal := geom.CrossVS(tangent, 1)

	v11 = xf1.Apply(v11)
	v12 = xf1.Apply(v12)

	frontOffset := normal.Dot(v11)

	// Side offsets, extended by the skins.
	sideOffset1 := -tangent.Dot(v11) + totalRadius
	sideOffset2 := tangent.Dot(v12) + totalRadius

	clipPoints1, np := ClipSegmentToLine(incidentEdge, tangent.Neg(), sideOffset1, iv1)
	if np < 2 {
		return m
	}
	clipPoints2, np := ClipSegmentToLine(clipPoints1, tangent, sideOffset2, iv2)
	if np < 2 {
		return m
	}

	m.LocalNormal = localNormal
	m.LocalPoint = planePoint

	pointCount := 0
	for i := 0; i < geom.MaxManifoldPoints; i++ {
		separation := normal.Dot(clipPoints2[i].V) - frontOffset
		if separation > totalRadius {
			continue
		}
		cp := &m.Points[pointCount]
		cp.LocalPoint = xf2.ApplyInv(clipPoints2[i].V)
		cp.ID = clipPoints2[i].ID
		if flip {
			cp.ID = cp.ID.swap()
		}
		pointCount++
	}
	m.PointCount = pointCount
	return m
}
