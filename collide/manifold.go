// Package collide implements the narrow phase: GJK distance, contact
// manifolds for circle and polygon pairs, and time of impact.
package collide

import (
	"fmt"

	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

// FeatureType says whether a contact feature is a vertex or a face.
type FeatureType uint8

const (
	FeatureVertex FeatureType = iota
	FeatureFace
)

// ContactID identifies the pair of features that produced a contact point.
// It stays the same while the same features touch, which is what lets
// impulses be carried from one step to the next.
type ContactID struct {
	IndexA, IndexB uint8
	TypeA, TypeB   FeatureType
}

// Key packs the id into a single comparable value.
func (id ContactID) Key() uint32 {
	return uint32(id.IndexA) | uint32(id.IndexB)<<8 | uint32(id.TypeA)<<16 | uint32(id.TypeB)<<24
}

func (id ContactID) swap() ContactID {
	return ContactID{IndexA: id.IndexB, IndexB: id.IndexA, TypeA: id.TypeB, TypeB: id.TypeA}
}

// ManifoldType tells how the local point and normal of a manifold are to be
// read.
type ManifoldType uint8

const (
	// ManifoldCircles: LocalPoint is the circle center on A, points hold the
	// circle center on B. LocalNormal is unused.
	ManifoldCircles ManifoldType = iota
	// ManifoldFaceA: LocalPoint and LocalNormal describe a face of A, points
	// are clip points on B.
	ManifoldFaceA
	// ManifoldFaceB: as ManifoldFaceA with the roles swapped.
	ManifoldFaceB
)

func (t ManifoldType) String() string {
	switch t {
	case ManifoldCircles:
		return "circles"
	case ManifoldFaceA:
		return "faceA"
	case ManifoldFaceB:
		return "faceB"
	}
	return fmt.Sprintf("ManifoldType(%d)", uint8(t))
}

// ManifoldPoint is one contact point with its cached impulses.
type ManifoldPoint struct {
	LocalPoint     vec.Vec2
	NormalImpulse  float64
	TangentImpulse float64
	ID             ContactID
}

// Manifold is the contact geometry between two convex shapes, stored in
// local coordinates so it can be re-evaluated as the bodies move.
type Manifold struct {
	Points      [geom.MaxManifoldPoints]ManifoldPoint
	LocalNormal vec.Vec2
	LocalPoint  vec.Vec2
	Type        ManifoldType
	PointCount  int
}

// WorldManifold is a manifold in world coordinates.
type WorldManifold struct {
	// Normal points from A to B.
	Normal vec.Vec2
	// Points are midway between the two surfaces.
	Points [geom.MaxManifoldPoints]vec.Vec2
	// Separations are negative when the shapes overlap.
	Separations [geom.MaxManifoldPoints]float64
}

// NewWorldManifold evaluates m for the given transforms and skin radii.
func NewWorldManifold(m *Manifold, xfA geom.Transform, radiusA float64, xfB geom.Transform, radiusB float64) WorldManifold {
	var wm WorldManifold
	if m.PointCount == 0 {
		return wm
	}

	switch m.Type {
	case ManifoldCircles:
		wm.Normal = vec.Vec2{X: 1}
		pointA := xfA.Apply(m.LocalPoint)
		pointB := xfB.Apply(m.Points[0].LocalPoint)
		if n, l := geom.Normalize(pointB.Sub(pointA)); l > 0 {
			wm.Normal = n
		}
		cA := pointA.Add(wm.Normal.Scale(radiusA))
		cB := pointB.Sub(wm.Normal.Scale(radiusB))
		wm.Points[0] = cA.Add(cB).Scale(0.5)
		wm.Separations[0] = cB.Sub(cA).Dot(wm.Normal)

	case ManifoldFaceA:
		wm.Normal = xfA.ApplyVector(m.LocalNormal)
		planePoint := xfA.Apply(m.LocalPoint)
		for i := 0; i < m.PointCount; i++ {
			clipPoint := xfB.Apply(m.Points[i].LocalPoint)
			cA := clipPoint.Add(wm.Normal.Scale(radiusA - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cB := clipPoint.Sub(wm.Normal.Scale(radiusB))
			wm.Points[i] = cA.Add(cB).Scale(0.5)
			wm.Separations[i] = cB.Sub(cA).Dot(wm.Normal)
		}

	case ManifoldFaceB:
		wm.Normal = xfB.ApplyVector(m.LocalNormal)
		planePoint := xfB.Apply(m.LocalPoint)
		for i := 0; i < m.PointCount; i++ {
			clipPoint := xfA.Apply(m.Points[i].LocalPoint)
			cB := clipPoint.Add(wm.Normal.Scale(radiusB - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cA := clipPoint.Sub(wm.Normal.Scale(radiusA))
			wm.Points[i] = cA.Add(cB).Scale(0.5)
			wm.Separations[i] = cA.Sub(cB).Dot(wm.Normal)
		}
		wm.Normal = wm.Normal.Neg()
	}
	return wm
}

// PointState describes how a manifold point changed across an update.
type PointState uint8

const (
	// PointNull: the point does not exist.
	PointNull PointState = iota
	// PointAdd: the point appeared in the update.
	PointAdd
	// PointPersist: the point existed before and after.
	PointPersist
	// PointRemove: the point disappeared in the update.
	PointRemove
)

// PointStates compares two manifolds by contact id. state1 describes the
// points of prev, state2 the points of next.
func PointStates(prev, next *Manifold) (state1, state2 [geom.MaxManifoldPoints]PointState) {
	for i := 0; i < prev.PointCount; i++ {
		key := prev.Points[i].ID.Key()
		state1[i] = PointRemove
		for j := 0; j < next.PointCount; j++ {
			if next.Points[j].ID.Key() == key {
				state1[i] = PointPersist
				break
			}
		}
	}

	for i := 0; i < next.PointCount; i++ {
		key := next.Points[i].ID.Key()
		state2[i] = PointAdd
		for j := 0; j < prev.PointCount; j++ {
			if prev.Points[j].ID.Key() == key {
				state2[i] = PointPersist
				break
			}
		}
	}
	return state1, state2
}

// ClipVertex is a point on an incident edge during clipping.
type ClipVertex struct {
	V  vec.Vec2
	ID ContactID
}

// ClipSegmentToLine clips the segment vIn against the half plane
// dot(normal, p) <= offset (Sutherland-Hodgman). A point created by the clip
// takes vertexIndexA as its feature on A.
func ClipSegmentToLine(vIn [2]ClipVertex, normal vec.Vec2, offset float64, vertexIndexA int) (vOut [2]ClipVertex, n int) {
	distance0 := normal.Dot(vIn[0].V) - offset
	distance1 := normal.Dot(vIn[1].V) - offset

	if distance0 <= 0 {
		vOut[n] = vIn[0]
		n++
	}
	if distance1 <= 0 {
		vOut[n] = vIn[1]
		n++
	}

	if distance0*distance1 < 0 {
		interp := distance0 / (distance0 - distance1)
		vOut[n].V = vIn[0].V.Add(vIn[1].V.Sub(vIn[0].V).Scale(interp))
		vOut[n].ID = ContactID{
			IndexA: uint8(vertexIndexA),
			IndexB: vIn[0].ID.IndexB,
			TypeA:  FeatureVertex,
			TypeB:  FeatureFace,
		}
		n++
	}
	return vOut, n
}
