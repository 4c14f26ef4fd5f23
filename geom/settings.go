package geom

import "math"

// Fixed tuning constants shared by every stage of the pipeline.
const (
	// MaxManifoldPoints is the number of contact points a manifold can hold.
	MaxManifoldPoints = 2
	// MaxPolygonVertices bounds the vertex count of a polygon.
	MaxPolygonVertices = 8

	// AABBExtension fattens broad-phase leaves so small motions do not
	// trigger a tree update.
	AABBExtension = 0.1
	// AABBMultiplier scales the displacement used to predict fat boxes.
	AABBMultiplier = 2.0

	// LinearSlop is the collision and constraint tolerance, in meters.
	LinearSlop = 0.005
	// AngularSlop is the collision and constraint tolerance, in radians.
	AngularSlop = 2.0 / 180.0 * math.Pi

	// PolygonRadius is the skin around polygons that keeps them separated
	// by a small margin so GJK works on the cores.
	PolygonRadius = 2.0 * LinearSlop

	// MaxDistanceIterations caps GJK.
	MaxDistanceIterations = 20
	// MaxTOIIterations caps the conservative advancement loop.
	MaxTOIIterations = 30

	// Epsilon is the float64 machine epsilon.
	Epsilon = 2.220446049250313e-16
)
