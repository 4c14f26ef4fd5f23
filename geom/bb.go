package geom

import (
	"fmt"
	"math"

	"github.com/setanarut/vec"
)

// BB is an axis-aligned 2D bounding box. (left, bottom, right, top)
type BB struct {
	L, B, R, T float64
}

// NewBB is convenience constructor for BB structs.
func NewBB(l, b, r, t float64) BB {
	return BB{
		L: l,
		B: b,
		R: r,
		T: t,
	}
}

func (bb BB) String() string {
	return fmt.Sprintf("%v %v %v %v", bb.L, bb.B, bb.R, bb.T)
}

// NewBBForExtents constructs a BB centered on a point with the given extents (half sizes).
func NewBBForExtents(c vec.Vec2, hw, hh float64) BB {
	return BB{
		L: c.X - hw,
		B: c.Y - hh,
		R: c.X + hw,
		T: c.Y + hh,
	}
}

// NewBBForCircle constructs a BB for a circle with the given position and radius.
func NewBBForCircle(p vec.Vec2, r float64) BB {
	return NewBBForExtents(p, r, r)
}

// IsValid reports whether the box is finite and not inverted.
func (bb BB) IsValid() bool {
	return bb.R >= bb.L && bb.T >= bb.B &&
		IsValid(bb.L) && IsValid(bb.B) && IsValid(bb.R) && IsValid(bb.T)
}

// Intersects returns true if a and b intersect.
func (bb BB) Intersects(b BB) bool {
	return bb.L <= b.R && b.L <= bb.R && bb.B <= b.T && b.B <= bb.T
}

// Contains returns true if other lies completely within bb.
func (bb BB) Contains(other BB) bool {
	return bb.L <= other.L && bb.R >= other.R && bb.B <= other.B && bb.T >= other.T
}

// Merge returns a bounding box that holds both bounding boxes.
func (bb BB) Merge(b BB) BB {
	return BB{
		math.Min(bb.L, b.L),
		math.Min(bb.B, b.B),
		math.Max(bb.R, b.R),
		math.Max(bb.T, b.T),
	}
}

// Expand returns a bounding box that holds both bb and v.
func (bb BB) Expand(v vec.Vec2) BB {
	return BB{
		math.Min(bb.L, v.X),
		math.Min(bb.B, v.Y),
		math.Max(bb.R, v.X),
		math.Max(bb.T, v.Y),
	}
}

// Grow returns bb enlarged by margin on every side.
func (bb BB) Grow(margin float64) BB {
	return BB{bb.L - margin, bb.B - margin, bb.R + margin, bb.T + margin}
}

// Center returns the center of a bounding box.
func (bb BB) Center() vec.Vec2 {
	return vec.Vec2{X: bb.L, Y: bb.B}.Lerp(vec.Vec2{X: bb.R, Y: bb.T}, 0.5)
}

// Extents returns the half sizes of the box.
func (bb BB) Extents() vec.Vec2 {
	return vec.Vec2{X: 0.5 * (bb.R - bb.L), Y: 0.5 * (bb.T - bb.B)}
}

// Perimeter returns the perimeter, the 2D analogue of surface area used as
// the tree insertion cost.
func (bb BB) Perimeter() float64 {
	return 2.0 * ((bb.R - bb.L) + (bb.T - bb.B))
}

// MergedPerimeter merges a and b and returns the perimeter of the result.
func (bb BB) MergedPerimeter(b BB) float64 {
	return 2.0 * ((math.Max(bb.R, b.R) - math.Min(bb.L, b.L)) + (math.Max(bb.T, b.T) - math.Min(bb.B, b.B)))
}

// SegmentQuery returns the fraction along the segment a-b at which the BB is
// first hit, or +Inf if it is missed.
func (bb BB) SegmentQuery(a, b vec.Vec2) float64 {
	delta := b.Sub(a)
	tmin := math.Inf(-1)
	tmax := math.Inf(1)

	if delta.X == 0 {
		if a.X < bb.L || bb.R < a.X {
			return math.Inf(1)
		}
	} else {
		t1 := (bb.L - a.X) / delta.X
		t2 := (bb.R - a.X) / delta.X
		tmin = math.Max(tmin, math.Min(t1, t2))
		tmax = math.Min(tmax, math.Max(t1, t2))
	}

	if delta.Y == 0 {
		if a.Y < bb.B || bb.T < a.Y {
			return math.Inf(1)
		}
	} else {
		t1 := (bb.B - a.Y) / delta.Y
		t2 := (bb.T - a.Y) / delta.Y
		tmin = math.Max(tmin, math.Min(t1, t2))
		tmax = math.Min(tmax, math.Max(t1, t2))
	}

	if tmin <= tmax && 0 <= tmax && tmin <= 1.0 {
		return math.Max(tmin, 0.0)
	}
	return math.Inf(1)
}

// IntersectsSegment returns true if the bounding box intersects the line segment with ends a and b.
func (bb BB) IntersectsSegment(a, b vec.Vec2) bool {
	return !math.IsInf(bb.SegmentQuery(a, b), 1)
}

// Offset returns a bounding box offseted by v.
func (bb BB) Offset(v vec.Vec2) BB {
	return BB{
		bb.L + v.X,
		bb.B + v.Y,
		bb.R + v.X,
		bb.T + v.Y,
	}
}
