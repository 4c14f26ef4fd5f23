package collide_test

import (
	"math"
	"testing"

	"github.com/setanarut/kinetic/collide"
	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

const tol = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) < tol
}

func nearVec(a, b vec.Vec2) bool {
	return near(a.X, b.X) && near(a.Y, b.Y)
}

func at(x, y float64) geom.Transform {
	return geom.NewTransform(vec.Vec2{X: x, Y: y}, 0)
}

func TestCollideCircles(t *testing.T) {
	a := geom.NewCircle(vec.Vec2{}, 1)
	b := geom.NewCircle(vec.Vec2{}, 1)

	m := collide.CollideCircles(a, at(0, 0), b, at(1.5, 0))
	if m.PointCount != 1 {
		t.Fatalf("got %d points want 1", m.PointCount)
	}
	wm := collide.NewWorldManifold(&m, at(0, 0), 1, at(1.5, 0), 1)
	if !nearVec(wm.Normal, vec.Vec2{X: 1}) {
		t.Errorf("got normal %v want (1,0)", wm.Normal)
	}
	if !near(wm.Separations[0], -0.5) {
		t.Errorf("got separation %v want -0.5", wm.Separations[0])
	}
	if !nearVec(wm.Points[0], vec.Vec2{X: 0.75}) {
		t.Errorf("got point %v want (0.75,0)", wm.Points[0])
	}

	m = collide.CollideCircles(a, at(0, 0), b, at(2.5, 0))
	if m.PointCount != 0 {
		t.Errorf("got %d points for separated circles", m.PointCount)
	}
}

func TestCollidePolygonAndCircle(t *testing.T) {
	box := geom.NewBox(1, 1)
	circle := geom.NewCircle(vec.Vec2{}, 0.5)

	m := collide.CollidePolygonAndCircle(box, at(0, 0), circle, at(0, 1.4))
	if m.PointCount != 1 || m.Type != collide.ManifoldFaceA {
		t.Fatalf("got %d points type %v", m.PointCount, m.Type)
	}
	wm := collide.NewWorldManifold(&m, at(0, 0), box.Radius(), at(0, 1.4), circle.Radius())
	if !nearVec(wm.Normal, vec.Vec2{Y: 1}) {
		t.Errorf("got normal %v want (0,1)", wm.Normal)
	}
	if !near(wm.Separations[0], -0.11) {
		t.Errorf("got separation %v want -0.11", wm.Separations[0])
	}

	m = collide.CollidePolygonAndCircle(box, at(0, 0), circle, at(0, 3))
	if m.PointCount != 0 {
		t.Errorf("got %d points for separated shapes", m.PointCount)
	}
}

func TestCollidePolygons(t *testing.T) {
	a := geom.NewBox(1, 1)
	b := geom.NewBox(0.5, 0.5)

	m := collide.CollidePolygons(a, at(0, 0), b, at(0, 1.4))
	if m.PointCount != 2 {
		t.Fatalf("got %d points want 2", m.PointCount)
	}
	wm := collide.NewWorldManifold(&m, at(0, 0), a.Radius(), at(0, 1.4), b.Radius())
	if !nearVec(wm.Normal, vec.Vec2{Y: 1}) {
		t.Errorf("got normal %v want (0,1)", wm.Normal)
	}
	for i := 0; i < m.PointCount; i++ {
		if !near(wm.Separations[i], -0.12) {
			t.Errorf("point %d: got separation %v want -0.12", i, wm.Separations[i])
		}
	}

	// Sliding a little keeps the same features in contact.
	m2 := collide.CollidePolygons(a, at(0, 0), b, at(0.01, 1.4))
	s1, s2 := collide.PointStates(&m, &m2)
	for i := 0; i < 2; i++ {
		if s1[i] != collide.PointPersist || s2[i] != collide.PointPersist {
			t.Errorf("point %d: got states %v %v want persist", i, s1[i], s2[i])
		}
	}

	m = collide.CollidePolygons(a, at(0, 0), b, at(0, 3))
	if m.PointCount != 0 {
		t.Errorf("got %d points for separated boxes", m.PointCount)
	}
}

func TestPointStatesAddRemove(t *testing.T) {
	var prev, next collide.Manifold
	prev.PointCount = 1
	prev.Points[0].ID = collide.ContactID{IndexA: 1}
	next.PointCount = 1
	next.Points[0].ID = collide.ContactID{IndexA: 2}

	s1, s2 := collide.PointStates(&prev, &next)
	if s1[0] != collide.PointRemove || s2[0] != collide.PointAdd {
		t.Errorf("got %v %v want remove add", s1[0], s2[0])
	}
	if s1[1] != collide.PointNull || s2[1] != collide.PointNull {
		t.Errorf("unused slots not null")
	}
}

func TestClipSegmentToLine(t *testing.T) {
	in := [2]collide.ClipVertex{
		{V: vec.Vec2{X: -1}},
		{V: vec.Vec2{X: 1}},
	}
	out, n := collide.ClipSegmentToLine(in, vec.Vec2{X: 1}, 0.5, 3)
	if n != 2 {
		t.Fatalf("got %d points want 2", n)
	}
	if !nearVec(out[1].V, vec.Vec2{X: 0.5}) {
		t.Errorf("got %v want (0.5,0)", out[1].V)
	}
	if out[1].ID.IndexA != 3 || out[1].ID.TypeA != collide.FeatureVertex {
		t.Errorf("got id %+v", out[1].ID)
	}
}

func TestDistance(t *testing.T) {
	a := geom.NewBox(1, 1)
	b := geom.NewBox(1, 1)
	input := collide.DistanceInput{
		ProxyA:     a.Proxy(),
		ProxyB:     b.Proxy(),
		TransformA: at(0, 0),
		TransformB: at(5, 0),
	}

	var cache collide.SimplexCache
	out := collide.Distance(&cache, &input)
	if !near(out.Distance, 3) {
		t.Errorf("got %v want 3", out.Distance)
	}

	input.UseRadii = true
	out = collide.Distance(&cache, &input)
	if !near(out.Distance, 3-2*geom.PolygonRadius) {
		t.Errorf("got %v want %v", out.Distance, 3-2*geom.PolygonRadius)
	}

	c := geom.NewCircle(vec.Vec2{}, 1)
	if collide.TestOverlap(c, at(0, 0), c, at(3, 0)) {
		t.Error("separated circles overlap")
	}
	if !collide.TestOverlap(c, at(0, 0), a, at(1.5, 0)) {
		t.Error("overlapping shapes reported apart")
	}
}

func sweep(from, to vec.Vec2) geom.Sweep {
	return geom.Sweep{C0: from, C: to}
}

func TestTimeOfImpact(t *testing.T) {
	c := geom.NewCircle(vec.Vec2{}, 0.5)
	input := collide.TOIInput{
		ProxyA: c.Proxy(),
		ProxyB: c.Proxy(),
		SweepA: sweep(vec.Vec2{}, vec.Vec2{}),
		SweepB: sweep(vec.Vec2{X: 10}, vec.Vec2{X: -10}),
		TMax:   1,
	}

	out := collide.TimeOfImpact(&input)
	if out.State != collide.TOITouching {
		t.Fatalf("got %v want touching", out.State)
	}
	target := 1 - 3*geom.LinearSlop
	if want := (10 - target) / 20; math.Abs(out.T-want) > 1e-6 {
		t.Errorf("got t %v want %v", out.T, want)
	}

	input.SweepB = sweep(vec.Vec2{X: 2}, vec.Vec2{X: 10})
	out = collide.TimeOfImpact(&input)
	if out.State != collide.TOISeparated || out.T != 1 {
		t.Errorf("got %v at %v want separated at 1", out.State, out.T)
	}
}

func TestTimeOfImpactThinWall(t *testing.T) {
	wall := geom.NewBox(0.05, 5)
	bullet := geom.NewCircle(vec.Vec2{}, 0.1)
	input := collide.TOIInput{
		ProxyA: wall.Proxy(),
		ProxyB: bullet.Proxy(),
		SweepA: sweep(vec.Vec2{}, vec.Vec2{}),
		SweepB: sweep(vec.Vec2{X: -5}, vec.Vec2{X: 5}),
		TMax:   1,
	}

	out := collide.TimeOfImpact(&input)
	if out.State != collide.TOITouching {
		t.Fatalf("got %v want touching", out.State)
	}
	xf := input.SweepB.Transform(out.T)
	if xf.P.X > -0.05 {
		t.Errorf("bullet passed the wall face: x=%v", xf.P.X)
	}
}
