package kinetic_test

import (
	"math"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/setanarut/kinetic"
	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

const dt = 1.0 / 60.0

func step(w *kinetic.World, n int) {
	for range n {
		w.Step(dt, 8, 3)
	}
}

func newGround(w *kinetic.World) *kinetic.Body {
	ground := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	w.CreateFixtureFromShape(ground, geom.NewBox(10, 0.5), 0)
	return ground
}

func newBall(w *kinetic.World, x, y, r float64) *kinetic.Body {
	def := kinetic.NewBodyDef(kinetic.Dynamic)
	def.Position = vec.Vec2{X: x, Y: y}
	ball := w.CreateBody(def)
	w.CreateFixtureFromShape(ball, geom.NewCircle(vec.Vec2{}, r), 1)
	return ball
}

func newCrate(w *kinetic.World, x, y, h float64) *kinetic.Body {
	def := kinetic.NewBodyDef(kinetic.Dynamic)
	def.Position = vec.Vec2{X: x, Y: y}
	crate := w.CreateBody(def)
	w.CreateFixtureFromShape(crate, geom.NewBox(h, h), 1)
	return crate
}

func mustPanic(t *testing.T, name string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	f()
}

func TestStaticBodyUnchanged(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{Y: -10})
	ground := newGround(w)
	ground.ApplyForceToCenter(vec.Vec2{X: 100, Y: 100}, true)
	ground.SetVelocity(vec.Vec2{X: 5})
	newCrate(w, 0, 1, 0.5)

	step(w, 60)

	if got := ground.Position(); got != (vec.Vec2{}) {
		t.Errorf("got position %v want origin", got)
	}
	if got := ground.Velocity(); got != (vec.Vec2{}) {
		t.Errorf("got velocity %v want zero", got)
	}
	if ground.Angle() != 0 || ground.Mass() != 0 {
		t.Errorf("got angle %v mass %v want 0 0", ground.Angle(), ground.Mass())
	}
}

func TestFreeFall(t *testing.T) {
	g := -10.0
	w := kinetic.NewWorld(vec.Vec2{Y: g})
	ball := newBall(w, 0, 0, 0.5)

	n := 60
	step(w, n)

	wantV := float64(n) * g * dt
	if got := ball.Velocity().Y; math.Abs(got-wantV) > 1e-9 {
		t.Errorf("got velocity %v want %v", got, wantV)
	}
	// Semi-implicit Euler: the position uses the updated velocity.
	wantY := g * dt * dt * float64(n*(n+1)) / 2
	if got := ball.Position().Y; math.Abs(got-wantY) > 1e-9 {
		t.Errorf("got position %v want %v", got, wantY)
	}
	if ball.Position().X != 0 {
		t.Errorf("got x %v want 0", ball.Position().X)
	}
}

func TestStepZeroIsNoop(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{Y: -10})
	ball := newBall(w, 0, 3, 0.5)

	w.Step(0, 8, 3)
	w.Step(-1, 8, 3)

	if w.StepCount() != 0 {
		t.Errorf("got %d steps want 0", w.StepCount())
	}
	if ball.Position() != (vec.Vec2{X: 0, Y: 3}) || ball.Velocity() != (vec.Vec2{}) {
		t.Errorf("got %v %v, body moved", ball.Position(), ball.Velocity())
	}
}

func TestKinematicBody(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{Y: -10})
	def := kinetic.NewBodyDef(kinetic.Kinematic)
	def.LinearVelocity = vec.Vec2{X: 1}
	body := w.CreateBody(def)
	w.CreateFixtureFromShape(body, geom.NewBox(1, 0.1), 1)

	step(w, 60)

	if got := body.Position(); math.Abs(got.X-1) > 1e-9 || got.Y != 0 {
		t.Errorf("got position %v want (1, 0)", got)
	}
	if body.Mass() != 0 {
		t.Errorf("got mass %v want 0", body.Mass())
	}
}

func TestCrateRestsAndSleeps(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{Y: -10})
	newGround(w)
	crate := newCrate(w, 0, 1, 0.5)

	for i := 0; i < 600 && crate.IsAwake(); i++ {
		step(w, 1)
	}

	if crate.IsAwake() {
		t.Fatalf("crate still awake, velocity %v", crate.Velocity())
	}
	if got := crate.Position().Y; math.Abs(got-1) > 0.02 {
		t.Errorf("got height %v want 1", got)
	}
	if got := crate.Angle(); math.Abs(got) > 0.01 {
		t.Errorf("got angle %v want 0", got)
	}
	if crate.Velocity() != (vec.Vec2{}) {
		t.Errorf("got velocity %v for a sleeping body", crate.Velocity())
	}

	// A touch wakes it.
	crate.ApplyLinearImpulse(vec.Vec2{X: 1}, crate.WorldCenter(), true)
	if !crate.IsAwake() {
		t.Errorf("impulse did not wake the crate")
	}
}

func TestStableContactIDs(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{Y: -10})
	newGround(w)
	newCrate(w, 0, 1, 0.5)

	keys := func() []uint32 {
		if w.ContactCount() != 1 {
			t.Fatalf("got %d contacts want 1", w.ContactCount())
		}
		m := w.Contacts()[0].Manifold()
		var k []uint32
		for i := 0; i < m.PointCount; i++ {
			k = append(k, m.Points[i].ID.Key())
		}
		return k
	}

	step(w, 1)
	first := keys()
	step(w, 1)
	second := keys()

	if len(first) != 2 {
		t.Fatalf("got %d points want 2", len(first))
	}
	if len(second) != len(first) || first[0] != second[0] || first[1] != second[1] {
		t.Errorf("got ids %v then %v", first, second)
	}
}

func TestBulletStopsAtThinWall(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{})
	wall := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	w.CreateFixtureFromShape(wall, geom.NewOrientedBox(0.05, 5, vec.Vec2{X: 5}, 0), 0)

	def := kinetic.NewBodyDef(kinetic.Dynamic)
	def.Bullet = true
	def.LinearVelocity = vec.Vec2{X: 300}
	bullet := w.CreateBody(def)
	w.CreateFixtureFromShape(bullet, geom.NewCircle(vec.Vec2{}, 0.1), 1)

	for range 60 {
		step(w, 1)
		if x := bullet.Position().X; x > 4.95 {
			t.Fatalf("bullet passed the wall, x = %v", x)
		}
	}
	if w.TOICount() == 0 {
		t.Errorf("got no time of impact events")
	}
}

func TestBulletReboundsFromThinWall(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{})
	wall := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	w.CreateFixtureFromShape(wall, geom.NewOrientedBox(0.01, 5, vec.Vec2{X: 5}, 0), 0)

	def := kinetic.NewBodyDef(kinetic.Dynamic)
	def.Bullet = true
	def.LinearVelocity = vec.Vec2{X: 300, Y: 30}
	bullet := w.CreateBody(def)
	w.CreateFixtureFromShape(bullet, geom.NewCircle(vec.Vec2{}, 0.1), 1).SetRestitution(1)

	for range 10 {
		step(w, 1)
		if x := bullet.Position().X; x > 4.99 {
			t.Fatalf("bullet passed the wall, x = %v", x)
		}
	}
	if v := bullet.Velocity(); v.X >= 0 {
		t.Errorf("bullet did not rebound, velocity = %v", v)
	}
	if x := bullet.Position().X; x >= 0 {
		t.Errorf("bullet stuck near the wall, x = %v", x)
	}
}

func TestOverlappingBulletMovesAway(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{})
	newGround(w)

	def := kinetic.NewBodyDef(kinetic.Dynamic)
	def.Bullet = true
	def.Position = vec.Vec2{Y: 0.5}
	def.LinearVelocity = vec.Vec2{X: 2, Y: 5}
	bullet := w.CreateBody(def)
	w.CreateFixtureFromShape(bullet, geom.NewCircle(vec.Vec2{}, 0.5), 1)

	step(w, 30)
	if y := bullet.Position().Y; y <= 2 {
		t.Errorf("bullet frozen in the ground, y = %v", y)
	}
}

func TestFastBodyStopsAtThinWall(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{})
	wall := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	w.CreateFixtureFromShape(wall, geom.NewOrientedBox(0.05, 5, vec.Vec2{X: 5}, 0), 0)

	ball := newBall(w, 0, 0, 0.1)
	ball.SetVelocity(vec.Vec2{X: 120})

	step(w, 30)
	if x := ball.Position().X; x > 4.95 {
		t.Errorf("ball passed the wall, x = %v", x)
	}
}

func TestContinuousPhysicsOff(t *testing.T) {
	s := kinetic.DefaultSettings()
	s.ContinuousPhysics = false
	w := kinetic.NewWorld(vec.Vec2{}, kinetic.WithSettings(s))
	wall := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	w.CreateFixtureFromShape(wall, geom.NewOrientedBox(0.05, 5, vec.Vec2{X: 5}, 0), 0)

	ball := newBall(w, 0, 0, 0.1)
	ball.SetVelocity(vec.Vec2{X: 120})

	step(w, 30)
	if x := ball.Position().X; x < 5 {
		t.Errorf("got x = %v, expected the ball to tunnel", x)
	}
}

type bodyState struct {
	ID    int
	P     vec.Vec2
	Angle float64
	V     vec.Vec2
	W     float64
	Awake bool
}

func runStacks(workers int) string {
	w := kinetic.NewWorld(vec.Vec2{Y: -10}, kinetic.WithWorkers(workers))
	ground := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	w.CreateFixtureFromShape(ground, geom.NewBox(20, 0.5), 0)

	for _, x := range []float64{-12, -6, 0, 6, 12} {
		for i := range 5 {
			newCrate(w, x+0.05*float64(i), 1+float64(i), 0.5)
		}
		ball := newBall(w, x-0.3, 8, 0.4)
		ball.SetAngularVelocity(3)
	}

	step(w, 150)

	states := make([]bodyState, 0, w.BodyCount())
	for _, b := range w.Bodies() {
		states = append(states, bodyState{b.ID(), b.Position(), b.Angle(), b.Velocity(), b.AngularVelocity(), b.IsAwake()})
	}
	cfg := spew.ConfigState{Indent: " ", DisableMethods: true, DisablePointerAddresses: true}
	return cfg.Sdump(states)
}

func TestDeterminism(t *testing.T) {
	want := runStacks(1)
	for _, workers := range []int{1, 4} {
		got := runStacks(workers)
		if got == want {
			continue
		}
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(want),
			B:        difflib.SplitLines(got),
			FromFile: "sequential",
			ToFile:   "workers",
			Context:  2,
		})
		t.Errorf("workers %d diverged:\n%s", workers, diff)
	}
}

func TestDestroyBodyCascades(t *testing.T) {
	var joints, fixtures int
	w := kinetic.NewWorld(vec.Vec2{Y: -10}, kinetic.WithDestructionListener(&kinetic.DestructionListener{
		JointGoodbye:   func(j kinetic.Joint) { joints++ },
		FixtureGoodbye: func(f *kinetic.Fixture) { fixtures++ },
	}))
	ground := newGround(w)
	crate := newCrate(w, 0, 1, 0.5)
	w.CreateFixtureFromShape(crate, geom.NewCircle(vec.Vec2{Y: 0.5}, 0.25), 1)
	jd := kinetic.NewRevoluteJointDef(ground, crate, vec.Vec2{Y: 1})
	jd.CollideConnected = true
	w.CreateJoint(jd)

	step(w, 2)
	if w.ContactCount() == 0 {
		t.Fatalf("got no contacts before destroy")
	}

	w.DestroyBody(crate)

	if joints != 1 || fixtures != 2 {
		t.Errorf("got %d joint and %d fixture goodbyes want 1 and 2", joints, fixtures)
	}
	if w.JointCount() != 0 || w.ContactCount() != 0 || w.BodyCount() != 1 {
		t.Errorf("got %d joints %d contacts %d bodies", w.JointCount(), w.ContactCount(), w.BodyCount())
	}
	if w.ProxyCount() != 1 {
		t.Errorf("got %d proxies want 1", w.ProxyCount())
	}
	if crate.World() != nil || len(ground.Joints()) != 0 {
		t.Errorf("destroyed body still linked")
	}

	mustPanic(t, "destroy twice", func() { w.DestroyBody(crate) })
}

func TestDestroyFixtureResetsMass(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{})
	body := w.CreateBody(kinetic.NewBodyDef(kinetic.Dynamic))
	big := w.CreateFixtureFromShape(body, geom.NewBox(1, 1), 1)
	w.CreateFixtureFromShape(body, geom.NewBox(0.5, 0.5), 1)

	if got := body.Mass(); math.Abs(got-5) > 1e-9 {
		t.Fatalf("got mass %v want 5", got)
	}
	w.DestroyFixture(big)
	if got := body.Mass(); math.Abs(got-1) > 1e-9 {
		t.Errorf("got mass %v want 1", got)
	}
	if len(body.Fixtures()) != 1 || big.Body() != nil {
		t.Errorf("fixture still attached")
	}
	mustPanic(t, "destroy fixture twice", func() { w.DestroyFixture(big) })
}

func TestTooManyFixtures(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{})
	body := w.CreateBody(kinetic.NewBodyDef(kinetic.Dynamic))
	for range kinetic.MaxFixturesPerBody {
		w.CreateFixtureFromShape(body, geom.NewCircle(vec.Vec2{}, 0.1), 1)
	}
	mustPanic(t, "fixture over the limit", func() {
		w.CreateFixtureFromShape(body, geom.NewCircle(vec.Vec2{}, 0.1), 1)
	})
}

func TestQueryAABB(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{})
	var boxes []*kinetic.Fixture
	for _, x := range []float64{0, 5, 10} {
		def := kinetic.NewBodyDef(kinetic.Static)
		def.Position = vec.Vec2{X: x}
		b := w.CreateBody(def)
		boxes = append(boxes, w.CreateFixtureFromShape(b, geom.NewBox(0.5, 0.5), 0))
	}

	var found []*kinetic.Fixture
	w.QueryAABB(geom.NewBB(4, -1, 6, 1), func(f *kinetic.Fixture) bool {
		found = append(found, f)
		return true
	})
	if len(found) != 1 || found[0] != boxes[1] {
		t.Errorf("got %v want %v", found, boxes[1])
	}

	count := 0
	w.QueryAABB(geom.NewBB(-10, -10, 20, 10), func(f *kinetic.Fixture) bool {
		count++
		return false
	})
	if count != 1 {
		t.Errorf("got %d callbacks after stop want 1", count)
	}
}

func TestQueryPointAndShape(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{})
	box := newCrate(w, 0, 0, 1).Fixtures()[0]
	ball := newBall(w, 3, 0, 1).Fixtures()[0]

	var found []*kinetic.Fixture
	w.QueryPoint(vec.Vec2{X: 0.9, Y: 0.9}, func(f *kinetic.Fixture) bool {
		found = append(found, f)
		return true
	})
	if len(found) != 1 || found[0] != box {
		t.Errorf("got %v want %v", found, box)
	}
	// Inside the fat box of the ball but outside its circle.
	w.QueryPoint(vec.Vec2{X: 3.95, Y: 0.95}, func(f *kinetic.Fixture) bool {
		t.Errorf("got %v for a point outside every shape", f)
		return true
	})

	query := geom.NewCircle(vec.Vec2{}, 0.6)
	found = found[:0]
	hit := w.QueryShape(query, geom.NewTransform(vec.Vec2{X: 1.3}, 0), kinetic.FilterAll, func(f *kinetic.Fixture) bool {
		found = append(found, f)
		return true
	})
	if !hit || len(found) != 1 || found[0] != box {
		t.Errorf("got hit %v fixtures %v want %v", hit, found, box)
	}

	if w.QueryShape(query, geom.NewTransform(vec.Vec2{X: 1.3}, 0), kinetic.FilterNone, nil) {
		t.Errorf("FilterNone query overlapped")
	}
	found = found[:0]
	w.QueryShape(query, geom.NewTransform(vec.Vec2{X: 2.5}, 0), kinetic.FilterAll, func(f *kinetic.Fixture) bool {
		found = append(found, f)
		return true
	})
	if len(found) != 1 || found[0] != ball {
		t.Errorf("got %v want %v", found, ball)
	}
}

func TestRayCastClosest(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{})
	var first *kinetic.Fixture
	for _, x := range []float64{10, 0, 5} {
		def := kinetic.NewBodyDef(kinetic.Static)
		def.Position = vec.Vec2{X: x}
		b := w.CreateBody(def)
		f := w.CreateFixtureFromShape(b, geom.NewBox(0.5, 0.5), 0)
		if x == 0 {
			first = f
		}
	}

	var hit *kinetic.Fixture
	var point, normal vec.Vec2
	w.RayCast(vec.Vec2{X: -5}, vec.Vec2{X: 15}, func(f *kinetic.Fixture, p, n vec.Vec2, fraction float64) float64 {
		hit, point, normal = f, p, n
		return fraction
	})

	if hit != first {
		t.Fatalf("got %v want %v", hit, first)
	}
	if math.Abs(point.X+0.5) > 1e-9 || math.Abs(point.Y) > 1e-9 {
		t.Errorf("got point %v want (-0.5, 0)", point)
	}
	if math.Abs(normal.X+1) > 1e-9 {
		t.Errorf("got normal %v want (-1, 0)", normal)
	}

	hits := 0
	w.RayCast(vec.Vec2{X: -5}, vec.Vec2{X: 15}, func(f *kinetic.Fixture, p, n vec.Vec2, fraction float64) float64 {
		hits++
		return 1
	})
	if hits != 3 {
		t.Errorf("got %d hits want 3", hits)
	}
}

func TestDebugInfo(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{Y: -10})
	newGround(w)
	newCrate(w, 0, 1, 0.5)
	step(w, 1)

	info := kinetic.DebugInfo(w)
	for _, want := range []string{"Bodies: 2", "Contacts: 1 (1 touching)", "Contact Points: 2", "Steps: 1"} {
		if !strings.Contains(info, want) {
			t.Errorf("got %q, missing %q", info, want)
		}
	}
}

func TestInvalidSettingsPanics(t *testing.T) {
	mustPanic(t, "zero workers", func() {
		kinetic.NewWorld(vec.Vec2{}, kinetic.WithWorkers(0))
	})
}
