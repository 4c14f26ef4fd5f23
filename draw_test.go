package kinetic_test

import (
	"testing"

	"github.com/setanarut/kinetic"
	"github.com/setanarut/vec"
)

var (
	outlineColor = kinetic.FColor{R: 1, A: 1}
	jointColor   = kinetic.FColor{G: 1, A: 1}
	contactColor = kinetic.FColor{B: 1, A: 1}
	bbColor      = kinetic.FColor{R: 1, G: 1, A: 1}
)

type recorder struct {
	flags    uint
	circles  int
	polygons int
	segments map[kinetic.FColor]int
	dots     map[kinetic.FColor]int
}

func newRecorder(flags uint) *recorder {
	return &recorder{
		flags:    flags,
		segments: map[kinetic.FColor]int{},
		dots:     map[kinetic.FColor]int{},
	}
}

func (r *recorder) DrawCircle(center vec.Vec2, angle, radius float64, outline, fill kinetic.FColor, data any) {
	r.circles++
}

func (r *recorder) DrawSegment(a, b vec.Vec2, fill kinetic.FColor, data any) {
	r.segments[fill]++
}

func (r *recorder) DrawPolygon(verts []vec.Vec2, radius float64, outline, fill kinetic.FColor, data any) {
	r.polygons++
}

func (r *recorder) DrawDot(size float64, pos vec.Vec2, fill kinetic.FColor, data any) {
	r.dots[fill]++
}

func (r *recorder) Flags() uint                  { return r.flags }
func (r *recorder) OutlineColor() kinetic.FColor { return outlineColor }

func (r *recorder) FixtureColor(f *kinetic.Fixture, data any) kinetic.FColor {
	return kinetic.FColor{A: 1}
}

func (r *recorder) JointColor() kinetic.FColor        { return jointColor }
func (r *recorder) ContactPointColor() kinetic.FColor { return contactColor }
func (r *recorder) BBColor() kinetic.FColor           { return bbColor }
func (r *recorder) Data() any                         { return nil }

func drawScene() *kinetic.World {
	w := kinetic.NewWorld(vec.Vec2{})
	ground := newGround(w)
	newBall(w, 0, 0.9, 0.5)

	hinged := newBall(w, 3, 3, 0.5)
	w.CreateJoint(kinetic.NewRevoluteJointDef(ground, hinged, hinged.Position()))

	hanging := newBall(w, -3, 3, 0.5)
	spring := kinetic.NewDistanceJointDef(ground, hanging, vec.Vec2{X: -3, Y: 5}, hanging.Position())
	spring.FrequencyHz = 4
	spring.DampingRatio = 0.5
	w.CreateJoint(spring)

	step(w, 1)
	return w
}

func TestDrawWorld(t *testing.T) {
	w := drawScene()

	r := newRecorder(kinetic.DrawShapes | kinetic.DrawJoints | kinetic.DrawContactPoints)
	kinetic.DrawWorld(w, r)

	if r.circles != 3 || r.polygons != 1 {
		t.Errorf("got %d circles %d polygons want 3 1", r.circles, r.polygons)
	}
	// Three segments for the revolute joint plus the spring zigzag.
	if got := r.segments[jointColor]; got != 3+14 {
		t.Errorf("got %d joint segments want 17", got)
	}
	if got := r.dots[jointColor]; got != 2 {
		t.Errorf("got %d joint dots want 2", got)
	}
	if got := r.segments[contactColor]; got != 1 {
		t.Errorf("got %d contact segments want 1", got)
	}
	if r.segments[bbColor] != 0 || r.dots[outlineColor] != 0 {
		t.Errorf("drew unflagged layers")
	}
}

func TestDrawWorldOptionalLayers(t *testing.T) {
	w := drawScene()

	r := newRecorder(0)
	kinetic.DrawWorld(w, r)
	if r.circles+r.polygons+len(r.segments)+len(r.dots) != 0 {
		t.Errorf("drew with no flags set")
	}

	r = newRecorder(kinetic.DrawAABBs | kinetic.DrawCenterOfMass)
	kinetic.DrawWorld(w, r)
	if got := r.segments[bbColor]; got != 4*4 {
		t.Errorf("got %d box segments want 16", got)
	}
	if got := r.dots[outlineColor]; got != w.BodyCount() {
		t.Errorf("got %d center dots want %d", got, w.BodyCount())
	}
	if r.circles != 0 || r.polygons != 0 {
		t.Errorf("drew shapes without DrawShapes")
	}
}

func TestDrawAngularJoints(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{})
	ground := newGround(w)
	a := newBall(w, -2, 3, 0.5)
	b := newBall(w, 2, 3, 0.5)

	joints := []kinetic.Joint{
		w.CreateJoint(kinetic.NewGearJointDef(a, b, 2)),
		w.CreateJoint(kinetic.NewRotarySpringJointDef(ground, a, 1, 0.5)),
	}
	for _, j := range joints {
		r := newRecorder(kinetic.DrawJoints)
		kinetic.DrawJoint(j, r)
		if got := r.dots[jointColor]; got != 2 {
			t.Errorf("%v: got %d joint dots want 2", j.Type(), got)
		}
		if got := r.segments[jointColor]; got != 1 {
			t.Errorf("%v: got %d joint segments want 1", j.Type(), got)
		}
	}
}
