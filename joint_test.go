package kinetic_test

import (
	"math"
	"testing"

	"github.com/setanarut/kinetic"
	"github.com/setanarut/vec"
)

func anchorGap(j kinetic.Joint) float64 {
	return j.AnchorB().Sub(j.AnchorA()).Mag()
}

func TestRevolutePendulum(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{Y: -10})
	ground := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	bob := newCrate(w, 2, 0, 0.25)

	j := w.CreateJoint(kinetic.NewRevoluteJointDef(ground, bob, vec.Vec2{})).(*kinetic.RevoluteJoint)
	if j.Type() != kinetic.RevoluteJointType {
		t.Fatalf("got type %v", j.Type())
	}

	for i := range 120 {
		step(w, 1)
		if gap := anchorGap(j); gap > 0.02 {
			t.Fatalf("got anchor gap %v", gap)
		}
		// Near the bottom of the first swing.
		if i == 44 && bob.Position().Y > -1 {
			t.Errorf("got %v, the pendulum did not swing down", bob.Position())
		}
	}
	if r := bob.Position().Mag(); math.Abs(r-2) > 0.02 {
		t.Errorf("got radius %v want 2", r)
	}
}

func TestRevoluteLimit(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{Y: -10})
	ground := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	bob := newCrate(w, 2, 0, 0.25)

	def := kinetic.NewRevoluteJointDef(ground, bob, vec.Vec2{})
	def.EnableLimit = true
	def.LowerAngle = -0.25 * math.Pi
	def.UpperAngle = 0
	j := w.CreateJoint(def).(*kinetic.RevoluteJoint)

	step(w, 120)

	if angle := j.JointAngle(); angle < -0.25*math.Pi-0.05 {
		t.Errorf("got angle %v past the lower limit", angle)
	}
}

func TestRevoluteMotor(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{})
	ground := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	wheel := newBall(w, 0, 0, 1)

	def := kinetic.NewRevoluteJointDef(ground, wheel, vec.Vec2{})
	def.EnableMotor = true
	def.MotorSpeed = 2
	def.MaxMotorTorque = 1000
	j := w.CreateJoint(def).(*kinetic.RevoluteJoint)

	step(w, 30)

	if got := j.JointSpeed(); math.Abs(got-2) > 1e-3 {
		t.Errorf("got speed %v want 2", got)
	}
}

func TestDistanceJoint(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{Y: -10})
	ground := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	bob := newBall(w, 2, 0, 0.25)

	j := w.CreateJoint(kinetic.NewDistanceJointDef(ground, bob, vec.Vec2{}, bob.Position())).(*kinetic.DistanceJoint)
	if math.Abs(j.Length()-2) > 1e-12 {
		t.Fatalf("got length %v want 2", j.Length())
	}

	step(w, 120)

	if gap := anchorGap(j); math.Abs(gap-2) > 0.02 {
		t.Errorf("got distance %v want 2", gap)
	}
}

func TestRopeJoint(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{Y: -10})
	ground := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	bob := newBall(w, 1, 0, 0.25)

	j := w.CreateJoint(kinetic.NewRopeJointDef(ground, bob, vec.Vec2{}, bob.Position())).(*kinetic.RopeJoint)

	for range 120 {
		step(w, 1)
		if gap := anchorGap(j); gap > j.MaxLength()+0.02 {
			t.Fatalf("got length %v over max %v", gap, j.MaxLength())
		}
	}

	// A slack rope lets the body fall.
	j.SetMaxLength(3)
	step(w, 10)
	if j.IsTaut() {
		t.Errorf("rope taut after lengthening")
	}
}

func TestPrismaticJoint(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{Y: -10})
	ground := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	slider := newCrate(w, 0, 5, 0.5)
	slider.SetVelocity(vec.Vec2{X: 1})

	w.CreateJoint(kinetic.NewPrismaticJointDef(ground, slider, slider.Position(), vec.Vec2{X: 1}))

	step(w, 60)

	if y := slider.Position().Y; math.Abs(y-5) > 0.01 {
		t.Errorf("got y %v want 5", y)
	}
	if a := slider.Angle(); math.Abs(a) > 0.01 {
		t.Errorf("got angle %v want 0", a)
	}
	if x := slider.Position().X; x < 0.9 {
		t.Errorf("got x %v, the slider stopped", x)
	}
}

func TestWeldJoint(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{Y: -10})
	ground := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	beam := newCrate(w, 1, 0, 0.25)

	w.CreateJoint(kinetic.NewWeldJointDef(ground, beam, vec.Vec2{}))

	step(w, 60)

	if a := beam.Angle(); math.Abs(a) > 0.05 {
		t.Errorf("got angle %v want 0", a)
	}
	if d := beam.Position().Sub(vec.Vec2{X: 1}).Mag(); d > 0.05 {
		t.Errorf("got position %v want (1, 0)", beam.Position())
	}
}

func TestMouseJoint(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{})
	ground := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	ball := newBall(w, 0, 0, 0.5)

	j := w.CreateJoint(kinetic.NewMouseJointDef(ground, ball, ball.Position(), 1000*ball.Mass())).(*kinetic.MouseJoint)
	j.SetTarget(vec.Vec2{X: 2})

	step(w, 180)

	if d := ball.Position().Sub(j.Target()).Mag(); d > 0.05 {
		t.Errorf("got %v want near %v", ball.Position(), j.Target())
	}
}

func newWheel(w *kinetic.World, ground *kinetic.Body, x float64) *kinetic.Body {
	wheel := newBall(w, x, 0, 0.5)
	w.CreateJoint(kinetic.NewRevoluteJointDef(ground, wheel, wheel.Position()))
	return wheel
}

func TestGearJoint(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{})
	ground := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	a := newWheel(w, ground, -2)
	b := newWheel(w, ground, 2)

	j := w.CreateJoint(kinetic.NewGearJointDef(a, b, 2)).(*kinetic.GearJoint)
	if j.Type() != kinetic.GearJointType || j.Phase() != 0 {
		t.Fatalf("got type %v phase %v", j.Type(), j.Phase())
	}
	a.SetAngularVelocity(4)

	for range 60 {
		step(w, 1)
		if d := 2*b.AngularVelocity() - a.AngularVelocity(); math.Abs(d) > 1e-3 {
			t.Fatalf("got angular velocities %v %v want ratio 2", a.AngularVelocity(), b.AngularVelocity())
		}
	}
	if a.AngularVelocity() == 0 {
		t.Errorf("gear stopped both wheels")
	}
	if d := 2*b.Angle() - a.Angle(); math.Abs(d) > 0.01 {
		t.Errorf("got angles %v %v want ratio 2", a.Angle(), b.Angle())
	}

	mustPanic(t, "zero gear ratio", func() { j.SetRatio(0) })
}

func TestRotarySpringJoint(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{})
	ground := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	wheel := newWheel(w, ground, 0)

	j := w.CreateJoint(kinetic.NewRotarySpringJointDef(ground, wheel, 1, 1)).(*kinetic.RotarySpringJoint)
	if j.Type() != kinetic.RotarySpringJointType || j.RestAngle() != 0 {
		t.Fatalf("got type %v rest angle %v", j.Type(), j.RestAngle())
	}
	wheel.SetAngularVelocity(5)

	peak := 0.0
	for range 300 {
		step(w, 1)
		peak = math.Max(peak, wheel.Angle())
	}
	if peak < 0.1 {
		t.Errorf("got peak angle %v, the wheel did not turn", peak)
	}
	if a := wheel.Angle(); math.Abs(a) > 0.01 {
		t.Errorf("got angle %v want back at rest", a)
	}
}

func TestJointContractViolations(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{})
	a := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	b := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	c := newBall(w, 0, 0, 1)

	mustPanic(t, "joint between two static bodies", func() {
		w.CreateJoint(kinetic.NewRevoluteJointDef(a, b, vec.Vec2{}))
	})
	mustPanic(t, "joint between a body and itself", func() {
		w.CreateJoint(kinetic.NewRevoluteJointDef(c, c, vec.Vec2{}))
	})

	j := w.CreateJoint(kinetic.NewRevoluteJointDef(a, c, vec.Vec2{}))
	w.DestroyJoint(j)
	mustPanic(t, "destroy joint twice", func() { w.DestroyJoint(j) })
}

func TestJointDisablesCollision(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{})
	a := newCrate(w, 0, 0, 0.5)
	b := newCrate(w, 0.5, 0, 0.5)

	step(w, 1)
	if w.ContactCount() != 1 {
		t.Fatalf("got %d contacts want 1", w.ContactCount())
	}

	j := w.CreateJoint(kinetic.NewRevoluteJointDef(a, b, vec.Vec2{X: 0.25}))
	step(w, 1)
	if w.ContactCount() != 0 {
		t.Errorf("got %d contacts between jointed bodies", w.ContactCount())
	}

	w.DestroyJoint(j)
	if len(a.Joints()) != 0 || len(b.Joints()) != 0 || w.JointCount() != 0 {
		t.Fatalf("joint still linked")
	}
	step(w, 1)
	if w.ContactCount() != 1 {
		t.Errorf("got %d contacts after destroying the joint want 1", w.ContactCount())
	}
}

func TestJointWakesSleepingBody(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{Y: -10})
	newGround(w)
	crate := newCrate(w, 0, 1, 0.5)
	for i := 0; i < 600 && crate.IsAwake(); i++ {
		step(w, 1)
	}
	if crate.IsAwake() {
		t.Fatalf("crate never slept")
	}

	ball := newBall(w, 3, 1, 0.5)
	jd := kinetic.NewDistanceJointDef(crate, ball, crate.Position(), ball.Position())
	w.CreateJoint(jd)
	step(w, 1)

	if !crate.IsAwake() {
		t.Errorf("a joint to an awake body did not wake the crate")
	}
}
