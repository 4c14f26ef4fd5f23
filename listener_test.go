package kinetic_test

import (
	"testing"

	"github.com/setanarut/kinetic"
	"github.com/setanarut/kinetic/collide"
	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

func TestBeginEnd(t *testing.T) {
	var begins, ends int
	w := kinetic.NewWorld(vec.Vec2{}, kinetic.WithContactListener(&kinetic.ContactListener{
		Begin: func(c *kinetic.Contact) { begins++ },
		End:   func(c *kinetic.Contact) { ends++ },
	}))
	newBall(w, 0, 0, 1)
	b := newBall(w, 1.5, 0, 1)

	step(w, 1)
	if begins != 1 || ends != 0 {
		t.Fatalf("got %d begins %d ends want 1 0", begins, ends)
	}
	c := w.Contacts()[0]
	if c.Manifold().PointCount != 1 || !c.IsTouching() {
		t.Fatalf("got %d points touching %v", c.Manifold().PointCount, c.IsTouching())
	}
	wm := c.WorldManifold()
	fa, fb := c.FixtureA().Body(), c.FixtureB().Body()
	want := fb.Position().Sub(fa.Position()).Unit()
	if wm.Normal.Sub(want).Mag() > 1e-9 {
		t.Errorf("got normal %v want %v", wm.Normal, want)
	}
	b.SetPosition(vec.Vec2{X: 10})
	step(w, 1)
	if ends != 1 {
		t.Errorf("got %d ends want 1", ends)
	}
	if w.ContactCount() != 0 {
		t.Errorf("got %d contacts want 0", w.ContactCount())
	}
}

func TestPreSolveDisable(t *testing.T) {
	presolves := 0
	w := kinetic.NewWorld(vec.Vec2{Y: -10}, kinetic.WithContactListener(&kinetic.ContactListener{
		PreSolve: func(c *kinetic.Contact, old *collide.Manifold) {
			presolves++
			c.SetEnabled(false)
		},
	}))
	newGround(w)
	ball := newBall(w, 0, 1.5, 0.5)

	step(w, 120)

	if presolves == 0 {
		t.Errorf("PreSolve never called")
	}
	if y := ball.Position().Y; y > -1 {
		t.Errorf("got y = %v, ball should fall through", y)
	}
}

func TestPostSolveImpulse(t *testing.T) {
	var normal float64
	w := kinetic.NewWorld(vec.Vec2{Y: -10}, kinetic.WithContactListener(&kinetic.ContactListener{
		PostSolve: func(c *kinetic.Contact, impulse *kinetic.ContactImpulse) {
			normal = 0
			for i := 0; i < impulse.Count; i++ {
				normal += impulse.NormalImpulses[i]
			}
		},
	}))
	newGround(w)
	crate := newCrate(w, 0, 1, 0.5)

	step(w, 20)

	// At rest the contact carries the weight over one step.
	want := crate.Mass() * 10 * dt
	if normal < 0.5*want || normal > 1.5*want {
		t.Errorf("got normal impulse %v want about %v", normal, want)
	}
}

func TestFilterGroups(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{Y: -10})
	ground := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	gd := kinetic.NewFixtureDef(geom.NewBox(10, 0.5))
	gd.Filter.Group = -1
	w.CreateFixture(ground, gd)

	def := kinetic.NewBodyDef(kinetic.Dynamic)
	def.Position = vec.Vec2{Y: 1.5}
	ball := w.CreateBody(def)
	bd := kinetic.NewFixtureDef(geom.NewCircle(vec.Vec2{}, 0.5))
	bd.Filter.Group = -1
	ballFixture := w.CreateFixture(ball, bd)

	step(w, 10)
	if w.ContactCount() != 0 {
		t.Errorf("got %d contacts for a negative group", w.ContactCount())
	}

	// Moving the ball to another group lets the pair collide again.
	ball.SetTransform(vec.Vec2{Y: 0.99}, 0)
	ballFixture.SetFilter(kinetic.FilterAll)
	step(w, 1)
	if w.ContactCount() != 1 {
		t.Errorf("got %d contacts after refilter want 1", w.ContactCount())
	}
}

func TestFilterMask(t *testing.T) {
	a := kinetic.Filter{Categories: 1, Mask: 2}
	b := kinetic.Filter{Categories: 2, Mask: 1}
	c := kinetic.Filter{Categories: 4, Mask: 0xFFFF}
	if a.Reject(b) {
		t.Errorf("got %v rejecting %v", a, b)
	}
	if !a.Reject(c) {
		t.Errorf("got %v accepting %v", a, c)
	}
	same := kinetic.Filter{Group: 3, Categories: 1, Mask: 0}
	if same.Reject(same) {
		t.Errorf("a positive shared group must collide")
	}
}

func TestContactFilter(t *testing.T) {
	calls := 0
	w := kinetic.NewWorld(vec.Vec2{Y: -10}, kinetic.WithContactFilter(func(a, b *kinetic.Fixture) bool {
		calls++
		return false
	}))
	newGround(w)
	newBall(w, 0, 0.9, 0.5)

	step(w, 1)
	if calls == 0 || w.ContactCount() != 0 {
		t.Errorf("got %d filter calls and %d contacts", calls, w.ContactCount())
	}
}

func TestSensor(t *testing.T) {
	var begins, ends int
	w := kinetic.NewWorld(vec.Vec2{Y: -10}, kinetic.WithContactListener(&kinetic.ContactListener{
		Begin: func(c *kinetic.Contact) {
			begins++
			if !c.IsSensor() {
				t.Errorf("got a solid contact")
			}
		},
		End: func(c *kinetic.Contact) { ends++ },
	}))
	ground := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	sd := kinetic.NewFixtureDef(geom.NewBox(10, 0.5))
	sd.Sensor = true
	w.CreateFixture(ground, sd)
	ball := newBall(w, 0, 2, 0.5)

	step(w, 120)

	if begins != 1 || ends != 1 {
		t.Errorf("got %d begins %d ends want 1 1", begins, ends)
	}
	if ball.Position().Y > -5 {
		t.Errorf("got y = %v, the sensor stopped the ball", ball.Position().Y)
	}
}

func TestLockedWorld(t *testing.T) {
	var w *kinetic.World
	var ball *kinetic.Body
	locked := false
	w = kinetic.NewWorld(vec.Vec2{Y: -10}, kinetic.WithContactListener(&kinetic.ContactListener{
		Begin: func(c *kinetic.Contact) {
			locked = w.IsLocked()
			mustPanic(t, "create body while locked", func() {
				w.CreateBody(kinetic.NewBodyDef(kinetic.Dynamic))
			})
			w.AddPostStepCallback(func(w *kinetic.World, key any) {
				w.DestroyBody(key.(*kinetic.Body))
			}, ball)
			if w.AddPostStepCallback(nil, ball) {
				t.Errorf("second callback for the same key was accepted")
			}
		},
	}))
	newGround(w)
	ball = newBall(w, 0, 0.9, 0.5)

	step(w, 1)

	if !locked {
		t.Errorf("world was not locked in the callback")
	}
	if w.IsLocked() {
		t.Errorf("world still locked after step")
	}
	if w.BodyCount() != 1 || ball.World() != nil {
		t.Errorf("post-step callback did not destroy the ball")
	}
}

func TestContactOverrides(t *testing.T) {
	w := kinetic.NewWorld(vec.Vec2{Y: -10})
	ground := w.CreateBody(kinetic.NewBodyDef(kinetic.Static))
	gd := kinetic.NewFixtureDef(geom.NewBox(10, 0.5))
	gd.Friction = 0.4
	gd.Restitution = 0.1
	w.CreateFixture(ground, gd)
	crate := w.CreateBody(func() *kinetic.BodyDef {
		d := kinetic.NewBodyDef(kinetic.Dynamic)
		d.Position = vec.Vec2{Y: 1}
		return d
	}())
	cd := kinetic.NewFixtureDef(geom.NewBox(0.5, 0.5))
	cd.Friction = 0.9
	cd.Restitution = 0.5
	w.CreateFixture(crate, cd)

	step(w, 1)
	c := w.Contacts()[0]
	if got, want := c.Friction(), kinetic.MixFriction(0.4, 0.9); got != want {
		t.Errorf("got friction %v want %v", got, want)
	}
	if got := c.Restitution(); got != 0.5 {
		t.Errorf("got restitution %v want 0.5", got)
	}
	c.SetFriction(0)
	c.ResetFriction()
	if got, want := c.Friction(), kinetic.MixFriction(0.4, 0.9); got != want {
		t.Errorf("got friction %v after reset want %v", got, want)
	}
}
