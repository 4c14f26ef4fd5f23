package kinetic

import (
	"fmt"
	"math"

	"github.com/setanarut/kinetic/collide"
	"github.com/setanarut/kinetic/geom"
)

// MixFriction combines the friction of two fixtures.
func MixFriction(a, b float64) float64 {
	return math.Sqrt(a * b)
}

// MixRestitution combines the restitution of two fixtures.
func MixRestitution(a, b float64) float64 {
	return math.Max(a, b)
}

// Contact tracks a pair of fixtures whose fat boxes overlap.
//
// A contact persists until the boxes separate so the solver can warm start
// from the impulses of the previous step. Touching means the manifold has
// points.
type Contact struct {
	// UserData is free for listeners.
	UserData any

	fixtureA, fixtureB *Fixture
	manifold           collide.Manifold
	evaluate           collideFunc

	friction    float64
	restitution float64

	touching bool
	// enabled is reset to true before every update.
	enabled    bool
	filterFlag bool
	islandFlag bool

	// Slot in the contact manager list.
	index int
}

func newContact(fA, fB *Fixture, fn collideFunc) *Contact {
	return &Contact{
		fixtureA:    fA,
		fixtureB:    fB,
		evaluate:    fn,
		friction:    MixFriction(fA.friction, fB.friction),
		restitution: MixRestitution(fA.restitution, fB.restitution),
		enabled:     true,
	}
}

func (c *Contact) String() string {
	return fmt.Sprintf("Contact %d-%d points %d touching %v", c.fixtureA.id, c.fixtureB.id, c.manifold.PointCount, c.touching)
}

func (c *Contact) FixtureA() *Fixture { return c.fixtureA }
func (c *Contact) FixtureB() *Fixture { return c.fixtureB }

// Bodies returns the bodies of fixture A and fixture B.
func (c *Contact) Bodies() (a, b *Body) {
	return c.fixtureA.body, c.fixtureB.body
}

// Manifold returns the local manifold. The pointer is valid until the next
// step.
func (c *Contact) Manifold() *collide.Manifold {
	return &c.manifold
}

// WorldManifold returns the manifold in world coordinates.
func (c *Contact) WorldManifold() collide.WorldManifold {
	bA, bB := c.Bodies()
	return collide.NewWorldManifold(&c.manifold, bA.xf, c.fixtureA.shape.Radius(), bB.xf, c.fixtureB.shape.Radius())
}

// IsTouching reports whether the manifold has points, or for sensors,
// whether the shapes overlap.
func (c *Contact) IsTouching() bool {
	return c.touching
}

// IsSensor reports whether either fixture is a sensor.
func (c *Contact) IsSensor() bool {
	return c.fixtureA.sensor || c.fixtureB.sensor
}

// IsEnabled reports whether the contact takes part in this step.
func (c *Contact) IsEnabled() bool {
	return c.enabled
}

// SetEnabled disables or enables the contact for the current step. Call it
// from PreSolve.
func (c *Contact) SetEnabled(flag bool) {
	c.enabled = flag
}

func (c *Contact) Friction() float64 { return c.friction }

// SetFriction overrides the mixed friction until ResetFriction.
func (c *Contact) SetFriction(friction float64) {
	c.friction = friction
}

// ResetFriction restores the mixed fixture friction.
func (c *Contact) ResetFriction() {
	c.friction = MixFriction(c.fixtureA.friction, c.fixtureB.friction)
}

func (c *Contact) Restitution() float64 { return c.restitution }

// SetRestitution overrides the mixed restitution until ResetRestitution.
func (c *Contact) SetRestitution(restitution float64) {
	c.restitution = restitution
}

// ResetRestitution restores the mixed fixture restitution.
func (c *Contact) ResetRestitution() {
	c.restitution = MixRestitution(c.fixtureA.restitution, c.fixtureB.restitution)
}

func (c *Contact) flagForFiltering() {
	c.filterFlag = true
}

// isActive reports whether the solver should see the contact.
func (c *Contact) isActive() bool {
	return c.touching && c.enabled && !c.IsSensor()
}

// update recomputes the manifold, carries impulses over by contact id and
// reports begin, end and pre-solve events.
func (c *Contact) update(listener *ContactListener) {
	oldManifold := c.manifold

	c.enabled = true

	wasTouching := c.touching
	sensor := c.IsSensor()

	bodyA, bodyB := c.Bodies()
	xfA, xfB := bodyA.xf, bodyB.xf

	var touching bool
	if sensor {
		touching = collide.TestOverlap(c.fixtureA.shape, xfA, c.fixtureB.shape, xfB)
		c.manifold.PointCount = 0
	} else {
		c.manifold = c.evaluate(c.fixtureA.shape, xfA, c.fixtureB.shape, xfB)
		touching = c.manifold.PointCount > 0

		for i := 0; i < c.manifold.PointCount; i++ {
			mp := &c.manifold.Points[i]
			mp.NormalImpulse = 0
			mp.TangentImpulse = 0
			key := mp.ID.Key()
			for j := 0; j < oldManifold.PointCount; j++ {
				old := &oldManifold.Points[j]
				if old.ID.Key() == key {
					mp.NormalImpulse = old.NormalImpulse
					mp.TangentImpulse = old.TangentImpulse
					break
				}
			}
		}

		if touching != wasTouching {
			bodyA.SetAwake(true)
			bodyB.SetAwake(true)
		}
	}

	c.touching = touching

	if listener == nil {
		return
	}
	if !wasTouching && touching && listener.Begin != nil {
		listener.Begin(c)
	}
	if wasTouching && !touching && listener.End != nil {
		listener.End(c)
	}
	if !sensor && touching && listener.PreSolve != nil {
		listener.PreSolve(c, &oldManifold)
	}
}

// collideFunc computes the manifold of two shapes of fixed kinds.
type collideFunc func(a geom.Shape, xfA geom.Transform, b geom.Shape, xfB geom.Transform) collide.Manifold

type contactRegister struct {
	fn collideFunc
	// primary is false when the fixtures must be swapped before calling fn.
	primary bool
}

// contactRegistry dispatches a pair of shape kinds to its collide function.
type contactRegistry [geom.NumShapeKinds][geom.NumShapeKinds]contactRegister

func newContactRegistry() *contactRegistry {
	r := &contactRegistry{}
	r.add(geom.KindCircle, geom.KindCircle, func(a geom.Shape, xfA geom.Transform, b geom.Shape, xfB geom.Transform) collide.Manifold {
		return collide.CollideCircles(a.(*geom.Circle), xfA, b.(*geom.Circle), xfB)
	})
	r.add(geom.KindPolygon, geom.KindCircle, func(a geom.Shape, xfA geom.Transform, b geom.Shape, xfB geom.Transform) collide.Manifold {
		return collide.CollidePolygonAndCircle(a.(*geom.Polygon), xfA, b.(*geom.Circle), xfB)
	})
	r.add(geom.KindPolygon, geom.KindPolygon, func(a geom.Shape, xfA geom.Transform, b geom.Shape, xfB geom.Transform) collide.Manifold {
		return collide.CollidePolygons(a.(*geom.Polygon), xfA, b.(*geom.Polygon), xfB)
	})
	return r
}

func (r *contactRegistry) add(a, b geom.ShapeKind, fn collideFunc) {
	r[a][b] = contactRegister{fn: fn, primary: true}
	if a != b {
		r[b][a] = contactRegister{fn: fn, primary: false}
	}
}

// create orders the fixtures canonically and returns a new contact, or nil
// when no collide function is registered for the pair.
func (r *contactRegistry) create(fA, fB *Fixture) *Contact {
	reg := r[fA.Kind()][fB.Kind()]
	if reg.fn == nil {
		return nil
	}
	if !reg.primary || (fA.Kind() == fB.Kind() && fA.id > fB.id) {
		fA, fB = fB, fA
	}
	return newContact(fA, fB, reg.fn)
}
