package kinetic

import (
	"fmt"

	"github.com/setanarut/kinetic/broadphase"
	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

const (
	// Value for group signifying that a fixture is in no group.
	NoGroup int = 0
	// Value for categories signifying that a fixture is in every category.
	AllCategories uint = ^uint(0)
)

// FilterAll is a collision filter value for a fixture that will collide with
// anything except FilterNone.
var FilterAll = Filter{NoGroup, AllCategories, AllCategories}

// FilterNone is a collision filter value for a fixture that does not collide
// with anything.
var FilterNone = Filter{NoGroup, ^AllCategories, ^AllCategories}

// Filter is fast collision filtering data used to decide whether two
// fixtures collide before the narrow phase runs.
type Filter struct {
	// Fixtures with the same non-zero group always collide when the group is
	// positive and never collide when it is negative. The category test is
	// skipped for them.
	Group int
	// A bitmask of user definable categories that this fixture belongs to.
	Categories uint
	// A bitmask of categories that this fixture collides with.
	Mask uint
}

// Reject checks whether two filters should be considered incompatible.
func (f Filter) Reject(other Filter) bool {
	if f.Group != NoGroup && f.Group == other.Group {
		return f.Group < 0
	}
	return (f.Categories&other.Mask) == 0 || (other.Categories&f.Mask) == 0
}

// FixtureDef describes a fixture to attach. Use NewFixtureDef for defaults.
type FixtureDef struct {
	UserData any
	// Shape is shared, not copied. Shapes are immutable.
	Shape       geom.Shape
	Density     float64
	Friction    float64
	Restitution float64
	// Sensor fixtures detect overlap but produce no collision response.
	Sensor bool
	Filter Filter
}

// NewFixtureDef returns a definition with density 1, friction 0.2 and the
// FilterAll filter.
func NewFixtureDef(shape geom.Shape) *FixtureDef {
	return &FixtureDef{
		Shape:    shape,
		Density:  1,
		Friction: 0.2,
		Filter:   FilterAll,
	}
}

// Fixture binds a shape to a body together with its material and filter.
type Fixture struct {
	// UserData is an object that this fixture is associated with.
	UserData any

	body        *Body
	shape       geom.Shape
	id          int
	density     float64
	friction    float64
	restitution float64
	sensor      bool
	filter      Filter

	proxyID int
	// bb is the exact box at the current body transform.
	bb geom.BB
}

func newFixture(body *Body, def *FixtureDef, id int) *Fixture {
	if def.Shape == nil {
		panic("kinetic: fixture definition has no shape")
	}
	if def.Density < 0 || def.Friction < 0 {
		panic("kinetic: fixture density and friction must not be negative")
	}
	return &Fixture{
		UserData:    def.UserData,
		body:        body,
		shape:       def.Shape,
		id:          id,
		density:     def.Density,
		friction:    def.Friction,
		restitution: def.Restitution,
		sensor:      def.Sensor,
		filter:      def.Filter,
		proxyID:     broadphase.NullProxy,
	}
}

func (f *Fixture) String() string {
	return fmt.Sprintf("Fixture %d (%v) on body %d", f.id, f.shape.Kind(), f.body.id)
}

// ID returns the creation id of the fixture, unique within its world.
func (f *Fixture) ID() int {
	return f.id
}

// Body returns the owning body, nil once destroyed.
func (f *Fixture) Body() *Body {
	return f.body
}

// Shape returns the collision shape.
func (f *Fixture) Shape() geom.Shape {
	return f.shape
}

// Kind returns the kind of the collision shape.
func (f *Fixture) Kind() geom.ShapeKind {
	return f.shape.Kind()
}

func (f *Fixture) Density() float64     { return f.density }
func (f *Fixture) Friction() float64    { return f.friction }
func (f *Fixture) Restitution() float64 { return f.restitution }
func (f *Fixture) IsSensor() bool       { return f.sensor }
func (f *Fixture) Filter() Filter       { return f.filter }

// SetDensity changes the density. Call Body.ResetMassData to update the
// body mass.
func (f *Fixture) SetDensity(density float64) {
	if density < 0 {
		panic("kinetic: negative density")
	}
	f.density = density
}

// SetFriction changes the friction. Existing contacts keep their mixed
// friction until ResetFriction is called on them.
func (f *Fixture) SetFriction(friction float64) {
	f.friction = friction
}

// SetRestitution changes the restitution. Existing contacts keep their
// mixed restitution.
func (f *Fixture) SetRestitution(restitution float64) {
	f.restitution = restitution
}

// SetSensor turns the fixture into a sensor or back.
func (f *Fixture) SetSensor(flag bool) {
	if f.sensor == flag {
		return
	}
	f.sensor = flag
	f.body.SetAwake(true)
}

// SetFilter replaces the filter. Contacts of the fixture are re-checked on
// the next step.
func (f *Fixture) SetFilter(filter Filter) {
	f.filter = filter
	f.refilter()
}

func (f *Fixture) refilter() {
	if f.body == nil {
		return
	}
	for _, c := range f.body.contacts {
		if c.fixtureA == f || c.fixtureB == f {
			c.flagForFiltering()
		}
	}
	w := f.body.world
	if w == nil {
		return
	}
	// Pairs that were filtered out before may pass now.
	w.contactManager.broadPhase.TouchProxy(f.proxyID)
}

// BB returns the exact bounding box at the current body transform.
func (f *Fixture) BB() geom.BB {
	return f.bb
}

// FatBB returns the fattened box held by the broad phase.
func (f *Fixture) FatBB() geom.BB {
	return f.body.world.contactManager.broadPhase.FatBB(f.proxyID)
}

// MassData returns the mass properties of the shape at the fixture density.
func (f *Fixture) MassData() geom.MassData {
	return f.shape.ComputeMass(f.density)
}

// TestPoint reports whether a world point lies inside the fixture.
func (f *Fixture) TestPoint(p vec.Vec2) bool {
	return f.shape.TestPoint(f.body.xf, p)
}

// RayCast casts a world-space ray against the fixture.
func (f *Fixture) RayCast(input geom.RayCastInput) (geom.RayCastOutput, bool) {
	return f.shape.RayCast(input, f.body.xf)
}

func (f *Fixture) createProxy(bp *broadphase.BroadPhase, xf geom.Transform) {
	f.bb = f.shape.ComputeBB(xf)
	f.proxyID = bp.CreateProxy(f.bb, f)
}

func (f *Fixture) destroyProxy(bp *broadphase.BroadPhase) {
	bp.DestroyProxy(f.proxyID)
	f.proxyID = broadphase.NullProxy
}

// synchronize covers the swept motion from xf1 to xf2 in the broad phase.
func (f *Fixture) synchronize(bp *broadphase.BroadPhase, xf1, xf2 geom.Transform) {
	bb1 := f.shape.ComputeBB(xf1)
	bb2 := f.shape.ComputeBB(xf2)
	f.bb = bb2
	bp.MoveProxy(f.proxyID, bb1.Merge(bb2), xf2.P.Sub(xf1.P))
}
