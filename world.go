package kinetic

import (
	"log"
	"math"
	"slices"

	"github.com/setanarut/kinetic/collide"
	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

// World owns bodies, fixtures, joints and contacts, and advances them in
// time. A World is not safe for concurrent use. Settings.Workers only
// spreads the island solve of a single Step over goroutines.
type World struct {
	// UserData is an object that this world is associated with.
	UserData any

	bodies []*Body
	joints []Joint

	contactManager      *contactManager
	destructionListener *DestructionListener

	gravity  vec.Vec2
	settings Settings

	// private
	locked            bool
	postStepCallbacks []*postStepCallback
	skipPostStep      bool

	bodyIDCounter    int
	fixtureIDCounter int
	jointIDCounter   int

	// prevInvDt scales warm start impulses when dt changes.
	prevInvDt float64

	stepCount   int
	islandCount int
	toiCount    int
}

// Option configures a World.
type Option func(w *World)

// WithSettings replaces the default settings.
func WithSettings(s Settings) Option {
	return func(w *World) {
		w.settings = s
	}
}

// WithWorkers solves islands on up to n goroutines.
func WithWorkers(n int) Option {
	return func(w *World) {
		w.settings.Workers = n
	}
}

// WithContactListener registers contact callbacks.
func WithContactListener(l *ContactListener) Option {
	return func(w *World) {
		w.contactManager.listener = l
	}
}

// WithContactFilter replaces the default fixture filter test.
func WithContactFilter(f ContactFilter) Option {
	return func(w *World) {
		w.contactManager.filter = f
	}
}

// WithDestructionListener registers callbacks for implicit destruction.
func WithDestructionListener(l *DestructionListener) Option {
	return func(w *World) {
		w.destructionListener = l
	}
}

// NewWorld allocates and initializes a World. It panics if the options
// produce invalid settings.
func NewWorld(gravity vec.Vec2, opts ...Option) *World {
	w := &World{
		gravity:           gravity,
		settings:          DefaultSettings(),
		contactManager:    newContactManager(),
		postStepCallbacks: []*postStepCallback{},
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.settings.Validate(); err != nil {
		log.Panicf("kinetic: %v", err)
	}
	return w
}

// Settings returns a copy of the solver settings.
func (w *World) Settings() Settings {
	return w.settings
}

// SetSettings replaces the solver settings, leaving them unchanged when s is
// invalid.
func (w *World) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	w.settings = s
	return nil
}

func (w *World) Gravity() vec.Vec2 {
	return w.gravity
}

// SetGravity changes the gravity. Sleeping bodies are not woken.
func (w *World) SetGravity(gravity vec.Vec2) {
	w.gravity = gravity
}

func (w *World) SetContactListener(l *ContactListener) {
	w.contactManager.listener = l
}

func (w *World) SetContactFilter(f ContactFilter) {
	w.contactManager.filter = f
}

func (w *World) SetDestructionListener(l *DestructionListener) {
	w.destructionListener = l
}

// IsLocked returns true from inside a callback when objects cannot be
// created or destroyed.
func (w *World) IsLocked() bool {
	return w.locked
}

func (w *World) checkUnlocked() {
	if w.locked {
		log.Panicln("kinetic: world is locked, defer the change with AddPostStepCallback")
	}
}

func (w *World) lock() {
	w.locked = true
}

func (w *World) unlock() {
	w.locked = false

	if !w.skipPostStep {
		w.skipPostStep = true

		// Callbacks may add callbacks; those run in the same pass.
		for i := 0; i < len(w.postStepCallbacks); i++ {
			callback := w.postStepCallbacks[i]
			f := callback.callback
			callback.callback = nil
			if f != nil {
				f(w, callback.key)
			}
		}

		w.postStepCallbacks = w.postStepCallbacks[:0]
		w.skipPostStep = false
	}
}

// AddPostStepCallback schedules f to run when the current Step finishes,
// where the world can be changed again. Only one callback is kept per
// non-nil key, which guards against destroying an object twice. It returns
// false when a callback for key is already scheduled.
func (w *World) AddPostStepCallback(f PostStepCallbackFunc, key any) bool {
	if key != nil {
		for _, callback := range w.postStepCallbacks {
			if callback.key == key {
				return false
			}
		}
	}
	w.postStepCallbacks = append(w.postStepCallbacks, &postStepCallback{callback: f, key: key})
	return true
}

// CreateBody adds a body described by def.
func (w *World) CreateBody(def *BodyDef) *Body {
	w.checkUnlocked()
	body := newBody(w, def, w.bodyIDCounter)
	w.bodyIDCounter++
	w.bodies = append(w.bodies, body)
	return body
}

// DestroyBody removes a body with its joints, contacts and fixtures. The
// destruction listener hears about each joint and fixture.
func (w *World) DestroyBody(body *Body) {
	w.checkUnlocked()
	i := slices.Index(w.bodies, body)
	if body.world != w || i < 0 {
		log.Panicf("kinetic: %v does not belong to this world", body)
	}

	for _, j := range slices.Clone(body.joints) {
		if w.destructionListener != nil && w.destructionListener.JointGoodbye != nil {
			w.destructionListener.JointGoodbye(j)
		}
		w.DestroyJoint(j)
	}

	for _, c := range slices.Clone(body.contacts) {
		w.contactManager.destroy(c)
	}

	for _, f := range body.fixtures {
		if w.destructionListener != nil && w.destructionListener.FixtureGoodbye != nil {
			w.destructionListener.FixtureGoodbye(f)
		}
		f.destroyProxy(w.contactManager.broadPhase)
		f.body = nil
	}
	body.fixtures = nil

	w.bodies = slices.Delete(w.bodies, i, i+1)
	body.world = nil
}

// CreateFixture attaches a shape to a body. A fixture with density updates
// the body mass.
func (w *World) CreateFixture(body *Body, def *FixtureDef) *Fixture {
	w.checkUnlocked()
	if body.world != w {
		log.Panicf("kinetic: %v does not belong to this world", body)
	}
	if len(body.fixtures) >= MaxFixturesPerBody {
		log.Panicf("kinetic: %v already has %d fixtures", body, MaxFixturesPerBody)
	}

	f := newFixture(body, def, w.fixtureIDCounter)
	w.fixtureIDCounter++
	f.createProxy(w.contactManager.broadPhase, body.xf)
	body.fixtures = append(body.fixtures, f)

	if f.density > 0 {
		body.ResetMassData()
	}
	return f
}

// CreateFixtureFromShape attaches a shape with the default fixture values
// and the given density.
func (w *World) CreateFixtureFromShape(body *Body, shape geom.Shape, density float64) *Fixture {
	def := NewFixtureDef(shape)
	def.Density = density
	return w.CreateFixture(body, def)
}

// DestroyFixture detaches a fixture from its body and updates the body
// mass. Contacts of the fixture are destroyed.
func (w *World) DestroyFixture(f *Fixture) {
	w.checkUnlocked()
	body := f.body
	if body == nil || body.world != w {
		log.Panicf("kinetic: %v does not belong to this world", f)
	}
	i := slices.Index(body.fixtures, f)
	if i < 0 {
		log.Panicf("kinetic: %v is not attached", f)
	}

	w.contactManager.destroyFixtureContacts(f)
	f.destroyProxy(w.contactManager.broadPhase)
	body.fixtures = slices.Delete(body.fixtures, i, i+1)
	f.body = nil

	body.ResetMassData()
}

// CreateJoint adds a joint described by def. It panics when both ends are
// the same body or both are static.
func (w *World) CreateJoint(def JointDef) Joint {
	w.checkUnlocked()
	base := def.jointDef()
	a, b := base.BodyA, base.BodyB
	if a == nil || b == nil {
		log.Panicln("kinetic: joint needs two bodies")
	}
	if a.world != w || b.world != w {
		log.Panicln("kinetic: joint bodies do not belong to this world")
	}
	if a == b {
		log.Panicf("kinetic: joint between %v and itself", a)
	}
	if a.typ == Static && b.typ == Static {
		log.Panicf("kinetic: joint between two static bodies %d and %d", a.id, b.id)
	}

	var j Joint
	switch d := def.(type) {
	case *DistanceJointDef:
		j = newDistanceJoint(d)
	case *RevoluteJointDef:
		j = newRevoluteJoint(d)
	case *PrismaticJointDef:
		j = newPrismaticJoint(d)
	case *WeldJointDef:
		j = newWeldJoint(d)
	case *RopeJointDef:
		j = newRopeJoint(d)
	case *MouseJointDef:
		j = newMouseJoint(d)
	case *GearJointDef:
		j = newGearJoint(d)
	case *RotarySpringJointDef:
		j = newRotarySpringJoint(d)
	default:
		log.Panicf("kinetic: unknown joint definition %T", def)
	}

	jb := j.base()
	jb.id = w.jointIDCounter
	w.jointIDCounter++
	jb.index = len(w.joints)
	w.joints = append(w.joints, j)

	a.joints = append(a.joints, j)
	b.joints = append(b.joints, j)

	if !jb.collideConnected {
		for _, c := range b.contacts {
			if c.fixtureA.body == a || c.fixtureB.body == a {
				c.flagForFiltering()
			}
		}
	}
	return j
}

// DestroyJoint removes a joint and wakes its bodies.
func (w *World) DestroyJoint(j Joint) {
	w.checkUnlocked()
	jb := j.base()
	if jb.index < 0 || jb.index >= len(w.joints) || w.joints[jb.index] != j {
		log.Panicf("kinetic: %v does not belong to this world", jb)
	}

	last := len(w.joints) - 1
	moved := w.joints[last]
	w.joints[jb.index] = moved
	moved.base().index = jb.index
	w.joints[last] = nil
	w.joints = w.joints[:last]
	jb.index = -1

	jb.bodyA.removeJoint(j)
	jb.bodyB.removeJoint(j)
	jb.wakeBodies()

	// Contacts between the bodies may come back.
	if !jb.collideConnected {
		for _, f := range jb.bodyB.fixtures {
			w.contactManager.broadPhase.TouchProxy(f.proxyID)
		}
	}
}

// Step advances the world by dt. Iteration counts below one fall back to
// the settings. A dt of zero or less does nothing.
func (w *World) Step(dt float64, velocityIterations, positionIterations int) {
	w.checkUnlocked()
	if dt <= 0 {
		return
	}
	if velocityIterations < 1 {
		velocityIterations = w.settings.VelocityIterations
	}
	if positionIterations < 1 {
		positionIterations = w.settings.PositionIterations
	}

	step := timeStep{
		dt:                 dt,
		invDt:              1.0 / dt,
		dtRatio:            w.prevInvDt * dt,
		velocityIterations: velocityIterations,
		positionIterations: positionIterations,
		warmStarting:       w.settings.WarmStarting,
	}

	w.lock()

	// Fixtures created since the last step.
	w.contactManager.findNewContacts()

	w.contactManager.collide()

	w.solve(step)

	if w.settings.ContinuousPhysics {
		w.solveTOI()
	}

	w.ClearForces()

	w.prevInvDt = step.invDt
	w.stepCount++

	w.unlock()
}

// ClearForces zeroes the accumulated forces and torques of all bodies.
func (w *World) ClearForces() {
	for _, body := range w.bodies {
		body.force = vec.Vec2{}
		body.torque = 0
	}
}

func (w *World) solve(step timeStep) {
	for _, body := range w.bodies {
		if body.typ != Static {
			body.sweep.C0 = body.sweep.C
			body.sweep.A0 = body.sweep.A
			body.sweep.Alpha0 = 0
		}
		body.islandFlag = false
		body.islandIndex = -1
	}
	for _, c := range w.contactManager.contacts {
		c.islandFlag = false
	}
	for _, j := range w.joints {
		j.base().islandFlag = false
	}

	for _, body := range w.bodies {
		if body.typ == Kinematic && body.awake {
			w.integrateKinematic(body, step.dt)
		}
	}

	islands := w.buildIslands()
	w.islandCount = len(islands)

	listener := w.contactManager.listener
	postSolve := listener != nil && listener.PostSolve != nil

	task(w.settings.Workers, islands, func(isl *island) {
		isl.solve(step, w.gravity, &w.settings, postSolve)
	})

	if postSolve {
		for _, isl := range islands {
			isl.report(listener)
		}
	}

	for _, body := range w.bodies {
		if body.islandFlag && body.typ != Static {
			body.synchronizeFixtures()
		}
	}

	w.contactManager.findNewContacts()
}

// integrateKinematic moves a kinematic body by its velocity. Kinematic
// bodies never join islands, so they keep their own sleep timer.
func (w *World) integrateKinematic(body *Body, h float64) {
	body.sweep.C = body.sweep.C.Add(body.linearVelocity.Scale(h))
	body.sweep.A += h * body.angularVelocity
	body.synchronizeTransform()
	body.islandFlag = true

	if !w.settings.AllowSleep {
		return
	}
	linTol := w.settings.LinearSleepTolerance
	angTol := w.settings.AngularSleepTolerance
	if !body.sleepAllowed ||
		body.linearVelocity.Dot(body.linearVelocity) > linTol*linTol ||
		body.angularVelocity*body.angularVelocity > angTol*angTol {
		body.sleepTime = 0
		return
	}
	body.sleepTime += h
	if body.sleepTime >= w.settings.TimeToSleep {
		body.SetAwake(false)
	}
}

// buildIslands walks the constraint graph from every awake dynamic body.
// Non-dynamic bodies end the walk, so two islands resting on the same
// ground stay apart.
func (w *World) buildIslands() []*island {
	var islands []*island
	stack := make([]*Body, 0, len(w.bodies))

	for _, seed := range w.bodies {
		if seed.islandFlag || !seed.awake || seed.typ != Dynamic {
			continue
		}

		isl := &island{}
		seed.islandFlag = true
		stack = append(stack[:0], seed)

		for len(stack) > 0 {
			body := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			isl.addBody(body)
			// Wake without resetting the sleep timer.
			body.awake = true

			for _, c := range body.contacts {
				if c.islandFlag || !c.isActive() {
					continue
				}
				c.islandFlag = true
				isl.contacts = append(isl.contacts, c)

				other := c.fixtureA.body
				if other == body {
					other = c.fixtureB.body
				}
				if other.typ != Dynamic {
					isl.touchFixed(other, &w.settings)
					continue
				}
				if other.islandFlag {
					continue
				}
				other.islandFlag = true
				stack = append(stack, other)
			}

			for _, j := range body.joints {
				jb := j.base()
				if jb.islandFlag {
					continue
				}
				jb.islandFlag = true
				isl.joints = append(isl.joints, j)

				other := jb.other(body)
				if other.typ != Dynamic {
					isl.touchFixed(other, &w.settings)
					continue
				}
				if other.islandFlag {
					continue
				}
				other.islandFlag = true
				stack = append(stack, other)
			}
		}

		islands = append(islands, isl)
	}
	return islands
}

// solveTOI moves fast bodies back to their first time of impact. The
// velocity is kept, so the next step resolves the contact.
func (w *World) solveTOI() {
	bp := w.contactManager.broadPhase
	advanced := false

	for _, body := range w.bodies {
		if body.typ != Dynamic || !body.awake || len(body.fixtures) == 0 {
			continue
		}
		if !body.bullet && !w.isFast(body) {
			continue
		}

		bb := body.fixtures[0].FatBB()
		for _, f := range body.fixtures[1:] {
			bb = bb.Merge(f.FatBB())
		}

		minT := 1.0
		bp.Query(bb, func(id int) bool {
			f := bp.Payload(id).(*Fixture)
			other := f.body
			if other == body || f.sensor {
				return true
			}
			if other.typ == Dynamic && (!body.bullet || other.bullet) {
				return true
			}
			if !body.shouldCollide(other) {
				return true
			}
			for _, bf := range body.fixtures {
				if bf.sensor || !w.contactManager.shouldCollide(bf, f) {
					continue
				}
				minT = math.Min(minT, timeOfImpact(bf, f))
			}
			return true
		})

		if minT < 1 {
			body.advance(minT)
			body.synchronizeFixtures()
			w.toiCount++
			advanced = true
		}
	}

	if advanced {
		w.contactManager.findNewContacts()
	}
}

// isFast reports whether the body moved further this step than its
// thinnest fixture is deep.
func (w *World) isFast(body *Body) bool {
	r := math.Inf(1)
	for _, f := range body.fixtures {
		if !f.sensor {
			r = math.Min(r, geom.InnerRadius(f.shape))
		}
	}
	d := body.sweep.C.Sub(body.sweep.C0)
	return d.Dot(d) > r*r
}

// timeOfImpact returns the sweep fraction at which fixture f of the moving
// body first touches fixture target, or 1 when it does not or already
// touches it at the start of the sweep.
func timeOfImpact(f, target *Fixture) float64 {
	sweepA := target.body.sweep
	sweepB := f.body.sweep

	// Both sweeps must start at the same time.
	t0 := math.Max(sweepA.Alpha0, sweepB.Alpha0)
	if sweepA.Alpha0 < t0 {
		sweepA.Advance(t0)
	}
	if sweepB.Alpha0 < t0 {
		sweepB.Advance(t0)
	}

	out := collide.TimeOfImpact(&collide.TOIInput{
		ProxyA: target.shape.Proxy(),
		ProxyB: f.shape.Proxy(),
		SweepA: sweepA,
		SweepB: sweepB,
		TMax:   1,
	})

	// Pairs touching at the start of the sweep belong to the contact solver.
	if out.T <= 0 {
		return 1
	}
	switch out.State {
	case collide.TOITouching, collide.TOIFailed:
		return t0 + (1-t0)*out.T
	}
	return 1
}

// QueryAABB calls f for each fixture whose fat box overlaps bb, until f
// returns false.
func (w *World) QueryAABB(bb geom.BB, f func(fixture *Fixture) bool) {
	bp := w.contactManager.broadPhase
	bp.Query(bb, func(id int) bool {
		return f(bp.Payload(id).(*Fixture))
	})
}

// QueryPoint calls f for each fixture containing the world point p, until f
// returns false.
func (w *World) QueryPoint(p vec.Vec2, f func(fixture *Fixture) bool) {
	w.QueryAABB(geom.NewBBForExtents(p, 0, 0), func(fixture *Fixture) bool {
		if !fixture.TestPoint(p) {
			return true
		}
		return f(fixture)
	})
}

// QueryShape calls f for each fixture that overlaps shape placed at xf and
// passes filter, until f returns false. It reports whether any non-sensor
// fixture overlapped.
func (w *World) QueryShape(shape geom.Shape, xf geom.Transform, filter Filter, f func(fixture *Fixture) bool) bool {
	var anyCollision bool
	w.QueryAABB(shape.ComputeBB(xf), func(fixture *Fixture) bool {
		if filter.Reject(fixture.filter) {
			return true
		}
		if !collide.TestOverlap(shape, xf, fixture.shape, fixture.body.xf) {
			return true
		}
		if !fixture.sensor {
			anyCollision = true
		}
		return f == nil || f(fixture)
	})
	return anyCollision
}

// RayCastFunc is called for each fixture hit by a ray. Its return value
// controls the cast: -1 ignores the fixture, 0 terminates, fraction clips
// the ray at this hit and 1 continues.
type RayCastFunc func(f *Fixture, point, normal vec.Vec2, fraction float64) float64

// RayCast reports fixtures along the segment from p1 to p2. Hits are not
// ordered.
func (w *World) RayCast(p1, p2 vec.Vec2, f RayCastFunc) {
	bp := w.contactManager.broadPhase
	input := geom.RayCastInput{P1: p1, P2: p2, MaxFraction: 1}
	bp.RayCast(input, func(sub geom.RayCastInput, id int) float64 {
		fixture := bp.Payload(id).(*Fixture)
		out, hit := fixture.RayCast(sub)
		if !hit {
			return sub.MaxFraction
		}
		point := p1.Add(p2.Sub(p1).Scale(out.Fraction))
		return f(fixture, point, out.Normal, out.Fraction)
	})
}

// Bodies returns the bodies in creation order. The slice must not be
// modified.
func (w *World) Bodies() []*Body {
	return w.bodies
}

// Joints returns the joints. The slice must not be modified.
func (w *World) Joints() []Joint {
	return w.joints
}

// Contacts returns the live contacts, touching or not. The slice must not
// be modified.
func (w *World) Contacts() []*Contact {
	return w.contactManager.contacts
}

// EachBody calls f for every body.
func (w *World) EachBody(f func(b *Body)) {
	for _, b := range w.bodies {
		f(b)
	}
}

// EachJoint calls f for every joint.
func (w *World) EachJoint(f func(j Joint)) {
	for _, j := range w.joints {
		f(j)
	}
}

// EachContact calls f for every contact.
func (w *World) EachContact(f func(c *Contact)) {
	for _, c := range w.contactManager.contacts {
		f(c)
	}
}

func (w *World) BodyCount() int    { return len(w.bodies) }
func (w *World) JointCount() int   { return len(w.joints) }
func (w *World) ContactCount() int { return len(w.contactManager.contacts) }
func (w *World) ProxyCount() int   { return w.contactManager.broadPhase.ProxyCount() }

// TreeHeight returns the height of the broad-phase tree.
func (w *World) TreeHeight() int {
	return w.contactManager.broadPhase.TreeHeight()
}

// TreeBalance returns the largest height difference of sibling subtrees.
func (w *World) TreeBalance() int {
	return w.contactManager.broadPhase.TreeBalance()
}

// TreeQuality returns the summed node perimeter over the root perimeter.
func (w *World) TreeQuality() float64 {
	return w.contactManager.broadPhase.TreeQuality()
}

// StepCount returns the number of steps taken.
func (w *World) StepCount() int {
	return w.stepCount
}

// IslandCount returns the number of islands solved in the last step.
func (w *World) IslandCount() int {
	return w.islandCount
}

// TOICount returns the number of time of impact clamps since creation.
func (w *World) TOICount() int {
	return w.toiCount
}
