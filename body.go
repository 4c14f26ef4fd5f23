package kinetic

import (
	"fmt"
	"log"
	"slices"

	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

// BodyType for bodies; Dynamic, Kinematic or Static
type BodyType uint8

const (
	// Dynamic bodies have positive mass and respond to forces and contacts.
	Dynamic BodyType = 0
	// Kinematic bodies move by their velocity only and are not affected by
	// forces or contacts.
	Kinematic BodyType = 1
	// Static bodies have zero mass and never move under simulation.
	Static BodyType = 2
)

func (t BodyType) String() string {
	switch t {
	case Static:
		return "static"
	case Kinematic:
		return "kinematic"
	case Dynamic:
		return "dynamic"
	}
	return fmt.Sprintf("BodyType(%d)", uint8(t))
}

// MaxFixturesPerBody bounds the number of fixtures one body can carry.
const MaxFixturesPerBody = 64

// BodyDef describes a body to create. Use NewBodyDef for defaults.
type BodyDef struct {
	UserData any
	Type     BodyType

	// World position of the body origin and its angle in radians.
	Position vec.Vec2
	Angle    float64

	// Velocity of the center of mass.
	LinearVelocity  vec.Vec2
	AngularVelocity float64

	LinearDamping  float64
	AngularDamping float64

	// GravityScale multiplies the world gravity for this body.
	GravityScale float64

	// DisableSleep keeps the body and its island awake.
	DisableSleep bool
	// Asleep creates the body sleeping.
	Asleep bool

	FixedRotation bool

	// Bullet bodies get continuous collision against other dynamic bodies.
	Bullet bool
}

// NewBodyDef returns a definition with gravity scale 1 at the origin.
func NewBodyDef(t BodyType) *BodyDef {
	return &BodyDef{Type: t, GravityScale: 1}
}

// Body is a rigid body. Bodies are created and destroyed by a World.
type Body struct {
	// UserData is an object that this body is associated with.
	//
	// You can use this get a reference to your game object or controller object from within callbacks.
	UserData any

	world *World
	id    int
	typ   BodyType

	xf    geom.Transform // origin transform
	sweep geom.Sweep     // center of mass motion for this step

	linearVelocity  vec.Vec2
	angularVelocity float64

	force  vec.Vec2
	torque float64

	mass, invMass float64
	// Rotational inertia about the center of mass.
	inertia, invI float64

	linearDamping  float64
	angularDamping float64
	gravityScale   float64

	awake         bool
	sleepAllowed  bool
	bullet        bool
	fixedRotation bool
	sleepTime     float64

	fixtures []*Fixture
	contacts []*Contact
	joints   []Joint

	islandFlag  bool
	islandIndex int
}

func newBody(w *World, def *BodyDef, id int) *Body {
	if !geom.IsValid(def.Position.X) || !geom.IsValid(def.Position.Y) || !geom.IsValid(def.Angle) {
		log.Panicf("kinetic: invalid body position %v angle %v", def.Position, def.Angle)
	}

	body := &Body{
		UserData:        def.UserData,
		world:           w,
		id:              id,
		typ:             def.Type,
		xf:              geom.NewTransform(def.Position, def.Angle),
		linearVelocity:  def.LinearVelocity,
		angularVelocity: def.AngularVelocity,
		linearDamping:   def.LinearDamping,
		angularDamping:  def.AngularDamping,
		gravityScale:    def.GravityScale,
		awake:           !def.Asleep,
		sleepAllowed:    !def.DisableSleep,
		bullet:          def.Bullet,
		fixedRotation:   def.FixedRotation,
		islandIndex:     -1,
	}

	body.sweep = geom.Sweep{
		C0: def.Position,
		C:  def.Position,
		A0: def.Angle,
		A:  def.Angle,
	}

	switch body.typ {
	case Dynamic:
		body.mass = 1
		body.invMass = 1
	case Static:
		body.linearVelocity = vec.Vec2{}
		body.angularVelocity = 0
		body.awake = false
	}
	return body
}

// String returns body id and type as string
func (body *Body) String() string {
	return fmt.Sprintf("Body %d (%v), fixtures %d", body.id, body.typ, len(body.fixtures))
}

// ID returns the creation id of the body, unique within its world.
func (body *Body) ID() int {
	return body.id
}

// World returns the world the body belongs to, nil once destroyed.
func (body *Body) World() *World {
	return body.world
}

// Type returns the type of the body.
func (body *Body) Type() BodyType {
	return body.typ
}

// SetType changes the body type, resetting mass and waking the body.
func (body *Body) SetType(t BodyType) {
	body.world.checkUnlocked()
	if body.typ == t {
		return
	}
	body.typ = t
	body.ResetMassData()

	if t == Static {
		body.linearVelocity = vec.Vec2{}
		body.angularVelocity = 0
		body.sweep.A0 = body.sweep.A
		body.sweep.C0 = body.sweep.C
		body.awake = false
		body.synchronizeFixtures()
	} else {
		body.SetAwake(true)
	}

	body.force = vec.Vec2{}
	body.torque = 0

	// Contacts are re-created with the new type rules.
	for _, c := range slices.Clone(body.contacts) {
		body.world.contactManager.destroy(c)
	}
	for _, f := range body.fixtures {
		body.world.contactManager.broadPhase.TouchProxy(f.proxyID)
	}
}

// Fixtures returns the fixtures attached to the body. The slice must not be
// modified.
func (body *Body) Fixtures() []*Fixture {
	return body.fixtures
}

// Joints returns the joints attached to the body.
func (body *Body) Joints() []Joint {
	return body.joints
}

// Contacts returns the contacts of the body, touching or not.
func (body *Body) Contacts() []*Contact {
	return body.contacts
}

// Transform returns the transform of the body origin.
func (body *Body) Transform() geom.Transform {
	return body.xf
}

// Position returns the world position of the body origin.
func (body *Body) Position() vec.Vec2 {
	return body.xf.P
}

// Angle returns the angle of the body in radians.
func (body *Body) Angle() float64 {
	return body.sweep.A
}

// WorldCenter returns the world position of the center of mass.
func (body *Body) WorldCenter() vec.Vec2 {
	return body.sweep.C
}

// LocalCenter returns the center of mass in body coordinates.
func (body *Body) LocalCenter() vec.Vec2 {
	return body.sweep.LocalCenter
}

// SetTransform teleports the body. Contacts are updated on the next step.
func (body *Body) SetTransform(position vec.Vec2, angle float64) {
	body.world.checkUnlocked()

	body.xf = geom.NewTransform(position, angle)
	body.sweep.C = body.xf.Apply(body.sweep.LocalCenter)
	body.sweep.A = angle
	body.sweep.C0 = body.sweep.C
	body.sweep.A0 = angle

	for _, f := range body.fixtures {
		f.synchronize(body.world.contactManager.broadPhase, body.xf, body.xf)
	}
}

// SetPosition moves the body origin keeping its angle.
func (body *Body) SetPosition(position vec.Vec2) {
	body.SetTransform(position, body.sweep.A)
}

// SetAngle rotates the body about its origin.
func (body *Body) SetAngle(angle float64) {
	body.SetTransform(body.xf.P, angle)
}

// Velocity returns the linear velocity of the center of mass.
func (body *Body) Velocity() vec.Vec2 {
	return body.linearVelocity
}

// SetVelocity sets the linear velocity of the center of mass.
func (body *Body) SetVelocity(v vec.Vec2) {
	if body.typ == Static {
		return
	}
	if v.Dot(v) > 0 {
		body.SetAwake(true)
	}
	body.linearVelocity = v
}

// AngularVelocity returns the angular velocity in radians per second.
func (body *Body) AngularVelocity() float64 {
	return body.angularVelocity
}

// SetAngularVelocity sets the angular velocity in radians per second.
func (body *Body) SetAngularVelocity(w float64) {
	if body.typ == Static {
		return
	}
	if w*w > 0 {
		body.SetAwake(true)
	}
	body.angularVelocity = w
}

// Force returns the force accumulated for the next step.
func (body *Body) Force() vec.Vec2 {
	return body.force
}

// Torque returns the torque accumulated for the next step.
func (body *Body) Torque() float64 {
	return body.torque
}

// ApplyForce applies a force at a world point. Forces are cleared after
// each step.
func (body *Body) ApplyForce(force, point vec.Vec2, wake bool) {
	if body.typ != Dynamic {
		return
	}
	if wake && !body.awake {
		body.SetAwake(true)
	}
	if body.awake {
		body.force = body.force.Add(force)
		body.torque += point.Sub(body.sweep.C).Cross(force)
	}
}

// ApplyForceToCenter applies a force at the center of mass.
func (body *Body) ApplyForceToCenter(force vec.Vec2, wake bool) {
	if body.typ != Dynamic {
		return
	}
	if wake && !body.awake {
		body.SetAwake(true)
	}
	if body.awake {
		body.force = body.force.Add(force)
	}
}

// ApplyTorque applies a torque about the center of mass.
func (body *Body) ApplyTorque(torque float64, wake bool) {
	if body.typ != Dynamic {
		return
	}
	if wake && !body.awake {
		body.SetAwake(true)
	}
	if body.awake {
		body.torque += torque
	}
}

// ApplyLinearImpulse applies an impulse at a world point, changing the
// velocity immediately.
func (body *Body) ApplyLinearImpulse(impulse, point vec.Vec2, wake bool) {
	if body.typ != Dynamic {
		return
	}
	if wake && !body.awake {
		body.SetAwake(true)
	}
	if body.awake {
		body.linearVelocity = body.linearVelocity.Add(impulse.Scale(body.invMass))
		body.angularVelocity += body.invI * point.Sub(body.sweep.C).Cross(impulse)
	}
}

// ApplyAngularImpulse applies an angular impulse.
func (body *Body) ApplyAngularImpulse(impulse float64, wake bool) {
	if body.typ != Dynamic {
		return
	}
	if wake && !body.awake {
		body.SetAwake(true)
	}
	if body.awake {
		body.angularVelocity += body.invI * impulse
	}
}

// Mass returns the mass of the body, 0 for static and kinematic bodies.
func (body *Body) Mass() float64 {
	return body.mass
}

// Inertia returns the rotational inertia about the body origin.
func (body *Body) Inertia() float64 {
	return body.inertia + body.mass*body.sweep.LocalCenter.Dot(body.sweep.LocalCenter)
}

// MassData returns the mass, local center and inertia about the origin.
func (body *Body) MassData() geom.MassData {
	return geom.MassData{
		Mass:   body.mass,
		Center: body.sweep.LocalCenter,
		I:      body.Inertia(),
	}
}

// SetMassData overrides the mass computed from fixtures. It is ignored for
// non-dynamic bodies. Attaching or removing a fixture recomputes the mass
// from fixtures again.
func (body *Body) SetMassData(md geom.MassData) {
	body.world.checkUnlocked()
	if body.typ != Dynamic {
		return
	}

	body.invMass = 0
	body.inertia = 0
	body.invI = 0

	body.mass = md.Mass
	if body.mass <= 0 {
		body.mass = 1
	}
	body.invMass = 1 / body.mass

	if md.I > 0 && !body.fixedRotation {
		body.inertia = md.I - body.mass*md.Center.Dot(md.Center)
		if body.inertia <= 0 {
			log.Panicf("kinetic: inertia %v is not positive about the center of mass", body.inertia)
		}
		body.invI = 1 / body.inertia
	}

	body.moveCenter(md.Center)
}

// ResetMassData recomputes mass and center from the fixture densities.
func (body *Body) ResetMassData() {
	body.mass = 0
	body.invMass = 0
	body.inertia = 0
	body.invI = 0
	body.sweep.LocalCenter = vec.Vec2{}

	if body.typ != Dynamic {
		body.sweep.C0 = body.xf.P
		body.sweep.C = body.xf.P
		body.sweep.A0 = body.sweep.A
		return
	}

	var localCenter vec.Vec2
	for _, f := range body.fixtures {
		if f.density == 0 {
			continue
		}
		md := f.shape.ComputeMass(f.density)
		body.mass += md.Mass
		localCenter = localCenter.Add(md.Center.Scale(md.Mass))
		body.inertia += md.I
	}

	if body.mass > 0 {
		body.invMass = 1 / body.mass
		localCenter = localCenter.Scale(body.invMass)
	} else {
		// Dynamic bodies always have mass.
		body.mass = 1
		body.invMass = 1
	}

	if body.inertia > 0 && !body.fixedRotation {
		// Shift inertia to the center of mass.
		body.inertia -= body.mass * localCenter.Dot(localCenter)
		body.invI = 1 / body.inertia
	} else {
		body.inertia = 0
		body.invI = 0
	}

	body.moveCenter(localCenter)
}

// moveCenter moves the center of mass keeping the origin fixed, and keeps
// the velocity of the origin.
func (body *Body) moveCenter(localCenter vec.Vec2) {
	oldCenter := body.sweep.C
	body.sweep.LocalCenter = localCenter
	body.sweep.C = body.xf.Apply(localCenter)
	body.sweep.C0 = body.sweep.C

	body.linearVelocity = body.linearVelocity.Add(geom.CrossSV(body.angularVelocity, body.sweep.C.Sub(oldCenter)))
}

// IsAwake returns true if the body is simulated.
func (body *Body) IsAwake() bool {
	return body.awake
}

// SetAwake wakes the body or puts it to sleep. Sleeping clears velocity
// and forces.
func (body *Body) SetAwake(flag bool) {
	if body.typ == Static {
		return
	}
	if flag {
		body.awake = true
		body.sleepTime = 0
		return
	}
	body.awake = false
	body.sleepTime = 0
	body.linearVelocity = vec.Vec2{}
	body.angularVelocity = 0
	body.force = vec.Vec2{}
	body.torque = 0
}

// IsSleepingAllowed reports whether the body may fall asleep.
func (body *Body) IsSleepingAllowed() bool {
	return body.sleepAllowed
}

// SetSleepingAllowed allows or forbids sleep. Forbidding wakes the body.
func (body *Body) SetSleepingAllowed(flag bool) {
	body.sleepAllowed = flag
	if !flag {
		body.SetAwake(true)
	}
}

// IsBullet reports whether the body uses continuous collision against
// other dynamic bodies.
func (body *Body) IsBullet() bool {
	return body.bullet
}

// SetBullet marks the body as a bullet.
func (body *Body) SetBullet(flag bool) {
	body.bullet = flag
}

// IsFixedRotation reports whether rotation is locked.
func (body *Body) IsFixedRotation() bool {
	return body.fixedRotation
}

// SetFixedRotation locks or unlocks rotation and resets the mass.
func (body *Body) SetFixedRotation(flag bool) {
	if body.fixedRotation == flag {
		return
	}
	body.fixedRotation = flag
	body.angularVelocity = 0
	body.ResetMassData()
}

func (body *Body) LinearDamping() float64      { return body.linearDamping }
func (body *Body) SetLinearDamping(d float64)  { body.linearDamping = d }
func (body *Body) AngularDamping() float64     { return body.angularDamping }
func (body *Body) SetAngularDamping(d float64) { body.angularDamping = d }
func (body *Body) GravityScale() float64       { return body.gravityScale }
func (body *Body) SetGravityScale(s float64)   { body.gravityScale = s }

// SleepTime returns how long the body has been below the sleep tolerances.
func (body *Body) SleepTime() float64 {
	return body.sleepTime
}

// LocalToWorld converts from body local to world coordinates.
func (body *Body) LocalToWorld(point vec.Vec2) vec.Vec2 {
	return body.xf.Apply(point)
}

// WorldToLocal converts from world to body local coordinates.
func (body *Body) WorldToLocal(point vec.Vec2) vec.Vec2 {
	return body.xf.ApplyInv(point)
}

// LocalVectorToWorld rotates a local vector into world space.
func (body *Body) LocalVectorToWorld(v vec.Vec2) vec.Vec2 {
	return body.xf.ApplyVector(v)
}

// WorldVectorToLocal rotates a world vector into body space.
func (body *Body) WorldVectorToLocal(v vec.Vec2) vec.Vec2 {
	return body.xf.ApplyVectorInv(v)
}

// VelocityAtWorldPoint returns the world velocity of a world point attached
// to the body.
func (body *Body) VelocityAtWorldPoint(point vec.Vec2) vec.Vec2 {
	return body.linearVelocity.Add(geom.CrossSV(body.angularVelocity, point.Sub(body.sweep.C)))
}

// VelocityAtLocalPoint returns the world velocity of a local point.
func (body *Body) VelocityAtLocalPoint(point vec.Vec2) vec.Vec2 {
	return body.VelocityAtWorldPoint(body.LocalToWorld(point))
}

// KineticEnergy returns the kinetic energy of this body.
func (body *Body) KineticEnergy() float64 {
	return 0.5*body.mass*body.linearVelocity.Dot(body.linearVelocity) + 0.5*body.inertia*body.angularVelocity*body.angularVelocity
}

// shouldCollide applies the body level rules: one body must be dynamic and
// joints may forbid contact between the bodies they connect.
func (body *Body) shouldCollide(other *Body) bool {
	if body.typ != Dynamic && other.typ != Dynamic {
		return false
	}
	for _, j := range body.joints {
		jb := j.base()
		if jb.collideConnected {
			continue
		}
		if (jb.bodyA == body && jb.bodyB == other) || (jb.bodyA == other && jb.bodyB == body) {
			return false
		}
	}
	return true
}

// synchronizeTransform derives the origin transform from the sweep.
func (body *Body) synchronizeTransform() {
	body.xf.Q = geom.NewRot(body.sweep.A)
	body.xf.P = body.sweep.C.Sub(body.xf.Q.Apply(body.sweep.LocalCenter))
}

// synchronizeFixtures moves the broad-phase proxies to cover the motion
// from the start of the sweep to the current transform.
func (body *Body) synchronizeFixtures() {
	xf1 := body.sweep.Transform(0)
	bp := body.world.contactManager.broadPhase
	for _, f := range body.fixtures {
		f.synchronize(bp, xf1, body.xf)
	}
}

// advance moves the body to fraction alpha of the current sweep.
func (body *Body) advance(alpha float64) {
	body.sweep.Advance(alpha)
	body.sweep.C = body.sweep.C0
	body.sweep.A = body.sweep.A0
	body.xf.Q = geom.NewRot(body.sweep.A)
	body.xf.P = body.sweep.C.Sub(body.xf.Q.Apply(body.sweep.LocalCenter))
}

func (body *Body) removeContact(c *Contact) {
	if i := slices.Index(body.contacts, c); i >= 0 {
		last := len(body.contacts) - 1
		body.contacts[i] = body.contacts[last]
		body.contacts[last] = nil
		body.contacts = body.contacts[:last]
	}
}

func (body *Body) removeJoint(j Joint) {
	if i := slices.Index(body.joints, j); i >= 0 {
		last := len(body.joints) - 1
		body.joints[i] = body.joints[last]
		body.joints[last] = nil
		body.joints = body.joints[:last]
	}
}
