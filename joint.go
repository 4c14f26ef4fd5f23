package kinetic

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

// JointType tags the closed set of joints.
type JointType uint8

const (
	DistanceJointType JointType = iota
	RevoluteJointType
	PrismaticJointType
	WeldJointType
	RopeJointType
	MouseJointType
	GearJointType
	RotarySpringJointType
)

func (t JointType) String() string {
	switch t {
	case DistanceJointType:
		return "distance"
	case RevoluteJointType:
		return "revolute"
	case PrismaticJointType:
		return "prismatic"
	case WeldJointType:
		return "weld"
	case RopeJointType:
		return "rope"
	case MouseJointType:
		return "mouse"
	case GearJointType:
		return "gear"
	case RotarySpringJointType:
		return "rotary spring"
	}
	return fmt.Sprintf("JointType(%d)", uint8(t))
}

// Joint constrains the relative motion of two bodies.
//
// Every joint follows the same protocol inside an island: initialize the
// velocity constraints once per step, solve them for each velocity
// iteration, then correct drift in the position iterations.
type Joint interface {
	Type() JointType
	BodyA() *Body
	BodyB() *Body
	// AnchorA returns the world anchor on body A.
	AnchorA() vec.Vec2
	// AnchorB returns the world anchor on body B.
	AnchorB() vec.Vec2
	// ReactionForce returns the force on body B at the anchor.
	ReactionForce(invDt float64) vec.Vec2
	// ReactionTorque returns the torque on body B.
	ReactionTorque(invDt float64) float64
	// CollideConnected reports whether the joined bodies may collide.
	CollideConnected() bool

	base() *jointBase
	initVelocityConstraints(data *solverData)
	solveVelocityConstraints(data *solverData)
	// solvePositionConstraints returns true when the position error is
	// within tolerance.
	solvePositionConstraints(data *solverData) bool
}

// JointDef is implemented by the definition structs of the joints.
type JointDef interface {
	jointDef() *JointDefBase
}

// JointDefBase holds the fields every joint definition has.
type JointDefBase struct {
	UserData         any
	BodyA, BodyB     *Body
	CollideConnected bool
}

func (d *JointDefBase) jointDef() *JointDefBase {
	return d
}

// jointBase holds the state shared by all joints.
type jointBase struct {
	// UserData is an object that this joint is associated with.
	UserData any

	typ              JointType
	bodyA, bodyB     *Body
	collideConnected bool
	islandFlag       bool
	id               int
	// Slot in the world joint list.
	index int

	// Cached per step.
	localCenterA, localCenterB vec.Vec2
	invMassA, invMassB         float64
	invIA, invIB               float64
}

func newJointBase(t JointType, def *JointDefBase) jointBase {
	return jointBase{
		UserData:         def.UserData,
		typ:              t,
		bodyA:            def.BodyA,
		bodyB:            def.BodyB,
		collideConnected: def.CollideConnected,
	}
}

func (j *jointBase) Type() JointType        { return j.typ }
func (j *jointBase) BodyA() *Body           { return j.bodyA }
func (j *jointBase) BodyB() *Body           { return j.bodyB }
func (j *jointBase) CollideConnected() bool { return j.collideConnected }
func (j *jointBase) ID() int                { return j.id }
func (j *jointBase) base() *jointBase       { return j }

func (j *jointBase) String() string {
	return fmt.Sprintf("Joint %d (%v) bodies %d-%d", j.id, j.typ, j.bodyA.id, j.bodyB.id)
}

// other returns the body at the other end of the joint.
func (j *jointBase) other(b *Body) *Body {
	if j.bodyA == b {
		return j.bodyB
	}
	return j.bodyA
}

// cacheBodies stores the mass data of both bodies for the solver.
func (j *jointBase) cacheBodies() {
	j.localCenterA = j.bodyA.sweep.LocalCenter
	j.localCenterB = j.bodyB.sweep.LocalCenter
	j.invMassA = j.bodyA.invMass
	j.invMassB = j.bodyB.invMass
	j.invIA = j.bodyA.invI
	j.invIB = j.bodyB.invI
}

// wakeBodies wakes both bodies after a parameter change.
func (j *jointBase) wakeBodies() {
	j.bodyA.SetAwake(true)
	j.bodyB.SetAwake(true)
}

// limitState is the state of a joint limit for the current step.
type limitState uint8

const (
	inactiveLimit limitState = iota
	atLowerLimit
	atUpperLimit
	equalLimits
)

// relativeVelocity returns the velocity of the anchor on B relative to the
// anchor on A.
func relativeVelocity(vA vec.Vec2, wA float64, rA vec.Vec2, vB vec.Vec2, wB float64, rB vec.Vec2) vec.Vec2 {
	return vB.Add(geom.CrossSV(wB, rB)).Sub(vA).Sub(geom.CrossSV(wA, rA))
}

// softness returns the gamma and bias of a spring constraint with the
// given frequency in Hz and damping ratio over an effective mass.
func softness(mass, frequencyHz, dampingRatio, C, h float64) (gamma, bias float64) {
	omega := 2.0 * math.Pi * frequencyHz
	d := 2.0 * mass * dampingRatio * omega
	k := mass * omega * omega

	gamma = h * (d + h*k)
	if gamma != 0 {
		gamma = 1.0 / gamma
	}
	bias = C * h * k * gamma
	return gamma, bias
}

// pointAngleMass is the effective mass of a point constraint plus an angle
// constraint.
//
//	J = [-I -r1_skew I r2_skew]
//	    [ 0       -1 0       1]
func pointAngleMass(mA, mB, iA, iB float64, rA, rB vec.Vec2) mgl64.Mat3 {
	k11 := mA + mB + rA.Y*rA.Y*iA + rB.Y*rB.Y*iB
	k12 := -rA.Y*rA.X*iA - rB.Y*rB.X*iB
	k13 := -rA.Y*iA - rB.Y*iB
	k22 := mA + mB + rA.X*rA.X*iA + rB.X*rB.X*iB
	k23 := rA.X*iA + rB.X*iB
	k33 := iA + iB
	return mgl64.Mat3{k11, k12, k13, k12, k22, k23, k13, k23, k33}
}
