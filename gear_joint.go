package kinetic

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

// GearJointDef couples the rotation of two bodies so that
// Ratio*angleB - angleA stays equal to Phase.
type GearJointDef struct {
	JointDefBase
	Ratio float64
	Phase float64
}

// NewGearJointDef gears two bodies with the phase of their current angles.
func NewGearJointDef(a, b *Body, ratio float64) *GearJointDef {
	return &GearJointDef{
		JointDefBase: JointDefBase{BodyA: a, BodyB: b},
		Ratio:        ratio,
		Phase:        ratio*b.Angle() - a.Angle(),
	}
}

// GearJoint keeps the angular velocity of body A at Ratio times the angular
// velocity of body B. Bodies are usually held by revolute joints.
type GearJoint struct {
	jointBase

	ratio   float64
	phase   float64
	impulse float64
	mass    float64
}

func newGearJoint(def *GearJointDef) *GearJoint {
	if def.Ratio == 0 {
		panic("kinetic: gear ratio must not be zero")
	}
	return &GearJoint{
		jointBase: newJointBase(GearJointType, &def.JointDefBase),
		ratio:     def.Ratio,
		phase:     def.Phase,
	}
}

func (joint *GearJoint) AnchorA() vec.Vec2 { return joint.bodyA.Position() }
func (joint *GearJoint) AnchorB() vec.Vec2 { return joint.bodyB.Position() }

func (joint *GearJoint) ReactionForce(invDt float64) vec.Vec2 {
	return vec.Vec2{}
}

func (joint *GearJoint) ReactionTorque(invDt float64) float64 {
	return invDt * joint.impulse * joint.ratio
}

func (joint *GearJoint) Ratio() float64 { return joint.ratio }
func (joint *GearJoint) Phase() float64 { return joint.phase }

// SetRatio changes the ratio and keeps the current relative angle.
func (joint *GearJoint) SetRatio(ratio float64) {
	if ratio == 0 {
		panic("kinetic: gear ratio must not be zero")
	}
	joint.ratio = ratio
	joint.phase = ratio*joint.bodyB.Angle() - joint.bodyA.Angle()
	joint.wakeBodies()
}

// effectiveMass of J = [-1 ratio].
func (joint *GearJoint) effectiveMass() float64 {
	k := joint.invIA + joint.ratio*joint.ratio*joint.invIB
	if k > 0 {
		return 1.0 / k
	}
	return 0
}

func (joint *GearJoint) initVelocityConstraints(data *solverData) {
	joint.cacheBodies()
	joint.mass = joint.effectiveMass()

	vA, wA := data.velocity(joint.bodyA)
	vB, wB := data.velocity(joint.bodyB)

	if data.step.warmStarting {
		joint.impulse *= data.step.dtRatio
		wA -= joint.invIA * joint.impulse
		wB += joint.invIB * joint.ratio * joint.impulse
	} else {
		joint.impulse = 0
	}

	data.setVelocity(joint.bodyA, vA, wA)
	data.setVelocity(joint.bodyB, vB, wB)
}

func (joint *GearJoint) solveVelocityConstraints(data *solverData) {
	vA, wA := data.velocity(joint.bodyA)
	vB, wB := data.velocity(joint.bodyB)

	Cdot := joint.ratio*wB - wA
	impulse := -joint.mass * Cdot
	joint.impulse += impulse

	wA -= joint.invIA * impulse
	wB += joint.invIB * joint.ratio * impulse

	data.setVelocity(joint.bodyA, vA, wA)
	data.setVelocity(joint.bodyB, vB, wB)
}

func (joint *GearJoint) solvePositionConstraints(data *solverData) bool {
	cA, aA := data.position(joint.bodyA)
	cB, aB := data.position(joint.bodyB)

	C := joint.ratio*aB - aA - joint.phase
	angularError := math.Abs(C)

	maxAngular := data.settings.MaxAngularCorrection
	impulse := -joint.effectiveMass() * mgl64.Clamp(C, -maxAngular, maxAngular)

	aA -= joint.invIA * impulse
	aB += joint.invIB * joint.ratio * impulse

	data.setPosition(joint.bodyA, cA, aA)
	data.setPosition(joint.bodyB, cB, aB)

	return angularError <= geom.AngularSlop
}
