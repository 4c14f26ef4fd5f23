package kinetic

import "github.com/setanarut/vec"

// RotarySpringJointDef pulls the relative angle of two bodies towards
// RestAngle with a damped spring.
type RotarySpringJointDef struct {
	JointDefBase
	RestAngle    float64
	FrequencyHz  float64
	DampingRatio float64
}

// NewRotarySpringJointDef springs two bodies around their current relative
// angle.
func NewRotarySpringJointDef(a, b *Body, frequencyHz, dampingRatio float64) *RotarySpringJointDef {
	return &RotarySpringJointDef{
		JointDefBase: JointDefBase{BodyA: a, BodyB: b, CollideConnected: true},
		RestAngle:    b.Angle() - a.Angle(),
		FrequencyHz:  frequencyHz,
		DampingRatio: dampingRatio,
	}
}

// RotarySpringJoint is a soft angular constraint. It has no position pass.
type RotarySpringJoint struct {
	jointBase

	restAngle    float64
	frequencyHz  float64
	dampingRatio float64

	impulse float64
	gamma   float64
	bias    float64
	mass    float64
}

func newRotarySpringJoint(def *RotarySpringJointDef) *RotarySpringJoint {
	return &RotarySpringJoint{
		jointBase:    newJointBase(RotarySpringJointType, &def.JointDefBase),
		restAngle:    def.RestAngle,
		frequencyHz:  def.FrequencyHz,
		dampingRatio: def.DampingRatio,
	}
}

func (joint *RotarySpringJoint) AnchorA() vec.Vec2 { return joint.bodyA.Position() }
func (joint *RotarySpringJoint) AnchorB() vec.Vec2 { return joint.bodyB.Position() }

func (joint *RotarySpringJoint) ReactionForce(invDt float64) vec.Vec2 {
	return vec.Vec2{}
}

func (joint *RotarySpringJoint) ReactionTorque(invDt float64) float64 {
	return invDt * joint.impulse
}

func (joint *RotarySpringJoint) RestAngle() float64    { return joint.restAngle }
func (joint *RotarySpringJoint) FrequencyHz() float64  { return joint.frequencyHz }
func (joint *RotarySpringJoint) DampingRatio() float64 { return joint.dampingRatio }

func (joint *RotarySpringJoint) SetRestAngle(angle float64) {
	joint.restAngle = angle
	joint.wakeBodies()
}

func (joint *RotarySpringJoint) SetFrequencyHz(hz float64)     { joint.frequencyHz = hz }
func (joint *RotarySpringJoint) SetDampingRatio(ratio float64) { joint.dampingRatio = ratio }

func (joint *RotarySpringJoint) initVelocityConstraints(data *solverData) {
	joint.cacheBodies()

	_, aA := data.position(joint.bodyA)
	vA, wA := data.velocity(joint.bodyA)
	_, aB := data.position(joint.bodyB)
	vB, wB := data.velocity(joint.bodyB)

	iA, iB := joint.invIA, joint.invIB
	invM := iA + iB
	m := 0.0
	if invM > 0 {
		m = 1.0 / invM
	}

	C := aB - aA - joint.restAngle
	joint.gamma, joint.bias = softness(m, joint.frequencyHz, joint.dampingRatio, C, data.step.dt)

	invM += joint.gamma
	joint.mass = 0
	if invM != 0 {
		joint.mass = 1.0 / invM
	}

	if data.step.warmStarting {
		joint.impulse *= data.step.dtRatio
		wA -= iA * joint.impulse
		wB += iB * joint.impulse
	} else {
		joint.impulse = 0
	}

	data.setVelocity(joint.bodyA, vA, wA)
	data.setVelocity(joint.bodyB, vB, wB)
}

func (joint *RotarySpringJoint) solveVelocityConstraints(data *solverData) {
	vA, wA := data.velocity(joint.bodyA)
	vB, wB := data.velocity(joint.bodyB)

	Cdot := wB - wA
	impulse := -joint.mass * (Cdot + joint.bias + joint.gamma*joint.impulse)
	joint.impulse += impulse

	wA -= joint.invIA * impulse
	wB += joint.invIB * impulse

	data.setVelocity(joint.bodyA, vA, wA)
	data.setVelocity(joint.bodyB, vB, wB)
}

func (joint *RotarySpringJoint) solvePositionConstraints(data *solverData) bool {
	return true
}
