package kinetic

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

// RopeJointDef limits the distance between two anchors to MaxLength.
type RopeJointDef struct {
	JointDefBase
	LocalAnchorA vec.Vec2
	LocalAnchorB vec.Vec2
	MaxLength    float64
}

// NewRopeJointDef ties two bodies at world anchors with the current
// distance as the maximum length.
func NewRopeJointDef(a, b *Body, anchorA, anchorB vec.Vec2) *RopeJointDef {
	return &RopeJointDef{
		JointDefBase: JointDefBase{BodyA: a, BodyB: b, CollideConnected: true},
		LocalAnchorA: a.WorldToLocal(anchorA),
		LocalAnchorB: b.WorldToLocal(anchorB),
		MaxLength:    anchorB.Sub(anchorA).Mag(),
	}
}

// RopeJoint is a one-sided distance constraint. It only pulls.
type RopeJoint struct {
	jointBase

	localAnchorA vec.Vec2
	localAnchorB vec.Vec2
	maxLength    float64
	length       float64
	impulse      float64

	u, rA, rB vec.Vec2
	mass      float64
	state     limitState
}

func newRopeJoint(def *RopeJointDef) *RopeJoint {
	return &RopeJoint{
		jointBase:    newJointBase(RopeJointType, &def.JointDefBase),
		localAnchorA: def.LocalAnchorA,
		localAnchorB: def.LocalAnchorB,
		maxLength:    def.MaxLength,
	}
}

func (joint *RopeJoint) AnchorA() vec.Vec2 { return joint.bodyA.LocalToWorld(joint.localAnchorA) }
func (joint *RopeJoint) AnchorB() vec.Vec2 { return joint.bodyB.LocalToWorld(joint.localAnchorB) }

func (joint *RopeJoint) ReactionForce(invDt float64) vec.Vec2 {
	return joint.u.Scale(invDt * joint.impulse)
}

func (joint *RopeJoint) ReactionTorque(invDt float64) float64 {
	return 0
}

func (joint *RopeJoint) MaxLength() float64 { return joint.maxLength }

func (joint *RopeJoint) SetMaxLength(length float64) {
	joint.maxLength = length
}

// IsTaut reports whether the rope was at its maximum length in the last
// step.
func (joint *RopeJoint) IsTaut() bool {
	return joint.state == atUpperLimit
}

func (joint *RopeJoint) initVelocityConstraints(data *solverData) {
	joint.cacheBodies()

	cA, aA := data.position(joint.bodyA)
	vA, wA := data.velocity(joint.bodyA)
	cB, aB := data.position(joint.bodyB)
	vB, wB := data.velocity(joint.bodyB)

	joint.rA = geom.NewRot(aA).Apply(joint.localAnchorA.Sub(joint.localCenterA))
	joint.rB = geom.NewRot(aB).Apply(joint.localAnchorB.Sub(joint.localCenterB))
	joint.u = cB.Add(joint.rB).Sub(cA).Sub(joint.rA)

	joint.length = joint.u.Mag()

	if joint.length-joint.maxLength > 0 {
		joint.state = atUpperLimit
	} else {
		joint.state = inactiveLimit
	}

	if joint.length > geom.LinearSlop {
		joint.u = joint.u.Scale(1.0 / joint.length)
	} else {
		joint.u = vec.Vec2{}
		joint.mass = 0
		joint.impulse = 0
		return
	}

	crA := joint.rA.Cross(joint.u)
	crB := joint.rB.Cross(joint.u)
	invMass := joint.invMassA + joint.invIA*crA*crA + joint.invMassB + joint.invIB*crB*crB

	joint.mass = 0
	if invMass != 0 {
		joint.mass = 1.0 / invMass
	}

	if data.step.warmStarting {
		joint.impulse *= data.step.dtRatio

		p := joint.u.Scale(joint.impulse)
		vA = vA.Sub(p.Scale(joint.invMassA))
		wA -= joint.invIA * joint.rA.Cross(p)
		vB = vB.Add(p.Scale(joint.invMassB))
		wB += joint.invIB * joint.rB.Cross(p)
	} else {
		joint.impulse = 0
	}

	data.setVelocity(joint.bodyA, vA, wA)
	data.setVelocity(joint.bodyB, vB, wB)
}

func (joint *RopeJoint) solveVelocityConstraints(data *solverData) {
	vA, wA := data.velocity(joint.bodyA)
	vB, wB := data.velocity(joint.bodyB)

	C := joint.length - joint.maxLength
	Cdot := joint.u.Dot(relativeVelocity(vA, wA, joint.rA, vB, wB, joint.rB))

	// Predictive constraint.
	if C < 0 {
		Cdot += data.step.invDt * C
	}

	impulse := -joint.mass * Cdot
	oldImpulse := joint.impulse
	joint.impulse = math.Min(0, joint.impulse+impulse)
	impulse = joint.impulse - oldImpulse

	p := joint.u.Scale(impulse)
	vA = vA.Sub(p.Scale(joint.invMassA))
	wA -= joint.invIA * joint.rA.Cross(p)
	vB = vB.Add(p.Scale(joint.invMassB))
	wB += joint.invIB * joint.rB.Cross(p)

	data.setVelocity(joint.bodyA, vA, wA)
	data.setVelocity(joint.bodyB, vB, wB)
}

func (joint *RopeJoint) solvePositionConstraints(data *solverData) bool {
	cA, aA := data.position(joint.bodyA)
	cB, aB := data.position(joint.bodyB)

	rA := geom.NewRot(aA).Apply(joint.localAnchorA.Sub(joint.localCenterA))
	rB := geom.NewRot(aB).Apply(joint.localAnchorB.Sub(joint.localCenterB))
	u, length := geom.Normalize(cB.Add(rB).Sub(cA).Sub(rA))

	C := mgl64.Clamp(length-joint.maxLength, 0, data.settings.MaxLinearCorrection)

	impulse := -joint.mass * C
	p := u.Scale(impulse)

	cA = cA.Sub(p.Scale(joint.invMassA))
	aA -= joint.invIA * rA.Cross(p)
	cB = cB.Add(p.Scale(joint.invMassB))
	aB += joint.invIB * rB.Cross(p)

	data.setPosition(joint.bodyA, cA, aA)
	data.setPosition(joint.bodyB, cB, aB)

	return length-joint.maxLength < geom.LinearSlop
}
