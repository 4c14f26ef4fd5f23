package kinetic

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

// DistanceJointDef keeps two anchor points at a fixed distance. A positive
// FrequencyHz makes the joint a spring.
type DistanceJointDef struct {
	JointDefBase
	LocalAnchorA vec.Vec2
	LocalAnchorB vec.Vec2
	// Length is the rest length.
	Length float64
	// FrequencyHz is the mass-spring-damper frequency. Zero disables
	// softness.
	FrequencyHz  float64
	DampingRatio float64
}

// NewDistanceJointDef joins two bodies at world anchors, using the current
// distance between them as the rest length.
func NewDistanceJointDef(a, b *Body, anchorA, anchorB vec.Vec2) *DistanceJointDef {
	return &DistanceJointDef{
		JointDefBase: JointDefBase{BodyA: a, BodyB: b},
		LocalAnchorA: a.WorldToLocal(anchorA),
		LocalAnchorB: b.WorldToLocal(anchorB),
		Length:       anchorB.Sub(anchorA).Mag(),
	}
}

// DistanceJoint keeps two anchor points at a fixed distance, like a massless
// rigid rod.
type DistanceJoint struct {
	jointBase

	localAnchorA vec.Vec2
	localAnchorB vec.Vec2
	length       float64
	frequencyHz  float64
	dampingRatio float64

	impulse float64
	gamma   float64
	bias    float64

	u, rA, rB vec.Vec2
	mass      float64
}

func newDistanceJoint(def *DistanceJointDef) *DistanceJoint {
	return &DistanceJoint{
		jointBase:    newJointBase(DistanceJointType, &def.JointDefBase),
		localAnchorA: def.LocalAnchorA,
		localAnchorB: def.LocalAnchorB,
		length:       math.Max(def.Length, geom.LinearSlop),
		frequencyHz:  def.FrequencyHz,
		dampingRatio: def.DampingRatio,
	}
}

func (joint *DistanceJoint) AnchorA() vec.Vec2 { return joint.bodyA.LocalToWorld(joint.localAnchorA) }
func (joint *DistanceJoint) AnchorB() vec.Vec2 { return joint.bodyB.LocalToWorld(joint.localAnchorB) }

func (joint *DistanceJoint) ReactionForce(invDt float64) vec.Vec2 {
	return joint.u.Scale(invDt * joint.impulse)
}

func (joint *DistanceJoint) ReactionTorque(invDt float64) float64 {
	return 0
}

func (joint *DistanceJoint) Length() float64 { return joint.length }

// SetLength changes the rest length.
func (joint *DistanceJoint) SetLength(length float64) {
	joint.length = math.Max(length, geom.LinearSlop)
}

func (joint *DistanceJoint) FrequencyHz() float64          { return joint.frequencyHz }
func (joint *DistanceJoint) SetFrequencyHz(hz float64)     { joint.frequencyHz = hz }
func (joint *DistanceJoint) DampingRatio() float64         { return joint.dampingRatio }
func (joint *DistanceJoint) SetDampingRatio(ratio float64) { joint.dampingRatio = ratio }

func (joint *DistanceJoint) initVelocityConstraints(data *solverData) {
	joint.cacheBodies()

	cA, aA := data.position(joint.bodyA)
	vA, wA := data.velocity(joint.bodyA)
	cB, aB := data.position(joint.bodyB)
	vB, wB := data.velocity(joint.bodyB)

	qA, qB := geom.NewRot(aA), geom.NewRot(aB)

	joint.rA = qA.Apply(joint.localAnchorA.Sub(joint.localCenterA))
	joint.rB = qB.Apply(joint.localAnchorB.Sub(joint.localCenterB))
	joint.u = cB.Add(joint.rB).Sub(cA).Sub(joint.rA)

	// Handle singularity.
	length := joint.u.Mag()
	if length > geom.LinearSlop {
		joint.u = joint.u.Scale(1.0 / length)
	} else {
		joint.u = vec.Vec2{}
	}

	crAu := joint.rA.Cross(joint.u)
	crBu := joint.rB.Cross(joint.u)
	invMass := joint.invMassA + joint.invIA*crAu*crAu + joint.invMassB + joint.invIB*crBu*crBu

	joint.mass = 0
	if invMass != 0 {
		joint.mass = 1.0 / invMass
	}

	if joint.frequencyHz > 0 {
		C := length - joint.length
		joint.gamma, joint.bias = softness(joint.mass, joint.frequencyHz, joint.dampingRatio, C, data.step.dt)

		invMass += joint.gamma
		joint.mass = 0
		if invMass != 0 {
			joint.mass = 1.0 / invMass
		}
	} else {
		joint.gamma = 0
		joint.bias = 0
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

func (joint *DistanceJoint) solveVelocityConstraints(data *solverData) {
	vA, wA := data.velocity(joint.bodyA)
	vB, wB := data.velocity(joint.bodyB)

	Cdot := joint.u.Dot(relativeVelocity(vA, wA, joint.rA, vB, wB, joint.rB))

	impulse := -joint.mass * (Cdot + joint.bias + joint.gamma*joint.impulse)
	joint.impulse += impulse

	p := joint.u.Scale(impulse)
	vA = vA.Sub(p.Scale(joint.invMassA))
	wA -= joint.invIA * joint.rA.Cross(p)
	vB = vB.Add(p.Scale(joint.invMassB))
	wB += joint.invIB * joint.rB.Cross(p)

	data.setVelocity(joint.bodyA, vA, wA)
	data.setVelocity(joint.bodyB, vB, wB)
}

func (joint *DistanceJoint) solvePositionConstraints(data *solverData) bool {
	// Springs do not position correct.
	if joint.frequencyHz > 0 {
		return true
	}

	cA, aA := data.position(joint.bodyA)
	cB, aB := data.position(joint.bodyB)

	rA := geom.NewRot(aA).Apply(joint.localAnchorA.Sub(joint.localCenterA))
	rB := geom.NewRot(aB).Apply(joint.localAnchorB.Sub(joint.localCenterB))
	u, length := geom.Normalize(cB.Add(rB).Sub(cA).Sub(rA))

	maxCorrection := data.settings.MaxLinearCorrection
	C := mgl64.Clamp(length-joint.length, -maxCorrection, maxCorrection)

	impulse := -joint.mass * C
	p := u.Scale(impulse)

	cA = cA.Sub(p.Scale(joint.invMassA))
	aA -= joint.invIA * rA.Cross(p)
	cB = cB.Add(p.Scale(joint.invMassB))
	aB += joint.invIB * rB.Cross(p)

	data.setPosition(joint.bodyA, cA, aA)
	data.setPosition(joint.bodyB, cB, aB)

	return math.Abs(C) < geom.LinearSlop
}
