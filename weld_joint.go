package kinetic

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

// WeldJointDef glues two bodies together. A positive FrequencyHz softens
// the angular part.
type WeldJointDef struct {
	JointDefBase
	LocalAnchorA   vec.Vec2
	LocalAnchorB   vec.Vec2
	ReferenceAngle float64
	FrequencyHz    float64
	DampingRatio   float64
}

// NewWeldJointDef welds two bodies at a world anchor in their current
// relative pose.
func NewWeldJointDef(a, b *Body, anchor vec.Vec2) *WeldJointDef {
	return &WeldJointDef{
		JointDefBase:   JointDefBase{BodyA: a, BodyB: b},
		LocalAnchorA:   a.WorldToLocal(anchor),
		LocalAnchorB:   b.WorldToLocal(anchor),
		ReferenceAngle: b.Angle() - a.Angle(),
	}
}

// WeldJoint removes all relative motion between two bodies.
type WeldJoint struct {
	jointBase

	localAnchorA   vec.Vec2
	localAnchorB   vec.Vec2
	referenceAngle float64
	frequencyHz    float64
	dampingRatio   float64

	impulse mgl64.Vec3
	gamma   float64
	bias    float64

	rA, rB vec.Vec2
	mass   mgl64.Mat3
}

func newWeldJoint(def *WeldJointDef) *WeldJoint {
	return &WeldJoint{
		jointBase:      newJointBase(WeldJointType, &def.JointDefBase),
		localAnchorA:   def.LocalAnchorA,
		localAnchorB:   def.LocalAnchorB,
		referenceAngle: def.ReferenceAngle,
		frequencyHz:    def.FrequencyHz,
		dampingRatio:   def.DampingRatio,
	}
}

func (joint *WeldJoint) AnchorA() vec.Vec2 { return joint.bodyA.LocalToWorld(joint.localAnchorA) }
func (joint *WeldJoint) AnchorB() vec.Vec2 { return joint.bodyB.LocalToWorld(joint.localAnchorB) }

func (joint *WeldJoint) ReactionForce(invDt float64) vec.Vec2 {
	return vec.Vec2{X: joint.impulse[0], Y: joint.impulse[1]}.Scale(invDt)
}

func (joint *WeldJoint) ReactionTorque(invDt float64) float64 {
	return invDt * joint.impulse[2]
}

func (joint *WeldJoint) FrequencyHz() float64          { return joint.frequencyHz }
func (joint *WeldJoint) SetFrequencyHz(hz float64)     { joint.frequencyHz = hz }
func (joint *WeldJoint) DampingRatio() float64         { return joint.dampingRatio }
func (joint *WeldJoint) SetDampingRatio(ratio float64) { joint.dampingRatio = ratio }

// mat3From22 embeds a 2x2 matrix with zz in the last diagonal slot.
func mat3From22(m mgl64.Mat2, zz float64) mgl64.Mat3 {
	return mgl64.Mat3{m[0], m[1], 0, m[2], m[3], 0, 0, 0, zz}
}

func (joint *WeldJoint) initVelocityConstraints(data *solverData) {
	joint.cacheBodies()

	_, aA := data.position(joint.bodyA)
	vA, wA := data.velocity(joint.bodyA)
	_, aB := data.position(joint.bodyB)
	vB, wB := data.velocity(joint.bodyB)

	joint.rA = geom.NewRot(aA).Apply(joint.localAnchorA.Sub(joint.localCenterA))
	joint.rB = geom.NewRot(aB).Apply(joint.localAnchorB.Sub(joint.localCenterB))

	mA, mB := joint.invMassA, joint.invMassB
	iA, iB := joint.invIA, joint.invIB

	K := pointAngleMass(mA, mB, iA, iB, joint.rA, joint.rB)

	switch {
	case joint.frequencyHz > 0:
		invM := iA + iB
		m := 0.0
		if invM > 0 {
			m = 1.0 / invM
		}
		C := aB - aA - joint.referenceAngle
		joint.gamma, joint.bias = softness(m, joint.frequencyHz, joint.dampingRatio, C, data.step.dt)

		invM += joint.gamma
		zz := 0.0
		if invM != 0 {
			zz = 1.0 / invM
		}
		joint.mass = mat3From22(K.Mat2().Inv(), zz)
	case K.At(2, 2) == 0:
		joint.mass = mat3From22(K.Mat2().Inv(), 0)
		joint.gamma = 0
		joint.bias = 0
	default:
		joint.mass = K.Inv()
		joint.gamma = 0
		joint.bias = 0
	}

	if data.step.warmStarting {
		joint.impulse = joint.impulse.Mul(data.step.dtRatio)

		p := vec.Vec2{X: joint.impulse[0], Y: joint.impulse[1]}
		vA = vA.Sub(p.Scale(mA))
		wA -= iA * (joint.rA.Cross(p) + joint.impulse[2])
		vB = vB.Add(p.Scale(mB))
		wB += iB * (joint.rB.Cross(p) + joint.impulse[2])
	} else {
		joint.impulse = mgl64.Vec3{}
	}

	data.setVelocity(joint.bodyA, vA, wA)
	data.setVelocity(joint.bodyB, vB, wB)
}

func (joint *WeldJoint) solveVelocityConstraints(data *solverData) {
	vA, wA := data.velocity(joint.bodyA)
	vB, wB := data.velocity(joint.bodyB)

	mA, mB := joint.invMassA, joint.invMassB
	iA, iB := joint.invIA, joint.invIB

	if joint.frequencyHz > 0 {
		Cdot2 := wB - wA

		impulse2 := -joint.mass.At(2, 2) * (Cdot2 + joint.bias + joint.gamma*joint.impulse[2])
		joint.impulse[2] += impulse2

		wA -= iA * impulse2
		wB += iB * impulse2

		Cdot1 := relativeVelocity(vA, wA, joint.rA, vB, wB, joint.rB)

		p := geom.FromMgl(joint.mass.Mat2().Mul2x1(geom.ToMgl(Cdot1))).Neg()
		joint.impulse[0] += p.X
		joint.impulse[1] += p.Y

		vA = vA.Sub(p.Scale(mA))
		wA -= iA * joint.rA.Cross(p)
		vB = vB.Add(p.Scale(mB))
		wB += iB * joint.rB.Cross(p)
	} else {
		Cdot1 := relativeVelocity(vA, wA, joint.rA, vB, wB, joint.rB)
		Cdot2 := wB - wA

		impulse := joint.mass.Mul3x1(mgl64.Vec3{Cdot1.X, Cdot1.Y, Cdot2}).Mul(-1)
		joint.impulse = joint.impulse.Add(impulse)

		p := vec.Vec2{X: impulse[0], Y: impulse[1]}
		vA = vA.Sub(p.Scale(mA))
		wA -= iA * (joint.rA.Cross(p) + impulse[2])
		vB = vB.Add(p.Scale(mB))
		wB += iB * (joint.rB.Cross(p) + impulse[2])
	}

	data.setVelocity(joint.bodyA, vA, wA)
	data.setVelocity(joint.bodyB, vB, wB)
}

func (joint *WeldJoint) solvePositionConstraints(data *solverData) bool {
	cA, aA := data.position(joint.bodyA)
	cB, aB := data.position(joint.bodyB)

	mA, mB := joint.invMassA, joint.invMassB
	iA, iB := joint.invIA, joint.invIB

	rA := geom.NewRot(aA).Apply(joint.localAnchorA.Sub(joint.localCenterA))
	rB := geom.NewRot(aB).Apply(joint.localAnchorB.Sub(joint.localCenterB))

	K := pointAngleMass(mA, mB, iA, iB, rA, rB)

	C1 := cB.Add(rB).Sub(cA).Sub(rA)
	positionError := C1.Mag()
	angularError := 0.0

	if joint.frequencyHz > 0 {
		p := geom.Solve22Of33(K, C1).Neg()

		cA = cA.Sub(p.Scale(mA))
		aA -= iA * rA.Cross(p)
		cB = cB.Add(p.Scale(mB))
		aB += iB * rB.Cross(p)
	} else {
		C2 := aB - aA - joint.referenceAngle
		angularError = math.Abs(C2)

		var impulse mgl64.Vec3
		if K.At(2, 2) > 0 {
			impulse = geom.Solve33(K, mgl64.Vec3{C1.X, C1.Y, C2}).Mul(-1)
		} else {
			impulse2 := geom.Solve22Of33(K, C1).Neg()
			impulse = mgl64.Vec3{impulse2.X, impulse2.Y, 0}
		}

		p := vec.Vec2{X: impulse[0], Y: impulse[1]}
		cA = cA.Sub(p.Scale(mA))
		aA -= iA * (rA.Cross(p) + impulse[2])
		cB = cB.Add(p.Scale(mB))
		aB += iB * (rB.Cross(p) + impulse[2])
	}

	data.setPosition(joint.bodyA, cA, aA)
	data.setPosition(joint.bodyB, cB, aB)

	return positionError <= geom.LinearSlop && angularError <= geom.AngularSlop
}
