package kinetic

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

// MouseJointDef drags a point of body B towards a world target with a soft
// spring. BodyA is only a reference, usually a static ground body.
type MouseJointDef struct {
	JointDefBase
	Target       vec.Vec2
	MaxForce     float64
	FrequencyHz  float64
	DampingRatio float64
}

// NewMouseJointDef grabs body b at the world point target.
func NewMouseJointDef(ground, b *Body, target vec.Vec2, maxForce float64) *MouseJointDef {
	return &MouseJointDef{
		JointDefBase: JointDefBase{BodyA: ground, BodyB: b},
		Target:       target,
		MaxForce:     maxForce,
		FrequencyHz:  5.0,
		DampingRatio: 0.7,
	}
}

// MouseJoint pulls a body point towards a target.
type MouseJoint struct {
	jointBase

	localAnchorB vec.Vec2
	target       vec.Vec2
	frequencyHz  float64
	dampingRatio float64
	maxForce     float64

	impulse vec.Vec2
	gamma   float64
	beta    float64

	rB   vec.Vec2
	mass mgl64.Mat2
	C    vec.Vec2
}

func newMouseJoint(def *MouseJointDef) *MouseJoint {
	if def.MaxForce < 0 || def.FrequencyHz < 0 || def.DampingRatio < 0 {
		panic("kinetic: mouse joint parameters must not be negative")
	}
	return &MouseJoint{
		jointBase:    newJointBase(MouseJointType, &def.JointDefBase),
		localAnchorB: def.BodyB.WorldToLocal(def.Target),
		target:       def.Target,
		frequencyHz:  def.FrequencyHz,
		dampingRatio: def.DampingRatio,
		maxForce:     def.MaxForce,
	}
}

func (joint *MouseJoint) AnchorA() vec.Vec2 { return joint.target }
func (joint *MouseJoint) AnchorB() vec.Vec2 { return joint.bodyB.LocalToWorld(joint.localAnchorB) }

func (joint *MouseJoint) ReactionForce(invDt float64) vec.Vec2 {
	return joint.impulse.Scale(invDt)
}

func (joint *MouseJoint) ReactionTorque(invDt float64) float64 {
	return 0
}

func (joint *MouseJoint) Target() vec.Vec2 { return joint.target }

// SetTarget moves the target and wakes body B.
func (joint *MouseJoint) SetTarget(target vec.Vec2) {
	if target != joint.target {
		joint.bodyB.SetAwake(true)
		joint.target = target
	}
}

func (joint *MouseJoint) MaxForce() float64         { return joint.maxForce }
func (joint *MouseJoint) SetMaxForce(force float64) { joint.maxForce = force }
func (joint *MouseJoint) FrequencyHz() float64      { return joint.frequencyHz }
func (joint *MouseJoint) SetFrequencyHz(hz float64) { joint.frequencyHz = hz }
func (joint *MouseJoint) DampingRatio() float64     { return joint.dampingRatio }
func (joint *MouseJoint) SetDampingRatio(r float64) { joint.dampingRatio = r }

func (joint *MouseJoint) initVelocityConstraints(data *solverData) {
	joint.cacheBodies()

	cB, aB := data.position(joint.bodyB)
	vB, wB := data.velocity(joint.bodyB)

	mass := joint.bodyB.mass
	h := data.step.dt

	omega := 2.0 * math.Pi * joint.frequencyHz
	d := 2.0 * mass * joint.dampingRatio * omega
	k := mass * (omega * omega)

	// Soft constraint. Without damping and stiffness the target pulls
	// rigidly.
	joint.gamma = h * (d + h*k)
	if joint.gamma != 0 {
		joint.gamma = 1.0 / joint.gamma
	}
	joint.beta = h * k * joint.gamma

	joint.rB = geom.NewRot(aB).Apply(joint.localAnchorB.Sub(joint.localCenterB))

	mB, iB := joint.invMassB, joint.invIB
	rB := joint.rB
	k11 := mB + iB*rB.Y*rB.Y + joint.gamma
	k12 := -iB * rB.X * rB.Y
	k22 := mB + iB*rB.X*rB.X + joint.gamma
	joint.mass = mgl64.Mat2{k11, k12, k12, k22}.Inv()

	joint.C = cB.Add(rB).Sub(joint.target).Scale(joint.beta)

	// Cheat with some damping.
	wB *= 0.98

	if data.step.warmStarting {
		joint.impulse = joint.impulse.Scale(data.step.dtRatio)
		vB = vB.Add(joint.impulse.Scale(mB))
		wB += iB * rB.Cross(joint.impulse)
	} else {
		joint.impulse = vec.Vec2{}
	}

	data.setVelocity(joint.bodyB, vB, wB)
}

func (joint *MouseJoint) solveVelocityConstraints(data *solverData) {
	vB, wB := data.velocity(joint.bodyB)

	Cdot := vB.Add(geom.CrossSV(wB, joint.rB))
	rhs := Cdot.Add(joint.C).Add(joint.impulse.Scale(joint.gamma)).Neg()
	impulse := geom.FromMgl(joint.mass.Mul2x1(geom.ToMgl(rhs)))

	oldImpulse := joint.impulse
	joint.impulse = joint.impulse.Add(impulse)
	maxImpulse := data.step.dt * joint.maxForce
	if joint.impulse.Dot(joint.impulse) > maxImpulse*maxImpulse {
		joint.impulse = joint.impulse.Scale(maxImpulse / joint.impulse.Mag())
	}
	impulse = joint.impulse.Sub(oldImpulse)

	vB = vB.Add(impulse.Scale(joint.invMassB))
	wB += joint.invIB * joint.rB.Cross(impulse)

	data.setVelocity(joint.bodyB, vB, wB)
}

func (joint *MouseJoint) solvePositionConstraints(data *solverData) bool {
	return true
}
