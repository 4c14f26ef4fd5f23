package kinetic

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

// RevoluteJointDef pins two bodies together at a shared point, leaving the
// relative rotation free. The rotation can be limited and driven by a
// motor.
type RevoluteJointDef struct {
	JointDefBase
	LocalAnchorA vec.Vec2
	LocalAnchorB vec.Vec2
	// ReferenceAngle is angleB - angleA in the reference state.
	ReferenceAngle float64

	EnableLimit bool
	LowerAngle  float64
	UpperAngle  float64

	EnableMotor    bool
	MotorSpeed     float64
	MaxMotorTorque float64
}

// NewRevoluteJointDef joins two bodies at a world anchor using their
// current relative angle as the reference.
func NewRevoluteJointDef(a, b *Body, anchor vec.Vec2) *RevoluteJointDef {
	return &RevoluteJointDef{
		JointDefBase:   JointDefBase{BodyA: a, BodyB: b},
		LocalAnchorA:   a.WorldToLocal(anchor),
		LocalAnchorB:   b.WorldToLocal(anchor),
		ReferenceAngle: b.Angle() - a.Angle(),
	}
}

// RevoluteJoint is a hinge.
type RevoluteJoint struct {
	jointBase

	localAnchorA   vec.Vec2
	localAnchorB   vec.Vec2
	referenceAngle float64

	// Point constraint impulse in x, y and limit impulse in z.
	impulse      mgl64.Vec3
	motorImpulse float64

	enableMotor    bool
	maxMotorTorque float64
	motorSpeed     float64

	enableLimit bool
	lowerAngle  float64
	upperAngle  float64

	rA, rB    vec.Vec2
	mass      mgl64.Mat3
	motorMass float64
	state     limitState
}

func newRevoluteJoint(def *RevoluteJointDef) *RevoluteJoint {
	if def.EnableLimit && def.LowerAngle > def.UpperAngle {
		panic("kinetic: revolute joint lower angle above upper angle")
	}
	return &RevoluteJoint{
		jointBase:      newJointBase(RevoluteJointType, &def.JointDefBase),
		localAnchorA:   def.LocalAnchorA,
		localAnchorB:   def.LocalAnchorB,
		referenceAngle: def.ReferenceAngle,
		enableLimit:    def.EnableLimit,
		lowerAngle:     def.LowerAngle,
		upperAngle:     def.UpperAngle,
		enableMotor:    def.EnableMotor,
		motorSpeed:     def.MotorSpeed,
		maxMotorTorque: def.MaxMotorTorque,
	}
}

func (joint *RevoluteJoint) AnchorA() vec.Vec2 { return joint.bodyA.LocalToWorld(joint.localAnchorA) }
func (joint *RevoluteJoint) AnchorB() vec.Vec2 { return joint.bodyB.LocalToWorld(joint.localAnchorB) }

func (joint *RevoluteJoint) ReactionForce(invDt float64) vec.Vec2 {
	return vec.Vec2{X: joint.impulse[0], Y: joint.impulse[1]}.Scale(invDt)
}

func (joint *RevoluteJoint) ReactionTorque(invDt float64) float64 {
	return invDt * joint.impulse[2]
}

// JointAngle returns the current angle of B relative to A, less the
// reference angle.
func (joint *RevoluteJoint) JointAngle() float64 {
	return joint.bodyB.sweep.A - joint.bodyA.sweep.A - joint.referenceAngle
}

// JointSpeed returns the relative angular velocity.
func (joint *RevoluteJoint) JointSpeed() float64 {
	return joint.bodyB.angularVelocity - joint.bodyA.angularVelocity
}

// MotorTorque returns the motor torque applied in the last step.
func (joint *RevoluteJoint) MotorTorque(invDt float64) float64 {
	return invDt * joint.motorImpulse
}

func (joint *RevoluteJoint) IsLimitEnabled() bool { return joint.enableLimit }

// EnableLimit turns the angle limit on or off.
func (joint *RevoluteJoint) EnableLimit(flag bool) {
	if flag != joint.enableLimit {
		joint.wakeBodies()
		joint.enableLimit = flag
		joint.impulse[2] = 0
	}
}

// Limits returns the lower and upper angle limits.
func (joint *RevoluteJoint) Limits() (lower, upper float64) {
	return joint.lowerAngle, joint.upperAngle
}

// SetLimits sets the angle limits. lower must not exceed upper.
func (joint *RevoluteJoint) SetLimits(lower, upper float64) {
	if lower > upper {
		panic("kinetic: revolute joint lower angle above upper angle")
	}
	if lower != joint.lowerAngle || upper != joint.upperAngle {
		joint.wakeBodies()
		joint.impulse[2] = 0
		joint.lowerAngle = lower
		joint.upperAngle = upper
	}
}

func (joint *RevoluteJoint) IsMotorEnabled() bool { return joint.enableMotor }

// EnableMotor turns the motor on or off.
func (joint *RevoluteJoint) EnableMotor(flag bool) {
	joint.wakeBodies()
	joint.enableMotor = flag
}

// SetMotorSpeed sets the target speed in radians per second.
func (joint *RevoluteJoint) SetMotorSpeed(speed float64) {
	joint.wakeBodies()
	joint.motorSpeed = speed
}

func (joint *RevoluteJoint) MotorSpeed() float64 { return joint.motorSpeed }

// SetMaxMotorTorque bounds the motor torque.
func (joint *RevoluteJoint) SetMaxMotorTorque(torque float64) {
	joint.wakeBodies()
	joint.maxMotorTorque = torque
}

func (joint *RevoluteJoint) initVelocityConstraints(data *solverData) {
	joint.cacheBodies()

	_, aA := data.position(joint.bodyA)
	vA, wA := data.velocity(joint.bodyA)
	_, aB := data.position(joint.bodyB)
	vB, wB := data.velocity(joint.bodyB)

	joint.rA = geom.NewRot(aA).Apply(joint.localAnchorA.Sub(joint.localCenterA))
	joint.rB = geom.NewRot(aB).Apply(joint.localAnchorB.Sub(joint.localCenterB))

	mA, mB := joint.invMassA, joint.invMassB
	iA, iB := joint.invIA, joint.invIB
	rA, rB := joint.rA, joint.rB

	fixedRotation := iA+iB == 0

	joint.mass = pointAngleMass(mA, mB, iA, iB, rA, rB)

	joint.motorMass = iA + iB
	if joint.motorMass > 0 {
		joint.motorMass = 1.0 / joint.motorMass
	}

	if !joint.enableMotor || fixedRotation {
		joint.motorImpulse = 0
	}

	if joint.enableLimit && !fixedRotation {
		jointAngle := aB - aA - joint.referenceAngle
		switch {
		case math.Abs(joint.upperAngle-joint.lowerAngle) < 2.0*geom.AngularSlop:
			joint.state = equalLimits
		case jointAngle <= joint.lowerAngle:
			if joint.state != atLowerLimit {
				joint.impulse[2] = 0
			}
			joint.state = atLowerLimit
		case jointAngle >= joint.upperAngle:
			if joint.state != atUpperLimit {
				joint.impulse[2] = 0
			}
			joint.state = atUpperLimit
		default:
			joint.state = inactiveLimit
			joint.impulse[2] = 0
		}
	} else {
		joint.state = inactiveLimit
	}

	if data.step.warmStarting {
		joint.impulse = joint.impulse.Mul(data.step.dtRatio)
		joint.motorImpulse *= data.step.dtRatio

		p := vec.Vec2{X: joint.impulse[0], Y: joint.impulse[1]}
		vA = vA.Sub(p.Scale(mA))
		wA -= iA * (rA.Cross(p) + joint.motorImpulse + joint.impulse[2])
		vB = vB.Add(p.Scale(mB))
		wB += iB * (rB.Cross(p) + joint.motorImpulse + joint.impulse[2])
	} else {
		joint.impulse = mgl64.Vec3{}
		joint.motorImpulse = 0
	}

	data.setVelocity(joint.bodyA, vA, wA)
	data.setVelocity(joint.bodyB, vB, wB)
}

func (joint *RevoluteJoint) solveVelocityConstraints(data *solverData) {
	vA, wA := data.velocity(joint.bodyA)
	vB, wB := data.velocity(joint.bodyB)

	mA, mB := joint.invMassA, joint.invMassB
	iA, iB := joint.invIA, joint.invIB

	fixedRotation := iA+iB == 0

	if joint.enableMotor && joint.state != equalLimits && !fixedRotation {
		Cdot := wB - wA - joint.motorSpeed
		impulse := -joint.motorMass * Cdot
		oldImpulse := joint.motorImpulse
		maxImpulse := data.step.dt * joint.maxMotorTorque
		joint.motorImpulse = mgl64.Clamp(joint.motorImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = joint.motorImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	Cdot1 := relativeVelocity(vA, wA, joint.rA, vB, wB, joint.rB)

	if joint.enableLimit && joint.state != inactiveLimit && !fixedRotation {
		Cdot2 := wB - wA
		impulse := geom.Solve33(joint.mass, mgl64.Vec3{Cdot1.X, Cdot1.Y, Cdot2}).Mul(-1)

		switch joint.state {
		case equalLimits:
			joint.impulse = joint.impulse.Add(impulse)
		case atLowerLimit, atUpperLimit:
			newImpulse := joint.impulse[2] + impulse[2]
			if (joint.state == atLowerLimit && newImpulse < 0) || (joint.state == atUpperLimit && newImpulse > 0) {
				// The limit would pull; drop it and solve the point part.
				rhs := Cdot1.Neg().Add(vec.Vec2{X: joint.mass.At(0, 2), Y: joint.mass.At(1, 2)}.Scale(joint.impulse[2]))
				reduced := geom.Solve22Of33(joint.mass, rhs)
				impulse = mgl64.Vec3{reduced.X, reduced.Y, -joint.impulse[2]}
				joint.impulse[0] += reduced.X
				joint.impulse[1] += reduced.Y
				joint.impulse[2] = 0
			} else {
				joint.impulse = joint.impulse.Add(impulse)
			}
		}

		p := vec.Vec2{X: impulse[0], Y: impulse[1]}
		vA = vA.Sub(p.Scale(mA))
		wA -= iA * (joint.rA.Cross(p) + impulse[2])
		vB = vB.Add(p.Scale(mB))
		wB += iB * (joint.rB.Cross(p) + impulse[2])
	} else {
		impulse := geom.Solve22Of33(joint.mass, Cdot1.Neg())
		joint.impulse[0] += impulse.X
		joint.impulse[1] += impulse.Y

		vA = vA.Sub(impulse.Scale(mA))
		wA -= iA * joint.rA.Cross(impulse)
		vB = vB.Add(impulse.Scale(mB))
		wB += iB * joint.rB.Cross(impulse)
	}

	data.setVelocity(joint.bodyA, vA, wA)
	data.setVelocity(joint.bodyB, vB, wB)
}

func (joint *RevoluteJoint) solvePositionConstraints(data *solverData) bool {
	cA, aA := data.position(joint.bodyA)
	cB, aB := data.position(joint.bodyB)

	angularError := 0.0
	positionError := 0.0

	fixedRotation := joint.invIA+joint.invIB == 0
	maxAngular := data.settings.MaxAngularCorrection

	if joint.enableLimit && joint.state != inactiveLimit && !fixedRotation {
		angle := aB - aA - joint.referenceAngle
		limitImpulse := 0.0

		switch joint.state {
		case equalLimits:
			C := mgl64.Clamp(angle-joint.lowerAngle, -maxAngular, maxAngular)
			limitImpulse = -joint.motorMass * C
			angularError = math.Abs(C)
		case atLowerLimit:
			C := angle - joint.lowerAngle
			angularError = -C
			C = mgl64.Clamp(C+geom.AngularSlop, -maxAngular, 0)
			limitImpulse = -joint.motorMass * C
		case atUpperLimit:
			C := angle - joint.upperAngle
			angularError = C
			C = mgl64.Clamp(C-geom.AngularSlop, 0, maxAngular)
			limitImpulse = -joint.motorMass * C
		}

		aA -= joint.invIA * limitImpulse
		aB += joint.invIB * limitImpulse
	}

	{
		rA := geom.NewRot(aA).Apply(joint.localAnchorA.Sub(joint.localCenterA))
		rB := geom.NewRot(aB).Apply(joint.localAnchorB.Sub(joint.localCenterB))

		C := cB.Add(rB).Sub(cA).Sub(rA)
		positionError = C.Mag()

		mA, mB := joint.invMassA, joint.invMassB
		iA, iB := joint.invIA, joint.invIB

		k11 := mA + mB + iA*rA.Y*rA.Y + iB*rB.Y*rB.Y
		k12 := -iA*rA.X*rA.Y - iB*rB.X*rB.Y
		k22 := mA + mB + iA*rA.X*rA.X + iB*rB.X*rB.X
		impulse := geom.Solve22(mgl64.Mat2{k11, k12, k12, k22}, C).Neg()

		cA = cA.Sub(impulse.Scale(mA))
		aA -= iA * rA.Cross(impulse)
		cB = cB.Add(impulse.Scale(mB))
		aB += iB * rB.Cross(impulse)
	}

	data.setPosition(joint.bodyA, cA, aA)
	data.setPosition(joint.bodyB, cB, aB)

	return positionError <= geom.LinearSlop && angularError <= geom.AngularSlop
}
