package kinetic

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

// PrismaticJointDef lets body B slide along an axis fixed in body A with no
// relative rotation.
type PrismaticJointDef struct {
	JointDefBase
	LocalAnchorA vec.Vec2
	LocalAnchorB vec.Vec2
	// LocalAxisA is the unit slide axis in body A.
	LocalAxisA     vec.Vec2
	ReferenceAngle float64

	EnableLimit      bool
	LowerTranslation float64
	UpperTranslation float64

	EnableMotor   bool
	MotorSpeed    float64
	MaxMotorForce float64
}

// NewPrismaticJointDef joins two bodies at a world anchor sliding along a
// world axis.
func NewPrismaticJointDef(a, b *Body, anchor, axis vec.Vec2) *PrismaticJointDef {
	return &PrismaticJointDef{
		JointDefBase:   JointDefBase{BodyA: a, BodyB: b},
		LocalAnchorA:   a.WorldToLocal(anchor),
		LocalAnchorB:   b.WorldToLocal(anchor),
		LocalAxisA:     a.WorldVectorToLocal(axis),
		ReferenceAngle: b.Angle() - a.Angle(),
	}
}

// PrismaticJoint is a slider.
type PrismaticJoint struct {
	jointBase

	localAnchorA   vec.Vec2
	localAnchorB   vec.Vec2
	localXAxisA    vec.Vec2
	localYAxisA    vec.Vec2
	referenceAngle float64

	// Perpendicular and angular impulse in x, y; limit impulse in z.
	impulse      mgl64.Vec3
	motorImpulse float64

	lowerTranslation float64
	upperTranslation float64
	maxMotorForce    float64
	motorSpeed       float64
	enableLimit      bool
	enableMotor      bool
	state            limitState

	axis, perp vec.Vec2
	s1, s2     float64
	a1, a2     float64
	k          mgl64.Mat3
	motorMass  float64
}

func newPrismaticJoint(def *PrismaticJointDef) *PrismaticJoint {
	if def.EnableLimit && def.LowerTranslation > def.UpperTranslation {
		panic("kinetic: prismatic joint lower translation above upper translation")
	}
	axis, _ := geom.Normalize(def.LocalAxisA)
	return &PrismaticJoint{
		jointBase:        newJointBase(PrismaticJointType, &def.JointDefBase),
		localAnchorA:     def.LocalAnchorA,
		localAnchorB:     def.LocalAnchorB,
		localXAxisA:      axis,
		localYAxisA:      geom.CrossSV(1, axis),
		referenceAngle:   def.ReferenceAngle,
		lowerTranslation: def.LowerTranslation,
		upperTranslation: def.UpperTranslation,
		maxMotorForce:    def.MaxMotorForce,
		motorSpeed:       def.MotorSpeed,
		enableLimit:      def.EnableLimit,
		enableMotor:      def.EnableMotor,
	}
}

func (joint *PrismaticJoint) AnchorA() vec.Vec2 { return joint.bodyA.LocalToWorld(joint.localAnchorA) }
func (joint *PrismaticJoint) AnchorB() vec.Vec2 { return joint.bodyB.LocalToWorld(joint.localAnchorB) }

func (joint *PrismaticJoint) ReactionForce(invDt float64) vec.Vec2 {
	return joint.perp.Scale(joint.impulse[0]).Add(joint.axis.Scale(joint.motorImpulse + joint.impulse[2])).Scale(invDt)
}

func (joint *PrismaticJoint) ReactionTorque(invDt float64) float64 {
	return invDt * joint.impulse[1]
}

// JointTranslation returns the anchor separation along the axis.
func (joint *PrismaticJoint) JointTranslation() float64 {
	d := joint.AnchorB().Sub(joint.AnchorA())
	return d.Dot(joint.bodyA.LocalVectorToWorld(joint.localXAxisA))
}

// MotorForce returns the motor force applied in the last step.
func (joint *PrismaticJoint) MotorForce(invDt float64) float64 {
	return invDt * joint.motorImpulse
}

func (joint *PrismaticJoint) IsLimitEnabled() bool { return joint.enableLimit }

// EnableLimit turns the translation limit on or off.
func (joint *PrismaticJoint) EnableLimit(flag bool) {
	if flag != joint.enableLimit {
		joint.wakeBodies()
		joint.enableLimit = flag
		joint.impulse[2] = 0
	}
}

// Limits returns the lower and upper translation limits.
func (joint *PrismaticJoint) Limits() (lower, upper float64) {
	return joint.lowerTranslation, joint.upperTranslation
}

// SetLimits sets the translation limits. lower must not exceed upper.
func (joint *PrismaticJoint) SetLimits(lower, upper float64) {
	if lower > upper {
		panic("kinetic: prismatic joint lower translation above upper translation")
	}
	if lower != joint.lowerTranslation || upper != joint.upperTranslation {
		joint.wakeBodies()
		joint.lowerTranslation = lower
		joint.upperTranslation = upper
		joint.impulse[2] = 0
	}
}

func (joint *PrismaticJoint) IsMotorEnabled() bool { return joint.enableMotor }

// EnableMotor turns the motor on or off.
func (joint *PrismaticJoint) EnableMotor(flag bool) {
	joint.wakeBodies()
	joint.enableMotor = flag
}

// SetMotorSpeed sets the target speed along the axis.
func (joint *PrismaticJoint) SetMotorSpeed(speed float64) {
	joint.wakeBodies()
	joint.motorSpeed = speed
}

func (joint *PrismaticJoint) MotorSpeed() float64 { return joint.motorSpeed }

// SetMaxMotorForce bounds the motor force.
func (joint *PrismaticJoint) SetMaxMotorForce(force float64) {
	joint.wakeBodies()
	joint.maxMotorForce = force
}

// prismaticMass builds the 3x3 effective mass of the perpendicular, angular
// and axial constraints.
func prismaticMass(mA, mB, iA, iB, s1, s2, a1, a2 float64) mgl64.Mat3 {
	k11 := mA + mB + iA*s1*s1 + iB*s2*s2
	k12 := iA*s1 + iB*s2
	k13 := iA*s1*a1 + iB*s2*a2
	k22 := iA + iB
	if k22 == 0 {
		// For bodies with fixed rotation.
		k22 = 1
	}
	k23 := iA*a1 + iB*a2
	k33 := mA + mB + iA*a1*a1 + iB*a2*a2
	return mgl64.Mat3{k11, k12, k13, k12, k22, k23, k13, k23, k33}
}

func (joint *PrismaticJoint) initVelocityConstraints(data *solverData) {
	joint.cacheBodies()

	cA, aA := data.position(joint.bodyA)
	vA, wA := data.velocity(joint.bodyA)
	cB, aB := data.position(joint.bodyB)
	vB, wB := data.velocity(joint.bodyB)

	qA, qB := geom.NewRot(aA), geom.NewRot(aB)

	rA := qA.Apply(joint.localAnchorA.Sub(joint.localCenterA))
	rB := qB.Apply(joint.localAnchorB.Sub(joint.localCenterB))
	d := cB.Sub(cA).Add(rB).Sub(rA)

	mA, mB := joint.invMassA, joint.invMassB
	iA, iB := joint.invIA, joint.invIB

	joint.axis = qA.Apply(joint.localXAxisA)
	joint.a1 = d.Add(rA).Cross(joint.axis)
	joint.a2 = rB.Cross(joint.axis)

	joint.motorMass = mA + mB + iA*joint.a1*joint.a1 + iB*joint.a2*joint.a2
	if joint.motorMass > 0 {
		joint.motorMass = 1.0 / joint.motorMass
	}

	joint.perp = qA.Apply(joint.localYAxisA)
	joint.s1 = d.Add(rA).Cross(joint.perp)
	joint.s2 = rB.Cross(joint.perp)

	joint.k = prismaticMass(mA, mB, iA, iB, joint.s1, joint.s2, joint.a1, joint.a2)

	if joint.enableLimit {
		translation := joint.axis.Dot(d)
		switch {
		case math.Abs(joint.upperTranslation-joint.lowerTranslation) < 2.0*geom.LinearSlop:
			joint.state = equalLimits
		case translation <= joint.lowerTranslation:
			if joint.state != atLowerLimit {
				joint.state = atLowerLimit
				joint.impulse[2] = 0
			}
		case translation >= joint.upperTranslation:
			if joint.state != atUpperLimit {
				joint.state = atUpperLimit
				joint.impulse[2] = 0
			}
		default:
			joint.state = inactiveLimit
			joint.impulse[2] = 0
		}
	} else {
		joint.state = inactiveLimit
		joint.impulse[2] = 0
	}

	if !joint.enableMotor {
		joint.motorImpulse = 0
	}

	if data.step.warmStarting {
		joint.impulse = joint.impulse.Mul(data.step.dtRatio)
		joint.motorImpulse *= data.step.dtRatio

		axial := joint.motorImpulse + joint.impulse[2]
		p := joint.perp.Scale(joint.impulse[0]).Add(joint.axis.Scale(axial))
		LA := joint.impulse[0]*joint.s1 + joint.impulse[1] + axial*joint.a1
		LB := joint.impulse[0]*joint.s2 + joint.impulse[1] + axial*joint.a2

		vA = vA.Sub(p.Scale(mA))
		wA -= iA * LA
		vB = vB.Add(p.Scale(mB))
		wB += iB * LB
	} else {
		joint.impulse = mgl64.Vec3{}
		joint.motorImpulse = 0
	}

	data.setVelocity(joint.bodyA, vA, wA)
	data.setVelocity(joint.bodyB, vB, wB)
}

func (joint *PrismaticJoint) solveVelocityConstraints(data *solverData) {
	vA, wA := data.velocity(joint.bodyA)
	vB, wB := data.velocity(joint.bodyB)

	mA, mB := joint.invMassA, joint.invMassB
	iA, iB := joint.invIA, joint.invIB

	if joint.enableMotor && joint.state != equalLimits {
		Cdot := joint.axis.Dot(vB.Sub(vA)) + joint.a2*wB - joint.a1*wA
		impulse := joint.motorMass * (joint.motorSpeed - Cdot)
		oldImpulse := joint.motorImpulse
		maxImpulse := data.step.dt * joint.maxMotorForce
		joint.motorImpulse = mgl64.Clamp(joint.motorImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = joint.motorImpulse - oldImpulse

		p := joint.axis.Scale(impulse)
		vA = vA.Sub(p.Scale(mA))
		wA -= iA * impulse * joint.a1
		vB = vB.Add(p.Scale(mB))
		wB += iB * impulse * joint.a2
	}

	Cdot1 := vec.Vec2{
		X: joint.perp.Dot(vB.Sub(vA)) + joint.s2*wB - joint.s1*wA,
		Y: wB - wA,
	}

	if joint.enableLimit && joint.state != inactiveLimit {
		Cdot2 := joint.axis.Dot(vB.Sub(vA)) + joint.a2*wB - joint.a1*wA

		f1 := joint.impulse
		df := geom.Solve33(joint.k, mgl64.Vec3{-Cdot1.X, -Cdot1.Y, -Cdot2})
		joint.impulse = joint.impulse.Add(df)

		if joint.state == atLowerLimit {
			joint.impulse[2] = math.Max(joint.impulse[2], 0)
		} else if joint.state == atUpperLimit {
			joint.impulse[2] = math.Min(joint.impulse[2], 0)
		}

		// f2(1:2) = invK(1:2,1:2) * (-Cdot(1:2) - K(1:2,3) * (f2(3) - f1(3))) + f1(1:2)
		k13 := vec.Vec2{X: joint.k.At(0, 2), Y: joint.k.At(1, 2)}
		b := Cdot1.Neg().Sub(k13.Scale(joint.impulse[2] - f1[2]))
		f2r := geom.Solve22Of33(joint.k, b).Add(vec.Vec2{X: f1[0], Y: f1[1]})
		joint.impulse[0] = f2r.X
		joint.impulse[1] = f2r.Y

		df = joint.impulse.Sub(f1)

		p := joint.perp.Scale(df[0]).Add(joint.axis.Scale(df[2]))
		LA := df[0]*joint.s1 + df[1] + df[2]*joint.a1
		LB := df[0]*joint.s2 + df[1] + df[2]*joint.a2

		vA = vA.Sub(p.Scale(mA))
		wA -= iA * LA
		vB = vB.Add(p.Scale(mB))
		wB += iB * LB
	} else {
		df := geom.Solve22Of33(joint.k, Cdot1.Neg())
		joint.impulse[0] += df.X
		joint.impulse[1] += df.Y

		p := joint.perp.Scale(df.X)
		LA := df.X*joint.s1 + df.Y
		LB := df.X*joint.s2 + df.Y

		vA = vA.Sub(p.Scale(mA))
		wA -= iA * LA
		vB = vB.Add(p.Scale(mB))
		wB += iB * LB
	}

	data.setVelocity(joint.bodyA, vA, wA)
	data.setVelocity(joint.bodyB, vB, wB)
}

func (joint *PrismaticJoint) solvePositionConstraints(data *solverData) bool {
	cA, aA := data.position(joint.bodyA)
	cB, aB := data.position(joint.bodyB)

	qA, qB := geom.NewRot(aA), geom.NewRot(aB)

	mA, mB := joint.invMassA, joint.invMassB
	iA, iB := joint.invIA, joint.invIB
	maxLinear := data.settings.MaxLinearCorrection

	rA := qA.Apply(joint.localAnchorA.Sub(joint.localCenterA))
	rB := qB.Apply(joint.localAnchorB.Sub(joint.localCenterB))
	d := cB.Add(rB).Sub(cA).Sub(rA)

	axis := qA.Apply(joint.localXAxisA)
	a1 := d.Add(rA).Cross(axis)
	a2 := rB.Cross(axis)
	perp := qA.Apply(joint.localYAxisA)

	s1 := d.Add(rA).Cross(perp)
	s2 := rB.Cross(perp)

	C1 := vec.Vec2{X: perp.Dot(d), Y: aB - aA - joint.referenceAngle}

	linearError := math.Abs(C1.X)
	angularError := math.Abs(C1.Y)

	active := false
	C2 := 0.0
	if joint.enableLimit {
		translation := axis.Dot(d)
		switch {
		case math.Abs(joint.upperTranslation-joint.lowerTranslation) < 2.0*geom.LinearSlop:
			C2 = mgl64.Clamp(translation, -maxLinear, maxLinear)
			linearError = math.Max(linearError, math.Abs(translation))
			active = true
		case translation <= joint.lowerTranslation:
			C2 = mgl64.Clamp(translation-joint.lowerTranslation+geom.LinearSlop, -maxLinear, 0)
			linearError = math.Max(linearError, joint.lowerTranslation-translation)
			active = true
		case translation >= joint.upperTranslation:
			C2 = mgl64.Clamp(translation-joint.upperTranslation-geom.LinearSlop, 0, maxLinear)
			linearError = math.Max(linearError, translation-joint.upperTranslation)
			active = true
		}
	}

	K := prismaticMass(mA, mB, iA, iB, s1, s2, a1, a2)
	var impulse mgl64.Vec3
	if active {
		impulse = geom.Solve33(K, mgl64.Vec3{-C1.X, -C1.Y, -C2})
	} else {
		impulse1 := geom.Solve22Of33(K, C1.Neg())
		impulse = mgl64.Vec3{impulse1.X, impulse1.Y, 0}
	}

	p := perp.Scale(impulse[0]).Add(axis.Scale(impulse[2]))
	LA := impulse[0]*s1 + impulse[1] + impulse[2]*a1
	LB := impulse[0]*s2 + impulse[1] + impulse[2]*a2

	cA = cA.Sub(p.Scale(mA))
	aA -= iA * LA
	cB = cB.Add(p.Scale(mB))
	aB += iB * LB

	data.setPosition(joint.bodyA, cA, aA)
	data.setPosition(joint.bodyB, cB, aB)

	return linearError <= geom.LinearSlop && angularError <= geom.AngularSlop
}
