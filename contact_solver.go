package kinetic

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/setanarut/kinetic/collide"
	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

// maxConditionNumber guards the block solver against ill-conditioned
// two-point manifolds.
const maxConditionNumber = 1000.0

// timeStep holds the parameters of one solve.
type timeStep struct {
	dt    float64
	invDt float64
	// dtRatio is dt of this step times 1/dt of the previous one. Warm start
	// impulses are scaled by it.
	dtRatio            float64
	velocityIterations int
	positionIterations int
	warmStarting       bool
}

type position struct {
	c vec.Vec2
	a float64
}

type velocity struct {
	v vec.Vec2
	w float64
}

// solverData gives constraints access to the island state. Bodies outside
// the island (static and kinematic ones) are read from the body and never
// written.
type solverData struct {
	step       timeStep
	settings   *Settings
	positions  []position
	velocities []velocity
}

func (d *solverData) position(b *Body) (vec.Vec2, float64) {
	if b.islandIndex < 0 {
		return b.sweep.C, b.sweep.A
	}
	p := d.positions[b.islandIndex]
	return p.c, p.a
}

func (d *solverData) setPosition(b *Body, c vec.Vec2, a float64) {
	if b.islandIndex < 0 {
		return
	}
	d.positions[b.islandIndex] = position{c, a}
}

func (d *solverData) velocity(b *Body) (vec.Vec2, float64) {
	if b.islandIndex < 0 {
		return b.linearVelocity, b.angularVelocity
	}
	v := d.velocities[b.islandIndex]
	return v.v, v.w
}

func (d *solverData) setVelocity(b *Body, v vec.Vec2, w float64) {
	if b.islandIndex < 0 {
		return
	}
	d.velocities[b.islandIndex] = velocity{v, w}
}

// transform builds the origin transform of b from a center position.
func transformAt(b *Body, c vec.Vec2, a float64) geom.Transform {
	q := geom.NewRot(a)
	return geom.Transform{P: c.Sub(q.Apply(b.sweep.LocalCenter)), Q: q}
}

type velocityConstraintPoint struct {
	rA, rB         vec.Vec2
	normalImpulse  float64
	tangentImpulse float64
	normalMass     float64
	tangentMass    float64
	velocityBias   float64
}

type contactVelocityConstraint struct {
	points       [geom.MaxManifoldPoints]velocityConstraintPoint
	normal       vec.Vec2
	normalMass   mgl64.Mat2
	k            mgl64.Mat2
	bodyA, bodyB *Body
	invMassA     float64
	invMassB     float64
	invIA, invIB float64
	friction     float64
	restitution  float64
	pointCount   int
	contact      *Contact
}

type contactPositionConstraint struct {
	localPoints  [geom.MaxManifoldPoints]vec.Vec2
	localNormal  vec.Vec2
	localPoint   vec.Vec2
	bodyA, bodyB *Body
	invMassA     float64
	invMassB     float64
	invIA, invIB float64
	localCenterA vec.Vec2
	localCenterB vec.Vec2
	typ          collide.ManifoldType
	radiusA      float64
	radiusB      float64
	pointCount   int
}

// contactSolver runs sequential impulses over the contacts of one island.
type contactSolver struct {
	data                *solverData
	velocityConstraints []contactVelocityConstraint
	positionConstraints []contactPositionConstraint
}

func newContactSolver(data *solverData, contacts []*Contact) *contactSolver {
	s := &contactSolver{
		data:                data,
		velocityConstraints: make([]contactVelocityConstraint, len(contacts)),
		positionConstraints: make([]contactPositionConstraint, len(contacts)),
	}

	for i, c := range contacts {
		fA, fB := c.fixtureA, c.fixtureB
		bodyA, bodyB := fA.body, fB.body
		m := &c.manifold

		vc := &s.velocityConstraints[i]
		vc.friction = c.friction
		vc.restitution = c.restitution
		vc.bodyA = bodyA
		vc.bodyB = bodyB
		vc.invMassA = bodyA.invMass
		vc.invMassB = bodyB.invMass
		vc.invIA = bodyA.invI
		vc.invIB = bodyB.invI
		vc.contact = c
		vc.pointCount = m.PointCount

		pc := &s.positionConstraints[i]
		pc.bodyA = bodyA
		pc.bodyB = bodyB
		pc.invMassA = bodyA.invMass
		pc.invMassB = bodyB.invMass
		pc.invIA = bodyA.invI
		pc.invIB = bodyB.invI
		pc.localCenterA = bodyA.sweep.LocalCenter
		pc.localCenterB = bodyB.sweep.LocalCenter
		pc.localNormal = m.LocalNormal
		pc.localPoint = m.LocalPoint
		pc.pointCount = m.PointCount
		pc.radiusA = fA.shape.Radius()
		pc.radiusB = fB.shape.Radius()
		pc.typ = m.Type

		for j := 0; j < m.PointCount; j++ {
			mp := &m.Points[j]
			vcp := &vc.points[j]
			if data.step.warmStarting {
				vcp.normalImpulse = data.step.dtRatio * mp.NormalImpulse
				vcp.tangentImpulse = data.step.dtRatio * mp.TangentImpulse
			}
			pc.localPoints[j] = mp.LocalPoint
		}
	}
	return s
}

func (s *contactSolver) initializeVelocityConstraints() {
	settings := s.data.settings
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]
		pc := &s.positionConstraints[i]

		mA, mB := vc.invMassA, vc.invMassB
		iA, iB := vc.invIA, vc.invIB

		cA, aA := s.data.position(vc.bodyA)
		vA, wA := s.data.velocity(vc.bodyA)
		cB, aB := s.data.position(vc.bodyB)
		vB, wB := s.data.velocity(vc.bodyB)

		xfA := transformAt(vc.bodyA, cA, aA)
		xfB := transformAt(vc.bodyB, cB, aB)

		wm := collide.NewWorldManifold(&vc.contact.manifold, xfA, pc.radiusA, xfB, pc.radiusB)
		vc.normal = wm.Normal
		tangent := geom.CrossVS(vc.normal, 1)

		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]

			vcp.rA = wm.Points[j].Sub(cA)
			vcp.rB = wm.Points[j].Sub(cB)

			rnA := vcp.rA.Cross(vc.normal)
			rnB := vcp.rB.Cross(vc.normal)
			kNormal := mA + mB + iA*rnA*rnA + iB*rnB*rnB
			vcp.normalMass = 0
			if kNormal > 0 {
				vcp.normalMass = 1 / kNormal
			}

			rtA := vcp.rA.Cross(tangent)
			rtB := vcp.rB.Cross(tangent)
			kTangent := mA + mB + iA*rtA*rtA + iB*rtB*rtB
			vcp.tangentMass = 0
			if kTangent > 0 {
				vcp.tangentMass = 1 / kTangent
			}

			// Restitution only above the threshold speed.
			vcp.velocityBias = 0
			vRel := vc.normal.Dot(vB.Add(geom.CrossSV(wB, vcp.rB)).Sub(vA).Sub(geom.CrossSV(wA, vcp.rA)))
			if vRel < -settings.VelocityThreshold {
				vcp.velocityBias = -vc.restitution * vRel
			}
		}

		if vc.pointCount == 2 && settings.BlockSolve {
			vcp1 := &vc.points[0]
			vcp2 := &vc.points[1]

			rn1A := vcp1.rA.Cross(vc.normal)
			rn1B := vcp1.rB.Cross(vc.normal)
			rn2A := vcp2.rA.Cross(vc.normal)
			rn2B := vcp2.rB.Cross(vc.normal)

			k11 := mA + mB + iA*rn1A*rn1A + iB*rn1B*rn1B
			k22 := mA + mB + iA*rn2A*rn2A + iB*rn2B*rn2B
			k12 := mA + mB + iA*rn1A*rn2A + iB*rn1B*rn2B

			if k11*k11 < maxConditionNumber*(k11*k22-k12*k12) {
				vc.k = mgl64.Mat2{k11, k12, k12, k22}
				vc.normalMass = vc.k.Inv()
			} else {
				// The points are redundant; keep one.
				vc.pointCount = 1
			}
		}
	}
}

func (s *contactSolver) warmStart() {
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]

		mA, mB := vc.invMassA, vc.invMassB
		iA, iB := vc.invIA, vc.invIB
		vA, wA := s.data.velocity(vc.bodyA)
		vB, wB := s.data.velocity(vc.bodyB)

		tangent := geom.CrossVS(vc.normal, 1)
		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]
			p := vc.normal.Scale(vcp.normalImpulse).Add(tangent.Scale(vcp.tangentImpulse))
			wA -= iA * vcp.rA.Cross(p)
			vA = vA.Sub(p.Scale(mA))
			wB += iB * vcp.rB.Cross(p)
			vB = vB.Add(p.Scale(mB))
		}

		s.data.setVelocity(vc.bodyA, vA, wA)
		s.data.setVelocity(vc.bodyB, vB, wB)
	}
}

func (s *contactSolver) solveVelocityConstraints() {
	blockSolve := s.data.settings.BlockSolve
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]

		mA, mB := vc.invMassA, vc.invMassB
		iA, iB := vc.invIA, vc.invIB
		vA, wA := s.data.velocity(vc.bodyA)
		vB, wB := s.data.velocity(vc.bodyB)

		normal := vc.normal
		tangent := geom.CrossVS(normal, 1)

		// Friction first, since non-penetration matters more.
		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]

			dv := vB.Add(geom.CrossSV(wB, vcp.rB)).Sub(vA).Sub(geom.CrossSV(wA, vcp.rA))
			vt := dv.Dot(tangent)
			lambda := vcp.tangentMass * -vt

			maxFriction := vc.friction * vcp.normalImpulse
			newImpulse := mgl64.Clamp(vcp.tangentImpulse+lambda, -maxFriction, maxFriction)
			lambda = newImpulse - vcp.tangentImpulse
			vcp.tangentImpulse = newImpulse

			p := tangent.Scale(lambda)
			vA = vA.Sub(p.Scale(mA))
			wA -= iA * vcp.rA.Cross(p)
			vB = vB.Add(p.Scale(mB))
			wB += iB * vcp.rB.Cross(p)
		}

		if vc.pointCount == 1 || !blockSolve {
			for j := 0; j < vc.pointCount; j++ {
				vcp := &vc.points[j]

				dv := vB.Add(geom.CrossSV(wB, vcp.rB)).Sub(vA).Sub(geom.CrossSV(wA, vcp.rA))
				vn := dv.Dot(normal)
				lambda := -vcp.normalMass * (vn - vcp.velocityBias)

				newImpulse := math.Max(vcp.normalImpulse+lambda, 0)
				lambda = newImpulse - vcp.normalImpulse
				vcp.normalImpulse = newImpulse

				p := normal.Scale(lambda)
				vA = vA.Sub(p.Scale(mA))
				wA -= iA * vcp.rA.Cross(p)
				vB = vB.Add(p.Scale(mB))
				wB += iB * vcp.rB.Cross(p)
			}
		} else {
			vA, wA, vB, wB = s.blockSolve(vc, vA, wA, vB, wB)
		}

		s.data.setVelocity(vc.bodyA, vA, wA)
		s.data.setVelocity(vc.bodyB, vB, wB)
	}
}

// blockSolve solves both normal constraints of a two point manifold as a
// linear complementarity problem by testing the four cases of active
// points in turn.
//
//	vn = A * x + b, vn >= 0, x >= 0 and vn_i * x_i = 0
//
// The accumulated impulse a is the starting point, so b' = b - A * a and
// the increment is x - a.
func (s *contactSolver) blockSolve(vc *contactVelocityConstraint, vA vec.Vec2, wA float64, vB vec.Vec2, wB float64) (vec.Vec2, float64, vec.Vec2, float64) {
	mA, mB := vc.invMassA, vc.invMassB
	iA, iB := vc.invIA, vc.invIB
	normal := vc.normal

	cp1 := &vc.points[0]
	cp2 := &vc.points[1]

	a := mgl64.Vec2{cp1.normalImpulse, cp2.normalImpulse}

	dv1 := vB.Add(geom.CrossSV(wB, cp1.rB)).Sub(vA).Sub(geom.CrossSV(wA, cp1.rA))
	dv2 := vB.Add(geom.CrossSV(wB, cp2.rB)).Sub(vA).Sub(geom.CrossSV(wA, cp2.rA))

	vn1 := dv1.Dot(normal)
	vn2 := dv2.Dot(normal)

	b := mgl64.Vec2{vn1 - cp1.velocityBias, vn2 - cp2.velocityBias}
	b = b.Sub(vc.k.Mul2x1(a))

	apply := func(x mgl64.Vec2) {
		d := x.Sub(a)
		p1 := normal.Scale(d[0])
		p2 := normal.Scale(d[1])
		vA = vA.Sub(p1.Add(p2).Scale(mA))
		wA -= iA * (cp1.rA.Cross(p1) + cp2.rA.Cross(p2))
		vB = vB.Add(p1.Add(p2).Scale(mB))
		wB += iB * (cp1.rB.Cross(p1) + cp2.rB.Cross(p2))
		cp1.normalImpulse = x[0]
		cp2.normalImpulse = x[1]
	}

	// Case 1: both points active, vn = 0.
	x := vc.normalMass.Mul2x1(b).Mul(-1)
	if x[0] >= 0 && x[1] >= 0 {
		apply(x)
		return vA, wA, vB, wB
	}

	// Case 2: only the first point active.
	x = mgl64.Vec2{-cp1.normalMass * b[0], 0}
	vn2 = vc.k.At(1, 0)*x[0] + b[1]
	if x[0] >= 0 && vn2 >= 0 {
		apply(x)
		return vA, wA, vB, wB
	}

	// Case 3: only the second point active.
	x = mgl64.Vec2{0, -cp2.normalMass * b[1]}
	vn1 = vc.k.At(0, 1)*x[1] + b[0]
	if x[1] >= 0 && vn1 >= 0 {
		apply(x)
		return vA, wA, vB, wB
	}

	// Case 4: both points separating.
	x = mgl64.Vec2{}
	if b[0] >= 0 && b[1] >= 0 {
		apply(x)
	}

	// No solution; the velocities are left as they are.
	return vA, wA, vB, wB
}

// storeImpulses writes the accumulated impulses back to the manifolds for
// warm starting.
func (s *contactSolver) storeImpulses() {
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]
		m := &vc.contact.manifold
		for j := 0; j < vc.pointCount; j++ {
			m.Points[j].NormalImpulse = vc.points[j].normalImpulse
			m.Points[j].TangentImpulse = vc.points[j].tangentImpulse
		}
	}
}

// impulses returns the impulses applied to each contact, in contact order.
func (s *contactSolver) impulses() []ContactImpulse {
	out := make([]ContactImpulse, len(s.velocityConstraints))
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]
		out[i].Count = vc.pointCount
		for j := 0; j < vc.pointCount; j++ {
			out[i].NormalImpulses[j] = vc.points[j].normalImpulse
			out[i].TangentImpulses[j] = vc.points[j].tangentImpulse
		}
	}
	return out
}

// positionSolverManifold returns the world normal, point and separation of
// point index of a position constraint.
func (pc *contactPositionConstraint) positionSolverManifold(xfA, xfB geom.Transform, index int) (normal, point vec.Vec2, separation float64) {
	switch pc.typ {
	case collide.ManifoldCircles:
		pointA := xfA.Apply(pc.localPoint)
		pointB := xfB.Apply(pc.localPoints[0])
		normal, _ = geom.Normalize(pointB.Sub(pointA))
		point = pointA.Add(pointB).Scale(0.5)
		separation = pointB.Sub(pointA).Dot(normal) - pc.radiusA - pc.radiusB

	case collide.ManifoldFaceA:
		normal = xfA.Q.Apply(pc.localNormal)
		planePoint := xfA.Apply(pc.localPoint)
		clipPoint := xfB.Apply(pc.localPoints[index])
		separation = clipPoint.Sub(planePoint).Dot(normal) - pc.radiusA - pc.radiusB
		point = clipPoint

	case collide.ManifoldFaceB:
		normal = xfB.Q.Apply(pc.localNormal)
		planePoint := xfB.Apply(pc.localPoint)
		clipPoint := xfA.Apply(pc.localPoints[index])
		separation = clipPoint.Sub(planePoint).Dot(normal) - pc.radiusA - pc.radiusB
		point = clipPoint
		// Always point from A to B.
		normal = normal.Neg()
	}
	return normal, point, separation
}

// solvePositionConstraints pushes overlapping bodies apart with one
// non-linear Gauss-Seidel pass. It reports whether the largest overlap is
// within tolerance.
func (s *contactSolver) solvePositionConstraints() bool {
	settings := s.data.settings
	minSeparation := 0.0

	for i := range s.positionConstraints {
		pc := &s.positionConstraints[i]

		mA, mB := pc.invMassA, pc.invMassB
		iA, iB := pc.invIA, pc.invIB

		cA, aA := s.data.position(pc.bodyA)
		cB, aB := s.data.position(pc.bodyB)

		for j := 0; j < pc.pointCount; j++ {
			xfA := transformAt(pc.bodyA, cA, aA)
			xfB := transformAt(pc.bodyB, cB, aB)

			normal, point, separation := pc.positionSolverManifold(xfA, xfB, j)

			rA := point.Sub(cA)
			rB := point.Sub(cB)

			minSeparation = math.Min(minSeparation, separation)

			// Prevent large corrections and allow slop.
			C := mgl64.Clamp(settings.Baumgarte*(separation+geom.LinearSlop), -settings.MaxLinearCorrection, 0)

			rnA := rA.Cross(normal)
			rnB := rB.Cross(normal)
			K := mA + mB + iA*rnA*rnA + iB*rnB*rnB

			impulse := 0.0
			if K > 0 {
				impulse = -C / K
			}

			p := normal.Scale(impulse)

			cA = cA.Sub(p.Scale(mA))
			aA -= iA * rA.Cross(p)
			cB = cB.Add(p.Scale(mB))
			aB += iB * rB.Cross(p)
		}

		s.data.setPosition(pc.bodyA, cA, aA)
		s.data.setPosition(pc.bodyB, cB, aB)
	}

	return minSeparation >= -3.0*geom.LinearSlop
}
