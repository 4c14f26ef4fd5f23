package kinetic

import (
	"math"

	"github.com/setanarut/vec"
)

// island is a set of awake dynamic bodies connected by active contacts and
// joints. Islands share no dynamic body, contact or joint, so they can be
// solved independently.
type island struct {
	bodies   []*Body
	contacts []*Contact
	joints   []Joint

	positions  []position
	velocities []velocity

	// kinematicMotion is set when the island touches a moving kinematic
	// body, which keeps it awake.
	kinematicMotion bool

	// impulses for post-solve reports, in contact order.
	impulses []ContactImpulse
}

func (isl *island) addBody(b *Body) {
	b.islandIndex = len(isl.bodies)
	isl.bodies = append(isl.bodies, b)
}

// touchFixed records an edge to a body that does not join the island.
func (isl *island) touchFixed(b *Body, s *Settings) {
	if b.typ != Kinematic || !b.awake {
		return
	}
	linTolSqr := s.LinearSleepTolerance * s.LinearSleepTolerance
	angTolSqr := s.AngularSleepTolerance * s.AngularSleepTolerance
	if b.linearVelocity.Dot(b.linearVelocity) > linTolSqr || b.angularVelocity*b.angularVelocity > angTolSqr {
		isl.kinematicMotion = true
	}
}

// solve integrates and constrains the island over one step.
func (isl *island) solve(step timeStep, gravity vec.Vec2, s *Settings, postSolve bool) {
	h := step.dt

	isl.positions = make([]position, len(isl.bodies))
	isl.velocities = make([]velocity, len(isl.bodies))

	// Integrate velocities.
	for i, b := range isl.bodies {
		v := b.linearVelocity
		w := b.angularVelocity

		v = v.Add(gravity.Scale(b.gravityScale).Add(b.force.Scale(b.invMass)).Scale(h))
		w += h * b.invI * b.torque

		// Pade approximation of exp(-h*damping), stable for large damping.
		v = v.Scale(1.0 / (1.0 + h*b.linearDamping))
		w *= 1.0 / (1.0 + h*b.angularDamping)

		isl.positions[i] = position{b.sweep.C, b.sweep.A}
		isl.velocities[i] = velocity{v, w}
	}

	data := &solverData{
		step:       step,
		settings:   s,
		positions:  isl.positions,
		velocities: isl.velocities,
	}

	cs := newContactSolver(data, isl.contacts)
	cs.initializeVelocityConstraints()
	if step.warmStarting {
		cs.warmStart()
	}

	for _, j := range isl.joints {
		j.initVelocityConstraints(data)
	}

	for i := 0; i < step.velocityIterations; i++ {
		for _, j := range isl.joints {
			j.solveVelocityConstraints(data)
		}
		cs.solveVelocityConstraints()
	}

	cs.storeImpulses()

	// Integrate positions.
	for i := range isl.bodies {
		c := isl.positions[i].c
		a := isl.positions[i].a
		v := isl.velocities[i].v
		w := isl.velocities[i].w

		translation := v.Scale(h)
		if translation.Dot(translation) > s.MaxTranslation*s.MaxTranslation {
			v = v.Scale(s.MaxTranslation / translation.Mag())
		}

		rotation := h * w
		if rotation*rotation > s.MaxRotation*s.MaxRotation {
			w *= s.MaxRotation / math.Abs(rotation)
		}

		c = c.Add(v.Scale(h))
		a += h * w

		isl.positions[i] = position{c, a}
		isl.velocities[i] = velocity{v, w}
	}

	positionSolved := false
	for i := 0; i < step.positionIterations; i++ {
		contactsOkay := cs.solvePositionConstraints()

		jointsOkay := true
		for _, j := range isl.joints {
			jointsOkay = j.solvePositionConstraints(data) && jointsOkay
		}

		if contactsOkay && jointsOkay {
			positionSolved = true
			break
		}
	}

	for i, b := range isl.bodies {
		b.sweep.C = isl.positions[i].c
		b.sweep.A = isl.positions[i].a
		b.linearVelocity = isl.velocities[i].v
		b.angularVelocity = isl.velocities[i].w
		b.synchronizeTransform()
	}

	if postSolve {
		isl.impulses = cs.impulses()
	}

	if !s.AllowSleep {
		return
	}

	minSleepTime := math.MaxFloat64
	linTolSqr := s.LinearSleepTolerance * s.LinearSleepTolerance
	angTolSqr := s.AngularSleepTolerance * s.AngularSleepTolerance

	for _, b := range isl.bodies {
		if !b.sleepAllowed ||
			b.angularVelocity*b.angularVelocity > angTolSqr ||
			b.linearVelocity.Dot(b.linearVelocity) > linTolSqr {
			b.sleepTime = 0
			minSleepTime = 0
		} else {
			b.sleepTime += h
			minSleepTime = math.Min(minSleepTime, b.sleepTime)
		}
	}

	if isl.kinematicMotion {
		minSleepTime = 0
	}

	if minSleepTime >= s.TimeToSleep && positionSolved {
		for _, b := range isl.bodies {
			b.SetAwake(false)
		}
	}
}

// report sends post-solve impulses to the listener.
func (isl *island) report(listener *ContactListener) {
	for i, c := range isl.contacts {
		listener.PostSolve(c, &isl.impulses[i])
	}
}
