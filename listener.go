package kinetic

import "github.com/setanarut/kinetic/collide"

// ContactImpulse reports the impulses the solver applied to a contact, one
// entry per manifold point.
type ContactImpulse struct {
	NormalImpulses  [2]float64
	TangentImpulses [2]float64
	Count           int
}

// ContactListener receives contact events during Step. Any callback may be
// nil. The world is locked while they run; defer mutations with
// World.AddPostStepCallback.
type ContactListener struct {
	// Begin is called when two fixtures begin to touch.
	Begin func(c *Contact)
	// End is called when two fixtures stop touching, and when a touching
	// contact is destroyed.
	End func(c *Contact)
	// PreSolve is called after the manifold is updated and before the solver
	// runs. oldManifold is the manifold of the previous step. Disabling the
	// contact here skips it for this step only.
	PreSolve func(c *Contact, oldManifold *collide.Manifold)
	// PostSolve reports the impulses applied to a touching contact.
	PostSolve func(c *Contact, impulse *ContactImpulse)
}

// ContactFilter decides whether two fixtures that passed the body rules may
// create a contact. It replaces the default filter test.
type ContactFilter func(a, b *Fixture) bool

// DefaultContactFilter applies the fixture filters.
func DefaultContactFilter(a, b *Fixture) bool {
	return !a.filter.Reject(b.filter)
}

// DestructionListener is told about joints and fixtures that are destroyed
// implicitly because their body is destroyed.
type DestructionListener struct {
	JointGoodbye   func(j Joint)
	FixtureGoodbye func(f *Fixture)
}

// PostStepCallbackFunc is a function called after the current step completes.
type PostStepCallbackFunc func(w *World, key any)

type postStepCallback struct {
	callback PostStepCallbackFunc
	key      any
}
