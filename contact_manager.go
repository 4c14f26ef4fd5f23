package kinetic

import (
	"github.com/setanarut/kinetic/broadphase"
)

// pairKey identifies a fixture pair independent of order.
type pairKey struct {
	a, b int
}

func makePairKey(a, b int) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// contactManager owns the broad phase and the live contacts. The pair map
// only answers membership; every iteration walks the contacts slice.
type contactManager struct {
	broadPhase *broadphase.BroadPhase
	contacts   []*Contact
	pairs      map[pairKey]*Contact
	registry   *contactRegistry

	filter   ContactFilter
	listener *ContactListener
}

func newContactManager() *contactManager {
	return &contactManager{
		broadPhase: broadphase.New(),
		pairs:      make(map[pairKey]*Contact),
		registry:   newContactRegistry(),
	}
}

func (cm *contactManager) shouldCollide(a, b *Fixture) bool {
	if cm.filter != nil {
		return cm.filter(a, b)
	}
	return DefaultContactFilter(a, b)
}

// findNewContacts creates contacts for the new pairs of the broad phase.
func (cm *contactManager) findNewContacts() {
	cm.broadPhase.UpdatePairs(cm.addPair)
}

func (cm *contactManager) addPair(a, b any) {
	fA := a.(*Fixture)
	fB := b.(*Fixture)
	bodyA, bodyB := fA.body, fB.body

	if bodyA == bodyB {
		return
	}

	key := makePairKey(fA.id, fB.id)
	if _, ok := cm.pairs[key]; ok {
		return
	}

	if !bodyB.shouldCollide(bodyA) {
		return
	}
	if !cm.shouldCollide(fA, fB) {
		return
	}

	c := cm.registry.create(fA, fB)
	if c == nil {
		return
	}

	c.index = len(cm.contacts)
	cm.contacts = append(cm.contacts, c)
	cm.pairs[key] = c

	bodyA.contacts = append(bodyA.contacts, c)
	bodyB.contacts = append(bodyB.contacts, c)
}

// destroy removes a contact, reporting End if it was touching.
func (cm *contactManager) destroy(c *Contact) {
	fA, fB := c.fixtureA, c.fixtureB
	bodyA, bodyB := fA.body, fB.body

	if c.touching && cm.listener != nil && cm.listener.End != nil {
		cm.listener.End(c)
	}

	delete(cm.pairs, makePairKey(fA.id, fB.id))

	last := len(cm.contacts) - 1
	moved := cm.contacts[last]
	cm.contacts[c.index] = moved
	moved.index = c.index
	cm.contacts[last] = nil
	cm.contacts = cm.contacts[:last]
	c.index = -1

	bodyA.removeContact(c)
	bodyB.removeContact(c)

	if c.manifold.PointCount > 0 && !c.IsSensor() {
		bodyA.SetAwake(true)
		bodyB.SetAwake(true)
	}
}

// destroyFixtureContacts removes every contact that references f.
func (cm *contactManager) destroyFixtureContacts(f *Fixture) {
	for i := 0; i < len(f.body.contacts); {
		c := f.body.contacts[i]
		if c.fixtureA == f || c.fixtureB == f {
			cm.destroy(c)
			continue
		}
		i++
	}
}

// collide updates every contact, destroying those that were filtered out
// or whose fat boxes no longer overlap.
func (cm *contactManager) collide() {
	for i := 0; i < len(cm.contacts); {
		c := cm.contacts[i]
		fA, fB := c.fixtureA, c.fixtureB
		bodyA, bodyB := fA.body, fB.body

		if c.filterFlag {
			if !bodyB.shouldCollide(bodyA) || !cm.shouldCollide(fA, fB) {
				cm.destroy(c)
				continue
			}
			c.filterFlag = false
		}

		activeA := bodyA.awake && bodyA.typ != Static
		activeB := bodyB.awake && bodyB.typ != Static
		if !activeA && !activeB {
			i++
			continue
		}

		if !cm.broadPhase.TestOverlap(fA.proxyID, fB.proxyID) {
			cm.destroy(c)
			continue
		}

		c.update(cm.listener)
		i++
	}
}
