// Package broadphase finds candidate fixture pairs whose fattened bounding
// boxes overlap. It wraps a dynamic AABB tree with a move buffer: only
// proxies that were created, moved outside their fat box or touched since the
// last update are queried for new pairs.
package broadphase

import (
	"slices"

	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

// NullProxy marks a fixture proxy that is not in the broadphase.
const NullProxy = -1

// Pair is a candidate pair of proxy ids with A < B.
type Pair struct {
	A, B int
}

// BroadPhase manages proxies and reports overlapping pairs.
type BroadPhase struct {
	tree       *Tree
	proxyCount int

	moveBuffer []int
	pairBuffer []Pair
}

// New returns an empty broadphase.
func New() *BroadPhase {
	return &BroadPhase{
		tree:       NewTree(),
		moveBuffer: make([]int, 0, 16),
		pairBuffer: make([]Pair, 0, 16),
	}
}

// CreateProxy adds a proxy for the exact box bb. The proxy is reported in
// the next UpdatePairs against everything it overlaps.
func (bp *BroadPhase) CreateProxy(bb geom.BB, payload any) int {
	id := bp.tree.CreateProxy(bb, payload)
	bp.proxyCount++
	bp.bufferMove(id)
	return id
}

// DestroyProxy removes a proxy. Pairs involving it are not reported anymore.
func (bp *BroadPhase) DestroyProxy(id int) {
	bp.unbufferMove(id)
	bp.proxyCount--
	bp.tree.DestroyProxy(id)
}

// MoveProxy updates the exact box of a proxy.
func (bp *BroadPhase) MoveProxy(id int, bb geom.BB, displacement vec.Vec2) {
	if bp.tree.MoveProxy(id, bb, displacement) {
		bp.bufferMove(id)
	}
}

// TouchProxy forces a proxy to be re-queried on the next update.
func (bp *BroadPhase) TouchProxy(id int) {
	bp.bufferMove(id)
}

func (bp *BroadPhase) bufferMove(id int) {
	bp.moveBuffer = append(bp.moveBuffer, id)
}

func (bp *BroadPhase) unbufferMove(id int) {
	for i, p := range bp.moveBuffer {
		if p == id {
			bp.moveBuffer[i] = NullProxy
		}
	}
}

// FatBB returns the fattened box of a proxy.
func (bp *BroadPhase) FatBB(id int) geom.BB {
	return bp.tree.FatBB(id)
}

// Payload returns the user data of a proxy.
func (bp *BroadPhase) Payload(id int) any {
	return bp.tree.Payload(id)
}

// TestOverlap reports whether the fat boxes of two proxies overlap.
func (bp *BroadPhase) TestOverlap(a, b int) bool {
	return bp.tree.FatBB(a).Intersects(bp.tree.FatBB(b))
}

// ProxyCount returns the number of live proxies.
func (bp *BroadPhase) ProxyCount() int {
	return bp.proxyCount
}

// TreeHeight returns the height of the underlying tree.
func (bp *BroadPhase) TreeHeight() int {
	return bp.tree.Height()
}

// TreeBalance returns the largest sibling height difference.
func (bp *BroadPhase) TreeBalance() int {
	return bp.tree.MaxBalance()
}

// TreeQuality returns the summed node perimeter over the root perimeter.
func (bp *BroadPhase) TreeQuality() float64 {
	return bp.tree.AreaRatio()
}

// Validate checks the tree invariants.
func (bp *BroadPhase) Validate() error {
	return bp.tree.Validate()
}

// Query calls f for each proxy whose fat box overlaps bb.
func (bp *BroadPhase) Query(bb geom.BB, f func(id int) bool) {
	bp.tree.Query(bb, f)
}

// RayCast calls f for each proxy whose fat box the ray reaches.
func (bp *BroadPhase) RayCast(input geom.RayCastInput, f RayCastFunc) {
	bp.tree.RayCast(input, f)
}

// UpdatePairs queries every buffered proxy and calls f once for each
// distinct overlapping pair. Pairs are reported sorted by proxy id. Pairs
// that were already overlapping before the update may be reported again;
// callers filter those against their existing contacts.
func (bp *BroadPhase) UpdatePairs(f func(a, b any)) {
	bp.pairBuffer = bp.pairBuffer[:0]

	for _, queryProxy := range bp.moveBuffer {
		if queryProxy == NullProxy {
			continue
		}

		fat := bp.tree.FatBB(queryProxy)
		bp.tree.Query(fat, func(proxyID int) bool {
			if proxyID == queryProxy {
				return true
			}
			// Both proxies moved: the query from the other side adds it.
			if bp.tree.wasMoved(proxyID) && proxyID > queryProxy {
				return true
			}
			bp.pairBuffer = append(bp.pairBuffer, Pair{A: min(proxyID, queryProxy), B: max(proxyID, queryProxy)})
			return true
		})
	}

	for _, id := range bp.moveBuffer {
		if id != NullProxy {
			bp.tree.clearMoved(id)
		}
	}
	bp.moveBuffer = bp.moveBuffer[:0]

	slices.SortFunc(bp.pairBuffer, func(p, q Pair) int {
		if p.A != q.A {
			return p.A - q.A
		}
		return p.B - q.B
	})

	for i, p := range bp.pairBuffer {
		if i > 0 && p == bp.pairBuffer[i-1] {
			continue
		}
		f(bp.tree.Payload(p.A), bp.tree.Payload(p.B))
	}
}
