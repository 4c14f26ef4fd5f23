package broadphase

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

const nullNode = -1

type node struct {
	// Fattened box for leaves, union of children otherwise.
	bb      geom.BB
	payload any

	// parent doubles as the free list link for unused nodes.
	parent         int
	child1, child2 int

	// leaf = 0, free node = -1
	height int

	moved bool
}

func (n *node) IsLeaf() bool {
	return n.child1 == nullNode
}

// Tree is a dynamic AABB tree. Leaves hold fattened boxes so objects can
// move a little without the tree being touched. Nodes live in one slice and
// are addressed by index; a proxy id is the index of its leaf.
type Tree struct {
	root     int
	nodes    []node
	freeList int
	count    int

	insertionCount int
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	t := &Tree{
		root:     nullNode,
		freeList: nullNode,
	}
	t.grow(16)
	return t
}

func (t *Tree) grow(capacity int) {
	start := len(t.nodes)
	for i := start; i < capacity; i++ {
		t.nodes = append(t.nodes, node{parent: i + 1, height: -1, child1: nullNode, child2: nullNode})
	}
	t.nodes[capacity-1].parent = t.freeList
	t.freeList = start
}

func (t *Tree) allocateNode() int {
	if t.freeList == nullNode {
		t.grow(2 * len(t.nodes))
	}

	id := t.freeList
	t.freeList = t.nodes[id].parent
	t.nodes[id] = node{
		parent: nullNode,
		child1: nullNode,
		child2: nullNode,
		height: 0,
	}
	t.count++
	return id
}

func (t *Tree) freeNode(id int) {
	t.nodes[id] = node{parent: t.freeList, child1: nullNode, child2: nullNode, height: -1}
	t.freeList = id
	t.count--
}

func (t *Tree) checkLeaf(id int) {
	if id < 0 || id >= len(t.nodes) || t.nodes[id].height != 0 {
		panic(fmt.Sprintf("broadphase: invalid proxy id %d", id))
	}
}

// FatBB returns the fattened box of a leaf for an exact box bb that moved by
// displacement during the last step. The box grows by AABBExtension on every
// side and is stretched along the predicted motion.
func FatBB(bb geom.BB, displacement vec.Vec2) geom.BB {
	fat := bb.Grow(geom.AABBExtension)
	d := displacement.Scale(geom.AABBMultiplier)
	return geom.BB{
		L: fat.L + math.Min(0, d.X),
		B: fat.B + math.Min(0, d.Y),
		R: fat.R + math.Max(0, d.X),
		T: fat.T + math.Max(0, d.Y),
	}
}

// CreateProxy inserts a leaf for the exact box bb and returns its id.
func (t *Tree) CreateProxy(bb geom.BB, payload any) int {
	id := t.allocateNode()

	n := &t.nodes[id]
	n.bb = bb.Grow(geom.AABBExtension)
	n.payload = payload
	n.moved = true

	t.insertLeaf(id)
	return id
}

// DestroyProxy removes a leaf.
func (t *Tree) DestroyProxy(id int) {
	t.checkLeaf(id)
	t.removeLeaf(id)
	t.freeNode(id)
}

// MoveProxy updates a leaf with a new exact box. The leaf is only
// re-inserted when bb escapes its fat box; otherwise nothing changes.
// Returns true if the leaf was re-inserted.
func (t *Tree) MoveProxy(id int, bb geom.BB, displacement vec.Vec2) bool {
	t.checkLeaf(id)

	if t.nodes[id].bb.Contains(bb) {
		return false
	}

	t.removeLeaf(id)
	t.nodes[id].bb = FatBB(bb, displacement)
	t.insertLeaf(id)
	t.nodes[id].moved = true
	return true
}

// Payload returns the user data of a leaf.
func (t *Tree) Payload(id int) any {
	t.checkLeaf(id)
	return t.nodes[id].payload
}

// FatBB returns the fattened box of a leaf.
func (t *Tree) FatBB(id int) geom.BB {
	t.checkLeaf(id)
	return t.nodes[id].bb
}

func (t *Tree) wasMoved(id int) bool {
	return t.nodes[id].moved
}

func (t *Tree) clearMoved(id int) {
	t.nodes[id].moved = false
}

func (t *Tree) insertLeaf(leaf int) {
	t.insertionCount++

	if t.root == nullNode {
		t.root = leaf
		t.nodes[leaf].parent = nullNode
		return
	}

	// Find the best sibling for this node.
	leafBB := t.nodes[leaf].bb
	index := t.root
	for !t.nodes[index].IsLeaf() {
		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2

		area := t.nodes[index].bb.Perimeter()
		combinedArea := t.nodes[index].bb.MergedPerimeter(leafBB)

		// Cost of creating a new parent for this node and the new leaf.
		cost := 2.0 * combinedArea

		// Minimum cost of pushing the leaf further down the tree.
		inheritanceCost := 2.0 * (combinedArea - area)

		cost1 := t.descendCost(child1, leafBB) + inheritanceCost
		cost2 := t.descendCost(child2, leafBB) + inheritanceCost

		if cost < cost1 && cost < cost2 {
			break
		}

		if cost1 < cost2 {
			index = child1
		} else {
			index = child2
		}
	}

	sibling := index

	oldParent := t.nodes[sibling].parent
	newParent := t.allocateNode()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].bb = leafBB.Merge(t.nodes[sibling].bb)
	t.nodes[newParent].height = t.nodes[sibling].height + 1

	if oldParent != nullNode {
		if t.nodes[oldParent].child1 == sibling {
			t.nodes[oldParent].child1 = newParent
		} else {
			t.nodes[oldParent].child2 = newParent
		}
	} else {
		t.root = newParent
	}
	t.nodes[newParent].child1 = sibling
	t.nodes[newParent].child2 = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	t.refit(t.nodes[leaf].parent)
}

func (t *Tree) descendCost(child int, leafBB geom.BB) float64 {
	c := &t.nodes[child]
	if c.IsLeaf() {
		return leafBB.MergedPerimeter(c.bb)
	}
	return leafBB.MergedPerimeter(c.bb) - c.bb.Perimeter()
}

// refit walks from index to the root, rebalancing and fixing boxes and
// heights.
func (t *Tree) refit(index int) {
	for index != nullNode {
		index = t.balance(index)

		n := &t.nodes[index]
		c1 := &t.nodes[n.child1]
		c2 := &t.nodes[n.child2]

		n.height = 1 + max(c1.height, c2.height)
		n.bb = c1.bb.Merge(c2.bb)

		index = n.parent
	}
}

func (t *Tree) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = nullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	var sibling int
	if t.nodes[parent].child1 == leaf {
		sibling = t.nodes[parent].child2
	} else {
		sibling = t.nodes[parent].child1
	}

	if grandParent == nullNode {
		t.root = sibling
		t.nodes[sibling].parent = nullNode
		t.freeNode(parent)
		return
	}

	// Destroy parent and connect sibling to grandParent.
	if t.nodes[grandParent].child1 == parent {
		t.nodes[grandParent].child1 = sibling
	} else {
		t.nodes[grandParent].child2 = sibling
	}
	t.nodes[sibling].parent = grandParent
	t.freeNode(parent)

	t.refit(grandParent)
}

func (t *Tree) replaceChild(parent, oldChild, newChild int) {
	if parent == nullNode {
		t.root = newChild
		return
	}
	if t.nodes[parent].child1 == oldChild {
		t.nodes[parent].child1 = newChild
	} else {
		t.nodes[parent].child2 = newChild
	}
}

// balance performs a left or right rotation if node iA is imbalanced and
// returns the new root of the subtree.
func (t *Tree) balance(iA int) int {
	A := &t.nodes[iA]
	if A.IsLeaf() || A.height < 2 {
		return iA
	}

	iB := A.child1
	iC := A.child2
	B := &t.nodes[iB]
	C := &t.nodes[iC]

	balance := C.height - B.height

	// Rotate C up
	if balance > 1 {
		iF := C.child1
		iG := C.child2
		F := &t.nodes[iF]
		G := &t.nodes[iG]

		// Swap A and C
		C.child1 = iA
		C.parent = A.parent
		A.parent = iC
		t.replaceChild(C.parent, iA, iC)

		if F.height > G.height {
			C.child2 = iF
			A.child2 = iG
			G.parent = iA
			A.bb = B.bb.Merge(G.bb)
			C.bb = A.bb.Merge(F.bb)

			A.height = 1 + max(B.height, G.height)
			C.height = 1 + max(A.height, F.height)
		} else {
			C.child2 = iG
			A.child2 = iF
			F.parent = iA
			A.bb = B.bb.Merge(F.bb)
			C.bb = A.bb.Merge(G.bb)

			A.height = 1 + max(B.height, F.height)
			C.height = 1 + max(A.height, G.height)
		}
		return iC
	}

	// Rotate B up
	if balance < -1 {
		iD := B.child1
		iE := B.child2
		D := &t.nodes[iD]
		E := &t.nodes[iE]

		// Swap A and B
		B.child1 = iA
		B.parent = A.parent
		A.parent = iB
		t.replaceChild(B.parent, iA, iB)

		if D.height > E.height {
			B.child2 = iD
			A.child1 = iE
			E.parent = iA
			A.bb = C.bb.Merge(E.bb)
			B.bb = A.bb.Merge(D.bb)

			A.height = 1 + max(C.height, E.height)
			B.height = 1 + max(A.height, D.height)
		} else {
			B.child2 = iE
			A.child1 = iD
			D.parent = iA
			A.bb = C.bb.Merge(D.bb)
			B.bb = A.bb.Merge(E.bb)

			A.height = 1 + max(C.height, D.height)
			B.height = 1 + max(A.height, E.height)
		}
		return iB
	}

	return iA
}

// Height returns the height of the tree, 0 for a single leaf.
func (t *Tree) Height() int {
	if t.root == nullNode {
		return 0
	}
	return t.nodes[t.root].height
}

// MaxBalance returns the largest height difference between two siblings.
func (t *Tree) MaxBalance() int {
	maxBalance := 0
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.height <= 1 {
			continue
		}
		balance := t.nodes[n.child2].height - t.nodes[n.child1].height
		if balance < 0 {
			balance = -balance
		}
		maxBalance = max(maxBalance, balance)
	}
	return maxBalance
}

// AreaRatio returns the summed perimeter of all nodes over the root
// perimeter, a measure of tree quality.
func (t *Tree) AreaRatio() float64 {
	if t.root == nullNode {
		return 0
	}
	rootArea := t.nodes[t.root].bb.Perimeter()
	var total float64
	for i := range t.nodes {
		if t.nodes[i].height < 0 {
			continue
		}
		total += t.nodes[i].bb.Perimeter()
	}
	return total / rootArea
}

// Query calls f for every leaf whose fat box overlaps bb. Returning false
// from f stops the query.
func (t *Tree) Query(bb geom.BB, f func(id int) bool) {
	if t.root == nullNode {
		return
	}
	stack := make([]int, 0, 64)
	stack = append(stack, t.root)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[id]
		if !n.bb.Intersects(bb) {
			continue
		}
		if n.IsLeaf() {
			if !f(id) {
				return
			}
		} else {
			stack = append(stack, n.child1, n.child2)
		}
	}
}

// RayCastFunc is called for each leaf whose fat box the ray reaches. It
// returns the new max fraction: 0 terminates, a value in (0,1) clips the ray,
// the input MaxFraction continues unchanged and a negative value ignores the
// leaf.
type RayCastFunc func(input geom.RayCastInput, id int) float64

// RayCast walks leaves whose fat boxes intersect the segment.
func (t *Tree) RayCast(input geom.RayCastInput, f RayCastFunc) {
	if t.root == nullNode {
		return
	}
	p1 := input.P1
	p2 := input.P2
	maxFraction := input.MaxFraction
	end := p1.Add(p2.Sub(p1).Scale(maxFraction))

	stack := make([]int, 0, 64)
	stack = append(stack, t.root)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[id]
		if !n.bb.IntersectsSegment(p1, end) {
			continue
		}

		if n.IsLeaf() {
			sub := geom.RayCastInput{P1: p1, P2: p2, MaxFraction: maxFraction}
			value := f(sub, id)
			if value == 0 {
				return
			}
			if value > 0 {
				maxFraction = value
				end = p1.Add(p2.Sub(p1).Scale(maxFraction))
			}
		} else {
			stack = append(stack, n.child1, n.child2)
		}
	}
}

// Validate checks the structural invariants of the tree.
func (t *Tree) Validate() error {
	if t.root != nullNode && t.nodes[t.root].parent != nullNode {
		return errors.New("root has a parent")
	}
	count, err := t.validate(t.root)
	if err != nil {
		return err
	}
	if count != t.count {
		return errors.Errorf("reachable nodes %d, allocated nodes %d", count, t.count)
	}

	free := 0
	for i := t.freeList; i != nullNode; i = t.nodes[i].parent {
		free++
	}
	if free+t.count != len(t.nodes) {
		return errors.Errorf("free %d + used %d != capacity %d", free, t.count, len(t.nodes))
	}
	return nil
}

func (t *Tree) validate(id int) (int, error) {
	if id == nullNode {
		return 0, nil
	}
	n := &t.nodes[id]
	if n.IsLeaf() {
		if n.child2 != nullNode || n.height != 0 {
			return 0, errors.Errorf("leaf %d malformed", id)
		}
		return 1, nil
	}

	c1 := &t.nodes[n.child1]
	c2 := &t.nodes[n.child2]
	if c1.parent != id || c2.parent != id {
		return 0, errors.Errorf("node %d children have wrong parent", id)
	}
	if n.height != 1+max(c1.height, c2.height) {
		return 0, errors.Errorf("node %d height %d, children %d %d", id, n.height, c1.height, c2.height)
	}
	if n.bb != c1.bb.Merge(c2.bb) {
		return 0, errors.Errorf("node %d box is not the union of its children", id)
	}

	a, err := t.validate(n.child1)
	if err != nil {
		return 0, err
	}
	b, err := t.validate(n.child2)
	if err != nil {
		return 0, err
	}
	return 1 + a + b, nil
}
