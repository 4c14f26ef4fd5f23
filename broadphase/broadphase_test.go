package broadphase_test

import (
	"math/rand"
	"testing"

	"github.com/setanarut/kinetic/broadphase"
	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

type item struct {
	id    int
	proxy int
	bb    geom.BB
}

func randomBB(r *rand.Rand) geom.BB {
	c := vec.Vec2{X: r.Float64()*40 - 20, Y: r.Float64()*40 - 20}
	return geom.NewBBForExtents(c, 0.2+r.Float64(), 0.2+r.Float64())
}

func TestTreeValidAfterChurn(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	tree := broadphase.NewTree()
	ids := []int{}
	for i := 0; i < 200; i++ {
		ids = append(ids, tree.CreateProxy(randomBB(r), i))
	}
	for i := 0; i < 100; i++ {
		tree.DestroyProxy(ids[i])
	}
	for _, id := range ids[100:] {
		bb := randomBB(r)
		tree.MoveProxy(id, bb, vec.Vec2{X: 0.5})
		if !tree.FatBB(id).Contains(bb) {
			t.Errorf("fat box of %d does not contain its box", id)
		}
	}

	if err := tree.Validate(); err != nil {
		t.Fatal(err)
	}
	if h := tree.Height(); h > 30 {
		t.Errorf("got height %d for 100 leaves", h)
	}
}

func TestMoveProxyInsideFatBox(t *testing.T) {
	tree := broadphase.NewTree()
	bb := geom.NewBBForExtents(vec.Vec2{}, 1, 1)
	id := tree.CreateProxy(bb, nil)

	if tree.MoveProxy(id, bb.Offset(vec.Vec2{X: 0.01}), vec.Vec2{X: 0.01}) {
		t.Error("small move re-inserted the proxy")
	}
	if !tree.MoveProxy(id, bb.Offset(vec.Vec2{X: 5}), vec.Vec2{X: 5}) {
		t.Error("large move did not re-insert the proxy")
	}
}

func TestMoveProxyKeepsFatBoxAfterSlowdown(t *testing.T) {
	tree := broadphase.NewTree()
	bb := geom.NewBBForExtents(vec.Vec2{}, 1, 1)
	id := tree.CreateProxy(bb, nil)

	fast := bb.Offset(vec.Vec2{X: 5})
	if !tree.MoveProxy(id, fast, vec.Vec2{X: 5}) {
		t.Fatal("large move did not re-insert the proxy")
	}
	fat := tree.FatBB(id)

	// The body slows down but stays inside the box stretched for its
	// fast motion.
	slow := bb.Offset(vec.Vec2{X: 5.5})
	if !fat.Contains(slow) {
		t.Fatalf("got fat box %v not containing %v", fat, slow)
	}
	if tree.MoveProxy(id, slow, vec.Vec2{X: 0.5}) {
		t.Error("move inside the fat box re-inserted the proxy")
	}
	if got := tree.FatBB(id); got != fat {
		t.Errorf("got fat box %v want %v", got, fat)
	}
}

func TestInvalidProxyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	tree := broadphase.NewTree()
	tree.FatBB(3)
}

// Every pair whose exact boxes overlap must have been reported at some
// point, and no reported pair may have disjoint fat boxes.
func TestUpdatePairsComplete(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	bp := broadphase.New()

	items := make([]*item, 60)
	for i := range items {
		bb := randomBB(r)
		items[i] = &item{id: i, bb: bb}
		items[i].proxy = bp.CreateProxy(bb, items[i])
	}

	known := map[[2]int]bool{}
	for step := 0; step < 30; step++ {
		for _, it := range items {
			d := vec.Vec2{X: r.Float64() - 0.5, Y: r.Float64() - 0.5}
			it.bb = it.bb.Offset(d)
			bp.MoveProxy(it.proxy, it.bb, d)
		}

		// Drop pairs whose fat boxes stopped overlapping, like a contact
		// manager would.
		for k := range known {
			if !bp.TestOverlap(items[k[0]].proxy, items[k[1]].proxy) {
				delete(known, k)
			}
		}

		bp.UpdatePairs(func(a, b any) {
			ia := a.(*item)
			ib := b.(*item)
			if !bp.TestOverlap(ia.proxy, ib.proxy) {
				t.Errorf("step %d: reported disjoint pair %d %d", step, ia.id, ib.id)
			}
			known[[2]int{min(ia.id, ib.id), max(ia.id, ib.id)}] = true
		})

		for i := 0; i < len(items); i++ {
			for j := i + 1; j < len(items); j++ {
				if items[i].bb.Intersects(items[j].bb) && !known[[2]int{i, j}] {
					t.Errorf("step %d: missing pair %d %d", step, i, j)
				}
			}
		}
	}

	if err := bp.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdatePairsReportsOnce(t *testing.T) {
	bp := broadphase.New()
	bb := geom.NewBBForExtents(vec.Vec2{}, 1, 1)
	bp.CreateProxy(bb, "a")
	bp.CreateProxy(bb, "b")
	bp.CreateProxy(bb.Offset(vec.Vec2{X: 10}), "c")

	got := 0
	bp.UpdatePairs(func(a, b any) {
		got++
		if a == "c" || b == "c" {
			t.Errorf("got pair %v %v", a, b)
		}
	})
	if got != 1 {
		t.Errorf("got %d pairs want 1", got)
	}

	got = 0
	bp.UpdatePairs(func(a, b any) { got++ })
	if got != 0 {
		t.Errorf("got %d pairs on idle update want 0", got)
	}
}

func TestDestroyedProxyNotReported(t *testing.T) {
	bp := broadphase.New()
	bb := geom.NewBBForExtents(vec.Vec2{}, 1, 1)
	bp.CreateProxy(bb, "a")
	b := bp.CreateProxy(bb, "b")
	bp.DestroyProxy(b)

	bp.UpdatePairs(func(a, b any) {
		t.Errorf("got pair %v %v", a, b)
	})
	if bp.ProxyCount() != 1 {
		t.Errorf("got %d proxies want 1", bp.ProxyCount())
	}
}

func TestRayCastClosest(t *testing.T) {
	bp := broadphase.New()
	for i := 1; i <= 5; i++ {
		bb := geom.NewBBForExtents(vec.Vec2{X: float64(i) * 3}, 0.5, 0.5)
		bp.CreateProxy(bb, bb)
	}

	input := geom.RayCastInput{P1: vec.Vec2{}, P2: vec.Vec2{X: 20}, MaxFraction: 1}
	best := 1.0
	bp.RayCast(input, func(in geom.RayCastInput, id int) float64 {
		bb := bp.Payload(id).(geom.BB)
		f := bb.SegmentQuery(in.P1, in.P2)
		if f > in.MaxFraction {
			return -1
		}
		best = f
		return f
	})

	if want := 2.5 / 20; best != want {
		t.Errorf("got %v want %v", best, want)
	}
}

func TestQueryStops(t *testing.T) {
	bp := broadphase.New()
	bb := geom.NewBBForExtents(vec.Vec2{}, 1, 1)
	for i := 0; i < 10; i++ {
		bp.CreateProxy(bb, i)
	}
	n := 0
	bp.Query(bb, func(id int) bool {
		n++
		return n < 3
	})
	if n != 3 {
		t.Errorf("got %d callbacks want 3", n)
	}
}
