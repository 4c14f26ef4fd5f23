package collide

import (
	"log"

	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

// SimplexCache warm starts Distance. Zero value is an empty cache.
type SimplexCache struct {
	// Length or area of the cached simplex.
	Metric float64
	Count  int
	IndexA [3]int
	IndexB [3]int
}

// DistanceInput holds the two proxies and their transforms. With UseRadii
// the skins are subtracted from the result.
type DistanceInput struct {
	ProxyA, ProxyB         geom.Proxy
	TransformA, TransformB geom.Transform
	UseRadii               bool
}

// DistanceOutput holds the closest points and their distance.
type DistanceOutput struct {
	PointA, PointB vec.Vec2
	Distance       float64
	Iterations     int
}

type simplexVertex struct {
	wA, wB vec.Vec2 // support points in world space
	w      vec.Vec2 // wB - wA
	a      float64  // barycentric coordinate of the closest point
	indexA int
	indexB int
}

type simplex struct {
	v     [3]simplexVertex
	count int
}

func (s *simplex) readCache(cache *SimplexCache, input *DistanceInput) {
	s.count = cache.Count
	for i := 0; i < s.count; i++ {
		v := &s.v[i]
		v.indexA = cache.IndexA[i]
		v.indexB = cache.IndexB[i]
		v.wA = input.TransformA.Apply(input.ProxyA.Vertex(v.indexA))
		v.wB = input.TransformB.Apply(input.ProxyB.Vertex(v.indexB))
		v.w = v.wB.Sub(v.wA)
		v.a = 0
	}

	// Flush the simplex if its metric changed a lot.
	if s.count > 1 {
		metric1 := cache.Metric
		metric2 := s.metric()
		if metric2 < 0.5*metric1 || 2.0*metric1 < metric2 || metric2 < geom.Epsilon {
			s.count = 0
		}
	}

	if s.count == 0 {
		v := &s.v[0]
		v.indexA = 0
		v.indexB = 0
		v.wA = input.TransformA.Apply(input.ProxyA.Vertex(0))
		v.wB = input.TransformB.Apply(input.ProxyB.Vertex(0))
		v.w = v.wB.Sub(v.wA)
		v.a = 1
		s.count = 1
	}
}

func (s *simplex) writeCache(cache *SimplexCache) {
	cache.Metric = s.metric()
	cache.Count = s.count
	for i := 0; i < s.count; i++ {
		cache.IndexA[i] = s.v[i].indexA
		cache.IndexB[i] = s.v[i].indexB
	}
}

func (s *simplex) searchDirection() vec.Vec2 {
	switch s.count {
	case 1:
		return s.v[0].w.Neg()
	case 2:
		e12 := s.v[1].w.Sub(s.v[0].w)
		if e12.Cross(s.v[0].w.Neg()) > 0 {
			// Origin is left of e12.
			return geom.CrossSV(1, e12)
		}
		return geom.CrossVS(e12, 1)
	}
	panic("collide: bad simplex")
}

func (s *simplex) witnessPoints() (pA, pB vec.Vec2) {
	switch s.count {
	case 1:
		return s.v[0].wA, s.v[0].wB
	case 2:
		pA = s.v[0].wA.Scale(s.v[0].a).Add(s.v[1].wA.Scale(s.v[1].a))
		pB = s.v[0].wB.Scale(s.v[0].a).Add(s.v[1].wB.Scale(s.v[1].a))
		return pA, pB
	case 3:
		pA = s.v[0].wA.Scale(s.v[0].a).Add(s.v[1].wA.Scale(s.v[1].a)).Add(s.v[2].wA.Scale(s.v[2].a))
		return pA, pA
	}
	panic("collide: bad simplex")
}

func (s *simplex) metric() float64 {
	switch s.count {
	case 1:
		return 0
	case 2:
		return s.v[0].w.Distance(s.v[1].w)
	case 3:
		return s.v[1].w.Sub(s.v[0].w).Cross(s.v[2].w.Sub(s.v[0].w))
	}
	return 0
}

// solve2 finds the closest point on a segment to the origin using
// barycentric coordinates.
func (s *simplex) solve2() {
	w1 := s.v[0].w
	w2 := s.v[1].w
	e12 := w2.Sub(w1)

	// w1 region
	d12_2 := -w1.Dot(e12)
	if d12_2 <= 0 {
		s.v[0].a = 1
		s.count = 1
		return
	}

	// w2 region
	d12_1 := w2.Dot(e12)
	if d12_1 <= 0 {
		s.v[1].a = 1
		s.count = 1
		s.v[0] = s.v[1]
		return
	}

	inv := 1.0 / (d12_1 + d12_2)
	s.v[0].a = d12_1 * inv
	s.v[1].a = d12_2 * inv
	s.count = 2
}

// solve3 handles the vertex, edge and interior regions of a triangle.
func (s *simplex) solve3() {
	w1 := s.v[0].w
	w2 := s.v[1].w
	w3 := s.v[2].w

	e12 := w2.Sub(w1)
	d12_1 := w2.Dot(e12)
	d12_2 := -w1.Dot(e12)

	e13 := w3.Sub(w1)
	d13_1 := w3.Dot(e13)
	d13_2 := -w1.Dot(e13)

	e23 := w3.Sub(w2)
	d23_1 := w3.Dot(e23)
	d23_2 := -w2.Dot(e23)

	n123 := e12.Cross(e13)
	d123_1 := n123 * w2.Cross(w3)
	d123_2 := n123 * w3.Cross(w1)
	d123_3 := n123 * w1.Cross(w2)

	switch {
	case d12_2 <= 0 && d13_2 <= 0:
		s.v[0].a = 1
		s.count = 1

	case d12_1 > 0 && d12_2 > 0 && d123_3 <= 0:
		inv := 1.0 / (d12_1 + d12_2)
		s.v[0].a = d12_1 * inv
		s.v[1].a = d12_2 * inv
		s.count = 2

	case d13_1 > 0 && d13_2 > 0 && d123_2 <= 0:
		inv := 1.0 / (d13_1 + d13_2)
		s.v[0].a = d13_1 * inv
		s.v[2].a = d13_2 * inv
		s.count = 2
		s.v[1] = s.v[2]

	case d12_1 <= 0 && d23_2 <= 0:
		s.v[1].a = 1
		s.count = 1
		s.v[0] = s.v[1]

	case d13_1 <= 0 && d23_1 <= 0:
		s.v[2].a = 1
		s.count = 1
		s.v[0] = s.v[2]

	case d23_1 > 0 && d23_2 > 0 && d123_1 <= 0:
		inv := 1.0 / (d23_1 + d23_2)
		s.v[1].a = d23_1 * inv
		s.v[2].a = d23_2 * inv
		s.count = 2
		s.v[0] = s.v[2]

	default:
		inv := 1.0 / (d123_1 + d123_2 + d123_3)
		s.v[0].a = d123_1 * inv
		s.v[1].a = d123_2 * inv
		s.v[2].a = d123_3 * inv
		s.count = 3
	}
}

// Distance computes the closest points between two convex proxies with GJK.
// The cache is read to warm start and updated with the final simplex.
func Distance(cache *SimplexCache, input *DistanceInput) DistanceOutput {
	var s simplex
	s.readCache(cache, input)

	var saveA, saveB [3]int

	iter := 0
	for iter < geom.MaxDistanceIterations {
		saveCount := s.count
		for i := 0; i < saveCount; i++ {
			saveA[i] = s.v[i].indexA
			saveB[i] = s.v[i].indexB
		}

		switch s.count {
		case 2:
			s.solve2()
		case 3:
			s.solve3()
		}

		// The origin is inside the triangle.
		if s.count == 3 {
			break
		}

		d := s.searchDirection()
		// The origin is on the segment or very close to it: overlap.
		if d.Dot(d) < geom.Epsilon*geom.Epsilon {
			break
		}

		v := &s.v[s.count]
		v.indexA = input.ProxyA.Support(input.TransformA.Q.ApplyInv(d.Neg()))
		v.wA = input.TransformA.Apply(input.ProxyA.Vertex(v.indexA))
		v.indexB = input.ProxyB.Support(input.TransformB.Q.ApplyInv(d))
		v.wB = input.TransformB.Apply(input.ProxyB.Vertex(v.indexB))
		v.w = v.wB.Sub(v.wA)

		iter++

		// A repeated support point means no progress.
		duplicate := false
		for i := 0; i < saveCount; i++ {
			if v.indexA == saveA[i] && v.indexB == saveB[i] {
				duplicate = true
				break
			}
		}
		if duplicate {
			break
		}

		s.count++
	}

	if iter == geom.MaxDistanceIterations {
		log.Printf("collide: GJK hit the iteration limit (%d)", iter)
	}

	var out DistanceOutput
	out.PointA, out.PointB = s.witnessPoints()
	out.Distance = out.PointA.Distance(out.PointB)
	out.Iterations = iter

	s.writeCache(cache)

	if input.UseRadii {
		rA := input.ProxyA.Radius
		rB := input.ProxyB.Radius

		if out.Distance > rA+rB && out.Distance > geom.Epsilon {
			// Move the witness points to the surfaces.
			out.Distance -= rA + rB
			normal, _ := geom.Normalize(out.PointB.Sub(out.PointA))
			out.PointA = out.PointA.Add(normal.Scale(rA))
			out.PointB = out.PointB.Sub(normal.Scale(rB))
		} else {
			// Overlapping skins: meet in the middle.
			p := out.PointA.Add(out.PointB).Scale(0.5)
			out.PointA = p
			out.PointB = p
			out.Distance = 0
		}
	}
	return out
}

// TestOverlap reports whether two shapes, including their skins, overlap.
func TestOverlap(shapeA geom.Shape, xfA geom.Transform, shapeB geom.Shape, xfB geom.Transform) bool {
	input := DistanceInput{
		ProxyA:     shapeA.Proxy(),
		ProxyB:     shapeB.Proxy(),
		TransformA: xfA,
		TransformB: xfB,
		UseRadii:   true,
	}
	var cache SimplexCache
	out := Distance(&cache, &input)
	return out.Distance < 10.0*geom.Epsilon
}
