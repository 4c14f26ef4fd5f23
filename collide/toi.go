package collide

import (
	"math"

	"github.com/setanarut/kinetic/geom"
	"github.com/setanarut/vec"
)

// TOIState is the outcome of a time of impact query.
type TOIState uint8

const (
	TOIUnknown TOIState = iota
	// TOIFailed: no convergence within MaxTOIIterations. T is the last
	// fraction known to be safe.
	TOIFailed
	// TOIOverlapped: the cores already overlap at the start of the sweep.
	TOIOverlapped
	// TOITouching: the shapes come within the target distance at T.
	TOITouching
	// TOISeparated: the shapes stay apart over the sweep.
	TOISeparated
)

func (s TOIState) String() string {
	switch s {
	case TOIFailed:
		return "failed"
	case TOIOverlapped:
		return "overlapped"
	case TOITouching:
		return "touching"
	case TOISeparated:
		return "separated"
	}
	return "unknown"
}

// TOIInput describes two shapes moving over one sweep each. TMax limits the
// fraction of the sweep to examine.
type TOIInput struct {
	ProxyA, ProxyB geom.Proxy
	SweepA, SweepB geom.Sweep
	TMax           float64
}

// TOIOutput holds the state and the fraction of the sweep it applies to.
type TOIOutput struct {
	State TOIState
	T     float64
}

// maxExtent is the largest distance of a proxy vertex from the center of
// mass, used to bound the speed of points on a rotating shape.
func maxExtent(p geom.Proxy, localCenter vec.Vec2) float64 {
	var r float64
	for _, v := range p.Vertices {
		r = math.Max(r, v.Sub(localCenter).Mag())
	}
	return r
}

// TimeOfImpact finds the first fraction of the sweep at which the two shapes
// come within a small target distance of touching, using conservative
// advancement. Each iteration measures the distance with GJK and advances
// by the distance divided by an upper bound on the closing speed along the
// witness normal, so the advancement never overshoots.
//
// The target sits slightly inside the skins, so a touching result yields a
// manifold with a little penetration for the solver to hold.
func TimeOfImpact(input *TOIInput) TOIOutput {
	sweepA := input.SweepA
	sweepB := input.SweepB
	sweepA.Normalize()
	sweepB.Normalize()

	proxyA := input.ProxyA
	proxyB := input.ProxyB
	tMax := input.TMax

	totalRadius := proxyA.Radius + proxyB.Radius
	target := math.Max(geom.LinearSlop, totalRadius-3.0*geom.LinearSlop)
	tolerance := 0.25 * geom.LinearSlop

	// Motion per unit of sweep fraction.
	dA := sweepA.C.Sub(sweepA.C0)
	dB := sweepB.C.Sub(sweepB.C0)
	wA := math.Abs(sweepA.A - sweepA.A0)
	wB := math.Abs(sweepB.A - sweepB.A0)
	rA := maxExtent(proxyA, sweepA.LocalCenter)
	rB := maxExtent(proxyB, sweepB.LocalCenter)
	angularBound := wA*rA + wB*rB

	var cache SimplexCache
	distInput := DistanceInput{ProxyA: proxyA, ProxyB: proxyB}

	t := 0.0
	for iter := 0; iter < geom.MaxTOIIterations; iter++ {
		distInput.TransformA = sweepA.Transform(t)
		distInput.TransformB = sweepB.Transform(t)
		out := Distance(&cache, &distInput)

		if out.Distance <= 0 {
			return TOIOutput{State: TOIOverlapped, T: 0}
		}

		if out.Distance < target+tolerance {
			return TOIOutput{State: TOITouching, T: t}
		}

		normal, _ := geom.Normalize(out.PointB.Sub(out.PointA))

		// Upper bound on how fast the distance can shrink.
		closing := dA.Sub(dB).Dot(normal) + angularBound
		if closing <= geom.Epsilon {
			return TOIOutput{State: TOISeparated, T: tMax}
		}

		t += (out.Distance - target) / closing
		if t >= tMax {
			return TOIOutput{State: TOISeparated, T: tMax}
		}
	}

	return TOIOutput{State: TOIFailed, T: t}
}
