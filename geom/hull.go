package geom

import (
	"slices"

	"github.com/setanarut/vec"
)

// ConvexHull returns the counter-clockwise convex hull of points, starting
// at the left-most point. Points closer than tol to a hull edge are dropped,
// so collinear input collapses to its two end points.
//
// QuickHull with an in place reduction that uses the result slice as scratch
// space.
func ConvexHull(points []vec.Vec2, tol float64) []vec.Vec2 {
	if len(points) == 0 {
		return nil
	}
	verts := slices.Clone(points)
	count := len(verts)

	start, end := loopIndexes(verts)
	if start == end {
		return verts[:1]
	}

	verts[0], verts[start] = verts[start], verts[0]
	if end == 0 {
		verts[1], verts[start] = verts[start], verts[1]
	} else {
		verts[1], verts[end] = verts[end], verts[1]
	}

	a := verts[0]
	b := verts[1]

	n := qhullReduce(tol, verts[2:], count-2, a, b, a, verts[1:]) + 1
	return verts[:n]
}

func loopIndexes(verts []vec.Vec2) (int, int) {
	start := 0
	end := 0

	min := verts[0]
	max := min

	for i := 1; i < len(verts); i++ {
		v := verts[i]

		if v.X < min.X || (v.X == min.X && v.Y < min.Y) {
			min = v
			start = i
		} else if v.X > max.X || (v.X == max.X && v.Y > max.Y) {
			max = v
			end = i
		}
	}

	return start, end
}

func qhullReduce(tol float64, verts []vec.Vec2, count int, a, pivot, b vec.Vec2, result []vec.Vec2) int {
	if count == 0 {
		result[0] = pivot
		return 1
	}

	leftCount := qhullPartition(verts, count, a, pivot, tol)
	var index int
	if leftCount-1 >= 0 {
		index = qhullReduce(tol, verts[1:], leftCount-1, a, verts[0], pivot, result)
	}

	result[index] = pivot
	index++

	rightCount := qhullPartition(verts[leftCount:], count-leftCount, pivot, b, tol)
	if rightCount-1 < 0 {
		return index
	}
	return index + qhullReduce(tol, verts[leftCount+1:], rightCount-1, pivot, verts[leftCount], b, result[index:])
}

func qhullPartition(verts []vec.Vec2, count int, a, b vec.Vec2, tol float64) int {
	if count == 0 {
		return 0
	}

	max := 0.0
	pivot := 0

	delta := b.Sub(a)
	valueTol := tol * delta.Mag()

	head := 0
	for tail := count - 1; head <= tail; {
		value := verts[head].Sub(a).Cross(delta)
		if value > valueTol {
			if value > max {
				max = value
				pivot = head
			}

			head++
		} else {
			verts[head], verts[tail] = verts[tail], verts[head]
			tail--
		}
	}

	// move the new pivot to the front if it's not already there.
	if pivot != 0 {
		verts[0], verts[pivot] = verts[pivot], verts[0]
	}
	return head
}
