package obbtree

import (
	"github.com/go-gl/mathgl/mgl32"
)

const hullEpsilon = 1e-6

// hullFace is one outward-oriented triangle of a convex hull, indexing
// into the point slice it was built from.
type hullFace struct {
	A, B, C int
	Normal  mgl32.Vec3
}

func faceNormal(points []mgl32.Vec3, a, b, c int) (mgl32.Vec3, bool) {
	n := points[b].Sub(points[a]).Cross(points[c].Sub(points[a]))
	l := n.Len()
	if l < hullEpsilon {
		return mgl32.Vec3{}, false
	}
	return n.Mul(1 / l), true
}

// convexHull runs a quickhull sweep over the point set. Degenerate
// inputs (fewer than 4 points, collinear or coplanar sets) yield nil;
// callers treat that as "no hull-derived seeds".
func convexHull(points []mgl32.Vec3) []hullFace {
	if len(points) < 4 {
		return nil
	}

	p0, p1 := farthestPair(points)
	if points[p1].Sub(points[p0]).Len() < hullEpsilon {
		return nil
	}
	p2 := farthestFromLine(points, p0, p1)
	if p2 < 0 {
		return nil
	}
	p3 := farthestFromPlane(points, p0, p1, p2)
	if p3 < 0 {
		return nil
	}

	faces := initialTetrahedron(points, p0, p1, p2, p3)

	// each insertion either finishes or consumes one point, so the
	// sweep is bounded even with noisy normals
	for iter := 0; iter < len(points); iter++ {
		best := -1
		bestDist := float32(hullEpsilon)
		for i := range points {
			for j := range faces {
				d := points[i].Sub(points[faces[j].A]).Dot(faces[j].Normal)
				if d > bestDist {
					bestDist, best = d, i
				}
			}
		}
		if best < 0 {
			break
		}
		faces = insertHullPoint(points, faces, best)
	}
	return faces
}

func farthestPair(points []mgl32.Vec3) (int, int) {
	// extremes along the coordinate axes are enough to seed the hull
	extremes := make([]int, 0, 6)
	for axis := 0; axis < 3; axis++ {
		lo, hi := 0, 0
		for i := range points {
			if points[i][axis] < points[lo][axis] {
				lo = i
			}
			if points[i][axis] > points[hi][axis] {
				hi = i
			}
		}
		extremes = append(extremes, lo, hi)
	}
	bp0, bp1, bestDist := 0, 0, float32(-1)
	for _, i := range extremes {
		for _, j := range extremes {
			if d := points[i].Sub(points[j]).LenSqr(); d > bestDist {
				bp0, bp1, bestDist = i, j, d
			}
		}
	}
	return bp0, bp1
}

func farthestFromLine(points []mgl32.Vec3, p0, p1 int) int {
	dir := points[p1].Sub(points[p0]).Normalize()
	best, bestDist := -1, float32(hullEpsilon)
	for i := range points {
		v := points[i].Sub(points[p0])
		if d := v.Sub(dir.Mul(v.Dot(dir))).Len(); d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func farthestFromPlane(points []mgl32.Vec3, p0, p1, p2 int) int {
	n, ok := faceNormal(points, p0, p1, p2)
	if !ok {
		return -1
	}
	best, bestDist := -1, float32(hullEpsilon)
	for i := range points {
		if d := mgl32.Abs(points[i].Sub(points[p0]).Dot(n)); d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func initialTetrahedron(points []mgl32.Vec3, p0, p1, p2, p3 int) []hullFace {
	idx := [4][4]int{
		{p0, p1, p2, p3},
		{p0, p1, p3, p2},
		{p0, p2, p3, p1},
		{p1, p2, p3, p0},
	}
	faces := make([]hullFace, 0, 4)
	for _, f := range idx {
		a, b, c, opposite := f[0], f[1], f[2], f[3]
		n, ok := faceNormal(points, a, b, c)
		if !ok {
			continue
		}
		if points[opposite].Sub(points[a]).Dot(n) > 0 {
			b, c = c, b
			n = n.Mul(-1)
		}
		faces = append(faces, hullFace{A: a, B: b, C: c, Normal: n})
	}
	return faces
}

func insertHullPoint(points []mgl32.Vec3, faces []hullFace, p int) []hullFace {
	visible := make([]bool, len(faces))
	edges := make(map[[2]int]bool)
	for i := range faces {
		if points[p].Sub(points[faces[i].A]).Dot(faces[i].Normal) > hullEpsilon {
			visible[i] = true
			edges[[2]int{faces[i].A, faces[i].B}] = true
			edges[[2]int{faces[i].B, faces[i].C}] = true
			edges[[2]int{faces[i].C, faces[i].A}] = true
		}
	}

	next := faces[:0:0]
	for i := range faces {
		if !visible[i] {
			next = append(next, faces[i])
		}
	}
	// horizon edges are the ones whose twin is on an invisible face
	for e := range edges {
		if edges[[2]int{e[1], e[0]}] {
			continue
		}
		if n, ok := faceNormal(points, e[0], e[1], p); ok {
			next = append(next, hullFace{A: e[0], B: e[1], C: p, Normal: n})
		}
	}
	return next
}
