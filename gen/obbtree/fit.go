package obbtree

import (
	"math"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	searchIterations = 10
	searchStep       = 0.15
)

// pcaBasis returns the principal axes of the point set as matrix rows,
// largest variance first.
func pcaBasis(points []mgl32.Vec3) mgl32.Mat3 {
	var mean [3]float64
	for _, p := range points {
		for i := 0; i < 3; i++ {
			mean[i] += float64(p[i])
		}
	}
	for i := range mean {
		mean[i] /= float64(len(points))
	}

	var cov [3][3]float64
	for _, p := range points {
		var d [3]float64
		for i := 0; i < 3; i++ {
			d[i] = float64(p[i]) - mean[i]
		}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				cov[i][j] += d[i] * d[j]
			}
		}
	}

	values, vectors := jacobiEigen(cov)

	order := []int{0, 1, 2}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })

	var basis mgl32.Mat3
	for row, col := range order {
		for i := 0; i < 3; i++ {
			basis.Set(row, i, float32(vectors[i][col]))
		}
	}
	return basis
}

// jacobiEigen diagonalizes a symmetric 3x3 matrix by cyclic Jacobi
// rotations, returning eigenvalues and column eigenvectors.
func jacobiEigen(a [3][3]float64) (values [3]float64, vectors [3][3]float64) {
	for i := 0; i < 3; i++ {
		vectors[i][i] = 1
	}
	for sweep := 0; sweep < 32; sweep++ {
		var off float64
		for p := 0; p < 3; p++ {
			for q := p + 1; q < 3; q++ {
				off += a[p][q] * a[p][q]
			}
		}
		if off < 1e-18 {
			break
		}
		for p := 0; p < 3; p++ {
			for q := p + 1; q < 3; q++ {
				if a[p][q] == 0 {
					continue
				}
				theta := (a[q][q] - a[p][p]) / (2 * a[p][q])
				t := 1 / (math.Abs(theta) + math.Sqrt(theta*theta+1))
				if theta < 0 {
					t = -t
				}
				c := 1 / math.Sqrt(t*t+1)
				s := t * c

				for i := 0; i < 3; i++ {
					aip, aiq := a[i][p], a[i][q]
					a[i][p] = c*aip - s*aiq
					a[i][q] = s*aip + c*aiq
				}
				for i := 0; i < 3; i++ {
					api, aqi := a[p][i], a[q][i]
					a[p][i] = c*api - s*aqi
					a[q][i] = s*api + c*aqi
				}
				for i := 0; i < 3; i++ {
					vip, viq := vectors[i][p], vectors[i][q]
					vectors[i][p] = c*vip - s*viq
					vectors[i][q] = s*vip + c*viq
				}
			}
		}
	}
	for i := 0; i < 3; i++ {
		values[i] = a[i][i]
	}
	return values, vectors
}

// rodrigues converts a rotation vector (axis scaled by angle) into a
// rotation matrix.
func rodrigues(rv mgl32.Vec3) mgl32.Mat3 {
	angle := rv.Len()
	if angle < 1e-12 {
		return mgl32.Ident3()
	}
	return mgl32.HomogRotate3D(angle, rv.Mul(1/angle)).Mat3()
}

// boxExtents projects the points onto the basis rows and returns the
// per-axis bounds in that frame.
func boxExtents(points []mgl32.Vec3, basis mgl32.Mat3) (min, max mgl32.Vec3) {
	first := basis.Mul3x1(points[0])
	min, max = first, first
	for _, p := range points[1:] {
		local := basis.Mul3x1(p)
		for i := 0; i < 3; i++ {
			if local[i] < min[i] {
				min[i] = local[i]
			}
			if local[i] > max[i] {
				max[i] = local[i]
			}
		}
	}
	return min, max
}

func boxVolume(points []mgl32.Vec3, basis mgl32.Mat3) float32 {
	min, max := boxExtents(points, basis)
	d := max.Sub(min)
	return d[0] * d[1] * d[2]
}

// refineBasis runs a short Nelder-Mead search over a rotation-vector
// perturbation of the seed basis, minimizing bounding volume.
func refineBasis(points []mgl32.Vec3, seed mgl32.Mat3) (mgl32.Mat3, float32) {
	eval := func(rv mgl32.Vec3) float32 {
		return boxVolume(points, rodrigues(rv).Mul3(seed))
	}

	type vertex struct {
		x mgl32.Vec3
		f float32
	}
	simplex := [4]vertex{{x: mgl32.Vec3{}}}
	for i := 1; i < 4; i++ {
		var x mgl32.Vec3
		x[i-1] = searchStep
		simplex[i] = vertex{x: x}
	}
	for i := range simplex {
		simplex[i].f = eval(simplex[i].x)
	}

	for iter := 0; iter < searchIterations; iter++ {
		sort.SliceStable(simplex[:], func(a, b int) bool { return simplex[a].f < simplex[b].f })

		centroid := simplex[0].x.Add(simplex[1].x).Add(simplex[2].x).Mul(1.0 / 3.0)
		worst := &simplex[3]

		reflected := centroid.Add(centroid.Sub(worst.x))
		fr := eval(reflected)
		switch {
		case fr < simplex[0].f:
			expanded := centroid.Add(centroid.Sub(worst.x).Mul(2))
			if fe := eval(expanded); fe < fr {
				*worst = vertex{x: expanded, f: fe}
			} else {
				*worst = vertex{x: reflected, f: fr}
			}
		case fr < simplex[2].f:
			*worst = vertex{x: reflected, f: fr}
		default:
			contracted := centroid.Add(worst.x.Sub(centroid).Mul(0.5))
			if fc := eval(contracted); fc < worst.f {
				*worst = vertex{x: contracted, f: fc}
			} else {
				for i := 1; i < 4; i++ {
					simplex[i].x = simplex[0].x.Add(simplex[i].x.Sub(simplex[0].x).Mul(0.5))
					simplex[i].f = eval(simplex[i].x)
				}
			}
		}
	}

	sort.SliceStable(simplex[:], func(a, b int) bool { return simplex[a].f < simplex[b].f })
	return rodrigues(simplex[0].x).Mul3(seed), simplex[0].f
}

// seedBases collects the candidate orientations: the identity frame,
// the PCA frame, and up to two frames aligned to the two hull faces
// with the most distinct normals paired with one of their edges.
func seedBases(points []mgl32.Vec3) []mgl32.Mat3 {
	seeds := []mgl32.Mat3{mgl32.Ident3(), pcaBasis(points)}

	hull := convexHull(points)
	if len(hull) < 2 {
		return seeds
	}
	fa, fb := 0, 1
	bestDot := float32(2)
	for i := range hull {
		for j := i + 1; j < len(hull); j++ {
			if d := hull[i].Normal.Dot(hull[j].Normal); d < bestDot {
				bestDot, fa, fb = d, i, j
			}
		}
	}
	for _, f := range []hullFace{hull[fa], hull[fb]} {
		edge := points[f.B].Sub(points[f.A])
		if edge.Len() < hullEpsilon {
			continue
		}
		z := f.Normal
		x := edge.Normalize()
		y := z.Cross(x).Normalize()
		x = y.Cross(z)
		seeds = append(seeds, mgl32.Mat3FromRows(x, y, z))
	}
	return seeds
}

// fitBox finds an approximately minimum-volume oriented frame for the
// points. Seeds are refined concurrently; ties keep the lowest seed
// index so the result is deterministic.
func fitBox(points []mgl32.Vec3) mgl32.Mat3 {
	seeds := seedBases(points)

	type result struct {
		basis  mgl32.Mat3
		volume float32
	}
	results := make([]result, len(seeds))

	var wg sync.WaitGroup
	for i := range seeds {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			basis, volume := refineBasis(points, seeds[i])
			results[i] = result{basis: basis, volume: volume}
		}(i)
	}
	wg.Wait()

	best := 0
	for i := 1; i < len(results); i++ {
		if results[i].volume < results[best].volume {
			best = i
		}
	}
	return results[best].basis
}
