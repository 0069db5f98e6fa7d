// Package skin transfers bone weights between the deduplicated vertex
// set a CSkSkinInfo is keyed by and the per-submesh vertex buffers that
// duplicate positions at UV and normal seams.
package skin

import (
	"log"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/battleforge-tools/drsbrowser/pack/drs/skel"
)

const (
	// exact-match tolerance, with a looser nearest-neighbor fallback
	// for positions shifted by deduplication arithmetic
	MATCH_EPSILON    = 1e-6
	FALLBACK_EPSILON = 1e-5

	missWarningLimit = 10
)

// positionIndex is a uniform-grid spatial hash over a point set. Cell
// size equals the fallback tolerance, so scanning the 27 neighboring
// cells covers every candidate within it.
type positionIndex struct {
	points []mgl32.Vec3
	cells  map[[3]int32][]int
}

func newPositionIndex(points []mgl32.Vec3) *positionIndex {
	ix := &positionIndex{
		points: points,
		cells:  make(map[[3]int32][]int, len(points)),
	}
	for i, p := range points {
		key := cellOf(p)
		ix.cells[key] = append(ix.cells[key], i)
	}
	return ix
}

func cellOf(p mgl32.Vec3) [3]int32 {
	const invCell = 1 / FALLBACK_EPSILON
	return [3]int32{
		int32(math.Floor(float64(p[0]) * invCell)),
		int32(math.Floor(float64(p[1]) * invCell)),
		int32(math.Floor(float64(p[2]) * invCell)),
	}
}

// find returns the index of the nearest point within eps, or -1.
func (ix *positionIndex) find(p mgl32.Vec3, eps float32) int {
	center := cellOf(p)
	best := -1
	bestDist := eps * eps
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dz := int32(-1); dz <= 1; dz++ {
				key := [3]int32{center[0] + dx, center[1] + dy, center[2] + dz}
				for _, i := range ix.cells[key] {
					if d := ix.points[i].Sub(p).LenSqr(); d <= bestDist {
						best, bestDist = i, d
					}
				}
			}
		}
	}
	return best
}

func vec4Positions(vertices []mgl32.Vec4) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(vertices))
	for i, v := range vertices {
		out[i] = v.Vec3()
	}
	return out
}

// Scatter copies each submesh vertex's weight quadruple from its
// position match in the unified vertex set. Unmatched vertices get
// zero weights; the returned count says how many, and only the first
// few are logged individually.
func Scatter(weights []skel.VertexWeights, unified []mgl32.Vec4, vertices []mgl32.Vec3) ([]skel.VertexWeights, int) {
	ix := newPositionIndex(vec4Positions(unified))

	out := make([]skel.VertexWeights, len(vertices))
	misses := 0
	for i, p := range vertices {
		match := ix.find(p, MATCH_EPSILON)
		if match < 0 {
			match = ix.find(p, FALLBACK_EPSILON)
		}
		if match < 0 || match >= len(weights) {
			misses++
			if misses <= missWarningLimit {
				log.Printf("[skin] No weight source within tolerance for vertex %d at %v", i, p)
			}
			continue
		}
		out[i] = weights[match]
	}
	if misses > missWarningLimit {
		log.Printf("[skin] %d further unmatched vertices not reported", misses-missWarningLimit)
	}
	return out, misses
}

// Influence is one bone's contribution to a vertex.
type Influence struct {
	BoneIndex int32
	Weight    float32
}

// SourceMesh is one exported object's vertex buffer with its per-vertex
// bone influences, positions already in the unified mesh's space.
type SourceMesh struct {
	Positions  []mgl32.Vec3
	Influences [][]Influence
}

// Gather collects weight contributions from every source mesh onto
// the unified vertex set and packs them into per-vertex quadruples,
// keeping the four heaviest influences when a vertex has more.
func Gather(unified []mgl32.Vec4, sources []SourceMesh) []skel.VertexWeights {
	ix := newPositionIndex(vec4Positions(unified))

	collected := make([]map[int32]float32, len(unified))
	for si := range sources {
		src := &sources[si]
		for vi, p := range src.Positions {
			match := ix.find(p, MATCH_EPSILON)
			if match < 0 {
				match = ix.find(p, FALLBACK_EPSILON)
			}
			if match < 0 {
				continue
			}
			if collected[match] == nil {
				collected[match] = make(map[int32]float32, 4)
			}
			for _, inf := range src.Influences[vi] {
				if inf.Weight > collected[match][inf.BoneIndex] {
					collected[match][inf.BoneIndex] = inf.Weight
				}
			}
		}
	}

	out := make([]skel.VertexWeights, len(unified))
	truncated := 0
	for i, contrib := range collected {
		influences := make([]Influence, 0, len(contrib))
		for bone, weight := range contrib {
			influences = append(influences, Influence{BoneIndex: bone, Weight: weight})
		}
		sort.SliceStable(influences, func(a, b int) bool {
			if influences[a].Weight != influences[b].Weight {
				return influences[a].Weight > influences[b].Weight
			}
			return influences[a].BoneIndex < influences[b].BoneIndex
		})
		if len(influences) > 4 {
			truncated++
			influences = influences[:4]
		}
		for j, inf := range influences {
			out[i].BoneIndices[j] = inf.BoneIndex
			out[i].Weights[j] = inf.Weight
		}
	}
	if truncated > 0 {
		log.Printf("[skin] Truncated %d vertices to their 4 heaviest influences", truncated)
	}
	return out
}
