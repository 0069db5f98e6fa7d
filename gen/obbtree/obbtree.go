// Package obbtree builds the CGeoOBBTree bounding-volume hierarchy for
// a triangle soup: approximately minimum-volume oriented boxes found by
// a seeded local search, split top-down at triangle-centroid medians.
package obbtree

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/battleforge-tools/drsbrowser/pack/drs/geom"
)

const (
	// leaves stop splitting at this many triangles
	MAX_LEAF_TRIANGLES = 12
	MAX_TREE_DEPTH     = 32
)

type builder struct {
	vertices []mgl32.Vec3
	faces    []geom.Face
	nodes    []geom.OBBNode
}

// Build constructs the tree over the mesh's deduplicated vertices. The
// returned record carries its own face array, reordered so every
// node's triangle range is contiguous.
func Build(vertices []mgl32.Vec4, faces []geom.Face) *geom.CGeoOBBTree {
	b := &builder{
		vertices: make([]mgl32.Vec3, len(vertices)),
		faces:    append([]geom.Face(nil), faces...),
	}
	for i, v := range vertices {
		b.vertices[i] = v.Vec3()
	}
	if len(b.faces) != 0 {
		b.grow(0, len(b.faces), 0)
	}
	return &geom.CGeoOBBTree{
		Magic:   geom.CGEO_OBB_TREE_MAGIC,
		Version: geom.CGEO_OBB_TREE_VERSION,
		Nodes:   b.nodes,
		Faces:   b.faces,
	}
}

func (b *builder) grow(first, count int, depth uint16) uint16 {
	index := uint16(len(b.nodes))
	b.nodes = append(b.nodes, geom.OBBNode{
		NodeDepth:      depth,
		TriangleOffset: uint32(first),
		TotalTriangles: uint32(count),
	})

	points := b.collectPoints(first, count)
	basis := fitBox(points)
	min, max := boxExtents(points, basis)
	half := max.Sub(min).Mul(0.5)
	mid := max.Add(min).Mul(0.5)

	node := &b.nodes[index]
	node.OrientedBoundingBox.Position = basis.Transpose().Mul3x1(mid)
	node.OrientedBoundingBox.Matrix = mgl32.Mat3FromRows(
		basis.Row(0).Mul(half[0]),
		basis.Row(1).Mul(half[1]),
		basis.Row(2).Mul(half[2]),
	)

	if count <= MAX_LEAF_TRIANGLES || depth >= MAX_TREE_DEPTH {
		return index
	}

	split := b.partition(first, count, basis, dominantAxis(half))
	firstChild := b.grow(first, split, depth+1)
	secondChild := b.grow(first+split, count-split, depth+1)
	// nodes may have reallocated during recursion
	b.nodes[index].FirstChildIndex = firstChild
	b.nodes[index].SecondChildIndex = secondChild
	return index
}

func (b *builder) collectPoints(first, count int) []mgl32.Vec3 {
	points := make([]mgl32.Vec3, 0, count*3)
	for _, f := range b.faces[first : first+count] {
		for _, vi := range f {
			points = append(points, b.vertices[vi])
		}
	}
	return points
}

func dominantAxis(half mgl32.Vec3) int {
	axis := 0
	for i := 1; i < 3; i++ {
		if half[i] > half[axis] {
			axis = i
		}
	}
	return axis
}

// partition reorders the face range by centroid projection along the
// box's dominant axis and returns the split point: the median of the
// projections, or an even split when every centroid lands on one side.
func (b *builder) partition(first, count int, basis mgl32.Mat3, axis int) int {
	dir := basis.Row(axis)
	faces := b.faces[first : first+count]

	type keyed struct {
		face geom.Face
		proj float32
	}
	order := make([]keyed, count)
	for i, f := range faces {
		c := b.vertices[f[0]].Add(b.vertices[f[1]]).Add(b.vertices[f[2]]).Mul(1.0 / 3.0)
		order[i] = keyed{face: f, proj: dir.Dot(c)}
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].proj < order[j].proj })
	for i := range order {
		faces[i] = order[i].face
	}

	median := order[count/2].proj
	split := sort.Search(count, func(i int) bool { return order[i].proj >= median })
	if split == 0 || split == count {
		split = count / 2
	}
	return split
}
