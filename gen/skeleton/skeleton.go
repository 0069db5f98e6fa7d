// Package skeleton converts between a hierarchical bone tree and the
// flat bone/matrix arrays a CSkSkeleton record stores.
package skeleton

import (
	"hash/fnv"
	"log"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/battleforge-tools/drsbrowser/pack/drs/skel"
	"github.com/battleforge-tools/drsbrowser/utils"
)

// BoneNode is one bone of the hierarchy with its rest pose relative to
// the parent bone's local space.
type BoneNode struct {
	Name     string
	Rotation mgl32.Mat3
	Location mgl32.Vec3
	Children []*BoneNode
}

// boneVersion derives the stable sort key the game binds animation
// channels by. It only has to be deterministic across exports of the
// same skeleton, so a name hash serves.
func boneVersion(name string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return h.Sum32()
}

// Linearize flattens the bone tree into a CSkSkeleton: identifiers
// assigned in pre-order, the bone list sorted by version key, and per
// bone a matrix block holding the local rotation rows plus the
// inverse-transform translation row. Nameless bones get generated
// placeholder names so the version key stays collision-free.
func Linearize(root *BoneNode) *skel.CSkSkeleton {
	s := &skel.CSkSkeleton{
		Magic:       skel.CSK_SKELETON_MAGIC,
		Version:     skel.CSK_SKELETON_VERSION,
		SuperParent: mgl32.Ident4(),
	}

	var rng utils.RandomNameGenerator
	var walk func(node *BoneNode, parent int32) int32
	walk = func(node *BoneNode, parent int32) int32 {
		id := int32(len(s.Bones))

		name := node.Name
		if name == "" {
			name = rng.RandomName()
			log.Printf("[skeleton] Bone %d has no name, generated %q", id, name)
		}
		s.Bones = append(s.Bones, skel.Bone{
			Version:    boneVersion(name),
			Identifier: id,
			Name:       name,
		})

		var matrix skel.BoneMatrix
		invTranslation := node.Rotation.Transpose().Mul3x1(node.Location).Mul(-1)
		for row := 0; row < 3; row++ {
			matrix.BoneVertices[row] = skel.BoneVertex{Position: node.Rotation.Row(row), Parent: parent}
		}
		matrix.BoneVertices[3] = skel.BoneVertex{Position: invTranslation, Parent: parent}
		s.BoneMatrices = append(s.BoneMatrices, matrix)

		for _, child := range node.Children {
			childID := walk(child, id)
			s.Bones[id].Children = append(s.Bones[id].Children, childID)
		}
		return id
	}
	walk(root, -1)

	sort.SliceStable(s.Bones, func(i, j int) bool {
		if s.Bones[i].Version != s.Bones[j].Version {
			return s.Bones[i].Version < s.Bones[j].Version
		}
		return s.Bones[i].Identifier < s.Bones[j].Identifier
	})
	return s
}

// Delinearize rebuilds the bone tree from the flat record. Bones whose
// parent cannot be resolved through the children lists are attached to
// the root with a diagnostic.
func Delinearize(s *skel.CSkSkeleton) (*BoneNode, error) {
	if len(s.Bones) == 0 {
		return nil, errors.Errorf("Skeleton has no bones")
	}
	if len(s.BoneMatrices) < len(s.Bones) {
		return nil, errors.Errorf("Skeleton has %d bones but %d matrices", len(s.Bones), len(s.BoneMatrices))
	}

	nodes := make([]*BoneNode, len(s.Bones))
	parents := make([]int32, len(s.Bones))
	var root *BoneNode
	for i := range s.Bones {
		b := &s.Bones[i]
		if b.Identifier < 0 || int(b.Identifier) >= len(nodes) {
			return nil, errors.Errorf("Bone %q has out-of-range identifier %d", b.Name, b.Identifier)
		}
		m := &s.BoneMatrices[b.Identifier]
		rotation := mgl32.Mat3FromRows(
			m.BoneVertices[0].Position,
			m.BoneVertices[1].Position,
			m.BoneVertices[2].Position,
		)
		nodes[b.Identifier] = &BoneNode{
			Name:     b.Name,
			Rotation: rotation,
			Location: rotation.Mul3x1(m.BoneVertices[3].Position.Mul(-1)),
		}
		parents[b.Identifier] = -1
		if b.Identifier == 0 {
			root = nodes[0]
		}
	}
	if root == nil {
		return nil, errors.Errorf("Skeleton has no root bone")
	}

	for i := range s.Bones {
		b := &s.Bones[i]
		for _, childID := range b.Children {
			if childID < 0 || int(childID) >= len(nodes) || nodes[childID] == nil {
				return nil, errors.Errorf("Bone %q references unknown child %d", b.Name, childID)
			}
			parents[childID] = b.Identifier
			nodes[b.Identifier].Children = append(nodes[b.Identifier].Children, nodes[childID])
		}
	}

	for id, node := range nodes {
		if node == nil || id == 0 || parents[id] != -1 {
			continue
		}
		log.Printf("[skeleton] Bone %q has no parent, attaching to root", node.Name)
		root.Children = append(root.Children, node)
	}
	return root, nil
}
