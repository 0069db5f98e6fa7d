package skeleton

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/battleforge-tools/drsbrowser/utils/gltfutils"
)

type GLTFBoneExported struct {
	BoneNodes map[string]uint32
	Root      uint32
}

// ExportGLTF appends one glTF node per bone, preserving the hierarchy.
// Returned indices let mesh exporters attach skins to the joints.
func (n *BoneNode) ExportGLTF(name string, gltfCacher *gltfutils.GLTFCacher) *GLTFBoneExported {
	doc := gltfCacher.Doc
	exported := &GLTFBoneExported{BoneNodes: make(map[string]uint32)}
	defer gltfCacher.AddCache(name, exported)

	var walk func(bone *BoneNode) uint32
	walk = func(bone *BoneNode) uint32 {
		rotation := mgl32.Mat4ToQuat(bone.Rotation.Mat4())

		node := &gltf.Node{
			Name:        bone.Name,
			Translation: bone.Location,
			Rotation:    rotation.V.Vec4(rotation.W),
		}
		id := uint32(len(doc.Nodes))
		doc.Nodes = append(doc.Nodes, node)
		exported.BoneNodes[bone.Name] = id

		for _, child := range bone.Children {
			node.Children = append(node.Children, walk(child))
		}
		return id
	}
	exported.Root = walk(n)

	return exported
}
