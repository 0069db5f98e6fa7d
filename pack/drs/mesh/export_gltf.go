package mesh

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/battleforge-tools/drsbrowser/utils/gltfutils"
)

type GLTFSubmeshExported struct {
	GLTFMesh      *gltf.Mesh
	GLTFMeshIndex uint32
	ColorTexture  string
}

type GLTFMeshExported struct {
	Submeshes []*GLTFSubmeshExported
}

// geometryStream finds the attribute stream carrying positions, or nil
// for malformed meshes.
func (m *BattleforgeMesh) geometryStream() *MeshData {
	for i := range m.MeshData {
		switch m.MeshData[i].Revision {
		case VERTEX_REVISION_GEOMETRY, VERTEX_REVISION_COMPACT:
			return &m.MeshData[i]
		}
	}
	return nil
}

func (m *BattleforgeMesh) skinStream() *MeshData {
	for i := range m.MeshData {
		if m.MeshData[i].Revision == VERTEX_REVISION_SKIN {
			return &m.MeshData[i]
		}
	}
	return nil
}

func (m *BattleforgeMesh) textureName(identifier int32) string {
	for _, t := range m.Textures.Textures {
		if t.Identifier == identifier {
			return t.Name
		}
	}
	return ""
}

// ExportGLTF appends every submesh of the record to the document as
// one glTF mesh each, sharing the cacher's accessor pool.
func (m *CDspMeshFile) ExportGLTF(name string, gltfCacher *gltfutils.GLTFCacher) (*GLTFMeshExported, error) {
	doc := gltfCacher.Doc
	exported := &GLTFMeshExported{}
	defer gltfCacher.AddCache(name, exported)

	for iMesh := range m.Meshes {
		bfMesh := &m.Meshes[iMesh]
		geometry := bfMesh.geometryStream()
		if geometry == nil {
			continue
		}
		verticesCount := len(geometry.Vertices)

		attributes := make(map[string]uint32)

		{
			positions := make([][3]float32, verticesCount)
			for iVertex := range geometry.Vertices {
				positions[iVertex] = geometry.Vertices[iVertex].Position
			}
			attributes["POSITION"] = modeler.WritePosition(doc, positions)
		}

		if geometry.Revision == VERTEX_REVISION_GEOMETRY {
			normals := make([][3]float32, verticesCount)
			for iVertex := range geometry.Vertices {
				normal := geometry.Vertices[iVertex].Normal
				if normal.Len() > 0.5 {
					normal = normal.Normalize()
				}
				normals[iVertex] = normal
			}
			attributes["NORMAL"] = modeler.WriteNormal(doc, normals)
		}

		{
			uvs := make([][2]float32, verticesCount)
			for iVertex := range geometry.Vertices {
				uvs[iVertex] = geometry.Vertices[iVertex].Texture
			}
			attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(doc, uvs)
		}

		if skinData := bfMesh.skinStream(); skinData != nil && len(skinData.Vertices) == verticesCount {
			joints := make([][4]uint16, verticesCount)
			weights := make([][4]float32, verticesCount)
			for iVertex := range skinData.Vertices {
				v := &skinData.Vertices[iVertex]
				for i := 0; i < 4; i++ {
					joints[iVertex][i] = uint16(v.BoneIndices[i])
					weights[iVertex][i] = float32(v.RawWeights[i]) / 255.0
				}
			}
			attributes["JOINTS_0"] = modeler.WriteJoints(doc, joints)
			attributes["WEIGHTS_0"] = modeler.WriteWeights(doc, weights)
		}

		indices := make([]uint32, 0, len(bfMesh.Faces)*3)
		for _, face := range bfMesh.Faces {
			indices = append(indices, uint32(face[0]), uint32(face[1]), uint32(face[2]))
		}
		indicesAccessor := modeler.WriteIndices(doc, indices)

		gltfMesh := &gltf.Mesh{
			Name: fmt.Sprintf("%s_msh%d", name, iMesh),
			Primitives: []*gltf.Primitive{
				{
					Indices:    &indicesAccessor,
					Attributes: attributes,
				},
			},
		}
		doc.Meshes = append(doc.Meshes, gltfMesh)
		exported.Submeshes = append(exported.Submeshes, &GLTFSubmeshExported{
			GLTFMesh:      gltfMesh,
			GLTFMeshIndex: uint32(len(doc.Meshes) - 1),
			ColorTexture:  bfMesh.textureName(TEXTURE_COLOR_MAP),
		})
	}
	return exported, nil
}

// ExportGLTFDefault produces a standalone document with one node and a
// plain double-sided material per submesh.
func (m *CDspMeshFile) ExportGLTFDefault(name string) (*gltf.Document, error) {
	gltfCacher := gltfutils.NewCacher()
	doc := gltfCacher.Doc

	exported, err := m.ExportGLTF(name, gltfCacher)
	if err != nil {
		return nil, err
	}

	for _, submesh := range exported.Submeshes {
		materialName := submesh.ColorTexture
		if materialName == "" {
			materialName = "default"
		}
		doc.Materials = append(doc.Materials, &gltf.Material{
			Name:        materialName,
			DoubleSided: true,
		})
		materialIndex := uint32(len(doc.Materials) - 1)
		for _, primitive := range submesh.GLTFMesh.Primitives {
			primitive.Material = gltf.Index(materialIndex)
		}

		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name: submesh.GLTFMesh.Name,
			Mesh: gltf.Index(submesh.GLTFMeshIndex),
		})
	}
	return doc, nil
}
