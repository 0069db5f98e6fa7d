package mesh

import (
	"fmt"
	"io"

	"github.com/mogaika/fbx"
	"github.com/mogaika/fbx/builders/bfbx73"

	"github.com/battleforge-tools/drsbrowser/utils/fbxbuilder"
)

type FbxExportSubmesh struct {
	FbxGeometryId int64
	FbxGeometry   *fbx.Node
	FbxModelId    int64
	FbxModel      *fbx.Node

	Submesh      int
	ColorTexture string
}

type FbxExporter struct {
	m         *CDspMeshFile
	Submeshes []*FbxExportSubmesh
}

func (fe *FbxExporter) exportSubmesh(f *fbxbuilder.FBXBuilder, name string, iMesh int) {
	bfMesh := &fe.m.Meshes[iMesh]
	geometry := bfMesh.geometryStream()
	if geometry == nil {
		return
	}

	vertices := make([]float64, 0, len(geometry.Vertices)*3)
	normals := make([]float64, 0, len(geometry.Vertices)*3)
	uv := make([]float64, 0, len(geometry.Vertices)*2)
	haveNorm := geometry.Revision == VERTEX_REVISION_GEOMETRY

	for iVertex := range geometry.Vertices {
		v := &geometry.Vertices[iVertex]
		vertices = append(vertices,
			float64(v.Position[0]), float64(v.Position[1]), float64(v.Position[2]))
		if haveNorm {
			normals = append(normals,
				float64(v.Normal[0]), float64(v.Normal[1]), float64(v.Normal[2]))
		}
		uv = append(uv, float64(v.Texture[0]), float64(-v.Texture[1]))
	}

	// the final index of every polygon is stored bit-inverted
	indexes := make([]int32, 0, len(bfMesh.Faces)*3)
	uvindexes := make([]int32, 0, len(bfMesh.Faces)*3)
	for _, face := range bfMesh.Faces {
		indexes = append(indexes, int32(face[0]), int32(face[1]), -(int32(face[2]) + 1))
		uvindexes = append(uvindexes, int32(face[0]), int32(face[1]), int32(face[2]))
	}

	feo := &FbxExportSubmesh{
		Submesh:      iMesh,
		ColorTexture: bfMesh.textureName(TEXTURE_COLOR_MAP),
	}

	feo.FbxGeometryId = f.GenerateId()

	geometryLayer := bfbx73.Layer(0).AddNodes(
		bfbx73.Version(100),
	)

	geometryNode := bfbx73.Geometry(feo.FbxGeometryId, "\x00\x01Geometry", "Mesh").AddNodes(
		bfbx73.Properties70().AddNodes(
			bfbx73.P("Color", "ColorRGB", "Color", "", float64(1), float64(1), float64(1)),
		),
		bfbx73.GeometryVersion(124),
		bfbx73.Vertices(vertices),
		bfbx73.PolygonVertexIndex(indexes),
		geometryLayer,
	)

	if haveNorm {
		geometryNode.AddNode(
			bfbx73.LayerElementNormal(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("ByVertice"),
				bfbx73.ReferenceInformationType("Direct"),
				bfbx73.Normals(normals),
			),
		)
		geometryLayer.AddNode(
			bfbx73.LayerElement().AddNodes(
				bfbx73.Type("LayerElementNormal"),
				bfbx73.TypedIndex(0),
			),
		)
	}

	geometryNode.AddNode(
		bfbx73.LayerElementUV(0).AddNodes(
			bfbx73.Version(101),
			bfbx73.Name(""),
			bfbx73.MappingInformationType("ByPolygonVertex"),
			bfbx73.ReferenceInformationType("IndexToDirect"),
			bfbx73.UV(uv),
			bfbx73.UVIndex(uvindexes),
		),
	)
	geometryLayer.AddNode(
		bfbx73.LayerElement().AddNodes(
			bfbx73.Type("LayerElementUV"),
			bfbx73.TypedIndex(0),
		),
	)

	geometryNode.AddNode(
		bfbx73.LayerElementMaterial(0).AddNodes(
			bfbx73.Version(101),
			bfbx73.Name(""),
			bfbx73.MappingInformationType("AllSame"),
			bfbx73.ReferenceInformationType("IndexToDirect"),
			bfbx73.Materials([]int32{0}),
		),
	)
	geometryLayer.AddNode(
		bfbx73.LayerElement().AddNodes(
			bfbx73.Type("LayerElementMaterial"),
			bfbx73.TypedIndex(0),
		),
	)

	modelName := fmt.Sprintf("%s_msh%d", name, iMesh)
	feo.FbxGeometry = geometryNode
	feo.FbxModelId = f.GenerateId()
	feo.FbxModel = bfbx73.Model(feo.FbxModelId, modelName+"\x00\x01Model", "Mesh").AddNodes(
		bfbx73.Version(232),
		bfbx73.Properties70().AddNodes(
			bfbx73.P("InheritType", "enum", "", "", int32(1)),
			bfbx73.P("DefaultAttributeIndex", "int", "Integer", "", int32(0)),
			bfbx73.P("Lcl Translation", "Lcl Translation", "", "A", float64(0), float64(0), float64(0)),
			bfbx73.P("Lcl Rotation", "Lcl Rotation", "", "A", float64(0), float64(0), float64(0)),
			bfbx73.P("Lcl Scaling", "Lcl Scaling", "", "A", float64(1), float64(1), float64(1)),
		),
		bfbx73.Shading(true),
		bfbx73.Culling("CullingOff"),
	)

	f.AddObjects(feo.FbxModel, geometryNode)
	f.AddConnections(bfbx73.C("OO", feo.FbxGeometryId, feo.FbxModelId))

	fe.Submeshes = append(fe.Submeshes, feo)
}

// ExportFbx adds every submesh to the builder as a model parented to
// the scene root.
func (m *CDspMeshFile) ExportFbx(f *fbxbuilder.FBXBuilder, name string) *FbxExporter {
	fe := &FbxExporter{m: m}
	defer f.AddCache(name, fe)

	for iMesh := range m.Meshes {
		fe.exportSubmesh(f, name, iMesh)
	}
	for _, submesh := range fe.Submeshes {
		f.AddConnections(bfbx73.C("OO", submesh.FbxModelId, 0))
	}
	return fe
}

// ExportFbxDefault writes a standalone binary FBX document.
func (m *CDspMeshFile) ExportFbxDefault(w io.Writer, name string) error {
	f := fbxbuilder.NewFBXBuilder(name + ".fbx")
	m.ExportFbx(f, name)
	return f.Write(w)
}
