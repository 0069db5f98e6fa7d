package mesh

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/battleforge-tools/drsbrowser/bstream"
	"github.com/battleforge-tools/drsbrowser/pack/drs/geom"
)

func testMesh(params int32) BattleforgeMesh {
	m := BattleforgeMesh{
		VertexCount: 3,
		Faces:       []geom.Face{{0, 1, 2}},
		MeshData: []MeshData{
			{
				Revision: VERTEX_REVISION_GEOMETRY,
				Vertices: []Vertex{
					{Position: mgl32.Vec3{0, 0, 0}, Normal: mgl32.Vec3{0, 0, 1}, Texture: mgl32.Vec2{0, 0}},
					{Position: mgl32.Vec3{1, 0, 0}, Normal: mgl32.Vec3{0, 0, 1}, Texture: mgl32.Vec2{1, 0}},
					{Position: mgl32.Vec3{0, 1, 0}, Normal: mgl32.Vec3{0, 0, 1}, Texture: mgl32.Vec2{0, 1}},
				},
			},
			{
				Revision: VERTEX_REVISION_SKIN,
				Vertices: []Vertex{
					{RawWeights: [4]uint8{255, 0, 0, 0}, BoneIndices: [4]uint8{0, 0, 0, 0}},
					{RawWeights: [4]uint8{128, 127, 0, 0}, BoneIndices: [4]uint8{0, 1, 0, 0}},
					{RawWeights: [4]uint8{255, 0, 0, 0}, BoneIndices: [4]uint8{1, 0, 0, 0}},
				},
			},
		},
		BoundingBoxUpperRightCorner: mgl32.Vec3{1, 1, 0},
		MaterialID:                  25702,
		MaterialParameters:          params,
		Textures: Textures{Textures: []Texture{
			{Identifier: TEXTURE_COLOR_MAP, Name: "unit_col"},
		}},
		Refraction: Refraction{Entries: []RefractionEntry{
			{Identifier: MAT_SMOOTHNESS, RGB: mgl32.Vec3{0.1, 0.2, 0.3}},
		}},
		Materials: Materials{Materials: DefaultMaterials()},
	}
	if params != MATERIAL_PARAMS_V1 {
		m.LevelOfDetail = LevelOfDetail{Length: 1, LodLevel: 2}
	}
	if params == MATERIAL_PARAMS_V6 {
		m.Flow = DefaultFlow()
	}
	return m
}

func testMeshFile(params int32) *CDspMeshFile {
	return &CDspMeshFile{
		Magic:                       CDSP_MESH_FILE_MAGIC,
		BoundingBoxUpperRightCorner: mgl32.Vec3{1, 1, 0},
		Meshes:                      []BattleforgeMesh{testMesh(params)},
		SomePoints: [3]mgl32.Vec4{
			{0, 0, 0, 1},
			{1, 1, 0, 1},
			{0, 0, 1, 1},
		},
	}
}

func TestMeshFileRoundTripAllMaterialParams(t *testing.T) {
	for _, params := range []int32{
		MATERIAL_PARAMS_V6, MATERIAL_PARAMS_V5, MATERIAL_PARAMS_V4,
		MATERIAL_PARAMS_V3, MATERIAL_PARAMS_V2, MATERIAL_PARAMS_V1,
	} {
		m := testMeshFile(params)
		data, err := m.Marshal()
		if err != nil {
			t.Fatalf("params %d: %v", params, err)
		}
		if len(data) != m.ByteSize() {
			t.Errorf("params %d: size got %d want %d", params, len(data), m.ByteSize())
		}

		got, err := UnmarshalCDspMeshFile(data)
		if err != nil {
			t.Fatalf("params %d: %v", params, err)
		}
		if len(got.Meshes) != 1 {
			t.Fatalf("params %d: mesh count %d", params, len(got.Meshes))
		}
		bm := &got.Meshes[0]
		if bm.MaterialParameters != params {
			t.Errorf("params: got %d want %d", bm.MaterialParameters, params)
		}
		if len(bm.MeshData) != 2 || len(bm.MeshData[0].Vertices) != 3 {
			t.Fatalf("params %d: streams %+v", params, bm.MeshData)
		}
		if bm.MeshData[1].Vertices[1].RawWeights != [4]uint8{128, 127, 0, 0} {
			t.Errorf("skin weights: %v", bm.MeshData[1].Vertices[1].RawWeights)
		}
		if bm.Textures.Textures[0].Name != "unit_col" {
			t.Errorf("texture name: %q", bm.Textures.Textures[0].Name)
		}

		data2, err := got.Marshal()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(data, data2) {
			t.Errorf("params %d: second marshal differs", params)
		}
	}
}

func TestUnknownMaterialParametersRejected(t *testing.T) {
	m := testMeshFile(MATERIAL_PARAMS_V1)
	m.Meshes[0].MaterialParameters = -86061049
	if _, err := m.Marshal(); err == nil {
		t.Fatal("expected error for unknown material parameters")
	}
}

// An unknown material identifier must fail before any bytes are emitted
// for that material.
func TestUnknownMaterialIdentifierRejectedBeforeWrite(t *testing.T) {
	mat := Material{Identifier: 42, Value: 1}
	w := bstream.NewWriter()
	if err := mat.marshalWriter(w); err == nil {
		t.Fatal("expected error for unknown material identifier")
	}
	if w.Len() != 0 {
		t.Errorf("wrote %d bytes before failing", w.Len())
	}
}

func TestUnknownVertexRevisionRejected(t *testing.T) {
	if _, err := VertexSizeForRevision(999); err == nil {
		t.Fatal("expected error for unknown revision")
	}
	md := &MeshData{Revision: 999, Vertices: make([]Vertex, 1)}
	w := bstream.NewWriter()
	if err := md.marshalWriter(w); err == nil {
		t.Fatal("expected error for unknown revision on write")
	}
}

func TestWrongMeshMagicRejected(t *testing.T) {
	m := testMeshFile(MATERIAL_PARAMS_V1)
	data, err := m.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	data[0] ^= 0xff
	if _, err := UnmarshalCDspMeshFile(data); err == nil {
		t.Fatal("expected error for wrong magic")
	}
}

func TestCompactRevisionKeepsTrailingBytes(t *testing.T) {
	md := MeshData{
		Revision: VERTEX_REVISION_COMPACT,
		Vertices: []Vertex{
			{Position: mgl32.Vec3{1, 2, 3}, Texture: mgl32.Vec2{0.5, 0.5}, Extra: [4]uint8{9, 8, 7, 6}},
		},
	}
	w := bstream.NewWriter()
	if err := md.marshalWriter(w); err != nil {
		t.Fatal(err)
	}
	if w.Len() != md.byteSize() {
		t.Errorf("size: got %d want %d", w.Len(), md.byteSize())
	}

	var got MeshData
	if err := got.unmarshalReader(bstream.NewReader(w.Bytes()), 1); err != nil {
		t.Fatal(err)
	}
	if got.Vertices[0].Extra != [4]uint8{9, 8, 7, 6} {
		t.Errorf("extra bytes: %v", got.Vertices[0].Extra)
	}
	if got.Vertices[0].Normal != (mgl32.Vec3{}) {
		t.Errorf("normal not zeroed: %v", got.Vertices[0].Normal)
	}
}
