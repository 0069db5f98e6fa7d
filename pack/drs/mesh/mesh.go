package mesh

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/battleforge-tools/drsbrowser/bstream"
	"github.com/battleforge-tools/drsbrowser/pack/drs"
	"github.com/battleforge-tools/drsbrowser/pack/drs/geom"
)

const CDSP_MESH_FILE_MAGIC = 1314189598

// Material parameter discriminants, newest first. Each older value drops
// trailing blocks from the material section.
const (
	MATERIAL_PARAMS_V6 = -86061050 // 0xFADED006: everything incl. flow
	MATERIAL_PARAMS_V5 = -86061051 // 0xFADED005: no flow
	MATERIAL_PARAMS_V4 = -86061052 // 0xFADED004: no flow
	MATERIAL_PARAMS_V3 = -86061053 // 0xFADED003: no material stuff
	MATERIAL_PARAMS_V2 = -86061054 // 0xFADED002: no empty string
	MATERIAL_PARAMS_V1 = -86061055 // 0xFADED001: no level of detail
)

// BattleforgeMesh is one draw batch: a triangle list, one or more vertex
// attribute streams and a versioned material section.
type BattleforgeMesh struct {
	VertexCount int32
	Faces       []geom.Face
	MeshData    []MeshData

	BoundingBoxLowerLeftCorner  mgl32.Vec3
	BoundingBoxUpperRightCorner mgl32.Vec3

	MaterialID         int16
	MaterialParameters int32
	MaterialStuff      int32
	BoolParameter      int32

	Textures      Textures
	Refraction    Refraction
	Materials     Materials
	LevelOfDetail LevelOfDetail
	EmptyString   EmptyString
	Flow          Flow
}

func (m *BattleforgeMesh) unmarshalReader(r *bstream.Reader) error {
	m.VertexCount = r.ReadI32()
	faceCount := r.ReadI32()
	if faceCount < 0 || int(faceCount)*6 > r.Remaining() {
		return errors.Errorf("Bad face count %d", faceCount)
	}
	m.Faces = make([]geom.Face, faceCount)
	for i := range m.Faces {
		m.Faces[i] = geom.Face{r.ReadU16(), r.ReadU16(), r.ReadU16()}
	}

	meshCount := r.ReadU8()
	m.MeshData = make([]MeshData, meshCount)
	for i := range m.MeshData {
		if err := m.MeshData[i].unmarshalReader(r, m.VertexCount); err != nil {
			return err
		}
	}

	m.BoundingBoxLowerLeftCorner = r.ReadVec3()
	m.BoundingBoxUpperRightCorner = r.ReadVec3()
	m.MaterialID = r.ReadI16()
	m.MaterialParameters = r.ReadI32()
	if err := r.Error(); err != nil {
		return err
	}

	switch m.MaterialParameters {
	case MATERIAL_PARAMS_V6, MATERIAL_PARAMS_V5, MATERIAL_PARAMS_V4:
		m.MaterialStuff = r.ReadI32()
		m.BoolParameter = r.ReadI32()
	case MATERIAL_PARAMS_V3, MATERIAL_PARAMS_V2, MATERIAL_PARAMS_V1:
		m.BoolParameter = r.ReadI32()
	default:
		return errors.Errorf("Unknown material parameters %d", m.MaterialParameters)
	}

	if err := m.Textures.unmarshalReader(r); err != nil {
		return err
	}
	if err := m.Refraction.unmarshalReader(r); err != nil {
		return err
	}
	if err := m.Materials.unmarshalReader(r); err != nil {
		return err
	}
	if m.MaterialParameters != MATERIAL_PARAMS_V1 {
		if err := m.LevelOfDetail.unmarshalReader(r); err != nil {
			return err
		}
	}
	if m.MaterialParameters != MATERIAL_PARAMS_V1 && m.MaterialParameters != MATERIAL_PARAMS_V2 {
		if err := m.EmptyString.unmarshalReader(r); err != nil {
			return err
		}
	}
	if m.MaterialParameters == MATERIAL_PARAMS_V6 {
		if err := m.Flow.unmarshalReader(r); err != nil {
			return err
		}
	}

	return r.Error()
}

func (m *BattleforgeMesh) marshalWriter(w *bstream.Writer) error {
	switch m.MaterialParameters {
	case MATERIAL_PARAMS_V6, MATERIAL_PARAMS_V5, MATERIAL_PARAMS_V4,
		MATERIAL_PARAMS_V3, MATERIAL_PARAMS_V2, MATERIAL_PARAMS_V1:
	default:
		return errors.Errorf("Unknown material parameters %d", m.MaterialParameters)
	}

	w.WriteI32(m.VertexCount)
	w.WriteI32(int32(len(m.Faces)))
	for _, f := range m.Faces {
		w.WriteU16(f[0])
		w.WriteU16(f[1])
		w.WriteU16(f[2])
	}
	w.WriteU8(uint8(len(m.MeshData)))
	for i := range m.MeshData {
		if err := m.MeshData[i].marshalWriter(w); err != nil {
			return err
		}
	}
	w.WriteVec3(m.BoundingBoxLowerLeftCorner)
	w.WriteVec3(m.BoundingBoxUpperRightCorner)
	w.WriteI16(m.MaterialID)
	w.WriteI32(m.MaterialParameters)

	switch m.MaterialParameters {
	case MATERIAL_PARAMS_V6, MATERIAL_PARAMS_V5, MATERIAL_PARAMS_V4:
		w.WriteI32(m.MaterialStuff)
		w.WriteI32(m.BoolParameter)
	default:
		w.WriteI32(m.BoolParameter)
	}

	m.Textures.marshalWriter(w)
	m.Refraction.marshalWriter(w)
	if err := m.Materials.marshalWriter(w); err != nil {
		return err
	}
	if m.MaterialParameters != MATERIAL_PARAMS_V1 {
		m.LevelOfDetail.marshalWriter(w)
	}
	if m.MaterialParameters != MATERIAL_PARAMS_V1 && m.MaterialParameters != MATERIAL_PARAMS_V2 {
		m.EmptyString.marshalWriter(w)
	}
	if m.MaterialParameters == MATERIAL_PARAMS_V6 {
		m.Flow.marshalWriter(w)
	}
	return nil
}

func (m *BattleforgeMesh) byteSize() int {
	size := 8 + 6*len(m.Faces) + 1
	for i := range m.MeshData {
		size += m.MeshData[i].byteSize()
	}
	size += 24 + 2 + 4

	switch m.MaterialParameters {
	case MATERIAL_PARAMS_V6, MATERIAL_PARAMS_V5, MATERIAL_PARAMS_V4:
		size += 8
	default:
		size += 4
	}
	size += m.Textures.byteSize()
	size += m.Refraction.byteSize()
	size += m.Materials.byteSize()
	if m.MaterialParameters != MATERIAL_PARAMS_V1 {
		size += m.LevelOfDetail.byteSize()
	}
	if m.MaterialParameters != MATERIAL_PARAMS_V1 && m.MaterialParameters != MATERIAL_PARAMS_V2 {
		size += m.EmptyString.byteSize()
	}
	if m.MaterialParameters == MATERIAL_PARAMS_V6 {
		size += m.Flow.byteSize()
	}
	return size
}

// CDspMeshFile is the render mesh: a bounding box, the draw batches and
// three reference points.
type CDspMeshFile struct {
	Magic int32
	Zero  int32

	BoundingBoxLowerLeftCorner  mgl32.Vec3
	BoundingBoxUpperRightCorner mgl32.Vec3

	Meshes     []BattleforgeMesh
	SomePoints [3]mgl32.Vec4
}

func UnmarshalCDspMeshFile(data []byte) (*CDspMeshFile, error) {
	r := bstream.NewReader(data)
	m := &CDspMeshFile{}
	m.Magic = r.ReadI32()
	if m.Magic != CDSP_MESH_FILE_MAGIC {
		return nil, errors.Errorf("This mesh has the wrong magic value: %d", m.Magic)
	}
	m.Zero = r.ReadI32()
	meshCount := r.ReadI32()
	if meshCount < 0 || meshCount > int32(r.Remaining()) {
		return nil, errors.Errorf("Bad mesh count %d", meshCount)
	}
	m.BoundingBoxLowerLeftCorner = r.ReadVec3()
	m.BoundingBoxUpperRightCorner = r.ReadVec3()
	m.Meshes = make([]BattleforgeMesh, meshCount)
	for i := range m.Meshes {
		if err := m.Meshes[i].unmarshalReader(r); err != nil {
			return nil, errors.Wrapf(err, "Failed to parse mesh %d", i)
		}
	}
	for i := range m.SomePoints {
		m.SomePoints[i] = r.ReadVec4()
	}
	if err := r.Error(); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse CDspMeshFile")
	}
	return m, nil
}

func (m *CDspMeshFile) Marshal() ([]byte, error) {
	w := bstream.NewWriter()
	w.WriteI32(m.Magic)
	w.WriteI32(m.Zero)
	w.WriteI32(int32(len(m.Meshes)))
	w.WriteVec3(m.BoundingBoxLowerLeftCorner)
	w.WriteVec3(m.BoundingBoxUpperRightCorner)
	for i := range m.Meshes {
		if err := m.Meshes[i].marshalWriter(w); err != nil {
			return nil, errors.Wrapf(err, "Failed to write mesh %d", i)
		}
	}
	for i := range m.SomePoints {
		w.WriteVec4(m.SomePoints[i])
	}
	return w.Bytes(), nil
}

func (m *CDspMeshFile) ByteSize() int {
	size := 12 + 24 + 48
	for i := range m.Meshes {
		size += m.Meshes[i].byteSize()
	}
	return size
}

func init() {
	drs.SetHandler(drs.MAGIC_CDSP_MESH_FILE, func(data []byte) (interface{}, error) {
		return UnmarshalCDspMeshFile(data)
	})
}
