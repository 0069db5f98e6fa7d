package geom

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/battleforge-tools/drsbrowser/bstream"
)

const CGEO_MESH_MAGIC = 1

// CGeoMesh is the collision/picking copy of the model geometry: deduped
// vertices as Vec4 (w always 1) plus a triangle list.
type CGeoMesh struct {
	Magic    int32
	Faces    []Face
	Vertices []mgl32.Vec4
}

func UnmarshalCGeoMesh(data []byte) (*CGeoMesh, error) {
	r := bstream.NewReader(data)
	m := &CGeoMesh{}
	m.Magic = r.ReadI32()

	indexCount := r.ReadI32()
	if indexCount < 0 || int(indexCount)*2 > r.Remaining() {
		return nil, errors.Errorf("Bad index count %d", indexCount)
	}
	m.Faces = make([]Face, indexCount/3)
	for i := range m.Faces {
		m.Faces[i] = readFace(r)
	}

	vertexCount := r.ReadI32()
	if vertexCount < 0 || int(vertexCount)*16 > r.Remaining() {
		return nil, errors.Errorf("Bad vertex count %d", vertexCount)
	}
	m.Vertices = make([]mgl32.Vec4, vertexCount)
	for i := range m.Vertices {
		m.Vertices[i] = r.ReadVec4()
	}

	if err := r.Error(); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse CGeoMesh")
	}
	return m, nil
}

func (m *CGeoMesh) Marshal() []byte {
	w := bstream.NewWriter()
	w.WriteI32(m.Magic)
	w.WriteI32(int32(len(m.Faces)) * 3)
	for _, f := range m.Faces {
		writeFace(w, f)
	}
	w.WriteI32(int32(len(m.Vertices)))
	for _, v := range m.Vertices {
		w.WriteVec4(v)
	}
	return w.Bytes()
}

func (m *CGeoMesh) ByteSize() int {
	return 12 + 6*len(m.Faces) + 16*len(m.Vertices)
}
