package mesh

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/battleforge-tools/drsbrowser/bstream"
)

// Vertex stream revisions. One BattleforgeMesh carries several MeshData
// streams, each storing a different slice of the vertex attributes.
const (
	VERTEX_REVISION_GEOMETRY   = 133121 // position, normal, uv
	VERTEX_REVISION_TANGENTS   = 12288  // tangent, bitangent
	VERTEX_REVISION_TANGENTS_2 = 2049   // tangent, bitangent
	VERTEX_REVISION_SKIN       = 12     // raw weights, bone indices
	VERTEX_REVISION_COMPACT    = 163841 // position, uv, 4 opaque bytes
)

// VertexSizeForRevision returns the on-disk stride of one vertex.
func VertexSizeForRevision(revision int32) (int32, error) {
	switch revision {
	case VERTEX_REVISION_GEOMETRY:
		return 32, nil
	case VERTEX_REVISION_TANGENTS, VERTEX_REVISION_TANGENTS_2:
		return 24, nil
	case VERTEX_REVISION_SKIN:
		return 8, nil
	case VERTEX_REVISION_COMPACT:
		return 24, nil
	}
	return 0, errors.Errorf("Unsupported vertex revision %d", revision)
}

// Vertex holds the superset of attributes; which ones are meaningful
// depends on the stream revision.
type Vertex struct {
	Position    mgl32.Vec3
	Normal      mgl32.Vec3
	Texture     mgl32.Vec2
	Tangent     mgl32.Vec3
	Bitangent   mgl32.Vec3
	RawWeights  [4]uint8
	BoneIndices [4]uint8
	Extra       [4]uint8 // trailing bytes of the compact revision
}

func (v *Vertex) unmarshalReader(r *bstream.Reader, revision int32) error {
	switch revision {
	case VERTEX_REVISION_GEOMETRY:
		v.Position = r.ReadVec3()
		v.Normal = r.ReadVec3()
		v.Texture = r.ReadVec2()
	case VERTEX_REVISION_TANGENTS, VERTEX_REVISION_TANGENTS_2:
		v.Tangent = r.ReadVec3()
		v.Bitangent = r.ReadVec3()
	case VERTEX_REVISION_SKIN:
		for i := range v.RawWeights {
			v.RawWeights[i] = r.ReadU8()
		}
		for i := range v.BoneIndices {
			v.BoneIndices[i] = r.ReadU8()
		}
	case VERTEX_REVISION_COMPACT:
		v.Position = r.ReadVec3()
		v.Texture = r.ReadVec2()
		for i := range v.Extra {
			v.Extra[i] = r.ReadU8()
		}
		v.Normal = mgl32.Vec3{}
	default:
		return errors.Errorf("Unsupported vertex revision %d", revision)
	}
	return r.Error()
}

func (v *Vertex) marshalWriter(w *bstream.Writer, revision int32) error {
	switch revision {
	case VERTEX_REVISION_GEOMETRY:
		w.WriteVec3(v.Position)
		w.WriteVec3(v.Normal)
		w.WriteVec2(v.Texture)
	case VERTEX_REVISION_TANGENTS, VERTEX_REVISION_TANGENTS_2:
		w.WriteVec3(v.Tangent)
		w.WriteVec3(v.Bitangent)
	case VERTEX_REVISION_SKIN:
		for _, b := range v.RawWeights {
			w.WriteU8(b)
		}
		for _, b := range v.BoneIndices {
			w.WriteU8(b)
		}
	case VERTEX_REVISION_COMPACT:
		w.WriteVec3(v.Position)
		w.WriteVec2(v.Texture)
		for _, b := range v.Extra {
			w.WriteU8(b)
		}
	default:
		return errors.Errorf("Unsupported vertex revision %d", revision)
	}
	return nil
}

// MeshData is one attribute stream covering every vertex of the mesh.
type MeshData struct {
	Revision int32
	Vertices []Vertex
}

func (md *MeshData) unmarshalReader(r *bstream.Reader, vertexCount int32) error {
	md.Revision = r.ReadI32()
	vertexSize := r.ReadI32()
	if err := r.Error(); err != nil {
		return err
	}
	wantSize, err := VertexSizeForRevision(md.Revision)
	if err != nil {
		return err
	}
	if vertexSize != wantSize {
		return errors.Errorf("Vertex size %d does not match revision %d (want %d)", vertexSize, md.Revision, wantSize)
	}
	if int(vertexCount)*int(vertexSize) > r.Remaining() {
		return errors.Errorf("Vertex stream of %d x %d bytes does not fit payload", vertexCount, vertexSize)
	}
	md.Vertices = make([]Vertex, vertexCount)
	for i := range md.Vertices {
		if err := md.Vertices[i].unmarshalReader(r, md.Revision); err != nil {
			return err
		}
	}
	return nil
}

func (md *MeshData) marshalWriter(w *bstream.Writer) error {
	vertexSize, err := VertexSizeForRevision(md.Revision)
	if err != nil {
		return err
	}
	w.WriteI32(md.Revision)
	w.WriteI32(vertexSize)
	for i := range md.Vertices {
		if err := md.Vertices[i].marshalWriter(w, md.Revision); err != nil {
			return err
		}
	}
	return nil
}

func (md *MeshData) byteSize() int {
	vertexSize, err := VertexSizeForRevision(md.Revision)
	if err != nil {
		return 8
	}
	return 8 + int(vertexSize)*len(md.Vertices)
}
