package geom

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/battleforge-tools/drsbrowser/bstream"
	"github.com/battleforge-tools/drsbrowser/pack/drs"
)

// CMatCoordinateSystem is an oriented frame: a row-major 3x3 rotation
// followed by a position.
type CMatCoordinateSystem struct {
	Matrix   mgl32.Mat3
	Position mgl32.Vec3
}

const CMAT_COORDINATE_SYSTEM_SIZE = 48

func (cs *CMatCoordinateSystem) UnmarshalReader(r *bstream.Reader) {
	cs.Matrix = r.ReadMat3()
	cs.Position = r.ReadVec3()
}

func (cs *CMatCoordinateSystem) MarshalWriter(w *bstream.Writer) {
	w.WriteMat3(cs.Matrix)
	w.WriteVec3(cs.Position)
}

// Face is one triangle as indices into a vertex list.
type Face [3]uint16

func readFace(r *bstream.Reader) Face {
	return Face{r.ReadU16(), r.ReadU16(), r.ReadU16()}
}

func writeFace(w *bstream.Writer, f Face) {
	w.WriteU16(f[0])
	w.WriteU16(f[1])
	w.WriteU16(f[2])
}

func init() {
	drs.SetHandler(drs.MAGIC_CGEO_MESH, func(data []byte) (interface{}, error) {
		return UnmarshalCGeoMesh(data)
	})
	drs.SetHandler(drs.MAGIC_CGEO_OBB_TREE, func(data []byte) (interface{}, error) {
		return UnmarshalCGeoOBBTree(data)
	})
	drs.SetHandler(drs.MAGIC_COLLISION_SHAPE, func(data []byte) (interface{}, error) {
		return UnmarshalCollisionShape(data)
	})
	drs.SetHandler(drs.MAGIC_CGEO_PRIMITIVE_CONTAINER, func(data []byte) (interface{}, error) {
		return UnmarshalCGeoPrimitiveContainer(data)
	})
}
