package geom

import (
	"github.com/pkg/errors"

	"github.com/battleforge-tools/drsbrowser/bstream"
)

const (
	CGEO_OBB_TREE_MAGIC   = 1845540702
	CGEO_OBB_TREE_VERSION = 3
)

// OBBNode is one box of the flattened oriented-bounding-box tree. Child
// indices are slots in the node array, 0 means no child.
type OBBNode struct {
	OrientedBoundingBox CMatCoordinateSystem
	FirstChildIndex     uint16
	SecondChildIndex    uint16
	SkipPointer         uint16
	NodeDepth           uint16
	TriangleOffset      uint32
	TotalTriangles      uint32
}

const OBB_NODE_SIZE = CMAT_COORDINATE_SYSTEM_SIZE + 16

type CGeoOBBTree struct {
	Magic   int32
	Version int32
	Nodes   []OBBNode
	Faces   []Face
}

func UnmarshalCGeoOBBTree(data []byte) (*CGeoOBBTree, error) {
	r := bstream.NewReader(data)
	t := &CGeoOBBTree{}
	t.Magic = r.ReadI32()
	t.Version = r.ReadI32()

	matrixCount := r.ReadI32()
	if matrixCount < 0 || int(matrixCount)*OBB_NODE_SIZE > r.Remaining() {
		return nil, errors.Errorf("Bad node count %d", matrixCount)
	}
	t.Nodes = make([]OBBNode, matrixCount)
	for i := range t.Nodes {
		n := &t.Nodes[i]
		n.OrientedBoundingBox.UnmarshalReader(r)
		n.FirstChildIndex = r.ReadU16()
		n.SecondChildIndex = r.ReadU16()
		n.SkipPointer = r.ReadU16()
		n.NodeDepth = r.ReadU16()
		n.TriangleOffset = r.ReadU32()
		n.TotalTriangles = r.ReadU32()
	}

	triangleCount := r.ReadI32()
	if triangleCount < 0 || int(triangleCount)*6 > r.Remaining() {
		return nil, errors.Errorf("Bad triangle count %d", triangleCount)
	}
	t.Faces = make([]Face, triangleCount)
	for i := range t.Faces {
		t.Faces[i] = readFace(r)
	}

	if err := r.Error(); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse CGeoOBBTree")
	}
	return t, nil
}

func (t *CGeoOBBTree) Marshal() []byte {
	w := bstream.NewWriter()
	w.WriteI32(t.Magic)
	w.WriteI32(t.Version)
	w.WriteI32(int32(len(t.Nodes)))
	for i := range t.Nodes {
		n := &t.Nodes[i]
		n.OrientedBoundingBox.MarshalWriter(w)
		w.WriteU16(n.FirstChildIndex)
		w.WriteU16(n.SecondChildIndex)
		w.WriteU16(n.SkipPointer)
		w.WriteU16(n.NodeDepth)
		w.WriteU32(n.TriangleOffset)
		w.WriteU32(n.TotalTriangles)
	}
	w.WriteI32(int32(len(t.Faces)))
	for _, f := range t.Faces {
		writeFace(w, f)
	}
	return w.Bytes()
}

func (t *CGeoOBBTree) ByteSize() int {
	return 16 + OBB_NODE_SIZE*len(t.Nodes) + 6*len(t.Faces)
}
