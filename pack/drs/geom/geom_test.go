package geom

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestCGeoMeshRoundTrip(t *testing.T) {
	m := &CGeoMesh{
		Magic: CGEO_MESH_MAGIC,
		Faces: []Face{{0, 1, 2}, {2, 1, 3}},
		Vertices: []mgl32.Vec4{
			{0, 0, 0, 1},
			{1, 0, 0, 1},
			{0, 1, 0, 1},
			{1, 1, 0, 1},
		},
	}

	data := m.Marshal()
	if len(data) != m.ByteSize() {
		t.Errorf("size: got %d want %d", len(data), m.ByteSize())
	}

	got, err := UnmarshalCGeoMesh(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Magic != m.Magic || len(got.Faces) != 2 || len(got.Vertices) != 4 {
		t.Fatalf("parse mismatch: %+v", got)
	}
	if got.Faces[1] != (Face{2, 1, 3}) {
		t.Errorf("face 1: got %v", got.Faces[1])
	}
	if got.Vertices[3] != (mgl32.Vec4{1, 1, 0, 1}) {
		t.Errorf("vertex 3: got %v", got.Vertices[3])
	}
	if !bytes.Equal(got.Marshal(), data) {
		t.Error("second marshal differs")
	}
}

func TestCGeoMeshTruncated(t *testing.T) {
	m := &CGeoMesh{Faces: []Face{{0, 1, 2}}, Vertices: []mgl32.Vec4{{0, 0, 0, 1}}}
	data := m.Marshal()
	if _, err := UnmarshalCGeoMesh(data[:len(data)-5]); err == nil {
		t.Fatal("expected error on truncated payload")
	}
}

func TestOBBTreeRoundTrip(t *testing.T) {
	tree := &CGeoOBBTree{
		Magic:   CGEO_OBB_TREE_MAGIC,
		Version: CGEO_OBB_TREE_VERSION,
		Nodes: []OBBNode{
			{
				OrientedBoundingBox: CMatCoordinateSystem{
					Matrix:   mgl32.Ident3(),
					Position: mgl32.Vec3{1, 2, 3},
				},
				FirstChildIndex:  1,
				SecondChildIndex: 2,
				TotalTriangles:   2,
			},
			{NodeDepth: 1, TotalTriangles: 1},
			{NodeDepth: 1, TriangleOffset: 1, TotalTriangles: 1},
		},
		Faces: []Face{{0, 1, 2}, {1, 2, 3}},
	}

	data := tree.Marshal()
	if len(data) != tree.ByteSize() {
		t.Errorf("size: got %d want %d", len(data), tree.ByteSize())
	}

	got, err := UnmarshalCGeoOBBTree(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Magic != CGEO_OBB_TREE_MAGIC || got.Version != CGEO_OBB_TREE_VERSION {
		t.Errorf("header: got %d %d", got.Magic, got.Version)
	}
	if len(got.Nodes) != 3 || len(got.Faces) != 2 {
		t.Fatalf("counts: %d nodes %d faces", len(got.Nodes), len(got.Faces))
	}
	if got.Nodes[0].OrientedBoundingBox.Position != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("node 0 position: got %v", got.Nodes[0].OrientedBoundingBox.Position)
	}
	if got.Nodes[2].TriangleOffset != 1 {
		t.Errorf("node 2 triangle offset: got %d", got.Nodes[2].TriangleOffset)
	}
	if !bytes.Equal(got.Marshal(), data) {
		t.Error("second marshal differs")
	}
}

func TestCollisionShapeRoundTrip(t *testing.T) {
	s := &CollisionShape{
		Version: 1,
		Boxes: []BoxShape{{
			CoordSystem: CMatCoordinateSystem{Matrix: mgl32.Ident3()},
			GeoAABox: CGeoAABox{
				LowerLeftCorner:  mgl32.Vec3{-1, -1, -1},
				UpperRightCorner: mgl32.Vec3{1, 1, 1},
			},
		}},
		Spheres: []SphereShape{{
			CoordSystem: CMatCoordinateSystem{Matrix: mgl32.Ident3()},
			GeoSphere:   CGeoSphere{Radius: 2.5, Center: mgl32.Vec3{0, 0, 1}},
		}},
		Cylinders: []CylinderShape{{
			CoordSystem: CMatCoordinateSystem{Matrix: mgl32.Ident3()},
			GeoCylinder: CGeoCylinder{Center: mgl32.Vec3{0, 1, 0}, Height: 3, Radius: 0.5},
		}},
	}

	data := s.Marshal()
	if len(data) != s.ByteSize() {
		t.Errorf("size: got %d want %d", len(data), s.ByteSize())
	}

	got, err := UnmarshalCollisionShape(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != 1 || len(got.Boxes) != 1 || len(got.Spheres) != 1 || len(got.Cylinders) != 1 {
		t.Fatalf("parse mismatch: %+v", got)
	}
	if got.Spheres[0].GeoSphere.Radius != 2.5 {
		t.Errorf("sphere radius: got %f", got.Spheres[0].GeoSphere.Radius)
	}
	if got.Cylinders[0].GeoCylinder.Height != 3 {
		t.Errorf("cylinder height: got %f", got.Cylinders[0].GeoCylinder.Height)
	}
	if !bytes.Equal(got.Marshal(), data) {
		t.Error("second marshal differs")
	}
}

func TestPrimitiveContainerRejectsPayload(t *testing.T) {
	if _, err := UnmarshalCGeoPrimitiveContainer(nil); err != nil {
		t.Fatal(err)
	}
	if _, err := UnmarshalCGeoPrimitiveContainer([]byte{0}); err == nil {
		t.Fatal("expected error for stray payload bytes")
	}
}
