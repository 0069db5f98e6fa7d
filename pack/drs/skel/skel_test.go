package skel

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestSkeletonRoundTrip(t *testing.T) {
	s := &CSkSkeleton{
		Magic:   CSK_SKELETON_MAGIC,
		Version: CSK_SKELETON_VERSION,
		BoneMatrices: []BoneMatrix{
			{BoneVertices: [4]BoneVertex{
				{Position: mgl32.Vec3{1, 0, 0}, Parent: -1},
				{Position: mgl32.Vec3{0, 1, 0}, Parent: -1},
				{Position: mgl32.Vec3{0, 0, 1}, Parent: -1},
				{Position: mgl32.Vec3{0, 0, 0}, Parent: -1},
			}},
			{BoneVertices: [4]BoneVertex{
				{Position: mgl32.Vec3{1, 0, 0}, Parent: 0},
				{Position: mgl32.Vec3{0, 1, 0}, Parent: 0},
				{Position: mgl32.Vec3{0, 0, 1}, Parent: 0},
				{Position: mgl32.Vec3{0, -1, 0}, Parent: 0},
			}},
		},
		Bones: []Bone{
			{Version: 2, Identifier: 0, Name: "root", Children: []int32{1}},
			{Version: 1, Identifier: 1, Name: "arm_l"},
		},
		SuperParent: mgl32.Ident4(),
	}

	data := s.Marshal()
	if len(data) != s.ByteSize() {
		t.Errorf("size: got %d want %d", len(data), s.ByteSize())
	}

	got, err := UnmarshalCSkSkeleton(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Magic != CSK_SKELETON_MAGIC || got.Version != CSK_SKELETON_VERSION {
		t.Errorf("header: %d %d", got.Magic, got.Version)
	}
	if len(got.Bones) != 2 || got.Bones[0].Name != "root" || got.Bones[1].Name != "arm_l" {
		t.Fatalf("bones: %+v", got.Bones)
	}
	if got.Bones[0].Children[0] != 1 {
		t.Errorf("root children: %v", got.Bones[0].Children)
	}
	if got.BoneMatrices[1].BoneVertices[3].Position != (mgl32.Vec3{0, -1, 0}) {
		t.Errorf("matrix 1 vertex 3: %v", got.BoneMatrices[1].BoneVertices[3].Position)
	}
	if got.SuperParent != mgl32.Ident4() {
		t.Errorf("super parent: %v", got.SuperParent)
	}
	if !bytes.Equal(got.Marshal(), data) {
		t.Error("second marshal differs")
	}
}

func TestSkeletonTruncated(t *testing.T) {
	s := &CSkSkeleton{Magic: CSK_SKELETON_MAGIC, Version: CSK_SKELETON_VERSION}
	data := s.Marshal()
	if _, err := UnmarshalCSkSkeleton(data[:len(data)-10]); err == nil {
		t.Fatal("expected error on truncated payload")
	}
}

func TestSkinInfoRoundTrip(t *testing.T) {
	s := &CSkSkinInfo{
		Version: CSK_SKIN_INFO_VERSION,
		VertexData: []VertexWeights{
			{Weights: [4]float32{0.6, 0.4, 0, 0}, BoneIndices: [4]int32{2, 1, 0, 0}},
			{Weights: [4]float32{1, 0, 0, 0}, BoneIndices: [4]int32{3, 0, 0, 0}},
		},
	}

	data := s.Marshal()
	if len(data) != s.ByteSize() {
		t.Errorf("size: got %d want %d", len(data), s.ByteSize())
	}

	got, err := UnmarshalCSkSkinInfo(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != CSK_SKIN_INFO_VERSION || len(got.VertexData) != 2 {
		t.Fatalf("parse mismatch: %+v", got)
	}
	if got.VertexData[0].Weights != [4]float32{0.6, 0.4, 0, 0} {
		t.Errorf("weights: %v", got.VertexData[0].Weights)
	}
	if !bytes.Equal(got.Marshal(), data) {
		t.Error("second marshal differs")
	}
}

func TestJointMapRoundTrip(t *testing.T) {
	m := &CDspJointMap{
		Version: CDSP_JOINT_MAP_VERSION,
		JointGroups: []JointGroup{
			{Joints: []int16{0, 2, 5}},
			{Joints: nil},
		},
	}

	data := m.Marshal()
	if len(data) != m.ByteSize() {
		t.Errorf("size: got %d want %d", len(data), m.ByteSize())
	}

	got, err := UnmarshalCDspJointMap(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.JointGroups) != 2 {
		t.Fatalf("groups: %d", len(got.JointGroups))
	}
	if len(got.JointGroups[0].Joints) != 3 || got.JointGroups[0].Joints[2] != 5 {
		t.Errorf("group 0 joints: %v", got.JointGroups[0].Joints)
	}
	if len(got.JointGroups[1].Joints) != 0 {
		t.Errorf("group 1 joints: %v", got.JointGroups[1].Joints)
	}
	if !bytes.Equal(got.Marshal(), data) {
		t.Error("second marshal differs")
	}
}
