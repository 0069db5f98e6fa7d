package skeleton

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/battleforge-tools/drsbrowser/pack/drs/skel"
)

func testBoneTree() *BoneNode {
	arm := &BoneNode{
		Name:     "arm",
		Rotation: mgl32.HomogRotate3DZ(float32(math.Pi / 2)).Mat3(),
		Location: mgl32.Vec3{1, 2, 3},
	}
	hand := &BoneNode{
		Name:     "hand",
		Rotation: mgl32.HomogRotate3DX(0.3).Mat3(),
		Location: mgl32.Vec3{0, 1, 0},
	}
	arm.Children = []*BoneNode{hand}
	return &BoneNode{
		Name:     "root",
		Rotation: mgl32.Ident3(),
		Children: []*BoneNode{arm},
	}
}

func mat3Near(a, b mgl32.Mat3, eps float32) bool {
	for i := 0; i < 9; i++ {
		if float32(math.Abs(float64(a[i]-b[i]))) > eps {
			return false
		}
	}
	return true
}

func vec3Near(a, b mgl32.Vec3, eps float32) bool {
	return a.Sub(b).Len() <= eps
}

func flattenByName(root *BoneNode) map[string]*BoneNode {
	out := make(map[string]*BoneNode)
	var walk func(n *BoneNode)
	walk = func(n *BoneNode) {
		out[n.Name] = n
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return out
}

func TestLinearize(t *testing.T) {
	s := Linearize(testBoneTree())

	if len(s.Bones) != 3 || len(s.BoneMatrices) != 3 {
		t.Fatalf("Expected 3 bones and matrices, got %d and %d", len(s.Bones), len(s.BoneMatrices))
	}
	for i := 1; i < len(s.Bones); i++ {
		if s.Bones[i-1].Version > s.Bones[i].Version {
			t.Errorf("Bone list not sorted by version at %d", i)
		}
	}

	var rootBone *skel.Bone
	for i := range s.Bones {
		if s.Bones[i].Identifier == 0 {
			rootBone = &s.Bones[i]
		}
	}
	if rootBone == nil || rootBone.Name != "root" {
		t.Fatalf("Pre-order root should have identifier 0, got %+v", rootBone)
	}
	if len(rootBone.Children) != 1 || rootBone.Children[0] != 1 {
		t.Errorf("Root children: %v, expected [1]", rootBone.Children)
	}

	// the stored translation row is the inverse transform's offset
	arm := testBoneTree().Children[0]
	wantV3 := arm.Rotation.Transpose().Mul3x1(arm.Location).Mul(-1)
	if got := s.BoneMatrices[1].BoneVertices[3].Position; !vec3Near(got, wantV3, 1e-5) {
		t.Errorf("Arm translation row: got %v, want %v", got, wantV3)
	}
	if got := s.BoneMatrices[1].BoneVertices[0].Parent; got != 0 {
		t.Errorf("Arm parent: got %d, want 0", got)
	}
}

func TestLinearizeDelinearizeRoundTrip(t *testing.T) {
	src := testBoneTree()
	root, err := Delinearize(Linearize(src))
	if err != nil {
		t.Fatalf("Failed to delinearize: %v", err)
	}

	want := flattenByName(src)
	got := flattenByName(root)
	if len(got) != len(want) {
		t.Fatalf("Expected %d bones, got %d", len(want), len(got))
	}
	for name, w := range want {
		g, ok := got[name]
		if !ok {
			t.Fatalf("Bone %q lost in round trip", name)
		}
		if !mat3Near(g.Rotation, w.Rotation, 1e-5) {
			t.Errorf("Bone %q rotation: got %v, want %v", name, g.Rotation, w.Rotation)
		}
		if !vec3Near(g.Location, w.Location, 1e-5) {
			t.Errorf("Bone %q location: got %v, want %v", name, g.Location, w.Location)
		}
		if len(g.Children) != len(w.Children) {
			t.Errorf("Bone %q has %d children, want %d", name, len(g.Children), len(w.Children))
		}
	}
}

func TestLinearizeGeneratesMissingNames(t *testing.T) {
	root := &BoneNode{
		Name:     "root",
		Rotation: mgl32.Ident3(),
		Children: []*BoneNode{
			{Rotation: mgl32.Ident3()},
			{Rotation: mgl32.Ident3()},
		},
	}
	s := Linearize(root)
	names := make(map[string]bool)
	for i := range s.Bones {
		if s.Bones[i].Name == "" {
			t.Errorf("Bone %d still has no name", s.Bones[i].Identifier)
		}
		if names[s.Bones[i].Name] {
			t.Errorf("Duplicate generated name %q", s.Bones[i].Name)
		}
		names[s.Bones[i].Name] = true
	}
}

func TestDelinearizeOrphanAttachesToRoot(t *testing.T) {
	s := Linearize(testBoneTree())
	// sever the arm from the root's children list
	for i := range s.Bones {
		if s.Bones[i].Identifier == 0 {
			s.Bones[i].Children = nil
		}
	}
	root, err := Delinearize(s)
	if err != nil {
		t.Fatalf("Failed to delinearize: %v", err)
	}
	got := flattenByName(root)
	if len(got) != 3 {
		t.Fatalf("Expected all 3 bones reachable, got %d", len(got))
	}
	if _, ok := got["arm"]; !ok {
		t.Errorf("Orphaned arm bone was not reattached")
	}
}

func TestDelinearizeBadChild(t *testing.T) {
	s := Linearize(testBoneTree())
	for i := range s.Bones {
		if s.Bones[i].Identifier == 0 {
			s.Bones[i].Children = []int32{99}
		}
	}
	if _, err := Delinearize(s); err == nil {
		t.Errorf("Expected unknown child error")
	}
}

func TestBoneVersionStable(t *testing.T) {
	if boneVersion("spine") != boneVersion("spine") {
		t.Errorf("Version key not deterministic")
	}
	if boneVersion("spine") == boneVersion("spine2") {
		t.Errorf("Distinct names collided")
	}
}
