package skin

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/battleforge-tools/drsbrowser/pack/drs/skel"
)

var testUnified = []mgl32.Vec4{
	{0, 0, 0, 1},
	{1, 0, 0, 1},
	{0, 1, 0, 1},
	{5, 5, 5, 1},
}

var testWeights = []skel.VertexWeights{
	{BoneIndices: [4]int32{0, 1, 0, 0}, Weights: [4]float32{0.7, 0.3, 0, 0}},
	{BoneIndices: [4]int32{1, 0, 0, 0}, Weights: [4]float32{1, 0, 0, 0}},
	{BoneIndices: [4]int32{2, 3, 0, 0}, Weights: [4]float32{0.5, 0.5, 0, 0}},
	{BoneIndices: [4]int32{3, 0, 0, 0}, Weights: [4]float32{1, 0, 0, 0}},
}

func TestScatterExactMatch(t *testing.T) {
	vertices := []mgl32.Vec3{{0, 1, 0}, {1, 0, 0}, {0, 0, 0}}
	out, misses := Scatter(testWeights, testUnified, vertices)
	if misses != 0 {
		t.Fatalf("Expected no misses, got %d", misses)
	}
	want := []skel.VertexWeights{testWeights[2], testWeights[1], testWeights[0]}
	for i := range out {
		if out[i] != want[i] {
			t.Errorf("Vertex %d: got %+v, want %+v", i, out[i], want[i])
		}
	}
}

func TestScatterNearestFallback(t *testing.T) {
	// shifted past the exact tolerance but inside the fallback radius
	vertices := []mgl32.Vec3{{1 + 5e-6, 0, 0}}
	out, misses := Scatter(testWeights, testUnified, vertices)
	if misses != 0 {
		t.Fatalf("Expected fallback match, got %d misses", misses)
	}
	if out[0] != testWeights[1] {
		t.Errorf("Got %+v, want %+v", out[0], testWeights[1])
	}
}

func TestScatterMissGetsZeroWeights(t *testing.T) {
	vertices := []mgl32.Vec3{{10, 10, 10}, {0, 0, 0}}
	out, misses := Scatter(testWeights, testUnified, vertices)
	if misses != 1 {
		t.Fatalf("Expected 1 miss, got %d", misses)
	}
	if out[0] != (skel.VertexWeights{}) {
		t.Errorf("Unmatched vertex should carry zero weights, got %+v", out[0])
	}
	if out[1] != testWeights[0] {
		t.Errorf("Matched vertex lost its weights: %+v", out[1])
	}
}

func TestGatherCollectsPerUnifiedVertex(t *testing.T) {
	sources := []SourceMesh{
		{
			Positions:  []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}},
			Influences: [][]Influence{{{BoneIndex: 2, Weight: 0.6}}, {{BoneIndex: 1, Weight: 1}}},
		},
		{
			Positions:  []mgl32.Vec3{{0, 0, 0}},
			Influences: [][]Influence{{{BoneIndex: 4, Weight: 0.4}}},
		},
	}
	out := Gather(testUnified, sources)

	want0 := skel.VertexWeights{BoneIndices: [4]int32{2, 4, 0, 0}, Weights: [4]float32{0.6, 0.4, 0, 0}}
	if out[0] != want0 {
		t.Errorf("Vertex 0: got %+v, want %+v", out[0], want0)
	}
	want1 := skel.VertexWeights{BoneIndices: [4]int32{1, 0, 0, 0}, Weights: [4]float32{1, 0, 0, 0}}
	if out[1] != want1 {
		t.Errorf("Vertex 1: got %+v, want %+v", out[1], want1)
	}
	if out[3] != (skel.VertexWeights{}) {
		t.Errorf("Untouched vertex should be zero-padded, got %+v", out[3])
	}
}

func TestGatherKeepsFourHeaviest(t *testing.T) {
	sources := []SourceMesh{{
		Positions: []mgl32.Vec3{{0, 0, 0}},
		Influences: [][]Influence{{
			{BoneIndex: 1, Weight: 0.05},
			{BoneIndex: 2, Weight: 0.4},
			{BoneIndex: 3, Weight: 0.1},
			{BoneIndex: 4, Weight: 0.3},
			{BoneIndex: 5, Weight: 0.2},
			{BoneIndex: 6, Weight: 0.01},
		}},
	}}
	out := Gather(testUnified, sources)

	want := skel.VertexWeights{
		BoneIndices: [4]int32{2, 4, 5, 3},
		Weights:     [4]float32{0.4, 0.3, 0.2, 0.1},
	}
	if out[0] != want {
		t.Errorf("Got %+v, want %+v", out[0], want)
	}
}
