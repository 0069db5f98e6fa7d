package ska

import (
	"bytes"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func testKeyframedFile() *File {
	return &File{
		Type: TYPE_KEYFRAMED,
		Headers: []Header{
			{Tick: 0, Interval: 2, Type: FRAME_TYPE_LOCATION, BoneID: 7},
			{Tick: 2, Interval: 2, Type: FRAME_TYPE_ROTATION, BoneID: 7},
		},
		Times: []float32{0, 1, 0, 1},
		Keyframes: []Keyframe{
			{Value: mgl32.Vec4{0, 0, 0, 1}},
			{Value: mgl32.Vec4{1, 2, 3, 1}, Tangent: mgl32.Vec4{0.5, 0, 0, 0}},
			{Value: mgl32.Vec4{0, 0, 0, -1}},
			{Value: mgl32.Vec4{0, 0.70710678, 0, -0.70710678}},
		},
		Duration:    1.5,
		Repeat:      1,
		StutterMode: 2,
	}
}

func TestKeyframedRoundTrip(t *testing.T) {
	src := testKeyframedFile()
	data := src.Marshal()

	f, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if len(f.Times) != 4 || len(f.Keyframes) != 4 {
		t.Fatalf("Expected 4 times and 4 keyframes, got %d and %d", len(f.Times), len(f.Keyframes))
	}
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	for i := range f.Keyframes {
		if f.Keyframes[i] != src.Keyframes[i] {
			t.Errorf("Keyframe %d mismatch: got %+v, want %+v", i, f.Keyframes[i], src.Keyframes[i])
		}
	}

	data2 := f.Marshal()
	if !bytes.Equal(data, data2) {
		t.Errorf("Re-marshaled data differs: %d bytes vs %d bytes", len(data), len(data2))
	}
}

func TestKeyframedType7RoundTrip(t *testing.T) {
	src := testKeyframedFile()
	src.Type = TYPE_KEYFRAMED_7
	src.Unused2 = 42
	data := src.Marshal()

	f, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if f.Unused2 != 42 {
		t.Errorf("Expected trailer int 42, got %d", f.Unused2)
	}
	if !bytes.Equal(data, f.Marshal()) {
		t.Errorf("Re-marshaled data differs")
	}
}

func TestLegacyTypesRoundTrip(t *testing.T) {
	for _, src := range []*File{
		{Type: TYPE_LEGACY_2, Unused1: 1},
		{Type: TYPE_LEGACY_3, Unused1: 1, Unused2: 2},
		{Type: TYPE_LEGACY_4, Unused1: 1, Unused2: 2, Unused3: 3, Unused4: 4},
		{Type: TYPE_LEGACY_5, Unused1: 1, Unused2: 2, Unused3: 3, Unused4: 4, Unused6: []int32{7, 8, 9}},
	} {
		data := src.Marshal()
		f, err := Unmarshal(data)
		if err != nil {
			t.Fatalf("Type %d: failed to unmarshal: %v", src.Type, err)
		}
		if !bytes.Equal(data, f.Marshal()) {
			t.Errorf("Type %d: re-marshaled data differs", src.Type)
		}
	}
}

func TestUnknownTypeIsNotFatal(t *testing.T) {
	src := &File{Type: 9}
	f, err := Unmarshal(src.Marshal())
	if err != nil {
		t.Fatalf("Expected lenient handling of unknown type, got %v", err)
	}
	if len(f.Headers) != 0 || len(f.Times) != 0 {
		t.Errorf("Expected empty document for unknown type, got %d headers", len(f.Headers))
	}
}

func TestBadMagic(t *testing.T) {
	data := testKeyframedFile().Marshal()
	data[0] ^= 0xff
	if _, err := Unmarshal(data); err == nil {
		t.Errorf("Expected magic error")
	}
}

func TestValidateBadIntervals(t *testing.T) {
	f := testKeyframedFile()
	f.Headers[1].Interval = 5
	if err := f.Validate(); err == nil {
		t.Errorf("Expected interval overflow error")
	}
}

func vec4Near(a, b mgl32.Vec4, eps float32) bool {
	for i := 0; i < 4; i++ {
		if float32(math.Abs(float64(a[i]-b[i]))) > eps {
			return false
		}
	}
	return true
}

func TestBuildChannelRoundTrip(t *testing.T) {
	bind := BoneBind{
		Rotation: mgl32.QuatRotate(float32(math.Pi/2), mgl32.Vec3{0, 0, 1}),
		Location: mgl32.Vec3{1, 0, 0},
	}
	bones := []BoneChannels{{
		BoneID: 3,
		Bind:   bind,
		Location: Curve{
			Times:        []float32{0, 0.5, 1},
			Values:       []mgl32.Vec4{{0, 0, 0, 1}, {1, 2, 0, 1}, {2, 2, 1, 1}},
			RightHandles: []mgl32.Vec4{{0, 0, 0, 1}, {1.25, 2, 0, 1}, {2, 2, 1, 1}},
		},
		Rotation: Curve{
			Times:        []float32{0, 1},
			Values:       []mgl32.Vec4{{0, 0, 0, 1}, {0, 0.70710678, 0, 0.70710678}},
			RightHandles: []mgl32.Vec4{{0, 0, 0, 1}, {0, 0.70710678, 0, 0.70710678}},
		},
	}}

	f := Build(bones, 2.0)
	if err := f.Validate(); err != nil {
		t.Fatalf("Built file does not validate: %v", err)
	}
	if len(f.Headers) != 2 {
		t.Fatalf("Expected 2 headers, got %d", len(f.Headers))
	}
	if f.Headers[0].Type != FRAME_TYPE_LOCATION || f.Headers[1].Type != FRAME_TYPE_ROTATION {
		t.Fatalf("Unexpected header channel order: %d, %d", f.Headers[0].Type, f.Headers[1].Type)
	}
	if f.Headers[1].Tick != 3 || f.Headers[1].Interval != 2 {
		t.Errorf("Rotation header range [%d:%d], expected [3:5]", f.Headers[1].Tick, f.Headers[1].Tick+f.Headers[1].Interval)
	}

	locSamples, err := f.Channel(f.Headers[0], bind)
	if err != nil {
		t.Fatalf("Failed to extract location channel: %v", err)
	}
	for i, s := range locSamples {
		want := bones[0].Location.Values[i]
		if !vec4Near(s.Value, want, 1e-5) {
			t.Errorf("Location sample %d: got %v, want %v", i, s.Value, want)
		}
	}
	// time 0 and curve ends carry zero tangents; the middle sample
	// keeps the slope encoded in its right handle
	if !vec4Near(locSamples[0].Tangent, mgl32.Vec4{}, 1e-6) {
		t.Errorf("Sample at time 0 should have zero tangent, got %v", locSamples[0].Tangent)
	}
	wantTan := mgl32.Vec4{1.5, 0, 0, 0}
	if !vec4Near(locSamples[1].Tangent, wantTan, 1e-5) {
		t.Errorf("Middle sample tangent: got %v, want %v", locSamples[1].Tangent, wantTan)
	}

	rotSamples, err := f.Channel(f.Headers[1], bind)
	if err != nil {
		t.Fatalf("Failed to extract rotation channel: %v", err)
	}
	for i, s := range rotSamples {
		want := bones[0].Rotation.Values[i]
		if !vec4Near(s.Value, want, 1e-5) {
			t.Errorf("Rotation sample %d: got %v, want %v", i, s.Value, want)
		}
	}
}

func TestBezierHandles(t *testing.T) {
	s0 := Sample{Time: 0.25, Value: mgl32.Vec4{1, 0, 0, 1}, Tangent: mgl32.Vec4{3, 0, 0, 0}}
	s1 := Sample{Time: 0.75, Value: mgl32.Vec4{2, 0, 0, 1}, Tangent: mgl32.Vec4{}}
	right, left := BezierHandles(s0, s1)
	if !vec4Near(right, mgl32.Vec4{1.5, 0, 0, 1}, 1e-6) {
		t.Errorf("Right handle: got %v", right)
	}
	if !vec4Near(left, mgl32.Vec4{2, 0, 0, 1}, 1e-6) {
		t.Errorf("Left handle: got %v", left)
	}
}
