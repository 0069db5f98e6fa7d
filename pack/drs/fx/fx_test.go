package fx

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func testEffectSet(setType int16) *EffectSet {
	return &EffectSet{
		Type:     setType,
		Checksum: "8f14e45fceea167a5a36dedd4bea2543",
		SkelEffects: []SkelEff{{
			Name: "unit_attack.ska",
			Keyframes: []Keyframe{{
				Time:          0.5,
				KeyframeType:  KEYFRAME_TYPE_AUDIO,
				MinFalloff:    1,
				MaxFalloff:    30,
				Volume:        0.8,
				PitchShiftMin: 0.9,
				PitchShiftMax: 1.1,
				Interruptable: 1,
				Condition:     -1,
				Variants: []Variant{
					{Weight: 50, Name: "attack_01.snr"},
					{Weight: 50, Name: "attack_02.snr"},
				},
			}},
		}},
		ImpactSounds: []SoundContainer{{
			Header:  SoundHeader{IsOne: 1, Volume: 1, MinFalloff: 1, MaxFalloff: 40, PitchShiftMin: 1, PitchShiftMax: 1},
			UkIndex: 0,
			Files: []SoundFile{{
				Weight: 100,
				Header: SoundHeader{IsOne: 1, Volume: 0.7, MinFalloff: 2, MaxFalloff: 20, PitchShiftMin: 0.95, PitchShiftMax: 1.05},
				Name:   "impact_flesh.snr",
			}},
		}},
		AdditionalSounds: []AdditionalSoundContainer{{
			Header:    SoundHeader{IsOne: 1, Volume: 1, MinFalloff: 1, MaxFalloff: 1, PitchShiftMin: 1, PitchShiftMax: 1},
			SoundType: SOUND_TYPE_STEP,
			Containers: []SoundContainer{{
				Header:  SoundHeader{IsOne: 1, Volume: 1, MinFalloff: 1, MaxFalloff: 15, PitchShiftMin: 1, PitchShiftMax: 1},
				UkIndex: 1,
			}},
		}},
	}
}

func TestEffectSetRoundTrip(t *testing.T) {
	for _, setType := range []int16{10, 11, 12} {
		src := testEffectSet(setType)
		if setType == 10 {
			src.Unknown = [5]float32{1, 2, 3, 4, 5}
		}
		raw := src.Marshal()
		if len(raw) != src.ByteSize() {
			t.Errorf("type %d: size mismatch: marshaled %d, ByteSize %d", setType, len(raw), src.ByteSize())
		}
		parsed, err := UnmarshalEffectSet(raw)
		if err != nil {
			t.Fatalf("type %d: failed to parse: %v", setType, err)
		}
		kf := &parsed.SkelEffects[0].Keyframes[0]
		if setType == 12 && kf.Condition != -1 {
			t.Errorf("type 12: lost condition byte")
		}
		if setType != 12 && kf.Condition != 0 {
			t.Errorf("type %d: condition should not be on disk", setType)
		}
		if len(kf.Variants) != 2 || kf.Variants[1].Name != "attack_02.snr" {
			t.Errorf("type %d: lost variants: %+v", setType, kf.Variants)
		}
		if parsed.AdditionalSounds[0].SoundType != SOUND_TYPE_STEP {
			t.Errorf("type %d: lost sound type", setType)
		}
		if !bytes.Equal(parsed.Marshal(), raw) {
			t.Errorf("type %d: round trip is not byte identical", setType)
		}
	}
}

func TestEffectSetChecksumOnly(t *testing.T) {
	src := &EffectSet{Type: 3, Checksum: "deadbeef"}
	raw := src.Marshal()
	if len(raw) != 6+len(src.Checksum) {
		t.Errorf("Unexpected size %d", len(raw))
	}
	parsed, err := UnmarshalEffectSet(raw)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if len(parsed.SkelEffects) != 0 {
		t.Errorf("Type 3 set should have no body")
	}
}

func testElement(name string, payload ElementPayload) *Element {
	return &Element{
		NodeLink: NodeLink{
			Version: 3,
			Parent:  "root",
			Slot:    "slot_a",
			Locator: 1,
		},
		Name:             name,
		Payload:          payload,
		TrackStartTokens: 2,
		StaticTracks: []StaticTrack{
			{TrackType: 1, DataType: STATIC_DATA_FLOAT, Float: 2.5},
			{TrackType: 2, DataType: STATIC_DATA_STRING, Str: "param"},
		},
		Tracks: []Track{{
			TrackType:         3,
			Length:            1,
			TrackDim:          1,
			TrackMode:         0,
			InterpolationType: 1,
			EvaluationType:    0,
			Entries: []TrackKeyframe{
				{Frame: 0, Value: mgl32.Vec3{0.1, 0, 0}},
				{Frame: 1, Value: mgl32.Vec3{0.9, 0, 0}},
			},
			HasControlBlock: true,
			ControlPoints: []TrackKeyframe{
				{Frame: 0.5, Value: mgl32.Vec3{0.4, 0, 0}},
			},
		}},
	}
}

func testFxMaster() *FxMaster {
	m := &FxMaster{
		Name:          "",
		Length:        2.5,
		SetupFileName: "effect_fire.fxe",
		SetupSourceID: -1,
		SetupTargetID: -1,
		PlayLength:    2.5,
		StaticTracks: []StaticTrack{
			{TrackType: 0, DataType: STATIC_DATA_VECTOR, Vector: mgl32.Vec3{0, 1, 0}},
		},
	}
	billboard := testElement("flame", &Billboard{Version: 2, TextureOne: "flame_a.dds", TextureTwo: "flame_b.dds"})
	emitter := testElement("sparks", &Emitter{EmitterFile: "sparks.pem", ParticleCount: 0})
	billboard.Children = append(billboard.Children, emitter)
	m.Root.Children = append(m.Root.Children, billboard)
	return m
}

func TestFxMasterRoundTrip(t *testing.T) {
	src := testFxMaster()
	raw := src.Marshal()
	parsed, err := UnmarshalFxMaster(raw)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if len(parsed.Root.Children) != 1 {
		t.Fatalf("Expected 1 root element, got %d", len(parsed.Root.Children))
	}
	billboard := parsed.Root.Children[0]
	if billboard.Name != "flame" {
		t.Errorf("Lost element name: %q", billboard.Name)
	}
	payload, ok := billboard.Payload.(*Billboard)
	if !ok || payload.TextureTwo != "flame_b.dds" {
		t.Errorf("Lost billboard payload: %+v", billboard.Payload)
	}
	if len(billboard.Children) != 1 || billboard.Children[0].Name != "sparks" {
		t.Fatalf("Lost nested element: %+v", billboard.Children)
	}
	track := &billboard.Tracks[0]
	if len(track.Entries) != 2 || !track.HasControlBlock || len(track.ControlPoints) != 1 {
		t.Errorf("Lost track data: %+v", track)
	}
	if !bytes.Equal(parsed.Marshal(), raw) {
		t.Errorf("Round trip is not byte identical")
	}
}

func TestFxMasterEffectPhantomScope(t *testing.T) {
	m := testFxMaster()
	effect := testElement("sub_effect", &Effect{EffectFile: "effect_sub.fxb", Length: 1})
	m.Root.Children = append(m.Root.Children, effect)

	parsed, err := UnmarshalFxMaster(m.Marshal())
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if len(parsed.Root.Children) != 2 {
		t.Fatalf("Expected 2 root elements, got %d", len(parsed.Root.Children))
	}
	if parsed.Root.Children[1].Name != "sub_effect" {
		t.Errorf("Effect element landed in the wrong scope: %+v", parsed.Root.Children[1])
	}
}

func TestFxMasterEmptyTree(t *testing.T) {
	m := testFxMaster()
	m.Root.Children = nil
	parsed, err := UnmarshalFxMaster(m.Marshal())
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if len(parsed.Root.Children) != 0 {
		t.Errorf("Expected empty tree")
	}
}

func TestFxMasterBadMagic(t *testing.T) {
	raw := testFxMaster().Marshal()
	raw[4] = 0
	if _, err := UnmarshalFxMaster(raw); err == nil {
		t.Errorf("Expected error for bad magic")
	}
}
