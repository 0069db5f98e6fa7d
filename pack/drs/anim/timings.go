package anim

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/battleforge-tools/drsbrowser/bstream"
)

const ANIMATION_TIMINGS_MAGIC = 1650881127

// Timing marks the cast and resolve moments of an ability animation.
type Timing struct {
	CastMs            int32
	ResolveMs         int32
	Direction         mgl32.Vec3
	AnimationMarkerID uint32
}

func (t *Timing) unmarshalReader(r *bstream.Reader) {
	t.CastMs = r.ReadI32()
	t.ResolveMs = r.ReadI32()
	t.Direction = r.ReadVec3()
	t.AnimationMarkerID = r.ReadU32()
}

func (t *Timing) marshalWriter(w *bstream.Writer) {
	w.WriteI32(t.CastMs)
	w.WriteI32(t.ResolveMs)
	w.WriteVec3(t.Direction)
	w.WriteU32(t.AnimationMarkerID)
}

const TIMING_SIZE = 24

// TimingVariant groups timings under a selection weight. VariantIndex
// exists only in version 4 records.
type TimingVariant struct {
	Weight       uint8
	VariantIndex uint8
	Timings      []Timing
}

func (v *TimingVariant) unmarshalReader(r *bstream.Reader, version int16) error {
	v.Weight = r.ReadU8()
	if version == 4 {
		v.VariantIndex = r.ReadU8()
	}
	timingCount := r.ReadU16()
	if int(timingCount)*TIMING_SIZE > r.Remaining() {
		return errors.Errorf("Bad timing count %d", timingCount)
	}
	v.Timings = make([]Timing, timingCount)
	for i := range v.Timings {
		v.Timings[i].unmarshalReader(r)
	}
	return r.Error()
}

func (v *TimingVariant) marshalWriter(w *bstream.Writer, version int16) {
	w.WriteU8(v.Weight)
	if version == 4 {
		w.WriteU8(v.VariantIndex)
	}
	w.WriteU16(uint16(len(v.Timings)))
	for i := range v.Timings {
		v.Timings[i].marshalWriter(w)
	}
}

func (v *TimingVariant) byteSize(version int16) int {
	size := 3 + TIMING_SIZE*len(v.Timings)
	if version == 4 {
		size++
	}
	return size
}

// AnimationTiming holds the variants for one animation type / tag pair.
type AnimationTiming struct {
	AnimationType        int32
	AnimationTagID       int32
	IsEnterModeAnimation int16
	TimingVariants       []TimingVariant
}

func (t *AnimationTiming) unmarshalReader(r *bstream.Reader, version int16) error {
	t.AnimationType = r.ReadI32()
	if version >= 2 && version <= 4 {
		t.AnimationTagID = r.ReadI32()
		t.IsEnterModeAnimation = r.ReadI16()
	}
	variantCount := r.ReadU16()
	if int(variantCount)*3 > r.Remaining() {
		return errors.Errorf("Bad timing variant count %d", variantCount)
	}
	t.TimingVariants = make([]TimingVariant, variantCount)
	for i := range t.TimingVariants {
		if err := t.TimingVariants[i].unmarshalReader(r, version); err != nil {
			return err
		}
	}
	return r.Error()
}

func (t *AnimationTiming) marshalWriter(w *bstream.Writer, version int16) {
	w.WriteI32(t.AnimationType)
	if version >= 2 && version <= 4 {
		w.WriteI32(t.AnimationTagID)
		w.WriteI16(t.IsEnterModeAnimation)
	}
	w.WriteU16(uint16(len(t.TimingVariants)))
	for i := range t.TimingVariants {
		t.TimingVariants[i].marshalWriter(w, version)
	}
}

func (t *AnimationTiming) byteSize(version int16) int {
	size := 6
	if version >= 2 && version <= 4 {
		size += 6
	}
	for i := range t.TimingVariants {
		size += t.TimingVariants[i].byteSize(version)
	}
	return size
}

// StructV3 is an opaque trailer. Length counts 8-byte pairs but every
// observed record carries exactly one.
type StructV3 struct {
	Length  int32
	Unknown [2]int32
}

func (s *StructV3) unmarshalReader(r *bstream.Reader) {
	s.Length = r.ReadI32()
	s.Unknown[0] = r.ReadI32()
	s.Unknown[1] = r.ReadI32()
}

func (s *StructV3) marshalWriter(w *bstream.Writer) {
	w.WriteI32(s.Length)
	w.WriteI32(s.Unknown[0])
	w.WriteI32(s.Unknown[1])
}

// AnimationTimings is the AnimationTimings node payload.
type AnimationTimings struct {
	Magic            int32
	Version          int16
	AnimationTimings []AnimationTiming
	StructV3         StructV3
}

func UnmarshalAnimationTimings(data []byte) (*AnimationTimings, error) {
	r := bstream.NewReader(data)
	t := &AnimationTimings{}
	t.Magic = r.ReadI32()
	if t.Magic != ANIMATION_TIMINGS_MAGIC {
		return nil, errors.Errorf("Bad AnimationTimings magic 0x%.8x", uint32(t.Magic))
	}
	t.Version = r.ReadI16()
	timingCount := r.ReadI16()
	if timingCount < 0 || int(timingCount)*6 > r.Remaining() {
		return nil, errors.Errorf("Bad animation timing count %d", timingCount)
	}
	t.AnimationTimings = make([]AnimationTiming, timingCount)
	for i := range t.AnimationTimings {
		if err := t.AnimationTimings[i].unmarshalReader(r, t.Version); err != nil {
			return nil, errors.Wrapf(err, "Failed to parse animation timing %d", i)
		}
	}
	t.StructV3.unmarshalReader(r)
	if err := r.Error(); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse AnimationTimings")
	}
	return t, nil
}

func (t *AnimationTimings) Marshal() []byte {
	w := bstream.NewWriter()
	w.WriteI32(t.Magic)
	w.WriteI16(t.Version)
	w.WriteI16(int16(len(t.AnimationTimings)))
	for i := range t.AnimationTimings {
		t.AnimationTimings[i].marshalWriter(w, t.Version)
	}
	t.StructV3.marshalWriter(w)
	return w.Bytes()
}

func (t *AnimationTimings) ByteSize() int {
	size := 8
	for i := range t.AnimationTimings {
		size += t.AnimationTimings[i].byteSize(t.Version)
	}
	return size + 12
}
