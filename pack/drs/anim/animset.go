package anim

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/battleforge-tools/drsbrowser/bstream"
	"github.com/battleforge-tools/drsbrowser/pack/drs"
)

const ANIMATION_SET_MAGIC_STRING = "Battleforge"

// Constraint is one IK joint limit. Values are radians.
type Constraint struct {
	Revision       int16
	LeftAngle      float32
	RightAngle     float32
	LeftDampStart  float32
	RightDampStart float32
	DampRatio      float32
}

func (c *Constraint) unmarshalReader(r *bstream.Reader) {
	c.Revision = r.ReadI16()
	if c.Revision == 1 {
		c.LeftAngle = r.ReadF32()
		c.RightAngle = r.ReadF32()
		c.LeftDampStart = r.ReadF32()
		c.RightDampStart = r.ReadF32()
		c.DampRatio = r.ReadF32()
	}
}

func (c *Constraint) marshalWriter(w *bstream.Writer) {
	w.WriteI16(c.Revision)
	if c.Revision == 1 {
		w.WriteF32(c.LeftAngle)
		w.WriteF32(c.RightAngle)
		w.WriteF32(c.LeftDampStart)
		w.WriteF32(c.RightDampStart)
		w.WriteF32(c.DampRatio)
	}
}

func (c *Constraint) byteSize() int {
	if c.Revision == 1 {
		return 22
	}
	return 2
}

// IKAtlas binds three constraints to one bone of an IK chain.
type IKAtlas struct {
	Identifier   int32
	Version      int16
	Axis         int32
	ChainOrder   int32
	Constraints  [3]Constraint
	PurposeFlags int16
}

func (a *IKAtlas) unmarshalReader(r *bstream.Reader) {
	a.Identifier = r.ReadI32()
	a.Version = r.ReadI16()
	if a.Version >= 1 {
		a.Axis = r.ReadI32()
		a.ChainOrder = r.ReadI32()
		for i := range a.Constraints {
			a.Constraints[i].unmarshalReader(r)
		}
		if a.Version >= 2 {
			a.PurposeFlags = r.ReadI16()
		}
	}
}

func (a *IKAtlas) marshalWriter(w *bstream.Writer) {
	w.WriteI32(a.Identifier)
	w.WriteI16(a.Version)
	if a.Version >= 1 {
		w.WriteI32(a.Axis)
		w.WriteI32(a.ChainOrder)
		for i := range a.Constraints {
			a.Constraints[i].marshalWriter(w)
		}
		if a.Version >= 2 {
			w.WriteI16(a.PurposeFlags)
		}
	}
}

func (a *IKAtlas) byteSize() int {
	size := 6
	if a.Version >= 1 {
		size += 8
		for i := range a.Constraints {
			size += a.Constraints[i].byteSize()
		}
		if a.Version >= 2 {
			size += 2
		}
	}
	return size
}

// AnimationSetVariant names one SKA file with its playback window.
type AnimationSetVariant struct {
	Version      int32
	Weight       int32
	File         string
	Start        float32
	End          float32
	AllowsIK     uint8
	ForceNoBlend uint8
}

func (v *AnimationSetVariant) unmarshalReader(r *bstream.Reader) {
	v.Version = r.ReadI32()
	v.Weight = r.ReadI32()
	v.File = r.ReadLString()
	if v.Version >= 4 {
		v.Start = r.ReadF32()
		v.End = r.ReadF32()
	}
	if v.Version >= 5 {
		v.AllowsIK = r.ReadU8()
	}
	if v.Version >= 7 {
		v.ForceNoBlend = r.ReadU8()
	}
}

func (v *AnimationSetVariant) marshalWriter(w *bstream.Writer) {
	w.WriteI32(v.Version)
	w.WriteI32(v.Weight)
	w.WriteLString(v.File)
	if v.Version >= 4 {
		w.WriteF32(v.Start)
		w.WriteF32(v.End)
	}
	if v.Version >= 5 {
		w.WriteU8(v.AllowsIK)
	}
	if v.Version >= 7 {
		w.WriteU8(v.ForceNoBlend)
	}
}

func (v *AnimationSetVariant) byteSize() int {
	size := 12 + len(v.File)
	if v.Version >= 4 {
		size += 8
	}
	if v.Version >= 5 {
		size++
	}
	if v.Version >= 7 {
		size++
	}
	return size
}

// Mode animation key types. The payload between the file name and the
// variant list depends on the type.
const (
	MODE_KEY_TYPE_LEGACY  = 2
	MODE_KEY_TYPE_DEFAULT = 6
)

type ModeAnimationKey struct {
	Type        int32
	File        string
	Unknown     int32
	Unknown2    int32
	Unknown2Raw [24]uint8 // only for type 1
	VisJob      int16
	Unknown3    int32
	SpecialMode int16
	Variants    []AnimationSetVariant
}

func (k *ModeAnimationKey) unmarshalReader(r *bstream.Reader, legacyUk int32) error {
	if legacyUk != 2 {
		k.Type = r.ReadI32()
	} else {
		k.Type = MODE_KEY_TYPE_LEGACY
	}
	k.File = r.ReadLString()
	k.Unknown = r.ReadI32()
	switch {
	case k.Type == 1:
		for i := range k.Unknown2Raw {
			k.Unknown2Raw[i] = r.ReadU8()
		}
	case k.Type <= 5:
		k.Unknown2 = r.ReadI32()
		k.SpecialMode = r.ReadI16()
	case k.Type == 6:
		k.Unknown2 = r.ReadI32()
		k.VisJob = r.ReadI16()
		k.Unknown3 = r.ReadI32()
		k.SpecialMode = r.ReadI16()
	}
	variantCount := r.ReadI32()
	if variantCount < 0 || int(variantCount)*12 > r.Remaining() {
		return errors.Errorf("Bad variant count %d", variantCount)
	}
	k.Variants = make([]AnimationSetVariant, variantCount)
	for i := range k.Variants {
		k.Variants[i].unmarshalReader(r)
	}
	return r.Error()
}

func (k *ModeAnimationKey) marshalWriter(w *bstream.Writer, legacyUk int32) {
	if legacyUk != 2 {
		w.WriteI32(k.Type)
	}
	w.WriteLString(k.File)
	w.WriteI32(k.Unknown)
	switch {
	case k.Type == 1:
		for _, b := range k.Unknown2Raw {
			w.WriteU8(b)
		}
	case k.Type <= 5:
		w.WriteI32(k.Unknown2)
		w.WriteI16(k.SpecialMode)
	case k.Type == 6:
		w.WriteI32(k.Unknown2)
		w.WriteI16(k.VisJob)
		w.WriteI32(k.Unknown3)
		w.WriteI16(k.SpecialMode)
	}
	w.WriteI32(int32(len(k.Variants)))
	for i := range k.Variants {
		k.Variants[i].marshalWriter(w)
	}
}

func (k *ModeAnimationKey) byteSize(legacyUk int32) int {
	size := 12 + len(k.File)
	if legacyUk == 2 {
		size -= 4
	}
	switch {
	case k.Type == 1:
		size += 24
	case k.Type <= 5:
		size += 6
	case k.Type == 6:
		size += 12
	}
	size += 4
	for i := range k.Variants {
		size += k.Variants[i].byteSize()
	}
	return size
}

// AnimationMarker pins a point in time and space onto an animation.
type AnimationMarker struct {
	IsSpawnAnimation int32
	Time             float32
	Direction        mgl32.Vec3
	Position         mgl32.Vec3
}

type AnimationMarkerSet struct {
	AnimID            int32
	Name              string
	AnimationMarkerID uint32
	Markers           []AnimationMarker
}

func (s *AnimationMarkerSet) unmarshalReader(r *bstream.Reader) error {
	s.AnimID = r.ReadI32()
	s.Name = r.ReadLString()
	s.AnimationMarkerID = r.ReadU32()
	markerCount := r.ReadI32()
	if markerCount < 0 || int(markerCount)*32 > r.Remaining() {
		return errors.Errorf("Bad marker count %d", markerCount)
	}
	s.Markers = make([]AnimationMarker, markerCount)
	for i := range s.Markers {
		m := &s.Markers[i]
		m.IsSpawnAnimation = r.ReadI32()
		m.Time = r.ReadF32()
		m.Direction = r.ReadVec3()
		m.Position = r.ReadVec3()
	}
	return r.Error()
}

func (s *AnimationMarkerSet) marshalWriter(w *bstream.Writer) {
	w.WriteI32(s.AnimID)
	w.WriteLString(s.Name)
	w.WriteU32(s.AnimationMarkerID)
	w.WriteI32(int32(len(s.Markers)))
	for i := range s.Markers {
		m := &s.Markers[i]
		w.WriteI32(m.IsSpawnAnimation)
		w.WriteF32(m.Time)
		w.WriteVec3(m.Direction)
		w.WriteVec3(m.Position)
	}
}

func (s *AnimationMarkerSet) byteSize() int {
	return 16 + len(s.Name) + 32*len(s.Markers)
}

type UnknownStruct2 struct {
	UnknownInts [5]int32
}

type UnknownStruct struct {
	Unknown  int32
	Name     string
	Unknown2 int32
	Structs  []UnknownStruct2
}

func (u *UnknownStruct) unmarshalReader(r *bstream.Reader) error {
	u.Unknown = r.ReadI32()
	u.Name = r.ReadLString()
	u.Unknown2 = r.ReadI32()
	count := r.ReadI32()
	if count < 0 || int(count)*20 > r.Remaining() {
		return errors.Errorf("Bad struct count %d", count)
	}
	u.Structs = make([]UnknownStruct2, count)
	for i := range u.Structs {
		for j := range u.Structs[i].UnknownInts {
			u.Structs[i].UnknownInts[j] = r.ReadI32()
		}
	}
	return r.Error()
}

func (u *UnknownStruct) marshalWriter(w *bstream.Writer) {
	w.WriteI32(u.Unknown)
	w.WriteLString(u.Name)
	w.WriteI32(u.Unknown2)
	w.WriteI32(int32(len(u.Structs)))
	for i := range u.Structs {
		for _, v := range u.Structs[i].UnknownInts {
			w.WriteI32(v)
		}
	}
}

func (u *UnknownStruct) byteSize() int {
	return 16 + len(u.Name) + 20*len(u.Structs)
}

// AnimationSet maps game modes to SKA animation variants, plus IK and
// marker metadata. Heavily version gated; the gates follow the on-disk
// evolution of the record.
type AnimationSet struct {
	Magic            string
	Version          int32
	DefaultRunSpeed  float32
	DefaultWalkSpeed float32
	Revision         int32
	LegacyUk         int32 // only meaningful for version 2

	ModeChangeType  uint8
	HoveringGround  uint8
	FlyBankScale    float32
	FlyAccelScale   float32
	FlyHitScale     float32
	AllignToTerrain uint8

	ModeAnimationKeys []ModeAnimationKey

	HasAtlas  int16
	IKAtlases []IKAtlas
	UkInts    []int32

	Subversion          int16
	AnimationMarkerSets []AnimationMarkerSet
	UnknownStructs      []UnknownStruct
}

func UnmarshalAnimationSet(data []byte) (*AnimationSet, error) {
	r := bstream.NewReader(data)
	s := &AnimationSet{}

	magicLen := r.ReadI32()
	if magicLen != int32(len(ANIMATION_SET_MAGIC_STRING)) {
		return nil, errors.Errorf("Bad magic length %d", magicLen)
	}
	s.Magic = r.ReadString(11)
	s.Version = r.ReadI32()
	s.DefaultRunSpeed = r.ReadF32()
	s.DefaultWalkSpeed = r.ReadF32()

	var keyCount int32
	if s.Version == 2 {
		keyCount = r.ReadI32()
	} else {
		s.Revision = r.ReadI32()
	}

	if s.Version >= 6 {
		if s.Revision >= 2 {
			s.ModeChangeType = r.ReadU8()
			s.HoveringGround = r.ReadU8()
		}
		if s.Revision >= 5 {
			s.FlyBankScale = r.ReadF32()
			s.FlyAccelScale = r.ReadF32()
			s.FlyHitScale = r.ReadF32()
		}
		if s.Revision >= 6 {
			s.AllignToTerrain = r.ReadU8()
		}
	}

	var legacyUk int32
	if s.Version == 2 {
		legacyUk = r.ReadI32()
		s.LegacyUk = legacyUk
	} else {
		keyCount = r.ReadI32()
	}
	if err := r.Error(); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse AnimationSet header")
	}
	if keyCount < 0 || int(keyCount)*16 > r.Remaining() {
		return nil, errors.Errorf("Bad mode animation key count %d", keyCount)
	}
	s.ModeAnimationKeys = make([]ModeAnimationKey, keyCount)
	for i := range s.ModeAnimationKeys {
		if err := s.ModeAnimationKeys[i].unmarshalReader(r, legacyUk); err != nil {
			return nil, errors.Wrapf(err, "Failed to parse mode animation key %d", i)
		}
	}

	if s.Version >= 3 {
		s.HasAtlas = r.ReadI16()
		if s.HasAtlas >= 1 {
			atlasCount := r.ReadI32()
			if atlasCount < 0 || int(atlasCount)*6 > r.Remaining() {
				return nil, errors.Errorf("Bad atlas count %d", atlasCount)
			}
			s.IKAtlases = make([]IKAtlas, atlasCount)
			for i := range s.IKAtlases {
				s.IKAtlases[i].unmarshalReader(r)
			}
		}
		if s.HasAtlas >= 2 {
			ukLen := r.ReadI32()
			if ukLen < 0 || int(ukLen)*4 > r.Remaining() {
				return nil, errors.Errorf("Bad uk int count %d", ukLen)
			}
			s.UkInts = make([]int32, ukLen)
			for i := range s.UkInts {
				s.UkInts[i] = r.ReadI32()
			}
		}
	}

	if s.Version >= 4 {
		s.Subversion = r.ReadI16()
		switch s.Subversion {
		case 2:
			markerSetCount := r.ReadI32()
			if markerSetCount < 0 || int(markerSetCount)*16 > r.Remaining() {
				return nil, errors.Errorf("Bad marker set count %d", markerSetCount)
			}
			s.AnimationMarkerSets = make([]AnimationMarkerSet, markerSetCount)
			for i := range s.AnimationMarkerSets {
				if err := s.AnimationMarkerSets[i].unmarshalReader(r); err != nil {
					return nil, err
				}
			}
		case 1:
			structCount := r.ReadI32()
			if structCount < 0 || int(structCount)*16 > r.Remaining() {
				return nil, errors.Errorf("Bad unknown struct count %d", structCount)
			}
			s.UnknownStructs = make([]UnknownStruct, structCount)
			for i := range s.UnknownStructs {
				if err := s.UnknownStructs[i].unmarshalReader(r); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := r.Error(); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse AnimationSet")
	}
	return s, nil
}

func (s *AnimationSet) Marshal() []byte {
	w := bstream.NewWriter()
	w.WriteI32(int32(len(ANIMATION_SET_MAGIC_STRING)))
	magic := make([]byte, 11)
	copy(magic, s.Magic)
	w.WriteBytes(magic)
	w.WriteI32(s.Version)
	w.WriteF32(s.DefaultRunSpeed)
	w.WriteF32(s.DefaultWalkSpeed)

	if s.Version == 2 {
		w.WriteI32(int32(len(s.ModeAnimationKeys)))
	} else {
		w.WriteI32(s.Revision)
	}

	if s.Version >= 6 {
		if s.Revision >= 2 {
			w.WriteU8(s.ModeChangeType)
			w.WriteU8(s.HoveringGround)
		}
		if s.Revision >= 5 {
			w.WriteF32(s.FlyBankScale)
			w.WriteF32(s.FlyAccelScale)
			w.WriteF32(s.FlyHitScale)
		}
		if s.Revision >= 6 {
			w.WriteU8(s.AllignToTerrain)
		}
	}

	if s.Version == 2 {
		w.WriteI32(s.LegacyUk)
	} else {
		w.WriteI32(int32(len(s.ModeAnimationKeys)))
	}
	for i := range s.ModeAnimationKeys {
		s.ModeAnimationKeys[i].marshalWriter(w, s.LegacyUk)
	}

	if s.Version >= 3 {
		w.WriteI16(s.HasAtlas)
		if s.HasAtlas >= 1 {
			w.WriteI32(int32(len(s.IKAtlases)))
			for i := range s.IKAtlases {
				s.IKAtlases[i].marshalWriter(w)
			}
		}
		if s.HasAtlas >= 2 {
			w.WriteI32(int32(len(s.UkInts)))
			for _, v := range s.UkInts {
				w.WriteI32(v)
			}
		}
	}

	if s.Version >= 4 {
		w.WriteI16(s.Subversion)
		switch s.Subversion {
		case 2:
			w.WriteI32(int32(len(s.AnimationMarkerSets)))
			for i := range s.AnimationMarkerSets {
				s.AnimationMarkerSets[i].marshalWriter(w)
			}
		case 1:
			w.WriteI32(int32(len(s.UnknownStructs)))
			for i := range s.UnknownStructs {
				s.UnknownStructs[i].marshalWriter(w)
			}
		}
	}

	return w.Bytes()
}

func (s *AnimationSet) ByteSize() int {
	size := 27 + 8
	if s.Version >= 6 {
		if s.Revision >= 2 {
			size += 2
		}
		if s.Revision >= 5 {
			size += 12
		}
		if s.Revision >= 6 {
			size++
		}
	}
	for i := range s.ModeAnimationKeys {
		size += s.ModeAnimationKeys[i].byteSize(s.LegacyUk)
	}
	if s.Version >= 3 {
		size += 2
		if s.HasAtlas >= 1 {
			size += 4
			for i := range s.IKAtlases {
				size += s.IKAtlases[i].byteSize()
			}
		}
		if s.HasAtlas >= 2 {
			size += 4 + 4*len(s.UkInts)
		}
	}
	if s.Version >= 4 {
		size += 2
		switch s.Subversion {
		case 2:
			size += 4
			for i := range s.AnimationMarkerSets {
				size += s.AnimationMarkerSets[i].byteSize()
			}
		case 1:
			size += 4
			for i := range s.UnknownStructs {
				size += s.UnknownStructs[i].byteSize()
			}
		}
	}
	return size
}

func init() {
	drs.SetHandler(drs.MAGIC_ANIMATION_SET, func(data []byte) (interface{}, error) {
		return UnmarshalAnimationSet(data)
	})
	drs.SetHandler(drs.MAGIC_ANIMATION_TIMINGS, func(data []byte) (interface{}, error) {
		return UnmarshalAnimationTimings(data)
	})
}
