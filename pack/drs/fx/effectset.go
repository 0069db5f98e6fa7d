// Package fx parses effect nodes: per-animation sound/effect keyframe
// sets and the FxMaster special effect element tree.
package fx

import (
	"github.com/pkg/errors"

	"github.com/battleforge-tools/drsbrowser/bstream"
	"github.com/battleforge-tools/drsbrowser/pack/drs"
)

// Sound slot types used by the additional sound containers.
const (
	SOUND_TYPE_IMPACT = 0
	SOUND_TYPE_STEP   = 1
	SOUND_TYPE_SPAWN  = 3
	SOUND_TYPE_CHEER  = 5
	SOUND_TYPE_FIGHT  = 8
)

// Variant is one weighted file choice for a keyframe.
type Variant struct {
	Weight uint8
	Name   string
}

func (v *Variant) unmarshalReader(r *bstream.Reader) {
	v.Weight = r.ReadU8()
	v.Name = r.ReadLString()
}

func (v *Variant) marshalWriter(w *bstream.Writer) {
	w.WriteU8(v.Weight)
	w.WriteLString(v.Name)
}

func (v *Variant) byteSize() int { return 5 + len(v.Name) }

// Keyframe keyframe_type values.
const (
	KEYFRAME_TYPE_AUDIO          = 0
	KEYFRAME_TYPE_EFFECT         = 1
	KEYFRAME_TYPE_EFFECT_2       = 2
	KEYFRAME_TYPE_PERMANENT_FX   = 3
	KEYFRAME_TYPE_PERMANENT_FX_2 = 4
)

// Keyframe fires a sound or effect at a normalized animation time.
// The condition byte exists only when the owning set type is not 10/11.
type Keyframe struct {
	Time          float32
	KeyframeType  int32
	MinFalloff    float32
	MaxFalloff    float32
	Volume        float32
	PitchShiftMin float32
	PitchShiftMax float32
	Offset        [3]float32
	Interruptable uint8
	Condition     int8
	Variants      []Variant
}

func (k *Keyframe) unmarshalReader(r *bstream.Reader, setType int16) error {
	k.Time = r.ReadF32()
	k.KeyframeType = r.ReadI32()
	k.MinFalloff = r.ReadF32()
	k.MaxFalloff = r.ReadF32()
	k.Volume = r.ReadF32()
	k.PitchShiftMin = r.ReadF32()
	k.PitchShiftMax = r.ReadF32()
	for i := range k.Offset {
		k.Offset[i] = r.ReadF32()
	}
	k.Interruptable = r.ReadU8()
	if setType != 10 && setType != 11 {
		k.Condition = r.ReadI8()
	}
	variantCount := r.ReadI32()
	if variantCount < 0 || int(variantCount)*5 > r.Remaining() {
		return errors.Errorf("Bad variant count %d", variantCount)
	}
	k.Variants = make([]Variant, variantCount)
	for i := range k.Variants {
		k.Variants[i].unmarshalReader(r)
	}
	return r.Error()
}

func (k *Keyframe) marshalWriter(w *bstream.Writer, setType int16) {
	w.WriteF32(k.Time)
	w.WriteI32(k.KeyframeType)
	w.WriteF32(k.MinFalloff)
	w.WriteF32(k.MaxFalloff)
	w.WriteF32(k.Volume)
	w.WriteF32(k.PitchShiftMin)
	w.WriteF32(k.PitchShiftMax)
	for _, f := range k.Offset {
		w.WriteF32(f)
	}
	w.WriteU8(k.Interruptable)
	if setType != 10 && setType != 11 {
		w.WriteI8(k.Condition)
	}
	w.WriteI32(int32(len(k.Variants)))
	for i := range k.Variants {
		k.Variants[i].marshalWriter(w)
	}
}

func (k *Keyframe) byteSize(setType int16) int {
	size := 28 + 12 + 1 + 4
	if setType != 10 && setType != 11 {
		size++
	}
	for i := range k.Variants {
		size += k.Variants[i].byteSize()
	}
	return size
}

// SkelEff attaches keyframes to one SKA animation by file name.
type SkelEff struct {
	Name      string
	Keyframes []Keyframe
}

func (e *SkelEff) unmarshalReader(r *bstream.Reader, setType int16) error {
	e.Name = r.ReadLString()
	keyframeCount := r.ReadI32()
	if keyframeCount < 0 || int(keyframeCount)*45 > r.Remaining() {
		return errors.Errorf("Bad keyframe count %d", keyframeCount)
	}
	e.Keyframes = make([]Keyframe, keyframeCount)
	for i := range e.Keyframes {
		if err := e.Keyframes[i].unmarshalReader(r, setType); err != nil {
			return err
		}
	}
	return r.Error()
}

func (e *SkelEff) marshalWriter(w *bstream.Writer, setType int16) {
	w.WriteLString(e.Name)
	w.WriteI32(int32(len(e.Keyframes)))
	for i := range e.Keyframes {
		e.Keyframes[i].marshalWriter(w, setType)
	}
}

func (e *SkelEff) byteSize(setType int16) int {
	size := 8 + len(e.Name)
	for i := range e.Keyframes {
		size += e.Keyframes[i].byteSize(setType)
	}
	return size
}

// SoundHeader stores shared playback parameters. The field order on
// disk differs between the container level and the file level.
type SoundHeader struct {
	IsOne         int16
	Volume        float32
	MinFalloff    float32
	MaxFalloff    float32
	PitchShiftMin float32
	PitchShiftMax float32
}

func (h *SoundHeader) unmarshalReaderContainer(r *bstream.Reader) {
	h.IsOne = r.ReadI16()
	h.MinFalloff = r.ReadF32()
	h.MaxFalloff = r.ReadF32()
	h.Volume = r.ReadF32()
	h.PitchShiftMin = r.ReadF32()
	h.PitchShiftMax = r.ReadF32()
}

func (h *SoundHeader) marshalWriterContainer(w *bstream.Writer) {
	w.WriteI16(h.IsOne)
	w.WriteF32(h.MinFalloff)
	w.WriteF32(h.MaxFalloff)
	w.WriteF32(h.Volume)
	w.WriteF32(h.PitchShiftMin)
	w.WriteF32(h.PitchShiftMax)
}

func (h *SoundHeader) unmarshalReaderFile(r *bstream.Reader) {
	h.IsOne = r.ReadI16()
	h.Volume = r.ReadF32()
	h.PitchShiftMin = r.ReadF32()
	h.PitchShiftMax = r.ReadF32()
	h.MinFalloff = r.ReadF32()
	h.MaxFalloff = r.ReadF32()
}

func (h *SoundHeader) marshalWriterFile(w *bstream.Writer) {
	w.WriteI16(h.IsOne)
	w.WriteF32(h.Volume)
	w.WriteF32(h.PitchShiftMin)
	w.WriteF32(h.PitchShiftMax)
	w.WriteF32(h.MinFalloff)
	w.WriteF32(h.MaxFalloff)
}

const SOUND_HEADER_SIZE = 22

// SoundFile is one weighted sound file variation.
type SoundFile struct {
	Weight uint8
	Header SoundHeader
	Name   string
}

func (f *SoundFile) unmarshalReader(r *bstream.Reader) {
	f.Weight = r.ReadU8()
	f.Header.unmarshalReaderFile(r)
	f.Name = r.ReadLString()
}

func (f *SoundFile) marshalWriter(w *bstream.Writer) {
	w.WriteU8(f.Weight)
	f.Header.marshalWriterFile(w)
	w.WriteLString(f.Name)
}

func (f *SoundFile) byteSize() int { return 1 + SOUND_HEADER_SIZE + 4 + len(f.Name) }

// SoundContainer bundles the variations for one sound slot.
type SoundContainer struct {
	Header  SoundHeader
	UkIndex int16
	Files   []SoundFile
}

func (c *SoundContainer) unmarshalReader(r *bstream.Reader) error {
	c.Header.unmarshalReaderContainer(r)
	c.UkIndex = r.ReadI16()
	fileCount := r.ReadI16()
	if fileCount < 0 || int(fileCount)*(1+SOUND_HEADER_SIZE+4) > r.Remaining() {
		return errors.Errorf("Bad sound file count %d", fileCount)
	}
	c.Files = make([]SoundFile, fileCount)
	for i := range c.Files {
		c.Files[i].unmarshalReader(r)
	}
	return r.Error()
}

func (c *SoundContainer) marshalWriter(w *bstream.Writer) {
	c.Header.marshalWriterContainer(w)
	w.WriteI16(c.UkIndex)
	w.WriteI16(int16(len(c.Files)))
	for i := range c.Files {
		c.Files[i].marshalWriter(w)
	}
}

func (c *SoundContainer) byteSize() int {
	size := SOUND_HEADER_SIZE + 4
	for i := range c.Files {
		size += c.Files[i].byteSize()
	}
	return size
}

// AdditionalSoundContainer groups sound containers by sound type.
type AdditionalSoundContainer struct {
	Header     SoundHeader
	SoundType  int16
	Containers []SoundContainer
}

func (c *AdditionalSoundContainer) unmarshalReader(r *bstream.Reader) error {
	c.Header.unmarshalReaderContainer(r)
	c.SoundType = r.ReadI16()
	containerCount := r.ReadI16()
	if containerCount < 0 || int(containerCount)*(SOUND_HEADER_SIZE+4) > r.Remaining() {
		return errors.Errorf("Bad sound container count %d", containerCount)
	}
	c.Containers = make([]SoundContainer, containerCount)
	for i := range c.Containers {
		if err := c.Containers[i].unmarshalReader(r); err != nil {
			return err
		}
	}
	return r.Error()
}

func (c *AdditionalSoundContainer) marshalWriter(w *bstream.Writer) {
	c.Header.marshalWriterContainer(w)
	w.WriteI16(c.SoundType)
	w.WriteI16(int16(len(c.Containers)))
	for i := range c.Containers {
		c.Containers[i].marshalWriter(w)
	}
}

func (c *AdditionalSoundContainer) byteSize() int {
	size := SOUND_HEADER_SIZE + 4
	for i := range c.Containers {
		size += c.Containers[i].byteSize()
	}
	return size
}

// EffectSet is the EffectSet node payload. Types 10, 11 and 12 carry a
// body; other types are just the checksum.
type EffectSet struct {
	Type             int16
	Checksum         string
	Unknown          [5]float32 // type 10 only
	SkelEffects      []SkelEff
	ImpactSounds     []SoundContainer
	AdditionalSounds []AdditionalSoundContainer
}

func (s *EffectSet) hasBody() bool { return s.Type >= 10 && s.Type <= 12 }

func UnmarshalEffectSet(data []byte) (*EffectSet, error) {
	r := bstream.NewReader(data)
	s := &EffectSet{}
	s.Type = r.ReadI16()
	s.Checksum = r.ReadLString()
	if s.hasBody() {
		if s.Type == 10 {
			for i := range s.Unknown {
				s.Unknown[i] = r.ReadF32()
			}
		}
		effectCount := r.ReadI32()
		if effectCount < 0 || int(effectCount)*8 > r.Remaining() {
			return nil, errors.Errorf("Bad skel effect count %d", effectCount)
		}
		s.SkelEffects = make([]SkelEff, effectCount)
		for i := range s.SkelEffects {
			if err := s.SkelEffects[i].unmarshalReader(r, s.Type); err != nil {
				return nil, errors.Wrapf(err, "Failed to parse skel effect %d", i)
			}
		}
		impactCount := r.ReadI16()
		if impactCount < 0 || int(impactCount)*(SOUND_HEADER_SIZE+4) > r.Remaining() {
			return nil, errors.Errorf("Bad impact sound count %d", impactCount)
		}
		s.ImpactSounds = make([]SoundContainer, impactCount)
		for i := range s.ImpactSounds {
			if err := s.ImpactSounds[i].unmarshalReader(r); err != nil {
				return nil, errors.Wrapf(err, "Failed to parse impact sound %d", i)
			}
		}
		additionalCount := r.ReadI16()
		if additionalCount < 0 || int(additionalCount)*(SOUND_HEADER_SIZE+4) > r.Remaining() {
			return nil, errors.Errorf("Bad additional sound count %d", additionalCount)
		}
		s.AdditionalSounds = make([]AdditionalSoundContainer, additionalCount)
		for i := range s.AdditionalSounds {
			if err := s.AdditionalSounds[i].unmarshalReader(r); err != nil {
				return nil, errors.Wrapf(err, "Failed to parse additional sound %d", i)
			}
		}
	}
	if err := r.Error(); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse EffectSet")
	}
	return s, nil
}

func (s *EffectSet) Marshal() []byte {
	w := bstream.NewWriter()
	w.WriteI16(s.Type)
	w.WriteLString(s.Checksum)
	if s.hasBody() {
		if s.Type == 10 {
			for _, f := range s.Unknown {
				w.WriteF32(f)
			}
		}
		w.WriteI32(int32(len(s.SkelEffects)))
		for i := range s.SkelEffects {
			s.SkelEffects[i].marshalWriter(w, s.Type)
		}
		w.WriteI16(int16(len(s.ImpactSounds)))
		for i := range s.ImpactSounds {
			s.ImpactSounds[i].marshalWriter(w)
		}
		w.WriteI16(int16(len(s.AdditionalSounds)))
		for i := range s.AdditionalSounds {
			s.AdditionalSounds[i].marshalWriter(w)
		}
	}
	return w.Bytes()
}

func (s *EffectSet) ByteSize() int {
	size := 6 + len(s.Checksum)
	if s.hasBody() {
		if s.Type == 10 {
			size += 20
		}
		size += 8
		for i := range s.SkelEffects {
			size += s.SkelEffects[i].byteSize(s.Type)
		}
		for i := range s.ImpactSounds {
			size += s.ImpactSounds[i].byteSize()
		}
		for i := range s.AdditionalSounds {
			size += s.AdditionalSounds[i].byteSize()
		}
	}
	return size
}

func init() {
	drs.SetHandler(drs.MAGIC_EFFECT_SET, func(data []byte) (interface{}, error) {
		return UnmarshalEffectSet(data)
	})
	drs.SetHandler(drs.MAGIC_FX_MASTER, func(data []byte) (interface{}, error) {
		return UnmarshalFxMaster(data)
	})
}
