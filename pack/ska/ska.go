// Package ska reads and writes SKA skeletal animation files: per-bone
// keyframe streams indexed by a shared normalized time array.
package ska

import (
	"io/ioutil"
	"log"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/battleforge-tools/drsbrowser/bstream"
)

// SKA_MAGIC is 0xA7148107 when read as an unsigned value; older
// parsers spell it that way.
const SKA_MAGIC = -1491828473

// Animation types. 2 through 5 are legacy stubs without keyframe
// data; 6 and 7 carry the full streams, 7 with one extra trailer int.
const (
	TYPE_LEGACY_2    = 2
	TYPE_LEGACY_3    = 3
	TYPE_LEGACY_4    = 4
	TYPE_LEGACY_5    = 5
	TYPE_KEYFRAMED   = 6
	TYPE_KEYFRAMED_7 = 7
)

// Header channel types.
const (
	FRAME_TYPE_LOCATION = 0
	FRAME_TYPE_ROTATION = 1
)

// Header covers one bone channel: Interval keyframes starting at
// index Tick in the shared time and keyframe arrays.
type Header struct {
	Tick     uint32
	Interval uint32
	Type     uint32
	BoneID   int32
}

const HEADER_SIZE = 16

// Keyframe holds either a location (x,y,z, w==1) or a rotation
// quaternion, with a Hermite tangent alongside.
type Keyframe struct {
	Value   mgl32.Vec4
	Tangent mgl32.Vec4
}

const KEYFRAME_SIZE = 32

// File is one parsed SKA animation.
type File struct {
	Type      uint32
	Headers   []Header
	Times     []float32
	Keyframes []Keyframe

	Duration    float32
	Repeat      int32
	StutterMode int32
	Unused1     int32
	Unused2     int32

	// legacy types 2-5 only
	Unused3 int32
	Unused4 int32
	Unused6 []int32

	Zeroes [3]int32
}

func Unmarshal(data []byte) (*File, error) {
	r := bstream.NewReader(data)
	f := &File{}

	if magic := r.ReadI32(); magic != SKA_MAGIC {
		return nil, errors.Errorf("Bad SKA magic 0x%.8x", uint32(magic))
	}
	f.Type = r.ReadU32()

	switch f.Type {
	case TYPE_LEGACY_2:
		f.Unused1 = r.ReadI32()
	case TYPE_LEGACY_3:
		f.Unused1 = r.ReadI32()
		f.Unused2 = r.ReadI32()
	case TYPE_LEGACY_4:
		f.Unused1 = r.ReadI32()
		f.Unused2 = r.ReadI32()
		f.Unused3 = r.ReadI32()
		f.Unused4 = r.ReadI32()
	case TYPE_LEGACY_5:
		f.Unused1 = r.ReadI32()
		f.Unused2 = r.ReadI32()
		f.Unused3 = r.ReadI32()
		f.Unused4 = r.ReadI32()
		extraCount := r.ReadI32()
		if extraCount < 0 || int(extraCount)*4 > r.Remaining() {
			return nil, errors.Errorf("Bad legacy extra count %d", extraCount)
		}
		f.Unused6 = make([]int32, extraCount)
		for i := range f.Unused6 {
			f.Unused6[i] = r.ReadI32()
		}
	case TYPE_KEYFRAMED, TYPE_KEYFRAMED_7:
		headerCount := r.ReadI32()
		if headerCount < 0 || int(headerCount)*HEADER_SIZE > r.Remaining() {
			return nil, errors.Errorf("Bad header count %d", headerCount)
		}
		f.Headers = make([]Header, headerCount)
		for i := range f.Headers {
			h := &f.Headers[i]
			h.Tick = r.ReadU32()
			h.Interval = r.ReadU32()
			h.Type = r.ReadU32()
			h.BoneID = r.ReadI32()
		}
		timeCount := r.ReadI32()
		if timeCount < 0 || int(timeCount)*(4+KEYFRAME_SIZE) > r.Remaining() {
			return nil, errors.Errorf("Bad time count %d", timeCount)
		}
		f.Times = make([]float32, timeCount)
		for i := range f.Times {
			f.Times[i] = r.ReadF32()
		}
		f.Keyframes = make([]Keyframe, timeCount)
		for i := range f.Keyframes {
			f.Keyframes[i].Value = r.ReadVec4()
			f.Keyframes[i].Tangent = r.ReadVec4()
		}
		f.Duration = r.ReadF32()
		f.Repeat = r.ReadI32()
		f.StutterMode = r.ReadI32()
		f.Unused1 = r.ReadI32()
		if f.Type == TYPE_KEYFRAMED_7 {
			f.Unused2 = r.ReadI32()
		}
		for i := range f.Zeroes {
			f.Zeroes[i] = r.ReadI32()
		}
	default:
		// old files in the wild carry unknown type values; keep
		// the document empty instead of failing the whole load
		log.Printf("[ska] Unknown animation type %d", f.Type)
		return f, nil
	}

	if err := r.Error(); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse SKA type %d", f.Type)
	}
	return f, nil
}

func (f *File) Marshal() []byte {
	w := bstream.NewWriter()
	w.WriteI32(SKA_MAGIC)
	w.WriteU32(f.Type)

	switch f.Type {
	case TYPE_LEGACY_2:
		w.WriteI32(f.Unused1)
	case TYPE_LEGACY_3:
		w.WriteI32(f.Unused1)
		w.WriteI32(f.Unused2)
	case TYPE_LEGACY_4:
		w.WriteI32(f.Unused1)
		w.WriteI32(f.Unused2)
		w.WriteI32(f.Unused3)
		w.WriteI32(f.Unused4)
	case TYPE_LEGACY_5:
		w.WriteI32(f.Unused1)
		w.WriteI32(f.Unused2)
		w.WriteI32(f.Unused3)
		w.WriteI32(f.Unused4)
		w.WriteI32(int32(len(f.Unused6)))
		for _, v := range f.Unused6 {
			w.WriteI32(v)
		}
	case TYPE_KEYFRAMED, TYPE_KEYFRAMED_7:
		w.WriteI32(int32(len(f.Headers)))
		for i := range f.Headers {
			h := &f.Headers[i]
			w.WriteU32(h.Tick)
			w.WriteU32(h.Interval)
			w.WriteU32(h.Type)
			w.WriteI32(h.BoneID)
		}
		w.WriteI32(int32(len(f.Times)))
		for _, t := range f.Times {
			w.WriteF32(t)
		}
		for i := range f.Keyframes {
			w.WriteVec4(f.Keyframes[i].Value)
			w.WriteVec4(f.Keyframes[i].Tangent)
		}
		w.WriteF32(f.Duration)
		w.WriteI32(f.Repeat)
		w.WriteI32(f.StutterMode)
		w.WriteI32(f.Unused1)
		if f.Type == TYPE_KEYFRAMED_7 {
			w.WriteI32(f.Unused2)
		}
		for _, z := range f.Zeroes {
			w.WriteI32(z)
		}
	}
	return w.Bytes()
}

// Validate checks the header/stream cross references of a keyframed
// animation.
func (f *File) Validate() error {
	if f.Type != TYPE_KEYFRAMED && f.Type != TYPE_KEYFRAMED_7 {
		return nil
	}
	if len(f.Times) != len(f.Keyframes) {
		return errors.Errorf("Time count %d does not match keyframe count %d", len(f.Times), len(f.Keyframes))
	}
	var total uint32
	for i := range f.Headers {
		h := &f.Headers[i]
		if int(h.Tick)+int(h.Interval) > len(f.Times) {
			return errors.Errorf("Header %d range [%d:%d] exceeds stream length %d",
				i, h.Tick, h.Tick+h.Interval, len(f.Times))
		}
		total += h.Interval
	}
	if int(total) != len(f.Times) {
		return errors.Errorf("Header intervals sum to %d, stream length is %d", total, len(f.Times))
	}
	return nil
}

func Open(path string) (*File, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open %q", path)
	}
	f, err := Unmarshal(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to parse %q", path)
	}
	return f, nil
}

func (f *File) Save(path string) error {
	return ioutil.WriteFile(path, f.Marshal(), 0644)
}
