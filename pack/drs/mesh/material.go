package mesh

import (
	"log"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/battleforge-tools/drsbrowser/bstream"
)

// Texture slot identifiers used by the game shaders.
const (
	TEXTURE_COLOR_MAP     = 1684432499
	TEXTURE_NORMAL_MAP    = 1852992883
	TEXTURE_PARAMETER_MAP = 1936745324
)

type Texture struct {
	Identifier int32
	Name       string
	Spacer     int32
}

type Textures struct {
	Textures []Texture
}

func (t *Textures) unmarshalReader(r *bstream.Reader) error {
	count := r.ReadI32()
	if count < 0 || int(count)*12 > r.Remaining() {
		return errors.Errorf("Bad texture count %d", count)
	}
	t.Textures = make([]Texture, count)
	for i := range t.Textures {
		tx := &t.Textures[i]
		tx.Identifier = r.ReadI32()
		tx.Name = r.ReadLString()
		tx.Spacer = r.ReadI32()
	}
	return r.Error()
}

func (t *Textures) marshalWriter(w *bstream.Writer) {
	w.WriteI32(int32(len(t.Textures)))
	for i := range t.Textures {
		tx := &t.Textures[i]
		w.WriteI32(tx.Identifier)
		w.WriteLString(tx.Name)
		w.WriteI32(tx.Spacer)
	}
}

func (t *Textures) byteSize() int {
	size := 4
	for i := range t.Textures {
		size += 12 + len(t.Textures[i].Name)
	}
	return size
}

// Scalar material parameter identifiers.
const (
	MAT_SMOOTHNESS            = 1668510769
	MAT_METALNESS             = 1668510770
	MAT_REFLECTIVITY          = 1668510771
	MAT_EMISSIVITY            = 1668510772
	MAT_REFRACTION_SCALE      = 1668510773
	MAT_DISTORTION_MESH_SCALE = 1668510774
	MAT_SCRATCH               = 1935897704
	MAT_SPECULAR_SCALE        = 1668510775
	MAT_WIND_RESPONSE         = 1668510776
	MAT_WIND_HEIGHT           = 1668510777
	MAT_DEPTH_WRITE_THRESHOLD = 1935893623
	MAT_SATURATION            = 1668510785
)

var gKnownMaterialIdentifiers = map[int32]struct{}{
	MAT_SMOOTHNESS:            {},
	MAT_METALNESS:             {},
	MAT_REFLECTIVITY:          {},
	MAT_EMISSIVITY:            {},
	MAT_REFRACTION_SCALE:      {},
	MAT_DISTORTION_MESH_SCALE: {},
	MAT_SCRATCH:               {},
	MAT_SPECULAR_SCALE:        {},
	MAT_WIND_RESPONSE:         {},
	MAT_WIND_HEIGHT:           {},
	MAT_DEPTH_WRITE_THRESHOLD: {},
	MAT_SATURATION:            {},
}

// Material is a single (identifier, scalar) shader parameter. An unknown
// identifier is rejected before anything is written.
type Material struct {
	Identifier int32
	Value      float32
}

func (m *Material) unmarshalReader(r *bstream.Reader) error {
	m.Identifier = r.ReadI32()
	m.Value = r.ReadF32()
	if err := r.Error(); err != nil {
		return err
	}
	if _, known := gKnownMaterialIdentifiers[m.Identifier]; !known {
		return errors.Errorf("Unknown material identifier %d", m.Identifier)
	}
	return nil
}

func (m *Material) marshalWriter(w *bstream.Writer) error {
	if _, known := gKnownMaterialIdentifiers[m.Identifier]; !known {
		return errors.Errorf("Unknown material identifier %d", m.Identifier)
	}
	w.WriteI32(m.Identifier)
	w.WriteF32(m.Value)
	return nil
}

// DefaultMaterials returns the full parameter block the game expects,
// with engine default values.
func DefaultMaterials() []Material {
	return []Material{
		{MAT_SMOOTHNESS, 0},
		{MAT_METALNESS, 0},
		{MAT_REFLECTIVITY, 0},
		{MAT_EMISSIVITY, 0},
		{MAT_REFRACTION_SCALE, 1},
		{MAT_DISTORTION_MESH_SCALE, 0},
		{MAT_SCRATCH, 0},
		{MAT_SPECULAR_SCALE, 1.5},
		{MAT_WIND_RESPONSE, 0},
		{MAT_WIND_HEIGHT, 0},
		{MAT_DEPTH_WRITE_THRESHOLD, 0.5},
		{MAT_SATURATION, 1},
	}
}

type Materials struct {
	Materials []Material
}

func (m *Materials) unmarshalReader(r *bstream.Reader) error {
	count := r.ReadI32()
	if count < 0 || int(count)*8 > r.Remaining() {
		return errors.Errorf("Bad material count %d", count)
	}
	m.Materials = make([]Material, count)
	for i := range m.Materials {
		if err := m.Materials[i].unmarshalReader(r); err != nil {
			return err
		}
	}
	return nil
}

func (m *Materials) marshalWriter(w *bstream.Writer) error {
	w.WriteI32(int32(len(m.Materials)))
	for i := range m.Materials {
		if err := m.Materials[i].marshalWriter(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Materials) byteSize() int { return 4 + 8*len(m.Materials) }

type RefractionEntry struct {
	Identifier int32
	RGB        mgl32.Vec3
}

type Refraction struct {
	Entries []RefractionEntry
}

func (rf *Refraction) unmarshalReader(r *bstream.Reader) error {
	count := r.ReadI32()
	if count < 0 || int(count)*16 > r.Remaining() {
		return errors.Errorf("Bad refraction count %d", count)
	}
	if count > 1 {
		log.Printf("[mesh] refraction block with %d entries", count)
	}
	rf.Entries = make([]RefractionEntry, count)
	for i := range rf.Entries {
		rf.Entries[i].Identifier = r.ReadI32()
		rf.Entries[i].RGB = r.ReadVec3()
	}
	return r.Error()
}

func (rf *Refraction) marshalWriter(w *bstream.Writer) {
	w.WriteI32(int32(len(rf.Entries)))
	for i := range rf.Entries {
		w.WriteI32(rf.Entries[i].Identifier)
		w.WriteVec3(rf.Entries[i].RGB)
	}
}

func (rf *Refraction) byteSize() int { return 4 + 16*len(rf.Entries) }

// LevelOfDetail carries at most one level value; Length 0 means absent.
type LevelOfDetail struct {
	Length   int32
	LodLevel int32
}

func (l *LevelOfDetail) unmarshalReader(r *bstream.Reader) error {
	l.Length = r.ReadI32()
	if l.Length == 1 {
		l.LodLevel = r.ReadI32()
	}
	return r.Error()
}

func (l *LevelOfDetail) marshalWriter(w *bstream.Writer) {
	w.WriteI32(l.Length)
	if l.Length == 1 {
		w.WriteI32(l.LodLevel)
	}
}

func (l *LevelOfDetail) byteSize() int {
	if l.Length == 1 {
		return 8
	}
	return 4
}

// EmptyString is a length-prefixed two-byte-per-rune blob that is empty
// in every known file. Kept verbatim.
type EmptyString struct {
	Data []byte
}

func (e *EmptyString) unmarshalReader(r *bstream.Reader) error {
	length := r.ReadI32()
	if length < 0 || int(length)*2 > r.Remaining() {
		return errors.Errorf("Bad string length %d", length)
	}
	e.Data = r.ReadBytes(int(length) * 2)
	return r.Error()
}

func (e *EmptyString) marshalWriter(w *bstream.Writer) {
	w.WriteI32(int32(len(e.Data) / 2))
	w.WriteBytes(e.Data)
}

func (e *EmptyString) byteSize() int { return 4 + len(e.Data) }

// Flow identifiers, one per flow channel.
const (
	FLOW_MAX_SPEED    = 1668707377
	FLOW_MIN_SPEED    = 1668707378
	FLOW_SPEED_CHANGE = 1668707379
	FLOW_SCALE        = 1668707380
)

// Flow holds water/lava scroll parameters. Length is 4 when present,
// anything else means the block carries no data.
type Flow struct {
	Length          int32
	MaxFlowSpeedID  int32
	MaxFlowSpeed    mgl32.Vec4
	MinFlowSpeedID  int32
	MinFlowSpeed    mgl32.Vec4
	FlowSpeedChID   int32
	FlowSpeedChange mgl32.Vec4
	FlowScaleID     int32
	FlowScale       mgl32.Vec4
}

func DefaultFlow() Flow {
	return Flow{
		Length:         4,
		MaxFlowSpeedID: FLOW_MAX_SPEED,
		MinFlowSpeedID: FLOW_MIN_SPEED,
		FlowSpeedChID:  FLOW_SPEED_CHANGE,
		FlowScaleID:    FLOW_SCALE,
	}
}

func (f *Flow) unmarshalReader(r *bstream.Reader) error {
	f.Length = r.ReadI32()
	if f.Length == 4 {
		f.MaxFlowSpeedID = r.ReadI32()
		f.MaxFlowSpeed = r.ReadVec4()
		f.MinFlowSpeedID = r.ReadI32()
		f.MinFlowSpeed = r.ReadVec4()
		f.FlowSpeedChID = r.ReadI32()
		f.FlowSpeedChange = r.ReadVec4()
		f.FlowScaleID = r.ReadI32()
		f.FlowScale = r.ReadVec4()
	}
	return r.Error()
}

func (f *Flow) marshalWriter(w *bstream.Writer) {
	w.WriteI32(f.Length)
	if f.Length == 4 {
		w.WriteI32(f.MaxFlowSpeedID)
		w.WriteVec4(f.MaxFlowSpeed)
		w.WriteI32(f.MinFlowSpeedID)
		w.WriteVec4(f.MinFlowSpeed)
		w.WriteI32(f.FlowSpeedChID)
		w.WriteVec4(f.FlowSpeedChange)
		w.WriteI32(f.FlowScaleID)
		w.WriteVec4(f.FlowScale)
	}
}

func (f *Flow) byteSize() int {
	if f.Length == 4 {
		return 4 + 4*20
	}
	return 4
}
