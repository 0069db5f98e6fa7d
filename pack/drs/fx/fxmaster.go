package fx

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/battleforge-tools/drsbrowser/bstream"
)

// FXB / FxMaster stream tokens. Every structure in the element tree is
// introduced by one of these headers, which is what makes the format
// parseable without explicit counts.
const (
	FX_MASTER_MAGIC    = 4172197351
	FX_MASTER_VERSION  = 1
	FX_MASTER_REVISION = 2

	HEADER_TRACK_START_TOKEN  = 0xF8575767
	HEADER_TRACK              = 0xF876AC30
	HEADER_TRACK_END          = 0xF876AC3E
	HEADER_ELEMENT_START      = 0xF8E7EAA7
	HEADER_ELEMENT_END        = 0xF8E75E2D
	HEADER_CHILDREN_START     = 0xF876E2D0
	HEADER_CHILDREN_END       = 0xF8E2DE2D
	HEADER_NODE_LINK          = 0xF82D712E
	HEADER_FLOAT_KEYFRAME     = 0xF87EF70A
	HEADER_FLOAT_CONTROL_PT   = 0xF87EF7C9
	HEADER_FLOAT_CONTROL_SET  = 0xF87EFC95
	HEADER_VECTOR_KEYFRAME    = 0xF87E7EC7
	HEADER_VECTOR_CONTROL_PT  = 0xF87E7EC9
	HEADER_VECTOR_CONTROL_SET = 0xF87E7C95
)

// Static track data type discriminators.
const (
	STATIC_TRACK_HEADER      = 0xF857A71C
	STATIC_DATA_FLOAT        = 0xF857A7F7
	STATIC_DATA_VECTOR       = 0xF857A77C
	STATIC_DATA_STRING       = 0xF857A757
	STATIC_DATA_VECTOR_OTHER = 0xF857A747
)

// Element payload type headers.
const (
	ELEMENT_LIGHT                  = 0xF8716470
	ELEMENT_STATIC_DECAL           = 0xF85DECA7
	ELEMENT_SOUND                  = 0xF850C5D0
	ELEMENT_BILLBOARD              = 0xF88177BD
	ELEMENT_EMITTER                = 0xF8E31777
	ELEMENT_CAMERA_SHAKE           = 0xF8C5AAEE
	ELEMENT_EFFECT_MESH            = 0xF83E5400
	ELEMENT_EFFECT                 = 0xF8EFFE37
	ELEMENT_TRAIL                  = 0xF878A175
	ELEMENT_PHYSIC_GROUP           = 0xF8504752
	ELEMENT_PHYSIC                 = 0xF8504859
	ELEMENT_DECAL                  = 0xF8DECA70
	ELEMENT_FORCE                  = 0xF8466F72
	ELEMENT_FORCE_POINT            = 0xF8504650
	ELEMENT_ANIMATED_MESH          = 0xF8A23E54
	ELEMENT_ANIMATED_MESH_MATERIAL = 0xF8534D4D
	ELEMENT_WATER_DECAL            = 0xF8ADECA7
	ELEMENT_SFP_SYSTEM             = 0xF85F6575
	ELEMENT_SFP_EMITTER            = 0xF85F6E31
	ELEMENT_SFP_FORCE_FIELD        = 0xF85F6FFD
)

// StaticTrack is a non-animated parameter of an element.
type StaticTrack struct {
	TrackType uint32
	DataType  uint32
	Float     float32
	Vector    mgl32.Vec3
	Str       string
}

func (t *StaticTrack) unmarshalReader(r *bstream.Reader) error {
	header := r.ReadU32()
	if header != STATIC_TRACK_HEADER {
		return errors.Errorf("Bad static track header 0x%.8x", header)
	}
	if version := r.ReadU32(); version != 1 {
		return errors.Errorf("Unsupported static track version %d", version)
	}
	t.TrackType = r.ReadU32()
	t.DataType = r.ReadU32()
	switch t.DataType {
	case STATIC_DATA_FLOAT:
		t.Float = r.ReadF32()
	case STATIC_DATA_VECTOR, STATIC_DATA_VECTOR_OTHER:
		t.Vector = r.ReadVec3()
	case STATIC_DATA_STRING:
		t.Str = r.ReadLString()
	default:
		return errors.Errorf("Unknown static track data type 0x%.8x", t.DataType)
	}
	return r.Error()
}

func (t *StaticTrack) marshalWriter(w *bstream.Writer) {
	w.WriteU32(STATIC_TRACK_HEADER)
	w.WriteU32(1)
	w.WriteU32(t.TrackType)
	w.WriteU32(t.DataType)
	switch t.DataType {
	case STATIC_DATA_FLOAT:
		w.WriteF32(t.Float)
	case STATIC_DATA_VECTOR, STATIC_DATA_VECTOR_OTHER:
		w.WriteVec3(t.Vector)
	case STATIC_DATA_STRING:
		w.WriteLString(t.Str)
	}
}

// TrackKeyframe is one sample of an animated track. Float tracks use
// only the first component.
type TrackKeyframe struct {
	Frame float32
	Value mgl32.Vec3
}

// Track is an animated parameter with optional spline control points.
type Track struct {
	TrackType         uint32
	Length            float32
	TrackDim          uint32
	TrackMode         uint32
	InterpolationType uint32
	EvaluationType    uint32
	IsVector          bool
	Entries           []TrackKeyframe
	HasControlBlock   bool
	ControlPoints     []TrackKeyframe
}

func (t *Track) readKeyframe(r *bstream.Reader) TrackKeyframe {
	kf := TrackKeyframe{Frame: r.ReadF32()}
	if t.IsVector {
		kf.Value = r.ReadVec3()
	} else {
		kf.Value[0] = r.ReadF32()
	}
	return kf
}

func (t *Track) writeKeyframe(w *bstream.Writer, kf TrackKeyframe) {
	w.WriteF32(kf.Frame)
	if t.IsVector {
		w.WriteVec3(kf.Value)
	} else {
		w.WriteF32(kf.Value[0])
	}
}

func (t *Track) unmarshalReader(r *bstream.Reader) error {
	header := r.ReadU32()
	if header != HEADER_TRACK {
		return errors.Errorf("Bad track header 0x%.8x", header)
	}
	if version := r.ReadU32(); version != 4 {
		return errors.Errorf("Unsupported track version %d", version)
	}
	t.TrackType = r.ReadU32()
	t.Length = r.ReadF32()
	t.TrackDim = r.ReadU32()
	t.TrackMode = r.ReadU32()
	t.InterpolationType = r.ReadU32()
	t.EvaluationType = r.ReadU32()

	var entryHeader, controlSetHeader, controlPtHeader uint32
	switch r.PeekU32() {
	case HEADER_FLOAT_KEYFRAME:
		t.IsVector = false
		entryHeader, controlSetHeader, controlPtHeader = HEADER_FLOAT_KEYFRAME, HEADER_FLOAT_CONTROL_SET, HEADER_FLOAT_CONTROL_PT
	case HEADER_VECTOR_KEYFRAME:
		t.IsVector = true
		entryHeader, controlSetHeader, controlPtHeader = HEADER_VECTOR_KEYFRAME, HEADER_VECTOR_CONTROL_SET, HEADER_VECTOR_CONTROL_PT
	default:
		return errors.Errorf("Unknown keyframe header 0x%.8x", r.PeekU32())
	}
	for r.Error() == nil && r.PeekU32() == entryHeader {
		r.ReadU32()
		t.Entries = append(t.Entries, t.readKeyframe(r))
	}
	if len(t.Entries) == 0 {
		return errors.Errorf("Track has no entries")
	}
	tail := r.ReadU32()
	if tail == controlSetHeader {
		t.HasControlBlock = true
		for r.Error() == nil && r.PeekU32() == controlPtHeader {
			r.ReadU32()
			t.ControlPoints = append(t.ControlPoints, t.readKeyframe(r))
		}
		tail = r.ReadU32()
	}
	if tail != HEADER_TRACK_END {
		return errors.Errorf("Bad track end header 0x%.8x", tail)
	}
	return r.Error()
}

func (t *Track) marshalWriter(w *bstream.Writer) {
	w.WriteU32(HEADER_TRACK)
	w.WriteU32(4)
	w.WriteU32(t.TrackType)
	w.WriteF32(t.Length)
	w.WriteU32(t.TrackDim)
	w.WriteU32(t.TrackMode)
	w.WriteU32(t.InterpolationType)
	w.WriteU32(t.EvaluationType)

	entryHeader, controlSetHeader, controlPtHeader := uint32(HEADER_FLOAT_KEYFRAME), uint32(HEADER_FLOAT_CONTROL_SET), uint32(HEADER_FLOAT_CONTROL_PT)
	if t.IsVector {
		entryHeader, controlSetHeader, controlPtHeader = HEADER_VECTOR_KEYFRAME, HEADER_VECTOR_CONTROL_SET, HEADER_VECTOR_CONTROL_PT
	}
	for _, kf := range t.Entries {
		w.WriteU32(entryHeader)
		t.writeKeyframe(w, kf)
	}
	if t.HasControlBlock {
		w.WriteU32(controlSetHeader)
		for _, kf := range t.ControlPoints {
			w.WriteU32(controlPtHeader)
			t.writeKeyframe(w, kf)
		}
	}
	w.WriteU32(HEADER_TRACK_END)
}

// NodeLink binds an element onto its parent slot.
type NodeLink struct {
	Version         uint32
	Parent          string
	Slot            string
	DestinationSlot string
	World           uint32
	Node            uint32
	Floor           uint32
	Aim             uint32
	Span            uint32
	Locator         uint32
}

func (l *NodeLink) unmarshalReader(r *bstream.Reader) error {
	header := r.ReadU32()
	if header != HEADER_NODE_LINK {
		return errors.Errorf("Bad node link header 0x%.8x", header)
	}
	l.Version = r.ReadU32()
	if l.Version < 1 || l.Version > 3 {
		return errors.Errorf("Unsupported node link version %d", l.Version)
	}
	l.Parent = r.ReadLString()
	l.Slot = r.ReadLString()
	l.DestinationSlot = r.ReadLString()
	l.World = r.ReadU32()
	l.Node = r.ReadU32()
	l.Floor = r.ReadU32()
	l.Aim = r.ReadU32()
	l.Span = r.ReadU32()
	if l.Version > 2 {
		l.Locator = r.ReadU32()
	}
	return r.Error()
}

func (l *NodeLink) marshalWriter(w *bstream.Writer) {
	w.WriteU32(HEADER_NODE_LINK)
	w.WriteU32(l.Version)
	w.WriteLString(l.Parent)
	w.WriteLString(l.Slot)
	w.WriteLString(l.DestinationSlot)
	w.WriteU32(l.World)
	w.WriteU32(l.Node)
	w.WriteU32(l.Floor)
	w.WriteU32(l.Aim)
	w.WriteU32(l.Span)
	if l.Version > 2 {
		w.WriteU32(l.Locator)
	}
}

// ElementPayload is the payload variant behind an element type header.
type ElementPayload interface {
	TypeHeader() uint32
	unmarshalReader(r *bstream.Reader) error
	marshalWriter(w *bstream.Writer)
}

type Light struct {
	Range    uint32
	Radiance float32
}

func (p *Light) TypeHeader() uint32 { return ELEMENT_LIGHT }
func (p *Light) unmarshalReader(r *bstream.Reader) error {
	r.ReadU32()
	p.Range = r.ReadU32()
	p.Radiance = r.ReadF32()
	return r.Error()
}
func (p *Light) marshalWriter(w *bstream.Writer) {
	w.WriteU32(ELEMENT_LIGHT)
	w.WriteU32(p.Range)
	w.WriteF32(p.Radiance)
}

type StaticDecal struct {
	Version       uint32
	ColorTexture  string
	NormalTexture string
}

func (p *StaticDecal) TypeHeader() uint32 { return ELEMENT_STATIC_DECAL }
func (p *StaticDecal) unmarshalReader(r *bstream.Reader) error {
	r.ReadU32()
	p.Version = r.ReadU32()
	if p.Version != 1 && p.Version != 2 {
		return errors.Errorf("Unsupported static decal version %d", p.Version)
	}
	p.ColorTexture = r.ReadLString()
	if p.Version == 2 {
		p.NormalTexture = r.ReadLString()
	}
	return r.Error()
}
func (p *StaticDecal) marshalWriter(w *bstream.Writer) {
	w.WriteU32(ELEMENT_STATIC_DECAL)
	w.WriteU32(p.Version)
	w.WriteLString(p.ColorTexture)
	if p.Version == 2 {
		w.WriteLString(p.NormalTexture)
	}
}

type Billboard struct {
	Version    uint32
	TextureOne string
	TextureTwo string
}

func (p *Billboard) TypeHeader() uint32 { return ELEMENT_BILLBOARD }
func (p *Billboard) unmarshalReader(r *bstream.Reader) error {
	r.ReadU32()
	p.Version = r.ReadU32()
	if p.Version != 1 && p.Version != 2 {
		return errors.Errorf("Unsupported billboard version %d", p.Version)
	}
	p.TextureOne = r.ReadLString()
	if p.Version == 2 {
		p.TextureTwo = r.ReadLString()
	}
	return r.Error()
}
func (p *Billboard) marshalWriter(w *bstream.Writer) {
	w.WriteU32(ELEMENT_BILLBOARD)
	w.WriteU32(p.Version)
	w.WriteLString(p.TextureOne)
	if p.Version == 2 {
		w.WriteLString(p.TextureTwo)
	}
}

type Emitter struct {
	EmitterFile   string
	ParticleCount uint32
}

func (p *Emitter) TypeHeader() uint32 { return ELEMENT_EMITTER }
func (p *Emitter) unmarshalReader(r *bstream.Reader) error {
	r.ReadU32()
	if version := r.ReadU32(); version != 1 {
		return errors.Errorf("Unsupported emitter version %d", version)
	}
	p.EmitterFile = r.ReadLString()
	p.ParticleCount = r.ReadU32()
	return r.Error()
}
func (p *Emitter) marshalWriter(w *bstream.Writer) {
	w.WriteU32(ELEMENT_EMITTER)
	w.WriteU32(1)
	w.WriteLString(p.EmitterFile)
	w.WriteU32(p.ParticleCount)
}

type Effect struct {
	EffectFile string
	Embedded   uint32
	Length     float32
}

func (p *Effect) TypeHeader() uint32 { return ELEMENT_EFFECT }
func (p *Effect) unmarshalReader(r *bstream.Reader) error {
	r.ReadU32()
	if version := r.ReadU32(); version != 1 {
		return errors.Errorf("Unsupported effect version %d", version)
	}
	p.EffectFile = r.ReadLString()
	p.Embedded = r.ReadU32()
	p.Length = r.ReadF32()
	return r.Error()
}
func (p *Effect) marshalWriter(w *bstream.Writer) {
	w.WriteU32(ELEMENT_EFFECT)
	w.WriteU32(1)
	w.WriteLString(p.EffectFile)
	w.WriteU32(p.Embedded)
	w.WriteF32(p.Length)
}

type AnimatedMesh struct {
	MeshFile      string
	AnimationFile string
}

func (p *AnimatedMesh) TypeHeader() uint32 { return ELEMENT_ANIMATED_MESH }
func (p *AnimatedMesh) unmarshalReader(r *bstream.Reader) error {
	r.ReadU32()
	if version := r.ReadU32(); version != 1 {
		return errors.Errorf("Unsupported animated mesh version %d", version)
	}
	p.MeshFile = r.ReadLString()
	p.AnimationFile = r.ReadLString()
	return r.Error()
}
func (p *AnimatedMesh) marshalWriter(w *bstream.Writer) {
	w.WriteU32(ELEMENT_ANIMATED_MESH)
	w.WriteU32(1)
	w.WriteLString(p.MeshFile)
	w.WriteLString(p.AnimationFile)
}

// filePayload covers the element types that are a version plus one
// file name.
type filePayload struct {
	typeHeader uint32
	File       string
}

func (p *filePayload) TypeHeader() uint32 { return p.typeHeader }
func (p *filePayload) unmarshalReader(r *bstream.Reader) error {
	r.ReadU32()
	if version := r.ReadU32(); version != 1 {
		return errors.Errorf("Unsupported element version %d", version)
	}
	p.File = r.ReadLString()
	return r.Error()
}
func (p *filePayload) marshalWriter(w *bstream.Writer) {
	w.WriteU32(p.typeHeader)
	w.WriteU32(1)
	w.WriteLString(p.File)
}

type Sound struct{ filePayload }
type EffectMesh struct{ filePayload }
type Trail struct{ filePayload }
type Physic struct{ filePayload }
type Decal struct{ filePayload }
type WaterDecal struct{ filePayload }
type SfpSystem struct{ filePayload }
type AnimatedMeshMaterial struct{ filePayload }

// markerPayload covers the element types that carry only a version.
type markerPayload struct {
	typeHeader uint32
}

func (p *markerPayload) TypeHeader() uint32 { return p.typeHeader }
func (p *markerPayload) unmarshalReader(r *bstream.Reader) error {
	r.ReadU32()
	if version := r.ReadU32(); version != 1 {
		return errors.Errorf("Unsupported element version %d", version)
	}
	return r.Error()
}
func (p *markerPayload) marshalWriter(w *bstream.Writer) {
	w.WriteU32(p.typeHeader)
	w.WriteU32(1)
}

type CameraShake struct{ markerPayload }
type PhysicGroup struct{ markerPayload }
type Force struct{ markerPayload }
type ForcePoint struct{ markerPayload }
type SfpEmitter struct{ markerPayload }
type SfpForceField struct{ markerPayload }

func newElementPayload(typeHeader uint32) ElementPayload {
	switch typeHeader {
	case ELEMENT_LIGHT:
		return &Light{}
	case ELEMENT_STATIC_DECAL:
		return &StaticDecal{}
	case ELEMENT_BILLBOARD:
		return &Billboard{}
	case ELEMENT_EMITTER:
		return &Emitter{}
	case ELEMENT_EFFECT:
		return &Effect{}
	case ELEMENT_ANIMATED_MESH:
		return &AnimatedMesh{}
	case ELEMENT_SOUND:
		return &Sound{filePayload{typeHeader: ELEMENT_SOUND}}
	case ELEMENT_EFFECT_MESH:
		return &EffectMesh{filePayload{typeHeader: ELEMENT_EFFECT_MESH}}
	case ELEMENT_TRAIL:
		return &Trail{filePayload{typeHeader: ELEMENT_TRAIL}}
	case ELEMENT_PHYSIC:
		return &Physic{filePayload{typeHeader: ELEMENT_PHYSIC}}
	case ELEMENT_DECAL:
		return &Decal{filePayload{typeHeader: ELEMENT_DECAL}}
	case ELEMENT_WATER_DECAL:
		return &WaterDecal{filePayload{typeHeader: ELEMENT_WATER_DECAL}}
	case ELEMENT_SFP_SYSTEM:
		return &SfpSystem{filePayload{typeHeader: ELEMENT_SFP_SYSTEM}}
	case ELEMENT_ANIMATED_MESH_MATERIAL:
		return &AnimatedMeshMaterial{filePayload{typeHeader: ELEMENT_ANIMATED_MESH_MATERIAL}}
	case ELEMENT_CAMERA_SHAKE:
		return &CameraShake{markerPayload{typeHeader: ELEMENT_CAMERA_SHAKE}}
	case ELEMENT_PHYSIC_GROUP:
		return &PhysicGroup{markerPayload{typeHeader: ELEMENT_PHYSIC_GROUP}}
	case ELEMENT_FORCE:
		return &Force{markerPayload{typeHeader: ELEMENT_FORCE}}
	case ELEMENT_FORCE_POINT:
		return &ForcePoint{markerPayload{typeHeader: ELEMENT_FORCE_POINT}}
	case ELEMENT_SFP_EMITTER:
		return &SfpEmitter{markerPayload{typeHeader: ELEMENT_SFP_EMITTER}}
	case ELEMENT_SFP_FORCE_FIELD:
		return &SfpForceField{markerPayload{typeHeader: ELEMENT_SFP_FORCE_FIELD}}
	}
	return nil
}

// Element is one node of the FxMaster tree.
type Element struct {
	NodeLink         NodeLink
	Name             string
	Payload          ElementPayload
	TrackStartTokens int
	StaticTracks     []StaticTrack
	Tracks           []Track
	Children         []*Element

	parent *Element
}

func (e *Element) readBody(r *bstream.Reader) error {
	if err := e.NodeLink.unmarshalReader(r); err != nil {
		return err
	}
	if header := r.ReadU32(); header != HEADER_ELEMENT_START {
		return errors.Errorf("Bad element start header 0x%.8x", header)
	}
	if version := r.ReadU32(); version != 1 {
		return errors.Errorf("Unsupported element version %d", version)
	}
	e.Name = r.ReadLString()

	typeHeader := r.PeekU32()
	e.Payload = newElementPayload(typeHeader)
	if e.Payload == nil {
		return errors.Errorf("Unknown element type header 0x%.8x", typeHeader)
	}
	if err := e.Payload.unmarshalReader(r); err != nil {
		return errors.Wrapf(err, "Failed to parse element %q payload", e.Name)
	}
	if header := r.ReadU32(); header != HEADER_ELEMENT_END {
		return errors.Errorf("Bad element end header 0x%.8x", header)
	}

	for r.Error() == nil && r.PeekU32() == HEADER_TRACK_START_TOKEN {
		r.ReadU32()
		e.TrackStartTokens++
	}
	if e.TrackStartTokens != 2 &&
		typeHeader != ELEMENT_ANIMATED_MESH && typeHeader != ELEMENT_ANIMATED_MESH_MATERIAL {
		return errors.Errorf("Element %q has %d track tokens", e.Name, e.TrackStartTokens)
	}

	for r.Error() == nil && r.PeekU32() == STATIC_TRACK_HEADER {
		var track StaticTrack
		if err := track.unmarshalReader(r); err != nil {
			return err
		}
		e.StaticTracks = append(e.StaticTracks, track)
	}
	for r.Error() == nil && r.PeekU32() == HEADER_TRACK {
		var track Track
		if err := track.unmarshalReader(r); err != nil {
			return err
		}
		e.Tracks = append(e.Tracks, track)
	}

	if header := r.ReadU32(); header != HEADER_CHILDREN_START {
		return errors.Errorf("Bad children start header 0x%.8x", header)
	}
	return r.Error()
}

func (e *Element) writeBody(w *bstream.Writer) {
	e.NodeLink.marshalWriter(w)
	w.WriteU32(HEADER_ELEMENT_START)
	w.WriteU32(1)
	w.WriteLString(e.Name)
	e.Payload.marshalWriter(w)
	w.WriteU32(HEADER_ELEMENT_END)
	for i := 0; i < e.TrackStartTokens; i++ {
		w.WriteU32(HEADER_TRACK_START_TOKEN)
	}
	for i := range e.StaticTracks {
		e.StaticTracks[i].marshalWriter(w)
	}
	for i := range e.Tracks {
		e.Tracks[i].marshalWriter(w)
	}
	w.WriteU32(HEADER_CHILDREN_START)
}

func (e *Element) writeTree(w *bstream.Writer) {
	e.writeBody(w)
	for _, child := range e.Children {
		child.writeTree(w)
	}
	w.WriteU32(HEADER_CHILDREN_END)
	// Effect elements carry a phantom scope for the embedded effect
	if e.Payload.TypeHeader() == ELEMENT_EFFECT {
		w.WriteU32(HEADER_CHILDREN_END)
	}
}

// readElementTree reconstructs the tree under root. Elements nest via
// children start/end tokens, with effect elements introducing one
// phantom close token each.
func readElementTree(r *bstream.Reader, root *Element) error {
	if r.Remaining() >= 4 && r.PeekU32() == HEADER_CHILDREN_END {
		r.ReadU32()
		if r.Remaining() >= 4 {
			r.ReadU32()
		}
		return r.Error()
	}

	parent := root
	depth := 1
	ignores := make([]int, 64)
	for {
		el := &Element{parent: parent}
		if err := el.readBody(r); err != nil {
			return err
		}
		if el.Payload.TypeHeader() == ELEMENT_EFFECT {
			ignores[depth]++
		}
		parent.Children = append(parent.Children, el)
		next := el
		depth++

		for r.Error() == nil && r.Remaining() >= 4 && r.PeekU32() == HEADER_CHILDREN_END {
			r.ReadU32()
			if ignores[depth] > 0 {
				ignores[depth]--
			} else {
				if next != nil {
					next = next.parent
				} else if depth != 0 {
					return errors.Errorf("Unbalanced element tree")
				}
				depth--
			}
		}
		if err := r.Error(); err != nil {
			return err
		}
		if depth == -1 {
			return nil
		}
		parent = next
	}
}

// FxMaster is the FxMaster node payload: the root of a special effect
// element tree.
type FxMaster struct {
	Name          string
	Length        float32
	SetupFileName string
	SetupSourceID int32
	SetupTargetID int32
	PlayLength    float32
	StaticTracks  []StaticTrack
	Tracks        []Track
	Root          Element
}

func UnmarshalFxMaster(data []byte) (*FxMaster, error) {
	r := bstream.NewReader(data)
	m := &FxMaster{}

	if version := r.ReadU32(); version != FX_MASTER_VERSION {
		return nil, errors.Errorf("Unsupported FxMaster version %d", version)
	}
	if magic := r.ReadU32(); magic != FX_MASTER_MAGIC {
		return nil, errors.Errorf("Bad FxMaster magic 0x%.8x", magic)
	}
	if revision := r.ReadU32(); revision != FX_MASTER_REVISION {
		return nil, errors.Errorf("Unsupported FxMaster revision %d", revision)
	}
	m.Name = r.ReadLString()
	m.Length = r.ReadF32()
	m.SetupFileName = r.ReadLString()
	m.SetupSourceID = r.ReadI32()
	m.SetupTargetID = r.ReadI32()
	m.PlayLength = r.ReadF32()
	if z1, z2 := r.ReadU32(), r.ReadU32(); z1 != 0 || z2 != 0 {
		return nil, errors.Errorf("Expected zero pad, got %d %d", z1, z2)
	}
	if h1, h2 := r.ReadU32(), r.ReadU32(); h1 != HEADER_TRACK_START_TOKEN || h2 != HEADER_TRACK_START_TOKEN {
		return nil, errors.Errorf("Bad FxMaster track tokens 0x%.8x 0x%.8x", h1, h2)
	}

	for r.Error() == nil && r.PeekU32() == STATIC_TRACK_HEADER {
		var track StaticTrack
		if err := track.unmarshalReader(r); err != nil {
			return nil, err
		}
		m.StaticTracks = append(m.StaticTracks, track)
	}
	for r.Error() == nil && r.PeekU32() == HEADER_TRACK {
		var track Track
		if err := track.unmarshalReader(r); err != nil {
			return nil, err
		}
		m.Tracks = append(m.Tracks, track)
	}

	if header := r.ReadU32(); header != HEADER_CHILDREN_START {
		return nil, errors.Errorf("Bad children start header 0x%.8x", header)
	}
	if err := readElementTree(r, &m.Root); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse FxMaster element tree")
	}
	if err := r.Error(); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse FxMaster")
	}
	return m, nil
}

func (m *FxMaster) Marshal() []byte {
	w := bstream.NewWriter()
	w.WriteU32(FX_MASTER_VERSION)
	w.WriteU32(FX_MASTER_MAGIC)
	w.WriteU32(FX_MASTER_REVISION)
	w.WriteLString(m.Name)
	w.WriteF32(m.Length)
	w.WriteLString(m.SetupFileName)
	w.WriteI32(m.SetupSourceID)
	w.WriteI32(m.SetupTargetID)
	w.WriteF32(m.PlayLength)
	w.WriteU32(0)
	w.WriteU32(0)
	w.WriteU32(HEADER_TRACK_START_TOKEN)
	w.WriteU32(HEADER_TRACK_START_TOKEN)
	for i := range m.StaticTracks {
		m.StaticTracks[i].marshalWriter(w)
	}
	for i := range m.Tracks {
		m.Tracks[i].marshalWriter(w)
	}
	w.WriteU32(HEADER_CHILDREN_START)
	for _, child := range m.Root.Children {
		child.writeTree(w)
	}
	w.WriteU32(HEADER_CHILDREN_END)
	w.WriteU32(HEADER_CHILDREN_END)
	return w.Bytes()
}
