// Package grid parses mesh set grids: multi-module buildings laid out
// on a cell grid with per-state mesh files.
package grid

import (
	"github.com/pkg/errors"

	"github.com/battleforge-tools/drsbrowser/bstream"
	"github.com/battleforge-tools/drsbrowser/pack/drs"
	"github.com/battleforge-tools/drsbrowser/pack/drs/loc"
)

// SMeshState names the DRS file shown for one build state.
type SMeshState struct {
	StateNum int32
	HasFiles int16
	UkFile   string
	DrsFile  string
}

func (s *SMeshState) unmarshalReader(r *bstream.Reader) {
	s.StateNum = r.ReadI32()
	s.HasFiles = r.ReadI16()
	if s.HasFiles != 0 {
		s.UkFile = r.ReadLString()
		s.DrsFile = r.ReadLString()
	}
}

func (s *SMeshState) marshalWriter(w *bstream.Writer) {
	w.WriteI32(s.StateNum)
	w.WriteI16(s.HasFiles)
	if s.HasFiles != 0 {
		w.WriteLString(s.UkFile)
		w.WriteLString(s.DrsFile)
	}
}

func (s *SMeshState) byteSize() int {
	size := 6
	if s.HasFiles != 0 {
		size += 8 + len(s.UkFile) + len(s.DrsFile)
	}
	return size
}

// DestructionState names the destruction animation for one state.
type DestructionState struct {
	StateNum int32
	FileName string
}

func (s *DestructionState) unmarshalReader(r *bstream.Reader) {
	s.StateNum = r.ReadI32()
	s.FileName = r.ReadLString()
}

func (s *DestructionState) marshalWriter(w *bstream.Writer) {
	w.WriteI32(s.StateNum)
	w.WriteLString(s.FileName)
}

func (s *DestructionState) byteSize() int { return 8 + len(s.FileName) }

// StateBasedMeshSet holds the mesh and destruction states of one grid
// module.
type StateBasedMeshSet struct {
	Uk                int16
	Uk2               int32
	MeshStates        []SMeshState
	DestructionStates []DestructionState
}

func (s *StateBasedMeshSet) unmarshalReader(r *bstream.Reader) error {
	s.Uk = r.ReadI16()
	s.Uk2 = r.ReadI32()
	meshStateCount := r.ReadI32()
	if meshStateCount < 0 || int(meshStateCount)*6 > r.Remaining() {
		return errors.Errorf("Bad mesh state count %d", meshStateCount)
	}
	s.MeshStates = make([]SMeshState, meshStateCount)
	for i := range s.MeshStates {
		s.MeshStates[i].unmarshalReader(r)
	}
	destructionStateCount := r.ReadI32()
	if destructionStateCount < 0 || int(destructionStateCount)*8 > r.Remaining() {
		return errors.Errorf("Bad destruction state count %d", destructionStateCount)
	}
	s.DestructionStates = make([]DestructionState, destructionStateCount)
	for i := range s.DestructionStates {
		s.DestructionStates[i].unmarshalReader(r)
	}
	return r.Error()
}

func (s *StateBasedMeshSet) marshalWriter(w *bstream.Writer) {
	w.WriteI16(s.Uk)
	w.WriteI32(s.Uk2)
	w.WriteI32(int32(len(s.MeshStates)))
	for i := range s.MeshStates {
		s.MeshStates[i].marshalWriter(w)
	}
	w.WriteI32(int32(len(s.DestructionStates)))
	for i := range s.DestructionStates {
		s.DestructionStates[i].marshalWriter(w)
	}
}

func (s *StateBasedMeshSet) byteSize() int {
	size := 14
	for i := range s.MeshStates {
		size += s.MeshStates[i].byteSize()
	}
	for i := range s.DestructionStates {
		size += s.DestructionStates[i].byteSize()
	}
	return size
}

// MeshGridModule is one cell of the grid.
type MeshGridModule struct {
	Uk         int16
	HasMeshSet uint8
	MeshSet    StateBasedMeshSet
}

func (m *MeshGridModule) unmarshalReader(r *bstream.Reader) error {
	m.Uk = r.ReadI16()
	m.HasMeshSet = r.ReadU8()
	if m.HasMeshSet != 0 {
		return m.MeshSet.unmarshalReader(r)
	}
	return r.Error()
}

func (m *MeshGridModule) marshalWriter(w *bstream.Writer) {
	w.WriteI16(m.Uk)
	w.WriteU8(m.HasMeshSet)
	if m.HasMeshSet != 0 {
		m.MeshSet.marshalWriter(w)
	}
}

func (m *MeshGridModule) byteSize() int {
	size := 3
	if m.HasMeshSet != 0 {
		size += m.MeshSet.byteSize()
	}
	return size
}

// StateBasedMeshSetRecord is the StateBasedMeshSet node payload.
type StateBasedMeshSetRecord struct {
	StateBasedMeshSet
}

func UnmarshalStateBasedMeshSet(data []byte) (*StateBasedMeshSetRecord, error) {
	r := bstream.NewReader(data)
	rec := &StateBasedMeshSetRecord{}
	if err := rec.unmarshalReader(r); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse StateBasedMeshSet")
	}
	return rec, nil
}

func (rec *StateBasedMeshSetRecord) Marshal() []byte {
	w := bstream.NewWriter()
	rec.marshalWriter(w)
	return w.Bytes()
}

func (rec *StateBasedMeshSetRecord) ByteSize() int { return rec.byteSize() }

// MeshSetGrid is the MeshSetGrid node payload. The module list covers
// (2*width+1) x (2*height+1) cells.
type MeshSetGrid struct {
	Revision        int16
	GridWidth       uint8
	GridHeight      uint8
	Name            string
	UUID            string
	GridRotation    int16
	GroundDecal     string
	UkString0       string
	UkString1       string
	ModuleDistance  float32
	IsCenterPivoted uint8
	MeshModules     []MeshGridModule
	LocatorList     loc.CDrwLocatorList
}

func (g *MeshSetGrid) moduleCount() int {
	return (int(g.GridWidth)*2 + 1) * (int(g.GridHeight)*2 + 1)
}

func UnmarshalMeshSetGrid(data []byte) (*MeshSetGrid, error) {
	r := bstream.NewReader(data)
	g := &MeshSetGrid{}
	g.Revision = r.ReadI16()
	g.GridWidth = r.ReadU8()
	g.GridHeight = r.ReadU8()
	g.Name = r.ReadLString()
	g.UUID = r.ReadLString()
	g.GridRotation = r.ReadI16()
	g.GroundDecal = r.ReadLString()
	g.UkString0 = r.ReadLString()
	g.UkString1 = r.ReadLString()
	g.ModuleDistance = r.ReadF32()
	g.IsCenterPivoted = r.ReadU8()
	if err := r.Error(); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse MeshSetGrid header")
	}
	g.MeshModules = make([]MeshGridModule, g.moduleCount())
	for i := range g.MeshModules {
		if err := g.MeshModules[i].unmarshalReader(r); err != nil {
			return nil, errors.Wrapf(err, "Failed to parse mesh module %d", i)
		}
	}
	locators, err := loc.UnmarshalCDrwLocatorList(r.ReadBytes(r.Remaining()))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to parse grid locator list")
	}
	g.LocatorList = *locators
	return g, nil
}

func (g *MeshSetGrid) Marshal() []byte {
	w := bstream.NewWriter()
	w.WriteI16(g.Revision)
	w.WriteU8(g.GridWidth)
	w.WriteU8(g.GridHeight)
	w.WriteLString(g.Name)
	w.WriteLString(g.UUID)
	w.WriteI16(g.GridRotation)
	w.WriteLString(g.GroundDecal)
	w.WriteLString(g.UkString0)
	w.WriteLString(g.UkString1)
	w.WriteF32(g.ModuleDistance)
	w.WriteU8(g.IsCenterPivoted)
	for i := range g.MeshModules {
		g.MeshModules[i].marshalWriter(w)
	}
	w.WriteBytes(g.LocatorList.Marshal())
	return w.Bytes()
}

func (g *MeshSetGrid) ByteSize() int {
	size := 31 + len(g.Name) + len(g.UUID) + len(g.GroundDecal) + len(g.UkString0) + len(g.UkString1)
	for i := range g.MeshModules {
		size += g.MeshModules[i].byteSize()
	}
	return size + g.LocatorList.ByteSize()
}

func init() {
	drs.SetHandler(drs.MAGIC_STATE_BASED_MESH_SET, func(data []byte) (interface{}, error) {
		return UnmarshalStateBasedMeshSet(data)
	})
	drs.SetHandler(drs.MAGIC_MESH_SET_GRID, func(data []byte) (interface{}, error) {
		return UnmarshalMeshSetGrid(data)
	})
}
