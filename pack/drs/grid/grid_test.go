package grid

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/battleforge-tools/drsbrowser/pack/drs/geom"
	"github.com/battleforge-tools/drsbrowser/pack/drs/loc"
)

func testMeshSet() StateBasedMeshSet {
	return StateBasedMeshSet{
		Uk:  1,
		Uk2: 11,
		MeshStates: []SMeshState{
			{StateNum: 0, HasFiles: 1, UkFile: "", DrsFile: "building_state0.drs"},
			{StateNum: 1, HasFiles: 0},
		},
		DestructionStates: []DestructionState{
			{StateNum: 0, FileName: "building_destruction.bms"},
		},
	}
}

func TestStateBasedMeshSetRoundTrip(t *testing.T) {
	src := &StateBasedMeshSetRecord{StateBasedMeshSet: testMeshSet()}
	raw := src.Marshal()
	if len(raw) != src.ByteSize() {
		t.Errorf("Size mismatch: marshaled %d, ByteSize %d", len(raw), src.ByteSize())
	}
	parsed, err := UnmarshalStateBasedMeshSet(raw)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if parsed.MeshStates[0].DrsFile != "building_state0.drs" {
		t.Errorf("Lost mesh state: %+v", parsed.MeshStates[0])
	}
	if parsed.MeshStates[1].HasFiles != 0 || parsed.MeshStates[1].DrsFile != "" {
		t.Errorf("File-less state should carry no names: %+v", parsed.MeshStates[1])
	}
	if !bytes.Equal(parsed.Marshal(), raw) {
		t.Errorf("Round trip is not byte identical")
	}
}

func TestMeshSetGridRoundTrip(t *testing.T) {
	src := &MeshSetGrid{
		Revision:        5,
		GridWidth:       1,
		GridHeight:      0,
		Name:            "tower_grid",
		UUID:            "f2a5c9e1-0b2d-4c7e-9f94-1f6f0a3a7c11",
		GridRotation:    0,
		GroundDecal:     "decal_tower.dds",
		ModuleDistance:  2,
		IsCenterPivoted: 1,
		LocatorList: loc.CDrwLocatorList{
			Magic:   loc.CDRW_LOCATOR_LIST_MAGIC,
			Version: 5,
			Locators: []loc.SLocator{{
				CoordinateSystem: geom.CMatCoordinateSystem{Matrix: mgl32.Ident3()},
				ClassID:          loc.LOCATOR_CLASS_CONSTRUCTION,
				BoneID:           -1,
				UkInt:            1,
			}},
		},
	}
	// (2*1+1) x (2*0+1) cells
	src.MeshModules = make([]MeshGridModule, 3)
	src.MeshModules[1] = MeshGridModule{Uk: 1, HasMeshSet: 1, MeshSet: testMeshSet()}

	raw := src.Marshal()
	if len(raw) != src.ByteSize() {
		t.Errorf("Size mismatch: marshaled %d, ByteSize %d", len(raw), src.ByteSize())
	}
	parsed, err := UnmarshalMeshSetGrid(raw)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if len(parsed.MeshModules) != 3 {
		t.Fatalf("Expected 3 modules, got %d", len(parsed.MeshModules))
	}
	if parsed.MeshModules[0].HasMeshSet != 0 || parsed.MeshModules[1].HasMeshSet != 1 {
		t.Errorf("Lost module flags: %+v", parsed.MeshModules)
	}
	if parsed.MeshModules[1].MeshSet.MeshStates[0].DrsFile != "building_state0.drs" {
		t.Errorf("Lost module mesh set: %+v", parsed.MeshModules[1].MeshSet)
	}
	if len(parsed.LocatorList.Locators) != 1 || parsed.LocatorList.Locators[0].UkInt != 1 {
		t.Errorf("Lost locator list: %+v", parsed.LocatorList)
	}
	if !bytes.Equal(parsed.Marshal(), raw) {
		t.Errorf("Round trip is not byte identical")
	}
}

func TestMeshSetGridTruncated(t *testing.T) {
	raw := []byte{5, 0, 1}
	if _, err := UnmarshalMeshSetGrid(raw); err == nil {
		t.Errorf("Expected error for truncated payload")
	}
}
