package drs

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func buildStaticNoCollision(t *testing.T) *File {
	t.Helper()
	f, err := NewFile(ModelStaticObjectNoCollision)
	if err != nil {
		t.Fatal(err)
	}
	payloads := map[string][]byte{
		"CGeoMesh":        bytes.Repeat([]byte{0x11}, 40),
		"CGeoOBBTree":     bytes.Repeat([]byte{0x22}, 24),
		"CDspJointMap":    bytes.Repeat([]byte{0x33}, 8),
		"CDspMeshFile":    bytes.Repeat([]byte{0x44}, 100),
		"DrwResourceMeta": bytes.Repeat([]byte{0x55}, 32),
	}
	for name, data := range payloads {
		if err := f.SetPayload(name, data); err != nil {
			t.Fatal(err)
		}
	}
	return f
}

func TestMarshalHeaderOffsets(t *testing.T) {
	f := buildStaticNoCollision(t)
	data, err := f.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	magic := int32(binary.LittleEndian.Uint32(data[0:4]))
	if magic != CONTAINER_MAGIC {
		t.Errorf("magic: got %d", magic)
	}
	infoOffset := int32(binary.LittleEndian.Uint32(data[8:12]))
	hierarchyOffset := int32(binary.LittleEndian.Uint32(data[12:16]))
	nodeCount := binary.LittleEndian.Uint32(data[16:20])

	if nodeCount != 6 {
		t.Errorf("node count: got %d", nodeCount)
	}
	// payload region starts at 20, information table right after it
	wantInfo := int32(20 + 40 + 24 + 8 + 100 + 32)
	if infoOffset != wantInfo {
		t.Errorf("info offset: got %d want %d", infoOffset, wantInfo)
	}
	if want := wantInfo + 32 + 5*32; hierarchyOffset != want {
		t.Errorf("hierarchy offset: got %d want %d", hierarchyOffset, want)
	}
}

func TestPayloadLayoutOrder(t *testing.T) {
	f := buildStaticNoCollision(t)
	if _, err := f.Marshal(); err != nil {
		t.Fatal(err)
	}

	// layout order differs from hierarchy order
	wantOrder := []string{"CDspJointMap", "CDspMeshFile", "DrwResourceMeta", "CGeoOBBTree", "CGeoMesh"}
	offset := int32(20)
	for _, name := range wantOrder {
		n := f.NodeByName(name)
		if n.Offset != offset {
			t.Errorf("%s offset: got %d want %d", name, n.Offset, offset)
		}
		offset += n.Size()
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	f := buildStaticNoCollision(t)
	data, err := f.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	g, err := UnmarshalFile(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Nodes) != len(f.Nodes) {
		t.Fatalf("node count: got %d want %d", len(g.Nodes), len(f.Nodes))
	}
	for _, want := range f.Nodes {
		got := g.NodeByName(want.Name)
		if got == nil {
			t.Fatalf("lost node %q", want.Name)
		}
		if got.InfoIndex != want.InfoIndex {
			t.Errorf("%s info index: got %d want %d", want.Name, got.InfoIndex, want.InfoIndex)
		}
		if got.Identifier != want.Identifier {
			t.Errorf("%s identifier: got %d want %d", want.Name, got.Identifier, want.Identifier)
		}
		if !bytes.Equal(got.Data, want.Data) {
			t.Errorf("%s payload differs", want.Name)
		}
	}

	// a parsed file writes back byte-identical
	data2, err := g.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, data2) {
		t.Error("second marshal differs from first")
	}
}

func TestPrimitiveContainerHasNoPayload(t *testing.T) {
	f, err := NewFile(ModelStaticObjectCollision)
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range f.Nodes {
		if n.Name == "CGeoPrimitiveContainer" {
			continue
		}
		if err := f.SetPayload(n.Name, []byte{1, 2, 3, 4}); err != nil {
			t.Fatal(err)
		}
	}
	data, err := f.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	g, err := UnmarshalFile(data)
	if err != nil {
		t.Fatal(err)
	}
	pc := g.NodeByName("CGeoPrimitiveContainer")
	if pc == nil {
		t.Fatal("lost CGeoPrimitiveContainer")
	}
	if pc.Size() != 0 {
		t.Errorf("primitive container size: got %d", pc.Size())
	}
}

func TestUnknownNodeMagicRejected(t *testing.T) {
	f := buildStaticNoCollision(t)
	data, err := f.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	// corrupt the first information entry magic
	infoOffset := binary.LittleEndian.Uint32(data[8:12])
	binary.LittleEndian.PutUint32(data[infoOffset+32:], 0x12345678)
	if _, err := UnmarshalFile(data); err == nil {
		t.Fatal("expected error for unknown node magic")
	}
}

func TestTruncatedHeaderRejected(t *testing.T) {
	if _, err := UnmarshalFile([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated header")
	}
}

func TestBadMagicRejected(t *testing.T) {
	data := make([]byte, 20)
	if _, err := UnmarshalFile(data); err == nil {
		t.Fatal("expected error for wrong container magic")
	}
}
