package drs

import (
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/battleforge-tools/drsbrowser/bstream"
)

// ModelKind selects which nodes a constructed container carries and in
// which order their payloads are laid out. The game only accepts these
// five layouts.
type ModelKind int

const (
	ModelAnimatedUnit ModelKind = iota
	ModelStaticObjectCollision
	ModelStaticObjectNoCollision
	ModelAnimatedObjectNoCollision
	ModelAnimatedObjectCollision
)

func (k ModelKind) String() string {
	switch k {
	case ModelAnimatedUnit:
		return "AnimatedUnit"
	case ModelStaticObjectCollision:
		return "StaticObjectCollision"
	case ModelStaticObjectNoCollision:
		return "StaticObjectNoCollision"
	case ModelAnimatedObjectNoCollision:
		return "AnimatedObjectNoCollision"
	case ModelAnimatedObjectCollision:
		return "AnimatedObjectCollision"
	}
	return "Unknown"
}

// kindNodes lists hierarchy nodes in table order together with the
// information-table slot each one occupies.
var kindNodes = map[ModelKind][]struct {
	Name      string
	InfoIndex int32
}{
	ModelAnimatedUnit: {
		{"CGeoMesh", 1}, {"CGeoOBBTree", 8}, {"CDspJointMap", 7},
		{"CSkSkinInfo", 9}, {"CSkSkeleton", 4}, {"CDspMeshFile", 5},
		{"CDrwLocatorList", 3}, {"DrwResourceMeta", 11},
		{"AnimationSet", 10}, {"AnimationTimings", 6}, {"EffectSet", 2},
	},
	ModelStaticObjectCollision: {
		{"CGeoMesh", 1}, {"CGeoOBBTree", 5}, {"CDspJointMap", 4},
		{"CDspMeshFile", 3}, {"DrwResourceMeta", 6},
		{"CGeoPrimitiveContainer", 2}, {"collisionShape", 7},
	},
	ModelStaticObjectNoCollision: {
		{"CGeoMesh", 1}, {"CGeoOBBTree", 4}, {"CDspJointMap", 3},
		{"CDspMeshFile", 2}, {"DrwResourceMeta", 5},
	},
	ModelAnimatedObjectNoCollision: {
		{"CGeoMesh", 1}, {"CGeoOBBTree", 6}, {"CDspJointMap", 5},
		{"CSkSkinInfo", 7}, {"CSkSkeleton", 2}, {"CDspMeshFile", 3},
		{"DrwResourceMeta", 9}, {"AnimationSet", 8}, {"AnimationTimings", 4},
	},
	ModelAnimatedObjectCollision: {
		{"CGeoMesh", 1}, {"CGeoOBBTree", 7}, {"CDspJointMap", 6},
		{"CSkSkinInfo", 8}, {"CSkSkeleton", 3}, {"CDspMeshFile", 4},
		{"DrwResourceMeta", 10}, {"AnimationSet", 9}, {"AnimationTimings", 5},
		{"CGeoPrimitiveContainer", 2}, {"collisionShape", 11},
	},
}

// kindWriteOrder lists payload layout order. It differs from both the
// hierarchy order and the information-table order.
var kindWriteOrder = map[ModelKind][]string{
	ModelAnimatedUnit: {
		"CDspJointMap", "CSkSkinInfo", "CSkSkeleton", "CDspMeshFile",
		"CDrwLocatorList", "DrwResourceMeta", "CGeoOBBTree", "CGeoMesh",
		"AnimationSet", "AnimationTimings", "EffectSet",
	},
	ModelStaticObjectCollision: {
		"CDspJointMap", "CDspMeshFile", "DrwResourceMeta",
		"CGeoPrimitiveContainer", "CGeoOBBTree", "CGeoMesh", "collisionShape",
	},
	ModelStaticObjectNoCollision: {
		"CDspJointMap", "CDspMeshFile", "DrwResourceMeta", "CGeoOBBTree",
		"CGeoMesh",
	},
	ModelAnimatedObjectNoCollision: {
		"CDspJointMap", "CSkSkinInfo", "CSkSkeleton", "CDspMeshFile",
		"DrwResourceMeta", "CGeoOBBTree", "CGeoMesh", "AnimationSet",
		"AnimationTimings",
	},
	ModelAnimatedObjectCollision: {
		"CDspJointMap", "CSkSkinInfo", "CSkSkeleton", "CDspMeshFile",
		"DrwResourceMeta", "CGeoPrimitiveContainer", "CGeoOBBTree", "CGeoMesh",
		"AnimationSet", "AnimationTimings", "collisionShape",
	},
}

// NewFile creates an empty container with the node set of the given kind.
// Payloads are filled in with SetPayload before Marshal.
func NewFile(kind ModelKind) (*File, error) {
	nodes, ok := kindNodes[kind]
	if !ok {
		return nil, errors.Errorf("Unknown model kind %d", int(kind))
	}

	f := &File{
		ModelCount: 1,
		RootName:   ROOT_NODE_NAME,
		kind:       kind,
		hasKind:    true,
	}
	for i, kn := range nodes {
		f.Nodes = append(f.Nodes, &Node{
			Name:       kn.Name,
			InfoIndex:  kn.InfoIndex,
			Magic:      gNodeMagics[kn.Name],
			Identifier: int32(i) + 1,
			Offset:     -1,
		})
	}
	return f, nil
}

func (f *File) Kind() (ModelKind, bool) { return f.kind, f.hasKind }

// writeOrder returns payloads in layout order: the kind table for
// constructed files, original file order for parsed ones.
func (f *File) writeOrder() ([]*Node, error) {
	if f.hasKind {
		order := kindWriteOrder[f.kind]
		nodes := make([]*Node, 0, len(order))
		for _, name := range order {
			n := f.NodeByName(name)
			if n == nil {
				return nil, errors.Errorf("Container of kind %v lost its %q node", f.kind, name)
			}
			nodes = append(nodes, n)
		}
		return nodes, nil
	}

	nodes := make([]*Node, len(f.Nodes))
	copy(nodes, f.Nodes)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Offset < nodes[j].Offset })
	return nodes, nil
}

// Marshal lays the container out: 20 byte header, payloads, node
// information table, node hierarchy. Offsets in the information table are
// recomputed from payload sizes, never reused from a previous read.
func (f *File) Marshal() ([]byte, error) {
	ordered, err := f.writeOrder()
	if err != nil {
		return nil, err
	}
	nodeCount := len(f.Nodes) + 1

	bySlot := make(map[int32]*Node, len(f.Nodes))
	for _, n := range f.Nodes {
		if n.InfoIndex < 1 || int(n.InfoIndex) >= nodeCount {
			return nil, errors.Errorf("Node %q has info index %d outside of table", n.Name, n.InfoIndex)
		}
		if prev := bySlot[n.InfoIndex]; prev != nil {
			return nil, errors.Errorf("Nodes %q and %q share info index %d", prev.Name, n.Name, n.InfoIndex)
		}
		bySlot[n.InfoIndex] = n
	}

	dataOffset := int32(20)
	for _, n := range ordered {
		n.Offset = dataOffset
		dataOffset += n.Size()
	}
	infoOffset := dataOffset
	hierarchyOffset := infoOffset + 32 + int32(nodeCount-1)*32

	w := bstream.NewWriter()
	w.WriteI32(CONTAINER_MAGIC)
	w.WriteI32(f.ModelCount)
	w.WriteI32(infoOffset)
	w.WriteI32(hierarchyOffset)
	w.WriteU32(uint32(nodeCount))

	for _, n := range ordered {
		w.WriteBytes(n.Data)
	}

	// root information entry
	w.WriteBytes(make([]byte, 16))
	w.WriteI32(-1)
	w.WriteI32(1)
	w.WriteI32(int32(nodeCount - 1))
	w.WriteI32(0)

	for slot := int32(1); slot < int32(nodeCount); slot++ {
		n := bySlot[slot]
		if n == nil {
			return nil, errors.Errorf("No node for info index %d", slot)
		}
		w.WriteI32(n.Magic)
		w.WriteI32(n.Identifier)
		w.WriteI32(n.Offset)
		w.WriteI32(n.Size())
		w.WriteBytes(make([]byte, 16))
	}

	rootName := f.RootName
	if rootName == "" {
		rootName = ROOT_NODE_NAME
	}
	w.WriteI32(0)
	w.WriteI32(0)
	w.WriteLString(rootName)
	for _, n := range f.Nodes {
		w.WriteI32(n.InfoIndex)
		w.WriteLString(n.Name)
		w.WriteI32(0)
	}

	return w.Bytes(), nil
}

func (f *File) Save(path string) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "Failed to write %q", path)
	}
	return nil
}
