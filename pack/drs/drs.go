package drs

import (
	"os"

	"github.com/pkg/errors"

	"github.com/battleforge-tools/drsbrowser/bstream"
)

const CONTAINER_MAGIC = -981667554

const ROOT_NODE_NAME = "root node"

// Node magics, as they appear in node information entries.
const (
	MAGIC_CDSP_JOINT_MAP           = -1340635850
	MAGIC_CGEO_MESH                = 100449016
	MAGIC_CGEO_OBB_TREE            = -933519637
	MAGIC_CSK_SKIN_INFO            = -761174227
	MAGIC_CDSP_MESH_FILE           = -1900395636
	MAGIC_DRW_RESOURCE_META        = -183033339
	MAGIC_COLLISION_SHAPE          = 268607026
	MAGIC_CGEO_PRIMITIVE_CONTAINER = 1396683476
	MAGIC_CSK_SKELETON             = -2110567991
	MAGIC_CDRW_LOCATOR_LIST        = 735146985
	MAGIC_CGD_LOCATOR_LIST         = -196433635
	MAGIC_ANIMATION_SET            = -475734043
	MAGIC_ANIMATION_TIMINGS        = -1403092629
	MAGIC_EFFECT_SET               = 688490554
	MAGIC_FX_MASTER                = -1424862619
	MAGIC_MESH_SET_GRID            = 154295579
	MAGIC_STATE_BASED_MESH_SET     = 120902304
)

// gNodeNames maps a node magic to the name stored in the hierarchy table.
// collisionShape really is lowercase in the files.
var gNodeNames = map[int32]string{
	MAGIC_CDSP_JOINT_MAP:           "CDspJointMap",
	MAGIC_CGEO_MESH:                "CGeoMesh",
	MAGIC_CGEO_OBB_TREE:            "CGeoOBBTree",
	MAGIC_CSK_SKIN_INFO:            "CSkSkinInfo",
	MAGIC_CDSP_MESH_FILE:           "CDspMeshFile",
	MAGIC_DRW_RESOURCE_META:        "DrwResourceMeta",
	MAGIC_COLLISION_SHAPE:          "collisionShape",
	MAGIC_CGEO_PRIMITIVE_CONTAINER: "CGeoPrimitiveContainer",
	MAGIC_CSK_SKELETON:             "CSkSkeleton",
	MAGIC_CDRW_LOCATOR_LIST:        "CDrwLocatorList",
	MAGIC_CGD_LOCATOR_LIST:         "CGdLocatorList",
	MAGIC_ANIMATION_SET:            "AnimationSet",
	MAGIC_ANIMATION_TIMINGS:        "AnimationTimings",
	MAGIC_EFFECT_SET:               "EffectSet",
	MAGIC_FX_MASTER:                "FxMaster",
	MAGIC_MESH_SET_GRID:            "MeshSetGrid",
	MAGIC_STATE_BASED_MESH_SET:     "StateBasedMeshSet",
}

var gNodeMagics = func() map[string]int32 {
	m := make(map[string]int32, len(gNodeNames))
	for magic, name := range gNodeNames {
		m[name] = magic
	}
	return m
}()

func NodeNameByMagic(magic int32) (string, bool) {
	name, ok := gNodeNames[magic]
	return name, ok
}

func NodeMagicByName(name string) (int32, bool) {
	magic, ok := gNodeMagics[name]
	return magic, ok
}

// Node joins one hierarchy entry with its node information entry. The raw
// payload is kept as read; typed access goes through Instance.
type Node struct {
	Name       string
	InfoIndex  int32
	Magic      int32
	Identifier int32
	Offset     int32       // payload offset as read, -1 for constructed files
	Data       []byte      `json:"-"`
	Cache      interface{} `json:"-"`
}

func (n *Node) Size() int32 { return int32(len(n.Data)) }

// File is a DRS/BMS/BMG container: a flat set of named nodes, each backed
// by one record payload. Node order follows the hierarchy table.
type File struct {
	ModelCount int32
	RootName   string
	Nodes      []*Node

	kind    ModelKind
	hasKind bool
}

func (f *File) NodeByName(name string) *Node {
	for _, n := range f.Nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

func (f *File) NodeByMagic(magic int32) *Node {
	for _, n := range f.Nodes {
		if n.Magic == magic {
			return n
		}
	}
	return nil
}

// SetPayload replaces the payload of the named node.
func (f *File) SetPayload(name string, data []byte) error {
	n := f.NodeByName(name)
	if n == nil {
		return errors.Errorf("No node %q in container", name)
	}
	n.Data = data
	n.Cache = nil
	return nil
}

func UnmarshalFile(data []byte) (*File, error) {
	hdr := bstream.NewReader(data)
	magic := hdr.ReadI32()
	modelCount := hdr.ReadI32()
	infoOffset := hdr.ReadI32()
	hierarchyOffset := hdr.ReadI32()
	nodeCount := hdr.ReadU32()
	if err := hdr.Error(); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse container header")
	}
	if magic != CONTAINER_MAGIC || nodeCount < 1 {
		return nil, errors.Errorf("Not a model container: magic %d, node count %d", magic, nodeCount)
	}

	f := &File{ModelCount: modelCount}

	// node information table: root entry, then one entry per node
	ir := bstream.NewReader(data)
	ir.SetPos(int(infoOffset))
	ir.Skip(16) // root spacer
	rootNegOne := ir.ReadI32()
	rootOne := ir.ReadI32()
	infoCount := ir.ReadI32()
	ir.Skip(4)
	if err := ir.Error(); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse root node information")
	}
	if rootNegOne != -1 || rootOne != 1 || infoCount != int32(nodeCount)-1 {
		return nil, errors.Errorf("Malformed root node information: %d %d %d", rootNegOne, rootOne, infoCount)
	}

	type nodeInfo struct {
		magic      int32
		identifier int32
		offset     int32
		size       int32
	}
	infos := make([]nodeInfo, nodeCount) // [0] stays zero for the root slot
	for i := uint32(1); i < nodeCount; i++ {
		ni := nodeInfo{
			magic:      ir.ReadI32(),
			identifier: ir.ReadI32(),
			offset:     ir.ReadI32(),
			size:       ir.ReadI32(),
		}
		ir.Skip(16)
		if err := ir.Error(); err != nil {
			return nil, errors.Wrapf(err, "Failed to parse node information %d", i)
		}
		if _, known := gNodeNames[ni.magic]; !known {
			return nil, errors.Errorf("Unknown node magic %d", ni.magic)
		}
		infos[i] = ni
	}

	// hierarchy table: root node, then named nodes pointing into the
	// information table
	hr := bstream.NewReader(data)
	hr.SetPos(int(hierarchyOffset))
	hr.Skip(8) // root identifier + unknown
	f.RootName = hr.ReadLString()
	if err := hr.Error(); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse root node")
	}

	for i := uint32(1); i < nodeCount; i++ {
		infoIndex := hr.ReadI32()
		name := hr.ReadLString()
		hr.Skip(4)
		if err := hr.Error(); err != nil {
			return nil, errors.Wrapf(err, "Failed to parse hierarchy node %d", i)
		}
		if infoIndex < 1 || infoIndex >= int32(nodeCount) {
			return nil, errors.Errorf("Node %q has info index %d outside of table", name, infoIndex)
		}
		if _, known := gNodeMagics[name]; !known {
			return nil, errors.Errorf("Unknown node %q", name)
		}
		ni := infos[infoIndex]
		if want := gNodeNames[ni.magic]; want != name {
			return nil, errors.Errorf("Node %q points at %s information entry", name, want)
		}

		if ni.offset < 0 || ni.size < 0 || int(ni.offset)+int(ni.size) > len(data) {
			return nil, errors.Errorf("Node %q payload [0x%x:+0x%x] outside of file", name, ni.offset, ni.size)
		}
		payload := make([]byte, ni.size)
		copy(payload, data[ni.offset:int(ni.offset)+int(ni.size)])

		f.Nodes = append(f.Nodes, &Node{
			Name:       name,
			InfoIndex:  infoIndex,
			Magic:      ni.magic,
			Identifier: ni.identifier,
			Offset:     ni.offset,
			Data:       payload,
		})
	}

	return f, nil
}

func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read %q", path)
	}
	f, err := UnmarshalFile(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to parse %q", path)
	}
	return f, nil
}
