package skel

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/battleforge-tools/drsbrowser/bstream"
	"github.com/battleforge-tools/drsbrowser/pack/drs"
)

const (
	CSK_SKELETON_MAGIC   = 1558308612
	CSK_SKELETON_VERSION = 3
)

// BoneVertex is one row of a decomposed bind matrix plus the parent bone
// index of the owning bone.
type BoneVertex struct {
	Position mgl32.Vec3
	Parent   int32
}

// BoneMatrix packs a bind pose as four BoneVertex entries: three rotation
// rows followed by the negated, rotated translation.
type BoneMatrix struct {
	BoneVertices [4]BoneVertex
}

// Bone is one hierarchy entry. Version doubles as the animation key the
// game sorts bones by when binding SKA channels.
type Bone struct {
	Version    uint32
	Identifier int32
	Name       string
	Children   []int32
}

func (b *Bone) byteSize() int {
	return 12 + len(b.Name) + 4 + 4*len(b.Children)
}

type CSkSkeleton struct {
	Magic        int32
	Version      int32
	BoneMatrices []BoneMatrix
	Bones        []Bone
	SuperParent  mgl32.Mat4
}

func UnmarshalCSkSkeleton(data []byte) (*CSkSkeleton, error) {
	r := bstream.NewReader(data)
	s := &CSkSkeleton{}
	s.Magic = r.ReadI32()
	s.Version = r.ReadI32()

	matrixCount := r.ReadI32()
	if matrixCount < 0 || int(matrixCount)*64 > r.Remaining() {
		return nil, errors.Errorf("Bad bone matrix count %d", matrixCount)
	}
	s.BoneMatrices = make([]BoneMatrix, matrixCount)
	for i := range s.BoneMatrices {
		for j := range s.BoneMatrices[i].BoneVertices {
			bv := &s.BoneMatrices[i].BoneVertices[j]
			bv.Position = r.ReadVec3()
			bv.Parent = r.ReadI32()
		}
	}

	boneCount := r.ReadI32()
	if boneCount < 0 || int(boneCount)*16 > r.Remaining() {
		return nil, errors.Errorf("Bad bone count %d", boneCount)
	}
	s.Bones = make([]Bone, boneCount)
	for i := range s.Bones {
		b := &s.Bones[i]
		b.Version = r.ReadU32()
		b.Identifier = r.ReadI32()
		b.Name = r.ReadLString()
		childCount := r.ReadI32()
		if childCount < 0 || int(childCount)*4 > r.Remaining() {
			return nil, errors.Errorf("Bone %q has bad child count %d", b.Name, childCount)
		}
		b.Children = make([]int32, childCount)
		for j := range b.Children {
			b.Children[j] = r.ReadI32()
		}
	}

	s.SuperParent = r.ReadMat4()

	if err := r.Error(); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse CSkSkeleton")
	}
	return s, nil
}

func (s *CSkSkeleton) Marshal() []byte {
	w := bstream.NewWriter()
	w.WriteI32(s.Magic)
	w.WriteI32(s.Version)
	w.WriteI32(int32(len(s.BoneMatrices)))
	for i := range s.BoneMatrices {
		for j := range s.BoneMatrices[i].BoneVertices {
			bv := &s.BoneMatrices[i].BoneVertices[j]
			w.WriteVec3(bv.Position)
			w.WriteI32(bv.Parent)
		}
	}
	w.WriteI32(int32(len(s.Bones)))
	for i := range s.Bones {
		b := &s.Bones[i]
		w.WriteU32(b.Version)
		w.WriteI32(b.Identifier)
		w.WriteLString(b.Name)
		w.WriteI32(int32(len(b.Children)))
		for _, c := range b.Children {
			w.WriteI32(c)
		}
	}
	w.WriteMat4(s.SuperParent)
	return w.Bytes()
}

func (s *CSkSkeleton) ByteSize() int {
	size := 16 + 64*len(s.BoneMatrices) + 64
	for i := range s.Bones {
		size += s.Bones[i].byteSize()
	}
	return size
}

func init() {
	drs.SetHandler(drs.MAGIC_CSK_SKELETON, func(data []byte) (interface{}, error) {
		return UnmarshalCSkSkeleton(data)
	})
	drs.SetHandler(drs.MAGIC_CSK_SKIN_INFO, func(data []byte) (interface{}, error) {
		return UnmarshalCSkSkinInfo(data)
	})
	drs.SetHandler(drs.MAGIC_CDSP_JOINT_MAP, func(data []byte) (interface{}, error) {
		return UnmarshalCDspJointMap(data)
	})
}
