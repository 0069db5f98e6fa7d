package skel

import (
	"github.com/pkg/errors"

	"github.com/battleforge-tools/drsbrowser/bstream"
)

const CSK_SKIN_INFO_VERSION = 40

// VertexWeights holds up to four bone influences for one CGeoMesh vertex,
// highest weight first, zero padded.
type VertexWeights struct {
	Weights     [4]float32
	BoneIndices [4]int32
}

type CSkSkinInfo struct {
	Version    int32
	VertexData []VertexWeights
}

func UnmarshalCSkSkinInfo(data []byte) (*CSkSkinInfo, error) {
	r := bstream.NewReader(data)
	s := &CSkSkinInfo{}
	s.Version = r.ReadI32()

	vertexCount := r.ReadI32()
	if vertexCount < 0 || int(vertexCount)*32 > r.Remaining() {
		return nil, errors.Errorf("Bad vertex count %d", vertexCount)
	}
	s.VertexData = make([]VertexWeights, vertexCount)
	for i := range s.VertexData {
		vw := &s.VertexData[i]
		for j := range vw.Weights {
			vw.Weights[j] = r.ReadF32()
		}
		for j := range vw.BoneIndices {
			vw.BoneIndices[j] = r.ReadI32()
		}
	}

	if err := r.Error(); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse CSkSkinInfo")
	}
	return s, nil
}

func (s *CSkSkinInfo) Marshal() []byte {
	w := bstream.NewWriter()
	w.WriteI32(s.Version)
	w.WriteI32(int32(len(s.VertexData)))
	for i := range s.VertexData {
		vw := &s.VertexData[i]
		for _, weight := range vw.Weights {
			w.WriteF32(weight)
		}
		for _, idx := range vw.BoneIndices {
			w.WriteI32(idx)
		}
	}
	return w.Bytes()
}

func (s *CSkSkinInfo) ByteSize() int {
	return 8 + 32*len(s.VertexData)
}
