package skel

import (
	"github.com/pkg/errors"

	"github.com/battleforge-tools/drsbrowser/bstream"
)

const CDSP_JOINT_MAP_VERSION = 1

// JointGroup maps the local joint indices of one render mesh to skeleton
// bone identifiers.
type JointGroup struct {
	Joints []int16
}

type CDspJointMap struct {
	Version     int32
	JointGroups []JointGroup
}

func UnmarshalCDspJointMap(data []byte) (*CDspJointMap, error) {
	r := bstream.NewReader(data)
	m := &CDspJointMap{}
	m.Version = r.ReadI32()

	groupCount := r.ReadI32()
	if groupCount < 0 || int(groupCount)*4 > r.Remaining() {
		return nil, errors.Errorf("Bad joint group count %d", groupCount)
	}
	m.JointGroups = make([]JointGroup, groupCount)
	for i := range m.JointGroups {
		jointCount := r.ReadI32()
		if jointCount < 0 || int(jointCount)*2 > r.Remaining() {
			return nil, errors.Errorf("Bad joint count %d in group %d", jointCount, i)
		}
		joints := make([]int16, jointCount)
		for j := range joints {
			joints[j] = r.ReadI16()
		}
		m.JointGroups[i].Joints = joints
	}

	if err := r.Error(); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse CDspJointMap")
	}
	return m, nil
}

func (m *CDspJointMap) Marshal() []byte {
	w := bstream.NewWriter()
	w.WriteI32(m.Version)
	w.WriteI32(int32(len(m.JointGroups)))
	for i := range m.JointGroups {
		joints := m.JointGroups[i].Joints
		w.WriteI32(int32(len(joints)))
		for _, j := range joints {
			w.WriteI16(j)
		}
	}
	return w.Bytes()
}

func (m *CDspJointMap) ByteSize() int {
	size := 8
	for i := range m.JointGroups {
		size += 4 + 2*len(m.JointGroups[i].Joints)
	}
	return size
}
