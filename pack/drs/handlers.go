package drs

import (
	"github.com/pkg/errors"
)

// RecordLoader parses one node payload into its record type. Record
// packages register themselves by magic from init.
type RecordLoader func(data []byte) (interface{}, error)

var gHandlers = make(map[int32]RecordLoader)

func SetHandler(magic int32, ldr RecordLoader) {
	gHandlers[magic] = ldr
}

// Instance parses the node payload through its registered handler and
// caches the result on the node.
func (f *File) Instance(n *Node) (interface{}, error) {
	if n.Cache != nil {
		return n.Cache, nil
	}
	h, ok := gHandlers[n.Magic]
	if !ok {
		return nil, errors.Errorf("No handler for node %q (magic %d)", n.Name, n.Magic)
	}
	instance, err := h(n.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "Handler for %q failed", n.Name)
	}
	n.Cache = instance
	return instance, nil
}

func (f *File) InstanceByName(name string) (interface{}, error) {
	n := f.NodeByName(name)
	if n == nil {
		return nil, errors.Errorf("No node %q in container", name)
	}
	return f.Instance(n)
}
