package gltfutils

import (
	"io"

	"github.com/qmuntal/gltf"
)

// GLTFCacher wraps one document under construction with a cache of
// already-exported records keyed by node name, so records shared
// between model kinds are emitted once.
type GLTFCacher struct {
	Doc   *gltf.Document
	cache map[string]interface{}
}

func NewCacher() *GLTFCacher {
	return &GLTFCacher{
		Doc:   gltf.NewDocument(),
		cache: make(map[string]interface{}),
	}
}

func (gc *GLTFCacher) AddCache(name string, d interface{}) {
	gc.cache[name] = d
}

func (gc *GLTFCacher) GetCached(name string) interface{} {
	return gc.cache[name]
}

// ExportBinary links every parentless node into the default scene and
// writes the document as GLB.
func ExportBinary(w io.Writer, doc *gltf.Document) error {
	hasParent := make(map[uint32]bool)
	for _, node := range doc.Nodes {
		for _, child := range node.Children {
			hasParent[child] = true
		}
	}

	doc.Scenes[0].Nodes = doc.Scenes[0].Nodes[:0]
	for iNode := range doc.Nodes {
		if !hasParent[uint32(iNode)] {
			doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(iNode))
		}
	}

	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}
