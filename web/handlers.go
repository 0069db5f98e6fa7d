package web

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/battleforge-tools/drsbrowser/gen/skeleton"
	"github.com/battleforge-tools/drsbrowser/pack/drs"
	"github.com/battleforge-tools/drsbrowser/pack/drs/mesh"
	"github.com/battleforge-tools/drsbrowser/pack/drs/skel"
	"github.com/battleforge-tools/drsbrowser/pack/ska"
	"github.com/battleforge-tools/drsbrowser/status"
	"github.com/battleforge-tools/drsbrowser/utils/gltfutils"
	"github.com/battleforge-tools/drsbrowser/webutils"
)

var servedExtensions = map[string]bool{
	".drs": true,
	".bmg": true,
	".bms": true,
	".ska": true,
}

var (
	cacheLock      sync.Mutex
	containerCache = make(map[string]*drs.File)
)

func dataFilePath(name string) (string, error) {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("Invalid file name %q", name)
	}
	return filepath.Join(ServerDataDir, name), nil
}

func openContainer(name string) (*drs.File, error) {
	cacheLock.Lock()
	defer cacheLock.Unlock()
	if f, ok := containerCache[name]; ok {
		return f, nil
	}

	fpath, err := dataFilePath(name)
	if err != nil {
		return nil, err
	}
	f, err := drs.Open(fpath)
	if err != nil {
		return nil, err
	}
	containerCache[name] = f
	return f, nil
}

func evictContainer(name string) {
	cacheLock.Lock()
	defer cacheLock.Unlock()
	delete(containerCache, name)
}

func HandlerAjaxPack(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(ServerDataDir)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if servedExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	webutils.WriteJson(w, files)
}

func HandlerAjaxPackFile(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]

	if strings.ToLower(filepath.Ext(file)) == ".ska" {
		fpath, err := dataFilePath(file)
		if err != nil {
			webutils.WriteError(w, err)
			return
		}
		doc, err := ska.Open(fpath)
		if err != nil {
			log.Printf("[web] Error parsing %q: %v", file, err)
			webutils.WriteError(w, err)
			return
		}
		webutils.WriteJson(w, doc)
		return
	}

	f, err := openContainer(file)
	if err != nil {
		log.Printf("[web] Error parsing %q: %v", file, err)
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteJson(w, f)
}

func HandlerAjaxPackFileNode(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	node := mux.Vars(r)["node"]

	f, err := openContainer(file)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	instance, err := f.InstanceByName(node)
	if err != nil {
		log.Printf("[web] Error parsing node %q of %q: %v", node, file, err)
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteJson(w, instance)
}

func HandlerDumpPackFile(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]

	fpath, err := dataFilePath(file)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	f, err := os.Open(fpath)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	defer f.Close()
	webutils.WriteFile(w, f, file)
}

func HandlerDumpPackFileNode(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	node := mux.Vars(r)["node"]

	f, err := openContainer(file)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	n := f.NodeByName(node)
	if n == nil {
		webutils.WriteError(w, fmt.Errorf("No node %q in %q", node, file))
		return
	}
	webutils.WriteFile(w, bytes.NewReader(n.Data), fmt.Sprintf("%s.%s.bin", file, node))
}

func HandlerActionPackFileNode(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	node := mux.Vars(r)["node"]
	action := mux.Vars(r)["action"]

	f, err := openContainer(file)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	instance, err := f.InstanceByName(node)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	exportName := strings.TrimSuffix(file, filepath.Ext(file))

	switch action {
	case "asjson":
		webutils.WriteJsonFile(w, instance, fmt.Sprintf("%s.%s", file, node))
	case "asyaml":
		webutils.WriteYamlFile(w, instance, fmt.Sprintf("%s.%s", file, node))
	case "gltf":
		switch data := instance.(type) {
		case *mesh.CDspMeshFile:
			doc, err := data.ExportGLTFDefault(exportName)
			if err != nil {
				webutils.WriteError(w, err)
				return
			}
			webutils.WriteFileHeaders(w, exportName+".glb")
			if err := gltfutils.ExportBinary(w, doc); err != nil {
				log.Printf("[web] Error exporting %q as gltf: %v", file, err)
			}
		case *skel.CSkSkeleton:
			root, err := skeleton.Delinearize(data)
			if err != nil {
				webutils.WriteError(w, err)
				return
			}
			gltfCacher := gltfutils.NewCacher()
			root.ExportGLTF(exportName, gltfCacher)
			webutils.WriteFileHeaders(w, exportName+".skeleton.glb")
			if err := gltfutils.ExportBinary(w, gltfCacher.Doc); err != nil {
				log.Printf("[web] Error exporting %q as gltf: %v", file, err)
			}
		default:
			webutils.WriteError(w, fmt.Errorf("Node %q has no gltf export", node))
		}
	case "fbx":
		data, ok := instance.(*mesh.CDspMeshFile)
		if !ok {
			webutils.WriteError(w, fmt.Errorf("Node %q has no fbx export", node))
			return
		}
		webutils.WriteFileHeaders(w, exportName+".fbx")
		if err := data.ExportFbxDefault(w, exportName); err != nil {
			log.Printf("[web] Error exporting %q as fbx: %v", file, err)
		}
	default:
		webutils.WriteError(w, fmt.Errorf("Unknown action %q", action))
	}
}

func HandlerUploadPackFileNode(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	node := mux.Vars(r)["node"]

	fileStream, _, err := r.FormFile("data")
	if err != nil {
		webutils.WriteError(w, fmt.Errorf("File stream getting error: %v", err))
		return
	}
	defer fileStream.Close()

	payload, err := ioutil.ReadAll(fileStream)
	if err != nil {
		webutils.WriteError(w, fmt.Errorf("Reading file error: %v", err))
		return
	}

	f, err := openContainer(file)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	if err := f.SetPayload(node, payload); err != nil {
		webutils.WriteError(w, err)
		return
	}

	fpath, err := dataFilePath(file)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	if err := f.Save(fpath); err != nil {
		evictContainer(file)
		webutils.WriteError(w, fmt.Errorf("Error when updating container: %v", err))
		return
	}
	status.Info("Updated node %q of %q (%d bytes)", node, file, len(payload))
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func HandlerWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[web] ws upgrade error: %v", err)
		return
	}
	status.Subscribe(conn)
}
