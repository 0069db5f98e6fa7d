// Package webutils holds response helpers shared by the viewer
// handlers: JSON/YAML bodies, file downloads, uniform error replies.
package webutils

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

func WriteFileHeaders(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
}

func WriteFile(w http.ResponseWriter, in io.Reader, name string) {
	WriteFileHeaders(w, name)
	io.Copy(w, in)
}

func WriteJson(w http.ResponseWriter, data interface{}) {
	res, err := json.Marshal(data)
	if err != nil {
		WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	WriteResult(w, res)
}

// WriteJsonFile serves the value as a downloadable indented json file.
func WriteJsonFile(w http.ResponseWriter, v interface{}, fileName string) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		WriteError(w, errors.Wrapf(err, "Failed to marshal"))
		return
	}
	WriteFile(w, bytes.NewReader(data), fileName+".json")
}

// WriteYamlFile serves the value as a downloadable yaml file.
func WriteYamlFile(w http.ResponseWriter, v interface{}, fileName string) {
	data, err := yaml.Marshal(v)
	if err != nil {
		WriteError(w, errors.Wrapf(err, "Failed to marshal"))
		return
	}
	WriteFile(w, bytes.NewReader(data), fileName+".yaml")
}

func WriteResult(w http.ResponseWriter, data []byte) {
	if _, err := w.Write(data); err != nil {
		log.Printf("[webutils] Error writing response: %v", err)
	}
}

func WriteError(w http.ResponseWriter, err error) {
	type jError struct {
		Error string `json:"error"`
	}
	data, merr := json.Marshal(&jError{Error: err.Error()})
	if merr != nil {
		log.Printf("[webutils] Error marshaling error %q: %v", err, merr)
		return
	}
	log.Printf("[webutils] Request failed: %v", err)
	w.Header().Set("Content-Type", "application/json")
	WriteResult(w, data)
}
