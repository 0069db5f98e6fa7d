package web

import (
	"log"
	"net/http"
	"os"
	"path"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// ServerDataDir is the directory holding the DRS/BMG/BMS/SKA files the
// viewer serves.
var ServerDataDir string

func StartServer(addr string, dataDir string, webPath string) error {
	ServerDataDir = dataDir

	r := mux.NewRouter()
	r.HandleFunc("/action/{file}/{node}/{action}", HandlerActionPackFileNode)
	r.HandleFunc("/json/pack/{file}/{node}", HandlerAjaxPackFileNode)
	r.HandleFunc("/json/pack/{file}", HandlerAjaxPackFile)
	r.HandleFunc("/json/pack", HandlerAjaxPack)
	r.HandleFunc("/dump/pack/{file}/{node}", HandlerDumpPackFileNode)
	r.HandleFunc("/dump/pack/{file}", HandlerDumpPackFile)
	r.HandleFunc("/upload/pack/{file}/{node}", HandlerUploadPackFileNode)
	r.HandleFunc("/ws", HandlerWebsocket)

	r.PathPrefix("/").Handler(http.FileServer(http.Dir(path.Join(webPath, "data"))))

	h := handlers.RecoveryHandler()(r)
	h = handlers.LoggingHandler(os.Stdout, h)

	log.Printf("[web] Starting server %v", addr)

	return http.ListenAndServe(addr, h)
}
