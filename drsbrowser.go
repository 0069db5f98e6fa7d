package main

import (
	"flag"
	"log"
	"path/filepath"
	"strings"

	"github.com/battleforge-tools/drsbrowser/config"
	"github.com/battleforge-tools/drsbrowser/pack/drs"
	"github.com/battleforge-tools/drsbrowser/pack/ska"
	"github.com/battleforge-tools/drsbrowser/utils"
	"github.com/battleforge-tools/drsbrowser/web"

	_ "github.com/battleforge-tools/drsbrowser/pack/drs/anim"
	_ "github.com/battleforge-tools/drsbrowser/pack/drs/fx"
	_ "github.com/battleforge-tools/drsbrowser/pack/drs/geom"
	_ "github.com/battleforge-tools/drsbrowser/pack/drs/grid"
	_ "github.com/battleforge-tools/drsbrowser/pack/drs/loc"
	_ "github.com/battleforge-tools/drsbrowser/pack/drs/mesh"
	_ "github.com/battleforge-tools/drsbrowser/pack/drs/skel"
)

// dumpFile parses one file and spews every record it carries.
func dumpFile(path string) error {
	if strings.ToLower(filepath.Ext(path)) == ".ska" {
		doc, err := ska.Open(path)
		if err != nil {
			return err
		}
		utils.Dump(doc)
		return nil
	}

	f, err := drs.Open(path)
	if err != nil {
		return err
	}
	for _, n := range f.Nodes {
		instance, err := f.Instance(n)
		if err != nil {
			log.Printf("[dump] Failed to parse node %q: %v", n.Name, err)
			continue
		}
		log.Printf("[dump] %s (magic %d, %d bytes)", n.Name, n.Magic, n.Size())
		utils.Dump(instance)
	}
	return nil
}

func main() {
	var addr, dir, cfgPath, dump, encoding string
	var check bool
	flag.StringVar(&addr, "i", "", "Address of server")
	flag.StringVar(&dir, "dir", "", "Path to directory with drs/bmg/bms/ska files")
	flag.StringVar(&cfgPath, "cfg", "drsbrowser.yaml", "Path to yaml config file")
	flag.StringVar(&dump, "dump", "", "Parse one file and dump records to stdout, then exit")
	flag.StringVar(&encoding, "encoding", "", "String encoding of game data (default Windows 1252)")
	flag.BoolVar(&check, "parsecheck", false, "Parse every file in the data directory, then exit")
	flag.Parse()

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	if addr != "" {
		cfg.ListenAddr = addr
	}
	if dir != "" {
		cfg.DataDir = dir
	}
	if encoding != "" {
		if err := config.SetEncoding(encoding); err != nil {
			log.Printf("Unknown encoding, available: %v", config.ListEncodings())
			log.Fatal(err)
		}
	}

	if dump != "" {
		if err := dumpFile(dump); err != nil {
			log.Fatal(err)
		}
		return
	}
	if check {
		parseCheck(cfg.DataDir)
		return
	}

	if err := web.StartServer(cfg.ListenAddr, cfg.DataDir, "web"); err != nil {
		log.Fatal(err)
	}
}
