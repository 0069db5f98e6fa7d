package main

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/battleforge-tools/drsbrowser/pack/drs"
	"github.com/battleforge-tools/drsbrowser/pack/ska"
	"github.com/battleforge-tools/drsbrowser/utils"
)

// parseCheck walks the data directory and tries to parse every record of
// every supported file, logging whatever fails. Useful against a full
// game extract to find codec gaps.
func parseCheck(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatal(err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	checked, failed := 0, 0
	for _, name := range names {
		fpath := filepath.Join(dir, name)

		switch strings.ToLower(filepath.Ext(name)) {
		case ".ska":
			checked++
			doc, err := ska.Open(fpath)
			if err != nil {
				failed++
				log.Printf("E %s: %v", name, err)
				continue
			}
			if err := doc.Validate(); err != nil {
				failed++
				log.Printf("E %s: %v", name, err)
			}
		case ".drs", ".bmg", ".bms":
			checked++
			f, err := drs.Open(fpath)
			if err != nil {
				failed++
				log.Printf("E %s: %v", name, err)
				continue
			}

			seen := make(map[int32]string)
			for _, n := range f.Nodes {
				if other, ok := seen[n.Identifier]; ok {
					log.Printf("Conflicting identifier %q [%d:%q] [%d:%q]",
						name, n.Identifier, n.Name, n.Identifier, other)
				}
				seen[n.Identifier] = n.Name

				if _, err := f.Instance(n); err != nil {
					failed++
					head := n.Data
					if len(head) > 16 {
						head = head[:16]
					}
					log.Printf("E %s %s: %v (payload %s)", name, n.Name, err, utils.DumpToOneLineString(head))
				}
			}
		}
	}

	log.Printf("Parse check done: %d files, %d failures", checked, failed)
}
