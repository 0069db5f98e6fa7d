package config

import (
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// Asset names predate unicode. BattleForge shipped for western locales,
// so Windows-1252 is the default codepage.
var currentCharMap = charmap.Windows1252

var knownCharMaps = func() map[string]*charmap.Charmap {
	m := make(map[string]*charmap.Charmap)
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			m[cm.String()] = cm
		}
	}
	return m
}()

func SetEncoding(name string) error {
	cm, ok := knownCharMaps[name]
	if !ok {
		return errors.Errorf("Failed to find encoding %q", name)
	}
	currentCharMap = cm
	return nil
}

func ListEncodings() []string {
	list := make([]string, 0, len(knownCharMaps))
	for name := range knownCharMaps {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}

func GetEncoding() *charmap.Charmap {
	return currentCharMap
}
