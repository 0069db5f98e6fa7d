package utils

import (
	"bytes"

	"golang.org/x/text/transform"

	"github.com/battleforge-tools/drsbrowser/config"
)

// BytesToString decodes a possibly NUL-padded byte field using the
// configured charmap. Asset names in the wild carry Windows-1252 bytes.
func BytesToString(bs []byte) string {
	n := bytes.IndexByte(bs, 0)
	if n < 0 {
		n = len(bs)
	}

	s, _, err := transform.Bytes(config.GetEncoding().NewDecoder(), bs[:n])
	if err != nil {
		panic(err)
	}

	return string(s)
}

// StringToBytes encodes back through the configured charmap, so a
// decode/encode round trip reproduces the original bytes.
func StringToBytes(s string, nilTerminate bool) []byte {
	bs, _, err := transform.Bytes(config.GetEncoding().NewEncoder(), []byte(s))
	if err != nil {
		panic(err)
	}

	if nilTerminate {
		bs = append(bs, 0)
	}
	return bs
}
