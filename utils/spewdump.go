package utils

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
)

var spewConfig = &spew.ConfigState{
	Indent:            " ",
	DisableCapacities: true,
	SortKeys:          true,
}

// Dump prints records to stdout for the -dump inspection mode.
func Dump(a ...interface{}) {
	fmt.Println(spewConfig.Sdump(a...))
}

func SDump(a ...interface{}) string {
	return spewConfig.Sdump(a...)
}

// DumpToOneLineString renders a payload preview with non-printable
// bytes escaped.
func DumpToOneLineString(buf []byte) string {
	out := make([]byte, 0, len(buf))
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7f {
			out = append(out, b)
		} else {
			out = append(out, fmt.Sprintf("\\x%.2x", b)...)
		}
	}
	return string(out)
}
