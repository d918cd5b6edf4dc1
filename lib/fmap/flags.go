// SPDX-License-Identifier: MIT
package fmap

import (
	"fmt"
	"strings"
)

// Area flag bits.
const (
	FlagStatic     uint16 = 1 << 0
	FlagCompressed uint16 = 1 << 1
	FlagRO         uint16 = 1 << 2
	FlagPreserve   uint16 = 1 << 3
)

var flagNames = []struct {
	bit  uint16
	name string
}{
	{FlagStatic, "static"},
	{FlagCompressed, "compressed"},
	{FlagRO, "ro"},
	{FlagPreserve, "preserve"},
}

// FlagString names the set bits of an area's flags. Unknown bits are
// reported numerically rather than dropped.
func FlagString(flags uint16) string {
	if flags == 0 {
		return "none"
	}

	var names []string
	for _, f := range flagNames {
		if flags&f.bit != 0 {
			names = append(names, f.name)
			flags &^= f.bit
		}
	}
	if flags != 0 {
		names = append(names, fmt.Sprintf("0x%04x", flags))
	}

	return strings.Join(names, ",")
}
