// SPDX-License-Identifier: MIT
package ffs

import (
	"github.com/usedbytes/log"

	"github.com/hexlace/flash-tools/lib/blob"
)

// Sections within a file are aligned to 4 bytes.
const sectionAlignment = 4

func alignUp(off int64) int64 {
	return (off + sectionAlignment - 1) &^ (sectionAlignment - 1)
}

// WalkSections decodes consecutive sections across src, starting at
// offset 0 and realigning between frames. It stops at the first offset
// where a section can no longer be decoded, or where the declared
// section would run past the end of src, and returns the frames
// decoded so far along with that offset. A tail offset equal to
// src.Len() means the walk consumed the whole source; anything earlier
// is an undecodable tail the caller should treat as opaque data.
func WalkSections(src blob.Source) ([]*Section, int64) {
	var sections []*Section

	off := int64(0)
	for off < src.Len() {
		s, err := DecodeSection(src, off)
		if err != nil {
			log.Verbosef("Section walk stopped at %#x: %v\n", off, err)
			return sections, off
		}

		if off+s.TotalLen() > src.Len() {
			log.Verbosef("Section at %#x overruns its container (%d > %d)\n",
				off, off+s.TotalLen(), src.Len())
			return sections, off
		}

		sections = append(sections, s)
		off = alignUp(off + s.TotalLen())
	}

	return sections, src.Len()
}
