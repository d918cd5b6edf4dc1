// SPDX-License-Identifier: MIT

// Package ffs decodes the common UEFI Firmware File System section
// header: a 24-bit little-endian size, a type byte, and, when the
// size field holds the 0xFFFFFF sentinel, a 32-bit extended size for
// sections too large for 24 bits.
//
// Section bodies are framed but not interpreted; type-specific body
// parsing belongs to the consumer.
package ffs

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"

	"github.com/hexlace/flash-tools/lib/blob"
)

const (
	// commonHeaderLen is the size of the common section header: a
	// 24-bit length followed by the type byte.
	commonHeaderLen = 4

	// sizeSentinel in the 24-bit size field signals that the real
	// total length follows as a 32-bit extended size.
	sizeSentinel = 0xFFFFFF
)

// MalformedSizeError reports a section header whose declared total
// length cannot contain the header itself.
type MalformedSizeError struct {
	Off   int64
	Total int64
}

func (e *MalformedSizeError) Error() string {
	return fmt.Sprintf("section at %#x declares total length %d, shorter than its header",
		e.Off, e.Total)
}

// IsMalformedSize returns true if err is, or wraps, a *MalformedSizeError.
func IsMalformedSize(err error) bool {
	var me *MalformedSizeError
	return errors.As(err, &me)
}

// IsTruncated returns true if err reports a read past the end of the
// underlying source.
func IsTruncated(err error) bool {
	return blob.IsTruncated(err)
}

// Section is one decoded section frame. It is immutable; the only
// state it keeps from decoding is what Body needs.
type Section struct {
	src             blob.Source
	base            int64
	typ             byte
	hasExtendedSize bool
	headerLen       int64
	bodyLen         int64
}

// DecodeSection reads one common section header from src at offset.
//
// A 24-bit size equal to the sentinel switches to the extended
// encoding: the following 32-bit value is the section's total length,
// less the four bytes of the extended size field itself. In both
// encodings the common header's four bytes are then subtracted to get
// the body length.
//
// Arbitrary type tags and zero-length bodies are valid. The only
// failures are a source too short for the (extended) header and size
// arithmetic yielding a negative body length.
func DecodeSection(src blob.Source, offset int64) (*Section, error) {
	hdr, err := src.ReadAt(offset, commonHeaderLen)
	if err != nil {
		return nil, errors.Wrap(err, "Reading section header")
	}

	rawSize := uint32(hdr[0]) | uint32(hdr[1])<<8 | uint32(hdr[2])<<16

	s := &Section{
		src:       src,
		base:      offset,
		typ:       hdr[3],
		headerLen: commonHeaderLen,
	}

	total := int64(rawSize)
	if rawSize == sizeSentinel {
		s.hasExtendedSize = true
		ext, err := src.ReadAt(offset+commonHeaderLen, 4)
		if err != nil {
			return nil, errors.Wrap(err, "Reading extended section size")
		}
		// The extended size includes its own four bytes; the
		// 24-bit field is discarded entirely.
		total = int64(binary.LittleEndian.Uint32(ext)) - 4
		s.headerLen += 4
	}

	s.bodyLen = total - commonHeaderLen
	if s.bodyLen < 0 {
		return nil, &MalformedSizeError{Off: offset, Total: total}
	}

	return s, nil
}

// Base returns the absolute offset the header was decoded at.
func (s *Section) Base() int64 {
	return s.base
}

// Type returns the section's one-byte type tag.
func (s *Section) Type() byte {
	return s.typ
}

// HasExtendedSize reports whether the extended size encoding was used.
func (s *Section) HasExtendedSize() bool {
	return s.hasExtendedSize
}

// HeaderLen returns the decoded header's length: 4 bytes, or 8 with an
// extended size.
func (s *Section) HeaderLen() int64 {
	return s.headerLen
}

// Len returns the length of the section body.
func (s *Section) Len() int64 {
	return s.bodyLen
}

// TotalLen returns the full section length, header included.
func (s *Section) TotalLen() int64 {
	return s.headerLen + s.bodyLen
}

// Name returns the display name for the section's type tag.
func (s *Section) Name() string {
	return TypeName(s.typ)
}

// Body returns a bounded view over exactly the section's body bytes.
// The window's extent is taken from the header; if the source is
// shorter than the header claims, reads into the missing region fail.
func (s *Section) Body() *blob.Window {
	return blob.NewWindow(s.src, s.base+s.headerLen, s.bodyLen)
}
