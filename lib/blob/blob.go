// SPDX-License-Identifier: MIT
package blob

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// Source is a fixed-length binary blob supporting bounded reads at
// arbitrary absolute offsets. Implementations must never return bytes
// from beyond their declared length.
//
// Sources are read-only. Concurrent reads against the same Source are
// safe for the implementations in this package.
type Source interface {
	// Len returns the total number of bytes available.
	Len() int64
	// ReadAt returns n bytes starting at absolute offset off. It fails
	// with a *TruncatedError if the requested range leaves the source.
	ReadAt(off int64, n int) ([]byte, error)
}

// TruncatedError reports a read that would leave the declared extent of
// a Source.
type TruncatedError struct {
	Off  int64
	Want int
	Have int64
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("truncated: %d bytes at offset %#x, only %d available",
		e.Want, e.Off, e.Have)
}

// IsTruncated returns true if err is, or wraps, a *TruncatedError.
func IsTruncated(err error) bool {
	var te *TruncatedError
	return errors.As(err, &te)
}

// Bytes is a Source over an in-memory buffer. The buffer is not copied
// and must not be modified while the Source is in use.
type Bytes struct {
	data []byte
}

func NewBytes(data []byte) *Bytes {
	return &Bytes{data: data}
}

// Open reads a whole file into a Bytes source.
func Open(filename string) (*Bytes, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "Reading image")
	}
	return NewBytes(data), nil
}

func (b *Bytes) Len() int64 {
	return int64(len(b.data))
}

func (b *Bytes) ReadAt(off int64, n int) ([]byte, error) {
	// Compared as a difference, not a sum: off+n can overflow for
	// huge offsets and sneak past the guard.
	if n < 0 || off < 0 || off > int64(len(b.data)) || int64(n) > int64(len(b.data))-off {
		have := int64(len(b.data)) - off
		if have < 0 {
			have = 0
		}
		return nil, &TruncatedError{Off: off, Want: n, Have: have}
	}
	return b.data[off : off+int64(n)], nil
}

// Window is a bounded view over a slice of a parent Source. Offsets are
// relative to the window's start. Every read is checked against the
// window's declared length, independent of the parent's actual extent,
// so a Window never exposes bytes outside its range even if the parent
// is larger. Windows nest.
type Window struct {
	parent Source
	start  int64
	length int64
}

// NewWindow returns a view of length bytes of parent starting at start.
// The bounds are taken as declared; a window may extend past the end of
// its parent, in which case reads into the missing region fail the same
// way they would on a short Source.
func NewWindow(parent Source, start, length int64) *Window {
	return &Window{parent: parent, start: start, length: length}
}

func (w *Window) Len() int64 {
	return w.length
}

func (w *Window) ReadAt(off int64, n int) ([]byte, error) {
	if n < 0 || off < 0 || off > w.length || int64(n) > w.length-off {
		have := w.length - off
		if have < 0 {
			have = 0
		}
		return nil, &TruncatedError{Off: off, Want: n, Have: have}
	}
	return w.parent.ReadAt(w.start+off, n)
}

// Start returns the window's offset within its parent.
func (w *Window) Start() int64 {
	return w.start
}
