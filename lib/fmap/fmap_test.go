// SPDX-License-Identifier: MIT
package fmap

import (
	"encoding/binary"
	"testing"

	"github.com/hexlace/flash-tools/lib/blob"
)

func TestFindAligned(t *testing.T) {
	sig := []byte("_FMAP__1")

	blob8 := append(make([]byte, 8), sig...)
	off, found := Find(blob.NewBytes(blob8), sig)
	if !found {
		t.Fatal("signature at aligned offset not found")
	}
	if off != 8 {
		t.Errorf("offset: expected 8, got %d", off)
	}
}

func TestFindNonAligned(t *testing.T) {
	// The signature is present, but not at a multiple of its
	// length. The stride scan must not find it.
	sig := []byte("_FMAP__1")

	blob5 := append(make([]byte, 5), sig...)
	blob5 = append(blob5, make([]byte, 16)...)
	if off, found := Find(blob.NewBytes(blob5), sig); found {
		t.Errorf("non-aligned signature reported at %d", off)
	}
}

func TestFindFirstMatchWins(t *testing.T) {
	sig := []byte("_FMAP__1")

	data := append(make([]byte, 16), sig...)
	data = append(data, sig...)
	off, found := Find(blob.NewBytes(data), sig)
	if !found || off != 16 {
		t.Errorf("expected first match at 16, got %d (found=%v)", off, found)
	}
}

func TestFindAtZero(t *testing.T) {
	sig := []byte("_FMAP__1")

	off, found := Find(blob.NewBytes(sig), sig)
	if !found || off != 0 {
		t.Errorf("expected match at 0, got %d (found=%v)", off, found)
	}
}

func TestFindOverdeclaredWindow(t *testing.T) {
	sig := []byte("_FMAP__1")

	// A window declaring more bytes than its parent holds: matches
	// in the backed region are still found, and the scan ends
	// cleanly once reads run out of backing bytes.
	parent := blob.NewBytes(append(make([]byte, 8), sig...))
	win := blob.NewWindow(parent, 0, 64)

	off, found := Find(win, sig)
	if !found || off != 8 {
		t.Errorf("expected match at 8, got %d (found=%v)", off, found)
	}

	empty := blob.NewWindow(blob.NewBytes(make([]byte, 10)), 0, 64)
	if off, found := Find(empty, sig); found {
		t.Errorf("match reported at %d in unbacked window", off)
	}
}

func TestFindShortBlob(t *testing.T) {
	sig := []byte("_FMAP__1")

	if _, found := Find(blob.NewBytes([]byte("_FMAP")), sig); found {
		t.Error("match reported in blob shorter than signature")
	}
	if _, found := Find(blob.NewBytes(nil), sig); found {
		t.Error("match reported in empty blob")
	}
}

func putName(b []byte, name string) {
	copy(b, name)
}

// buildMap assembles a descriptor with the given areas.
func buildMap(name string, areas []Area) []byte {
	b := make([]byte, headerLen+len(areas)*areaLen)
	copy(b, Signature)
	b[8] = 1
	b[9] = 1
	binary.LittleEndian.PutUint64(b[10:], 0xFF000000)
	binary.LittleEndian.PutUint32(b[18:], 0x1000)
	putName(b[22:22+nameLen], name)
	binary.LittleEndian.PutUint16(b[22+nameLen:], uint16(len(areas)))

	for i, a := range areas {
		rec := b[headerLen+i*areaLen:]
		binary.LittleEndian.PutUint32(rec[0:], a.Offset)
		binary.LittleEndian.PutUint32(rec[4:], a.Size)
		putName(rec[8:8+nameLen], a.Name)
		binary.LittleEndian.PutUint16(rec[8+nameLen:], a.Flags)
	}

	return b
}

func TestDecodeMap(t *testing.T) {
	areas := []Area{
		{Offset: 0, Size: 0x100, Name: "BOOT", Flags: FlagStatic | FlagRO},
		{Offset: 0x100, Size: 0x200, Name: "RW_A", Flags: 0},
	}
	data := append(make([]byte, 16), buildMap("TESTMAP", areas)...)
	src := blob.NewBytes(data)

	off, found := FindSignature(src)
	if !found || off != 16 {
		t.Fatalf("FindSignature: %d (found=%v)", off, found)
	}

	fm, err := DecodeMap(src, off)
	if err != nil {
		t.Fatal(err)
	}

	if fm.VerMajor != 1 || fm.VerMinor != 1 {
		t.Errorf("version: %d.%d", fm.VerMajor, fm.VerMinor)
	}
	if fm.Base != 0xFF000000 {
		t.Errorf("base: %#x", fm.Base)
	}
	if fm.Size != 0x1000 {
		t.Errorf("size: %#x", fm.Size)
	}
	if fm.Name != "TESTMAP" {
		t.Errorf("name: %q", fm.Name)
	}
	if len(fm.Areas) != 2 {
		t.Fatalf("expected 2 areas, got %d", len(fm.Areas))
	}
	if fm.Areas[0] != areas[0] || fm.Areas[1] != areas[1] {
		t.Errorf("unexpected areas: %+v", fm.Areas)
	}
}

func TestDecodeMapTruncated(t *testing.T) {
	data := buildMap("T", []Area{{Size: 4, Name: "A"}})

	// Cut into the header
	_, err := DecodeMap(blob.NewBytes(data[:20]), 0)
	if !blob.IsTruncated(err) {
		t.Errorf("expected truncation, got %v", err)
	}

	// Cut into the area table
	_, err = DecodeMap(blob.NewBytes(data[:len(data)-4]), 0)
	if !blob.IsTruncated(err) {
		t.Errorf("expected truncation, got %v", err)
	}
}

func TestDecodeMapBadOffset(t *testing.T) {
	data := append(make([]byte, 8), buildMap("T", nil)...)
	if _, err := DecodeMap(blob.NewBytes(data), 0); err == nil {
		t.Error("decode without signature should fail")
	}
}

func TestFlagString(t *testing.T) {
	for _, c := range []struct {
		flags uint16
		want  string
	}{
		{0, "none"},
		{FlagStatic, "static"},
		{FlagStatic | FlagRO, "static,ro"},
		{FlagCompressed | FlagPreserve, "compressed,preserve"},
		{0x8000, "0x8000"},
		{FlagRO | 0x8000, "ro,0x8000"},
	} {
		if got := FlagString(c.flags); got != c.want {
			t.Errorf("FlagString(%#x): expected %q, got %q", c.flags, c.want, got)
		}
	}
}
