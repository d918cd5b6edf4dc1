// SPDX-License-Identifier: MIT
package layout

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"

	"github.com/hexlace/flash-tools/lib/fmap"
)

func testLayout() *Layout {
	fm := &fmap.FlashMap{
		VerMajor: 1,
		VerMinor: 0,
		Base:     0,
		Size:     0x1000,
		Name:     "IMG",
		Areas: []fmap.Area{
			{Offset: 0, Size: 0x100, Name: "BOOT", Flags: fmap.FlagStatic | fmap.FlagRO},
			{Offset: 0x100, Size: 0xF00, Name: "RW_A", Flags: 0},
		},
	}
	return FromFlashMap(fm, 0x1000, 0x800)
}

func TestFromFlashMap(t *testing.T) {
	l := testLayout()

	if l.Image.Name != "IMG" || l.Image.Size != 0x1000 || l.Image.MapOffset != 0x800 {
		t.Errorf("unexpected image: %+v", l.Image)
	}
	if len(l.Regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(l.Regions))
	}

	boot := l.Regions[0]
	if boot.Name != "BOOT" || boot.Offset != 0 || boot.Size != 0x100 {
		t.Errorf("unexpected region: %+v", boot)
	}
	if !boot.ReadOnly {
		t.Error("BOOT should be read-only")
	}
	if boot.Flags != "static,ro" {
		t.Errorf("BOOT flags: %q", boot.Flags)
	}
	if l.Regions[1].ReadOnly {
		t.Error("RW_A should not be read-only")
	}
}

func TestParse(t *testing.T) {
	var tomlData = `
[image]
name = "IMG"
size = 4096
map_offset = 2048

[[region]]
name = "BOOT"
offset = 0
size = 256
flags = "static,ro"
read_only = true

[[region]]
name = "RW_A"
offset = 256
size = 3840
read_only = false
`

	var l Layout
	_, err := toml.Decode(tomlData, &l)
	if err != nil {
		t.Fatal(err)
	}

	if l.Image == nil || l.Image.Size != 4096 {
		t.Fatalf("unexpected image: %+v", l.Image)
	}
	if len(l.Regions) != 2 || l.Regions[0].Name != "BOOT" {
		t.Fatalf("unexpected regions: %+v", l.Regions)
	}

	if !strings.Contains(l.String(), "BOOT") {
		t.Errorf("String() missing region name:\n%s", l.String())
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	l := testLayout()

	fname := filepath.Join(t.TempDir(), "layout.toml")
	if err := l.WriteFile(fname); err != nil {
		t.Fatal(err)
	}

	got, err := ReadFile(fname)
	if err != nil {
		t.Fatal(err)
	}

	if *got.Image != *l.Image {
		t.Errorf("image mismatch: %+v != %+v", got.Image, l.Image)
	}
	if len(got.Regions) != len(l.Regions) {
		t.Fatalf("region count mismatch: %d != %d", len(got.Regions), len(l.Regions))
	}
	for i := range got.Regions {
		if *got.Regions[i] != *l.Regions[i] {
			t.Errorf("region %d mismatch: %+v != %+v", i, got.Regions[i], l.Regions[i])
		}
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}
