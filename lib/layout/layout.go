// SPDX-License-Identifier: MIT

// Package layout describes a mounted flash image as plain data, with a
// TOML surface so a layout can be saved next to an image and diffed
// against later dumps.
package layout

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/hexlace/flash-tools/lib/fmap"
)

func stringIfNotEmpty(prefix, val string) string {
	if len(val) > 0 {
		return fmt.Sprintf("%s %s\n", prefix, val)
	}
	return ""
}

type Image struct {
	Name      string `toml:"name,omitempty"`
	Size      int64  `toml:"size"`
	MapOffset int64  `toml:"map_offset"`
}

func (i *Image) String() string {
	var s string
	s += "Image:\n"
	s += stringIfNotEmpty("   Name:", i.Name)
	s += fmt.Sprintf("   Size: %d (0x%x) bytes\n", i.Size, i.Size)
	s += fmt.Sprintf("   MapOffset: 0x%x\n", i.MapOffset)
	return s
}

type Region struct {
	Name     string `toml:"name"`
	Offset   int64  `toml:"offset"`
	Size     int64  `toml:"size"`
	Flags    string `toml:"flags,omitempty"`
	ReadOnly bool   `toml:"read_only"`
}

func (r *Region) String() string {
	var s string
	s += "Region:\n"
	s += stringIfNotEmpty("   Name:", r.Name)
	s += fmt.Sprintf("   Offset: 0x%x\n", r.Offset)
	s += fmt.Sprintf("   Size: %d (0x%x) bytes\n", r.Size, r.Size)
	s += stringIfNotEmpty("   Flags:", r.Flags)
	s += fmt.Sprintf("   ReadOnly: %s\n", strconv.FormatBool(r.ReadOnly))
	return s
}

type Layout struct {
	Image   *Image    `toml:"image,omitempty"`
	Regions []*Region `toml:"region,omitempty"`
}

func (l *Layout) String() string {
	var s string
	if l.Image != nil {
		s += l.Image.String()
	}
	for _, r := range l.Regions {
		s += r.String()
	}
	return s
}

// FromFlashMap builds a layout from a decoded flash map descriptor.
func FromFlashMap(fm *fmap.FlashMap, imageSize, mapOffset int64) *Layout {
	l := &Layout{
		Image: &Image{
			Name:      fm.Name,
			Size:      imageSize,
			MapOffset: mapOffset,
		},
	}

	for _, area := range fm.Areas {
		l.Regions = append(l.Regions, &Region{
			Name:     area.Name,
			Offset:   int64(area.Offset),
			Size:     int64(area.Size),
			Flags:    fmap.FlagString(area.Flags),
			ReadOnly: area.Flags&fmap.FlagRO != 0,
		})
	}

	return l
}

// WriteFile writes the layout as TOML.
func (l *Layout) WriteFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "Creating layout file")
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(l); err != nil {
		return errors.Wrap(err, "Encoding layout")
	}

	return nil
}

// ReadFile parses a TOML layout file.
func ReadFile(filename string) (*Layout, error) {
	var l Layout
	if _, err := toml.DecodeFile(filename, &l); err != nil {
		return nil, errors.Wrap(err, "Parsing layout file")
	}
	return &l, nil
}
