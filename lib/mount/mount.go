// SPDX-License-Identifier: MIT

// Package mount assembles decoded flash map and FFS section frames
// into a navigable tree of named, sized entries.
package mount

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/usedbytes/log"

	"github.com/hexlace/flash-tools/lib/blob"
	"github.com/hexlace/flash-tools/lib/ffs"
	"github.com/hexlace/flash-tools/lib/fmap"
)

// ErrNoFlashMap reports that an image carries no flash map signature.
// It means "not this format", not a corrupt image.
var ErrNoFlashMap = errors.New("flash map signature not found")

// Attr is one displayed attribute of an entry.
type Attr struct {
	Key   string
	Value string
}

// Entry is one node of a mounted tree. Leaf entries carry a bounded
// window over their bytes; container entries only group children.
type Entry struct {
	Name     string
	Offset   int64
	Size     int64
	Attrs    []Attr
	Children []*Entry

	body *blob.Window
}

// Body returns the entry's bytes, or nil for a container entry. The
// window stays valid and independently readable for as long as the
// underlying source does.
func (e *Entry) Body() *blob.Window {
	return e.body
}

// Print writes the tree rooted at e, with attributes, to w.
func (e *Entry) Print(w io.Writer) {
	e.print(w, "")
}

func (e *Entry) print(w io.Writer, indent string) {
	fmt.Fprintf(w, "%s%s (offset %#x, %d bytes)\n", indent, e.Name, e.Offset, e.Size)
	for _, a := range e.Attrs {
		fmt.Fprintf(w, "%s   %s: %s\n", indent, a.Key, a.Value)
	}
	for _, c := range e.Children {
		c.print(w, indent+"   ")
	}
}

// LocateFlashMap finds and decodes the flash map descriptor in src,
// returning it along with the signature offset. An absent signature
// fails with ErrNoFlashMap; the caller should take that as "this
// image is not flash-map formatted" and move on, not abort.
func LocateFlashMap(src blob.Source) (*fmap.FlashMap, int64, error) {
	offset, found := fmap.FindSignature(src)
	if !found {
		return nil, 0, ErrNoFlashMap
	}

	fm, err := fmap.DecodeMap(src, offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, "Mounting flash map")
	}

	return fm, offset, nil
}

// MountFlashMap locates the flash map in src and mounts its areas as
// one entry each.
func MountFlashMap(src blob.Source) (*Entry, error) {
	fm, offset, err := LocateFlashMap(src)
	if err != nil {
		return nil, err
	}

	return FlashMapTree(src, fm, offset), nil
}

// FlashMapTree builds the entry tree for an already-decoded flash
// map. offset is where its signature sits in src.
func FlashMapTree(src blob.Source, fm *fmap.FlashMap, offset int64) *Entry {
	name := fm.Name
	if name == "" {
		name = "flash"
	}

	root := &Entry{
		Name:   name,
		Offset: 0,
		Size:   src.Len(),
		Attrs: []Attr{
			{"Map Version", fmt.Sprintf("%d.%d", fm.VerMajor, fm.VerMinor)},
			{"Map Offset", fmt.Sprintf("%#x", offset)},
			{"Flash Base", fmt.Sprintf("%#x", fm.Base)},
			{"Flash Size", fmt.Sprintf("%d", fm.Size)},
		},
	}

	for _, area := range fm.Areas {
		log.Verbosef("Area %q offset=%#x size=%d flags=%s\n",
			area.Name, area.Offset, area.Size, fmap.FlagString(area.Flags))
		root.Children = append(root.Children, &Entry{
			Name:   area.Name,
			Offset: int64(area.Offset),
			Size:   int64(area.Size),
			Attrs: []Attr{
				{"Name", area.Name},
				{"Size", fmt.Sprintf("%d", area.Size)},
				{"Base", fmt.Sprintf("%#x", area.Offset)},
				{"Flags", fmap.FlagString(area.Flags)},
			},
			body: blob.NewWindow(src, int64(area.Offset), int64(area.Size)),
		})
	}

	return root
}

// MountSections walks the FFS sections of src and mounts one entry per
// frame. base is only used to report absolute offsets; the walk itself
// is relative to src. An undecodable tail is kept as a final "unparsed"
// entry rather than failing the mount.
func MountSections(src blob.Source, base int64) (*Entry, error) {
	sections, tail := ffs.WalkSections(src)
	if len(sections) == 0 && src.Len() > 0 {
		return nil, errors.Errorf("no sections at %#x", base)
	}

	root := &Entry{
		Name:   "sections",
		Offset: base,
		Size:   src.Len(),
	}

	for i, s := range sections {
		root.Children = append(root.Children, &Entry{
			Name:   fmt.Sprintf("%02d_%s", i, s.Name()),
			Offset: base + s.Base(),
			Size:   s.Len(),
			Attrs:  sectionAttrs(s, base),
			body:   s.Body(),
		})
	}

	if tail < src.Len() {
		root.Children = append(root.Children, &Entry{
			Name:   "unparsed",
			Offset: base + tail,
			Size:   src.Len() - tail,
			Attrs: []Attr{
				{"Size", fmt.Sprintf("%d", src.Len()-tail)},
				{"Base", fmt.Sprintf("%#x", base+tail)},
			},
			body: blob.NewWindow(src, tail, src.Len()-tail),
		})
	}

	return root, nil
}

func sectionAttrs(s *ffs.Section, base int64) []Attr {
	return []Attr{
		{"Name", s.Name()},
		{"Size", fmt.Sprintf("%d", s.Len())},
		{"Base", fmt.Sprintf("%#x", base+s.Base())},
		{"Section Type", ffs.TypeName(s.Type())},
		{"Header Size", fmt.Sprintf("%d", s.HeaderLen())},
	}
}
