// SPDX-License-Identifier: MIT
package ffs

import "fmt"

// Section type tags, per the UEFI Platform Initialization spec.
const (
	TypeCompression         byte = 0x01
	TypeGUIDDefined         byte = 0x02
	TypeDisposable          byte = 0x03
	TypePE32                byte = 0x10
	TypePIC                 byte = 0x11
	TypeTE                  byte = 0x12
	TypeDXEDepex            byte = 0x13
	TypeVersion             byte = 0x14
	TypeUserInterface       byte = 0x15
	TypeCompatibility16     byte = 0x16
	TypeFirmwareVolumeImage byte = 0x17
	TypeFreeformSubtypeGUID byte = 0x18
	TypeRaw                 byte = 0x19
	TypePEIDepex            byte = 0x1b
	TypeMMDepex             byte = 0x1c
)

// TypeNames maps section type tags to display names. It is plain data;
// callers may extend it for vendor-specific tags before decoding.
var TypeNames = map[byte]string{
	TypeCompression:         "Compression Section",
	TypeGUIDDefined:         "GUID-Defined Section",
	TypeDisposable:          "Disposable Section",
	TypePE32:                "PE32 Image Section",
	TypePIC:                 "PIC Image Section",
	TypeTE:                  "TE Image Section",
	TypeDXEDepex:            "DXE Dependency Expression Section",
	TypeVersion:             "Version Section",
	TypeUserInterface:       "UI Section",
	TypeCompatibility16:     "Compatibility16 Section",
	TypeFirmwareVolumeImage: "Firmware Volume Image Section",
	TypeFreeformSubtypeGUID: "Freeform Subtype GUID Section",
	TypeRaw:                 "Raw Section",
	TypePEIDepex:            "PEI Dependency Expression Section",
	TypeMMDepex:             "MM Dependency Expression Section",
}

// TypeName returns the display name for a section type tag. Unmapped
// tags get a generic label; lookup never fails.
func TypeName(tag byte) string {
	if name, ok := TypeNames[tag]; ok {
		return name
	}
	return fmt.Sprintf("Unknown Section (0x%02X)", tag)
}
