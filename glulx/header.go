package glulx

import "encoding/binary"

// Header layout for the 36-byte Glulx image header, followed by the
// 8-byte layout tag and the compiler's own 12-byte information block.
const (
	HdrMagic       = 0x00 // "Glul"
	HdrVersion     = 0x04
	HdrRAMStart    = 0x08
	HdrExtStart    = 0x0C // equals file size
	HdrEndMem      = 0x10 // file size plus memory-map extension
	HdrStackSize   = 0x14
	HdrStartFunc   = 0x18
	HdrDecodingTbl = 0x1C
	HdrChecksum    = 0x20
	HeaderSize     = 0x24

	LayoutTagOff = HeaderSize      // 8 bytes: "Info" + layout version
	InfoBlockOff = HeaderSize + 8  // 12 bytes: compiler info
	CodeStart    = HeaderSize + 20 // first byte after the info block
)

// Magic is the image identifier "Glul".
const Magic = 0x476C756C

// Version is the Glulx specification version the compiler emits
// (3.1.2, packed as major<<16 | minor<<8 | sub).
const Version = 0x00030102

// PageSize is the RAM image alignment boundary.
const PageSize = 256

// Checksum computes the Glulx header checksum: the unsigned 32-bit sum
// of every big-endian word in the image, with the checksum field read
// as zero. The image length must be a multiple of 4.
func Checksum(image []byte) uint32 {
	var sum uint32
	for off := 0; off+4 <= len(image); off += 4 {
		if off == HdrChecksum {
			continue
		}
		sum += binary.BigEndian.Uint32(image[off:])
	}
	return sum
}

// PutWord writes a big-endian 32-bit value at off.
func PutWord(b []byte, off int, v uint32) {
	binary.BigEndian.PutUint32(b[off:], v)
}

// Word reads a big-endian 32-bit value at off.
func Word(b []byte, off int) uint32 {
	return binary.BigEndian.Uint32(b[off:])
}

// RoundUp rounds n up to a multiple of align (a power of two).
func RoundUp(n, align uint32) uint32 {
	return (n + align - 1) &^ (align - 1)
}
