package zcode

// Header layout for the 64-byte Z-machine story file header.
// Offsets from the Z-Machine Standards Document 1.1 §11.
const (
	HdrVersion      = 0x00
	HdrFlags1       = 0x01
	HdrRelease      = 0x02
	HdrHighMem      = 0x04
	HdrInitialPC    = 0x06
	HdrDictionary   = 0x08
	HdrObjects      = 0x0A
	HdrGlobals      = 0x0C
	HdrStaticMem    = 0x0E
	HdrFlags2       = 0x10
	HdrSerial       = 0x12 // 6 bytes
	HdrAbbrevs      = 0x18
	HdrFileLength   = 0x1A // in scaled units
	HdrChecksum     = 0x1C
	HdrTerpNumber   = 0x1E
	HdrTerpVersion  = 0x1F
	HdrRoutinesOff  = 0x28 // v6/7: routine area offset / 8
	HdrStringsOff   = 0x2A // v6/7: string area offset / 8
	HdrTermChars    = 0x2E
	HdrStdRevision  = 0x32
	HdrAlphabet     = 0x34
	HdrExtension    = 0x36
	HeaderSize      = 0x40
	FileLengthScale = 512 // output file is padded to this multiple
)

// Flags2 bits the compiler may set.
const (
	Flags2Transcript = 1 << 0
	Flags2FixedPitch = 1 << 1
)

// Scale returns the packed-address scale factor for a version.
func Scale(version int) int32 {
	switch {
	case version <= 3:
		return 2
	case version <= 7:
		return 4
	default:
		return 8
	}
}

// LengthScale returns the divisor for the header file-length field.
func LengthScale(version int) int32 {
	switch {
	case version <= 3:
		return 2
	case version <= 5:
		return 4
	default:
		return 8
	}
}

// PackedMax returns the highest byte address reachable through a packed
// address in the given version.
func PackedMax(version int) int32 {
	return 0x10000 * Scale(version) / 2 * 2
}

// Checksum computes the header checksum: the unsigned mod-65536 sum of
// every byte after the header, up to the stated file length.
func Checksum(image []byte) uint16 {
	var sum uint16
	for _, b := range image[HeaderSize:] {
		sum += uint16(b)
	}
	return sum
}

// PutWord writes a big-endian 16-bit value at off.
func PutWord(b []byte, off int, v uint16) {
	b[off] = byte(v >> 8)
	b[off+1] = byte(v)
}

// Word reads a big-endian 16-bit value at off.
func Word(b []byte, off int) uint16 {
	return uint16(b[off])<<8 | uint16(b[off+1])
}
