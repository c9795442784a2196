package zcode

// Z-character text encoding for dictionary words, directly-emitted
// strings and the string area, with optional abbreviation substitution.

// Default alphabet rows A0..A2. Row A2 position 0 is the ZSCII escape
// and position 1 is newline, so only positions 2..25 are printable
// members.
var DefaultAlphabet = [3]string{
	"abcdefghijklmnopqrstuvwxyz",
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ",
	" \n0123456789.,!?_#'\"/\\-:()",
}

// Zchars converts ISO-Latin-1 text to a Z-character sequence using the
// given alphabet. Characters outside the alphabet use the 10-bit ZSCII
// escape (A2 shift, z-char 6, two payload z-chars).
func Zchars(text []byte, alphabet *[3]string) []byte {
	var out []byte
	for _, c := range text {
		if c == ' ' {
			out = append(out, 0)
			continue
		}
		row, pos := alphaPos(c, alphabet)
		switch {
		case row == 0:
			out = append(out, byte(pos+6))
		case row > 0:
			// Single-character shift: 4 selects A1, 5 selects A2.
			out = append(out, byte(row+3), byte(pos+6))
		default:
			out = append(out, 5, 6, c>>5, c&0x1F)
		}
	}
	return out
}

// Abbrev is one abbreviations-table entry as the encoder sees it: its
// text and the table slot it occupies. Slots 0..31 are referenced with
// z-char 1, 32..63 with z-char 2, 64..95 with z-char 3.
type Abbrev struct {
	Text string
	Slot int
}

// ZcharsAbbrev is Zchars with greedy abbreviation substitution: at each
// position the longest matching table entry becomes a two-z-char
// reference. Entries with out-of-range slots are ignored.
func ZcharsAbbrev(text []byte, alphabet *[3]string, abbrevs []Abbrev) []byte {
	var out []byte
	for i := 0; i < len(text); {
		best := -1
		bestLen := 0
		for a := range abbrevs {
			ab := &abbrevs[a]
			if ab.Slot < 0 || ab.Slot >= 96 || len(ab.Text) <= bestLen {
				continue
			}
			if len(ab.Text) <= len(text)-i && string(text[i:i+len(ab.Text)]) == ab.Text {
				best = a
				bestLen = len(ab.Text)
			}
		}
		if best >= 0 {
			slot := abbrevs[best].Slot
			out = append(out, byte(1+slot/32), byte(slot%32))
			i += bestLen
			continue
		}
		out = append(out, Zchars(text[i:i+1], alphabet)...)
		i++
	}
	return out
}

func alphaPos(c byte, alphabet *[3]string) (row, pos int) {
	for r := 0; r < 3; r++ {
		a := alphabet[r]
		start := 0
		if r == 2 {
			start = 2 // positions 0 and 1 are not addressable
		}
		for p := start; p < len(a); p++ {
			if a[p] == c {
				return r, p
			}
		}
	}
	return -1, 0
}

// PackZchars packs z-characters three to a 16-bit word, padding with
// z-char 5 and setting the top bit of the final word. An empty input
// still produces one terminated word of padding.
func PackZchars(zchars []byte) []uint16 {
	for len(zchars)%3 != 0 {
		zchars = append(zchars, 5)
	}
	if len(zchars) == 0 {
		zchars = []byte{5, 5, 5}
	}
	words := make([]uint16, 0, len(zchars)/3)
	for i := 0; i < len(zchars); i += 3 {
		w := uint16(zchars[i]&0x1F)<<10 | uint16(zchars[i+1]&0x1F)<<5 | uint16(zchars[i+2]&0x1F)
		words = append(words, w)
	}
	words[len(words)-1] |= 0x8000
	return words
}

// EncodeDictWord encodes a dictionary word: truncated or padded to
// exactly resolution z-characters (4 in v3, 6 in v4+), then packed.
func EncodeDictWord(word []byte, version int, alphabet *[3]string) []uint16 {
	res := 6
	if version <= 3 {
		res = 4
	}
	z := Zchars(word, alphabet)
	if len(z) > res {
		z = z[:res]
	}
	for len(z) < res {
		z = append(z, 5)
	}
	return PackZchars(z)
}

// DictWordBytes returns the on-disk byte form of an encoded dictionary
// word (4 bytes in v3, 6 bytes in v4+).
func DictWordBytes(word []byte, version int, alphabet *[3]string) []byte {
	words := EncodeDictWord(word, version, alphabet)
	out := make([]byte, 0, len(words)*2)
	for _, w := range words {
		out = append(out, byte(w>>8), byte(w))
	}
	return out
}

// DecodeZchars expands packed words back to z-characters, stopping at
// the terminator bit. Used by tests and the disassembly tracer.
func DecodeZchars(words []uint16) []byte {
	var out []byte
	for _, w := range words {
		out = append(out, byte(w>>10)&0x1F, byte(w>>5)&0x1F, byte(w)&0x1F)
		if w&0x8000 != 0 {
			break
		}
	}
	return out
}

// DecodeString decodes z-characters to ISO-Latin-1 text with the given
// alphabet. Abbreviation references decode as empty (the core never
// emits them without the external abbreviation table).
func DecodeString(zchars []byte, alphabet *[3]string) []byte {
	var out []byte
	row := 0
	for i := 0; i < len(zchars); i++ {
		z := zchars[i]
		switch {
		case z == 0:
			out = append(out, ' ')
		case z <= 3:
			if i+1 < len(zchars) {
				i++ // skip abbreviation payload
			}
		case z == 4:
			row = 1
			continue
		case z == 5:
			row = 2
			continue
		case z == 6 && row == 2:
			if i+2 < len(zchars) {
				out = append(out, zchars[i+1]<<5|zchars[i+2])
				i += 2
			}
		default:
			a := alphabet[row]
			if int(z-6) < len(a) {
				out = append(out, a[z-6])
			}
		}
		row = 0
	}
	return out
}
