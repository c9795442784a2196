package zcode

import (
	"bytes"
	"testing"
)

func TestLookupVersioned(t *testing.T) {
	tests := []struct {
		name    string
		version int
		want    bool
	}{
		{"je", 3, true},
		{"je", 8, true},
		{"call_2s", 3, false},
		{"call_2s", 4, true},
		{"call_vn", 3, false},
		{"call_vn", 5, true},
		{"show_status", 3, true},
		{"show_status", 4, false},
		{"aread", 4, false},
		{"aread", 5, true},
		{"sread", 4, true},
		{"log_shift", 5, true},
		{"log_shift", 4, false},
	}
	for _, tt := range tests {
		got := Lookup(tt.name, tt.version)
		if (got >= 0) != tt.want {
			t.Errorf("Lookup(%q, v%d) = %d, want present=%v", tt.name, tt.version, got, tt.want)
		}
	}
}

func TestLookupVariantSelection(t *testing.T) {
	// "not" is 1OP in v1-4 but its slot becomes call_1n in v5+.
	op4 := Lookup("not", 4)
	if op4 < 0 || Info(op4).Class != OneOp {
		t.Fatalf("not in v4: got %v", op4)
	}
	if op := Lookup("not", 5); op >= 0 {
		t.Errorf("not should be absent as 1OP in v5, got %v", op)
	}
	op5 := Lookup("call_1n", 5)
	if op5 < 0 || Info(op5).Code != 15 {
		t.Fatalf("call_1n in v5: got %v", op5)
	}
}

func TestOpcodeFlags(t *testing.T) {
	if !OpJE.IsBranch() {
		t.Error("je should branch")
	}
	if OpJE.IsStore() {
		t.Error("je should not store")
	}
	if !OpAdd.IsStore() {
		t.Error("add should store")
	}
	if !OpRTrue.EndsFlow() || !OpJump.EndsFlow() {
		t.Error("rtrue and jump end flow")
	}
	if OpNop.EndsFlow() {
		t.Error("nop does not end flow")
	}
}

func TestScale(t *testing.T) {
	tests := []struct {
		version int
		scale   int32
		lscale  int32
	}{
		{3, 2, 2},
		{4, 4, 4},
		{5, 4, 4},
		{6, 4, 8},
		{7, 4, 8},
		{8, 8, 8},
	}
	for _, tt := range tests {
		if got := Scale(tt.version); got != tt.scale {
			t.Errorf("Scale(%d) = %d, want %d", tt.version, got, tt.scale)
		}
		if got := LengthScale(tt.version); got != tt.lscale {
			t.Errorf("LengthScale(%d) = %d, want %d", tt.version, got, tt.lscale)
		}
	}
}

func TestChecksum(t *testing.T) {
	image := make([]byte, HeaderSize+4)
	image[HeaderSize] = 0xFF
	image[HeaderSize+1] = 0x01
	image[HeaderSize+2] = 0x80
	if got := Checksum(image); got != 0xFF+0x01+0x80 {
		t.Errorf("Checksum = %#x, want %#x", got, 0xFF+0x01+0x80)
	}
	// Wraparound
	big := make([]byte, HeaderSize+257)
	for i := HeaderSize; i < len(big); i++ {
		big[i] = 0xFF
	}
	want := uint16(257 * 0xFF)
	if got := Checksum(big); got != want {
		t.Errorf("Checksum wrap = %#x, want %#x", got, want)
	}
}

func TestPackZchars(t *testing.T) {
	z := Zchars([]byte("the"), &DefaultAlphabet)
	// t=25, h=13, e=10 give z-chars 25, 13, 10 (offsets +6 from row index)
	wantZ := []byte{25, 13, 10}
	if !bytes.Equal(z, wantZ) {
		t.Fatalf("Zchars(the) = %v, want %v", z, wantZ)
	}
	words := PackZchars(z)
	if len(words) != 1 {
		t.Fatalf("PackZchars: got %d words, want 1", len(words))
	}
	want := uint16(25)<<10 | uint16(13)<<5 | uint16(10) | 0x8000
	if words[0] != want {
		t.Errorf("packed word = %#x, want %#x", words[0], want)
	}
}

func TestZcharsShiftAndEscape(t *testing.T) {
	// Uppercase needs an A1 shift; '%' is in no alphabet and needs the
	// 10-bit escape.
	z := Zchars([]byte("A"), &DefaultAlphabet)
	if !bytes.Equal(z, []byte{4, 6}) {
		t.Errorf("Zchars(A) = %v, want [4 6]", z)
	}
	z = Zchars([]byte("%"), &DefaultAlphabet)
	if !bytes.Equal(z, []byte{5, 6, '%' >> 5, '%' & 0x1F}) {
		t.Errorf("Zchars(%%) = %v", z)
	}
}

func TestDictWordRoundTrip(t *testing.T) {
	tests := []struct {
		word    string
		version int
		nbytes  int
	}{
		{"sword", 3, 4},
		{"sword", 5, 6},
		{"x", 3, 4},
		{"lantern", 5, 6},
	}
	for _, tt := range tests {
		b := DictWordBytes([]byte(tt.word), tt.version, &DefaultAlphabet)
		if len(b) != tt.nbytes {
			t.Errorf("DictWordBytes(%q, v%d): %d bytes, want %d", tt.word, tt.version, len(b), tt.nbytes)
			continue
		}
		if b[len(b)-2]&0x80 == 0 {
			t.Errorf("DictWordBytes(%q): terminator bit unset", tt.word)
		}
		words := EncodeDictWord([]byte(tt.word), tt.version, &DefaultAlphabet)
		decoded := DecodeString(DecodeZchars(words), &DefaultAlphabet)
		res := 6
		if tt.version <= 3 {
			res = 4
		}
		want := tt.word
		if len(want) > res {
			want = want[:res]
		}
		if string(decoded) != want {
			t.Errorf("round-trip %q v%d: got %q, want %q", tt.word, tt.version, decoded, want)
		}
	}
}

func TestHeaderWords(t *testing.T) {
	b := make([]byte, HeaderSize)
	PutWord(b, HdrChecksum, 0xBEEF)
	if b[HdrChecksum] != 0xBE || b[HdrChecksum+1] != 0xEF {
		t.Error("PutWord wrote wrong bytes")
	}
	if Word(b, HdrChecksum) != 0xBEEF {
		t.Error("Word read wrong value")
	}
}
