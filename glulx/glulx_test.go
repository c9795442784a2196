package glulx

import (
	"bytes"
	"testing"
)

func TestOpcodeEncode(t *testing.T) {
	tests := []struct {
		op   Op
		want []byte
	}{
		{Nop, []byte{0x00}},
		{Add, []byte{0x10}},
		{Jump, []byte{0x20}},
		{Gestalt, []byte{0x81, 0x00}},
		{Glk, []byte{0x81, 0x30}},
		{Jfeq, []byte{0x81, 0xC0}},
		{Op(0x4000), []byte{0xC0, 0x00, 0x40, 0x00}},
		{Op(0x12345), []byte{0xC0, 0x01, 0x23, 0x45}},
	}
	for _, tt := range tests {
		got := tt.op.Encode(nil)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("Encode(%#x) = % x, want % x", int32(tt.op), got, tt.want)
		}
		if len(got) != tt.op.EncodedLen() {
			t.Errorf("EncodedLen(%#x) = %d, encoded %d", int32(tt.op), tt.op.EncodedLen(), len(got))
		}
	}
}

func TestOpcodeTable(t *testing.T) {
	if oc := Info(Add); oc == nil || oc.Operands != 3 || oc.Stores != 1 {
		t.Errorf("add metadata wrong: %+v", oc)
	}
	if oc := Info(Jeq); oc == nil || !oc.Branches || oc.Operands != 3 {
		t.Errorf("jeq metadata wrong: %+v", oc)
	}
	if oc := Lookup("streamstr"); oc == nil || oc.Op != Streamstr {
		t.Errorf("lookup streamstr: %+v", oc)
	}
	if !Info(Quit).EndsFlow || !Info(Return).EndsFlow || !Info(Tailcall).EndsFlow {
		t.Error("quit/return/tailcall end flow")
	}
	if Info(Jz).EndsFlow {
		t.Error("jz does not end flow")
	}
}

func TestPayloadLen(t *testing.T) {
	tests := []struct {
		mode byte
		want int
	}{
		{ModeConstZero, 0},
		{ModeStack, 0},
		{ModeConstByte, 1},
		{ModeLocalByte, 1},
		{ModeRAMByte, 1},
		{ModeConstShort, 2},
		{ModeLocalShort, 2},
		{ModeConstWord, 4},
		{ModeMemWord, 4},
		{ModeRAMWord, 4},
	}
	for _, tt := range tests {
		if got := PayloadLen(tt.mode); got != tt.want {
			t.Errorf("PayloadLen(%#x) = %d, want %d", tt.mode, got, tt.want)
		}
	}
}

func TestChecksum(t *testing.T) {
	image := make([]byte, 40)
	PutWord(image, HdrMagic, Magic)
	PutWord(image, HdrChecksum, 0xDEADBEEF) // must be ignored
	PutWord(image, 36, 0x00000001)
	want := uint32(Magic) + 1
	if got := Checksum(image); got != want {
		t.Errorf("Checksum = %#x, want %#x", got, want)
	}
}

func TestRoundUp(t *testing.T) {
	tests := []struct{ n, align, want uint32 }{
		{0, 256, 0},
		{1, 256, 256},
		{256, 256, 256},
		{257, 256, 512},
		{3, 4, 4},
	}
	for _, tt := range tests {
		if got := RoundUp(tt.n, tt.align); got != tt.want {
			t.Errorf("RoundUp(%d, %d) = %d, want %d", tt.n, tt.align, got, tt.want)
		}
	}
}
