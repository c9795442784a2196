package glulx

import "testing"

func TestDecodeFuncHeader(t *testing.T) {
	code := []byte{0xC1, 0x04, 0x03, 0x00, 0x00, 0x00}
	h, err := DecodeFunc(code, 0)
	if err != nil {
		t.Fatal(err)
	}
	if h.Type != 0xC1 || h.Locals != 3 || h.Code != 5 {
		t.Errorf("header = %+v", h)
	}
	if _, err := DecodeFunc([]byte{0x42}, 0); err == nil {
		t.Error("non-function byte accepted as a header")
	}
}

func TestDecodeInstructions(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		op   Op
		ops  []DecodedOperand
	}{
		{
			"nop", []byte{0x00},
			Nop, nil,
		},
		{
			"add byte consts to stack", []byte{0x10, 0x11, 0x08, 0x02, 0x03},
			Add, []DecodedOperand{
				{ModeConstByte, 2}, {ModeConstByte, 3}, {ModeStack, 0},
			},
		},
		{
			"jump byte displacement", []byte{0x20, 0x01, 0x02},
			Jump, []DecodedOperand{{ModeConstByte, 2}},
		},
		{
			"return zero", []byte{0x31, 0x00},
			Return, []DecodedOperand{{ModeConstZero, 0}},
		},
		{
			"copy word const to local", []byte{0x40, 0x93, 0x00, 0x01, 0x00, 0x00, 0x04},
			Copy, []DecodedOperand{
				{ModeConstWord, 0x10000}, {ModeLocalByte, 4},
			},
		},
		{
			"two-byte opcode number", []byte{0x81, 0x30, 0x11, 0x08, 0x02, 0x01},
			Glk, []DecodedOperand{
				{ModeConstByte, 2}, {ModeConstByte, 1}, {ModeStack, 0},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := DecodeInst(tt.code, 0)
			if err != nil {
				t.Fatal(err)
			}
			if in.Op != tt.op {
				t.Fatalf("op = %v, want %v", in.Op, tt.op)
			}
			if len(in.Operands) != len(tt.ops) {
				t.Fatalf("operands = %v, want %v", in.Operands, tt.ops)
			}
			for i, o := range tt.ops {
				if in.Operands[i] != o {
					t.Errorf("operand %d = %+v, want %+v", i, in.Operands[i], o)
				}
			}
			if in.Next != int32(len(tt.code)) {
				t.Errorf("next = %d, want %d", in.Next, len(tt.code))
			}
		})
	}
}

func TestDecodeNegativeByteConstant(t *testing.T) {
	in, err := DecodeInst([]byte{0x20, 0x01, 0xFE}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if in.Operands[0].Value != -2 {
		t.Errorf("value = %d, want -2 (sign-extended)", in.Operands[0].Value)
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	if _, err := DecodeInst([]byte{0x7F}, 0); err == nil {
		t.Error("unknown opcode decoded without error")
	}
}
