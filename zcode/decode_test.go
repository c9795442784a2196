package zcode

import "testing"

func TestDecodeLongForm(t *testing.T) {
	// add #2 #3 -> local0, long form with two small constants.
	code := []byte{0x14, 0x02, 0x03, 0x01}
	in, err := DecodeInst(code, 0, 5)
	if err != nil {
		t.Fatal(err)
	}
	if in.Op != OpAdd {
		t.Fatalf("op = %v, want add", in.Op)
	}
	if len(in.Operands) != 2 || in.Operands[0].Value != 2 || in.Operands[1].Value != 3 {
		t.Errorf("operands = %v", in.Operands)
	}
	if in.Operands[0].Type != SmallConst {
		t.Errorf("operand type = %d, want small constant", in.Operands[0].Type)
	}
	if in.Store != 1 {
		t.Errorf("store = %d, want 1", in.Store)
	}
	if in.Next != 4 {
		t.Errorf("next = %d, want 4", in.Next)
	}
	if s := in.String(); s != "add 2 3 -> local0" {
		t.Errorf("String() = %q", s)
	}
}

func TestDecodeShortForm(t *testing.T) {
	// jz local0 ?rtrue: short form, variable operand, short branch to
	// the return-true pseudo-offset.
	code := []byte{0xA0, 0x01, 0xC1}
	in, err := DecodeInst(code, 0, 5)
	if err != nil {
		t.Fatal(err)
	}
	if in.Op != OpJZ {
		t.Fatalf("op = %v, want jz", in.Op)
	}
	if in.Branch == nil || !in.Branch.OnTrue || in.Branch.Offset != 1 {
		t.Errorf("branch = %+v", in.Branch)
	}
}

func TestDecodeZeroOp(t *testing.T) {
	code := []byte{0xB0}
	in, err := DecodeInst(code, 0, 5)
	if err != nil {
		t.Fatal(err)
	}
	if in.Op != OpRTrue || len(in.Operands) != 0 || in.Next != 1 {
		t.Errorf("decoded %v next %d", in, in.Next)
	}
}

func TestDecodeVariableForm(t *testing.T) {
	// call_vs with one large-constant operand, storing to the stack.
	code := []byte{0xE0, 0x3F, 0x12, 0x34, 0x00}
	in, err := DecodeInst(code, 0, 5)
	if err != nil {
		t.Fatal(err)
	}
	if in.Op != OpCallVS {
		t.Fatalf("op = %v, want call_vs", in.Op)
	}
	if len(in.Operands) != 1 || in.Operands[0].Type != LargeConst || in.Operands[0].Value != 0x1234 {
		t.Errorf("operands = %v", in.Operands)
	}
	if in.Store != StackVar {
		t.Errorf("store = %d, want stack", in.Store)
	}
}

func TestDecodeVariableFormTwoOp(t *testing.T) {
	// je in variable form with three operands takes bytes 0xC0-0xDF.
	// Types: variable, small constant, small constant, omitted.
	code := []byte{0xC1, 0x97, 0x05, 0x07, 0x09, 0xC2}
	in, err := DecodeInst(code, 0, 5)
	if err != nil {
		t.Fatal(err)
	}
	if in.Op != OpJE {
		t.Fatalf("op = %v, want je", in.Op)
	}
	if len(in.Operands) != 3 {
		t.Fatalf("operand count = %d, want 3", len(in.Operands))
	}
}

func TestDecodeLongBranch(t *testing.T) {
	// je #1 #2 with a two-byte branch-on-false offset.
	code := []byte{0x01, 0x01, 0x02, 0x01, 0x90}
	in, err := DecodeInst(code, 0, 5)
	if err != nil {
		t.Fatal(err)
	}
	if in.Branch == nil {
		t.Fatal("no branch decoded")
	}
	if in.Branch.OnTrue {
		t.Error("branch sense should be on-false")
	}
	if in.Branch.Offset != 0x190 {
		t.Errorf("offset = %#x, want 0x190", in.Branch.Offset)
	}
}

func TestDecodeInlineText(t *testing.T) {
	words := PackZchars(Zchars([]byte("hi"), &DefaultAlphabet))
	code := []byte{0xB2} // print
	for _, w := range words {
		code = append(code, byte(w>>8), byte(w))
	}
	in, err := DecodeInst(code, 0, 5)
	if err != nil {
		t.Fatal(err)
	}
	if in.Op != OpPrint {
		t.Fatalf("op = %v, want print", in.Op)
	}
	if got := DecodeZwords(in.Text); got != "hi" {
		t.Errorf("text = %q, want %q", got, "hi")
	}
	if in.Next != int32(1+2*len(words)) {
		t.Errorf("next = %d", in.Next)
	}
}

func TestDecodeVersionGate(t *testing.T) {
	// Opcode 0x0F is "not" below v5; in v5 the slot belongs to call_1n.
	code := []byte{0x8F, 0x12, 0x34}
	in4, err := DecodeInst([]byte{0x9F, 0x05, 0x00}, 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	if in4.Op.String() != "not" {
		t.Errorf("v4 1OP:15 = %q, want not", in4.Op.String())
	}
	in5, err := DecodeInst(code, 0, 5)
	if err != nil {
		t.Fatal(err)
	}
	if in5.Op.String() != "call_1n" {
		t.Errorf("v5 1OP:15 = %q, want call_1n", in5.Op.String())
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, err := DecodeInst([]byte{0x14, 0x02}, 0, 5); err == nil {
		t.Error("truncated long form decoded without error")
	}
	if _, err := DecodeInst([]byte{0xE0, 0x3F, 0x12}, 0, 5); err == nil {
		t.Error("truncated variable form decoded without error")
	}
}
