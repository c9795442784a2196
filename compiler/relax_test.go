package compiler

import (
	"testing"

	"github.com/DavidKinder/Inform6-sub000/glulx"
	"github.com/DavidKinder/Inform6-sub000/zcode"
)

const (
	zRTrue  = 0xB0
	zRFalse = 0xB1
)

func TestJumpToNextInstructionRemoved(t *testing.T) {
	c, _ := newTestCompiler(TargetZ)
	a := c.Asm

	a.StartRoutine(-1, "t", 0, false)
	a.RoutineHeader(0)
	l := a.NewLabel()
	a.AssembleJump(l)
	a.DefineLabel(l)
	a.AssembleJump(RFalseLabel)
	start := a.EndRoutine()

	code := a.CodeBytes()[start:]
	if code[0] != 0 {
		t.Fatalf("locals byte %#x, want 0", code[0])
	}
	if code[1] != zRFalse {
		t.Errorf("byte after header is %#x, want rfalse; jump survived", code[1])
	}
	// Nothing but padding may follow.
	for _, b := range code[2:] {
		if b != 0 {
			t.Errorf("unexpected code byte %#x after the return", b)
		}
	}
}

func TestJumpToReturnCollapses(t *testing.T) {
	c, _ := newTestCompiler(TargetZ)
	a := c.Asm

	a.StartRoutine(-1, "t", 0, false)
	a.RoutineHeader(0)
	l := a.NewLabel()
	skip := a.NewLabel()
	a.AssembleJump(l)
	a.DefineLabel(skip)
	a.AssembleJump(RTrueLabel)
	a.DefineLabel(l)
	a.AssembleJump(RFalseLabel)
	start := a.EndRoutine()

	code := a.CodeBytes()[start:]
	// The jump to l, whose target is rfalse, becomes rfalse itself.
	want := []byte{0, zRFalse, zRTrue, zRFalse}
	for i, b := range want {
		if code[i] != b {
			t.Fatalf("code[%d] = %#x, want %#x (code %x)", i, code[i], b, code)
		}
	}
}

func TestBackwardJumpSurvives(t *testing.T) {
	c, _ := newTestCompiler(TargetZ)
	a := c.Asm

	a.StartRoutine(-1, "t", 0, false)
	a.RoutineHeader(0)
	l := a.NewLabel()
	a.DefineLabel(l)
	a.Assemble0(int(zcode.OpNop))
	a.AssembleJump(l)
	start := a.EndRoutine()

	code := a.CodeBytes()[start:]
	zNop := byte(0xB4)
	if code[1] != zNop {
		t.Fatalf("code[1] = %#x, want nop (code %x)", code[1], code)
	}
	if code[2] != 0x8C {
		t.Fatalf("code[2] = %#x, want a jump opcode (code %x)", code[2], code)
	}
	// The displacement lands back on the nop: -2 from the end of the
	// instruction.
	if off := int16(uint16(code[3])<<8 | uint16(code[4])); off != -2 {
		t.Errorf("jump displacement %d, want -2 (code %x)", off, code)
	}
}

func TestShortAndLongBranchForms(t *testing.T) {
	// A conditional branch to a nearby label takes the one-byte form;
	// pushing the label out of range forces the two-byte form.
	sizeWithFiller := func(filler int) int32 {
		c, _ := newTestCompiler(TargetZ)
		a := c.Asm
		a.StartRoutine(-1, "t", 0, false)
		a.RoutineHeader(0)
		l := a.NewLabel()
		a.Assemble1Branch(int(zcode.OpJZ), constOperand(0), l, false)
		for i := 0; i < filler; i++ {
			a.Assemble0(int(zcode.OpNop))
		}
		a.DefineLabel(l)
		a.AssembleJump(RFalseLabel)
		start := a.EndRoutine()
		return a.CodeSize() - start
	}

	near := sizeWithFiller(4)
	far := sizeWithFiller(120)
	// 116 extra nops plus one extra branch byte, modulo padding.
	if far-near < 116 || far-near > 120 {
		t.Errorf("near %d bytes, far %d bytes", near, far)
	}

	cNear, _ := newTestCompiler(TargetZ)
	a := cNear.Asm
	a.StartRoutine(-1, "t", 0, false)
	a.RoutineHeader(0)
	l := a.NewLabel()
	a.Assemble1Branch(int(zcode.OpJZ), constOperand(0), l, false)
	a.DefineLabel(l)
	a.AssembleJump(RFalseLabel)
	start := a.EndRoutine()
	code := cNear.Asm.CodeBytes()[start:]
	// jz small-const: opcode, operand, then the single branch byte with
	// bit 6 set.
	if code[3]&0x40 == 0 {
		t.Errorf("branch byte %#x not in short form (code %x)", code[3], code)
	}
}

func TestBranchToReturnPseudoLabels(t *testing.T) {
	c, _ := newTestCompiler(TargetZ)
	a := c.Asm
	a.StartRoutine(-1, "t", 0, false)
	a.RoutineHeader(0)
	a.Assemble1Branch(int(zcode.OpJZ), constOperand(0), RTrueLabel, false)
	a.AssembleJump(RFalseLabel)
	start := a.EndRoutine()

	code := a.CodeBytes()[start:]
	// Branch offset 1 means return true; the encoding is the short
	// form with offset 1.
	if code[3]&0x40 == 0 || code[3]&0x3F != 1 {
		t.Errorf("branch-to-rtrue byte %#x (code %x)", code[3], code)
	}
}

func TestLabelOffsetsStayOrdered(t *testing.T) {
	c, _ := newTestCompiler(TargetZ)
	a := c.Asm
	a.StartRoutine(-1, "t", 0, false)
	a.RoutineHeader(0)

	var labels []int
	end := a.NewLabel()
	for i := 0; i < 6; i++ {
		l := a.NewLabel()
		labels = append(labels, l)
		a.AssembleJump(l)
		a.DefineLabel(l)
		a.Assemble1Branch(int(zcode.OpJZ), constOperand(0), end, false)
	}
	a.DefineLabel(end)
	a.AssembleJump(RFalseLabel)
	a.EndRoutine()

	// Relaxation deletes every trivial jump; the surviving label
	// offsets must still be monotonic.
	prev := int32(-1)
	for _, l := range labels {
		off := a.labelOffset(l)
		if off < prev {
			t.Fatalf("label offsets regressed: %d after %d", off, prev)
		}
		prev = off
	}
	if c.Errs.ErrorCount != 0 {
		t.Fatal("relaxation reported errors")
	}
}

func TestGlulxBranchDisplacementWidth(t *testing.T) {
	// A nearby branch target shrinks the four-byte displacement down
	// to one byte, with the operand mode nibble rewritten to match.
	c, _ := newTestCompiler(TargetGlulx)
	a := c.Asm
	a.StartRoutine(-1, "t", 0, false)
	a.RoutineHeader(0)
	l := a.NewLabel()
	a.AssembleJump(l)
	a.DefineLabel(l)
	a.AssembleJump(RFalseLabel)
	start := a.EndRoutine()

	code := a.CodeBytes()[start:]
	if code[0] != 0xC1 {
		t.Fatalf("function type byte %#x", code[0])
	}
	if code[3] != byte(glulx.Jump) {
		t.Fatalf("opcode %#x, want jump (code %x)", code[3], code)
	}
	if code[4]&0x0F != glulx.ModeConstByte {
		t.Errorf("jump operand mode %#x, want the one-byte form", code[4]&0x0F)
	}
	// Displacement 2 is the instruction after the branch data.
	if code[5] != 2 {
		t.Errorf("jump displacement %d, want 2", code[5])
	}
	if code[6] != byte(glulx.Return) || code[7] != glulx.ModeConstZero {
		t.Errorf("tail %x, want return with a zero constant", code[6:])
	}
	if c.Errs.ErrorCount != 0 {
		t.Fatal("relaxation reported errors")
	}
}
