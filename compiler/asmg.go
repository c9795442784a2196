package compiler

import (
	"github.com/DavidKinder/Inform6-sub000/glulx"
)

// Variable numbering on the 32-bit target: 0 is the stack, 1 up to
// glulxFirstGlobal-1 are locals, and numbers from glulxFirstGlobal are
// global words patched against the globals segment.
const glulxFirstGlobal = 32

type gOperand struct {
	mode   byte
	value  int32
	marker Marker
	branch bool
}

func (a *Assembler) gOperand(o Operand) gOperand {
	switch o.Kind {
	case VariableOp:
		return a.gVariable(o.Value)
	case OmittedOp:
		return gOperand{mode: glulx.ModeConstZero}
	default:
		if o.Marker != NullMarker {
			return gOperand{mode: glulx.ModeConstWord, value: o.Value, marker: o.Marker}
		}
		switch {
		case o.Value == 0:
			return gOperand{mode: glulx.ModeConstZero}
		case o.Value >= -128 && o.Value <= 127:
			return gOperand{mode: glulx.ModeConstByte, value: o.Value}
		case o.Value >= -32768 && o.Value <= 32767:
			return gOperand{mode: glulx.ModeConstShort, value: o.Value}
		default:
			return gOperand{mode: glulx.ModeConstWord, value: o.Value}
		}
	}
}

func (a *Assembler) gVariable(v int32) gOperand {
	switch {
	case v == 0:
		return gOperand{mode: glulx.ModeStack}
	case v < glulxFirstGlobal:
		off := 4 * (v - 1)
		if off <= 255 {
			return gOperand{mode: glulx.ModeLocalByte, value: off}
		}
		return gOperand{mode: glulx.ModeLocalShort, value: off}
	default:
		return gOperand{
			mode:   glulx.ModeMemWord,
			value:  4 * (v - glulxFirstGlobal),
			marker: VariableMarker,
		}
	}
}

// gStore maps a store destination to an operand; -1 discards the
// result via the zero-constant mode.
func (a *Assembler) gStore(store int32) gOperand {
	if store < 0 {
		return gOperand{mode: glulx.ModeConstZero}
	}
	return a.gVariable(store)
}

func (a *Assembler) assembleG(ai *AI) {
	op := glulx.Op(ai.Op)
	info := glulx.Info(op)
	if info == nil {
		a.c.Errs.CompilerError("unknown opcode %d", ai.Op)
	}

	ops := make([]gOperand, 0, len(ai.Operands)+2)
	for _, o := range ai.Operands {
		ops = append(ops, a.gOperand(o))
	}
	if info.Stores > 0 {
		ops = append(ops, a.gStore(ai.Store))
	}
	if ai.Branch != -1 {
		ops = append(ops, gOperand{mode: glulx.ModeConstWord, value: int32(ai.Branch), branch: true})
	}

	for _, b := range op.Encode(nil) {
		a.byte(b, NullMarker)
	}

	nibbleStart := a.PC()
	for i := 0; i < (len(ops)+1)/2; i++ {
		b := ops[2*i].mode
		if 2*i+1 < len(ops) {
			b |= ops[2*i+1].mode << 4
		}
		a.byte(b, NullMarker)
	}

	for idx, o := range ops {
		if o.branch {
			// The marker encodes the distance back to the opmode
			// nibble so the relaxer can rewrite it, plus which half
			// of the byte the nibble occupies.
			delta := a.PC() - (nibbleStart + int32(idx/2))
			m := BranchMarker + Marker(2*delta) + Marker(idx%2)
			if m > BranchMaxMarker {
				a.c.Errs.CompilerError("branch marker offset %d out of range", delta)
			}
			a.word32(uint32(o.value), m)
			continue
		}
		switch glulx.PayloadLen(o.mode) {
		case 0:
		case 1:
			a.byte(byte(o.value), o.marker)
		case 2:
			a.word16(uint16(o.value), o.marker)
		default:
			a.word32(uint32(o.value), o.marker)
		}
	}
}

// AssembleGString emits a streamstr of a string constant: the string
// marker on the operand resolves to the string segment at image write.
func (a *Assembler) AssembleGString(value int32, marker Marker) {
	a.Assemble1(int(glulx.Streamstr), Operand{Kind: LongConstOp, Value: value, Marker: marker})
}
