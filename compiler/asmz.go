package compiler

import (
	"github.com/DavidKinder/Inform6-sub000/zcode"
)

// Branch data is emitted in long form with the label number held in
// the 14 offset bits until the relaxer substitutes real displacements.
// The return pseudo-labels take the two top slots.
const (
	branchRTrue  = 0x3FFF
	branchRFalse = 0x3FFE
)

func (a *Assembler) zOperandType(o Operand, varNumber bool) byte {
	switch o.Kind {
	case OmittedOp:
		return zcode.Omitted
	case VariableOp:
		if varNumber {
			// Opcodes like @store and @inc take the variable number
			// itself as a small constant.
			return zcode.SmallConst
		}
		return zcode.Variable
	case ShortConstOp:
		if o.Marker == VariableMarker && o.Value >= 0 && o.Value <= 255 {
			// Variable numbers are patched in place, one byte.
			return zcode.SmallConst
		}
		if o.Marker != NullMarker {
			return zcode.LargeConst
		}
		if o.Value >= 0 && o.Value <= 255 {
			return zcode.SmallConst
		}
		return zcode.LargeConst
	default:
		return zcode.LargeConst
	}
}

func (a *Assembler) zOperand(o Operand, typ byte) {
	switch typ {
	case zcode.Omitted:
	case zcode.LargeConst:
		a.word16(uint16(o.Value), o.Marker)
	default:
		m := o.Marker
		if m == NullMarker && o.Kind == VariableOp && o.Value >= 240 && o.Value <= 254 {
			m = VariableMarker
		}
		a.byte(byte(o.Value), m)
	}
}

func (a *Assembler) assembleZ(ai *AI) {
	op := zcode.Op(ai.Op)
	info := zcode.Info(op)
	n := len(ai.Operands)

	types := make([]byte, n)
	for i, o := range ai.Operands {
		types[i] = a.zOperandType(o, i == 0 && info.Flags&zcode.VarFlag != 0)
	}

	switch info.Class {
	case zcode.ZeroOp:
		a.byte(0xB0|info.Code, NullMarker)

	case zcode.OneOp:
		if info.Flags&zcode.LabelFlag != 0 {
			// jump: the operand is the label word emitted below.
			a.byte(0x80|zcode.LargeConst<<4|info.Code, NullMarker)
			break
		}
		if n != 1 {
			a.c.Errs.CompilerError("@%s given %d operands", info.Name, n)
		}
		a.byte(0x80|types[0]<<4|info.Code, NullMarker)
		a.zOperand(ai.Operands[0], types[0])

	case zcode.TwoOp:
		long := n == 2 &&
			types[0] != zcode.LargeConst && types[1] != zcode.LargeConst
		if long {
			b := info.Code
			if types[0] == zcode.Variable {
				b |= 0x40
			}
			if types[1] == zcode.Variable {
				b |= 0x20
			}
			a.byte(b, NullMarker)
			a.zOperand(ai.Operands[0], types[0])
			a.zOperand(ai.Operands[1], types[1])
		} else {
			// Long constants force the 2OP into VAR form.
			a.byte(0xC0|info.Code, NullMarker)
			a.zTypesAndOperands(ai.Operands, types, 4)
		}

	case zcode.VarOp:
		a.byte(0xE0|info.Code, NullMarker)
		a.zTypesAndOperands(ai.Operands, types, 4)

	case zcode.VarLongOp:
		a.byte(0xE0|info.Code, NullMarker)
		a.zTypesAndOperands(ai.Operands, types, 8)

	case zcode.ExtOp:
		a.byte(0xBE, NullMarker)
		a.byte(info.Code, NullMarker)
		a.zTypesAndOperands(ai.Operands, types, 4)
	}

	if info.Flags&zcode.StoreFlag != 0 {
		store := ai.Store
		if store < 0 {
			store = int32(zcode.StackVar)
		}
		m := NullMarker
		if store >= 240 && store <= 254 {
			m = VariableMarker
		}
		a.byte(byte(store), m)
	}

	switch {
	case info.Flags&zcode.LabelFlag != 0:
		a.word16(uint16(ai.Branch), LabelMarker)
	case info.Flags&zcode.BranchFlag != 0:
		val := uint16(0)
		switch ai.Branch {
		case RTrueLabel:
			val = branchRTrue
		case RFalseLabel:
			val = branchRFalse
		default:
			val = uint16(ai.Branch)
		}
		b1 := byte(val>>8) & 0x3F
		if !ai.BranchOnFalse {
			b1 |= 0x80
		}
		a.byte(b1, BranchMarker)
		a.byte(byte(val), NullMarker)
	}
}

func (a *Assembler) zTypesAndOperands(ops []Operand, types []byte, max int) {
	if len(ops) > max {
		a.c.Errs.Error("too many operands for opcode (%d given, %d allowed)", len(ops), max)
		ops = ops[:max]
	}
	for base := 0; base < max; base += 4 {
		var tb byte = 0xFF
		for i := 0; i < 4 && base+i < len(types); i++ {
			shift := uint(6 - 2*i)
			tb &^= 0x3 << shift
			tb |= types[base+i] << shift
		}
		a.byte(tb, NullMarker)
	}
	for i, o := range ops {
		a.zOperand(o, types[i])
	}
}

// AssembleZText emits a print or print_ret with its inline packed
// text operand.
func (a *Assembler) AssembleZText(op zcode.Op, text string) {
	if a.Unreachable() {
		a.warnUnreached()
		return
	}
	a.byte(0xB0|zcode.Info(op).Code, NullMarker)
	words := zcode.PackZchars(zcode.Zchars([]byte(text), &a.c.Alphabet))
	for _, w := range words {
		a.word16(w, NullMarker)
	}
	if op.EndsFlow() {
		a.reach = unreachable
	}
}
