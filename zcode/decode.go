package zcode

import "fmt"

// DecodedOperand is one operand read back from encoded code.
type DecodedOperand struct {
	Type  byte // LargeConst, SmallConst or Variable
	Value uint16
}

// DecodedBranch is branch data read back from encoded code. Offsets 0
// and 1 mean return false and return true rather than a jump.
type DecodedBranch struct {
	OnTrue bool
	Offset int16
}

// Inst is one decoded instruction.
type Inst struct {
	Op       Op
	Operands []DecodedOperand
	Store    int // result variable number, or -1
	Branch   *DecodedBranch
	Text     []uint16 // encoded words of an inline text operand
	Addr     int32
	Next     int32 // address of the following instruction
}

// DecodeInst decodes the instruction starting at pc. It is the inverse
// of the assembler's emission, one instruction at a time.
func DecodeInst(data []byte, pc int32, version int) (*Inst, error) {
	r := &reader{data: data, pos: int(pc)}
	inst := &Inst{Store: -1, Addr: pc}

	b, err := r.byte()
	if err != nil {
		return nil, err
	}

	var types []byte
	switch {
	case b == 0xBE && version >= 5:
		// Extended form: opcode number byte, then a VAR-style type byte.
		code, err := r.byte()
		if err != nil {
			return nil, fmt.Errorf("ext opcode: %w", err)
		}
		inst.Op = findOp(ExtOp, code, version)
		types, err = r.typeBytes(1)
		if err != nil {
			return nil, err
		}

	case b >= 0xC0:
		// Variable form: bit 5 picks the 2OP or VAR class.
		class := TwoOp
		if b&0x20 != 0 {
			class = VarOp
		}
		inst.Op = findOp(class, b&0x1F, version)
		nTypes := 1
		if inst.Op >= 0 && Info(inst.Op).Class == VarLongOp {
			nTypes = 2
		}
		var err error
		types, err = r.typeBytes(nTypes)
		if err != nil {
			return nil, err
		}

	case b >= 0x80:
		// Short form: operand type in bits 4-5, Omitted means 0OP.
		t := (b >> 4) & 3
		if t == Omitted {
			inst.Op = findOp(ZeroOp, b&0x0F, version)
		} else {
			inst.Op = findOp(OneOp, b&0x0F, version)
			types = []byte{t}
		}

	default:
		// Long form: always 2OP; a set bit 6 or 5 makes that operand a
		// variable instead of a small constant.
		inst.Op = findOp(TwoOp, b&0x1F, version)
		t1, t2 := SmallConst, SmallConst
		if b&0x40 != 0 {
			t1 = Variable
		}
		if b&0x20 != 0 {
			t2 = Variable
		}
		types = []byte{t1, t2}
	}

	if inst.Op < 0 {
		return nil, fmt.Errorf("unknown opcode byte %#02x at %#x", b, pc)
	}
	info := Info(inst.Op)

	for _, t := range types {
		var v uint16
		switch t {
		case LargeConst:
			v, err = r.word()
		case SmallConst, Variable:
			var c byte
			c, err = r.byte()
			v = uint16(c)
		}
		if err != nil {
			return nil, fmt.Errorf("%s operand: %w", info.Name, err)
		}
		inst.Operands = append(inst.Operands, DecodedOperand{Type: t, Value: v})
	}

	if info.Flags&TextFlag != 0 {
		for {
			w, err := r.word()
			if err != nil {
				return nil, fmt.Errorf("%s text: %w", info.Name, err)
			}
			inst.Text = append(inst.Text, w)
			if w&0x8000 != 0 {
				break
			}
		}
	}

	if info.Flags&StoreFlag != 0 {
		s, err := r.byte()
		if err != nil {
			return nil, fmt.Errorf("%s store: %w", info.Name, err)
		}
		inst.Store = int(s)
	}

	if info.Flags&BranchFlag != 0 {
		b1, err := r.byte()
		if err != nil {
			return nil, fmt.Errorf("%s branch: %w", info.Name, err)
		}
		br := &DecodedBranch{OnTrue: b1&0x80 != 0}
		if b1&0x40 != 0 {
			br.Offset = int16(b1 & 0x3F)
		} else {
			b2, err := r.byte()
			if err != nil {
				return nil, fmt.Errorf("%s branch: %w", info.Name, err)
			}
			raw := int16(b1&0x3F)<<8 | int16(b2)
			if b1&0x20 != 0 {
				raw -= 0x4000
			}
			br.Offset = raw
		}
		inst.Branch = br
	}

	inst.Next = int32(r.pos)
	return inst, nil
}

// findOp maps an operand-count class and low opcode number back to the
// table entry live in the given version, or -1. A variable-form VAR
// number may land on a two-type-byte entry.
func findOp(class int, code byte, version int) Op {
	for i := range opcodes {
		oc := &opcodes[i]
		if oc.Code != code || !oc.availableIn(version) {
			continue
		}
		if oc.Class == class || (class == VarOp && oc.Class == VarLongOp) {
			return Op(i)
		}
	}
	return -1
}

func (o DecodedOperand) String() string {
	if o.Type != Variable {
		return fmt.Sprintf("%d", int16(o.Value))
	}
	switch {
	case o.Value == StackVar:
		return "sp"
	case o.Value < FirstGlobal:
		return fmt.Sprintf("local%d", o.Value-FirstLocal)
	default:
		return fmt.Sprintf("g%d", o.Value-FirstGlobal)
	}
}

func (in *Inst) String() string {
	s := in.Op.String()
	for _, o := range in.Operands {
		s += " " + o.String()
	}
	if len(in.Text) > 0 {
		s += fmt.Sprintf(" %q", DecodeZwords(in.Text))
	}
	if in.Store != -1 {
		s += " -> " + DecodedOperand{Type: Variable, Value: uint16(in.Store)}.String()
	}
	if in.Branch != nil {
		sense := "?"
		if !in.Branch.OnTrue {
			sense = "?~"
		}
		switch in.Branch.Offset {
		case 0:
			s += " " + sense + "rfalse"
		case 1:
			s += " " + sense + "rtrue"
		default:
			s += fmt.Sprintf(" %s%#x", sense, in.Next+int32(in.Branch.Offset)-2)
		}
	}
	return s
}

// DecodeZwords unpacks encoded text words and decodes them with the
// default alphabet.
func DecodeZwords(words []uint16) string {
	return string(DecodeString(DecodeZchars(words), &DefaultAlphabet))
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) byte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("unexpected end of code at offset %d", r.pos)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) word() (uint16, error) {
	hi, err := r.byte()
	if err != nil {
		return 0, err
	}
	lo, err := r.byte()
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// typeBytes unpacks n operand-type bytes, two bits per operand from the
// top down, stopping at the first Omitted field.
func (r *reader) typeBytes(n int) ([]byte, error) {
	var types []byte
	for i := 0; i < n; i++ {
		tb, err := r.byte()
		if err != nil {
			return nil, fmt.Errorf("type byte: %w", err)
		}
		for shift := 6; shift >= 0; shift -= 2 {
			t := (tb >> shift) & 3
			if t == Omitted {
				return types, nil
			}
			types = append(types, t)
		}
	}
	return types, nil
}
