package glulx

import "fmt"

// DecodedOperand is one operand read back from encoded code: its
// addressing-mode nibble and raw payload value.
type DecodedOperand struct {
	Mode  byte
	Value int32
}

// Inst is one decoded instruction.
type Inst struct {
	Op       Op
	Operands []DecodedOperand
	Addr     int32
	Next     int32 // address of the following instruction
}

// FuncHeader is a decoded function header: the type byte and the local
// variable count.
type FuncHeader struct {
	Type   byte // 0xC0 stack-args, 0xC1 locals-args
	Locals int
	Code   int32 // address of the first instruction
}

// DecodeFunc reads the function header at addr.
func DecodeFunc(data []byte, addr int32) (*FuncHeader, error) {
	r := &reader{data: data, pos: int(addr)}
	t, err := r.byte()
	if err != nil {
		return nil, err
	}
	if t != 0xC0 && t != 0xC1 {
		return nil, fmt.Errorf("not a function at %#x: type byte %#02x", addr, t)
	}
	h := &FuncHeader{Type: t}
	for {
		size, err := r.byte()
		if err != nil {
			return nil, fmt.Errorf("locals format: %w", err)
		}
		count, err := r.byte()
		if err != nil {
			return nil, fmt.Errorf("locals format: %w", err)
		}
		if size == 0 && count == 0 {
			break
		}
		if size != 4 {
			return nil, fmt.Errorf("unsupported local size %d at %#x", size, addr)
		}
		h.Locals += int(count)
	}
	h.Code = int32(r.pos)
	return h, nil
}

// DecodeInst decodes the instruction starting at pc: the
// variable-length opcode number, the mode nibbles, then each operand's
// payload. It is the inverse of the assembler's emission.
func DecodeInst(data []byte, pc int32) (*Inst, error) {
	r := &reader{data: data, pos: int(pc)}
	inst := &Inst{Addr: pc}

	b, err := r.byte()
	if err != nil {
		return nil, err
	}
	var num uint32
	switch {
	case b < 0x80:
		num = uint32(b)
	case b < 0xC0:
		b2, err := r.byte()
		if err != nil {
			return nil, fmt.Errorf("opcode: %w", err)
		}
		num = uint32(b&0x3F)<<8 | uint32(b2)
	default:
		var rest [3]byte
		for i := range rest {
			rest[i], err = r.byte()
			if err != nil {
				return nil, fmt.Errorf("opcode: %w", err)
			}
		}
		num = uint32(b&0x3F)<<24 | uint32(rest[0])<<16 |
			uint32(rest[1])<<8 | uint32(rest[2])
	}
	inst.Op = Op(num)
	info := Info(inst.Op)
	if info == nil {
		return nil, fmt.Errorf("unknown opcode %#x at %#x", num, pc)
	}

	// Mode nibbles, packed low nibble first.
	modes := make([]byte, 0, info.Operands)
	for i := 0; i < info.Operands; i += 2 {
		mb, err := r.byte()
		if err != nil {
			return nil, fmt.Errorf("%s modes: %w", info.Name, err)
		}
		modes = append(modes, mb&0x0F)
		if i+1 < info.Operands {
			modes = append(modes, mb>>4)
		}
	}

	for _, m := range modes {
		var v int32
		switch PayloadLen(m) {
		case 0:
		case 1:
			b, err := r.byte()
			if err != nil {
				return nil, fmt.Errorf("%s operand: %w", info.Name, err)
			}
			v = int32(int8(b))
		case 2:
			hi, err1 := r.byte()
			lo, err2 := r.byte()
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("%s operand truncated", info.Name)
			}
			v = int32(int16(uint16(hi)<<8 | uint16(lo)))
		default:
			var w [4]byte
			for i := range w {
				w[i], err = r.byte()
				if err != nil {
					return nil, fmt.Errorf("%s operand: %w", info.Name, err)
				}
			}
			v = int32(uint32(w[0])<<24 | uint32(w[1])<<16 |
				uint32(w[2])<<8 | uint32(w[3]))
		}
		inst.Operands = append(inst.Operands, DecodedOperand{Mode: m, Value: v})
	}

	inst.Next = int32(r.pos)
	return inst, nil
}

func (o DecodedOperand) String() string {
	switch o.Mode {
	case ModeConstZero:
		return "0"
	case ModeConstByte, ModeConstShort, ModeConstWord:
		return fmt.Sprintf("%d", o.Value)
	case ModeStack:
		return "sp"
	case ModeLocalByte, ModeLocalShort, ModeLocalWord:
		return fmt.Sprintf("local%d", o.Value/4)
	case ModeRAMByte, ModeRAMShort, ModeRAMWord:
		return fmt.Sprintf("ram[%#x]", o.Value)
	default:
		return fmt.Sprintf("mem[%#x]", o.Value)
	}
}

func (in *Inst) String() string {
	s := in.Op.String()
	for _, o := range in.Operands {
		s += " " + o.String()
	}
	return s
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
