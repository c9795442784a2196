package compiler

import (
	"github.com/DavidKinder/Inform6-sub000/glulx"
)

// Z-machine return opcodes a jump can collapse into.
func zReturnByte(b byte) bool {
	return b == 0xB0 || b == 0xB1 || b == 0xB8
}

// EndRoutine relaxes the holding area and transfers it to the
// permanent code area, returning the routine's code-area offset.
func (a *Assembler) EndRoutine() int32 {
	start := a.CodeSize()
	if a.c.Opts.Target == TargetZ {
		a.relaxZ()
	} else {
		a.relaxG()
	}
	if a.CodeSize()-start > int32(a.code.Len()) {
		a.c.Errs.CompilerError("routine %q grew during transfer", a.routineName)
	}
	// Re-express sequence points as code-area offsets, displaced by
	// whatever the relaxer deleted ahead of them.
	for i := range a.seqPoints {
		off := a.seqPoints[i].Offset
		del := int32(0)
		for j := int32(0); j < off && j < int32(a.marks.Len()); j++ {
			if a.deleted(j) {
				del++
			}
		}
		a.seqPoints[i].Offset = start + off - del
	}
	a.pad()
	if a.c.Stripper != nil {
		a.c.Stripper.NoteFunctionEnd(a.CodeSize())
	}
	a.code.SetLen(0)
	a.marks.SetLen(0)
	return start
}

func (a *Assembler) pad() {
	if a.c.Opts.Target != TargetZ {
		return
	}
	scale := int32(a.c.Opts.Scale())
	for a.CodeSize()%scale != 0 {
		a.out.Append(0)
	}
}

func (a *Assembler) deleted(i int32) bool {
	return Marker(*a.marks.At(int(i))) == DeletedMarker
}

func (a *Assembler) del(i int32) {
	*a.marks.At(int(i)) = byte(DeletedMarker)
}

// recomputeLabels walks the label list in PC order, shifting each
// offset down by the deleted bytes that precede it.
func (a *Assembler) recomputeLabels() {
	removed := int32(0)
	scanned := int32(0)
	for n := a.firstLabel; n != -1; n = a.labels.At(n).Next {
		l := a.labels.At(n)
		for ; scanned < l.Offset; scanned++ {
			if a.deleted(scanned) {
				removed++
			}
		}
		l.Offset -= removed
	}
}

func (a *Assembler) relaxZ() {
	code := a.code.Slice()
	marks := a.marks.Slice()
	n := int32(len(code))

	// Pass 1: choose branch forms and collapse trivial jumps, using
	// the labels' pre-deletion offsets.
	for i := int32(0); i < n; i++ {
		switch Marker(marks[i]) {
		case BranchMarker:
			val := uint16(code[i]&0x3F)<<8 | uint16(code[i+1])
			if val == branchRTrue || val == branchRFalse {
				a.del(i + 1)
				break
			}
			// Judged against the short form's own end position, so
			// later deletions can only shrink the offset further.
			target := a.labelOffset(int(val))
			if off := target - (i + 1) + 2; off >= 2 && off <= 63 {
				a.del(i + 1)
			}
		case LabelMarker:
			val := int(int16(uint16(code[i])<<8 | uint16(code[i+1])))
			target := a.labelOffset(val)
			switch {
			case target == i+2:
				a.del(i - 1)
				a.del(i)
				a.del(i + 1)
			case target < n && zReturnByte(code[target]) && Marker(marks[target]) == NullMarker:
				code[i-1] = code[target]
				a.del(i)
				a.del(i + 1)
			}
		}
	}

	a.recomputeLabels()

	// Pass 3: copy out, substituting displacements.
	outStart := a.CodeSize()
	for i := int32(0); i < n; i++ {
		if a.deleted(i) {
			continue
		}
		p := a.CodeSize() - outStart
		m := Marker(marks[i])
		switch m {
		case BranchMarker:
			polarity := code[i] & 0x80
			val := uint16(code[i]&0x3F)<<8 | uint16(code[i+1])
			short := i+1 < n && a.deleted(i+1)
			var off int32
			switch val {
			case branchRTrue:
				off = 1
			case branchRFalse:
				off = 0
			default:
				target := a.labels.At(int(val)).Offset
				if short {
					off = target - (p + 1) + 2
				} else {
					off = target - (p + 2) + 2
				}
			}
			if short {
				if off < 0 || off > 63 {
					a.c.Errs.CompilerError("short branch offset %d out of range", off)
				}
				a.out.Append(polarity | 0x40 | byte(off))
			} else {
				if off < -8192 || off > 8191 {
					a.c.Errs.Error("routine %q is too large: branch offset %d unreachable", a.routineName, off)
					off = 0
				}
				a.out.Append(polarity | byte(off>>8)&0x3F)
				a.out.Append(byte(off))
				i++
			}
		case LabelMarker:
			val := int(int16(uint16(code[i])<<8 | uint16(code[i+1])))
			target := a.labels.At(val).Offset
			off := target - (p + 2) + 2
			if off < -32768 || off > 32767 {
				a.c.Errs.Error("routine %q is too large: jump offset %d unreachable", a.routineName, off)
				off = 0
			}
			a.out.Append(byte(off >> 8))
			a.out.Append(byte(off))
			i++
		default:
			if m != NullMarker {
				// Variable renumbering patches a lone byte; every
				// other marker covers a 16-bit word.
				width := 2
				if m == VariableMarker {
					width = 1
				}
				a.patches.Add(m, width, a.CodeSize())
			}
			a.out.Append(code[i])
		}
	}
}

func (a *Assembler) relaxG() {
	code := a.code.Slice()
	marks := a.marks.Slice()
	n := int32(len(code))

	branchWord := func(i int32) int32 {
		return int32(uint32(code[i])<<24 | uint32(code[i+1])<<16 |
			uint32(code[i+2])<<8 | uint32(code[i+3]))
	}

	// Pass 1: pick 1/2/4-byte displacement widths and rewrite the
	// opmode nibbles to match.
	for i := int32(0); i < n; i++ {
		m := Marker(marks[i])
		if m <= BranchMarker || m > BranchMaxMarker {
			continue
		}
		label := branchWord(i)
		var off int32
		switch label {
		case RTrueLabel:
			off = 1
		case RFalseLabel:
			off = 0
		default:
			off = a.labelOffset(int(label)) - (i + 4) + 2
		}
		var mode byte
		switch {
		case off >= -128 && off <= 127:
			mode = glulx.ModeConstByte
			a.del(i + 1)
			a.del(i + 2)
			a.del(i + 3)
		case off >= -32768 && off <= 32767:
			mode = glulx.ModeConstShort
			a.del(i + 2)
			a.del(i + 3)
		default:
			mode = glulx.ModeConstWord
		}
		enc := int32(m - BranchMarker)
		nib := i - enc/2
		if enc%2 == 1 {
			code[nib] = code[nib]&0x0F | mode<<4
		} else {
			code[nib] = code[nib]&0xF0 | mode
		}
		i += 3
	}

	a.recomputeLabels()

	outStart := a.CodeSize()
	for i := int32(0); i < n; i++ {
		if a.deleted(i) {
			continue
		}
		p := a.CodeSize() - outStart
		m := Marker(marks[i])
		switch {
		case m > BranchMarker && m <= BranchMaxMarker:
			width := int32(1)
			if i+1 < n && !a.deleted(i+1) {
				width = 2
			}
			if i+2 < n && !a.deleted(i+2) {
				width = 4
			}
			label := branchWord(i)
			var off int32
			switch label {
			case RTrueLabel:
				off = 1
			case RFalseLabel:
				off = 0
			default:
				off = a.labels.At(int(label)).Offset - (p + width) + 2
			}
			switch width {
			case 1:
				if off < -128 || off > 127 {
					a.c.Errs.CompilerError("branch offset %d exceeds chosen width", off)
				}
				a.out.Append(byte(off))
			case 2:
				if off < -32768 || off > 32767 {
					a.c.Errs.CompilerError("branch offset %d exceeds chosen width", off)
				}
				a.out.Append(byte(off >> 8))
				a.out.Append(byte(off))
			default:
				a.out.Append(byte(off >> 24))
				a.out.Append(byte(off >> 16))
				a.out.Append(byte(off >> 8))
				a.out.Append(byte(off))
			}
			i += 3
		case m != NullMarker:
			a.patches.Add(m, 4, a.CodeSize())
			a.out.Append(code[i])
		default:
			a.out.Append(code[i])
		}
	}
}
